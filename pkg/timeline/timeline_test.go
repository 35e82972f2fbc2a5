package timeline

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shiroemons/go-sbfmus/pkg/sbf"
	"github.com/shiroemons/go-sbfmus/pkg/sbf/sbftest"
)

// countingDecoder はデコード回数を数えるDecoder
type countingDecoder struct {
	dec   Decoder
	mu    sync.Mutex
	calls map[string]int
}

func newCountingDecoder(dec Decoder) *countingDecoder {
	return &countingDecoder{dec: dec, calls: make(map[string]int)}
}

func (d *countingDecoder) Decode(c sbf.Chunk) ([]int16, error) {
	d.mu.Lock()
	d.calls[c.Name()]++
	d.mu.Unlock()
	return d.dec.Decode(c)
}

func (d *countingDecoder) total() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, c := range d.calls {
		n += c
	}
	return n
}

// testTrack は長さの異なる4チャンクからなるトラックを作成します
func testTrack(t *testing.T) (*sbf.Container, []sbf.Chunk) {
	t.Helper()
	c := sbftest.New().
		Add("boss1", sbftest.Fill(0, sbf.BlockPayloadSize, 10), sbftest.Fill(0, 1000, 20)).
		Add("boss2", sbftest.Split(1, 2*sbf.SampleRate, 30)...).
		Add("menua1", sbftest.Fill(0, 16, 40)).
		Add("boss3", sbftest.Fill(2, 600, 50)).
		Add("boss4", sbftest.Fill(0, 0, 0)).
		Container("track.sbf")
	chunks, ok := c.Track("boss")
	require.True(t, ok)
	require.Len(t, chunks, 4)
	return c, chunks
}

func permutations(n int) [][]int {
	if n == 1 {
		return [][]int{{0}}
	}
	var out [][]int
	for _, p := range permutations(n - 1) {
		for i := 0; i <= len(p); i++ {
			q := slices.Insert(slices.Clone(p), i, n-1)
			out = append(out, q)
		}
	}
	return out
}

func TestAssemble_Offsets(t *testing.T) {
	c, chunks := testTrack(t)

	tl, err := Assemble(context.Background(), c, chunks, 4)
	require.NoError(t, err)

	require.Equal(t, 4, tl.Len())
	require.Equal(t, []string{"1", "2", "3", "4"}, tl.Suffixes())
	offsets := tl.Offsets()
	require.Equal(t, time.Duration(0), offsets[0])
	frames1 := int64((sbf.BlockPayloadSize + 1000) / 2)
	require.Equal(t, time.Duration(frames1*int64(time.Second)/sbf.SampleRate), offsets[1])
	require.Equal(t, offsets[1]+time.Second, offsets[2])
	// 空のチャンクは長さ0
	require.Equal(t, offsets[3], tl.Duration())

	require.Equal(t, sbf.BlockPayloadSize+1000+2*sbf.SampleRate+600, tl.Samples())
	require.Len(t, tl.PCM(), tl.Samples())
}

func TestAssemble_ReorderInvariance(t *testing.T) {
	c, chunks := testTrack(t)

	individual := make(map[string][]int16)
	total := 0
	for _, chunk := range chunks {
		pcm, err := c.Decode(chunk)
		require.NoError(t, err)
		individual[chunk.Suffix] = pcm
		total += len(pcm)
	}
	wantEnd := sbf.SampleDuration(total)

	for _, perm := range permutations(len(chunks)) {
		order := make([]sbf.Chunk, len(perm))
		for i, p := range perm {
			order[i] = chunks[p]
		}
		tl, err := Assemble(context.Background(), c, order, 3)
		require.NoError(t, err)

		offsets := tl.Offsets()
		require.Equal(t, time.Duration(0), offsets[0], "perm %v", perm)
		for i := 1; i < len(offsets); i++ {
			if offsets[i] < offsets[i-1] {
				t.Fatalf("perm %v: offsets decrease at %d: %v", perm, i, offsets)
			}
		}
		require.Len(t, tl.PCM(), total, "perm %v", perm)

		last := len(offsets) - 1
		end := offsets[last] + tl.ChunkDuration(last)
		if diff := end - wantEnd; diff < -time.Microsecond || diff > time.Microsecond {
			t.Errorf("perm %v: end %v, want %v", perm, end, wantEnd)
		}

		// 連結は指定した順序を保つ
		pos := 0
		for i, chunk := range order {
			want := individual[chunk.Suffix]
			if !slices.Equal(tl.PCM()[pos:pos+len(want)], want) {
				t.Fatalf("perm %v: chunk %d (%s) out of place", perm, i, chunk.Suffix)
			}
			pos += len(want)
		}
	}
}

func TestAssembler_Memoizes(t *testing.T) {
	c, chunks := testTrack(t)
	dec := newCountingDecoder(c)
	asm := NewAssembler(dec, 2)

	first, err := asm.Assemble(context.Background(), chunks)
	require.NoError(t, err)
	require.Equal(t, 4, dec.total())

	reordered, err := Move(chunks, 0, 3)
	require.NoError(t, err)
	second, err := asm.Assemble(context.Background(), reordered)
	require.NoError(t, err)
	require.Equal(t, 4, dec.total(), "並び替えだけなら再デコードしない")
	require.Equal(t, first.Samples(), second.Samples())
	require.Equal(t, []string{"2", "3", "4", "1"}, second.Suffixes())

	asm.Forget()
	_, err = asm.Assemble(context.Background(), reordered)
	require.NoError(t, err)
	require.Equal(t, 8, dec.total())
}

type failingDecoder struct {
	fail map[string]error
}

func (d failingDecoder) Decode(c sbf.Chunk) ([]int16, error) {
	if err, ok := d.fail[c.Suffix]; ok {
		return nil, err
	}
	return make([]int16, 4), nil
}

func TestAssemble_Errors(t *testing.T) {
	chunks := []sbf.Chunk{
		{Ident: "t", Suffix: "1"},
		{Ident: "t", Suffix: "2"},
		{Ident: "t", Suffix: "3"},
	}
	errA := errors.New("a")
	errB := errors.New("b")

	t.Run("順序上最初のエラーを返す", func(t *testing.T) {
		dec := failingDecoder{fail: map[string]error{"3": errB, "2": errA}}
		_, err := Assemble(context.Background(), dec, chunks, 3)
		require.ErrorIs(t, err, errA)
	})

	t.Run("失敗したチャンクはキャッシュしない", func(t *testing.T) {
		dec := failingDecoder{fail: map[string]error{"2": errA}}
		asm := NewAssembler(dec, 1)
		_, err := asm.Assemble(context.Background(), chunks)
		require.Error(t, err)
		delete(dec.fail, "2")
		tl, err := asm.Assemble(context.Background(), chunks)
		require.NoError(t, err)
		require.Equal(t, 12, tl.Samples())
	})

	t.Run("キャンセル済みコンテキスト", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Assemble(ctx, failingDecoder{}, chunks, 1)
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestTimeline_ChunkAtAndSeek(t *testing.T) {
	tl := newTimeline(
		[]sbf.Chunk{{Suffix: "1"}, {Suffix: "2"}, {Suffix: "3"}},
		[][]int16{
			make([]int16, 3*sbf.SampleRate*sbf.Channels),
			make([]int16, 1*sbf.SampleRate*sbf.Channels),
			make([]int16, 5*sbf.SampleRate*sbf.Channels),
		},
	)
	require.Equal(t, []time.Duration{0, 3 * time.Second, 4 * time.Second}, tl.Offsets())
	require.Equal(t, 9*time.Second, tl.Duration())

	tests := []struct {
		pos  time.Duration
		want int
	}{
		{0, 0},
		{2 * time.Second, 0},
		{3 * time.Second, 0}, // 境界ちょうどはまだ前のチャンク
		{3*time.Second + 1, 1},
		{4*time.Second + 1, 2},
		{time.Hour, 2},
	}
	for _, tt := range tests {
		if got := tl.ChunkAt(tt.pos); got != tt.want {
			t.Errorf("ChunkAt(%v) = %d, want %d", tt.pos, got, tt.want)
		}
	}

	require.Equal(t, time.Duration(0), tl.SeekOffset(0))
	require.Equal(t, time.Second, tl.SeekOffset(1))
	require.Equal(t, 2*time.Second, tl.SeekOffset(2))

	require.Equal(t, -1, newTimeline(nil, nil).ChunkAt(0))
}

func TestTimeline_IntBuffer(t *testing.T) {
	tl := newTimeline(
		[]sbf.Chunk{{Suffix: "1"}, {Suffix: "2"}},
		[][]int16{{1, -1}, {32767, -32768}},
	)
	buf := tl.IntBuffer()
	require.Equal(t, []int{1, -1, 32767, -32768}, buf.Data)
	require.Equal(t, sbf.Channels, buf.Format.NumChannels)
	require.Equal(t, sbf.SampleRate, buf.Format.SampleRate)
	require.Equal(t, sbf.BitDepth, buf.SourceBitDepth)
	require.Equal(t, 2, buf.NumFrames())
}

func TestTimeline_WriteWAV(t *testing.T) {
	c, chunks := testTrack(t)
	tl, err := Assemble(context.Background(), c, chunks, 2)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, tl.WriteWAV(&buf))
	require.Equal(t, 44+2*tl.Samples(), buf.Len())
}

func TestApplyOrder(t *testing.T) {
	chunks := []sbf.Chunk{{Suffix: "1"}, {Suffix: "2"}, {Suffix: "3"}}

	ordered, err := ApplyOrder(chunks, []string{"3", "1", "2"})
	require.NoError(t, err)
	require.Equal(t, []string{"3", "1", "2"}, sbf.Suffixes(ordered))
	require.Equal(t, []string{"1", "2", "3"}, sbf.Suffixes(chunks), "元のスライスは変更しない")

	tests := []struct {
		name     string
		suffixes []string
	}{
		{"不足", []string{"1", "2"}},
		{"過剰", []string{"1", "2", "3", "4"}},
		{"未知のサフィックス", []string{"1", "2", "9"}},
		{"重複", []string{"1", "1", "2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ApplyOrder(chunks, tt.suffixes)
			require.ErrorIs(t, err, ErrOrderMismatch)
		})
	}
}

func TestMove(t *testing.T) {
	chunks := []sbf.Chunk{{Suffix: "a"}, {Suffix: "b"}, {Suffix: "c"}, {Suffix: "d"}}
	tests := []struct {
		from, to int
		want     []string
	}{
		{0, 3, []string{"b", "c", "d", "a"}},
		{3, 0, []string{"d", "a", "b", "c"}},
		{1, 2, []string{"a", "c", "b", "d"}},
		{2, 2, []string{"a", "b", "c", "d"}},
	}
	for _, tt := range tests {
		moved, err := Move(chunks, tt.from, tt.to)
		require.NoError(t, err)
		require.Equal(t, tt.want, sbf.Suffixes(moved))
	}
	require.Equal(t, []string{"a", "b", "c", "d"}, sbf.Suffixes(chunks))

	_, err := Move(chunks, 0, 4)
	require.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = Move(chunks, -1, 0)
	require.ErrorIs(t, err, ErrIndexOutOfRange)
}
