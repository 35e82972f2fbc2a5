// Package timeline はトラックのチャンクを指定順にデコードして連結し、
// チャンクごとの再生開始位置を計算します。
package timeline

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/go-audio/audio"

	"github.com/shiroemons/go-sbfmus/pkg/sbf"
	"github.com/shiroemons/go-sbfmus/pkg/wav"
)

// Preroll はチャンク先頭から再生するときに巻き戻す時間
const Preroll = 2 * time.Second

// Decoder はチャンクをPCMにデコードするインターフェース。*sbf.Container が実装します
type Decoder interface {
	Decode(chunk sbf.Chunk) ([]int16, error)
}

// Timeline はデコード済みのトラック
//
// 内部のPCMは共有されるため変更してはいけません。
type Timeline struct {
	chunks  []sbf.Chunk
	pcm     [][]int16
	offsets []time.Duration
	frames  int64
	samples int

	generation uint64

	flatOnce sync.Once
	flat     []int16
}

func newTimeline(chunks []sbf.Chunk, pcm [][]int16) *Timeline {
	t := &Timeline{
		chunks:  slices.Clone(chunks),
		pcm:     pcm,
		offsets: make([]time.Duration, len(pcm)),
	}
	for i, p := range pcm {
		t.offsets[i] = framesToDuration(t.frames)
		t.frames += int64(len(p) / sbf.Channels)
		t.samples += len(p)
	}
	return t
}

func framesToDuration(frames int64) time.Duration {
	return time.Duration(frames * int64(time.Second) / sbf.SampleRate)
}

// Len はチャンク数を返します
func (t *Timeline) Len() int {
	return len(t.chunks)
}

// Chunks はチャンクを再生順で返します
func (t *Timeline) Chunks() []sbf.Chunk {
	return slices.Clone(t.chunks)
}

// Suffixes はサフィックスを再生順で返します
func (t *Timeline) Suffixes() []string {
	return sbf.Suffixes(t.chunks)
}

// Generation はこのタイムラインを作成したときの並び順の世代を返します
func (t *Timeline) Generation() uint64 {
	return t.generation
}

// Offsets はチャンクごとの再生開始位置を返します。先頭は常に0です
func (t *Timeline) Offsets() []time.Duration {
	return slices.Clone(t.offsets)
}

// Offset は i 番目のチャンクの再生開始位置を返します
func (t *Timeline) Offset(i int) time.Duration {
	return t.offsets[i]
}

// ChunkDuration は i 番目のチャンクの長さを返します
func (t *Timeline) ChunkDuration(i int) time.Duration {
	return sbf.SampleDuration(len(t.pcm[i]))
}

// Samples はインターリーブされたサンプルの総数を返します
func (t *Timeline) Samples() int {
	return t.samples
}

// Duration はトラック全体の長さを返します
func (t *Timeline) Duration() time.Duration {
	return framesToDuration(t.frames)
}

// PCM は全チャンクを連結したPCMを返します
func (t *Timeline) PCM() []int16 {
	t.flatOnce.Do(func() {
		t.flat = make([]int16, 0, t.samples)
		for _, p := range t.pcm {
			t.flat = append(t.flat, p...)
		}
	})
	return t.flat
}

// ChunkAt は再生位置 pos で再生中のチャンク番号を返します。空のタイムラインでは-1です
func (t *Timeline) ChunkAt(pos time.Duration) int {
	if len(t.offsets) == 0 {
		return -1
	}
	i := 0
	for i < len(t.offsets)-1 && t.offsets[i+1] < pos {
		i++
	}
	return i
}

// SeekOffset は i 番目のチャンクを試聴するための再生開始位置を返します
func (t *Timeline) SeekOffset(i int) time.Duration {
	return max(t.offsets[i]-Preroll, 0)
}

// IntBuffer は再生用にPCMをgo-audioのバッファとして返します
func (t *Timeline) IntBuffer() *audio.IntBuffer {
	data := make([]int, 0, t.samples)
	for _, p := range t.pcm {
		for _, s := range p {
			data = append(data, int(s))
		}
	}
	return &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: sbf.Channels,
			SampleRate:  sbf.SampleRate,
		},
		Data:           data,
		SourceBitDepth: sbf.BitDepth,
	}
}

// WriteWAV はタイムラインをWAVとして w に書き込みます
func (t *Timeline) WriteWAV(w io.Writer) error {
	if err := wav.WriteHeader(w, t.samples); err != nil {
		return err
	}
	for _, p := range t.pcm {
		if err := wav.WriteSamples(w, p); err != nil {
			return err
		}
	}
	return nil
}

// Assembler はチャンクのデコード結果を保持しながらタイムラインを組み立てます
//
// 並び替えの後は移動していないチャンクを再デコードせずに連結だけを行います。
type Assembler struct {
	dec     Decoder
	workers int

	mu    sync.Mutex
	cache map[chunkKey][]int16
}

type chunkKey struct {
	ident  string
	suffix string
	start  uint32
}

func keyOf(c sbf.Chunk) chunkKey {
	return chunkKey{ident: c.Ident, suffix: c.Suffix, start: c.Start}
}

// NewAssembler は新しいAssemblerを作成します。workers が0以下の場合は1になります
func NewAssembler(dec Decoder, workers int) *Assembler {
	if workers <= 0 {
		workers = 1
	}
	return &Assembler{
		dec:     dec,
		workers: workers,
		cache:   make(map[chunkKey][]int16),
	}
}

// Assemble は order の順にチャンクをデコードしてタイムラインを作成します
//
// デコードは並列に行い、結果は order の順に連結します。
func Assemble(ctx context.Context, dec Decoder, order []sbf.Chunk, workers int) (*Timeline, error) {
	a := &Assembler{dec: dec, workers: max(workers, 1)}
	return a.Assemble(ctx, order)
}

// Assemble は order の順でタイムラインを作成します
func (a *Assembler) Assemble(ctx context.Context, order []sbf.Chunk) (*Timeline, error) {
	pcm := make([][]int16, len(order))
	var pending []int

	a.mu.Lock()
	for i, chunk := range order {
		if cached, ok := a.cache[keyOf(chunk)]; ok {
			pcm[i] = cached
		} else {
			pending = append(pending, i)
		}
	}
	a.mu.Unlock()

	errs := make([]error, len(order))
	semaphore := make(chan struct{}, a.workers)
	var wg sync.WaitGroup

	for _, i := range pending {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return nil, err
		}
		select {
		case <-ctx.Done():
			wg.Wait()
			return nil, ctx.Err()
		case semaphore <- struct{}{}:
		}

		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-semaphore }()
			pcm[i], errs[i] = a.dec.Decode(order[i])
		}(i)
	}
	wg.Wait()

	// 並び順で最初のエラーを返す
	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", order[i].Name(), err)
		}
	}

	if a.cache != nil {
		a.mu.Lock()
		for _, i := range pending {
			a.cache[keyOf(order[i])] = pcm[i]
		}
		a.mu.Unlock()
	}
	return newTimeline(order, pcm), nil
}

// Forget は保持しているデコード結果を破棄します
func (a *Assembler) Forget() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cache != nil {
		clear(a.cache)
	}
}
