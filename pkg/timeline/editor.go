package timeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/go-audio/audio"

	"github.com/shiroemons/go-sbfmus/pkg/sbf"
)

// ErrEmptyTrack はチャンクのないトラックを編集しようとした場合のエラー
var ErrEmptyTrack = errors.New("track has no chunks")

// State は編集フローの状態
type State int

const (
	// StateLoaded はタイムラインが現在の並び順で計算済みの状態
	StateLoaded State = iota
	// StateReordering は並び替え後でタイムラインが古い状態
	StateReordering
	// StateCommitted は並び順を保存した状態
	StateCommitted
	// StateExported はWAVを書き出した状態
	StateExported
)

func (s State) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StateReordering:
		return "reordering"
	case StateCommitted:
		return "committed"
	case StateExported:
		return "exported"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// OrderStore は確定した並び順を永続化するインターフェース
type OrderStore interface {
	SetOrder(track string, suffixes []string) error
}

// Playback は外部の再生処理に渡すバッファと開始位置
type Playback struct {
	Buffer *audio.IntBuffer
	Start  time.Duration // Preroll分巻き戻した位置
	Chunk  int
}

// Editor は1トラックの並び替えと書き出しを管理します
//
// 並び替えのたびに世代を進め、タイムラインは古くなったときだけ再計算します。
// 古いタイムラインで再生や書き出しを行うことはありません。
type Editor struct {
	mu sync.Mutex

	track string
	asm   *Assembler
	order []sbf.Chunk
	state State

	generation uint64
	current    *Timeline
}

// NewEditor は order の並びでタイムラインを計算したEditorを作成します
func NewEditor(ctx context.Context, track string, order []sbf.Chunk, asm *Assembler) (*Editor, error) {
	if len(order) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyTrack, track)
	}
	e := &Editor{
		track: track,
		asm:   asm,
		order: slices.Clone(order),
		state: StateReordering,
	}
	if _, err := e.Timeline(ctx); err != nil {
		return nil, err
	}
	return e, nil
}

// Track はトラック名を返します
func (e *Editor) Track() string {
	return e.track
}

// State は現在の状態を返します
func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Generation は並び順の世代を返します
func (e *Editor) Generation() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generation
}

// Stale はタイムラインが現在の並び順より古いか判定します
func (e *Editor) Stale() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.staleLocked()
}

func (e *Editor) staleLocked() bool {
	return e.current == nil || e.current.generation != e.generation
}

// Order は現在の並び順を返します
func (e *Editor) Order() []sbf.Chunk {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.order)
}

// Suffixes は現在の並び順をサフィックスで返します
func (e *Editor) Suffixes() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return sbf.Suffixes(e.order)
}

// Move は from 番目のチャンクを to 番目に移動します
func (e *Editor) Move(from, to int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	moved, err := Move(e.order, from, to)
	if err != nil {
		return err
	}
	if from != to {
		e.reorderLocked(moved)
	}
	return nil
}

// MoveUp は i 番目のチャンクを1つ前に移動し、移動後の位置を返します
func (e *Editor) MoveUp(i int) (int, error) {
	if i == 0 {
		return 0, nil
	}
	if err := e.Move(i, i-1); err != nil {
		return i, err
	}
	return i - 1, nil
}

// MoveDown は i 番目のチャンクを1つ後ろに移動し、移動後の位置を返します
func (e *Editor) MoveDown(i int) (int, error) {
	e.mu.Lock()
	last := len(e.order) - 1
	e.mu.Unlock()
	if i == last {
		return i, nil
	}
	if err := e.Move(i, i+1); err != nil {
		return i, err
	}
	return i + 1, nil
}

// SetOrder はサフィックスの並びでトラック全体を並べ替えます
func (e *Editor) SetOrder(suffixes []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	ordered, err := ApplyOrder(e.order, suffixes)
	if err != nil {
		return err
	}
	e.reorderLocked(ordered)
	return nil
}

func (e *Editor) reorderLocked(order []sbf.Chunk) {
	e.order = order
	e.generation++
	e.state = StateReordering
}

// Timeline は現在の並び順のタイムラインを返します。古い場合は再計算します
func (e *Editor) Timeline(ctx context.Context) (*Timeline, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.timelineLocked(ctx)
}

func (e *Editor) timelineLocked(ctx context.Context) (*Timeline, error) {
	if !e.staleLocked() {
		return e.current, nil
	}
	t, err := e.asm.Assemble(ctx, e.order)
	if err != nil {
		return nil, err
	}
	t.generation = e.generation
	e.current = t
	if e.state == StateReordering {
		e.state = StateLoaded
	}
	return t, nil
}

// Playback は i 番目のチャンクの少し前から再生するためのバッファを返します
func (e *Editor) Playback(ctx context.Context, i int) (Playback, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i < 0 || i >= len(e.order) {
		return Playback{}, fmt.Errorf("%w: %d (len %d)", ErrIndexOutOfRange, i, len(e.order))
	}
	t, err := e.timelineLocked(ctx)
	if err != nil {
		return Playback{}, err
	}
	return Playback{Buffer: t.IntBuffer(), Start: t.SeekOffset(i), Chunk: i}, nil
}

// Commit は現在の並び順を store に保存します
func (e *Editor) Commit(store OrderStore) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := store.SetOrder(e.track, sbf.Suffixes(e.order)); err != nil {
		return err
	}
	e.state = StateCommitted
	return nil
}

// Export は最新のタイムラインをWAVとして w に書き出します
func (e *Editor) Export(ctx context.Context, w io.Writer) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, err := e.timelineLocked(ctx)
	if err != nil {
		return err
	}
	if err := t.WriteWAV(w); err != nil {
		return err
	}
	e.state = StateExported
	return nil
}
