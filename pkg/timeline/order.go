package timeline

import (
	"errors"
	"fmt"
	"slices"

	"github.com/shiroemons/go-sbfmus/pkg/sbf"
)

var (
	// ErrOrderMismatch は指定された順序がトラックのチャンク集合と一致しない場合のエラー
	ErrOrderMismatch = errors.New("order does not match track chunks")

	// ErrIndexOutOfRange はチャンク番号が範囲外の場合のエラー
	ErrIndexOutOfRange = errors.New("chunk index out of range")
)

// ApplyOrder はサフィックスの並びに従ってチャンクを並べ替えた新しいスライスを返します
//
// suffixes はトラックの全チャンクをちょうど一度ずつ含む必要があります。
func ApplyOrder(chunks []sbf.Chunk, suffixes []string) ([]sbf.Chunk, error) {
	if len(suffixes) != len(chunks) {
		return nil, fmt.Errorf("%w: %d suffixes for %d chunks", ErrOrderMismatch, len(suffixes), len(chunks))
	}

	used := make([]bool, len(chunks))
	ordered := make([]sbf.Chunk, 0, len(chunks))
	for _, suffix := range suffixes {
		found := -1
		for i, chunk := range chunks {
			if !used[i] && chunk.Suffix == suffix {
				found = i
				break
			}
		}
		if found < 0 {
			return nil, fmt.Errorf("%w: unknown or repeated suffix %q", ErrOrderMismatch, suffix)
		}
		used[found] = true
		ordered = append(ordered, chunks[found])
	}
	return ordered, nil
}

// Move は from 番目のチャンクを取り出して to 番目に挿入した新しいスライスを返します
func Move(chunks []sbf.Chunk, from, to int) ([]sbf.Chunk, error) {
	if from < 0 || from >= len(chunks) || to < 0 || to >= len(chunks) {
		return nil, fmt.Errorf("%w: move %d -> %d (len %d)", ErrIndexOutOfRange, from, to, len(chunks))
	}
	moved := slices.Delete(slices.Clone(chunks), from, from+1)
	return slices.Insert(moved, to, chunks[from]), nil
}
