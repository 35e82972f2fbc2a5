package app

import (
	"errors"
	"fmt"

	"github.com/shiroemons/go-sbfmus/internal/mus/reorder"
	"github.com/shiroemons/go-sbfmus/pkg/sbf"
	"github.com/shiroemons/go-sbfmus/pkg/timeline"
)

// Library は開いたコンテナと並び順設定をまとめたもの
type Library struct {
	Containers []*sbf.Container
	Orders     *reorder.Config
	// Failed は開けなかったコンテナのパスとエラー
	Failed map[string]error
}

// Close はすべてのコンテナを閉じます
func (l *Library) Close() error {
	var errs []error
	for _, c := range l.Containers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Find はトラックを含む最初のコンテナとそのチャンクを返します
func (l *Library) Find(track string) (*sbf.Container, []sbf.Chunk, bool) {
	for _, c := range l.Containers {
		if chunks, ok := c.Track(track); ok {
			return c, chunks, true
		}
	}
	return nil, nil, false
}

// Ordered はトラックのチャンクを書き出し順に並べて返します
//
// 並び順が設定されていればそれに従います。設定がチャンクの集合と一致しない場合は
// コンテナ順のチャンクと timeline.ErrOrderMismatch を含むエラーを返します。
func (l *Library) Ordered(track string, chunks []sbf.Chunk) (ordered []sbf.Chunk, configured bool, err error) {
	suffixes, ok := l.Orders.Order(track)
	if !ok {
		return chunks, false, nil
	}
	ordered, err = timeline.ApplyOrder(chunks, suffixes)
	if err != nil {
		return chunks, false, fmt.Errorf("%s: %w", track, err)
	}
	return ordered, true, nil
}
