package app

import (
	"fmt"
	"io"
	"time"

	"github.com/shiroemons/go-sbfmus/pkg/sbf"
)

const (
	listRule      = "--------------------------------------------------------------------"
	listErrorMark = "エラー"
)

// List はコンテナ内のトラックとチャンクの一覧を表示します
func (a *App) List(lib *Library) error {
	for _, c := range lib.Containers {
		if err := ListContainer(a.stdout, c, lib); err != nil {
			return err
		}
	}
	return nil
}

// ListContainer はコンテナのトラックを設定済みの並び順で表示します
func ListContainer(w io.Writer, c *sbf.Container, lib *Library) error {
	fmt.Fprintf(w, "%s 内のトラック一覧 (%d チャンク):\n", c.Name(), c.NumChunks())
	fmt.Fprintln(w, listRule)
	fmt.Fprintf(w, "%-10s %-8s %10s %10s %6s %10s\n", "トラック", "サフィックス", "開始位置", "サイズ", "ブロック", "長さ")
	fmt.Fprintln(w, listRule)

	if c.NumChunks() == 0 {
		fmt.Fprintln(w, "チャンクがありません")
		fmt.Fprintln(w, listRule)
		return nil
	}

	for _, track := range c.TrackNames() {
		chunks, _ := c.Track(track)
		if lib != nil {
			// 表示だけなので設定との不一致はコンテナ順で表示する
			chunks, _, _ = lib.Ordered(track, chunks)
		}
		var total time.Duration
		broken := false
		for _, chunk := range chunks {
			d, err := chunkDuration(c, chunk)
			if err != nil {
				// 読めないチャンクがあってもそのトラックだけを失敗扱いにする
				broken = true
				fmt.Fprintf(w, "%-10q %-8q %10d %10d %6d %10s\n",
					chunk.Ident, chunk.Suffix, chunk.Start, chunk.Size, chunk.Blocks(), listErrorMark)
				fmt.Fprintf(w, "  %v\n", err)
				continue
			}
			total += d
			fmt.Fprintf(w, "%-10q %-8q %10d %10d %6d %10s\n",
				chunk.Ident, chunk.Suffix, chunk.Start, chunk.Size, chunk.Blocks(), formatDuration(d))
		}
		totalText := formatDuration(total)
		if broken {
			totalText = listErrorMark
		}
		fmt.Fprintf(w, "%-10q %-8s %10s %10s %6d %10s\n", track, "合計", "", "", len(chunks), totalText)
	}
	fmt.Fprintln(w, listRule)
	return nil
}

// chunkDuration はデコードせずにチャンクの再生時間を求めます
func chunkDuration(c *sbf.Container, chunk sbf.Chunk) (time.Duration, error) {
	payload, err := c.Payload(chunk)
	if err != nil {
		return 0, err
	}
	n, err := sbf.SampleCount(payload)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", chunk.Name(), err)
	}
	return sbf.SampleDuration(n), nil
}

func formatDuration(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}
