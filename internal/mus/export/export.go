// Package export はトラックをWAVファイルとして並列に書き出します
package export

import (
	"bufio"
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/shiroemons/go-sbfmus/internal/mus/interfaces"
	"github.com/shiroemons/go-sbfmus/pkg/sbf"
	"github.com/shiroemons/go-sbfmus/pkg/timeline"
	"github.com/shiroemons/go-sbfmus/pkg/wav"
)

const writeBufferSize = 64 * 1024

// Source はチャンクの内容を提供します。*sbf.Container が実装します
type Source interface {
	timeline.Decoder
	Payload(chunk sbf.Chunk) ([]byte, error)
}

// Job は1トラック分の書き出しジョブ
type Job struct {
	Track   string
	Chunks  []sbf.Chunk // 書き出す順序
	Source  Source
	OutPath string
}

// Result は1トラック分の書き出し結果
type Result struct {
	Track   string
	OutPath string
	Samples int
	Bytes   int64
	Err     error
}

// Options はExporterの設定
type Options struct {
	Workers int
	DryRun  bool
	// ProgressInterval は進捗ログの最小間隔。0の場合は1秒
	ProgressInterval time.Duration
}

// Exporter はトラックの書き出しを行います
type Exporter struct {
	fs      interfaces.FileSystem
	logger  interfaces.Logger
	workers int
	dryRun  bool

	progress rate.Sometimes
}

// NewExporter は新しいExporterを作成します
func NewExporter(fs interfaces.FileSystem, logger interfaces.Logger, opts Options) *Exporter {
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}
	interval := opts.ProgressInterval
	if interval <= 0 {
		interval = time.Second
	}
	return &Exporter{
		fs:       fs,
		logger:   logger,
		workers:  workers,
		dryRun:   opts.DryRun,
		progress: rate.Sometimes{Interval: interval},
	}
}

// Run は jobs を並列に書き出し、ジョブと同じ順序で結果を返します
//
// 1つのジョブが失敗しても他のジョブは続行し、失敗があれば ErrExportFailed を返します。
// ctx がキャンセルされた場合、未着手のジョブは ctx.Err() で失敗します。
func (e *Exporter) Run(ctx context.Context, jobs []Job) ([]Result, error) {
	results := make([]Result, len(jobs))
	indexes := make(chan int, e.workers*2)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		done int
	)

	// ワーカーを起動
	for i := 0; i < e.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range indexes {
				res := e.exportOne(ctx, jobs[idx])
				results[idx] = res

				mu.Lock()
				done++
				n := done
				mu.Unlock()

				if res.Err != nil {
					e.logger.Warnf("書き出しに失敗しました: %s - %v", res.Track, res.Err)
					continue
				}
				e.logger.Printf("書き出しました: %s (%d サンプル)", res.OutPath, res.Samples)
				e.progress.Do(func() {
					e.logger.Infof("進捗: %d/%d トラック", n, len(jobs))
				})
			}
		}()
	}

	// 全ジョブを投入
	for i := range jobs {
		indexes <- i
	}
	close(indexes)
	wg.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		return results, fmt.Errorf("%w: %d/%d トラック", ErrExportFailed, failed, len(jobs))
	}
	return results, nil
}

func (e *Exporter) exportOne(ctx context.Context, job Job) Result {
	res := Result{Track: job.Track, OutPath: job.OutPath}
	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	if e.dryRun {
		n, err := countSamples(job)
		if err != nil {
			res.Err = err
			return res
		}
		res.Samples = n
		res.Bytes = wav.EncodedSize(n)
		return res
	}

	// トラック単位で並列化しているのでチャンクのデコードは逐次
	tl, err := timeline.Assemble(ctx, job.Source, job.Chunks, 1)
	if err != nil {
		res.Err = err
		return res
	}
	res.Samples = tl.Samples()
	res.Bytes = wav.EncodedSize(tl.Samples())

	if err := e.writeFile(job.OutPath, tl); err != nil {
		res.Err = err
	}
	return res
}

// writeFile はタイムラインを path に書き出します。失敗した場合はファイルを削除します
func (e *Exporter) writeFile(path string, tl *timeline.Timeline) error {
	f, err := e.fs.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrCreateFile, path, err)
	}

	// バッファ付きライターを使用
	w := bufio.NewWriterSize(f, writeBufferSize)
	writeErr := tl.WriteWAV(w)
	if writeErr == nil {
		writeErr = w.Flush()
	}
	closeErr := f.Close()

	if writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		_ = e.fs.Remove(path)
		return fmt.Errorf("%w: %s: %w", ErrWriteFile, path, writeErr)
	}
	return nil
}

// countSamples はデコードせずにトラックのサンプル数を数えます
func countSamples(job Job) (int, error) {
	total := 0
	for _, c := range job.Chunks {
		payload, err := job.Source.Payload(c)
		if err != nil {
			return 0, err
		}
		n, err := sbf.SampleCount(payload)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", c.Name(), err)
		}
		total += n
	}
	return total, nil
}
