// Package app はアプリケーションのメインロジックを実装します
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/shiroemons/go-sbfmus/internal/mus/config"
	"github.com/shiroemons/go-sbfmus/internal/mus/export"
	"github.com/shiroemons/go-sbfmus/internal/mus/fileutil"
	"github.com/shiroemons/go-sbfmus/internal/mus/interfaces"
	"github.com/shiroemons/go-sbfmus/internal/mus/reorder"
	"github.com/shiroemons/go-sbfmus/pkg/sbf"
	"github.com/shiroemons/go-sbfmus/pkg/timeline"
)

// App はアプリケーションのメインロジックを管理します
type App struct {
	config *config.Config
	logger *config.DebugLogger
	fs     interfaces.FileSystem
	finder interfaces.SBFFileFinder
	opener interfaces.ContainerOpener
	stdout io.Writer
}

// Options はAppの設定オプション
type Options struct {
	FileSystem    interfaces.FileSystem
	SBFFileFinder interfaces.SBFFileFinder
	Opener        interfaces.ContainerOpener
	Logger        *config.DebugLogger
	Stdout        io.Writer
}

// New は新しいAppを作成します
func New(cfg *config.Config) *App {
	return NewWithOptions(cfg, Options{})
}

// NewWithOptions は新しいAppをオプション付きで作成します
func NewWithOptions(cfg *config.Config, opts Options) *App {
	logger := opts.Logger
	if logger == nil {
		logger = config.NewDebugLogger(cfg.DebugMode)
	}

	// デフォルトのファイルシステムを設定
	fs := opts.FileSystem
	if fs == nil {
		fs = fileutil.NewOSFileSystem()
	}

	finder := opts.SBFFileFinder
	if finder == nil {
		finder = fileutil.NewSBFFileFinderWithFS(fs)
	}

	opener := opts.Opener
	if opener == nil {
		opener = fileOpener{}
	}

	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	return &App{
		config: cfg,
		logger: logger,
		fs:     fs,
		finder: finder,
		opener: opener,
		stdout: stdout,
	}
}

// fileOpener はファイルをマップしてコンテナを開きます
type fileOpener struct{}

func (fileOpener) Open(path string) (*sbf.Container, error) {
	return sbf.Open(path)
}

// Logger はAppが使うロガーを返します
func (a *App) Logger() *config.DebugLogger {
	return a.logger
}

// Run はアプリケーションを実行します
func (a *App) Run(ctx context.Context) error {
	lib, err := a.Load(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := lib.Close(); err != nil {
			a.logger.Warnf("コンテナを閉じる際にエラーが発生しました: %v", err)
		}
	}()

	if a.config.ListOnly {
		return a.List(lib)
	}

	if err := a.Export(ctx, lib); err != nil {
		return err
	}
	if len(lib.Failed) > 0 {
		return fmt.Errorf("%w: %d 個", ErrOpenContainer, len(lib.Failed))
	}
	return nil
}

// Load はコンテナと並び順設定を読み込みます
//
// 開けないコンテナは警告してスキップします。1つも開けない場合はエラーです。
func (a *App) Load(ctx context.Context) (*Library, error) {
	// コンテキストのキャンセルチェック
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	paths := a.config.Inputs
	if len(paths) == 0 {
		dir := a.config.GameDir
		if dir == "" {
			// 未指定なら作業ディレクトリを探す
			wd, err := a.fs.Getwd()
			if err != nil {
				return nil, fmt.Errorf("作業ディレクトリを取得できません: %w", err)
			}
			dir = wd
		}
		a.logger.Printf("SBFファイルを検索: %s", dir)
		found, err := a.finder.Find(dir)
		if err != nil {
			return nil, err
		}
		paths = found
	}

	orders, err := reorder.Load(a.fs, a.config.ReorderPath)
	if err != nil {
		// 壊れた設定は空の設定として扱う
		a.logger.Warnf("%v。既定の並び順を使用します", err)
	}
	a.logger.Printf("並び順設定: %s (%d トラック)", a.config.ReorderPath, orders.Len())

	lib := &Library{Orders: orders, Failed: make(map[string]error)}
	for _, path := range paths {
		c, err := a.opener.Open(path)
		if err != nil {
			a.logger.Warnf("%s を開けませんでした: %v", path, err)
			lib.Failed[path] = err
			continue
		}
		a.logger.Printf("%s: %d バイト, %d チャンク, %d トラック", c.Name(), c.Size(), c.NumChunks(), len(c.TrackNames()))
		lib.Containers = append(lib.Containers, c)
	}

	if len(lib.Containers) == 0 {
		errs := make([]error, 0, len(lib.Failed))
		for _, path := range paths {
			if err, ok := lib.Failed[path]; ok {
				errs = append(errs, err)
			}
		}
		return nil, fmt.Errorf("%w: %w", ErrNoContainers, errors.Join(errs...))
	}
	return lib, nil
}

// Plan は書き出しジョブの一覧
type Plan struct {
	Jobs []export.Job
	// Duplicates は先に見つかったコンテナを優先してスキップしたトラック
	Duplicates []string
	// Missing は設定にあるがどのコンテナにもないトラック
	Missing []string
}

// PlanExport は wavDir に書き出すジョブを作成します
func (a *App) PlanExport(lib *Library, wavDir string) Plan {
	var plan Plan
	seen := make(map[string]bool)
	for _, c := range lib.Containers {
		for _, track := range c.TrackNames() {
			if seen[track] {
				plan.Duplicates = append(plan.Duplicates, track)
				continue
			}
			seen[track] = true

			chunks, _ := c.Track(track)
			ordered, configured, err := lib.Ordered(track, chunks)
			if err != nil {
				a.logger.Warnf("並び順の設定を無視します: %v", err)
			}
			if a.config.ConfiguredOnly && !configured && err == nil {
				continue
			}
			plan.Jobs = append(plan.Jobs, export.Job{
				Track:   track,
				Chunks:  ordered,
				Source:  c,
				OutPath: filepath.Join(wavDir, fileutil.TrackFilename(track)),
			})
		}
	}

	for _, track := range lib.Orders.Tracks() {
		if !seen[track] {
			plan.Missing = append(plan.Missing, track)
		}
	}
	return plan
}

// Export はすべてのトラックをWAVとして書き出します
func (a *App) Export(ctx context.Context, lib *Library) error {
	wavDir := fileutil.WavDir(a.config.OutputDir)
	if !a.config.DryRun {
		dir, err := fileutil.PrepareOutputDir(a.fs, a.config.OutputDir, a.config.Clean)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrPrepareOutput, err)
		}
		wavDir = dir
	}

	plan := a.PlanExport(lib, wavDir)
	for _, track := range plan.Missing {
		a.logger.Warnf("設定にあるトラック %s はどのコンテナにもありません", track)
	}
	for _, track := range slices.Compact(slices.Sorted(slices.Values(plan.Duplicates))) {
		a.logger.Printf("トラック %s は複数のコンテナにあります。最初のコンテナを使用します", track)
	}

	exporter := export.NewExporter(a.fs, a.logger, export.Options{
		Workers: a.config.Workers,
		DryRun:  a.config.DryRun,
	})
	results, err := exporter.Run(ctx, plan.Jobs)

	var total int64
	ok := 0
	for _, r := range results {
		if r.Err == nil {
			ok++
			total += r.Bytes
		}
	}
	if a.config.DryRun {
		a.logger.Infof("ドライラン: %d トラック, 合計 %d バイトを %s に書き出す予定です", ok, total, wavDir)
	} else {
		a.logger.Infof("%d/%d トラックを %s に書き出しました (%d バイト)", ok, len(results), wavDir, total)
	}
	return err
}

// OpenEditor はトラックの並び替えを行うEditorを作成します
//
// トラックが設定にない場合はコンテナ順を既定の並び順として登録します。
func (a *App) OpenEditor(ctx context.Context, lib *Library, track string) (*timeline.Editor, error) {
	c, chunks, ok := lib.Find(track)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTrackNotFound, track)
	}

	ordered, _, err := lib.Ordered(track, chunks)
	if err != nil {
		a.logger.Warnf("並び順の設定を無視します: %v", err)
	}
	if lib.Orders.EnsureDefault(track, sbf.Suffixes(ordered)) {
		a.logger.Printf("トラック %s の並び順をコンテナ順で初期化しました", track)
	}

	return timeline.NewEditor(ctx, track, ordered, timeline.NewAssembler(c, a.config.Workers))
}
