// Package config はsbfexportコマンドの設定管理を行います
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

const Version = "0.1.0"

const (
	// DefaultReorderPath は並び順設定ファイルの既定のパス
	DefaultReorderPath = "reordering_config.json"
	// DefaultWorkers は既定のワーカー数
	DefaultWorkers = 16
)

var (
	// ErrInvalidWorkers はワーカー数が不正な場合のエラー
	ErrInvalidWorkers = errors.New("ワーカー数は1以上を指定してください")

	// ErrNoOutputDir は出力先ディレクトリが指定されていない場合のエラー
	ErrNoOutputDir = errors.New("出力先ディレクトリを指定してください")
)

// Config はアプリケーションの設定を保持します
type Config struct {
	GameDir        string // 空なら作業ディレクトリ
	OutputDir      string
	ReorderPath    string
	Inputs         []string
	Workers        int
	ConfiguredOnly bool
	Clean          bool
	ListOnly       bool
	DebugMode      bool
	DryRun         bool
	ShowVersion    bool
}

// ParseFlags はコマンドライン引数を解析して設定を返します
func ParseFlags() *Config {
	cfg, err := ParseArgs(os.Args[1:], flag.ExitOnError)
	if err != nil {
		// ExitOnError なのでここには来ない
		fmt.Fprintf(os.Stderr, "エラー: %v\n", err)
		os.Exit(2)
	}
	return cfg
}

// ParseArgs は args を解析して設定を返します
func ParseArgs(args []string, handling flag.ErrorHandling) (*Config, error) {
	config := &Config{}
	fs := flag.NewFlagSet("sbfexport", handling)

	// カスタムUsage関数を設定（ダブルハイフン表示）
	fs.Usage = func() {
		out := fs.Output()
		fmt.Fprintf(out, "Usage of %s: [options] [file.sbf ...]\n", fs.Name())
		fmt.Fprintln(out, "  --game-dir string")
		fmt.Fprintln(out, "    \tdirectory containing menumus.sbf, gamemus.sbf and EXP1.sbf (default: current directory)")
		fmt.Fprintln(out, "  -g string\tgame directory (shorthand)")
		fmt.Fprintln(out, "  --output-dir string")
		fmt.Fprintln(out, "    \toutput directory; wav files are written to <dir>/wav (default \".\")")
		fmt.Fprintln(out, "  -o string\toutput directory (shorthand)")
		fmt.Fprintln(out, "  --config string")
		fmt.Fprintf(out, "    \tchunk reordering config (default %q)\n", DefaultReorderPath)
		fmt.Fprintln(out, "  -c string\tchunk reordering config (shorthand)")
		fmt.Fprintln(out, "  --workers int")
		fmt.Fprintf(out, "    \tnumber of tracks exported in parallel (default %d)\n", DefaultWorkers)
		fmt.Fprintln(out, "  -w int\tnumber of workers (shorthand)")
		fmt.Fprintln(out, "  --configured-only")
		fmt.Fprintln(out, "    \texport only tracks listed in the reordering config")
		fmt.Fprintln(out, "  --clean")
		fmt.Fprintln(out, "    \tremove <output-dir>/wav before exporting")
		fmt.Fprintln(out, "  --list")
		fmt.Fprintln(out, "    \tlist tracks and chunks without exporting")
		fmt.Fprintln(out, "  -l\tlist tracks and chunks (shorthand)")
		fmt.Fprintln(out, "  --debug")
		fmt.Fprintln(out, "    \tenable debug output")
		fmt.Fprintln(out, "  -d\tenable debug output (shorthand)")
		fmt.Fprintln(out, "  --dry-run")
		fmt.Fprintln(out, "    \tperform a dry run without writing output files")
		fmt.Fprintln(out, "  -n\tperform a dry run without writing output files (shorthand)")
		fmt.Fprintln(out, "  --version")
		fmt.Fprintln(out, "    \tshow version information")
		fmt.Fprintln(out, "  -v\tshow version information (shorthand)")
	}

	// 入力ディレクトリ
	fs.StringVar(&config.GameDir, "game-dir", "", "directory containing the .sbf files")
	fs.StringVar(&config.GameDir, "g", "", "directory containing the .sbf files (shorthand)")

	// 出力ディレクトリ
	fs.StringVar(&config.OutputDir, "output-dir", ".", "output directory")
	fs.StringVar(&config.OutputDir, "o", ".", "output directory (shorthand)")

	// 並び順設定
	fs.StringVar(&config.ReorderPath, "config", DefaultReorderPath, "chunk reordering config")
	fs.StringVar(&config.ReorderPath, "c", DefaultReorderPath, "chunk reordering config (shorthand)")

	// 並列数
	fs.IntVar(&config.Workers, "workers", DefaultWorkers, "number of tracks exported in parallel")
	fs.IntVar(&config.Workers, "w", DefaultWorkers, "number of tracks exported in parallel (shorthand)")

	fs.BoolVar(&config.ConfiguredOnly, "configured-only", false, "export only configured tracks")
	fs.BoolVar(&config.Clean, "clean", false, "remove the wav directory before exporting")

	// 一覧表示
	fs.BoolVar(&config.ListOnly, "list", false, "list tracks and chunks")
	fs.BoolVar(&config.ListOnly, "l", false, "list tracks and chunks (shorthand)")

	// デバッグモード
	fs.BoolVar(&config.DebugMode, "debug", false, "enable debug output")
	fs.BoolVar(&config.DebugMode, "d", false, "enable debug output (shorthand)")

	// ドライランモード
	fs.BoolVar(&config.DryRun, "dry-run", false, "perform a dry run without writing output files")
	fs.BoolVar(&config.DryRun, "n", false, "perform a dry run without writing output files (shorthand)")

	// バージョン表示
	fs.BoolVar(&config.ShowVersion, "version", false, "show version information")
	fs.BoolVar(&config.ShowVersion, "v", false, "show version information (shorthand)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	config.Inputs = fs.Args()

	return config, nil
}

// Validate は設定値を検証します
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, c.Workers)
	}
	if !c.ListOnly && strings.TrimSpace(c.OutputDir) == "" {
		return ErrNoOutputDir
	}
	return nil
}

// HandleVersion はバージョン表示を処理します
func HandleVersion(showVersion bool) {
	if showVersion {
		fmt.Printf("sbfexport version %s\n", Version)
		os.Exit(0)
	}
}

// DebugLogger はログ出力を管理します
//
// Printf はデバッグモードが有効な場合のみ出力し、Infof と Warnf は常に出力します。
type DebugLogger struct {
	enabled bool
	log     *logrus.Logger
}

// NewDebugLogger は標準エラー出力に書き込むDebugLoggerを作成します
func NewDebugLogger(enabled bool) *DebugLogger {
	return NewDebugLoggerWithOutput(enabled, os.Stderr)
}

// NewDebugLoggerWithOutput は w に書き込むDebugLoggerを作成します
func NewDebugLoggerWithOutput(enabled bool, w io.Writer) *DebugLogger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
		DisableQuote:     true,
	})
	if enabled {
		l.SetLevel(logrus.DebugLevel)
	} else {
		l.SetLevel(logrus.InfoLevel)
	}
	return &DebugLogger{enabled: enabled, log: l}
}

// Enabled はデバッグモードが有効か返します
func (d *DebugLogger) Enabled() bool {
	return d.enabled
}

// Printf はデバッグモードが有効な場合のみメッセージを表示します
func (d *DebugLogger) Printf(format string, a ...any) {
	if d.enabled {
		d.log.Debug(message(format, a...))
	}
}

// Infof は情報メッセージを表示します
func (d *DebugLogger) Infof(format string, a ...any) {
	d.log.Info(message(format, a...))
}

// Warnf は警告メッセージを表示します
func (d *DebugLogger) Warnf(format string, a ...any) {
	d.log.Warn(message(format, a...))
}

// 末尾の改行はlogrusが付けるので取り除く
func message(format string, a ...any) string {
	return strings.TrimRight(fmt.Sprintf(format, a...), "\n")
}
