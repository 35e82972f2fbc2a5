package config

import (
	"bytes"
	"flag"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		check func(t *testing.T, cfg *Config)
	}{
		{
			name: "既定値",
			args: nil,
			check: func(t *testing.T, cfg *Config) {
				require.Empty(t, cfg.GameDir)
				require.Equal(t, ".", cfg.OutputDir)
				require.Equal(t, DefaultReorderPath, cfg.ReorderPath)
				require.Equal(t, DefaultWorkers, cfg.Workers)
				require.False(t, cfg.DebugMode)
				require.Empty(t, cfg.Inputs)
			},
		},
		{
			name: "短いフラグ",
			args: []string{"-g", "/game", "-o", "/out", "-c", "order.json", "-w", "4", "-d", "-n", "-l"},
			check: func(t *testing.T, cfg *Config) {
				require.Equal(t, "/game", cfg.GameDir)
				require.Equal(t, "/out", cfg.OutputDir)
				require.Equal(t, "order.json", cfg.ReorderPath)
				require.Equal(t, 4, cfg.Workers)
				require.True(t, cfg.DebugMode)
				require.True(t, cfg.DryRun)
				require.True(t, cfg.ListOnly)
			},
		},
		{
			name: "長いフラグと位置引数",
			args: []string{"--output-dir", "/out", "--configured-only", "--clean", "a.sbf", "b.sbf"},
			check: func(t *testing.T, cfg *Config) {
				require.Equal(t, "/out", cfg.OutputDir)
				require.True(t, cfg.ConfiguredOnly)
				require.True(t, cfg.Clean)
				require.Equal(t, []string{"a.sbf", "b.sbf"}, cfg.Inputs)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ParseArgs(tt.args, flag.ContinueOnError)
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestParseArgs_UnknownFlag(t *testing.T) {
	_, err := ParseArgs([]string{"--no-such-flag"}, flag.ContinueOnError)
	require.Error(t, err)
}

func TestParseFlags(t *testing.T) {
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	os.Args = []string{"sbfexport", "--game-dir", "/game", "-w", "2"}
	cfg := ParseFlags()
	require.Equal(t, "/game", cfg.GameDir)
	require.Equal(t, 2, cfg.Workers)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{"正常", Config{Workers: 1, OutputDir: "."}, nil},
		{"ワーカー数0", Config{Workers: 0, OutputDir: "."}, ErrInvalidWorkers},
		{"出力先なし", Config{Workers: 1}, ErrNoOutputDir},
		{"一覧表示なら出力先は不要", Config{Workers: 1, ListOnly: true}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDebugLogger(t *testing.T) {
	var buf bytes.Buffer

	// デバッグモード有効
	logger := NewDebugLoggerWithOutput(true, &buf)
	require.True(t, logger.Enabled())
	logger.Printf("test message %d\n", 123)
	require.Contains(t, buf.String(), "test message 123")
	require.Contains(t, buf.String(), "level=debug")
	require.NotContains(t, buf.String(), "time=")

	// デバッグモード無効
	buf.Reset()
	logger = NewDebugLoggerWithOutput(false, &buf)
	logger.Printf("should not appear\n")
	require.Empty(t, buf.String())

	logger.Infof("info %s", "shown")
	logger.Warnf("warn %s\n", "shown")
	out := buf.String()
	require.Contains(t, out, "info shown")
	require.Contains(t, out, "level=warning")
	require.Equal(t, 2, strings.Count(out, "\n"))
}
