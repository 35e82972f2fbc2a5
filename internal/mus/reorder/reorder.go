// Package reorder はトラックごとのチャンク並び順設定を管理します
//
// 設定はトラック名からサフィックスの並びへの対応をJSONで保存したものです。
//
//	{
//	  "boss": ["2", "1", "3"]
//	}
package reorder

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"slices"
	"sync"

	"github.com/shiroemons/go-sbfmus/internal/mus/interfaces"
)

// ErrSaveConfig は並び順設定の保存に失敗した場合のエラー
var ErrSaveConfig = errors.New("並び順設定の保存に失敗しました")

// ConfigError は保存済みの並び順設定が壊れている場合のエラー
//
// Load はこのエラーと一緒に空の設定を返すので、呼び出し側は警告して処理を続けられます。
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("並び順設定 %s を読み込めませんでした: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Config はトラックごとの並び順設定
type Config struct {
	mu     sync.Mutex
	fs     interfaces.FileSystem
	path   string
	orders map[string][]string
}

// New は空の設定を作成します
func New(fsys interfaces.FileSystem, path string) *Config {
	return &Config{fs: fsys, path: path, orders: make(map[string][]string)}
}

// Load は path から設定を読み込みます
//
// ファイルがない場合や空の場合は空の設定を返します。
// 内容が壊れている場合は空の設定と *ConfigError を返します。
func Load(fsys interfaces.FileSystem, path string) (*Config, error) {
	c := New(fsys, path)

	data, err := fsys.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return c, &ConfigError{Path: path, Err: err}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return c, nil
	}

	var orders map[string][]string
	if err := json.Unmarshal(data, &orders); err != nil {
		return c, &ConfigError{Path: path, Err: err}
	}
	for track, suffixes := range orders {
		if suffixes == nil {
			suffixes = []string{}
		}
		c.orders[track] = suffixes
	}
	return c, nil
}

// Path は設定ファイルのパスを返します
func (c *Config) Path() string {
	return c.path
}

// Len は設定済みのトラック数を返します
func (c *Config) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.orders)
}

// Order はトラックの並び順を返します
func (c *Config) Order(track string) ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	suffixes, ok := c.orders[track]
	return slices.Clone(suffixes), ok
}

// Tracks は設定済みのトラック名を名前順で返します
func (c *Config) Tracks() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Sorted(maps.Keys(c.orders))
}

// EnsureDefault はトラックが未設定なら suffixes を既定の並び順として登録します
//
// 登録した場合は true を返します。保存はしません。
func (c *Config) EnsureDefault(track string, suffixes []string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.orders[track]; ok {
		return false
	}
	c.orders[track] = slices.Clone(suffixes)
	return true
}

// SetOrder はトラックの並び順を更新し、設定ファイル全体を書き直します
func (c *Config) SetOrder(track string, suffixes []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev, had := c.orders[track]
	c.orders[track] = slices.Clone(suffixes)
	if err := c.saveLocked(); err != nil {
		if had {
			c.orders[track] = prev
		} else {
			delete(c.orders, track)
		}
		return err
	}
	return nil
}

// Save は設定ファイル全体を書き直します
func (c *Config) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveLocked()
}

func (c *Config) saveLocked() error {
	data, err := json.MarshalIndent(c.orders, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSaveConfig, err)
	}
	if err := c.fs.WriteFile(c.path, data, 0644); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSaveConfig, c.path, err)
	}
	return nil
}

var _ interfaces.OrderStore = (*Config)(nil)
