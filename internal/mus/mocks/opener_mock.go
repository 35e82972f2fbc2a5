package mocks

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"

	"github.com/shiroemons/go-sbfmus/pkg/sbf"
)

// MockOpener はメモリ上のバイト列からコンテナを開くモック
type MockOpener struct {
	mu sync.Mutex

	Containers map[string][]byte
	// Opened は開いたコンテナ
	Opened []*sbf.Container
}

// NewMockOpener は新しいMockOpenerを作成します
func NewMockOpener() *MockOpener {
	return &MockOpener{Containers: make(map[string][]byte)}
}

// Open はパスに対応するバイト列からコンテナを作成します
func (o *MockOpener) Open(path string) (*sbf.Container, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	data, ok := o.Containers[path]
	if !ok {
		return nil, &sbf.IOError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}
	c, err := sbf.FromBytes(filepath.Base(path), data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	o.Opened = append(o.Opened, c)
	return c, nil
}

// MockSBFFileFinder は決まったパスを返すモック
type MockSBFFileFinder struct {
	Paths []string
	Error error
	// Dirs はFindに渡されたディレクトリ
	Dirs []string
}

// Find は設定されたパスを返します
func (f *MockSBFFileFinder) Find(dir string) ([]string, error) {
	f.Dirs = append(f.Dirs, dir)
	if f.Error != nil {
		return nil, f.Error
	}
	return f.Paths, nil
}
