// Package mocks はテスト用のモック実装を提供します
package mocks

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"

	"github.com/shiroemons/go-sbfmus/internal/mus/interfaces"
)

// MockFileSystem はテスト用のファイルシステムモック
//
// 並列の書き出しから使われるため、操作はすべてロックを取ります。
type MockFileSystem struct {
	mu sync.Mutex

	Files      map[string][]byte
	Dirs       map[string]bool
	WorkingDir string
	Error      error

	// CreateErrors はパスごとにCreateが返すエラー
	CreateErrors map[string]error
	// Removed はRemoveまたはRemoveAllで削除したパス
	Removed []string
}

// NewMockFileSystem は新しいMockFileSystemを作成します
func NewMockFileSystem() *MockFileSystem {
	return &MockFileSystem{
		Files:        make(map[string][]byte),
		Dirs:         make(map[string]bool),
		WorkingDir:   "/test/dir",
		CreateErrors: make(map[string]error),
	}
}

// File はファイルの内容を返します
func (m *MockFileSystem) File(name string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.Files[name]
	return data, ok
}

// FileExists はファイルが存在するか確認します
func (m *MockFileSystem) FileExists(filename string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, exists := m.Files[filename]
	return exists
}

// ReadFile はファイルを読み込みます
func (m *MockFileSystem) ReadFile(filename string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Error != nil {
		return nil, m.Error
	}
	data, exists := m.Files[filename]
	if !exists {
		return nil, fs.ErrNotExist
	}
	return bytes.Clone(data), nil
}

// WriteFile はファイルを書き込みます
func (m *MockFileSystem) WriteFile(filename string, data []byte, perm uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Error != nil {
		return m.Error
	}
	m.Files[filename] = bytes.Clone(data)
	return nil
}

// MkdirAll はディレクトリを作成します
func (m *MockFileSystem) MkdirAll(path string, perm uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Error != nil {
		return m.Error
	}
	m.Dirs[path] = true
	return nil
}

// RemoveAll はパス配下のファイルとディレクトリを削除します
func (m *MockFileSystem) RemoveAll(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Error != nil {
		return m.Error
	}
	prefix := path + string(filepath.Separator)
	for name := range m.Files {
		if name == path || strings.HasPrefix(name, prefix) {
			delete(m.Files, name)
		}
	}
	for name := range m.Dirs {
		if name == path || strings.HasPrefix(name, prefix) {
			delete(m.Dirs, name)
		}
	}
	m.Removed = append(m.Removed, path)
	return nil
}

// Create はファイルを作成します。Closeした時点で内容がFilesに反映されます
func (m *MockFileSystem) Create(name string) (io.WriteCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Error != nil {
		return nil, m.Error
	}
	if err, ok := m.CreateErrors[name]; ok {
		return nil, err
	}
	m.Files[name] = nil
	return &mockFile{fs: m, name: name}, nil
}

// Remove はファイルを削除します
func (m *MockFileSystem) Remove(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Files[name]; !ok {
		return fs.ErrNotExist
	}
	delete(m.Files, name)
	m.Removed = append(m.Removed, name)
	return nil
}

// Stat はファイル情報を取得します
func (m *MockFileSystem) Stat(name string) (interfaces.FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Error != nil {
		return nil, m.Error
	}
	if data, exists := m.Files[name]; exists {
		return &MockFileInfo{name: filepath.Base(name), size: int64(len(data))}, nil
	}
	if _, exists := m.Dirs[name]; exists {
		return &MockFileInfo{name: filepath.Base(name), isDir: true}, nil
	}
	return nil, fs.ErrNotExist
}

// ReadDir はディレクトリを読み込みます
func (m *MockFileSystem) ReadDir(dirname string) ([]interfaces.DirEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Error != nil {
		return nil, m.Error
	}

	// ディレクトリが明示的に設定されていない場合でも、
	// ファイルが存在する場合はそのディレクトリがあるものとみなす
	if !m.Dirs[dirname] {
		hasFiles := false
		for path := range m.Files {
			if filepath.Dir(path) == dirname {
				hasFiles = true
				break
			}
		}
		if !hasFiles {
			return nil, errors.New("directory not found")
		}
	}

	var entries []interfaces.DirEntry
	for path := range m.Files {
		if filepath.Dir(path) == dirname {
			entries = append(entries, &MockDirEntry{name: filepath.Base(path)})
		}
	}
	for path := range m.Dirs {
		if filepath.Dir(path) == dirname && path != dirname {
			entries = append(entries, &MockDirEntry{name: filepath.Base(path), isDir: true})
		}
	}
	return entries, nil
}

// Getwd は現在の作業ディレクトリを返します
func (m *MockFileSystem) Getwd() (string, error) {
	if m.Error != nil {
		return "", m.Error
	}
	return m.WorkingDir, nil
}

type mockFile struct {
	fs   *MockFileSystem
	name string
	buf  bytes.Buffer
}

func (f *mockFile) Write(p []byte) (int, error) {
	return f.buf.Write(p)
}

func (f *mockFile) Close() error {
	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()
	if _, ok := f.fs.Files[f.name]; ok {
		f.fs.Files[f.name] = bytes.Clone(f.buf.Bytes())
	}
	return nil
}

// MockFileInfo はテスト用のFileInfo実装
type MockFileInfo struct {
	name  string
	isDir bool
	size  int64
}

// Name はファイル名を返します
func (fi *MockFileInfo) Name() string {
	return fi.name
}

// IsDir はディレクトリかどうかを返します
func (fi *MockFileInfo) IsDir() bool {
	return fi.isDir
}

// Size はファイルサイズを返します
func (fi *MockFileInfo) Size() int64 {
	return fi.size
}

// MockDirEntry はテスト用のDirEntry実装
type MockDirEntry struct {
	name  string
	isDir bool
}

// Name はエントリ名を返します
func (de *MockDirEntry) Name() string {
	return de.name
}

// IsDir はディレクトリかどうかを返します
func (de *MockDirEntry) IsDir() bool {
	return de.isDir
}

var _ interfaces.FileSystem = (*MockFileSystem)(nil)
