// Package interfaces はsbfexportとsbfmusで使用するインターフェースを定義します
package interfaces

import (
	"io"

	"github.com/shiroemons/go-sbfmus/pkg/sbf"
)

// FileSystem はファイルシステム操作のインターフェース
type FileSystem interface {
	FileExists(filename string) bool
	ReadFile(filename string) ([]byte, error)
	WriteFile(filename string, data []byte, perm uint32) error
	MkdirAll(path string, perm uint32) error
	RemoveAll(path string) error
	Create(name string) (io.WriteCloser, error)
	Remove(name string) error
	Stat(name string) (FileInfo, error)
	ReadDir(dirname string) ([]DirEntry, error)
	Getwd() (string, error)
}

// FileInfo はファイル情報のインターフェース
type FileInfo interface {
	Name() string
	IsDir() bool
	Size() int64
}

// DirEntry はディレクトリエントリのインターフェース
type DirEntry interface {
	Name() string
	IsDir() bool
}

// SBFFileFinder は.sbfファイルを検索するインターフェースです
type SBFFileFinder interface {
	Find(dir string) ([]string, error)
}

// ContainerOpener はSBFコンテナを開くインターフェース
type ContainerOpener interface {
	Open(path string) (*sbf.Container, error)
}

// OrderStore は確定した並び順を保存するインターフェース
type OrderStore interface {
	SetOrder(track string, suffixes []string) error
}

// Logger はログ出力のインターフェース
type Logger interface {
	Printf(format string, a ...any)
	Infof(format string, a ...any)
	Warnf(format string, a ...any)
}
