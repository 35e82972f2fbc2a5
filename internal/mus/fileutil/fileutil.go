// Package fileutil はファイル操作のユーティリティ関数を提供します
package fileutil

import (
	"fmt"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/shiroemons/go-sbfmus/internal/mus/interfaces"
)

// WavDirName は書き出し先ディレクトリの下に作るWAV用ディレクトリ名
const WavDirName = "wav"

var (
	// DefaultSBFFiles はゲームディレクトリで最初に探すコンテナ
	DefaultSBFFiles = []string{"menumus.sbf", "gamemus.sbf", "EXP1.sbf"}

	// SBFFilePattern は .sbf ファイルのパターン
	SBFFilePattern = regexp.MustCompile(`(?i)\.sbf$`)

	// ファイル名に使えない文字
	unsafeFilenameChars = regexp.MustCompile(`[^0-9a-zA-Z\.,:%\-_#]+`)
)

// TrackFilename はトラック名からWAVファイル名を生成します
func TrackFilename(track string) string {
	name := unsafeFilenameChars.ReplaceAllString(track, "_")
	name = strings.Trim(name, ".")
	if name == "" {
		name = "_"
	}
	return name + ".wav"
}

// WavDir は出力ディレクトリ配下のWAVディレクトリのパスを返します
func WavDir(outputDir string) string {
	return filepath.Join(outputDir, WavDirName)
}

// PrepareOutputDir はWAVディレクトリを作成します。clean の場合は先に削除します
func PrepareOutputDir(fs interfaces.FileSystem, outputDir string, clean bool) (string, error) {
	dir := WavDir(outputDir)
	if clean {
		if err := fs.RemoveAll(dir); err != nil {
			return "", fmt.Errorf("%w: %s: %w", ErrRemoveDirectory, dir, err)
		}
	}
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrCreateDirectory, dir, err)
	}
	return dir, nil
}

// SBFFileFinderWithFS は.sbfファイルの検索を行います（FileSystemを使用）
type SBFFileFinderWithFS struct {
	fs interfaces.FileSystem
}

// NewSBFFileFinderWithFS は新しいSBFFileFinderWithFSを作成します
func NewSBFFileFinderWithFS(fs interfaces.FileSystem) *SBFFileFinderWithFS {
	return &SBFFileFinderWithFS{fs: fs}
}

// Find は dir 内の.sbfファイルを検索します
//
// 既定のコンテナ（menumus.sbf、gamemus.sbf、EXP1.sbf）をこの順で先頭に並べ、
// それ以外の.sbfファイルは名前順で続けます。大文字小文字は区別しません。
func (f *SBFFileFinderWithFS) Find(dir string) ([]string, error) {
	files, err := f.fs.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrReadDirectory, dir, err)
	}

	var names []string
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		if SBFFilePattern.MatchString(file.Name()) {
			names = append(names, file.Name())
		}
	}
	slices.Sort(names)

	var found []string
	used := make(map[string]bool)
	for _, want := range DefaultSBFFiles {
		for _, name := range names {
			if !used[name] && strings.EqualFold(name, want) {
				found = append(found, filepath.Join(dir, name))
				used[name] = true
				break
			}
		}
	}
	for _, name := range names {
		if !used[name] {
			found = append(found, filepath.Join(dir, name))
		}
	}

	if len(found) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSBFFiles, dir)
	}
	return found, nil
}
