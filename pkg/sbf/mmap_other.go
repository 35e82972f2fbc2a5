//go:build !unix

package sbf

import "os"

// mapFile はmmapのない環境でファイル全体をメモリに読み込みます
func mapFile(path string) ([]byte, func() error, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, &IOError{Op: "read", Path: path, Err: err}
	}
	return data, func() error { return nil }, nil
}
