package sbf

import (
	"errors"
	"fmt"
)

var (
	// ErrHeaderTooShort はファイルがヘッダより短い場合のエラー
	ErrHeaderTooShort = errors.New("file too short for header")

	// ErrIndexOutOfBounds はインデックス領域がファイル外にはみ出す場合のエラー
	ErrIndexOutOfBounds = errors.New("index region out of bounds")

	// ErrReservedField は予約フィールドが0でない場合のエラー
	ErrReservedField = errors.New("reserved field is not zero")

	// ErrBlockSize はブロックサイズが4104でない場合のエラー
	ErrBlockSize = errors.New("unexpected block size")

	// ErrSizeNotBlockMultiple はチャンクサイズがブロックサイズの倍数でない場合のエラー
	ErrSizeNotBlockMultiple = errors.New("chunk size is not a multiple of block size")

	// ErrSampleCount はブロックの宣言サンプル数が容量を超える場合のエラー
	ErrSampleCount = errors.New("declared sample count exceeds block capacity")

	// ErrPayloadOutOfBounds はチャンクデータがファイル外にはみ出す場合のエラー
	ErrPayloadOutOfBounds = errors.New("chunk payload out of bounds")

	// ErrClosed はクローズ済みのコンテナにアクセスした場合のエラー
	ErrClosed = errors.New("container is closed")
)

// FormatError はコンテナの不変条件違反を表すエラー
type FormatError struct {
	Op    string // 実行していた操作
	Index int    // レコード番号（該当しない場合は-1）
	Err   error  // 元のエラー
}

// Error はエラーメッセージを返します
func (e *FormatError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("sbf: %s (record %d): %v", e.Op, e.Index, e.Err)
	}
	return fmt.Sprintf("sbf: %s: %v", e.Op, e.Err)
}

// Unwrap は元のエラーを返します
func (e *FormatError) Unwrap() error {
	return e.Err
}

// IOError はファイルの読み書きに失敗した場合のエラー
type IOError struct {
	Op   string
	Path string
	Err  error
}

// Error はエラーメッセージを返します
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("sbf: %s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("sbf: %s: %v", e.Op, e.Err)
}

// Unwrap は元のエラーを返します
func (e *IOError) Unwrap() error {
	return e.Err
}

// IsFormatError はerrがFormatErrorを含むか判定します
func IsFormatError(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}

// IsIOError はerrがIOErrorを含むか判定します
func IsIOError(err error) bool {
	var ioe *IOError
	return errors.As(err, &ioe)
}
