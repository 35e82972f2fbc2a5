package export

import "errors"

var (
	// ErrExportFailed は1つ以上のトラックの書き出しに失敗した場合のエラー
	ErrExportFailed = errors.New("トラックの書き出しに失敗しました")

	// ErrCreateFile は出力ファイルの作成に失敗した場合のエラー
	ErrCreateFile = errors.New("出力ファイルの作成に失敗しました")

	// ErrWriteFile は出力ファイルへの書き込みに失敗した場合のエラー
	ErrWriteFile = errors.New("出力ファイルへの書き込みに失敗しました")
)
