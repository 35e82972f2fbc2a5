package fileutil

import "errors"

var (
	// ErrReadDirectory はディレクトリ内のファイル一覧を取得できない場合のエラー
	ErrReadDirectory = errors.New("ディレクトリ内のファイル一覧を取得できませんでした")

	// ErrNoSBFFiles は.sbfファイルが1つも見つからない場合のエラー
	ErrNoSBFFiles = errors.New(".sbfファイルが見つかりませんでした")

	// ErrCreateDirectory は出力先ディレクトリの作成に失敗した場合のエラー
	ErrCreateDirectory = errors.New("出力先ディレクトリの作成に失敗しました")

	// ErrRemoveDirectory は出力先ディレクトリの削除に失敗した場合のエラー
	ErrRemoveDirectory = errors.New("出力先ディレクトリの削除に失敗しました")
)
