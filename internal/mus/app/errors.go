package app

import "errors"

var (
	// ErrNoContainers は開けるコンテナが1つもない場合のエラー
	ErrNoContainers = errors.New("読み込めるSBFコンテナがありません")

	// ErrOpenContainer はコンテナを開けなかった場合のエラー
	ErrOpenContainer = errors.New("SBFコンテナを開けませんでした")

	// ErrTrackNotFound は指定したトラックがどのコンテナにもない場合のエラー
	ErrTrackNotFound = errors.New("トラックが見つかりませんでした")

	// ErrPrepareOutput は出力先の準備に失敗した場合のエラー
	ErrPrepareOutput = errors.New("出力先の準備に失敗しました")
)
