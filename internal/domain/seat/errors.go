package seat

import "errors"

// Seat ドメインのエラー定義
var (
	ErrSeatNotFound           = errors.New("座席が見つかりません")
	ErrSeatUnavailable        = errors.New("座席はホールドできません")
	ErrSeatNotReserved        = errors.New("座席はホールドされていません")
	ErrNotHolder              = errors.New("ホールドの保持者ではありません")
	ErrHoldExpired            = errors.New("ホールドの有効期限が切れています")
	ErrSeatNotBlocked         = errors.New("座席は販売停止されていません")
	ErrConcurrentModification = errors.New("座席が同時に変更されました")
	ErrChartIDRequired        = errors.New("シーティングチャートIDは必須です")
	ErrSeatLabelRequired      = errors.New("座席ラベルは必須です")
	ErrInvalidSeatPosition    = errors.New("座席位置は0以上である必要があります")
)
