package chart

import "errors"

// Chart ドメインのエラー定義
var (
	ErrChartNotFound       = errors.New("シーティングチャートが見つかりません")
	ErrChartNameRequired   = errors.New("チャート名は必須です")
	ErrTableNotFound       = errors.New("テーブルが見つかりません")
	ErrSeatsStillReserved  = errors.New("ホールド中の座席が含まれるため構造を変更できません")
	ErrVersionConflict     = errors.New("チャートが同時に変更されました")
	ErrSectionsRequired    = errors.New("セクションは1つ以上必要です")
	ErrSeatLabelsRequired  = errors.New("テーブルには座席ラベルが1つ以上必要です")
)
