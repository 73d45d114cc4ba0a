package transaction

import "context"

// Tx は座席在庫への一連の更新を囲むトランザクション境界。
// CommitもRollbackもされないまま破棄してはならない。
type Tx interface {
	Commit() error
	Rollback() error
}

// Manager はアプリケーション層がトランザクションを開始するための抽象。
// sqlxへの依存をインフラ層に閉じ込める。
type Manager interface {
	Begin(ctx context.Context) (Tx, error)
}
