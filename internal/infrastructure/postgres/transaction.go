package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-seat-hold-engine/internal/domain/transaction"
)

// txWrapper は *sqlx.Tx に transaction.Tx を満たさせる。
// Commit / Rollback は埋め込みからそのまま公開される。
type txWrapper struct {
	*sqlx.Tx
}

// TxManager は sqlx ベースの transaction.Manager 実装
type TxManager struct {
	db *sqlx.DB
}

func NewTxManager(db *sqlx.DB) *TxManager {
	return &TxManager{db: db}
}

func (m *TxManager) Begin(ctx context.Context) (transaction.Tx, error) {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &txWrapper{Tx: tx}, nil
}

// UnwrapTx はリポジトリ実装が生の *sqlx.Tx を取り出すために使う。
// このパッケージ以外の Tx 実装が渡された場合は nil を返す。
func UnwrapTx(tx transaction.Tx) *sqlx.Tx {
	if w, ok := tx.(*txWrapper); ok {
		return w.Tx
	}
	return nil
}

var _ transaction.Manager = (*TxManager)(nil)
