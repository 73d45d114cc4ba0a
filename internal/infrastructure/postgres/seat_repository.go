package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sanosuguru/go-seat-hold-engine/internal/domain/seat"
	"github.com/sanosuguru/go-seat-hold-engine/internal/domain/transaction"
)

const seatColumns = `id, chart_id, section_index, table_index, seat_index, label, status, session_id, hold_expires_at, created_at, updated_at, version`

type seatRow struct {
	ID            string     `db:"id"`
	ChartID       string     `db:"chart_id"`
	SectionIndex  int        `db:"section_index"`
	TableIndex    int        `db:"table_index"`
	SeatIndex     int        `db:"seat_index"`
	Label         string     `db:"label"`
	Status        string     `db:"status"`
	SessionID     *string    `db:"session_id"`
	HoldExpiresAt *time.Time `db:"hold_expires_at"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
	Version       int        `db:"version"`
}

func (r *seatRow) toEntity() *seat.Seat {
	return &seat.Seat{
		ID: r.ID, ChartID: r.ChartID,
		SectionIndex: r.SectionIndex, TableIndex: r.TableIndex, SeatIndex: r.SeatIndex,
		Label: r.Label, Status: seat.Status(r.Status),
		SessionID: r.SessionID, HoldExpiresAt: r.HoldExpiresAt,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt, Version: r.Version,
	}
}

// SeatRepository は座席の永続化を担う
// 状態遷移は条件付きUPDATEで実行する。WHERE句の状態検査と書き込みが
// 単一文になるため、read-check-write が座席単位で直列化される
type SeatRepository struct{ db *sqlx.DB }

func NewSeatRepository(db *sqlx.DB) *SeatRepository { return &SeatRepository{db: db} }

func (r *SeatRepository) CreateBulk(ctx context.Context, tx transaction.Tx, seats []*seat.Seat) error {
	if len(seats) == 0 {
		return nil
	}

	// バッチサイズごとに分割してマルチバリューINSERTを実行
	const batchSize = 1000
	for i := 0; i < len(seats); i += batchSize {
		end := i + batchSize
		if end > len(seats) {
			end = len(seats)
		}
		if err := r.createBulkBatch(ctx, UnwrapTx(tx), seats[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (r *SeatRepository) createBulkBatch(ctx context.Context, tx *sqlx.Tx, seats []*seat.Seat) error {
	query := `INSERT INTO seats (id, chart_id, section_index, table_index, seat_index, label, status, created_at, updated_at, version) VALUES `
	args := make([]interface{}, 0, len(seats)*10)
	placeholders := make([]string, 0, len(seats))

	for i, s := range seats {
		base := i * 10
		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9, base+10))
		args = append(args, s.ID, s.ChartID, s.SectionIndex, s.TableIndex, s.SeatIndex, s.Label, string(s.Status), s.CreatedAt, s.UpdatedAt, s.Version)
	}

	query += strings.Join(placeholders, ", ")
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("座席一括作成に失敗: %w", err)
	}
	return nil
}

func (r *SeatRepository) GetByID(ctx context.Context, id string) (*seat.Seat, error) {
	query := `SELECT ` + seatColumns + ` FROM seats WHERE id = $1`
	var row seatRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, seat.ErrSeatNotFound
		}
		return nil, fmt.Errorf("座席取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

func (r *SeatRepository) GetByChartID(ctx context.Context, chartID string) ([]*seat.Seat, error) {
	query := `SELECT ` + seatColumns + ` FROM seats WHERE chart_id = $1 ORDER BY section_index, table_index, seat_index`
	var rows []seatRow
	if err := r.db.SelectContext(ctx, &rows, query, chartID); err != nil {
		return nil, fmt.Errorf("座席一覧取得に失敗: %w", err)
	}
	seats := make([]*seat.Seat, len(rows))
	for i, row := range rows {
		seats[i] = row.toEntity()
	}
	return seats, nil
}

func (r *SeatRepository) PlaceHold(ctx context.Context, tx transaction.Tx, seatID, sessionID string, expiresAt time.Time) (*seat.Seat, error) {
	sqlxTx := UnwrapTx(tx)
	query := `UPDATE seats SET status = 'reserved', session_id = $2, hold_expires_at = $3, updated_at = NOW(), version = version + 1
		WHERE id = $1 AND status = 'available'
		RETURNING ` + seatColumns
	var row seatRow
	err := sqlxTx.QueryRowxContext(ctx, query, seatID, sessionID, expiresAt).StructScan(&row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.classifyFailure(ctx, sqlxTx, seatID, sessionID, opPlace, time.Time{})
		}
		return nil, fmt.Errorf("ホールド配置に失敗: %w", err)
	}
	return row.toEntity(), nil
}

func (r *SeatRepository) ExtendHold(ctx context.Context, tx transaction.Tx, seatID, sessionID string, expiresAt time.Time) (*seat.Seat, error) {
	sqlxTx := UnwrapTx(tx)
	query := `UPDATE seats SET hold_expires_at = $3, updated_at = NOW(), version = version + 1
		WHERE id = $1 AND status = 'reserved' AND session_id = $2
		RETURNING ` + seatColumns
	var row seatRow
	err := sqlxTx.QueryRowxContext(ctx, query, seatID, sessionID, expiresAt).StructScan(&row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.classifyFailure(ctx, sqlxTx, seatID, sessionID, opExtend, time.Time{})
		}
		return nil, fmt.Errorf("ホールド延長に失敗: %w", err)
	}
	return row.toEntity(), nil
}

func (r *SeatRepository) Release(ctx context.Context, tx transaction.Tx, seatID, sessionID string, force bool) (*seat.Seat, error) {
	sqlxTx := UnwrapTx(tx)
	query := `UPDATE seats SET status = 'available', session_id = NULL, hold_expires_at = NULL, updated_at = NOW(), version = version + 1
		WHERE id = $1 AND status = 'reserved'`
	args := []interface{}{seatID}
	if !force {
		query += ` AND session_id = $2`
		args = append(args, sessionID)
	}
	query += ` RETURNING ` + seatColumns

	var row seatRow
	err := sqlxTx.QueryRowxContext(ctx, query, args...).StructScan(&row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.classifyFailure(ctx, sqlxTx, seatID, sessionID, opRelease, time.Time{})
		}
		return nil, fmt.Errorf("ホールド解放に失敗: %w", err)
	}
	return row.toEntity(), nil
}

func (r *SeatRepository) Commit(ctx context.Context, tx transaction.Tx, seatID, sessionID string, now time.Time) (*seat.Seat, error) {
	sqlxTx := UnwrapTx(tx)
	query := `UPDATE seats SET status = 'sold', session_id = NULL, hold_expires_at = NULL, updated_at = NOW(), version = version + 1
		WHERE id = $1 AND status = 'reserved' AND session_id = $2 AND hold_expires_at > $3
		RETURNING ` + seatColumns
	var row seatRow
	err := sqlxTx.QueryRowxContext(ctx, query, seatID, sessionID, now).StructScan(&row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.classifyFailure(ctx, sqlxTx, seatID, sessionID, opCommit, now)
		}
		return nil, fmt.Errorf("ホールド確定に失敗: %w", err)
	}
	return row.toEntity(), nil
}

func (r *SeatRepository) Block(ctx context.Context, tx transaction.Tx, seatID string) (*seat.Seat, error) {
	sqlxTx := UnwrapTx(tx)
	query := `UPDATE seats SET status = 'blocked', updated_at = NOW(), version = version + 1
		WHERE id = $1 AND status = 'available'
		RETURNING ` + seatColumns
	var row seatRow
	err := sqlxTx.QueryRowxContext(ctx, query, seatID).StructScan(&row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.classifyFailure(ctx, sqlxTx, seatID, "", opBlock, time.Time{})
		}
		return nil, fmt.Errorf("座席の販売停止に失敗: %w", err)
	}
	return row.toEntity(), nil
}

func (r *SeatRepository) Unblock(ctx context.Context, tx transaction.Tx, seatID string) (*seat.Seat, error) {
	sqlxTx := UnwrapTx(tx)
	query := `UPDATE seats SET status = 'available', updated_at = NOW(), version = version + 1
		WHERE id = $1 AND status = 'blocked'
		RETURNING ` + seatColumns
	var row seatRow
	err := sqlxTx.QueryRowxContext(ctx, query, seatID).StructScan(&row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.classifyFailure(ctx, sqlxTx, seatID, "", opUnblock, time.Time{})
		}
		return nil, fmt.Errorf("座席の販売停止解除に失敗: %w", err)
	}
	return row.toEntity(), nil
}

func (r *SeatRepository) ReleaseExpired(ctx context.Context, tx transaction.Tx, chartID string, now time.Time) ([]*seat.Seat, error) {
	sqlxTx := UnwrapTx(tx)

	// 期限切れ行を行ロック付きで確定してから解放する
	var rows []seatRow
	selectQuery := `SELECT ` + seatColumns + ` FROM seats
		WHERE chart_id = $1 AND status = 'reserved' AND hold_expires_at <= $2
		ORDER BY section_index, table_index, seat_index
		FOR UPDATE`
	if err := sqlxTx.SelectContext(ctx, &rows, selectQuery, chartID, now); err != nil {
		return nil, fmt.Errorf("期限切れホールド取得に失敗: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	updateQuery := `UPDATE seats SET status = 'available', session_id = NULL, hold_expires_at = NULL, updated_at = $2, version = version + 1
		WHERE id = ANY($1)`
	if _, err := sqlxTx.ExecContext(ctx, updateQuery, pq.Array(ids), now); err != nil {
		return nil, fmt.Errorf("期限切れホールド解放に失敗: %w", err)
	}

	// イベント発行のため解放前のホールド情報を保持したまま返す
	released := make([]*seat.Seat, len(rows))
	for i, row := range rows {
		released[i] = row.toEntity()
	}
	return released, nil
}

func (r *SeatRepository) CountReservedInTable(ctx context.Context, chartID string, sectionIndex, tableIndex int) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM seats WHERE chart_id = $1 AND section_index = $2 AND table_index = $3 AND status = 'reserved'`
	if err := r.db.GetContext(ctx, &count, query, chartID, sectionIndex, tableIndex); err != nil {
		return 0, fmt.Errorf("ホールド中座席数の取得に失敗: %w", err)
	}
	return count, nil
}

type holdOp int

const (
	opPlace holdOp = iota
	opExtend
	opRelease
	opCommit
	opBlock
	opUnblock
)

// classifyFailure は条件付きUPDATEが0行だった原因をドメインエラーへ分類する
// 座席が見当たらない・状態不一致・保持者不一致・期限切れを判別し、
// いずれでもなければ同時変更として扱う
func (r *SeatRepository) classifyFailure(ctx context.Context, tx *sqlx.Tx, seatID, sessionID string, op holdOp, now time.Time) error {
	var row seatRow
	query := `SELECT ` + seatColumns + ` FROM seats WHERE id = $1`
	if err := tx.GetContext(ctx, &row, query, seatID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return seat.ErrSeatNotFound
		}
		return fmt.Errorf("座席状態の確認に失敗: %w", err)
	}

	status := seat.Status(row.Status)
	switch op {
	case opPlace:
		if status != seat.StatusAvailable {
			return seat.ErrSeatUnavailable
		}
	case opExtend, opRelease:
		if status != seat.StatusReserved {
			return seat.ErrSeatNotReserved
		}
		if row.SessionID == nil || *row.SessionID != sessionID {
			return seat.ErrNotHolder
		}
	case opCommit:
		if status != seat.StatusReserved {
			return seat.ErrSeatNotReserved
		}
		if row.SessionID == nil || *row.SessionID != sessionID {
			return seat.ErrNotHolder
		}
		if row.HoldExpiresAt != nil && !row.HoldExpiresAt.After(now) {
			return seat.ErrHoldExpired
		}
	case opBlock:
		if status != seat.StatusAvailable {
			return seat.ErrSeatUnavailable
		}
	case opUnblock:
		if status != seat.StatusBlocked {
			return seat.ErrSeatNotBlocked
		}
	}
	return seat.ErrConcurrentModification
}

var _ seat.Repository = (*SeatRepository)(nil)
