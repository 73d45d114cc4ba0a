package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-seat-hold-engine/internal/domain/chart"
	"github.com/sanosuguru/go-seat-hold-engine/internal/domain/seat"
	"github.com/sanosuguru/go-seat-hold-engine/internal/domain/transaction"
)

type chartRow struct {
	ID             string    `db:"id"`
	Name           string    `db:"name"`
	AvailableCount int       `db:"available_count"`
	ReservedCount  int       `db:"reserved_count"`
	SoldCount      int       `db:"sold_count"`
	BlockedCount   int       `db:"blocked_count"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
	Version        int       `db:"version"`
}

const chartColumns = `id, name, available_count, reserved_count, sold_count, blocked_count, created_at, updated_at, version`

type sectionRow struct {
	ChartID      string `db:"chart_id"`
	SectionIndex int    `db:"section_index"`
	Name         string `db:"name"`
}

type tableRow struct {
	ChartID      string `db:"chart_id"`
	SectionIndex int    `db:"section_index"`
	TableIndex   int    `db:"table_index"`
	Label        string `db:"label"`
}

// ChartRepository はシーティングチャート集約の永続化を担う
// 集約はルート行＋座席単位で個別にアドレス可能な行として保存し、
// 座席の書き換えで全ツリーを書き直すことはしない
type ChartRepository struct{ db *sqlx.DB }

func NewChartRepository(db *sqlx.DB) *ChartRepository { return &ChartRepository{db: db} }

func (r *ChartRepository) Create(ctx context.Context, tx transaction.Tx, c *chart.Chart) error {
	sqlxTx := UnwrapTx(tx)

	query := `INSERT INTO charts (` + chartColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	if _, err := sqlxTx.ExecContext(ctx, query, c.ID, c.Name, c.AvailableCount, c.ReservedCount, c.SoldCount, c.BlockedCount, c.CreatedAt, c.UpdatedAt, c.Version); err != nil {
		return fmt.Errorf("チャート作成に失敗: %w", err)
	}

	for _, sec := range c.Sections {
		if _, err := sqlxTx.ExecContext(ctx,
			`INSERT INTO chart_sections (chart_id, section_index, name) VALUES ($1, $2, $3)`,
			c.ID, sec.Index, sec.Name); err != nil {
			return fmt.Errorf("セクション作成に失敗: %w", err)
		}
		for _, tbl := range sec.Tables {
			if _, err := sqlxTx.ExecContext(ctx,
				`INSERT INTO chart_tables (chart_id, section_index, table_index, label) VALUES ($1, $2, $3, $4)`,
				c.ID, sec.Index, tbl.Index, tbl.Label); err != nil {
				return fmt.Errorf("テーブル作成に失敗: %w", err)
			}
		}
	}
	return nil
}

func (r *ChartRepository) GetByID(ctx context.Context, id string) (*chart.Chart, error) {
	var row chartRow
	query := `SELECT ` + chartColumns + ` FROM charts WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, chart.ErrChartNotFound
		}
		return nil, fmt.Errorf("チャート取得に失敗: %w", err)
	}

	var sections []sectionRow
	if err := r.db.SelectContext(ctx, &sections,
		`SELECT chart_id, section_index, name FROM chart_sections WHERE chart_id = $1 ORDER BY section_index`, id); err != nil {
		return nil, fmt.Errorf("セクション取得に失敗: %w", err)
	}
	var tables []tableRow
	if err := r.db.SelectContext(ctx, &tables,
		`SELECT chart_id, section_index, table_index, label FROM chart_tables WHERE chart_id = $1 ORDER BY section_index, table_index`, id); err != nil {
		return nil, fmt.Errorf("テーブル取得に失敗: %w", err)
	}
	var seats []seatRow
	if err := r.db.SelectContext(ctx, &seats,
		`SELECT `+seatColumns+` FROM seats WHERE chart_id = $1 ORDER BY section_index, table_index, seat_index`, id); err != nil {
		return nil, fmt.Errorf("座席取得に失敗: %w", err)
	}

	return buildChart(&row, sections, tables, seats), nil
}

// buildChart は行データから集約ツリーを組み立てる
func buildChart(row *chartRow, sections []sectionRow, tables []tableRow, seats []seatRow) *chart.Chart {
	c := &chart.Chart{
		ID: row.ID, Name: row.Name,
		AvailableCount: row.AvailableCount, ReservedCount: row.ReservedCount,
		SoldCount: row.SoldCount, BlockedCount: row.BlockedCount,
		CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt, Version: row.Version,
	}

	tableIdx := make(map[[2]int]*chart.Table)
	c.Sections = make([]chart.Section, 0, len(sections))
	for _, sec := range sections {
		c.Sections = append(c.Sections, chart.Section{Index: sec.SectionIndex, Name: sec.Name})
	}
	sectionIdx := make(map[int]*chart.Section, len(c.Sections))
	for i := range c.Sections {
		sectionIdx[c.Sections[i].Index] = &c.Sections[i]
	}
	for _, tbl := range tables {
		sec, ok := sectionIdx[tbl.SectionIndex]
		if !ok {
			continue
		}
		sec.Tables = append(sec.Tables, chart.Table{Index: tbl.TableIndex, Label: tbl.Label})
		tableIdx[[2]int{tbl.SectionIndex, tbl.TableIndex}] = &sec.Tables[len(sec.Tables)-1]
	}
	for i := range seats {
		tbl, ok := tableIdx[[2]int{seats[i].SectionIndex, seats[i].TableIndex}]
		if !ok {
			continue
		}
		tbl.Seats = append(tbl.Seats, seats[i].toEntity())
	}
	return c
}

func (r *ChartRepository) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, `SELECT id FROM charts ORDER BY created_at`); err != nil {
		return nil, fmt.Errorf("チャート一覧取得に失敗: %w", err)
	}
	return ids, nil
}

func (r *ChartRepository) ListIDsWithExpiredHolds(ctx context.Context, now time.Time) ([]string, error) {
	var ids []string
	query := `SELECT DISTINCT chart_id FROM seats WHERE status = 'reserved' AND hold_expires_at <= $1`
	if err := r.db.SelectContext(ctx, &ids, query, now); err != nil {
		return nil, fmt.Errorf("期限切れホールドを含むチャートの取得に失敗: %w", err)
	}
	return ids, nil
}

func (r *ChartRepository) GetCounts(ctx context.Context, id string) (chart.StatusCounts, error) {
	var row chartRow
	query := `SELECT ` + chartColumns + ` FROM charts WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return chart.StatusCounts{}, chart.ErrChartNotFound
		}
		return chart.StatusCounts{}, fmt.Errorf("チャート取得に失敗: %w", err)
	}
	return chart.StatusCounts{
		Available: row.AvailableCount, Reserved: row.ReservedCount,
		Sold: row.SoldCount, Blocked: row.BlockedCount,
	}, nil
}

func (r *ChartRepository) ApplyTransition(ctx context.Context, tx transaction.Tx, chartID string, from, to seat.Status, count int, now time.Time) error {
	if count <= 0 {
		return nil
	}
	fromCol, err := countColumn(from)
	if err != nil {
		return err
	}
	toCol, err := countColumn(to)
	if err != nil {
		return err
	}

	sqlxTx := UnwrapTx(tx)
	query := fmt.Sprintf(`UPDATE charts SET %s = %s - $2, %s = %s + $2, updated_at = $3, version = version + 1 WHERE id = $1`,
		fromCol, fromCol, toCol, toCol)
	result, err := sqlxTx.ExecContext(ctx, query, chartID, count, now)
	if err != nil {
		return fmt.Errorf("チャートサマリー更新に失敗: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return chart.ErrChartNotFound
	}
	return nil
}

// countColumn はステータスに対応するサマリー列名を返す
// 列名は固定の集合から選ぶためSQL組み立てに使用しても安全
func countColumn(st seat.Status) (string, error) {
	switch st {
	case seat.StatusAvailable:
		return "available_count", nil
	case seat.StatusReserved:
		return "reserved_count", nil
	case seat.StatusSold:
		return "sold_count", nil
	case seat.StatusBlocked:
		return "blocked_count", nil
	default:
		return "", fmt.Errorf("サマリー対象外のステータス: %s", st)
	}
}

func (r *ChartRepository) RemoveTable(ctx context.Context, tx transaction.Tx, chartID string, sectionIndex, tableIndex int, now time.Time) (int, error) {
	sqlxTx := UnwrapTx(tx)

	// 行ロックを取り、ホールド中の座席が1つでもあれば構造編集を拒否する
	var statuses []string
	if err := sqlxTx.SelectContext(ctx, &statuses,
		`SELECT status FROM seats WHERE chart_id = $1 AND section_index = $2 AND table_index = $3 FOR UPDATE`,
		chartID, sectionIndex, tableIndex); err != nil {
		return 0, fmt.Errorf("テーブル座席の取得に失敗: %w", err)
	}

	available, sold, blocked := 0, 0, 0
	for _, st := range statuses {
		switch seat.Status(st) {
		case seat.StatusReserved:
			return 0, chart.ErrSeatsStillReserved
		case seat.StatusAvailable:
			available++
		case seat.StatusSold:
			sold++
		case seat.StatusBlocked:
			blocked++
		}
	}

	result, err := sqlxTx.ExecContext(ctx,
		`DELETE FROM chart_tables WHERE chart_id = $1 AND section_index = $2 AND table_index = $3`,
		chartID, sectionIndex, tableIndex)
	if err != nil {
		return 0, fmt.Errorf("テーブル削除に失敗: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return 0, chart.ErrTableNotFound
	}
	if _, err := sqlxTx.ExecContext(ctx,
		`DELETE FROM seats WHERE chart_id = $1 AND section_index = $2 AND table_index = $3`,
		chartID, sectionIndex, tableIndex); err != nil {
		return 0, fmt.Errorf("テーブル座席の削除に失敗: %w", err)
	}

	query := `UPDATE charts SET available_count = available_count - $2, sold_count = sold_count - $3, blocked_count = blocked_count - $4, updated_at = $5, version = version + 1 WHERE id = $1`
	if _, err := sqlxTx.ExecContext(ctx, query, chartID, available, sold, blocked, now); err != nil {
		return 0, fmt.Errorf("チャートサマリー更新に失敗: %w", err)
	}
	return len(statuses), nil
}

func (r *ChartRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM charts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("チャート削除に失敗: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return chart.ErrChartNotFound
	}
	return nil
}

var _ chart.Repository = (*ChartRepository)(nil)
