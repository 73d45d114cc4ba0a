package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/sanosuguru/go-seat-hold-engine/internal/pkg/logger"
)

// RunMigrations は指定ディレクトリのSQLマイグレーションを適用する。
// 全て適用済みの場合は何もしない。
func RunMigrations(db *sql.DB, migrationsPath string) error {
	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("マイグレーションドライバーの初期化に失敗: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsPath, "postgres", driver)
	if err != nil {
		return fmt.Errorf("マイグレーションの構築に失敗: %w", err)
	}

	switch err := m.Up(); {
	case errors.Is(err, migrate.ErrNoChange):
		logger.Info("適用するマイグレーションはありません")
	case err != nil:
		return fmt.Errorf("マイグレーションの適用に失敗: %w", err)
	default:
		logger.Info("マイグレーションを適用しました")
	}
	return nil
}
