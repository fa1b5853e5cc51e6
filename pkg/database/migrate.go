package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrationsTable 迁移版本表，与同库其他服务隔离
const MigrationsTable = "phias_schema_migrations"

// countMigrations 统计嵌入的 up 迁移数量
func countMigrations(fsys fs.FS) (int, error) {
	entries, err := fs.ReadDir(fsys, "migrations")
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".up.sql") {
			n++
		}
	}
	return n, nil
}

// RunMigrations 将排课库结构迁移到最新版本
func RunMigrations(db *sql.DB, logger *zap.Logger) error {
	embedded, err := countMigrations(migrationsFS)
	if err != nil {
		return fmt.Errorf("读取嵌入迁移失败: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("加载迁移文件失败: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: MigrationsTable})
	if err != nil {
		return fmt.Errorf("创建迁移驱动失败: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("初始化迁移实例失败: %w", err)
	}

	from, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("读取迁移版本失败: %w", err)
	}
	if dirty {
		return fmt.Errorf("排课库迁移版本 %d 处于 dirty 状态，需人工修复", from)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("执行迁移失败: %w", err)
	}

	to, _, _ := m.Version()
	logger.Info("排课库迁移完成",
		zap.String("table", MigrationsTable),
		zap.Int("embedded", embedded),
		zap.Uint("from_version", from),
		zap.Uint("version", to),
		zap.Bool("applied", to != from),
	)
	return nil
}
