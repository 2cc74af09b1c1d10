// Package repomanager vends the relay's repositories for one SQL dialect and
// runs the embedded goose migrations.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/filegate/internal/dbx"
	"github.com/dmitrijs2005/filegate/internal/filex"
	"github.com/dmitrijs2005/filegate/internal/relay/migrations"
	"github.com/dmitrijs2005/filegate/internal/relay/repositories/batches"
	"github.com/dmitrijs2005/filegate/internal/relay/repositories/cleanups"
	"github.com/dmitrijs2005/filegate/internal/relay/repositories/downloads"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	Batches(db dbx.DBTX) batches.Repository
	Downloads(db dbx.DBTX) downloads.Repository
	Cleanups(db dbx.DBTX) cleanups.Repository
}

// SQLRepositoryManager binds every repository it hands out to its dialect,
// so the same '?' queries run on SQLite and PostgreSQL.
type SQLRepositoryManager struct {
	dialect dbx.Dialect
}

func NewSQLRepositoryManager(d dbx.Dialect) *SQLRepositoryManager {
	return &SQLRepositoryManager{dialect: d}
}

func (m *SQLRepositoryManager) Dialect() dbx.Dialect {
	return m.dialect
}

func (m *SQLRepositoryManager) Batches(db dbx.DBTX) batches.Repository {
	return batches.NewSQLRepository(dbx.Bind(db, m.dialect))
}

func (m *SQLRepositoryManager) Downloads(db dbx.DBTX) downloads.Repository {
	return downloads.NewSQLRepository(dbx.Bind(db, m.dialect))
}

func (m *SQLRepositoryManager) Cleanups(db dbx.DBTX) cleanups.Repository {
	return cleanups.NewSQLRepository(dbx.Bind(db, m.dialect))
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded migrations. It is idempotent.
func (m *SQLRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect(string(m.dialect)); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	return gooseUpContext(ctx, db, ".")
}

// Open connects to dsn, picking the driver from its shape, migrates the
// schema and returns the handle together with a matching manager.
//
// SQLite is limited to one open connection: writes are serialised by the
// pool instead of failing with SQLITE_BUSY.
func Open(ctx context.Context, dsn string) (*sql.DB, *SQLRepositoryManager, error) {
	d := dbx.DialectForDSN(dsn)

	if d == dbx.DialectSQLite && isFilePath(dsn) {
		if _, err := filex.EnsureParentDir(dsn); err != nil {
			return nil, nil, fmt.Errorf("db dir error: %w", err)
		}
	}

	db, err := sql.Open(d.DriverName(), dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("db ping error: %w", err)
	}

	m := NewSQLRepositoryManager(d)
	if err := m.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migration error: %w", err)
	}
	if d == dbx.DialectSQLite {
		db.SetMaxOpenConns(1)
	}
	return db, m, nil
}

// isFilePath reports whether a SQLite DSN is a plain file path rather than
// ":memory:" or a "file:" URI.
func isFilePath(dsn string) bool {
	return dsn != "" && !strings.HasPrefix(dsn, ":") && !strings.HasPrefix(dsn, "file:")
}
