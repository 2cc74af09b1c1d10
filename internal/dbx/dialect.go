package dbx

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
)

// Dialect names the SQL flavour a DSN resolves to. The values double as
// goose dialect names.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite3"
	DialectPostgres Dialect = "postgres"
)

// DriverName returns the database/sql driver registered for d.
func (d Dialect) DriverName() string {
	if d == DialectPostgres {
		return "pgx"
	}
	return "sqlite"
}

// DialectForDSN picks PostgreSQL for postgres:// URLs and key=value DSNs
// carrying host=, SQLite for everything else (a file path or file: URI).
func DialectForDSN(dsn string) Dialect {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") ||
		strings.Contains(dsn, "host=") {
		return DialectPostgres
	}
	return DialectSQLite
}

// Rebind rewrites '?' placeholders into the positional form d expects.
// Question marks inside single-quoted literals are left alone.
func Rebind(d Dialect, query string) string {
	if d != DialectPostgres || !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	quoted := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			quoted = !quoted
			b.WriteByte(c)
		case c == '?' && !quoted:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

type rebound struct {
	db      DBTX
	dialect Dialect
}

// Bind wraps db so every query is rebound for d before it is executed.
// For SQLite it returns db unchanged.
func Bind(db DBTX, d Dialect) DBTX {
	if d != DialectPostgres {
		return db
	}
	return &rebound{db: db, dialect: d}
}

func (r *rebound) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return r.db.ExecContext(ctx, Rebind(r.dialect, query), args...)
}

func (r *rebound) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return r.db.QueryContext(ctx, Rebind(r.dialect, query), args...)
}

func (r *rebound) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return r.db.QueryRowContext(ctx, Rebind(r.dialect, query), args...)
}
