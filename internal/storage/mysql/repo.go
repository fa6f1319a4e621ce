// Package mysql implements storage.Repository for MySQL and MariaDB using
// database/sql and github.com/go-sql-driver/mysql.
//
// The generated statements use standard quoting only. Names that contain a
// backslash need NO_BACKSLASH_ESCAPES in sql_mode to round-trip.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	driver "github.com/go-sql-driver/mysql"
)

// Config holds MySQL repository configuration.
type Config struct {
	// DSN uses the driver format, e.g. "user:pass@tcp(localhost:3306)/ubigeo".
	DSN string
}

// Repository is a MySQL-backed implementation of storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// NewRepository parses the DSN with the driver's own parser, opens a
// connector-backed pool and pings it.
//
// A ping that does not answer within five seconds fails construction and the
// pool is closed.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, nil, fmt.Errorf("mysql: DSN must not be empty")
	}
	dc, err := driver.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("mysql: parse dsn: %w", err)
	}
	connector, err := driver.NewConnector(dc)
	if err != nil {
		return nil, nil, fmt.Errorf("mysql: connector: %w", err)
	}
	db := sql.OpenDB(connector)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("mysql: ping: %w", err)
	}

	closeFn := func() { db.Close() }
	return &Repository{db: db, cfg: cfg}, closeFn, nil
}

// Exec executes a single statement.
func (r *Repository) Exec(ctx context.Context, sql string) error {
	if strings.TrimSpace(sql) == "" {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, sql); err != nil {
		return mysqlError("exec", err)
	}
	return nil
}

// Count returns the number of rows in table.
func (r *Repository) Count(ctx context.Context, table string) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+ident(table)).Scan(&n); err != nil {
		return 0, mysqlError("count", err)
	}
	return n, nil
}

func mysqlError(op string, err error) error {
	var me *driver.MySQLError
	if errors.As(err, &me) {
		return fmt.Errorf("mysql: %s: error %d: %s: %w", op, me.Number, me.Message, err)
	}
	return fmt.Errorf("mysql: %s: %w", op, err)
}

// ident quotes a possibly schema-qualified name with backticks.
func ident(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = "`" + strings.ReplaceAll(p, "`", "``") + "`"
	}
	return strings.Join(parts, ".")
}
