package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

// SQLite is a Store backed by a SQLite file through database/sql.
//
// The pool is limited to a single connection: SQLite allows one writer at a
// time, and an in-memory database exists only on the connection that created
// it. Concurrent callers queue on the pool rather than on SQLITE_BUSY.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path. Use ":memory:"
// for a private in-memory database.
//
// The database is configured with:
//   - WAL mode for file databases
//   - busyTimeout for lock contention with other processes
func OpenSQLite(ctx context.Context, path string, busyTimeout time.Duration) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty sqlite path", ErrUnsupportedURL)
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d", path, busyTimeout.Milliseconds())
	if path != ":memory:" {
		dsn += "&_journal_mode=WAL"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	// Keep the connection alive so an in-memory database survives idle periods
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	return &SQLite{db: db}, nil
}

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS Products (
		Id    INTEGER PRIMARY KEY AUTOINCREMENT,
		Name  TEXT    NOT NULL,
		Price NUMERIC NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_products_name ON Products(Name);
	`

// Initialize implements Store.
func (s *SQLite) Initialize(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return sqliteError("initialize", err)
	}
	return nil
}

// Clear implements Store.
func (s *SQLite) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM Products`); err != nil {
		return sqliteError("clear", err)
	}
	return nil
}

// Exists implements Store.
func (s *SQLite) Exists(ctx context.Context, name string) (bool, error) {
	var v any
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM Products WHERE Name = ?`, name).Scan(&v)
	if err != nil {
		return false, sqliteError("exists", err)
	}

	n, err := scalarInt64(v)
	if err != nil {
		return false, fmt.Errorf("exists: %w", err)
	}
	return n > 0, nil
}

// Insert implements Store.
func (s *SQLite) Insert(ctx context.Context, name string, price decimal.Decimal) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO Products (Name, Price) VALUES (?, ?)`,
		name, price.String(),
	)
	if err != nil {
		return sqliteError("insert", err)
	}
	return nil
}

// Count implements Store.
func (s *SQLite) Count(ctx context.Context) (int64, error) {
	var v any
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM Products`).Scan(&v); err != nil {
		return 0, sqliteError("count", err)
	}

	n, err := scalarInt64(v)
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

// Products implements Store.
func (s *SQLite) Products(ctx context.Context) ([]Product, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT Name, CAST(Price AS TEXT) FROM Products ORDER BY Id`)
	if err != nil {
		return nil, sqliteError("list products", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var (
			name string
			text string
		)
		if err := rows.Scan(&name, &text); err != nil {
			return nil, sqliteError("scan product", err)
		}
		price, err := decimal.NewFromString(text)
		if err != nil {
			return nil, fmt.Errorf("scan product %q price %q: %w", name, text, ErrUnexpectedResult)
		}
		products = append(products, Product{Name: name, Price: price})
	}

	if err := rows.Err(); err != nil {
		return nil, sqliteError("iterate products", err)
	}
	return products, nil
}

// Close implements Store.
func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// sqliteError wraps err with the operation name, mapping a missing scalar row
// to ErrUnexpectedResult and SQLITE_CONSTRAINT to ErrConstraint.
func sqliteError(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrUnexpectedResult)
	}

	var sqlErr sqlite3.Error
	if errors.As(err, &sqlErr) && sqlErr.Code == sqlite3.ErrConstraint {
		return fmt.Errorf("%s: %w: %w", op, ErrConstraint, err)
	}

	return fmt.Errorf("%s: %w", op, err)
}
