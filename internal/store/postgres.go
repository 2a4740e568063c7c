package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/JonMunkholm/catalogimport/internal/config"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Postgres is a Store backed by a pgx connection pool. Every method acquires a
// connection from the pool for the duration of one statement.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps an existing pool. The caller keeps ownership of the pool
// unless it calls Close on the returned store.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// OpenPostgres parses cfg.URL, applies pool sizing from cfg, connects and
// pings the server.
func OpenPostgres(ctx context.Context, cfg config.DatabaseConfig) (*Postgres, error) {
	if cfg.MaxConns > config.MaxPoolConns || cfg.MinConns > config.MaxPoolConns {
		return nil, fmt.Errorf("pool size out of range: max %d, min %d", cfg.MaxConns, cfg.MinConns)
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	// Apply pool configuration from config
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return NewPostgres(pool), nil
}

const (
	pgCreateTable = `
		CREATE TABLE IF NOT EXISTS products (
			id    BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			name  TEXT    NOT NULL,
			price NUMERIC NOT NULL
		)`
	pgCreateIndex = `CREATE INDEX IF NOT EXISTS idx_products_name ON products (name)`
)

// Initialize implements Store.
func (p *Postgres) Initialize(ctx context.Context) error {
	for _, stmt := range []string{pgCreateTable, pgCreateIndex} {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return pgError("initialize", err)
		}
	}
	return nil
}

// Clear implements Store.
func (p *Postgres) Clear(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM products`); err != nil {
		return pgError("clear", err)
	}
	return nil
}

// Exists implements Store.
func (p *Postgres) Exists(ctx context.Context, name string) (bool, error) {
	var v any
	err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE name = $1`, name).Scan(&v)
	if err != nil {
		return false, pgError("exists", err)
	}

	n, err := scalarInt64(v)
	if err != nil {
		return false, fmt.Errorf("exists: %w", err)
	}
	return n > 0, nil
}

// Insert implements Store.
func (p *Postgres) Insert(ctx context.Context, name string, price decimal.Decimal) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO products (name, price) VALUES ($1, $2::numeric)`,
		name, price.String(),
	)
	if err != nil {
		return pgError("insert", err)
	}
	return nil
}

// Count implements Store.
func (p *Postgres) Count(ctx context.Context) (int64, error) {
	var v any
	if err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`).Scan(&v); err != nil {
		return 0, pgError("count", err)
	}

	n, err := scalarInt64(v)
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

// Products implements Store.
func (p *Postgres) Products(ctx context.Context) ([]Product, error) {
	rows, err := p.pool.Query(ctx, `SELECT name, price::text FROM products ORDER BY id`)
	if err != nil {
		return nil, pgError("list products", err)
	}

	products, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Product, error) {
		var name, price string
		if err := row.Scan(&name, &price); err != nil {
			return Product{}, err
		}
		d, err := decimal.NewFromString(price)
		if err != nil {
			return Product{}, fmt.Errorf("%w: price %q", ErrUnexpectedResult, price)
		}
		return Product{Name: name, Price: d}, nil
	})
	if err != nil {
		return nil, pgError("list products", err)
	}
	return products, nil
}

// Close implements Store.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// pgError wraps err with the operation name. A missing row from a scalar
// query becomes ErrUnexpectedResult; integrity violations (SQLSTATE class 23)
// also match ErrConstraint.
func pgError(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrUnexpectedResult)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && len(pgErr.Code) == 5 && pgErr.Code[:2] == "23" {
		return fmt.Errorf("%s: %w: %w", op, ErrConstraint, err)
	}

	return fmt.Errorf("%s: %w", op, err)
}
