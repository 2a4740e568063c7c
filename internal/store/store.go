// Package store persists products in a relational table.
//
// Two backends implement Store: PostgreSQL through a pgx connection pool and
// SQLite through database/sql. Open picks one from the database URL scheme.
//
// Each method is a single statement run on a pooled connection that is
// acquired for the call and released before it returns. Nothing here spans a
// transaction across calls, and Insert never checks for an existing name;
// callers that need one row per name must serialize Exists and Insert
// themselves.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/catalogimport/internal/config"
	"github.com/shopspring/decimal"
)

var (
	// ErrUnexpectedResult means a scalar query returned nothing or a value of
	// the wrong type. It indicates a broken invariant, not bad input.
	ErrUnexpectedResult = errors.New("unexpected query result")

	// ErrConstraint wraps integrity-constraint violations reported by the database.
	ErrConstraint = errors.New("constraint violation")

	// ErrUnsupportedURL is returned by Open for an unknown URL scheme.
	ErrUnsupportedURL = errors.New("unsupported database url")
)

// Product is a stored row as seen by callers. The surrogate id stays inside
// the store.
type Product struct {
	Name  string
	Price decimal.Decimal
}

// Store is the products table.
type Store interface {
	// Initialize creates the table and its name index if they do not exist.
	Initialize(ctx context.Context) error

	// Clear deletes every row.
	Clear(ctx context.Context) error

	// Exists reports whether a row with exactly this name is present.
	Exists(ctx context.Context, name string) (bool, error)

	// Insert appends a row. It does not look for duplicates.
	Insert(ctx context.Context, name string, price decimal.Decimal) error

	// Count returns the total number of rows.
	Count(ctx context.Context) (int64, error)

	// Products returns all rows in insertion order.
	Products(ctx context.Context) ([]Product, error)

	// Close releases the connection pool.
	Close() error
}

// Open connects to the store described by cfg.URL.
//
//	postgres://... or postgresql://...  PostgreSQL (pgxpool)
//	sqlite:path or sqlite://path        SQLite file
func Open(ctx context.Context, cfg config.DatabaseConfig) (Store, error) {
	url := cfg.URL
	lower := strings.ToLower(url)

	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return OpenPostgres(ctx, cfg)
	case strings.HasPrefix(lower, "sqlite://"):
		return OpenSQLite(ctx, url[len("sqlite://"):], cfg.BusyTimeout)
	case strings.HasPrefix(lower, "sqlite:"):
		return OpenSQLite(ctx, url[len("sqlite:"):], cfg.BusyTimeout)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedURL, schemeOf(url))
	}
}

func schemeOf(url string) string {
	if i := strings.Index(url, ":"); i > 0 {
		return url[:i]
	}
	return url
}

// scalarInt64 enforces the shape of a COUNT-style result.
func scalarInt64(v any) (int64, error) {
	n, ok := v.(int64)
	if !ok {
		return 0, fmt.Errorf("%w: got %T", ErrUnexpectedResult, v)
	}
	return n, nil
}
