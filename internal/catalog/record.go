// Package catalog turns a delimited product file into Records.
//
// The file's first line is a header and is always discarded. Every other line
// supplies a product name in its first field and a price in its second. Lines
// that cannot produce a valid Record are skipped without failing the parse.
package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrEmptyName is returned by NewRecord when the trimmed name is empty.
	ErrEmptyName = errors.New("empty product name")

	// ErrInvalidPrice is returned when a price is not a decimal number.
	ErrInvalidPrice = errors.New("invalid price")

	// ErrNegativePrice is returned when a price is below zero.
	ErrNegativePrice = errors.New("negative price")
)

// Record is one product awaiting ingestion. Two Records describe the same
// product when their names are equal; the comparison is exact and
// case-sensitive.
type Record struct {
	Name  string
	Price decimal.Decimal
}

// NewRecord validates name and price and builds a Record. The name is trimmed.
func NewRecord(name string, price decimal.Decimal) (Record, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Record{}, ErrEmptyName
	}
	if price.IsNegative() {
		return Record{}, fmt.Errorf("%w: %s", ErrNegativePrice, price)
	}
	return Record{Name: name, Price: price}, nil
}

// String renders the record as name=price, for logs.
func (r Record) String() string {
	return r.Name + "=" + r.Price.String()
}

// ParsePrice converts a raw price cell to a decimal. Surrounding whitespace
// and currency symbols are ignored; the decimal separator is always '.'.
func ParsePrice(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer("$", "", "€", "", "£", "").Replace(s)
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, fmt.Errorf("%w: empty", ErrInvalidPrice)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", ErrInvalidPrice, s)
	}
	if d.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", ErrNegativePrice, s)
	}
	return d, nil
}
