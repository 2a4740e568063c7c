// Package app wires one import run together: prepare the table, make sure an
// input file exists, parse it, ingest it concurrently and report the totals.
package app

import (
	"context"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/JonMunkholm/catalogimport/internal/catalog"
	"github.com/JonMunkholm/catalogimport/internal/config"
	"github.com/JonMunkholm/catalogimport/internal/ingest"
	"github.com/JonMunkholm/catalogimport/internal/logging"
	"github.com/JonMunkholm/catalogimport/internal/store"
)

// Report is what a run produced.
type Report struct {
	SampleWritten bool
	Parsed        int
	SkippedRows   int
	Inserted      int64
	Existing      int64
	RowCount      int64
}

// Run opens the configured store, performs Import and closes the store. The
// whole run is bounded by cfg.Import.Timeout.
func Run(ctx context.Context, cfg *config.Config, out io.Writer) (Report, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.Import.Timeout)
	defer cancel()

	st, err := store.Open(ctx, cfg.Database)
	if err != nil {
		return Report{}, fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	logging.FromContext(ctx).Info("store opened", "backend", fmt.Sprintf("%T", st))

	return Import(ctx, st, cfg.Import, out)
}

// Import runs the import steps against an open store and writes the two
// report lines to out.
func Import(ctx context.Context, st store.Store, cfg config.ImportConfig, out io.Writer) (Report, error) {
	logger := logging.FromContext(ctx)
	var report Report

	if err := st.Initialize(ctx); err != nil {
		return report, fmt.Errorf("initialize store: %w", err)
	}

	if cfg.Clear {
		if err := st.Clear(ctx); err != nil {
			return report, fmt.Errorf("clear store: %w", err)
		}
		logger.Debug("products table cleared")
	}

	if cfg.WriteSample {
		created, err := catalog.EnsureSample(cfg.File)
		if err != nil {
			return report, err
		}
		report.SampleWritten = created
		if created {
			logger.Info("sample catalog written", "file", cfg.File, "rows", len(catalog.SampleRows))
		}
	}

	records, stats, err := catalog.Parse(cfg.File, catalog.Options{Delimiter: delimiterRune(cfg.Delimiter)})
	if err != nil {
		return report, err
	}
	report.Parsed = stats.Parsed
	report.SkippedRows = stats.Skipped

	logger.Info("catalog parsed",
		"file", cfg.File,
		"data_rows", stats.DataRows,
		"parsed", stats.Parsed,
		"skipped", stats.Skipped,
	)
	fmt.Fprintf(out, "Read %d products from CSV file.\n", len(records))

	coordinator := ingest.NewCoordinator(st, ingest.Options{
		Workers:      cfg.Workers,
		Distribution: ingest.Distribution(cfg.Distribution),
	})

	result, err := coordinator.Run(ctx, records)
	report.Inserted = result.Inserted
	report.Existing = result.Skipped
	if err != nil {
		return report, fmt.Errorf("ingest: %w", err)
	}

	count, err := st.Count(ctx)
	if err != nil {
		return report, fmt.Errorf("count products: %w", err)
	}
	report.RowCount = count

	logger.Info("import complete",
		"inserted", result.Inserted,
		"skipped", result.Skipped,
		"rows", count,
		"duration", result.Duration,
	)
	fmt.Fprintf(out, "Inserted %d products into the database.\n", count)

	return report, nil
}

func delimiterRune(s string) rune {
	r, _ := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return catalog.DefaultDelimiter
	}
	return r
}
