package catalog

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// DefaultDelimiter separates fields when Options.Delimiter is unset.
const DefaultDelimiter = ','

// Options controls how a catalog file is decoded.
type Options struct {
	// Delimiter is the field separator (default: ',').
	Delimiter rune
}

func (o Options) delimiter() rune {
	if o.Delimiter == 0 {
		return DefaultDelimiter
	}
	return o.Delimiter
}

// ParseStats summarises one parse. Data rows exclude the header.
type ParseStats struct {
	DataRows int
	Parsed   int
	Skipped  int
}

// Parse reads the catalog file at path and returns every valid Record in
// file order. The whole file is read before returning, so the caller gets a
// complete, stable slice. Parsing the same file twice yields equal slices.
func Parse(path string, opts Options) ([]Record, ParseStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ParseStats{}, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	records, stats, err := ParseReader(f, opts)
	if err != nil {
		return nil, stats, fmt.Errorf("parse %s: %w", path, err)
	}
	return records, stats, nil
}

// maxLineSize bounds a single catalog line.
const maxLineSize = 1 << 20

// ParseReader decodes a catalog from r. See Parse.
//
// Input is read as text lines. The first line is the header and is dropped
// whatever it contains. Every later line is split on the delimiter on its own,
// so a malformed line never affects its neighbours. Lines are skipped, not
// reported, when they have fewer than two fields, an empty name or a price
// that is not a non-negative decimal. Blank lines are ignored. Only I/O
// failures are returned as errors.
func ParseReader(r io.Reader, opts Options) ([]Record, ParseStats, error) {
	sc := bufio.NewScanner(sanitize(r))
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	sep := string(opts.delimiter())

	var (
		records []Record
		stats   ParseStats
		line    int
	)

	for sc.Scan() {
		line++
		if line == 1 {
			continue
		}

		text := sc.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}

		stats.DataRows++
		rec, err := recordFromRow(strings.Split(text, sep))
		if err != nil {
			stats.Skipped++
			slog.Debug("catalog row skipped", "line", line, "reason", err)
			continue
		}

		records = append(records, rec)
		stats.Parsed++
	}

	if err := sc.Err(); err != nil {
		return nil, stats, fmt.Errorf("read line %d: %w", line+1, err)
	}

	return records, stats, nil
}

func recordFromRow(row []string) (Record, error) {
	if len(row) < 2 {
		return Record{}, fmt.Errorf("expected at least 2 fields, got %d", len(row))
	}

	price, err := ParsePrice(row[1])
	if err != nil {
		return Record{}, err
	}

	return NewRecord(row[0], price)
}
