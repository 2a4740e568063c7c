package catalog

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "products.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseReader_EndToEndExample(t *testing.T) {
	input := "Name,Price\nLaptop,999.99\nLaptop,999.99\nMouse,25.99\n"

	records, stats, err := ParseReader(strings.NewReader(input), Options{})
	require.NoError(t, err)

	require.Len(t, records, 3)
	assert.Equal(t, "Laptop", records[0].Name)
	assert.True(t, records[0].Price.Equal(mustDecimal(t, "999.99")))
	assert.Equal(t, "Laptop", records[1].Name)
	assert.Equal(t, "Mouse", records[2].Name)
	assert.True(t, records[2].Price.Equal(mustDecimal(t, "25.99")))

	assert.Equal(t, ParseStats{DataRows: 3, Parsed: 3, Skipped: 0}, stats)
}

func TestParseReader_HeaderAlwaysDiscarded(t *testing.T) {
	// The first line looks like data but is still the header
	input := "Laptop,999.99\nMouse,25.99\n"

	records, _, err := ParseReader(strings.NewReader(input), Options{})
	require.NoError(t, err)

	require.Len(t, records, 1)
	assert.Equal(t, "Mouse", records[0].Name)
}

func TestParseReader_BlankFirstLineIsHeader(t *testing.T) {
	input := "\nLaptop,999.99\nMouse,25.99\n"

	records, stats, err := ParseReader(strings.NewReader(input), Options{})
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, "Laptop", records[0].Name)
	assert.Equal(t, "Mouse", records[1].Name)
	assert.Equal(t, ParseStats{DataRows: 2, Parsed: 2}, stats)
}

func TestParseReader_StrayQuoteDoesNotSpill(t *testing.T) {
	input := "Name,Price\n\"Broken,5\nMouse,25.99\nKeyboard,45.50\n"

	records, stats, err := ParseReader(strings.NewReader(input), Options{})
	require.NoError(t, err)

	require.Len(t, records, 3)
	assert.Equal(t, `"Broken`, records[0].Name)
	assert.True(t, records[0].Price.Equal(mustDecimal(t, "5")))
	assert.Equal(t, "Mouse", records[1].Name)
	assert.Equal(t, "Keyboard", records[2].Name)
	assert.Equal(t, 0, stats.Skipped)
}

func TestParseReader_QuotedDelimiterSplitsLine(t *testing.T) {
	// No quoting: the comma inside quotes still separates fields
	input := "Name,Price\n\"Desk, Large\",10\nMouse,25.99\n"

	records, stats, err := ParseReader(strings.NewReader(input), Options{})
	require.NoError(t, err)

	require.Len(t, records, 1)
	assert.Equal(t, "Mouse", records[0].Name)
	assert.Equal(t, 1, stats.Skipped)
}

func TestParseReader_CRLF(t *testing.T) {
	input := "Name,Price\r\nLaptop,999.99\r\nMouse,25.99\r\n"

	records, _, err := ParseReader(strings.NewReader(input), Options{})
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, "Mouse", records[1].Name)
	assert.True(t, records[1].Price.Equal(mustDecimal(t, "25.99")))
}

func TestParseReader_LineTooLong(t *testing.T) {
	input := "Name,Price\n" + strings.Repeat("x", maxLineSize+1) + ",1\n"

	_, _, err := ParseReader(strings.NewReader(input), Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, bufio.ErrTooLong)
}

func TestParseReader_MalformedRowsSkipped(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"single field", "OnlyOneField"},
		{"unparseable price", "Bad,notanumber"},
		{"empty price", "Empty,"},
		{"negative price", "Refund,-5.00"},
		{"blank name", "   ,10.00"},
		{"locale comma decimal", `"Euro","1,50"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := "Name,Price\n" + tt.line + "\nMouse,25.99\n"

			records, stats, err := ParseReader(strings.NewReader(input), Options{})
			require.NoError(t, err)

			require.Len(t, records, 1, "malformed row must contribute no records")
			assert.Equal(t, "Mouse", records[0].Name)
			assert.Equal(t, 1, stats.Skipped)
			assert.Equal(t, 2, stats.DataRows)
		})
	}
}

func TestParseReader_TrimsAndAcceptsExtraFields(t *testing.T) {
	input := "Name,Price,Category\n  USB Hub  , 19.99 ,Accessories\n"

	records, _, err := ParseReader(strings.NewReader(input), Options{})
	require.NoError(t, err)

	require.Len(t, records, 1)
	assert.Equal(t, "USB Hub", records[0].Name)
	assert.Equal(t, "19.99", records[0].Price.StringFixed(2))
}

func TestParseReader_NamesAreCaseSensitive(t *testing.T) {
	input := "Name,Price\nlaptop,1\nLaptop,2\n"

	records, _, err := ParseReader(strings.NewReader(input), Options{})
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.NotEqual(t, records[0].Name, records[1].Name)
}

func TestParseReader_CustomDelimiter(t *testing.T) {
	input := "Name;Price\nTablet;499.99\nBad,1.00\n"

	records, stats, err := ParseReader(strings.NewReader(input), Options{Delimiter: ';'})
	require.NoError(t, err)

	require.Len(t, records, 1)
	assert.Equal(t, "Tablet", records[0].Name)
	assert.Equal(t, 1, stats.Skipped)
}

func TestParseReader_BOMAndBlankLines(t *testing.T) {
	input := "\xEF\xBB\xBFName,Price\n\nWebcam,89.99\n\n"

	records, stats, err := ParseReader(strings.NewReader(input), Options{})
	require.NoError(t, err)

	require.Len(t, records, 1)
	assert.Equal(t, "Webcam", records[0].Name)
	assert.Equal(t, 0, stats.Skipped)
}

func TestParseReader_Empty(t *testing.T) {
	records, stats, err := ParseReader(strings.NewReader(""), Options{})
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, ParseStats{}, stats)

	records, _, err = ParseReader(strings.NewReader("Name,Price\n"), Options{})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestParse_Idempotent(t *testing.T) {
	path := writeCatalog(t, "Name,Price\nLaptop,999.99\nOnlyOneField\nMouse,25.99\nLaptop,999.99\n")

	first, firstStats, err := Parse(path, Options{})
	require.NoError(t, err)
	second, secondStats, err := Parse(path, Options{})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, firstStats, secondStats)
	assert.Len(t, first, 3)
}

func TestParse_MissingFile(t *testing.T) {
	_, _, err := Parse(filepath.Join(t.TempDir(), "missing.csv"), Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr error
	}{
		{"999.99", "999.99", nil},
		{" 25.99 ", "25.99", nil},
		{"$19.99", "19.99", nil},
		{"€5", "5", nil},
		{"0", "0", nil},
		{"1e2", "100", nil},
		{"notanumber", "", ErrInvalidPrice},
		{"", "", ErrInvalidPrice},
		{"1,50", "", ErrInvalidPrice},
		{"-0.01", "", ErrNegativePrice},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePrice(tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(mustDecimal(t, tt.want)), "got %s, want %s", got, tt.want)
		})
	}
}

func TestNewRecord(t *testing.T) {
	rec, err := NewRecord("  Monitor ", mustDecimal(t, "249.99"))
	require.NoError(t, err)
	assert.Equal(t, "Monitor", rec.Name)
	assert.Equal(t, "Monitor=249.99", rec.String())

	_, err = NewRecord(" ", decimal.Zero)
	assert.ErrorIs(t, err, ErrEmptyName)

	_, err = NewRecord("Refund", mustDecimal(t, "-1"))
	assert.ErrorIs(t, err, ErrNegativePrice)
}
