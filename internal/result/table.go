package result

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/signalnine/phasebench/internal/metrics"
)

// Header is the first row of every phase table.
var Header = []string{"user_time", "system_time", "cpu_percent", "wall_clock", "max_rss"}

// Table is an append-only CSV sink holding one row per accepted sample.
type Table struct {
	w      *csv.Writer
	closer io.Closer
	rows   int
}

// NewTable writes the header to w and returns a Table appending to it.
func NewTable(w io.Writer) (*Table, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return nil, fmt.Errorf("writing header: %w", err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, fmt.Errorf("writing header: %w", err)
	}
	return &Table{w: cw}, nil
}

// CreateTable creates (or truncates) the file at path and writes the header.
func CreateTable(path string) (*Table, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating table %s: %w", path, err)
	}
	t, err := NewTable(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("table %s: %w", path, err)
	}
	t.closer = f
	return t, nil
}

// Append writes one row and flushes it.
func (t *Table) Append(s metrics.Sample) error {
	if err := t.w.Write(Record(s)); err != nil {
		return fmt.Errorf("writing row: %w", err)
	}
	t.w.Flush()
	if err := t.w.Error(); err != nil {
		return fmt.Errorf("writing row: %w", err)
	}
	t.rows++
	return nil
}

// Rows is the number of data rows appended so far.
func (t *Table) Rows() int { return t.rows }

// Close flushes and closes the underlying file, if the Table owns one.
func (t *Table) Close() error {
	t.w.Flush()
	err := t.w.Error()
	if t.closer != nil {
		if cerr := t.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Record formats s as a table row.
func Record(s metrics.Sample) []string {
	return []string{
		strconv.FormatFloat(s.UserTimeMs, 'f', 3, 64),
		strconv.FormatFloat(s.SystemTimeMs, 'f', 3, 64),
		strconv.FormatFloat(s.CPUPercent, 'f', 2, 64) + "%",
		strconv.FormatFloat(s.WallClockMs, 'f', 3, 64),
		strconv.FormatInt(s.MaxRSS, 10),
	}
}

// ParseRecord is the inverse of Record, up to the rounding Record applies.
func ParseRecord(rec []string) (metrics.Sample, error) {
	var s metrics.Sample
	if len(rec) != len(Header) {
		return s, fmt.Errorf("expected %d columns, got %d", len(Header), len(rec))
	}
	floats := []*float64{&s.UserTimeMs, &s.SystemTimeMs, &s.CPUPercent, &s.WallClockMs}
	for i, dst := range floats {
		v, err := strconv.ParseFloat(strings.TrimSuffix(rec[i], "%"), 64)
		if err != nil {
			return s, fmt.Errorf("column %s: %w", Header[i], err)
		}
		*dst = v
	}
	rss, err := strconv.ParseInt(rec[4], 10, 64)
	if err != nil {
		return s, fmt.Errorf("column %s: %w", Header[4], err)
	}
	s.MaxRSS = rss
	return s, nil
}

// ReadTable reads every data row of the table at path.
func ReadTable(path string) ([]metrics.Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening table: %w", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading table %s: %w", path, err)
	}
	if len(records) == 0 || strings.Join(records[0], ",") != strings.Join(Header, ",") {
		return nil, fmt.Errorf("table %s: missing header", path)
	}
	samples := make([]metrics.Sample, 0, len(records)-1)
	for i, rec := range records[1:] {
		s, err := ParseRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("table %s row %d: %w", path, i+1, err)
		}
		samples = append(samples, s)
	}
	return samples, nil
}
