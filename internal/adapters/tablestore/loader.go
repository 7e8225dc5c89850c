package tablestore

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/okian/tftscrape/internal/domain/dataset"
	"github.com/okian/tftscrape/pkg/logger"
	"github.com/okian/tftscrape/pkg/metrics"
)

const keySep = "\x1f"

// Table is one loaded table. It is read-only once returned.
type Table struct {
	Name    string
	Columns []string
	Records [][]string

	times []time.Time
	index map[string][]int
	cols  map[string]int
}

// Len returns the number of records.
func (t *Table) Len() int { return len(t.Records) }

// Value returns the cell of record row in column col.
func (t *Table) Value(row int, col string) (string, bool) {
	i, ok := t.cols[col]
	if !ok || row < 0 || row >= len(t.Records) {
		return "", false
	}
	return t.Records[row][i], true
}

// Time returns the parsed match_datetime of record row. It is the zero time
// when the cell was empty.
func (t *Table) Time(row int) time.Time {
	if row < 0 || row >= len(t.times) {
		return time.Time{}
	}
	return t.times[row]
}

// Lookup returns the records matching the table key: match_id for matches,
// match_id and puuid for the other tables.
func (t *Table) Lookup(key ...string) [][]string {
	rows := t.index[strings.Join(key, keySep)]
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, t.Records[r])
	}
	return out
}

// TableSet is the result of a Load.
type TableSet struct {
	names  []string
	tables map[string]*Table
}

// Names returns the loaded table names in request order.
func (s *TableSet) Names() []string { return append([]string(nil), s.names...) }

// Table returns a loaded table.
func (s *TableSet) Table(name string) (*Table, bool) {
	t, ok := s.tables[name]
	return t, ok
}

// Loader reads tables written by Writer.
type Loader struct {
	settings
}

// NewLoader creates a loader.
func NewLoader(opts ...Option) *Loader {
	return &Loader{settings: newSettings(opts)}
}

// Load reads the requested tables from dataDir and applies the date window
// and set filter to each of them.
func (l *Loader) Load(ctx context.Context, dataDir string, opts ...LoadOption) (*TableSet, error) {
	cfg := loadConfig{
		tables:     dataset.TableNames(),
		daysCutoff: DefaultDaysCutoff,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	for _, name := range cfg.tables {
		if _, ok := dataset.Columns(name); !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownTable, name)
		}
	}

	var (
		cutoff   time.Time
		cutoffMS int64 // 0 when the window is off
	)
	if cfg.daysCutoff > 0 {
		cutoff = cfg.now().Add(-time.Duration(cfg.daysCutoff) * 24 * time.Hour)
		cutoffMS = cutoff.UnixMilli()
	}

	set := &TableSet{tables: make(map[string]*Table, len(cfg.tables))}
	for _, name := range cfg.tables {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, dup := set.tables[name]; dup {
			continue
		}
		t, err := readTable(Path(dataDir, name), name)
		if err != nil {
			return nil, err
		}
		before := t.Len()
		t.filter(cutoff, cfg.setFilter)
		t.buildIndex()

		set.names = append(set.names, name)
		set.tables[name] = t
		metrics.UpdateTableRows(name, t.Len())
		l.logger.Debug(ctx, "table loaded",
			logger.String("table", name),
			logger.Int("read", before),
			logger.Int("kept", t.Len()),
			logger.Int64("cutoff_ms", cutoffMS),
		)
	}
	return set, nil
}

func readTable(path, name string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrTableNotFound, path)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedTable, path, err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %s: empty file", ErrMalformedTable, path)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedTable, path, err)
	}
	want, _ := dataset.Columns(name)
	if !slices.Equal(header, want) {
		return nil, fmt.Errorf("%w: %s: header %v, want %v", ErrMalformedTable, path, header, want)
	}

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedTable, path, err)
	}

	t := &Table{
		Name:    name,
		Columns: header,
		Records: records,
		times:   make([]time.Time, len(records)),
		cols:    make(map[string]int, len(header)),
	}
	for i, c := range header {
		t.cols[c] = i
	}

	dt := t.cols[dataset.ColMatchDatetime]
	for i, rec := range records {
		cell := rec[dt]
		if cell == "" {
			continue
		}
		ms, err := strconv.ParseInt(cell, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: row %d: match_datetime %q", ErrMalformedTable, path, i+2, cell)
		}
		t.times[i] = time.UnixMilli(ms)
	}
	return t, nil
}

// filter drops records outside the window or of another set. A zero cutoff
// disables the window; rows without a datetime fail an active window.
func (t *Table) filter(cutoff time.Time, set string) {
	if cutoff.IsZero() && set == "" {
		return
	}
	setCol := t.cols[dataset.ColSetName]

	records := t.Records[:0]
	times := t.times[:0]
	for i, rec := range t.Records {
		if !cutoff.IsZero() && (t.times[i].IsZero() || t.times[i].Before(cutoff)) {
			continue
		}
		if set != "" && rec[setCol] != set {
			continue
		}
		records = append(records, rec)
		times = append(times, t.times[i])
	}
	t.Records = records
	t.times = times
}

func (t *Table) buildIndex() {
	keyCols := dataset.KeyColumns(t.Name)
	idx := make([]int, len(keyCols))
	for i, c := range keyCols {
		idx[i] = t.cols[c]
	}

	t.index = make(map[string][]int, len(t.Records))
	parts := make([]string, len(idx))
	for row, rec := range t.Records {
		for i, c := range idx {
			parts[i] = rec[c]
		}
		key := strings.Join(parts, keySep)
		t.index[key] = append(t.index[key], row)
	}
}
