// Package tablestore persists the flattened tables as CSV files, one per
// table, and loads them back with date and set filters.
package tablestore

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/okian/tftscrape/internal/domain/dataset"
	"github.com/okian/tftscrape/pkg/logger"
	"github.com/okian/tftscrape/pkg/metrics"
)

const fileExt = ".csv"

// Path returns the file a table is stored in.
func Path(dataDir, table string) string {
	return filepath.Join(dataDir, table+fileExt)
}

// Writer writes the six tables.
type Writer struct {
	settings
}

// NewWriter creates a writer.
func NewWriter(opts ...Option) *Writer {
	return &Writer{settings: newSettings(opts)}
}

// Write creates dataDir if needed and overwrites every table file with a
// header and the rows of that table.
func (w *Writer) Write(ctx context.Context, rows *dataset.Rows, dataDir string) error {
	if rows == nil {
		rows = &dataset.Rows{}
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("%w: mkdir %s: %v", ErrWriteTable, dataDir, err)
	}
	for _, table := range dataset.TableNames() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := writeTable(Path(dataDir, table), table, rows); err != nil {
			return err
		}
		metrics.UpdateTableRows(table, rows.Len(table))
		w.logger.Info(ctx, "table written",
			logger.String("table", table),
			logger.Int("rows", rows.Len(table)),
		)
	}
	return nil
}

func writeTable(path, table string, rows *dataset.Rows) (err error) {
	cols, _ := dataset.Columns(table)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWriteTable, path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: close %s: %v", ErrWriteTable, path, cerr)
		}
	}()

	cw := csv.NewWriter(f)
	if err := cw.Write(cols); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWriteTable, path, err)
	}
	if err := cw.WriteAll(rows.Records(table)); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWriteTable, path, err)
	}
	return nil
}
