package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/tftscrape/internal/domain/dataset"
	"github.com/okian/tftscrape/internal/domain/match"
	"github.com/okian/tftscrape/pkg/logger"
	"github.com/okian/tftscrape/pkg/metrics"
)

// MatchFiles lists cached response files of a partition.
type MatchFiles interface {
	Files(partition string) ([]string, error)
}

// TableWriter persists flattened rows.
type TableWriter interface {
	Write(ctx context.Context, rows *dataset.Rows, dataDir string) error
}

// FileFailure is a cached file that contributed no rows.
type FileFailure struct {
	File string
	Err  error
}

// FlattenReport summarizes a flatten pass.
type FlattenReport struct {
	Files     int
	Flattened int
	Skipped   int
	Failures  []FileFailure
	Elapsed   time.Duration
}

// ExporterOption applies a configuration option to the Exporter.
type ExporterOption func(*Exporter)

// WithExporterLogger sets a custom logger for the exporter.
func WithExporterLogger(l logger.Logger) ExporterOption {
	return func(e *Exporter) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithWorkers bounds how many files are decoded at once.
func WithWorkers(n int) ExporterOption {
	return func(e *Exporter) {
		if n > 0 {
			e.workers = n
		}
	}
}

// Exporter turns cached match bodies into the six tables.
type Exporter struct {
	files     MatchFiles
	partition string
	writer    TableWriter
	workers   int
	logger    logger.Logger
}

// NewExporter creates an exporter reading partition from files.
func NewExporter(files MatchFiles, partition string, writer TableWriter, opts ...ExporterOption) *Exporter {
	e := &Exporter{
		files:     files,
		partition: partition,
		writer:    writer,
		workers:   runtime.NumCPU(),
		logger:    logger.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export flattens every cached match and writes the tables to dataDir.
func (e *Exporter) Export(ctx context.Context, dataDir string) (FlattenReport, error) {
	files, err := e.files.Files(e.partition)
	if err != nil {
		return FlattenReport{}, err
	}
	rows, report, err := e.Flatten(ctx, files)
	if err != nil {
		return report, err
	}
	if err := e.writer.Write(ctx, rows, dataDir); err != nil {
		return report, err
	}
	e.logger.Info(ctx, "export finished",
		logger.String("data_dir", dataDir),
		logger.Int("files", report.Files),
		logger.Int("flattened", report.Flattened),
		logger.Int("skipped", report.Skipped),
		logger.Duration("elapsed", report.Elapsed),
	)
	return report, nil
}

// Flatten reads and flattens files in parallel and assembles the rows in
// file order. A file that cannot be read, decoded or flattened is logged,
// counted and contributes no rows. Only cancellation is returned as an error.
func (e *Exporter) Flatten(ctx context.Context, files []string) (*dataset.Rows, FlattenReport, error) {
	start := time.Now()
	report := FlattenReport{Files: len(files)}
	results := make([]*dataset.Rows, len(files))
	errs := make([]error, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, file := range files {
		if gctx.Err() != nil {
			break
		}
		i, file := i, file
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i], errs[i] = flattenFile(file)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, report, err
	}
	if err := ctx.Err(); err != nil {
		return nil, report, err
	}

	rows := &dataset.Rows{}
	for i, file := range files {
		if errs[i] != nil {
			report.Skipped++
			report.Failures = append(report.Failures, FileFailure{File: file, Err: errs[i]})
			metrics.RecordFlattenFile(metrics.FlattenSkipped)
			e.logger.Error(ctx, "skipping cached match",
				logger.String("file", filepath.Base(file)),
				logger.Error(errs[i]),
			)
			continue
		}
		report.Flattened++
		metrics.RecordFlattenFile(metrics.FlattenOK)
		rows.Append(results[i])
	}
	report.Elapsed = time.Since(start)
	return rows, report, nil
}

func flattenFile(path string) (*dataset.Rows, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	rec, err := match.Decode(raw)
	if err != nil {
		return nil, err
	}
	return dataset.Flatten(rec)
}
