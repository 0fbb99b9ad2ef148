// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert turns Anki deck archives into spreadsheets. A conversion
// opens the archive, exports its card records and hands them unmodified to a
// spreadsheet writer; the archive is released on every exit path.
package convert

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdiddy/anki-export/internal/apkg"
	"github.com/pdiddy/anki-export/pkg/types"
)

const (
	archiveExt = ".apkg"
	sheetExt   = ".xlsx"
)

// Archive is an open deck archive that can export its card records.
type Archive interface {
	Export(ctx context.Context) (types.Export, error)
	Close() error
}

// Opener acquires the archive at path.
type Opener func(path string) (Archive, error)

// OpenAPKG opens .apkg files with the apkg package.
func OpenAPKG(path string) (Archive, error) {
	r, err := apkg.Open(path)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// SheetWriter persists an export to a spreadsheet file, creating or
// overwriting it.
type SheetWriter interface {
	Write(path string, e types.Export) error
}

// Job names one archive and the spreadsheet it converts to.
type Job struct {
	ArchivePath string
	OutputPath  string
}

// Converter runs conversions with an injected opener and writer.
type Converter struct {
	Open   Opener
	Writer SheetWriter

	// SkipExisting makes batch runs leave existing outputs untouched.
	// Convert always overwrites.
	SkipExisting bool

	// Log receives per-archive status lines. Nil discards them.
	Log io.Writer
}

// BatchResult holds the outcome of a batch conversion run.
type BatchResult struct {
	Converted int
	Skipped   int
	Failed    int
}

// Total returns the total number of archives processed.
func (r BatchResult) Total() int {
	return r.Converted + r.Skipped + r.Failed
}

// HasFailures reports whether any archive failed conversion.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// Convert writes the archive's export to the job's output path and returns
// the number of data rows written. Errors from opening, exporting or writing
// are returned wrapped; nothing is written unless the export succeeds.
func (c *Converter) Convert(ctx context.Context, job Job) (rows int, err error) {
	a, err := c.Open(job.ArchivePath)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", job.ArchivePath, err)
	}
	defer func() {
		if cerr := a.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", job.ArchivePath, cerr)
		}
	}()

	e, err := a.Export(ctx)
	if err != nil {
		return 0, fmt.Errorf("exporting %s: %w", job.ArchivePath, err)
	}

	if err := c.Writer.Write(job.OutputPath, e); err != nil {
		return 0, fmt.Errorf("writing %s: %w", job.OutputPath, err)
	}
	return e.RowCount(), nil
}

// convertOne runs a single batch entry and reports its status.
func (c *Converter) convertOne(ctx context.Context, job Job) types.ConversionStatus {
	base := archiveBase(job.ArchivePath)

	if c.SkipExisting {
		if _, err := os.Stat(job.OutputPath); err == nil {
			c.logf("skipped: %s (already exists)\n", base)
			return types.ConversionNone
		}
	}

	rows, err := c.Convert(ctx, job)
	if err != nil {
		c.logf("failed:  %s (%v)\n", base, err)
		return types.ConversionFailed
	}

	c.logf("converted: %s (%d cards)\n", base, rows)
	return types.ConversionDone
}

// Batch converts each job in order, continuing past failures, and prints a
// summary. It stops early only when ctx is cancelled.
func (c *Converter) Batch(ctx context.Context, jobs []Job) (BatchResult, error) {
	var result BatchResult
	for _, job := range jobs {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		switch c.convertOne(ctx, job) {
		case types.ConversionDone:
			result.Converted++
		case types.ConversionNone:
			result.Skipped++
		case types.ConversionFailed:
			result.Failed++
		}
	}
	c.logf("\nBatch summary: %d converted, %d skipped, %d failed (total: %d)\n",
		result.Converted, result.Skipped, result.Failed, result.Total())
	return result, nil
}

// Paths converts each archive to outputDir/<name>.xlsx, creating outputDir
// if needed.
func (c *Converter) Paths(ctx context.Context, archives []string, outputDir string) (BatchResult, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return BatchResult{}, fmt.Errorf("creating output directory: %w", err)
	}

	jobs := make([]Job, len(archives))
	for i, p := range archives {
		jobs[i] = Job{
			ArchivePath: p,
			OutputPath:  filepath.Join(outputDir, archiveBase(p)+sheetExt),
		}
	}
	return c.Batch(ctx, jobs)
}

// Dir converts every .apkg file in decksDir, in name order.
func (c *Converter) Dir(ctx context.Context, decksDir, outputDir string) (BatchResult, error) {
	archives, err := FindArchives(decksDir)
	if err != nil {
		return BatchResult{}, err
	}
	return c.Paths(ctx, archives, outputDir)
}

// FindArchives lists the .apkg files directly inside dir, sorted by name.
func FindArchives(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading decks directory %s: %w", dir, err)
	}

	var archives []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), archiveExt) {
			continue
		}
		archives = append(archives, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(archives)
	return archives, nil
}

func archiveBase(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

func (c *Converter) logf(format string, args ...any) {
	if c.Log == nil {
		return
	}
	fmt.Fprintf(c.Log, format, args...)
}
