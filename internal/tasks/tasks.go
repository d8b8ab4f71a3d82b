package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tablenav/internal/formatter"
	"github.com/desertthunder/tablenav/internal/models"
	"github.com/desertthunder/tablenav/internal/navigator"
	"github.com/desertthunder/tablenav/internal/services"
	"github.com/desertthunder/tablenav/internal/shared"
)

// Exporter downloads the snapshots selected by an export request.
//
// Implemented by [services.Client].
type Exporter interface {
	Export(ctx context.Context, req models.ExportRequest) (*models.Download, error)
}

// Recorder persists a completed export.
//
// Implemented by repositories.HistoryRecorder.
type Recorder interface {
	Record(req models.ExportRequest, path string, size int64) error
}

// Engine runs exports and dumps against the backend.
type Engine struct {
	exporter Exporter
	pages    navigator.Fetcher
	recorder Recorder
	logger   *log.Logger
}

// NewEngine creates an [Engine]. The recorder may be nil, in which case history is not kept.
func NewEngine(exporter Exporter, pages navigator.Fetcher, recorder Recorder, logger *log.Logger) *Engine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Engine{exporter: exporter, pages: pages, recorder: recorder, logger: logger.WithPrefix("tasks")}
}

// PageError records a page that could not be dumped.
type PageError struct {
	Page  int
	Error error
}

// DumpOpts configures [Engine.Dump].
type DumpOpts struct {
	Format    formatter.Format // Page rendering (default: text)
	OutputDir string           // Output directory (default: {collection}_dump_{epoch})
}

// DumpResult contains the files written by a dump and the pages that failed.
type DumpResult struct {
	Collection string
	Last       int
	OutputDir  string
	Files      []string
	Errors     []PageError
}

// Dump fetches every page of the collection described by d and writes each one to its own file.
//
// The first page and the count must succeed; later page failures are collected in the result.
func (e *Engine) Dump(ctx context.Context, prog chan<- ProgressUpdate, d navigator.Descriptor, opts DumpOpts) (*DumpResult, error) {
	if e.pages == nil {
		return nil, fmt.Errorf("%w: page fetcher not initialized", shared.ErrServiceUnavailable)
	}
	if opts.Format == "" {
		opts.Format = formatter.FormatText
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("%s_dump_%d", d.Name, time.Now().Unix())
	}

	last := -1
	if d.CountEndpoint != "" {
		e.sendProgress(prog, fetchCountUpdate(d.Name))
		n, err := e.pages.FetchCount(ctx, d)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch page count: %w", err)
		}
		last = n
	}

	first, err := e.fetchPage(ctx, d, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch first page: %w", err)
	}
	if last < 0 {
		last = max(first.Last, 0)
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &DumpResult{Collection: d.Name, Last: last, OutputDir: opts.OutputDir}
	total := last + 1

	for page := 0; page <= last; page++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		e.sendProgress(prog, fetchPageUpdate(page+1, total, d.Name))

		p := first
		if page > 0 {
			if p, err = e.fetchPage(ctx, d, page); err != nil {
				e.logger.Error("page fetch failed", "collection", d.Name, "page", page, "error", err)
				result.Errors = append(result.Errors, PageError{Page: page, Error: err})
				e.sendProgress(prog, pageFailedUpdate(page+1, total, page, err))
				continue
			}
		}

		name := fmt.Sprintf("%s_page_%d.%s", d.Name, page, formatter.Extension(opts.Format))
		path := filepath.Join(opts.OutputDir, name)
		if err := formatter.WritePage(p, opts.Format, path); err != nil {
			result.Errors = append(result.Errors, PageError{Page: page, Error: err})
			e.sendProgress(prog, pageFailedUpdate(page+1, total, page, err))
			continue
		}

		result.Files = append(result.Files, path)
		e.sendProgress(prog, pageWrittenUpdate(page+1, total, path))
	}

	return result, nil
}

func (e *Engine) fetchPage(ctx context.Context, d navigator.Descriptor, page int) (*models.TablePage, error) {
	fragment, err := e.pages.FetchPage(ctx, d, page)
	if err != nil {
		return nil, err
	}
	return services.DecodePage(fragment)
}

// sendProgress sends a progress update through the channel without blocking.
func (e *Engine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}
