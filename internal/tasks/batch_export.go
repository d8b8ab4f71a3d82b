package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/desertthunder/tablenav/internal/formatter"
	"github.com/desertthunder/tablenav/internal/models"
	"github.com/desertthunder/tablenav/internal/shared"
	"golang.org/x/time/rate"
)

// BatchExportOpts contains configuration for batch snapshot exports.
type BatchExportOpts struct {
	OutputDir  string  // Base output directory (default: snapshot_export_{epoch})
	NumWorkers int     // Concurrent workers (default: 4, max: 10)
	RateLimit  float64 // Export requests per second (default: 5)
}

// ExportJobResult is the outcome of one export request.
type ExportJobResult struct {
	Request models.ExportRequest
	File    string
	Size    int64
	Success bool
	Error   error
}

// BatchExportResult contains the outcome of a batch export.
type BatchExportResult struct {
	Total           int
	Successful      int
	Failed          int
	OutputDirectory string
	ManifestPath    string
	Results         []ExportJobResult
}

type manifestEntry struct {
	Experiment int    `json:"experiment"`
	User       int    `json:"user"`
	Kind       string `json:"kind"`
	Snapshot   int    `json:"snapshot,omitempty"`
	Start      int    `json:"start,omitempty"`
	End        int    `json:"end,omitempty"`
	Step       int    `json:"step,omitempty"`
	File       string `json:"file,omitempty"`
	Size       int64  `json:"size,omitempty"`
	Error      string `json:"error,omitempty"`
}

type manifest struct {
	ExportedAt time.Time       `json:"exported_at"`
	Total      int             `json:"total"`
	Successful int             `json:"successful"`
	Failed     int             `json:"failed"`
	Exports    []manifestEntry `json:"exports"`
}

func newManifest(r *BatchExportResult) manifest {
	m := manifest{
		ExportedAt: time.Now().UTC(),
		Total:      r.Total,
		Successful: r.Successful,
		Failed:     r.Failed,
		Exports:    make([]manifestEntry, 0, len(r.Results)),
	}
	for _, res := range r.Results {
		entry := manifestEntry{
			Experiment: res.Request.Experiment,
			User:       res.Request.User,
			Kind:       string(res.Request.Kind()),
			Snapshot:   res.Request.Snapshot,
			Start:      res.Request.Start,
			End:        res.Request.End,
			Step:       res.Request.Step,
		}
		if res.Success {
			entry.File = filepath.Base(res.File)
			entry.Size = res.Size
		} else if res.Error != nil {
			entry.Error = res.Error.Error()
		}
		m.Exports = append(m.Exports, entry)
	}
	return m
}

// BatchExport runs many export requests concurrently with rate limiting and progress tracking.
//
// Invalid requests fail without reaching the backend. Failures never stop the batch; they are reported
// per request and in the manifest written to the output directory.
func (e *Engine) BatchExport(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	reqs []models.ExportRequest,
	opts BatchExportOpts,
) (*BatchExportResult, error) {
	if e.exporter == nil {
		return nil, fmt.Errorf("%w: exporter not initialized", shared.ErrServiceUnavailable)
	}
	if len(reqs) == 0 {
		return nil, fmt.Errorf("%w: nothing to export", shared.ErrMissingArgument)
	}

	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("snapshot_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 4
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &BatchExportResult{
		Total:           len(reqs),
		OutputDirectory: opts.OutputDir,
		Results:         make([]ExportJobResult, 0, len(reqs)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan models.ExportRequest, len(reqs))
	results := make(chan ExportJobResult, len(reqs))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go e.exportWorker(ctx, &wg, limiter, jobs, results, opts.OutputDir)
	}

	go func() {
		defer close(jobs)
		for i, req := range reqs {
			if err := req.Validate(); err != nil {
				results <- ExportJobResult{Request: req, Error: err}
				continue
			}
			select {
			case <-ctx.Done():
				return
			case jobs <- req:
				e.sendProgress(prog, exportingUpdate(i+1, len(reqs), req))
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		if res.Success {
			result.Successful++
			e.sendProgress(prog, exportCompletedUpdate(completed, len(reqs), res))
		} else {
			result.Failed++
			e.sendProgress(prog, exportFailedUpdate(completed, len(reqs), res))
		}
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	e.sendProgress(prog, manifestUpdate(manifestPath))
	if err := formatter.WriteManifest(newManifest(result), manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, nil
}

// exportWorker downloads and writes requests from the jobs channel.
func (e *Engine) exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	limiter *rate.Limiter,
	jobs <-chan models.ExportRequest,
	results chan<- ExportJobResult,
	dir string,
) {
	defer wg.Done()

	for req := range jobs {
		if err := limiter.Wait(ctx); err != nil {
			results <- ExportJobResult{Request: req, Error: err}
			continue
		}
		results <- e.exportOne(ctx, req, dir)
	}
}

func (e *Engine) exportOne(ctx context.Context, req models.ExportRequest, dir string) ExportJobResult {
	res := ExportJobResult{Request: req}

	download, err := e.exporter.Export(ctx, req)
	if err != nil {
		res.Error = fmt.Errorf("export failed: %w", err)
		return res
	}

	path, size, err := formatter.WriteDownload(download, dir)
	if err != nil {
		res.Error = err
		return res
	}
	res.File, res.Size, res.Success = path, size, true

	if e.recorder != nil {
		if err := e.recorder.Record(req, path, size); err != nil {
			e.logger.Warn("failed to record export", "file", path, "error", err)
		}
	}
	return res
}
