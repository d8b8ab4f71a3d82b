package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/desertthunder/tablenav/internal/formatter"
	"github.com/desertthunder/tablenav/internal/models"
	"github.com/desertthunder/tablenav/internal/shared"
	"github.com/desertthunder/tablenav/internal/tasks"
	"github.com/urfave/cli/v3"
)

func (r *Runner) outputDir(cmd *cli.Command) string {
	if dir := cmd.String("output"); dir != "" {
		return dir
	}
	if r.config.Export.OutputDir != "" {
		return r.config.Export.OutputDir
	}
	return "."
}

// ExportRange downloads a range of a participant's snapshots, or one snapshot per step interval.
func (r *Runner) ExportRange(ctx context.Context, cmd *cli.Command) error {
	experiment, user := participant(cmd)
	req := models.ExportRequest{
		Experiment: experiment,
		User:       user,
		Start:      int(cmd.Int("start")),
		End:        int(cmd.Int("end")),
		IncludeEnd: cmd.Bool("include"),
		Step:       int(cmd.Int("step")),
	}
	if req.Kind() == models.ExportRange && !req.IncludeEnd && req.Start == req.End {
		return fmt.Errorf("%w: range %d-%d is empty without --include", shared.ErrInvalidRange, req.Start, req.End)
	}
	if err := req.Validate(); err != nil {
		return err
	}

	r.logger.Info("exporting snapshots", "experiment", experiment, "user", user, "kind", req.Kind())
	d, err := r.client.Export(ctx, req)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	path, size, err := formatter.WriteDownload(d, r.outputDir(cmd))
	if err != nil {
		return err
	}

	recorder, done := r.recorder()
	defer done()
	if recorder != nil {
		if err := recorder.Record(req, path, size); err != nil {
			r.logger.Warn("failed to record export", "path", path, "error", err)
		}
	}

	r.writePlain("✓ Saved %s (%d bytes)\n", path, size)
	return nil
}

// ExportSnapshots downloads single snapshots concurrently and writes a manifest next to them.
func (r *Runner) ExportSnapshots(ctx context.Context, cmd *cli.Command) error {
	experiment, user := participant(cmd)

	args := cmd.Args().Slice()
	if len(args) == 0 {
		return fmt.Errorf("%w: at least one snapshot ID", shared.ErrMissingArgument)
	}
	reqs := make([]models.ExportRequest, 0, len(args))
	for _, a := range args {
		id, err := strconv.Atoi(a)
		if err != nil || id < 1 {
			return fmt.Errorf("%w: snapshot ID %q", shared.ErrInvalidArgument, a)
		}
		reqs = append(reqs, models.ExportRequest{Experiment: experiment, User: user, Snapshot: id})
	}

	workers := int(cmd.Int("workers"))
	if workers <= 0 {
		workers = r.config.Export.Workers
	}
	dir := filepath.Join(r.outputDir(cmd), fmt.Sprintf("snapshots_eid_%d_uid_%d_%d", experiment, user, time.Now().Unix()))

	recorder, done := r.recorder()
	defer done()
	engine := tasks.NewEngine(r.client, r.client, recorder, r.logger)

	progressCh := make(chan tasks.ProgressUpdate, 50)
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		for update := range progressCh {
			switch update.Phase {
			case tasks.ExportSnapshot:
				r.writePlain("   [%d/%d] %s\n", update.Step, update.Total, update.Message)
			case tasks.WriteManifest:
				r.writePlain("\n📝 %s\n", update.Message)
			}
		}
	}()

	result, err := engine.BatchExport(ctx, progressCh, reqs, tasks.BatchExportOpts{
		OutputDir:  dir,
		NumWorkers: workers,
		RateLimit:  cmd.Float("rate"),
	})
	close(progressCh)
	<-finished

	if result == nil {
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Export Complete")
	r.writePlain("Exported: %d/%d snapshots to %s\n", result.Successful, result.Total, result.OutputDirectory)
	if result.ManifestPath != "" {
		r.writePlain("Manifest: %s\n", result.ManifestPath)
	}
	if result.Failed > 0 {
		r.writePlain("\nFailed:\n")
		for _, res := range result.Results {
			if !res.Success {
				r.writePlain("  - snapshot %d: %v\n", res.Request.Snapshot, res.Error)
			}
		}
	}
	return err
}

type historyEntry struct {
	ID         string    `json:"id"`
	Sequence   int       `json:"sequence"`
	Kind       string    `json:"kind"`
	Experiment int       `json:"experiment"`
	User       int       `json:"user"`
	Start      int       `json:"start,omitempty"`
	End        int       `json:"end,omitempty"`
	IncludeEnd bool      `json:"include_end,omitempty"`
	Step       int       `json:"step,omitempty"`
	Snapshot   int       `json:"snapshot,omitempty"`
	File       string    `json:"file"`
	Size       int64     `json:"size"`
	CreatedAt  time.Time `json:"created_at"`
}

func newHistoryEntry(rec *models.ExportRecord) historyEntry {
	req := rec.Request()
	return historyEntry{
		ID:         rec.ID(),
		Sequence:   rec.Sequence(),
		Kind:       string(rec.Kind()),
		Experiment: req.Experiment,
		User:       req.User,
		Start:      req.Start,
		End:        req.End,
		IncludeEnd: req.IncludeEnd,
		Step:       req.Step,
		Snapshot:   req.Snapshot,
		File:       rec.FilePath(),
		Size:       rec.SizeBytes(),
		CreatedAt:  rec.CreatedAt(),
	}
}

func describeSelection(e historyEntry) string {
	switch models.ExportKind(e.Kind) {
	case models.ExportSingle:
		return fmt.Sprintf("snapshot %d", e.Snapshot)
	case models.ExportStep:
		return fmt.Sprintf("every %d min", e.Step)
	case models.ExportRange:
		if e.IncludeEnd {
			return fmt.Sprintf("%d..%d", e.Start, e.End)
		}
		return fmt.Sprintf("%d..<%d", e.Start, e.End)
	default:
		return "all"
	}
}

// ExportHistory lists recorded exports, newest first.
func (r *Runner) ExportHistory(ctx context.Context, cmd *cli.Command) error {
	repo, done, err := r.openHistory()
	if err != nil {
		return err
	}
	defer done()

	records, err := repo.List(map[string]any{
		"experiment": int(cmd.Int("experiment")),
		"user":       int(cmd.Int("user")),
		"limit":      int(cmd.Int("limit")),
	})
	if err != nil {
		return err
	}

	entries := make([]historyEntry, len(records))
	for i, rec := range records {
		entries[i] = newHistoryEntry(rec)
	}

	if cmd.Bool("json") {
		return r.writeJSON(entries, true)
	}
	if len(entries) == 0 {
		return r.writePlain("No exports recorded\n")
	}

	r.writePlainHeader(fmt.Sprintf("%d exports", len(entries)))
	for _, e := range entries {
		r.writePlain("%4d  %s  eid %d uid %d  %-14s %8d B  %s\n",
			e.Sequence, e.CreatedAt.Format("2006-01-02 15:04"), e.Experiment, e.User, describeSelection(e), e.Size, e.File)
	}
	return nil
}
