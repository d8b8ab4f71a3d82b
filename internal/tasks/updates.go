package tasks

import (
	"fmt"

	"github.com/desertthunder/tablenav/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchCount Phase = iota
	FetchPage
	WritePage
	ExportSnapshot
	WriteManifest
)

func (p Phase) String() string {
	switch p {
	case FetchCount:
		return "fetch_count"
	case FetchPage:
		return "fetch_page"
	case WritePage:
		return "write_page"
	case ExportSnapshot:
		return "export_snapshot"
	case WriteManifest:
		return "write_manifest"
	default:
		return ""
	}
}

func fetchCountUpdate(collection string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchCount,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching page count for %s...", collection),
	}
}

func fetchPageUpdate(step, total int, collection string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPage,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Fetching %s page %d...", step, total, collection, step-1),
	}
}

func pageWrittenUpdate(step, total int, path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WritePage,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s", step, total, path),
		Data:    path,
	}
}

func pageFailedUpdate(step, total int, page int, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPage,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ page %d: %v", step, total, page, err),
	}
}

func exportingUpdate(step, total int, req models.ExportRequest) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportSnapshot,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Exporting %s...", step, total, describe(req)),
		Data:    req,
	}
}

func exportCompletedUpdate(step, total int, res ExportJobResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportSnapshot,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d bytes)", step, total, res.File, res.Size),
		Data:    res,
	}
}

func exportFailedUpdate(step, total int, res ExportJobResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportSnapshot,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, describe(res.Request), res.Error),
		Data:    res,
	}
}

func manifestUpdate(path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteManifest,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Writing manifest to %s...", path),
	}
}

func describe(req models.ExportRequest) string {
	switch req.Kind() {
	case models.ExportSingle:
		return fmt.Sprintf("snapshot %d (eid %d, uid %d)", req.Snapshot, req.Experiment, req.User)
	case models.ExportStep:
		return fmt.Sprintf("every %d min (eid %d, uid %d)", req.Step, req.Experiment, req.User)
	case models.ExportRange:
		return fmt.Sprintf("%d..%d (eid %d, uid %d)", req.Start, req.End, req.Experiment, req.User)
	default:
		return fmt.Sprintf("all snapshots (eid %d, uid %d)", req.Experiment, req.User)
	}
}
