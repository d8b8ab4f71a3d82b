package models

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/desertthunder/tablenav/internal/shared"
)

// ExportKind classifies an export request.
type ExportKind string

const (
	ExportAll    ExportKind = "all"
	ExportRange  ExportKind = "range"
	ExportStep   ExportKind = "step"
	ExportSingle ExportKind = "single"
)

// ExportRequest selects the snapshots of one participant to export.
//
// Start and End are 1-based and inclusive. Step is an interval in minutes and excludes a range.
// Snapshot selects a single snapshot and excludes both.
type ExportRequest struct {
	Experiment int
	User       int
	Start      int
	End        int
	IncludeEnd bool
	Step       int
	Snapshot   int
}

// Kind reports which selection the request makes.
func (r ExportRequest) Kind() ExportKind {
	switch {
	case r.Snapshot != 0:
		return ExportSingle
	case r.Step != 0:
		return ExportStep
	case r.Start != 0 || r.End != 0:
		return ExportRange
	default:
		return ExportAll
	}
}

// Validate checks ids, the range bounds and that range and step are not combined.
func (r ExportRequest) Validate() error {
	if r.Experiment < 1 || r.User < 1 {
		return fmt.Errorf("%w: experiment %d, user %d", shared.ErrInvalidArgument, r.Experiment, r.User)
	}
	if r.Snapshot != 0 && (r.Step != 0 || r.Start != 0 || r.End != 0) {
		return fmt.Errorf("%w: a single snapshot excludes step and range", shared.ErrInvalidInput)
	}
	if r.Step != 0 && (r.Start != 0 || r.End != 0) {
		return fmt.Errorf("%w: step and range are exclusive", shared.ErrInvalidInput)
	}
	if r.Snapshot < 0 {
		return fmt.Errorf("%w: snapshot %d", shared.ErrInvalidArgument, r.Snapshot)
	}
	if r.Step < 0 {
		return fmt.Errorf("%w: step %d", shared.ErrInvalidRange, r.Step)
	}
	if r.Kind() == ExportRange {
		if r.Start < 1 || r.End < 1 {
			return fmt.Errorf("%w: positions start at 1, got %d..%d", shared.ErrInvalidRange, r.Start, r.End)
		}
		if r.Start > r.End {
			return fmt.Errorf("%w: start %d after end %d", shared.ErrInvalidRange, r.Start, r.End)
		}
	}
	return nil
}

// Query encodes the request as export endpoint parameters.
func (r ExportRequest) Query() url.Values {
	q := url.Values{}
	q.Set("experiment", strconv.Itoa(r.Experiment))
	q.Set("user", strconv.Itoa(r.User))
	switch r.Kind() {
	case ExportSingle:
		q.Set("json", strconv.Itoa(r.Snapshot))
	case ExportStep:
		q.Set("step", strconv.Itoa(r.Step))
	case ExportRange:
		q.Set("start", strconv.Itoa(r.Start))
		q.Set("end", strconv.Itoa(r.End))
		q.Set("include", strconv.FormatBool(r.IncludeEnd))
	}
	return q
}

// ExportRecord is the history entry of a completed export.
type ExportRecord struct {
	id        string
	sequence  int
	kind      ExportKind
	request   ExportRequest
	filePath  string
	sizeBytes int64
	createdAt time.Time
	deletedAt *time.Time
}

// NewExportRecord creates a record for a file written at path.
func NewExportRecord(sequence int, kind ExportKind, req ExportRequest, path string, size int64) *ExportRecord {
	return &ExportRecord{
		sequence:  sequence,
		kind:      kind,
		request:   req,
		filePath:  path,
		sizeBytes: size,
		createdAt: time.Now(),
	}
}

var _ Model = (*ExportRecord)(nil)

func (e *ExportRecord) ID() string { return e.id }
func (e *ExportRecord) Sequence() int { return e.sequence }
func (e *ExportRecord) Kind() ExportKind { return e.kind }
func (e *ExportRecord) Request() ExportRequest { return e.request }
func (e *ExportRecord) FilePath() string { return e.filePath }
func (e *ExportRecord) SizeBytes() int64 { return e.sizeBytes }
func (e *ExportRecord) CreatedAt() time.Time { return e.createdAt }
func (e *ExportRecord) DeletedAt() *time.Time { return e.deletedAt }
func (e *ExportRecord) SetID(id string) { e.id = id }
func (e *ExportRecord) SetSequence(s int) { e.sequence = s }
func (e *ExportRecord) SetCreatedAt(t time.Time) { e.createdAt = t }
func (e *ExportRecord) SetDeletedAt(t *time.Time) { e.deletedAt = t }

// Validate implements [Model].
func (e *ExportRecord) Validate() error {
	switch e.kind {
	case ExportAll, ExportRange, ExportStep, ExportSingle:
	default:
		return fmt.Errorf("%w: export kind %q", shared.ErrInvalidInput, e.kind)
	}
	if e.filePath == "" {
		return fmt.Errorf("%w: file path", shared.ErrMissingArgument)
	}
	if e.sizeBytes < 0 {
		return fmt.Errorf("%w: size %d", shared.ErrInvalidInput, e.sizeBytes)
	}
	if e.request.Kind() != e.kind {
		return fmt.Errorf("%w: kind %q does not match request", shared.ErrInvalidInput, e.kind)
	}
	return e.request.Validate()
}
