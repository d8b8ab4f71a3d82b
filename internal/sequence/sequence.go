// Package sequence steps through a server-held sequence one item at a time.
//
// A [Viewer] keeps one page of items in a buffer and only asks its [Loader] for another page when a
// move crosses the buffer's edge. Every successful move hands the item and its [Position] to the
// [Display] callback together; a failed load leaves the position and buffer untouched.
package sequence

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tablenav/internal/paging"
	"github.com/desertthunder/tablenav/internal/shared"
)

// Loader fetches one page of items.
type Loader[T any] func(ctx context.Context, page int) ([]T, error)

// Display shows the item at pos.
type Display[T any] func(pos Position, item T)

// State classifies a position within the sequence.
type State int

const (
	AtStart State = iota
	Middle
	AtEnd
)

func (s State) String() string {
	switch s {
	case AtStart:
		return "start"
	case Middle:
		return "middle"
	case AtEnd:
		return "end"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Position locates the displayed item. Count is the zero-based index in the whole sequence,
// Page the buffer page holding it and Index its slot in that buffer.
type Position struct {
	Count int
	Page  int
	Index int
	Total int
}

// Locate maps count onto its buffer page and slot.
func Locate(count, total, pageSize int) Position {
	return Position{Count: count, Page: count / pageSize, Index: count % pageSize, Total: total}
}

// LastPosition is the position of the final item, e.g. page 2 slot 4 for 25 items in pages of 10.
func LastPosition(total, pageSize int) Position {
	return Locate(total-1, total, pageSize)
}

func (p Position) String() string {
	return fmt.Sprintf("%d/%d", p.Count+1, p.Total)
}

// Option configures a [Viewer].
type Option func(*options)

type options struct {
	logger *log.Logger
}

// WithLogger sets the logger used for loads and failures.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Viewer walks positions 0 through total-1.
type Viewer[T any] struct {
	total    int
	pageSize int
	load     Loader[T]
	display  Display[T]
	logger   *log.Logger

	mu       sync.Mutex
	buffer   []T
	bufPage  int
	count    int
	started  bool
	inFlight bool
}

// New creates a viewer over total items served in pages of pageSize.
func New[T any](total, pageSize int, load Loader[T], display Display[T], opts ...Option) (*Viewer[T], error) {
	if total < 1 {
		return nil, fmt.Errorf("%w: total must be positive, got %d", shared.ErrInvalidInput, total)
	}
	if pageSize < 1 {
		return nil, fmt.Errorf("%w: page size must be positive, got %d", shared.ErrInvalidInput, pageSize)
	}
	if load == nil || display == nil {
		return nil, fmt.Errorf("%w: loader and display are required", shared.ErrMissingArgument)
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = shared.NewLogger(nil)
	}

	return &Viewer[T]{
		total:    total,
		pageSize: pageSize,
		load:     load,
		display:  display,
		logger:   o.logger.WithPrefix("sequence"),
		bufPage:  -1,
	}, nil
}

// Start loads the first page and shows the first item.
func (v *Viewer[T]) Start(ctx context.Context) error {
	return v.move(ctx, true, func(int) (int, error) { return 0, nil })
}

// First shows the first item, loading its page only when it is not buffered.
func (v *Viewer[T]) First(ctx context.Context) error {
	return v.moveTo(ctx, func(int) (int, error) { return 0, nil })
}

// Prev shows the previous item.
func (v *Viewer[T]) Prev(ctx context.Context) error {
	return v.moveTo(ctx, func(count int) (int, error) {
		if count == 0 {
			return 0, shared.ErrBoundary
		}
		return count - 1, nil
	})
}

// Next shows the following item.
func (v *Viewer[T]) Next(ctx context.Context) error {
	return v.moveTo(ctx, func(count int) (int, error) {
		if count >= v.total-1 {
			return 0, shared.ErrBoundary
		}
		return count + 1, nil
	})
}

// Last shows the final item.
func (v *Viewer[T]) Last(ctx context.Context) error {
	return v.moveTo(ctx, func(int) (int, error) { return v.total - 1, nil })
}

// Seek shows the item at count.
func (v *Viewer[T]) Seek(ctx context.Context, count int) error {
	return v.moveTo(ctx, func(int) (int, error) {
		if count < 0 || count >= v.total {
			return 0, fmt.Errorf("%w: position %d outside 0..%d", shared.ErrInvalidPage, count, v.total-1)
		}
		return count, nil
	})
}

// Position returns the current position.
func (v *Viewer[T]) Position() Position {
	v.mu.Lock()
	defer v.mu.Unlock()
	return Locate(v.count, v.total, v.pageSize)
}

// State classifies the current position.
func (v *Viewer[T]) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	switch v.count {
	case 0:
		return AtStart
	case v.total - 1:
		return AtEnd
	default:
		return Middle
	}
}

// Controls applies the page boundary rules to the flat position.
func (v *Viewer[T]) Controls() paging.Controls {
	v.mu.Lock()
	defer v.mu.Unlock()
	c, _ := paging.NewCursorWithLast(v.count, v.total-1)
	return paging.EnabledControls(c)
}

// Total returns the fixed sequence length.
func (v *Viewer[T]) Total() int { return v.total }

// Started reports whether an item has been shown.
func (v *Viewer[T]) Started() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.started
}

func (v *Viewer[T]) moveTo(ctx context.Context, next func(count int) (int, error)) error {
	return v.move(ctx, false, next)
}

func (v *Viewer[T]) move(ctx context.Context, reload bool, next func(count int) (int, error)) error {
	v.mu.Lock()
	if v.inFlight {
		v.mu.Unlock()
		return shared.ErrInFlight
	}
	target, err := next(v.count)
	if err != nil {
		v.mu.Unlock()
		return err
	}
	pos := Locate(target, v.total, v.pageSize)
	buffer, bufPage := v.buffer, v.bufPage
	v.inFlight = true
	v.mu.Unlock()

	defer func() {
		v.mu.Lock()
		v.inFlight = false
		v.mu.Unlock()
	}()

	if reload || pos.Page != bufPage {
		items, err := v.load(ctx, pos.Page)
		if err != nil {
			v.logger.Error("failed to load page", "page", pos.Page, "error", err)
			return fmt.Errorf("page %d: %w", pos.Page, err)
		}
		v.logger.Debug("loaded page", "page", pos.Page, "items", len(items))
		buffer, bufPage = items, pos.Page
	}

	if pos.Index >= len(buffer) {
		return fmt.Errorf("%w: position %d missing from page %d of %d items", shared.ErrNotFound, pos.Count, pos.Page, len(buffer))
	}
	item := buffer[pos.Index]

	v.mu.Lock()
	v.buffer, v.bufPage = buffer, bufPage
	v.count = target
	v.started = true
	v.mu.Unlock()

	v.display(pos, item)
	return nil
}
