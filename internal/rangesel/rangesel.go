// Package rangesel turns a two-handle slider over positions 1..total into export requests.
package rangesel

import (
	"fmt"
	"math"
	"sync"

	"github.com/desertthunder/tablenav/internal/models"
	"github.com/desertthunder/tablenav/internal/shared"
)

// Selection is the range covered by the handles, 1-based and inclusive.
type Selection struct {
	Start int
	End   int
}

// Len is the number of positions covered.
func (s Selection) Len() int {
	if s.End < s.Start {
		return 0
	}
	return s.End - s.Start + 1
}

func (s Selection) String() string {
	return fmt.Sprintf("%d-%d", s.Start, s.End)
}

// Handle identifies one of the slider's handles.
type Handle int

const (
	Lower Handle = iota
	Upper
)

// Target names whose snapshots a request exports.
type Target struct {
	Experiment int
	User       int
}

// Selector holds the slider state and publishes every change.
type Selector struct {
	total int

	mu          sync.Mutex
	lower       float64
	upper       float64
	subscribers []func(Selection)
}

// New creates a selector spanning [1, total] with both ends selected.
func New(total int) (*Selector, error) {
	if total < 1 {
		return nil, fmt.Errorf("%w: nothing to select from %d items", shared.ErrInvalidInput, total)
	}
	return &Selector{total: total, lower: 1, upper: float64(total)}, nil
}

// Total returns the upper bound of the slider.
func (s *Selector) Total() int { return s.total }

// Subscribe registers fn to receive the selection after every move.
func (s *Selector) Subscribe(fn func(Selection)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// Move places both handles. Values outside the slider are clamped and fractions dropped;
// a reversed pair is swapped so the handles never cross.
func (s *Selector) Move(lower, upper float64) Selection {
	lower, upper = s.clamp(lower), s.clamp(upper)
	if lower > upper {
		lower, upper = upper, lower
	}

	s.mu.Lock()
	s.lower, s.upper = lower, upper
	return s.publish()
}

// Set places one handle, stopping it at the other.
func (s *Selector) Set(h Handle, v float64) Selection {
	s.mu.Lock()
	s.place(h, s.clamp(v))
	return s.publish()
}

// Nudge moves one handle by delta unit steps without letting it pass the other.
func (s *Selector) Nudge(h Handle, delta int) Selection {
	s.mu.Lock()
	if h == Lower {
		s.place(Lower, s.clamp(s.lower+float64(delta)))
	} else {
		s.place(Upper, s.clamp(s.upper+float64(delta)))
	}
	return s.publish()
}

// Selection returns the current range.
func (s *Selector) Selection() Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection()
}

// Request builds the export request for the current range.
//
// Without includeEnd the range stops just before End, so a single position is only exportable with it.
func (s *Selector) Request(includeEnd bool, target Target) (models.ExportRequest, error) {
	sel := s.Selection()
	if sel.Start > sel.End {
		return models.ExportRequest{}, fmt.Errorf("%w: start %d after end %d", shared.ErrInvalidRange, sel.Start, sel.End)
	}
	if !includeEnd && sel.Start == sel.End {
		return models.ExportRequest{}, fmt.Errorf("%w: range %s is empty without its end", shared.ErrInvalidRange, sel)
	}

	req := models.ExportRequest{
		Experiment: target.Experiment,
		User:       target.User,
		Start:      sel.Start,
		End:        sel.End,
		IncludeEnd: includeEnd,
	}
	if err := req.Validate(); err != nil {
		return models.ExportRequest{}, err
	}
	return req, nil
}

// place must be called with mu held.
func (s *Selector) place(h Handle, v float64) {
	if h == Lower {
		s.lower = math.Min(v, s.upper)
	} else {
		s.upper = math.Max(v, s.lower)
	}
}

func (s *Selector) clamp(v float64) float64 {
	if math.IsNaN(v) || v < 1 {
		return 1
	}
	return math.Min(v, float64(s.total))
}

func (s *Selector) selection() Selection {
	return Selection{Start: int(math.Trunc(s.lower)), End: int(math.Trunc(s.upper))}
}

// publish must be called with mu held and releases it before notifying.
func (s *Selector) publish() Selection {
	sel := s.selection()
	subscribers := append([]func(Selection){}, s.subscribers...)
	s.mu.Unlock()

	for _, fn := range subscribers {
		fn(sel)
	}
	return sel
}
