package paging

import (
	"fmt"

	"github.com/desertthunder/tablenav/internal/shared"
)

// Cursor is the position of one paged collection.
type Cursor struct {
	current int
	last    int
	known   bool
}

// NewCursor creates a cursor at current with an unknown last page.
func NewCursor(current int) Cursor {
	if current < 0 {
		current = 0
	}
	return Cursor{current: current}
}

// NewCursorWithLast creates a cursor whose last page is already known.
func NewCursorWithLast(current, last int) (Cursor, error) {
	if current < 0 || last < 0 {
		return Cursor{}, fmt.Errorf("%w: current=%d last=%d", shared.ErrInvalidPage, current, last)
	}
	if current > last {
		return Cursor{}, fmt.Errorf("%w: current %d is past last %d", shared.ErrInvalidPage, current, last)
	}
	return Cursor{current: current, last: last, known: true}, nil
}

// Current returns the zero-based page index.
func (c Cursor) Current() int { return c.current }

// Last returns the last known page index and whether it is known.
func (c Cursor) Last() (int, bool) { return c.last, c.known }

// Advance moves one page forward. It fails with [shared.ErrBoundary] on the last page.
func (c Cursor) Advance() (Cursor, error) {
	if c.known && c.current >= c.last {
		return c, shared.ErrBoundary
	}
	c.current++
	return c, nil
}

// Retreat moves one page back. It fails with [shared.ErrBoundary] on page 0.
func (c Cursor) Retreat() (Cursor, error) {
	if c.current == 0 {
		return c, shared.ErrBoundary
	}
	c.current--
	return c, nil
}

// JumpFirst moves to page 0.
func (c Cursor) JumpFirst() Cursor {
	c.current = 0
	return c
}

// JumpLast moves to the last known page.
func (c Cursor) JumpLast() (Cursor, error) {
	if !c.known {
		return c, shared.ErrLastUnknown
	}
	c.current = c.last
	return c, nil
}

// MoveTo sets the current page. Targets outside [0, last] are rejected.
func (c Cursor) MoveTo(page int) (Cursor, error) {
	if page < 0 || (c.known && page > c.last) {
		return c, fmt.Errorf("%w: %d", shared.ErrInvalidPage, page)
	}
	c.current = page
	return c, nil
}

// WithLast returns a copy carrying a freshly synced last page index.
//
// The current page is kept even when it now lies past last; the next navigation clamps it.
func (c Cursor) WithLast(last int) Cursor {
	if last < 0 {
		last = 0
	}
	c.last = last
	c.known = true
	return c
}

// Clamp bounds target into [0, last]. With an unknown last only the lower bound applies.
func (c Cursor) Clamp(target int) int {
	if target < 0 {
		return 0
	}
	if c.known && target > c.last {
		return c.last
	}
	return target
}

func (c Cursor) String() string {
	if !c.known {
		return fmt.Sprintf("page %d of ?", c.current)
	}
	return fmt.Sprintf("page %d of %d", c.current, c.last)
}
