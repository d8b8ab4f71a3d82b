package paging

import (
	"fmt"

	"github.com/desertthunder/tablenav/internal/shared"
)

// Kind tags a navigation request.
type Kind int

const (
	First Kind = iota
	Previous
	Next
	Last
	GotoPage
)

func (k Kind) String() string {
	switch k {
	case First:
		return "first"
	case Previous:
		return "previous"
	case Next:
		return "next"
	case Last:
		return "last"
	case GotoPage:
		return "goto"
	default:
		return ""
	}
}

// Action is a request to move a cursor.
type Action struct {
	Kind Kind
	Page int // target for GotoPage only
}

// Boundary actions.
var (
	FirstAction    = Action{Kind: First}
	PreviousAction = Action{Kind: Previous}
	NextAction     = Action{Kind: Next}
	LastAction     = Action{Kind: Last}
)

// Goto builds a direct page jump.
func Goto(page int) Action {
	return Action{Kind: GotoPage, Page: page}
}

// Boundary reports whether the action is one of first/previous/next/last.
func (a Action) Boundary() bool {
	return a.Kind != GotoPage
}

// Target computes the page the action asks for, clamped into the cursor's known bounds.
//
// Stepping past an edge yields the edge itself, so the caller can detect a no-op by
// comparing the target with the current page.
func (a Action) Target(c Cursor) (int, error) {
	switch a.Kind {
	case First:
		return 0, nil
	case Previous:
		return c.Clamp(c.current - 1), nil
	case Next:
		return c.Clamp(c.current + 1), nil
	case Last:
		last, ok := c.Last()
		if !ok {
			return 0, fmt.Errorf("last action: %w", shared.ErrLastUnknown)
		}
		return last, nil
	case GotoPage:
		if a.Page < 0 {
			return 0, fmt.Errorf("%w: %d", shared.ErrInvalidPage, a.Page)
		}
		return c.Clamp(a.Page), nil
	default:
		return 0, fmt.Errorf("unknown action kind %d", a.Kind)
	}
}

func (a Action) String() string {
	if a.Kind == GotoPage {
		return fmt.Sprintf("goto(%d)", a.Page)
	}
	return a.Kind.String()
}
