package paging

// Controls reports which navigation controls are usable.
type Controls struct {
	First bool
	Prev  bool
	Next  bool
	Last  bool
}

// EnabledControls maps a cursor onto its control availability.
//
// First and Prev require current > 0. Next and Last require current < last.
// While the last page is unknown, Next and Last stay enabled so the navigator can resync.
func EnabledControls(c Cursor) Controls {
	back := c.current > 0
	forward := !c.known || c.current < c.last
	return Controls{First: back, Prev: back, Next: forward, Last: forward}
}

// Enabled reports the availability of a single action.
func (c Controls) Enabled(kind Kind) bool {
	switch kind {
	case First:
		return c.First
	case Previous:
		return c.Prev
	case Next:
		return c.Next
	case Last:
		return c.Last
	default:
		return true
	}
}

// HasMore reports whether a load-more list still has unseen rows after loaded pages of pageSize.
func HasMore(count, loaded, pageSize int) bool {
	if pageSize <= 0 {
		return false
	}
	return count > loaded*pageSize
}

// LastPageIndex returns the zero-based index of the last page for count rows.
//
// An empty collection still has page 0.
func LastPageIndex(count, pageSize int) int {
	if count <= 0 || pageSize <= 0 {
		return 0
	}
	return (count - 1) / pageSize
}
