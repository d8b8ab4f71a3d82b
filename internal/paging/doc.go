// Package paging holds the pure bookkeeping behind paged collections.
//
// A [Cursor] records the zero-based page currently shown and, once known, the last page index.
// Cursors are values: every operation returns a new [Cursor] and leaves the receiver untouched,
// so a navigator can compute a target page and only commit it after the fetch succeeds.
//
// [EnabledControls] is the boundary policy. It is the only place that decides which of the
// first/previous/next/last controls are usable; callers recompute it after every move and every
// render instead of toggling controls by hand.
package paging
