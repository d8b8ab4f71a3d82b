// Package server provides HTTP routing, middleware and the in-memory dev backend.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] for paths and answers 405 with an Allow header
// when a path is known but the method is not.
//
// # Dev Backend
//
// [Backend] serves the endpoints the client consumes from a [Store]:
//
//	GET  /page/course                    → courses page fragment
//	GET  /pages/home/course              → last page index of courses
//	GET  /page/experiment                → experiments page fragment
//	GET  /pages/home/experiment          → last page index of experiments
//	GET  /page/course/experiment?id=     → experiments of one course
//	GET  /pages/course/experiment?id=    → last page index, -1 for an unknown course
//	GET  /search/suggestions?query=      → up to five fuzzy matches
//	GET  /search/{category}?query=&page= → one page of matches
//	GET  /result/count                   → snapshot count of a participant
//	GET  /result/codes                   → one page of snapshots
//	GET  /result/sb3s                    → zip of a range, step or full selection
//	GET  /result/generate?json=          → one snapshot as a project file
//	POST /dev/rows?collection=&delta=    → add rows, or remove them from the front
//
// Errors are JSON objects with an "error" field.
//
// Mutating rows between a count and a page request reproduces the stale last page a navigator must tolerate.
package server
