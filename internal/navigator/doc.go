// Package navigator drives server-backed paged collections.
//
// # Collection Navigator
//
// A [CollectionNavigator] owns exactly one [paging.Cursor] and talks to the backend through a [Fetcher].
// [CollectionNavigator.Goto] runs the navigation protocol:
//  1. refuse to start while another goto on the same navigator is outstanding ([shared.ErrInFlight])
//  2. resync the last page through the count endpoint when the [RefreshPolicy] asks for it
//  3. compute and clamp the target page; stop without fetching when it equals the current page
//  4. fetch the page, hand the fragment to the [Renderer], then commit the cursor
//  5. notify subscribers (the [Registry]) so controls are re-bound against the new content
//
// Failures leave the current page and the rendered container untouched and are reported once through
// the configured error handler.
//
// Every goto takes a request token. [CollectionNavigator.Reset] invalidates outstanding tokens, so a
// response that arrives after a reset is discarded with [shared.ErrStaleResponse] instead of being rendered.
//
// # Registry
//
// Rendering replaces a container's content, which drops whatever handlers were attached to the old controls.
// The [Registry] answers every render with a rebind: it looks the container's [Surface] up again and attaches
// the four navigation actions plus any extra bindings (modal triggers and the like) to whichever controls exist.
// Controls missing from a fragment are skipped.
package navigator
