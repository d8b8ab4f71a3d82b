// Package ui implements the interactive terminal interfaces using bubbletea's Elm architecture.
//
// Two models are provided:
//  1. [Browser] : several paged collections side by side, one table per collection
//  2. [Viewer] : one participant's snapshots, stepped through one at a time with a range to export
//
// The Browser never moves a page itself. Every fetched page is rendered into [Panes], which recreates the
// page's controls; the navigator registry then binds those controls, and key presses activate them.
// A key whose control is missing or disabled does nothing, so the terminal follows the same boundary rules
// as the served pages.
//
// Blocking work runs inside tea.Cmd functions and reports back through the Msg union type.
package ui
