package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/tablenav/internal/models"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgPageLoaded MsgKind = iota
	MsgNavigated
	MsgSnapshotCount
	MsgSnapshotMoved
	MsgSaved
)

type pageResult struct {
	name string
	err  error
}

type countResult struct {
	total int
	err   error
}

type savedResult struct {
	path string
	size int64
	err  error
}

// pageLoadedMsg is the constructor for [MsgPageLoaded]
func pageLoadedMsg(name string, err error) Msg {
	return Msg{kind: MsgPageLoaded, data: pageResult{name, err}}
}

// navigatedMsg is the constructor for [MsgNavigated]
func navigatedMsg(name string, err error) Msg {
	return Msg{kind: MsgNavigated, data: pageResult{name, err}}
}

// snapshotCountMsg is the constructor for [MsgSnapshotCount]
func snapshotCountMsg(total int, err error) Msg {
	return Msg{kind: MsgSnapshotCount, data: countResult{total, err}}
}

// snapshotMovedMsg is the constructor for [MsgSnapshotMoved]
func snapshotMovedMsg(err error) Msg {
	return Msg{kind: MsgSnapshotMoved, data: err}
}

// savedMsg is the constructor for [MsgSaved]
func savedMsg(path string, size int64, err error) Msg {
	return Msg{kind: MsgSaved, data: savedResult{path, size, err}}
}

// shown is the snapshot on display and its 1-based position.
type shown struct {
	snapshot models.Snapshot
	position int
}
