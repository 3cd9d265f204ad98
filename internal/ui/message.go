package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/scrapectl/internal/models"
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
	MsgTasksFetched MsgKind = iota
	MsgTaskAdded
	MsgSnapshot
	MsgStreamFatal
	MsgInterruptDone
)

type tasksFetched struct {
	tasks []models.TaskSummary
	err   error
}

type taskAdded struct {
	id  int
	err error
}

// streamEvent carries the session it belongs to so updates from a closed session are ignored.
type streamEvent struct {
	seq      int
	snapshot models.TaskSnapshot
	err      error
}

// tasksFetchedMsg is the constructor for [MsgTasksFetched]
func tasksFetchedMsg(tasks []models.TaskSummary, err error) Msg {
	return Msg{kind: MsgTasksFetched, data: tasksFetched{tasks, err}}
}

// taskAddedMsg is the constructor for [MsgTaskAdded]
func taskAddedMsg(id int, err error) Msg {
	return Msg{kind: MsgTaskAdded, data: taskAdded{id, err}}
}

// snapshotMsg is the constructor for [MsgSnapshot]
func snapshotMsg(seq int, snap models.TaskSnapshot) Msg {
	return Msg{kind: MsgSnapshot, data: streamEvent{seq: seq, snapshot: snap}}
}

// streamFatalMsg is the constructor for [MsgStreamFatal]
func streamFatalMsg(seq int, err error) Msg {
	return Msg{kind: MsgStreamFatal, data: streamEvent{seq: seq, err: err}}
}

// interruptDoneMsg is the constructor for [MsgInterruptDone]
func interruptDoneMsg(err error) Msg {
	return Msg{kind: MsgInterruptDone, data: err}
}
