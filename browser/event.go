package browser

import (
	"github.com/weeksdev/duckfinder/fs"
	"github.com/weeksdev/duckfinder/shell"
)

// EventType is the kind of view event
type EventType string

const (
	EventDirectory EventType = "directory"
	EventSnapshot  EventType = "snapshot"
	EventOutput    EventType = "output"
	EventWatchLost EventType = "watch_lost"
	EventError     EventType = "error"
)

// Event is what the view observes. Dir is set for directory, watch_lost and
// error events; exactly one of Snapshot and Output is set for the others.
type Event struct {
	Type     EventType    `json:"type"`
	Dir      string       `json:"dir,omitempty"`
	Snapshot *fs.Snapshot `json:"snapshot,omitempty"`
	Output   *shell.Event `json:"output,omitempty"`
	Error    string       `json:"error,omitempty"`
}

// State is the last committed directory and its listing
type State struct {
	Dir      string       `json:"dir"`
	Snapshot *fs.Snapshot `json:"snapshot"`
}
