package shell

// Stream identifies which standard stream a line came from
type Stream string

const (
	Stdout Stream = "stdout"
	Stderr Stream = "stderr"
)

// EventType represents the kind of session event
type EventType string

const (
	// EventStarted is the first event of a session and carries the prompt echo
	EventStarted EventType = "started"
	// EventOutput carries one line of output
	EventOutput EventType = "output"
	// EventDirectoryChanged reports the resolved target of an intercepted cd
	EventDirectoryChanged EventType = "directory_changed"
	// EventExit is the terminal event; exactly one per session
	EventExit EventType = "exit"
)

// Event is one item of a session's ordered event stream.
//
// Lines of the same stream arrive in order; stdout and stderr interleave only
// approximately.
type Event struct {
	SessionID string    `json:"sessionId"`
	Type      EventType `json:"type"`
	Stream    Stream    `json:"stream,omitempty"`
	Text      string    `json:"text,omitempty"`
	Dir       string    `json:"dir,omitempty"`

	// Set on EventExit only
	ExitCode    int  `json:"exitCode"`
	Cancelled   bool `json:"cancelled,omitempty"`
	SpawnFailed bool `json:"spawnFailed,omitempty"`
}

// Terminal reports whether this is the session's final event
func (e Event) Terminal() bool {
	return e.Type == EventExit
}
