package browser

import "errors"

var (
	// ErrClosed is returned by entry points after Close
	ErrClosed = errors.New("controller closed")

	// ErrNotStarted is returned by entry points before Start
	ErrNotStarted = errors.New("controller not started")

	// ErrAlreadyStarted is returned by a second Start
	ErrAlreadyStarted = errors.New("controller already started")
)
