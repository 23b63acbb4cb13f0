package fs

import "errors"

var (
	// ErrNotFound is returned when a directory doesn't exist at call time
	ErrNotFound = errors.New("directory not found")

	// ErrAccessDenied is returned when the OS refuses to read a directory
	ErrAccessDenied = errors.New("access denied")

	// ErrNotDirectory is returned when a listing is requested for a file
	ErrNotDirectory = errors.New("not a directory")

	// ErrWatchLost is returned when a directory watch cannot be established or kept
	ErrWatchLost = errors.New("directory watch lost")

	// ErrWatcherClosed is returned by Retarget after Close
	ErrWatcherClosed = errors.New("watcher closed")
)
