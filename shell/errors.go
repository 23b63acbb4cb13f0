package shell

import "errors"

var (
	// ErrSessionBusy is returned by Submit while a previous session is still live
	ErrSessionBusy = errors.New("a command is already running")

	// ErrEmptyCommand is returned by Submit for blank command lines
	ErrEmptyCommand = errors.New("empty command")

	// ErrSessionNotFound is returned by Cancel for an unknown session id
	ErrSessionNotFound = errors.New("session not found")

	// ErrSpawnFailed prefixes the terminal event text when the shell can't start
	ErrSpawnFailed = errors.New("failed to start shell")

	// ErrRunnerClosed is returned by Submit after Close
	ErrRunnerClosed = errors.New("runner closed")
)
