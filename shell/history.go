package shell

import "sync"

// History is an append-only log of submitted commands with a recall cursor.
// The cursor ranges over [0, Len()]; Len() stands for fresh input.
type History struct {
	mu      sync.Mutex
	entries []string
	cursor  int
}

// NewHistory creates an empty history
func NewHistory() *History {
	return &History{}
}

// Add appends a command and resets the cursor to fresh input
func (h *History) Add(command string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, command)
	h.cursor = len(h.entries)
}

// Previous moves the cursor back and returns the entry under it.
// Returns false when the history is empty; stays on the oldest entry.
func (h *History) Previous() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) == 0 {
		return "", false
	}
	if h.cursor > 0 {
		h.cursor--
	}
	return h.entries[h.cursor], true
}

// Next moves the cursor forward. Moving past the newest entry returns
// ("", true) for fresh input; at fresh input it returns false.
func (h *History) Next() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cursor >= len(h.entries) {
		return "", false
	}
	h.cursor++
	if h.cursor == len(h.entries) {
		return "", true
	}
	return h.entries[h.cursor], true
}

// Entries returns a copy of all commands, oldest first
func (h *History) Entries() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.entries))
	copy(out, h.entries)
	return out
}

// Len returns the number of recorded commands
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Cursor returns the recall position; Len() means fresh input
func (h *History) Cursor() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cursor
}
