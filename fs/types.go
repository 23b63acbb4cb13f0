package fs

import "time"

// Kind distinguishes directories from everything else in a listing
type Kind string

const (
	KindDirectory Kind = "directory"
	KindFile      Kind = "file"
)

// Entry is one child of a listed directory. It is recomputed on every refresh.
type Entry struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	Kind    Kind      `json:"kind"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modTime"`
	Symlink bool      `json:"symlink,omitempty"`
}

// IsDir reports whether the entry is a directory (or a link to one)
func (e Entry) IsDir() bool {
	return e.Kind == KindDirectory
}

// Snapshot is a point-in-time listing of one directory
type Snapshot struct {
	Dir     string    `json:"dir"`
	Entries []Entry   `json:"entries"`
	TakenAt time.Time `json:"takenAt"`
}

// LostEvent reports that the watched directory can no longer be observed
type LostEvent struct {
	Path string
	Err  error
}
