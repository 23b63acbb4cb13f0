package fs

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"time"
)

// List returns the children of path, directories first, then by name.
//
// Names are compared case-insensitively; names that differ only in case are
// ordered byte-wise so the order is total and stable across calls.
func List(path string) ([]Entry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, classify(path, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, path)
	}

	dirents, err := os.ReadDir(path)
	if err != nil {
		return nil, classify(path, err)
	}

	entries := make([]Entry, 0, len(dirents))
	for _, d := range dirents {
		full := filepath.Join(path, d.Name())
		e := Entry{
			Name: d.Name(),
			Path: full,
			Kind: KindFile,
		}

		if d.Type()&os.ModeSymlink != 0 {
			e.Symlink = true
			// Follow the link to decide the kind; dangling links stay files
			if target, err := os.Stat(full); err == nil && target.IsDir() {
				e.Kind = KindDirectory
			}
		} else if d.IsDir() {
			e.Kind = KindDirectory
		}

		// The child may vanish between ReadDir and Info; keep it with zero values
		if fi, err := d.Info(); err == nil {
			e.Size = fi.Size()
			e.ModTime = fi.ModTime()
		}

		entries = append(entries, e)
	}

	SortEntries(entries)
	return entries, nil
}

// Snap lists path and wraps the result with its directory and timestamp
func Snap(path string) (*Snapshot, error) {
	entries, err := List(path)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		Dir:     path,
		Entries: entries,
		TakenAt: time.Now(),
	}, nil
}

// SortEntries sorts in place: directories before files, then by name
func SortEntries(entries []Entry) {
	slices.SortFunc(entries, compareEntries)
}

func compareEntries(a, b Entry) int {
	if a.IsDir() != b.IsDir() {
		if a.IsDir() {
			return -1
		}
		return 1
	}
	if c := cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
		return c
	}
	return cmp.Compare(a.Name, b.Name)
}

// classify maps OS errors onto the package's sentinel errors
func classify(path string, err error) error {
	switch {
	case errors.Is(err, os.ErrNotExist), errors.Is(err, syscall.ENOTDIR):
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	case errors.Is(err, os.ErrPermission):
		return fmt.Errorf("%w: %s", ErrAccessDenied, path)
	default:
		return fmt.Errorf("list %s: %w", path, err)
	}
}

// Resolve interprets p relative to base unless it is absolute
func Resolve(base, p string) string {
	if !filepath.IsAbs(p) {
		p = filepath.Join(base, p)
	}
	return filepath.Clean(p)
}

// Parent returns the parent directory of path; false at the filesystem root
func Parent(path string) (string, bool) {
	path = filepath.Clean(path)
	parent := filepath.Dir(path)
	if parent == path {
		return path, false
	}
	return parent, true
}

// NearestExistingAncestor walks up from path until it finds an existing
// directory. The filesystem root is returned as a last resort.
func NearestExistingAncestor(path string) string {
	p := filepath.Clean(path)
	for {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			return p
		}
		parent, ok := Parent(p)
		if !ok {
			return p
		}
		p = parent
	}
}
