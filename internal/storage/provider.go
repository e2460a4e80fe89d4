// Package storage defines the file-system abstraction used for clips,
// daily notes and the forwarding mailbox.
package storage

import "time"

// FileInfo describes one file returned by List.
type FileInfo struct {
	// Path is relative to the provider root, using the OS separator.
	Path    string
	Name    string
	ModTime time.Time
	// CreatedAt is the file's birth time, or the zero time when the
	// platform or file system cannot report it.
	CreatedAt time.Time
}

// Provider is the interface for rooted file operations.
type Provider interface {
	// Root returns the absolute root directory.
	Root() string
	// List returns the regular files directly inside dir whose name ends
	// with ext. Hidden files are skipped.
	List(dir, ext string) ([]FileInfo, error)
	// Read returns the raw bytes of the file at path (relative to root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to root).
	Write(path string, content []byte) error
	// Delete removes the file at path (relative to root).
	Delete(path string) error
	// MkdirAll creates dir (relative to root) and any missing parents.
	MkdirAll(dir string) error
}
