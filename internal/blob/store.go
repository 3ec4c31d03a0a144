// Package blob persists raw upload bytes on the local filesystem, outside the
// metadata store. Paths handed out by the store are opaque to callers and
// unique per stored file; files are written once and never mutated in place.
package blob

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Read and Delete when the path does not resolve
// to a stored file. Cleanup paths treat it as success (idempotent delete).
var ErrNotFound = errors.New("blob not found")

// Store is a filesystem-backed blob store rooted at a single directory.
// Writes go to a temp file first and are renamed into place, so a path either
// resolves to a complete file or does not exist.
type Store struct {
	dir string
}

// NewStore creates the root directory if needed and returns a Store over it.
func NewStore(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("blob: directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("blob: create dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the store's root directory.
func (s *Store) Dir() string { return s.dir }

// Save persists data under a unique name derived from originalName and
// returns the opaque path plus the assigned filename. Two saves of identical
// bytes still produce two distinct files: every upload keeps its own blob.
func (s *Store) Save(originalName string, data []byte) (path, filename string, err error) {
	filename = uniqueName(originalName)
	path = filepath.Join(s.dir, filename)

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", "", fmt.Errorf("blob: temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err = tmp.Write(data); err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmpName, path)
	}
	if err != nil {
		_ = os.Remove(tmpName)
		return "", "", fmt.Errorf("blob: save %s: %w", filename, err)
	}
	return path, filename, nil
}

// Read returns the full contents for a path previously returned by Save.
func (s *Store) Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// Delete removes the file at path. A missing file yields ErrNotFound so the
// retention sweep can distinguish "already gone" from real I/O failures.
func (s *Store) Delete(path string) error {
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// uniqueName builds a collision-free on-disk name: the sanitized original
// base name plus a timestamp and a short random suffix, keeping the original
// extension.
func uniqueName(originalName string) string {
	base := sanitize(filepath.Base(originalName))
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if stem == "" {
		stem = "upload"
	}
	stamp := time.Now().UTC().Format("20060102_150405")
	return fmt.Sprintf("%s_%s_%s%s", stem, stamp, uuid.NewString()[:8], ext)
}

// sanitize strips path separators and control characters from a client
// supplied filename, keeping a conservative character set.
func sanitize(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "._")
}
