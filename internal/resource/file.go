// Package resource provides file-backed resources that keywords can be
// requested for.
package resource

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// File is a resource backed by a file on disk. Its fingerprint is the
// SHA-256 of the content unless replaced with WithFingerprint.
type File struct {
	path        string
	fingerprint string
	ext         string
	size        int64
	temporary   bool
}

// OpenFile creates a resource for the file at path. The content is hashed
// once, streaming; the extension is taken from the file name.
func OpenFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	h := sha256.New()
	size, err := io.Copy(h, f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return &File{
		path:        path,
		fingerprint: hex.EncodeToString(h.Sum(nil)),
		ext:         normalizeExtension(filepath.Ext(path)),
		size:        size,
	}, nil
}

// Spool copies r to a temporary file in dir, hashing it on the way. The
// content is never held in memory. Call Remove once the resource is no longer
// needed.
func Spool(r io.Reader, dir, ext string) (*File, error) {
	tmp, err := os.CreateTemp(dir, "resource-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create spool file: %w", err)
	}

	h := sha256.New()
	size, err := io.Copy(io.MultiWriter(tmp, h), r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return nil, fmt.Errorf("failed to spool resource: %w", err)
	}

	return &File{
		path:        tmp.Name(),
		fingerprint: hex.EncodeToString(h.Sum(nil)),
		ext:         normalizeExtension(ext),
		size:        size,
		temporary:   true,
	}, nil
}

// WithFingerprint returns a copy of f identified by fingerprint instead of
// its content hash. An empty fingerprint leaves f unchanged.
func (f *File) WithFingerprint(fingerprint string) *File {
	if fingerprint == "" {
		return f
	}

	c := *f
	c.fingerprint = fingerprint
	return &c
}

func (f *File) Fingerprint() string {
	return f.fingerprint
}

// Extension is the lower-cased extension without the leading dot.
func (f *File) Extension() (string, bool) {
	return f.ext, f.ext != ""
}

// Size is the length of the content in bytes.
func (f *File) Size() int64 {
	return f.size
}

func (f *File) Open() (io.ReadCloser, error) {
	return os.Open(f.path)
}

// Remove deletes the file if it was created by Spool. Files opened with
// OpenFile are left alone.
func (f *File) Remove() error {
	if !f.temporary {
		return nil
	}
	return os.Remove(f.path)
}

func normalizeExtension(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
