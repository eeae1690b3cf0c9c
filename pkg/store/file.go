package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// File is a Store persisting each entry as a file under a root
// directory. Keys are hashed and sharded into nested directories so a
// large cache does not degenerate into one huge flat directory. Writes
// go through a temporary file followed by an atomic rename, so a reader
// never observes a partially written entry.
type File struct {
	root     string
	fileMode os.FileMode
	dirMode  os.FileMode
}

// NewFile creates a file store rooted at dir, creating it if needed.
func NewFile(dir string) (*File, error) {
	f := &File{
		root:     dir,
		fileMode: 0o600,
		dirMode:  0o700,
	}
	if err := os.MkdirAll(dir, f.dirMode); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	return f, nil
}

// path maps a key to its on-disk location: the first five hex characters
// of the hash become nesting levels, followed by the full hash as the
// file name.
func (f *File) path(key string) string {
	sum := sha256.Sum224([]byte(key))
	hashed := hex.EncodeToString(sum[:])
	parts := make([]string, 0, 7)
	parts = append(parts, f.root)
	for _, c := range hashed[:5] {
		parts = append(parts, string(c))
	}
	parts = append(parts, hashed)
	return filepath.Join(parts...)
}

// Get returns the bytes stored under key, or ErrNotFound.
func (f *File) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read cache file: %w", err)
	}
	return data, nil
}

// Set stores value under key.
func (f *File) Set(_ context.Context, key string, value []byte) error {
	path := f.path(key)
	if err := os.MkdirAll(filepath.Dir(path), f.dirMode); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if err := tmp.Chmod(f.fileMode); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close cache file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename cache file: %w", err)
	}
	return nil
}

// Delete removes key. An absent key is not an error.
func (f *File) Delete(_ context.Context, key string) error {
	if err := os.Remove(f.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove cache file: %w", err)
	}
	return nil
}
