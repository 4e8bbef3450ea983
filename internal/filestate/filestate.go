// Package filestate keeps the host's mirrored view of files on disk: size,
// modification time and content digest as of the last refresh.
package filestate

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// State is a snapshot of one file.
type State struct {
	Size    int64
	ModTime time.Time
	Digest  string
}

// Cache maps absolute paths to their last known State. It is safe for
// concurrent use.
type Cache struct {
	mu    sync.Mutex
	files map[string]State
}

func NewCache() *Cache {
	return &Cache{files: make(map[string]State)}
}

// Get returns the cached state of path.
func (c *Cache) Get(path string) (State, bool) {
	key, err := filepath.Abs(path)
	if err != nil {
		return State{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.files[key]
	return s, ok
}

// Refresh drops the cached state of path and reloads it from disk. A file
// that no longer exists is evicted and reported as fs.ErrNotExist.
func (c *Cache) Refresh(path string) (State, error) {
	key, err := filepath.Abs(path)
	if err != nil {
		return State{}, err
	}
	c.mu.Lock()
	delete(c.files, key)
	c.mu.Unlock()

	s, err := Read(key)
	if err != nil {
		return State{}, err
	}
	c.mu.Lock()
	c.files[key] = s
	c.mu.Unlock()
	return s, nil
}

// Unchanged reports whether path on disk still matches its cached digest.
// Paths never refreshed are considered changed.
func (c *Cache) Unchanged(path string) bool {
	cached, ok := c.Get(path)
	if !ok {
		return false
	}
	current, err := Read(path)
	if err != nil {
		return false
	}
	return current.Digest == cached.Digest
}

// Read computes the State of path.
func Read(path string) (State, error) {
	f, err := os.Open(path)
	if err != nil {
		return State{}, err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return State{}, err
	}
	if !st.Mode().IsRegular() {
		return State{}, fmt.Errorf("%s: %w", path, errNotRegular)
	}
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return State{}, fmt.Errorf("hash %s: %w", path, err)
	}
	return State{
		Size:    st.Size(),
		ModTime: st.ModTime(),
		Digest:  hex.EncodeToString(h.Sum(nil)),
	}, nil
}

var errNotRegular = errors.New("not a regular file")

// IsNotExist reports whether err means the file is gone.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
