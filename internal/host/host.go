// Package host implements port.Host for the terminal: progress and
// diagnostics go to a charmbracelet logger, refresh reloads the file state
// cache.
package host

import (
	"context"
	"errors"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/sa6mwa/vdrun/internal/filestate"
	"github.com/sa6mwa/vdrun/port"
)

var ErrNoSelection = errors.New("no target selected")

type Host struct {
	logger *log.Logger
	cache  *filestate.Cache

	mu       sync.Mutex
	selected string
}

var _ port.Host = (*Host)(nil)

func New(logger *log.Logger, cache *filestate.Cache) *Host {
	if logger == nil {
		logger = log.Default()
	}
	if cache == nil {
		cache = filestate.NewCache()
	}
	return &Host{logger: logger, cache: cache}
}

// Select makes target the current selection.
func (h *Host) Select(target string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.selected = target
}

func (h *Host) SelectedTarget() (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.selected == "" {
		return "", ErrNoSelection
	}
	return h.selected, nil
}

func (h *Host) ReportProgress(message string) {
	h.logger.Debug(message)
}

func (h *Host) Refresh(ctx context.Context, target string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	st, err := h.cache.Refresh(target)
	if err != nil {
		return err
	}
	h.logger.Debug("reloaded from disk", "path", target, "size", st.Size, "sha256", st.Digest)
	return nil
}

// Cache returns the file state cache Refresh writes to.
func (h *Host) Cache() *filestate.Cache {
	return h.cache
}
