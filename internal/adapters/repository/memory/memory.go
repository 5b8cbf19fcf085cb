// Package memory implements an in-memory snapshot repository.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/vshulcz/metricsnap/internal/domain"
	"github.com/vshulcz/metricsnap/internal/ports"
)

// Repo keeps captures in memory with coarse-grained RW locking.
type Repo struct {
	captures map[string]domain.Capture
	mu       sync.RWMutex
}

var _ ports.SnapshotRepo = (*Repo)(nil)

// New returns an empty in-memory repository.
func New() *Repo {
	return &Repo{captures: make(map[string]domain.Capture)}
}

// Put stores c, replacing any capture with the same name.
func (r *Repo) Put(_ context.Context, c domain.Capture) error {
	if c.Name == "" {
		return domain.ErrInvalidName
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.captures[c.Name] = c
	return nil
}

// Get returns the capture or domain.ErrNotFound.
func (r *Repo) Get(_ context.Context, name string) (domain.Capture, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.captures[name]
	if !ok {
		return domain.Capture{}, domain.ErrNotFound
	}
	return c, nil
}

// Delete removes the capture or returns domain.ErrNotFound.
func (r *Repo) Delete(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.captures[name]; !ok {
		return domain.ErrNotFound
	}
	delete(r.captures, name)
	return nil
}

// Names lists stored captures in sorted order.
func (r *Repo) Names(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.captures)), nil
}
