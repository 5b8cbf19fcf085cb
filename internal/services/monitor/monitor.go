// Package monitor stores named metric snapshots and answers comparisons and
// queries over them.
package monitor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vshulcz/metricsnap/internal/domain"
	"github.com/vshulcz/metricsnap/internal/ports"
	"github.com/vshulcz/metricsnap/pkg/metricsdiff"
	"github.com/vshulcz/metricsnap/pkg/metricsnap"
)

type Service struct {
	src        ports.SnapshotSource
	repo       ports.SnapshotRepo
	isGauge    func(string) bool
	onCaptured func(context.Context, domain.Capture)
	now        func() time.Time
}

func New(src ports.SnapshotSource, repo ports.SnapshotRepo, isGauge func(string) bool, onCaptured func(context.Context, domain.Capture)) *Service {
	return &Service{src: src, repo: repo, isGauge: isGauge, onCaptured: onCaptured, now: time.Now}
}

// Live returns the current snapshot of the source limited to prefix.
func (s *Service) Live(ctx context.Context, prefix string) (*metricsnap.Snapshot, error) {
	return s.src.Snapshot(ctx, strings.TrimSpace(prefix))
}

// Capture stores the current source snapshot under name.
func (s *Service) Capture(ctx context.Context, name, prefix string) (domain.Capture, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Capture{}, domain.ErrInvalidName
	}
	snap, err := s.Live(ctx, prefix)
	if err != nil {
		return domain.Capture{}, fmt.Errorf("capture %q: %w", name, err)
	}
	return s.Put(ctx, name, snap)
}

// Put stores a snapshot received from elsewhere under name.
func (s *Service) Put(ctx context.Context, name string, snap *metricsnap.Snapshot) (domain.Capture, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Capture{}, domain.ErrInvalidName
	}
	c := domain.Capture{Name: name, Snapshot: snap, TakenAt: s.now()}
	if err := s.repo.Put(ctx, c); err != nil {
		return domain.Capture{}, err
	}
	if s.onCaptured != nil {
		s.onCaptured(ctx, c)
	}
	return c, nil
}

func (s *Service) Get(ctx context.Context, name string) (domain.Capture, error) {
	return s.repo.Get(ctx, strings.TrimSpace(name))
}

func (s *Service) Delete(ctx context.Context, name string) error {
	return s.repo.Delete(ctx, strings.TrimSpace(name))
}

func (s *Service) Names(ctx context.Context) ([]string, error) {
	return s.repo.Names(ctx)
}

// Diff compares two stored captures. An empty after compares against the
// live source.
func (s *Service) Diff(ctx context.Context, before, after, prefix string, diffGauge bool) (*metricsnap.Snapshot, error) {
	b, err := s.Get(ctx, before)
	if err != nil {
		return nil, fmt.Errorf("before %q: %w", before, err)
	}

	var current *metricsnap.Snapshot
	if strings.TrimSpace(after) == "" {
		if current, err = s.Live(ctx, prefix); err != nil {
			return nil, fmt.Errorf("live: %w", err)
		}
	} else {
		a, err := s.Get(ctx, after)
		if err != nil {
			return nil, fmt.Errorf("after %q: %w", after, err)
		}
		current = a.Snapshot
	}

	return metricsdiff.Diff(b.Snapshot, current, metricsdiff.Options{
		Prefix:    strings.TrimSpace(prefix),
		DiffGauge: diffGauge,
		IsGauge:   s.isGauge,
	})
}

// ValueAt queries a stored capture. Nil labels select the only metric at path.
func (s *Service) ValueAt(ctx context.Context, name, path string, labels metricsnap.Labels) (int64, error) {
	c, err := s.Get(ctx, name)
	if err != nil {
		return 0, err
	}
	if labels == nil {
		return c.Snapshot.ValueAtPath(path)
	}
	return c.Snapshot.ValueAt(path, labels)
}
