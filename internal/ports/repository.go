package ports

import (
	"context"

	"github.com/vshulcz/metricsnap/internal/domain"
	"github.com/vshulcz/metricsnap/pkg/metricsnap"
)

// SnapshotSource produces the current metrics of a running service.
type SnapshotSource interface {
	Snapshot(ctx context.Context, prefix string) (*metricsnap.Snapshot, error)
}

// SnapshotRepo keeps named captures.
type SnapshotRepo interface {
	Put(ctx context.Context, c domain.Capture) error
	Get(ctx context.Context, name string) (domain.Capture, error)
	Delete(ctx context.Context, name string) error
	Names(ctx context.Context) ([]string, error)
}
