package domain

import (
	"time"

	"github.com/vshulcz/metricsnap/pkg/metricsnap"
)

// Capture is a snapshot stored under a name for later comparison.
type Capture struct {
	TakenAt  time.Time
	Snapshot *metricsnap.Snapshot
	Name     string
}
