// Package journal appends snapshot events to a newline-delimited JSON file.
package journal

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/vshulcz/metricsnap/internal/services/notify"
)

// Journal appends one JSON line per event to path.
type Journal struct {
	path string
	mu   sync.Mutex
}

var _ notify.Observer = (*Journal)(nil)

func New(path string) *Journal {
	return &Journal{path: path}
}

// Notify writes evt as a single line. The file is opened per event so it can
// be rotated externally.
func (j *Journal) Notify(_ context.Context, evt notify.Event) (retErr error) {
	if j == nil || j.path == "" {
		return nil
	}
	line, err := evt.Encode()
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := os.OpenFile(j.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && retErr == nil {
			retErr = fmt.Errorf("close journal: %w", cerr)
		}
	}()
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write journal: %w", err)
	}
	return nil
}
