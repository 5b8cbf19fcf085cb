package metricsdiff

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/vshulcz/metricsnap/pkg/metricsnap"
)

var (
	// ErrNotStarted is returned by End when Begin was not called.
	ErrNotStarted = errors.New("metrics diff session not started")
	// ErrNotFinished is returned by queries issued before End.
	ErrNotFinished = errors.New("metrics diff session not finished")
)

// Fetcher loads the current snapshot of a service, limited to prefix.
type Fetcher interface {
	Fetch(ctx context.Context, prefix string) (*metricsnap.Snapshot, error)
}

// Session captures a snapshot before an action and diffs it against the
// snapshot taken after:
//
//	s := metricsdiff.NewSession(client, metricsdiff.Options{Prefix: "httpclient"})
//	_ = s.Begin(ctx)
//	// ... exercise the service ...
//	_ = s.End(ctx)
//	v, err := s.ValueAt("errors", metricsnap.Labels{"http_error": "ok"})
type Session struct {
	fetcher Fetcher
	before  *metricsnap.Snapshot
	result  *metricsnap.Snapshot
	opts    Options
	mu      sync.Mutex
}

// NewSession returns an idle session.
func NewSession(f Fetcher, opts Options) *Session {
	return &Session{fetcher: f, opts: opts}
}

// Begin records the baseline snapshot and discards any previous result.
func (s *Session) Begin(ctx context.Context) error {
	snap, err := s.fetcher.Fetch(ctx, s.opts.Prefix)
	if err != nil {
		return fmt.Errorf("fetch baseline: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.before = snap
	s.result = nil
	return nil
}

// End fetches the current snapshot and computes the diff against the baseline.
func (s *Session) End(ctx context.Context) error {
	s.mu.Lock()
	before := s.before
	s.mu.Unlock()
	if before == nil {
		return ErrNotStarted
	}

	after, err := s.fetcher.Fetch(ctx, s.opts.Prefix)
	if err != nil {
		return fmt.Errorf("fetch current: %w", err)
	}
	diff, err := Diff(before, after, s.opts)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = diff
	return nil
}

// Result returns the diff computed by End.
func (s *Session) Result() (*metricsnap.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return nil, ErrNotFinished
	}
	return s.result, nil
}

// ValueAt queries the diff with exact labels.
func (s *Session) ValueAt(path string, labels metricsnap.Labels) (int64, error) {
	res, err := s.Result()
	if err != nil {
		return 0, err
	}
	return res.ValueAt(path, labels)
}

// ValueAtPath queries the diff for the only metric at path.
func (s *Session) ValueAtPath(path string) (int64, error) {
	res, err := s.Result()
	if err != nil {
		return 0, err
	}
	return res.ValueAtPath(path)
}
