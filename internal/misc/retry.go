package misc

import (
	"context"
	"time"
)

// DefaultBackoff is used by HTTP clients when no retry schedule is configured.
var DefaultBackoff = []time.Duration{
	1 * time.Second,
	3 * time.Second,
	5 * time.Second,
}

// Backoff returns n delays starting at base and growing by base each step:
// base, 2*base, 3*base...
func Backoff(n int, base time.Duration) []time.Duration {
	if n <= 0 || base <= 0 {
		return nil
	}
	out := make([]time.Duration, n)
	for i := range out {
		out[i] = time.Duration(i+1) * base
	}
	return out
}

// Retry runs op until it succeeds, returns an error isRetryable rejects, or
// the delays run out. It makes at most len(delays)+1 attempts.
func Retry(ctx context.Context, delays []time.Duration, isRetryable func(error) bool, op func() error) error {
	var err error
	for i := 0; ; i++ {
		if err = op(); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if i >= len(delays) || !isRetryable(err) {
			return err
		}
		t := time.NewTimer(delays[i])
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}
