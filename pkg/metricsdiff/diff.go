// Package metricsdiff derives a snapshot of changes between two metric
// snapshots taken before and after an action under test.
package metricsdiff

import (
	"strings"

	"github.com/vshulcz/metricsnap/pkg/metricsnap"
)

// Options control which paths are compared and how gauges are treated.
type Options struct {
	// IsGauge reports whether a full (unprefixed) path holds gauges.
	// Nil means every path holds counters.
	IsGauge func(path string) bool
	// Prefix keeps only paths equal to it or under "Prefix." and strips it.
	Prefix string
	// DiffGauge subtracts gauges as well; otherwise gauges keep the after value.
	DiffGauge bool
}

// GaugePaths returns an IsGauge func matching the given full paths.
func GaugePaths(paths ...string) func(string) bool {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}
	return func(path string) bool {
		_, ok := set[path]
		return ok
	}
}

// Diff returns after minus before for every metric in after. A metric missing
// from before counts from zero; metrics only present in before are dropped.
func Diff(before, after *metricsnap.Snapshot, opts Options) (*metricsnap.Snapshot, error) {
	out := make(map[string]*metricsnap.MetricSet, after.Len())
	for path, set := range after.Items() {
		name, ok := StripPrefix(path, opts.Prefix)
		if !ok {
			continue
		}
		subtract := opts.DiffGauge || opts.IsGauge == nil || !opts.IsGauge(path)
		prev, _ := before.Get(path)

		metrics := make([]metricsnap.Metric, 0, set.Len())
		for _, m := range set.Metrics() {
			v := m.Value
			if subtract {
				v -= baseline(prev, m.Labels)
			}
			metrics = append(metrics, metricsnap.NewMetric(m.Labels, v))
		}
		diffed, err := metricsnap.NewMetricSet(metrics...)
		if err != nil {
			return nil, err
		}
		out[name] = diffed
	}
	return metricsnap.New(out), nil
}

// StripPrefix reports whether path lies under prefix and returns the rest.
// A path equal to prefix keeps its full name.
func StripPrefix(path, prefix string) (string, bool) {
	if prefix == "" || path == prefix {
		return path, true
	}
	if rest, ok := strings.CutPrefix(path, prefix+"."); ok && rest != "" {
		return rest, true
	}
	return "", false
}

// Select returns the paths of s under prefix. With strip the prefix is
// removed from the returned paths.
func Select(s *metricsnap.Snapshot, prefix string, strip bool) *metricsnap.Snapshot {
	out := make(map[string]*metricsnap.MetricSet)
	for path, set := range s.Items() {
		name, ok := StripPrefix(path, prefix)
		if !ok {
			continue
		}
		if !strip {
			name = path
		}
		out[name] = set
	}
	return metricsnap.New(out)
}

func baseline(prev *metricsnap.MetricSet, labels metricsnap.Labels) int64 {
	for m := range prev.Filter(labels).All() {
		return m.Value
	}
	return 0
}
