package runtime

import (
	"sync"

	"github.com/vshulcz/metricsnap/pkg/metricsdiff"
	"github.com/vshulcz/metricsnap/pkg/metricsnap"
)

// stats keeps the latest reading per path and label set.
type stats struct {
	paths map[string]map[string]metricsnap.Metric
	mu    sync.RWMutex
}

func newStats() *stats {
	return &stats{paths: make(map[string]map[string]metricsnap.Metric)}
}

func (s *stats) series(path string) map[string]metricsnap.Metric {
	m, ok := s.paths[path]
	if !ok {
		m = make(map[string]metricsnap.Metric)
		s.paths[path] = m
	}
	return m
}

func (s *stats) Set(path string, labels metricsnap.Labels, v int64) {
	s.mu.Lock()
	s.series(path)[labels.Key()] = metricsnap.NewMetric(labels, v)
	s.mu.Unlock()
}

func (s *stats) Add(path string, labels metricsnap.Labels, d int64) {
	s.mu.Lock()
	m := s.series(path)
	key := labels.Key()
	m[key] = metricsnap.NewMetric(labels, m[key].Value+d)
	s.mu.Unlock()
}

func (s *stats) Snapshot(prefix string) (*metricsnap.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sets := make(map[string]*metricsnap.MetricSet, len(s.paths))
	for path, series := range s.paths {
		if _, ok := metricsdiff.StripPrefix(path, prefix); !ok {
			continue
		}
		metrics := make([]metricsnap.Metric, 0, len(series))
		for _, m := range series {
			metrics = append(metrics, m)
		}
		set, err := metricsnap.NewMetricSet(metrics...)
		if err != nil {
			return nil, err
		}
		sets[path] = set
	}
	return metricsnap.New(sets), nil
}
