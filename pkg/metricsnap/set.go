package metricsnap

import (
	"fmt"
	"iter"
	"maps"
	"slices"
	"strings"
)

// Collection is anything that can be counted and iterated as metrics.
// MetricSet equality accepts any Collection, not only another MetricSet.
type Collection interface {
	Len() int
	All() iter.Seq[Metric]
}

// Metrics is a plain collection for building expectations in tests.
type Metrics []Metric

// Len returns the number of entries, duplicates included.
func (ms Metrics) Len() int { return len(ms) }

// All yields every entry in slice order.
func (ms Metrics) All() iter.Seq[Metric] { return slices.Values(ms) }

// MetricSet holds the metrics recorded under one path. Members are unique by
// labels; the set is read-only once built.
type MetricSet struct {
	byLabels map[string]Metric
}

// NewMetricSet collapses identical metrics and rejects metrics that share
// labels but carry different values.
func NewMetricSet(metrics ...Metric) (*MetricSet, error) {
	s := &MetricSet{byLabels: make(map[string]Metric, len(metrics))}
	for _, m := range metrics {
		key := m.Labels.Key()
		if prev, ok := s.byLabels[key]; ok {
			if prev.Value != m.Value {
				return nil, fmt.Errorf("%w: labels %s have values %d and %d",
					ErrConflictingLabels, m.Labels, prev.Value, m.Value)
			}
			continue
		}
		s.byLabels[key] = NewMetric(m.Labels, m.Value)
	}
	return s, nil
}

// MustMetricSet is NewMetricSet for literals known to be valid. It panics on conflict.
func MustMetricSet(metrics ...Metric) *MetricSet {
	s, err := NewMetricSet(metrics...)
	if err != nil {
		panic(err)
	}
	return s
}

// Len returns the number of distinct metrics.
func (s *MetricSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.byLabels)
}

// All yields every metric once, in no particular order.
func (s *MetricSet) All() iter.Seq[Metric] {
	return func(yield func(Metric) bool) {
		if s == nil {
			return
		}
		for _, m := range s.byLabels {
			if !yield(m) {
				return
			}
		}
	}
}

// Metrics returns the members sorted by canonical labels.
func (s *MetricSet) Metrics() []Metric {
	if s == nil {
		return nil
	}
	keys := slices.Sorted(maps.Keys(s.byLabels))
	out := make([]Metric, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.byLabels[k])
	}
	return out
}

// Contains reports whether a metric with the same labels and value is a member.
func (s *MetricSet) Contains(m Metric) bool {
	if s == nil {
		return false
	}
	got, ok := s.byLabels[m.Labels.Key()]
	return ok && got.Value == m.Value
}

// Equal reports whether other has the same cardinality and the same members.
func (s *MetricSet) Equal(other Collection) bool {
	if other == nil {
		return s.Len() == 0
	}
	if other.Len() != s.Len() {
		return false
	}
	seen := make(map[string]struct{}, s.Len())
	for m := range other.All() {
		if !s.Contains(m) {
			return false
		}
		seen[m.Labels.Key()] = struct{}{}
	}
	return len(seen) == s.Len()
}

// At returns an arbitrary member for index 0. Member order is unspecified,
// so only index 0 is supported; it exists for single-metric sets.
func (s *MetricSet) At(i int) (Metric, error) {
	if i != 0 {
		return Metric{}, fmt.Errorf("%w: %d", ErrUnsupportedIndex, i)
	}
	for m := range s.All() {
		return m, nil
	}
	return Metric{}, ErrEmptySet
}

// Filter returns the members whose labels equal labels exactly.
func (s *MetricSet) Filter(labels Labels) *MetricSet {
	out := &MetricSet{byLabels: map[string]Metric{}}
	for m := range s.All() {
		if m.Labels.Equal(labels) {
			out.byLabels[m.Labels.Key()] = m
		}
	}
	return out
}

func (s *MetricSet) String() string {
	ms := s.Metrics()
	parts := make([]string, 0, len(ms))
	for _, m := range ms {
		parts = append(parts, m.String())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
