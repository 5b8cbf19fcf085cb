// Package metricsnap models point-in-time metric readings captured from a
// running service: metrics keyed by labels, grouped into sets under a path,
// and collected into an immutable snapshot that can be queried and
// round-tripped through JSON.
package metricsnap

import (
	"maps"
	"slices"
	"strconv"
	"strings"
)

// Labels are the dimensions of a metric. Key order never matters.
type Labels map[string]string

// LabelPair is a single label in canonical order.
type LabelPair struct {
	Key   string
	Value string
}

// Pairs returns labels sorted by key.
func (l Labels) Pairs() []LabelPair {
	keys := slices.Sorted(maps.Keys(l))
	out := make([]LabelPair, 0, len(keys))
	for _, k := range keys {
		out = append(out, LabelPair{Key: k, Value: l[k]})
	}
	return out
}

// Key encodes labels into a string that is equal for equal label sets
// regardless of insertion order. Keys and values are quoted, so no two
// distinct label sets share a key.
func (l Labels) Key() string {
	if len(l) == 0 {
		return ""
	}
	var b strings.Builder
	for i, p := range l.Pairs() {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(p.Key))
		b.WriteByte('=')
		b.WriteString(strconv.Quote(p.Value))
	}
	return b.String()
}

// Equal reports an exact match. Nil and empty labels are equal.
func (l Labels) Equal(other Labels) bool {
	return maps.Equal(l, other)
}

func (l Labels) String() string {
	pairs := l.Pairs()
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, strconv.Quote(p.Key)+": "+strconv.Quote(p.Value))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (l Labels) clone() Labels {
	out := make(Labels, len(l))
	maps.Copy(out, l)
	return out
}

// Metric is one observation: a label set and an integer value.
// Treat it as a value; do not mutate Labels after construction.
type Metric struct {
	Labels Labels
	Value  int64
}

// NewMetric builds a Metric owning a copy of labels.
func NewMetric(labels Labels, value int64) Metric {
	return Metric{Labels: labels.clone(), Value: value}
}

// CanonicalLabels returns the labels sorted by key.
func (m Metric) CanonicalLabels() []LabelPair {
	return m.Labels.Pairs()
}

// Equal reports whether both labels and value match.
func (m Metric) Equal(other Metric) bool {
	return m.Value == other.Value && m.Labels.Equal(other.Labels)
}

func (m Metric) String() string {
	return "Metric(labels=" + m.Labels.String() + ", value=" + strconv.FormatInt(m.Value, 10) + ")"
}
