package metricsnap

import (
	"iter"
	"maps"
	"slices"
	"strings"
)

// Mapping is anything that maps paths to metric collections.
// Snapshot equality accepts any Mapping, see Paths.
type Mapping interface {
	Len() int
	Lookup(path string) (Collection, bool)
}

// Paths is a plain Mapping for building expected snapshots in tests.
type Paths map[string]Metrics

// Len returns the number of paths.
func (p Paths) Len() int { return len(p) }

// Lookup returns the metrics stored under path.
func (p Paths) Lookup(path string) (Collection, bool) {
	ms, ok := p[path]
	return ms, ok
}

// Snapshot is the set of metric paths captured at one instant. It is never
// modified after construction and is safe for concurrent readers.
type Snapshot struct {
	sets map[string]*MetricSet
}

// New builds a snapshot from path to metric set. A nil set becomes an empty one.
func New(values map[string]*MetricSet) *Snapshot {
	sets := make(map[string]*MetricSet, len(values))
	for path, set := range values {
		if set == nil {
			set = MustMetricSet()
		}
		sets[path] = set
	}
	return &Snapshot{sets: sets}
}

// Get returns the metric set stored under path.
func (s *Snapshot) Get(path string) (*MetricSet, bool) {
	if s == nil {
		return nil, false
	}
	set, ok := s.sets[path]
	return set, ok
}

// Lookup is Get returning a Collection, which makes Snapshot a Mapping.
func (s *Snapshot) Lookup(path string) (Collection, bool) {
	set, ok := s.Get(path)
	if !ok {
		return nil, false
	}
	return set, true
}

// Has reports whether path is present.
func (s *Snapshot) Has(path string) bool {
	_, ok := s.Get(path)
	return ok
}

// Len returns the number of paths.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.sets)
}

// Keys returns the paths in sorted order.
func (s *Snapshot) Keys() []string {
	if s == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(s.sets))
}

// Values returns the metric sets ordered by path.
func (s *Snapshot) Values() []*MetricSet {
	keys := s.Keys()
	out := make([]*MetricSet, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.sets[k])
	}
	return out
}

// Items yields (path, set) pairs ordered by path.
func (s *Snapshot) Items() iter.Seq2[string, *MetricSet] {
	return func(yield func(string, *MetricSet) bool) {
		for _, k := range s.Keys() {
			if !yield(k, s.sets[k]) {
				return
			}
		}
	}
}

// Equal reports whether other holds the same paths with equal metric sets.
func (s *Snapshot) Equal(other Mapping) bool {
	if other == nil {
		return s.Len() == 0
	}
	if s.Len() != other.Len() {
		return false
	}
	for path, set := range s.Items() {
		coll, ok := other.Lookup(path)
		if !ok || !set.Equal(coll) {
			return false
		}
	}
	return true
}

// ValueAtPath returns the value of the only metric under path.
func (s *Snapshot) ValueAtPath(path string) (int64, error) {
	return s.valueAt(path, nil, false)
}

// ValueAt returns the value of the metric under path whose labels equal
// labels exactly: {} matches only unlabeled metrics, {"a": "b"} matches
// neither {} nor {"a": "b", "c": "d"}. Nil labels mean no labels.
func (s *Snapshot) ValueAt(path string, labels Labels) (int64, error) {
	if labels == nil {
		labels = Labels{}
	}
	return s.valueAt(path, labels, true)
}

func (s *Snapshot) valueAt(path string, labels Labels, byLabels bool) (int64, error) {
	set, ok := s.Get(path)
	if !ok || set.Len() == 0 {
		return 0, &QueryError{Err: ErrNoMetrics, Path: path}
	}
	if byLabels {
		all := set
		set = set.Filter(labels)
		switch set.Len() {
		case 0:
			return 0, &QueryError{Err: ErrNoMetrics, Path: path, Labels: labels, Set: all}
		case 1:
		default:
			return 0, &QueryError{Err: ErrMultipleMetrics, Path: path, Labels: labels, Set: set}
		}
	} else if set.Len() != 1 {
		return 0, &QueryError{Err: ErrMultipleMetrics, Path: path, Set: set}
	}
	m, err := set.At(0)
	if err != nil {
		return 0, err
	}
	return m.Value, nil
}

func (s *Snapshot) String() string {
	parts := make([]string, 0, s.Len())
	for path, set := range s.Items() {
		parts = append(parts, "'"+path+"': "+set.String())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
