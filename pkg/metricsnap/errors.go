package metricsnap

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformed is returned when a snapshot document does not match the expected shape.
	ErrMalformed = errors.New("malformed metrics snapshot")
	// ErrConflictingLabels indicates two metrics under one path share labels but differ in value.
	ErrConflictingLabels = errors.New("conflicting metrics with equal labels")
	// ErrNoMetrics is returned by queries that matched nothing.
	ErrNoMetrics = errors.New("no metrics found")
	// ErrMultipleMetrics is returned by queries that matched more than one metric.
	ErrMultipleMetrics = errors.New("multiple metrics found")
	// ErrUnsupportedIndex is returned by MetricSet.At for any index other than 0.
	ErrUnsupportedIndex = errors.New("unsupported metric set index")
	// ErrEmptySet is returned by MetricSet.At on an empty set.
	ErrEmptySet = errors.New("metric set is empty")
)

// QueryError describes a failed ValueAt lookup.
type QueryError struct {
	Err    error
	Labels Labels
	Set    *MetricSet
	Path   string
}

func (e *QueryError) Error() string {
	msg := fmt.Sprintf("%v by path %q", e.Err, e.Path)
	if e.Labels != nil {
		msg += fmt.Sprintf(" and labels %s", e.Labels)
	}
	if e.Set != nil && e.Set.Len() > 0 {
		msg += ": " + e.Set.String()
	}
	return msg
}

func (e *QueryError) Unwrap() error {
	return e.Err
}
