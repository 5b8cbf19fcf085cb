package metricsnap

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"go.elastic.co/fastjson"
)

type wireMetric struct {
	Labels *map[string]string `json:"labels"`
	Value  json.RawMessage    `json:"value"`
}

// FromJSON parses a document of the form
//
//	{"<path>": [{"labels": {"<key>": "<value>"}, "value": <integer>}, ...], ...}
//
// Unknown keys, missing keys, non-integer values and conflicting labels are
// rejected with ErrMalformed.
func FromJSON(data []byte) (*Snapshot, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if top == nil {
		return nil, fmt.Errorf("%w: top level must be an object", ErrMalformed)
	}

	sets := make(map[string]*MetricSet, len(top))
	for path, raw := range top {
		set, err := decodeSet(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: path %q: %w", ErrMalformed, path, err)
		}
		sets[path] = set
	}
	return &Snapshot{sets: sets}, nil
}

func decodeSet(raw json.RawMessage) (*MetricSet, error) {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, fmt.Errorf("expected array, got null")
	}
	var items []wireMetric
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&items); err != nil {
		return nil, err
	}

	metrics := make([]Metric, 0, len(items))
	for i, it := range items {
		if it.Labels == nil {
			return nil, fmt.Errorf("metric %d: missing labels", i)
		}
		if it.Value == nil {
			return nil, fmt.Errorf("metric %d: missing value", i)
		}
		v, err := strconv.ParseInt(string(bytes.TrimSpace(it.Value)), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("metric %d: value %s is not an integer", i, it.Value)
		}
		metrics = append(metrics, Metric{Labels: *it.Labels, Value: v})
	}
	return NewMetricSet(metrics...)
}

// ToJSON serializes the snapshot in the shape FromJSON accepts. Paths, metrics
// and labels are written in canonical order so equal snapshots produce equal text.
func (s *Snapshot) ToJSON() ([]byte, error) {
	var w fastjson.Writer
	if err := s.MarshalFastJSON(&w); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// MarshalFastJSON writes the snapshot to w.
func (s *Snapshot) MarshalFastJSON(w *fastjson.Writer) error {
	w.RawByte('{')
	first := true
	for path, set := range s.Items() {
		if !first {
			w.RawByte(',')
		}
		first = false
		w.String(path)
		w.RawString(":[")
		for i, m := range set.Metrics() {
			if i > 0 {
				w.RawByte(',')
			}
			marshalMetric(w, m)
		}
		w.RawByte(']')
	}
	w.RawByte('}')
	return nil
}

func marshalMetric(w *fastjson.Writer, m Metric) {
	w.RawString(`{"labels":{`)
	for i, p := range m.CanonicalLabels() {
		if i > 0 {
			w.RawByte(',')
		}
		w.String(p.Key)
		w.RawByte(':')
		w.String(p.Value)
	}
	w.RawString(`},"value":`)
	w.Int64(m.Value)
	w.RawByte('}')
}

// MarshalJSON implements json.Marshaler.
func (s *Snapshot) MarshalJSON() ([]byte, error) {
	return s.ToJSON()
}

// UnmarshalJSON implements json.Unmarshaler with FromJSON rules.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	parsed, err := FromJSON(data)
	if err != nil {
		return err
	}
	*s = *parsed
	return nil
}
