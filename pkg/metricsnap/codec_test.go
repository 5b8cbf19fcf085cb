package metricsnap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromJSON_Malformed(t *testing.T) {
	for _, tc := range []struct {
		name string
		doc  string
	}{
		{name: "not json", doc: `{"a": [`},
		{name: "top level array", doc: `[]`},
		{name: "top level null", doc: `null`},
		{name: "path not array", doc: `{"a": {"labels": {}, "value": 1}}`},
		{name: "path null", doc: `{"a": null}`},
		{name: "missing labels", doc: `{"a": [{"value": 1}]}`},
		{name: "null labels", doc: `{"a": [{"labels": null, "value": 1}]}`},
		{name: "missing value", doc: `{"a": [{"labels": {}}]}`},
		{name: "null value", doc: `{"a": [{"labels": {}, "value": null}]}`},
		{name: "float value", doc: `{"a": [{"labels": {}, "value": 1.5}]}`},
		{name: "string value", doc: `{"a": [{"labels": {}, "value": "1"}]}`},
		{name: "label not string", doc: `{"a": [{"labels": {"k": 1}, "value": 1}]}`},
		{name: "unknown key", doc: `{"a": [{"labels": {}, "value": 1, "type": "gauge"}]}`},
		{name: "element not object", doc: `{"a": [1]}`},
		{name: "conflicting labels", doc: `{"a": [{"labels": {"k": "v"}, "value": 1}, {"labels": {"k": "v"}, "value": 2}]}`},
		{name: "trailing data", doc: `{"a": []} {}`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := FromJSON([]byte(tc.doc))
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestFromJSON_DuplicatesCollapse(t *testing.T) {
	s, err := FromJSON([]byte(`{"a": [
		{"labels": {"k": "v", "z": "1"}, "value": 3},
		{"labels": {"z": "1", "k": "v"}, "value": 3}
	]}`))
	require.NoError(t, err)
	set, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, set.Len())
}

func TestFromJSON_EmptyDocument(t *testing.T) {
	s, err := FromJSON([]byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())

	s, err = FromJSON([]byte(`{"a": []}`))
	require.NoError(t, err)
	assert.True(t, s.Has("a"))
}

func TestToJSON_Canonical(t *testing.T) {
	s := New(map[string]*MetricSet{
		"b": MustMetricSet(NewMetric(Labels{"y": "2", "x": "1"}, -4)),
		"a": MustMetricSet(
			NewMetric(Labels{"k": "2"}, 2),
			NewMetric(Labels{"k": "1"}, 1),
		),
		"c": MustMetricSet(),
	})

	data, err := s.ToJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"a": [{"labels": {"k": "1"}, "value": 1}, {"labels": {"k": "2"}, "value": 2}],
		"b": [{"labels": {"x": "1", "y": "2"}, "value": -4}],
		"c": []
	}`, string(data))
	assert.Equal(t,
		`{"a":[{"labels":{"k":"1"},"value":1},{"labels":{"k":"2"},"value":2}],"b":[{"labels":{"x":"1","y":"2"},"value":-4}],"c":[]}`,
		string(data))
}

func TestToJSON_RoundTrip(t *testing.T) {
	for _, doc := range []string{
		`{}`,
		httpclientDoc,
		`{"weird \"path\"": [{"labels": {"k\n": "vé"}, "value": 9223372036854775807}]}`,
		`{"a": [{"labels": {}, "value": -9223372036854775808}], "b": []}`,
	} {
		s := mustParse(t, doc)
		data, err := s.ToJSON()
		require.NoError(t, err)

		back, err := FromJSON(data)
		require.NoError(t, err)
		assert.True(t, s.Equal(back), "round trip of %s", doc)
	}
}
