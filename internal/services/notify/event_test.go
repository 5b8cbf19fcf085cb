package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vshulcz/metricsnap/internal/domain"
	"github.com/vshulcz/metricsnap/pkg/metricsnap"
)

func TestClientIP(t *testing.T) {
	ctx := WithClientIP(context.Background(), "127.0.0.1")
	assert.Equal(t, "127.0.0.1", ClientIPFromContext(ctx))
	assert.Empty(t, ClientIPFromContext(context.Background()))
}

func TestFromCapture(t *testing.T) {
	snap := metricsnap.New(map[string]*metricsnap.MetricSet{
		"b.path": metricsnap.MustMetricSet(metricsnap.NewMetric(nil, 1)),
		"a.path": metricsnap.MustMetricSet(),
	})
	at := time.UnixMilli(1700000000123)

	evt := FromCapture(WithClientIP(context.Background(), "10.0.0.1"),
		domain.Capture{Name: "before", Snapshot: snap, TakenAt: at})

	assert.Equal(t, "before", evt.Name)
	assert.Equal(t, []string{"a.path", "b.path"}, evt.Paths)
	assert.Equal(t, "10.0.0.1", evt.ClientIP)
	assert.True(t, evt.TakenAt.Equal(at))
}

func TestEvent_Encode(t *testing.T) {
	evt := Event{TakenAt: time.UnixMilli(42), Name: `we"ird`, Paths: []string{"a", "b"}}

	data, err := evt.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"ts":42,"name":"we\"ird","paths":["a","b"]}`, string(data))

	evt.ClientIP = "1.1.1.1"
	data, err = evt.Encode()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "1.1.1.1", decoded["ip_address"])
}
