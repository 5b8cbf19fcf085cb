package ginserver_test

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vshulcz/metricsnap/internal/adapters/http/ginserver"
	"github.com/vshulcz/metricsnap/internal/adapters/repository/memory"
	"github.com/vshulcz/metricsnap/internal/services/monitor"
	"github.com/vshulcz/metricsnap/pkg/metricsnap"
)

type fixedSource struct{}

func (fixedSource) Snapshot(context.Context, string) (*metricsnap.Snapshot, error) {
	set := metricsnap.MustMetricSet(metricsnap.NewMetric(metricsnap.Labels{"kind": "ok"}, 5))
	return metricsnap.New(map[string]*metricsnap.MetricSet{"requests": set}), nil
}

func newExampleRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := monitor.New(fixedSource{}, memory.New(), nil, nil)
	return ginserver.NewRouter(ginserver.NewHandler(svc, zap.NewNop()))
}

func ExampleNewRouter_live() {
	router := newExampleRouter()

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	fmt.Println(resp.Code, resp.Body.String())

	// Output:
	// 200 {"requests":[{"labels":{"kind":"ok"},"value":5}]}
}

func ExampleNewRouter_value() {
	router := newExampleRouter()

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/snapshots/start/capture", nil))
	fmt.Println(resp.Code)

	body := bytes.NewBufferString(`{"snapshot":"start","path":"requests","labels":{"kind":"ok"}}`)
	req := httptest.NewRequest(http.MethodPost, "/value", body)
	req.Header.Set("Content-Type", "application/json")
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	fmt.Println(resp.Code, strings.TrimSpace(resp.Body.String()))

	// Output:
	// 201
	// 200 {"value":5}
}
