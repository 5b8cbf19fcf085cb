package httpjson

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vshulcz/metricsnap/internal/misc"
	"github.com/vshulcz/metricsnap/pkg/metricsdiff"
	"github.com/vshulcz/metricsnap/pkg/metricsnap"
)

const snapshotDoc = `{"httpclient.errors":[{"labels":{"http_error":"ok"},"value":1},{"labels":{"http_error":"timeout"},"value":0}]}`

var noBackoff = WithBackoff([]time.Duration{time.Millisecond, time.Millisecond})

func mustWrite(t *testing.T, w io.Writer, data []byte) {
	t.Helper()
	if _, err := w.Write(data); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestNew_NormalizeBaseAndTimeout(t *testing.T) {
	tests := []struct {
		name string
		addr string
		want string
	}{
		{"no_scheme_host_port", "localhost:8080", "http://localhost:8080"},
		{"http_scheme", "http://example.com:9000", "http://example.com:9000"},
		{"https_scheme", "https://api.local", "https://api.local"},
		{"trailing_slash_trim", "http://x:1/", "http://x:1"},
		{"with_path_kept", "http://x:1/base", "http://x:1/base"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, err := New(tc.addr, nil, "")
			if err != nil {
				t.Fatalf("New error: %v", err)
			}
			if got := c.base.String(); got != tc.want {
				t.Fatalf("base=%q want %q", got, tc.want)
			}
			if c.hc == nil || c.hc.Timeout != 10*time.Second {
				t.Fatalf("default http.Client timeout = %v, want 10s", c.hc.Timeout)
			}
		})
	}
}

func TestNew_InvalidURL(t *testing.T) {
	if _, err := New("http://%zz", nil, ""); err == nil {
		t.Fatal("expected error for invalid URL")
	}
}

func TestClient_Endpoint(t *testing.T) {
	c, err := New("http://x:1/base/", nil, "")
	if err != nil {
		t.Fatal(err)
	}
	if got := c.endpoint("/metrics", map[string][]string{"prefix": {"a b"}}); got != "http://x:1/base/metrics?prefix=a+b" {
		t.Fatalf("endpoint=%q", got)
	}
}

func TestFetch_Responses(t *testing.T) {
	tests := []struct {
		name        string
		opts        []Option
		serverReply func(w http.ResponseWriter, r *http.Request)
		wantErr     string
	}{
		{
			name: "plain_200_ok",
			serverReply: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				mustWrite(t, w, []byte(snapshotDoc))
			},
		},
		{
			name: "gzip_200_ok",
			serverReply: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Encoding", "gzip")
				zw := gzip.NewWriter(w)
				mustWrite(t, zw, []byte(snapshotDoc))
				if err := zw.Close(); err != nil {
					t.Errorf("close: %v", err)
				}
			},
		},
		{
			name: "wrapped_document_with_root",
			opts: []Option{WithRoot("data.metrics")},
			serverReply: func(w http.ResponseWriter, _ *http.Request) {
				mustWrite(t, w, []byte(`{"data":{"metrics":`+snapshotDoc+`}}`))
			},
		},
		{
			name: "missing_root",
			opts: []Option{WithRoot("data.metrics")},
			serverReply: func(w http.ResponseWriter, _ *http.Request) {
				mustWrite(t, w, []byte(snapshotDoc))
			},
			wantErr: "no document",
		},
		{
			name: "gzip_header_but_plain_body_should_error",
			serverReply: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Encoding", "gzip")
				mustWrite(t, w, []byte("not gzipped"))
			},
			wantErr: "bad gzip",
		},
		{
			name: "malformed_snapshot",
			serverReply: func(w http.ResponseWriter, _ *http.Request) {
				mustWrite(t, w, []byte(`{"a":[{"value":1}]}`))
			},
			wantErr: "malformed",
		},
		{
			name: "status_400_should_error",
			serverReply: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				mustWrite(t, w, []byte(`{"error":"bad prefix"}`))
			},
			wantErr: "bad prefix",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPath, gotPrefix, gotAE string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				gotPrefix = r.URL.Query().Get("prefix")
				gotAE = r.Header.Get("Accept-Encoding")
				tt.serverReply(w, r)
			}))
			defer srv.Close()

			c, err := New(srv.URL, srv.Client(), "", append(tt.opts, noBackoff)...)
			if err != nil {
				t.Fatal(err)
			}
			snap, err := c.Fetch(context.Background(), "httpclient")
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err=%v want contains %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Fetch: %v", err)
			}
			if gotPath != "/metrics" || gotPrefix != "httpclient" {
				t.Fatalf("request path=%q prefix=%q", gotPath, gotPrefix)
			}
			if !strings.Contains(gotAE, "gzip") {
				t.Fatalf("Accept-Encoding=%q", gotAE)
			}
			v, err := snap.ValueAt("httpclient.errors", metricsnap.Labels{"http_error": "ok"})
			if err != nil || v != 1 {
				t.Fatalf("value=%d err=%v", v, err)
			}
		})
	}
}

func TestFetch_RetriesUnavailable(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		mustWrite(t, w, []byte(snapshotDoc))
	}))
	defer srv.Close()

	c, _ := New(srv.URL, srv.Client(), "", noBackoff)
	if _, err := c.Fetch(context.Background(), ""); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("calls=%d want 3", got)
	}
}

func TestFetch_NoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c, _ := New(srv.URL, srv.Client(), "", noBackoff)
	_, err := c.Fetch(context.Background(), "")
	if StatusCode(err) != http.StatusNotFound {
		t.Fatalf("status=%d err=%v", StatusCode(err), err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("calls=%d want 1", got)
	}
}

func TestFetch_Signature(t *testing.T) {
	const key = "secret"
	tests := []struct {
		name    string
		sum     string
		wantErr bool
	}{
		{name: "valid", sum: misc.SumSHA256([]byte(snapshotDoc), key)},
		{name: "invalid", sum: "deadbeef", wantErr: true},
		{name: "absent", sum: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				if tt.sum != "" {
					w.Header().Set("HashSHA256", tt.sum)
				}
				mustWrite(t, w, []byte(snapshotDoc))
			}))
			defer srv.Close()

			c, _ := New(srv.URL, srv.Client(), key, noBackoff)
			_, err := c.Fetch(context.Background(), "")
			if tt.wantErr != errors.Is(err, ErrBadSignature) {
				t.Fatalf("err=%v wantErr=%v", err, tt.wantErr)
			}
		})
	}
}

func TestClient_StoredCaptureUploadValue(t *testing.T) {
	const key = "k"
	type seen struct {
		method, path, body, hash string
	}
	var reqs []seen
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		reqs = append(reqs, seen{r.Method, r.URL.Path, string(b), r.Header.Get("HashSHA256")})
		switch {
		case r.Method == http.MethodGet:
			mustWrite(t, w, []byte(snapshotDoc))
		case r.URL.Path == "/value":
			mustWrite(t, w, []byte(`{"value":42}`))
		default:
			mustWrite(t, w, []byte(`{"name":"before"}`))
		}
	}))
	defer srv.Close()

	c, _ := New(srv.URL, srv.Client(), key, noBackoff)
	ctx := context.Background()

	snap, err := c.Stored(ctx, "before")
	if err != nil || snap.Len() != 1 {
		t.Fatalf("Stored: %v %v", snap, err)
	}
	if err := c.Capture(ctx, "before", "httpclient"); err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if err := c.Upload(ctx, "before", snap); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	v, err := c.ValueAt(ctx, "before", "httpclient.errors", metricsnap.Labels{})
	if err != nil || v != 42 {
		t.Fatalf("ValueAt: %d %v", v, err)
	}
	if _, err := c.ValueAt(ctx, "before", "httpclient.errors", nil); err != nil {
		t.Fatalf("ValueAt nil labels: %v", err)
	}

	if len(reqs) != 5 {
		t.Fatalf("requests=%d", len(reqs))
	}
	if reqs[0].path != "/snapshots/before" || reqs[1].path != "/snapshots/before/capture" || reqs[2].method != http.MethodPut {
		t.Fatalf("unexpected requests: %+v", reqs)
	}
	if reqs[2].hash != misc.SumSHA256([]byte(reqs[2].body), key) {
		t.Fatalf("upload not signed: %+v", reqs[2])
	}

	var withLabels, withoutLabels map[string]any
	_ = json.Unmarshal([]byte(reqs[3].body), &withLabels)
	_ = json.Unmarshal([]byte(reqs[4].body), &withoutLabels)
	if _, ok := withLabels["labels"]; !ok {
		t.Fatalf("explicit empty labels dropped: %s", reqs[3].body)
	}
	if _, ok := withoutLabels["labels"]; ok {
		t.Fatalf("nil labels sent: %s", reqs[4].body)
	}
}

func TestClient_AsSessionFetcher(t *testing.T) {
	var n atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if n.Add(1) == 1 {
			mustWrite(t, w, []byte(`{"httpclient.errors":[{"labels":{"http_error":"ok"},"value":3}]}`))
			return
		}
		mustWrite(t, w, []byte(`{"httpclient.errors":[{"labels":{"http_error":"ok"},"value":5}]}`))
	}))
	defer srv.Close()

	c, _ := New(srv.URL, srv.Client(), "", noBackoff)
	s := metricsdiff.NewSession(c, metricsdiff.Options{Prefix: "httpclient"})
	ctx := context.Background()
	if err := s.Begin(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.End(ctx); err != nil {
		t.Fatal(err)
	}
	if v, err := s.ValueAt("errors", metricsnap.Labels{"http_error": "ok"}); err != nil || v != 2 {
		t.Fatalf("diff value=%d err=%v", v, err)
	}
}
