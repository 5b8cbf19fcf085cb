// Package httpjson fetches metric snapshots from a monitor endpoint over HTTP.
package httpjson

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/tidwall/gjson"

	"github.com/vshulcz/metricsnap/internal/misc"
	"github.com/vshulcz/metricsnap/internal/ports"
	"github.com/vshulcz/metricsnap/pkg/metricsdiff"
	"github.com/vshulcz/metricsnap/pkg/metricsnap"
)

// ErrBadSignature is returned when the HashSHA256 response header does not match the body.
var ErrBadSignature = errors.New("response signature mismatch")

// Client reads snapshots from a monitor server.
type Client struct {
	base    *url.URL
	hc      *http.Client
	key     string
	root    string
	backoff []time.Duration
}

var (
	_ metricsdiff.Fetcher  = (*Client)(nil)
	_ ports.SnapshotSource = (*Client)(nil)
)

// Option customizes a Client.
type Option func(*Client)

// WithRoot selects the snapshot document inside a wrapping response, using
// gjson path syntax (for example "metrics" or "data.snapshot").
func WithRoot(path string) Option {
	return func(c *Client) { c.root = strings.TrimSpace(path) }
}

// WithBackoff overrides the delays between retries.
func WithBackoff(delays []time.Duration) Option {
	return func(c *Client) { c.backoff = delays }
}

// New normalizes the base address, configures the HTTP client, and returns a Client instance.
func New(serverAddr string, hc *http.Client, key string, opts ...Option) (*Client, error) {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	u, err := url.Parse(normalizeBase(serverAddr))
	if err != nil {
		return nil, err
	}
	c := &Client{base: u, hc: hc, key: strings.TrimSpace(key), backoff: misc.DefaultBackoff}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func normalizeBase(s string) string {
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return strings.TrimRight(s, "/")
	}
	return "http://" + strings.TrimRight(s, "/")
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = query.Encode()
	return u.String()
}

// Fetch loads the live snapshot limited to prefix from GET /metrics.
func (c *Client) Fetch(ctx context.Context, prefix string) (*metricsnap.Snapshot, error) {
	q := url.Values{}
	if prefix != "" {
		q.Set("prefix", prefix)
	}
	body, err := c.do(ctx, http.MethodGet, "/metrics", q, nil)
	if err != nil {
		return nil, err
	}
	if c.root != "" {
		res := gjson.GetBytes(body, c.root)
		if !res.Exists() {
			return nil, fmt.Errorf("%w: no document at %q", metricsnap.ErrMalformed, c.root)
		}
		body = []byte(res.Raw)
	}
	return metricsnap.FromJSON(body)
}

// Snapshot is Fetch under the SnapshotSource name, so a remote endpoint can
// back a monitor server.
func (c *Client) Snapshot(ctx context.Context, prefix string) (*metricsnap.Snapshot, error) {
	return c.Fetch(ctx, prefix)
}

// Stored loads the capture stored under name.
func (c *Client) Stored(ctx context.Context, name string) (*metricsnap.Snapshot, error) {
	body, err := c.do(ctx, http.MethodGet, "/snapshots/"+url.PathEscape(name), nil, nil)
	if err != nil {
		return nil, err
	}
	return metricsnap.FromJSON(body)
}

// Capture asks the server to store its live snapshot under name.
func (c *Client) Capture(ctx context.Context, name, prefix string) error {
	q := url.Values{}
	if prefix != "" {
		q.Set("prefix", prefix)
	}
	_, err := c.do(ctx, http.MethodPost, "/snapshots/"+url.PathEscape(name)+"/capture", q, nil)
	return err
}

// Upload stores snap on the server under name.
func (c *Client) Upload(ctx context.Context, name string, snap *metricsnap.Snapshot) error {
	data, err := snap.ToJSON()
	if err != nil {
		return err
	}
	_, err = c.do(ctx, http.MethodPut, "/snapshots/"+url.PathEscape(name), nil, data)
	return err
}

type valueRequest struct {
	Labels   *metricsnap.Labels `json:"labels,omitempty"`
	Snapshot string             `json:"snapshot"`
	Path     string             `json:"path"`
}

// ValueAt runs a query against a stored capture on the server. Nil labels
// select the only metric at path.
func (c *Client) ValueAt(ctx context.Context, name, path string, labels metricsnap.Labels) (int64, error) {
	req := valueRequest{Snapshot: name, Path: path}
	if labels != nil {
		req.Labels = &labels
	}
	data, err := json.Marshal(req)
	if err != nil {
		return 0, fmt.Errorf("marshal: %w", err)
	}
	body, err := c.do(ctx, http.MethodPost, "/value", nil, data)
	if err != nil {
		return 0, err
	}
	v := gjson.GetBytes(body, "value")
	if v.Type != gjson.Number {
		return 0, fmt.Errorf("%w: value response %s", metricsnap.ErrMalformed, body)
	}
	return v.Int(), nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload []byte) ([]byte, error) {
	var (
		body []byte
		sum  string
	)
	op := func() error {
		req, err := c.newRequest(ctx, method, path, query, payload)
		if err != nil {
			return err
		}
		resp, err := c.hc.Do(req)
		if err != nil {
			return err
		}
		body, err = readBody(resp)
		if err != nil {
			return err
		}
		sum = resp.Header.Get("HashSHA256")
		return checkHTTPStatus(resp, body)
	}
	if err := misc.Retry(ctx, c.backoff, isRetryableHTTP, op); err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if c.key != "" && sum != "" && !strings.EqualFold(sum, misc.SumSHA256(body, c.key)) {
		return nil, ErrBadSignature
	}
	return body, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, payload []byte) (*http.Request, error) {
	var rd io.Reader
	if payload != nil {
		rd = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), rd)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "gzip")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
		if c.key != "" {
			req.Header.Set("HashSHA256", misc.SumSHA256(payload, c.key))
		}
	}
	return req, nil
}

func readBody(resp *http.Response) (data []byte, retErr error) {
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil && retErr == nil {
			retErr = fmt.Errorf("close response body: %w", cerr)
		}
	}()
	var r io.Reader = resp.Body
	if strings.Contains(strings.ToLower(resp.Header.Get("Content-Encoding")), "gzip") {
		gr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("bad gzip: %w", err)
		}
		defer func() {
			_ = gr.Close()
		}()
		r = gr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return data, nil
}

type httpStatusError struct {
	msg  string
	code int
}

func (e *httpStatusError) Error() string {
	return e.msg
}

// StatusCode returns the HTTP status of a failed request, or 0 for other errors.
func StatusCode(err error) int {
	var se *httpStatusError
	if errors.As(err, &se) {
		return se.code
	}
	return 0
}

func isRetryableHTTP(err error) bool {
	if err == nil {
		return false
	}
	var se *httpStatusError
	if errors.As(err, &se) {
		switch se.code {
		case http.StatusBadGateway, http.StatusServiceUnavailable,
			http.StatusGatewayTimeout, http.StatusTooManyRequests:
			return true
		default:
			return false
		}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE)
}

func checkHTTPStatus(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	msg := fmt.Sprintf("server status: %s", resp.Status)
	if reason := gjson.GetBytes(body, "error").String(); reason != "" {
		msg += ": " + reason
	}
	return &httpStatusError{code: resp.StatusCode, msg: msg}
}
