// Package webhook posts snapshot events to a remote HTTP endpoint.
package webhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vshulcz/metricsnap/internal/misc"
	"github.com/vshulcz/metricsnap/internal/services/notify"
)

// Client POSTs each event as JSON, signed with HashSHA256 when a key is set.
type Client struct {
	endpoint string
	hc       *http.Client
	key      string
}

var _ notify.Observer = (*Client)(nil)

func New(rawURL string, hc *http.Client, key string) (*Client, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, fmt.Errorf("webhook url is empty")
	}
	u, err := url.ParseRequestURI(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid webhook url scheme %q", u.Scheme)
	}
	if hc == nil {
		hc = &http.Client{Timeout: 5 * time.Second}
	}
	return &Client{endpoint: rawURL, hc: hc, key: strings.TrimSpace(key)}, nil
}

func (c *Client) Notify(ctx context.Context, evt notify.Event) (retErr error) {
	if c == nil {
		return nil
	}
	payload, err := evt.Encode()
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.key != "" {
		req.Header.Set("HashSHA256", misc.SumSHA256(payload, c.key))
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("webhook post: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil && retErr == nil {
			retErr = fmt.Errorf("close webhook response: %w", cerr)
		}
	}()
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return fmt.Errorf("drain webhook response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook status %d", resp.StatusCode)
	}
	return nil
}
