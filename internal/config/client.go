package config

import (
	"flag"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/vshulcz/metricsnap/internal/misc"
)

const (
	defaultServerAddr = "http://localhost:8080"
	defaultTimeout    = 10 * time.Second
	defaultRetries    = 3
	defaultRetryDelay = time.Second
)

// ClientConfig configures commands that talk to a monitor server.
type ClientConfig struct {
	Address string
	Key     string
	Root    string
	Backoff []time.Duration
	Timeout time.Duration
}

// RegisterClientFlags adds the shared client flags to fs. The returned func
// resolves them against ENV after fs.Parse.
func RegisterClientFlags(fs *flag.FlagSet) func() (ClientConfig, error) {
	var addrOpt, keyOpt, rootOpt string
	var timeoutOpt time.Duration
	var retriesOpt int

	fs.StringVar(&addrOpt, "a", "", fmt.Sprintf("server address (host:port or URL), default: %s", defaultServerAddr))
	fs.StringVar(&keyOpt, "k", "", "secret key for HashSHA256 verification")
	fs.StringVar(&rootOpt, "root", "", "gjson path of the snapshot inside the response")
	fs.DurationVar(&timeoutOpt, "timeout", 0, fmt.Sprintf("HTTP timeout, default: %s", defaultTimeout))
	fs.IntVar(&retriesOpt, "retries", -1, fmt.Sprintf("retries on transient errors, default: %d", defaultRetries))

	return func() (ClientConfig, error) {
		addr := normalizeAddressURL(FromEnvOrFlag("ADDRESS", addrOpt, defaultServerAddr))
		if _, err := url.ParseRequestURI(addr); err != nil {
			return ClientConfig{}, fmt.Errorf("invalid server address: %q", addr)
		}

		timeout := FromEnvOrFlagDuration("TIMEOUT", timeoutOpt, defaultTimeout)
		if timeout <= 0 {
			return ClientConfig{}, fmt.Errorf("timeout must be > 0, got %v", timeout)
		}

		retries := defaultRetries
		if retriesOpt >= 0 {
			retries = retriesOpt
		}
		retries = misc.GetInt("RETRIES", retries, 0)

		return ClientConfig{
			Address: addr,
			Key:     FromEnvOrFlag("KEY", keyOpt, ""),
			Root:    strings.TrimSpace(rootOpt),
			Timeout: timeout,
			Backoff: misc.Backoff(retries, defaultRetryDelay),
		}, nil
	}
}

func normalizeAddressURL(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultServerAddr
	}
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return s
	}
	if strings.HasPrefix(s, ":") {
		return "http://localhost" + s
	}
	return "http://" + s
}
