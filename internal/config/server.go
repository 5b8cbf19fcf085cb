package config

import (
	"flag"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/vshulcz/metricsnap/internal/logger"
)

const (
	defaultListenAndServeAddr = ":8080"
	defaultPollInterval       = 2 * time.Second
	defaultLogLevel           = "info"
)

type ServerConfig struct {
	Address      string
	Key          string
	LogLevel     string
	PollInterval time.Duration
	JournalFile  string
	WebhookURL   string
	// Upstream, when set, replaces the local runtime source with a remote
	// snapshot endpoint.
	Upstream     string
	UpstreamRoot string
	Gauges       []string
}

// ENV > CLI > defaults
func LoadServerConfig(args []string, out io.Writer) (ServerConfig, error) {
	if out == nil {
		out = io.Discard
	}

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(out)

	var addrOpt, keyOpt, levelOpt, journalOpt, webhookOpt string
	var upstreamOpt, upstreamRootOpt, gaugesOpt string
	var pollOpt time.Duration

	fs.StringVar(&addrOpt, "a", "", fmt.Sprintf("HTTP listen address, default: %s", defaultListenAndServeAddr))
	fs.StringVar(&keyOpt, "k", "", "secret key for HashSHA256 signing")
	fs.DurationVar(&pollOpt, "p", 0, fmt.Sprintf("runtime sampling interval, default: %s", defaultPollInterval))
	fs.StringVar(&levelOpt, "log-level", "", fmt.Sprintf("log level, default: %s", defaultLogLevel))
	fs.StringVar(&journalOpt, "journal", "", "append stored snapshot events to this file")
	fs.StringVar(&webhookOpt, "webhook", "", "POST stored snapshot events to this URL")
	fs.StringVar(&upstreamOpt, "upstream", "", "serve snapshots of this remote metrics endpoint instead of the local runtime")
	fs.StringVar(&upstreamRootOpt, "upstream-root", "", "gjson path of the snapshot inside upstream responses")
	fs.StringVar(&gaugesOpt, "gauges", "", "comma separated gauge paths of the upstream")

	if err := fs.Parse(args); err != nil {
		return ServerConfig{}, err
	}

	addr := normalizeListenAndServeURL(FromEnvOrFlag("ADDRESS", addrOpt, defaultListenAndServeAddr))
	if _, port, err := net.SplitHostPort(addr); err != nil || port == "" {
		return ServerConfig{}, fmt.Errorf("invalid listen address: %q", addr)
	}

	poll := FromEnvOrFlagDuration("POLL_INTERVAL", pollOpt, defaultPollInterval)
	if poll <= 0 {
		return ServerConfig{}, fmt.Errorf("poll interval must be > 0, got %v", poll)
	}

	level := FromEnvOrFlag("LOG_LEVEL", levelOpt, defaultLogLevel)
	if _, err := logger.ParseLogLevel(level); err != nil {
		return ServerConfig{}, err
	}

	return ServerConfig{
		Address:      addr,
		Key:          FromEnvOrFlag("KEY", keyOpt, ""),
		LogLevel:     level,
		PollInterval: poll,
		JournalFile:  FromEnvOrFlag("JOURNAL_FILE", journalOpt, ""),
		WebhookURL:   FromEnvOrFlag("WEBHOOK_URL", webhookOpt, ""),
		Upstream:     FromEnvOrFlag("UPSTREAM_ADDRESS", upstreamOpt, ""),
		UpstreamRoot: FromEnvOrFlag("UPSTREAM_ROOT", upstreamRootOpt, ""),
		Gauges:       splitList(FromEnvOrFlag("GAUGES", gaugesOpt, "")),
	}, nil
}

func normalizeListenAndServeURL(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultListenAndServeAddr
	}
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		if u, err := url.Parse(s); err == nil && u.Host != "" {
			return u.Host
		}
	}
	if !strings.Contains(s, ":") {
		return ":" + s
	}
	return s
}
