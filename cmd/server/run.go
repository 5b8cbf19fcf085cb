package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	rtcollector "github.com/vshulcz/metricsnap/internal/adapters/collector/runtime"
	"github.com/vshulcz/metricsnap/internal/adapters/http/ginserver"
	"github.com/vshulcz/metricsnap/internal/adapters/http/ginserver/middlewares"
	"github.com/vshulcz/metricsnap/internal/adapters/monitor/httpjson"
	"github.com/vshulcz/metricsnap/internal/adapters/notify/journal"
	"github.com/vshulcz/metricsnap/internal/adapters/notify/webhook"
	memrepo "github.com/vshulcz/metricsnap/internal/adapters/repository/memory"
	"github.com/vshulcz/metricsnap/internal/config"
	"github.com/vshulcz/metricsnap/internal/domain"
	"github.com/vshulcz/metricsnap/internal/logger"
	"github.com/vshulcz/metricsnap/internal/ports"
	"github.com/vshulcz/metricsnap/internal/services/monitor"
	"github.com/vshulcz/metricsnap/internal/services/notify"
	"github.com/vshulcz/metricsnap/internal/version"
	"github.com/vshulcz/metricsnap/pkg/metricsdiff"
)

const shutdownTimeout = 5 * time.Second

func run(ctx context.Context, args []string, out io.Writer) error {
	cfg, err := config.LoadServerConfig(args, out)
	if err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	srv, stopCollector, err := newServer(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer stopCollector()

	go func() {
		<-ctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shCtx); err != nil {
			log.Warn("shutdown failed", zap.Error(err))
		}
	}()

	log.Info("server started",
		zap.String("addr", cfg.Address),
		zap.String("version", version.String()),
		zap.Duration("poll_interval", cfg.PollInterval),
		zap.Bool("signing", cfg.Key != ""),
		zap.String("upstream", cfg.Upstream),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Info("server stopped")
	return nil
}

func newServer(ctx context.Context, cfg config.ServerConfig, log *zap.Logger) (*http.Server, func(), error) {
	gin.SetMode(gin.ReleaseMode)

	src, gauges, stopSource, err := newSource(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	subj, err := newSubject(cfg)
	if err != nil {
		stopSource()
		return nil, nil, err
	}
	onCaptured := func(ctx context.Context, c domain.Capture) {
		log.Info("snapshot stored", zap.String("name", c.Name), zap.Int("paths", c.Snapshot.Len()))
		if err := subj.Publish(ctx, notify.FromCapture(ctx, c)); err != nil {
			log.Warn("capture notification failed", zap.String("name", c.Name), zap.Error(err))
		}
	}
	svc := monitor.New(src, memrepo.New(), metricsdiff.GaugePaths(gauges...), onCaptured)

	r := ginserver.NewRouter(ginserver.NewHandler(svc, log),
		middlewares.ZapLogger(log),
		middlewares.GzipRequest(),
		middlewares.GzipResponse(),
		middlewares.HashSHA256(cfg.Key),
	)

	return &http.Server{
		Addr:              cfg.Address,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}, stopSource, nil
}

// newSource picks the remote upstream when configured, the local runtime
// collector otherwise.
func newSource(ctx context.Context, cfg config.ServerConfig) (ports.SnapshotSource, []string, func(), error) {
	if cfg.Upstream != "" {
		c, err := httpjson.New(cfg.Upstream, nil, cfg.Key, httpjson.WithRoot(cfg.UpstreamRoot))
		if err != nil {
			return nil, nil, nil, fmt.Errorf("upstream: %w", err)
		}
		return c, cfg.Gauges, func() {}, nil
	}

	collector := rtcollector.New()
	if err := collector.Start(ctx, cfg.PollInterval); err != nil {
		return nil, nil, nil, fmt.Errorf("start collector: %w", err)
	}
	return collector, append(rtcollector.GaugePaths(), cfg.Gauges...), collector.Stop, nil
}

func newSubject(cfg config.ServerConfig) (*notify.Subject, error) {
	subj := notify.NewSubject()
	if cfg.JournalFile != "" {
		subj.Attach(journal.New(cfg.JournalFile))
	}
	if cfg.WebhookURL != "" {
		hook, err := webhook.New(cfg.WebhookURL, nil, cfg.Key)
		if err != nil {
			return nil, err
		}
		subj.Attach(hook)
	}
	return subj, nil
}
