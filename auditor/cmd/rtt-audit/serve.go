package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/obsidianstack/rttaudit/auditor/internal/api"
	"github.com/obsidianstack/rttaudit/auditor/internal/auth"
	"github.com/obsidianstack/rttaudit/auditor/internal/config"
	"github.com/obsidianstack/rttaudit/auditor/internal/metrics"
	"github.com/obsidianstack/rttaudit/auditor/internal/runner"
	"github.com/obsidianstack/rttaudit/auditor/internal/store"
	"github.com/obsidianstack/rttaudit/auditor/internal/timing"
)

// textfileInterval is how often serve rewrites the metrics textfile.
const textfileInterval = 15 * time.Second

func serveCmd(c *cli.Context, level *slog.LevelVar) error {
	path := c.String("config")
	cfg, err := loadConfig(path, level)
	if err != nil {
		return err
	}
	reg, err := loadRegistry(cfg)
	if err != nil {
		return err
	}

	a := cfg.Auditor
	if a.Auth.Mode == auth.ModeAPIKey && a.Auth.Key() == "" {
		return fmt.Errorf("rtt-audit: auth mode apikey but $%s is empty", a.Auth.KeyEnv)
	}
	slog.Info("rtt-audit: starting",
		"config", path,
		"http_port", a.HTTPPort,
		"auth_mode", a.Auth.Mode,
		"locales", reg.Locales(),
		"report_ttl", a.Reports.TTL,
	)

	ctx, cancel := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rec := metrics.New()
	provider, err := timing.NewCachingProvider(a.CacheSize, timing.WithCacheObserver(rec.ObserveCache))
	if err != nil {
		return err
	}

	st := store.New(a.Reports.TTL)
	go st.Run(ctx)

	opts, closeArchive, err := openArchive(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeArchive()

	// Process-lifetime scope: resubmitted logs are served from the cache.
	opts = append(opts, runner.WithScope("serve-"+uuid.NewString()))
	rn := runner.New(provider, reg, rec, st, opts...)

	// Hot reload covers locales and log level; listener settings need a restart.
	if path != "" {
		go func() {
			err := config.Watch(ctx, path, func(next *config.Config) {
				if err := level.UnmarshalText([]byte(next.Auditor.LogLevel)); err != nil {
					slog.Error("rtt-audit: reload log level", "err", err)
				}
				r, err := loadRegistry(next)
				if err != nil {
					slog.Error("rtt-audit: reload locales, keeping previous", "err", err)
					return
				}
				rn.SetRegistry(r)
				slog.Info("rtt-audit: locales reloaded", "locales", r.Locales())
			})
			if err != nil {
				slog.Error("rtt-audit: config watch stopped", "err", err)
			}
		}()
	}

	if p := a.Metrics.Textfile; p != "" {
		go writeTextfileLoop(ctx, rec, p)
	}

	mux := http.NewServeMux()
	mux.Handle("/api/", auth.APIKey(a.Auth.Mode, a.Auth.EffectiveHeader(), a.Auth.Key(), api.New(rn, st)))
	mux.Handle("/metrics", rec.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.HTTPPort),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		slog.Info("rtt-audit: HTTP server listening", "port", a.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errc:
		return fmt.Errorf("http server: %w", err)
	}

	slog.Info("rtt-audit: shutting down")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	return srv.Shutdown(shutdownCtx)
}

func writeTextfileLoop(ctx context.Context, rec *metrics.Recorder, path string) {
	t := time.NewTicker(textfileInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := rec.WriteTextfile(path); err != nil {
				slog.Warn("rtt-audit: textfile export failed", "path", path, "err", err)
			}
		}
	}
}
