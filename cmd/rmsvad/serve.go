package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/rmsvad/internal/config"
	"github.com/MrWong99/rmsvad/internal/health"
	"github.com/MrWong99/rmsvad/internal/observe"
	"github.com/MrWong99/rmsvad/internal/stream"
)

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 15 * time.Second

// ServeCmd runs the HTTP server.
type ServeCmd struct {
	Config string `short:"c" type:"path" default:"config.yaml" help:"Path to YAML config file."`
}

// Run implements the serve command.
func (c *ServeCmd) Run(ctx context.Context) error {
	// ── Configuration ─────────────────────────────────────────────────────────
	if _, err := loadConfig(c.Config); err != nil {
		return err
	}

	var (
		mgr   *stream.Manager
		level *slog.LevelVar
	)
	watcher, err := config.NewWatcher(c.Config, func(old, cur *config.Config) {
		applyConfig(config.Diff(old, cur), cur, level, mgr)
	})
	if err != nil {
		return err
	}
	cfg := watcher.Current()

	// ── Logger ────────────────────────────────────────────────────────────────
	var logger *slog.Logger
	logger, level = newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("rmsvad starting",
		"config", c.Config,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
		"version", version,
	)

	// ── Telemetry ─────────────────────────────────────────────────────────────
	tel, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    cfg.Server.ServiceName,
		ServiceVersion: version,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	metrics := observe.DefaultMetrics()

	// ── Engine and streams ────────────────────────────────────────────────────
	eng, err := config.DefaultRegistry().Create(cfg.Engine, cfg.VAD)
	if err != nil {
		return err
	}
	mgr = stream.NewManager(stream.ManagerConfig{
		Engine:   eng,
		VAD:      cfg.VAD,
		Segments: cfg.Segments,
		Metrics:  metrics,
	})

	// ── HTTP ──────────────────────────────────────────────────────────────────
	hc := health.New(
		health.Checker{Name: "config", Check: func(context.Context) error {
			return config.Validate(watcher.Current())
		}},
		health.Checker{Name: "engine", Check: func(context.Context) error {
			sess, err := eng.NewSession(mgr.VADConfig())
			if err != nil {
				return err
			}
			return sess.Close()
		}},
	)
	mux := http.NewServeMux()
	hc.Register(mux)
	mux.Handle("GET /metrics", tel.MetricsHandler)
	mux.Handle("GET /v1/stream", stream.NewHandler(mgr))

	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           observe.Middleware(metrics)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	printStartupSummary(cfg)

	// ── Run ───────────────────────────────────────────────────────────────────
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server ready, press Ctrl+C to shut down", "addr", srv.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error { return watcher.Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		return shutdown(context.WithoutCancel(ctx), hc, srv, mgr, tel, watcher)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("goodbye")
	return nil
}

// shutdown drains readiness, stops accepting connections, closes open
// streams and flushes telemetry.
func shutdown(ctx context.Context, hc *health.Handler, srv *http.Server, mgr *stream.Manager, tel *observe.Telemetry, w *config.Watcher) error {
	slog.Info("shutdown signal received, stopping…")
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	hc.SetDraining(true)
	w.Stop()

	var errs []error
	if err := srv.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := mgr.CloseAll(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close streams: %w", err))
	}
	if err := tel.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("telemetry shutdown: %w", err))
	}
	return errors.Join(errs...)
}

// applyConfig applies a hot-reloaded config. Streams opened afterwards use
// the new detector and segment settings.
func applyConfig(d config.ConfigDiff, cur *config.Config, level *slog.LevelVar, mgr *stream.Manager) {
	if d.Empty() {
		return
	}
	if d.LogLevelChanged && level != nil {
		level.Set(d.NewLogLevel.Slog())
		slog.Info("config: log level changed", "level", d.NewLogLevel)
	}
	if (d.VADChanged() || d.SegmentsChanged) && mgr != nil {
		mgr.Apply(cur.VAD, cur.Segments)
		slog.Info("config: detector settings updated for new streams",
			"vad_fields", d.VADFields,
			"segments_changed", d.SegmentsChanged,
		)
	}
	if len(d.RestartRequired) > 0 {
		slog.Warn("config: changes require a restart", "fields", d.RestartRequired)
	}
}

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║         rmsvad: startup summary       ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	fmt.Printf("║  Listen addr     : %-19s ║\n", cfg.Server.ListenAddr)
	fmt.Printf("║  Engine          : %-19s ║\n", cfg.Engine)
	fmt.Printf("║  Format          : %-19s ║\n", cfg.VAD.Format().String())
	fmt.Printf("║  Chunk           : %-19s ║\n", fmt.Sprintf("%d frames", cfg.VAD.ChunkSize))
	fmt.Printf("║  Threshold       : %-19g ║\n", cfg.VAD.Threshold)
	if cfg.Segments.OutputDir != "" {
		fmt.Printf("║  Segments        : %-19s ║\n", cfg.Segments.OutputDir)
	} else {
		fmt.Printf("║  Segments        : %-19s ║\n", "(not persisted)")
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}
