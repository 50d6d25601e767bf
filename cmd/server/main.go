package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ugaemi/hangout-server/internal/config"
	"github.com/ugaemi/hangout-server/internal/store"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	setupLogger(cfg)

	if err := run(cfg); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	strokes, err := openStrokeStore(ctx, cfg)
	if err != nil {
		return err
	}
	if strokes != nil {
		defer strokes.Close()
	}

	srv, err := newServer(ctx, cfg, strokes)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    cfg.Addr(),
		Handler: srv.routes(cfg.StaticDir),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		srv.hub.Run(ctx)
		return nil
	})
	g.Go(func() error {
		return srv.board.Run(ctx)
	})
	g.Go(func() error {
		slog.Info("server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		slog.Info("server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// openStrokeStore returns nil when no database is configured; the board then
// lives in memory only.
func openStrokeStore(ctx context.Context, cfg *config.Config) (store.StrokeStore, error) {
	if cfg.DatabaseURL == "" {
		slog.Info("whiteboard kept in memory")
		return nil, nil
	}
	s, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	slog.Info("whiteboard persisted to postgres")
	return s, nil
}

func setupLogger(cfg *config.Config) {
	var h slog.Handler
	opts := &slog.HandlerOptions{}

	switch cfg.LogLevel {
	case "debug":
		opts.Level = slog.LevelDebug
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	switch cfg.LogFormat {
	case "json":
		h = slog.NewJSONHandler(os.Stdout, opts)
	default:
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(h))
}
