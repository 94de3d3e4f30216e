package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/vidmesh/signal-relay/internal/config"
	"github.com/vidmesh/signal-relay/internal/httpserver"
	"github.com/vidmesh/signal-relay/internal/hub"
	"github.com/vidmesh/signal-relay/internal/metrics"
	"github.com/vidmesh/signal-relay/internal/signaling"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		return err
	}

	logger, err := config.NewLogger(cfg)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	build := buildInfo()
	logger.Info("signal-relay starting",
		"mode", cfg.Mode,
		"listen_addr", cfg.ListenAddr,
		"commit", build.Commit,
	)
	if err := cfg.ICEConfigError(); err != nil {
		logger.Warn("ice configuration invalid, /webrtc/ice will report it", "err", err)
	}

	m := metrics.New()
	ws := signaling.NewServer(cfg, logger, m)
	h := hub.New(ws, logger, m)
	ws.SetHandler(h)

	srv := httpserver.New(cfg, logger, build)
	ws.RegisterRoutes(srv.Mux())
	srv.Mux().Handle("GET /metrics", metrics.PrometheusHandler(m))

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.ListenAddr, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, httpserver.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down", "timeout", cfg.ShutdownTimeout)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	// Stop accepting upgrades first, then tear down the live sockets.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown incomplete, forcing close", "err", err)
		_ = srv.Close()
	}
	ws.Close()

	logger.Info("shutdown complete")
	return nil
}

func buildInfo() httpserver.BuildInfo {
	out := httpserver.BuildInfo{Commit: "unknown", BuildTime: "unknown"}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return out
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			out.Commit = setting.Value
		case "vcs.time":
			out.BuildTime = setting.Value
		}
	}
	return out
}
