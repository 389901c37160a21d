package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/runbox-dev/runbox/internal/config"
	"github.com/runbox-dev/runbox/internal/engine"
	"github.com/runbox-dev/runbox/internal/gateway"
	"github.com/runbox-dev/runbox/internal/launcher"
	"github.com/runbox-dev/runbox/internal/reaper"
	"github.com/runbox-dev/runbox/internal/session"
	"github.com/runbox-dev/runbox/internal/workspace"
)

func main() {
	cfgPath := flag.String("config", "", "path to runbox.yaml")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	if cfg.APIKey == "" {
		logger.Warn("no API key configured — running in open access mode")
	}

	eng, err := engine.New()
	if err != nil {
		logger.Error("engine client", "error", err)
		os.Exit(1)
	}
	defer eng.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := eng.Ping(ctx); err != nil {
		logger.Error("engine ping failed — is the container engine running?", "error", err)
		os.Exit(1)
	}
	logger.Info("engine connection OK")

	ws, err := workspace.NewResolver(cfg.WorkspaceRoot)
	if err != nil {
		logger.Error("workspace root", "error", err)
		os.Exit(1)
	}

	tmpfsBytes, err := cfg.TmpfsBytes()
	if err != nil {
		logger.Error("tmpfs size", "error", err)
		os.Exit(1)
	}

	l := launcher.New(launcher.Policy{
		Binary:      cfg.EngineBinary,
		CPULimit:    cfg.Isolation.CPULimit,
		PidsLimit:   cfg.Isolation.PidsLimit,
		TmpfsBytes:  tmpfsBytes,
		NetworkMode: cfg.Isolation.NetworkMode,
	})

	reg := session.NewRegistry()
	mgr := session.NewManager(cfg, reg, session.EngineLauncher{Launcher: l}, eng, ws, logger)

	rpr := reaper.New(eng, reg, time.Duration(cfg.JanitorSecs)*time.Second, logger)
	go rpr.Run(ctx)

	srv := gateway.NewServer(cfg, mgr, logger)

	httpServer := &http.Server{
		Addr:        cfg.Listen,
		Handler:     srv.Handler(),
		ReadTimeout: 0, // connections are long-lived by design
		IdleTimeout: 0,
	}

	// Graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		<-sigCh
		logger.Info("shutting down...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("listening", "addr", cfg.Listen)
	fmt.Fprintf(os.Stderr, "\n  runbox daemon ready at http://%s\n\n", cfg.Listen)

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
