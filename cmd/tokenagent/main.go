// Package main is the entry point for the token agent. The agent runs
// one subscriber per configured token endpoint, keeps the fetched
// tokens in a cache, and serves them to local consumers over HTTP.
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

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/blueberrycongee/tokensub"
	"github.com/blueberrycongee/tokensub/caches"
	"github.com/blueberrycongee/tokensub/internal/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to configuration file")
	flag.Parse()

	// Bootstrap logger; replaced once configuration is loaded.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfgManager, err := config.NewManager(*configPath, logger)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	defer cfgManager.Close()

	cfg := cfgManager.Get()

	logger = newLogger(cfg.Logging)
	slog.SetDefault(logger)
	logger.Info("starting token agent", "version", tokensub.Version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := cfgManager.Watch(ctx); err != nil {
		logger.Warn("config hot-reload disabled", "error", err)
	}

	// Token cache shared by all subscribers.
	tokenCache, err := caches.New(caches.Type(cfg.Cache.Type), cfg.Cache.Redis)
	if err != nil {
		logger.Error("failed to create token cache", "error", err)
		os.Exit(1)
	}
	defer tokenCache.Close()

	agent := newAgent(logger, tokenCache)
	if err := agent.apply(ctx, cfg); err != nil {
		logger.Error("failed to start subscribers", "error", err)
		os.Exit(1)
	}
	defer agent.close()

	cfgManager.OnChange(func(newCfg *config.Config) {
		if err := agent.apply(ctx, newCfg); err != nil {
			logger.Error("failed to apply new configuration, keeping current subscribers", "error", err)
		}
	})

	// HTTP surface.
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health/live", agent.handleLive)
	mux.HandleFunc("GET /health/ready", agent.handleReady)
	mux.HandleFunc("GET /v1/tokens/{name}", agent.handleToken)
	if cfg.Metrics.Enabled {
		mux.Handle("GET "+cfg.Metrics.Path, promhttp.Handler())
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("http server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server failed", "error", err)
			cancel()
		}
	}()

	// Wait for shutdown signal.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", "error", err)
	}
}

// newLogger builds the structured logger from the logging config.
func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
