package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quickshare/internal/server/api"
	"quickshare/internal/server/config"
	"quickshare/internal/server/service"
	"quickshare/internal/server/share"
	"quickshare/internal/server/social"
	"quickshare/internal/server/storage"
)

func main() {
	// Structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load config
	cfg := config.Load()
	slog.Info("configuration loaded",
		"port", cfg.Port,
		"storage_path", cfg.StoragePath,
		"max_file_size", cfg.MaxFileSize,
		"default_ttl", cfg.DefaultTTL,
		"sweep_interval", cfg.SweepInterval,
	)

	// Initialize blob storage
	blobs := storage.NewFileSystemStore(cfg.StoragePath)
	if err := blobs.EnsureDir(); err != nil {
		slog.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}
	slog.Info("blob storage initialized", "path", cfg.StoragePath)

	// Build the core: one store instance, passed explicitly to everything
	// that needs it.
	alphabet := share.AlphabetAlphanumeric
	if cfg.CodeAlphabet == "numeric" {
		alphabet = share.AlphabetNumeric
	}
	gen := share.NewCodeGenerator(alphabet, cfg.CodeLength)
	store := share.NewStore(gen)
	gate := share.NewGate(store)

	// Start the expiry reclaimer
	reclaimCtx, reclaimCancel := context.WithCancel(context.Background())
	reclaimer := share.NewReclaimer(store, blobs, cfg.SweepInterval)
	reclaimer.Start(reclaimCtx)

	// Service and transport
	svc := service.NewShareService(store, gate, reclaimer, blobs, cfg)
	resolver := social.NewResolver(cfg.SocialResolverURL)
	handler := api.NewHandler(svc, resolver, cfg.MaxFileSize)
	e := api.SetupRouter(handler, cfg)

	// Start server in a goroutine
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		slog.Info("starting server", "addr", addr, "base_url", cfg.BaseURL)
		if err := e.Start(addr); err != nil {
			slog.Info("server stopped", "reason", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutting down", "signal", sig)

	// Stop accepting new requests, finish in-flight with 30s timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	// Stop the reclaimer
	reclaimCancel()
	reclaimer.Wait()

	slog.Info("server exited cleanly")
}
