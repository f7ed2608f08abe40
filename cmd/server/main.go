package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hwingest/internal/api"
	"hwingest/internal/chunker"
	"hwingest/internal/config"
	"hwingest/internal/pipeline"
	"hwingest/internal/stats"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The tokenizer loads its encoding tables once; fail fast if that breaks.
	tok, err := chunker.NewTokenizer()
	if err != nil {
		log.Error("tokenizer init failed", "error", err)
		os.Exit(1)
	}
	engine := chunker.NewEngine(tok, log)
	recorder := stats.NewRecorder(cfg.StatsWindow)

	orch := pipeline.NewOrchestrator(cfg, engine, recorder, log)
	orch.Start(ctx)

	srv := api.NewServer(orch, recorder, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Info("starting hwingest", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
