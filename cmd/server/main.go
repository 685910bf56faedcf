package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/legistruct/internal/api"
	"github.com/dgallion1/legistruct/internal/chunker"
	"github.com/dgallion1/legistruct/internal/config"
	"github.com/dgallion1/legistruct/internal/parser"
	"github.com/dgallion1/legistruct/internal/pipeline"
	"github.com/dgallion1/legistruct/internal/storage"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	rules, err := config.LoadRules(cfg.RulesPath)
	if err != nil {
		log.Error("invalid parsing rules", "path", cfg.RulesPath, "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize clients.
	store, err := storage.NewAdapter(cfg.StorageOptions())
	if err != nil {
		log.Error("storage init failed", "adapter", cfg.OutputAdapter, "error", err)
		os.Exit(1)
	}
	dp, err := pipeline.NewDocParser(rules, log)
	if err != nil {
		log.Error("parser init failed", "error", err)
		os.Exit(1)
	}

	exportOpts := pipeline.DefaultExportOptions()
	exportOpts.Policy = rules.Policy()
	exportOpts.Chunk = chunker.Config{
		ChunkSize:    cfg.DefaultChunkSize,
		ChunkOverlap: cfg.DefaultChunkOverlap,
		MinChunk:     chunker.DefaultConfig().MinChunk,
	}
	opts := pipeline.WorkerOptions{
		Parse: parser.Options{
			PDFBackend:            cfg.PDFBackend,
			FallbackPdftotext:     cfg.PDFFallbackPdftotext,
			ExcludeHeadersFooters: true,
		},
		Export: exportOpts,
		Dedup:  true,
	}

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, dp, store, opts, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, rules.Policy(), log, cfg)

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

		store.Close()
	}()

	log.Info("starting legistruct", "port", cfg.Port, "output", cfg.OutputAdapter, "pdf_backend", cfg.PDFBackend)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
