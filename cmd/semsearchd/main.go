package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/knoguchi/semsearch/internal/config"
	"github.com/knoguchi/semsearch/internal/embedder"
	"github.com/knoguchi/semsearch/internal/ingestion"
	"github.com/knoguchi/semsearch/internal/llm"
	"github.com/knoguchi/semsearch/internal/metrics"
	"github.com/knoguchi/semsearch/internal/repository"
	"github.com/knoguchi/semsearch/internal/repository/jsonfile"
	"github.com/knoguchi/semsearch/internal/repository/postgres"
	"github.com/knoguchi/semsearch/internal/reranker"
	"github.com/knoguchi/semsearch/internal/server"
	"github.com/knoguchi/semsearch/internal/service"
	"github.com/knoguchi/semsearch/internal/vectorstore"
)

func main() {
	// Set up structured logging
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(os.Getenv("LOG_LEVEL"))); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("failed to run server", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	slog.Info("starting search service",
		"http_port", cfg.HTTPPort,
		"environment", cfg.Environment,
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Initialize Ollama embedder behind the query cache
	ollamaEmbedder := embedder.NewOllamaEmbedder(embedder.OllamaConfig{
		BaseURL:          cfg.OllamaURL,
		Model:            cfg.OllamaEmbeddingModel,
		BatchConcurrency: cfg.EmbedBatchConcurrency,
	})
	embed, err := embedder.NewCachedEmbedder(ollamaEmbedder, cfg.EmbedCacheSize, m.EmbeddingCache())
	if err != nil {
		return fmt.Errorf("failed to create embedding cache: %w", err)
	}
	slog.Info("initialized Ollama embedder", "model", cfg.OllamaEmbeddingModel, "cache_size", cfg.EmbedCacheSize)

	// Pick the corpus source
	var source repository.CorpusSource
	if cfg.DatabaseURL != "" {
		db, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()
		slog.Info("connected to PostgreSQL")
		source = postgres.NewCorpusSource(db)
	} else {
		source = jsonfile.New(cfg.CorpusPath)
		slog.Info("using JSON corpus", "path", cfg.CorpusPath)
	}

	// Build the index before serving anything
	index, stats, err := ingestion.Initialize(ctx, source, embed, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to build index: %w", err)
	}
	slog.Info("index ready", "documents", stats.DocumentCount, "dimension", stats.Dimension)

	// Initialize the rerank oracle
	llmClient := llm.NewOllamaClient(
		llm.WithBaseURL(cfg.OllamaURL),
		llm.WithModel(cfg.OllamaRerankModel),
		llm.WithRateLimit(cfg.OracleRateLimit, cfg.RerankConcurrency),
	)

	rr := reranker.NewLLMReranker(llmClient,
		reranker.WithModel(cfg.OllamaRerankModel),
		reranker.WithTimeout(cfg.RerankTimeout),
		reranker.WithMaxTokens(cfg.RerankMaxTokens),
		reranker.WithConcurrency(cfg.RerankConcurrency),
		reranker.WithLogger(slog.Default()),
		reranker.WithMetrics(m),
	)
	slog.Info("initialized reranker", "model", rr.ModelName(), "concurrency", cfg.RerankConcurrency)

	searchSvc := service.NewSearchService(index, embed,
		service.WithReranker(rr),
		service.WithLogger(slog.Default()),
		service.WithMetrics(m),
	)

	httpServer := server.NewHTTPServer(server.HTTPServerConfig{
		Port:           cfg.HTTPPort,
		Logger:         slog.Default(),
		AllowedOrigins: []string{"*"}, // Configure in production
		Gatherer:       reg,
		WriteTimeout:   cfg.WriteTimeout(),
		Defaults: server.RequestDefaults{
			K:       cfg.DefaultTopK,
			Rerank:  true,
			RerankK: cfg.DefaultRerankK,
		},
	}, searchSvc)
	httpServer.SetReady(true)

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.Start(); err != nil {
			errCh <- err
		}
	}()

	// Wait for shutdown signal
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("received shutdown signal")
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown HTTP server", "error", err)
	}

	slog.Info("server stopped")
	return nil
}

// Ensure interfaces are satisfied at compile time
var (
	_ repository.CorpusSource = (*postgres.CorpusSource)(nil)
	_ repository.CorpusSource = (*jsonfile.Source)(nil)
	_ embedder.Embedder       = (*embedder.OllamaEmbedder)(nil)
	_ embedder.Embedder       = (*embedder.CachedEmbedder)(nil)
	_ llm.LLM                 = (*llm.OllamaClient)(nil)
	_ reranker.Reranker       = (*reranker.LLMReranker)(nil)
	_ service.Index           = (*vectorstore.Index)(nil)
	_ server.Searcher         = (*service.SearchService)(nil)
)
