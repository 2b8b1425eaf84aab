package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fwegener83/crawl4ai-mcp-server/internal/chunking"
	"github.com/fwegener83/crawl4ai-mcp-server/internal/config"
	"github.com/fwegener83/crawl4ai-mcp-server/internal/embeddings"
	"github.com/fwegener83/crawl4ai-mcp-server/internal/httpadapter"
	"github.com/fwegener83/crawl4ai-mcp-server/internal/llm"
	"github.com/fwegener83/crawl4ai-mcp-server/internal/logging"
	"github.com/fwegener83/crawl4ai-mcp-server/internal/mcpadapter"
	"github.com/fwegener83/crawl4ai-mcp-server/internal/query"
	"github.com/fwegener83/crawl4ai-mcp-server/internal/services"
	"github.com/fwegener83/crawl4ai-mcp-server/internal/store/fsstore"
	syncstate "github.com/fwegener83/crawl4ai-mcp-server/internal/sync"
	"github.com/fwegener83/crawl4ai-mcp-server/internal/telemetry"
	"github.com/fwegener83/crawl4ai-mcp-server/internal/usecase"
	"github.com/fwegener83/crawl4ai-mcp-server/internal/vectorstore"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the knowledge-base daemon (MCP stdio + HTTP API)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:    cfg.Telemetry.Enabled,
		Endpoint:   cfg.Telemetry.Endpoint,
		Insecure:   cfg.Telemetry.Insecure,
		SampleRate: cfg.Telemetry.SampleRate,
	}, "crawl4ai-core", version)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	backend, fsBackend, err := openCollectionStore(cfg.Storage)
	if err != nil {
		return err
	}

	vectors, err := openVectorStore(cfg.VectorStore, logger)
	if err != nil {
		_ = backend.Close()
		return err
	}

	embedder, err := embeddings.NewService(ctx, embeddings.Config{
		BaseURL:        cfg.Embeddings.BaseURL,
		Model:          cfg.Embeddings.Model,
		APIKey:         cfg.Embeddings.APIKey,
		Dimensionality: cfg.Embeddings.Dimensionality,
	})
	if err != nil {
		_ = vectors.Close()
		_ = backend.Close()
		return err
	}

	var llmProvider llm.Provider
	if cfg.LLM.Enabled {
		provider, err := llm.NewLangchainProvider(llm.Config{
			BaseURL:   cfg.LLM.BaseURL,
			Model:     cfg.LLM.Model,
			APIKey:    cfg.LLM.APIKey,
			RateLimit: cfg.LLM.RateLimit,
			Burst:     cfg.LLM.Burst,
		})
		if err != nil {
			_ = vectors.Close()
			_ = backend.Close()
			return err
		}
		llmProvider = provider
	}

	chunkCfg := chunking.DefaultConfig()
	chunkCfg.Strategy = chunking.Strategy(cfg.Chunking.Strategy)
	chunkCfg.ChunkSize = cfg.Chunking.ChunkSize
	chunkCfg.ChunkOverlapRatio = cfg.Chunking.ChunkOverlapRatio

	coordinator := syncstate.NewCoordinator(backend, backend, vectors, embedder, syncstate.Config{
		MaxFileConcurrency: cfg.Sync.MaxFileConcurrency,
		RetryAttempts:      cfg.Sync.RetryAttempts,
		RetryBackoffBase:   cfg.Sync.RetryBackoffBase,
		Chunking:           chunkCfg,
	}, logger)

	queryCfg := query.DefaultConfig()
	queryCfg.QueryExpansionEnabled = cfg.Query.QueryExpansionEnabled
	queryCfg.MaxQueryVariants = cfg.Query.MaxQueryVariants
	queryCfg.ExpansionCacheTTL = cfg.Query.ExpansionCacheTTL
	queryCfg.AutoRerankingEnabled = cfg.Query.AutoRerankingEnabled
	queryCfg.RerankingThreshold = cfg.Query.RerankingThreshold
	queryCfg.DefaultSimilarityThresh = cfg.Query.SimilarityThreshold
	queryCfg.ContextExpansionEnabled = cfg.Query.ContextExpansionEnabled
	queryCfg.RAGMaxContextTokens = cfg.Query.RAGMaxContextTokens
	pipeline := query.NewPipeline(vectors, embedder, llmProvider, backend, queryCfg, logger)

	var reconciler services.Reconciler
	if fsBackend != nil {
		rec := fsstore.NewReconciler(fsBackend, fsstore.ReconcilerConfig{
			Interval: cfg.Storage.ReconcileInterval,
		}, logger)
		rec.Start(ctx)
		defer rec.Stop()
		reconciler = rec
	}

	container := services.NewContainer(services.Options{
		Collections:  backend,
		SyncStatuses: backend,
		VectorStore:  vectors,
		Embedder:     embedder,
		LLM:          llmProvider,
		Sync:         coordinator,
		Query:        pipeline,
		Reconciler:   reconciler,
		Logger:       logger,
	})
	defer func() {
		if err := container.Close(); err != nil {
			logger.Warn("container close failed", zap.Error(err))
		}
	}()

	uc := usecase.New(container)

	httpServer := httpadapter.NewServer(uc, logger, httpadapter.Config{
		Host: cfg.Server.HTTPHost,
		Port: cfg.Server.HTTPPort,
	})
	mcpServer := mcpadapter.NewServer(uc)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return mcpServer.Run(gctx)
	})
	g.Go(func() error {
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	logger.Info("crawl4ai-core started",
		zap.String("version", version),
		zap.String("storage", cfg.Storage.Type),
		zap.String("vector_store", cfg.VectorStore.Provider))

	err = g.Wait()
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func openVectorStore(cfg config.VectorStoreConfig, logger *zap.Logger) (vectorstore.Store, error) {
	switch cfg.Provider {
	case "qdrant":
		return vectorstore.NewQdrantStore(vectorstore.QdrantConfig{
			Host:   cfg.Qdrant.Host,
			Port:   cfg.Qdrant.Port,
			UseTLS: cfg.Qdrant.UseTLS,
		}, logger)
	default:
		return vectorstore.NewChromemStore(vectorstore.ChromemConfig{
			Path:     cfg.Chromem.Path,
			Compress: cfg.Chromem.Compress,
		}, logger)
	}
}
