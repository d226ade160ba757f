package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"rag-assistant/config"
	"rag-assistant/contextbuilder"
	"rag-assistant/database"
	"rag-assistant/documents"
	"rag-assistant/llmclient"
	"rag-assistant/rag"
	"rag-assistant/vectorstore"
	"rag-assistant/vectorstore/memory"
	"rag-assistant/vectorstore/pgvector"
	"rag-assistant/vectorstore/qdrant"
	"rag-assistant/web"
)

func main() {
	ctx := context.Background()

	// Initialize logger with default level to load config
	tempLogger, err := config.InitLogger("info")
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	// Load config (which includes log level setting)
	cfg := config.Load(tempLogger)

	// Re-initialize logger with configured level
	logger, err := config.InitLogger(cfg.LogLevel)
	if err != nil {
		fmt.Printf("Failed to re-initialize logger with configured level: %v\n", err)
		os.Exit(1)
	}
	defer config.Cleanup()

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		logger.Fatal("Failed to create upload directory", zap.Error(err))
	}

	registry, err := database.NewPostgresStore(cfg.PostgresURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer registry.Close()

	if err := registry.EnsureSchema(ctx); err != nil {
		logger.Fatal("Failed to ensure database schema", zap.Error(err))
	}

	store, err := newVectorStore(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize vector store", zap.Error(err))
	}
	if err := store.EnsureCollection(ctx, cfg.VectorSize); err != nil {
		logger.Fatal("Failed to ensure vector collection", zap.Error(err))
	}

	stopwords := contextbuilder.LoadStopwords(cfg.StopwordsFile, logger)
	normalizer := contextbuilder.NewNormalizer(stopwords)

	builder, err := contextbuilder.New(contextbuilder.Config{
		MinRelevance:          cfg.MinRelevance,
		MaxChunks:             cfg.MaxChunks,
		DiversityFactor:       cfg.DiversityFactor,
		CleanStopwords:        cfg.CleanStopwords,
		MMREnabled:            cfg.MMREnabled,
		DuplicatePrefixLength: cfg.DuplicatePrefixLength,
		MaxContextChars:       cfg.ContextMaxChars,
	}, normalizer, logger)
	if err != nil {
		logger.Fatal("Failed to initialize context builder", zap.Error(err))
	}

	chunker, err := documents.NewChunker(documents.ChunkerConfig{
		Size:    cfg.ChunkSize,
		Overlap: cfg.ChunkOverlap,
		MinSize: cfg.MinChunkSize,
	}, documents.NewProseSentenceSplitter(logger), logger)
	if err != nil {
		logger.Fatal("Failed to initialize chunker", zap.Error(err))
	}

	extractor := documents.NewExtractor(logger)
	llm := llmclient.New(cfg, logger)

	ragService := rag.New(cfg, registry, store, llm, builder, extractor, chunker, logger)

	// Pick up uploads left over from a previous run.
	go func() {
		pendingCtx, cancel := context.WithTimeout(ctx, 30*time.Minute)
		defer cancel()
		if processed, err := ragService.ProcessPending(pendingCtx); err != nil {
			logger.Warn("Pending document sweep failed", zap.Error(err))
		} else if processed > 0 {
			logger.Info("Processed pending documents", zap.Int("count", processed))
		}
	}()

	webServer := web.NewServer(cfg, ragService, store, registry, extractor, logger)

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	port := fmt.Sprintf(":%d", cfg.WebPort)
	logger.Info("Starting RAG assistant web server", zap.String("port", port))
	if err := webServer.Start(ctx, port); err != nil {
		logger.Error("Web server error", zap.Error(err))
		os.Exit(1)
	}
}

func newVectorStore(cfg *config.Config, logger *zap.Logger) (vectorstore.Store, error) {
	switch cfg.VectorStore {
	case "pgvector":
		return pgvector.New(cfg.PostgresURL, cfg.CollectionName, logger)
	case "memory":
		return memory.New(cfg.CollectionName), nil
	default:
		return qdrant.New(qdrant.Config{
			URL:        cfg.QdrantURL,
			APIKey:     cfg.QdrantAPIKey,
			Collection: cfg.CollectionName,
		}), nil
	}
}
