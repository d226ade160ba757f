// Package rag orchestrates ingestion and retrieval: documents in,
// context-grounded answers out.
package rag

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"rag-assistant/config"
	"rag-assistant/contextbuilder"
	"rag-assistant/database"
	"rag-assistant/documents"
	"rag-assistant/llmclient"
	"rag-assistant/vectorstore"
)

// LLM abstracts the two inference endpoints the service talks to.
type LLM interface {
	Chat(ctx context.Context, host string, messages []llmclient.Message, temperature *float64) (string, error)
	Embed(ctx context.Context, host string, doc string) ([]float32, error)
}

// DocumentRegistry is the slice of the database layer ingestion needs.
type DocumentRegistry interface {
	ListDocumentsByStatus(ctx context.Context, status string) ([]database.DocumentRecord, error)
	MarkProcessing(ctx context.Context, fileID uuid.UUID) (bool, error)
	MarkProcessed(ctx context.Context, fileID uuid.UUID, chunkCount, pageCount int, contentTypes []string) error
	MarkFailed(ctx context.Context, fileID uuid.UUID, cause string) error
	DeleteDocument(ctx context.Context, fileID uuid.UUID) error
	PurgeDocuments(ctx context.Context) error
}

type RAG struct {
	cfg       *config.Config
	registry  DocumentRegistry
	store     vectorstore.Store
	llm       LLM
	builder   *contextbuilder.ContextBuilder
	extractor *documents.Extractor
	chunker   *documents.Chunker
	logger    *zap.Logger
}

func New(
	cfg *config.Config,
	registry DocumentRegistry,
	store vectorstore.Store,
	llm LLM,
	builder *contextbuilder.ContextBuilder,
	extractor *documents.Extractor,
	chunker *documents.Chunker,
	logger *zap.Logger,
) *RAG {
	return &RAG{
		cfg:       cfg,
		registry:  registry,
		store:     store,
		llm:       llm,
		builder:   builder,
		extractor: extractor,
		chunker:   chunker,
		logger:    logger,
	}
}

// DeleteDocument removes a document's chunks from the vector store and
// its registry entry. The vector store is cleaned first so a failure
// leaves the registry entry in place for a retry.
func (r *RAG) DeleteDocument(ctx context.Context, fileID uuid.UUID) error {
	if err := r.store.DeleteByFileID(ctx, fileID.String()); err != nil {
		return err
	}
	if err := r.registry.DeleteDocument(ctx, fileID); err != nil {
		return err
	}
	r.logger.Info("Document deleted", zap.String("file_id", fileID.String()))
	return nil
}

// Purge drops all chunks and document registrations.
func (r *RAG) Purge(ctx context.Context) error {
	if err := r.store.Purge(ctx); err != nil {
		return err
	}
	if err := r.registry.PurgeDocuments(ctx); err != nil {
		return err
	}
	r.logger.Warn("Knowledge base purged")
	return nil
}
