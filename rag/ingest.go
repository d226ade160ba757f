package rag

import (
	"context"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"rag-assistant/contextbuilder"
	"rag-assistant/database"
	"rag-assistant/documents"
	"rag-assistant/vectorstore"
)

// ProcessPending claims and ingests every pending document, oldest
// first. Returns the number of documents that reached the processed
// state. Per-document failures are recorded on the registry entry and
// do not stop the sweep.
func (r *RAG) ProcessPending(ctx context.Context) (int, error) {
	pending, err := r.registry.ListDocumentsByStatus(ctx, database.StatusPending)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, doc := range pending {
		if ctx.Err() != nil {
			return processed, ctx.Err()
		}
		if err := r.ProcessDocument(ctx, doc); err != nil {
			r.logger.Error("Document ingestion failed",
				zap.String("file_id", doc.FileID.String()),
				zap.String("filename", doc.Filename),
				zap.Error(err))
			continue
		}
		processed++
	}
	return processed, nil
}

// ProcessDocument claims one pending document and runs it through
// extract, chunk, embed and upsert. A document claimed by a concurrent
// worker is skipped without error.
func (r *RAG) ProcessDocument(ctx context.Context, doc database.DocumentRecord) error {
	claimed, err := r.registry.MarkProcessing(ctx, doc.FileID)
	if err != nil {
		return err
	}
	if !claimed {
		r.logger.Debug("Document already claimed", zap.String("file_id", doc.FileID.String()))
		return nil
	}

	chunkCount, pageCount, contentTypes, err := r.ingest(ctx, doc)
	if err != nil {
		if markErr := r.registry.MarkFailed(ctx, doc.FileID, err.Error()); markErr != nil {
			r.logger.Error("Failed to record ingestion failure",
				zap.String("file_id", doc.FileID.String()),
				zap.Error(markErr))
		}
		return err
	}
	return r.registry.MarkProcessed(ctx, doc.FileID, chunkCount, pageCount, contentTypes)
}

func (r *RAG) ingest(ctx context.Context, doc database.DocumentRecord) (int, int, []string, error) {
	path := filepath.Join(r.cfg.UploadDir, doc.StoredName)
	extraction, err := r.extractor.Extract(path)
	if err != nil {
		return 0, 0, nil, err
	}

	base := map[string]string{
		contextbuilder.MetaSource: doc.Filename,
		contextbuilder.MetaFileID: doc.FileID.String(),
	}
	chunks := r.chunker.ChunkPages(extraction.Pages, base)
	if len(chunks) == 0 {
		return 0, extraction.PageCount, []string{extraction.ContentType}, nil
	}

	points, dropped := r.embedChunks(ctx, chunks)
	if dropped > 0 {
		r.logger.Warn("Dropped chunks with failed embeddings",
			zap.String("file_id", doc.FileID.String()),
			zap.Int("dropped", dropped),
			zap.Int("total", len(chunks)))
	}

	if err := r.upsertBatches(ctx, points); err != nil {
		return 0, 0, nil, err
	}

	r.logger.Info("Document ingested",
		zap.String("file_id", doc.FileID.String()),
		zap.String("filename", doc.Filename),
		zap.Int("pages", extraction.PageCount),
		zap.Int("chunks", len(points)))

	return len(points), extraction.PageCount, []string{extraction.ContentType}, nil
}

// embedChunks runs the embedding endpoint over a bounded worker pool.
// Chunks whose embedding fails are dropped and counted; they are never
// replaced by zero vectors.
func (r *RAG) embedChunks(ctx context.Context, chunks []documents.Chunk) ([]vectorstore.Point, int) {
	vectors := make([][]float32, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.MaxWorkers)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			vec, err := r.llm.Embed(gctx, r.cfg.EmbeddingLLMHost, chunk.Text)
			if err != nil {
				r.logger.Debug("Chunk embedding failed",
					zap.Int("chunk", i),
					zap.Error(err))
				return nil
			}
			vectors[i] = vec
			return nil
		})
	}
	// Workers only return nil; the group is used for bounding and ctx wiring.
	_ = g.Wait()

	points := make([]vectorstore.Point, 0, len(chunks))
	dropped := 0
	for i, chunk := range chunks {
		if len(vectors[i]) == 0 {
			dropped++
			continue
		}
		points = append(points, vectorstore.Point{
			ID:       uuid.NewString(),
			Vector:   vectors[i],
			Text:     chunk.Text,
			Metadata: chunk.Metadata,
		})
	}
	return points, dropped
}

func (r *RAG) upsertBatches(ctx context.Context, points []vectorstore.Point) error {
	batchSize := r.cfg.UpsertBatchSize
	if batchSize <= 0 {
		batchSize = len(points)
	}
	for start := 0; start < len(points); start += batchSize {
		end := min(start+batchSize, len(points))
		if err := r.store.Upsert(ctx, points[start:end]); err != nil {
			return err
		}
	}
	return nil
}
