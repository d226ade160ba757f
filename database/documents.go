package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	apperrors "rag-assistant/errors"
)

// Document processing lifecycle. A document enters the registry as
// pending, moves to processing while chunks are embedded, and ends up
// processed or failed.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusProcessed  = "processed"
	StatusFailed     = "failed"
)

// DocumentRecord tracks an uploaded document through ingestion.
type DocumentRecord struct {
	FileID       uuid.UUID
	Filename     string
	StoredName   string
	FileSize     int64
	ContentType  string
	PageCount    int
	ChunkCount   int
	ContentTypes []string
	Status       string
	Error        string
	CreatedAt    time.Time
	ProcessedAt  *time.Time
}

const documentColumns = `file_id, filename, stored_name, file_size, content_type,
		page_count, chunk_count, content_types, status, error, created_at, processed_at`

// CreateDocument registers an uploaded document as pending. Re-uploading
// the same stored name replaces the previous registration.
func (s *PostgresStore) CreateDocument(ctx context.Context, doc DocumentRecord) (DocumentRecord, error) {
	query := `
		INSERT INTO documents (file_id, filename, stored_name, file_size, content_type, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING ` + documentColumns

	row := s.DB.QueryRowContext(ctx, query,
		doc.FileID,
		doc.Filename,
		doc.StoredName,
		doc.FileSize,
		doc.ContentType,
		StatusPending,
	)
	result, err := scanDocument(row)
	if err != nil {
		return DocumentRecord{}, fmt.Errorf("failed to create document record: %w", err)
	}
	return result, nil
}

func (s *PostgresStore) GetDocument(ctx context.Context, fileID uuid.UUID) (DocumentRecord, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE file_id = $1`
	doc, err := scanDocument(s.DB.QueryRowContext(ctx, query, fileID))
	if err == sql.ErrNoRows {
		return DocumentRecord{}, apperrors.WrapErrorf(apperrors.ErrNotFound, "document %s", fileID)
	}
	if err != nil {
		return DocumentRecord{}, fmt.Errorf("failed to get document: %w", err)
	}
	return doc, nil
}

// ListDocuments returns all registered documents, newest first.
func (s *PostgresStore) ListDocuments(ctx context.Context) ([]DocumentRecord, error) {
	query := `SELECT ` + documentColumns + ` FROM documents ORDER BY created_at DESC`
	return s.queryDocuments(ctx, query)
}

// ListDocumentsByStatus returns documents in the given lifecycle state,
// oldest first so pending work is processed in upload order.
func (s *PostgresStore) ListDocumentsByStatus(ctx context.Context, status string) ([]DocumentRecord, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE status = $1 ORDER BY created_at ASC`
	return s.queryDocuments(ctx, query, status)
}

// MarkProcessing transitions a pending document to processing. Returns
// false if the document was already claimed by another worker.
func (s *PostgresStore) MarkProcessing(ctx context.Context, fileID uuid.UUID) (bool, error) {
	query := `UPDATE documents SET status = $1 WHERE file_id = $2 AND status = $3`
	res, err := s.DB.ExecContext(ctx, query, StatusProcessing, fileID, StatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to mark document processing: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check processing claim: %w", err)
	}
	return affected == 1, nil
}

func (s *PostgresStore) MarkProcessed(ctx context.Context, fileID uuid.UUID, chunkCount, pageCount int, contentTypes []string) error {
	query := `
		UPDATE documents
		SET status = $1, chunk_count = $2, page_count = $3, content_types = $4,
			error = '', processed_at = NOW()
		WHERE file_id = $5`
	if _, err := s.DB.ExecContext(ctx, query, StatusProcessed, chunkCount, pageCount, pq.Array(contentTypes), fileID); err != nil {
		return fmt.Errorf("failed to mark document processed: %w", err)
	}
	return nil
}

func (s *PostgresStore) MarkFailed(ctx context.Context, fileID uuid.UUID, cause string) error {
	query := `UPDATE documents SET status = $1, error = $2, processed_at = NOW() WHERE file_id = $3`
	if _, err := s.DB.ExecContext(ctx, query, StatusFailed, cause, fileID); err != nil {
		return fmt.Errorf("failed to mark document failed: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteDocument(ctx context.Context, fileID uuid.UUID) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM documents WHERE file_id = $1`, fileID)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return apperrors.WrapErrorf(apperrors.ErrNotFound, "document %s", fileID)
	}
	return nil
}

// PurgeDocuments removes all document registrations.
func (s *PostgresStore) PurgeDocuments(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, `DELETE FROM documents`); err != nil {
		return fmt.Errorf("failed to purge documents: %w", err)
	}
	return nil
}

// DocumentStats aggregates the registry for the health endpoint.
type DocumentStats struct {
	TotalDocuments int
	TotalSizeBytes int64
	TotalChunks    int
	CountsByStatus map[string]int
}

func (s *PostgresStore) GetDocumentStats(ctx context.Context) (DocumentStats, error) {
	stats := DocumentStats{CountsByStatus: make(map[string]int)}

	query := `
		SELECT status, COUNT(*), COALESCE(SUM(file_size), 0), COALESCE(SUM(chunk_count), 0)
		FROM documents GROUP BY status`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return DocumentStats{}, fmt.Errorf("failed to query document stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status string
			count  int
			size   int64
			chunks int
		)
		if err := rows.Scan(&status, &count, &size, &chunks); err != nil {
			return DocumentStats{}, fmt.Errorf("failed to scan stats row: %w", err)
		}
		stats.CountsByStatus[status] = count
		stats.TotalDocuments += count
		stats.TotalSizeBytes += size
		stats.TotalChunks += chunks
	}
	if err := rows.Err(); err != nil {
		return DocumentStats{}, fmt.Errorf("error iterating stats rows: %w", err)
	}
	return stats, nil
}

func (s *PostgresStore) queryDocuments(ctx context.Context, query string, args ...any) ([]DocumentRecord, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var docs []DocumentRecord
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document row: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating document rows: %w", err)
	}
	return docs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (DocumentRecord, error) {
	var (
		doc         DocumentRecord
		processedAt sql.NullTime
	)
	err := row.Scan(
		&doc.FileID,
		&doc.Filename,
		&doc.StoredName,
		&doc.FileSize,
		&doc.ContentType,
		&doc.PageCount,
		&doc.ChunkCount,
		pq.Array(&doc.ContentTypes),
		&doc.Status,
		&doc.Error,
		&doc.CreatedAt,
		&processedAt,
	)
	if err != nil {
		return DocumentRecord{}, err
	}
	if processedAt.Valid {
		t := processedAt.Time
		doc.ProcessedAt = &t
	}
	return doc, nil
}
