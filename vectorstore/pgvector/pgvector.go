// Package pgvector stores and searches chunk embeddings in PostgreSQL
// using the pgvector extension.
package pgvector

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	pgv "github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"rag-assistant/contextbuilder"
	"rag-assistant/errors"
	"rag-assistant/vectorstore"
)

type Store struct {
	db     *sql.DB
	table  string
	logger *zap.Logger
}

// New opens a connection pool to PostgreSQL. The table is created lazily
// by EnsureCollection so the embedding dimension can come from config.
func New(connString, table string, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, errors.WrapError(err,"failed to open postgres connection")
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.WrapError(err,"failed to ping postgres")
	}
	if table == "" {
		table = "chunk_embeddings"
	}
	return &Store{db: db, table: table, logger: logger}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) EnsureCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.WrapErrorf(errors.ErrConfiguration, "invalid vector dimension %d", dimension)
	}
	if _, err := s.db.ExecContext(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return errors.WrapError(err,"failed to create vector extension")
	}
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			embedding vector(%d) NOT NULL,
			text TEXT NOT NULL,
			metadata JSONB NOT NULL DEFAULT '{}'
		)`, s.table, dimension)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return errors.WrapError(err,"failed to create embeddings table")
	}
	indexQuery := fmt.Sprintf(
		`CREATE INDEX IF NOT EXISTS %s_file_id_idx ON %s ((metadata->>'file_id'))`,
		s.table, s.table)
	if _, err := s.db.ExecContext(ctx, indexQuery); err != nil {
		return errors.WrapError(err,"failed to create file_id index")
	}
	return nil
}

func (s *Store) Upsert(ctx context.Context, points []vectorstore.Point) error {
	if len(points) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.WrapError(err,"failed to begin transaction")
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
		INSERT INTO %s (id, embedding, text, metadata)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			text = EXCLUDED.text,
			metadata = EXCLUDED.metadata`, s.table)

	for _, p := range points {
		meta, err := json.Marshal(p.Metadata)
		if err != nil {
			return errors.WrapError(err,"failed to marshal point metadata")
		}
		if _, err := tx.ExecContext(ctx, query, p.ID, pgv.NewVector(p.Vector), p.Text, meta); err != nil {
			return errors.WrapErrorf(err,"failed to upsert point %s", p.ID)
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.WrapError(err,"failed to commit upsert")
	}
	return nil
}

func (s *Store) Search(ctx context.Context, vector []float32, params vectorstore.SearchParams) ([]contextbuilder.Candidate, error) {
	columns := "id, text, metadata, 1 - (embedding <=> $1) AS score"
	if params.WithVectors {
		columns += ", embedding"
	}
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE 1 - (embedding <=> $1) >= $2
		ORDER BY embedding <=> $1
		LIMIT $3`, columns, s.table)

	rows, err := s.db.QueryContext(ctx, query, pgv.NewVector(vector), params.ScoreThreshold, params.Limit)
	if err != nil {
		return nil, errors.WrapError(err,"failed to search embeddings")
	}
	defer rows.Close()

	var candidates []contextbuilder.Candidate
	for rows.Next() {
		var (
			c        contextbuilder.Candidate
			metaJSON []byte
			emb      pgv.Vector
		)
		dest := []any{&c.ID, &c.Text, &metaJSON, &c.Score}
		if params.WithVectors {
			dest = append(dest, &emb)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, errors.WrapError(err,"failed to scan search row")
		}
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &c.Metadata); err != nil {
				s.logger.Warn("Skipping malformed chunk metadata", zap.String("id", c.ID), zap.Error(err))
				c.Metadata = nil
			}
		}
		if params.WithVectors {
			c.Vector = emb.Slice()
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapError(err,"failed to read search rows")
	}
	return candidates, nil
}

func (s *Store) DeleteByFileID(ctx context.Context, fileID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE metadata->>'file_id' = $1`, s.table)
	if _, err := s.db.ExecContext(ctx, query, fileID); err != nil {
		return errors.WrapErrorf(err,"failed to delete chunks for file %s", fileID)
	}
	return nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, s.table)
	if err := s.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, errors.WrapError(err,"failed to count chunks")
	}
	return count, nil
}

func (s *Store) Purge(ctx context.Context) error {
	query := fmt.Sprintf(`TRUNCATE %s`, s.table)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return errors.WrapError(err,"failed to purge chunks")
	}
	return nil
}
