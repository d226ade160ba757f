// Package memory is an in-process vector store backed by chromem-go.
// Useful for tests and single-node deployments without external services.
package memory

import (
	"context"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"rag-assistant/contextbuilder"
	"rag-assistant/errors"
	"rag-assistant/vectorstore"
)

type Store struct {
	db   *chromem.DB
	name string

	mu         sync.Mutex
	collection *chromem.Collection
}

func New(collectionName string) *Store {
	if collectionName == "" {
		collectionName = "document_chunks"
	}
	return &Store{
		db:   chromem.NewDB(),
		name: collectionName,
	}
}

// embeddings arrive precomputed, so the collection never embeds on its own
func rejectEmbedding(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.ErrInvalidInput
}

func (s *Store) EnsureCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.WrapErrorf(errors.ErrConfiguration, "invalid vector dimension %d", dimension)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.collection != nil {
		return nil
	}
	c, err := s.db.GetOrCreateCollection(s.name, nil, rejectEmbedding)
	if err != nil {
		return errors.WrapError(err, "failed to create in-memory collection")
	}
	s.collection = c
	return nil
}

func (s *Store) current() (*chromem.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.collection == nil {
		return nil, errors.WrapError(errors.ErrServiceUnavailable, "collection not initialized")
	}
	return s.collection, nil
}

func (s *Store) Upsert(ctx context.Context, points []vectorstore.Point) error {
	c, err := s.current()
	if err != nil {
		return err
	}
	for _, p := range points {
		doc := chromem.Document{
			ID:        p.ID,
			Metadata:  p.Metadata,
			Embedding: p.Vector,
			Content:   p.Text,
		}
		if err := c.AddDocument(ctx, doc); err != nil {
			return errors.WrapErrorf(err, "failed to add chunk %s", p.ID)
		}
	}
	return nil
}

func (s *Store) Search(ctx context.Context, vector []float32, params vectorstore.SearchParams) ([]contextbuilder.Candidate, error) {
	c, err := s.current()
	if err != nil {
		return nil, err
	}
	limit := params.Limit
	if limit <= 0 {
		limit = 5
	}
	// QueryEmbedding rejects nResults beyond the stored document count
	if count := c.Count(); count < limit {
		limit = count
	}
	if limit == 0 {
		return nil, nil
	}

	results, err := c.QueryEmbedding(ctx, vector, limit, nil, nil)
	if err != nil {
		return nil, errors.WrapError(err, "in-memory query failed")
	}

	candidates := make([]contextbuilder.Candidate, 0, len(results))
	for _, r := range results {
		score := float64(r.Similarity)
		if params.ScoreThreshold > 0 && score < params.ScoreThreshold {
			continue
		}
		cand := contextbuilder.Candidate{
			ID:       r.ID,
			Score:    score,
			Text:     r.Content,
			Metadata: r.Metadata,
		}
		if params.WithVectors {
			cand.Vector = r.Embedding
		}
		candidates = append(candidates, cand)
	}
	return candidates, nil
}

func (s *Store) DeleteByFileID(ctx context.Context, fileID string) error {
	c, err := s.current()
	if err != nil {
		return err
	}
	where := map[string]string{contextbuilder.MetaFileID: fileID}
	if err := c.Delete(ctx, where, nil); err != nil {
		return errors.WrapErrorf(err, "failed to delete chunks for file %s", fileID)
	}
	return nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	c, err := s.current()
	if err != nil {
		return 0, err
	}
	return c.Count(), nil
}

func (s *Store) Purge(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.collection == nil {
		return nil
	}
	if err := s.db.DeleteCollection(s.name); err != nil {
		return errors.WrapError(err, "failed to drop in-memory collection")
	}
	c, err := s.db.GetOrCreateCollection(s.name, nil, rejectEmbedding)
	if err != nil {
		return errors.WrapError(err, "failed to recreate in-memory collection")
	}
	s.collection = c
	return nil
}
