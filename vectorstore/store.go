// Package vectorstore defines the vector-search boundary of the system.
// Adapters translate store-native responses into contextbuilder.Candidate
// values immediately, so raw search-library types never travel further
// into the pipeline.
package vectorstore

import (
	"context"

	"rag-assistant/contextbuilder"
)

// Point is a chunk ready for indexing: a precomputed embedding plus the
// payload the search side will get back.
type Point struct {
	ID       string
	Vector   []float32
	Text     string
	Metadata map[string]string
}

// SearchParams controls a similarity search. WithVectors must be set when
// the results feed MMR selection; without vectors the context engine
// falls back to score-ordered selection.
type SearchParams struct {
	Limit          int
	ScoreThreshold float64
	WithVectors    bool
}

// Store is a vector collection holding embedded document chunks.
type Store interface {
	// EnsureCollection creates the collection with cosine distance if it
	// does not exist yet.
	EnsureCollection(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, points []Point) error
	Search(ctx context.Context, vector []float32, params SearchParams) ([]contextbuilder.Candidate, error)
	// DeleteByFileID removes every chunk ingested from the given file.
	DeleteByFileID(ctx context.Context, fileID string) error
	Count(ctx context.Context) (int, error)
	// Purge drops all points and recreates an empty collection.
	Purge(ctx context.Context) error
}
