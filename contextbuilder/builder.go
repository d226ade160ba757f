package contextbuilder

import (
	"fmt"

	"go.uber.org/zap"
)

// Defaults applied by Config.normalize. The diversity default mildly
// favors diversity over raw relevance.
const (
	DefaultDiversityFactor       = 0.3
	DefaultMinRelevance          = 0.65
	DefaultMaxChunks             = 5
	DefaultDuplicatePrefixLength = 100
)

// Config is the static configuration of a ContextBuilder. It is read-only
// after construction; the builder keeps no other state between calls.
type Config struct {
	// MinRelevance drops candidates scoring below it before selection.
	MinRelevance float64
	// MaxChunks caps the number of chunks in the assembled context.
	MaxChunks int
	// DiversityFactor is the MMR relevance/diversity weight in [0,1].
	DiversityFactor float64
	// CleanStopwords enables stop-word removal during formatting.
	CleanStopwords bool
	// MMREnabled selects MMR re-ranking; when false the top MaxChunks by
	// score are taken after relevance filtering.
	MMREnabled bool
	// DuplicatePrefixLength bounds the fingerprint prefix, in runes.
	DuplicatePrefixLength int
	// MaxContextChars optionally budgets the rendered context length in
	// bytes; 0 disables the budget.
	MaxContextChars int
}

// Validate rejects configurations the engine cannot run with. These are
// construction-time failures: the engine refuses to initialize rather
// than operate with undefined thresholds.
func (c Config) Validate() error {
	if c.DiversityFactor < 0 || c.DiversityFactor > 1 {
		return fmt.Errorf("diversity factor %v outside [0,1]", c.DiversityFactor)
	}
	if c.MinRelevance < 0 || c.MinRelevance > 1 {
		return fmt.Errorf("min relevance %v outside [0,1]", c.MinRelevance)
	}
	if c.MaxChunks < 0 {
		return fmt.Errorf("max chunks %d is negative", c.MaxChunks)
	}
	if c.DuplicatePrefixLength < 0 {
		return fmt.Errorf("duplicate prefix length %d is negative", c.DuplicatePrefixLength)
	}
	if c.MaxContextChars < 0 {
		return fmt.Errorf("max context chars %d is negative", c.MaxContextChars)
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.DuplicatePrefixLength == 0 {
		c.DuplicatePrefixLength = DefaultDuplicatePrefixLength
	}
	return c
}

// ContextBuilder selects, deduplicates, and renders retrieved chunks into
// a single context string for answer generation. It is stateless across
// calls and safe for concurrent use.
type ContextBuilder struct {
	cfg        Config
	normalizer *Normalizer
	logger     *zap.Logger
}

// New validates cfg and returns a ContextBuilder. The normalizer carries
// the injected stop-word set; pass NewNormalizer(nil) when stop-word
// removal is disabled.
func New(cfg Config, normalizer *Normalizer, logger *zap.Logger) (*ContextBuilder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid context builder configuration: %w", err)
	}
	if normalizer == nil {
		normalizer = NewNormalizer(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContextBuilder{cfg: cfg.withDefaults(), normalizer: normalizer, logger: logger}, nil
}

// BuildContext runs the selection pipeline over raw search results:
// relevance filter, MMR (or score ranking when disabled), duplicate
// suppression, and formatting. It always returns a string. Data-quality
// problems never propagate to the caller: a malformed input or an
// internal failure is logged with enough detail to reproduce and yields
// "", so answer generation proceeds context-free instead of failing the
// request. An empty result is a normal outcome, not an error.
func (b *ContextBuilder) BuildContext(queryVector []float32, results []Candidate) (context string) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Context construction failed, returning empty context",
				zap.Any("panic", r),
				zap.Int("query_vector_len", len(queryVector)),
				zap.Int("candidate_count", len(results)))
			context = ""
		}
	}()

	if len(results) == 0 {
		b.logger.Debug("No search results to build context from")
		return ""
	}
	if b.cfg.MaxChunks <= 0 {
		return ""
	}

	candidates := b.dropMalformed(results)
	filtered := FilterByRelevance(candidates, b.cfg.MinRelevance)
	b.logger.Debug("Relevance filtering complete",
		zap.Int("received", len(results)),
		zap.Int("survived", len(filtered)),
		zap.Float64("min_relevance", b.cfg.MinRelevance))

	if len(filtered) == 0 {
		b.logger.Debug("No candidates passed the relevance threshold")
		return ""
	}

	var selected []Candidate
	if b.cfg.MMREnabled {
		selected = SelectMMR(queryVector, filtered, b.cfg.MaxChunks, b.cfg.DiversityFactor)
	} else {
		selected = TopByScore(filtered, b.cfg.MaxChunks)
	}
	b.logger.Debug("Chunk selection complete",
		zap.Int("selected", len(selected)),
		zap.Bool("mmr", b.cfg.MMREnabled))

	return b.formatContext(selected)
}

// dropMalformed removes candidates with no text. Vector problems are left
// to the MMR stage, which excludes unusable vectors itself; text-less
// chunks can never appear in output, so they are removed up front.
// Dropped candidates are logged once with a count to avoid flooding.
func (b *ContextBuilder) dropMalformed(results []Candidate) []Candidate {
	kept := make([]Candidate, 0, len(results))
	dropped := 0
	for _, c := range results {
		if c.Text == "" {
			dropped++
			continue
		}
		kept = append(kept, c)
	}
	if dropped > 0 {
		b.logger.Warn("Dropped malformed candidates without text",
			zap.Int("dropped", dropped),
			zap.Int("received", len(results)))
	}
	return kept
}

// FilterByRelevance retains candidates with Score >= minRelevance,
// preserving original order. An empty result means "no relevant context"
// and is handled by the caller, not treated as an error.
func FilterByRelevance(candidates []Candidate, minRelevance float64) []Candidate {
	filtered := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Score >= minRelevance {
			filtered = append(filtered, c)
		}
	}
	return filtered
}
