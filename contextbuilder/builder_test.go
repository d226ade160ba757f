package contextbuilder

import (
	"strings"
	"testing"

	"go.uber.org/zap"
)

func testBuilder(t *testing.T, cfg Config) *ContextBuilder {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	b, err := New(cfg, NewNormalizer(nil), logger)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return b
}

func defaultTestConfig() Config {
	return Config{
		MinRelevance:          0.5,
		MaxChunks:             2,
		DiversityFactor:       0.3,
		MMREnabled:            true,
		DuplicatePrefixLength: 100,
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"diversity_above_one", Config{DiversityFactor: 1.5}},
		{"diversity_negative", Config{DiversityFactor: -0.1}},
		{"relevance_above_one", Config{MinRelevance: 2}},
		{"negative_max_chunks", Config{MaxChunks: -1}},
		{"negative_prefix_length", Config{DuplicatePrefixLength: -5}},
		{"negative_context_budget", Config{MaxContextChars: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg, nil, nil); err == nil {
				t.Error("New() accepted invalid configuration")
			}
		})
	}
}

func TestBuildContextSelectsDiverseChunks(t *testing.T) {
	b := testBuilder(t, defaultTestConfig())

	results := []Candidate{
		{ID: "1", Score: 0.9, Vector: []float32{1, 0}, Text: "A", Metadata: map[string]string{MetaSource: "doc.pdf", MetaPage: "1"}},
		{ID: "2", Score: 0.85, Vector: []float32{0.99, 0.01}, Text: "A duplicate-ish", Metadata: map[string]string{MetaSource: "doc.pdf", MetaPage: "2"}},
		{ID: "3", Score: 0.7, Vector: []float32{0, 1}, Text: "B", Metadata: map[string]string{MetaSource: "doc.pdf", MetaPage: "3"}},
	}

	context := b.BuildContext([]float32{1, 0}, results)

	if !strings.Contains(context, "A") || !strings.Contains(context, "B") {
		t.Errorf("context missing selected chunks:\n%s", context)
	}
	if strings.Contains(context, "duplicate-ish") {
		t.Errorf("near-parallel candidate should have been passed over by MMR:\n%s", context)
	}
	// Selection order is meaningful: most relevant chunk renders first.
	if strings.Index(context, "### doc.pdf\nPage: 1") > strings.Index(context, "Page: 3") {
		t.Errorf("most relevant chunk not rendered first:\n%s", context)
	}
}

func TestBuildContextAllBelowThreshold(t *testing.T) {
	b := testBuilder(t, defaultTestConfig())

	results := []Candidate{
		{ID: "1", Score: 0.4, Vector: []float32{1, 0}, Text: "x"},
		{ID: "2", Score: 0.4, Vector: []float32{0, 1}, Text: "y"},
	}

	if got := b.BuildContext([]float32{1, 0}, results); got != "" {
		t.Errorf("BuildContext() = %q, want empty context", got)
	}
}

func TestBuildContextDeduplicatesIdenticalText(t *testing.T) {
	b := testBuilder(t, defaultTestConfig())

	shared := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 4)
	results := []Candidate{
		{ID: "1", Score: 0.9, Vector: []float32{1, 0}, Text: shared + "alpha"},
		{ID: "2", Score: 0.8, Vector: []float32{0, 1}, Text: shared + "omega"},
	}

	context := b.BuildContext([]float32{1, 0}, results)

	if got := strings.Count(context, "Relevance:"); got != 1 {
		t.Errorf("formatted %d blocks, want 1 (higher-ranked duplicate only):\n%s", got, context)
	}
	if !strings.Contains(context, "Relevance: 0.90") {
		t.Errorf("surviving block should be the first encountered (score 0.90):\n%s", context)
	}
}

func TestBuildContextEdgeCases(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		query   []float32
		results []Candidate
		want    string
	}{
		{
			name:  "empty_results",
			cfg:   defaultTestConfig(),
			query: []float32{1, 0},
			want:  "",
		},
		{
			name: "max_chunks_zero",
			cfg: Config{
				MinRelevance: 0.5,
				MaxChunks:    0,
				MMREnabled:   true,
			},
			query: []float32{1, 0},
			results: []Candidate{
				{ID: "1", Score: 0.9, Vector: []float32{1, 0}, Text: "x"},
			},
			want: "",
		},
		{
			name:  "textless_candidates_dropped",
			cfg:   defaultTestConfig(),
			query: []float32{1, 0},
			results: []Candidate{
				{ID: "1", Score: 0.9, Vector: []float32{1, 0}},
			},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := testBuilder(t, tt.cfg)
			if got := b.BuildContext(tt.query, tt.results); got != tt.want {
				t.Errorf("BuildContext() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildContextMissingVectorsFallback(t *testing.T) {
	b := testBuilder(t, defaultTestConfig())

	results := []Candidate{
		{ID: "low", Score: 0.6, Text: "low text", Metadata: map[string]string{MetaSource: "d"}},
		{ID: "high", Score: 0.9, Text: "high text", Metadata: map[string]string{MetaSource: "d"}},
		{ID: "mid", Score: 0.7, Text: "mid text", Metadata: map[string]string{MetaSource: "d"}},
	}

	context := b.BuildContext([]float32{1, 0}, results)

	if !strings.Contains(context, "high text") || !strings.Contains(context, "mid text") {
		t.Errorf("score fallback should keep the top two by score:\n%s", context)
	}
	if strings.Contains(context, "low text") {
		t.Errorf("score fallback kept more than max_chunks:\n%s", context)
	}
}

func TestBuildContextDeterministic(t *testing.T) {
	b := testBuilder(t, defaultTestConfig())

	results := []Candidate{
		{ID: "1", Score: 0.9, Vector: []float32{0.8, 0.2}, Text: "one", Metadata: map[string]string{MetaSource: "a.pdf", MetaPage: "1"}},
		{ID: "2", Score: 0.8, Vector: []float32{0.2, 0.8}, Text: "two", Metadata: map[string]string{MetaSource: "a.pdf", MetaPage: "2"}},
		{ID: "3", Score: 0.7, Vector: []float32{0.5, 0.5}, Text: "three", Metadata: map[string]string{MetaSource: "a.pdf", MetaPage: "3"}},
	}
	query := []float32{1, 0}

	first := b.BuildContext(query, results)
	for i := 0; i < 20; i++ {
		if got := b.BuildContext(query, results); got != first {
			t.Fatalf("BuildContext() not deterministic on run %d", i)
		}
	}
}

func TestBuildContextRespectsCharBudget(t *testing.T) {
	cfg := defaultTestConfig()
	cfg.MaxChunks = 3
	cfg.MaxContextChars = 120
	b := testBuilder(t, cfg)

	long := strings.Repeat("word ", 40)
	results := []Candidate{
		{ID: "1", Score: 0.9, Vector: []float32{1, 0}, Text: "short text", Metadata: map[string]string{MetaSource: "d", MetaPage: "1"}},
		{ID: "2", Score: 0.8, Vector: []float32{0, 1}, Text: long, Metadata: map[string]string{MetaSource: "d", MetaPage: "2"}},
	}

	context := b.BuildContext([]float32{1, 0}, results)

	if len(context) > 120 {
		t.Errorf("context length %d exceeds configured budget", len(context))
	}
	if !strings.Contains(context, "short text") {
		t.Errorf("budget truncation dropped the leading block:\n%s", context)
	}
	if strings.Contains(context, "word word") {
		t.Errorf("overflowing block should have been excluded:\n%s", context)
	}
}

func TestFormatContextFields(t *testing.T) {
	b := testBuilder(t, defaultTestConfig())

	selected := []Candidate{
		{
			ID:    "1",
			Score: 0.876,
			Text:  "chunk body",
			Metadata: map[string]string{
				MetaSource:  "handbook.pdf",
				MetaPage:    "12",
				MetaChapter: "Safety",
				MetaSection: "2.1",
			},
		},
		{
			ID:    "2",
			Score: 0.71,
			Text:  "unlabeled chunk",
		},
	}

	context := b.formatContext(selected)

	for _, want := range []string{
		"### handbook.pdf",
		"Chapter: Safety",
		"Section: 2.1",
		"Page: 12",
		"Relevance: 0.88",
		"chunk body",
		blockSeparator,
		"### Document",
		"Page: N/A",
		"Relevance: 0.71",
	} {
		if !strings.Contains(context, want) {
			t.Errorf("formatted context missing %q:\n%s", want, context)
		}
	}
}

func TestFormatContextEmpty(t *testing.T) {
	b := testBuilder(t, defaultTestConfig())
	if got := b.formatContext(nil); got != "" {
		t.Errorf("formatContext(nil) = %q, want \"\"", got)
	}
}
