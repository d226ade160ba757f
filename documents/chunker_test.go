package documents

import (
	"strings"
	"testing"

	"go.uber.org/zap"

	"rag-assistant/contextbuilder"
)

func newTestChunker(t *testing.T, cfg ChunkerConfig) *Chunker {
	t.Helper()
	c, err := NewChunker(cfg, RegexSentenceSplitter{}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewChunker() failed: %v", err)
	}
	return c
}

func TestNewChunkerRejectsBadConfig(t *testing.T) {
	cases := []struct {
		name string
		cfg  ChunkerConfig
	}{
		{"zero size", ChunkerConfig{Size: 0}},
		{"negative overlap", ChunkerConfig{Size: 100, Overlap: -1}},
		{"overlap not below size", ChunkerConfig{Size: 100, Overlap: 100}},
		{"negative min size", ChunkerConfig{Size: 100, MinSize: -1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewChunker(tc.cfg, nil, zap.NewNop()); err == nil {
				t.Errorf("NewChunker(%+v) should fail", tc.cfg)
			}
		})
	}
}

func TestChunkPagesRespectsSize(t *testing.T) {
	c := newTestChunker(t, ChunkerConfig{Size: 50, Overlap: 0, MinSize: 0})

	text := "First sentence here. Second sentence follows on. Third one closes it out."
	chunks := c.ChunkPages([]Page{{Number: 1, Text: text}}, nil)

	if len(chunks) < 2 {
		t.Fatalf("expected the text to split, got %d chunks", len(chunks))
	}
	for _, ch := range chunks {
		if len([]rune(ch.Text)) > 50 {
			t.Errorf("chunk exceeds size limit: %q", ch.Text)
		}
		if ch.Metadata[contextbuilder.MetaPage] != "1" {
			t.Errorf("chunk missing page metadata: %v", ch.Metadata)
		}
	}
}

func TestChunkPagesOversizedSentenceHardSplit(t *testing.T) {
	c := newTestChunker(t, ChunkerConfig{Size: 20, Overlap: 0, MinSize: 0})

	long := strings.Repeat("x", 55)
	chunks := c.ChunkPages([]Page{{Number: 1, Text: long}}, nil)

	if len(chunks) != 3 {
		t.Fatalf("55 chars at size 20 should produce 3 chunks, got %d", len(chunks))
	}
	total := 0
	for _, ch := range chunks {
		if len(ch.Text) > 20 {
			t.Errorf("hard-split chunk too long: %d", len(ch.Text))
		}
		total += len(ch.Text)
	}
	if total != 55 {
		t.Errorf("hard split lost characters: got %d total, want 55", total)
	}
}

func TestChunkPagesOverlapCarriesTail(t *testing.T) {
	c := newTestChunker(t, ChunkerConfig{Size: 40, Overlap: 10, MinSize: 0})

	text := "Alpha beta gamma delta done. Epsilon zeta eta theta done. Iota kappa lambda mu done."
	chunks := c.ChunkPages([]Page{{Number: 0, Text: text}}, nil)

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	// Each chunk after the first starts with words from its predecessor.
	for i := 1; i < len(chunks); i++ {
		firstWord := strings.Fields(chunks[i].Text)[0]
		if !strings.Contains(chunks[i-1].Text, firstWord) {
			t.Errorf("chunk %d does not overlap its predecessor: %q / %q",
				i, chunks[i-1].Text, chunks[i].Text)
		}
	}
}

func TestChunkPagesMergesShortTail(t *testing.T) {
	c := newTestChunker(t, ChunkerConfig{Size: 60, Overlap: 0, MinSize: 20})

	text := "A full length sentence that fills most of a chunk here. Tiny end."
	chunks := c.ChunkPages([]Page{{Number: 0, Text: text}}, nil)

	if len(chunks) != 1 {
		t.Fatalf("short tail should merge into previous chunk, got %d chunks", len(chunks))
	}
	if !strings.Contains(chunks[0].Text, "Tiny end.") {
		t.Errorf("merged chunk lost the tail: %q", chunks[0].Text)
	}
}

func TestChunkPagesHeadingMetadata(t *testing.T) {
	c := newTestChunker(t, ChunkerConfig{Size: 500, Overlap: 0, MinSize: 0})

	pageOne := "Chapter 1 Introduction\nOpening paragraph of the first chapter.\nSection 1.2 Details\nDetailed material under the section."
	pageTwo := "Continuation text on the next page without a new heading."

	chunks := c.ChunkPages([]Page{
		{Number: 1, Text: pageOne},
		{Number: 2, Text: pageTwo},
	}, map[string]string{contextbuilder.MetaSource: "doc.pdf"})

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks (pre-section, section, next page), got %d", len(chunks))
	}

	first := chunks[0]
	if got := first.Metadata[contextbuilder.MetaChapter]; got != "1 Introduction" {
		t.Errorf("first chunk chapter = %q, want %q", got, "1 Introduction")
	}
	if first.Metadata[contextbuilder.MetaSection] != "" {
		t.Errorf("first chunk should have no section, got %q", first.Metadata[contextbuilder.MetaSection])
	}

	second := chunks[1]
	if got := second.Metadata[contextbuilder.MetaSection]; got != "1.2 Details" {
		t.Errorf("second chunk section = %q, want %q", got, "1.2 Details")
	}

	third := chunks[2]
	if got := third.Metadata[contextbuilder.MetaChapter]; got != "1 Introduction" {
		t.Errorf("heading should persist across pages, got chapter %q", got)
	}
	if got := third.Metadata[contextbuilder.MetaPage]; got != "2" {
		t.Errorf("third chunk page = %q, want %q", got, "2")
	}
	for _, ch := range chunks {
		if ch.Metadata[contextbuilder.MetaSource] != "doc.pdf" {
			t.Errorf("base metadata not carried: %v", ch.Metadata)
		}
	}
}

func TestChunkPagesCyrillicHeadings(t *testing.T) {
	c := newTestChunker(t, ChunkerConfig{Size: 500, Overlap: 0, MinSize: 0})

	text := "Глава 2 Методы\nТекст главы о методах исследования."
	chunks := c.ChunkPages([]Page{{Number: 1, Text: text}}, nil)

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if got := chunks[0].Metadata[contextbuilder.MetaChapter]; got != "2 Методы" {
		t.Errorf("chapter = %q, want %q", got, "2 Методы")
	}
}

func TestChunkPagesEmptyInput(t *testing.T) {
	c := newTestChunker(t, ChunkerConfig{Size: 100, Overlap: 0, MinSize: 0})

	if chunks := c.ChunkPages(nil, nil); chunks != nil {
		t.Errorf("ChunkPages(nil) = %v, want nil", chunks)
	}
	if chunks := c.ChunkPages([]Page{{Number: 1, Text: "   \n  "}}, nil); chunks != nil {
		t.Errorf("whitespace-only page should produce no chunks, got %v", chunks)
	}
}
