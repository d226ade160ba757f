package documents

import (
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"rag-assistant/contextbuilder"
	"rag-assistant/errors"
)

// Chunk is a piece of document text ready for embedding.
type Chunk struct {
	Text     string
	Metadata map[string]string
}

type ChunkerConfig struct {
	Size    int // target chunk size in characters
	Overlap int // tail of the previous chunk carried into the next
	MinSize int // a trailing chunk below this merges into the previous one
}

type Chunker struct {
	cfg      ChunkerConfig
	splitter SentenceSplitter
	logger   *zap.Logger
}

func NewChunker(cfg ChunkerConfig, splitter SentenceSplitter, logger *zap.Logger) (*Chunker, error) {
	if cfg.Size <= 0 {
		return nil, errors.WrapErrorf(errors.ErrConfiguration, "chunk size must be positive, got %d", cfg.Size)
	}
	if cfg.Overlap < 0 || cfg.Overlap >= cfg.Size {
		return nil, errors.WrapErrorf(errors.ErrConfiguration, "chunk overlap %d must be in [0, size)", cfg.Overlap)
	}
	if cfg.MinSize < 0 {
		return nil, errors.WrapErrorf(errors.ErrConfiguration, "min chunk size must not be negative, got %d", cfg.MinSize)
	}
	if splitter == nil {
		splitter = RegexSentenceSplitter{}
	}
	return &Chunker{cfg: cfg, splitter: splitter, logger: logger}, nil
}

var (
	chapterPattern = regexp.MustCompile(`^\s*(?i:глава|chapter)\s+(\d+|[IVXLCivxlc]+)[.:]?\s*(.*)$`)
	sectionPattern = regexp.MustCompile(`^\s*(?:(?i:раздел|section)\s+|§\s*)(\d+(?:\.\d+)*)[.:]?\s*(.*)$`)
)

// segment is a run of text under one chapter/section heading.
type segment struct {
	chapter string
	section string
	text    string
}

// ChunkPages splits extracted pages into overlapping sentence-aware
// chunks. Heading lines update the chapter/section carried in chunk
// metadata; headings persist across pages until replaced.
func (c *Chunker) ChunkPages(pages []Page, base map[string]string) []Chunk {
	var chunks []Chunk
	var chapter, section string

	for _, page := range pages {
		for _, seg := range splitSegments(page.Text, &chapter, &section) {
			for _, text := range c.buildChunks(seg.text) {
				meta := make(map[string]string, len(base)+3)
				for k, v := range base {
					meta[k] = v
				}
				if page.Number > 0 {
					meta[contextbuilder.MetaPage] = strconv.Itoa(page.Number)
				}
				if seg.chapter != "" {
					meta[contextbuilder.MetaChapter] = seg.chapter
				}
				if seg.section != "" {
					meta[contextbuilder.MetaSection] = seg.section
				}
				chunks = append(chunks, Chunk{Text: text, Metadata: meta})
			}
		}
	}
	return chunks
}

// splitSegments walks page lines and cuts a new segment at each heading.
// chapter/section are carried across calls so headings span pages.
func splitSegments(text string, chapter, section *string) []segment {
	var segments []segment
	var body strings.Builder

	flush := func() {
		if t := strings.TrimSpace(body.String()); t != "" {
			segments = append(segments, segment{chapter: *chapter, section: *section, text: t})
		}
		body.Reset()
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if m := chapterPattern.FindStringSubmatch(trimmed); m != nil {
			flush()
			*chapter = strings.TrimSpace(strings.TrimRight(m[1]+" "+m[2], " "))
			*section = ""
			continue
		}
		if m := sectionPattern.FindStringSubmatch(trimmed); m != nil {
			flush()
			*section = strings.TrimSpace(strings.TrimRight(m[1]+" "+m[2], " "))
			continue
		}
		body.WriteString(line)
		body.WriteString("\n")
	}
	flush()
	return segments
}

// buildChunks accumulates sentences up to the configured size, hard
// splitting sentences that alone exceed it, then threads the overlap
// tail of each chunk into the next.
func (c *Chunker) buildChunks(text string) []string {
	sentences := c.splitter.Split(text)
	if len(sentences) == 0 {
		return nil
	}

	var raw []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			raw = append(raw, current.String())
			current.Reset()
		}
	}

	for _, sentence := range sentences {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		runes := []rune(sentence)

		// Hard split sentences that cannot fit in any chunk.
		if len(runes) > c.cfg.Size {
			flush()
			for start := 0; start < len(runes); start += c.cfg.Size {
				end := min(start+c.cfg.Size, len(runes))
				piece := strings.TrimSpace(string(runes[start:end]))
				if piece != "" {
					raw = append(raw, piece)
				}
			}
			continue
		}

		prospective := current.Len()
		if prospective > 0 {
			prospective++
		}
		prospective += len(runes)
		if prospective > c.cfg.Size {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(sentence)
	}
	flush()

	// Merge a short trailing chunk into its predecessor.
	if n := len(raw); n > 1 && len([]rune(raw[n-1])) < c.cfg.MinSize {
		raw[n-2] = raw[n-2] + " " + raw[n-1]
		raw = raw[:n-1]
	}

	if c.cfg.Overlap == 0 || len(raw) < 2 {
		return raw
	}

	chunks := make([]string, 0, len(raw))
	var previousTail string
	for _, chunk := range raw {
		if previousTail != "" {
			chunks = append(chunks, previousTail+" "+chunk)
		} else {
			chunks = append(chunks, chunk)
		}
		previousTail = overlapTail(chunk, c.cfg.Overlap)
	}
	return chunks
}

// overlapTail returns the last at most n runes of text, advanced to the
// next word boundary so the carried context starts on a whole word.
func overlapTail(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	tail := runes[len(runes)-n:]
	for i, r := range tail {
		if r == ' ' {
			return strings.TrimSpace(string(tail[i+1:]))
		}
	}
	return strings.TrimSpace(string(tail))
}

