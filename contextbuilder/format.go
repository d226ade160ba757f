package contextbuilder

import (
	"fmt"
	"strings"
)

const blockSeparator = "----------------------------------------"

// formatContext renders the selected candidates into the final context
// string: one block per candidate citing source, page (with an "N/A"
// fallback), optional chapter/section labels, the relevance score to two
// decimals, and the chunk text, terminated by a visible separator line.
// Blocks are joined with a blank line.
//
// Duplicate suppression happens here as the last line of defense, even
// when callers already deduplicated: a chunk whose fingerprint was seen
// earlier in the same call is skipped. Candidates without text are
// skipped as well. An input that yields no blocks produces "".
func (b *ContextBuilder) formatContext(selected []Candidate) string {
	if len(selected) == 0 {
		return ""
	}

	var parts []string
	totalLen := 0
	seen := make(map[string]struct{}, len(selected))

	for _, cand := range selected {
		if strings.TrimSpace(cand.Text) == "" {
			continue
		}

		text := cand.Text
		if b.cfg.CleanStopwords {
			text = b.normalizer.Normalize(text, true)
		}
		if text == "" {
			continue
		}

		fp := Fingerprint(text, b.cfg.DuplicatePrefixLength)
		if _, dup := seen[fp]; dup {
			continue
		}

		block := b.renderBlock(cand, text)

		// Greedy order-preserving truncation: once a block would
		// overflow the configured budget, selection stops.
		if b.cfg.MaxContextChars > 0 {
			blockLen := len(block)
			if len(parts) > 0 {
				blockLen++ // joining newline
			}
			if totalLen+blockLen > b.cfg.MaxContextChars {
				break
			}
			totalLen += blockLen
		}

		seen[fp] = struct{}{}
		parts = append(parts, block)
	}

	return strings.Join(parts, "\n")
}

func (b *ContextBuilder) renderBlock(cand Candidate, text string) string {
	source := cand.Metadata[MetaSource]
	if source == "" {
		source = "Document"
	}
	page := cand.Metadata[MetaPage]
	if page == "" {
		page = "N/A"
	}

	var block strings.Builder
	fmt.Fprintf(&block, "### %s\n", source)
	if chapter := cand.Metadata[MetaChapter]; chapter != "" {
		fmt.Fprintf(&block, "Chapter: %s\n", chapter)
	}
	if section := cand.Metadata[MetaSection]; section != "" {
		fmt.Fprintf(&block, "Section: %s\n", section)
	}
	fmt.Fprintf(&block, "Page: %s\n", page)
	fmt.Fprintf(&block, "Relevance: %.2f\n", cand.Score)
	block.WriteString(text)
	block.WriteString("\n")
	block.WriteString(blockSeparator)
	block.WriteString("\n")
	return block.String()
}
