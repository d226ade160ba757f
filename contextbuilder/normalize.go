package contextbuilder

import (
	"regexp"
	"strings"
)

var (
	// Word characters, whitespace, and a fixed punctuation allow-list.
	// \p{L}\p{N} instead of \w because Go's \w is ASCII-only and source
	// documents are frequently Cyrillic. Everything else (emoji, control
	// characters, stray symbols) becomes a space and is folded by the
	// whitespace collapse below.
	unsafeChars = regexp.MustCompile(`[^\p{L}\p{N}_\s.,:;!?()-]`)
	whitespace  = regexp.MustCompile(`\s+`)
)

// Normalizer cleans chunk text before formatting and duplicate detection.
// It is a pure function holder: the stop-word set is fixed at construction
// and never mutated afterwards, so a single Normalizer is safe to share
// across concurrent BuildContext calls.
type Normalizer struct {
	stopwords map[string]struct{}
}

// NewNormalizer builds a Normalizer over the given stop-word set. Words
// are matched case-insensitively; the set may be nil or empty, in which
// case stop-word removal is a no-op.
func NewNormalizer(stopwords map[string]struct{}) *Normalizer {
	return &Normalizer{stopwords: stopwords}
}

// Normalize strips unsafe characters and collapses whitespace runs to a
// single space. When removeStopwords is set, whitespace-delimited tokens
// found in the stop-word set are dropped, preserving the order of the
// remaining tokens.
func (n *Normalizer) Normalize(text string, removeStopwords bool) string {
	text = unsafeChars.ReplaceAllString(text, " ")
	text = strings.TrimSpace(whitespace.ReplaceAllString(text, " "))

	if !removeStopwords || len(n.stopwords) == 0 || text == "" {
		return text
	}

	words := strings.Split(text, " ")
	kept := words[:0]
	for _, w := range words {
		if _, stop := n.stopwords[strings.ToLower(w)]; stop {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}
