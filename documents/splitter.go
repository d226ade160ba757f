package documents

import (
	"strings"

	"github.com/jdkato/prose/v2"
	"go.uber.org/zap"
)

type SentenceSplitter interface {
	Split(text string) []string
}

// ProseSentenceSplitter segments text with the prose tokenizer and falls
// back to punctuation scanning when the tokenizer fails.
type ProseSentenceSplitter struct {
	fallback RegexSentenceSplitter
	logger   *zap.Logger
}

func NewProseSentenceSplitter(logger *zap.Logger) *ProseSentenceSplitter {
	return &ProseSentenceSplitter{logger: logger}
}

func (s *ProseSentenceSplitter) Split(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	doc, err := prose.NewDocument(trimmed,
		prose.WithTagging(false),
		prose.WithExtraction(false))
	if err != nil {
		s.logger.Debug("Sentence tokenizer failed, using punctuation splitter", zap.Error(err))
		return s.fallback.Split(trimmed)
	}

	proseSentences := doc.Sentences()
	if len(proseSentences) == 0 {
		return s.fallback.Split(trimmed)
	}

	sentences := make([]string, 0, len(proseSentences))
	for _, sent := range proseSentences {
		if t := strings.TrimSpace(sent.Text); t != "" {
			sentences = append(sentences, t)
		}
	}
	if len(sentences) == 0 {
		return []string{trimmed}
	}
	return sentences
}

// RegexSentenceSplitter scans for terminal punctuation followed by a
// non-punctuation character.
type RegexSentenceSplitter struct{}

func (RegexSentenceSplitter) Split(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	runes := []rune(trimmed)
	var sentences []string
	var builder strings.Builder

	isBoundary := func(r rune) bool {
		switch r {
		case '.', '!', '?':
			return true
		default:
			return false
		}
	}

	flush := func() {
		if builder.Len() == 0 {
			return
		}
		sentence := strings.TrimSpace(builder.String())
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
		builder.Reset()
	}

	for idx, r := range runes {
		builder.WriteRune(r)
		if !isBoundary(r) {
			continue
		}
		// Look ahead to determine if this is end of sentence
		next := idx + 1
		for next < len(runes) && (runes[next] == ' ' || runes[next] == '\n' || runes[next] == '\t') {
			next++
		}
		if next >= len(runes) || isBoundary(runes[next]) {
			continue
		}
		flush()
	}

	flush()

	if len(sentences) == 0 {
		return []string{trimmed}
	}
	return sentences
}
