package rag

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"rag-assistant/contextbuilder"
	"rag-assistant/llmclient"
	"rag-assistant/prompts"
	"rag-assistant/vectorstore"
)

// Source points an answer back at the document text it came from.
type Source struct {
	Source  string  `json:"source"`
	Page    string  `json:"page,omitempty"`
	Score   float64 `json:"score"`
	Excerpt string  `json:"excerpt"`
}

type AnswerResult struct {
	Answer      string   `json:"answer"`
	Sources     []Source `json:"sources"`
	ContextUsed bool     `json:"context_used"`
}

// SearchHit is one scored retrieval result without generation.
type SearchHit struct {
	Source  string  `json:"source"`
	Page    string  `json:"page,omitempty"`
	Chapter string  `json:"chapter,omitempty"`
	Section string  `json:"section,omitempty"`
	Score   float64 `json:"score"`
	Text    string  `json:"text"`
}

const sourceExcerptRunes = 200

// Answer embeds the question, retrieves candidates with their vectors,
// assembles the context and asks the chat endpoint. An empty context is
// a normal outcome: the model still answers, flagged context_used=false.
func (r *RAG) Answer(ctx context.Context, question string) (AnswerResult, error) {
	queryVector, err := r.llm.Embed(ctx, r.cfg.EmbeddingLLMHost, question)
	if err != nil {
		return AnswerResult{}, err
	}

	candidates, err := r.store.Search(ctx, queryVector, vectorstore.SearchParams{
		Limit:          r.cfg.MaxChunks * 2,
		ScoreThreshold: r.cfg.MinRelevance,
		WithVectors:    true,
	})
	if err != nil {
		return AnswerResult{}, err
	}

	contextText := r.builder.BuildContext(queryVector, candidates)
	contextUsed := contextText != ""

	userContent := question
	if contextUsed {
		userContent = fmt.Sprintf(prompts.DocumentQA(), contextText, question)
	}
	messages := []llmclient.Message{
		{Role: "system", Content: prompts.RAGSystem()},
		{Role: "user", Content: userContent},
	}

	answer, err := r.llm.Chat(ctx, r.cfg.MainLLMHost, messages, &r.cfg.LLMTemperature)
	if err != nil {
		return AnswerResult{}, err
	}

	r.logger.Info("Question answered",
		zap.Int("candidates", len(candidates)),
		zap.Bool("context_used", contextUsed))

	result := AnswerResult{
		Answer:      answer,
		ContextUsed: contextUsed,
	}
	if contextUsed {
		result.Sources = topSources(candidates, r.cfg.MinRelevance, 3)
	}
	return result, nil
}

// Search is plain retrieval: scored hits, no generation.
func (r *RAG) Search(ctx context.Context, query string, topK int) ([]SearchHit, error) {
	if topK <= 0 {
		topK = r.cfg.MaxChunks
	}
	queryVector, err := r.llm.Embed(ctx, r.cfg.EmbeddingLLMHost, query)
	if err != nil {
		return nil, err
	}

	candidates, err := r.store.Search(ctx, queryVector, vectorstore.SearchParams{
		Limit:          topK,
		ScoreThreshold: r.cfg.MinRelevance,
	})
	if err != nil {
		return nil, err
	}

	hits := make([]SearchHit, 0, len(candidates))
	for _, c := range candidates {
		hits = append(hits, SearchHit{
			Source:  c.Metadata[contextbuilder.MetaSource],
			Page:    c.Metadata[contextbuilder.MetaPage],
			Chapter: c.Metadata[contextbuilder.MetaChapter],
			Section: c.Metadata[contextbuilder.MetaSection],
			Score:   c.Score,
			Text:    c.Text,
		})
	}
	return hits, nil
}

// topSources reports the highest-scored relevant candidates, at most
// limit of them, with a short excerpt each.
func topSources(candidates []contextbuilder.Candidate, minRelevance float64, limit int) []Source {
	relevant := contextbuilder.FilterByRelevance(candidates, minRelevance)
	selected := contextbuilder.TopByScore(relevant, limit)

	sources := make([]Source, 0, len(selected))
	for _, c := range selected {
		sources = append(sources, Source{
			Source:  c.Metadata[contextbuilder.MetaSource],
			Page:    c.Metadata[contextbuilder.MetaPage],
			Score:   c.Score,
			Excerpt: excerpt(c.Text, sourceExcerptRunes),
		})
	}
	return sources
}

func excerpt(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
