package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"rag-assistant/config"

	"go.uber.org/zap"
)

// Message is a single chat-completion message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Messages    []Message `json:"messages"`
	Stream      bool      `json:"stream"`
	Temperature *float64  `json:"temperature,omitempty"` // Per-request temperature override
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// Embedding request/response mirror llama.cpp's expected schema
type embeddingRequest struct {
	Content string `json:"content"`
}

type embeddingResponse []struct {
	Embedding [][]float32 `json:"embedding"`
}

type Client struct {
	cfg        *config.Config
	httpClient *http.Client
	logger     *zap.Logger
	cache      *responseCache
}

func New(cfg *config.Config, logger *zap.Logger) *Client {
	// Client-level timeout covers the whole request; callers additionally
	// bound calls with context deadlines.
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.LLMRequestTimeout},
		logger:     logger,
		cache:      newResponseCache(cfg.LLMCacheSize, logger),
	}
}

// Chat performs a non-streaming chat completion call.
// temperature is optional; pass nil to use server default.
func (c *Client) Chat(ctx context.Context, host string, messages []Message, temperature *float64) (string, error) {
	cacheKey := chatCacheKey(messages, temperature)
	if answer, ok := c.cache.getAnswer(cacheKey); ok {
		return answer, nil
	}

	reqBody := chatRequest{
		Messages:    messages,
		Stream:      false,
		Temperature: temperature,
		MaxTokens:   c.cfg.LLMMaxTokens,
	}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/chat/completions", strings.TrimRight(host, "/"))

	var resp *http.Response
	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
		if err != nil {
			return "", fmt.Errorf("create chat request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err = c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			// Do not retry on context cancellation/deadline
			if ctx.Err() != nil {
				break
			}
		} else if resp.StatusCode == http.StatusServiceUnavailable {
			// Model loading; retry with backoff
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			resp = nil
			lastErr = fmt.Errorf("LLM server busy (503)")
			c.backoffSleep(attempt)
			continue
		} else {
			break
		}
	}
	if resp == nil {
		return "", fmt.Errorf("no response from LLM server: %w", lastErr)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read chat response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("LLM server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}

	var parsed chatResponse
	if err := json.Unmarshal(bodyBytes, &parsed); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("LLM response contained no choices")
	}

	answer := parsed.Choices[0].Message.Content
	c.cache.putAnswer(cacheKey, answer)
	return answer, nil
}

// Embed returns the embedding vector for a document using the llama.cpp
// embedding endpoint schema.
func (c *Client) Embed(ctx context.Context, host string, doc string) ([]float32, error) {
	if vec, ok := c.cache.getEmbedding(doc); ok {
		return vec, nil
	}

	reqBody := embeddingRequest{Content: doc}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}

	url := fmt.Sprintf("%s/embedding", strings.TrimRight(host, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read embedding response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(bodyBytes, &parsed); err != nil {
		return nil, fmt.Errorf("decode embedding response: %w", err)
	}
	if len(parsed) == 0 || len(parsed[0].Embedding) == 0 || len(parsed[0].Embedding[0]) == 0 {
		return nil, fmt.Errorf("embedding response was empty")
	}

	vec := parsed[0].Embedding[0]
	c.cache.putEmbedding(doc, vec)
	return vec, nil
}

func (c *Client) backoffSleep(attempt int) {
	delay := time.Duration(attempt+1) * 2 * time.Second
	if c.logger != nil {
		c.logger.Debug("LLM server busy, backing off", zap.Duration("delay", delay))
	}
	time.Sleep(delay)
}
