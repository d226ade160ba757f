package llmclient

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
)

// responseCache memoizes chat answers and embedding vectors keyed by a
// content hash. Embeddings are deterministic and answers are served at
// low temperature, so repeated questions and re-ingested chunks skip the
// round-trip. A size of 0 disables caching entirely.
type responseCache struct {
	answers    *lru.Cache
	embeddings *lru.Cache
}

func newResponseCache(size int, logger *zap.Logger) *responseCache {
	if size <= 0 {
		return &responseCache{}
	}
	answers, err := lru.New(size)
	if err != nil {
		if logger != nil {
			logger.Warn("Failed to create answer cache, caching disabled", zap.Error(err))
		}
		return &responseCache{}
	}
	embeddings, err := lru.New(size)
	if err != nil {
		if logger != nil {
			logger.Warn("Failed to create embedding cache, caching disabled", zap.Error(err))
		}
		return &responseCache{}
	}
	return &responseCache{answers: answers, embeddings: embeddings}
}

func (rc *responseCache) getAnswer(key string) (string, bool) {
	if rc.answers == nil {
		return "", false
	}
	if v, ok := rc.answers.Get(key); ok {
		return v.(string), true
	}
	return "", false
}

func (rc *responseCache) putAnswer(key, answer string) {
	if rc.answers != nil {
		rc.answers.Add(key, answer)
	}
}

func (rc *responseCache) getEmbedding(doc string) ([]float32, bool) {
	if rc.embeddings == nil {
		return nil, false
	}
	if v, ok := rc.embeddings.Get(hashKey(doc)); ok {
		return v.([]float32), true
	}
	return nil, false
}

func (rc *responseCache) putEmbedding(doc string, vec []float32) {
	if rc.embeddings != nil {
		rc.embeddings.Add(hashKey(doc), vec)
	}
}

func chatCacheKey(messages []Message, temperature *float64) string {
	var buf []byte
	for _, m := range messages {
		buf = append(buf, m.Role...)
		buf = append(buf, 0)
		buf = append(buf, m.Content...)
		buf = append(buf, 0)
	}
	if temperature != nil {
		buf = append(buf, fmt.Sprintf("%v", *temperature)...)
	}
	return hashKey(string(buf))
}

func hashKey(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
