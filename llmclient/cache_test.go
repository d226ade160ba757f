package llmclient

import (
	"testing"

	"go.uber.org/zap"
)

func TestResponseCacheRoundTrip(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	cache := newResponseCache(4, logger)

	if _, ok := cache.getEmbedding("doc"); ok {
		t.Fatal("empty cache reported a hit")
	}

	vec := []float32{0.1, 0.2, 0.3}
	cache.putEmbedding("doc", vec)
	got, ok := cache.getEmbedding("doc")
	if !ok {
		t.Fatal("cache miss after put")
	}
	if len(got) != 3 || got[0] != 0.1 {
		t.Errorf("cached embedding = %v, want %v", got, vec)
	}

	key := chatCacheKey([]Message{{Role: "user", Content: "hi"}}, nil)
	cache.putAnswer(key, "hello")
	if answer, ok := cache.getAnswer(key); !ok || answer != "hello" {
		t.Errorf("cached answer = %q (hit=%v), want \"hello\"", answer, ok)
	}
}

func TestResponseCacheDisabled(t *testing.T) {
	cache := newResponseCache(0, nil)

	cache.putEmbedding("doc", []float32{1})
	if _, ok := cache.getEmbedding("doc"); ok {
		t.Error("disabled cache stored an entry")
	}
	cache.putAnswer("k", "v")
	if _, ok := cache.getAnswer("k"); ok {
		t.Error("disabled cache stored an answer")
	}
}

func TestChatCacheKeyDistinguishesMessages(t *testing.T) {
	a := chatCacheKey([]Message{{Role: "user", Content: "one"}}, nil)
	b := chatCacheKey([]Message{{Role: "user", Content: "two"}}, nil)
	if a == b {
		t.Error("different conversations produced the same cache key")
	}

	temp := 0.7
	c := chatCacheKey([]Message{{Role: "user", Content: "one"}}, &temp)
	if a == c {
		t.Error("temperature override should change the cache key")
	}
}
