package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func postJSON(t *testing.T, router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestChatRejectsBadRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewChatHandler(nil, zap.NewNop())

	router := gin.New()
	router.POST("/api/chat", handler.Ask)

	cases := []struct {
		name string
		body string
	}{
		{"malformed json", "{not json"},
		{"empty message", `{"message": ""}`},
		{"whitespace message", `{"message": "   "}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if w := postJSON(t, router, "/api/chat", tc.body); w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestSearchRejectsBadRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewSearchHandler(nil, zap.NewNop())

	router := gin.New()
	router.POST("/api/search", handler.Search)

	cases := []struct {
		name string
		body string
	}{
		{"malformed json", "[]"},
		{"empty query", `{"query": "", "top_k": 3}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if w := postJSON(t, router, "/api/search", tc.body); w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}
