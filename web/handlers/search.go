package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rag-assistant/rag"
)

type SearchHandler struct {
	rag    *rag.RAG
	logger *zap.Logger
}

func NewSearchHandler(ragService *rag.RAG, logger *zap.Logger) *SearchHandler {
	return &SearchHandler{rag: ragService, logger: logger}
}

type searchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

// Search returns scored chunks for a query without generating an answer.
func (h *SearchHandler) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query must not be empty"})
		return
	}

	hits, err := h.rag.Search(c.Request.Context(), query, req.TopK)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"query":   query,
		"results": hits,
	})
}
