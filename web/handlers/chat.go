package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rag-assistant/rag"
)

type ChatHandler struct {
	rag    *rag.RAG
	logger *zap.Logger
}

func NewChatHandler(ragService *rag.RAG, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{rag: ragService, logger: logger}
}

type chatRequest struct {
	Message string `json:"message"`
}

// Ask answers a question grounded in the uploaded documents.
func (h *ChatHandler) Ask(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	question := strings.TrimSpace(req.Message)
	if question == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message must not be empty"})
		return
	}

	result, err := h.rag.Answer(c.Request.Context(), question)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
