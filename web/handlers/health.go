package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rag-assistant/database"
	"rag-assistant/vectorstore"
)

type HealthHandler struct {
	store    vectorstore.Store
	registry *database.PostgresStore
	logger   *zap.Logger
}

func NewHealthHandler(store vectorstore.Store, registry *database.PostgresStore, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{store: store, registry: registry, logger: logger}
}

// Health reports the collection point count and registry aggregates.
// A failing dependency degrades the status instead of erroring out.
func (h *HealthHandler) Health(c *gin.Context) {
	status := "ok"
	response := gin.H{}

	count, err := h.store.Count(c.Request.Context())
	if err != nil {
		h.logger.Warn("Vector store count failed", zap.Error(err))
		status = "degraded"
		response["vector_store_error"] = err.Error()
	} else {
		response["chunks"] = count
	}

	stats, err := h.registry.GetDocumentStats(c.Request.Context())
	if err != nil {
		h.logger.Warn("Registry stats failed", zap.Error(err))
		status = "degraded"
		response["registry_error"] = err.Error()
	} else {
		response["documents"] = gin.H{
			"total":       stats.TotalDocuments,
			"total_size":  stats.TotalSizeBytes,
			"chunk_total": stats.TotalChunks,
			"by_status":   stats.CountsByStatus,
		}
	}

	response["status"] = status
	httpStatus := http.StatusOK
	if status != "ok" {
		httpStatus = http.StatusServiceUnavailable
	}
	c.JSON(httpStatus, response)
}
