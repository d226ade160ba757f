package handlers

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"rag-assistant/config"
	"rag-assistant/database"
	"rag-assistant/documents"
	"rag-assistant/rag"
	"rag-assistant/utils"
)

// ingestTimeout bounds background processing of a single upload.
const ingestTimeout = 10 * time.Minute

type DocumentsHandler struct {
	cfg       *config.Config
	rag       *rag.RAG
	registry  *database.PostgresStore
	extractor *documents.Extractor
	logger    *zap.Logger
}

func NewDocumentsHandler(
	cfg *config.Config,
	ragService *rag.RAG,
	registry *database.PostgresStore,
	extractor *documents.Extractor,
	logger *zap.Logger,
) *DocumentsHandler {
	return &DocumentsHandler{
		cfg:       cfg,
		rag:       ragService,
		registry:  registry,
		extractor: extractor,
		logger:    logger,
	}
}

// Upload accepts a multipart document, registers it as pending and
// processes it in the background. Responds 202 with the file id.
func (h *DocumentsHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file form field is required"})
		return
	}

	maxBytes := int64(h.cfg.MaxFileSizeMB) << 20
	if file.Size > maxBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": "file exceeds size limit",
			"limit": h.cfg.MaxFileSizeMB,
		})
		return
	}

	filename := utils.SanitizeFilename(filepath.Base(file.Filename))
	if filename == "" || !h.extractor.Supported(filename) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported file type (expected pdf, docx, txt or md)"})
		return
	}

	fileID := uuid.New()
	storedName := fileID.String() + strings.ToLower(filepath.Ext(filename))
	dst := filepath.Join(h.cfg.UploadDir, storedName)
	if err := c.SaveUploadedFile(file, dst); err != nil {
		h.logger.Error("Failed to store upload", zap.String("filename", filename), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store file"})
		return
	}

	record, err := h.registry.CreateDocument(c.Request.Context(), database.DocumentRecord{
		FileID:      fileID,
		Filename:    filename,
		StoredName:  storedName,
		FileSize:    file.Size,
		ContentType: file.Header.Get("Content-Type"),
	})
	if err != nil {
		os.Remove(dst)
		respondError(c, h.logger, err)
		return
	}

	h.logger.Info("Document uploaded",
		zap.String("file_id", fileID.String()),
		zap.String("filename", filename),
		zap.Int64("size", file.Size))

	// The request context dies with the response; processing gets its own.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), ingestTimeout)
		defer cancel()
		if err := h.rag.ProcessDocument(ctx, record); err != nil {
			h.logger.Error("Background ingestion failed",
				zap.String("file_id", fileID.String()),
				zap.Error(err))
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"file_id":  fileID.String(),
		"filename": filename,
		"status":   database.StatusPending,
	})
}

// List returns all registered documents, newest first.
func (h *DocumentsHandler) List(c *gin.Context) {
	docs, err := h.registry.ListDocuments(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	out := make([]gin.H, 0, len(docs))
	for _, d := range docs {
		entry := gin.H{
			"file_id":     d.FileID.String(),
			"filename":    d.Filename,
			"size":        d.FileSize,
			"status":      d.Status,
			"chunk_count": d.ChunkCount,
			"page_count":  d.PageCount,
			"created_at":  d.CreatedAt,
		}
		if d.Error != "" {
			entry["error"] = d.Error
		}
		if d.ProcessedAt != nil {
			entry["processed_at"] = d.ProcessedAt
		}
		out = append(out, entry)
	}
	c.JSON(http.StatusOK, gin.H{"documents": out})
}

type deleteRequest struct {
	FileID string `json:"file_id"`
}

// Delete removes one document: its chunks, registry entry and stored file.
func (h *DocumentsHandler) Delete(c *gin.Context) {
	var req deleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	fileID, err := uuid.Parse(req.FileID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file_id"})
		return
	}

	record, err := h.registry.GetDocument(c.Request.Context(), fileID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if err := h.rag.DeleteDocument(c.Request.Context(), fileID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	if err := os.Remove(filepath.Join(h.cfg.UploadDir, record.StoredName)); err != nil && !os.IsNotExist(err) {
		h.logger.Warn("Failed to remove stored file",
			zap.String("stored_name", record.StoredName),
			zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{"deleted": fileID.String()})
}

// Purge drops the whole knowledge base: chunks, registry and files.
func (h *DocumentsHandler) Purge(c *gin.Context) {
	docs, err := h.registry.ListDocuments(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if err := h.rag.Purge(c.Request.Context()); err != nil {
		respondError(c, h.logger, err)
		return
	}

	for _, d := range docs {
		if err := os.Remove(filepath.Join(h.cfg.UploadDir, d.StoredName)); err != nil && !os.IsNotExist(err) {
			h.logger.Warn("Failed to remove stored file",
				zap.String("stored_name", d.StoredName),
				zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, gin.H{"purged": len(docs)})
}
