// Package documents turns uploaded files into plain-text pages and
// sentence-aware chunks ready for embedding.
package documents

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"rag-assistant/errors"
)

// Page is the extracted text of one document page. Plain-text and DOCX
// files come back as a single page with Number 0, which means the chunk
// metadata carries no page reference.
type Page struct {
	Number int
	Text   string
}

// Extraction is the plain-text content of one file.
type Extraction struct {
	Pages       []Page
	PageCount   int
	ContentType string
}

// Extractor dispatches on file extension. Supported: .pdf, .docx, .txt, .md.
type Extractor struct {
	logger *zap.Logger
}

func NewExtractor(logger *zap.Logger) *Extractor {
	return &Extractor{logger: logger}
}

func (e *Extractor) Supported(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf", ".docx", ".txt", ".md":
		return true
	default:
		return false
	}
}

func (e *Extractor) Extract(path string) (Extraction, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return e.extractPDF(path)
	case ".docx":
		return e.extractDOCX(path)
	case ".txt", ".md":
		return e.extractPlain(path)
	default:
		return Extraction{}, errors.WrapErrorf(errors.ErrInvalidInput, "unsupported file type %q", filepath.Ext(path))
	}
}

func (e *Extractor) extractPlain(path string) (Extraction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Extraction{}, fmt.Errorf("failed to read text file: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return Extraction{}, errors.WrapError(errors.ErrInvalidInput, "file contains no text")
	}
	return Extraction{
		Pages:       []Page{{Number: 0, Text: text}},
		PageCount:   1,
		ContentType: "text",
	}, nil
}
