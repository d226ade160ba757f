package documents

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"rag-assistant/errors"
)

// extractPDF extracts text page by page. Pages that fail to decode are
// skipped with a warning; a document where every page fails is rejected.
func (e *Extractor) extractPDF(path string) (Extraction, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return Extraction{}, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	totalPages := r.NumPage()
	e.logger.Debug("Extracting text from PDF",
		zap.String("path", path),
		zap.Int("pages", totalPages))

	var pages []Page
	for pageNum := 1; pageNum <= totalPages; pageNum++ {
		page := r.Page(pageNum)
		if page.V.IsNull() {
			e.logger.Warn("Skipping null page", zap.Int("page", pageNum))
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			e.logger.Warn("Failed to extract text from page",
				zap.Int("page", pageNum),
				zap.Error(err))
			continue
		}

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		pages = append(pages, Page{Number: pageNum, Text: text})
	}

	if len(pages) == 0 {
		return Extraction{}, errors.WrapError(errors.ErrInvalidInput, "PDF contains no extractable text")
	}

	e.logger.Info("PDF text extraction completed",
		zap.String("path", path),
		zap.Int("pages", totalPages),
		zap.Int("pages_with_text", len(pages)))

	return Extraction{
		Pages:       pages,
		PageCount:   totalPages,
		ContentType: "pdf",
	}, nil
}
