package documents

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"rag-assistant/errors"
)

// docx word/document.xml structure, reduced to paragraphs and text runs.
type docxDocument struct {
	Body struct {
		Paragraphs []docxParagraph `xml:"p"`
	} `xml:"body"`
}

type docxParagraph struct {
	Runs []struct {
		Text string `xml:"t"`
	} `xml:"r"`
}

// extractDOCX reads the main document part of the OOXML package. A DOCX
// has no page geometry in its XML, so the whole document is one page.
func (e *Extractor) extractDOCX(path string) (Extraction, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return Extraction{}, fmt.Errorf("failed to open DOCX archive: %w", err)
	}
	defer archive.Close()

	var docFile *zip.File
	for _, f := range archive.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return Extraction{}, errors.WrapError(errors.ErrInvalidInput, "DOCX archive has no word/document.xml")
	}

	rc, err := docFile.Open()
	if err != nil {
		return Extraction{}, fmt.Errorf("failed to open document part: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return Extraction{}, fmt.Errorf("failed to read document part: %w", err)
	}

	var doc docxDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return Extraction{}, fmt.Errorf("failed to parse document XML: %w", err)
	}

	var text strings.Builder
	for _, p := range doc.Body.Paragraphs {
		var line strings.Builder
		for _, run := range p.Runs {
			line.WriteString(run.Text)
		}
		if trimmed := strings.TrimSpace(line.String()); trimmed != "" {
			text.WriteString(trimmed)
			text.WriteString("\n")
		}
	}

	content := strings.TrimSpace(text.String())
	if content == "" {
		return Extraction{}, errors.WrapError(errors.ErrInvalidInput, "DOCX contains no text")
	}

	return Extraction{
		Pages:       []Page{{Number: 0, Text: content}},
		PageCount:   1,
		ContentType: "docx",
	}, nil
}
