package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jd-analyzer/backend/internal/models"
	"github.com/ledongthuc/pdf"
)

// PDFExtractor reads the text streams of a PDF page by page.
type PDFExtractor struct{}

// Name returns the format name.
func (e *PDFExtractor) Name() string {
	return "pdf"
}

// Extract returns the text of every page, one page per line group.
// The pdf library panics on some malformed files, so panics become ParseErrors.
func (e *PDFExtractor) Extract(data []byte) (doc *models.ParsedDocument, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = newParseError(e.Name(), fmt.Errorf("malformed document: %v", r))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, newParseError(e.Name(), err)
	}

	pageCount := reader.NumPage()
	pages := make([]string, 0, pageCount)
	for i := 1; i <= pageCount; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, newParseError(e.Name(), fmt.Errorf("page %d: %w", i, err))
		}
		pages = append(pages, strings.TrimSpace(text))
	}

	return &models.ParsedDocument{
		Format: e.Name(),
		Pages:  pageCount,
		Text:   strings.Join(pages, "\n"),
	}, nil
}
