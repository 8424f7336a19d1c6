package parser

import (
	"github.com/jd-analyzer/backend/internal/models"
)

// Extractor turns the raw bytes of one document format into text.
//
// Implementations must not panic on malformed input; container failures are
// returned as *ParseError.
type Extractor interface {
	// Name returns the short format name, e.g. "pdf".
	Name() string
	// Extract reads data and returns its normalized text.
	Extract(data []byte) (*models.ParsedDocument, error)
}

// ParseFile extracts the text of an upload using the global registry.
// Unsupported extensions fail with *UnsupportedFormatError before data is read.
func ParseFile(data []byte, filename string) (string, error) {
	doc, err := globalRegistry.Parse(data, filename)
	if err != nil {
		return "", err
	}
	return doc.Text, nil
}

// ParseTxt decodes a plain-text upload with the default encoding chain.
func ParseTxt(data []byte) (string, error) {
	text, _, err := defaultTextDecoder.Decode(data)
	return text, err
}

// ParsePDF extracts the text of a PDF document.
func ParsePDF(data []byte) (string, error) {
	return extractText(&PDFExtractor{}, data)
}

// ParseDocx extracts the paragraph text of a Word document.
func ParseDocx(data []byte) (string, error) {
	return extractText(NewWordExtractor("docx"), data)
}

func extractText(e Extractor, data []byte) (string, error) {
	doc, err := e.Extract(data)
	if err != nil {
		return "", err
	}
	return doc.Text, nil
}
