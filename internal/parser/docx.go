package parser

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/jd-analyzer/backend/internal/models"
)

const documentPart = "word/document.xml"

// MaxDocumentPartBytes bounds the decompressed size of word/document.xml.
const MaxDocumentPartBytes int64 = 64 << 20

// WordprocessingML namespaces (transitional and strict).
var wordNamespaces = map[string]bool{
	"http://schemas.openxmlformats.org/wordprocessingml/2006/main": true,
	"http://purl.oclc.org/ooxml/wordprocessingml/main":             true,
}

// oleMagic opens every OLE2 compound file, which is how .doc files before
// Word 2007 (and encrypted .docx files) are stored.
var oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// WordExtractor reads paragraph text from Office Open XML documents.
type WordExtractor struct {
	format       string
	maxPartBytes int64
}

// NewWordExtractor returns an extractor reporting errors under format.
func NewWordExtractor(format string) *WordExtractor {
	return &WordExtractor{format: format, maxPartBytes: MaxDocumentPartBytes}
}

// Name returns the format name.
func (e *WordExtractor) Name() string {
	return e.format
}

// Extract returns one line per paragraph of the document body.
func (e *WordExtractor) Extract(data []byte) (doc *models.ParsedDocument, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = newParseError(e.format, fmt.Errorf("malformed document: %v", r))
		}
	}()

	if bytes.HasPrefix(data, oleMagic) {
		return nil, newParseError(e.format, ErrLegacyWordFormat)
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, newParseError(e.format, err)
	}

	var part *zip.File
	for _, f := range zr.File {
		if f.Name == documentPart {
			part = f
			break
		}
	}
	if part == nil {
		return nil, newParseError(e.format, ErrMissingDocumentPart)
	}

	if part.UncompressedSize64 > uint64(e.maxPartBytes) {
		return nil, newParseError(e.format, e.partTooLarge())
	}

	rc, err := part.Open()
	if err != nil {
		return nil, newParseError(e.format, err)
	}
	defer rc.Close()

	// The header size is not trusted; cap what is actually inflated.
	lr := &io.LimitedReader{R: rc, N: e.maxPartBytes + 1}
	paragraphs, err := readParagraphs(lr)
	if lr.N <= 0 {
		return nil, newParseError(e.format, e.partTooLarge())
	}
	if err != nil {
		return nil, newParseError(e.format, fmt.Errorf("reading %s: %w", documentPart, err))
	}

	return &models.ParsedDocument{
		Format: e.format,
		Text:   strings.Join(paragraphs, "\n"),
	}, nil
}

func (e *WordExtractor) partTooLarge() error {
	return fmt.Errorf("%w: %s exceeds %d bytes", ErrDocumentPartTooLarge, documentPart, e.maxPartBytes)
}

// readParagraphs streams document.xml and collects the text of each w:p.
// Nested paragraphs (text boxes) are folded into their outer paragraph.
func readParagraphs(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)

	var (
		paragraphs []string
		current    strings.Builder
		paraDepth  int
		runDepth   int
		inText     bool
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if !wordNamespaces[t.Name.Space] {
				continue
			}
			switch t.Name.Local {
			case "p":
				if paraDepth == 0 {
					current.Reset()
				}
				paraDepth++
			case "r":
				runDepth++
			case "t":
				inText = true
			case "tab":
				if runDepth > 0 {
					current.WriteByte('\t')
				}
			case "br", "cr":
				if runDepth > 0 {
					current.WriteByte('\n')
				}
			}
		case xml.EndElement:
			if !wordNamespaces[t.Name.Space] {
				continue
			}
			switch t.Name.Local {
			case "p":
				paraDepth--
				if paraDepth == 0 {
					paragraphs = append(paragraphs, current.String())
				}
			case "r":
				runDepth--
			case "t":
				inText = false
			}
		case xml.CharData:
			if inText && paraDepth > 0 {
				current.Write(t)
			}
		}
	}

	return paragraphs, nil
}
