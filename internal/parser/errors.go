package parser

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrLegacyWordFormat is the cause reported for OLE2 (pre-2007) Word files.
	ErrLegacyWordFormat = errors.New("legacy binary Word (OLE2) documents are not supported, save the file as .docx")

	// ErrMissingDocumentPart is the cause reported for zip archives without a Word body.
	ErrMissingDocumentPart = errors.New("archive has no word/document.xml part")

	// ErrDocumentPartTooLarge is the cause reported when the Word body inflates past its bound.
	ErrDocumentPartTooLarge = errors.New("document body is too large")
)

// UnsupportedFormatError reports a filename whose extension is not in the
// supported format set.
type UnsupportedFormatError struct {
	Extension string
	Supported []string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported file format %q, supported formats: %s",
		e.Extension, strings.Join(e.Supported, ", "))
}

// ParseError reports a document container that could not be read.
type ParseError struct {
	Format string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s document: %v", e.Format, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// DecodeError reports plain text that no encoding in the chain could decode.
// It only occurs when the lossy fallback is disabled.
type DecodeError struct {
	Encodings []string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("unable to decode text as any of: %s", strings.Join(e.Encodings, ", "))
}

func newParseError(format string, err error) *ParseError {
	return &ParseError{Format: format, Err: err}
}
