package parser

import (
	"bytes"

	"github.com/jd-analyzer/backend/internal/models"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
)

// replacementChar is U+FFFD encoded as UTF-8.
var replacementChar = []byte("\uFFFD")

// decodeAttempt is one step of the plain-text decoding chain. A strict
// attempt fails when the decoder had to substitute U+FFFD for invalid input.
type decodeAttempt struct {
	name     string
	encoding encoding.Encoding
	strict   bool
}

var (
	utf8Strict = decodeAttempt{name: "utf-8", encoding: unicode.UTF8, strict: true}
	gbkStrict  = decodeAttempt{name: "gbk", encoding: simplifiedchinese.GBK, strict: true}
	utf8Lossy  = decodeAttempt{name: "utf-8", encoding: unicode.UTF8, strict: false}
)

var defaultTextDecoder = NewTextDecoder(true)

func (a decodeAttempt) decode(raw []byte) (string, bool) {
	out, err := a.encoding.NewDecoder().Bytes(raw)
	if err != nil {
		return "", false
	}
	if a.strict && bytes.Count(out, replacementChar) > bytes.Count(raw, replacementChar) {
		return "", false
	}
	return string(out), true
}

// TextDecoder decodes plain-text uploads by trying encodings in order:
// strict UTF-8, strict GBK, then (optionally) lossy UTF-8.
type TextDecoder struct {
	chain []decodeAttempt
}

// NewTextDecoder builds the decoding chain. With lossyFallback the decoder
// never fails.
func NewTextDecoder(lossyFallback bool) *TextDecoder {
	chain := []decodeAttempt{utf8Strict, gbkStrict}
	if lossyFallback {
		chain = append(chain, utf8Lossy)
	}
	return &TextDecoder{chain: chain}
}

// Name returns the format name.
func (d *TextDecoder) Name() string {
	return "txt"
}

// Encodings lists the chain as "name" or "name (lossy)" in attempt order.
func (d *TextDecoder) Encodings() []string {
	names := make([]string, 0, len(d.chain))
	for _, a := range d.chain {
		if a.strict {
			names = append(names, a.name)
		} else {
			names = append(names, a.name+" (lossy)")
		}
	}
	return names
}

// Decode returns the text and the name of the encoding that produced it.
func (d *TextDecoder) Decode(raw []byte) (string, string, error) {
	for _, a := range d.chain {
		if text, ok := a.decode(raw); ok {
			return text, a.name, nil
		}
	}
	return "", "", &DecodeError{Encodings: d.Encodings()}
}

// Extract implements Extractor.
func (d *TextDecoder) Extract(data []byte) (*models.ParsedDocument, error) {
	text, enc, err := d.Decode(data)
	if err != nil {
		return nil, err
	}
	return &models.ParsedDocument{
		Format:   d.Name(),
		Encoding: enc,
		Text:     text,
	}, nil
}
