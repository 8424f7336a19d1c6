package parser

import (
	"fmt"
	"strings"

	"github.com/jd-analyzer/backend/internal/models"
)

// Registry maps file extensions to extractors. It is immutable once built
// and safe for concurrent use.
type Registry struct {
	formats    []string
	extractors map[string]Extractor
}

// Global registry instance
var globalRegistry = NewRegistry()

// DefaultFormats returns the default supported extensions in priority order.
func DefaultFormats() []string {
	return []string{".txt", ".pdf", ".docx", ".doc"}
}

// Option customizes a registry at construction time.
type Option func(*registryOptions)

type registryOptions struct {
	lossyText  bool
	extractors map[string]Extractor
}

// WithLossyTextFallback toggles the last-resort lossy UTF-8 decode for .txt
// uploads. Disabled, undecodable text fails with *DecodeError.
func WithLossyTextFallback(enabled bool) Option {
	return func(o *registryOptions) {
		o.lossyText = enabled
	}
}

// WithExtractor makes e available for ext, replacing any built-in reader.
func WithExtractor(ext string, e Extractor) Option {
	return func(o *registryOptions) {
		o.extractors[normalizeExtension(ext)] = e
	}
}

// NewRegistry returns a registry for DefaultFormats.
func NewRegistry() *Registry {
	r, err := NewRegistryFor(DefaultFormats())
	if err != nil {
		panic(err)
	}
	return r
}

// NewRegistryFor returns a registry that accepts exactly exts, in order.
// Every extension needs an extractor and may appear only once.
func NewRegistryFor(exts []string, opts ...Option) (*Registry, error) {
	o := registryOptions{lossyText: true, extractors: make(map[string]Extractor)}
	for _, opt := range opts {
		opt(&o)
	}

	available := map[string]Extractor{
		".txt":  NewTextDecoder(o.lossyText),
		".pdf":  &PDFExtractor{},
		".docx": NewWordExtractor("docx"),
		".doc":  NewWordExtractor("doc"),
	}
	for ext, e := range o.extractors {
		available[ext] = e
	}

	if len(exts) == 0 {
		return nil, fmt.Errorf("at least one supported format is required")
	}

	r := &Registry{extractors: make(map[string]Extractor, len(exts))}
	for _, raw := range exts {
		ext := normalizeExtension(raw)
		e, ok := available[ext]
		if !ok {
			return nil, fmt.Errorf("no extractor available for format %q", raw)
		}
		if _, dup := r.extractors[ext]; dup {
			return nil, fmt.Errorf("duplicate format %q", raw)
		}
		r.formats = append(r.formats, ext)
		r.extractors[ext] = e
	}
	return r, nil
}

// GetGlobalRegistry returns the singleton registry.
func GetGlobalRegistry() *Registry {
	return globalRegistry
}

// Extension returns the lower-cased extension of filename including the dot,
// or "" when the base name has none.
func Extension(filename string) string {
	base := filename
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	dot := strings.LastIndexByte(base, '.')
	if dot < 0 || dot == len(base)-1 {
		return ""
	}
	return strings.ToLower(base[dot:])
}

// IsFormatSupported reports whether the global registry accepts filename.
func IsFormatSupported(filename string) bool {
	return globalRegistry.IsSupported(filename)
}

// SupportedFormats lists the extensions accepted by the global registry.
func SupportedFormats() []string {
	return globalRegistry.SupportedFormats()
}

// IsSupported reports whether filename's extension is in the registry.
func (r *Registry) IsSupported(filename string) bool {
	_, ok := r.extractors[Extension(filename)]
	return ok
}

// SupportedFormats returns a copy of the accepted extensions.
func (r *Registry) SupportedFormats() []string {
	out := make([]string, len(r.formats))
	copy(out, r.formats)
	return out
}

// FindExtractor returns the extractor registered for filename.
func (r *Registry) FindExtractor(filename string) (Extractor, error) {
	ext := Extension(filename)
	e, ok := r.extractors[ext]
	if !ok {
		return nil, &UnsupportedFormatError{Extension: ext, Supported: r.SupportedFormats()}
	}
	return e, nil
}

// Parse classifies filename and extracts data with the matching extractor.
func (r *Registry) Parse(data []byte, filename string) (*models.ParsedDocument, error) {
	e, err := r.FindExtractor(filename)
	if err != nil {
		return nil, err
	}

	doc, err := e.Extract(data)
	if err != nil {
		return nil, err
	}
	doc.FileName = filename
	doc.Format = strings.TrimPrefix(Extension(filename), ".")
	return doc, nil
}

func normalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
