package models

// ParsedDocument is the normalized text extracted from one uploaded file.
type ParsedDocument struct {
	FileName string `json:"fileName" msgpack:"fileName"`
	Format   string `json:"format" msgpack:"format"`
	// Encoding is the character encoding that decoded a plain-text upload.
	Encoding string `json:"encoding,omitempty" msgpack:"encoding,omitempty"`
	Pages    int    `json:"pages,omitempty" msgpack:"pages,omitempty"`
	Text     string `json:"text" msgpack:"text"`
}

// UploadCandidate is a file offered for validation or parsing. Size is the
// size declared by the transport and may be set without Data.
type UploadCandidate struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	Data []byte `json:"-"`
}
