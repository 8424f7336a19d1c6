package models

import "time"

// FileInfo represents metadata about an ingested JD document.
type FileInfo struct {
	ID         string    `json:"id" msgpack:"id"`
	Name       string    `json:"name" msgpack:"name"`
	Size       int64     `json:"size" msgpack:"size"`
	Format     string    `json:"format" msgpack:"format"`
	Encoding   string    `json:"encoding,omitempty" msgpack:"encoding,omitempty"`
	Chars      int       `json:"chars" msgpack:"chars"`
	UploadedAt time.Time `json:"uploadedAt" msgpack:"uploadedAt"`
	Status     string    `json:"status" msgpack:"status"` // "uploaded", "parsed", "error"
}

// Clone returns a copy safe to hand out of a store.
func (f *FileInfo) Clone() *FileInfo {
	c := *f
	return &c
}
