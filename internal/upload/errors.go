package upload

import (
	"errors"
	"fmt"
)

// ErrEmptyBatch is returned when a batch contains no files.
var ErrEmptyBatch = errors.New("no files provided")

// LimitKind names the policy an OversizeError violated.
type LimitKind string

const (
	LimitFileSize   LimitKind = "file_size"
	LimitBatchCount LimitKind = "batch_count"
	LimitBatchSize  LimitKind = "batch_size"
)

// OversizeError reports an upload over a size or count limit.
type OversizeError struct {
	Kind   LimitKind
	Actual int64
	Limit  int64
}

func (e *OversizeError) Error() string {
	switch e.Kind {
	case LimitBatchCount:
		return fmt.Sprintf("too many files: %d exceeds the limit of %d", e.Actual, e.Limit)
	case LimitBatchSize:
		return fmt.Sprintf("total batch size %s exceeds the %s limit", FormatSize(e.Actual), FormatSize(e.Limit))
	default:
		return fmt.Sprintf("file size %s exceeds the %s limit", FormatSize(e.Actual), FormatSize(e.Limit))
	}
}
