package upload

// validate.go checks uploads against the format set and size policy.
//
// Checks run in a fixed order so results are deterministic: a single file is
// checked for format before size, and a batch is checked for emptiness, count,
// declared sizes, cumulative size and then each file in input order. The first failure wins.

import (
	"fmt"
	"math"

	"github.com/jd-analyzer/backend/internal/models"
	"github.com/jd-analyzer/backend/internal/parser"
)

// Validator applies Limits and a format registry. It holds no mutable state.
type Validator struct {
	limits  Limits
	formats *parser.Registry
}

var defaultValidator = NewValidator(DefaultLimits(), nil)

// NewValidator returns a validator. A nil registry means the global one.
func NewValidator(limits Limits, formats *parser.Registry) *Validator {
	if formats == nil {
		formats = parser.GetGlobalRegistry()
	}
	return &Validator{limits: limits, formats: formats}
}

// ValidateFile checks one file with the default policy.
func ValidateFile(size int64, filename string) models.ValidationVerdict {
	return defaultValidator.ValidateFile(size, filename)
}

// ValidateBatch checks a batch with the default policy.
func ValidateBatch(files []models.UploadCandidate) models.ValidationVerdict {
	return defaultValidator.ValidateBatch(files)
}

// Limits returns the policy in force.
func (v *Validator) Limits() Limits {
	return v.limits
}

// Formats returns the registry used for format checks.
func (v *Validator) Formats() *parser.Registry {
	return v.formats
}

// CheckFile returns nil, *parser.UnsupportedFormatError or *OversizeError.
func (v *Validator) CheckFile(size int64, filename string) error {
	if !v.formats.IsSupported(filename) {
		return &parser.UnsupportedFormatError{
			Extension: parser.Extension(filename),
			Supported: v.formats.SupportedFormats(),
		}
	}
	if size < 0 {
		return fmt.Errorf("invalid file size %d", size)
	}
	if size > v.limits.MaxFileBytes {
		return &OversizeError{Kind: LimitFileSize, Actual: size, Limit: v.limits.MaxFileBytes}
	}
	return nil
}

// CheckBatch returns the first policy violation in files, or nil. Per-file
// errors are prefixed with the file name and wrap the typed cause.
func (v *Validator) CheckBatch(files []models.UploadCandidate) error {
	if len(files) == 0 {
		return ErrEmptyBatch
	}
	if len(files) > v.limits.MaxBatchCount {
		return &OversizeError{Kind: LimitBatchCount, Actual: int64(len(files)), Limit: int64(v.limits.MaxBatchCount)}
	}

	for _, f := range files {
		if f.Size < 0 {
			return fmt.Errorf("%s: invalid file size %d", f.Name, f.Size)
		}
	}

	total := totalSize(files)
	if total > v.limits.MaxBatchBytes {
		return &OversizeError{Kind: LimitBatchSize, Actual: total, Limit: v.limits.MaxBatchBytes}
	}

	for _, f := range files {
		if err := v.CheckFile(candidateSize(f), f.Name); err != nil {
			return fmt.Errorf("%s: %w", f.Name, err)
		}
	}
	return nil
}

// ValidateFile wraps CheckFile in a verdict.
func (v *Validator) ValidateFile(size int64, filename string) models.ValidationVerdict {
	if err := v.CheckFile(size, filename); err != nil {
		return models.Fail(err, "")
	}
	return models.Pass(fmt.Sprintf("file %q is valid (%s)", filename, FormatSize(size)))
}

// ValidateBatch wraps CheckBatch in a verdict.
func (v *Validator) ValidateBatch(files []models.UploadCandidate) models.ValidationVerdict {
	if err := v.CheckBatch(files); err != nil {
		return models.Fail(err, "")
	}
	return models.Pass(fmt.Sprintf("batch is valid: %d files, %s total", len(files), FormatSize(totalSize(files))))
}

// candidateSize prefers the declared size and falls back to the payload length.
func candidateSize(f models.UploadCandidate) int64 {
	if f.Size > 0 {
		return f.Size
	}
	return int64(len(f.Data))
}

// totalSize saturates at math.MaxInt64.
func totalSize(files []models.UploadCandidate) int64 {
	var total int64
	for _, f := range files {
		size := candidateSize(f)
		if size > 0 && total > math.MaxInt64-size {
			return math.MaxInt64
		}
		total += size
	}
	return total
}
