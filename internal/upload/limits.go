package upload

import "fmt"

// Default ingestion limits.
const (
	DefaultMaxFileBytes  int64 = 10 << 20 // 10 MiB
	DefaultMaxBatchCount       = 20
	DefaultMaxBatchBytes int64 = 100 << 20 // 100 MiB
)

// Limits is the size and count policy applied to uploads.
type Limits struct {
	MaxFileBytes  int64 `json:"maxFileBytes"`
	MaxBatchCount int   `json:"maxBatchCount"`
	MaxBatchBytes int64 `json:"maxBatchBytes"`
}

// DefaultLimits returns the default policy.
func DefaultLimits() Limits {
	return Limits{
		MaxFileBytes:  DefaultMaxFileBytes,
		MaxBatchCount: DefaultMaxBatchCount,
		MaxBatchBytes: DefaultMaxBatchBytes,
	}
}

// Validate checks that every limit is positive.
func (l Limits) Validate() error {
	if l.MaxFileBytes <= 0 {
		return fmt.Errorf("max file size must be positive, got %d", l.MaxFileBytes)
	}
	if l.MaxBatchCount <= 0 {
		return fmt.Errorf("max batch count must be positive, got %d", l.MaxBatchCount)
	}
	if l.MaxBatchBytes <= 0 {
		return fmt.Errorf("max batch size must be positive, got %d", l.MaxBatchBytes)
	}
	return nil
}

// FormatSize renders a byte count with one decimal, e.g. "10.0MB".
func FormatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	value := float64(n) / unit
	for _, suffix := range []string{"KB", "MB", "GB"} {
		if value < unit || suffix == "GB" {
			return fmt.Sprintf("%.1f%s", value, suffix)
		}
		value /= unit
	}
	return fmt.Sprintf("%.1fGB", value)
}
