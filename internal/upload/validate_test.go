package upload

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/jd-analyzer/backend/internal/models"
	"github.com/jd-analyzer/backend/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kb(n int64) int64 { return n << 10 }
func mb(n int64) int64 { return n << 20 }

func candidates(n int, size int64, ext string) []models.UploadCandidate {
	files := make([]models.UploadCandidate, n)
	for i := range files {
		files[i] = models.UploadCandidate{Name: fmt.Sprintf("jd_%02d%s", i, ext), Size: size}
	}
	return files
}

func TestValidateFile(t *testing.T) {
	tests := []struct {
		name      string
		size      int64
		filename  string
		wantValid bool
		wantMsg   []string
	}{
		{"small text file", 1024, "test.txt", true, []string{"test.txt", "1.0KB"}},
		{"exactly at limit", mb(10), "limit.pdf", true, nil},
		{"one byte over", mb(10) + 1, "over.pdf", false, []string{"exceeds", "10.0MB"}},
		{"large text file", mb(20), "large.txt", false, []string{"20.0MB", "10.0MB"}},
		{"unsupported format", 1024, "test.xlsx", false, []string{".xlsx", ".txt, .pdf, .docx, .doc"}},
		{"missing extension", 1024, "README", false, []string{"unsupported"}},
		{"upper-case extension", 1024, "JD.DOCX", true, nil},
		{"empty file", 0, "empty.txt", true, []string{"0B"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict := ValidateFile(tt.size, tt.filename)
			assert.Equal(t, tt.wantValid, verdict.Valid, verdict.Message)
			for _, want := range tt.wantMsg {
				assert.Contains(t, verdict.Message, want)
			}
			if tt.wantValid {
				assert.NoError(t, verdict.Err)
			} else {
				assert.Error(t, verdict.Err)
			}
		})
	}
}

func TestValidateFile_FormatCheckedBeforeSize(t *testing.T) {
	verdict := ValidateFile(mb(500), "huge.xlsx")
	require.False(t, verdict.Valid)

	var unsupported *parser.UnsupportedFormatError
	assert.True(t, errors.As(verdict.Err, &unsupported))
	assert.NotContains(t, verdict.Message, "exceeds")
}

func TestValidateFile_TypedErrors(t *testing.T) {
	verdict := ValidateFile(mb(20), "large.txt")

	var oversize *OversizeError
	require.True(t, errors.As(verdict.Err, &oversize))
	assert.Equal(t, LimitFileSize, oversize.Kind)
	assert.Equal(t, mb(20), oversize.Actual)
	assert.Equal(t, DefaultMaxFileBytes, oversize.Limit)

	negative := ValidateFile(-1, "bad.txt")
	assert.False(t, negative.Valid)
}

func TestValidateBatch(t *testing.T) {
	t.Run("valid batch", func(t *testing.T) {
		files := []models.UploadCandidate{
			{Name: "a.txt", Size: kb(1)},
			{Name: "b.pdf", Size: mb(2)},
			{Name: "c.docx", Size: kb(512)},
		}
		verdict := ValidateBatch(files)
		assert.True(t, verdict.Valid, verdict.Message)
		assert.Contains(t, verdict.Message, "3 files")
		assert.Contains(t, verdict.Message, "2.5MB")
	})

	t.Run("empty batch", func(t *testing.T) {
		verdict := ValidateBatch(nil)
		assert.False(t, verdict.Valid)
		assert.ErrorIs(t, verdict.Err, ErrEmptyBatch)
	})

	t.Run("too many small files", func(t *testing.T) {
		verdict := ValidateBatch(candidates(25, kb(1), ".txt"))
		require.False(t, verdict.Valid)
		assert.Contains(t, verdict.Message, "25")
		assert.Contains(t, verdict.Message, "20")

		var oversize *OversizeError
		require.True(t, errors.As(verdict.Err, &oversize))
		assert.Equal(t, LimitBatchCount, oversize.Kind)
	})

	t.Run("cumulative size over limit", func(t *testing.T) {
		files := candidates(2, mb(60), ".pdf")
		// each file alone is over the single-file cap too, so loosen it to
		// show the cumulative check fires on its own
		v := NewValidator(Limits{MaxFileBytes: mb(64), MaxBatchCount: 20, MaxBatchBytes: mb(100)}, nil)

		verdict := v.ValidateBatch(files)
		require.False(t, verdict.Valid)
		assert.Contains(t, verdict.Message, "120.0MB")
		assert.Contains(t, verdict.Message, "100.0MB")

		var oversize *OversizeError
		require.True(t, errors.As(verdict.Err, &oversize))
		assert.Equal(t, LimitBatchSize, oversize.Kind)
	})

	t.Run("negative declared size", func(t *testing.T) {
		files := candidates(2, kb(1), ".txt")
		files[1].Size = -5

		verdict := ValidateBatch(files)
		require.False(t, verdict.Valid)
		assert.Contains(t, verdict.Message, "invalid file size -5")

		var oversize *OversizeError
		assert.False(t, errors.As(verdict.Err, &oversize))
	})

	t.Run("declared sizes that overflow the total", func(t *testing.T) {
		files := candidates(2, math.MaxInt64, ".txt")

		verdict := ValidateBatch(files)
		require.False(t, verdict.Valid)

		var oversize *OversizeError
		require.True(t, errors.As(verdict.Err, &oversize))
		assert.Equal(t, LimitBatchSize, oversize.Kind)
		assert.Equal(t, int64(math.MaxInt64), oversize.Actual)
	})

	t.Run("cumulative size checked before individual files", func(t *testing.T) {
		verdict := ValidateBatch(candidates(2, mb(60), ".pdf"))
		require.False(t, verdict.Valid)

		var oversize *OversizeError
		require.True(t, errors.As(verdict.Err, &oversize))
		assert.Equal(t, LimitBatchSize, oversize.Kind)
	})

	t.Run("first failing file reported", func(t *testing.T) {
		files := []models.UploadCandidate{
			{Name: "ok.txt", Size: kb(1)},
			{Name: "sheet.xlsx", Size: kb(1)},
			{Name: "big.pdf", Size: mb(11)},
		}
		verdict := ValidateBatch(files)
		require.False(t, verdict.Valid)
		assert.Contains(t, verdict.Message, "sheet.xlsx")
		assert.NotContains(t, verdict.Message, "big.pdf")

		var unsupported *parser.UnsupportedFormatError
		assert.True(t, errors.As(verdict.Err, &unsupported))
	})

	t.Run("size falls back to payload length", func(t *testing.T) {
		files := []models.UploadCandidate{{Name: "a.txt", Data: make([]byte, mb(11))}}
		verdict := ValidateBatch(files)
		assert.False(t, verdict.Valid)
		assert.Contains(t, verdict.Message, "a.txt")
	})
}

func TestValidators_Idempotent(t *testing.T) {
	files := candidates(3, kb(10), ".docx")
	assert.Equal(t, ValidateBatch(files), ValidateBatch(files))
	assert.Equal(t, ValidateFile(mb(20), "large.txt"), ValidateFile(mb(20), "large.txt"))
}

func TestValidator_RestrictedFormats(t *testing.T) {
	reg, err := parser.NewRegistryFor([]string{".pdf"})
	require.NoError(t, err)
	v := NewValidator(DefaultLimits(), reg)

	assert.True(t, v.ValidateFile(kb(1), "jd.pdf").Valid)
	verdict := v.ValidateFile(kb(1), "jd.txt")
	assert.False(t, verdict.Valid)
	assert.Contains(t, verdict.Message, `supported formats: .pdf`)
}

func TestLimits_Validate(t *testing.T) {
	assert.NoError(t, DefaultLimits().Validate())
	assert.Error(t, Limits{MaxFileBytes: 0, MaxBatchCount: 1, MaxBatchBytes: 1}.Validate())
	assert.Error(t, Limits{MaxFileBytes: 1, MaxBatchCount: -1, MaxBatchBytes: 1}.Validate())
	assert.Error(t, Limits{MaxFileBytes: 1, MaxBatchCount: 1, MaxBatchBytes: 0}.Validate())
}

func TestFormatSize(t *testing.T) {
	tests := map[int64]string{
		0:               "0B",
		1023:            "1023B",
		1024:            "1.0KB",
		1536:            "1.5KB",
		mb(10):          "10.0MB",
		mb(100):         "100.0MB",
		mb(1024) * 3:    "3.0GB",
		mb(1024) * 2048: "2048.0GB",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatSize(in), in)
	}
}
