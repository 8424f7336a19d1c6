package parser

import (
	"errors"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"
)

func encodeGBK(t *testing.T, s string) []byte {
	t.Helper()
	raw, err := simplifiedchinese.GBK.NewEncoder().Bytes([]byte(s))
	require.NoError(t, err)
	return raw
}

func TestParseTxt_UTF8RoundTrip(t *testing.T) {
	inputs := []string{
		"这是一个测试JD\n职位：Python开发工程师",
		"plain ascii job description",
		"",
		"emoji 🚀 and accents café",
		"literal replacement char \uFFFD stays",
	}

	for _, in := range inputs {
		text, err := ParseTxt([]byte(in))
		require.NoError(t, err)
		assert.Equal(t, in, text)
	}
}

func TestParseTxt_GBKFallback(t *testing.T) {
	raw := encodeGBK(t, "职位：Java开发工程师")
	require.False(t, utf8.Valid(raw), "fixture must not be valid UTF-8")

	text, enc, err := defaultTextDecoder.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "gbk", enc)
	assert.Contains(t, text, "职位")
	assert.Contains(t, text, "Java开发工程师")
}

func TestParseTxt_LossyFallback(t *testing.T) {
	// 0xFF is invalid in both UTF-8 and GBK.
	raw := []byte("JD title\xff\xfe end")

	text, enc, err := defaultTextDecoder.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "utf-8", enc)
	assert.Contains(t, text, "JD title")
	assert.Contains(t, text, "end")
	assert.Contains(t, text, "\uFFFD")
	assert.True(t, utf8.ValidString(text))
}

func TestTextDecoder_StrictChain(t *testing.T) {
	d := NewTextDecoder(false)
	assert.Equal(t, []string{"utf-8", "gbk"}, d.Encodings())

	_, _, err := d.Decode([]byte("bad\xff"))
	var decodeErr *DecodeError
	require.True(t, errors.As(err, &decodeErr))
	assert.Equal(t, []string{"utf-8", "gbk"}, decodeErr.Encodings)

	text, enc, err := d.Decode([]byte("fine"))
	require.NoError(t, err)
	assert.Equal(t, "fine", text)
	assert.Equal(t, "utf-8", enc)
}

func TestTextDecoder_DefaultChain(t *testing.T) {
	assert.Equal(t, []string{"utf-8", "gbk", "utf-8 (lossy)"}, NewTextDecoder(true).Encodings())
}

func TestParseTxt_KeepsBOM(t *testing.T) {
	text, err := ParseTxt([]byte("\xef\xbb\xbfhello"))
	require.NoError(t, err)
	assert.Equal(t, "\uFEFFhello", text)
}

func TestParseTxt_Idempotent(t *testing.T) {
	raw := encodeGBK(t, "岗位职责：负责后端开发")
	first, err := ParseTxt(raw)
	require.NoError(t, err)
	second, err := ParseTxt(raw)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRegistry_StrictTextOption(t *testing.T) {
	r, err := NewRegistryFor(DefaultFormats(), WithLossyTextFallback(false))
	require.NoError(t, err)

	_, err = r.Parse([]byte{0xff, 0xff}, "jd.txt")
	var decodeErr *DecodeError
	assert.True(t, errors.As(err, &decodeErr))
}
