package parser

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newExtractor(t *testing.T) *TextExtractor {
	t.Helper()
	extractor, err := NewTextExtractor(context.Background())
	require.NoError(t, err)
	return extractor
}

func TestExtractPlainText(t *testing.T) {
	e := newExtractor(t)

	text, err := e.Extract(context.Background(), []byte("张伟\n后端工程师\n技能: Go, MySQL"), "resume.txt")
	require.NoError(t, err)
	assert.Equal(t, "张伟\n后端工程师\n技能: Go, MySQL", text)
}

func TestExtractPlainTextStripsBOM(t *testing.T) {
	e := newExtractor(t)

	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("简历内容")...)
	text, err := e.Extract(context.Background(), data, "resume.txt")
	require.NoError(t, err)
	assert.Equal(t, "简历内容", text)
}

func TestExtractInvalidUTF8(t *testing.T) {
	e := newExtractor(t)

	_, err := e.Extract(context.Background(), []byte{0xFF, 0xFE, 0x00, 0x41}, "resume.txt")
	require.Error(t, err)

	var extractionErr *ExtractionError
	require.True(t, errors.As(err, &extractionErr))
	assert.Equal(t, "resume.txt", extractionErr.FileName)
}

func TestExtractEmptyFile(t *testing.T) {
	e := newExtractor(t)

	_, err := e.Extract(context.Background(), nil, "resume.txt")
	require.Error(t, err)

	var extractionErr *ExtractionError
	assert.True(t, errors.As(err, &extractionErr))
}

func TestExtractWhitespaceOnly(t *testing.T) {
	e := newExtractor(t)

	_, err := e.Extract(context.Background(), []byte("   \n\t  "), "resume.txt")
	require.Error(t, err)

	var extractionErr *ExtractionError
	require.True(t, errors.As(err, &extractionErr))
	assert.Equal(t, "resume.txt", extractionErr.FileName)
}

func TestExtractCorruptPDF(t *testing.T) {
	e := newExtractor(t)

	// 有PDF文件头但内容损坏
	_, err := e.Extract(context.Background(), []byte("%PDF-1.7 这不是有效的PDF内容"), "resume.pdf")
	require.Error(t, err)

	var extractionErr *ExtractionError
	assert.True(t, errors.As(err, &extractionErr))
}

func TestIsPDF(t *testing.T) {
	assert.True(t, isPDF([]byte("%PDF-1.4 ..."), "resume.bin"))
	assert.True(t, isPDF([]byte("anything"), "resume.PDF"))
	assert.False(t, isPDF([]byte("plain text"), "resume.txt"))
}
