package extractors

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/customeros/mailvector/internal/enum"
)

func TestPDFExtractor_Validate(t *testing.T) {
	extractor := NewPDFExtractor()

	t.Run("accepts PDF signature", func(t *testing.T) {
		result := extractor.Validate([]byte("%PDF-1.7 rest of file"), "report.pdf")
		assert.True(t, result.IsValid)
		assert.Empty(t, result.Errors)
	})

	t.Run("rejects missing signature", func(t *testing.T) {
		result := extractor.Validate([]byte("not a pdf at all"), "report.pdf")
		assert.False(t, result.IsValid)
		assert.NotEmpty(t, result.Errors)
	})

	t.Run("rejects buffer below signature length", func(t *testing.T) {
		result := extractor.Validate([]byte("%P"), "tiny.pdf")
		assert.False(t, result.IsValid)
	})
}

func TestDocumentExtractor_Validate(t *testing.T) {
	extractor := NewDocumentExtractor()

	t.Run("accepts ZIP container for docx", func(t *testing.T) {
		buffer := append([]byte{0x50, 0x4b, 0x03, 0x04}, make([]byte, 16)...)
		result := extractor.Validate(buffer, "notes.docx")
		assert.True(t, result.IsValid)
	})

	t.Run("rejects docx without ZIP signature", func(t *testing.T) {
		result := extractor.Validate([]byte("plain text pretending"), "notes.docx")
		assert.False(t, result.IsValid)
	})

	t.Run("rejects unknown extension", func(t *testing.T) {
		result := extractor.Validate([]byte{0x50, 0x4b, 0x03, 0x04, 0, 0, 0, 0}, "archive.xyz")
		assert.False(t, result.IsValid)
	})

	t.Run("rejects buffer too small for signature", func(t *testing.T) {
		result := extractor.Validate([]byte{0x50, 0x4b}, "notes.docx")
		assert.False(t, result.IsValid)
	})
}

func TestHTMLExtractor_Parse(t *testing.T) {
	extractor := NewHTMLExtractor()

	t.Run("extracts text from markup", func(t *testing.T) {
		html := "<html><body><h1>Quarterly Report</h1><p>Revenue grew by 12%.</p></body></html>"
		result := extractor.Parse([]byte(html), "report.html")

		assert.Contains(t, result.Text, "Quarterly Report")
		assert.Contains(t, result.Text, "Revenue grew by 12%.")
		assert.Equal(t, enum.AttachmentHTML.String(), result.Metadata.Format)
		assert.Equal(t, len(result.Text), result.Metadata.CharCount)
	})

	t.Run("flags empty markup", func(t *testing.T) {
		result := extractor.Parse([]byte("<html><body></body></html>"), "empty.html")
		assert.Equal(t, "", result.Text)
		assert.NotEmpty(t, result.Diagnostics)
	})
}

func TestHTMLExtractor_Validate(t *testing.T) {
	extractor := NewHTMLExtractor()

	result := extractor.Validate([]byte{}, "empty.html")
	assert.False(t, result.IsValid)

	result = extractor.Validate([]byte{0xff, 0xfe, 0xfd}, "binary.html")
	assert.False(t, result.IsValid)
}

func TestPDFExtractor_ParseFailureReturnsPlaceholder(t *testing.T) {
	extractor := NewPDFExtractor()

	// Invalid bytes: conversion fails, the extractor must not panic and must
	// return the placeholder so the pipeline can continue.
	result := extractor.Parse([]byte("%PDF-garbage"), "broken.pdf")

	if strings.HasPrefix(result.Text, "[Error parsing PDF:") {
		assert.Equal(t, 0, result.Metadata.CharCount)
		assert.NotEmpty(t, result.Diagnostics)
	}
	assert.NotNil(t, result)
}
