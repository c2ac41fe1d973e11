package utils

import (
	"path/filepath"
	"strings"
)

// supported attachment content types for text extraction, keyed by MIME type
var supportedMimeTypes = map[string]bool{
	"application/pdf": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/vnd.oasis.opendocument.text":                                 true,
	"application/msword": true,
	"text/html":          true,
	"application/xhtml+xml": true,
	"text/plain":            true,
	"text/markdown":         true,
	"text/csv":              true,
}

var supportedExtensions = map[string]bool{
	".pdf":  true,
	".docx": true,
	".odt":  true,
	".doc":  true,
	".html": true,
	".htm":  true,
	".txt":  true,
	".md":   true,
	".csv":  true,
}

// IsSupportedAttachment reports whether an attachment can be processed, by
// MIME type OR filename extension. Either match is sufficient: providers
// frequently report generic types like application/octet-stream.
func IsSupportedAttachment(mimeType, filename string) bool {
	mime := strings.ToLower(strings.TrimSpace(mimeType))
	if idx := strings.Index(mime, ";"); idx >= 0 {
		mime = strings.TrimSpace(mime[:idx])
	}
	if supportedMimeTypes[mime] {
		return true
	}
	return supportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// GetFileExtension returns the lowercased filename extension without the dot.
func GetFileExtension(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return strings.TrimPrefix(ext, ".")
}
