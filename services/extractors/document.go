package extractors

import (
	"bytes"
	"fmt"

	"code.sajari.com/docconv"

	"github.com/customeros/mailvector/dto"
	"github.com/customeros/mailvector/interfaces"
	"github.com/customeros/mailvector/internal/enum"
	"github.com/customeros/mailvector/internal/utils"
)

// ZIP local file header, shared by docx and odt containers
var zipMagic = []byte{0x50, 0x4b, 0x03, 0x04}

// OLE compound file header for legacy .doc
var oleMagic = []byte{0xd0, 0xcf, 0x11, 0xe0, 0xa1, 0xb1, 0x1a, 0xe1}

var documentMimeByExtension = map[string]string{
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"odt":  "application/vnd.oasis.opendocument.text",
	"doc":  "application/msword",
}

type documentExtractor struct{}

func NewDocumentExtractor() interfaces.ContentExtractor {
	return &documentExtractor{}
}

func (e *documentExtractor) Format() enum.AttachmentFormat {
	return enum.AttachmentDocument
}

func (e *documentExtractor) Validate(buffer []byte, filename string) *dto.ValidationResult {
	result := &dto.ValidationResult{IsValid: true}

	ext := utils.GetFileExtension(filename)
	if _, ok := documentMimeByExtension[ext]; !ok {
		result.IsValid = false
		result.Errors = append(result.Errors, fmt.Sprintf("unrecognized document extension: %s", filename))
		return result
	}

	if len(buffer) < len(oleMagic) {
		result.IsValid = false
		result.Errors = append(result.Errors, "buffer too small for format signature check")
		return result
	}

	switch ext {
	case "docx", "odt":
		if !bytes.HasPrefix(buffer, zipMagic) {
			result.IsValid = false
			result.Errors = append(result.Errors, fmt.Sprintf("missing ZIP container signature in %s", filename))
		}
	case "doc":
		if !bytes.HasPrefix(buffer, oleMagic) {
			result.IsValid = false
			result.Errors = append(result.Errors, fmt.Sprintf("missing OLE signature in %s", filename))
		}
	}
	return result
}

func (e *documentExtractor) Parse(buffer []byte, filename string) *dto.ExtractionResult {
	result := &dto.ExtractionResult{
		Metadata: dto.ExtractionMetadata{Format: enum.AttachmentDocument.String()},
	}

	mime := documentMimeByExtension[utils.GetFileExtension(filename)]
	res, err := docconv.Convert(bytes.NewReader(buffer), mime, false)
	if err != nil || res == nil {
		result.Text = fmt.Sprintf("[Error parsing document: %s]", filename)
		result.Diagnostics = append(result.Diagnostics, fmt.Sprintf("document conversion failed: %v", err))
		return result
	}

	text := CleanText(JoinWrappedLines(res.Body))
	result.Text = text
	result.Metadata.PageCount = 1
	result.Metadata.CharCount = len(text)

	return result
}
