package extractors

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jaytaylor/html2text"

	"github.com/customeros/mailvector/dto"
	"github.com/customeros/mailvector/interfaces"
	"github.com/customeros/mailvector/internal/enum"
)

type htmlExtractor struct{}

func NewHTMLExtractor() interfaces.ContentExtractor {
	return &htmlExtractor{}
}

func (e *htmlExtractor) Format() enum.AttachmentFormat {
	return enum.AttachmentHTML
}

func (e *htmlExtractor) Validate(buffer []byte, filename string) *dto.ValidationResult {
	result := &dto.ValidationResult{IsValid: true}

	if len(buffer) == 0 {
		result.IsValid = false
		result.Errors = append(result.Errors, "empty buffer")
		return result
	}
	if !utf8.Valid(buffer) {
		result.IsValid = false
		result.Errors = append(result.Errors, fmt.Sprintf("%s is not valid UTF-8", filename))
	}
	return result
}

func (e *htmlExtractor) Parse(buffer []byte, filename string) *dto.ExtractionResult {
	result := &dto.ExtractionResult{
		Metadata: dto.ExtractionMetadata{Format: enum.AttachmentHTML.String()},
	}

	text, err := html2text.FromString(string(buffer), html2text.Options{TextOnly: true})
	if err != nil {
		result.Text = fmt.Sprintf("[Error parsing HTML: %s]", filename)
		result.Diagnostics = append(result.Diagnostics, fmt.Sprintf("html conversion failed: %v", err))
		return result
	}

	text = CleanText(text)
	if strings.TrimSpace(text) == "" {
		result.Diagnostics = append(result.Diagnostics, "markup contained no extractable text")
	}
	result.Text = text
	result.Metadata.PageCount = 1
	result.Metadata.CharCount = len(text)

	return result
}
