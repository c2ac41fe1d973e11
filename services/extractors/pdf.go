package extractors

import (
	"bytes"
	"fmt"
	"strings"

	"code.sajari.com/docconv"

	"github.com/customeros/mailvector/dto"
	"github.com/customeros/mailvector/interfaces"
	"github.com/customeros/mailvector/internal/enum"
)

const (
	pdfMagic = "%PDF-"

	// Below this many characters per page the document is likely a scan
	// without a text layer. Annotates metadata only, never blocks.
	scannedPageCharThreshold = 100
)

type pdfExtractor struct{}

func NewPDFExtractor() interfaces.ContentExtractor {
	return &pdfExtractor{}
}

func (e *pdfExtractor) Format() enum.AttachmentFormat {
	return enum.AttachmentPDF
}

func (e *pdfExtractor) Validate(buffer []byte, filename string) *dto.ValidationResult {
	result := &dto.ValidationResult{IsValid: true}

	if len(buffer) < len(pdfMagic) {
		result.IsValid = false
		result.Errors = append(result.Errors, "buffer too small for PDF signature check")
		return result
	}
	if !bytes.HasPrefix(buffer, []byte(pdfMagic)) {
		result.IsValid = false
		result.Errors = append(result.Errors, fmt.Sprintf("missing %%PDF- signature in %s", filename))
	}
	return result
}

func (e *pdfExtractor) Parse(buffer []byte, filename string) *dto.ExtractionResult {
	result := &dto.ExtractionResult{
		Metadata: dto.ExtractionMetadata{Format: enum.AttachmentPDF.String()},
	}

	res, err := docconv.Convert(bytes.NewReader(buffer), "application/pdf", false)
	if err != nil || res == nil {
		result.Text = fmt.Sprintf("[Error parsing PDF: %s]", filename)
		result.Diagnostics = append(result.Diagnostics, fmt.Sprintf("pdf conversion failed: %v", err))
		return result
	}

	// pdftotext separates pages with form feeds
	pageCount := strings.Count(res.Body, "\f") + 1

	text := CleanText(strings.ReplaceAll(res.Body, "\f", "\n\n"))
	result.Text = text
	result.Metadata.PageCount = pageCount
	result.Metadata.CharCount = len(text)
	if pageCount > 0 && len(text)/pageCount < scannedPageCharThreshold {
		result.Metadata.LikelyScanned = true
		result.Diagnostics = append(result.Diagnostics, "low text density, document is likely scanned")
	}

	return result
}
