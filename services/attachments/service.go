package attachments

import (
	"context"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/customeros/mailvector/dto"
	"github.com/customeros/mailvector/interfaces"
	"github.com/customeros/mailvector/internal/enum"
	er "github.com/customeros/mailvector/internal/errors"
	"github.com/customeros/mailvector/internal/logger"
	"github.com/customeros/mailvector/internal/tracing"
	"github.com/customeros/mailvector/internal/utils"
)

const (
	DefaultMaxSizeBytes = 10 * 1024 * 1024
	DefaultConcurrency  = 5
	minSignatureBytes   = 8
)

type Config struct {
	MaxSizeBytes int64
	Concurrency  int
}

type attachmentService struct {
	log        logger.Logger
	cfg        Config
	extractors map[enum.AttachmentFormat]interfaces.ContentExtractor
}

func NewAttachmentService(log logger.Logger, cfg Config, extractors ...interfaces.ContentExtractor) interfaces.AttachmentService {
	if cfg.MaxSizeBytes <= 0 {
		cfg.MaxSizeBytes = DefaultMaxSizeBytes
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}

	byFormat := make(map[enum.AttachmentFormat]interfaces.ContentExtractor, len(extractors))
	for _, extractor := range extractors {
		byFormat[extractor.Format()] = extractor
	}

	return &attachmentService{
		log:        log,
		cfg:        cfg,
		extractors: byFormat,
	}
}

// Classify splits attachments into supported and unsupported. Support is
// decided by MIME type OR filename extension; either match wins, because
// providers often declare application/octet-stream for everything.
func (s *attachmentService) Classify(attachments []dto.AttachmentDescriptor) dto.AttachmentClassification {
	classification := dto.AttachmentClassification{}

	for _, attachment := range attachments {
		classification.TotalSizeBytes += attachment.SizeBytes
		if utils.IsSupportedAttachment(attachment.MimeType, attachment.Filename) {
			classification.Supported = append(classification.Supported, attachment)
		} else {
			classification.Unsupported = append(classification.Unsupported, attachment)
		}
	}
	return classification
}

// Process validates and extracts text from a single attachment buffer.
func (s *attachmentService) Process(ctx context.Context, buffer []byte, descriptor dto.AttachmentDescriptor) (*dto.ExtractedAttachment, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "attachmentService.Process")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagEntity(span, descriptor.ID)
	span.LogKV("filename", descriptor.Filename, "size", len(buffer))

	if !utils.IsSupportedAttachment(descriptor.MimeType, descriptor.Filename) {
		return nil, er.ErrUnsupportedAttachment
	}
	if int64(len(buffer)) > s.cfg.MaxSizeBytes {
		return nil, errors.Wrapf(er.ErrAttachmentTooLarge, "%d bytes, limit %d", len(buffer), s.cfg.MaxSizeBytes)
	}

	format := s.resolveFormat(buffer, descriptor)

	if format == enum.AttachmentText {
		// Plain text needs no extractor, only cleaning
		text := string(buffer)
		return s.extracted(descriptor, buffer, strings.TrimSpace(text)), nil
	}

	if len(buffer) < minSignatureBytes {
		return nil, er.ErrAttachmentTooSmall
	}

	extractor, ok := s.extractors[format]
	if !ok {
		return nil, errors.Wrapf(er.ErrUnsupportedAttachment, "no extractor registered for %s", format)
	}

	validation := extractor.Validate(buffer, descriptor.Filename)
	if !validation.IsValid {
		err := errors.Wrapf(er.ErrInvalidFormat, "%s", strings.Join(validation.Errors, "; "))
		tracing.TraceErr(span, err)
		return nil, err
	}

	parsed := extractor.Parse(buffer, descriptor.Filename)
	for _, diagnostic := range parsed.Diagnostics {
		s.log.Warnf("attachment %s (%s): %s", descriptor.ID, descriptor.Filename, diagnostic)
	}

	return s.extracted(descriptor, buffer, parsed.Text), nil
}

// ProcessAll runs attachments through Process with bounded concurrency.
// Each item's outcome is written to its own slot, so one failure never aborts
// the batch and no accumulator is shared between workers.
func (s *attachmentService) ProcessAll(ctx context.Context, items []dto.AttachmentBuffer) *dto.AttachmentBatchResult {
	span, ctx := opentracing.StartSpanFromContext(ctx, "attachmentService.ProcessAll")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.LogKV("items", len(items))

	type itemOutcome struct {
		extracted *dto.ExtractedAttachment
		err       error
	}

	outcomes := make([]itemOutcome, len(items))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.cfg.Concurrency)
	for i := range items {
		i := i
		group.Go(func() error {
			extracted, err := s.Process(groupCtx, items[i].Buffer, items[i].Descriptor)
			outcomes[i] = itemOutcome{extracted: extracted, err: err}
			return nil
		})
	}
	// Workers never return errors; failures live in their outcome slot
	_ = group.Wait()

	result := &dto.AttachmentBatchResult{}
	result.Stats.Total = len(items)
	for i, outcome := range outcomes {
		descriptor := items[i].Descriptor
		switch {
		case outcome.err == nil:
			result.Processed = append(result.Processed, *outcome.extracted)
			result.Stats.Processed++
		case errors.Is(outcome.err, er.ErrUnsupportedAttachment):
			result.Skipped = append(result.Skipped, dto.SkippedAttachment{
				AttachmentID: descriptor.ID,
				Filename:     descriptor.Filename,
				Reason:       outcome.err.Error(),
			})
			result.Stats.Skipped++
		default:
			result.Errors = append(result.Errors, dto.AttachmentError{
				AttachmentID: descriptor.ID,
				Filename:     descriptor.Filename,
				Reason:       outcome.err.Error(),
			})
			result.Stats.Errored++
		}
	}

	span.LogKV("processed", result.Stats.Processed, "skipped", result.Stats.Skipped, "errored", result.Stats.Errored)
	return result
}

// resolveFormat picks the extractor format from the declared type and
// filename, falling back to content sniffing when the declaration is generic.
func (s *attachmentService) resolveFormat(buffer []byte, descriptor dto.AttachmentDescriptor) enum.AttachmentFormat {
	switch utils.GetFileExtension(descriptor.Filename) {
	case "pdf":
		return enum.AttachmentPDF
	case "docx", "odt", "doc":
		return enum.AttachmentDocument
	case "html", "htm":
		return enum.AttachmentHTML
	case "txt", "md", "csv":
		return enum.AttachmentText
	}

	detected := mimetype.Detect(buffer)
	switch {
	case detected.Is("application/pdf"):
		return enum.AttachmentPDF
	case detected.Is("application/vnd.openxmlformats-officedocument.wordprocessingml.document"),
		detected.Is("application/vnd.oasis.opendocument.text"),
		detected.Is("application/msword"):
		return enum.AttachmentDocument
	case detected.Is("text/html"):
		return enum.AttachmentHTML
	}
	return enum.AttachmentText
}

func (s *attachmentService) extracted(descriptor dto.AttachmentDescriptor, buffer []byte, text string) *dto.ExtractedAttachment {
	return &dto.ExtractedAttachment{
		AttachmentID: descriptor.ID,
		Filename:     descriptor.Filename,
		MimeType:     descriptor.MimeType,
		SizeBytes:    int64(len(buffer)),
		Text:         text,
	}
}

