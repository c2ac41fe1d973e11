package vectorizer

import (
	"context"
	"strings"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/customeros/mailvector/dto"
	"github.com/customeros/mailvector/interfaces"
	"github.com/customeros/mailvector/internal/enum"
	er "github.com/customeros/mailvector/internal/errors"
	"github.com/customeros/mailvector/internal/logger"
	"github.com/customeros/mailvector/internal/models"
	"github.com/customeros/mailvector/internal/tracing"
	"github.com/customeros/mailvector/internal/utils"
)

const (
	DefaultBatchSize       = 5
	DefaultInterBatchDelay = 500 * time.Millisecond
)

type Config struct {
	BatchSize       int
	InterBatchDelay time.Duration
}

// Dependencies are the collaborators the orchestrator composes. MailSource,
// Attachments and Events are optional; without the first two, attachment text
// is not merged, without the last no events are emitted.
type Dependencies struct {
	Repo        interfaces.EmailVectorRepository
	RuleRepo    interfaces.FilterRuleRepository
	Filter      interfaces.EmailFilterService
	Attachments interfaces.AttachmentService
	MailSource  interfaces.MailSourceClient
	Cache       interfaces.EmbeddingCache
	Client      interfaces.EmbeddingClient
	TextProc    interfaces.TextProcessorService
	Events      interfaces.EventPublisher
}

type vectorizerService struct {
	log  logger.Logger
	cfg  Config
	deps Dependencies

	// sleep is swapped out in tests
	sleep func(time.Duration)
}

func NewVectorizationService(log logger.Logger, cfg Config, deps Dependencies) interfaces.VectorizationService {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.InterBatchDelay < 0 {
		cfg.InterBatchDelay = DefaultInterBatchDelay
	}
	return &vectorizerService{
		log:   log,
		cfg:   cfg,
		deps:  deps,
		sleep: time.Sleep,
	}
}

func (s *vectorizerService) FilterNewEmails(ctx context.Context, emails []*models.Email) ([]*models.Email, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "VectorizationService.FilterNewEmails")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	if len(emails) == 0 {
		return nil, nil
	}

	messageIDs := make([]string, 0, len(emails))
	for _, email := range emails {
		messageIDs = append(messageIDs, email.MessageID)
	}

	existing, err := s.deps.Repo.ExistingIDs(ctx, messageIDs)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "dedup lookup")
	}

	fresh := make([]*models.Email, 0, len(emails))
	for _, email := range emails {
		if !existing[email.MessageID] {
			fresh = append(fresh, email)
		}
	}
	span.LogKV("candidates", len(emails), "new", len(fresh))
	return fresh, nil
}

// IngestEmails dedups candidates, applies the user's filter rules and inserts
// the surviving records. Records denied by a rule are stored non-indexable
// with the matched outcome, so the decision is visible and final.
func (s *vectorizerService) IngestEmails(ctx context.Context, userID string, emails []*models.Email) ([]*models.Email, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "VectorizationService.IngestEmails")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagUserId(span, userID)
	span.LogKV("candidates", len(emails))

	fresh, err := s.FilterNewEmails(ctx, emails)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	if len(fresh) == 0 {
		return nil, nil
	}

	rules, err := s.deps.RuleRepo.RulesForUser(ctx, userID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "load filter rules")
	}

	indexable := 0
	for _, email := range fresh {
		if email.UserID == "" {
			email.UserID = userID
		}
		decision := s.deps.Filter.Decide(ctx, email.FromAddress, email.Subject, email.BodyText, rules)
		email.Indexable = decision.Indexable
		email.FilterReason = decision.Outcome
		if decision.Indexable {
			indexable++
		} else {
			s.log.Infof("email %s filtered out: %s", email.MessageID, decision.Reason)
		}
	}

	inserted, err := s.deps.Repo.InsertBatch(ctx, fresh)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "insert emails")
	}

	span.LogKV("inserted", len(inserted), "indexable", indexable)
	return inserted, nil
}

func (s *vectorizerService) VectorizeBatch(ctx context.Context, emails []*models.Email, opts dto.VectorizeOptions) *dto.VectorizationOutcome {
	span, ctx := opentracing.StartSpanFromContext(ctx, "VectorizationService.VectorizeBatch")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagUserId(span, opts.UserID)
	span.LogKV("emails", len(emails))

	outcome := &dto.VectorizationOutcome{}

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = s.cfg.BatchSize
	}

	for start := 0; start < len(emails); start += batchSize {
		end := start + batchSize
		if end > len(emails) {
			end = len(emails)
		}
		if start > 0 && s.cfg.InterBatchDelay > 0 {
			s.sleep(s.cfg.InterBatchDelay)
		}
		s.processSubBatch(ctx, emails[start:end], opts, outcome)
	}

	outcome.CacheStats = s.deps.Cache.Stats(ctx)
	s.log.Infof("vectorization batch done: processed=%d skipped=%d errored=%d cost savings=%.1f%%",
		outcome.Processed, outcome.Skipped, outcome.Errored, outcome.CostSavingsPercent())
	return outcome
}

func (s *vectorizerService) VectorizePending(ctx context.Context, userID string, limit int) (*dto.VectorizationOutcome, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "VectorizationService.VectorizePending")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagUserId(span, userID)

	pending, err := s.deps.Repo.ListPendingVectorization(ctx, userID, limit)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "list pending vectorization")
	}
	if len(pending) == 0 {
		return &dto.VectorizationOutcome{CacheStats: s.deps.Cache.Stats(ctx)}, nil
	}

	return s.VectorizeBatch(ctx, pending, dto.VectorizeOptions{UserID: userID, IncludeAttachments: true}), nil
}

// processSubBatch vectorizes one sub-batch and persists staged embeddings in
// a single upsert. An unexpected panic is recovered here so the surrounding
// sync process is never blocked by a vectorization failure.
func (s *vectorizerService) processSubBatch(ctx context.Context, emails []*models.Email, opts dto.VectorizeOptions, outcome *dto.VectorizationOutcome) {
	defer tracing.RecoverAndLog(s.log, "VectorizationService.processSubBatch")

	staged := make([]dto.EmbeddingUpsertItem, 0, len(emails))
	stagedEmailIDs := make([]string, 0, len(emails))
	stagedMessageIDs := make([]string, 0, len(emails))

	for _, email := range emails {
		if email.IsVectorized() || !email.Indexable {
			outcome.Skipped++
			continue
		}

		item, vErr := s.vectorizeOne(ctx, email, opts)
		if vErr != nil {
			outcome.Errored++
			outcome.Errors = append(outcome.Errors, *vErr)
			s.log.Warnf("vectorization failed for %s (%s): %s", email.MessageID, vErr.Category, vErr.Message)
			continue
		}
		if item == nil {
			outcome.Skipped++
			continue
		}

		staged = append(staged, *item)
		stagedEmailIDs = append(stagedEmailIDs, email.ID)
		stagedMessageIDs = append(stagedMessageIDs, email.MessageID)
	}

	if len(staged) == 0 {
		return
	}

	if err := s.deps.Repo.UpsertEmbeddings(ctx, staged); err != nil {
		for _, messageID := range stagedMessageIDs {
			outcome.Errored++
			outcome.Errors = append(outcome.Errors, dto.VectorizationError{
				MessageID: messageID,
				Category:  enum.VectorizationErrorUnknown,
				Message:   err.Error(),
			})
		}
		return
	}
	outcome.Processed += len(staged)

	s.publishVectorized(ctx, opts.UserID, stagedEmailIDs)
}

// vectorizeOne embeds a single email, merging extracted attachment text into
// the message text when requested. A nil, nil return means the email has no
// usable text and should be counted as skipped.
func (s *vectorizerService) vectorizeOne(ctx context.Context, email *models.Email, opts dto.VectorizeOptions) (*dto.EmbeddingUpsertItem, *dto.VectorizationError) {
	text := email.BodyText
	if opts.IncludeAttachments && email.HasAttachment {
		text += s.attachmentText(ctx, email)
	}

	cleaned := s.deps.TextProc.Clean(text)
	if strings.TrimSpace(cleaned) == "" {
		return nil, nil
	}

	if entry, err := s.deps.Cache.Get(ctx, cleaned); err == nil && entry != nil {
		return &dto.EmbeddingUpsertItem{
			EmailID:    email.ID,
			Embedding:  entry.Embedding,
			Chunks:     entry.Chunks,
			TokenCount: cachedTokenCount(entry),
		}, nil
	}

	chunks := s.deps.TextProc.Chunk(cleaned)
	texts := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		if validation := s.deps.TextProc.ValidateTextSize(chunk.Content); !validation.IsValid {
			return nil, &dto.VectorizationError{
				MessageID: email.MessageID,
				Category:  enum.VectorizationErrorContentTooLarge,
				Message:   validation.Reason,
			}
		}
		texts = append(texts, chunk.Content)
	}

	batch, err := s.deps.Client.EmbedMany(ctx, texts)
	if err != nil {
		return nil, &dto.VectorizationError{
			MessageID: email.MessageID,
			Category:  categorizeError(err),
			Message:   err.Error(),
		}
	}

	vector := averageVectors(batch.Vectors)

	if err := s.deps.Cache.Set(ctx, cleaned, vector, chunks, map[string]interface{}{
		"tokenCount": batch.TotalTokens,
	}); err != nil {
		s.log.Warnf("embedding cache store failed for %s: %v", email.MessageID, err)
	}

	return &dto.EmbeddingUpsertItem{
		EmailID:    email.ID,
		Embedding:  vector,
		Chunks:     chunks,
		TokenCount: batch.TotalTokens,
	}, nil
}

// attachmentText fetches and extracts the email's attachments. Failures are
// logged and degrade to body-only text, never fail the email.
func (s *vectorizerService) attachmentText(ctx context.Context, email *models.Email) string {
	if s.deps.Attachments == nil || s.deps.MailSource == nil || len(email.Attachments) == 0 {
		return ""
	}

	buffers := make([]dto.AttachmentBuffer, 0, len(email.Attachments))
	for _, att := range email.Attachments {
		data, err := s.deps.MailSource.FetchAttachmentBytes(ctx, email.MessageID, att.ID)
		if err != nil {
			s.log.Warnf("attachment fetch failed for %s/%s: %v", email.MessageID, att.ID, err)
			continue
		}
		buffers = append(buffers, dto.AttachmentBuffer{
			Descriptor: dto.AttachmentDescriptor{
				ID:          att.ID,
				Filename:    att.Filename,
				MimeType:    att.MimeType,
				SizeBytes:   att.SizeBytes,
				ProviderRef: att.ProviderRef,
			},
			Buffer: data,
		})
	}
	if len(buffers) == 0 {
		return ""
	}

	result := s.deps.Attachments.ProcessAll(ctx, buffers)
	parts := make([]string, 0, len(result.Processed))
	for _, extracted := range result.Processed {
		if strings.TrimSpace(extracted.Text) != "" {
			parts = append(parts, extracted.Text)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "\n\n" + strings.Join(parts, "\n\n")
}

func (s *vectorizerService) publishVectorized(ctx context.Context, userID string, emailIDs []string) {
	if s.deps.Events == nil {
		return
	}
	event := dto.EmailVectorized{
		UserID:       userID,
		EmailIDs:     emailIDs,
		VectorizedAt: utils.Now(),
	}
	if err := s.deps.Events.PublishEmailVectorized(ctx, event); err != nil {
		s.log.Warnf("failed to publish vectorized event: %v", err)
	}
}

func categorizeError(err error) enum.VectorizationErrorCategory {
	if apiErr, ok := er.AsEmbeddingAPIError(err); ok {
		switch apiErr.Code {
		case er.EmbeddingErrorRateLimit:
			return enum.VectorizationErrorRateLimit
		case er.EmbeddingErrorAuth:
			return enum.VectorizationErrorAuth
		case er.EmbeddingErrorContentTooLarge:
			return enum.VectorizationErrorContentTooLarge
		case er.EmbeddingErrorTimeout, er.EmbeddingErrorNetwork, er.EmbeddingErrorServer:
			return enum.VectorizationErrorNetwork
		}
	}
	if errors.Is(err, er.ErrTextTooLarge) {
		return enum.VectorizationErrorContentTooLarge
	}
	return enum.VectorizationErrorUnknown
}

func cachedTokenCount(entry *dto.CacheEntry) int {
	switch v := entry.Metadata["tokenCount"].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}

// averageVectors collapses per-chunk embeddings into one document vector by
// element-wise mean.
func averageVectors(vectors [][]float32) []float32 {
	if len(vectors) == 0 {
		return nil
	}
	if len(vectors) == 1 {
		return vectors[0]
	}

	dims := len(vectors[0])
	avg := make([]float32, dims)
	for _, vector := range vectors {
		for i := 0; i < dims && i < len(vector); i++ {
			avg[i] += vector[i]
		}
	}
	for i := range avg {
		avg[i] /= float32(len(vectors))
	}
	return avg
}
