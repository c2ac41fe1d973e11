package vectorizer

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/customeros/mailvector/dto"
	"github.com/customeros/mailvector/interfaces"
	"github.com/customeros/mailvector/internal/enum"
	er "github.com/customeros/mailvector/internal/errors"
	"github.com/customeros/mailvector/internal/logger"
	"github.com/customeros/mailvector/internal/models"
	"github.com/customeros/mailvector/services/attachments"
	"github.com/customeros/mailvector/services/email_filter"
	"github.com/customeros/mailvector/services/embedding_cache"
	"github.com/customeros/mailvector/services/extractors"
	"github.com/customeros/mailvector/services/textproc"
)

func getLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{
		DevMode: true,
	})
	appLogger.InitLogger()
	return appLogger
}

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) ExistingIDs(ctx context.Context, messageIDs []string) (map[string]bool, error) {
	args := m.Called(ctx, messageIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]bool), args.Error(1)
}

func (m *mockRepo) InsertBatch(ctx context.Context, emails []*models.Email) ([]*models.Email, error) {
	args := m.Called(ctx, emails)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Email), args.Error(1)
}

func (m *mockRepo) UpsertEmbeddings(ctx context.Context, items []dto.EmbeddingUpsertItem) error {
	args := m.Called(ctx, items)
	return args.Error(0)
}

func (m *mockRepo) FindSimilar(ctx context.Context, queryVector []float32, opts interfaces.SimilaritySearchOptions) ([]dto.SimilarEmail, error) {
	args := m.Called(ctx, queryVector, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]dto.SimilarEmail), args.Error(1)
}

func (m *mockRepo) IsVectorized(ctx context.Context, emailID string) (bool, error) {
	args := m.Called(ctx, emailID)
	return args.Bool(0), args.Error(1)
}

func (m *mockRepo) ClearEmbedding(ctx context.Context, emailID string) error {
	args := m.Called(ctx, emailID)
	return args.Error(0)
}

func (m *mockRepo) ListPendingVectorization(ctx context.Context, userID string, limit int) ([]*models.Email, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Email), args.Error(1)
}

func (m *mockRepo) LastSyncTimestamp(ctx context.Context, userID string) (*time.Time, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*time.Time), args.Error(1)
}

type mockRuleRepo struct {
	mock.Mock
}

func (m *mockRuleRepo) RulesForUser(ctx context.Context, userID string) ([]models.UserFilterRule, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.UserFilterRule), args.Error(1)
}

type mockEmbeddingClient struct {
	mock.Mock
}

func (m *mockEmbeddingClient) Embed(ctx context.Context, text string) (*dto.EmbeddingResult, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.EmbeddingResult), args.Error(1)
}

func (m *mockEmbeddingClient) EmbedBatch(ctx context.Context, texts []string) (*dto.BatchEmbeddingResult, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.BatchEmbeddingResult), args.Error(1)
}

func (m *mockEmbeddingClient) EmbedMany(ctx context.Context, texts []string) (*dto.BatchEmbeddingResult, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.BatchEmbeddingResult), args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishEmailVectorized(ctx context.Context, event dto.EmailVectorized) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *mockPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

type mockMailSource struct {
	mock.Mock
}

func (m *mockMailSource) FetchMessagesAfter(ctx context.Context, since time.Time, folders []string) ([]dto.RawMessage, error) {
	args := m.Called(ctx, since, folders)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]dto.RawMessage), args.Error(1)
}

func (m *mockMailSource) FetchAttachmentBytes(ctx context.Context, messageID, attachmentID string) ([]byte, error) {
	args := m.Called(ctx, messageID, attachmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func newTestService(repo *mockRepo, client *mockEmbeddingClient, events interfaces.EventPublisher) (*vectorizerService, interfaces.EmbeddingCache) {
	cache := embedding_cache.NewMemoryCache(embedding_cache.Config{})
	svc := NewVectorizationService(
		getLogger(),
		Config{BatchSize: 5},
		Dependencies{
			Repo:     repo,
			Cache:    cache,
			Client:   client,
			TextProc: textproc.NewTextProcessorService(textproc.Config{}),
			Events:   events,
		},
	).(*vectorizerService)
	svc.sleep = func(time.Duration) {}
	return svc, cache
}

func pgVector() *pgvector.Vector {
	vec := pgvector.NewVector([]float32{0.1, 0.2})
	return &vec
}

func vectorizedEmail(id string) *models.Email {
	vec := pgVector()
	now := time.Now()
	return &models.Email{
		ID:           id,
		MessageID:    "msg-" + id,
		BodyText:     "already processed body",
		Indexable:    true,
		Embedding:    vec,
		VectorizedAt: &now,
	}
}

func TestVectorizeBatch_AllAlreadyVectorizedSkipsWithoutClientCalls(t *testing.T) {
	// Arrange
	repo := &mockRepo{}
	client := &mockEmbeddingClient{}
	svc, _ := newTestService(repo, client, nil)
	emails := []*models.Email{vectorizedEmail("e1"), vectorizedEmail("e2"), vectorizedEmail("e3")}

	// Act
	outcome := svc.VectorizeBatch(context.Background(), emails, dto.VectorizeOptions{})

	// Assert
	assert.Equal(t, 0, outcome.Processed)
	assert.Equal(t, 3, outcome.Skipped)
	assert.Equal(t, 0, outcome.Errored)
	client.AssertNotCalled(t, "EmbedMany", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "UpsertEmbeddings", mock.Anything, mock.Anything)
}

func TestFilterNewEmails_PreservesOrderAndDropsExisting(t *testing.T) {
	// Arrange: 4 candidates, 2 already stored
	repo := &mockRepo{}
	client := &mockEmbeddingClient{}
	svc, _ := newTestService(repo, client, nil)
	emails := []*models.Email{
		{ID: "a", MessageID: "msg-a"},
		{ID: "b", MessageID: "msg-b"},
		{ID: "c", MessageID: "msg-c"},
		{ID: "d", MessageID: "msg-d"},
	}
	repo.On("ExistingIDs", mock.Anything, []string{"msg-a", "msg-b", "msg-c", "msg-d"}).
		Return(map[string]bool{"msg-b": true, "msg-d": true}, nil)

	// Act
	fresh, err := svc.FilterNewEmails(context.Background(), emails)

	// Assert
	require.NoError(t, err)
	require.Len(t, fresh, 2)
	assert.Equal(t, "msg-a", fresh[0].MessageID)
	assert.Equal(t, "msg-c", fresh[1].MessageID)
}

func TestIngestEmails_DeniedSenderStoredNonIndexable(t *testing.T) {
	// Arrange: one candidate already stored, one clean, one from a denied sender
	repo := &mockRepo{}
	client := &mockEmbeddingClient{}
	ruleRepo := &mockRuleRepo{}
	svc, _ := newTestService(repo, client, nil)
	svc.deps.RuleRepo = ruleRepo
	svc.deps.Filter = email_filter.NewEmailFilterService(getLogger(), email_filter.Config{})

	emails := []*models.Email{
		{MessageID: "msg-dup", FromAddress: "old@example.com", BodyText: "seen before"},
		{MessageID: "msg-ok", FromAddress: "alice@example.com", Subject: "budget", BodyText: "numbers inside"},
		{MessageID: "msg-spam", FromAddress: "promo@newsletter.example.com", Subject: "sale", BodyText: "buy now"},
	}
	rules := []models.UserFilterRule{
		{RuleType: enum.FilterRuleDeny, Field: enum.FilterRuleFieldSender, Pattern: "newsletter.example.com"},
	}

	repo.On("ExistingIDs", mock.Anything, mock.Anything).
		Return(map[string]bool{"msg-dup": true}, nil)
	ruleRepo.On("RulesForUser", mock.Anything, "user-1").Return(rules, nil)
	repo.On("InsertBatch", mock.Anything, mock.MatchedBy(func(batch []*models.Email) bool {
		return len(batch) == 2 && batch[0].MessageID == "msg-ok" && batch[1].MessageID == "msg-spam"
	})).Return(emails[1:], nil)

	// Act
	inserted, err := svc.IngestEmails(context.Background(), "user-1", emails)

	// Assert: the denied record is persisted, but marked unindexable for good
	require.NoError(t, err)
	require.Len(t, inserted, 2)
	assert.True(t, inserted[0].Indexable)
	assert.Equal(t, enum.FilterIndexable, inserted[0].FilterReason)
	assert.False(t, inserted[1].Indexable)
	assert.Equal(t, enum.FilterDeniedSender, inserted[1].FilterReason)
	assert.Equal(t, "user-1", inserted[1].UserID)
}

func TestIngestEmails_AllDuplicatesInsertsNothing(t *testing.T) {
	// Arrange
	repo := &mockRepo{}
	client := &mockEmbeddingClient{}
	svc, _ := newTestService(repo, client, nil)
	emails := []*models.Email{{MessageID: "msg-a"}, {MessageID: "msg-b"}}
	repo.On("ExistingIDs", mock.Anything, mock.Anything).
		Return(map[string]bool{"msg-a": true, "msg-b": true}, nil)

	// Act
	inserted, err := svc.IngestEmails(context.Background(), "user-1", emails)

	// Assert
	require.NoError(t, err)
	assert.Empty(t, inserted)
	repo.AssertNotCalled(t, "InsertBatch", mock.Anything, mock.Anything)
}

func TestVectorizeBatch_AttachmentTextMergedIntoEmbeddingInput(t *testing.T) {
	// Arrange: the email carries an html attachment whose text must reach the
	// embedding input alongside the body
	repo := &mockRepo{}
	client := &mockEmbeddingClient{}
	mailSource := &mockMailSource{}
	svc, _ := newTestService(repo, client, nil)
	svc.deps.MailSource = mailSource
	svc.deps.Attachments = attachments.NewAttachmentService(getLogger(), attachments.Config{}, extractors.NewHTMLExtractor())

	email := &models.Email{
		ID:            "e1",
		MessageID:     "msg-1",
		BodyText:      "body only",
		Indexable:     true,
		HasAttachment: true,
		Attachments: models.AttachmentList{
			{ID: "att-1", Filename: "forecast.html", MimeType: "text/html", SizeBytes: 64},
		},
	}
	mailSource.On("FetchAttachmentBytes", mock.Anything, "msg-1", "att-1").
		Return([]byte("<html><body><p>quarterly forecast looks strong</p></body></html>"), nil)
	client.On("EmbedMany", mock.Anything, mock.MatchedBy(func(texts []string) bool {
		return len(texts) == 1 &&
			strings.Contains(texts[0], "body only") &&
			strings.Contains(texts[0], "quarterly forecast looks strong")
	})).Return(&dto.BatchEmbeddingResult{Vectors: [][]float32{{0.1, 0.2}}, TotalTokens: 12}, nil)
	repo.On("UpsertEmbeddings", mock.Anything, mock.Anything).Return(nil)

	// Act
	outcome := svc.VectorizeBatch(context.Background(), []*models.Email{email}, dto.VectorizeOptions{IncludeAttachments: true})

	// Assert
	assert.Equal(t, 1, outcome.Processed)
	assert.Equal(t, 0, outcome.Errored)
	client.AssertExpectations(t)
	mailSource.AssertExpectations(t)
}

func TestVectorizeBatch_AttachmentFetchFailureDegradesToBodyOnly(t *testing.T) {
	// Arrange: the provider refuses the attachment download
	repo := &mockRepo{}
	client := &mockEmbeddingClient{}
	mailSource := &mockMailSource{}
	svc, _ := newTestService(repo, client, nil)
	svc.deps.MailSource = mailSource
	svc.deps.Attachments = attachments.NewAttachmentService(getLogger(), attachments.Config{}, extractors.NewHTMLExtractor())

	email := &models.Email{
		ID:            "e1",
		MessageID:     "msg-1",
		BodyText:      "body only",
		Indexable:     true,
		HasAttachment: true,
		Attachments: models.AttachmentList{
			{ID: "att-1", Filename: "forecast.html", MimeType: "text/html", SizeBytes: 64},
		},
	}
	mailSource.On("FetchAttachmentBytes", mock.Anything, "msg-1", "att-1").
		Return(nil, er.ErrConnectionTimeout)
	client.On("EmbedMany", mock.Anything, []string{"body only"}).
		Return(&dto.BatchEmbeddingResult{Vectors: [][]float32{{0.1, 0.2}}, TotalTokens: 3}, nil)
	repo.On("UpsertEmbeddings", mock.Anything, mock.Anything).Return(nil)

	// Act
	outcome := svc.VectorizeBatch(context.Background(), []*models.Email{email}, dto.VectorizeOptions{IncludeAttachments: true})

	// Assert
	assert.Equal(t, 1, outcome.Processed)
	assert.Equal(t, 0, outcome.Errored)
	client.AssertExpectations(t)
}

func TestVectorizeBatch_AttachmentsIgnoredWhenNotRequested(t *testing.T) {
	// Arrange
	repo := &mockRepo{}
	client := &mockEmbeddingClient{}
	mailSource := &mockMailSource{}
	svc, _ := newTestService(repo, client, nil)
	svc.deps.MailSource = mailSource
	svc.deps.Attachments = attachments.NewAttachmentService(getLogger(), attachments.Config{}, extractors.NewHTMLExtractor())

	email := &models.Email{
		ID:            "e1",
		MessageID:     "msg-1",
		BodyText:      "body only",
		Indexable:     true,
		HasAttachment: true,
		Attachments: models.AttachmentList{
			{ID: "att-1", Filename: "forecast.html", MimeType: "text/html", SizeBytes: 64},
		},
	}
	client.On("EmbedMany", mock.Anything, []string{"body only"}).
		Return(&dto.BatchEmbeddingResult{Vectors: [][]float32{{0.1, 0.2}}, TotalTokens: 3}, nil)
	repo.On("UpsertEmbeddings", mock.Anything, mock.Anything).Return(nil)

	// Act
	outcome := svc.VectorizeBatch(context.Background(), []*models.Email{email}, dto.VectorizeOptions{IncludeAttachments: false})

	// Assert
	assert.Equal(t, 1, outcome.Processed)
	mailSource.AssertNotCalled(t, "FetchAttachmentBytes", mock.Anything, mock.Anything, mock.Anything)
}

func TestVectorizeBatch_CacheHitAvoidsClientCall(t *testing.T) {
	// Arrange: a prior run stored this exact body in the cache
	repo := &mockRepo{}
	client := &mockEmbeddingClient{}
	svc, cache := newTestService(repo, client, nil)
	body := "quarterly revenue numbers attached for review"
	require.NoError(t, cache.Set(context.Background(), body, []float32{0.5, 0.5}, nil, map[string]interface{}{"tokenCount": 9}))

	email := &models.Email{ID: "e1", MessageID: "msg-1", BodyText: body, Indexable: true}
	repo.On("UpsertEmbeddings", mock.Anything, mock.MatchedBy(func(items []dto.EmbeddingUpsertItem) bool {
		return len(items) == 1 && items[0].EmailID == "e1" && items[0].TokenCount == 9
	})).Return(nil)

	// Act
	outcome := svc.VectorizeBatch(context.Background(), []*models.Email{email}, dto.VectorizeOptions{})

	// Assert
	assert.Equal(t, 1, outcome.Processed)
	assert.Equal(t, 0, outcome.Errored)
	client.AssertNotCalled(t, "EmbedMany", mock.Anything, mock.Anything)
	assert.Greater(t, outcome.CostSavingsPercent(), 0.0)
}

func TestVectorizeBatch_PerEmailFailureDoesNotStopBatch(t *testing.T) {
	// Arrange: the first email hits a rate limit, the second succeeds
	repo := &mockRepo{}
	client := &mockEmbeddingClient{}
	svc, _ := newTestService(repo, client, nil)

	failing := &models.Email{ID: "e1", MessageID: "msg-1", BodyText: "text that gets rate limited", Indexable: true}
	passing := &models.Email{ID: "e2", MessageID: "msg-2", BodyText: "text that goes through", Indexable: true}

	client.On("EmbedMany", mock.Anything, []string{failing.BodyText}).
		Return(nil, er.NewEmbeddingAPIError(er.EmbeddingErrorRateLimit, 429, "rate limit exceeded"))
	client.On("EmbedMany", mock.Anything, []string{passing.BodyText}).
		Return(&dto.BatchEmbeddingResult{Vectors: [][]float32{{0.1, 0.2}}, TotalTokens: 5}, nil)
	repo.On("UpsertEmbeddings", mock.Anything, mock.MatchedBy(func(items []dto.EmbeddingUpsertItem) bool {
		return len(items) == 1 && items[0].EmailID == "e2"
	})).Return(nil)

	// Act
	outcome := svc.VectorizeBatch(context.Background(), []*models.Email{failing, passing}, dto.VectorizeOptions{})

	// Assert
	assert.Equal(t, 1, outcome.Processed)
	assert.Equal(t, 1, outcome.Errored)
	require.Len(t, outcome.Errors, 1)
	assert.Equal(t, "msg-1", outcome.Errors[0].MessageID)
	assert.Equal(t, enum.VectorizationErrorRateLimit, outcome.Errors[0].Category)
}

func TestVectorizeBatch_UpsertFailureMarksStagedAsErrored(t *testing.T) {
	// Arrange
	repo := &mockRepo{}
	client := &mockEmbeddingClient{}
	svc, _ := newTestService(repo, client, nil)
	email := &models.Email{ID: "e1", MessageID: "msg-1", BodyText: "some body text", Indexable: true}

	client.On("EmbedMany", mock.Anything, mock.Anything).
		Return(&dto.BatchEmbeddingResult{Vectors: [][]float32{{0.1}}, TotalTokens: 3}, nil)
	repo.On("UpsertEmbeddings", mock.Anything, mock.Anything).
		Return(er.ErrConnectionTimeout)

	// Act
	outcome := svc.VectorizeBatch(context.Background(), []*models.Email{email}, dto.VectorizeOptions{})

	// Assert
	assert.Equal(t, 0, outcome.Processed)
	assert.Equal(t, 1, outcome.Errored)
	require.Len(t, outcome.Errors, 1)
	assert.Equal(t, "msg-1", outcome.Errors[0].MessageID)
}

func TestVectorizeBatch_NonIndexableAndEmptyBodiesSkipped(t *testing.T) {
	// Arrange
	repo := &mockRepo{}
	client := &mockEmbeddingClient{}
	svc, _ := newTestService(repo, client, nil)
	emails := []*models.Email{
		{ID: "e1", MessageID: "msg-1", BodyText: "spam content", Indexable: false, FilterReason: enum.FilterDeniedSender},
		{ID: "e2", MessageID: "msg-2", BodyText: "   \n  ", Indexable: true},
	}

	// Act
	outcome := svc.VectorizeBatch(context.Background(), emails, dto.VectorizeOptions{})

	// Assert
	assert.Equal(t, 2, outcome.Skipped)
	assert.Equal(t, 0, outcome.Processed)
	client.AssertNotCalled(t, "EmbedMany", mock.Anything, mock.Anything)
}

func TestVectorizeBatch_PublishesEventAfterPersistence(t *testing.T) {
	// Arrange
	repo := &mockRepo{}
	client := &mockEmbeddingClient{}
	events := &mockPublisher{}
	svc, _ := newTestService(repo, client, events)
	email := &models.Email{ID: "e1", MessageID: "msg-1", BodyText: "meeting notes from monday", Indexable: true}

	client.On("EmbedMany", mock.Anything, mock.Anything).
		Return(&dto.BatchEmbeddingResult{Vectors: [][]float32{{0.3, 0.4}}, TotalTokens: 4}, nil)
	repo.On("UpsertEmbeddings", mock.Anything, mock.Anything).Return(nil)
	events.On("PublishEmailVectorized", mock.Anything, mock.MatchedBy(func(event dto.EmailVectorized) bool {
		return event.UserID == "user-1" && len(event.EmailIDs) == 1 && event.EmailIDs[0] == "e1"
	})).Return(nil)

	// Act
	outcome := svc.VectorizeBatch(context.Background(), []*models.Email{email}, dto.VectorizeOptions{UserID: "user-1"})

	// Assert
	assert.Equal(t, 1, outcome.Processed)
	events.AssertExpectations(t)
}

func TestVectorizePending_RunsPendingThroughBatch(t *testing.T) {
	// Arrange
	repo := &mockRepo{}
	client := &mockEmbeddingClient{}
	svc, _ := newTestService(repo, client, nil)
	pending := []*models.Email{{ID: "e1", MessageID: "msg-1", BodyText: "unprocessed record", Indexable: true}}

	repo.On("ListPendingVectorization", mock.Anything, "user-1", 50).Return(pending, nil)
	client.On("EmbedMany", mock.Anything, mock.Anything).
		Return(&dto.BatchEmbeddingResult{Vectors: [][]float32{{0.9}}, TotalTokens: 2}, nil)
	repo.On("UpsertEmbeddings", mock.Anything, mock.Anything).Return(nil)

	// Act
	outcome, err := svc.VectorizePending(context.Background(), "user-1", 50)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.Processed)
}

func TestAverageVectors_ElementWiseMean(t *testing.T) {
	// Arrange / Act
	avg := averageVectors([][]float32{{1, 2, 3}, {3, 4, 5}})

	// Assert
	assert.Equal(t, []float32{2, 3, 4}, avg)
}
