package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/customeros/mailvector/dto"
	"github.com/customeros/mailvector/interfaces"
	"github.com/customeros/mailvector/internal/config"
	er "github.com/customeros/mailvector/internal/errors"
	"github.com/customeros/mailvector/internal/logger"
	"github.com/customeros/mailvector/internal/tracing"
)

type embeddingRequest struct {
	Input      []string `json:"input"`
	Model      string   `json:"model"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

type embeddingClient struct {
	cfg        *config.EmbeddingAPIConfig
	log        logger.Logger
	httpClient *http.Client
	retry      *RetryPolicy

	// sleep is swapped out in tests
	sleep func(time.Duration)
}

func NewEmbeddingClient(cfg *config.EmbeddingAPIConfig, log logger.Logger) interfaces.EmbeddingClient {
	return &embeddingClient{
		cfg: cfg,
		log: log,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		retry: NewRetryPolicy(cfg.MaxRetries, time.Duration(cfg.RetryBaseMs)*time.Millisecond, log),
		sleep: time.Sleep,
	}
}

func (c *embeddingClient) Embed(ctx context.Context, text string) (*dto.EmbeddingResult, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "EmbeddingClient.Embed")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	batch, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &dto.EmbeddingResult{
		Vector:     batch.Vectors[0],
		TokenCount: batch.TotalTokens,
	}, nil
}

// EmbedBatch embeds up to MaxBatchSize texts in a single API call. Empty or
// whitespace-only inputs are rejected before any network traffic.
func (c *embeddingClient) EmbedBatch(ctx context.Context, texts []string) (*dto.BatchEmbeddingResult, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "EmbeddingClient.EmbedBatch")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.LogKV("batchSize", len(texts))

	if len(texts) == 0 {
		return nil, errors.Wrap(er.ErrEmptyText, "embed batch")
	}
	if len(texts) > c.cfg.MaxBatchSize {
		err := errors.Errorf("batch of %d exceeds maximum of %d", len(texts), c.cfg.MaxBatchSize)
		tracing.TraceErr(span, err)
		return nil, err
	}
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			err := errors.Wrapf(er.ErrEmptyText, "embed batch item %d", i)
			tracing.TraceErr(span, err)
			return nil, err
		}
	}

	var result *dto.BatchEmbeddingResult
	err := c.retry.Do(ctx, "embedding request", func(ctx context.Context) error {
		var callErr error
		result, callErr = c.callAPI(ctx, texts)
		return callErr
	})
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return result, nil
}

// EmbedMany splits the input into API-sized sub-batches with a pacing delay
// between calls. A sub-batch failure aborts the remainder.
func (c *embeddingClient) EmbedMany(ctx context.Context, texts []string) (*dto.BatchEmbeddingResult, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "EmbeddingClient.EmbedMany")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.LogKV("total", len(texts))

	if len(texts) == 0 {
		return nil, errors.Wrap(er.ErrEmptyText, "embed many")
	}

	combined := &dto.BatchEmbeddingResult{
		Vectors: make([][]float32, 0, len(texts)),
	}
	for start := 0; start < len(texts); start += c.cfg.MaxBatchSize {
		end := start + c.cfg.MaxBatchSize
		if end > len(texts) {
			end = len(texts)
		}

		if start > 0 && c.cfg.BatchDelayMs > 0 {
			c.sleep(time.Duration(c.cfg.BatchDelayMs) * time.Millisecond)
		}

		batch, err := c.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			tracing.TraceErr(span, err)
			return nil, errors.Wrapf(err, "sub-batch starting at %d", start)
		}
		combined.Vectors = append(combined.Vectors, batch.Vectors...)
		combined.TotalTokens += batch.TotalTokens
	}
	return combined, nil
}

func (c *embeddingClient) callAPI(ctx context.Context, texts []string) (*dto.BatchEmbeddingResult, error) {
	payload, err := json.Marshal(embeddingRequest{
		Input:      texts,
		Model:      c.cfg.Model,
		Dimensions: c.cfg.Dimensions,
	})
	if err != nil {
		return nil, errors.Wrap(err, "marshal embedding request")
	}

	url := strings.TrimRight(c.cfg.Url, "/") + "/v1/embeddings"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "build embedding request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.ApiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.ApiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, er.NewEmbeddingAPIError(er.EmbeddingErrorNetwork, 0, err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, er.NewEmbeddingAPIError(er.EmbeddingErrorNetwork, resp.StatusCode, err.Error())
	}

	if resp.StatusCode != http.StatusOK {
		code := er.ClassifyHTTPStatus(resp.StatusCode)
		message := extractAPIErrorMessage(body)
		return nil, er.NewEmbeddingAPIError(code, resp.StatusCode, message)
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, errors.Wrap(err, "decode embedding response")
	}
	if len(parsed.Data) != len(texts) {
		return nil, errors.Errorf("expected %d embeddings, got %d", len(texts), len(parsed.Data))
	}

	// The API is allowed to return items out of order; index is authoritative
	vectors := make([][]float32, len(texts))
	for _, item := range parsed.Data {
		if item.Index < 0 || item.Index >= len(texts) {
			return nil, errors.Errorf("embedding index %d out of range", item.Index)
		}
		vectors[item.Index] = item.Embedding
	}

	return &dto.BatchEmbeddingResult{
		Vectors:     vectors,
		TotalTokens: parsed.Usage.TotalTokens,
	}, nil
}

func extractAPIErrorMessage(body []byte) string {
	var parsed embeddingResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != nil {
		return parsed.Error.Message
	}
	if len(body) > 200 {
		body = body[:200]
	}
	return fmt.Sprintf("unexpected response: %s", string(body))
}
