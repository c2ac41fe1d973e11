package textproc

import (
	"fmt"
	"strings"

	"github.com/customeros/mailvector/dto"
	"github.com/customeros/mailvector/interfaces"
	"github.com/customeros/mailvector/services/extractors"
)

const (
	DefaultMaxChunkSize = 8000
	DefaultOverlap      = 200
	DefaultMinChunkSize = 100
	DefaultMaxTokens    = 8191

	// Cheap token estimator, ~4 characters per token
	charsPerToken = 4

	// How far back from the naive cut point to look for a natural boundary
	boundaryWindow = 150
)

type Config struct {
	MaxChunkSize int
	Overlap      int
	MinChunkSize int
	MaxTokens    int
}

type textProcessorService struct {
	cfg Config
}

func NewTextProcessorService(cfg Config) interfaces.TextProcessorService {
	if cfg.MaxChunkSize <= 0 {
		cfg.MaxChunkSize = DefaultMaxChunkSize
	}
	if cfg.Overlap < 0 {
		cfg.Overlap = DefaultOverlap
	}
	if cfg.Overlap == 0 {
		cfg.Overlap = DefaultOverlap
	}
	if cfg.MinChunkSize <= 0 {
		cfg.MinChunkSize = DefaultMinChunkSize
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	return &textProcessorService{cfg: cfg}
}

func (s *textProcessorService) Clean(text string) string {
	return extractors.CleanText(text)
}

// Chunk splits text into ordered windows of at most MaxChunkSize characters.
// Each window after the first starts Overlap characters before the previous
// end, but never regresses past previous start + MinChunkSize, which guards
// against infinite loops on pathological input.
func (s *textProcessorService) Chunk(text string) []dto.TextChunk {
	if text == "" {
		return nil
	}

	if len(text) <= s.cfg.MaxChunkSize {
		return []dto.TextChunk{{
			Content:     text,
			Index:       0,
			IsFinal:     true,
			StartOffset: 0,
			EndOffset:   len(text),
		}}
	}

	var chunks []dto.TextChunk
	start := 0
	index := 0

	for start < len(text) {
		end := start + s.cfg.MaxChunkSize
		if end >= len(text) {
			end = len(text)
		} else {
			breakPoint := s.findBreakPoint(text, end)
			// A boundary that regresses too far would stall the window
			if breakPoint > start+s.cfg.MinChunkSize {
				end = breakPoint
			}
		}

		chunks = append(chunks, dto.TextChunk{
			Content:     text[start:end],
			Index:       index,
			IsFinal:     end >= len(text),
			StartOffset: start,
			EndOffset:   end,
		})
		index++

		if end >= len(text) {
			break
		}

		next := end - s.cfg.Overlap
		if next < start+s.cfg.MinChunkSize {
			next = start + s.cfg.MinChunkSize
		}
		start = next
	}

	return chunks
}

// findBreakPoint prefers a sentence boundary at or before the naive cut,
// then a paragraph boundary, then the naive cut itself. The search never
// looks past the cut, so a chunk ending on a boundary stays within
// MaxChunkSize.
func (s *textProcessorService) findBreakPoint(text string, naiveCut int) int {
	windowStart := naiveCut - boundaryWindow
	if windowStart < 0 {
		windowStart = 0
	}
	window := text[windowStart:naiveCut]

	for _, terminator := range []string{". ", "! ", "? ", ".\n", "!\n", "?\n"} {
		if pos := strings.LastIndex(window, terminator); pos >= 0 {
			return windowStart + pos + len(terminator)
		}
	}

	if pos := strings.LastIndex(window, "\n\n"); pos >= 0 {
		return windowStart + pos + 2
	}

	return naiveCut
}

// ValidateTextSize rejects empty text and text whose estimated token count
// exceeds the embedding model's hard limit. Returns a reason, never an error.
func (s *textProcessorService) ValidateTextSize(text string) dto.TextSizeValidation {
	if strings.TrimSpace(text) == "" {
		return dto.TextSizeValidation{
			IsValid: false,
			Reason:  "text is empty",
		}
	}

	estimatedTokens := len(text) / charsPerToken
	if estimatedTokens > s.cfg.MaxTokens {
		return dto.TextSizeValidation{
			IsValid:         false,
			EstimatedTokens: estimatedTokens,
			Reason:          fmt.Sprintf("estimated %d tokens exceeds model limit of %d", estimatedTokens, s.cfg.MaxTokens),
		}
	}

	return dto.TextSizeValidation{
		IsValid:         true,
		EstimatedTokens: estimatedTokens,
	}
}
