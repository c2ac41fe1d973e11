package interfaces

import "github.com/customeros/mailvector/dto"

type TextProcessorService interface {
	Clean(text string) string
	Chunk(text string) []dto.TextChunk
	ValidateTextSize(text string) dto.TextSizeValidation
}
