package dto

// ExtractionMetadata carries structural information about a parsed document.
// LikelyScanned flags image-only documents whose text density per page falls
// under the heuristic threshold; it annotates, it never blocks.
type ExtractionMetadata struct {
	Format        string `json:"format"`
	PageCount     int    `json:"pageCount"`
	CharCount     int    `json:"charCount"`
	LikelyScanned bool   `json:"likelyScanned"`
}

type ExtractionResult struct {
	Text        string             `json:"text"`
	Metadata    ExtractionMetadata `json:"metadata"`
	Diagnostics []string           `json:"diagnostics"`
}

type ValidationResult struct {
	IsValid bool     `json:"isValid"`
	Errors  []string `json:"errors"`
}
