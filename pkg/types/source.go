package types

// SourceReference points at the evidence excerpt behind part of an answer.
// Scores are normalized to [0, 1] and comparable across references in the
// same response.
type SourceReference struct {
	File      string  `json:"file"`
	LineStart int     `json:"line_start"`
	LineEnd   int     `json:"line_end"`
	Score     float64 `json:"score"`
	Content   string  `json:"content"`
}

// Validate checks if the source reference is valid
func (r *SourceReference) Validate() error {
	if r.File == "" {
		return ErrMissingPath
	}

	if r.LineEnd < r.LineStart {
		return ErrInvalidLineRange
	}

	if r.Score < 0 || r.Score > 1 {
		return ErrInvalidScore
	}

	return nil
}
