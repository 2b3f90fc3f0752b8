package types

// ContentFunc reads up to maxBytes bytes of a candidate's raw content.
// A maxBytes value <= 0 reads the whole file. Implementations must not
// cache failures; a missing file is reported on every call.
type ContentFunc func(maxBytes int) (string, error)

// FileCandidate is one file proposed by the index as possibly relevant to a
// query. Content is read lazily through the accessor so that ranking can
// bound its I/O cost.
type FileCandidate struct {
	// Path is relative to the indexed repository root
	Path string

	// Language is the declared language detected at index time
	Language string

	// Size is the file size in bytes recorded at index time
	Size int64

	// Content lazily reads the file's current content
	Content ContentFunc
}

// Validate checks if the candidate is usable for ranking
func (c *FileCandidate) Validate() error {
	if c.Path == "" {
		return ErrMissingPath
	}

	if c.Content == nil {
		return ErrMissingContent
	}

	return nil
}
