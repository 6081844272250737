package rules

import "fmt"

// Built-in limits: 2 MiB documents, 100 KiB inline text, 256 nesting levels.
const (
	DefaultMaxDocumentBytes = 2 << 20
	DefaultMaxTextLength    = 100 << 10
	DefaultMaxDepth         = 256
)

// Limits bound the work a single sanitize call may do. They are checked
// before any parsing.
type Limits struct {
	MaxDocumentBytes int `json:"max_document_bytes"`
	MaxTextLength    int `json:"max_text_length"`
	MaxDepth         int `json:"max_depth"`
}

// DefaultLimits returns the built-in limits.
func DefaultLimits() Limits {
	return Limits{
		MaxDocumentBytes: DefaultMaxDocumentBytes,
		MaxTextLength:    DefaultMaxTextLength,
		MaxDepth:         DefaultMaxDepth,
	}
}

// Validate reports an ErrInconsistent error when any limit is not positive.
func (l Limits) Validate() error {
	if l.MaxDocumentBytes <= 0 {
		return fmt.Errorf("%w: max document bytes must be > 0", ErrInconsistent)
	}
	if l.MaxTextLength <= 0 {
		return fmt.Errorf("%w: max text length must be > 0", ErrInconsistent)
	}
	if l.MaxDepth <= 0 {
		return fmt.Errorf("%w: max depth must be > 0", ErrInconsistent)
	}
	return nil
}
