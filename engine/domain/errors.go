package domain

import (
	"errors"
	"fmt"
)

// Provider error kinds. The HTTP boundary maps the whole family to 503.
const (
	KindEmbedding     = "embedding_error"
	KindLLM           = "llm_error"
	KindVectorStore   = "vector_store_error"
	KindConfiguration = "configuration_error"
)

// Sentinel errors for validation failures.
var (
	ErrEmptyContent   = errors.New("content is empty")
	ErrContentTooLong = errors.New("content exceeds maximum length")
)

// ProviderError is the single error family for remote provider and
// configuration failures, distinguished by Kind.
type ProviderError struct {
	Kind    string
	Message string
	Details map[string]any
	Err     error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// NewProviderError wraps err as a ProviderError of the given kind.
func NewProviderError(kind, message string, err error) *ProviderError {
	return &ProviderError{Kind: kind, Message: message, Err: err}
}

// AsProviderError extracts a ProviderError from an error chain.
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
