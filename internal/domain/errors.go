package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownSourceType = errors.New("unknown source type")
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrInvalidWeights    = errors.New("invalid source weights")
	ErrUnknownPreset     = errors.New("unknown weight preset")
)

// EmbeddingProviderError is returned when the embedding or relevance
// provider fails. The engine never retries it.
type EmbeddingProviderError struct {
	Op  string
	Err error
}

func (e *EmbeddingProviderError) Error() string {
	return fmt.Sprintf("embedding provider %s: %v", e.Op, e.Err)
}

func (e *EmbeddingProviderError) Unwrap() error { return e.Err }

// StorageError is returned when persisted state could not be read or written.
// In-memory state is left at the last successful snapshot.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// ConfigurationError describes malformed or missing configuration that the
// engine replaced with defaults.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration %s: %s", e.Key, e.Reason)
}

// InsufficientDataError reports a weight recommendation that was not applied
// because its confidence is below the required minimum.
type InsufficientDataError struct {
	Confidence float64 `json:"current_confidence"`
	Required   float64 `json:"min_required"`
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: confidence %.2f below %.2f", e.Confidence, e.Required)
}
