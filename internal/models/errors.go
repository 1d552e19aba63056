package models

import (
	"errors"
	"fmt"
)

// ErrNotInitialized is returned by query operations before the knowledge base
// has been built. It is the one per-query error that is not absorbed.
var ErrNotInitialized = errors.New("knowledge base not initialized: run index first")

// EmbeddingError reports a malformed embedding batch (wrong count, empty or
// mismatched vector lengths). Fatal for the operation that triggered it,
// not for the process.
type EmbeddingError struct {
	Reason string
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding error: %s", e.Reason)
}

// IsEmbeddingError reports whether err is (or wraps) an EmbeddingError.
func IsEmbeddingError(err error) bool {
	var e *EmbeddingError
	return errors.As(err, &e)
}
