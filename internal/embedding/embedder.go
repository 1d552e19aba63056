// Package embedding provides text embedding via an external embedding service.
package embedding

import "context"

// Embedder produces vector embeddings for text. Implementations must return
// one vector per input, in order, all of the same non-zero length.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
