// Package embed generates vector embeddings from text via an external
// inference service.
//
// Implementations are expected to be resilient: they retry on transient
// failures (5xx, network errors) and return an *UnavailableError only when
// the service is truly unavailable: all retries exhausted or a
// non-retryable error occurred.
package embed

import "context"

// DefaultDimensions is the embedding dimension the service is provisioned
// for (paraphrase-multilingual-MiniLM-L12-v2).
const DefaultDimensions = 384

// Provider generates a vector embedding for a single text input.
type Provider interface {
	// Embed returns the embedding for the given non-blank text.
	// It returns an *UnavailableError when the inference service cannot
	// produce an embedding after the configured retry policy.
	Embed(ctx context.Context, text string) ([]float32, error)
}
