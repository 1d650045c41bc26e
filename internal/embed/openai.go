package embed

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultOpenAIModel is the embedding model requested from the OpenAI API.
// text-embedding-3-small supports reduced output dimensions, letting it
// share the vector(384) column with the HuggingFace provider.
const DefaultOpenAIModel = openai.SmallEmbedding3

// OpenAIConfig configures the OpenAI-backed provider.
type OpenAIConfig struct {
	APIKey     string
	Model      openai.EmbeddingModel
	MaxRetries int
	Dimensions int
	BaseURL    string
}

// OpenAIProvider implements Provider on the OpenAI embeddings API with
// the same retry classification as the HuggingFace provider: API errors
// in the 4xx range and empty responses fail immediately, everything else
// is retried up to MaxRetries attempts.
type OpenAIProvider struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	maxRetries int
	dimensions int
}

// NewOpenAIProvider creates an OpenAI-backed Provider.
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	dimensions := cfg.Dimensions
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAIProvider{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      model,
		maxRetries: maxRetries,
		dimensions: dimensions,
	}
}

// Embed implements Provider.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrBlankInput
	}

	var lastErr error

	for attempt := 1; attempt <= p.maxRetries; attempt++ {
		embedding, err := p.embedOnce(ctx, text)
		if err == nil {
			return embedding, nil
		}

		var unavailable *UnavailableError
		if isNonRetryable(err, &unavailable) {
			return nil, unavailable
		}

		lastErr = err
		log.Printf("embed: openai attempt %d/%d failed: %v", attempt, p.maxRetries, err)
	}

	return nil, &UnavailableError{
		Reason: fmt.Sprintf("exhausted %d attempts", p.maxRetries),
		Cause:  lastErr,
	}
}

func (p *OpenAIProvider) embedOnce(ctx context.Context, text string) ([]float32, error) {
	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      []string{text},
		Model:      p.model,
		Dimensions: p.dimensions,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode >= 400 && apiErr.HTTPStatusCode < 500 {
			return nil, &UnavailableError{
				Reason: fmt.Sprintf("client error %d", apiErr.HTTPStatusCode),
				Cause:  err,
			}
		}
		// 5xx or network failure: retryable.
		return nil, fmt.Errorf("openai request failed: %w", err)
	}

	if len(resp.Data) == 0 {
		return nil, &UnavailableError{Reason: "empty embedding response"}
	}

	embedding := resp.Data[0].Embedding
	if len(embedding) != p.dimensions {
		return nil, &UnavailableError{
			Reason: fmt.Sprintf("expected %d dimensions, got %d", p.dimensions, len(embedding)),
		}
	}

	return embedding, nil
}
