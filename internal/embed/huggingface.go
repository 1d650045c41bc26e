package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultMaxRetries is the attempt budget for transient failures.
	DefaultMaxRetries = 3

	defaultRequestTimeout = 30 * time.Second
)

// HuggingFaceConfig configures the HuggingFace Inference API provider.
type HuggingFaceConfig struct {
	APIKey     string
	ModelURL   string
	MaxRetries int
	Dimensions int
	HTTPClient *http.Client
}

// HuggingFaceProvider implements Provider against the HuggingFace
// Inference API. The API accepts {"inputs": text} and returns one
// embedding per input as [][]float32; only the first is consumed since
// exactly one input string is ever submitted.
//
// Retry policy: 5xx responses and network/timeout failures are retried up
// to MaxRetries attempts. 4xx responses, structurally empty responses, and
// wrong-dimension results fail immediately.
type HuggingFaceProvider struct {
	apiKey     string
	modelURL   string
	maxRetries int
	dimensions int
	httpClient *http.Client
}

// NewHuggingFaceProvider creates a HuggingFace-backed Provider.
func NewHuggingFaceProvider(cfg HuggingFaceConfig) *HuggingFaceProvider {
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	dimensions := cfg.Dimensions
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}
	return &HuggingFaceProvider{
		apiKey:     cfg.APIKey,
		modelURL:   cfg.ModelURL,
		maxRetries: maxRetries,
		dimensions: dimensions,
		httpClient: httpClient,
	}
}

type huggingFaceRequest struct {
	Inputs string `json:"inputs"`
}

// Embed implements Provider.
func (p *HuggingFaceProvider) Embed(ctx context.Context, text string) ([]float32, error) {
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
		log.Printf("embed: huggingface attempt %d/%d failed: %v", attempt, p.maxRetries, err)
	}

	return nil, &UnavailableError{
		Reason: fmt.Sprintf("exhausted %d attempts", p.maxRetries),
		Cause:  lastErr,
	}
}

// isNonRetryable reports whether err already carries a terminal
// classification; retryable failures stay plain errors inside the loop.
func isNonRetryable(err error, out **UnavailableError) bool {
	ue, ok := err.(*UnavailableError)
	if ok {
		*out = ue
	}
	return ok
}

func (p *HuggingFaceProvider) embedOnce(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(huggingFaceRequest{Inputs: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.modelURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		// Network or timeout failure: retryable.
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &UnavailableError{
			Reason: fmt.Sprintf("client error %d", resp.StatusCode),
			Cause:  fmt.Errorf("%s", strings.TrimSpace(string(payload))),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// 5xx-class: retryable.
		return nil, fmt.Errorf("server error %d", resp.StatusCode)
	}

	var embeddings [][]float32
	if err := json.NewDecoder(resp.Body).Decode(&embeddings); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(embeddings) == 0 {
		return nil, &UnavailableError{Reason: "empty embedding response"}
	}

	embedding := embeddings[0]
	if len(embedding) != p.dimensions {
		return nil, &UnavailableError{
			Reason: fmt.Sprintf("expected %d dimensions, got %d", p.dimensions, len(embedding)),
		}
	}

	return embedding, nil
}
