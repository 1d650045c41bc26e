package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/pokvault/pokvault/internal/domain"
	"github.com/pokvault/pokvault/internal/embed"
	"github.com/pokvault/pokvault/internal/telemetry"
)

// EmbeddingPokRepository defines the repository interface for embedding
// generation.
type EmbeddingPokRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Pok, error)
	UpdateEmbedding(ctx context.Context, id string, embedding []float32) error
}

const defaultGenerationTimeout = 2 * time.Minute

// EmbeddingGenerator computes and persists embeddings for poks.
//
// Provider unavailability is absorbed here: the pok stays keyword-searchable
// with a nil embedding and can be picked up later by the backfill. Callers
// on the write path use Dispatch, which runs generation on its own
// goroutine and never blocks or fails the request that triggered it.
type EmbeddingGenerator struct {
	provider embed.Provider
	repo     EmbeddingPokRepository
	timeout  time.Duration
	wg       sync.WaitGroup
}

// NewEmbeddingGenerator creates a new EmbeddingGenerator instance.
func NewEmbeddingGenerator(provider embed.Provider, repo EmbeddingPokRepository) *EmbeddingGenerator {
	return &EmbeddingGenerator{
		provider: provider,
		repo:     repo,
		timeout:  defaultGenerationTimeout,
	}
}

// Generate computes the embedding for the given pok and persists it.
//
// A missing or soft-deleted pok is a silent no-op. An unavailable provider
// is logged and swallowed. Idempotent: re-running on an already-embedded
// pok recomputes and overwrites.
func (g *EmbeddingGenerator) Generate(ctx context.Context, pokID string) error {
	ctx, span := telemetry.StartSpan(ctx, "EmbeddingGenerator.Generate", telemetry.SpanAttributes{
		PokID:     pokID,
		Operation: "generate_embedding",
	})
	defer span.End()

	pok, err := g.repo.GetByID(ctx, pokID)
	if err != nil {
		if errors.Is(err, domain.ErrPokNotFound) {
			return nil
		}
		return err
	}

	embedding, err := g.provider.Embed(ctx, pok.EmbeddingText())
	if err != nil {
		if embed.IsUnavailable(err) {
			log.Printf("embedding unavailable for pok %s, will retry via backfill: %v", pokID, err)
			return nil
		}
		return fmt.Errorf("failed to generate embedding: %w", err)
	}

	if err := g.repo.UpdateEmbedding(ctx, pokID, embedding); err != nil {
		if errors.Is(err, domain.ErrPokNotFound) {
			// Deleted between load and save; nothing to persist.
			return nil
		}
		return fmt.Errorf("failed to update embedding: %w", err)
	}

	return nil
}

// Dispatch runs Generate in the background and returns immediately.
// Failures are logged, never propagated: entry creation and update must
// succeed independently of embedding availability. No ordering is
// guaranteed between the write being visible and the embedding appearing.
func (g *EmbeddingGenerator) Dispatch(pokID string) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
		defer cancel()

		if err := g.Generate(ctx, pokID); err != nil {
			log.Printf("background embedding generation failed for pok %s: %v", pokID, err)
			telemetry.CaptureError(ctx, err)
		}
	}()
}

// Wait blocks until all dispatched generations have finished. Used by
// graceful shutdown and by tests that need a completion signal.
func (g *EmbeddingGenerator) Wait() {
	g.wg.Wait()
}
