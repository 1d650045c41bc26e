package service

import (
	"context"
	"log"
	"time"
)

// BackfillPokRepository defines the repository interface for the embedding
// backfill.
type BackfillPokRepository interface {
	ListIDsMissingEmbedding(ctx context.Context) ([]string, error)
}

// GenerationDispatcher enqueues background embedding generation for a pok.
type GenerationDispatcher interface {
	Dispatch(pokID string)
}

const (
	DefaultBackfillBatchSize  = 20
	DefaultBackfillBatchDelay = 100 * time.Millisecond
)

// BackfillCoordinator sweeps poks that are missing an embedding and
// dispatches generation for each. Dispatched in fixed-size batches with a
// pause in between so a large sweep does not hammer the provider.
type BackfillCoordinator struct {
	repo       BackfillPokRepository
	dispatcher GenerationDispatcher
	batchSize  int
	batchDelay time.Duration
}

// NewBackfillCoordinator creates a new BackfillCoordinator instance.
// Non-positive batchSize or negative batchDelay fall back to the defaults.
func NewBackfillCoordinator(repo BackfillPokRepository, dispatcher GenerationDispatcher, batchSize int, batchDelay time.Duration) *BackfillCoordinator {
	if batchSize <= 0 {
		batchSize = DefaultBackfillBatchSize
	}
	if batchDelay < 0 {
		batchDelay = DefaultBackfillBatchDelay
	}
	return &BackfillCoordinator{
		repo:       repo,
		dispatcher: dispatcher,
		batchSize:  batchSize,
		batchDelay: batchDelay,
	}
}

// Run dispatches embedding generation for every live pok without an
// embedding and returns the number of poks enqueued. Safe to re-run:
// successfully embedded poks drop out of the candidate set. Cancelling the
// context between batches stops the sweep and returns the partial count
// with a nil error.
func (c *BackfillCoordinator) Run(ctx context.Context) (int, error) {
	ids, err := c.repo.ListIDsMissingEmbedding(ctx)
	if err != nil {
		return 0, err
	}

	if len(ids) == 0 {
		log.Printf("embedding backfill: nothing to do")
		return 0, nil
	}

	log.Printf("embedding backfill: %d poks missing embeddings", len(ids))

	dispatched := 0
	for start := 0; start < len(ids); start += c.batchSize {
		end := start + c.batchSize
		if end > len(ids) {
			end = len(ids)
		}

		for _, id := range ids[start:end] {
			c.dispatcher.Dispatch(id)
			dispatched++
		}

		if end < len(ids) {
			select {
			case <-ctx.Done():
				log.Printf("embedding backfill interrupted after %d of %d poks", dispatched, len(ids))
				return dispatched, nil
			case <-time.After(c.batchDelay):
			}
		}
	}

	log.Printf("embedding backfill: enqueued %d poks", dispatched)
	return dispatched, nil
}
