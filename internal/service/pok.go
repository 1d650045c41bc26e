package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pokvault/pokvault/internal/domain"
	"github.com/pokvault/pokvault/internal/telemetry"
)

// PokRepositoryInterface defines the repository interface for pok CRUD.
type PokRepositoryInterface interface {
	Create(ctx context.Context, pok *domain.Pok) error
	GetByID(ctx context.Context, id string) (*domain.Pok, error)
	Update(ctx context.Context, pok *domain.Pok) error
	SoftDelete(ctx context.Context, id string) error
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// PokService handles business logic for poks. Every write dispatches
// background embedding generation; the write itself never waits on the
// embedding provider.
type PokService struct {
	pokRepo    PokRepositoryInterface
	dispatcher GenerationDispatcher
	uuidGen    UUIDGenerator
}

// NewPokService creates a new PokService instance.
func NewPokService(pokRepo PokRepositoryInterface, dispatcher GenerationDispatcher) *PokService {
	return &PokService{
		pokRepo:    pokRepo,
		dispatcher: dispatcher,
		uuidGen:    &DefaultUUIDGenerator{},
	}
}

// NewPokServiceWithUUIDGen creates a new PokService with custom UUID generator (for testing)
func NewPokServiceWithUUIDGen(pokRepo PokRepositoryInterface, dispatcher GenerationDispatcher, uuidGen UUIDGenerator) *PokService {
	return &PokService{
		pokRepo:    pokRepo,
		dispatcher: dispatcher,
		uuidGen:    uuidGen,
	}
}

// CreateInput carries the fields for creating a pok.
type CreateInput struct {
	UserID  string
	Title   string
	Content string
}

// UpdateInput carries the fields for updating a pok.
type UpdateInput struct {
	PokID   string
	UserID  string
	Title   string
	Content string
}

// Create persists a new pok and dispatches embedding generation. The pok
// is returned with a nil embedding; the vector materializes asynchronously.
func (s *PokService) Create(ctx context.Context, input CreateInput) (*domain.Pok, error) {
	ctx, span := telemetry.StartSpan(ctx, "PokService.Create", telemetry.SpanAttributes{
		UserID:    input.UserID,
		Operation: "create_pok",
	})
	defer span.End()

	pok := domain.NewPok(s.uuidGen.NewString(), input.UserID, input.Title, input.Content, time.Now().UTC())

	if err := domain.ValidatePok(pok); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid pok", err)
	}

	if err := s.pokRepo.Create(ctx, pok); err != nil {
		span.SetError(err)
		return nil, err
	}

	s.dispatcher.Dispatch(pok.ID)

	return pok, nil
}

// GetByID returns the pok if it exists, is live, and belongs to the user.
func (s *PokService) GetByID(ctx context.Context, userID, pokID string) (*domain.Pok, error) {
	pok, err := s.pokRepo.GetByID(ctx, pokID)
	if err != nil {
		return nil, err
	}

	if pok.UserID != userID {
		return nil, domain.ErrPokAccessDenied
	}

	return pok, nil
}

// Update overwrites the pok's title and content, clears the now-stale
// embedding, and dispatches regeneration. Until the new vector lands the
// pok is keyword-searchable only.
func (s *PokService) Update(ctx context.Context, input UpdateInput) (*domain.Pok, error) {
	ctx, span := telemetry.StartSpan(ctx, "PokService.Update", telemetry.SpanAttributes{
		UserID:    input.UserID,
		PokID:     input.PokID,
		Operation: "update_pok",
	})
	defer span.End()

	pok, err := s.GetByID(ctx, input.UserID, input.PokID)
	if err != nil {
		return nil, err
	}

	pok.Title = input.Title
	pok.Content = input.Content
	pok.Embedding = nil
	pok.UpdatedAt = time.Now().UTC()

	if err := domain.ValidatePok(pok); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid pok", err)
	}

	if err := s.pokRepo.Update(ctx, pok); err != nil {
		span.SetError(err)
		return nil, err
	}

	s.dispatcher.Dispatch(pok.ID)

	return pok, nil
}

// Delete soft-deletes the pok. The row and its embedding survive for
// recovery but drop out of every read and search path.
func (s *PokService) Delete(ctx context.Context, userID, pokID string) error {
	if _, err := s.GetByID(ctx, userID, pokID); err != nil {
		return err
	}

	return s.pokRepo.SoftDelete(ctx, pokID)
}
