package domain

import (
	"fmt"
	"strings"
	"time"
)

// MaxTitleLength is the maximum length of a pok title.
const MaxTitleLength = 200

// Pok represents a single captured knowledge entry.
//
// Title is optional to keep capture friction low; content is the actual
// knowledge and is mandatory. The embedding is nil until generated
// asynchronously after create, cleared on content update, and regenerated.
// Poks with a nil embedding are excluded from semantic search.
type Pok struct {
	ID        string
	UserID    string
	Title     string
	Content   string
	Embedding []float32
	DeletedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewPok creates a new Pok instance owned by the given user.
func NewPok(id, userID, title, content string, now time.Time) *Pok {
	return &Pok{
		ID:        id,
		UserID:    userID,
		Title:     title,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsDeleted reports whether the pok has been soft-deleted.
func (p *Pok) IsDeleted() bool {
	return p.DeletedAt != nil
}

// SoftDelete marks the pok as deleted by setting the deletion timestamp.
func (p *Pok) SoftDelete(now time.Time) {
	p.DeletedAt = &now
}

// HasTitle reports whether the pok carries a non-blank title.
func (p *Pok) HasTitle() bool {
	return strings.TrimSpace(p.Title) != ""
}

// EmbeddingText builds the text submitted to the embedding provider.
// The title, when present, is prepended to improve semantic relevance.
func (p *Pok) EmbeddingText() string {
	if p.HasTitle() {
		return p.Title + " " + p.Content
	}
	return p.Content
}

// ValidatePok validates a Pok instance.
func ValidatePok(p *Pok) error {
	if p == nil {
		return fmt.Errorf("pok cannot be nil")
	}

	if p.ID == "" {
		return fmt.Errorf("pok ID is required")
	}

	if p.UserID == "" {
		return fmt.Errorf("pok UserID is required")
	}

	if strings.TrimSpace(p.Content) == "" {
		return fmt.Errorf("pok Content is required")
	}

	if len(p.Title) > MaxTitleLength {
		return fmt.Errorf("pok Title exceeds %d characters", MaxTitleLength)
	}

	return nil
}
