package domain

import (
	"fmt"
	"time"
)

// APIToken represents a hashed bearer credential for a user.
// The raw token is only visible at creation time; the repository
// stores the sha256 hex digest.
type APIToken struct {
	ID        string
	UserID    string
	Name      string
	TokenHash string
	Revoked   bool
	CreatedAt time.Time
}

// ValidateAPIToken validates an APIToken instance.
func ValidateAPIToken(t *APIToken) error {
	if t == nil {
		return fmt.Errorf("api token cannot be nil")
	}

	if t.ID == "" {
		return fmt.Errorf("api token ID is required")
	}

	if t.UserID == "" {
		return fmt.Errorf("api token UserID is required")
	}

	if t.TokenHash == "" {
		return fmt.Errorf("api token TokenHash is required")
	}

	return nil
}
