package domain

import (
	"fmt"
	"strings"
	"time"
)

// User is the minimal account record poks and API tokens hang off.
// Full identity management lives outside this service.
type User struct {
	ID        string
	Handle    string
	CreatedAt time.Time
}

// ValidateUser validates a User instance.
func ValidateUser(u *User) error {
	if u == nil {
		return fmt.Errorf("user cannot be nil")
	}

	if u.ID == "" {
		return fmt.Errorf("user ID is required")
	}

	if strings.TrimSpace(u.Handle) == "" {
		return fmt.Errorf("user Handle is required")
	}

	return nil
}
