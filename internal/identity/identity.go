// Package identity provides the profiles bounded context API.
package identity

import (
	"context"

	"activation_backend/internal/identity/repository"

	"github.com/google/uuid"
)

// Service defines the public interface for profile lookups.
// Other domains should depend on this interface, not on concrete implementations.
type Service interface {
	// GetProfile returns the org member's profile including its role flag.
	GetProfile(ctx context.Context, organizationID, userID uuid.UUID) (repository.Profile, error)
}
