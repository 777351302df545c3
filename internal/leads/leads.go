// Package leads provides read access to CRM leads.
// This file defines the public API of the leads bounded context.
// Only types and interfaces defined here should be imported by other domains.
package leads

import (
	"context"

	"github.com/google/uuid"
)

// Lead represents the lead contact information shared with other domains.
type Lead struct {
	ID           uuid.UUID
	BusinessName string
	ContactName  string
	Phone        string
	Email        string
	Timezone     string
}

// Service defines the public interface for lead lookups.
// Other domains should depend on this interface, not on concrete implementations.
type Service interface {
	// GetLeadByID returns the lead with the given ID in the organization.
	GetLeadByID(ctx context.Context, organizationID, id uuid.UUID) (Lead, error)
	// FindByContact returns the newest lead matching phone or email, or nil.
	FindByContact(ctx context.Context, organizationID uuid.UUID, phone, email string) (*Lead, error)
}
