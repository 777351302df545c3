package adapters

import (
	"context"

	activationdomain "activation_backend/internal/activation/domain"
	activationsvc "activation_backend/internal/activation/service"
	"activation_backend/internal/identity"

	"github.com/google/uuid"
)

// ActivationProfileReader adapts the identity profiles to the activation
// service. It implements activation/service.ProfileReader.
type ActivationProfileReader struct {
	profiles identity.Service
}

// NewActivationProfileReader creates a new profile reader adapter.
func NewActivationProfileReader(profiles identity.Service) *ActivationProfileReader {
	return &ActivationProfileReader{profiles: profiles}
}

// GetProfile returns the member's name, email and role flag.
func (a *ActivationProfileReader) GetProfile(ctx context.Context, organizationID, userID uuid.UUID) (activationsvc.Profile, error) {
	p, err := a.profiles.GetProfile(ctx, organizationID, userID)
	if err != nil {
		return activationsvc.Profile{}, err
	}
	return activationsvc.Profile{
		ID:       p.ID,
		FullName: p.FullName,
		Email:    p.Email,
		Role:     activationdomain.Role(p.Role),
	}, nil
}

var _ activationsvc.ProfileReader = (*ActivationProfileReader)(nil)
