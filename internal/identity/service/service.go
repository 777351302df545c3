package service

import (
	"context"

	"activation_backend/internal/identity/repository"
	"activation_backend/internal/identity/transport"

	"github.com/google/uuid"
)

const (
	RoleSDR       = "sdr"
	RoleActivator = "activator"
	RoleAdmin     = "admin"
)

// ProfileStore is the persistence the profile service needs.
type ProfileStore interface {
	GetProfile(ctx context.Context, organizationID, userID uuid.UUID) (repository.Profile, error)
	ListByRole(ctx context.Context, organizationID uuid.UUID, roles []string) ([]repository.Profile, error)
}

type Service struct {
	repo ProfileStore
}

func New(repo ProfileStore) *Service {
	return &Service{repo: repo}
}

// GetProfile returns the raw profile row. Other modules read roles through it.
func (s *Service) GetProfile(ctx context.Context, organizationID, userID uuid.UUID) (repository.Profile, error) {
	return s.repo.GetProfile(ctx, organizationID, userID)
}

func (s *Service) GetMe(ctx context.Context, organizationID, userID uuid.UUID) (transport.ProfileResponse, error) {
	p, err := s.repo.GetProfile(ctx, organizationID, userID)
	if err != nil {
		return transport.ProfileResponse{}, err
	}
	return toResponse(p), nil
}

// ListActivators returns everyone who can host an activation meeting.
func (s *Service) ListActivators(ctx context.Context, organizationID uuid.UUID) (transport.ProfileListResponse, error) {
	profiles, err := s.repo.ListByRole(ctx, organizationID, []string{RoleActivator, RoleAdmin})
	if err != nil {
		return transport.ProfileListResponse{}, err
	}
	items := make([]transport.ProfileResponse, 0, len(profiles))
	for _, p := range profiles {
		items = append(items, toResponse(p))
	}
	return transport.ProfileListResponse{Profiles: items}, nil
}

func toResponse(p repository.Profile) transport.ProfileResponse {
	return transport.ProfileResponse{
		ID:              p.ID.String(),
		OrganizationID:  p.OrganizationID.String(),
		Email:           p.Email,
		FullName:        p.FullName,
		Role:            p.Role,
		CanHostMeetings: p.Role == RoleActivator || p.Role == RoleAdmin,
		CreatedAt:       p.CreatedAt,
	}
}
