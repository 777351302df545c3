package service

import (
	"context"
	"testing"

	"activation_backend/internal/identity/repository"
	"activation_backend/platform/apperr"

	"github.com/google/uuid"
)

type fakeStore struct {
	profiles []repository.Profile
}

func (f *fakeStore) GetProfile(_ context.Context, organizationID, userID uuid.UUID) (repository.Profile, error) {
	for _, p := range f.profiles {
		if p.ID == userID && p.OrganizationID == organizationID {
			return p, nil
		}
	}
	return repository.Profile{}, apperr.NotFound("profile not found")
}

func (f *fakeStore) ListByRole(_ context.Context, organizationID uuid.UUID, roles []string) ([]repository.Profile, error) {
	var out []repository.Profile
	for _, p := range f.profiles {
		if p.OrganizationID != organizationID {
			continue
		}
		for _, role := range roles {
			if p.Role == role {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func TestListActivatorsIncludesAdminsOnly(t *testing.T) {
	org := uuid.New()
	store := &fakeStore{profiles: []repository.Profile{
		{ID: uuid.New(), OrganizationID: org, FullName: "Ada", Role: RoleActivator},
		{ID: uuid.New(), OrganizationID: org, FullName: "Sam", Role: RoleSDR},
		{ID: uuid.New(), OrganizationID: org, FullName: "Root", Role: RoleAdmin},
		{ID: uuid.New(), OrganizationID: uuid.New(), FullName: "Elsewhere", Role: RoleActivator},
	}}

	result, err := New(store).ListActivators(context.Background(), org)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Profiles) != 2 {
		t.Fatalf("expected 2 hosts, got %d", len(result.Profiles))
	}
	for _, p := range result.Profiles {
		if !p.CanHostMeetings {
			t.Errorf("expected %s to be able to host", p.FullName)
		}
	}
}

func TestGetMeIsOrgScoped(t *testing.T) {
	org := uuid.New()
	user := uuid.New()
	store := &fakeStore{profiles: []repository.Profile{{ID: user, OrganizationID: org, Role: RoleSDR}}}
	svc := New(store)

	me, err := svc.GetMe(context.Background(), org, user)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if me.CanHostMeetings {
		t.Fatal("an sdr cannot host meetings")
	}

	if _, err := svc.GetMe(context.Background(), uuid.New(), user); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found for another org, got %v", err)
	}
}
