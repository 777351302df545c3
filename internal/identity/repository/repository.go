package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"activation_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Profile struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	Email          string
	FullName       string
	Role           string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

const profileColumns = `id, organization_id, email, full_name, role, created_at, updated_at`

func scanProfile(row pgx.Row) (Profile, error) {
	var p Profile
	err := row.Scan(&p.ID, &p.OrganizationID, &p.Email, &p.FullName, &p.Role, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *Repository) GetProfile(ctx context.Context, organizationID, userID uuid.UUID) (Profile, error) {
	p, err := scanProfile(r.pool.QueryRow(ctx, `
    SELECT `+profileColumns+`
    FROM profiles
    WHERE id = $1 AND organization_id = $2
  `, userID, organizationID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Profile{}, apperr.NotFound("profile not found")
	}
	if err != nil {
		return Profile{}, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

// ListByRole returns org members holding any of roles, ordered by name.
func (r *Repository) ListByRole(ctx context.Context, organizationID uuid.UUID, roles []string) ([]Profile, error) {
	rows, err := r.pool.Query(ctx, `
    SELECT `+profileColumns+`
    FROM profiles
    WHERE organization_id = $1 AND role = ANY($2)
    ORDER BY full_name ASC, email ASC
  `, organizationID, roles)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	profiles := make([]Profile, 0)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate profiles: %w", err)
	}
	return profiles, nil
}
