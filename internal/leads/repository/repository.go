package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"activation_backend/internal/leads"
	"activation_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads crm_leads rows.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Lead struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	BusinessName   string
	ContactName    string
	Phone          *string
	Email          *string
	Website        *string
	Timezone       *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

const leadColumns = `id, organization_id, business_name, contact_name, phone, email, website, timezone, created_at, updated_at`

func scanLead(row pgx.Row) (Lead, error) {
	var l Lead
	err := row.Scan(&l.ID, &l.OrganizationID, &l.BusinessName, &l.ContactName, &l.Phone, &l.Email,
		&l.Website, &l.Timezone, &l.CreatedAt, &l.UpdatedAt)
	return l, err
}

func (r *Repository) GetByID(ctx context.Context, organizationID, id uuid.UUID) (Lead, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM crm_leads WHERE id = $1 AND organization_id = $2
	`, id, organizationID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, apperr.NotFound("lead not found")
	}
	if err != nil {
		return Lead{}, fmt.Errorf("failed to get lead: %w", err)
	}
	return lead, nil
}

// GetByPhoneOrEmail finds the newest lead whose phone equals phone or whose
// email matches email case-insensitively. Returns nil when nothing matches.
func (r *Repository) GetByPhoneOrEmail(ctx context.Context, organizationID uuid.UUID, phone, email string) (*Lead, error) {
	if phone == "" && email == "" {
		return nil, nil
	}
	lead, err := scanLead(r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM crm_leads
		WHERE organization_id = $1
		  AND (($2 <> '' AND phone = $2) OR ($3 <> '' AND lower(email) = lower($3)))
		ORDER BY created_at DESC
		LIMIT 1
	`, organizationID, phone, strings.TrimSpace(email)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find lead by contact: %w", err)
	}
	return &lead, nil
}

// GetLeadByID implements leads.Service.
func (r *Repository) GetLeadByID(ctx context.Context, organizationID, id uuid.UUID) (leads.Lead, error) {
	lead, err := r.GetByID(ctx, organizationID, id)
	if err != nil {
		return leads.Lead{}, err
	}
	return lead.toPublic(), nil
}

// FindByContact implements leads.Service.
func (r *Repository) FindByContact(ctx context.Context, organizationID uuid.UUID, phone, email string) (*leads.Lead, error) {
	lead, err := r.GetByPhoneOrEmail(ctx, organizationID, phone, email)
	if err != nil || lead == nil {
		return nil, err
	}
	public := lead.toPublic()
	return &public, nil
}

func (l Lead) toPublic() leads.Lead {
	return leads.Lead{
		ID:           l.ID,
		BusinessName: l.BusinessName,
		ContactName:  l.ContactName,
		Phone:        deref(l.Phone),
		Email:        deref(l.Email),
		Timezone:     deref(l.Timezone),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

var _ leads.Service = (*Repository)(nil)
