package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"activation_backend/internal/activation/transport"
	"activation_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Pipeline represents the trial_pipelines database model.
type Pipeline struct {
	ID                  uuid.UUID
	OrganizationID      uuid.UUID
	CrmLeadID           uuid.UUID
	AssignedActivatorID *uuid.UUID
	ActivationStatus    string
	RescheduleCount     int
	AttemptsCount       int
	ScheduledStartAt    *time.Time
	ScheduledEndAt      *time.Time
	NextFollowupAt      *time.Time
	NoShowCount         int
	FollowupOwnerRole   string
	CreditsRemaining    int
	JCCUserID           *string
	KillReason          *string
	KilledAt            *time.Time
	ActivatedAt         *time.Time
	CreatedByUserID     uuid.UUID
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

const pipelineColumns = `id, organization_id, crm_lead_id, assigned_activator_id, activation_status,
	reschedule_count, attempts_count, scheduled_start_at, scheduled_end_at, next_followup_at, no_show_count,
	followup_owner_role, credits_remaining, jcc_user_id, kill_reason, killed_at, activated_at,
	created_by_user_id, created_at, updated_at`

func scanPipeline(row pgx.Row, p *Pipeline) error {
	return row.Scan(
		&p.ID, &p.OrganizationID, &p.CrmLeadID, &p.AssignedActivatorID, &p.ActivationStatus,
		&p.RescheduleCount, &p.AttemptsCount, &p.ScheduledStartAt, &p.ScheduledEndAt, &p.NextFollowupAt, &p.NoShowCount,
		&p.FollowupOwnerRole, &p.CreditsRemaining, &p.JCCUserID, &p.KillReason, &p.KilledAt, &p.ActivatedAt,
		&p.CreatedByUserID, &p.CreatedAt, &p.UpdatedAt,
	)
}

func collectPipelines(rows pgx.Rows) ([]Pipeline, error) {
	defer rows.Close()
	items := make([]Pipeline, 0)
	for rows.Next() {
		var p Pipeline
		if err := scanPipeline(rows, &p); err != nil {
			return nil, fmt.Errorf("failed to scan trial pipeline: %w", err)
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate trial pipelines: %w", err)
	}
	return items, nil
}

// CreatePipeline inserts a new trial pipeline.
func (r *Repository) CreatePipeline(ctx context.Context, p *Pipeline) error {
	query := `
		INSERT INTO trial_pipelines (
			id, organization_id, crm_lead_id, assigned_activator_id, activation_status, reschedule_count,
			attempts_count, no_show_count, followup_owner_role, credits_remaining, jcc_user_id,
			created_by_user_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := r.db.Exec(ctx, query,
		p.ID, p.OrganizationID, p.CrmLeadID, p.AssignedActivatorID, p.ActivationStatus, p.RescheduleCount,
		p.AttemptsCount, p.NoShowCount, p.FollowupOwnerRole, p.CreditsRemaining, p.JCCUserID,
		p.CreatedByUserID, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return mapWriteError(fmt.Errorf("failed to create trial pipeline: %w", err))
	}
	return nil
}

// GetPipeline retrieves a pipeline by id within an organization.
func (r *Repository) GetPipeline(ctx context.Context, id, organizationID uuid.UUID) (*Pipeline, error) {
	return r.getPipeline(ctx, id, organizationID, "")
}

// GetPipelineForUpdate retrieves a pipeline and row-locks it for the transaction.
func (r *Repository) GetPipelineForUpdate(ctx context.Context, id, organizationID uuid.UUID) (*Pipeline, error) {
	return r.getPipeline(ctx, id, organizationID, " FOR UPDATE")
}

func (r *Repository) getPipeline(ctx context.Context, id, organizationID uuid.UUID, lock string) (*Pipeline, error) {
	query := `SELECT ` + pipelineColumns + ` FROM trial_pipelines WHERE id = $1 AND organization_id = $2` + lock

	var p Pipeline
	if err := scanPipeline(r.db.QueryRow(ctx, query, id, organizationID), &p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(pipelineNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get trial pipeline: %w", err)
	}
	return &p, nil
}

// FindOpenPipelineByLead returns the lead's non-terminal pipeline, or nil.
func (r *Repository) FindOpenPipelineByLead(ctx context.Context, organizationID, leadID uuid.UUID) (*Pipeline, error) {
	query := `SELECT ` + pipelineColumns + ` FROM trial_pipelines
		WHERE organization_id = $1 AND crm_lead_id = $2
		AND activation_status NOT IN ('activated', 'killed')
		LIMIT 1`

	var p Pipeline
	if err := scanPipeline(r.db.QueryRow(ctx, query, organizationID, leadID), &p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find open trial pipeline: %w", err)
	}
	return &p, nil
}

// FindOpenPipelineByJCCUser resolves the Control Tower correlation key to a
// non-terminal pipeline across organizations, or nil.
func (r *Repository) FindOpenPipelineByJCCUser(ctx context.Context, jccUserID string) (*Pipeline, error) {
	query := `SELECT ` + pipelineColumns + ` FROM trial_pipelines
		WHERE jcc_user_id = $1 AND activation_status NOT IN ('activated', 'killed')
		ORDER BY created_at DESC
		LIMIT 1`

	var p Pipeline
	if err := scanPipeline(r.db.QueryRow(ctx, query, jccUserID), &p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find pipeline by jcc user: %w", err)
	}
	return &p, nil
}

// UpdatePipeline writes every mutable pipeline column.
func (r *Repository) UpdatePipeline(ctx context.Context, p *Pipeline) error {
	query := `
		UPDATE trial_pipelines SET
			assigned_activator_id = $3,
			activation_status = $4,
			reschedule_count = $5,
			attempts_count = $6,
			scheduled_start_at = $7,
			scheduled_end_at = $8,
			next_followup_at = $9,
			no_show_count = $10,
			followup_owner_role = $11,
			credits_remaining = $12,
			jcc_user_id = $13,
			kill_reason = $14,
			killed_at = $15,
			activated_at = $16,
			updated_at = $17
		WHERE id = $1 AND organization_id = $2`

	result, err := r.db.Exec(ctx, query,
		p.ID, p.OrganizationID, p.AssignedActivatorID, p.ActivationStatus, p.RescheduleCount, p.AttemptsCount,
		p.ScheduledStartAt, p.ScheduledEndAt, p.NextFollowupAt, p.NoShowCount, p.FollowupOwnerRole,
		p.CreditsRemaining, p.JCCUserID, p.KillReason, p.KilledAt, p.ActivatedAt, p.UpdatedAt,
	)
	if err != nil {
		return mapWriteError(fmt.Errorf("failed to update trial pipeline: %w", err))
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(pipelineNotFoundMsg)
	}
	return nil
}

// PipelineListParams contains parameters for listing pipelines.
type PipelineListParams struct {
	OrganizationID uuid.UUID
	Status         *string
	ActivatorID    *uuid.UUID
	Page           int
	PageSize       int
}

// PipelineListResult contains one page of pipelines.
type PipelineListResult struct {
	Items      []Pipeline
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

// ListPipelines retrieves pipelines with optional filtering, newest first.
func (r *Repository) ListPipelines(ctx context.Context, params PipelineListParams) (*PipelineListResult, error) {
	baseQuery := `FROM trial_pipelines WHERE organization_id = $1`
	args := []any{params.OrganizationID}
	argIndex := 2

	if params.Status != nil {
		addFilter(&baseQuery, &args, &argIndex, true, " AND activation_status = $%d", *params.Status)
	}
	if params.ActivatorID != nil {
		addFilter(&baseQuery, &args, &argIndex, true, " AND assigned_activator_id = $%d", *params.ActivatorID)
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) "+baseQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count trial pipelines: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	selectQuery := fmt.Sprintf(`SELECT %s %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		pipelineColumns, baseQuery, argIndex, argIndex+1)
	args = append(args, params.PageSize, offset)

	rows, err := r.db.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list trial pipelines: %w", err)
	}
	items, err := collectPipelines(rows)
	if err != nil {
		return nil, err
	}

	return &PipelineListResult{
		Items:      items,
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: totalPages(total, params.PageSize),
	}, nil
}

// ListDueFollowups returns no-show pipelines whose follow-up time has passed.
func (r *Repository) ListDueFollowups(ctx context.Context, now time.Time, limit int) ([]Pipeline, error) {
	query := `SELECT ` + pipelineColumns + ` FROM trial_pipelines
		WHERE activation_status = 'no_show' AND next_followup_at IS NOT NULL AND next_followup_at <= $1
		ORDER BY next_followup_at ASC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list due followups: %w", err)
	}
	return collectPipelines(rows)
}

// ToResponse converts a Pipeline to its API shape.
func (p *Pipeline) ToResponse() transport.PipelineResponse {
	return transport.PipelineResponse{
		ID:                  p.ID,
		CrmLeadID:           p.CrmLeadID,
		AssignedActivatorID: p.AssignedActivatorID,
		ActivationStatus:    p.ActivationStatus,
		RescheduleCount:     p.RescheduleCount,
		AttemptsCount:       p.AttemptsCount,
		ScheduledStartAt:    p.ScheduledStartAt,
		ScheduledEndAt:      p.ScheduledEndAt,
		NextFollowupAt:      p.NextFollowupAt,
		NoShowCount:         p.NoShowCount,
		FollowupOwnerRole:   p.FollowupOwnerRole,
		CreditsRemaining:    p.CreditsRemaining,
		JCCUserID:           p.JCCUserID,
		KillReason:          p.KillReason,
		KilledAt:            p.KilledAt,
		ActivatedAt:         p.ActivatedAt,
		CreatedByUserID:     p.CreatedByUserID,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
}
