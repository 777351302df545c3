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

// Meeting represents the activation_meetings database model.
type Meeting struct {
	ID                      uuid.UUID
	OrganizationID          uuid.UUID
	TrialPipelineID         *uuid.UUID
	LeadID                  *uuid.UUID
	ScheduledStartAt        time.Time
	ScheduledEndAt          time.Time
	ScheduledTimezone       string
	ActivatorUserID         uuid.UUID
	ScheduledBySDRUserID    uuid.UUID
	Status                  string
	AttendeeName            string
	AttendeeRole            string
	AttendeeEmail           *string
	Phone                   string
	WebsitePlatform         string
	Goal                    string
	Notes                   *string
	ConfirmationEmailSentAt *time.Time
	ConfirmationSMSSentAt   *time.Time
	CompletedAt             *time.Time
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

const meetingColumns = `id, organization_id, trial_pipeline_id, lead_id, scheduled_start_at, scheduled_end_at,
	scheduled_timezone, activator_user_id, scheduled_by_sdr_user_id, status, attendee_name, attendee_role,
	attendee_email, phone, website_platform, goal, notes, confirmation_email_sent_at, confirmation_sms_sent_at,
	completed_at, created_at, updated_at`

func scanMeeting(row pgx.Row, m *Meeting) error {
	return row.Scan(
		&m.ID, &m.OrganizationID, &m.TrialPipelineID, &m.LeadID, &m.ScheduledStartAt, &m.ScheduledEndAt,
		&m.ScheduledTimezone, &m.ActivatorUserID, &m.ScheduledBySDRUserID, &m.Status, &m.AttendeeName, &m.AttendeeRole,
		&m.AttendeeEmail, &m.Phone, &m.WebsitePlatform, &m.Goal, &m.Notes, &m.ConfirmationEmailSentAt, &m.ConfirmationSMSSentAt,
		&m.CompletedAt, &m.CreatedAt, &m.UpdatedAt,
	)
}

func collectMeetings(rows pgx.Rows) ([]Meeting, error) {
	defer rows.Close()
	items := make([]Meeting, 0)
	for rows.Next() {
		var m Meeting
		if err := scanMeeting(rows, &m); err != nil {
			return nil, fmt.Errorf("failed to scan activation meeting: %w", err)
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate activation meetings: %w", err)
	}
	return items, nil
}

// FindConflict returns a scheduled meeting of the activator overlapping [start,end),
// or nil when the window is free.
func (r *Repository) FindConflict(ctx context.Context, organizationID, activatorID uuid.UUID, start, end time.Time, excludeMeetingID *uuid.UUID) (*Meeting, error) {
	query := `SELECT ` + meetingColumns + `
		FROM activation_meetings
		WHERE organization_id = $1 AND activator_user_id = $2
		AND status = 'scheduled'
		AND scheduled_start_at < $4 AND scheduled_end_at > $3
		AND ($5::uuid IS NULL OR id <> $5)
		ORDER BY scheduled_start_at
		LIMIT 1`

	var m Meeting
	err := scanMeeting(r.db.QueryRow(ctx, query, organizationID, activatorID, start, end, excludeMeetingID), &m)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to check meeting conflict: %w", err)
	}
	return &m, nil
}

// CreateMeeting inserts a new activation meeting.
func (r *Repository) CreateMeeting(ctx context.Context, m *Meeting) error {
	query := `
		INSERT INTO activation_meetings (
			id, organization_id, trial_pipeline_id, lead_id, scheduled_start_at, scheduled_end_at,
			scheduled_timezone, activator_user_id, scheduled_by_sdr_user_id, status, attendee_name, attendee_role,
			attendee_email, phone, website_platform, goal, notes, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19
		)`

	_, err := r.db.Exec(ctx, query,
		m.ID, m.OrganizationID, m.TrialPipelineID, m.LeadID, m.ScheduledStartAt, m.ScheduledEndAt,
		m.ScheduledTimezone, m.ActivatorUserID, m.ScheduledBySDRUserID, m.Status, m.AttendeeName, m.AttendeeRole,
		m.AttendeeEmail, m.Phone, m.WebsitePlatform, m.Goal, m.Notes, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return mapWriteError(fmt.Errorf("failed to create activation meeting: %w", err))
	}
	return nil
}

// GetMeeting retrieves a meeting by id within an organization.
func (r *Repository) GetMeeting(ctx context.Context, id, organizationID uuid.UUID) (*Meeting, error) {
	return r.getMeeting(ctx, id, organizationID, "")
}

// GetMeetingForUpdate retrieves a meeting and row-locks it for the transaction.
func (r *Repository) GetMeetingForUpdate(ctx context.Context, id, organizationID uuid.UUID) (*Meeting, error) {
	return r.getMeeting(ctx, id, organizationID, " FOR UPDATE")
}

func (r *Repository) getMeeting(ctx context.Context, id, organizationID uuid.UUID, lock string) (*Meeting, error) {
	query := `SELECT ` + meetingColumns + ` FROM activation_meetings WHERE id = $1 AND organization_id = $2` + lock

	var m Meeting
	if err := scanMeeting(r.db.QueryRow(ctx, query, id, organizationID), &m); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(meetingNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get activation meeting: %w", err)
	}
	return &m, nil
}

// UpdateMeetingSchedule moves a meeting to a new window.
func (r *Repository) UpdateMeetingSchedule(ctx context.Context, id, organizationID uuid.UUID, start, end time.Time) error {
	query := `UPDATE activation_meetings
		SET scheduled_start_at = $3, scheduled_end_at = $4, status = 'scheduled', updated_at = now()
		WHERE id = $1 AND organization_id = $2`

	result, err := r.db.Exec(ctx, query, id, organizationID, start, end)
	if err != nil {
		return mapWriteError(fmt.Errorf("failed to reschedule activation meeting: %w", err))
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(meetingNotFoundMsg)
	}
	return nil
}

// UpdateMeetingStatus sets the meeting status. notes, when given, replaces the stored notes.
func (r *Repository) UpdateMeetingStatus(ctx context.Context, id, organizationID uuid.UUID, status string, completedAt *time.Time, notes *string) error {
	query := `UPDATE activation_meetings
		SET status = $3, completed_at = COALESCE($4, completed_at), notes = COALESCE($5, notes), updated_at = now()
		WHERE id = $1 AND organization_id = $2`

	result, err := r.db.Exec(ctx, query, id, organizationID, status, completedAt, notes)
	if err != nil {
		return fmt.Errorf("failed to update activation meeting status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(meetingNotFoundMsg)
	}
	return nil
}

// MarkConfirmationSent records delivery of a confirmation on channel "email" or "sms".
func (r *Repository) MarkConfirmationSent(ctx context.Context, id, organizationID uuid.UUID, channel string, at time.Time) error {
	var column string
	switch channel {
	case "email":
		column = "confirmation_email_sent_at"
	case "sms":
		column = "confirmation_sms_sent_at"
	default:
		return fmt.Errorf("unknown confirmation channel %q", channel)
	}

	query := fmt.Sprintf(`UPDATE activation_meetings SET %s = $3, updated_at = now() WHERE id = $1 AND organization_id = $2`, column)
	if _, err := r.db.Exec(ctx, query, id, organizationID, at); err != nil {
		return fmt.Errorf("failed to mark confirmation sent: %w", err)
	}
	return nil
}

// MeetingListParams contains parameters for listing meetings.
type MeetingListParams struct {
	OrganizationID uuid.UUID
	ActivatorID    *uuid.UUID
	Status         *string
	StartFrom      *time.Time
	StartTo        *time.Time
	Page           int
	PageSize       int
}

// MeetingListResult contains one page of meetings.
type MeetingListResult struct {
	Items      []Meeting
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

// ListMeetings retrieves meetings with optional filtering, ordered by start time.
func (r *Repository) ListMeetings(ctx context.Context, params MeetingListParams) (*MeetingListResult, error) {
	baseQuery := `FROM activation_meetings WHERE organization_id = $1`
	args := []any{params.OrganizationID}
	argIndex := 2

	if params.ActivatorID != nil {
		addFilter(&baseQuery, &args, &argIndex, true, " AND activator_user_id = $%d", *params.ActivatorID)
	}
	if params.Status != nil {
		addFilter(&baseQuery, &args, &argIndex, true, " AND status = $%d", *params.Status)
	}
	if params.StartFrom != nil {
		addFilter(&baseQuery, &args, &argIndex, true, " AND scheduled_start_at >= $%d", *params.StartFrom)
	}
	if params.StartTo != nil {
		addFilter(&baseQuery, &args, &argIndex, true, " AND scheduled_start_at <= $%d", *params.StartTo)
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) "+baseQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count activation meetings: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	selectQuery := fmt.Sprintf(`SELECT %s %s ORDER BY scheduled_start_at ASC LIMIT $%d OFFSET $%d`,
		meetingColumns, baseQuery, argIndex, argIndex+1)
	args = append(args, params.PageSize, offset)

	rows, err := r.db.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list activation meetings: %w", err)
	}
	items, err := collectMeetings(rows)
	if err != nil {
		return nil, err
	}

	return &MeetingListResult{
		Items:      items,
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: totalPages(total, params.PageSize),
	}, nil
}

// ListMeetingsByPipeline returns every meeting booked for a pipeline, newest first.
func (r *Repository) ListMeetingsByPipeline(ctx context.Context, pipelineID, organizationID uuid.UUID) ([]Meeting, error) {
	query := `SELECT ` + meetingColumns + ` FROM activation_meetings
		WHERE trial_pipeline_id = $1 AND organization_id = $2
		ORDER BY scheduled_start_at DESC`

	rows, err := r.db.Query(ctx, query, pipelineID, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pipeline meetings: %w", err)
	}
	return collectMeetings(rows)
}

// ListScheduledInRange returns the activator's scheduled meetings overlapping [from,to).
func (r *Repository) ListScheduledInRange(ctx context.Context, organizationID, activatorID uuid.UUID, from, to time.Time) ([]Meeting, error) {
	query := `SELECT ` + meetingColumns + ` FROM activation_meetings
		WHERE organization_id = $1 AND activator_user_id = $2
		AND status = 'scheduled'
		AND scheduled_start_at < $4 AND scheduled_end_at > $3
		ORDER BY scheduled_start_at ASC`

	rows, err := r.db.Query(ctx, query, organizationID, activatorID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list meetings for range: %w", err)
	}
	return collectMeetings(rows)
}

// ToResponse converts a Meeting to its API shape.
func (m *Meeting) ToResponse() transport.MeetingResponse {
	return transport.MeetingResponse{
		ID:                      m.ID,
		TrialPipelineID:         m.TrialPipelineID,
		LeadID:                  m.LeadID,
		ScheduledStartAt:        m.ScheduledStartAt,
		ScheduledEndAt:          m.ScheduledEndAt,
		ScheduledTimezone:       m.ScheduledTimezone,
		ActivatorUserID:         m.ActivatorUserID,
		ScheduledBySDRUserID:    m.ScheduledBySDRUserID,
		Status:                  m.Status,
		AttendeeName:            m.AttendeeName,
		AttendeeRole:            m.AttendeeRole,
		AttendeeEmail:           m.AttendeeEmail,
		Phone:                   m.Phone,
		WebsitePlatform:         m.WebsitePlatform,
		Goal:                    m.Goal,
		Notes:                   m.Notes,
		ConfirmationEmailSentAt: m.ConfirmationEmailSentAt,
		ConfirmationSMSSentAt:   m.ConfirmationSMSSentAt,
		CompletedAt:             m.CompletedAt,
		CreatedAt:               m.CreatedAt,
		UpdatedAt:               m.UpdatedAt,
	}
}
