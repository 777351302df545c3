package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"activation_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is the persistence surface of the activation module.
// *Repository implements it against Postgres.
type Store interface {
	// RunInTx runs fn inside one database transaction. fn receives a Store
	// bound to that transaction; returning an error rolls everything back.
	RunInTx(ctx context.Context, fn func(Store) error) error

	// LockActivator serializes bookings for one activator until the
	// surrounding transaction ends.
	LockActivator(ctx context.Context, activatorID uuid.UUID) error
	FindConflict(ctx context.Context, organizationID, activatorID uuid.UUID, start, end time.Time, excludeMeetingID *uuid.UUID) (*Meeting, error)

	CreateMeeting(ctx context.Context, m *Meeting) error
	GetMeeting(ctx context.Context, id, organizationID uuid.UUID) (*Meeting, error)
	GetMeetingForUpdate(ctx context.Context, id, organizationID uuid.UUID) (*Meeting, error)
	UpdateMeetingSchedule(ctx context.Context, id, organizationID uuid.UUID, start, end time.Time) error
	UpdateMeetingStatus(ctx context.Context, id, organizationID uuid.UUID, status string, completedAt *time.Time, notes *string) error
	MarkConfirmationSent(ctx context.Context, id, organizationID uuid.UUID, channel string, at time.Time) error
	ListMeetings(ctx context.Context, params MeetingListParams) (*MeetingListResult, error)
	ListMeetingsByPipeline(ctx context.Context, pipelineID, organizationID uuid.UUID) ([]Meeting, error)
	ListScheduledInRange(ctx context.Context, organizationID, activatorID uuid.UUID, from, to time.Time) ([]Meeting, error)

	CreatePipeline(ctx context.Context, p *Pipeline) error
	GetPipeline(ctx context.Context, id, organizationID uuid.UUID) (*Pipeline, error)
	GetPipelineForUpdate(ctx context.Context, id, organizationID uuid.UUID) (*Pipeline, error)
	FindOpenPipelineByLead(ctx context.Context, organizationID, leadID uuid.UUID) (*Pipeline, error)
	FindOpenPipelineByJCCUser(ctx context.Context, jccUserID string) (*Pipeline, error)
	UpdatePipeline(ctx context.Context, p *Pipeline) error
	ListPipelines(ctx context.Context, params PipelineListParams) (*PipelineListResult, error)
	ListDueFollowups(ctx context.Context, now time.Time, limit int) ([]Pipeline, error)

	AppendEvent(ctx context.Context, e *Event) error
	ListEvents(ctx context.Context, pipelineID, organizationID uuid.UUID) ([]Event, error)

	CreateAttachment(ctx context.Context, a *Attachment) error
	ListAttachments(ctx context.Context, meetingID, organizationID uuid.UUID) ([]Attachment, error)
}

// Repository provides database operations for meetings, pipelines and audit events.
type Repository struct {
	pool *pgxpool.Pool
	db   DBTX
	inTx bool
}

// New creates a new activation repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, db: pool}
}

const (
	meetingNotFoundMsg  = "activation meeting not found"
	pipelineNotFoundMsg = "trial pipeline not found"

	sqlStateExclusionViolation = "23P01"
	sqlStateUniqueViolation    = "23505"
	openPipelineIndex          = "uq_trial_pipelines_open_lead"
)

// RunInTx implements Store. Nested calls reuse the outer transaction.
func (r *Repository) RunInTx(ctx context.Context, fn func(Store) error) error {
	if r.inTx {
		return fn(r)
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&Repository{pool: r.pool, db: tx, inTx: true}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return mapWriteError(fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

// LockActivator takes a transaction-scoped advisory lock keyed by the activator id.
func (r *Repository) LockActivator(ctx context.Context, activatorID uuid.UUID) error {
	if !r.inTx {
		return errors.New("LockActivator requires a transaction")
	}
	if _, err := r.db.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`, activatorID); err != nil {
		return fmt.Errorf("failed to lock activator: %w", err)
	}
	return nil
}

// mapWriteError turns constraint violations into typed conflicts.
func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch {
	case pgErr.Code == sqlStateExclusionViolation:
		return apperr.Conflict("timeslot already booked for this activator").WithCode(apperr.CodeSlotConflict)
	case pgErr.Code == sqlStateUniqueViolation && pgErr.ConstraintName == openPipelineIndex:
		return apperr.Conflict("lead already has an open trial pipeline").WithCode(apperr.CodePipelineExists)
	}
	return err
}

func addFilter(baseQuery *string, args *[]any, argIndex *int, apply bool, clause string, value any) {
	if !apply {
		return
	}
	*baseQuery += fmt.Sprintf(clause, *argIndex)
	*args = append(*args, value)
	*argIndex++
}

func totalPages(total, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

var _ Store = (*Repository)(nil)
