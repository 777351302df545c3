package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"activation_backend/internal/activation/transport"

	"github.com/google/uuid"
)

// Event represents an append-only activation_events row.
type Event struct {
	ID              uuid.UUID
	OrganizationID  uuid.UUID
	TrialPipelineID uuid.UUID
	MeetingID       *uuid.UUID
	EventType       string
	ActorUserID     *uuid.UUID
	Metadata        map[string]any
	CreatedAt       time.Time
}

// AppendEvent writes one audit row. Rows are never updated or deleted.
func (r *Repository) AppendEvent(ctx context.Context, e *Event) error {
	metadata := e.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	payload, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to encode activation event metadata: %w", err)
	}

	query := `INSERT INTO activation_events
		(id, organization_id, trial_pipeline_id, meeting_id, event_type, actor_user_id, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	if _, err := r.db.Exec(ctx, query,
		e.ID, e.OrganizationID, e.TrialPipelineID, e.MeetingID, e.EventType, e.ActorUserID, payload, e.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to append activation event: %w", err)
	}
	return nil
}

// ListEvents returns a pipeline's audit trail, newest first.
func (r *Repository) ListEvents(ctx context.Context, pipelineID, organizationID uuid.UUID) ([]Event, error) {
	query := `SELECT id, organization_id, trial_pipeline_id, meeting_id, event_type, actor_user_id, metadata, created_at
		FROM activation_events
		WHERE trial_pipeline_id = $1 AND organization_id = $2
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, pipelineID, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list activation events: %w", err)
	}
	defer rows.Close()

	items := make([]Event, 0)
	for rows.Next() {
		var e Event
		var raw []byte
		if err := rows.Scan(&e.ID, &e.OrganizationID, &e.TrialPipelineID, &e.MeetingID, &e.EventType, &e.ActorUserID, &raw, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan activation event: %w", err)
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &e.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode activation event metadata: %w", err)
			}
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate activation events: %w", err)
	}
	return items, nil
}

// ToResponse converts an Event to its API shape.
func (e *Event) ToResponse() transport.EventResponse {
	metadata := e.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	return transport.EventResponse{
		ID:              e.ID,
		TrialPipelineID: e.TrialPipelineID,
		MeetingID:       e.MeetingID,
		EventType:       e.EventType,
		ActorUserID:     e.ActorUserID,
		Metadata:        metadata,
		CreatedAt:       e.CreatedAt,
	}
}
