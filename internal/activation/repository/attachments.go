package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Attachment represents an activation_meeting_attachments row.
type Attachment struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	MeetingID      uuid.UUID
	FileKey        string
	FileName       string
	ContentType    string
	SizeBytes      int64
	CreatedAt      time.Time
}

// CreateAttachment inserts attachment metadata. The object itself lives in MinIO.
func (r *Repository) CreateAttachment(ctx context.Context, a *Attachment) error {
	query := `INSERT INTO activation_meeting_attachments
		(id, organization_id, meeting_id, file_key, file_name, content_type, size_bytes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	if _, err := r.db.Exec(ctx, query,
		a.ID, a.OrganizationID, a.MeetingID, a.FileKey, a.FileName, a.ContentType, a.SizeBytes, a.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to create meeting attachment: %w", err)
	}
	return nil
}

// ListAttachments returns a meeting's attachments, oldest first.
func (r *Repository) ListAttachments(ctx context.Context, meetingID, organizationID uuid.UUID) ([]Attachment, error) {
	query := `SELECT id, organization_id, meeting_id, file_key, file_name, content_type, size_bytes, created_at
		FROM activation_meeting_attachments
		WHERE meeting_id = $1 AND organization_id = $2
		ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query, meetingID, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list meeting attachments: %w", err)
	}
	defer rows.Close()

	items := make([]Attachment, 0)
	for rows.Next() {
		var a Attachment
		if err := rows.Scan(&a.ID, &a.OrganizationID, &a.MeetingID, &a.FileKey, &a.FileName, &a.ContentType, &a.SizeBytes, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan meeting attachment: %w", err)
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate meeting attachments: %w", err)
	}
	return items, nil
}
