package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"activation_backend/internal/controltower"
	"activation_backend/internal/events"
	notificationoutbox "activation_backend/internal/notification/outbox"

	"github.com/google/uuid"
)

const (
	outboxKindControlTower = "control_tower"

	templatePipelineStatus = "pipeline_status"
	templateMeetingSync    = "meeting_sync"

	invalidOutboxPayloadPrefix = "invalid payload: "
	maxOutboxRetryAttempts     = 5
	outboxRetryBaseDelay       = time.Minute
	outboxRetryMaxDelay        = 60 * time.Minute
)

// TowerSyncer pushes activation state to Control Tower.
type TowerSyncer interface {
	SyncPipelineStatus(ctx context.Context, u controltower.PipelineStatusUpdate) error
	SyncMeeting(ctx context.Context, u controltower.MeetingUpdate) error
}

// OutboxStore is the part of the outbox repository the notifier uses.
type OutboxStore interface {
	Insert(ctx context.Context, p notificationoutbox.InsertParams) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (notificationoutbox.Record, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	MarkSucceeded(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error
	ScheduleRetry(ctx context.Context, id uuid.UUID, runAt time.Time, lastError string) error
}

type pipelineSyncPayload struct {
	IdempotencyKey  string    `json:"idempotencyKey"`
	JCCUserID       string    `json:"jccUserId"`
	TrialPipelineID string    `json:"trialPipelineId"`
	Status          string    `json:"status"`
	KillReason      string    `json:"killReason,omitempty"`
	OccurredAt      time.Time `json:"occurredAt"`
}

type meetingSyncPayload struct {
	IdempotencyKey string    `json:"idempotencyKey"`
	JCCUserID      string    `json:"jccUserId"`
	MeetingID      string    `json:"meetingId"`
	Status         string    `json:"status"`
	StartAt        time.Time `json:"startAt"`
	EndAt          time.Time `json:"endAt"`
	Timezone       string    `json:"timezone"`
	OccurredAt     time.Time `json:"occurredAt"`
}

func (p pipelineSyncPayload) update() controltower.PipelineStatusUpdate {
	return controltower.PipelineStatusUpdate{
		IdempotencyKey:  p.IdempotencyKey,
		JCCUserID:       p.JCCUserID,
		TrialPipelineID: p.TrialPipelineID,
		Status:          p.Status,
		KillReason:      p.KillReason,
		OccurredAt:      p.OccurredAt,
	}
}

func (p meetingSyncPayload) update() controltower.MeetingUpdate {
	return controltower.MeetingUpdate{
		IdempotencyKey: p.IdempotencyKey,
		JCCUserID:      p.JCCUserID,
		MeetingID:      p.MeetingID,
		Status:         p.Status,
		StartAt:        p.StartAt,
		EndAt:          p.EndAt,
		Timezone:       p.Timezone,
		OccurredAt:     p.OccurredAt,
	}
}

func (m *Module) handlePipelineStatusChanged(ctx context.Context, e events.TrialPipelineStatusChanged) error {
	if e.JCCUserID == "" {
		return nil
	}
	// First-lead activations originate in Control Tower.
	if e.NewStatus == "activated" && e.ActorUserID == nil {
		return nil
	}

	occurredAt := e.OccurredAt().UTC()
	payload := pipelineSyncPayload{
		IdempotencyKey:  idempotencyKey(e.TrialPipelineID, e.NewStatus, occurredAt),
		JCCUserID:       e.JCCUserID,
		TrialPipelineID: e.TrialPipelineID.String(),
		Status:          e.NewStatus,
		KillReason:      e.KillReason,
		OccurredAt:      occurredAt,
	}

	if m.enqueueTowerSync(ctx, e.OrganizationID, templatePipelineStatus, payload) {
		return nil
	}
	if m.tower == nil {
		return nil
	}
	if err := m.tower.SyncPipelineStatus(ctx, payload.update()); err != nil {
		m.log.BestEffortFailure(ctx, "control_tower_pipeline_sync", err, "trial_pipeline_id", e.TrialPipelineID.String())
	}
	return nil
}

func (m *Module) syncMeeting(ctx context.Context, d events.MeetingDetails, status string, occurredAt time.Time) {
	if d.JCCUserID == "" {
		return
	}

	occurredAt = occurredAt.UTC()
	payload := meetingSyncPayload{
		IdempotencyKey: idempotencyKey(d.MeetingID, status, occurredAt),
		JCCUserID:      d.JCCUserID,
		MeetingID:      d.MeetingID.String(),
		Status:         status,
		StartAt:        d.StartAt,
		EndAt:          d.EndAt,
		Timezone:       d.Timezone,
		OccurredAt:     occurredAt,
	}

	if m.enqueueTowerSync(ctx, d.OrganizationID, templateMeetingSync, payload) {
		return
	}
	if m.tower == nil {
		return
	}
	if err := m.tower.SyncMeeting(ctx, payload.update()); err != nil {
		m.log.BestEffortFailure(ctx, "control_tower_meeting_sync", err, "meeting_id", d.MeetingID.String())
	}
}

// enqueueTowerSync reports whether the update was handed to the outbox.
// A failed insert falls back to a direct call.
func (m *Module) enqueueTowerSync(ctx context.Context, tenantID uuid.UUID, template string, payload any) bool {
	if m.outbox == nil {
		return false
	}
	id, err := m.outbox.Insert(ctx, notificationoutbox.InsertParams{
		TenantID: tenantID,
		Kind:     outboxKindControlTower,
		Template: template,
		Payload:  payload,
		RunAt:    m.now().UTC(),
	})
	if err != nil {
		m.log.BestEffortFailure(ctx, "enqueue_control_tower_sync", err, "template", template)
		return false
	}
	m.log.Debug("control tower sync queued", "outboxId", id, "template", template)
	return true
}

func idempotencyKey(id uuid.UUID, status string, at time.Time) string {
	return fmt.Sprintf("%s:%s:%d", id, status, at.UnixMilli())
}

func (m *Module) handleNotificationOutboxDue(ctx context.Context, e events.NotificationOutboxDue) error {
	if m.outbox == nil {
		m.log.Debug("notification outbox repository not configured; skipping outbox due event", "outboxId", e.OutboxID, "tenantId", e.TenantID)
		return nil
	}
	rec, process, err := m.prepareOutboxRecord(ctx, e.OutboxID)
	if err != nil || !process {
		if err != nil {
			m.log.Error("failed to prepare outbox record", "outboxId", e.OutboxID, "error", err)
		}
		return err
	}

	if rec.Kind != outboxKindControlTower {
		m.markOutboxUnsupported(ctx, rec)
		return nil
	}

	var processErr error
	switch rec.Template {
	case templatePipelineStatus:
		processErr = m.processPipelineStatusOutbox(ctx, rec)
	case templateMeetingSync:
		processErr = m.processMeetingSyncOutbox(ctx, rec)
	default:
		m.markOutboxUnsupported(ctx, rec)
		return nil
	}

	if processErr != nil {
		m.handleOutboxDeliveryError(ctx, rec, processErr)
		return processErr
	}
	m.log.Info("outbox record processed successfully", "outboxId", rec.ID.String(), "kind", rec.Kind, "template", rec.Template)
	return nil
}

func (m *Module) processPipelineStatusOutbox(ctx context.Context, rec notificationoutbox.Record) error {
	var payload pipelineSyncPayload
	if err := json.Unmarshal(rec.Payload, &payload); err != nil {
		_ = m.outbox.MarkFailed(ctx, rec.ID, invalidOutboxPayloadPrefix+err.Error())
		return nil
	}
	if m.tower == nil {
		_ = m.outbox.MarkSucceeded(ctx, rec.ID)
		return nil
	}
	if err := m.tower.SyncPipelineStatus(ctx, payload.update()); err != nil {
		return err
	}
	return m.outbox.MarkSucceeded(ctx, rec.ID)
}

func (m *Module) processMeetingSyncOutbox(ctx context.Context, rec notificationoutbox.Record) error {
	var payload meetingSyncPayload
	if err := json.Unmarshal(rec.Payload, &payload); err != nil {
		_ = m.outbox.MarkFailed(ctx, rec.ID, invalidOutboxPayloadPrefix+err.Error())
		return nil
	}
	if m.tower == nil {
		_ = m.outbox.MarkSucceeded(ctx, rec.ID)
		return nil
	}
	if err := m.tower.SyncMeeting(ctx, payload.update()); err != nil {
		return err
	}
	return m.outbox.MarkSucceeded(ctx, rec.ID)
}

func (m *Module) handleOutboxDeliveryError(ctx context.Context, rec notificationoutbox.Record, deliveryErr error) {
	attempt := rec.Attempts + 1
	if attempt >= maxOutboxRetryAttempts {
		_ = m.outbox.MarkFailed(ctx, rec.ID, deliveryErr.Error())
		m.log.Warn("notification outbox exhausted retries",
			"outboxId", rec.ID.String(),
			"template", rec.Template,
			"attempt", attempt,
			"maxAttempts", maxOutboxRetryAttempts,
			"error", deliveryErr,
		)
		return
	}

	retryAt := m.now().UTC().Add(computeOutboxRetryDelay(attempt))
	if err := m.outbox.ScheduleRetry(ctx, rec.ID, retryAt, deliveryErr.Error()); err != nil {
		_ = m.outbox.MarkFailed(ctx, rec.ID, deliveryErr.Error())
		m.log.Error("notification outbox retry scheduling failed; marked failed",
			"outboxId", rec.ID.String(),
			"attempt", attempt,
			"error", err,
		)
		return
	}

	m.log.Warn("notification outbox scheduled retry",
		"outboxId", rec.ID.String(),
		"template", rec.Template,
		"attempt", attempt,
		"retryAt", retryAt,
		"error", deliveryErr,
	)
}

func computeOutboxRetryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := outboxRetryBaseDelay << (attempt - 1)
	if delay > outboxRetryMaxDelay {
		return outboxRetryMaxDelay
	}
	return delay
}

func (m *Module) prepareOutboxRecord(ctx context.Context, outboxID uuid.UUID) (notificationoutbox.Record, bool, error) {
	rec, err := m.outbox.GetByID(ctx, outboxID)
	if err != nil {
		return notificationoutbox.Record{}, false, err
	}
	if rec.Status == notificationoutbox.StatusSucceeded {
		m.log.Debug("outbox record already succeeded; skipping", "outboxId", rec.ID.String())
		return rec, false, nil
	}
	if err := m.outbox.MarkProcessing(ctx, rec.ID); err != nil {
		return notificationoutbox.Record{}, false, err
	}
	return rec, true, nil
}

func (m *Module) markOutboxUnsupported(ctx context.Context, rec notificationoutbox.Record) {
	msg := fmt.Sprintf("unsupported outbox kind/template: %s/%s", rec.Kind, rec.Template)
	_ = m.outbox.MarkFailed(ctx, rec.ID, msg)
	m.log.Warn("unsupported outbox record", "outboxId", rec.ID.String(), "kind", rec.Kind, "template", rec.Template)
}
