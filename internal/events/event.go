// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"activation_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Activation Meeting Events
// =============================================================================

// MeetingDetails is the meeting snapshot carried by meeting events so
// handlers can notify without reading the database again.
type MeetingDetails struct {
	MeetingID       uuid.UUID  `json:"meetingId"`
	OrganizationID  uuid.UUID  `json:"organizationId"`
	TrialPipelineID *uuid.UUID `json:"trialPipelineId,omitempty"`
	LeadID          *uuid.UUID `json:"leadId,omitempty"`
	ActivatorUserID uuid.UUID  `json:"activatorUserId"`
	StartAt         time.Time  `json:"startAt"`
	EndAt           time.Time  `json:"endAt"`
	Timezone        string     `json:"timezone"`
	AttendeeName    string     `json:"attendeeName"`
	AttendeeEmail   string     `json:"attendeeEmail,omitempty"`
	AttendeePhone   string     `json:"attendeePhone"`
	WebsitePlatform string     `json:"websitePlatform"`
	ActivatorName   string     `json:"activatorName,omitempty"`
	JCCUserID       string     `json:"jccUserId,omitempty"`
	PipelineStatus  string     `json:"pipelineStatus,omitempty"`
}

// MeetingScheduled is published after a meeting booking commits.
type MeetingScheduled struct {
	BaseEvent
	MeetingDetails
	ScheduledBy uuid.UUID `json:"scheduledBy"`
}

func (e MeetingScheduled) EventName() string { return "activation.meeting.scheduled" }

// MeetingRescheduled is published after a reschedule commits. It replaces the
// transient "rescheduled" status write.
type MeetingRescheduled struct {
	BaseEvent
	MeetingDetails
	PreviousStartAt time.Time `json:"previousStartAt"`
	PreviousEndAt   time.Time `json:"previousEndAt"`
	Reason          string    `json:"reason,omitempty"`
	RescheduledBy   uuid.UUID `json:"rescheduledBy"`
	ActorRole       string    `json:"actorRole"`
}

func (e MeetingRescheduled) EventName() string { return "activation.meeting.rescheduled" }

// MeetingStatusChanged is published when a meeting is completed, marked no-show or canceled.
type MeetingStatusChanged struct {
	BaseEvent
	MeetingDetails
	OldStatus string    `json:"oldStatus"`
	NewStatus string    `json:"newStatus"`
	ChangedBy uuid.UUID `json:"changedBy"`
}

func (e MeetingStatusChanged) EventName() string { return "activation.meeting.status_changed" }

// MeetingConfirmationRequested asks for the confirmation email and SMS to be (re)sent.
type MeetingConfirmationRequested struct {
	BaseEvent
	MeetingDetails
	RequestedBy uuid.UUID `json:"requestedBy"`
}

func (e MeetingConfirmationRequested) EventName() string {
	return "activation.meeting.confirmation_requested"
}

// MeetingReminderDue is published by the scheduler when a reminder task fires.
type MeetingReminderDue struct {
	BaseEvent
	MeetingID      uuid.UUID `json:"meetingId"`
	OrganizationID uuid.UUID `json:"organizationId"`
	StartAt        time.Time `json:"startAt"`
}

func (e MeetingReminderDue) EventName() string { return "activation.meeting.reminder_due" }

// =============================================================================
// Trial Pipeline Events
// =============================================================================

// TrialPipelineStatusChanged is published after every committed pipeline transition.
type TrialPipelineStatusChanged struct {
	BaseEvent
	TrialPipelineID uuid.UUID  `json:"trialPipelineId"`
	OrganizationID  uuid.UUID  `json:"organizationId"`
	CrmLeadID       uuid.UUID  `json:"crmLeadId"`
	JCCUserID       string     `json:"jccUserId,omitempty"`
	OldStatus       string     `json:"oldStatus"`
	NewStatus       string     `json:"newStatus"`
	KillReason      string     `json:"killReason,omitempty"`
	ActorUserID     *uuid.UUID `json:"actorUserId,omitempty"`
}

func (e TrialPipelineStatusChanged) EventName() string { return "activation.pipeline.status_changed" }

// FollowupDue is published by the follow-up sweep for a no-show pipeline
// whose next_followup_at has passed.
type FollowupDue struct {
	BaseEvent
	TrialPipelineID uuid.UUID `json:"trialPipelineId"`
	OrganizationID  uuid.UUID `json:"organizationId"`
	CrmLeadID       uuid.UUID `json:"crmLeadId"`
	NoShowCount     int       `json:"noShowCount"`
	OwnerRole       string    `json:"ownerRole"`
	DueAt           time.Time `json:"dueAt"`
}

func (e FollowupDue) EventName() string { return "activation.pipeline.followup_due" }

// =============================================================================
// Notification Events
// =============================================================================

// NotificationOutboxDue is published by the scheduler when a notification outbox
// record should be processed.
type NotificationOutboxDue struct {
	BaseEvent
	OutboxID uuid.UUID `json:"outboxId"`
	TenantID uuid.UUID `json:"tenantId"`
}

func (e NotificationOutboxDue) EventName() string { return "notification.outbox.due" }
