package transport

import (
	"time"

	"github.com/google/uuid"
)

// CreateMeetingRequest is the request body for booking an activation meeting.
type CreateMeetingRequest struct {
	ScheduledStartAt  time.Time  `json:"scheduledStartAt" validate:"required"`
	ScheduledTimezone string     `json:"scheduledTimezone" validate:"required,iana_tz"`
	ActivatorUserID   uuid.UUID  `json:"activatorUserId" validate:"required"`
	AttendeeName      string     `json:"attendeeName" validate:"required,min=1,max=200"`
	AttendeeRole      string     `json:"attendeeRole" validate:"required,min=1,max=100"`
	AttendeeEmail     string     `json:"attendeeEmail,omitempty" validate:"omitempty,email,max=320"`
	Phone             string     `json:"phone" validate:"required,e164ish"`
	WebsitePlatform   string     `json:"websitePlatform" validate:"required,min=1,max=100"`
	Goal              string     `json:"goal" validate:"required,min=1,max=2000"`
	Notes             string     `json:"notes,omitempty" validate:"max=4000"`
	TrialPipelineID   *uuid.UUID `json:"trialPipelineId,omitempty"`
	LeadID            *uuid.UUID `json:"leadId,omitempty"`
}

// RescheduleRequest is the request body for POST /activations/reschedule.
type RescheduleRequest struct {
	MeetingID      uuid.UUID  `json:"meetingId" validate:"required"`
	NewSlotStartAt time.Time  `json:"newSlotStartAt" validate:"required"`
	NewSlotEndAt   *time.Time `json:"newSlotEndAt,omitempty"`
	Reason         string     `json:"reason" validate:"max=1000"`
}

// MeetingActionRequest is the optional body for complete, no-show and cancel.
type MeetingActionRequest struct {
	Notes string `json:"notes,omitempty" validate:"max=4000"`
}

// ListMeetingsRequest is the query for GET /activation-meetings.
type ListMeetingsRequest struct {
	ActivatorOnly *bool  `form:"activatorOnly"`
	ActivatorID   string `form:"activatorUserId"`
	Status        string `form:"status" validate:"omitempty,oneof=scheduled rescheduled completed no_show canceled"`
	StartDate     string `form:"startDate"`
	EndDate       string `form:"endDate"`
	Page          int    `form:"page"`
	PageSize      int    `form:"pageSize"`
}

// MeetingResponse is the API shape of an activation meeting.
type MeetingResponse struct {
	ID                      uuid.UUID  `json:"id"`
	TrialPipelineID         *uuid.UUID `json:"trialPipelineId,omitempty"`
	LeadID                  *uuid.UUID `json:"leadId,omitempty"`
	ScheduledStartAt        time.Time  `json:"scheduledStartAt"`
	ScheduledEndAt          time.Time  `json:"scheduledEndAt"`
	ScheduledTimezone       string     `json:"scheduledTimezone"`
	ActivatorUserID         uuid.UUID  `json:"activatorUserId"`
	ScheduledBySDRUserID    uuid.UUID  `json:"scheduledBySdrUserId"`
	Status                  string     `json:"status"`
	AttendeeName            string     `json:"attendeeName"`
	AttendeeRole            string     `json:"attendeeRole"`
	AttendeeEmail           *string    `json:"attendeeEmail,omitempty"`
	Phone                   string     `json:"phone"`
	WebsitePlatform         string     `json:"websitePlatform"`
	Goal                    string     `json:"goal"`
	Notes                   *string    `json:"notes,omitempty"`
	ConfirmationEmailSentAt *time.Time `json:"confirmationEmailSentAt,omitempty"`
	ConfirmationSMSSentAt   *time.Time `json:"confirmationSmsSentAt,omitempty"`
	CompletedAt             *time.Time `json:"completedAt,omitempty"`
	CreatedAt               time.Time  `json:"createdAt"`
	UpdatedAt               time.Time  `json:"updatedAt"`
}

// MeetingEnvelope wraps a single meeting the way clients expect it.
type MeetingEnvelope struct {
	Success bool            `json:"success"`
	Meeting MeetingResponse `json:"meeting"`
}

// RescheduleResponse is returned by a successful reschedule.
type RescheduleResponse struct {
	Success         bool            `json:"success"`
	Meeting         MeetingResponse `json:"meeting"`
	RescheduleCount *int            `json:"rescheduleCount,omitempty"`
}

// MeetingListResponse is the paginated meeting list.
type MeetingListResponse struct {
	Items      []MeetingResponse `json:"items"`
	Total      int               `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"pageSize"`
	TotalPages int               `json:"totalPages"`
}

// EventResponse is one row of the activation audit trail.
type EventResponse struct {
	ID              uuid.UUID      `json:"id"`
	TrialPipelineID uuid.UUID      `json:"trialPipelineId"`
	MeetingID       *uuid.UUID     `json:"meetingId,omitempty"`
	EventType       string         `json:"eventType"`
	ActorUserID     *uuid.UUID     `json:"actorUserId,omitempty"`
	Metadata        map[string]any `json:"metadata"`
	CreatedAt       time.Time      `json:"createdAt"`
}

// EventListResponse wraps the audit trail.
type EventListResponse struct {
	Items []EventResponse `json:"items"`
}

// ListEventsRequest is the query for GET /activations/events.
type ListEventsRequest struct {
	TrialPipelineID string `form:"trialPipelineId" validate:"required,uuid"`
}

// CreatePipelineRequest creates a queued trial pipeline for a CRM lead.
type CreatePipelineRequest struct {
	CrmLeadID           uuid.UUID  `json:"crmLeadId" validate:"required"`
	AssignedActivatorID *uuid.UUID `json:"assignedActivatorId,omitempty"`
	CreditsRemaining    int        `json:"creditsRemaining" validate:"min=0"`
	JCCUserID           string     `json:"jccUserId,omitempty" validate:"max=200"`
}

// ListPipelinesRequest is the query for GET /trial-pipelines.
type ListPipelinesRequest struct {
	Status      string `form:"status" validate:"omitempty,oneof=queued scheduled completed no_show activated killed"`
	ActivatorID string `form:"activatorUserId"`
	Page        int    `form:"page"`
	PageSize    int    `form:"pageSize"`
}

// PipelineResponse is the API shape of a trial pipeline.
type PipelineResponse struct {
	ID                  uuid.UUID  `json:"id"`
	CrmLeadID           uuid.UUID  `json:"crmLeadId"`
	AssignedActivatorID *uuid.UUID `json:"assignedActivatorId,omitempty"`
	ActivationStatus    string     `json:"activationStatus"`
	RescheduleCount     int        `json:"rescheduleCount"`
	AttemptsCount       int        `json:"attemptsCount"`
	ScheduledStartAt    *time.Time `json:"scheduledStartAt,omitempty"`
	ScheduledEndAt      *time.Time `json:"scheduledEndAt,omitempty"`
	NextFollowupAt      *time.Time `json:"nextFollowupAt,omitempty"`
	NoShowCount         int        `json:"noShowCount"`
	FollowupOwnerRole   string     `json:"followupOwnerRole"`
	CreditsRemaining    int        `json:"creditsRemaining"`
	JCCUserID           *string    `json:"jccUserId,omitempty"`
	KillReason          *string    `json:"killReason,omitempty"`
	KilledAt            *time.Time `json:"killedAt,omitempty"`
	ActivatedAt         *time.Time `json:"activatedAt,omitempty"`
	CreatedByUserID     uuid.UUID  `json:"createdByUserId"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

// PipelineListResponse is the paginated pipeline list.
type PipelineListResponse struct {
	Items      []PipelineResponse `json:"items"`
	Total      int                `json:"total"`
	Page       int                `json:"page"`
	PageSize   int                `json:"pageSize"`
	TotalPages int                `json:"totalPages"`
}

// PipelineDetailResponse bundles a pipeline with its meetings and audit trail.
type PipelineDetailResponse struct {
	Pipeline PipelineResponse  `json:"pipeline"`
	Meetings []MeetingResponse `json:"meetings"`
	Events   []EventResponse   `json:"events"`
}

// KillPipelineRequest is the body for POST /trial-pipelines/:id/kill.
type KillPipelineRequest struct {
	Reason string `json:"reason" validate:"required,oneof=no_response not_interested duplicate bad_fit other"`
	Note   string `json:"note,omitempty" validate:"max=1000"`
}

// KillByContactRequest resolves a lead by phone or email and kills its open pipeline.
type KillByContactRequest struct {
	Phone  string `json:"phone,omitempty" validate:"omitempty,e164ish"`
	Email  string `json:"email,omitempty" validate:"omitempty,email"`
	Reason string `json:"reason" validate:"required,oneof=no_response not_interested duplicate bad_fit other"`
	Note   string `json:"note,omitempty" validate:"max=1000"`
}

// FirstLeadWebhookRequest is posted by Control Tower when a trial account
// receives its first lead.
type FirstLeadWebhookRequest struct {
	JCCUserID  string     `json:"jccUserId" validate:"required,max=200"`
	ReceivedAt *time.Time `json:"receivedAt,omitempty"`
}

// FollowupSweepResponse reports how many follow-ups were published.
type FollowupSweepResponse struct {
	Published int `json:"published"`
}

// SlotsRequest is the query for GET /activation-meetings/slots.
type SlotsRequest struct {
	ActivatorUserID string `form:"activatorUserId" validate:"required,uuid"`
	Date            string `form:"date" validate:"required"`
	Timezone        string `form:"timezone" validate:"required,iana_tz"`
}

// TimeSlot is a bookable 30 minute window.
type TimeSlot struct {
	StartAt time.Time `json:"startAt"`
	EndAt   time.Time `json:"endAt"`
}

// SlotsResponse lists the free slots for one activator and day.
type SlotsResponse struct {
	ActivatorUserID uuid.UUID  `json:"activatorUserId"`
	Date            string     `json:"date"`
	Timezone        string     `json:"timezone"`
	Slots           []TimeSlot `json:"slots"`
}

// CreateAttachmentRequest registers an upload and returns a presigned PUT URL.
type CreateAttachmentRequest struct {
	FileName    string `json:"fileName" validate:"required,min=1,max=255"`
	ContentType string `json:"contentType" validate:"required,max=100"`
	SizeBytes   int64  `json:"sizeBytes" validate:"required,min=1"`
}

// AttachmentResponse describes a stored meeting attachment.
type AttachmentResponse struct {
	ID          uuid.UUID `json:"id"`
	MeetingID   uuid.UUID `json:"meetingId"`
	FileKey     string    `json:"fileKey"`
	FileName    string    `json:"fileName"`
	ContentType string    `json:"contentType"`
	SizeBytes   int64     `json:"sizeBytes"`
	UploadURL   string    `json:"uploadUrl,omitempty"`
	DownloadURL string    `json:"downloadUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// AttachmentListResponse wraps attachment listings.
type AttachmentListResponse struct {
	Items []AttachmentResponse `json:"items"`
}

// SendConfirmationResponse reports which confirmation channels were queued.
type SendConfirmationResponse struct {
	Success bool `json:"success"`
	Queued  bool `json:"queued"`
}

// FirstLeadWebhookResponse reports the pipeline the webhook activated.
type FirstLeadWebhookResponse struct {
	Success  bool             `json:"success"`
	Pipeline PipelineResponse `json:"pipeline"`
}
