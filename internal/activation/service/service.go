package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"activation_backend/internal/activation/domain"
	"activation_backend/internal/activation/repository"
	"activation_backend/internal/events"
	"activation_backend/platform/apperr"
	"activation_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	dateFormat      = "2006-01-02"
	clockFormat     = "15:04"
	defaultPageSize = 50
	maxPageSize     = 100
	followupBatch   = 200
)

// Profile is the activation-relevant part of a user profile.
type Profile struct {
	ID       uuid.UUID
	FullName string
	Email    string
	Role     domain.Role
}

// ProfileReader resolves org members and their role flag.
type ProfileReader interface {
	GetProfile(ctx context.Context, organizationID, userID uuid.UUID) (Profile, error)
}

// Lead is the CRM lead data the activation flow needs.
type Lead struct {
	ID           uuid.UUID
	BusinessName string
	ContactName  string
	Phone        string
	Email        string
	Timezone     string
}

// LeadReader resolves CRM leads.
type LeadReader interface {
	GetLead(ctx context.Context, organizationID, leadID uuid.UUID) (Lead, error)
	FindLeadByContact(ctx context.Context, organizationID uuid.UUID, phone, email string) (*Lead, error)
}

// AttachmentStorage presigns object URLs for meeting attachments.
type AttachmentStorage interface {
	// PresignUpload validates the file and returns a PUT URL and the generated object key.
	PresignUpload(ctx context.Context, folder, fileName, contentType string, sizeBytes int64) (uploadURL, fileKey string, err error)
	PresignDownload(ctx context.Context, fileKey string) (string, error)
}

// Settings holds the tunables the service reads from configuration.
type Settings struct {
	WorkdayStart       string
	WorkdayEnd         string
	DefaultPhoneRegion string
	FollowupDelay      time.Duration
}

// Service implements activation meeting scheduling and the trial pipeline lifecycle.
type Service struct {
	store    repository.Store
	profiles ProfileReader
	leads    LeadReader
	storage  AttachmentStorage
	eventBus events.Bus
	log      *logger.Logger
	settings Settings
	now      func() time.Time
}

// New creates a new activation service.
func New(store repository.Store, profiles ProfileReader, leads LeadReader, eventBus events.Bus, log *logger.Logger, settings Settings) *Service {
	if settings.FollowupDelay <= 0 {
		settings.FollowupDelay = 24 * time.Hour
	}
	if settings.WorkdayStart == "" {
		settings.WorkdayStart = "09:00"
	}
	if settings.WorkdayEnd == "" {
		settings.WorkdayEnd = "17:00"
	}
	return &Service{
		store:    store,
		profiles: profiles,
		leads:    leads,
		eventBus: eventBus,
		log:      log,
		settings: settings,
		now:      time.Now,
	}
}

// SetStorage enables meeting attachments.
func (s *Service) SetStorage(storage AttachmentStorage) {
	s.storage = storage
}

// resolveActor loads the caller's role flag. A JWT admin role always wins.
func (s *Service) resolveActor(ctx context.Context, tenantID, userID uuid.UUID, isAdmin bool) (domain.Actor, error) {
	if isAdmin {
		return domain.Actor{UserID: userID, Role: domain.RoleAdmin}, nil
	}
	profile, err := s.profiles.GetProfile(ctx, tenantID, userID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return domain.Actor{}, apperr.Forbidden("no activation profile for this user").WithCode(apperr.CodeNotPermitted)
		}
		return domain.Actor{}, err
	}
	if !profile.Role.Valid() {
		return domain.Actor{}, apperr.Forbidden("profile role does not allow activation actions").WithCode(apperr.CodeNotPermitted)
	}
	return domain.Actor{UserID: userID, Role: profile.Role}, nil
}

// appendAudit writes an audit row after commit. Failures are logged only.
func (s *Service) appendAudit(ctx context.Context, e repository.Event) {
	if e.TrialPipelineID == uuid.Nil {
		return
	}
	e.ID = uuid.New()
	e.CreatedAt = s.now().UTC()
	if err := s.store.AppendEvent(ctx, &e); err != nil {
		s.log.BestEffortFailure(ctx, "append_activation_event", err,
			"event_type", e.EventType,
			"trial_pipeline_id", e.TrialPipelineID.String(),
		)
	}
}

func (s *Service) publish(ctx context.Context, evt events.Event) {
	if s.eventBus == nil {
		return
	}
	s.eventBus.Publish(ctx, evt)
}

func (s *Service) publishPipelineChange(ctx context.Context, p *repository.Pipeline, oldStatus string, actorID *uuid.UUID) {
	if oldStatus == p.ActivationStatus {
		return
	}
	s.publish(ctx, events.TrialPipelineStatusChanged{
		BaseEvent:       events.NewBaseEvent(),
		TrialPipelineID: p.ID,
		OrganizationID:  p.OrganizationID,
		CrmLeadID:       p.CrmLeadID,
		JCCUserID:       derefString(p.JCCUserID),
		OldStatus:       oldStatus,
		NewStatus:       p.ActivationStatus,
		KillReason:      derefString(p.KillReason),
		ActorUserID:     actorID,
	})
}

// meetingDetails builds the event snapshot for a meeting.
func (s *Service) meetingDetails(ctx context.Context, m *repository.Meeting, p *repository.Pipeline) events.MeetingDetails {
	details := events.MeetingDetails{
		MeetingID:       m.ID,
		OrganizationID:  m.OrganizationID,
		TrialPipelineID: m.TrialPipelineID,
		LeadID:          m.LeadID,
		ActivatorUserID: m.ActivatorUserID,
		StartAt:         m.ScheduledStartAt,
		EndAt:           m.ScheduledEndAt,
		Timezone:        m.ScheduledTimezone,
		AttendeeName:    m.AttendeeName,
		AttendeeEmail:   derefString(m.AttendeeEmail),
		AttendeePhone:   m.Phone,
		WebsitePlatform: m.WebsitePlatform,
	}
	if p != nil {
		details.JCCUserID = derefString(p.JCCUserID)
		details.PipelineStatus = p.ActivationStatus
	}
	if profile, err := s.profiles.GetProfile(ctx, m.OrganizationID, m.ActivatorUserID); err == nil {
		details.ActivatorName = profile.FullName
	}
	return details
}

// pipelineState projects the columns the state machine owns.
func pipelineState(p *repository.Pipeline) domain.PipelineState {
	return domain.PipelineState{
		Status:            domain.PipelineStatus(p.ActivationStatus),
		RescheduleCount:   p.RescheduleCount,
		AttemptsCount:     p.AttemptsCount,
		NoShowCount:       p.NoShowCount,
		FollowupOwnerRole: domain.FollowupOwner(p.FollowupOwnerRole),
		NextFollowupAt:    p.NextFollowupAt,
	}
}

// applyPipelineEvent runs event through the state machine and copies the
// result back onto p.
func (s *Service) applyPipelineEvent(p *repository.Pipeline, event domain.PipelineEvent) error {
	now := s.now().UTC()
	next, err := pipelineState(p).Apply(event, now, s.settings.FollowupDelay)
	if err != nil {
		return mapDomainError(err)
	}
	p.ActivationStatus = string(next.Status)
	p.RescheduleCount = next.RescheduleCount
	p.AttemptsCount = next.AttemptsCount
	p.NoShowCount = next.NoShowCount
	p.FollowupOwnerRole = string(next.FollowupOwnerRole)
	p.NextFollowupAt = next.NextFollowupAt
	p.UpdatedAt = now
	return nil
}

// mapDomainError converts pure domain errors into typed application errors.
func mapDomainError(err error) error {
	var invalid *domain.InvalidTransitionError
	var duplicate *domain.ErrDuplicateTerminalAction
	var closed *domain.ErrMeetingClosed

	switch {
	case errors.As(err, &invalid):
		return apperr.Conflict(invalid.Error()).WithCode(apperr.CodeInvalidTransition).
			WithDetails(map[string]string{"from": string(invalid.From), "event": string(invalid.Event)})
	case errors.As(err, &duplicate):
		return apperr.Conflict(duplicate.Error()).WithCode(apperr.CodeDuplicateTerminalAction)
	case errors.As(err, &closed):
		return apperr.Conflict(closed.Error()).WithCode(apperr.CodeInvalidTransition)
	case errors.Is(err, domain.ErrRescheduleLimitReached):
		return apperr.Forbidden("SDRs may reschedule a trial only once; ask the activator to move the meeting").
			WithCode(apperr.CodeRescheduleLimitReached)
	case errors.Is(err, domain.ErrNotMeetingParticipant):
		return apperr.Forbidden("not authorized to change this meeting").WithCode(apperr.CodeNotPermitted)
	}
	return err
}

func slotConflict(start, end time.Time) *apperr.Error {
	return apperr.Conflict("timeslot already booked for this activator").
		WithCode(apperr.CodeSlotConflict).
		WithDetails(map[string]time.Time{"startAt": start, "endAt": end})
}

func clampPageSize(size int) int {
	if size < 1 || size > maxPageSize {
		return defaultPageSize
	}
	return size
}

func parseUUIDFilter(s string, fieldName string) (*uuid.UUID, error) {
	if s == "" {
		return nil, nil
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return nil, apperr.BadRequest(fmt.Sprintf("invalid %s format", fieldName))
	}
	return &parsed, nil
}

func parseDateFilter(s string, fieldName string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateFormat, s)
	if err != nil {
		return nil, apperr.BadRequest(fmt.Sprintf("invalid %s date format: %s", fieldName, s))
	}
	return &t, nil
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func timePtr(t time.Time) *time.Time {
	return &t
}
