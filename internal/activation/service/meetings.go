package service

import (
	"context"
	"time"

	"activation_backend/internal/activation/domain"
	"activation_backend/internal/activation/repository"
	"activation_backend/internal/activation/transport"
	"activation_backend/internal/events"
	"activation_backend/platform/apperr"
	"activation_backend/platform/phone"
	"activation_backend/platform/sanitize"

	"github.com/google/uuid"
)

// CreateMeeting books an activation meeting. The conflict check, the meeting
// insert and the pipeline transition commit together or not at all.
func (s *Service) CreateMeeting(ctx context.Context, userID uuid.UUID, isAdmin bool, tenantID uuid.UUID, req transport.CreateMeetingRequest) (*transport.MeetingEnvelope, error) {
	actor, err := s.resolveActor(ctx, tenantID, userID, isAdmin)
	if err != nil {
		return nil, err
	}

	meeting, err := s.buildMeeting(ctx, actor, tenantID, req)
	if err != nil {
		return nil, err
	}

	var pipeline *repository.Pipeline
	var oldPipelineStatus string

	err = s.store.RunInTx(ctx, func(tx repository.Store) error {
		if err := tx.LockActivator(ctx, meeting.ActivatorUserID); err != nil {
			return err
		}

		conflict, err := tx.FindConflict(ctx, tenantID, meeting.ActivatorUserID, meeting.ScheduledStartAt, meeting.ScheduledEndAt, nil)
		if err != nil {
			return err
		}
		if conflict != nil {
			return slotConflict(conflict.ScheduledStartAt, conflict.ScheduledEndAt)
		}

		if meeting.TrialPipelineID != nil {
			pipeline, err = tx.GetPipelineForUpdate(ctx, *meeting.TrialPipelineID, tenantID)
			if err != nil {
				if apperr.Is(err, apperr.KindNotFound) {
					return apperr.BadRequest("trialPipelineId does not exist")
				}
				return err
			}
			oldPipelineStatus = pipeline.ActivationStatus
			if err := s.applyPipelineEvent(pipeline, domain.EventBooked); err != nil {
				return err
			}
			if meeting.LeadID == nil {
				meeting.LeadID = &pipeline.CrmLeadID
			}
		}

		if err := tx.CreateMeeting(ctx, meeting); err != nil {
			return err
		}

		if pipeline == nil {
			return nil
		}
		pipeline.ScheduledStartAt = timePtr(meeting.ScheduledStartAt)
		pipeline.ScheduledEndAt = timePtr(meeting.ScheduledEndAt)
		pipeline.AssignedActivatorID = &meeting.ActivatorUserID
		return tx.UpdatePipeline(ctx, pipeline)
	})
	if err != nil {
		return nil, err
	}

	if pipeline != nil {
		s.appendAudit(ctx, repository.Event{
			OrganizationID:  tenantID,
			TrialPipelineID: pipeline.ID,
			MeetingID:       &meeting.ID,
			EventType:       domain.AuditScheduled,
			ActorUserID:     &actor.UserID,
			Metadata: map[string]any{
				"scheduledStartAt": meeting.ScheduledStartAt,
				"scheduledEndAt":   meeting.ScheduledEndAt,
				"timezone":         meeting.ScheduledTimezone,
				"activatorUserId":  meeting.ActivatorUserID,
				"attemptsCount":    pipeline.AttemptsCount,
				"actorRole":        actor.Role,
			},
		})
		s.publishPipelineChange(ctx, pipeline, oldPipelineStatus, &actor.UserID)
	}

	s.publish(ctx, events.MeetingScheduled{
		BaseEvent:      events.NewBaseEvent(),
		MeetingDetails: s.meetingDetails(ctx, meeting, pipeline),
		ScheduledBy:    actor.UserID,
	})

	return &transport.MeetingEnvelope{Success: true, Meeting: meeting.ToResponse()}, nil
}

// buildMeeting validates the request and creates an unsaved meeting.
func (s *Service) buildMeeting(ctx context.Context, actor domain.Actor, tenantID uuid.UUID, req transport.CreateMeetingRequest) (*repository.Meeting, error) {
	if _, err := time.LoadLocation(req.ScheduledTimezone); err != nil || req.ScheduledTimezone == "" {
		return nil, apperr.Validation("scheduledTimezone must be an IANA timezone name")
	}
	if req.ScheduledStartAt.IsZero() {
		return nil, apperr.Validation("scheduledStartAt is required")
	}

	required := []struct{ field, value string }{
		{"attendeeName", req.AttendeeName},
		{"attendeeRole", req.AttendeeRole},
		{"phone", req.Phone},
		{"websitePlatform", req.WebsitePlatform},
		{"goal", req.Goal},
	}
	for _, r := range required {
		if sanitize.Text(r.value) == "" {
			return nil, apperr.Validation(r.field + " is required")
		}
	}

	activator, err := s.profiles.GetProfile(ctx, tenantID, req.ActivatorUserID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, apperr.Validation("activatorUserId is not a member of this organization")
		}
		return nil, err
	}
	if !activator.Role.CanHostMeetings() {
		return nil, apperr.Validation("activatorUserId does not have the activator role")
	}

	var attendeeEmail *string
	if email := sanitize.Email(req.AttendeeEmail); email != "" {
		attendeeEmail = &email
	}

	start := req.ScheduledStartAt.UTC().Truncate(time.Minute)
	now := s.now().UTC()
	return &repository.Meeting{
		ID:                   uuid.New(),
		OrganizationID:       tenantID,
		TrialPipelineID:      req.TrialPipelineID,
		LeadID:               req.LeadID,
		ScheduledStartAt:     start,
		ScheduledEndAt:       domain.MeetingEnd(start),
		ScheduledTimezone:    req.ScheduledTimezone,
		ActivatorUserID:      req.ActivatorUserID,
		ScheduledBySDRUserID: actor.UserID,
		Status:               string(domain.MeetingScheduled),
		AttendeeName:         sanitize.PersonName(req.AttendeeName),
		AttendeeRole:         sanitize.Text(req.AttendeeRole),
		AttendeeEmail:        attendeeEmail,
		Phone:                phone.NormalizeE164Region(req.Phone, s.settings.DefaultPhoneRegion),
		WebsitePlatform:      sanitize.Text(req.WebsitePlatform),
		Goal:                 sanitize.Text(req.Goal),
		Notes:                sanitize.TextPtr(nilIfEmpty(req.Notes)),
		CreatedAt:            now,
		UpdatedAt:            now,
	}, nil
}

// GetMeeting returns a meeting visible to the caller.
func (s *Service) GetMeeting(ctx context.Context, id uuid.UUID, userID uuid.UUID, isAdmin bool, tenantID uuid.UUID) (*transport.MeetingEnvelope, error) {
	actor, err := s.resolveActor(ctx, tenantID, userID, isAdmin)
	if err != nil {
		return nil, err
	}
	meeting, err := s.ensureMeetingAccess(ctx, actor, id, tenantID)
	if err != nil {
		return nil, err
	}
	return &transport.MeetingEnvelope{Success: true, Meeting: meeting.ToResponse()}, nil
}

// ensureMeetingAccess loads a meeting and checks read access: admins and SDRs
// see every meeting in the organization, activators only their own.
func (s *Service) ensureMeetingAccess(ctx context.Context, actor domain.Actor, id, tenantID uuid.UUID) (*repository.Meeting, error) {
	meeting, err := s.store.GetMeeting(ctx, id, tenantID)
	if err != nil {
		return nil, err
	}
	if actor.Role == domain.RoleActivator && !domain.CanManageMeeting(actor, meeting.ActivatorUserID, meeting.ScheduledBySDRUserID) {
		return nil, apperr.Forbidden("not authorized to access this meeting").WithCode(apperr.CodeNotPermitted)
	}
	return meeting, nil
}

// ListMeetings lists meetings. Activators always see only their own;
// activatorOnly narrows an SDR or admin to the meetings they host.
func (s *Service) ListMeetings(ctx context.Context, userID uuid.UUID, isAdmin bool, tenantID uuid.UUID, req transport.ListMeetingsRequest) (*transport.MeetingListResponse, error) {
	actor, err := s.resolveActor(ctx, tenantID, userID, isAdmin)
	if err != nil {
		return nil, err
	}

	activatorFilter, err := parseUUIDFilter(req.ActivatorID, "activatorUserId")
	if err != nil {
		return nil, err
	}
	startFrom, err := parseDateFilter(req.StartDate, "startDate")
	if err != nil {
		return nil, err
	}
	startTo, err := parseDateFilter(req.EndDate, "endDate")
	if err != nil {
		return nil, err
	}
	if startTo != nil {
		endOfDay := startTo.Add(24*time.Hour - time.Nanosecond)
		startTo = &endOfDay
	}

	switch {
	case actor.Role == domain.RoleActivator:
		if activatorFilter != nil && *activatorFilter != actor.UserID {
			return nil, apperr.Forbidden("activators can only list their own meetings").WithCode(apperr.CodeNotPermitted)
		}
		activatorFilter = &actor.UserID
	case req.ActivatorOnly != nil && *req.ActivatorOnly:
		activatorFilter = &actor.UserID
	}

	params := repository.MeetingListParams{
		OrganizationID: tenantID,
		ActivatorID:    activatorFilter,
		StartFrom:      startFrom,
		StartTo:        startTo,
		Page:           max(req.Page, 1),
		PageSize:       clampPageSize(req.PageSize),
	}
	if req.Status != "" {
		status := req.Status
		params.Status = &status
	}

	result, err := s.store.ListMeetings(ctx, params)
	if err != nil {
		return nil, err
	}

	items := make([]transport.MeetingResponse, len(result.Items))
	for i := range result.Items {
		items[i] = result.Items[i].ToResponse()
	}
	return &transport.MeetingListResponse{
		Items:      items,
		Total:      result.Total,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalPages: result.TotalPages,
	}, nil
}

// ListEvents returns the audit trail of a pipeline.
func (s *Service) ListEvents(ctx context.Context, userID uuid.UUID, isAdmin bool, tenantID uuid.UUID, pipelineID uuid.UUID) (*transport.EventListResponse, error) {
	if _, err := s.resolveActor(ctx, tenantID, userID, isAdmin); err != nil {
		return nil, err
	}
	if _, err := s.store.GetPipeline(ctx, pipelineID, tenantID); err != nil {
		return nil, err
	}

	items, err := s.store.ListEvents(ctx, pipelineID, tenantID)
	if err != nil {
		return nil, err
	}
	resp := make([]transport.EventResponse, len(items))
	for i := range items {
		resp[i] = items[i].ToResponse()
	}
	return &transport.EventListResponse{Items: resp}, nil
}

// CompleteMeeting marks a meeting as held.
func (s *Service) CompleteMeeting(ctx context.Context, id, userID uuid.UUID, isAdmin bool, tenantID uuid.UUID, req transport.MeetingActionRequest) (*transport.MeetingEnvelope, error) {
	return s.closeMeeting(ctx, id, userID, isAdmin, tenantID, domain.ActionComplete, req)
}

// MarkNoShow records that the attendee did not show up.
func (s *Service) MarkNoShow(ctx context.Context, id, userID uuid.UUID, isAdmin bool, tenantID uuid.UUID, req transport.MeetingActionRequest) (*transport.MeetingEnvelope, error) {
	return s.closeMeeting(ctx, id, userID, isAdmin, tenantID, domain.ActionNoShow, req)
}

// CancelMeeting cancels a scheduled meeting and returns its pipeline to the queue.
func (s *Service) CancelMeeting(ctx context.Context, id, userID uuid.UUID, isAdmin bool, tenantID uuid.UUID, req transport.MeetingActionRequest) (*transport.MeetingEnvelope, error) {
	return s.closeMeeting(ctx, id, userID, isAdmin, tenantID, domain.ActionCancel, req)
}

func (s *Service) closeMeeting(ctx context.Context, id, userID uuid.UUID, isAdmin bool, tenantID uuid.UUID, action domain.MeetingAction, req transport.MeetingActionRequest) (*transport.MeetingEnvelope, error) {
	actor, err := s.resolveActor(ctx, tenantID, userID, isAdmin)
	if err != nil {
		return nil, err
	}

	meeting, err := s.store.GetMeeting(ctx, id, tenantID)
	if err != nil {
		return nil, err
	}
	if !canCloseMeeting(actor, meeting, action) {
		return nil, apperr.Forbidden("not authorized to change this meeting").WithCode(apperr.CodeNotPermitted)
	}
	if _, err := domain.NextMeetingStatus(domain.MeetingStatus(meeting.Status), action); err != nil {
		return nil, mapDomainError(err)
	}

	targetStatus, pipelineEvent, _ := action.Target()
	notes := sanitize.TextPtr(nilIfEmpty(req.Notes))
	var pipeline *repository.Pipeline
	var oldStatus, oldPipelineStatus string

	err = s.store.RunInTx(ctx, func(tx repository.Store) error {
		locked, err := tx.GetMeetingForUpdate(ctx, id, tenantID)
		if err != nil {
			return err
		}
		oldStatus = locked.Status
		if _, err := domain.NextMeetingStatus(domain.MeetingStatus(locked.Status), action); err != nil {
			return mapDomainError(err)
		}

		var completedAt *time.Time
		if action == domain.ActionComplete {
			completedAt = timePtr(s.now().UTC())
		}
		if err := tx.UpdateMeetingStatus(ctx, id, tenantID, string(targetStatus), completedAt, notes); err != nil {
			return err
		}
		locked.Status = string(targetStatus)
		locked.CompletedAt = completedAt
		if notes != nil {
			locked.Notes = notes
		}
		meeting = locked

		if locked.TrialPipelineID == nil {
			return nil
		}
		pipeline, err = tx.GetPipelineForUpdate(ctx, *locked.TrialPipelineID, tenantID)
		if err != nil {
			return err
		}
		oldPipelineStatus = pipeline.ActivationStatus
		if domain.PipelineStatus(pipeline.ActivationStatus).IsTerminal() {
			// Closing a meeting of a killed or activated trial leaves the pipeline as is.
			return nil
		}
		if err := s.applyPipelineEvent(pipeline, pipelineEvent); err != nil {
			return err
		}
		if action == domain.ActionCancel {
			pipeline.ScheduledStartAt = nil
			pipeline.ScheduledEndAt = nil
		}
		return tx.UpdatePipeline(ctx, pipeline)
	})
	if err != nil {
		return nil, err
	}

	if pipeline != nil {
		s.appendAudit(ctx, repository.Event{
			OrganizationID:  tenantID,
			TrialPipelineID: pipeline.ID,
			MeetingID:       &meeting.ID,
			EventType:       action.AuditType(),
			ActorUserID:     &actor.UserID,
			Metadata: map[string]any{
				"oldStatus":      oldStatus,
				"newStatus":      meeting.Status,
				"pipelineStatus": pipeline.ActivationStatus,
				"noShowCount":    pipeline.NoShowCount,
				"actorRole":      actor.Role,
			},
		})
		s.publishPipelineChange(ctx, pipeline, oldPipelineStatus, &actor.UserID)
	}

	s.publish(ctx, events.MeetingStatusChanged{
		BaseEvent:      events.NewBaseEvent(),
		MeetingDetails: s.meetingDetails(ctx, meeting, pipeline),
		OldStatus:      oldStatus,
		NewStatus:      meeting.Status,
		ChangedBy:      actor.UserID,
	})

	return &transport.MeetingEnvelope{Success: true, Meeting: meeting.ToResponse()}, nil
}

// canCloseMeeting: the assigned activator or an admin may complete or mark a
// no-show; the scheduling SDR may additionally cancel.
func canCloseMeeting(actor domain.Actor, m *repository.Meeting, action domain.MeetingAction) bool {
	if actor.Role == domain.RoleAdmin || actor.UserID == m.ActivatorUserID {
		return true
	}
	return action == domain.ActionCancel && actor.UserID == m.ScheduledBySDRUserID
}

// SendConfirmation re-queues the confirmation email and SMS for a scheduled meeting.
func (s *Service) SendConfirmation(ctx context.Context, id, userID uuid.UUID, isAdmin bool, tenantID uuid.UUID) (*transport.SendConfirmationResponse, error) {
	actor, err := s.resolveActor(ctx, tenantID, userID, isAdmin)
	if err != nil {
		return nil, err
	}
	meeting, err := s.store.GetMeeting(ctx, id, tenantID)
	if err != nil {
		return nil, err
	}
	if !domain.CanManageMeeting(actor, meeting.ActivatorUserID, meeting.ScheduledBySDRUserID) {
		return nil, apperr.Forbidden("not authorized to change this meeting").WithCode(apperr.CodeNotPermitted)
	}
	if domain.MeetingStatus(meeting.Status).IsTerminal() {
		return nil, apperr.Conflict("confirmations are only sent for scheduled meetings").WithCode(apperr.CodeInvalidTransition)
	}

	var pipeline *repository.Pipeline
	if meeting.TrialPipelineID != nil {
		if p, err := s.store.GetPipeline(ctx, *meeting.TrialPipelineID, tenantID); err == nil {
			pipeline = p
		}
	}

	s.publish(ctx, events.MeetingConfirmationRequested{
		BaseEvent:      events.NewBaseEvent(),
		MeetingDetails: s.meetingDetails(ctx, meeting, pipeline),
		RequestedBy:    actor.UserID,
	})
	return &transport.SendConfirmationResponse{Success: true, Queued: s.eventBus != nil}, nil
}

// RecordConfirmationSent stores the delivery time of a confirmation and audits it.
// It is called by the notification module after a successful send.
func (s *Service) RecordConfirmationSent(ctx context.Context, tenantID, meetingID uuid.UUID, channel string) error {
	sentAt := s.now().UTC()
	if err := s.store.MarkConfirmationSent(ctx, meetingID, tenantID, channel, sentAt); err != nil {
		return err
	}
	meeting, err := s.store.GetMeeting(ctx, meetingID, tenantID)
	if err != nil || meeting.TrialPipelineID == nil {
		return nil
	}
	s.appendAudit(ctx, repository.Event{
		OrganizationID:  tenantID,
		TrialPipelineID: *meeting.TrialPipelineID,
		MeetingID:       &meeting.ID,
		EventType:       domain.AuditConfirmationSent,
		Metadata:        map[string]any{"channel": channel, "sentAt": sentAt},
	})
	return nil
}

// ReminderTarget returns the event snapshot for a reminder, or nil when the
// meeting is no longer scheduled at startAt.
func (s *Service) ReminderTarget(ctx context.Context, tenantID, meetingID uuid.UUID, startAt time.Time) (*events.MeetingDetails, error) {
	meeting, err := s.store.GetMeeting(ctx, meetingID, tenantID)
	if err != nil {
		return nil, err
	}
	if meeting.Status != string(domain.MeetingScheduled) || !meeting.ScheduledStartAt.Equal(startAt) {
		return nil, nil
	}
	details := s.meetingDetails(ctx, meeting, nil)
	return &details, nil
}
