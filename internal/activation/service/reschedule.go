package service

import (
	"context"
	"time"

	"activation_backend/internal/activation/domain"
	"activation_backend/internal/activation/repository"
	"activation_backend/internal/activation/transport"
	"activation_backend/internal/events"
	"activation_backend/platform/apperr"
	"activation_backend/platform/sanitize"

	"github.com/google/uuid"
)

// Reschedule moves a scheduled meeting to a new slot. SDRs get one
// reschedule per pipeline owner; activators and admins are unlimited.
func (s *Service) Reschedule(ctx context.Context, userID uuid.UUID, isAdmin bool, tenantID uuid.UUID, req transport.RescheduleRequest) (*transport.RescheduleResponse, error) {
	actor, err := s.resolveActor(ctx, tenantID, userID, isAdmin)
	if err != nil {
		return nil, err
	}

	newStart := req.NewSlotStartAt.UTC().Truncate(time.Minute)
	if newStart.IsZero() {
		return nil, apperr.Validation("newSlotStartAt is required")
	}
	newEnd := domain.MeetingEnd(newStart)
	if req.NewSlotEndAt != nil && !req.NewSlotEndAt.UTC().Truncate(time.Minute).Equal(newEnd) {
		return nil, apperr.Validation("newSlotEndAt must be 30 minutes after newSlotStartAt")
	}
	reason := sanitize.Text(req.Reason)

	var (
		meeting          *repository.Meeting
		pipeline         *repository.Pipeline
		oldStart, oldEnd time.Time
		countIncremented bool
	)

	err = s.store.RunInTx(ctx, func(tx repository.Store) error {
		current, err := tx.GetMeeting(ctx, req.MeetingID, tenantID)
		if err != nil {
			return err
		}
		// Same lock order as booking: activator first, then rows.
		if err := tx.LockActivator(ctx, current.ActivatorUserID); err != nil {
			return err
		}
		meeting, err = tx.GetMeetingForUpdate(ctx, req.MeetingID, tenantID)
		if err != nil {
			return err
		}
		if !domain.CanManageMeeting(actor, meeting.ActivatorUserID, meeting.ScheduledBySDRUserID) {
			return mapDomainError(domain.ErrNotMeetingParticipant)
		}
		if meeting.Status != string(domain.MeetingScheduled) {
			return apperr.Conflict("only scheduled meetings can be rescheduled").WithCode(apperr.CodeInvalidTransition)
		}

		if meeting.TrialPipelineID != nil {
			pipeline, err = tx.GetPipelineForUpdate(ctx, *meeting.TrialPipelineID, tenantID)
			if err != nil {
				return err
			}
			increment, err := domain.CheckReschedule(actor.Role, pipeline.RescheduleCount)
			if err != nil {
				return mapDomainError(err)
			}
			countIncremented = increment
		} else if _, err := domain.CheckReschedule(actor.Role, 0); err != nil {
			return mapDomainError(err)
		}

		conflict, err := tx.FindConflict(ctx, tenantID, meeting.ActivatorUserID, newStart, newEnd, &meeting.ID)
		if err != nil {
			return err
		}
		if conflict != nil {
			return slotConflict(conflict.ScheduledStartAt, conflict.ScheduledEndAt)
		}

		if err := tx.UpdateMeetingSchedule(ctx, meeting.ID, tenantID, newStart, newEnd); err != nil {
			return err
		}
		oldStart, oldEnd = meeting.ScheduledStartAt, meeting.ScheduledEndAt
		meeting.ScheduledStartAt, meeting.ScheduledEndAt = newStart, newEnd
		meeting.UpdatedAt = s.now().UTC()

		if pipeline == nil {
			return nil
		}
		if err := s.applyPipelineEvent(pipeline, domain.EventRescheduled); err != nil {
			return err
		}
		if countIncremented {
			pipeline.RescheduleCount++
		}
		pipeline.ScheduledStartAt = timePtr(newStart)
		pipeline.ScheduledEndAt = timePtr(newEnd)
		return tx.UpdatePipeline(ctx, pipeline)
	})
	if err != nil {
		return nil, err
	}

	resp := &transport.RescheduleResponse{Success: true, Meeting: meeting.ToResponse()}
	if pipeline != nil {
		count := pipeline.RescheduleCount
		resp.RescheduleCount = &count

		s.appendAudit(ctx, repository.Event{
			OrganizationID:  tenantID,
			TrialPipelineID: pipeline.ID,
			MeetingID:       &meeting.ID,
			EventType:       domain.AuditRescheduled,
			ActorUserID:     &actor.UserID,
			Metadata: map[string]any{
				"oldStartAt":      oldStart,
				"oldEndAt":        oldEnd,
				"newStartAt":      newStart,
				"newEndAt":        newEnd,
				"reason":          reason,
				"actorRole":       actor.Role,
				"rescheduleCount": pipeline.RescheduleCount,
			},
		})
	}

	s.publish(ctx, events.MeetingRescheduled{
		BaseEvent:       events.NewBaseEvent(),
		MeetingDetails:  s.meetingDetails(ctx, meeting, pipeline),
		PreviousStartAt: oldStart,
		PreviousEndAt:   oldEnd,
		Reason:          reason,
		RescheduledBy:   actor.UserID,
		ActorRole:       string(actor.Role),
	})

	return resp, nil
}
