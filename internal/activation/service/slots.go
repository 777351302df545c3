package service

import (
	"context"
	"time"

	"activation_backend/internal/activation/domain"
	"activation_backend/internal/activation/transport"
	"activation_backend/platform/apperr"

	"github.com/google/uuid"
)

// GetSlots returns the free 30 minute slots of an activator on one local day.
func (s *Service) GetSlots(ctx context.Context, userID uuid.UUID, isAdmin bool, tenantID uuid.UUID, req transport.SlotsRequest) (*transport.SlotsResponse, error) {
	if _, err := s.resolveActor(ctx, tenantID, userID, isAdmin); err != nil {
		return nil, err
	}

	activatorID, err := uuid.Parse(req.ActivatorUserID)
	if err != nil {
		return nil, apperr.BadRequest("invalid activatorUserId format")
	}
	loc, err := time.LoadLocation(req.Timezone)
	if err != nil {
		return nil, apperr.Validation("timezone must be an IANA timezone name")
	}
	day, err := time.ParseInLocation(dateFormat, req.Date, loc)
	if err != nil {
		return nil, apperr.BadRequest("invalid date format, expected YYYY-MM-DD")
	}

	windowStart, err := atClock(day, s.settings.WorkdayStart)
	if err != nil {
		return nil, err
	}
	windowEnd, err := atClock(day, s.settings.WorkdayEnd)
	if err != nil {
		return nil, err
	}

	profile, err := s.profiles.GetProfile(ctx, tenantID, activatorID)
	if err != nil {
		return nil, err
	}
	if !profile.Role.CanHostMeetings() {
		return nil, apperr.Validation("activatorUserId does not have the activator role")
	}

	scheduled, err := s.store.ListScheduledInRange(ctx, tenantID, activatorID, windowStart.UTC(), windowEnd.UTC())
	if err != nil {
		return nil, err
	}
	busy := make([]domain.Interval, len(scheduled))
	for i, m := range scheduled {
		busy[i] = domain.Interval{Start: m.ScheduledStartAt, End: m.ScheduledEndAt}
	}

	now := s.now()
	slots := make([]transport.TimeSlot, 0)
	for _, slot := range domain.FreeSlots(windowStart, windowEnd, domain.MeetingDuration, busy) {
		if slot.Start.Before(now) {
			continue
		}
		slots = append(slots, transport.TimeSlot{StartAt: slot.Start.UTC(), EndAt: slot.End.UTC()})
	}

	return &transport.SlotsResponse{
		ActivatorUserID: activatorID,
		Date:            req.Date,
		Timezone:        req.Timezone,
		Slots:           slots,
	}, nil
}

// atClock returns day at the HH:MM wall clock in day's location.
func atClock(day time.Time, clock string) (time.Time, error) {
	t, err := time.Parse(clockFormat, clock)
	if err != nil {
		return time.Time{}, apperr.Internal("invalid workday configuration")
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, day.Location()), nil
}
