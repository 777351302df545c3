package domain

import (
	"fmt"
	"time"
)

// InvalidTransitionError is returned for an event the current state does not accept.
type InvalidTransitionError struct {
	From  PipelineStatus
	Event PipelineEvent
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot apply %s to pipeline in status %s", e.Event, e.From)
}

var transitions = map[PipelineStatus]map[PipelineEvent]PipelineStatus{
	PipelineQueued: {
		EventBooked: PipelineScheduled,
		EventKilled: PipelineKilled,
	},
	PipelineScheduled: {
		EventRescheduled:      PipelineScheduled,
		EventMeetingCompleted: PipelineCompleted,
		EventNoShow:           PipelineNoShow,
		EventMeetingCanceled:  PipelineQueued,
		EventActivated:        PipelineActivated,
		EventKilled:           PipelineKilled,
	},
	PipelineCompleted: {
		EventActivated: PipelineActivated,
		EventKilled:    PipelineKilled,
	},
	PipelineNoShow: {
		EventBooked: PipelineScheduled,
		EventKilled: PipelineKilled,
	},
}

// NextState returns the status reached by applying event to current.
// Every pipeline mutation goes through this function.
func NextState(current PipelineStatus, event PipelineEvent) (PipelineStatus, error) {
	next, ok := transitions[current][event]
	if !ok {
		return current, &InvalidTransitionError{From: current, Event: event}
	}
	return next, nil
}

// PipelineState is the mutable part of a trial pipeline touched by transitions.
type PipelineState struct {
	Status            PipelineStatus
	RescheduleCount   int
	AttemptsCount     int
	NoShowCount       int
	FollowupOwnerRole FollowupOwner
	NextFollowupAt    *time.Time
}

// Apply validates event against s.Status and returns the resulting state with
// the side rules applied. s itself is not modified.
func (s PipelineState) Apply(event PipelineEvent, now time.Time, followupDelay time.Duration) (PipelineState, error) {
	next, err := NextState(s.Status, event)
	if err != nil {
		return s, err
	}

	out := s
	out.Status = next

	switch event {
	case EventBooked:
		out.AttemptsCount++
		out.NextFollowupAt = nil
	case EventNoShow:
		out.NoShowCount++
		followup := now.Add(followupDelay)
		out.NextFollowupAt = &followup
		out.setOwner(FollowupOwnerSDR)
	case EventMeetingCompleted:
		out.NextFollowupAt = nil
		out.setOwner(FollowupOwnerActivator)
	case EventActivated, EventKilled:
		out.NextFollowupAt = nil
	}

	return out, nil
}

// setOwner changes the follow-up owner; a change of owner resets the reschedule allowance.
func (s *PipelineState) setOwner(owner FollowupOwner) {
	if s.FollowupOwnerRole != owner {
		s.RescheduleCount = 0
	}
	s.FollowupOwnerRole = owner
}
