package domain

import (
	"errors"
	"testing"
	"time"
)

var allEvents = []PipelineEvent{
	EventBooked, EventRescheduled, EventMeetingCompleted, EventNoShow,
	EventMeetingCanceled, EventActivated, EventKilled,
}

func TestNextStateTable(t *testing.T) {
	allowed := map[PipelineStatus]map[PipelineEvent]PipelineStatus{
		PipelineQueued:    {EventBooked: PipelineScheduled, EventKilled: PipelineKilled},
		PipelineScheduled: {EventRescheduled: PipelineScheduled, EventMeetingCompleted: PipelineCompleted, EventNoShow: PipelineNoShow, EventMeetingCanceled: PipelineQueued, EventActivated: PipelineActivated, EventKilled: PipelineKilled},
		PipelineCompleted: {EventActivated: PipelineActivated, EventKilled: PipelineKilled},
		PipelineNoShow:    {EventBooked: PipelineScheduled, EventKilled: PipelineKilled},
		PipelineActivated: {},
		PipelineKilled:    {},
	}

	for from, accepted := range allowed {
		for _, event := range allEvents {
			got, err := NextState(from, event)
			want, ok := accepted[event]
			if ok {
				if err != nil {
					t.Errorf("%s --%s--> expected %s, got error %v", from, event, want, err)
				} else if got != want {
					t.Errorf("%s --%s--> expected %s, got %s", from, event, want, got)
				}
				continue
			}

			var invalid *InvalidTransitionError
			if !errors.As(err, &invalid) {
				t.Errorf("%s --%s--> expected InvalidTransitionError, got %v", from, event, err)
				continue
			}
			if got != from {
				t.Errorf("%s --%s--> rejected transition must keep status, got %s", from, event, got)
			}
		}
	}
}

func TestTerminalStatesRejectEverything(t *testing.T) {
	for _, from := range []PipelineStatus{PipelineActivated, PipelineKilled} {
		if !from.IsTerminal() {
			t.Fatalf("%s should be terminal", from)
		}
		for _, event := range allEvents {
			if _, err := NextState(from, event); err == nil {
				t.Errorf("terminal %s accepted %s", from, event)
			}
		}
	}
}

func TestApplyNoShowSideRules(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC)
	state := PipelineState{
		Status:            PipelineScheduled,
		RescheduleCount:   1,
		AttemptsCount:     1,
		FollowupOwnerRole: FollowupOwnerActivator,
	}

	next, err := state.Apply(EventNoShow, now, 24*time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next.Status != PipelineNoShow {
		t.Fatalf("expected no_show, got %s", next.Status)
	}
	if next.NoShowCount != 1 {
		t.Fatalf("expected no_show_count 1, got %d", next.NoShowCount)
	}
	if next.FollowupOwnerRole != FollowupOwnerSDR {
		t.Fatalf("expected sdr to own followup, got %s", next.FollowupOwnerRole)
	}
	if next.RescheduleCount != 0 {
		t.Fatalf("owner change must reset reschedule_count, got %d", next.RescheduleCount)
	}
	if next.NextFollowupAt == nil || !next.NextFollowupAt.Equal(now.Add(24*time.Hour)) {
		t.Fatalf("expected followup 24h later, got %v", next.NextFollowupAt)
	}
	if state.Status != PipelineScheduled || state.NoShowCount != 0 {
		t.Fatal("Apply must not mutate the receiver")
	}
}

func TestApplyKeepsCountWhenOwnerUnchanged(t *testing.T) {
	state := PipelineState{
		Status:            PipelineScheduled,
		RescheduleCount:   1,
		FollowupOwnerRole: FollowupOwnerSDR,
	}

	next, err := state.Apply(EventNoShow, time.Now(), 24*time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next.RescheduleCount != 1 {
		t.Fatalf("reschedule_count must survive when owner stays sdr, got %d", next.RescheduleCount)
	}
}

func TestApplyCompletedHandsOffToActivator(t *testing.T) {
	state := PipelineState{Status: PipelineScheduled, RescheduleCount: 1, FollowupOwnerRole: FollowupOwnerSDR}

	next, err := state.Apply(EventMeetingCompleted, time.Now(), 24*time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next.Status != PipelineCompleted || next.FollowupOwnerRole != FollowupOwnerActivator {
		t.Fatalf("unexpected state %+v", next)
	}
	if next.RescheduleCount != 0 {
		t.Fatalf("expected reschedule_count reset, got %d", next.RescheduleCount)
	}
}

func TestApplyBookedCountsAttempt(t *testing.T) {
	followup := time.Now()
	state := PipelineState{Status: PipelineNoShow, AttemptsCount: 1, NextFollowupAt: &followup}

	next, err := state.Apply(EventBooked, time.Now(), 24*time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next.AttemptsCount != 2 || next.Status != PipelineScheduled || next.NextFollowupAt != nil {
		t.Fatalf("unexpected state %+v", next)
	}
}
