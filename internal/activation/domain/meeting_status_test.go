package domain

import (
	"errors"
	"testing"
)

func TestNextMeetingStatus(t *testing.T) {
	cases := []struct {
		name    string
		current MeetingStatus
		action  MeetingAction
		want    MeetingStatus
		dup     bool
		closed  bool
	}{
		{"complete scheduled", MeetingScheduled, ActionComplete, MeetingCompleted, false, false},
		{"no-show scheduled", MeetingScheduled, ActionNoShow, MeetingNoShow, false, false},
		{"cancel scheduled", MeetingScheduled, ActionCancel, MeetingCanceled, false, false},
		{"complete legacy rescheduled", MeetingRescheduled, ActionComplete, MeetingCompleted, false, false},
		{"complete twice", MeetingCompleted, ActionComplete, MeetingCompleted, true, false},
		{"no-show twice", MeetingNoShow, ActionNoShow, MeetingNoShow, true, false},
		{"cancel after complete", MeetingCompleted, ActionCancel, MeetingCompleted, false, true},
		{"complete after cancel", MeetingCanceled, ActionComplete, MeetingCanceled, false, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NextMeetingStatus(tc.current, tc.action)
			if got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
			var dup *ErrDuplicateTerminalAction
			var closed *ErrMeetingClosed
			if errors.As(err, &dup) != tc.dup {
				t.Fatalf("duplicate mismatch: %v", err)
			}
			if errors.As(err, &closed) != tc.closed {
				t.Fatalf("closed mismatch: %v", err)
			}
			if !tc.dup && !tc.closed && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
