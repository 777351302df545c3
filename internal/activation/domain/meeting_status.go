package domain

import "fmt"

// MeetingAction is a terminal action taken on a scheduled meeting.
type MeetingAction string

const (
	ActionComplete MeetingAction = "complete"
	ActionNoShow   MeetingAction = "no_show"
	ActionCancel   MeetingAction = "cancel"
)

// ErrDuplicateTerminalAction is returned when a meeting already carries the
// status the action would set.
type ErrDuplicateTerminalAction struct {
	Status MeetingStatus
}

func (e *ErrDuplicateTerminalAction) Error() string {
	return fmt.Sprintf("meeting is already %s", e.Status)
}

// ErrMeetingClosed is returned for an action on a meeting already closed with a different outcome.
type ErrMeetingClosed struct {
	Status MeetingStatus
}

func (e *ErrMeetingClosed) Error() string {
	return fmt.Sprintf("meeting is %s and can no longer change", e.Status)
}

// Target returns the meeting status the action sets and the pipeline event it drives.
func (a MeetingAction) Target() (MeetingStatus, PipelineEvent, bool) {
	switch a {
	case ActionComplete:
		return MeetingCompleted, EventMeetingCompleted, true
	case ActionNoShow:
		return MeetingNoShow, EventNoShow, true
	case ActionCancel:
		return MeetingCanceled, EventMeetingCanceled, true
	}
	return "", "", false
}

// AuditType is the activation_events type recorded for the action.
func (a MeetingAction) AuditType() string {
	switch a {
	case ActionComplete:
		return AuditCompleted
	case ActionNoShow:
		return AuditNoShow
	default:
		return AuditCanceled
	}
}

// NextMeetingStatus validates action against the current meeting status.
// Repeating the action that closed the meeting yields ErrDuplicateTerminalAction.
func NextMeetingStatus(current MeetingStatus, action MeetingAction) (MeetingStatus, error) {
	target, _, ok := action.Target()
	if !ok {
		return current, fmt.Errorf("unknown meeting action %q", action)
	}
	if current == target {
		return current, &ErrDuplicateTerminalAction{Status: current}
	}
	if current.IsTerminal() {
		return current, &ErrMeetingClosed{Status: current}
	}
	return target, nil
}
