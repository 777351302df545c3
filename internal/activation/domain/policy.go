package domain

import (
	"errors"

	"github.com/google/uuid"
)

// SDRRescheduleLimit is the number of reschedules an SDR may perform per pipeline.
const SDRRescheduleLimit = 1

var (
	// ErrRescheduleLimitReached is returned when an SDR has used their reschedule.
	ErrRescheduleLimitReached = errors.New("sdr reschedule limit reached")
	// ErrNotMeetingParticipant is returned for actors unrelated to the meeting.
	ErrNotMeetingParticipant = errors.New("actor may not change this meeting")
)

// Actor is the user performing an action, with the role from their profile.
type Actor struct {
	UserID uuid.UUID
	Role   Role
}

// IsElevated reports whether the actor has unlimited reschedules.
func (a Actor) IsElevated() bool {
	return a.Role == RoleActivator || a.Role == RoleAdmin
}

// CanManageMeeting reports whether actor is the assigned activator, the
// scheduling SDR, or an admin.
func CanManageMeeting(actor Actor, activatorID, scheduledBySDR uuid.UUID) bool {
	if actor.Role == RoleAdmin {
		return true
	}
	return actor.UserID == activatorID || actor.UserID == scheduledBySDR
}

// CheckReschedule applies the reschedule allowance. It reports whether the
// pipeline's reschedule_count must be incremented on success.
func CheckReschedule(role Role, rescheduleCount int) (increment bool, err error) {
	switch role {
	case RoleActivator, RoleAdmin:
		return false, nil
	case RoleSDR:
		if rescheduleCount >= SDRRescheduleLimit {
			return false, ErrRescheduleLimitReached
		}
		return true, nil
	}
	return false, ErrNotMeetingParticipant
}
