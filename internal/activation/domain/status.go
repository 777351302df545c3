// Package domain holds the pure rules of activation scheduling: meeting and
// pipeline statuses, the pipeline state machine, the reschedule policy and
// the slot overlap test. Nothing here touches storage or the network.
package domain

// MeetingStatus is the lifecycle state of an activation meeting.
type MeetingStatus string

const (
	MeetingScheduled MeetingStatus = "scheduled"
	// MeetingRescheduled is only found on rows written before reschedules
	// became a single write. It is accepted on read and in list filters.
	MeetingRescheduled MeetingStatus = "rescheduled"
	MeetingCompleted   MeetingStatus = "completed"
	MeetingNoShow      MeetingStatus = "no_show"
	MeetingCanceled    MeetingStatus = "canceled"
)

// IsTerminal reports whether no further meeting action is allowed.
func (s MeetingStatus) IsTerminal() bool {
	switch s {
	case MeetingCompleted, MeetingNoShow, MeetingCanceled:
		return true
	}
	return false
}

// PipelineStatus is the activation_status of a trial pipeline.
type PipelineStatus string

const (
	PipelineQueued    PipelineStatus = "queued"
	PipelineScheduled PipelineStatus = "scheduled"
	PipelineCompleted PipelineStatus = "completed"
	PipelineNoShow    PipelineStatus = "no_show"
	PipelineActivated PipelineStatus = "activated"
	PipelineKilled    PipelineStatus = "killed"
)

// IsTerminal reports whether the pipeline accepts no further events.
func (s PipelineStatus) IsTerminal() bool {
	return s == PipelineActivated || s == PipelineKilled
}

// Valid reports whether s is a known pipeline status.
func (s PipelineStatus) Valid() bool {
	switch s {
	case PipelineQueued, PipelineScheduled, PipelineCompleted, PipelineNoShow, PipelineActivated, PipelineKilled:
		return true
	}
	return false
}

// PipelineEvent drives a pipeline transition.
type PipelineEvent string

const (
	EventBooked           PipelineEvent = "booked"
	EventRescheduled      PipelineEvent = "rescheduled"
	EventMeetingCompleted PipelineEvent = "meeting_completed"
	EventNoShow           PipelineEvent = "no_show"
	EventMeetingCanceled  PipelineEvent = "meeting_canceled"
	EventActivated        PipelineEvent = "activated"
	EventKilled           PipelineEvent = "killed"
)

// Role is the actor's role flag on their profile.
type Role string

const (
	RoleSDR       Role = "sdr"
	RoleActivator Role = "activator"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleSDR || r == RoleActivator || r == RoleAdmin
}

// CanHostMeetings reports whether a profile with this role may be booked as activator.
func (r Role) CanHostMeetings() bool {
	return r == RoleActivator || r == RoleAdmin
}

// FollowupOwner is the role that owns the next follow-up on a pipeline.
type FollowupOwner string

const (
	FollowupOwnerSDR       FollowupOwner = "sdr"
	FollowupOwnerActivator FollowupOwner = "activator"
)

// Audit event types written to activation_events.
const (
	AuditScheduled        = "scheduled"
	AuditRescheduled      = "rescheduled"
	AuditCompleted        = "completed"
	AuditNoShow           = "no_show"
	AuditCanceled         = "canceled"
	AuditPipelineCreated  = "pipeline_created"
	AuditKilled           = "killed"
	AuditActivated        = "activated"
	AuditConfirmationSent = "confirmation_sent"
)
