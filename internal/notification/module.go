// Package notification provides event handlers for sending notifications
// (email, SMS, Control Tower sync) in response to activation events.
// Domain modules publish events and never talk to providers directly.
package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	activationsvc "activation_backend/internal/activation/service"
	"activation_backend/internal/email"
	"activation_backend/internal/events"
	"activation_backend/internal/leads"
	"activation_backend/internal/scheduler"
	"activation_backend/platform/config"
	"activation_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	channelEmail = "email"
	channelSMS   = "sms"

	reminderLeadTime = 24 * time.Hour
)

// MeetingTracker is the part of the activation service the notifier calls back into.
type MeetingTracker interface {
	RecordConfirmationSent(ctx context.Context, tenantID, meetingID uuid.UUID, channel string) error
	ReminderTarget(ctx context.Context, tenantID, meetingID uuid.UUID, startAt time.Time) (*events.MeetingDetails, error)
	FollowupContact(ctx context.Context, tenantID, pipelineID uuid.UUID) (*activationsvc.FollowupContact, error)
}

// SMSSender delivers a plain text message to an E.164 number.
type SMSSender interface {
	SendMessage(ctx context.Context, phoneNumber string, message string) error
}

type Module struct {
	sender    email.Sender
	cfg       config.NotificationConfig
	log       *logger.Logger
	tracker   MeetingTracker
	leads     leads.Service
	sms       SMSSender
	tower     TowerSyncer
	reminders scheduler.ReminderScheduler
	outbox    OutboxStore
	now       func() time.Time
}

// New creates a new notification module.
func New(sender email.Sender, cfg config.NotificationConfig, log *logger.Logger) *Module {
	if sender == nil {
		sender = email.NoopSender{}
	}
	return &Module{
		sender: sender,
		cfg:    cfg,
		log:    log,
		now:    time.Now,
	}
}

// SetMeetingTracker wires the activation service for confirmation flags,
// reminder re-checks and follow-up owners.
func (m *Module) SetMeetingTracker(t MeetingTracker) { m.tracker = t }

// SetLeadReader wires lead lookups for the business name shown in emails.
func (m *Module) SetLeadReader(r leads.Service) { m.leads = r }

func (m *Module) SetSMSSender(s SMSSender) { m.sms = s }

func (m *Module) SetTowerSyncer(t TowerSyncer) { m.tower = t }

func (m *Module) SetReminderScheduler(s scheduler.ReminderScheduler) { m.reminders = s }

// SetNotificationOutbox routes Control Tower sync through the outbox.
// Without it updates are sent directly.
func (m *Module) SetNotificationOutbox(store OutboxStore) { m.outbox = store }

func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.MeetingScheduled{}.EventName(), m)
	bus.Subscribe(events.MeetingRescheduled{}.EventName(), m)
	bus.Subscribe(events.MeetingStatusChanged{}.EventName(), m)
	bus.Subscribe(events.MeetingConfirmationRequested{}.EventName(), m)
	bus.Subscribe(events.MeetingReminderDue{}.EventName(), m)

	bus.Subscribe(events.TrialPipelineStatusChanged{}.EventName(), m)
	bus.Subscribe(events.FollowupDue{}.EventName(), m)

	bus.Subscribe(events.NotificationOutboxDue{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.MeetingScheduled:
		return m.handleMeetingScheduled(ctx, e)
	case events.MeetingRescheduled:
		return m.handleMeetingRescheduled(ctx, e)
	case events.MeetingStatusChanged:
		return m.handleMeetingStatusChanged(ctx, e)
	case events.MeetingConfirmationRequested:
		return m.handleConfirmationRequested(ctx, e)
	case events.MeetingReminderDue:
		return m.handleMeetingReminderDue(ctx, e)
	case events.TrialPipelineStatusChanged:
		return m.handlePipelineStatusChanged(ctx, e)
	case events.FollowupDue:
		return m.handleFollowupDue(ctx, e)
	case events.NotificationOutboxDue:
		return m.handleNotificationOutboxDue(ctx, e)
	default:
		m.log.Warn("unhandled event type", "event", event.EventName())
		return nil
	}
}

func (m *Module) handleMeetingScheduled(ctx context.Context, e events.MeetingScheduled) error {
	m.sendConfirmation(ctx, e.MeetingDetails)
	m.scheduleReminder(ctx, e.MeetingDetails)
	m.syncMeeting(ctx, e.MeetingDetails, "scheduled", e.OccurredAt())
	return nil
}

func (m *Module) handleConfirmationRequested(ctx context.Context, e events.MeetingConfirmationRequested) error {
	m.sendConfirmation(ctx, e.MeetingDetails)
	return nil
}

func (m *Module) handleMeetingRescheduled(ctx context.Context, e events.MeetingRescheduled) error {
	d := e.MeetingDetails
	msg := m.meetingEmail(ctx, d)

	if d.AttendeeEmail != "" {
		if err := m.sender.SendMeetingRescheduledEmail(ctx, d.AttendeeEmail, msg, e.PreviousStartAt); err != nil {
			m.log.BestEffortFailure(ctx, "send_rescheduled_email", err, "meeting_id", d.MeetingID.String())
		} else {
			m.recordConfirmation(ctx, d, channelEmail)
		}
	}
	if m.sendSMS(ctx, d, rescheduledSMS(msg)) {
		m.recordConfirmation(ctx, d, channelSMS)
	}

	m.scheduleReminder(ctx, d)
	m.syncMeeting(ctx, d, "rescheduled", e.OccurredAt())
	return nil
}

func (m *Module) handleMeetingStatusChanged(ctx context.Context, e events.MeetingStatusChanged) error {
	d := e.MeetingDetails
	if e.NewStatus == "canceled" {
		msg := m.meetingEmail(ctx, d)
		if d.AttendeeEmail != "" {
			if err := m.sender.SendMeetingCanceledEmail(ctx, d.AttendeeEmail, msg); err != nil {
				m.log.BestEffortFailure(ctx, "send_canceled_email", err, "meeting_id", d.MeetingID.String())
			}
		}
		m.sendSMS(ctx, d, canceledSMS(msg))
	}
	m.syncMeeting(ctx, d, e.NewStatus, e.OccurredAt())
	return nil
}

// handleMeetingReminderDue sends the day-before reminder unless the meeting
// was moved or closed after the reminder was queued.
func (m *Module) handleMeetingReminderDue(ctx context.Context, e events.MeetingReminderDue) error {
	if m.tracker == nil {
		m.log.Debug("meeting tracker not configured; skipping reminder", "meetingId", e.MeetingID)
		return nil
	}

	d, err := m.tracker.ReminderTarget(ctx, e.OrganizationID, e.MeetingID, e.StartAt)
	if err != nil {
		m.log.BestEffortFailure(ctx, "load_reminder_target", err, "meeting_id", e.MeetingID.String())
		return nil
	}
	if d == nil {
		m.log.Debug("reminder is stale; skipping", "meetingId", e.MeetingID, "startAt", e.StartAt)
		return nil
	}

	msg := m.meetingEmail(ctx, *d)
	if d.AttendeeEmail != "" {
		if err := m.sender.SendMeetingReminderEmail(ctx, d.AttendeeEmail, msg); err != nil {
			m.log.BestEffortFailure(ctx, "send_reminder_email", err, "meeting_id", d.MeetingID.String())
		}
	}
	m.sendSMS(ctx, *d, reminderSMS(msg))
	return nil
}

func (m *Module) handleFollowupDue(ctx context.Context, e events.FollowupDue) error {
	if m.tracker == nil {
		return nil
	}

	contact, err := m.tracker.FollowupContact(ctx, e.OrganizationID, e.TrialPipelineID)
	if err != nil {
		m.log.BestEffortFailure(ctx, "load_followup_contact", err, "trial_pipeline_id", e.TrialPipelineID.String())
		return nil
	}
	if contact.OwnerEmail == "" {
		m.log.Warn("followup owner has no email", "trialPipelineId", e.TrialPipelineID, "ownerRole", e.OwnerRole)
		return nil
	}

	err = m.sender.SendFollowupDueEmail(ctx, contact.OwnerEmail, email.Followup{
		OwnerName:    contact.OwnerName,
		BusinessName: contact.BusinessName,
		NoShowCount:  e.NoShowCount,
		PipelineURL:  m.buildURL("/trial-pipelines/" + e.TrialPipelineID.String()),
	})
	if err != nil {
		m.log.BestEffortFailure(ctx, "send_followup_email", err, "trial_pipeline_id", e.TrialPipelineID.String())
	}
	return nil
}

// sendConfirmation sends the confirmation email and SMS and records each
// channel that went out.
func (m *Module) sendConfirmation(ctx context.Context, d events.MeetingDetails) {
	msg := m.meetingEmail(ctx, d)

	if d.AttendeeEmail != "" {
		if err := m.sender.SendMeetingConfirmationEmail(ctx, d.AttendeeEmail, msg); err != nil {
			m.log.BestEffortFailure(ctx, "send_confirmation_email", err, "meeting_id", d.MeetingID.String())
		} else {
			m.recordConfirmation(ctx, d, channelEmail)
		}
	}

	if m.sendSMS(ctx, d, confirmationSMS(msg)) {
		m.recordConfirmation(ctx, d, channelSMS)
	}
}

func (m *Module) recordConfirmation(ctx context.Context, d events.MeetingDetails, channel string) {
	if m.tracker == nil {
		return
	}
	if err := m.tracker.RecordConfirmationSent(ctx, d.OrganizationID, d.MeetingID, channel); err != nil {
		m.log.BestEffortFailure(ctx, "record_confirmation_sent", err, "meeting_id", d.MeetingID.String(), "channel", channel)
	}
}

// sendSMS reports whether a message was delivered.
func (m *Module) sendSMS(ctx context.Context, d events.MeetingDetails, body string) bool {
	if m.sms == nil || strings.TrimSpace(d.AttendeePhone) == "" {
		return false
	}
	if err := m.sms.SendMessage(ctx, d.AttendeePhone, body); err != nil {
		m.log.BestEffortFailure(ctx, "send_sms", err, "meeting_id", d.MeetingID.String())
		return false
	}
	return true
}

// scheduleReminder queues the reminder a day ahead of the meeting. Meetings
// booked less than a day out get no reminder.
func (m *Module) scheduleReminder(ctx context.Context, d events.MeetingDetails) {
	if m.reminders == nil {
		return
	}
	runAt := d.StartAt.Add(-reminderLeadTime)
	if !runAt.After(m.now()) {
		return
	}
	err := m.reminders.ScheduleMeetingReminder(ctx, scheduler.MeetingReminderPayload{
		MeetingID:      d.MeetingID.String(),
		OrganizationID: d.OrganizationID.String(),
		StartAt:        d.StartAt,
	}, runAt)
	if err != nil {
		m.log.BestEffortFailure(ctx, "schedule_meeting_reminder", err, "meeting_id", d.MeetingID.String())
	}
}

func (m *Module) meetingEmail(ctx context.Context, d events.MeetingDetails) email.Meeting {
	return email.Meeting{
		AttendeeName:    d.AttendeeName,
		BusinessName:    m.resolveBusinessName(ctx, d),
		ActivatorName:   d.ActivatorName,
		WebsitePlatform: d.WebsitePlatform,
		StartAt:         d.StartAt,
		EndAt:           d.EndAt,
		Timezone:        d.Timezone,
	}
}

func (m *Module) resolveBusinessName(ctx context.Context, d events.MeetingDetails) string {
	if m.leads == nil || d.LeadID == nil {
		return ""
	}
	lead, err := m.leads.GetLeadByID(ctx, d.OrganizationID, *d.LeadID)
	if err != nil {
		m.log.Debug("lead lookup failed", "leadId", d.LeadID, "error", err)
		return ""
	}
	return lead.BusinessName
}

func (m *Module) buildURL(path string) string {
	base := ""
	if m.cfg != nil {
		base = strings.TrimRight(m.cfg.GetAppBaseURL(), "/")
	}
	return base + path
}

func confirmationSMS(msg email.Meeting) string {
	return fmt.Sprintf("Hi %s, your activation call%s is booked for %s. Reply to this number if you need to move it.",
		firstName(msg.AttendeeName), withActivator(msg.ActivatorName), smsTime(msg))
}

func rescheduledSMS(msg email.Meeting) string {
	return fmt.Sprintf("Hi %s, your activation call%s has moved to %s.",
		firstName(msg.AttendeeName), withActivator(msg.ActivatorName), smsTime(msg))
}

func reminderSMS(msg email.Meeting) string {
	return fmt.Sprintf("Reminder: your activation call%s is tomorrow at %s.",
		withActivator(msg.ActivatorName), smsTime(msg))
}

func canceledSMS(msg email.Meeting) string {
	return fmt.Sprintf("Hi %s, your activation call on %s has been canceled.",
		firstName(msg.AttendeeName), smsTime(msg))
}

func firstName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return "there"
	}
	return fields[0]
}

func withActivator(name string) string {
	if strings.TrimSpace(name) == "" {
		return ""
	}
	return " with " + name
}

func smsTime(msg email.Meeting) string {
	loc, err := time.LoadLocation(msg.Timezone)
	if err != nil || msg.Timezone == "" {
		loc = time.UTC
	}
	return msg.StartAt.In(loc).Format("Mon Jan 2 3:04 PM MST")
}
