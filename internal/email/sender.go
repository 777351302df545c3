package email

import (
	"context"
	"fmt"
	"time"

	"activation_backend/platform/config"
)

// Meeting carries what the attendee-facing meeting emails show.
type Meeting struct {
	AttendeeName    string
	BusinessName    string
	ActivatorName   string
	WebsitePlatform string
	StartAt         time.Time
	EndAt           time.Time
	Timezone        string
}

// Followup carries what the follow-up owner needs to call the lead back.
type Followup struct {
	OwnerName    string
	BusinessName string
	NoShowCount  int
	PipelineURL  string
}

type Sender interface {
	SendMeetingConfirmationEmail(ctx context.Context, toEmail string, m Meeting) error
	SendMeetingRescheduledEmail(ctx context.Context, toEmail string, m Meeting, previousStart time.Time) error
	SendMeetingReminderEmail(ctx context.Context, toEmail string, m Meeting) error
	SendMeetingCanceledEmail(ctx context.Context, toEmail string, m Meeting) error
	SendFollowupDueEmail(ctx context.Context, toEmail string, f Followup) error
}

type NoopSender struct{}

func (NoopSender) SendMeetingConfirmationEmail(ctx context.Context, toEmail string, m Meeting) error {
	return nil
}

func (NoopSender) SendMeetingRescheduledEmail(ctx context.Context, toEmail string, m Meeting, previousStart time.Time) error {
	return nil
}

func (NoopSender) SendMeetingReminderEmail(ctx context.Context, toEmail string, m Meeting) error {
	return nil
}

func (NoopSender) SendMeetingCanceledEmail(ctx context.Context, toEmail string, m Meeting) error {
	return nil
}

func (NoopSender) SendFollowupDueEmail(ctx context.Context, toEmail string, f Followup) error {
	return nil
}

// transport delivers one rendered HTML message.
type transport interface {
	send(ctx context.Context, toEmail, subject, htmlContent string) error
}

// templateSender renders the meeting templates and hands them to a transport.
type templateSender struct {
	t transport
}

// NewSender picks SMTP when a relay is configured, Brevo when email is
// enabled, and a no-op sender otherwise.
func NewSender(cfg interface {
	config.EmailConfig
	config.SMTPConfig
}) (Sender, error) {
	if !cfg.GetEmailEnabled() && !cfg.IsSMTPEnabled() {
		return NoopSender{}, nil
	}
	if cfg.GetEmailFromAddress() == "" {
		return nil, fmt.Errorf("EMAIL_FROM_ADDRESS is required when email is enabled")
	}
	if cfg.IsSMTPEnabled() {
		return &templateSender{t: NewSMTPSender(cfg.GetSMTPHost(), cfg.GetSMTPPort(), cfg.GetSMTPUsername(),
			cfg.GetSMTPPassword(), cfg.GetEmailFromAddress(), cfg.GetEmailFromName())}, nil
	}
	return &templateSender{t: NewBrevoSender(cfg.GetBrevoBaseURL(), cfg.GetBrevoAPIKey(),
		cfg.GetEmailFromName(), cfg.GetEmailFromAddress())}, nil
}

func (s *templateSender) SendMeetingConfirmationEmail(ctx context.Context, toEmail string, m Meeting) error {
	content, err := renderEmailTemplate("meeting_confirmation.html", newMeetingEmailData(m, "Your activation call is booked"))
	if err != nil {
		return err
	}
	return s.t.send(ctx, toEmail, fmt.Sprintf(subjectMeetingConfirmationFmt, formatStart(m)), content)
}

func (s *templateSender) SendMeetingRescheduledEmail(ctx context.Context, toEmail string, m Meeting, previousStart time.Time) error {
	data := meetingRescheduledEmailData{
		meetingEmailData: newMeetingEmailData(m, "Your activation call has moved"),
		PreviousStart:    formatInZone(previousStart, m.Timezone),
	}
	content, err := renderEmailTemplate("meeting_rescheduled.html", data)
	if err != nil {
		return err
	}
	return s.t.send(ctx, toEmail, fmt.Sprintf(subjectMeetingRescheduledFmt, formatStart(m)), content)
}

func (s *templateSender) SendMeetingReminderEmail(ctx context.Context, toEmail string, m Meeting) error {
	content, err := renderEmailTemplate("meeting_reminder.html", newMeetingEmailData(m, "See you tomorrow"))
	if err != nil {
		return err
	}
	return s.t.send(ctx, toEmail, fmt.Sprintf(subjectMeetingReminderFmt, formatStart(m)), content)
}

func (s *templateSender) SendMeetingCanceledEmail(ctx context.Context, toEmail string, m Meeting) error {
	content, err := renderEmailTemplate("meeting_canceled.html", newMeetingEmailData(m, "Your activation call was canceled"))
	if err != nil {
		return err
	}
	return s.t.send(ctx, toEmail, subjectMeetingCanceled, content)
}

func (s *templateSender) SendFollowupDueEmail(ctx context.Context, toEmail string, f Followup) error {
	content, err := renderEmailTemplate("followup_due.html", followupEmailData{
		baseEmailData: baseEmailData{
			Title:    "Follow-up due",
			Heading:  "A no-show needs a call back",
			CTALabel: "Open pipeline",
			CTAURL:   f.PipelineURL,
		},
		OwnerName:    f.OwnerName,
		BusinessName: f.BusinessName,
		NoShowCount:  f.NoShowCount,
	})
	if err != nil {
		return err
	}
	return s.t.send(ctx, toEmail, fmt.Sprintf(subjectFollowupDueFmt, f.BusinessName), content)
}
