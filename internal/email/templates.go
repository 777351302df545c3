package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

const startLayout = "Monday, January 2, 2006 at 3:04 PM MST"

type baseEmailData struct {
	Title      string
	Heading    string
	Subheading string
	CTALabel   string
	CTAURL     string
}

type meetingEmailData struct {
	baseEmailData
	AttendeeName    string
	BusinessName    string
	ActivatorName   string
	WebsitePlatform string
	Start           string
	DurationMinutes int
}

type meetingRescheduledEmailData struct {
	meetingEmailData
	PreviousStart string
}

type followupEmailData struct {
	baseEmailData
	OwnerName    string
	BusinessName string
	NoShowCount  int
}

func newMeetingEmailData(m Meeting, heading string) meetingEmailData {
	return meetingEmailData{
		baseEmailData: baseEmailData{
			Title:   heading,
			Heading: heading,
		},
		AttendeeName:    m.AttendeeName,
		BusinessName:    m.BusinessName,
		ActivatorName:   m.ActivatorName,
		WebsitePlatform: m.WebsitePlatform,
		Start:           formatStart(m),
		DurationMinutes: int(m.EndAt.Sub(m.StartAt).Minutes()),
	}
}

func formatStart(m Meeting) string {
	return formatInZone(m.StartAt, m.Timezone)
}

// formatInZone renders t in the attendee's zone, falling back to UTC.
func formatInZone(t time.Time, tz string) string {
	loc, err := time.LoadLocation(tz)
	if err != nil || tz == "" {
		loc = time.UTC
	}
	return t.In(loc).Format(startLayout)
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}
