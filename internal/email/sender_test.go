package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestBrevoSenderPostsRenderedConfirmation(t *testing.T) {
	var got brevoEmailRequest
	var apiKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/smtp/email" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		apiKey = r.Header.Get("api-key")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	sender := &templateSender{t: NewBrevoSender(srv.URL, "key-1", "Activation Team", "team@example.com")}
	start := time.Date(2026, 3, 3, 14, 0, 0, 0, time.UTC)
	err := sender.SendMeetingConfirmationEmail(context.Background(), "owner@example.com", Meeting{
		AttendeeName: "Dana Smith",
		BusinessName: "Dana's Bakery",
		StartAt:      start,
		EndAt:        start.Add(30 * time.Minute),
		Timezone:     "America/New_York",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if apiKey != "key-1" {
		t.Fatalf("expected api key header, got %q", apiKey)
	}
	if len(got.To) != 1 || got.To[0].Email != "owner@example.com" {
		t.Fatalf("unexpected recipients %+v", got.To)
	}
	if !strings.Contains(got.Subject, "9:00 AM EST") {
		t.Fatalf("expected subject in attendee zone, got %q", got.Subject)
	}
	if !strings.Contains(got.HTMLContent, "Dana&#39;s Bakery") || !strings.Contains(got.HTMLContent, "30-minute") {
		t.Fatalf("unexpected body %s", got.HTMLContent)
	}
}

func TestBrevoSenderReportsFailureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	b := NewBrevoSender(srv.URL, "wrong", "", "team@example.com")
	if err := b.send(context.Background(), "a@example.com", "s", "<p>x</p>"); err == nil {
		t.Fatal("expected error on 401")
	}
}

func TestEveryTemplateRenders(t *testing.T) {
	start := time.Date(2026, 3, 3, 14, 0, 0, 0, time.UTC)
	m := Meeting{AttendeeName: "Dana", StartAt: start, EndAt: start.Add(30 * time.Minute), Timezone: "bogus/zone"}
	cases := []struct {
		name string
		data any
	}{
		{"meeting_confirmation.html", newMeetingEmailData(m, "h")},
		{"meeting_rescheduled.html", meetingRescheduledEmailData{meetingEmailData: newMeetingEmailData(m, "h"), PreviousStart: "earlier"}},
		{"meeting_reminder.html", newMeetingEmailData(m, "h")},
		{"meeting_canceled.html", newMeetingEmailData(m, "h")},
		{"followup_due.html", followupEmailData{OwnerName: "Sam", BusinessName: "Acme", NoShowCount: 2}},
	}
	for _, tc := range cases {
		out, err := renderEmailTemplate(tc.name, tc.data)
		if err != nil {
			t.Errorf("%s: %v", tc.name, err)
			continue
		}
		if !strings.Contains(out, "<html") {
			t.Errorf("%s: missing base layout", tc.name)
		}
	}
}

func TestFormatInZoneFallsBackToUTC(t *testing.T) {
	got := formatInZone(time.Date(2026, 3, 3, 14, 0, 0, 0, time.UTC), "Not/AZone")
	if !strings.HasSuffix(got, "2:00 PM UTC") {
		t.Fatalf("unexpected %q", got)
	}
}
