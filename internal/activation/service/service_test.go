package service

import (
	"context"
	"io"
	"slices"
	"testing"
	"time"

	"activation_backend/internal/activation/domain"
	"activation_backend/internal/activation/repository/repotest"
	"activation_backend/internal/activation/transport"
	"activation_backend/platform/apperr"
	"activation_backend/platform/logger"
	"activation_backend/platform/phone"

	"github.com/google/uuid"
)

const testTimezone = "America/New_York"

type fixture struct {
	svc       *Service
	store     *repotest.Store
	bus       *recordingBus
	org       uuid.UUID
	sdr       uuid.UUID
	otherSDR  uuid.UUID
	activator uuid.UUID
	admin     uuid.UUID
	leads     fakeLeads
	now       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store:     repotest.NewStore(),
		bus:       &recordingBus{},
		org:       uuid.New(),
		sdr:       uuid.New(),
		otherSDR:  uuid.New(),
		activator: uuid.New(),
		admin:     uuid.New(),
		leads:     fakeLeads{},
		now:       time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC),
	}
	profiles := fakeProfiles{
		f.sdr:       {ID: f.sdr, FullName: "Sam Seller", Role: domain.RoleSDR},
		f.otherSDR:  {ID: f.otherSDR, FullName: "Olive Other", Role: domain.RoleSDR},
		f.activator: {ID: f.activator, FullName: "Ava Activator", Role: domain.RoleActivator},
		f.admin:     {ID: f.admin, FullName: "Ada Admin", Role: domain.RoleAdmin},
	}

	f.svc = New(f.store, profiles, f.leads, f.bus, logger.NewWithWriter("test", io.Discard), Settings{})
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *fixture) newPipeline(t *testing.T, jccUserID string) uuid.UUID {
	t.Helper()
	leadID := uuid.New()
	f.leads[leadID] = Lead{ID: leadID, BusinessName: "Acme Plumbing", Phone: phone.NormalizeE164("(415) 555-2671"), Email: "owner@acme.test"}

	resp, err := f.svc.CreatePipeline(context.Background(), f.sdr, false, f.org, transport.CreatePipelineRequest{
		CrmLeadID: leadID,
		JCCUserID: jccUserID,
	})
	if err != nil {
		t.Fatalf("create pipeline: %v", err)
	}
	return resp.ID
}

func (f *fixture) bookingRequest(pipelineID *uuid.UUID, start time.Time) transport.CreateMeetingRequest {
	return transport.CreateMeetingRequest{
		ScheduledStartAt:  start,
		ScheduledTimezone: testTimezone,
		ActivatorUserID:   f.activator,
		AttendeeName:      "jane doe",
		AttendeeRole:      "Owner",
		Phone:             "(415) 555-2671",
		WebsitePlatform:   "Shopify",
		Goal:              "Get the first lead",
		TrialPipelineID:   pipelineID,
	}
}

func (f *fixture) book(t *testing.T, pipelineID uuid.UUID, start time.Time) transport.MeetingResponse {
	t.Helper()
	resp, err := f.svc.CreateMeeting(context.Background(), f.sdr, false, f.org, f.bookingRequest(&pipelineID, start))
	if err != nil {
		t.Fatalf("create meeting: %v", err)
	}
	return resp.Meeting
}

func (f *fixture) pipeline(t *testing.T, id uuid.UUID) transport.PipelineResponse {
	t.Helper()
	p, err := f.store.GetPipeline(context.Background(), id, f.org)
	if err != nil {
		t.Fatalf("get pipeline: %v", err)
	}
	return p.ToResponse()
}

func requireAppError(t *testing.T, err error, kind apperr.Kind, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error kind %d code %q, got nil", kind, code)
	}
	if apperr.GetKind(err) != kind {
		t.Fatalf("expected kind %d, got %d (%v)", kind, apperr.GetKind(err), err)
	}
	if code != "" && apperr.GetCode(err) != code {
		t.Fatalf("expected code %q, got %q (%v)", code, apperr.GetCode(err), err)
	}
}

func at(hour, minute int) time.Time {
	return time.Date(2026, 3, 3, hour, minute, 0, 0, time.UTC)
}

func TestCreateMeetingBooksPipeline(t *testing.T) {
	f := newFixture(t)
	pipelineID := f.newPipeline(t, "")

	meeting := f.book(t, pipelineID, at(15, 0))

	if meeting.Status != "scheduled" {
		t.Fatalf("expected scheduled meeting, got %s", meeting.Status)
	}
	if !meeting.ScheduledEndAt.Equal(at(15, 30)) {
		t.Fatalf("expected 30 minute meeting, ends at %s", meeting.ScheduledEndAt)
	}
	if meeting.AttendeeName != "Jane Doe" {
		t.Fatalf("expected normalized attendee name, got %q", meeting.AttendeeName)
	}
	if meeting.LeadID == nil {
		t.Fatal("expected lead id copied from pipeline")
	}

	p := f.pipeline(t, pipelineID)
	if p.ActivationStatus != "scheduled" || p.AttemptsCount != 1 {
		t.Fatalf("unexpected pipeline state: status=%s attempts=%d", p.ActivationStatus, p.AttemptsCount)
	}
	if p.ScheduledStartAt == nil || !p.ScheduledStartAt.Equal(at(15, 0)) {
		t.Fatalf("expected cached start on pipeline, got %v", p.ScheduledStartAt)
	}
	if p.AssignedActivatorID == nil || *p.AssignedActivatorID != f.activator {
		t.Fatal("expected activator assigned to pipeline")
	}
	if got := len(f.store.EventsOfType(domain.AuditScheduled)); got != 1 {
		t.Fatalf("expected one scheduled audit row, got %d", got)
	}
	names := f.bus.names()
	for _, want := range []string{"activation.meeting.scheduled", "activation.pipeline.status_changed"} {
		if !slices.Contains(names, want) {
			t.Fatalf("expected %s to be published, got %v", want, names)
		}
	}
}

func TestCreateMeetingSlotConflict(t *testing.T) {
	f := newFixture(t)
	first := f.newPipeline(t, "")
	second := f.newPipeline(t, "")

	f.book(t, first, at(15, 0))

	_, err := f.svc.CreateMeeting(context.Background(), f.sdr, false, f.org, f.bookingRequest(&second, at(15, 15)))
	requireAppError(t, err, apperr.KindConflict, apperr.CodeSlotConflict)

	if p := f.pipeline(t, second); p.ActivationStatus != "queued" || p.AttemptsCount != 0 {
		t.Fatalf("rejected booking changed the pipeline: %+v", p)
	}

	// Touching intervals do not overlap.
	f.book(t, second, at(15, 30))
}

func TestCreateMeetingRollsBackWhenPipelineUpdateFails(t *testing.T) {
	f := newFixture(t)
	pipelineID := f.newPipeline(t, "")
	f.store.FailUpdatePipeline = errInjected

	_, err := f.svc.CreateMeeting(context.Background(), f.sdr, false, f.org, f.bookingRequest(&pipelineID, at(15, 0)))
	if err == nil {
		t.Fatal("expected booking to fail")
	}
	if f.store.MeetingCount() != 0 {
		t.Fatalf("expected no orphan meeting, found %d", f.store.MeetingCount())
	}
	if p := f.pipeline(t, pipelineID); p.ActivationStatus != "queued" || p.AttemptsCount != 0 {
		t.Fatalf("expected pipeline untouched, got %+v", p)
	}
	if len(f.store.EventsOfType(domain.AuditScheduled)) != 0 {
		t.Fatal("expected no audit row for a failed booking")
	}
}

func TestCreateMeetingSurvivesAuditFailure(t *testing.T) {
	f := newFixture(t)
	pipelineID := f.newPipeline(t, "")
	f.store.FailAppendEvent = errInjected

	f.book(t, pipelineID, at(15, 0))

	if p := f.pipeline(t, pipelineID); p.ActivationStatus != "scheduled" {
		t.Fatalf("expected booking to commit, got %s", p.ActivationStatus)
	}
}

func TestCreateMeetingRejectsInvalidInput(t *testing.T) {
	f := newFixture(t)
	pipelineID := f.newPipeline(t, "")

	cases := []struct {
		name   string
		mutate func(*transport.CreateMeetingRequest)
	}{
		{"bad timezone", func(r *transport.CreateMeetingRequest) { r.ScheduledTimezone = "Mars/Olympus" }},
		{"blank goal", func(r *transport.CreateMeetingRequest) { r.Goal = "   " }},
		{"sdr as host", func(r *transport.CreateMeetingRequest) { r.ActivatorUserID = f.sdr }},
		{"unknown host", func(r *transport.CreateMeetingRequest) { r.ActivatorUserID = uuid.New() }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := f.bookingRequest(&pipelineID, at(15, 0))
			tc.mutate(&req)
			_, err := f.svc.CreateMeeting(context.Background(), f.sdr, false, f.org, req)
			requireAppError(t, err, apperr.KindValidation, "")
		})
	}
	if f.store.MeetingCount() != 0 {
		t.Fatal("expected no meeting written for invalid input")
	}
}

func TestRescheduleSDRLimitedToOnce(t *testing.T) {
	f := newFixture(t)
	pipelineID := f.newPipeline(t, "")
	meeting := f.book(t, pipelineID, at(15, 0))
	ctx := context.Background()

	resp, err := f.svc.Reschedule(ctx, f.sdr, false, f.org, transport.RescheduleRequest{
		MeetingID: meeting.ID, NewSlotStartAt: at(16, 0), Reason: "customer asked",
	})
	if err != nil {
		t.Fatalf("first SDR reschedule: %v", err)
	}
	if resp.RescheduleCount == nil || *resp.RescheduleCount != 1 {
		t.Fatalf("expected reschedule count 1, got %v", resp.RescheduleCount)
	}
	if resp.Meeting.Status != "scheduled" || !resp.Meeting.ScheduledStartAt.Equal(at(16, 0)) {
		t.Fatalf("unexpected meeting after reschedule: %+v", resp.Meeting)
	}

	_, err = f.svc.Reschedule(ctx, f.sdr, false, f.org, transport.RescheduleRequest{
		MeetingID: meeting.ID, NewSlotStartAt: at(17, 0),
	})
	requireAppError(t, err, apperr.KindForbidden, apperr.CodeRescheduleLimitReached)

	m, _ := f.store.GetMeeting(ctx, meeting.ID, f.org)
	if !m.ScheduledStartAt.Equal(at(16, 0)) {
		t.Fatalf("rejected reschedule moved the meeting to %s", m.ScheduledStartAt)
	}
	if got := len(f.store.EventsOfType(domain.AuditRescheduled)); got != 1 {
		t.Fatalf("expected one rescheduled audit row, got %d", got)
	}
	if !slices.Contains(f.bus.names(), "activation.meeting.rescheduled") {
		t.Fatal("expected MeetingRescheduled to be published")
	}
}

func TestRescheduleActivatorUnlimited(t *testing.T) {
	f := newFixture(t)
	pipelineID := f.newPipeline(t, "")
	meeting := f.book(t, pipelineID, at(15, 0))
	ctx := context.Background()

	if _, err := f.svc.Reschedule(ctx, f.sdr, false, f.org, transport.RescheduleRequest{MeetingID: meeting.ID, NewSlotStartAt: at(15, 30)}); err != nil {
		t.Fatalf("SDR reschedule: %v", err)
	}

	for i, start := range []time.Time{at(16, 0), at(17, 0), at(18, 0)} {
		resp, err := f.svc.Reschedule(ctx, f.activator, false, f.org, transport.RescheduleRequest{MeetingID: meeting.ID, NewSlotStartAt: start})
		if err != nil {
			t.Fatalf("activator reschedule %d: %v", i, err)
		}
		if *resp.RescheduleCount != 1 {
			t.Fatalf("activator reschedule changed the count to %d", *resp.RescheduleCount)
		}
	}

	if _, err := f.svc.Reschedule(ctx, f.admin, true, f.org, transport.RescheduleRequest{MeetingID: meeting.ID, NewSlotStartAt: at(19, 0)}); err != nil {
		t.Fatalf("admin reschedule: %v", err)
	}
}

func TestRescheduleConflictAndValidation(t *testing.T) {
	f := newFixture(t)
	first := f.book(t, f.newPipeline(t, ""), at(15, 0))
	f.book(t, f.newPipeline(t, ""), at(16, 0))
	ctx := context.Background()

	// Overlapping its own current slot is fine.
	if _, err := f.svc.Reschedule(ctx, f.activator, false, f.org, transport.RescheduleRequest{MeetingID: first.ID, NewSlotStartAt: at(15, 15)}); err != nil {
		t.Fatalf("reschedule over own slot: %v", err)
	}

	_, err := f.svc.Reschedule(ctx, f.activator, false, f.org, transport.RescheduleRequest{MeetingID: first.ID, NewSlotStartAt: at(15, 45)})
	requireAppError(t, err, apperr.KindConflict, apperr.CodeSlotConflict)

	badEnd := at(17, 0)
	_, err = f.svc.Reschedule(ctx, f.activator, false, f.org, transport.RescheduleRequest{MeetingID: first.ID, NewSlotStartAt: at(18, 0), NewSlotEndAt: &badEnd})
	requireAppError(t, err, apperr.KindValidation, "")

	_, err = f.svc.Reschedule(ctx, f.otherSDR, false, f.org, transport.RescheduleRequest{MeetingID: first.ID, NewSlotStartAt: at(18, 0)})
	requireAppError(t, err, apperr.KindForbidden, apperr.CodeNotPermitted)
}

func TestRescheduleClosedMeeting(t *testing.T) {
	f := newFixture(t)
	meeting := f.book(t, f.newPipeline(t, ""), at(15, 0))
	ctx := context.Background()

	if _, err := f.svc.CompleteMeeting(ctx, meeting.ID, f.activator, false, f.org, transport.MeetingActionRequest{}); err != nil {
		t.Fatalf("complete: %v", err)
	}
	_, err := f.svc.Reschedule(ctx, f.activator, false, f.org, transport.RescheduleRequest{MeetingID: meeting.ID, NewSlotStartAt: at(16, 0)})
	requireAppError(t, err, apperr.KindConflict, apperr.CodeInvalidTransition)
}

func TestCompleteTwiceIsDuplicate(t *testing.T) {
	f := newFixture(t)
	pipelineID := f.newPipeline(t, "")
	meeting := f.book(t, pipelineID, at(15, 0))
	ctx := context.Background()

	resp, err := f.svc.CompleteMeeting(ctx, meeting.ID, f.activator, false, f.org, transport.MeetingActionRequest{Notes: "went well"})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if resp.Meeting.Status != "completed" || resp.Meeting.CompletedAt == nil {
		t.Fatalf("unexpected meeting after complete: %+v", resp.Meeting)
	}
	before := f.pipeline(t, pipelineID)

	_, err = f.svc.CompleteMeeting(ctx, meeting.ID, f.activator, false, f.org, transport.MeetingActionRequest{})
	requireAppError(t, err, apperr.KindConflict, apperr.CodeDuplicateTerminalAction)

	after := f.pipeline(t, pipelineID)
	if after.ActivationStatus != "completed" || after.FollowupOwnerRole != "activator" {
		t.Fatalf("unexpected pipeline after completion: %+v", after)
	}
	if after.AttemptsCount != before.AttemptsCount || after.NoShowCount != before.NoShowCount {
		t.Fatal("duplicate completion changed counters")
	}
	if got := len(f.store.EventsOfType(domain.AuditCompleted)); got != 1 {
		t.Fatalf("expected one completed audit row, got %d", got)
	}

	_, err = f.svc.MarkNoShow(ctx, meeting.ID, f.activator, false, f.org, transport.MeetingActionRequest{})
	requireAppError(t, err, apperr.KindConflict, apperr.CodeInvalidTransition)
}

func TestNoShowSchedulesFollowupAndAllowsRebooking(t *testing.T) {
	f := newFixture(t)
	pipelineID := f.newPipeline(t, "")
	meeting := f.book(t, pipelineID, at(15, 0))
	ctx := context.Background()

	if _, err := f.svc.Reschedule(ctx, f.sdr, false, f.org, transport.RescheduleRequest{MeetingID: meeting.ID, NewSlotStartAt: at(16, 0)}); err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if _, err := f.svc.MarkNoShow(ctx, meeting.ID, f.activator, false, f.org, transport.MeetingActionRequest{}); err != nil {
		t.Fatalf("no-show: %v", err)
	}

	p := f.pipeline(t, pipelineID)
	if p.ActivationStatus != "no_show" || p.NoShowCount != 1 || p.FollowupOwnerRole != "sdr" {
		t.Fatalf("unexpected pipeline after no-show: %+v", p)
	}
	if p.NextFollowupAt == nil || !p.NextFollowupAt.Equal(f.now.Add(24*time.Hour)) {
		t.Fatalf("expected follow-up 24h out, got %v", p.NextFollowupAt)
	}
	if p.RescheduleCount != 1 {
		t.Fatalf("owner stayed sdr, expected count kept at 1, got %d", p.RescheduleCount)
	}

	f.book(t, pipelineID, at(18, 0))
	p = f.pipeline(t, pipelineID)
	if p.ActivationStatus != "scheduled" || p.AttemptsCount != 2 || p.NextFollowupAt != nil {
		t.Fatalf("unexpected pipeline after rebooking: %+v", p)
	}
}

func TestCancelReturnsPipelineToQueue(t *testing.T) {
	f := newFixture(t)
	pipelineID := f.newPipeline(t, "")
	meeting := f.book(t, pipelineID, at(15, 0))

	if _, err := f.svc.CancelMeeting(context.Background(), meeting.ID, f.sdr, false, f.org, transport.MeetingActionRequest{}); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	p := f.pipeline(t, pipelineID)
	if p.ActivationStatus != "queued" || p.ScheduledStartAt != nil {
		t.Fatalf("unexpected pipeline after cancel: %+v", p)
	}

	// The slot is free again.
	f.book(t, f.newPipeline(t, ""), at(15, 0))
}

func TestSDRCannotCloseMeetings(t *testing.T) {
	f := newFixture(t)
	meeting := f.book(t, f.newPipeline(t, ""), at(15, 0))

	_, err := f.svc.CompleteMeeting(context.Background(), meeting.ID, f.sdr, false, f.org, transport.MeetingActionRequest{})
	requireAppError(t, err, apperr.KindForbidden, apperr.CodeNotPermitted)
}

func TestActivatorSeesOnlyOwnMeetings(t *testing.T) {
	f := newFixture(t)
	meeting := f.book(t, f.newPipeline(t, ""), at(15, 0))
	ctx := context.Background()

	list, err := f.svc.ListMeetings(ctx, f.activator, false, f.org, transport.ListMeetingsRequest{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if list.Total != 1 || list.Items[0].ID != meeting.ID {
		t.Fatalf("unexpected list: %+v", list)
	}

	_, err = f.svc.ListMeetings(ctx, f.activator, false, f.org, transport.ListMeetingsRequest{ActivatorID: uuid.NewString()})
	requireAppError(t, err, apperr.KindForbidden, apperr.CodeNotPermitted)

	if _, err := f.svc.GetMeeting(ctx, meeting.ID, f.otherSDR, false, f.org); err != nil {
		t.Fatalf("SDRs see all meetings: %v", err)
	}
	_, err = f.svc.GetMeeting(ctx, meeting.ID, uuid.New(), false, f.org)
	requireAppError(t, err, apperr.KindForbidden, apperr.CodeNotPermitted)
}

func TestCreatePipelineRejectsSecondOpenPipeline(t *testing.T) {
	f := newFixture(t)
	pipelineID := f.newPipeline(t, "")
	p, _ := f.store.GetPipeline(context.Background(), pipelineID, f.org)

	_, err := f.svc.CreatePipeline(context.Background(), f.sdr, false, f.org, transport.CreatePipelineRequest{CrmLeadID: p.CrmLeadID})
	requireAppError(t, err, apperr.KindConflict, apperr.CodePipelineExists)

	_, err = f.svc.CreatePipeline(context.Background(), f.activator, false, f.org, transport.CreatePipelineRequest{CrmLeadID: uuid.New()})
	requireAppError(t, err, apperr.KindForbidden, apperr.CodeNotPermitted)
}

func TestKillPipelineCancelsScheduledMeetings(t *testing.T) {
	f := newFixture(t)
	pipelineID := f.newPipeline(t, "")
	meeting := f.book(t, pipelineID, at(15, 0))
	ctx := context.Background()

	_, err := f.svc.KillPipeline(ctx, pipelineID, f.sdr, false, f.org, transport.KillPipelineRequest{Reason: "not_interested"})
	requireAppError(t, err, apperr.KindForbidden, apperr.CodeNotPermitted)

	resp, err := f.svc.KillPipeline(ctx, pipelineID, f.admin, true, f.org, transport.KillPipelineRequest{Reason: "not_interested", Note: "went with a competitor"})
	if err != nil {
		t.Fatalf("kill: %v", err)
	}
	if resp.ActivationStatus != "killed" || resp.KillReason == nil || *resp.KillReason != "not_interested" || resp.KilledAt == nil {
		t.Fatalf("unexpected pipeline after kill: %+v", resp)
	}
	m, _ := f.store.GetMeeting(ctx, meeting.ID, f.org)
	if m.Status != "canceled" {
		t.Fatalf("expected scheduled meeting canceled, got %s", m.Status)
	}

	_, err = f.svc.KillPipeline(ctx, pipelineID, f.admin, true, f.org, transport.KillPipelineRequest{Reason: "other"})
	requireAppError(t, err, apperr.KindConflict, apperr.CodeInvalidTransition)
}

func TestKillByContact(t *testing.T) {
	f := newFixture(t)
	pipelineID := f.newPipeline(t, "")
	ctx := context.Background()

	_, err := f.svc.KillByContact(ctx, f.admin, true, f.org, transport.KillByContactRequest{Reason: "duplicate"})
	requireAppError(t, err, apperr.KindValidation, "")

	_, err = f.svc.KillByContact(ctx, f.admin, true, f.org, transport.KillByContactRequest{Email: "nobody@example.test", Reason: "duplicate"})
	requireAppError(t, err, apperr.KindNotFound, "")

	resp, err := f.svc.KillByContact(ctx, f.admin, true, f.org, transport.KillByContactRequest{Phone: "(415) 555-2671", Reason: "duplicate"})
	if err != nil {
		t.Fatalf("kill by contact: %v", err)
	}
	if resp.ID != pipelineID || resp.ActivationStatus != "killed" {
		t.Fatalf("unexpected pipeline: %+v", resp)
	}
}

func TestActivateByJCCUser(t *testing.T) {
	f := newFixture(t)
	queued := f.newPipeline(t, "jcc-queued")
	booked := f.newPipeline(t, "jcc-booked")
	f.book(t, booked, at(15, 0))
	ctx := context.Background()

	resp, err := f.svc.ActivateByJCCUser(ctx, transport.FirstLeadWebhookRequest{JCCUserID: "jcc-booked"})
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if resp.Pipeline.ID != booked || resp.Pipeline.ActivationStatus != "activated" || resp.Pipeline.ActivatedAt == nil {
		t.Fatalf("unexpected pipeline: %+v", resp.Pipeline)
	}

	_, err = f.svc.ActivateByJCCUser(ctx, transport.FirstLeadWebhookRequest{JCCUserID: "jcc-queued"})
	requireAppError(t, err, apperr.KindConflict, apperr.CodeInvalidTransition)
	if p := f.pipeline(t, queued); p.ActivationStatus != "queued" {
		t.Fatalf("rejected activation changed status to %s", p.ActivationStatus)
	}

	_, err = f.svc.ActivateByJCCUser(ctx, transport.FirstLeadWebhookRequest{JCCUserID: "jcc-unknown"})
	requireAppError(t, err, apperr.KindNotFound, "")
}

func TestSweepFollowups(t *testing.T) {
	f := newFixture(t)
	pipelineID := f.newPipeline(t, "")
	meeting := f.book(t, pipelineID, at(15, 0))
	ctx := context.Background()

	if _, err := f.svc.MarkNoShow(ctx, meeting.ID, f.activator, false, f.org, transport.MeetingActionRequest{}); err != nil {
		t.Fatalf("no-show: %v", err)
	}

	resp, err := f.svc.SweepFollowups(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if resp.Published != 0 {
		t.Fatalf("follow-up not due yet, published %d", resp.Published)
	}

	f.now = f.now.Add(25 * time.Hour)
	resp, err = f.svc.SweepFollowups(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if resp.Published != 1 {
		t.Fatalf("expected one follow-up, got %d", resp.Published)
	}
	if !slices.Contains(f.bus.names(), "activation.pipeline.followup_due") {
		t.Fatal("expected FollowupDue to be published")
	}

	resp, _ = f.svc.SweepFollowups(ctx)
	if resp.Published != 0 {
		t.Fatalf("follow-up published twice, got %d", resp.Published)
	}
}

func TestGetSlotsExcludesBookedMeetings(t *testing.T) {
	f := newFixture(t)
	// 10:00 in New York on 2026-03-03 (EST).
	f.book(t, f.newPipeline(t, ""), at(15, 0))

	resp, err := f.svc.GetSlots(context.Background(), f.sdr, false, f.org, transport.SlotsRequest{
		ActivatorUserID: f.activator.String(),
		Date:            "2026-03-03",
		Timezone:        testTimezone,
	})
	if err != nil {
		t.Fatalf("slots: %v", err)
	}
	if len(resp.Slots) != 15 {
		t.Fatalf("expected 15 free slots in an 8 hour day, got %d", len(resp.Slots))
	}
	for _, slot := range resp.Slots {
		if slot.StartAt.Equal(at(15, 0)) {
			t.Fatal("booked slot offered as free")
		}
	}
	if !resp.Slots[0].StartAt.Equal(at(14, 0)) {
		t.Fatalf("expected first slot at 09:00 local, got %s", resp.Slots[0].StartAt)
	}
}

func TestGetPipelineDetail(t *testing.T) {
	f := newFixture(t)
	pipelineID := f.newPipeline(t, "")
	f.book(t, pipelineID, at(15, 0))

	detail, err := f.svc.GetPipelineDetail(context.Background(), pipelineID, f.sdr, false, f.org)
	if err != nil {
		t.Fatalf("detail: %v", err)
	}
	if len(detail.Meetings) != 1 {
		t.Fatalf("expected one meeting, got %d", len(detail.Meetings))
	}
	if len(detail.Events) != 2 {
		t.Fatalf("expected pipeline_created and scheduled events, got %d", len(detail.Events))
	}

	_, err = f.svc.GetPipelineDetail(context.Background(), uuid.New(), f.sdr, false, f.org)
	requireAppError(t, err, apperr.KindNotFound, "")
}

func TestFollowupContactFollowsOwnerRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pipelineID := f.newPipeline(t, "")
	meeting := f.book(t, pipelineID, at(15, 0))

	if _, err := f.svc.MarkNoShow(ctx, meeting.ID, f.activator, false, f.org, transport.MeetingActionRequest{}); err != nil {
		t.Fatalf("no-show: %v", err)
	}
	contact, err := f.svc.FollowupContact(ctx, f.org, pipelineID)
	if err != nil {
		t.Fatalf("followup contact: %v", err)
	}
	if contact.OwnerName != "Sam Seller" || contact.BusinessName != "Acme Plumbing" {
		t.Fatalf("expected the creating sdr to own a no-show, got %+v", contact)
	}

	second := f.book(t, pipelineID, at(16, 0))
	if _, err := f.svc.CompleteMeeting(ctx, second.ID, f.activator, false, f.org, transport.MeetingActionRequest{}); err != nil {
		t.Fatalf("complete: %v", err)
	}
	contact, err = f.svc.FollowupContact(ctx, f.org, pipelineID)
	if err != nil {
		t.Fatalf("followup contact: %v", err)
	}
	if contact.OwnerName != "Ava Activator" {
		t.Fatalf("expected the activator to own a completed meeting, got %+v", contact)
	}
}

type fakeStorage struct{}

func (fakeStorage) PresignUpload(_ context.Context, folder, fileName, _ string, _ int64) (string, string, error) {
	return "https://files.test/put/" + fileName, folder + "/" + fileName, nil
}

func (fakeStorage) PresignDownload(_ context.Context, fileKey string) (string, error) {
	return "https://files.test/get/" + fileKey, nil
}

func TestAttachmentsRequireStorageForUpload(t *testing.T) {
	f := newFixture(t)
	meeting := f.book(t, f.newPipeline(t, ""), at(15, 0))
	req := transport.CreateAttachmentRequest{FileName: "notes.pdf", ContentType: "application/pdf", SizeBytes: 2048}

	_, err := f.svc.CreateAttachment(context.Background(), meeting.ID, f.activator, false, f.org, req)
	requireAppError(t, err, apperr.KindUnavailable, "")

	list, err := f.svc.ListAttachments(context.Background(), meeting.ID, f.activator, false, f.org)
	if err != nil {
		t.Fatalf("list without storage: %v", err)
	}
	if len(list.Items) != 0 {
		t.Fatalf("expected empty list, got %d", len(list.Items))
	}

	f.svc.SetStorage(fakeStorage{})
	created, err := f.svc.CreateAttachment(context.Background(), meeting.ID, f.activator, false, f.org, req)
	if err != nil {
		t.Fatalf("create attachment: %v", err)
	}
	if created.UploadURL == "" || created.FileName != "notes.pdf" {
		t.Fatalf("unexpected attachment %+v", created)
	}

	list, err = f.svc.ListAttachments(context.Background(), meeting.ID, f.activator, false, f.org)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list.Items) != 1 || list.Items[0].DownloadURL == "" {
		t.Fatalf("expected one attachment with a download url, got %+v", list.Items)
	}
}

func TestSendConfirmationAndRecord(t *testing.T) {
	f := newFixture(t)
	meeting := f.book(t, f.newPipeline(t, ""), at(15, 0))

	resp, err := f.svc.SendConfirmation(context.Background(), meeting.ID, f.sdr, false, f.org)
	if err != nil {
		t.Fatalf("send confirmation: %v", err)
	}
	if !resp.Queued {
		t.Fatal("expected confirmation to be queued on the bus")
	}
	if !slices.Contains(f.bus.names(), "activation.meeting.confirmation_requested") {
		t.Fatalf("expected confirmation event, got %v", f.bus.names())
	}

	if err := f.svc.RecordConfirmationSent(context.Background(), f.org, meeting.ID, "sms"); err != nil {
		t.Fatalf("record confirmation: %v", err)
	}
	stored, err := f.store.GetMeeting(context.Background(), meeting.ID, f.org)
	if err != nil {
		t.Fatalf("get meeting: %v", err)
	}
	if stored.ToResponse().ConfirmationSMSSentAt == nil {
		t.Fatal("expected sms confirmation timestamp")
	}
	if got := len(f.store.EventsOfType(domain.AuditConfirmationSent)); got != 1 {
		t.Fatalf("expected one confirmation audit row, got %d", got)
	}
}

func TestReminderTargetIgnoresMovedMeetings(t *testing.T) {
	f := newFixture(t)
	meeting := f.book(t, f.newPipeline(t, ""), at(15, 0))

	target, err := f.svc.ReminderTarget(context.Background(), f.org, meeting.ID, at(15, 0))
	if err != nil || target == nil {
		t.Fatalf("expected reminder target, got %v %v", target, err)
	}
	target, err = f.svc.ReminderTarget(context.Background(), f.org, meeting.ID, at(16, 0))
	if err != nil || target != nil {
		t.Fatalf("expected stale reminder to be ignored, got %v %v", target, err)
	}
}
