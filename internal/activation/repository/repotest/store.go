// Package repotest provides an in-memory activation store for tests.
package repotest

import (
	"context"
	"sort"
	"sync"
	"time"

	"activation_backend/internal/activation/domain"
	"activation_backend/internal/activation/repository"
	"activation_backend/platform/apperr"

	"github.com/google/uuid"
)

// Store is an in-memory repository.Store for tests. RunInTx snapshots the tables and
// restores them when fn fails, so tests observe real rollback behavior.
type Store struct {
	mu          sync.Mutex
	meetings    map[uuid.UUID]repository.Meeting
	pipelines   map[uuid.UUID]repository.Pipeline
	events      []repository.Event
	attachments []repository.Attachment

	FailUpdatePipeline error
	FailAppendEvent    error
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		meetings:  map[uuid.UUID]repository.Meeting{},
		pipelines: map[uuid.UUID]repository.Pipeline{},
	}
}

func (s *Store) RunInTx(_ context.Context, fn func(repository.Store) error) error {
	s.mu.Lock()
	meetings := make(map[uuid.UUID]repository.Meeting, len(s.meetings))
	for k, v := range s.meetings {
		meetings[k] = v
	}
	pipelines := make(map[uuid.UUID]repository.Pipeline, len(s.pipelines))
	for k, v := range s.pipelines {
		pipelines[k] = v
	}
	eventCount := len(s.events)
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.meetings = meetings
		s.pipelines = pipelines
		s.events = s.events[:eventCount]
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) LockActivator(context.Context, uuid.UUID) error { return nil }

func (s *Store) FindConflict(_ context.Context, organizationID, activatorID uuid.UUID, start, end time.Time, exclude *uuid.UUID) (*repository.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.meetings {
		if m.OrganizationID != organizationID || m.ActivatorUserID != activatorID || m.Status != string(domain.MeetingScheduled) {
			continue
		}
		if exclude != nil && m.ID == *exclude {
			continue
		}
		if domain.Overlaps(start, end, m.ScheduledStartAt, m.ScheduledEndAt) {
			found := m
			return &found, nil
		}
	}
	return nil, nil
}

func (s *Store) CreateMeeting(_ context.Context, m *repository.Meeting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meetings[m.ID] = *m
	return nil
}

func (s *Store) GetMeeting(_ context.Context, id, organizationID uuid.UUID) (*repository.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[id]
	if !ok || m.OrganizationID != organizationID {
		return nil, apperr.NotFound("activation meeting not found")
	}
	return &m, nil
}

func (s *Store) GetMeetingForUpdate(ctx context.Context, id, organizationID uuid.UUID) (*repository.Meeting, error) {
	return s.GetMeeting(ctx, id, organizationID)
}

func (s *Store) UpdateMeetingSchedule(_ context.Context, id, organizationID uuid.UUID, start, end time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[id]
	if !ok || m.OrganizationID != organizationID {
		return apperr.NotFound("activation meeting not found")
	}
	m.ScheduledStartAt, m.ScheduledEndAt = start, end
	m.Status = string(domain.MeetingScheduled)
	s.meetings[id] = m
	return nil
}

func (s *Store) UpdateMeetingStatus(_ context.Context, id, organizationID uuid.UUID, status string, completedAt *time.Time, notes *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[id]
	if !ok || m.OrganizationID != organizationID {
		return apperr.NotFound("activation meeting not found")
	}
	m.Status = status
	if completedAt != nil {
		m.CompletedAt = completedAt
	}
	if notes != nil {
		m.Notes = notes
	}
	s.meetings[id] = m
	return nil
}

func (s *Store) MarkConfirmationSent(_ context.Context, id, organizationID uuid.UUID, channel string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[id]
	if !ok || m.OrganizationID != organizationID {
		return apperr.NotFound("activation meeting not found")
	}
	if channel == "sms" {
		m.ConfirmationSMSSentAt = &at
	} else {
		m.ConfirmationEmailSentAt = &at
	}
	s.meetings[id] = m
	return nil
}

func (s *Store) ListMeetings(_ context.Context, params repository.MeetingListParams) (*repository.MeetingListResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]repository.Meeting, 0)
	for _, m := range s.meetings {
		if m.OrganizationID != params.OrganizationID {
			continue
		}
		if params.ActivatorID != nil && m.ActivatorUserID != *params.ActivatorID {
			continue
		}
		if params.Status != nil && m.Status != *params.Status {
			continue
		}
		items = append(items, m)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ScheduledStartAt.Before(items[j].ScheduledStartAt) })
	return &repository.MeetingListResult{Items: items, Total: len(items), Page: params.Page, PageSize: params.PageSize, TotalPages: 1}, nil
}

func (s *Store) ListMeetingsByPipeline(_ context.Context, pipelineID, organizationID uuid.UUID) ([]repository.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]repository.Meeting, 0)
	for _, m := range s.meetings {
		if m.OrganizationID == organizationID && m.TrialPipelineID != nil && *m.TrialPipelineID == pipelineID {
			items = append(items, m)
		}
	}
	return items, nil
}

func (s *Store) ListScheduledInRange(_ context.Context, organizationID, activatorID uuid.UUID, from, to time.Time) ([]repository.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]repository.Meeting, 0)
	for _, m := range s.meetings {
		if m.OrganizationID == organizationID && m.ActivatorUserID == activatorID &&
			m.Status == string(domain.MeetingScheduled) && domain.Overlaps(from, to, m.ScheduledStartAt, m.ScheduledEndAt) {
			items = append(items, m)
		}
	}
	return items, nil
}

func (s *Store) CreatePipeline(_ context.Context, p *repository.Pipeline) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pipelines[p.ID] = *p
	return nil
}

func (s *Store) GetPipeline(_ context.Context, id, organizationID uuid.UUID) (*repository.Pipeline, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pipelines[id]
	if !ok || p.OrganizationID != organizationID {
		return nil, apperr.NotFound("trial pipeline not found")
	}
	return &p, nil
}

func (s *Store) GetPipelineForUpdate(ctx context.Context, id, organizationID uuid.UUID) (*repository.Pipeline, error) {
	return s.GetPipeline(ctx, id, organizationID)
}

func (s *Store) FindOpenPipelineByLead(_ context.Context, organizationID, leadID uuid.UUID) (*repository.Pipeline, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.pipelines {
		if p.OrganizationID == organizationID && p.CrmLeadID == leadID && !domain.PipelineStatus(p.ActivationStatus).IsTerminal() {
			return &p, nil
		}
	}
	return nil, nil
}

func (s *Store) FindOpenPipelineByJCCUser(_ context.Context, jccUserID string) (*repository.Pipeline, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.pipelines {
		if p.JCCUserID != nil && *p.JCCUserID == jccUserID && !domain.PipelineStatus(p.ActivationStatus).IsTerminal() {
			return &p, nil
		}
	}
	return nil, nil
}

func (s *Store) UpdatePipeline(_ context.Context, p *repository.Pipeline) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailUpdatePipeline != nil {
		return s.FailUpdatePipeline
	}
	if _, ok := s.pipelines[p.ID]; !ok {
		return apperr.NotFound("trial pipeline not found")
	}
	s.pipelines[p.ID] = *p
	return nil
}

func (s *Store) ListPipelines(_ context.Context, params repository.PipelineListParams) (*repository.PipelineListResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]repository.Pipeline, 0)
	for _, p := range s.pipelines {
		if p.OrganizationID != params.OrganizationID {
			continue
		}
		if params.Status != nil && p.ActivationStatus != *params.Status {
			continue
		}
		items = append(items, p)
	}
	return &repository.PipelineListResult{Items: items, Total: len(items), Page: params.Page, PageSize: params.PageSize, TotalPages: 1}, nil
}

func (s *Store) ListDueFollowups(_ context.Context, now time.Time, limit int) ([]repository.Pipeline, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]repository.Pipeline, 0)
	for _, p := range s.pipelines {
		if p.ActivationStatus == string(domain.PipelineNoShow) && p.NextFollowupAt != nil && !p.NextFollowupAt.After(now) {
			items = append(items, p)
		}
		if len(items) == limit {
			break
		}
	}
	return items, nil
}

func (s *Store) AppendEvent(_ context.Context, e *repository.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAppendEvent != nil {
		return s.FailAppendEvent
	}
	s.events = append(s.events, *e)
	return nil
}

func (s *Store) ListEvents(_ context.Context, pipelineID, organizationID uuid.UUID) ([]repository.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]repository.Event, 0)
	for _, e := range s.events {
		if e.TrialPipelineID == pipelineID && e.OrganizationID == organizationID {
			items = append(items, e)
		}
	}
	return items, nil
}

func (s *Store) CreateAttachment(_ context.Context, a *repository.Attachment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attachments = append(s.attachments, *a)
	return nil
}

func (s *Store) ListAttachments(_ context.Context, meetingID, organizationID uuid.UUID) ([]repository.Attachment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]repository.Attachment, 0)
	for _, a := range s.attachments {
		if a.MeetingID == meetingID && a.OrganizationID == organizationID {
			items = append(items, a)
		}
	}
	return items, nil
}

// EventsOfType returns the audit rows of one type in insertion order.
func (s *Store) EventsOfType(eventType string) []repository.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []repository.Event
	for _, e := range s.events {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

// MeetingCount returns the number of stored meetings.
func (s *Store) MeetingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.meetings)
}

var _ repository.Store = (*Store)(nil)
