package service

import (
	"context"
	"time"

	"activation_backend/internal/activation/domain"
	"activation_backend/internal/activation/repository"
	"activation_backend/internal/activation/transport"
	"activation_backend/internal/events"
	"activation_backend/platform/apperr"
	"activation_backend/platform/phone"
	"activation_backend/platform/sanitize"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// CreatePipeline opens a queued trial pipeline for a CRM lead.
func (s *Service) CreatePipeline(ctx context.Context, userID uuid.UUID, isAdmin bool, tenantID uuid.UUID, req transport.CreatePipelineRequest) (*transport.PipelineResponse, error) {
	actor, err := s.resolveActor(ctx, tenantID, userID, isAdmin)
	if err != nil {
		return nil, err
	}
	if actor.Role == domain.RoleActivator {
		return nil, apperr.Forbidden("only SDRs and admins can open trial pipelines").WithCode(apperr.CodeNotPermitted)
	}

	if _, err := s.leads.GetLead(ctx, tenantID, req.CrmLeadID); err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, apperr.Validation("crmLeadId does not exist")
		}
		return nil, err
	}
	if req.AssignedActivatorID != nil {
		profile, err := s.profiles.GetProfile(ctx, tenantID, *req.AssignedActivatorID)
		if err != nil || !profile.Role.CanHostMeetings() {
			return nil, apperr.Validation("assignedActivatorId is not an activator of this organization")
		}
	}

	now := s.now().UTC()
	pipeline := &repository.Pipeline{
		ID:                  uuid.New(),
		OrganizationID:      tenantID,
		CrmLeadID:           req.CrmLeadID,
		AssignedActivatorID: req.AssignedActivatorID,
		ActivationStatus:    string(domain.PipelineQueued),
		FollowupOwnerRole:   string(domain.FollowupOwnerSDR),
		CreditsRemaining:    req.CreditsRemaining,
		JCCUserID:           nilIfEmpty(sanitize.Text(req.JCCUserID)),
		CreatedByUserID:     actor.UserID,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	err = s.store.RunInTx(ctx, func(tx repository.Store) error {
		existing, err := tx.FindOpenPipelineByLead(ctx, tenantID, req.CrmLeadID)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperr.Conflict("lead already has an open trial pipeline").
				WithCode(apperr.CodePipelineExists).
				WithDetails(map[string]uuid.UUID{"trialPipelineId": existing.ID})
		}
		return tx.CreatePipeline(ctx, pipeline)
	})
	if err != nil {
		return nil, err
	}

	s.appendAudit(ctx, repository.Event{
		OrganizationID:  tenantID,
		TrialPipelineID: pipeline.ID,
		EventType:       domain.AuditPipelineCreated,
		ActorUserID:     &actor.UserID,
		Metadata:        map[string]any{"crmLeadId": pipeline.CrmLeadID, "actorRole": actor.Role},
	})

	resp := pipeline.ToResponse()
	return &resp, nil
}

// ListPipelines lists trial pipelines of the organization.
func (s *Service) ListPipelines(ctx context.Context, userID uuid.UUID, isAdmin bool, tenantID uuid.UUID, req transport.ListPipelinesRequest) (*transport.PipelineListResponse, error) {
	if _, err := s.resolveActor(ctx, tenantID, userID, isAdmin); err != nil {
		return nil, err
	}
	activatorID, err := parseUUIDFilter(req.ActivatorID, "activatorUserId")
	if err != nil {
		return nil, err
	}

	params := repository.PipelineListParams{
		OrganizationID: tenantID,
		ActivatorID:    activatorID,
		Page:           max(req.Page, 1),
		PageSize:       clampPageSize(req.PageSize),
	}
	if req.Status != "" {
		status := req.Status
		params.Status = &status
	}

	result, err := s.store.ListPipelines(ctx, params)
	if err != nil {
		return nil, err
	}
	items := make([]transport.PipelineResponse, len(result.Items))
	for i := range result.Items {
		items[i] = result.Items[i].ToResponse()
	}
	return &transport.PipelineListResponse{
		Items:      items,
		Total:      result.Total,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalPages: result.TotalPages,
	}, nil
}

// GetPipelineDetail returns a pipeline with its meetings and audit trail.
func (s *Service) GetPipelineDetail(ctx context.Context, id, userID uuid.UUID, isAdmin bool, tenantID uuid.UUID) (*transport.PipelineDetailResponse, error) {
	if _, err := s.resolveActor(ctx, tenantID, userID, isAdmin); err != nil {
		return nil, err
	}

	var (
		pipeline *repository.Pipeline
		meetings []repository.Meeting
		audit    []repository.Event
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		pipeline, err = s.store.GetPipeline(gctx, id, tenantID)
		return err
	})
	g.Go(func() error {
		var err error
		meetings, err = s.store.ListMeetingsByPipeline(gctx, id, tenantID)
		return err
	})
	g.Go(func() error {
		var err error
		audit, err = s.store.ListEvents(gctx, id, tenantID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	resp := &transport.PipelineDetailResponse{
		Pipeline: pipeline.ToResponse(),
		Meetings: make([]transport.MeetingResponse, len(meetings)),
		Events:   make([]transport.EventResponse, len(audit)),
	}
	for i := range meetings {
		resp.Meetings[i] = meetings[i].ToResponse()
	}
	for i := range audit {
		resp.Events[i] = audit[i].ToResponse()
	}
	return resp, nil
}

// KillPipeline ends a trial pipeline and cancels its scheduled meetings.
func (s *Service) KillPipeline(ctx context.Context, id, userID uuid.UUID, isAdmin bool, tenantID uuid.UUID, req transport.KillPipelineRequest) (*transport.PipelineResponse, error) {
	actor, err := s.resolveActor(ctx, tenantID, userID, isAdmin)
	if err != nil {
		return nil, err
	}
	if actor.Role != domain.RoleAdmin {
		return nil, apperr.Forbidden("only admins can kill trial pipelines").WithCode(apperr.CodeNotPermitted)
	}
	return s.kill(ctx, actor, tenantID, id, req.Reason, sanitize.Text(req.Note), nil)
}

// KillByContact resolves a lead by phone or email and kills its open pipeline.
func (s *Service) KillByContact(ctx context.Context, userID uuid.UUID, isAdmin bool, tenantID uuid.UUID, req transport.KillByContactRequest) (*transport.PipelineResponse, error) {
	actor, err := s.resolveActor(ctx, tenantID, userID, isAdmin)
	if err != nil {
		return nil, err
	}
	if actor.Role != domain.RoleAdmin {
		return nil, apperr.Forbidden("only admins can kill trial pipelines").WithCode(apperr.CodeNotPermitted)
	}

	phoneNumber := ""
	if req.Phone != "" {
		phoneNumber = phone.NormalizeE164Region(req.Phone, s.settings.DefaultPhoneRegion)
	}
	email := sanitize.Email(req.Email)
	if phoneNumber == "" && email == "" {
		return nil, apperr.Validation("phone or email is required")
	}

	lead, err := s.leads.FindLeadByContact(ctx, tenantID, phoneNumber, email)
	if err != nil {
		return nil, err
	}
	if lead == nil {
		return nil, apperr.NotFound("no lead matches this contact")
	}
	open, err := s.store.FindOpenPipelineByLead(ctx, tenantID, lead.ID)
	if err != nil {
		return nil, err
	}
	if open == nil {
		return nil, apperr.NotFound("lead has no open trial pipeline")
	}

	contact := map[string]any{"phone": phoneNumber, "email": email, "crmLeadId": lead.ID}
	return s.kill(ctx, actor, tenantID, open.ID, req.Reason, sanitize.Text(req.Note), contact)
}

func (s *Service) kill(ctx context.Context, actor domain.Actor, tenantID, pipelineID uuid.UUID, reason, note string, extra map[string]any) (*transport.PipelineResponse, error) {
	var (
		pipeline  *repository.Pipeline
		oldStatus string
		canceled  []*repository.Meeting
	)

	err := s.store.RunInTx(ctx, func(tx repository.Store) error {
		var err error
		pipeline, err = tx.GetPipelineForUpdate(ctx, pipelineID, tenantID)
		if err != nil {
			return err
		}
		oldStatus = pipeline.ActivationStatus
		if err := s.applyPipelineEvent(pipeline, domain.EventKilled); err != nil {
			return err
		}
		killedAt := s.now().UTC()
		pipeline.KillReason = &reason
		pipeline.KilledAt = &killedAt
		pipeline.ScheduledStartAt = nil
		pipeline.ScheduledEndAt = nil

		meetings, err := tx.ListMeetingsByPipeline(ctx, pipelineID, tenantID)
		if err != nil {
			return err
		}
		for i := range meetings {
			m := &meetings[i]
			if m.Status != string(domain.MeetingScheduled) {
				continue
			}
			if err := tx.UpdateMeetingStatus(ctx, m.ID, tenantID, string(domain.MeetingCanceled), nil, nil); err != nil {
				return err
			}
			m.Status = string(domain.MeetingCanceled)
			canceled = append(canceled, m)
		}
		return tx.UpdatePipeline(ctx, pipeline)
	})
	if err != nil {
		return nil, err
	}

	metadata := map[string]any{
		"reason":           reason,
		"oldStatus":        oldStatus,
		"actorRole":        actor.Role,
		"canceledMeetings": len(canceled),
	}
	if note != "" {
		metadata["note"] = note
	}
	for k, v := range extra {
		metadata[k] = v
	}
	s.appendAudit(ctx, repository.Event{
		OrganizationID:  tenantID,
		TrialPipelineID: pipeline.ID,
		EventType:       domain.AuditKilled,
		ActorUserID:     &actor.UserID,
		Metadata:        metadata,
	})

	s.publishPipelineChange(ctx, pipeline, oldStatus, &actor.UserID)
	for _, m := range canceled {
		s.publish(ctx, events.MeetingStatusChanged{
			BaseEvent:      events.NewBaseEvent(),
			MeetingDetails: s.meetingDetails(ctx, m, pipeline),
			OldStatus:      string(domain.MeetingScheduled),
			NewStatus:      m.Status,
			ChangedBy:      actor.UserID,
		})
	}

	resp := pipeline.ToResponse()
	return &resp, nil
}

// ActivateByJCCUser marks the pipeline correlated with a Control Tower user as
// activated. It is driven by the first-lead webhook.
func (s *Service) ActivateByJCCUser(ctx context.Context, req transport.FirstLeadWebhookRequest) (*transport.FirstLeadWebhookResponse, error) {
	jccUserID := sanitize.Text(req.JCCUserID)
	if jccUserID == "" {
		return nil, apperr.Validation("jccUserId is required")
	}

	open, err := s.store.FindOpenPipelineByJCCUser(ctx, jccUserID)
	if err != nil {
		return nil, err
	}
	if open == nil {
		return nil, apperr.NotFound("no open trial pipeline for this jccUserId")
	}

	activatedAt := s.now().UTC()
	if req.ReceivedAt != nil && !req.ReceivedAt.IsZero() {
		activatedAt = req.ReceivedAt.UTC()
	}

	var pipeline *repository.Pipeline
	var oldStatus string
	err = s.store.RunInTx(ctx, func(tx repository.Store) error {
		var err error
		pipeline, err = tx.GetPipelineForUpdate(ctx, open.ID, open.OrganizationID)
		if err != nil {
			return err
		}
		oldStatus = pipeline.ActivationStatus
		if err := s.applyPipelineEvent(pipeline, domain.EventActivated); err != nil {
			return err
		}
		pipeline.ActivatedAt = &activatedAt
		return tx.UpdatePipeline(ctx, pipeline)
	})
	if err != nil {
		return nil, err
	}

	s.appendAudit(ctx, repository.Event{
		OrganizationID:  pipeline.OrganizationID,
		TrialPipelineID: pipeline.ID,
		EventType:       domain.AuditActivated,
		Metadata: map[string]any{
			"jccUserId":   jccUserID,
			"oldStatus":   oldStatus,
			"activatedAt": activatedAt,
			"source":      "control_tower_first_lead",
		},
	})
	s.publishPipelineChange(ctx, pipeline, oldStatus, nil)

	return &transport.FirstLeadWebhookResponse{Success: true, Pipeline: pipeline.ToResponse()}, nil
}

// SweepFollowups publishes FollowupDue for every no-show pipeline whose
// follow-up time has passed and pushes its next follow-up out by the delay.
func (s *Service) SweepFollowups(ctx context.Context) (*transport.FollowupSweepResponse, error) {
	now := s.now().UTC()
	due, err := s.store.ListDueFollowups(ctx, now, followupBatch)
	if err != nil {
		return nil, err
	}

	published := 0
	for i := range due {
		evt, err := s.claimFollowup(ctx, due[i].ID, due[i].OrganizationID, now)
		if err != nil {
			s.log.BestEffortFailure(ctx, "claim_followup", err, "trial_pipeline_id", due[i].ID.String())
			continue
		}
		if evt == nil {
			continue
		}
		s.publish(ctx, *evt)
		published++
	}
	return &transport.FollowupSweepResponse{Published: published}, nil
}

// claimFollowup re-checks a due pipeline under lock and advances its
// next_followup_at. It returns nil when the pipeline moved on meanwhile.
func (s *Service) claimFollowup(ctx context.Context, id, organizationID uuid.UUID, now time.Time) (*events.FollowupDue, error) {
	var evt *events.FollowupDue
	err := s.store.RunInTx(ctx, func(tx repository.Store) error {
		p, err := tx.GetPipelineForUpdate(ctx, id, organizationID)
		if err != nil {
			return err
		}
		if p.ActivationStatus != string(domain.PipelineNoShow) || p.NextFollowupAt == nil || p.NextFollowupAt.After(now) {
			return nil
		}
		dueAt := *p.NextFollowupAt
		next := now.Add(s.settings.FollowupDelay)
		p.NextFollowupAt = &next
		p.UpdatedAt = now
		if err := tx.UpdatePipeline(ctx, p); err != nil {
			return err
		}
		evt = &events.FollowupDue{
			BaseEvent:       events.NewBaseEvent(),
			TrialPipelineID: p.ID,
			OrganizationID:  p.OrganizationID,
			CrmLeadID:       p.CrmLeadID,
			NoShowCount:     p.NoShowCount,
			OwnerRole:       p.FollowupOwnerRole,
			DueAt:           dueAt,
		}
		return nil
	})
	return evt, err
}

// FollowupContact is who owns a due follow-up and which business they call.
type FollowupContact struct {
	OwnerName    string
	OwnerEmail   string
	BusinessName string
	ContactPhone string
}

// FollowupContact resolves the follow-up owner of a pipeline: the assigned
// activator after a completed meeting, the creating SDR otherwise.
func (s *Service) FollowupContact(ctx context.Context, tenantID, pipelineID uuid.UUID) (*FollowupContact, error) {
	p, err := s.store.GetPipeline(ctx, pipelineID, tenantID)
	if err != nil {
		return nil, err
	}
	ownerID := p.CreatedByUserID
	if p.FollowupOwnerRole == string(domain.FollowupOwnerActivator) && p.AssignedActivatorID != nil {
		ownerID = *p.AssignedActivatorID
	}
	owner, err := s.profiles.GetProfile(ctx, tenantID, ownerID)
	if err != nil {
		return nil, err
	}
	contact := &FollowupContact{OwnerName: owner.FullName, OwnerEmail: owner.Email}
	if lead, err := s.leads.GetLead(ctx, tenantID, p.CrmLeadID); err == nil {
		contact.BusinessName = lead.BusinessName
		contact.ContactPhone = lead.Phone
	}
	return contact, nil
}
