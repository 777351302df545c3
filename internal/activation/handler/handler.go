package handler

import (
	"net/http"

	"activation_backend/internal/activation/service"
	"activation_backend/internal/activation/transport"
	"activation_backend/platform/httpkit"
	"activation_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid id"
)

// Handler handles HTTP requests for activation meetings and trial pipelines.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new activation handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// caller is the authenticated user scoped to one organization.
type caller struct {
	userID   uuid.UUID
	tenantID uuid.UUID
	isAdmin  bool
}

func mustGetCaller(c *gin.Context) (caller, bool) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return caller{}, false
	}
	tenantID, ok := httpkit.MustGetTenantID(c, identity)
	if !ok {
		return caller{}, false
	}
	return caller{
		userID:   identity.UserID(),
		tenantID: tenantID,
		isAdmin:  containsRole(identity.Roles(), "admin"),
	}, true
}

func parseIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return uuid.UUID{}, false
	}
	return id, true
}

// bindJSON binds and validates a JSON body. An empty body is allowed when
// optional is set, for actions whose body only carries notes.
func (h *Handler) bindJSON(c *gin.Context, req any, optional bool) bool {
	if !(optional && c.Request.ContentLength == 0) {
		if err := c.ShouldBindJSON(req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
			return false
		}
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return false
	}
	return true
}

func (h *Handler) bindQuery(c *gin.Context, req any) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return false
	}
	return true
}

// RegisterMeetingRoutes registers routes under /activation-meetings.
func (h *Handler) RegisterMeetingRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.CreateMeeting)
	rg.GET("", h.ListMeetings)
	rg.GET("/slots", h.GetSlots)
	rg.GET("/:id", h.GetMeeting)
	rg.POST("/:id/complete", h.CompleteMeeting)
	rg.POST("/:id/no-show", h.MarkNoShow)
	rg.POST("/:id/cancel", h.CancelMeeting)
	rg.POST("/:id/send-confirmation", h.SendConfirmation)
	rg.GET("/:id/attachments", h.ListAttachments)
	rg.POST("/:id/attachments", h.CreateAttachment)
}

// RegisterActivationRoutes registers routes under /activations.
func (h *Handler) RegisterActivationRoutes(rg *gin.RouterGroup) {
	rg.POST("/reschedule", h.Reschedule)
	rg.GET("/events", h.ListEvents)
}

// RegisterPipelineRoutes registers routes under /trial-pipelines.
func (h *Handler) RegisterPipelineRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.CreatePipeline)
	rg.GET("", h.ListPipelines)
	rg.POST("/kill-by-contact", h.KillByContact)
	rg.GET("/:id", h.GetPipeline)
	rg.POST("/:id/kill", h.KillPipeline)
}

// CreateMeeting handles POST /api/v1/activation-meetings
func (h *Handler) CreateMeeting(c *gin.Context) {
	var req transport.CreateMeetingRequest
	if !h.bindJSON(c, &req, false) {
		return
	}
	cl, ok := mustGetCaller(c)
	if !ok {
		return
	}

	result, err := h.svc.CreateMeeting(c.Request.Context(), cl.userID, cl.isAdmin, cl.tenantID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// ListMeetings handles GET /api/v1/activation-meetings
func (h *Handler) ListMeetings(c *gin.Context) {
	var req transport.ListMeetingsRequest
	if !h.bindQuery(c, &req) {
		return
	}
	cl, ok := mustGetCaller(c)
	if !ok {
		return
	}

	result, err := h.svc.ListMeetings(c.Request.Context(), cl.userID, cl.isAdmin, cl.tenantID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// GetMeeting handles GET /api/v1/activation-meetings/:id
func (h *Handler) GetMeeting(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	cl, ok := mustGetCaller(c)
	if !ok {
		return
	}

	result, err := h.svc.GetMeeting(c.Request.Context(), id, cl.userID, cl.isAdmin, cl.tenantID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// GetSlots handles GET /api/v1/activation-meetings/slots
func (h *Handler) GetSlots(c *gin.Context) {
	var req transport.SlotsRequest
	if !h.bindQuery(c, &req) {
		return
	}
	cl, ok := mustGetCaller(c)
	if !ok {
		return
	}

	result, err := h.svc.GetSlots(c.Request.Context(), cl.userID, cl.isAdmin, cl.tenantID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

type meetingAction func(svc *service.Service, c *gin.Context, id uuid.UUID, cl caller, req transport.MeetingActionRequest) (*transport.MeetingEnvelope, error)

func (h *Handler) handleMeetingAction(c *gin.Context, action meetingAction) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req transport.MeetingActionRequest
	if !h.bindJSON(c, &req, true) {
		return
	}
	cl, ok := mustGetCaller(c)
	if !ok {
		return
	}

	result, err := action(h.svc, c, id, cl, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// CompleteMeeting handles POST /api/v1/activation-meetings/:id/complete
func (h *Handler) CompleteMeeting(c *gin.Context) {
	h.handleMeetingAction(c, func(svc *service.Service, c *gin.Context, id uuid.UUID, cl caller, req transport.MeetingActionRequest) (*transport.MeetingEnvelope, error) {
		return svc.CompleteMeeting(c.Request.Context(), id, cl.userID, cl.isAdmin, cl.tenantID, req)
	})
}

// MarkNoShow handles POST /api/v1/activation-meetings/:id/no-show
func (h *Handler) MarkNoShow(c *gin.Context) {
	h.handleMeetingAction(c, func(svc *service.Service, c *gin.Context, id uuid.UUID, cl caller, req transport.MeetingActionRequest) (*transport.MeetingEnvelope, error) {
		return svc.MarkNoShow(c.Request.Context(), id, cl.userID, cl.isAdmin, cl.tenantID, req)
	})
}

// CancelMeeting handles POST /api/v1/activation-meetings/:id/cancel
func (h *Handler) CancelMeeting(c *gin.Context) {
	h.handleMeetingAction(c, func(svc *service.Service, c *gin.Context, id uuid.UUID, cl caller, req transport.MeetingActionRequest) (*transport.MeetingEnvelope, error) {
		return svc.CancelMeeting(c.Request.Context(), id, cl.userID, cl.isAdmin, cl.tenantID, req)
	})
}

// SendConfirmation handles POST /api/v1/activation-meetings/:id/send-confirmation
func (h *Handler) SendConfirmation(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	cl, ok := mustGetCaller(c)
	if !ok {
		return
	}

	result, err := h.svc.SendConfirmation(c.Request.Context(), id, cl.userID, cl.isAdmin, cl.tenantID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusAccepted, result)
}

// ListAttachments handles GET /api/v1/activation-meetings/:id/attachments
func (h *Handler) ListAttachments(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	cl, ok := mustGetCaller(c)
	if !ok {
		return
	}

	result, err := h.svc.ListAttachments(c.Request.Context(), id, cl.userID, cl.isAdmin, cl.tenantID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// CreateAttachment handles POST /api/v1/activation-meetings/:id/attachments
func (h *Handler) CreateAttachment(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req transport.CreateAttachmentRequest
	if !h.bindJSON(c, &req, false) {
		return
	}
	cl, ok := mustGetCaller(c)
	if !ok {
		return
	}

	result, err := h.svc.CreateAttachment(c.Request.Context(), id, cl.userID, cl.isAdmin, cl.tenantID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// Reschedule handles POST /api/v1/activations/reschedule
func (h *Handler) Reschedule(c *gin.Context) {
	var req transport.RescheduleRequest
	if !h.bindJSON(c, &req, false) {
		return
	}
	cl, ok := mustGetCaller(c)
	if !ok {
		return
	}

	result, err := h.svc.Reschedule(c.Request.Context(), cl.userID, cl.isAdmin, cl.tenantID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// ListEvents handles GET /api/v1/activations/events
func (h *Handler) ListEvents(c *gin.Context) {
	var req transport.ListEventsRequest
	if !h.bindQuery(c, &req) {
		return
	}
	cl, ok := mustGetCaller(c)
	if !ok {
		return
	}

	pipelineID, err := uuid.Parse(req.TrialPipelineID)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	result, err := h.svc.ListEvents(c.Request.Context(), cl.userID, cl.isAdmin, cl.tenantID, pipelineID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// CreatePipeline handles POST /api/v1/trial-pipelines
func (h *Handler) CreatePipeline(c *gin.Context) {
	var req transport.CreatePipelineRequest
	if !h.bindJSON(c, &req, false) {
		return
	}
	cl, ok := mustGetCaller(c)
	if !ok {
		return
	}

	result, err := h.svc.CreatePipeline(c.Request.Context(), cl.userID, cl.isAdmin, cl.tenantID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// ListPipelines handles GET /api/v1/trial-pipelines
func (h *Handler) ListPipelines(c *gin.Context) {
	var req transport.ListPipelinesRequest
	if !h.bindQuery(c, &req) {
		return
	}
	cl, ok := mustGetCaller(c)
	if !ok {
		return
	}

	result, err := h.svc.ListPipelines(c.Request.Context(), cl.userID, cl.isAdmin, cl.tenantID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// GetPipeline handles GET /api/v1/trial-pipelines/:id
func (h *Handler) GetPipeline(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	cl, ok := mustGetCaller(c)
	if !ok {
		return
	}

	result, err := h.svc.GetPipelineDetail(c.Request.Context(), id, cl.userID, cl.isAdmin, cl.tenantID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// KillPipeline handles POST /api/v1/trial-pipelines/:id/kill
func (h *Handler) KillPipeline(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req transport.KillPipelineRequest
	if !h.bindJSON(c, &req, false) {
		return
	}
	cl, ok := mustGetCaller(c)
	if !ok {
		return
	}

	result, err := h.svc.KillPipeline(c.Request.Context(), id, cl.userID, cl.isAdmin, cl.tenantID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// KillByContact handles POST /api/v1/trial-pipelines/kill-by-contact
func (h *Handler) KillByContact(c *gin.Context) {
	var req transport.KillByContactRequest
	if !h.bindJSON(c, &req, false) {
		return
	}
	cl, ok := mustGetCaller(c)
	if !ok {
		return
	}

	result, err := h.svc.KillByContact(c.Request.Context(), cl.userID, cl.isAdmin, cl.tenantID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// FirstLeadWebhook handles POST /api/v1/webhooks/control-tower/first-lead
func (h *Handler) FirstLeadWebhook(c *gin.Context) {
	var req transport.FirstLeadWebhookRequest
	if !h.bindJSON(c, &req, false) {
		return
	}

	result, err := h.svc.ActivateByJCCUser(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// SweepFollowups handles POST /api/v1/cron/followups
func (h *Handler) SweepFollowups(c *gin.Context) {
	result, err := h.svc.SweepFollowups(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func containsRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
