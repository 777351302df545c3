// Package activation provides the activation meeting and trial pipeline module.
package activation

import (
	"activation_backend/internal/activation/handler"
	"activation_backend/internal/activation/repository"
	"activation_backend/internal/activation/service"
	"activation_backend/internal/events"
	apphttp "activation_backend/internal/http"
	"activation_backend/platform/config"
	"activation_backend/platform/httpkit"
	"activation_backend/platform/logger"
	"activation_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	headerWebhookSecret = "X-Webhook-Secret"
	headerCronSecret    = "X-Cron-Secret"
)

// Config combines the config interfaces the module reads.
type Config interface {
	config.SchedulingConfig
	config.ControlTowerConfig
	config.CronConfig
}

// Module represents the activation domain module
type Module struct {
	handler       *handler.Handler
	Service       *service.Service
	Repository    *repository.Repository
	webhookSecret string
	cronSecret    string
}

// NewModule creates a new activation module with all dependencies wired
func NewModule(pool *pgxpool.Pool, profiles service.ProfileReader, leads service.LeadReader, eventBus events.Bus, val *validator.Validator, cfg Config, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, profiles, leads, eventBus, log, service.Settings{
		WorkdayStart:       cfg.GetWorkdayStart(),
		WorkdayEnd:         cfg.GetWorkdayEnd(),
		DefaultPhoneRegion: cfg.GetDefaultPhoneRegion(),
		FollowupDelay:      cfg.GetFollowupDelay(),
	})

	return &Module{
		handler:       handler.New(svc, val),
		Service:       svc,
		Repository:    repo,
		webhookSecret: cfg.GetControlTowerWebhookSecret(),
		cronSecret:    cfg.GetCronSecret(),
	}
}

// SetStorage enables meeting attachments.
func (m *Module) SetStorage(storage service.AttachmentStorage) {
	m.Service.SetStorage(storage)
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "activation"
}

// RegisterRoutes registers the module's routes under /api/v1
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterMeetingRoutes(ctx.Protected.Group("/activation-meetings"))
	m.handler.RegisterActivationRoutes(ctx.Protected.Group("/activations"))
	m.handler.RegisterPipelineRoutes(ctx.Protected.Group("/trial-pipelines"))

	machine := ctx.V1.Group("")
	machine.Use(ctx.MachineRateLimiter.RateLimit())
	machine.POST("/webhooks/control-tower/first-lead", httpkit.SharedSecret(headerWebhookSecret, m.webhookSecret), m.handler.FirstLeadWebhook)
	machine.POST("/cron/followups", httpkit.SharedSecret(headerCronSecret, m.cronSecret), m.handler.SweepFollowups)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
