// Package identity provides the profiles bounded context module.
package identity

import (
	apphttp "activation_backend/internal/http"
	"activation_backend/internal/identity/handler"
	"activation_backend/internal/identity/repository"
	"activation_backend/internal/identity/service"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	handler *handler.Handler
	service *service.Service
}

func NewModule(pool *pgxpool.Pool) *Module {
	repo := repository.New(pool)
	svc := service.New(repo)

	return &Module{handler: handler.New(svc), service: svc}
}

func (m *Module) Name() string {
	return "identity"
}

func (m *Module) Service() *service.Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/profiles"))
}

var _ apphttp.Module = (*Module)(nil)
