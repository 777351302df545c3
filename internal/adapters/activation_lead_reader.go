package adapters

import (
	"context"
	"fmt"

	activationsvc "activation_backend/internal/activation/service"
	"activation_backend/internal/leads"

	"github.com/google/uuid"
)

// ActivationLeadReader adapts the CRM leads to the activation service.
// It implements activation/service.LeadReader.
type ActivationLeadReader struct {
	leads leads.Service
}

// NewActivationLeadReader creates a new lead reader adapter.
func NewActivationLeadReader(leadService leads.Service) *ActivationLeadReader {
	return &ActivationLeadReader{leads: leadService}
}

func (a *ActivationLeadReader) GetLead(ctx context.Context, organizationID, leadID uuid.UUID) (activationsvc.Lead, error) {
	lead, err := a.leads.GetLeadByID(ctx, organizationID, leadID)
	if err != nil {
		return activationsvc.Lead{}, err
	}
	return toActivationLead(lead), nil
}

func (a *ActivationLeadReader) FindLeadByContact(ctx context.Context, organizationID uuid.UUID, phone, email string) (*activationsvc.Lead, error) {
	lead, err := a.leads.FindByContact(ctx, organizationID, phone, email)
	if err != nil {
		return nil, fmt.Errorf("look up lead by contact: %w", err)
	}
	if lead == nil {
		return nil, nil
	}
	out := toActivationLead(*lead)
	return &out, nil
}

func toActivationLead(l leads.Lead) activationsvc.Lead {
	return activationsvc.Lead{
		ID:           l.ID,
		BusinessName: l.BusinessName,
		ContactName:  l.ContactName,
		Phone:        l.Phone,
		Email:        l.Email,
		Timezone:     l.Timezone,
	}
}

var _ activationsvc.LeadReader = (*ActivationLeadReader)(nil)
