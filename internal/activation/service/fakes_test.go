package service

import (
	"context"
	"errors"
	"sync"

	"activation_backend/internal/events"
	"activation_backend/platform/apperr"

	"github.com/google/uuid"
)

type fakeProfiles map[uuid.UUID]Profile

func (f fakeProfiles) GetProfile(_ context.Context, _ uuid.UUID, userID uuid.UUID) (Profile, error) {
	p, ok := f[userID]
	if !ok {
		return Profile{}, apperr.NotFound("profile not found")
	}
	return p, nil
}

type fakeLeads map[uuid.UUID]Lead

func (f fakeLeads) GetLead(_ context.Context, _ uuid.UUID, leadID uuid.UUID) (Lead, error) {
	l, ok := f[leadID]
	if !ok {
		return Lead{}, apperr.NotFound("lead not found")
	}
	return l, nil
}

func (f fakeLeads) FindLeadByContact(_ context.Context, _ uuid.UUID, phone, email string) (*Lead, error) {
	for _, l := range f {
		if (phone != "" && l.Phone == phone) || (email != "" && l.Email == email) {
			found := l
			return &found, nil
		}
	}
	return nil, nil
}

// recordingBus captures published events synchronously.
type recordingBus struct {
	mu        sync.Mutex
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, event)
}

func (b *recordingBus) PublishSync(ctx context.Context, event events.Event) error {
	b.Publish(ctx, event)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func (b *recordingBus) names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.published))
	for i, e := range b.published {
		out[i] = e.EventName()
	}
	return out
}

var errInjected = errors.New("injected failure")
