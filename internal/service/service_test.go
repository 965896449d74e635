package service

import (
	"context"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/schoolpulse/comms/internal/identity"
	"github.com/schoolpulse/comms/internal/models"
	"github.com/schoolpulse/comms/internal/repository"
)

type published struct {
	group   string
	payload any
}

type capturePublisher struct {
	mu     sync.Mutex
	frames []published
}

func (p *capturePublisher) Publish(group string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames = append(p.frames, published{group: group, payload: payload})
}

func (p *capturePublisher) byGroup(group string) []any {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []any
	for _, f := range p.frames {
		if f.group == group {
			out = append(out, f.payload)
		}
	}
	return out
}

func (p *capturePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.frames)
}

func seedIdentities() []models.Identity {
	return []models.Identity{
		{ID: "x", Name: "Officer X", Role: models.RoleFieldOfficer.String(), Unit: "Nilore Sector"},
		{ID: "y", Name: "Officer Y", Role: models.RoleAreaOfficer.String(), Unit: "Nilore Sector"},
		{ID: "p", Name: "Principal P", Role: models.RolePrincipal.String(), Unit: "IMCB G-6"},
		{ID: "b", Name: "HQ Broadcast", Role: models.RoleBroadcaster.String(), Unit: "HQ"},
	}
}

func newTestService(t *testing.T) (*Service, *repository.MemoryRepository, *identity.MemoryDirectory, *capturePublisher) {
	t.Helper()
	repo := repository.NewMemoryRepository()
	dir := identity.NewMemoryDirectory(seedIdentities()...)
	pub := &capturePublisher{}
	svc := New(repo, dir, pub, nil, zap.NewNop().Sugar())
	return svc, repo, dir, pub
}

func mustSend(t *testing.T, svc *Service, in SendInput) models.Message {
	t.Helper()
	msg, err := svc.Send(context.Background(), in)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	return msg
}
