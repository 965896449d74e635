package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/schoolpulse/comms/internal/apperrors"
	"github.com/schoolpulse/comms/internal/models"
)

func TestAssignSlots(t *testing.T) {
	cases := []struct {
		name         string
		senderRole   models.Role
		receiverRole models.Role
		wantA        string
		wantB        string
		recognized   bool
	}{
		{"field to area", models.RoleFieldOfficer, models.RoleAreaOfficer, "recv", "send", true},
		{"area to field", models.RoleAreaOfficer, models.RoleFieldOfficer, "send", "recv", true},
		{"area to principal", models.RoleAreaOfficer, models.RolePrincipal, "send", "recv", true},
		{"principal to area", models.RolePrincipal, models.RoleAreaOfficer, "recv", "send", true},
		{"field to principal falls back", models.RoleFieldOfficer, models.RolePrincipal, "send", "recv", false},
		{"unknown role falls back", models.RoleUnknown, models.RoleAreaOfficer, "send", "recv", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a, b, recognized := assignSlots("send", tc.senderRole, "recv", tc.receiverRole)
			if a != tc.wantA || b != tc.wantB {
				t.Fatalf("slots = (%s, %s), want (%s, %s)", a, b, tc.wantA, tc.wantB)
			}
			if recognized != tc.recognized {
				t.Fatalf("recognized = %v, want %v", recognized, tc.recognized)
			}
		})
	}
}

func TestResolveSwappedOrderSameConversation(t *testing.T) {
	pairs := []struct {
		name string
		a, b string
	}{
		{"field and area", "x", "y"},
		{"area and principal", "y", "p"},
	}
	for _, tc := range pairs {
		t.Run(tc.name, func(t *testing.T) {
			svc, _, _, _ := newTestService(t)
			ctx := context.Background()
			c1, err := svc.ResolveOrCreate(ctx, tc.a, tc.b, "Nilore Sector")
			if err != nil {
				t.Fatalf("resolve a->b: %v", err)
			}
			c2, err := svc.ResolveOrCreate(ctx, tc.b, tc.a, "Nilore Sector")
			if err != nil {
				t.Fatalf("resolve b->a: %v", err)
			}
			if c1.ID != c2.ID {
				t.Fatalf("swapped resolve created a second conversation: %s vs %s", c1.ID, c2.ID)
			}
			if c1.SlotA != c2.SlotA || c1.SlotB != c2.SlotB {
				t.Fatalf("slot order not canonical: (%s,%s) vs (%s,%s)", c1.SlotA, c1.SlotB, c2.SlotA, c2.SlotB)
			}
		})
	}
}

func TestResolveIdempotent(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	c1, err := svc.ResolveOrCreate(ctx, "x", "y", "Nilore Sector")
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	c2, err := svc.ResolveOrCreate(ctx, "x", "y", "Nilore Sector")
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if c1.ID != c2.ID {
		t.Fatalf("resolve not idempotent: %s vs %s", c1.ID, c2.ID)
	}
}

func TestResolveDistinctContextsDistinctConversations(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	c1, err := svc.ResolveOrCreate(ctx, "x", "y", "Nilore Sector")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	c2, err := svc.ResolveOrCreate(ctx, "x", "y", "Tarnol Sector")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if c1.ID == c2.ID {
		t.Fatalf("different context labels must not share a conversation")
	}
}

func TestResolveConcurrentNoDuplicate(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	const n = 16
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sender, receiver := "x", "y"
			if i%2 == 1 {
				sender, receiver = "y", "x"
			}
			c, err := svc.ResolveOrCreate(context.Background(), sender, receiver, "Nilore Sector")
			if err != nil {
				t.Errorf("resolve %d: %v", i, err)
				return
			}
			ids[i] = c.ID
		}(i)
	}
	wg.Wait()
	for i := 1; i < n; i++ {
		if ids[i] != ids[0] {
			t.Fatalf("concurrent resolution produced duplicate conversations: %s vs %s", ids[0], ids[i])
		}
	}
}

func TestResolveUnknownParticipant(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	_, err := svc.ResolveOrCreate(context.Background(), "x", "nobody", "Nilore Sector")
	if !errors.Is(err, apperrors.ErrParticipantNotFound) {
		t.Fatalf("err = %v, want ErrParticipantNotFound", err)
	}
	_, err = svc.ResolveOrCreate(context.Background(), "nobody", "y", "Nilore Sector")
	if !errors.Is(err, apperrors.ErrParticipantNotFound) {
		t.Fatalf("err = %v, want ErrParticipantNotFound", err)
	}
}
