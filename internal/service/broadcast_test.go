package service

import (
	"context"
	"errors"
	"testing"

	"github.com/schoolpulse/comms/internal/apperrors"
	"github.com/schoolpulse/comms/internal/identity"
)

func TestBroadcastValidation(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Broadcast(ctx, "b", "", "hi"); !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("missing receiver: err = %v, want ErrValidation", err)
	}
	if _, err := svc.Broadcast(ctx, "b", "y", ""); !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("missing text: err = %v, want ErrValidation", err)
	}
}

func TestBroadcastToKnownParticipant(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	msg, err := svc.Broadcast(context.Background(), "b", "y", "monthly visit reminder")
	if err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	if msg.ReceiverID != "y" {
		t.Fatalf("receiver = %s, want y", msg.ReceiverID)
	}
	if msg.ContextLabel != "Nilore Sector" {
		t.Fatalf("context label = %s, want receiver's unit", msg.ContextLabel)
	}
}

func TestBroadcastResolvesUnitName(t *testing.T) {
	// "IMCB G-6" is no participant id, but principal p belongs to that unit
	svc, _, _, _ := newTestService(t)
	msg, err := svc.Broadcast(context.Background(), "b", "IMCB G-6", "inspection tomorrow")
	if err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	if msg.ReceiverID != "p" {
		t.Fatalf("receiver = %s, want p (resolved by unit)", msg.ReceiverID)
	}
}

func TestBroadcastProvisionalReceiver(t *testing.T) {
	svc, _, dir, _ := newTestService(t)
	ctx := context.Background()

	msg, err := svc.Broadcast(ctx, "b", "ICB F-8", "welcome aboard")
	if err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	wantID := identity.SyntheticUnitID("ICB F-8")
	if msg.ReceiverID != wantID {
		t.Fatalf("receiver = %s, want synthetic %s", msg.ReceiverID, wantID)
	}
	if msg.ReceiverID == msg.SenderID {
		t.Fatalf("broadcast must never address the sender itself")
	}
	ident, err := dir.Lookup(ctx, wantID)
	if err != nil {
		t.Fatalf("provisional record not registered: %v", err)
	}
	if !ident.Provisional || ident.Unit != "ICB F-8" {
		t.Fatalf("unexpected provisional identity: %+v", ident)
	}

	// second broadcast to the same unit reuses the record and conversation
	msg2, err := svc.Broadcast(ctx, "b", "ICB F-8", "follow up")
	if err != nil {
		t.Fatalf("second broadcast: %v", err)
	}
	if msg2.ConversationID != msg.ConversationID {
		t.Fatalf("second broadcast opened a new conversation")
	}
}
