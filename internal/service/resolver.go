package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/schoolpulse/comms/internal/models"
)

// assignSlots decides canonical slot order for a sender/receiver role
// pair. The mapping is total over the recognized pairs: an area officer
// always holds slot A opposite a field officer or a principal, so the
// same two people resolve to the same key regardless of who sends first.
// The second return reports whether the pair was recognized; callers log
// the fallback (sender A, receiver B) as a warning.
func assignSlots(senderID string, senderRole models.Role, receiverID string, receiverRole models.Role) (slotA, slotB string, recognized bool) {
	switch {
	case senderRole == models.RoleFieldOfficer && receiverRole == models.RoleAreaOfficer:
		return receiverID, senderID, true
	case senderRole == models.RoleAreaOfficer && receiverRole == models.RoleFieldOfficer:
		return senderID, receiverID, true
	case senderRole == models.RoleAreaOfficer && receiverRole == models.RolePrincipal:
		return senderID, receiverID, true
	case senderRole == models.RolePrincipal && receiverRole == models.RoleAreaOfficer:
		return receiverID, senderID, true
	default:
		return senderID, receiverID, false
	}
}

// ResolveOrCreate maps (sender, receiver, context label) to the one
// conversation for that pairing, creating it if absent. Concurrent
// resolution of the same tuple converges on a single document; the
// store's get-or-create is atomic.
func (s *Service) ResolveOrCreate(ctx context.Context, senderID, receiverID, contextLabel string) (models.Conversation, error) {
	sender, err := s.dir.Lookup(ctx, senderID)
	if err != nil {
		return models.Conversation{}, err
	}
	receiver, err := s.dir.Lookup(ctx, receiverID)
	if err != nil {
		return models.Conversation{}, err
	}

	slotA, slotB, recognized := assignSlots(sender.ID, models.ParseRole(sender.Role), receiver.ID, models.ParseRole(receiver.Role))
	if !recognized {
		s.log.Warnw("unrecognized role pairing, using sender/receiver slot order",
			"sender_role", sender.Role, "receiver_role", receiver.Role)
	}

	now := time.Now().UTC()
	cand := models.Conversation{
		ID:            uuid.NewString(),
		ContextLabel:  contextLabel,
		SlotA:         slotA,
		SlotB:         slotB,
		CreatedAt:     now,
		LastMessageAt: now,
	}
	return s.store.GetOrCreateConversation(ctx, cand)
}
