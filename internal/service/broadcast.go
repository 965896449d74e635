package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/schoolpulse/comms/internal/apperrors"
	"github.com/schoolpulse/comms/internal/identity"
	"github.com/schoolpulse/comms/internal/metrics"
	"github.com/schoolpulse/comms/internal/models"
)

// Broadcast originates a message from the privileged broadcast actor.
// The receiver may not be materialized locally yet; resolution falls
// through a chain: direct lookup, then unit-name lookup, then a
// provisional participant registered under a synthetic unit id. The
// receiver is always a record distinct from the sender, so a broadcast
// never produces a self-referential conversation.
func (s *Service) Broadcast(ctx context.Context, senderID, receiverID, text string) (models.Message, error) {
	if receiverID == "" {
		return models.Message{}, fmt.Errorf("%w: receiver_id is required", apperrors.ErrValidation)
	}
	if text == "" {
		return models.Message{}, fmt.Errorf("%w: text is required", apperrors.ErrValidation)
	}

	receiver, err := s.resolveBroadcastReceiver(ctx, receiverID)
	if err != nil {
		return models.Message{}, err
	}

	label := receiver.Unit
	if label == "" {
		label = "broadcast"
	}
	msg, err := s.Send(ctx, SendInput{
		SenderID:     senderID,
		ReceiverID:   receiver.ID,
		ContextLabel: label,
		Text:         text,
	})
	if err != nil {
		return models.Message{}, err
	}
	metrics.BroadcastsSent.Inc()
	return msg, nil
}

func (s *Service) resolveBroadcastReceiver(ctx context.Context, receiverID string) (models.Identity, error) {
	ident, err := s.dir.Lookup(ctx, receiverID)
	if err == nil {
		return ident, nil
	}
	if !errors.Is(err, apperrors.ErrParticipantNotFound) {
		return models.Identity{}, err
	}

	// the caller may have addressed an organizational unit rather than a
	// materialized participant
	ident, err = s.dir.LookupByUnit(ctx, receiverID)
	if err == nil {
		return ident, nil
	}
	if !errors.Is(err, apperrors.ErrParticipantNotFound) {
		return models.Identity{}, err
	}

	provisional := models.Identity{
		ID:          identity.SyntheticUnitID(receiverID),
		Name:        receiverID,
		Role:        models.RolePrincipal.String(),
		Unit:        receiverID,
		Provisional: true,
	}
	if err := s.dir.Register(ctx, provisional); err != nil {
		return models.Identity{}, err
	}
	s.log.Infow("registered provisional broadcast receiver",
		"unit", receiverID, "participant_id", provisional.ID)
	return provisional, nil
}
