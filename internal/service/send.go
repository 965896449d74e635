package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/schoolpulse/comms/internal/apperrors"
	"github.com/schoolpulse/comms/internal/hub"
	"github.com/schoolpulse/comms/internal/metrics"
	"github.com/schoolpulse/comms/internal/models"
)

type SendInput struct {
	SenderID       string `json:"-"`
	ReceiverID     string `json:"receiver_id"`
	ContextLabel   string `json:"context_label"`
	Text           string `json:"text"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// ChatFrame is the enriched payload pushed to a conversation group after
// a message persists.
type ChatFrame struct {
	Type           string    `json:"type"`
	Message        string    `json:"message"`
	SenderID       string    `json:"sender_id"`
	SenderName     string    `json:"sender_name"`
	Timestamp      time.Time `json:"timestamp"`
	MessageID      string    `json:"message_id"`
	ConversationID string    `json:"conversation_id"`
}

// NotificationFrame is the personal-channel payload.
type NotificationFrame struct {
	Type             string         `json:"type"`
	NotificationType string         `json:"notification_type"`
	Data             map[string]any `json:"data"`
}

// Send validates, resolves the conversation, persists the message
// atomically with the conversation's activity marker, and then fans the
// result out. Fan-out, the notification row and the kafka event all sit
// outside the transaction: a downed bus never blocks durability, and a
// failed persist is never broadcast.
func (s *Service) Send(ctx context.Context, in SendInput) (models.Message, error) {
	if in.ReceiverID == "" {
		return models.Message{}, fmt.Errorf("%w: receiver_id is required", apperrors.ErrValidation)
	}
	if in.ContextLabel == "" {
		return models.Message{}, fmt.Errorf("%w: context_label is required", apperrors.ErrValidation)
	}
	if in.Text == "" {
		return models.Message{}, fmt.Errorf("%w: text is required", apperrors.ErrValidation)
	}

	receiver, err := s.dir.Lookup(ctx, in.ReceiverID)
	if err != nil {
		return models.Message{}, apperrors.ErrReceiverNotFound
	}

	var conv models.Conversation
	if in.ConversationID != "" {
		// trusted caller already resolved
		conv, err = s.store.GetConversation(ctx, in.ConversationID)
	} else {
		conv, err = s.ResolveOrCreate(ctx, in.SenderID, receiver.ID, in.ContextLabel)
	}
	if err != nil {
		return models.Message{}, err
	}

	msg := models.Message{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		SenderID:       in.SenderID,
		ReceiverID:     receiver.ID,
		ContextLabel:   in.ContextLabel,
		Text:           in.Text,
		Timestamp:      time.Now().UTC(),
		IsRead:         false,
	}
	if err := s.store.InsertMessage(ctx, &msg); err != nil {
		return models.Message{}, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}
	metrics.MessagesSent.Inc()

	s.afterPersist(ctx, msg)
	return msg, nil
}

// afterPersist runs the best-effort tail of the send flow.
func (s *Service) afterPersist(ctx context.Context, msg models.Message) {
	senderName := msg.SenderID
	if sender, err := s.dir.Lookup(ctx, msg.SenderID); err == nil && sender.Name != "" {
		senderName = sender.Name
	}

	s.pub.Publish(hub.ConversationGroup(msg.ConversationID), ChatFrame{
		Type:           "chat_message",
		Message:        msg.Text,
		SenderID:       msg.SenderID,
		SenderName:     senderName,
		Timestamp:      msg.Timestamp,
		MessageID:      msg.ID,
		ConversationID: msg.ConversationID,
	})
	s.pub.Publish(hub.UserGroup(msg.ReceiverID), NotificationFrame{
		Type:             "notification",
		NotificationType: "new_message",
		Data: map[string]any{
			"message_id":      msg.ID,
			"conversation_id": msg.ConversationID,
			"sender_id":       msg.SenderID,
			"sender_name":     senderName,
			"preview":         msg.Text,
		},
	})

	n := &models.Notification{
		ID:     uuid.NewString(),
		UserID: msg.ReceiverID,
		Kind:   "new_message",
		Payload: map[string]any{
			"message_id":      msg.ID,
			"conversation_id": msg.ConversationID,
			"sender_id":       msg.SenderID,
		},
		CreatedAt: msg.Timestamp,
	}
	if err := s.store.InsertNotification(ctx, n); err != nil {
		s.log.Warnw("notification insert", "err", err)
	}

	if s.events != nil {
		if err := s.events.MessageSent(ctx, msg); err != nil {
			s.log.Warnw("event publish", "message_id", msg.ID, "err", err)
		}
	}
}
