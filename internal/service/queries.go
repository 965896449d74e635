package service

import (
	"context"

	"github.com/schoolpulse/comms/internal/models"
)

const conversationListLimit = 200

// ListConversations returns the caller's inbox rows, most recent
// activity first. Participant names come from the directory; an identity
// that fails to resolve degrades to its bare id rather than failing the
// whole list.
func (s *Service) ListConversations(ctx context.Context, userID string) ([]models.ConversationSummary, error) {
	convs, err := s.store.ListConversationsForUser(ctx, userID, conversationListLimit)
	if err != nil {
		return nil, err
	}
	out := make([]models.ConversationSummary, 0, len(convs))
	for _, c := range convs {
		otherID := c.Other(userID)
		other, err := s.dir.Lookup(ctx, otherID)
		if err != nil {
			other = models.Identity{ID: otherID}
		}
		latest, err := s.store.LatestMessage(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		unread, err := s.store.UnreadCountInConversation(ctx, c.ID, userID)
		if err != nil {
			return nil, err
		}
		out = append(out, models.ConversationSummary{
			ConversationID:   c.ID,
			ContextLabel:     c.ContextLabel,
			OtherParticipant: other,
			LatestMessage:    latest,
			UnreadCount:      unread,
			LastMessageAt:    c.LastMessageAt,
		})
	}
	return out, nil
}

// ListMessages returns a conversation's history, oldest first.
func (s *Service) ListMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	if _, err := s.store.GetConversation(ctx, conversationID); err != nil {
		return nil, err
	}
	return s.store.ListMessages(ctx, conversationID)
}

// ListNotifications returns the caller's recent notification rows.
func (s *Service) ListNotifications(ctx context.Context, userID string, limit int64) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.store.ListNotifications(ctx, userID, limit)
}
