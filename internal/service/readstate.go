package service

import "context"

// UnreadCount reports the user's unread messages across all
// conversations.
func (s *Service) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return s.store.UnreadCount(ctx, userID)
}

// MarkConversationRead flips every unread message addressed to the user
// in the conversation. Idempotent; an unknown conversation marks nothing
// and succeeds.
func (s *Service) MarkConversationRead(ctx context.Context, conversationID, userID string) (int64, error) {
	return s.store.MarkConversationRead(ctx, conversationID, userID)
}
