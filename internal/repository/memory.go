package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/schoolpulse/comms/internal/apperrors"
	"github.com/schoolpulse/comms/internal/models"
)

// MemoryRepository keeps everything in process. Backs dev mode and the
// service-level tests; the get-or-create path holds the lock across the
// lookup and insert so it has the same atomicity as the Mongo upsert.
type MemoryRepository struct {
	mu            sync.RWMutex
	conversations map[string]models.Conversation
	messages      map[string]models.Message
	notifications []models.Notification
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		conversations: make(map[string]models.Conversation),
		messages:      make(map[string]models.Message),
	}
}

func (r *MemoryRepository) GetOrCreateConversation(ctx context.Context, cand models.Conversation) (models.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.conversations {
		if c.ContextLabel == cand.ContextLabel && c.SlotA == cand.SlotA && c.SlotB == cand.SlotB {
			return c, nil
		}
	}
	r.conversations[cand.ID] = cand
	return cand, nil
}

func (r *MemoryRepository) GetConversation(ctx context.Context, id string) (models.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conversations[id]
	if !ok {
		return models.Conversation{}, apperrors.ErrConversationNotFound
	}
	return c, nil
}

func (r *MemoryRepository) ListConversationsForUser(ctx context.Context, userID string, limit int64) ([]models.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.Conversation
	for _, c := range r.conversations {
		if c.SlotA == userID || c.SlotB == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastMessageAt.After(out[j].LastMessageAt) })
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepository) InsertMessage(ctx context.Context, msg *models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conversations[msg.ConversationID]
	if !ok {
		return apperrors.ErrConversationNotFound
	}
	if msg.Timestamp.After(c.LastMessageAt) {
		c.LastMessageAt = msg.Timestamp
		r.conversations[c.ID] = c
	}
	r.messages[msg.ID] = *msg
	return nil
}

func (r *MemoryRepository) ListMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.Message
	for _, m := range r.messages {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (r *MemoryRepository) LatestMessage(ctx context.Context, conversationID string) (*models.Message, error) {
	msgs, _ := r.ListMessages(ctx, conversationID)
	if len(msgs) == 0 {
		return nil, nil
	}
	m := msgs[len(msgs)-1]
	return &m, nil
}

func (r *MemoryRepository) UnreadCount(ctx context.Context, userID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, m := range r.messages {
		if m.ReceiverID == userID && !m.IsRead {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) UnreadCountInConversation(ctx context.Context, conversationID, userID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, m := range r.messages {
		if m.ConversationID == conversationID && m.ReceiverID == userID && !m.IsRead {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) MarkConversationRead(ctx context.Context, conversationID, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, m := range r.messages {
		if m.ConversationID == conversationID && m.ReceiverID == userID && !m.IsRead {
			m.IsRead = true
			r.messages[id] = m
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) InsertNotification(ctx context.Context, n *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, *n)
	return nil
}

func (r *MemoryRepository) ListNotifications(ctx context.Context, userID string, limit int64) ([]models.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.Notification
	for i := len(r.notifications) - 1; i >= 0; i-- {
		if r.notifications[i].UserID == userID {
			out = append(out, r.notifications[i])
			if limit > 0 && int64(len(out)) == limit {
				break
			}
		}
	}
	return out, nil
}
