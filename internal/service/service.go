package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/schoolpulse/comms/internal/identity"
	"github.com/schoolpulse/comms/internal/models"
)

// Store is the persistence surface the messaging core needs. Implemented
// by repository.MongoRepository and repository.MemoryRepository.
type Store interface {
	GetOrCreateConversation(ctx context.Context, cand models.Conversation) (models.Conversation, error)
	GetConversation(ctx context.Context, id string) (models.Conversation, error)
	ListConversationsForUser(ctx context.Context, userID string, limit int64) ([]models.Conversation, error)

	InsertMessage(ctx context.Context, msg *models.Message) error
	ListMessages(ctx context.Context, conversationID string) ([]models.Message, error)
	LatestMessage(ctx context.Context, conversationID string) (*models.Message, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
	UnreadCountInConversation(ctx context.Context, conversationID, userID string) (int64, error)
	MarkConversationRead(ctx context.Context, conversationID, userID string) (int64, error)

	InsertNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, userID string, limit int64) ([]models.Notification, error)
}

// Publisher is the fan-out bus. Delivery is best-effort and must never
// block; the hub satisfies this.
type Publisher interface {
	Publish(group string, payload any)
}

// EventSink receives message.sent events for the reporting pipeline.
type EventSink interface {
	MessageSent(ctx context.Context, msg models.Message) error
}

// Service orchestrates conversation resolution, message persistence,
// read state and fan-out.
type Service struct {
	store  Store
	dir    identity.Directory
	pub    Publisher
	events EventSink
	log    *zap.SugaredLogger
}

func New(store Store, dir identity.Directory, pub Publisher, events EventSink, log *zap.SugaredLogger) *Service {
	return &Service{store: store, dir: dir, pub: pub, events: events, log: log}
}

func (s *Service) GetConversation(ctx context.Context, id string) (models.Conversation, error) {
	return s.store.GetConversation(ctx, id)
}
