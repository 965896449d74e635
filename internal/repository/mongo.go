package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/schoolpulse/comms/internal/apperrors"
	"github.com/schoolpulse/comms/internal/models"
)

// NewClient connects and pings within a bounded timeout.
func NewClient(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, err
	}
	return client, nil
}

// MongoRepository persists conversations, messages and notifications.
type MongoRepository struct {
	client        *mongo.Client
	conversations *mongo.Collection
	messages      *mongo.Collection
	notifications *mongo.Collection
}

func NewMongoRepository(client *mongo.Client, db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		client:        client,
		conversations: db.Collection("conversations"),
		messages:      db.Collection("messages"),
		notifications: db.Collection("notifications"),
	}
}

// EnsureIndexes creates the uniqueness constraint the resolver relies on
// plus the read-path indexes.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.conversations.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "context_label", Value: 1},
			{Key: "slot_a", Value: 1},
			{Key: "slot_b", Value: 1},
		},
		Options: options.Index().SetUnique(true).SetName("conv_slots_uniq"),
	})
	if err != nil {
		return err
	}
	_, err = r.messages.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "conversation_id", Value: 1}, {Key: "timestamp", Value: 1}},
			Options: options.Index().SetName("msg_conv_ts"),
		},
		{
			Keys:    bson.D{{Key: "receiver_id", Value: 1}, {Key: "is_read", Value: 1}},
			Options: options.Index().SetName("msg_unread"),
		},
	})
	if err != nil {
		return err
	}
	_, err = r.notifications.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
		Options: options.Index().SetName("notif_user_ts"),
	})
	return err
}

// GetOrCreateConversation is a single atomic insert-if-absent keyed by
// (context_label, slot_a, slot_b). Concurrent callers for the same tuple
// all get the same document.
func (r *MongoRepository) GetOrCreateConversation(ctx context.Context, cand models.Conversation) (models.Conversation, error) {
	filter := bson.M{
		"context_label": cand.ContextLabel,
		"slot_a":        cand.SlotA,
		"slot_b":        cand.SlotB,
	}
	update := bson.M{"$setOnInsert": bson.M{
		"_id":             cand.ID,
		"context_label":   cand.ContextLabel,
		"slot_a":          cand.SlotA,
		"slot_b":          cand.SlotB,
		"created_at":      cand.CreatedAt,
		"last_message_at": cand.LastMessageAt,
	}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var out models.Conversation
	if err := r.conversations.FindOneAndUpdate(ctx, filter, update, opts).Decode(&out); err != nil {
		return models.Conversation{}, err
	}
	return out, nil
}

func (r *MongoRepository) GetConversation(ctx context.Context, id string) (models.Conversation, error) {
	var out models.Conversation
	err := r.conversations.FindOne(ctx, bson.M{"_id": id}).Decode(&out)
	if err == mongo.ErrNoDocuments {
		return models.Conversation{}, apperrors.ErrConversationNotFound
	}
	if err != nil {
		return models.Conversation{}, err
	}
	return out, nil
}

func (r *MongoRepository) ListConversationsForUser(ctx context.Context, userID string, limit int64) ([]models.Conversation, error) {
	filter := bson.M{"$or": []bson.M{{"slot_a": userID}, {"slot_b": userID}}}
	opts := options.Find().SetSort(bson.D{{Key: "last_message_at", Value: -1}}).SetLimit(limit)
	cur, err := r.conversations.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Conversation
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// InsertMessage persists the message and advances the conversation's
// last_message_at in one transaction; $max keeps the marker monotonic.
func (r *MongoRepository) InsertMessage(ctx context.Context, msg *models.Message) error {
	sess, err := r.client.StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)
	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		res, err := r.conversations.UpdateByID(sc, msg.ConversationID, bson.M{
			"$max": bson.M{"last_message_at": msg.Timestamp},
		})
		if err != nil {
			return nil, err
		}
		if res.MatchedCount == 0 {
			return nil, apperrors.ErrConversationNotFound
		}
		if _, err := r.messages.InsertOne(sc, msg); err != nil {
			return nil, err
		}
		return nil, nil
	})
	return err
}

func (r *MongoRepository) ListMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})
	cur, err := r.messages.Find(ctx, bson.M{"conversation_id": conversationID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Message
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *MongoRepository) LatestMessage(ctx context.Context, conversationID string) (*models.Message, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	var m models.Message
	err := r.messages.FindOne(ctx, bson.M{"conversation_id": conversationID}, opts).Decode(&m)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MongoRepository) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return r.messages.CountDocuments(ctx, bson.M{"receiver_id": userID, "is_read": false})
}

func (r *MongoRepository) UnreadCountInConversation(ctx context.Context, conversationID, userID string) (int64, error) {
	return r.messages.CountDocuments(ctx, bson.M{
		"conversation_id": conversationID,
		"receiver_id":     userID,
		"is_read":         false,
	})
}

// MarkConversationRead flips is_read for the user's unread messages in
// the conversation. Zero matches is success, not an error.
func (r *MongoRepository) MarkConversationRead(ctx context.Context, conversationID, userID string) (int64, error) {
	res, err := r.messages.UpdateMany(ctx,
		bson.M{"conversation_id": conversationID, "receiver_id": userID, "is_read": false},
		bson.M{"$set": bson.M{"is_read": true}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *MongoRepository) InsertNotification(ctx context.Context, n *models.Notification) error {
	_, err := r.notifications.InsertOne(ctx, n)
	return err
}

func (r *MongoRepository) ListNotifications(ctx context.Context, userID string, limit int64) ([]models.Notification, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit)
	cur, err := r.notifications.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Notification
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
