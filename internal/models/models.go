package models

import "time"

// Identity is what the external identity service knows about a
// participant. The messaging core never writes these except for
// provisional records created by the broadcast fallback.
type Identity struct {
	ID          string `bson:"_id" json:"id"`
	Name        string `bson:"name" json:"name"`
	Role        string `bson:"role" json:"role"`
	Unit        string `bson:"unit" json:"unit"`
	Provisional bool   `bson:"provisional,omitempty" json:"provisional,omitempty"`
}

// Conversation is the durable pairing of two participants within a
// context label. (ContextLabel, SlotA, SlotB) is unique; slot order is
// canonical by role, not by send order.
type Conversation struct {
	ID            string    `bson:"_id" json:"id"`
	ContextLabel  string    `bson:"context_label" json:"context_label"`
	SlotA         string    `bson:"slot_a" json:"slot_a"`
	SlotB         string    `bson:"slot_b" json:"slot_b"`
	CreatedAt     time.Time `bson:"created_at" json:"created_at"`
	LastMessageAt time.Time `bson:"last_message_at" json:"last_message_at"`
}

// Other returns the participant id on the opposite slot from userID.
func (c Conversation) Other(userID string) string {
	if c.SlotA == userID {
		return c.SlotB
	}
	return c.SlotA
}

type Message struct {
	ID             string    `bson:"_id" json:"id"`
	ConversationID string    `bson:"conversation_id" json:"conversation_id"`
	SenderID       string    `bson:"sender_id" json:"sender_id"`
	ReceiverID     string    `bson:"receiver_id" json:"receiver_id"`
	ContextLabel   string    `bson:"context_label" json:"context_label"`
	Text           string    `bson:"text" json:"text"`
	Timestamp      time.Time `bson:"timestamp" json:"timestamp"`
	IsRead         bool      `bson:"is_read" json:"is_read"`
}

// Notification is the durable record behind the badge feed. Written
// best-effort on each send; real-time delivery goes over the user group.
type Notification struct {
	ID        string         `bson:"_id" json:"id"`
	UserID    string         `bson:"user_id" json:"user_id"`
	Kind      string         `bson:"kind" json:"kind"`
	Payload   map[string]any `bson:"payload" json:"payload"`
	CreatedAt time.Time      `bson:"created_at" json:"created_at"`
}

// ConversationSummary is the list-conversations row shape.
type ConversationSummary struct {
	ConversationID   string    `json:"conversation_id"`
	ContextLabel     string    `json:"context_label"`
	OtherParticipant Identity  `json:"other_participant"`
	LatestMessage    *Message  `json:"latest_message,omitempty"`
	UnreadCount      int64     `json:"unread_count"`
	LastMessageAt    time.Time `json:"last_message_at"`
}
