package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/schoolpulse/comms/internal/models"
)

// Producer streams message.sent events for the downstream reporting
// pipeline. Delivery is best-effort; the send path never depends on it.
type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers:  brokers,
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	})
	return &Producer{writer: w}
}

type messageSentEvent struct {
	Event          string    `json:"event"`
	MessageID      string    `json:"message_id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	ReceiverID     string    `json:"receiver_id"`
	ContextLabel   string    `json:"context_label"`
	Timestamp      time.Time `json:"timestamp"`
}

func (p *Producer) MessageSent(ctx context.Context, msg models.Message) error {
	b, err := json.Marshal(messageSentEvent{
		Event:          "message.sent",
		MessageID:      msg.ID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		ReceiverID:     msg.ReceiverID,
		ContextLabel:   msg.ContextLabel,
		Timestamp:      msg.Timestamp,
	})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.ConversationID),
		Value: b,
		Time:  msg.Timestamp,
	})
}

func (p *Producer) Close() error { return p.writer.Close() }
