package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/iliyamo/bar-table-reservation/internal/model"
	"github.com/iliyamo/bar-table-reservation/internal/queue"
)

// MessageWriter is the part of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Event is the envelope realtime consumers decode: entity and action
// select the channel, metadata scopes it to a bar.
type Event struct {
	Entity     string                        `json:"entity"`
	Action     string                        `json:"action"`
	ResourceID string                        `json:"resourceId"`
	Metadata   map[string]string             `json:"metadata"`
	Data       queue.ReservationNotification `json:"data"`
}

// KafkaPublisher emits reservation events keyed by bar so that one
// bar's events stay ordered within a partition.
type KafkaPublisher struct {
	w   MessageWriter
	now func() time.Time
}

func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
	}
}

func NewKafkaPublisher(w MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{w: w, now: time.Now}
}

func (p *KafkaPublisher) Notify(ctx context.Context, kind model.NotificationKind, r model.Reservation) error {
	ev := Event{
		Entity:     "reservation",
		Action:     string(kind),
		ResourceID: r.ID,
		Metadata:   map[string]string{"bar_id": r.BarID, "status": string(r.Status)},
		Data:       queue.NewReservationNotification(kind, r, p.now()),
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("kafka: marshal: %w", err)
	}
	if err := p.w.WriteMessages(ctx, kafka.Message{Key: []byte(r.BarID), Value: b}); err != nil {
		return fmt.Errorf("kafka: write: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error { return p.w.Close() }
