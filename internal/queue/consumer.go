package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// JournalPath is where the consumer appends delivered notifications.
var JournalPath = filepath.Join("logs", "notifications.log")

// StartNotificationConsumer connects to RabbitMQ, declares the durable
// queue and journals every notification as one JSON line.  It
// reconnects with backoff until ctx is done.  Undecodable messages are
// rejected without requeue so they cannot loop.
func StartNotificationConsumer(ctx context.Context, url, queueName string, log logrus.FieldLogger) error {
	journal, err := openJournal(JournalPath)
	if err != nil {
		return err
	}
	defer journal.Close()
	jlog := newJournal(journal)

	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.WithError(err).WithField("retry_in", backoff).Warn("notification consumer: dial failed")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, queueName, jlog, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.WithError(err).Warn("notification consumer: loop ended, reconnecting")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, queueName string, journal *logrus.Logger, log logrus.FieldLogger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.WithError(err).Warn("notification consumer: set QoS failed")
	}
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := HandleNotification(d.Body, journal); err != nil {
				log.WithError(err).Warn("notification consumer: rejecting message")
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// HandleNotification decodes body and writes one journal entry.
func HandleNotification(body []byte, journal logrus.FieldLogger) error {
	var n ReservationNotification
	if err := json.Unmarshal(body, &n); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if n.ReservationID == "" || n.Kind == "" {
		return errors.New("notification without reservation id or kind")
	}
	journal.WithFields(logrus.Fields{
		"kind":           n.Kind,
		"reservation_id": n.ReservationID,
		"bar_id":         n.BarID,
		"table":          n.TableNumber,
		"status":         n.Status,
		"start_at":       n.StartAt,
		"party_size":     n.PartySize,
		"customer":       n.CustomerName,
	}).Info("notification delivered")
	return nil
}

func openJournal(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return f, nil
}

func newJournal(w io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.JSONFormatter{})
	return l
}
