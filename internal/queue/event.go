// Package queue defines message payloads exchanged over the message
// broker and the consumer that journals them.
package queue

import (
	"time"

	"github.com/iliyamo/bar-table-reservation/internal/model"
)

// ReservationNotification is published for every customer facing
// message.  It carries enough for a mailer or SMS worker to render the
// message without reading the database.
type ReservationNotification struct {
	Kind          model.NotificationKind `json:"kind"`
	ReservationID string                 `json:"reservation_id"`
	BarID         string                 `json:"bar_id"`
	TableNumber   string                 `json:"table_number"`
	Status        model.Status           `json:"status"`
	StartAt       string                 `json:"start_at"`
	EndAt         string                 `json:"end_at"`
	PartySize     int                    `json:"party_size"`
	CustomerName  string                 `json:"customer_name"`
	CustomerPhone string                 `json:"customer_phone"`
	CustomerEmail string                 `json:"customer_email,omitempty"`
	Reason        string                 `json:"reason,omitempty"`
	SentAt        string                 `json:"sent_at"`
}

// NewReservationNotification builds the payload for r.
func NewReservationNotification(kind model.NotificationKind, r model.Reservation, now time.Time) ReservationNotification {
	n := ReservationNotification{
		Kind:          kind,
		ReservationID: r.ID,
		BarID:         r.BarID,
		TableNumber:   r.TableNumber,
		Status:        r.Status,
		StartAt:       r.StartAt.UTC().Format(time.RFC3339),
		EndAt:         r.EndAt().UTC().Format(time.RFC3339),
		PartySize:     r.PartySize,
		CustomerName:  r.CustomerName,
		CustomerPhone: r.CustomerPhone,
		SentAt:        now.UTC().Format(time.RFC3339),
	}
	if r.CustomerEmail != nil {
		n.CustomerEmail = *r.CustomerEmail
	}
	if r.CancellationReason != nil {
		n.Reason = *r.CancellationReason
	}
	return n
}
