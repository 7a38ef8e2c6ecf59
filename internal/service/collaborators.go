package service

import (
	"context"
	"time"

	"github.com/iliyamo/bar-table-reservation/internal/model"
)

// Store is the storage collaborator.  CreateReservation and
// UpdateReservation must be conditional: they return
// repository.ErrConflict instead of writing a reservation that would
// overlap an active one on the same table.
type Store interface {
	ListTables(ctx context.Context, barID string, f model.TableFilter) ([]model.Table, error)
	GetTable(ctx context.Context, barID, id string) (model.Table, error)
	CreateTable(ctx context.Context, t *model.Table) error
	UpdateTable(ctx context.Context, t model.Table) error

	ListReservations(ctx context.Context, barID string, f model.ReservationFilter) ([]model.Reservation, error)
	GetReservation(ctx context.Context, barID, id string) (model.Reservation, error)
	CreateReservation(ctx context.Context, r *model.Reservation) error
	UpdateReservation(ctx context.Context, barID, id string, u model.ReservationUpdate) (model.Reservation, error)
	DeleteReservation(ctx context.Context, barID, id string) error
	PurgeReservationsBefore(ctx context.Context, barID string, cutoff time.Time) (int, error)
}

// ConfigStore is the configuration collaborator.  A bar without stored
// settings yields repository.ErrNotFound.
type ConfigStore interface {
	GetReservationConfig(ctx context.Context, barID string) (model.ReservationConfig, error)
	SaveReservationConfig(ctx context.Context, cfg model.ReservationConfig) error
}

// Notifier delivers customer facing messages.  Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, kind model.NotificationKind, r model.Reservation) error
}

// Invalidator drops cached non-scheduling reads of a bar.
type Invalidator interface {
	InvalidateBar(ctx context.Context, barID string) error
}

// Clock supplies "now".
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, model.NotificationKind, model.Reservation) error { return nil }

type nopInvalidator struct{}

func (nopInvalidator) InvalidateBar(context.Context, string) error { return nil }
