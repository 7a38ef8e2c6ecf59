// Package service implements reservation scheduling for bars: slot
// grids, availability checks, best-fit table assignment and the
// reservation lifecycle.  It talks to storage, configuration,
// notification and cache collaborators only through the interfaces in
// collaborators.go.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/bar-table-reservation/internal/model"
	"github.com/iliyamo/bar-table-reservation/internal/repository"
)

// DefaultMaxAttempts bounds how often CreateReservation re-runs
// assignment after losing a race for a table.
const DefaultMaxAttempts = 3

// Deps lists the collaborators of a Service.  Backend and Configs are
// required; the rest default to no-ops, the system clock and the
// standard logrus logger.
type Deps struct {
	Backend     Backend
	Configs     ConfigStore
	Notifier    Notifier
	Invalidator Invalidator
	Clock       Clock
	Logger      logrus.FieldLogger
	MaxAttempts int
}

// Service exposes the scheduling operations to the API layer.
type Service struct {
	backend     Backend
	configs     ConfigStore
	notifier    Notifier
	invalidator Invalidator
	clock       Clock
	log         logrus.FieldLogger
	maxAttempts int
	newID       func() string
}

// NewService constructs a Service.  It panics when a required
// collaborator is missing.
func NewService(d Deps) *Service {
	if d.Backend == nil || d.Configs == nil {
		panic("nil backend or config store passed to NewService")
	}
	s := &Service{
		backend:     d.Backend,
		configs:     d.Configs,
		notifier:    d.Notifier,
		invalidator: d.Invalidator,
		clock:       d.Clock,
		log:         d.Logger,
		maxAttempts: d.MaxAttempts,
		newID:       uuid.NewString,
	}
	if s.notifier == nil {
		s.notifier = nopNotifier{}
	}
	if s.invalidator == nil {
		s.invalidator = nopInvalidator{}
	}
	if s.clock == nil {
		s.clock = systemClock{}
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	if s.maxAttempts <= 0 {
		s.maxAttempts = DefaultMaxAttempts
	}
	return s
}

// Result is returned by operations that notify the customer.  Warnings
// carry non-fatal problems such as a failed notification.
type Result struct {
	Reservation model.Reservation `json:"reservation"`
	Warnings    []string          `json:"warnings,omitempty"`
}

// reservationConfig returns the bar's settings, or the defaults when
// the bar never stored any.
func (s *Service) reservationConfig(ctx context.Context, barID string) (model.ReservationConfig, error) {
	cfg, err := s.configs.GetReservationConfig(ctx, barID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.DefaultReservationConfig(barID), nil
	}
	if err != nil {
		return model.ReservationConfig{}, &StorageError{Op: "get reservation config", Err: err}
	}
	cfg.BarID = barID
	return cfg, nil
}

// session picks the store for barID; "" means a sweep across all bars.
func (s *Service) session(ctx context.Context, barID string) (Store, error) {
	store, err := s.backend.Session(ctx, barID)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// notify sends kind for r and turns a failure into a warning.
func (s *Service) notify(ctx context.Context, kind model.NotificationKind, r model.Reservation) []string {
	if err := s.notifier.Notify(ctx, kind, r); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"bar_id":         r.BarID,
			"reservation_id": r.ID,
			"kind":           kind,
		}).Warn("notification failed")
		return []string{fmt.Sprintf("notification failed: %s", kind)}
	}
	return nil
}

// invalidate drops cached reads of the bar after a write.  Failures are
// logged; the write already happened.
func (s *Service) invalidate(ctx context.Context, barID string) {
	if err := s.invalidator.InvalidateBar(ctx, barID); err != nil {
		s.log.WithError(err).WithField("bar_id", barID).Warn("cache invalidation failed")
	}
}
