package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/bar-table-reservation/internal/conflict"
	"github.com/iliyamo/bar-table-reservation/internal/model"
	"github.com/iliyamo/bar-table-reservation/internal/repository"
)

// StatusChange moves a reservation through the lifecycle.  Reopen must
// be set to move a closed reservation back to confirmed; callers only
// set it for administrators.
type StatusChange struct {
	BarID         string
	ReservationID string
	To            model.Status
	Reason        *string
	Reopen        bool
	Actor         string
}

// ChangeReservationStatus applies one lifecycle transition.  The store
// update is guarded by the status the transition was validated against,
// so a concurrent change turns into ErrInvalidTransition instead of an
// illegal jump.  Reopening re-runs the overlap check because the table
// may have been booked again in the meantime.
func (s *Service) ChangeReservationStatus(ctx context.Context, c StatusChange) (Result, error) {
	store, err := s.session(ctx, c.BarID)
	if err != nil {
		return Result{}, err
	}
	current, err := store.GetReservation(ctx, c.BarID, c.ReservationID)
	if err != nil {
		return Result{}, storeErr("get reservation", err)
	}

	from := current.Status
	if !allowed(from, c.To, c.Reopen) {
		return Result{}, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, from, c.To)
	}

	now := s.clock.Now()
	to := c.To
	u := model.ReservationUpdate{ExpectStatus: &from, Status: &to, UpdatedAt: now}
	switch {
	case to == model.StatusCancelled:
		u.CancelledAt = &now
		u.CancellationReason = trimmed(c.Reason)
	case c.Reopen && from.CanReopen():
		u.ClearCancellation = true
	}

	updated, err := store.UpdateReservation(ctx, c.BarID, c.ReservationID, u)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrStale):
		return Result{}, fmt.Errorf("%w: reservation changed concurrently", ErrInvalidTransition)
	case errors.Is(err, repository.ErrConflict):
		return Result{}, fmt.Errorf("%w: table %s was booked again", ErrTableConflict, current.TableNumber)
	default:
		return Result{}, storeErr("update reservation", err)
	}

	s.log.WithFields(logrus.Fields{
		"bar_id":         c.BarID,
		"reservation_id": c.ReservationID,
		"from":           from,
		"to":             to,
		"actor":          c.Actor,
	}).Info("reservation status changed")
	s.invalidate(ctx, c.BarID)
	return Result{Reservation: updated, Warnings: s.notify(ctx, notificationFor(from, to), updated)}, nil
}

func allowed(from, to model.Status, reopen bool) bool {
	if from.CanTransitionTo(to) {
		return true
	}
	return reopen && to == model.StatusConfirmed && from.CanReopen()
}

// notificationFor maps a transition onto the message the customer gets.
// A cancel from pending is a rejection of the request.
func notificationFor(from, to model.Status) model.NotificationKind {
	switch to {
	case model.StatusConfirmed:
		return model.NotifyConfirmation
	case model.StatusCancelled:
		if from == model.StatusPending {
			return model.NotifyRejection
		}
		return model.NotifyCancelled
	case model.StatusCompleted:
		return model.NotifyCompleted
	case model.StatusNoShow:
		return model.NotifyNoShow
	}
	return model.NotificationKind(to)
}

// ReassignTable moves an active reservation to another table of the
// bar.  The target must be active and seat the party; it must be free
// for the reservation's window or ErrTableConflict is returned.
func (s *Service) ReassignTable(ctx context.Context, barID, reservationID, tableID, actor string) (Result, error) {
	tableID = strings.TrimSpace(tableID)
	if tableID == "" {
		return Result{}, invalidf("table_id is required")
	}
	store, err := s.session(ctx, barID)
	if err != nil {
		return Result{}, err
	}
	current, err := store.GetReservation(ctx, barID, reservationID)
	if err != nil {
		return Result{}, storeErr("get reservation", err)
	}
	if !current.Status.IsActive() {
		return Result{}, fmt.Errorf("%w: %s reservations cannot be reassigned", ErrInvalidTransition, current.Status)
	}
	target, err := store.GetTable(ctx, barID, tableID)
	if err != nil {
		return Result{}, storeErr("get table", err)
	}
	if !target.IsActive {
		return Result{}, invalidf("table %d is not active", target.Number)
	}
	if target.Capacity < current.PartySize {
		return Result{}, invalidf("table %d seats %d, party is %d", target.Number, target.Capacity, current.PartySize)
	}
	if conflict.BoundTo(current, target) {
		return Result{Reservation: current}, nil
	}

	existing, err := store.ListReservations(ctx, barID, model.ReservationFilter{Statuses: model.ActiveStatuses})
	if err != nil {
		return Result{}, &StorageError{Op: "list reservations", Err: err}
	}
	hits := conflict.Find(existing, target, current.StartAt, current.EndAt(), current.ID)
	if until, busy := conflict.LatestEnd(hits); busy {
		return Result{}, fmt.Errorf("%w: table %d is booked until %s", ErrTableConflict, target.Number, until.Format(time.RFC3339))
	}

	number := target.NumberLabel()
	expect := current.Status
	updated, err := store.UpdateReservation(ctx, barID, reservationID, model.ReservationUpdate{
		ExpectStatus: &expect,
		TableID:      &target.ID,
		TableNumber:  &number,
		UpdatedAt:    s.clock.Now(),
	})
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrConflict):
		return Result{}, fmt.Errorf("%w: table %d was just booked", ErrTableConflict, target.Number)
	case errors.Is(err, repository.ErrStale):
		return Result{}, fmt.Errorf("%w: reservation changed concurrently", ErrInvalidTransition)
	default:
		return Result{}, storeErr("update reservation", err)
	}

	s.log.WithFields(logrus.Fields{
		"bar_id":         barID,
		"reservation_id": reservationID,
		"from_table":     current.TableNumber,
		"to_table":       number,
		"actor":          actor,
	}).Info("reservation reassigned")
	s.invalidate(ctx, barID)
	return Result{Reservation: updated, Warnings: s.notify(ctx, model.NotifyReassigned, updated)}, nil
}

// PurgePastReservations deletes every reservation of the bar that
// started before now, whatever its status.  It is a maintenance action
// outside the lifecycle and is always logged.
func (s *Service) PurgePastReservations(ctx context.Context, barID, actor string) (int, error) {
	store, err := s.session(ctx, barID)
	if err != nil {
		return 0, err
	}
	cutoff := s.clock.Now()
	n, err := store.PurgeReservationsBefore(ctx, barID, cutoff)
	if err != nil {
		return 0, &StorageError{Op: "purge reservations", Err: err}
	}
	s.log.WithFields(logrus.Fields{
		"bar_id":  barID,
		"actor":   actor,
		"cutoff":  cutoff,
		"deleted": n,
	}).Warn("past reservations purged")
	s.invalidate(ctx, barID)
	return n, nil
}

// DeleteReservation removes one reservation outside the lifecycle.
func (s *Service) DeleteReservation(ctx context.Context, barID, reservationID, actor string) error {
	store, err := s.session(ctx, barID)
	if err != nil {
		return err
	}
	if err := store.DeleteReservation(ctx, barID, reservationID); err != nil {
		return storeErr("delete reservation", err)
	}
	s.log.WithFields(logrus.Fields{
		"bar_id":         barID,
		"reservation_id": reservationID,
		"actor":          actor,
	}).Warn("reservation deleted")
	s.invalidate(ctx, barID)
	return nil
}
