package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/bar-table-reservation/internal/model"
)

// SendReminders notifies every confirmed reservation starting within
// window from now that has not been reminded yet, across all bars.  A
// reservation is marked only after its notification went out, so a
// failed send is retried by the next sweep.  It returns how many
// reminders were sent.
func (s *Service) SendReminders(ctx context.Context, window time.Duration) (int, error) {
	store, err := s.session(ctx, "")
	if err != nil {
		return 0, err
	}
	now := s.clock.Now()
	due, err := store.ListReservations(ctx, "", model.ReservationFilter{
		Statuses:        []model.Status{model.StatusConfirmed},
		StartAfter:      now,
		StartUntil:      now.Add(window),
		ReminderPending: true,
	})
	if err != nil {
		return 0, &StorageError{Op: "list due reminders", Err: err}
	}

	sent := 0
	for _, r := range due {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		logger := s.log.WithFields(logrus.Fields{"bar_id": r.BarID, "reservation_id": r.ID})
		if err := s.notifier.Notify(ctx, model.NotifyReminder, r); err != nil {
			logger.WithError(err).Warn("reminder failed")
			continue
		}
		at := s.clock.Now()
		expect := model.StatusConfirmed
		if _, err := store.UpdateReservation(ctx, r.BarID, r.ID, model.ReservationUpdate{
			ExpectStatus:   &expect,
			ReminderSentAt: &at,
			UpdatedAt:      at,
		}); err != nil {
			logger.WithError(err).Warn("could not mark reminder as sent")
			continue
		}
		sent++
	}
	return sent, nil
}

// RunReminders sweeps every interval until ctx is done.
func (s *Service) RunReminders(ctx context.Context, interval, window time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.SendReminders(ctx, window)
			if err != nil && !isCancelled(err) {
				s.log.WithError(err).Error("reminder sweep failed")
				continue
			}
			if n > 0 {
				s.log.WithField("sent", n).Info("reminders sent")
			}
		}
	}
}
