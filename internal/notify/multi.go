package notify

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/bar-table-reservation/internal/model"
)

// Notifier matches the service's notification collaborator.
type Notifier interface {
	Notify(ctx context.Context, kind model.NotificationKind, r model.Reservation) error
}

// Multi fans a notification out to every notifier.  All are tried; the
// failures are joined.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, kind model.NotificationKind, r model.Reservation) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, kind, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Log writes notifications to the application log.  It is the notifier
// used when no broker is configured.
type Log struct {
	Logger logrus.FieldLogger
}

func (l Log) Notify(_ context.Context, kind model.NotificationKind, r model.Reservation) error {
	l.Logger.WithFields(logrus.Fields{
		"kind":           kind,
		"reservation_id": r.ID,
		"bar_id":         r.BarID,
		"table":          r.TableNumber,
		"start_at":       r.StartAt,
	}).Info("notification")
	return nil
}
