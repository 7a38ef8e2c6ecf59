package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bar-table-reservation/internal/model"
	"github.com/iliyamo/bar-table-reservation/internal/repository"
)

func (f *fixture) move(t *testing.T, id string, to model.Status) (Result, error) {
	t.Helper()
	return f.svc.ChangeReservationStatus(context.Background(), StatusChange{
		BarID: bar, ReservationID: id, To: to, Actor: "staff-1",
	})
}

func TestLifecycleHappyPath(t *testing.T) {
	f := newFixture(t)
	f.table(t, "A", 1, 4)
	r := f.book(t, at(19, 0), 2)

	res, err := f.move(t, r.ID, model.StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, res.Reservation.Status)

	res, err = f.move(t, r.ID, model.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, res.Reservation.Status)

	_, err = f.move(t, r.ID, model.StatusCompleted)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	assert.Equal(t, []model.NotificationKind{
		model.NotifyReceived, model.NotifyConfirmation, model.NotifyCompleted,
	}, f.notifier.kinds())
}

func TestLifecycleRejectsIllegalMoves(t *testing.T) {
	f := newFixture(t)
	f.table(t, "A", 1, 4)
	r := f.book(t, at(19, 0), 2)

	for _, to := range []model.Status{model.StatusCompleted, model.StatusNoShow, model.StatusPending} {
		_, err := f.move(t, r.ID, to)
		assert.ErrorIs(t, err, ErrInvalidTransition, string(to))
	}

	_, err := f.move(t, "missing", model.StatusConfirmed)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCancelNotificationDependsOnOrigin(t *testing.T) {
	f := newFixture(t)
	f.table(t, "A", 1, 4)
	f.table(t, "B", 2, 4)
	pending := f.book(t, at(19, 0), 2)
	confirmed := f.book(t, at(19, 0), 2)
	_, err := f.move(t, confirmed.ID, model.StatusConfirmed)
	require.NoError(t, err)

	_, err = f.move(t, pending.ID, model.StatusCancelled)
	require.NoError(t, err)

	reason := "  guest called  "
	res, err := f.svc.ChangeReservationStatus(context.Background(), StatusChange{
		BarID: bar, ReservationID: confirmed.ID, To: model.StatusCancelled, Reason: &reason,
	})
	require.NoError(t, err)
	require.NotNil(t, res.Reservation.CancelledAt)
	require.NotNil(t, res.Reservation.CancellationReason)
	assert.Equal(t, "guest called", *res.Reservation.CancellationReason)

	kinds := f.notifier.kinds()
	assert.Equal(t, model.NotifyRejection, kinds[len(kinds)-2])
	assert.Equal(t, model.NotifyCancelled, kinds[len(kinds)-1])
}

func TestCancelledReservationReleasesTable(t *testing.T) {
	f := newFixture(t)
	f.table(t, "A", 1, 4)
	first := f.book(t, at(19, 0), 2)

	_, err := f.svc.CreateReservation(context.Background(), CreateRequest{
		BarID: bar, StartAt: at(19, 0), PartySize: 2, CustomerName: "Bo", CustomerPhone: "+2",
	})
	require.ErrorIs(t, err, ErrNoAvailability)

	_, err = f.move(t, first.ID, model.StatusCancelled)
	require.NoError(t, err)

	second := f.book(t, at(19, 0), 2)
	assert.Equal(t, "A", *second.TableID)
}

func TestReopenRequiresFlagAndFreeTable(t *testing.T) {
	f := newFixture(t)
	f.table(t, "A", 1, 4)
	ctx := context.Background()
	r := f.book(t, at(19, 0), 2)
	_, err := f.move(t, r.ID, model.StatusCancelled)
	require.NoError(t, err)

	_, err = f.move(t, r.ID, model.StatusConfirmed)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.svc.ChangeReservationStatus(ctx, StatusChange{BarID: bar, ReservationID: r.ID, To: model.StatusPending, Reopen: true})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	other := f.book(t, at(20, 0), 2)
	_, err = f.svc.ChangeReservationStatus(ctx, StatusChange{BarID: bar, ReservationID: r.ID, To: model.StatusConfirmed, Reopen: true})
	assert.ErrorIs(t, err, ErrTableConflict)

	_, err = f.move(t, other.ID, model.StatusCancelled)
	require.NoError(t, err)
	res, err := f.svc.ChangeReservationStatus(ctx, StatusChange{BarID: bar, ReservationID: r.ID, To: model.StatusConfirmed, Reopen: true, Actor: "admin"})
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, res.Reservation.Status)
	assert.Nil(t, res.Reservation.CancelledAt)
	assert.Nil(t, res.Reservation.CancellationReason)
}

func TestReassignTable(t *testing.T) {
	f := newFixture(t)
	f.table(t, "A", 1, 4)
	f.table(t, "B", 2, 4)
	small := f.table(t, "S", 3, 2)
	inactive := f.table(t, "X", 4, 8)
	inactive.IsActive = false
	require.NoError(t, f.store.UpdateTable(context.Background(), inactive))
	ctx := context.Background()

	r1 := f.book(t, at(19, 0), 4)
	r2 := f.book(t, at(19, 0), 4)
	require.Equal(t, "A", *r1.TableID)
	require.Equal(t, "B", *r2.TableID)

	_, err := f.svc.ReassignTable(ctx, bar, r1.ID, "B", "staff-1")
	assert.ErrorIs(t, err, ErrTableConflict)
	_, err = f.svc.ReassignTable(ctx, bar, r1.ID, small.ID, "staff-1")
	assert.ErrorIs(t, err, ErrInvalidRequest)
	_, err = f.svc.ReassignTable(ctx, bar, r1.ID, inactive.ID, "staff-1")
	assert.ErrorIs(t, err, ErrInvalidRequest)
	_, err = f.svc.ReassignTable(ctx, bar, r1.ID, "nope", "staff-1")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.ReassignTable(ctx, bar, "nope", "B", "staff-1")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.move(t, r2.ID, model.StatusCancelled)
	require.NoError(t, err)
	res, err := f.svc.ReassignTable(ctx, bar, r1.ID, "B", "staff-1")
	require.NoError(t, err)
	assert.Equal(t, "B", *res.Reservation.TableID)
	assert.Equal(t, "2", res.Reservation.TableNumber)
	kinds := f.notifier.kinds()
	assert.Equal(t, model.NotifyReassigned, kinds[len(kinds)-1])

	same, err := f.svc.ReassignTable(ctx, bar, r1.ID, "B", "staff-1")
	require.NoError(t, err)
	assert.Equal(t, "B", *same.Reservation.TableID)

	_, err = f.move(t, r1.ID, model.StatusCancelled)
	require.NoError(t, err)
	_, err = f.svc.ReassignTable(ctx, bar, r1.ID, "A", "staff-1")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestPurgePastReservationsIsAudited(t *testing.T) {
	f := newFixture(t)
	f.table(t, "A", 1, 4)
	f.existing(t, "old-1", "A", "1", at(8, 0), 60, model.StatusCompleted)
	f.existing(t, "old-2", "A", "1", at(9, 0), 30, model.StatusPending)
	f.existing(t, "later", "A", "1", at(19, 0), 60, model.StatusConfirmed)

	n, err := f.svc.PurgePastReservations(context.Background(), bar, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	left, err := f.store.ListReservations(context.Background(), bar, model.ReservationFilter{})
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "later", left[0].ID)

	entry := f.logs.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "admin-1", entry.Data["actor"])
	assert.Equal(t, 2, entry.Data["deleted"])
}

func TestDeleteReservation(t *testing.T) {
	f := newFixture(t)
	f.table(t, "A", 1, 4)
	r := f.book(t, at(19, 0), 2)

	require.NoError(t, f.svc.DeleteReservation(context.Background(), bar, r.ID, "admin-1"))
	_, err := f.svc.GetReservation(context.Background(), bar, r.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, f.svc.DeleteReservation(context.Background(), bar, r.ID, "admin-1"), ErrNotFound)
}

func TestSendRemindersOncePerReservation(t *testing.T) {
	f := newFixture(t)
	f.table(t, "A", 1, 4)
	f.table(t, "B", 2, 4)
	f.existing(t, "soon", "A", "1", at(13, 0), 60, model.StatusConfirmed)
	f.existing(t, "pending", "B", "2", at(13, 0), 60, model.StatusPending)
	f.existing(t, "far", "A", "1", at(13, 0).Add(72*time.Hour), 60, model.StatusConfirmed)

	n, err := f.svc.SendReminders(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []model.NotificationKind{model.NotifyReminder}, f.notifier.kinds())

	stored, err := f.store.GetReservation(context.Background(), bar, "soon")
	require.NoError(t, err)
	require.NotNil(t, stored.ReminderSentAt)

	n, err = f.svc.SendReminders(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFailedReminderIsRetried(t *testing.T) {
	f := newFixture(t)
	f.table(t, "A", 1, 4)
	f.existing(t, "soon", "A", "1", at(13, 0), 60, model.StatusConfirmed)
	f.notifier.err = errors.New("broker down")

	n, err := f.svc.SendReminders(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n)

	f.notifier.err = nil
	n, err = f.svc.SendReminders(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestFallbackBackend(t *testing.T) {
	primary := repository.NewMemoryStore()
	fallback := repository.NewMemoryStore()
	healthy := true
	ping := func(context.Context) error {
		if healthy {
			return nil
		}
		return errors.New("dial tcp: connection refused")
	}
	b := NewFallbackBackend(primary, ping, fallback, logrus.New())

	got, err := b.Session(context.Background(), bar)
	require.NoError(t, err)
	assert.Same(t, primary, got)

	healthy = false
	_, err = b.Session(context.Background(), bar)
	assert.ErrorIs(t, err, ErrStorage, "fallback without the bar's tables")
	_, err = b.Session(context.Background(), "")
	assert.ErrorIs(t, err, ErrStorage, "all-bar sweeps never fall back")

	require.NoError(t, fallback.CreateTable(context.Background(), &model.Table{ID: "A", BarID: bar, Number: 1, Capacity: 4, IsActive: true}))
	got, err = b.Session(context.Background(), bar)
	require.NoError(t, err)
	assert.Same(t, fallback, got)
	_, err = b.Session(context.Background(), "bar-2")
	assert.ErrorIs(t, err, ErrStorage)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = b.Session(ctx, bar)
	assert.ErrorIs(t, err, ErrStorage)
}

func TestPrimaryOutageSurfacesAsStorageError(t *testing.T) {
	ctx := context.Background()
	primary := repository.NewMemoryStore()
	require.NoError(t, primary.CreateTable(ctx, &model.Table{ID: "A", BarID: bar, Number: 1, Capacity: 4, IsActive: true}))
	fallback := repository.NewMemoryStore()
	down := func(context.Context) error { return errors.New("dial tcp: connection refused") }
	svc := NewService(Deps{
		Backend: NewFallbackBackend(primary, down, fallback, logrus.New()),
		Configs: NewFallbackConfigs(brokenConfigs{err: errors.New("connection refused")}, fallback, logrus.New()),
		Clock:   ClockFunc(func() time.Time { return morning }),
		Logger:  logrus.New(),
	})

	_, err := svc.CheckSlotAvailability(ctx, AvailabilityQuery{BarID: bar, StartAt: at(19, 0), DurationMins: 120, PartySize: 2})
	assert.ErrorIs(t, err, ErrStorage)
	assert.NotErrorIs(t, err, ErrNoAvailability)

	_, err = svc.GetAvailableSlots(ctx, SlotQuery{BarID: bar, Date: "2024-01-01", PartySize: 2})
	assert.ErrorIs(t, err, ErrStorage)

	_, err = svc.CreateReservation(ctx, CreateRequest{
		BarID: bar, StartAt: at(19, 0), DurationMins: 120, PartySize: 2,
		CustomerName: "Ada", CustomerPhone: "+100",
	})
	assert.ErrorIs(t, err, ErrStorage)
	assert.NotErrorIs(t, err, ErrNoAvailability)

	// Config reachable, tables not.
	svc = NewService(Deps{
		Backend: NewFallbackBackend(primary, down, fallback, logrus.New()),
		Configs: primary,
		Clock:   ClockFunc(func() time.Time { return morning }),
		Logger:  logrus.New(),
	})
	_, err = svc.CheckSlotAvailability(ctx, AvailabilityQuery{BarID: bar, StartAt: at(19, 0), DurationMins: 120, PartySize: 2})
	assert.ErrorIs(t, err, ErrStorage)
	_, err = svc.GetAvailableSlots(ctx, SlotQuery{BarID: bar, Date: "2024-01-01", PartySize: 2})
	assert.ErrorIs(t, err, ErrStorage)
	_, err = svc.CreateReservation(ctx, CreateRequest{
		BarID: bar, StartAt: at(19, 0), DurationMins: 120, PartySize: 2,
		CustomerName: "Ada", CustomerPhone: "+100",
	})
	assert.ErrorIs(t, err, ErrStorage)
}

type brokenConfigs struct{ err error }

func (b brokenConfigs) GetReservationConfig(context.Context, string) (model.ReservationConfig, error) {
	return model.ReservationConfig{}, b.err
}

func (b brokenConfigs) SaveReservationConfig(context.Context, model.ReservationConfig) error {
	return b.err
}

func TestFallbackConfigs(t *testing.T) {
	ctx := context.Background()
	fallback := repository.NewMemoryStore()
	cfg := model.DefaultReservationConfig(bar)
	cfg.ClosingTime = "23:30"
	require.NoError(t, fallback.SaveReservationConfig(ctx, cfg))

	down := NewFallbackConfigs(brokenConfigs{err: errors.New("connection refused")}, fallback, logrus.New())
	got, err := down.GetReservationConfig(ctx, bar)
	require.NoError(t, err)
	assert.Equal(t, "23:30", got.ClosingTime)
	assert.Error(t, down.SaveReservationConfig(ctx, cfg), "writes never fall back")

	_, err = down.GetReservationConfig(ctx, "bar-2")
	assert.ErrorIs(t, err, ErrStorage, "no defaults while primary is down")
	assert.NotErrorIs(t, err, repository.ErrNotFound)

	missing := NewFallbackConfigs(brokenConfigs{err: repository.ErrNotFound}, fallback, logrus.New())
	_, err = missing.GetReservationConfig(ctx, bar)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestTablesAndConfigAdministration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.SaveTable(ctx, model.Table{BarID: bar, Number: 5, Capacity: 4, IsActive: true})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	_, err = f.svc.SaveTable(ctx, model.Table{BarID: bar, Number: 5, Capacity: 2, IsActive: true})
	assert.ErrorIs(t, err, ErrInvalidRequest)
	_, err = f.svc.SaveTable(ctx, model.Table{BarID: bar, Number: 6, Capacity: 0})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	occupied, err := f.svc.SetTableOccupied(ctx, bar, created.ID, true)
	require.NoError(t, err)
	assert.True(t, occupied.IsOccupied)
	report, err := f.svc.CheckSlotAvailability(ctx, AvailabilityQuery{BarID: bar, StartAt: at(19, 0), PartySize: 2})
	require.NoError(t, err)
	assert.Empty(t, report.Tables)

	cfg, err := f.svc.GetReservationConfig(ctx, bar)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultReservationConfig(bar), cfg)

	cfg.MaxPartySize = 0
	_, err = f.svc.SaveReservationConfig(ctx, cfg)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	cfg.MaxPartySize = 8
	_, err = f.svc.SaveReservationConfig(ctx, cfg)
	require.NoError(t, err)
	_, err = f.svc.CreateReservation(ctx, CreateRequest{BarID: bar, StartAt: at(19, 0), PartySize: 9, CustomerName: "A", CustomerPhone: "1"})
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Contains(t, f.inval.bars, bar)
}
