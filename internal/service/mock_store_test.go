package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/iliyamo/bar-table-reservation/internal/model"
	"github.com/iliyamo/bar-table-reservation/internal/repository"
)

// mockStore is a testify mock of the storage collaborator.
type mockStore struct {
	mock.Mock
}

func (m *mockStore) ListTables(ctx context.Context, barID string, f model.TableFilter) ([]model.Table, error) {
	args := m.Called(ctx, barID, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Table), args.Error(1)
}

func (m *mockStore) GetTable(ctx context.Context, barID, id string) (model.Table, error) {
	args := m.Called(ctx, barID, id)
	return args.Get(0).(model.Table), args.Error(1)
}

func (m *mockStore) CreateTable(ctx context.Context, t *model.Table) error {
	return m.Called(ctx, t).Error(0)
}

func (m *mockStore) UpdateTable(ctx context.Context, t model.Table) error {
	return m.Called(ctx, t).Error(0)
}

func (m *mockStore) ListReservations(ctx context.Context, barID string, f model.ReservationFilter) ([]model.Reservation, error) {
	args := m.Called(ctx, barID, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Reservation), args.Error(1)
}

func (m *mockStore) GetReservation(ctx context.Context, barID, id string) (model.Reservation, error) {
	args := m.Called(ctx, barID, id)
	return args.Get(0).(model.Reservation), args.Error(1)
}

func (m *mockStore) CreateReservation(ctx context.Context, r *model.Reservation) error {
	return m.Called(ctx, r).Error(0)
}

func (m *mockStore) UpdateReservation(ctx context.Context, barID, id string, u model.ReservationUpdate) (model.Reservation, error) {
	args := m.Called(ctx, barID, id, u)
	return args.Get(0).(model.Reservation), args.Error(1)
}

func (m *mockStore) DeleteReservation(ctx context.Context, barID, id string) error {
	return m.Called(ctx, barID, id).Error(0)
}

func (m *mockStore) PurgeReservationsBefore(ctx context.Context, barID string, cutoff time.Time) (int, error) {
	args := m.Called(ctx, barID, cutoff)
	return args.Int(0), args.Error(1)
}

// countingStore counts the reads availability issues against a real
// in-memory store.
type countingStore struct {
	*repository.MemoryStore
	tableReads       atomic.Int32
	reservationReads atomic.Int32
}

func (c *countingStore) ListTables(ctx context.Context, barID string, f model.TableFilter) ([]model.Table, error) {
	c.tableReads.Add(1)
	return c.MemoryStore.ListTables(ctx, barID, f)
}

func (c *countingStore) ListReservations(ctx context.Context, barID string, f model.ReservationFilter) ([]model.Reservation, error) {
	c.reservationReads.Add(1)
	return c.MemoryStore.ListReservations(ctx, barID, f)
}

type sent struct {
	kind model.NotificationKind
	id   string
}

// recordingNotifier remembers every notification and fails when err is set.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []sent
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, kind model.NotificationKind, r model.Reservation) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sent{kind: kind, id: r.ID})
	return nil
}

func (n *recordingNotifier) kinds() []model.NotificationKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]model.NotificationKind, 0, len(n.sent))
	for _, s := range n.sent {
		out = append(out, s.kind)
	}
	return out
}

type recordingInvalidator struct {
	mu   sync.Mutex
	bars []string
}

func (i *recordingInvalidator) InvalidateBar(_ context.Context, barID string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.bars = append(i.bars, barID)
	return nil
}

// walkInStore marks the assigned table occupied just before the first
// insert lands, as a walk-in seated between assignment and write would.
type walkInStore struct {
	*repository.MemoryStore
	once sync.Once
}

func (w *walkInStore) CreateReservation(ctx context.Context, r *model.Reservation) error {
	w.once.Do(func() {
		if r.TableID == nil {
			return
		}
		if t, err := w.MemoryStore.GetTable(ctx, r.BarID, *r.TableID); err == nil {
			t.IsOccupied = true
			_ = w.MemoryStore.UpdateTable(ctx, t)
		}
	})
	return w.MemoryStore.CreateReservation(ctx, r)
}
