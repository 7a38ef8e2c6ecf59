package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/bar-table-reservation/internal/conflict"
	"github.com/iliyamo/bar-table-reservation/internal/model"
)

// MemoryStore is a process local implementation of the storage
// collaborator.  A single mutex serializes writes, which makes the
// check-and-insert of CreateReservation and UpdateReservation atomic.
type MemoryStore struct {
	mu           sync.RWMutex
	tables       map[string]model.Table
	reservations map[string]model.Reservation
	configs      map[string]model.ReservationConfig
	staff        map[string]model.Staff
	now          func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tables:       make(map[string]model.Table),
		reservations: make(map[string]model.Reservation),
		configs:      make(map[string]model.ReservationConfig),
		staff:        make(map[string]model.Staff),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Ping always succeeds.
func (s *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

func (s *MemoryStore) ListTables(ctx context.Context, barID string, f model.TableFilter) ([]model.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Table{}
	for _, t := range s.tables {
		if t.BarID == barID && f.Match(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (s *MemoryStore) GetTable(ctx context.Context, barID, id string) (model.Table, error) {
	if err := ctx.Err(); err != nil {
		return model.Table{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[id]
	if !ok || t.BarID != barID {
		return model.Table{}, ErrNotFound
	}
	return t, nil
}

func (s *MemoryStore) CreateTable(ctx context.Context, t *model.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.numberTakenLocked(t.BarID, t.Number, t.ID) {
		return ErrDuplicate
	}
	now := s.now()
	t.CreatedAt, t.UpdatedAt = now, now
	s.tables[t.ID] = *t
	return nil
}

func (s *MemoryStore) UpdateTable(ctx context.Context, t model.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.tables[t.ID]
	if !ok || cur.BarID != t.BarID {
		return ErrNotFound
	}
	if s.numberTakenLocked(t.BarID, t.Number, t.ID) {
		return ErrDuplicate
	}
	t.CreatedAt = cur.CreatedAt
	t.UpdatedAt = s.now()
	s.tables[t.ID] = t
	return nil
}

func (s *MemoryStore) numberTakenLocked(barID string, number int, selfID string) bool {
	for _, other := range s.tables {
		if other.BarID == barID && other.Number == number && other.ID != selfID {
			return true
		}
	}
	return false
}

func (s *MemoryStore) ListReservations(ctx context.Context, barID string, f model.ReservationFilter) ([]model.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Reservation{}
	for _, r := range s.reservations {
		if (barID == "" || r.BarID == barID) && f.Match(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartAt.Equal(out[j].StartAt) {
			return out[i].StartAt.Before(out[j].StartAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) GetReservation(ctx context.Context, barID, id string) (model.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return model.Reservation{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reservations[id]
	if !ok || r.BarID != barID {
		return model.Reservation{}, ErrNotFound
	}
	return r, nil
}

// CreateReservation inserts res unless it would overlap an active
// reservation on the same table or the table has since been deactivated
// or marked occupied; both cases return ErrConflict.
func (s *MemoryStore) CreateReservation(ctx context.Context, res *model.Reservation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if res.Status.IsActive() {
		table, bound, err := s.boundTableLocked(*res)
		if err != nil {
			return err
		}
		if bound && (!table.IsActive || table.IsOccupied) {
			return ErrConflict
		}
		if err := s.checkOverlapLocked(*res); err != nil {
			return err
		}
	}
	s.reservations[res.ID] = *res
	return nil
}

func (s *MemoryStore) UpdateReservation(ctx context.Context, barID, id string, u model.ReservationUpdate) (model.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return model.Reservation{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	before, ok := s.reservations[id]
	if !ok || before.BarID != barID {
		return model.Reservation{}, ErrNotFound
	}
	if u.ExpectStatus != nil && before.Status != *u.ExpectStatus {
		return model.Reservation{}, ErrStale
	}
	after := u.Apply(before)
	if model.NeedsOverlapCheck(before, after) {
		if err := s.checkOverlapLocked(after); err != nil {
			return model.Reservation{}, err
		}
	}
	s.reservations[id] = after
	return after, nil
}

// checkOverlapLocked resolves the table res is bound to and rejects the
// write when another active reservation overlaps it.
func (s *MemoryStore) checkOverlapLocked(res model.Reservation) error {
	table, bound, err := s.boundTableLocked(res)
	if err != nil || !bound {
		return err
	}
	existing := make([]model.Reservation, 0, len(s.reservations))
	for _, r := range s.reservations {
		if r.BarID == res.BarID {
			existing = append(existing, r)
		}
	}
	if len(conflict.Find(existing, table, res.StartAt, res.EndAt(), res.ID)) > 0 {
		return ErrConflict
	}
	return nil
}

func (s *MemoryStore) boundTableLocked(res model.Reservation) (model.Table, bool, error) {
	if res.TableID != nil && *res.TableID != "" {
		t, ok := s.tables[*res.TableID]
		if !ok || t.BarID != res.BarID {
			return model.Table{}, false, ErrNotFound
		}
		return t, true, nil
	}
	if res.TableNumber == "" || res.TableNumber == model.UnassignedTable {
		return model.Table{}, false, nil
	}
	for _, t := range s.tables {
		if t.BarID == res.BarID && t.NumberLabel() == res.TableNumber {
			return t, true, nil
		}
	}
	return model.Table{}, false, ErrNotFound
}

func (s *MemoryStore) DeleteReservation(ctx context.Context, barID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[id]
	if !ok || r.BarID != barID {
		return ErrNotFound
	}
	delete(s.reservations, id)
	return nil
}

func (s *MemoryStore) PurgeReservationsBefore(ctx context.Context, barID string, cutoff time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, r := range s.reservations {
		if r.BarID == barID && r.StartAt.Before(cutoff) {
			delete(s.reservations, id)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) GetReservationConfig(ctx context.Context, barID string) (model.ReservationConfig, error) {
	if err := ctx.Err(); err != nil {
		return model.ReservationConfig{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.configs[barID]
	if !ok {
		return model.ReservationConfig{}, ErrNotFound
	}
	return cfg, nil
}

func (s *MemoryStore) SaveReservationConfig(ctx context.Context, cfg model.ReservationConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[cfg.BarID] = cfg
	return nil
}

func (s *MemoryStore) CreateStaff(ctx context.Context, st *model.Staff) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st.Email = strings.ToLower(strings.TrimSpace(st.Email))
	if _, exists := s.staff[st.Email]; exists {
		return ErrDuplicate
	}
	now := s.now()
	st.CreatedAt, st.UpdatedAt = now, now
	s.staff[st.Email] = *st
	return nil
}

func (s *MemoryStore) GetStaffByEmail(ctx context.Context, email string) (model.Staff, error) {
	if err := ctx.Err(); err != nil {
		return model.Staff{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.staff[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return model.Staff{}, ErrNotFound
	}
	return st, nil
}
