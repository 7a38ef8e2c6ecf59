package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/iliyamo/bar-table-reservation/internal/model"
	"github.com/iliyamo/bar-table-reservation/internal/repository"
)

// GetReservation loads one reservation of the bar.
func (s *Service) GetReservation(ctx context.Context, barID, id string) (model.Reservation, error) {
	store, err := s.session(ctx, barID)
	if err != nil {
		return model.Reservation{}, err
	}
	r, err := store.GetReservation(ctx, barID, id)
	if err != nil {
		return model.Reservation{}, storeErr("get reservation", err)
	}
	return r, nil
}

// ListReservations lists the bar's reservations, optionally narrowed to
// some statuses.
func (s *Service) ListReservations(ctx context.Context, barID string, statuses []model.Status) ([]model.Reservation, error) {
	store, err := s.session(ctx, barID)
	if err != nil {
		return nil, err
	}
	rs, err := store.ListReservations(ctx, barID, model.ReservationFilter{Statuses: statuses})
	if err != nil {
		return nil, &StorageError{Op: "list reservations", Err: err}
	}
	return rs, nil
}

// ListTables lists the bar's tables matching f.
func (s *Service) ListTables(ctx context.Context, barID string, f model.TableFilter) ([]model.Table, error) {
	store, err := s.session(ctx, barID)
	if err != nil {
		return nil, err
	}
	ts, err := store.ListTables(ctx, barID, f)
	if err != nil {
		return nil, &StorageError{Op: "list tables", Err: err}
	}
	return ts, nil
}

// SaveTable creates t when it has no ID and updates it otherwise.
// Table numbers are unique within a bar.
func (s *Service) SaveTable(ctx context.Context, t model.Table) (model.Table, error) {
	if t.Number <= 0 {
		return model.Table{}, invalidf("number must be positive")
	}
	if t.Capacity <= 0 {
		return model.Table{}, invalidf("capacity must be positive")
	}
	store, err := s.session(ctx, t.BarID)
	if err != nil {
		return model.Table{}, err
	}

	if t.ID == "" {
		t.ID = s.newID()
		if err := store.CreateTable(ctx, &t); err != nil {
			return model.Table{}, tableErr("create table", t, err)
		}
	} else {
		cur, err := store.GetTable(ctx, t.BarID, t.ID)
		if err != nil {
			return model.Table{}, storeErr("get table", err)
		}
		t.CreatedAt = cur.CreatedAt
		t.UpdatedAt = s.clock.Now()
		if err := store.UpdateTable(ctx, t); err != nil {
			return model.Table{}, tableErr("update table", t, err)
		}
	}
	s.invalidate(ctx, t.BarID)
	return t, nil
}

// SetTableOccupied toggles the walk-in flag.  Availability reads it
// fresh, so the change applies to the next query.
func (s *Service) SetTableOccupied(ctx context.Context, barID, tableID string, occupied bool) (model.Table, error) {
	store, err := s.session(ctx, barID)
	if err != nil {
		return model.Table{}, err
	}
	t, err := store.GetTable(ctx, barID, tableID)
	if err != nil {
		return model.Table{}, storeErr("get table", err)
	}
	t.IsOccupied = occupied
	t.UpdatedAt = s.clock.Now()
	if err := store.UpdateTable(ctx, t); err != nil {
		return model.Table{}, storeErr("update table", err)
	}
	s.invalidate(ctx, barID)
	return t, nil
}

func tableErr(op string, t model.Table, err error) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return invalidf("table number %d already exists", t.Number)
	}
	return storeErr(op, err)
}

// GetReservationConfig returns the bar's settings, defaults included.
func (s *Service) GetReservationConfig(ctx context.Context, barID string) (model.ReservationConfig, error) {
	return s.reservationConfig(ctx, barID)
}

// SaveReservationConfig validates and stores the bar's settings.
func (s *Service) SaveReservationConfig(ctx context.Context, cfg model.ReservationConfig) (model.ReservationConfig, error) {
	if cfg.Timezone == "" {
		cfg.Timezone = "UTC"
	}
	if err := cfg.Validate(); err != nil {
		return model.ReservationConfig{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if err := s.configs.SaveReservationConfig(ctx, cfg); err != nil {
		return model.ReservationConfig{}, &StorageError{Op: "save reservation config", Err: err}
	}
	s.invalidate(ctx, cfg.BarID)
	return cfg, nil
}
