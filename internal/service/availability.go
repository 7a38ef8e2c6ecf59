package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/bar-table-reservation/internal/conflict"
	"github.com/iliyamo/bar-table-reservation/internal/model"
)

// Snapshot is the storage state a single availability computation
// works on: the suitable tables and the active reservations of a bar.
type Snapshot struct {
	Tables       []model.Table
	Reservations []model.Reservation
}

// AvailabilityEngine reports which suitable tables are free for a
// window.  It reads storage fresh on every call.
type AvailabilityEngine struct {
	store Store
}

func NewAvailabilityEngine(store Store) *AvailabilityEngine {
	return &AvailabilityEngine{store: store}
}

// Load reads the suitable tables and the active reservations of a bar
// concurrently.  Either read failing fails the whole load; a partial
// snapshot is never returned.
func (e *AvailabilityEngine) Load(ctx context.Context, barID string, partySize int) (Snapshot, error) {
	filter := model.Suitable(partySize)
	var tables []model.Table
	var reservations []model.Reservation

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ts, err := e.store.ListTables(gctx, barID, filter)
		if err != nil {
			return &StorageError{Op: "list tables", Err: err}
		}
		tables = ts
		return nil
	})
	g.Go(func() error {
		rs, err := e.store.ListReservations(gctx, barID, model.ReservationFilter{Statuses: model.ActiveStatuses})
		if err != nil {
			return &StorageError{Op: "list reservations", Err: err}
		}
		reservations = rs
		return nil
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}

	// Stores may treat the filters as hints.
	snap := Snapshot{Tables: make([]model.Table, 0, len(tables))}
	for _, t := range tables {
		if filter.Match(t) {
			snap.Tables = append(snap.Tables, t)
		}
	}
	for _, r := range reservations {
		if conflict.Blocks(r) {
			snap.Reservations = append(snap.Reservations, r)
		}
	}
	return snap, nil
}

// Evaluate reports every table of the snapshot for [start, start+duration).
// Busy tables carry the latest end among the reservations blocking them.
func (s Snapshot) Evaluate(start time.Time, durationMins int) []model.TableAvailability {
	end := start.Add(time.Duration(durationMins) * time.Minute)
	out := make([]model.TableAvailability, 0, len(s.Tables))
	for _, t := range s.Tables {
		hits := conflict.Find(s.Reservations, t, start, end, "")
		a := model.TableAvailability{
			TableID:     t.ID,
			TableNumber: t.Number,
			Capacity:    t.Capacity,
			IsAvailable: len(hits) == 0,
		}
		if next, ok := conflict.LatestEnd(hits); ok {
			a.NextAvailableTime = &next
		}
		out = append(out, a)
	}
	return out
}

// ComputeAvailability loads a snapshot and evaluates one window.
func (e *AvailabilityEngine) ComputeAvailability(ctx context.Context, barID string, start time.Time, durationMins, partySize int) ([]model.TableAvailability, error) {
	snap, err := e.Load(ctx, barID, partySize)
	if err != nil {
		return nil, err
	}
	return snap.Evaluate(start, durationMins), nil
}
