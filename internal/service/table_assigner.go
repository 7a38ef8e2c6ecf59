package service

import (
	"context"
	"time"

	"github.com/iliyamo/bar-table-reservation/internal/model"
)

// TableAssigner picks the table a new booking is placed on.
type TableAssigner struct {
	engine *AvailabilityEngine
}

func NewTableAssigner(engine *AvailabilityEngine) *TableAssigner {
	return &TableAssigner{engine: engine}
}

// BestFit selects the available table with the smallest capacity that
// still seats the party, preferring the lowest table number on ties.
// The result does not depend on the order of avail.
func BestFit(avail []model.TableAvailability, partySize int) (model.TableAvailability, bool) {
	var best model.TableAvailability
	found := false
	for _, a := range avail {
		if !a.IsAvailable || a.Capacity < partySize {
			continue
		}
		if !found || a.Capacity < best.Capacity || (a.Capacity == best.Capacity && a.TableNumber < best.TableNumber) {
			best = a
			found = true
		}
	}
	return best, found
}

// AssignBestTable returns the best-fit table for the window, or nil when
// no table qualifies.  A nil table is "no availability", not an error.
func (a *TableAssigner) AssignBestTable(ctx context.Context, barID string, start time.Time, durationMins, partySize int) (*model.Table, error) {
	snap, err := a.engine.Load(ctx, barID, partySize)
	if err != nil {
		return nil, err
	}
	best, ok := BestFit(snap.Evaluate(start, durationMins), partySize)
	if !ok {
		return nil, nil
	}
	for _, t := range snap.Tables {
		if t.ID == best.TableID {
			table := t
			return &table, nil
		}
	}
	return nil, nil
}
