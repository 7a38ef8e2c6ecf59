package service

import (
	"context"
	"time"

	"github.com/iliyamo/bar-table-reservation/internal/model"
)

// SlotGenerator annotates the booking grid of one day with
// availability counts.
type SlotGenerator struct {
	engine *AvailabilityEngine
	clock  Clock
}

func NewSlotGenerator(engine *AvailabilityEngine, clock Clock) *SlotGenerator {
	return &SlotGenerator{engine: engine, clock: clock}
}

// GenerateSlots returns the grid for date.  Grid points a booking could
// not start at, before now plus the minimum notice or past the advance
// booking horizon, are unavailable with zero counts and cost no storage
// call.  All
// remaining points are evaluated against one snapshot, so the output is
// a pure function of the storage state it read.
func (g *SlotGenerator) GenerateSlots(ctx context.Context, cfg model.ReservationConfig, date time.Time, partySize, durationMins int) ([]model.TimeSlot, error) {
	grid := cfg.SlotGrid(date)
	earliest, latest := bookingWindow(cfg, g.clock.Now())
	slots := make([]model.TimeSlot, 0, len(grid))
	var snap *Snapshot

	for _, at := range grid {
		slot := model.TimeSlot{Time: at.Format(model.ClockLayout), StartAt: at.UTC()}
		if at.Before(earliest) || at.After(latest) {
			slots = append(slots, slot)
			continue
		}
		if snap == nil {
			loaded, err := g.engine.Load(ctx, cfg.BarID, partySize)
			if err != nil {
				return nil, err
			}
			snap = &loaded
		}
		tables := snap.Evaluate(at, durationMins)
		free := 0
		for _, t := range tables {
			if t.IsAvailable {
				free++
			}
		}
		slot.AvailableTablesCount = free
		slot.TotalTablesCount = len(tables)
		slot.Available = free > 0
		slots = append(slots, slot)
	}
	return slots, nil
}
