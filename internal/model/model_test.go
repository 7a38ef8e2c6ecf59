package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusTransitions(t *testing.T) {
	assert.True(t, StatusPending.CanTransitionTo(StatusConfirmed))
	assert.True(t, StatusPending.CanTransitionTo(StatusCancelled))
	assert.True(t, StatusConfirmed.CanTransitionTo(StatusCompleted))
	assert.True(t, StatusConfirmed.CanTransitionTo(StatusNoShow))
	assert.True(t, StatusConfirmed.CanTransitionTo(StatusCancelled))

	assert.False(t, StatusCompleted.CanTransitionTo(StatusPending))
	assert.False(t, StatusPending.CanTransitionTo(StatusCompleted))
	assert.False(t, StatusPending.CanTransitionTo(StatusNoShow))
	assert.False(t, StatusCancelled.CanTransitionTo(StatusConfirmed))

	assert.True(t, StatusCancelled.CanReopen())
	assert.True(t, StatusNoShow.CanReopen())
	assert.False(t, StatusPending.CanReopen())
}

func TestParseStatus(t *testing.T) {
	st, ok := ParseStatus(" No-Show ")
	assert.True(t, ok)
	assert.Equal(t, StatusNoShow, st)
	_, ok = ParseStatus("seated")
	assert.False(t, ok)
}

func TestDefaultGridHasTwentySlots(t *testing.T) {
	cfg := DefaultReservationConfig("bar-1")
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	grid := cfg.SlotGrid(day)
	require.Len(t, grid, 20)
	assert.Equal(t, "12:00", grid[0].Format(ClockLayout))
	assert.Equal(t, "21:30", grid[19].Format(ClockLayout))
}

func TestOvernightGridAndHours(t *testing.T) {
	cfg := DefaultReservationConfig("bar-1")
	cfg.OpeningTime = "20:00"
	cfg.ClosingTime = "02:00"
	cfg.SlotIntervalMinutes = 60

	day := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	grid := cfg.SlotGrid(day)
	require.Len(t, grid, 6)
	assert.Equal(t, time.Date(2024, 1, 6, 1, 0, 0, 0, time.UTC), grid[5])

	assert.True(t, cfg.WithinHours(time.Date(2024, 1, 6, 1, 30, 0, 0, time.UTC)))
	assert.False(t, cfg.WithinHours(time.Date(2024, 1, 6, 2, 0, 0, 0, time.UTC)))
	assert.False(t, cfg.WithinHours(time.Date(2024, 1, 6, 12, 0, 0, 0, time.UTC)))
}

func TestWeekdayOverride(t *testing.T) {
	cfg := DefaultReservationConfig("bar-1")
	cfg.WeekdayHours = map[string]DayHours{
		"monday": {Closed: true},
		"friday": {Open: "17:00", Close: "23:00"},
	}
	require.NoError(t, cfg.Validate())

	monday := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Empty(t, cfg.SlotGrid(monday))
	assert.False(t, cfg.WithinHours(monday.Add(13*time.Hour)))

	friday := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	grid := cfg.SlotGrid(friday)
	require.Len(t, grid, 12)
	assert.Equal(t, "17:00", grid[0].Format(ClockLayout))
}

func TestSlotGridUsesBarTimezone(t *testing.T) {
	cfg := DefaultReservationConfig("bar-1")
	cfg.Timezone = "Europe/Berlin"
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	grid := cfg.SlotGrid(day)
	require.NotEmpty(t, grid)
	assert.Equal(t, time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC), grid[0].UTC())
}

func TestValidate(t *testing.T) {
	cfg := DefaultReservationConfig("bar-1")
	require.NoError(t, cfg.Validate())

	bad := cfg
	bad.MaxPartySize = 0
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.OpeningTime = "25:99"
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.Timezone = "Mars/Olympus"
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.WeekdayHours = map[string]DayHours{"someday": {Closed: true}}
	assert.Error(t, bad.Validate())
}

func TestReservationEndAtAndJSON(t *testing.T) {
	r := Reservation{ID: "r1", StartAt: time.Date(2024, 1, 1, 19, 0, 0, 0, time.UTC), DurationMins: 120}
	assert.Equal(t, time.Date(2024, 1, 1, 21, 0, 0, 0, time.UTC), r.EndAt())

	raw, err := json.Marshal(r)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "2024-01-01T21:00:00Z", decoded["end_at"])
	assert.Equal(t, "r1", decoded["id"])
}

func TestNeedsOverlapCheck(t *testing.T) {
	a, b := "a", "b"
	base := Reservation{TableID: &a, TableNumber: "1", Status: StatusPending}

	confirmed := base
	confirmed.Status = StatusConfirmed
	assert.False(t, NeedsOverlapCheck(base, confirmed))

	moved := base
	moved.TableID = &b
	moved.TableNumber = "2"
	assert.True(t, NeedsOverlapCheck(base, moved))

	closed := base
	closed.Status = StatusCancelled
	reopened := closed
	reopened.Status = StatusConfirmed
	assert.True(t, NeedsOverlapCheck(closed, reopened))
	assert.False(t, NeedsOverlapCheck(base, closed))
}

func TestTableFilter(t *testing.T) {
	f := Suitable(3)
	assert.True(t, f.Match(Table{Capacity: 4, IsActive: true}))
	assert.False(t, f.Match(Table{Capacity: 2, IsActive: true}))
	assert.False(t, f.Match(Table{Capacity: 4, IsActive: false}))
	assert.False(t, f.Match(Table{Capacity: 4, IsActive: true, IsOccupied: true}))
}
