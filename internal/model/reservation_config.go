package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // bar time zones must resolve in slim containers
)

// ClockLayout is the HH:MM layout used for business hours and slots.
const ClockLayout = "15:04"

// DateLayout is the calendar date layout accepted by slot queries.
const DateLayout = "2006-01-02"

const minutesPerDay = 24 * 60

// DayHours overrides the default opening hours for one weekday.
type DayHours struct {
	Open   string `json:"open,omitempty"`
	Close  string `json:"close,omitempty"`
	Closed bool   `json:"closed,omitempty"`
}

// ReservationConfig holds the per bar reservation settings.  A value is
// treated as immutable for the duration of one availability
// computation.
//
// When ClosingTime is not after OpeningTime the session runs past
// midnight into the next calendar day.
type ReservationConfig struct {
	BarID                      string              `json:"bar_id"`
	OpeningTime                string              `json:"opening_time"`
	ClosingTime                string              `json:"closing_time"`
	SlotIntervalMinutes        int                 `json:"slot_interval_minutes"`
	MinPartySize               int                 `json:"min_party_size"`
	MaxPartySize               int                 `json:"max_party_size"`
	AdvanceBookingDays         int                 `json:"advance_booking_days"`
	AdvanceBookingHours        int                 `json:"advance_booking_hours"`
	ReservationDurationMinutes int                 `json:"reservation_duration_minutes"`
	IsActive                   bool                `json:"is_active"`
	Timezone                   string              `json:"timezone"`
	WeekdayHours               map[string]DayHours `json:"weekday_hours,omitempty"`
}

// DefaultReservationConfig is used for bars that never stored settings.
func DefaultReservationConfig(barID string) ReservationConfig {
	return ReservationConfig{
		BarID:                      barID,
		OpeningTime:                "12:00",
		ClosingTime:                "22:00",
		SlotIntervalMinutes:        30,
		MinPartySize:               1,
		MaxPartySize:               20,
		AdvanceBookingDays:         30,
		AdvanceBookingHours:        0,
		ReservationDurationMinutes: 120,
		IsActive:                   true,
		Timezone:                   "UTC",
	}
}

// ParseClock converts "HH:MM" into minutes after midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse(ClockLayout, strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// Validate checks the settings an administrator submits.
func (c ReservationConfig) Validate() error {
	if _, err := ParseClock(c.OpeningTime); err != nil {
		return fmt.Errorf("opening_time: %w", err)
	}
	if _, err := ParseClock(c.ClosingTime); err != nil {
		return fmt.Errorf("closing_time: %w", err)
	}
	if c.SlotIntervalMinutes <= 0 {
		return errors.New("slot_interval_minutes must be positive")
	}
	if c.ReservationDurationMinutes <= 0 {
		return errors.New("reservation_duration_minutes must be positive")
	}
	if c.MinPartySize < 1 {
		return errors.New("min_party_size must be at least 1")
	}
	if c.MaxPartySize < c.MinPartySize {
		return errors.New("max_party_size must not be below min_party_size")
	}
	if c.AdvanceBookingDays < 0 || c.AdvanceBookingHours < 0 {
		return errors.New("advance booking windows must not be negative")
	}
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("unknown timezone %q", c.Timezone)
		}
	}
	for day, h := range c.WeekdayHours {
		if _, ok := weekdayByName[strings.ToLower(day)]; !ok {
			return fmt.Errorf("weekday_hours: unknown day %q", day)
		}
		if h.Closed {
			continue
		}
		if _, err := ParseClock(h.Open); err != nil {
			return fmt.Errorf("weekday_hours.%s.open: %w", day, err)
		}
		if _, err := ParseClock(h.Close); err != nil {
			return fmt.Errorf("weekday_hours.%s.close: %w", day, err)
		}
	}
	return nil
}

var weekdayByName = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday,
	"friday": time.Friday, "saturday": time.Saturday,
}

// Location returns the bar's time zone, UTC when unset or unknown.
func (c ReservationConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// HoursFor returns the session for the weekday as minutes after
// midnight.  closeMin is greater than openMin; overnight sessions
// extend past 1440.  ok is false when the bar is closed that day.
func (c ReservationConfig) HoursFor(day time.Weekday) (openMin, closeMin int, ok bool) {
	openStr, closeStr := c.OpeningTime, c.ClosingTime
	if h, found := c.WeekdayHours[strings.ToLower(day.String())]; found {
		if h.Closed {
			return 0, 0, false
		}
		openStr, closeStr = h.Open, h.Close
	}
	openMin, err := ParseClock(openStr)
	if err != nil {
		return 0, 0, false
	}
	closeMin, err = ParseClock(closeStr)
	if err != nil {
		return 0, 0, false
	}
	if closeMin <= openMin {
		closeMin += minutesPerDay
	}
	return openMin, closeMin, true
}

// SlotGrid returns the candidate start instants for the calendar date
// of day in the bar's location, from opening time (inclusive) to
// closing time (exclusive) every SlotIntervalMinutes.
func (c ReservationConfig) SlotGrid(day time.Time) []time.Time {
	loc := c.Location()
	local := day.In(loc)
	openMin, closeMin, ok := c.HoursFor(local.Weekday())
	step := c.SlotIntervalMinutes
	if !ok || step <= 0 {
		return nil
	}
	y, m, d := local.Date()
	grid := make([]time.Time, 0, (closeMin-openMin)/step+1)
	for at := openMin; at < closeMin; at += step {
		grid = append(grid, time.Date(y, m, d, 0, at, 0, 0, loc))
	}
	return grid
}

// WithinHours reports whether t falls inside a session: either the one
// starting on t's local date or an overnight session from the day
// before.
func (c ReservationConfig) WithinHours(t time.Time) bool {
	local := t.In(c.Location())
	mins := local.Hour()*60 + local.Minute()
	if openMin, closeMin, ok := c.HoursFor(local.Weekday()); ok && mins >= openMin && mins < closeMin {
		return true
	}
	prev := local.AddDate(0, 0, -1).Weekday()
	if _, closeMin, ok := c.HoursFor(prev); ok && closeMin > minutesPerDay {
		return mins < closeMin-minutesPerDay
	}
	return false
}
