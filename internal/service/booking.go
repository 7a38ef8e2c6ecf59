package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/bar-table-reservation/internal/model"
	"github.com/iliyamo/bar-table-reservation/internal/repository"
)

// SlotQuery asks for the booking grid of one calendar day.  Date is
// interpreted in the bar's time zone.  A zero DurationMins uses the
// bar's default booking length.
type SlotQuery struct {
	BarID        string
	Date         string
	PartySize    int
	DurationMins int
}

// AvailabilityQuery asks whether a concrete window can be booked.
type AvailabilityQuery struct {
	BarID        string
	StartAt      time.Time
	DurationMins int
	PartySize    int
}

// AvailabilityReport answers an AvailabilityQuery.  Tables lists every
// suitable table ordered by number.  NextAvailableTime is only set when
// nothing is free and holds the earliest moment one of the tables frees
// up.
type AvailabilityReport struct {
	Available         bool                      `json:"available"`
	Tables            []model.TableAvailability `json:"tables"`
	NextAvailableTime *time.Time                `json:"next_available_time,omitempty"`
}

// CreateRequest carries a new booking.  A zero DurationMins uses the
// bar's default booking length.
type CreateRequest struct {
	BarID         string
	StartAt       time.Time
	DurationMins  int
	PartySize     int
	CustomerName  string
	CustomerPhone string
	CustomerEmail *string
	Notes         *string
}

// GetAvailableSlots returns the annotated booking grid for q.Date.
func (s *Service) GetAvailableSlots(ctx context.Context, q SlotQuery) ([]model.TimeSlot, error) {
	cfg, err := s.reservationConfig(ctx, q.BarID)
	if err != nil {
		return nil, err
	}
	if err := checkParty(cfg, q.PartySize); err != nil {
		return nil, err
	}
	duration, err := bookingLength(cfg, q.DurationMins)
	if err != nil {
		return nil, err
	}
	loc := cfg.Location()
	day, err := time.ParseInLocation(model.DateLayout, strings.TrimSpace(q.Date), loc)
	if err != nil {
		return nil, invalidf("date %q: expected YYYY-MM-DD", q.Date)
	}
	now := s.clock.Now().In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	if day.Before(today) {
		return nil, invalidf("date %s is in the past", q.Date)
	}
	if day.After(today.AddDate(0, 0, cfg.AdvanceBookingDays)) {
		return nil, invalidf("date %s is more than %d days ahead", q.Date, cfg.AdvanceBookingDays)
	}

	store, err := s.session(ctx, q.BarID)
	if err != nil {
		return nil, err
	}
	gen := NewSlotGenerator(NewAvailabilityEngine(store), s.clock)
	return gen.GenerateSlots(ctx, cfg, day, q.PartySize, duration)
}

// CheckSlotAvailability reports per table availability for one window.
// Business hours and the advance window are not enforced here; they
// only bind bookings.
func (s *Service) CheckSlotAvailability(ctx context.Context, q AvailabilityQuery) (AvailabilityReport, error) {
	cfg, err := s.reservationConfig(ctx, q.BarID)
	if err != nil {
		return AvailabilityReport{}, err
	}
	if err := checkParty(cfg, q.PartySize); err != nil {
		return AvailabilityReport{}, err
	}
	duration, err := bookingLength(cfg, q.DurationMins)
	if err != nil {
		return AvailabilityReport{}, err
	}
	if q.StartAt.IsZero() {
		return AvailabilityReport{}, invalidf("start_at is required")
	}

	store, err := s.session(ctx, q.BarID)
	if err != nil {
		return AvailabilityReport{}, err
	}
	tables, err := NewAvailabilityEngine(store).ComputeAvailability(ctx, q.BarID, q.StartAt, duration, q.PartySize)
	if err != nil {
		return AvailabilityReport{}, err
	}
	sort.Slice(tables, func(i, j int) bool { return tables[i].TableNumber < tables[j].TableNumber })

	report := AvailabilityReport{Tables: tables}
	var next *time.Time
	for _, t := range tables {
		if t.IsAvailable {
			report.Available = true
			continue
		}
		if t.NextAvailableTime != nil && (next == nil || t.NextAvailableTime.Before(*next)) {
			next = t.NextAvailableTime
		}
	}
	if !report.Available {
		report.NextAvailableTime = next
	}
	return report, nil
}

// CreateReservation validates req, assigns the best-fit table and
// persists a pending reservation.  The store insert is conditional; when
// another booking wins the table in between, assignment is recomputed
// up to maxAttempts times before giving up with ErrNoAvailability.
func (s *Service) CreateReservation(ctx context.Context, req CreateRequest) (Result, error) {
	cfg, err := s.reservationConfig(ctx, req.BarID)
	if err != nil {
		return Result{}, err
	}
	duration, err := bookingLength(cfg, req.DurationMins)
	if err != nil {
		return Result{}, err
	}
	name := strings.TrimSpace(req.CustomerName)
	phone := strings.TrimSpace(req.CustomerPhone)
	if name == "" || phone == "" {
		return Result{}, invalidf("customer name and phone are required")
	}
	start := req.StartAt.UTC()
	if err := validateWindow(cfg, req.PartySize, start, s.clock.Now()); err != nil {
		return Result{}, err
	}

	store, err := s.session(ctx, req.BarID)
	if err != nil {
		return Result{}, err
	}
	assigner := NewTableAssigner(NewAvailabilityEngine(store))
	logger := s.log.WithFields(logrus.Fields{"bar_id": req.BarID, "start_at": start, "party_size": req.PartySize})

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		table, err := assigner.AssignBestTable(ctx, req.BarID, start, duration, req.PartySize)
		if err != nil {
			return Result{}, err
		}
		if table == nil {
			return Result{}, s.noAvailability(ctx, store, req.BarID, req.PartySize)
		}

		now := s.clock.Now()
		tableID := table.ID
		res := model.Reservation{
			ID:            s.newID(),
			BarID:         req.BarID,
			TableID:       &tableID,
			TableNumber:   table.NumberLabel(),
			StartAt:       start,
			DurationMins:  duration,
			PartySize:     req.PartySize,
			Status:        model.StatusPending,
			CustomerName:  name,
			CustomerPhone: phone,
			CustomerEmail: trimmed(req.CustomerEmail),
			Notes:         trimmed(req.Notes),
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		err = store.CreateReservation(ctx, &res)
		switch {
		case err == nil:
			logger.WithFields(logrus.Fields{"reservation_id": res.ID, "table": res.TableNumber}).Info("reservation created")
			s.invalidate(ctx, req.BarID)
			return Result{Reservation: res, Warnings: s.notify(ctx, model.NotifyReceived, res)}, nil
		case errors.Is(err, repository.ErrConflict), errors.Is(err, repository.ErrNotFound):
			// Lost the table to a concurrent booking or it vanished; pick again.
			logger.WithField("attempt", attempt).Debug("table taken before insert, retrying")
		default:
			return Result{}, &StorageError{Op: "create reservation", Err: err}
		}
	}
	return Result{}, fmt.Errorf("%w: tables kept being taken by concurrent bookings", ErrNoAvailability)
}

// noAvailability distinguishes a party that no active table can ever
// seat from a window that is merely booked out.
func (s *Service) noAvailability(ctx context.Context, store Store, barID string, partySize int) error {
	tables, err := store.ListTables(ctx, barID, model.TableFilter{ActiveOnly: true})
	if err != nil {
		return &StorageError{Op: "list tables", Err: err}
	}
	largest := 0
	for _, t := range tables {
		if t.IsActive && t.Capacity > largest {
			largest = t.Capacity
		}
	}
	if largest < partySize {
		return fmt.Errorf("%w (largest table seats %d)", ErrPartyTooLarge, largest)
	}
	return ErrNoAvailability
}

// validateWindow applies every check that needs no storage access.
func validateWindow(cfg model.ReservationConfig, partySize int, start, now time.Time) error {
	if err := checkParty(cfg, partySize); err != nil {
		return err
	}
	if start.IsZero() {
		return invalidf("start_at is required")
	}
	earliest, latest := bookingWindow(cfg, now)
	if start.Before(earliest) {
		if cfg.AdvanceBookingHours > 0 {
			return invalidf("reservations must be made at least %d hours ahead", cfg.AdvanceBookingHours)
		}
		return invalidf("start_at is in the past")
	}
	if start.After(latest) {
		return invalidf("reservations can be made at most %d days ahead", cfg.AdvanceBookingDays)
	}
	if !cfg.WithinHours(start) {
		return invalidf("%s is outside business hours", start.In(cfg.Location()).Format(model.ClockLayout))
	}
	return nil
}

// bookingWindow bounds the start times a booking made at now may use.
func bookingWindow(cfg model.ReservationConfig, now time.Time) (earliest, latest time.Time) {
	return now.Add(time.Duration(cfg.AdvanceBookingHours) * time.Hour), now.AddDate(0, 0, cfg.AdvanceBookingDays)
}

// checkParty covers the kill switch and the party size bounds.
func checkParty(cfg model.ReservationConfig, partySize int) error {
	if !cfg.IsActive {
		return ErrReservationsDisabled
	}
	if partySize < cfg.MinPartySize || partySize > cfg.MaxPartySize {
		return invalidf("party size must be between %d and %d", cfg.MinPartySize, cfg.MaxPartySize)
	}
	return nil
}

func bookingLength(cfg model.ReservationConfig, requested int) (int, error) {
	switch {
	case requested < 0:
		return 0, invalidf("duration must be positive")
	case requested == 0:
		return cfg.ReservationDurationMinutes, nil
	default:
		return requested, nil
	}
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
