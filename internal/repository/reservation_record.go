package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/bar-table-reservation/internal/model"
)

// legacyLayout is the combined layout of the legacy date and time
// columns.  Older bookings were written as a calendar date plus a wall
// clock time in the bar's zone instead of a start instant.
const legacyLayout = model.DateLayout + " " + model.ClockLayout

// reservationRow mirrors the reservations table joined with the bar's
// time zone.  It is the only place where both record shapes exist;
// everything above the repository sees model.Reservation.
type reservationRow struct {
	ID                 string         `db:"id"`
	BarID              string         `db:"bar_id"`
	TableID            sql.NullString `db:"table_id"`
	TableNumber        sql.NullString `db:"table_number"`
	StartsAt           sql.NullTime   `db:"starts_at"`
	LegacyDate         sql.NullString `db:"legacy_date"`
	LegacyTime         sql.NullString `db:"legacy_time"`
	DurationMins       int            `db:"duration_mins"`
	PartySize          int            `db:"party_size"`
	Status             string         `db:"status"`
	CustomerName       string         `db:"customer_name"`
	CustomerPhone      string         `db:"customer_phone"`
	CustomerEmail      sql.NullString `db:"customer_email"`
	Notes              sql.NullString `db:"notes"`
	CancelledAt        sql.NullTime   `db:"cancelled_at"`
	CancellationReason sql.NullString `db:"cancellation_reason"`
	ReminderSentAt     sql.NullTime   `db:"reminder_sent_at"`
	CreatedAt          time.Time      `db:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at"`
	Timezone           sql.NullString `db:"timezone"`
}

// toModel normalizes a row into the canonical reservation.  Legacy rows
// without starts_at are interpreted in the bar's time zone.
func (row reservationRow) toModel() (model.Reservation, error) {
	start, err := row.startInstant()
	if err != nil {
		return model.Reservation{}, err
	}
	r := model.Reservation{
		ID:            row.ID,
		BarID:         row.BarID,
		TableNumber:   model.UnassignedTable,
		StartAt:       start,
		DurationMins:  row.DurationMins,
		PartySize:     row.PartySize,
		Status:        normalizeStatus(row.Status),
		CustomerName:  row.CustomerName,
		CustomerPhone: row.CustomerPhone,
		CreatedAt:     row.CreatedAt.UTC(),
		UpdatedAt:     row.UpdatedAt.UTC(),
	}
	if row.TableID.Valid && row.TableID.String != "" {
		id := row.TableID.String
		r.TableID = &id
	}
	if row.TableNumber.Valid && strings.TrimSpace(row.TableNumber.String) != "" {
		r.TableNumber = strings.TrimSpace(row.TableNumber.String)
	}
	r.CustomerEmail = nullableString(row.CustomerEmail)
	r.Notes = nullableString(row.Notes)
	r.CancellationReason = nullableString(row.CancellationReason)
	r.CancelledAt = nullableTime(row.CancelledAt)
	r.ReminderSentAt = nullableTime(row.ReminderSentAt)
	return r, nil
}

func (row reservationRow) startInstant() (time.Time, error) {
	if row.StartsAt.Valid {
		return row.StartsAt.Time.UTC(), nil
	}
	if !row.LegacyDate.Valid || !row.LegacyTime.Valid {
		return time.Time{}, fmt.Errorf("reservation %s has neither starts_at nor legacy date/time", row.ID)
	}
	loc := time.UTC
	if row.Timezone.Valid && row.Timezone.String != "" {
		if l, err := time.LoadLocation(row.Timezone.String); err == nil {
			loc = l
		}
	}
	raw := strings.TrimSpace(row.LegacyDate.String) + " " + strings.TrimSpace(row.LegacyTime.String)
	t, err := time.ParseInLocation(legacyLayout, raw, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("reservation %s: legacy start %q: %w", row.ID, raw, err)
	}
	return t.UTC(), nil
}

func normalizeStatus(raw string) model.Status {
	if st, ok := model.ParseStatus(raw); ok {
		return st
	}
	return model.Status(strings.ToLower(strings.TrimSpace(raw)))
}

func nullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullableTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func toNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
