package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/bar-table-reservation/internal/model"
)

// ConfigRepo stores one reservation_configs row per bar.  Weekday
// overrides are kept as a JSON column.
type ConfigRepo struct {
	db *sqlx.DB
}

// NewConfigRepo returns a new ConfigRepo bound to the given database.
func NewConfigRepo(db *sqlx.DB) *ConfigRepo { return &ConfigRepo{db: db} }

type configRow struct {
	BarID                      string         `db:"bar_id"`
	OpeningTime                string         `db:"opening_time"`
	ClosingTime                string         `db:"closing_time"`
	SlotIntervalMinutes        int            `db:"slot_interval_minutes"`
	MinPartySize               int            `db:"min_party_size"`
	MaxPartySize               int            `db:"max_party_size"`
	AdvanceBookingDays         int            `db:"advance_booking_days"`
	AdvanceBookingHours        int            `db:"advance_booking_hours"`
	ReservationDurationMinutes int            `db:"reservation_duration_minutes"`
	IsActive                   bool           `db:"is_active"`
	Timezone                   string         `db:"timezone"`
	WeekdayHours               sql.NullString `db:"weekday_hours"`
}

// GetReservationConfig returns the stored settings of a bar or
// ErrNotFound when the bar never saved any.
func (r *ConfigRepo) GetReservationConfig(ctx context.Context, barID string) (model.ReservationConfig, error) {
	const q = `SELECT bar_id, opening_time, closing_time, slot_interval_minutes, min_party_size,
        max_party_size, advance_booking_days, advance_booking_hours, reservation_duration_minutes,
        is_active, timezone, weekday_hours
        FROM reservation_configs WHERE bar_id = ?`
	var row configRow
	err := r.db.GetContext(ctx, &row, q, barID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ReservationConfig{}, ErrNotFound
	}
	if err != nil {
		return model.ReservationConfig{}, err
	}
	cfg := model.ReservationConfig{
		BarID:                      row.BarID,
		OpeningTime:                row.OpeningTime,
		ClosingTime:                row.ClosingTime,
		SlotIntervalMinutes:        row.SlotIntervalMinutes,
		MinPartySize:               row.MinPartySize,
		MaxPartySize:               row.MaxPartySize,
		AdvanceBookingDays:         row.AdvanceBookingDays,
		AdvanceBookingHours:        row.AdvanceBookingHours,
		ReservationDurationMinutes: row.ReservationDurationMinutes,
		IsActive:                   row.IsActive,
		Timezone:                   row.Timezone,
	}
	if row.WeekdayHours.Valid && row.WeekdayHours.String != "" {
		if err := json.Unmarshal([]byte(row.WeekdayHours.String), &cfg.WeekdayHours); err != nil {
			return model.ReservationConfig{}, fmt.Errorf("decode weekday_hours for bar %s: %w", barID, err)
		}
	}
	return cfg, nil
}

// SaveReservationConfig inserts or replaces the settings of a bar.
func (r *ConfigRepo) SaveReservationConfig(ctx context.Context, cfg model.ReservationConfig) error {
	var weekday sql.NullString
	if len(cfg.WeekdayHours) > 0 {
		b, err := json.Marshal(cfg.WeekdayHours)
		if err != nil {
			return err
		}
		weekday = sql.NullString{String: string(b), Valid: true}
	}
	const q = `INSERT INTO reservation_configs (bar_id, opening_time, closing_time, slot_interval_minutes,
        min_party_size, max_party_size, advance_booking_days, advance_booking_hours,
        reservation_duration_minutes, is_active, timezone, weekday_hours)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON DUPLICATE KEY UPDATE opening_time = VALUES(opening_time), closing_time = VALUES(closing_time),
        slot_interval_minutes = VALUES(slot_interval_minutes), min_party_size = VALUES(min_party_size),
        max_party_size = VALUES(max_party_size), advance_booking_days = VALUES(advance_booking_days),
        advance_booking_hours = VALUES(advance_booking_hours),
        reservation_duration_minutes = VALUES(reservation_duration_minutes),
        is_active = VALUES(is_active), timezone = VALUES(timezone), weekday_hours = VALUES(weekday_hours)`
	_, err := r.db.ExecContext(ctx, q,
		cfg.BarID, cfg.OpeningTime, cfg.ClosingTime, cfg.SlotIntervalMinutes,
		cfg.MinPartySize, cfg.MaxPartySize, cfg.AdvanceBookingDays, cfg.AdvanceBookingHours,
		cfg.ReservationDurationMinutes, cfg.IsActive, cfg.Timezone, weekday,
	)
	return err
}
