package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/bar-table-reservation/internal/model"
)

// ReservationRepo provides reads and conditional writes for
// reservations.  Writes that can make a reservation hold a table run in
// a READ COMMITTED transaction that locks the table row and re-checks
// for overlapping active reservations before committing, so two
// concurrent bookings for the same table and window cannot both
// succeed.  The table row lock is the only lock taken, which keeps
// bookings on different tables of a bar from blocking each other.  All
// timestamps are stored in UTC.
type ReservationRepo struct {
	db *sqlx.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sqlx.DB) *ReservationRepo { return &ReservationRepo{db: db} }

const selectReservation = `SELECT r.id, r.bar_id, r.table_id, r.table_number, r.starts_at,
       r.legacy_date, r.legacy_time, r.duration_mins, r.party_size, r.status,
       r.customer_name, r.customer_phone, r.customer_email, r.notes,
       r.cancelled_at, r.cancellation_reason, r.reminder_sent_at,
       r.created_at, r.updated_at, c.timezone
FROM reservations r
LEFT JOIN reservation_configs c ON c.bar_id = r.bar_id`

// ListReservations returns the reservations of a bar matching f ordered
// by start.  An empty barID lists across all bars, which the reminder
// sweep uses.
func (r *ReservationRepo) ListReservations(ctx context.Context, barID string, f model.ReservationFilter) ([]model.Reservation, error) {
	q := selectReservation + " WHERE 1=1"
	args := []interface{}{}
	if barID != "" {
		q += " AND r.bar_id = ?"
		args = append(args, barID)
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, 0, len(f.Statuses))
		for _, s := range f.Statuses {
			statuses = append(statuses, string(s))
		}
		q += " AND r.status IN (?)"
		args = append(args, statuses)
	}
	if !f.StartAfter.IsZero() {
		q += " AND r.starts_at > ?"
		args = append(args, f.StartAfter.UTC())
	}
	if !f.StartUntil.IsZero() {
		q += " AND r.starts_at <= ?"
		args = append(args, f.StartUntil.UTC())
	}
	if f.ReminderPending {
		q += " AND r.reminder_sent_at IS NULL"
	}
	q += " ORDER BY r.starts_at, r.id"

	q, args, err := sqlx.In(q, args...)
	if err != nil {
		return nil, err
	}
	var rows []reservationRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(q), args...); err != nil {
		return nil, err
	}
	out := make([]model.Reservation, 0, len(rows))
	for _, row := range rows {
		res, err := row.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

// GetReservation loads a single reservation of a bar.
func (r *ReservationRepo) GetReservation(ctx context.Context, barID, id string) (model.Reservation, error) {
	var row reservationRow
	err := r.db.GetContext(ctx, &row, selectReservation+" WHERE r.id = ? AND r.bar_id = ?", id, barID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Reservation{}, ErrNotFound
	}
	if err != nil {
		return model.Reservation{}, err
	}
	return row.toModel()
}

// CreateReservation inserts res.  When the reservation is bound to a
// table the table row is locked and the insert only happens if no
// active reservation on that table overlaps [StartAt, EndAt); otherwise
// ErrConflict is returned and nothing is written.  A missing table
// yields ErrNotFound.  A table that is inactive or occupied by the time
// its row is locked is reported as ErrConflict.
func (r *ReservationRepo) CreateReservation(ctx context.Context, res *model.Reservation) (err error) {
	defer func() { err = lockConflict(err) }()
	tx, err := r.db.BeginTxx(ctx, writeTxOptions)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if res.Status.IsActive() {
		table, bound, err := lockTableTx(ctx, tx, res.BarID, *res)
		if err != nil {
			return err
		}
		if bound {
			if !table.IsActive || table.IsOccupied {
				return ErrConflict
			}
			clash, err := overlappingTx(ctx, tx, table, res.StartAt, res.EndAt(), res.ID)
			if err != nil {
				return err
			}
			if clash {
				return ErrConflict
			}
		}
	}

	const ins = `INSERT INTO reservations (id, bar_id, table_id, table_number, starts_at, ends_at,
        duration_mins, party_size, status, customer_name, customer_phone, customer_email, notes,
        created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, ins,
		res.ID, res.BarID, toNullString(res.TableID), res.TableNumber, res.StartAt.UTC(), res.EndAt().UTC(),
		res.DurationMins, res.PartySize, string(res.Status), res.CustomerName, res.CustomerPhone,
		toNullString(res.CustomerEmail), toNullString(res.Notes), res.CreatedAt.UTC(), res.UpdatedAt.UTC(),
	); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// UpdateReservation applies u to the reservation inside a transaction.
// The row is locked first; an ExpectStatus mismatch yields ErrStale.
// When the result holds a table it did not hold before, the overlap
// check of CreateReservation is repeated with the record itself
// excluded.
func (r *ReservationRepo) UpdateReservation(ctx context.Context, barID, id string, u model.ReservationUpdate) (_ model.Reservation, err error) {
	defer func() { err = lockConflict(err) }()
	tx, err := r.db.BeginTxx(ctx, writeTxOptions)
	if err != nil {
		return model.Reservation{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var row reservationRow
	err = tx.GetContext(ctx, &row, selectReservation+" WHERE r.id = ? AND r.bar_id = ? FOR UPDATE", id, barID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Reservation{}, ErrNotFound
	}
	if err != nil {
		return model.Reservation{}, err
	}
	before, err := row.toModel()
	if err != nil {
		return model.Reservation{}, err
	}
	if u.ExpectStatus != nil && before.Status != *u.ExpectStatus {
		return model.Reservation{}, ErrStale
	}
	after := u.Apply(before)

	if model.NeedsOverlapCheck(before, after) {
		table, bound, err := lockTableTx(ctx, tx, barID, after)
		if err != nil {
			return model.Reservation{}, err
		}
		if bound {
			clash, err := overlappingTx(ctx, tx, table, after.StartAt, after.EndAt(), after.ID)
			if err != nil {
				return model.Reservation{}, err
			}
			if clash {
				return model.Reservation{}, ErrConflict
			}
		}
	}

	// starts_at and ends_at are rewritten so legacy rows become canonical
	// the first time they are touched.
	const upd = `UPDATE reservations SET table_id = ?, table_number = ?, starts_at = ?, ends_at = ?,
        status = ?, cancelled_at = ?, cancellation_reason = ?, reminder_sent_at = ?, updated_at = ?
        WHERE id = ? AND bar_id = ?`
	if _, err := tx.ExecContext(ctx, upd,
		toNullString(after.TableID), after.TableNumber, after.StartAt.UTC(), after.EndAt().UTC(),
		string(after.Status), toNullTime(after.CancelledAt), toNullString(after.CancellationReason),
		toNullTime(after.ReminderSentAt), after.UpdatedAt.UTC(), id, barID,
	); err != nil {
		return model.Reservation{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Reservation{}, err
	}
	committed = true
	return after, nil
}

// DeleteReservation removes one reservation.  It bypasses the
// lifecycle and is reserved for administrative deletes.
func (r *ReservationRepo) DeleteReservation(ctx context.Context, barID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reservations WHERE id = ? AND bar_id = ?`, id, barID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// PurgeReservationsBefore deletes every reservation of the bar starting
// before cutoff and returns how many rows were removed.
func (r *ReservationRepo) PurgeReservationsBefore(ctx context.Context, barID string, cutoff time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reservations WHERE bar_id = ? AND starts_at < ?`, barID, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// BackfillLegacy rewrites rows that only carry legacy date/time columns
// into canonical starts_at/ends_at so SQL overlap checks and purges see
// them.  It returns the number of converted rows.
func (r *ReservationRepo) BackfillLegacy(ctx context.Context) (int, error) {
	var rows []reservationRow
	q := selectReservation + " WHERE r.starts_at IS NULL AND r.legacy_date IS NOT NULL AND r.legacy_time IS NOT NULL"
	if err := r.db.SelectContext(ctx, &rows, q); err != nil {
		return 0, err
	}
	converted := 0
	for _, row := range rows {
		res, err := row.toModel()
		if err != nil {
			return converted, err
		}
		const upd = `UPDATE reservations SET starts_at = ?, ends_at = ? WHERE id = ? AND starts_at IS NULL`
		if _, err := r.db.ExecContext(ctx, upd, res.StartAt, res.EndAt(), res.ID); err != nil {
			return converted, err
		}
		converted++
	}
	return converted, nil
}

var writeTxOptions = &sql.TxOptions{Isolation: sql.LevelReadCommitted}

// lockTableTx locks the table res is bound to.  bound is false for
// unassigned reservations.  Binding is by table ID, or by number for
// legacy records.
func lockTableTx(ctx context.Context, tx *sqlx.Tx, barID string, res model.Reservation) (model.Table, bool, error) {
	var (
		table model.Table
		err   error
	)
	switch {
	case res.TableID != nil && *res.TableID != "":
		err = tx.GetContext(ctx, &table, selectTable+" WHERE id = ? AND bar_id = ? FOR UPDATE", *res.TableID, barID)
	case res.TableNumber != "" && res.TableNumber != model.UnassignedTable:
		err = tx.GetContext(ctx, &table, selectTable+" WHERE number = ? AND bar_id = ? FOR UPDATE", res.TableNumber, barID)
	default:
		return model.Table{}, false, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return model.Table{}, false, ErrNotFound
	}
	if err != nil {
		return model.Table{}, false, err
	}
	return table, true, nil
}

// overlappingTx reports whether an active reservation other than
// excludeID overlaps [start, end) on table.  It runs after the table
// row is locked; under READ COMMITTED a plain read already sees every
// row committed by earlier holders of that lock.
func overlappingTx(ctx context.Context, tx *sqlx.Tx, table model.Table, start, end time.Time, excludeID string) (bool, error) {
	const q = `SELECT id FROM reservations
        WHERE bar_id = ? AND id <> ?
          AND (table_id = ? OR (table_id IS NULL AND table_number = ?))
          AND status IN ('pending', 'confirmed')
          AND starts_at < ? AND ends_at > ?`
	var ids []string
	if err := tx.SelectContext(ctx, &ids, q, table.BarID, excludeID, table.ID, table.NumberLabel(), end.UTC(), start.UTC()); err != nil {
		return false, err
	}
	return len(ids) > 0, nil
}
