package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/bar-table-reservation/internal/model"
)

// TableRepo provides access to the bar_tables table.  Tables are never
// hard deleted; staff deactivate them through UpdateTable.
type TableRepo struct {
	db *sqlx.DB
}

// NewTableRepo returns a new TableRepo bound to the given database.
func NewTableRepo(db *sqlx.DB) *TableRepo { return &TableRepo{db: db} }

const selectTable = `SELECT id, bar_id, number, capacity, is_active, is_occupied, created_at, updated_at FROM bar_tables`

// ListTables returns the tables of a bar that pass f, ordered by number.
// is_occupied is read on every call; callers must not cache the result
// for scheduling.
func (r *TableRepo) ListTables(ctx context.Context, barID string, f model.TableFilter) ([]model.Table, error) {
	q := selectTable + " WHERE bar_id = ?"
	args := []interface{}{barID}
	if f.ActiveOnly {
		q += " AND is_active = 1"
	}
	if f.ExcludeOccupied {
		q += " AND is_occupied = 0"
	}
	if f.MinCapacity > 0 {
		q += " AND capacity >= ?"
		args = append(args, f.MinCapacity)
	}
	q += " ORDER BY number"
	tables := []model.Table{}
	if err := r.db.SelectContext(ctx, &tables, q, args...); err != nil {
		return nil, err
	}
	return tables, nil
}

// GetTable returns a single table of a bar.
func (r *TableRepo) GetTable(ctx context.Context, barID, id string) (model.Table, error) {
	var t model.Table
	err := r.db.GetContext(ctx, &t, selectTable+" WHERE id = ? AND bar_id = ?", id, barID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Table{}, ErrNotFound
	}
	return t, err
}

// CreateTable inserts t and reloads it to pick up column defaults.  A
// number already used in the bar yields ErrDuplicate.
func (r *TableRepo) CreateTable(ctx context.Context, t *model.Table) error {
	const q = `INSERT INTO bar_tables (id, bar_id, number, capacity, is_active, is_occupied) VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, q, t.ID, t.BarID, t.Number, t.Capacity, t.IsActive, t.IsOccupied); err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicate
		}
		return err
	}
	return r.db.GetContext(ctx, t, selectTable+" WHERE id = ?", t.ID)
}

// UpdateTable overwrites the mutable columns of an existing table.
func (r *TableRepo) UpdateTable(ctx context.Context, t model.Table) error {
	const q = `UPDATE bar_tables SET number = ?, capacity = ?, is_active = ?, is_occupied = ? WHERE id = ? AND bar_id = ?`
	if _, err := r.db.ExecContext(ctx, q, t.Number, t.Capacity, t.IsActive, t.IsOccupied, t.ID, t.BarID); err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}
