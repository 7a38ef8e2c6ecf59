package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/bar-table-reservation/internal/model"
)

// StaffRepo persists staff accounts used to sign in to the admin API.
type StaffRepo struct{ db *sqlx.DB }

func NewStaffRepo(db *sqlx.DB) *StaffRepo { return &StaffRepo{db: db} }

// CreateStaff inserts s with a normalized email.  The password must
// already be hashed.
func (r *StaffRepo) CreateStaff(ctx context.Context, s *model.Staff) error {
	s.Email = strings.ToLower(strings.TrimSpace(s.Email))
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO staff (id, bar_id, email, password_hash, role, is_active) VALUES (?,?,?,?,?,?)",
		s.ID, s.BarID, s.Email, s.PasswordHash, s.Role, s.IsActive)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetStaffByEmail fetches an account by normalized email.
func (r *StaffRepo) GetStaffByEmail(ctx context.Context, email string) (model.Staff, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var s model.Staff
	err := r.db.GetContext(ctx, &s,
		"SELECT id, bar_id, email, password_hash, role, is_active, created_at, updated_at FROM staff WHERE email=? LIMIT 1",
		email)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Staff{}, ErrNotFound
	}
	return s, err
}
