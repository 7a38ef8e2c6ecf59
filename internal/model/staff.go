package model

import "time"

// Roles carried in access tokens.
const (
	RoleStaff = "STAFF"
	RoleAdmin = "ADMIN"
)

// Staff is a bar employee account as stored in the `staff` table.
// PasswordHash is a bcrypt hash; the plain password is never stored.
// Staff tokens are scoped to BarID, admins may act on any bar.
type Staff struct {
	ID           string    `db:"id"`            // staff.id
	BarID        string    `db:"bar_id"`        // staff.bar_id
	Email        string    `db:"email"`         // staff.email
	PasswordHash string    `db:"password_hash"` // staff.password_hash
	Role         string    `db:"role"`          // staff.role
	IsActive     bool      `db:"is_active"`     // staff.is_active
	CreatedAt    time.Time `db:"created_at"`    // staff.created_at
	UpdatedAt    time.Time `db:"updated_at"`    // staff.updated_at
}
