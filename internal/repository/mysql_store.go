package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// MySQLStore bundles the MySQL repositories into the single storage
// collaborator the scheduling service consumes.
type MySQLStore struct {
	*TableRepo
	*ReservationRepo
	*ConfigRepo
	db *sqlx.DB
}

// NewMySQLStore wires all repositories to one connection pool.
func NewMySQLStore(db *sqlx.DB) *MySQLStore {
	return &MySQLStore{
		TableRepo:       NewTableRepo(db),
		ReservationRepo: NewReservationRepo(db),
		ConfigRepo:      NewConfigRepo(db),
		db:              db,
	}
}

// Ping verifies the database answers.  The fallback backend uses it as
// its probe.
func (s *MySQLStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }
