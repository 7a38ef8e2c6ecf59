// Package repository implements the storage collaborator used by the
// scheduling service: MySQL repositories for production and an
// in-memory store for development, tests and the fallback backend.
//
// The sentinel values below let the service layer tell storage
// outcomes apart without inspecting driver errors.  ErrConflict is the
// write-time double booking guard: a conditional insert or update found
// an overlapping active reservation on the same table.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the addressed row does not exist within
// the given bar.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a reservation write would overlap an
// active reservation on the same table.
var ErrConflict = errors.New("conflict")

// ErrStale is returned when an update's expected status no longer
// matches the stored record.
var ErrStale = errors.New("stale record")

// ErrDuplicate is returned when a unique key (table number per bar,
// staff email) is already taken.
var ErrDuplicate = errors.New("duplicate")

// isDuplicateKey reports whether err is MySQL error 1062.
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

// isLockConflict reports whether err is a MySQL deadlock (1213) or lock
// wait timeout (1205).
func isLockConflict(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && (me.Number == 1213 || me.Number == 1205)
}

// lockConflict turns a lost lock race into ErrConflict so callers retry
// it like any other write conflict.
func lockConflict(err error) error {
	if isLockConflict(err) {
		return ErrConflict
	}
	return err
}
