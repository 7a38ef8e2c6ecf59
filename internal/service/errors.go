package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/iliyamo/bar-table-reservation/internal/repository"
)

// Errors returned by the scheduling service.  Handlers translate them
// with errors.Is; the wrapping below keeps the hierarchy intact, so a
// caller that only knows ErrNoAvailability still matches
// ErrPartyTooLarge.
var (
	ErrNoAvailability       = errors.New("no table available for the requested time")
	ErrPartyTooLarge        = fmt.Errorf("%w: party is larger than any table", ErrNoAvailability)
	ErrTableConflict        = errors.New("table is already booked for that window")
	ErrInvalidRequest       = errors.New("invalid request")
	ErrReservationsDisabled = fmt.Errorf("%w: reservations are disabled for this bar", ErrInvalidRequest)
	ErrNotFound             = errors.New("not found")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrStorage              = errors.New("storage failure")
)

// StorageError reports a failed storage call.  It matches ErrStorage and
// unwraps to the collaborator's error.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err) }

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

func invalidf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// storeErr maps a storage error onto the service taxonomy.  Missing
// rows become ErrNotFound; everything else is a StorageError.
func storeErr(op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, op)
	}
	return &StorageError{Op: op, Err: err}
}

// isCancelled reports whether err stems from the caller giving up.
func isCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
