package model

import (
	"encoding/json"
	"strings"
	"time"
)

// Status is the lifecycle state of a reservation.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
	StatusNoShow    Status = "no_show"
)

// ActiveStatuses are the only statuses that hold a table.
var ActiveStatuses = []Status{StatusPending, StatusConfirmed}

var knownStatuses = map[string]Status{
	"pending":   StatusPending,
	"confirmed": StatusConfirmed,
	"cancelled": StatusCancelled,
	"canceled":  StatusCancelled,
	"completed": StatusCompleted,
	"no_show":   StatusNoShow,
	"no-show":   StatusNoShow,
	"noshow":    StatusNoShow,
}

// ParseStatus normalizes user or legacy input into a Status.
func ParseStatus(s string) (Status, bool) {
	st, ok := knownStatuses[strings.ToLower(strings.TrimSpace(s))]
	return st, ok
}

// IsActive reports whether the status occupies a table.
func (s Status) IsActive() bool { return s == StatusPending || s == StatusConfirmed }

// transitions lists the regular (non administrative) moves.
var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCancelled, StatusCompleted, StatusNoShow},
}

// CanTransitionTo reports whether s may move to next through the
// regular lifecycle.  Reopening a closed reservation is not a regular
// move, see CanReopen.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// CanReopen reports whether s is a closed state that an administrator
// may move back to confirmed.
func (s Status) CanReopen() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusNoShow
}

// UnassignedTable is the table number sentinel for reservations that
// have no table yet.
const UnassignedTable = "unassigned"

// Reservation is the canonical booking record.  Legacy shapes are
// converted into it by the repository before any scheduling code sees
// them.  StartAt is always an instant; EndAt is derived.
//
// Fields:
//  ID                 – opaque identifier (UUID string).
//  BarID              – tenant that owns the reservation.
//  TableID            – assigned table (nil until assigned).
//  TableNumber        – denormalized table number or UnassignedTable.
//  StartAt            – start instant (UTC).
//  DurationMins       – booked length in minutes.
//  PartySize          – number of guests.
//  Status             – lifecycle state.
//  CancelledAt        – when the reservation was cancelled.
//  CancellationReason – optional free text.
//  ReminderSentAt     – when the reminder notification went out.
type Reservation struct {
	ID                 string     `json:"id"`
	BarID              string     `json:"bar_id"`
	TableID            *string    `json:"table_id,omitempty"`
	TableNumber        string     `json:"table_number"`
	StartAt            time.Time  `json:"start_at"`
	DurationMins       int        `json:"duration_mins"`
	PartySize          int        `json:"party_size"`
	Status             Status     `json:"status"`
	CustomerName       string     `json:"customer_name"`
	CustomerPhone      string     `json:"customer_phone"`
	CustomerEmail      *string    `json:"customer_email,omitempty"`
	Notes              *string    `json:"notes,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CancellationReason *string    `json:"cancellation_reason,omitempty"`
	ReminderSentAt     *time.Time `json:"reminder_sent_at,omitempty"`
}

// EndAt is StartAt plus the booked duration.
func (r Reservation) EndAt() time.Time {
	return r.StartAt.Add(time.Duration(r.DurationMins) * time.Minute)
}

// MarshalJSON adds the derived end_at to the encoded record.
func (r Reservation) MarshalJSON() ([]byte, error) {
	type plain Reservation
	return json.Marshal(struct {
		plain
		EndAt time.Time `json:"end_at"`
	}{plain: plain(r), EndAt: r.EndAt()})
}

// ReservationFilter narrows a reservation listing.  StartAfter is
// exclusive and StartUntil inclusive; zero times leave the bound open.
type ReservationFilter struct {
	Statuses        []Status
	StartAfter      time.Time
	StartUntil      time.Time
	ReminderPending bool
}

// Match reports whether r passes the filter.
func (f ReservationFilter) Match(r Reservation) bool {
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if r.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !f.StartAfter.IsZero() && !r.StartAt.After(f.StartAfter) {
		return false
	}
	if !f.StartUntil.IsZero() && r.StartAt.After(f.StartUntil) {
		return false
	}
	if f.ReminderPending && r.ReminderSentAt != nil {
		return false
	}
	return true
}

// ReservationUpdate is a partial update.  Nil fields are left as they
// are.  ExpectStatus, when set, is a precondition checked atomically by
// the store.
type ReservationUpdate struct {
	ExpectStatus       *Status
	Status             *Status
	TableID            *string
	TableNumber        *string
	CancelledAt        *time.Time
	CancellationReason *string
	ClearCancellation  bool
	ReminderSentAt     *time.Time
	UpdatedAt          time.Time
}

// Apply returns r with the update applied.
func (u ReservationUpdate) Apply(r Reservation) Reservation {
	if u.Status != nil {
		r.Status = *u.Status
	}
	if u.TableID != nil {
		id := *u.TableID
		r.TableID = &id
	}
	if u.TableNumber != nil {
		r.TableNumber = *u.TableNumber
	}
	if u.ClearCancellation {
		r.CancelledAt = nil
		r.CancellationReason = nil
	}
	if u.CancelledAt != nil {
		at := *u.CancelledAt
		r.CancelledAt = &at
	}
	if u.CancellationReason != nil {
		reason := *u.CancellationReason
		r.CancellationReason = &reason
	}
	if u.ReminderSentAt != nil {
		at := *u.ReminderSentAt
		r.ReminderSentAt = &at
	}
	if !u.UpdatedAt.IsZero() {
		r.UpdatedAt = u.UpdatedAt
	}
	return r
}

// NeedsOverlapCheck reports whether moving from before to after can
// introduce a double booking: the result holds a table and either the
// table changed or the record was not holding one before.
func NeedsOverlapCheck(before, after Reservation) bool {
	if !after.Status.IsActive() {
		return false
	}
	if !before.Status.IsActive() {
		return true
	}
	if before.TableNumber != after.TableNumber {
		return true
	}
	switch {
	case before.TableID == nil && after.TableID == nil:
		return false
	case before.TableID == nil || after.TableID == nil:
		return true
	default:
		return *before.TableID != *after.TableID
	}
}
