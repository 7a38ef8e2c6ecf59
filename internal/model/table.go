package model

import (
	"strconv"
	"time"
)

// Table represents a seatable unit inside a bar.  Tables are owned by
// the bar (tenant) and are never hard deleted while reservations
// reference them; staff deactivate them instead.
//
// Fields:
//  ID         – opaque identifier (UUID string).
//  BarID      – tenant that owns the table.
//  Number     – human facing number, unique within a bar.
//  Capacity   – number of guests the table seats.
//  IsActive   – false removes the table from scheduling entirely.
//  IsOccupied – manual walk-in override; an occupied table is never
//               offered regardless of reservations.
//  CreatedAt  – creation timestamp.
//  UpdatedAt  – last update timestamp.
type Table struct {
	ID         string    `json:"id" db:"id"`                   // bar_tables.id
	BarID      string    `json:"bar_id" db:"bar_id"`           // bar_tables.bar_id
	Number     int       `json:"number" db:"number"`           // bar_tables.number
	Capacity   int       `json:"capacity" db:"capacity"`       // bar_tables.capacity
	IsActive   bool      `json:"is_active" db:"is_active"`     // bar_tables.is_active
	IsOccupied bool      `json:"is_occupied" db:"is_occupied"` // bar_tables.is_occupied
	CreatedAt  time.Time `json:"created_at" db:"created_at"`   // bar_tables.created_at
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`   // bar_tables.updated_at
}

// NumberLabel is the denormalized form stored on reservations.
func (t Table) NumberLabel() string { return strconv.Itoa(t.Number) }

// TableFilter narrows a table listing.  Zero values disable a predicate.
type TableFilter struct {
	ActiveOnly      bool
	ExcludeOccupied bool
	MinCapacity     int
}

// Suitable returns the filter used for scheduling a party: active,
// not occupied and large enough.
func Suitable(partySize int) TableFilter {
	return TableFilter{ActiveOnly: true, ExcludeOccupied: true, MinCapacity: partySize}
}

// Match reports whether t passes every enabled predicate.
func (f TableFilter) Match(t Table) bool {
	if f.ActiveOnly && !t.IsActive {
		return false
	}
	if f.ExcludeOccupied && t.IsOccupied {
		return false
	}
	return t.Capacity >= f.MinCapacity
}
