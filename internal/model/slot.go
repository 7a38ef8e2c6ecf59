package model

import "time"

// TimeSlot is one point of the booking grid.  It is derived per query
// and never persisted or cached.
type TimeSlot struct {
	Time                 string    `json:"time"`
	StartAt              time.Time `json:"start_at"`
	Available            bool      `json:"available"`
	AvailableTablesCount int       `json:"available_tables_count"`
	TotalTablesCount     int       `json:"total_tables_count"`
}

// TableAvailability reports whether one suitable table is free for a
// requested window.  NextAvailableTime is set only for busy tables and
// holds the latest end of the reservations that block it.
type TableAvailability struct {
	TableID           string     `json:"table_id"`
	TableNumber       int        `json:"table_number"`
	Capacity          int        `json:"capacity"`
	IsAvailable       bool       `json:"is_available"`
	NextAvailableTime *time.Time `json:"next_available_time,omitempty"`
}
