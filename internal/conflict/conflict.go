// Package conflict decides whether reservations collide.  It has no
// dependencies beyond the model and no side effects, so the service and
// every store implementation share the same definition of a double
// booking.
package conflict

import (
	"time"

	"github.com/iliyamo/bar-table-reservation/internal/model"
)

// Overlaps reports whether the half-open windows [candStart, candEnd)
// and [existStart, existEnd) intersect.  Back to back windows do not.
func Overlaps(candStart, candEnd, existStart, existEnd time.Time) bool {
	return candStart.Before(existEnd) && candEnd.After(existStart)
}

// Blocks reports whether r takes part in conflict checks at all.
// Cancelled, completed and no-show reservations never block.
func Blocks(r model.Reservation) bool { return r.Status.IsActive() }

// BoundTo reports whether r is held on the table.  Records without a
// table ID fall back to the denormalized table number.
func BoundTo(r model.Reservation, t model.Table) bool {
	if r.TableID != nil && *r.TableID != "" {
		return *r.TableID == t.ID
	}
	return r.TableNumber != "" && r.TableNumber != model.UnassignedTable && r.TableNumber == t.NumberLabel()
}

// Find returns the blocking reservations on table t that overlap
// [start, end).  The reservation with ID excludeID is skipped, which lets
// an update check a record against everything but itself.
func Find(reservations []model.Reservation, t model.Table, start, end time.Time, excludeID string) []model.Reservation {
	var hits []model.Reservation
	for _, r := range reservations {
		if excludeID != "" && r.ID == excludeID {
			continue
		}
		if !Blocks(r) || !BoundTo(r, t) {
			continue
		}
		if Overlaps(start, end, r.StartAt, r.EndAt()) {
			hits = append(hits, r)
		}
	}
	return hits
}

// LatestEnd returns the latest end among rs, the earliest moment all of
// them have released the table.  ok is false for an empty slice.
func LatestEnd(rs []model.Reservation) (time.Time, bool) {
	var latest time.Time
	for _, r := range rs {
		if end := r.EndAt(); end.After(latest) {
			latest = end
		}
	}
	return latest, len(rs) > 0
}
