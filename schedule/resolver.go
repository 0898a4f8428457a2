package schedule

import (
	"errors"
	"fmt"

	"github.com/matchgrid/matchgrid/models"
)

var (
	ErrInvalidInterval     = errors.New("interval end must be after start")
	ErrBusyOverlap         = errors.New("interval overlaps a committed booking")
	ErrCandidateOverlap    = errors.New("interval overlaps another pending selection")
	ErrOutsideAvailability = errors.New("interval is not covered by the field's available windows")
)

// Snapshot is the consistent read the caller assembled before invoking the
// resolver: everything currently occupying or reserving the field.
type Snapshot struct {
	Slots      []models.TimeSlot
	Busy       []models.BusyBlock
	Candidates []models.BookingCandidate
}

// Check admits or rejects a candidate interval. excludeCandidateID lets a
// move/resize re-run the full check without colliding with the candidate's
// own previous position; pass "" for a fresh candidate.
func Check(iv Interval, snap Snapshot, excludeCandidateID string) error {
	if !iv.Valid() {
		return fmt.Errorf("%w: [%d,%d)", ErrInvalidInterval, iv.StartMin, iv.EndMin)
	}

	for _, b := range snap.Busy {
		if iv.OverlapsBlock(b) {
			return fmt.Errorf("%w: field %d is occupied by %s %s", ErrBusyOverlap, iv.FieldID, b.Kind, b.SourceID)
		}
	}

	for _, c := range snap.Candidates {
		if c.ID == excludeCandidateID {
			continue
		}
		other := Interval{FieldID: c.FieldID, Date: c.Date, StartMin: c.StartMin, EndMin: c.EndMin}
		if iv.Overlaps(other) {
			return fmt.Errorf("%w: selection %s holds [%d,%d)", ErrCandidateOverlap, c.ID, c.StartMin, c.EndMin)
		}
	}

	ws := windowsFor(snap.Slots, iv.FieldID, iv.Date)
	if !covered(ws, iv.StartMin, iv.EndMin) {
		return fmt.Errorf("%w: field %d on %s for [%d,%d)",
			ErrOutsideAvailability, iv.FieldID, iv.Date.Format("2006-01-02"), iv.StartMin, iv.EndMin)
	}
	return nil
}

// CheckBlock validates an absolute-instant occupation (a match being placed
// on a field) against the committed blocks only. Matches are scheduled by
// organizers and may sit outside rental windows, but they must never overlap
// another occupation of the field.
func CheckBlock(candidate models.BusyBlock, busy []models.BusyBlock) error {
	if !candidate.End.After(candidate.Start) {
		return fmt.Errorf("%w: %s..%s", ErrInvalidInterval,
			candidate.Start.Format("15:04"), candidate.End.Format("15:04"))
	}
	for _, b := range busy {
		if b.SourceID == candidate.SourceID && b.Kind == candidate.Kind {
			continue // rescheduling the same occupation
		}
		if b.FieldID != candidate.FieldID {
			continue
		}
		if candidate.Start.Before(b.End) && b.Start.Before(candidate.End) {
			return fmt.Errorf("%w: field %d is occupied by %s %s", ErrBusyOverlap, candidate.FieldID, b.Kind, b.SourceID)
		}
	}
	return nil
}
