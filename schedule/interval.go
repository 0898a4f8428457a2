// Package schedule holds the interval primitives and the field/time conflict
// resolver shared by match scheduling and facility rentals. Everything here
// is a pure computation over an explicitly passed snapshot.
package schedule

import (
	"sort"
	"time"

	"github.com/matchgrid/matchgrid/models"
)

// Interval is a half-open [StartMin, EndMin) window on a field for one
// calendar date. Minutes are offsets from the date's midnight.
type Interval struct {
	FieldID  int
	Date     time.Time
	StartMin int
	EndMin   int
}

// Valid reports whether the window has positive length.
func (iv Interval) Valid() bool {
	return iv.EndMin > iv.StartMin
}

// Overlaps uses the half-open rule: [10,20) and [20,30) do not conflict.
func (iv Interval) Overlaps(other Interval) bool {
	if iv.FieldID != other.FieldID || !sameDay(iv.Date, other.Date) {
		return false
	}
	return iv.StartMin < other.EndMin && other.StartMin < iv.EndMin
}

// Start returns the absolute instant of the interval's left edge.
func (iv Interval) Start() time.Time {
	return iv.Date.Truncate(24 * time.Hour).Add(time.Duration(iv.StartMin) * time.Minute)
}

// End returns the absolute instant of the interval's right edge.
func (iv Interval) End() time.Time {
	return iv.Date.Truncate(24 * time.Hour).Add(time.Duration(iv.EndMin) * time.Minute)
}

// OverlapsBlock compares the interval's implied instants against a committed
// busy block, half-open on both sides.
func (iv Interval) OverlapsBlock(b models.BusyBlock) bool {
	if iv.FieldID != b.FieldID {
		return false
	}
	return iv.Start().Before(b.End) && b.Start.Before(iv.End())
}

// window is a merged availability span in minutes.
type window struct {
	start, end int
}

// windowsFor merges the field's time slots applicable to date into a sorted,
// non-overlapping set of minute windows.
func windowsFor(slots []models.TimeSlot, fieldID int, date time.Time) []window {
	var ws []window
	for _, s := range slots {
		if s.FieldID != fieldID || !s.AppliesTo(date) {
			continue
		}
		if s.EndMin <= s.StartMin {
			continue
		}
		ws = append(ws, window{start: s.StartMin, end: s.EndMin})
	}
	if len(ws) == 0 {
		return nil
	}
	sort.Slice(ws, func(i, j int) bool { return ws[i].start < ws[j].start })
	merged := ws[:1]
	for _, w := range ws[1:] {
		last := &merged[len(merged)-1]
		if w.start <= last.end {
			if w.end > last.end {
				last.end = w.end
			}
			continue
		}
		merged = append(merged, w)
	}
	return merged
}

// covered reports whether [startMin, endMin) fits entirely inside one merged
// window. Partial coverage is a rejection, never a clip.
func covered(ws []window, startMin, endMin int) bool {
	for _, w := range ws {
		if startMin >= w.start && endMin <= w.end {
			return true
		}
	}
	return false
}

func sameDay(a, b time.Time) bool {
	return a.Truncate(24 * time.Hour).Equal(b.Truncate(24 * time.Hour))
}
