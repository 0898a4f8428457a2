package models

import "time"

// BookingCandidate is an uncommitted rental selection a user is still
// building. It reserves nothing; it only participates in the conflict check
// so two draft selections cannot overlap before either commits.
type BookingCandidate struct {
	ID        string    `json:"id" db:"id"` // caller correlation id
	UserID    int       `json:"user_id" db:"user_id"`
	FieldID   int       `json:"field_id" db:"field_id"`
	Date      time.Time `json:"date" db:"date"`
	StartMin  int       `json:"start_min" db:"start_min"`
	EndMin    int       `json:"end_min" db:"end_min"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type BusyBlockKind string

const (
	BusyMatch  BusyBlockKind = "match"
	BusyRental BusyBlockKind = "rental"
)

// BusyBlock is a committed occupation of a field: either a scheduled match
// or a confirmed rental. Blocks on the same field never overlap.
type BusyBlock struct {
	SourceID string        `json:"source_id" db:"source_id"`
	Kind     BusyBlockKind `json:"kind" db:"kind"`
	FieldID  int           `json:"field_id" db:"field_id"`
	Start    time.Time     `json:"start" db:"start_at"`
	End      time.Time     `json:"end" db:"end_at"`
}

type RentalStatus string

const (
	RentalConfirmed RentalStatus = "confirmed"
	RentalCanceled  RentalStatus = "canceled"
)

type Rental struct {
	ID         string       `json:"id" db:"id"`
	UserID     int          `json:"user_id" db:"user_id"`
	FieldID    int          `json:"field_id" db:"field_id"`
	Date       time.Time    `json:"date" db:"date"`
	StartMin   int          `json:"start_min" db:"start_min"`
	EndMin     int          `json:"end_min" db:"end_min"`
	PriceCents int          `json:"price_cents" db:"price_cents"`
	Status     RentalStatus `json:"status" db:"status"`
	CreatedAt  time.Time    `json:"created_at" db:"created_at"`
}

// Block converts a confirmed rental into its busy-block form.
func (r Rental) Block() BusyBlock {
	day := r.Date.Truncate(24 * time.Hour)
	return BusyBlock{
		SourceID: r.ID,
		Kind:     BusyRental,
		FieldID:  r.FieldID,
		Start:    day.Add(time.Duration(r.StartMin) * time.Minute),
		End:      day.Add(time.Duration(r.EndMin) * time.Minute),
	}
}
