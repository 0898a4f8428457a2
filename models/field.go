package models

import "time"

// Field is a physical playing surface owned by an organization. Matches and
// rentals both occupy fields through the same busy-block bookkeeping.
type Field struct {
	ID             int     `json:"id" db:"id"`
	OrganizationID int     `json:"organization_id" db:"organization_id"`
	Number         int     `json:"number" db:"number"`
	Name           string  `json:"name" db:"name"`
	PhotoKey       *string `json:"-" db:"photo_key"`
	PhotoURL       *string `json:"photo_url,omitempty" db:"-"`

	TimeSlots []TimeSlot `json:"time_slots,omitempty" db:"-"`
}

// TimeSlot is one availability window of a field. A repeating slot carries a
// weekday (0=Sunday) and optionally a bound after which it stops applying;
// a one-off slot carries a concrete date instead. Start/End are minute
// offsets within a day.
type TimeSlot struct {
	ID         int        `json:"id" db:"id"`
	FieldID    int        `json:"field_id" db:"field_id"`
	Weekday    *int       `json:"weekday,omitempty" db:"weekday"`
	Date       *time.Time `json:"date,omitempty" db:"date"`
	Until      *time.Time `json:"until,omitempty" db:"until"`
	StartMin   int        `json:"start_min" db:"start_min"`
	EndMin     int        `json:"end_min" db:"end_min"`
	PriceCents int        `json:"price_cents" db:"price_cents"`
}

// AppliesTo reports whether the slot is open on the given calendar date.
func (s TimeSlot) AppliesTo(date time.Time) bool {
	day := date.Truncate(24 * time.Hour)
	if s.Date != nil {
		return s.Date.Truncate(24 * time.Hour).Equal(day)
	}
	if s.Weekday == nil {
		return false
	}
	if int(day.Weekday()) != *s.Weekday {
		return false
	}
	if s.Until != nil && day.After(s.Until.Truncate(24*time.Hour)) {
		return false
	}
	return true
}
