package models

// Team is an entrant within an event division. Roster management lives with
// the external account system; the core only needs identity and division
// membership.
type Team struct {
	ID         int    `json:"id" db:"id"`
	EventID    int    `json:"event_id" db:"event_id"`
	DivisionID *int   `json:"division_id,omitempty" db:"division_id"`
	Name       string `json:"name" db:"name"`
	Seed       *int   `json:"seed,omitempty" db:"seed"`
}
