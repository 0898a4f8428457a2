package models

import (
	"time"

	"github.com/lib/pq"
)

// Division groups an event's teams by skill/age/gender label. League-style
// divisions own a standings table; a tournament division may be seeded from
// a confirmed upstream standings order.
type Division struct {
	ID      int    `json:"id" db:"id"`
	EventID int    `json:"event_id" db:"event_id"`
	Name    string `json:"name" db:"name"`

	ProfileID int `json:"profile_id" db:"profile_id"`

	PlayoffTeamCount            *int          `json:"playoff_team_count,omitempty" db:"playoff_team_count"`
	PlayoffPlacementDivisionIDs pq.Int64Array `json:"playoff_placement_division_ids" db:"playoff_placement_division_ids"`

	StandingsConfirmedAt *time.Time `json:"standings_confirmed_at,omitempty" db:"standings_confirmed_at"`
	StandingsConfirmedBy *int       `json:"standings_confirmed_by,omitempty" db:"standings_confirmed_by"`
}

// StandingsOverride is an explicit admin points adjustment for one team.
type StandingsOverride struct {
	DivisionID  int `json:"division_id" db:"division_id"`
	TeamID      int `json:"team_id" db:"team_id"`
	PointsDelta int `json:"points_delta" db:"points_delta"`
}
