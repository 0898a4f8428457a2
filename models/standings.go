package models

import "time"

// StandingsRow is one team's computed ranking entry. Rows are recomputed
// from scratch on every read; nothing here is patched incrementally.
type StandingsRow struct {
	Position       int    `json:"position"`
	TeamID         int    `json:"teamId"`
	TeamName       string `json:"teamName"`
	Wins           int    `json:"wins"`
	Losses         int    `json:"losses"`
	Draws          int    `json:"draws"`
	GoalsFor       int    `json:"goalsFor"`
	GoalsAgainst   int    `json:"goalsAgainst"`
	GoalDifference int    `json:"goalDifference"`
	MatchesPlayed  int    `json:"matchesPlayed"`
	BasePoints     int    `json:"basePoints"`
	FinalPoints    int    `json:"finalPoints"`
	PointsDelta    int    `json:"pointsDelta"`
}

// StandingsValidation carries the non-fatal problems of a standings read:
// teams that could not be mapped to playoff slots and capacity mismatches.
type StandingsValidation struct {
	MappingErrors  []string `json:"mappingErrors"`
	CapacityErrors []string `json:"capacityErrors"`
}

// DivisionStandings is the read-path wire object for one division's table.
type DivisionStandings struct {
	DivisionID                  int                 `json:"divisionId"`
	DivisionName                string              `json:"divisionName"`
	StandingsConfirmedAt        *time.Time          `json:"standingsConfirmedAt,omitempty"`
	StandingsConfirmedBy        *int                `json:"standingsConfirmedBy,omitempty"`
	PlayoffTeamCount            *int                `json:"playoffTeamCount,omitempty"`
	PlayoffPlacementDivisionIDs []int               `json:"playoffPlacementDivisionIds"`
	StandingsOverrides          map[int]int         `json:"standingsOverrides,omitempty"`
	Standings                   []StandingsRow      `json:"standings"`
	Validation                  StandingsValidation `json:"validation"`
	PlayoffDivisions            []Division          `json:"playoffDivisions"`
}
