package models

import (
	"time"

	"github.com/lib/pq"
)

type MatchStatus string

const (
	MatchUnscheduled MatchStatus = "unscheduled"
	MatchScheduled   MatchStatus = "scheduled"
	MatchInProgress  MatchStatus = "in_progress"
	MatchFinalized   MatchStatus = "finalized"
)

// BracketSide tags a match's position relative to the double-elimination split.
type BracketSide string

const (
	SideWinners BracketSide = "winners"
	SideLosers  BracketSide = "losers"
)

// Match is one node of an event's bracket graph. The winner/loser next
// pointers and the two previous pointers form a DAG; previous slots fed by an
// upstream match keep their team ids nil until that match is finalized.
// Field names on the wire follow the public match record contract.
type Match struct {
	ID         string `json:"id" db:"id"`
	EventID    int    `json:"eventId" db:"event_id"`
	MatchID    int    `json:"matchId" db:"match_id"`
	DivisionID *int   `json:"division,omitempty" db:"division_id"`

	Team1ID   *int `json:"team1Id,omitempty" db:"team1_id"`
	Team2ID   *int `json:"team2Id,omitempty" db:"team2_id"`
	Team1Seed *int `json:"team1Seed,omitempty" db:"team1_seed"`
	Team2Seed *int `json:"team2Seed,omitempty" db:"team2_seed"`

	Team1Points pq.Int64Array  `json:"team1Points" db:"team1_points"`
	Team2Points pq.Int64Array  `json:"team2Points" db:"team2_points"`
	SetResults  pq.StringArray `json:"setResults" db:"set_results"`
	Locked      bool           `json:"locked" db:"locked"`

	Side              *BracketSide `json:"side,omitempty" db:"side"`
	LosersBracket     bool         `json:"losersBracket" db:"losers_bracket"`
	WinnerNextMatchID *string      `json:"winnerNextMatchId,omitempty" db:"winner_next_match_id"`
	LoserNextMatchID  *string      `json:"loserNextMatchId,omitempty" db:"loser_next_match_id"`
	PreviousLeftID    *string      `json:"previousLeftId,omitempty" db:"previous_left_id"`
	PreviousRightID   *string      `json:"previousRightId,omitempty" db:"previous_right_id"`

	FieldID          *int       `json:"fieldId,omitempty" db:"field_id"`
	Start            *time.Time `json:"start,omitempty" db:"start_at"`
	End              *time.Time `json:"end,omitempty" db:"end_at"`
	RefereeID        *int       `json:"refereeId,omitempty" db:"referee_id"`
	TeamRefereeID    *int       `json:"teamRefereeId,omitempty" db:"team_referee_id"`
	RefereeCheckedIn *bool      `json:"refereeCheckedIn,omitempty" db:"referee_checked_in"`
}

// Status derives the lifecycle state; it is never stored.
func (m *Match) Status() MatchStatus {
	switch {
	case m.Locked:
		return MatchFinalized
	case len(m.Team1Points) > 0 || len(m.Team2Points) > 0:
		return MatchInProgress
	case m.FieldID != nil && m.Start != nil:
		return MatchScheduled
	default:
		return MatchUnscheduled
	}
}

func (m *Match) HasBothTeams() bool {
	return m.Team1ID != nil && m.Team2ID != nil
}

// FeedsFromUpstream reports whether the given slot is populated by bracket
// propagation rather than by hand.
func (m *Match) FeedsFromUpstream(left bool) bool {
	if left {
		return m.PreviousLeftID != nil
	}
	return m.PreviousRightID != nil
}

// MatchUpdate is the partial-update record for a match: a field is applied
// only when it was present in the request. Clearing a nullable column is an
// explicit null, not an absent key.
type MatchUpdate struct {
	ID                string                 `json:"id" validate:"required"`
	MatchID           Opt[int]               `json:"matchId"`
	DivisionID        Opt[int]               `json:"division"`
	Team1ID           Opt[int]               `json:"team1Id"`
	Team2ID           Opt[int]               `json:"team2Id"`
	Team1Seed         Opt[int]               `json:"team1Seed"`
	Team2Seed         Opt[int]               `json:"team2Seed"`
	Team1Points       Opt[[]int64]           `json:"team1Points"`
	Team2Points       Opt[[]int64]           `json:"team2Points"`
	SetResults        Opt[[]string]          `json:"setResults"`
	Locked            Opt[bool]              `json:"locked"`
	Side              Opt[BracketSide]       `json:"side"`
	LosersBracket     Opt[bool]              `json:"losersBracket"`
	WinnerNextMatchID Opt[string]            `json:"winnerNextMatchId"`
	LoserNextMatchID  Opt[string]            `json:"loserNextMatchId"`
	PreviousLeftID    Opt[string]            `json:"previousLeftId"`
	PreviousRightID   Opt[string]            `json:"previousRightId"`
	FieldID           Opt[int]               `json:"fieldId"`
	Start             Opt[time.Time]         `json:"start"`
	End               Opt[time.Time]         `json:"end"`
	RefereeID         Opt[int]               `json:"refereeId"`
	TeamRefereeID     Opt[int]               `json:"teamRefereeId"`
	RefereeCheckedIn  Opt[bool]              `json:"refereeCheckedIn"`
}

// MatchCreate carries a caller-side correlation key that the bulk response
// maps to the persisted id.
type MatchCreate struct {
	ClientID            string `json:"clientId" validate:"required"`
	CreationContext     string `json:"creationContext"`
	AutoPlaceholderTeam bool   `json:"autoPlaceholderTeam"`
	MatchUpdate
}

// Apply merges the update into the match. Pointer columns honor explicit
// nulls; value columns ignore them.
func (u MatchUpdate) Apply(m *Match) {
	if u.MatchID.Defined && u.MatchID.Value != nil {
		m.MatchID = *u.MatchID.Value
	}
	applyPtr(u.DivisionID, &m.DivisionID)
	applyPtr(u.Team1ID, &m.Team1ID)
	applyPtr(u.Team2ID, &m.Team2ID)
	applyPtr(u.Team1Seed, &m.Team1Seed)
	applyPtr(u.Team2Seed, &m.Team2Seed)
	if u.Team1Points.Defined {
		m.Team1Points = nil
		if u.Team1Points.Value != nil {
			m.Team1Points = pq.Int64Array(*u.Team1Points.Value)
		}
	}
	if u.Team2Points.Defined {
		m.Team2Points = nil
		if u.Team2Points.Value != nil {
			m.Team2Points = pq.Int64Array(*u.Team2Points.Value)
		}
	}
	if u.SetResults.Defined {
		m.SetResults = nil
		if u.SetResults.Value != nil {
			m.SetResults = pq.StringArray(*u.SetResults.Value)
		}
	}
	if u.Locked.Defined && u.Locked.Value != nil {
		m.Locked = *u.Locked.Value
	}
	applyPtr(u.Side, &m.Side)
	if u.LosersBracket.Defined && u.LosersBracket.Value != nil {
		m.LosersBracket = *u.LosersBracket.Value
	}
	applyPtr(u.WinnerNextMatchID, &m.WinnerNextMatchID)
	applyPtr(u.LoserNextMatchID, &m.LoserNextMatchID)
	applyPtr(u.PreviousLeftID, &m.PreviousLeftID)
	applyPtr(u.PreviousRightID, &m.PreviousRightID)
	applyPtr(u.FieldID, &m.FieldID)
	applyPtr(u.Start, &m.Start)
	applyPtr(u.End, &m.End)
	applyPtr(u.RefereeID, &m.RefereeID)
	applyPtr(u.TeamRefereeID, &m.TeamRefereeID)
	applyPtr(u.RefereeCheckedIn, &m.RefereeCheckedIn)
}

func applyPtr[T any](o Opt[T], dst **T) {
	if !o.Defined {
		return
	}
	*dst = o.Value
}
