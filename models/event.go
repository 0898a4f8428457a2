package models

import (
	"encoding/json"
	"fmt"
	"time"
)

type EventStatus string

const (
	EventSoon         EventStatus = "soon"
	EventRegistration EventStatus = "registration"
	EventActive       EventStatus = "active"
	EventCompleted    EventStatus = "completed"
	EventCanceled     EventStatus = "canceled"
)

// EventKind is the closed set of event variants. Each kind carries its own
// detail struct; exactly one of the detail pointers is non-nil for a valid
// event.
type EventKind string

const (
	KindTournament EventKind = "tournament"
	KindLeague     EventKind = "league"
	KindPickup     EventKind = "pickup"
)

type TournamentDetails struct {
	DoubleElimination bool `json:"double_elimination"`
	SeedFromDivision  *int `json:"seed_from_division,omitempty"`
}

type LeagueDetails struct {
	Rounds int `json:"rounds"` // 1 single round-robin, 2 double
}

type PickupDetails struct {
	MaxPlayers int `json:"max_players"`
}

type Event struct {
	ID          int         `json:"id" db:"id"`
	Name        string      `json:"name" db:"name"`
	Description *string     `json:"description,omitempty" db:"description"`
	SportID     int         `json:"sport_id" db:"sport_id"`
	OrganizerID int         `json:"organizer_id" db:"organizer_id"`
	Kind        EventKind   `json:"kind" db:"kind"`
	Status      EventStatus `json:"status" db:"status"`
	RegDate     time.Time   `json:"reg_date" db:"reg_date"`
	StartDate   time.Time   `json:"start_date" db:"start_date"`
	EndDate     time.Time   `json:"end_date" db:"end_date"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	PhotoKey    *string     `json:"-" db:"photo_key"`
	PhotoURL    *string     `json:"photo_url,omitempty" db:"-"`

	DetailsJSON *string `json:"-" db:"details_json"`

	Tournament *TournamentDetails `json:"tournament,omitempty" db:"-"`
	League     *LeagueDetails     `json:"league,omitempty" db:"-"`
	Pickup     *PickupDetails     `json:"pickup,omitempty" db:"-"`

	Divisions []Division `json:"divisions,omitempty" db:"-"`
}

// DecodeDetails populates the kind-specific variant from the raw column.
func (e *Event) DecodeDetails() error {
	if e.DetailsJSON == nil || *e.DetailsJSON == "" {
		switch e.Kind {
		case KindTournament:
			e.Tournament = &TournamentDetails{}
		case KindLeague:
			e.League = &LeagueDetails{Rounds: 1}
		case KindPickup:
			e.Pickup = &PickupDetails{}
		}
		return nil
	}
	raw := []byte(*e.DetailsJSON)
	switch e.Kind {
	case KindTournament:
		e.Tournament = &TournamentDetails{}
		return json.Unmarshal(raw, e.Tournament)
	case KindLeague:
		e.League = &LeagueDetails{}
		if err := json.Unmarshal(raw, e.League); err != nil {
			return err
		}
		if e.League.Rounds < 1 || e.League.Rounds > 2 {
			e.League.Rounds = 1
		}
		return nil
	case KindPickup:
		e.Pickup = &PickupDetails{}
		return json.Unmarshal(raw, e.Pickup)
	default:
		return fmt.Errorf("unknown event kind %q", e.Kind)
	}
}

// EncodeDetails serializes whichever variant is set back into the raw column.
func (e *Event) EncodeDetails() error {
	var v any
	switch e.Kind {
	case KindTournament:
		v = e.Tournament
	case KindLeague:
		v = e.League
	case KindPickup:
		v = e.Pickup
	default:
		return fmt.Errorf("unknown event kind %q", e.Kind)
	}
	if v == nil {
		e.DetailsJSON = nil
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s := string(raw)
	e.DetailsJSON = &s
	return nil
}
