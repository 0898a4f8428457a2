package models

import "encoding/json"

// WinCondition selects how a finalized match's winner is derived.
type WinCondition string

const (
	// WinBySets: first side to take the configured set count.
	WinBySets WinCondition = "sets"
	// WinByTotal: fixed-duration play, higher points total wins.
	WinByTotal WinCondition = "timed"
)

// Rule is one enabled scoring rule with its magnitude. A rule is enabled iff
// its key is present in the category map, so "is the magnitude there" is a
// structural question rather than a naming convention.
type Rule struct {
	Points int `json:"points"`
}

type ResultRule string

const (
	RuleWin         ResultRule = "win"
	RuleDraw        ResultRule = "draw"
	RuleLoss        ResultRule = "loss"
	RuleForfeitWin  ResultRule = "forfeit_win"
	RuleForfeitLoss ResultRule = "forfeit_loss"
)

type UnitRule string

const (
	RulePerSetWon        UnitRule = "per_set_won"
	RulePerSetLost       UnitRule = "per_set_lost"
	RulePerGameWon       UnitRule = "per_game_won"
	RulePerGoalFor       UnitRule = "per_goal_for"
	RulePerGoalDiff      UnitRule = "per_goal_difference"
)

type BonusRule string

const (
	RuleShutout     BonusRule = "shutout"
	RuleComebackWin BonusRule = "comeback_win"
	RuleWinStreak   BonusRule = "win_streak"
	RuleOvertimeWin BonusRule = "overtime_win"
)

type PenaltyRule string

const (
	RuleYellowCard  PenaltyRule = "yellow_card"
	RuleRedCard     PenaltyRule = "red_card"
	RuleUnsporting  PenaltyRule = "unsporting_conduct"
	RuleOvertimeLoss PenaltyRule = "overtime_loss"
)

type TiebreakRule string

const (
	TiebreakGoalDifference TiebreakRule = "goal_difference"
	TiebreakHeadToHead     TiebreakRule = "head_to_head"
	TiebreakTotalGoals     TiebreakRule = "total_goals"
)

// ClampRule bounds a single match's point yield. Applied per match before
// summing, never to the season total.
type ClampRule struct {
	MinPerMatch *int `json:"min_per_match,omitempty"`
	MaxPerMatch *int `json:"max_per_match,omitempty"`
}

// ScoringProfile is a sport's named bundle of scoring rules, attached to an
// event/division rather than to individual matches.
type ScoringProfile struct {
	ID      int    `json:"id" db:"id"`
	SportID int    `json:"sport_id" db:"sport_id"`
	Name    string `json:"name" db:"name"`

	RulesJSON *string `json:"-" db:"rules_json"`

	Rules ProfileRules `json:"rules" db:"-"`
}

type ProfileRules struct {
	WinCondition    WinCondition          `json:"win_condition"`
	WinnerSetCount  int                   `json:"winner_set_count"`
	LoserSetCount   int                   `json:"loser_set_count"`
	PointsToVictory int                   `json:"points_to_victory"` // per-set win threshold
	ScoreCap        int                   `json:"score_cap"`         // hard per-set cap, 0 = none
	Result          map[ResultRule]Rule   `json:"result,omitempty"`
	PerUnit         map[UnitRule]Rule     `json:"per_unit,omitempty"`
	Bonus           map[BonusRule]Rule    `json:"bonus,omitempty"`
	Penalty         map[PenaltyRule]Rule  `json:"penalty,omitempty"`
	Clamp           *ClampRule            `json:"clamp,omitempty"`
	Tiebreakers     map[TiebreakRule]bool `json:"tiebreakers,omitempty"`
}

func (p *ScoringProfile) DecodeRules() error {
	if p.RulesJSON == nil || *p.RulesJSON == "" {
		p.Rules = ProfileRules{WinCondition: WinBySets, WinnerSetCount: 1}
		return nil
	}
	return json.Unmarshal([]byte(*p.RulesJSON), &p.Rules)
}

func (p *ScoringProfile) EncodeRules() error {
	raw, err := json.Marshal(p.Rules)
	if err != nil {
		return err
	}
	s := string(raw)
	p.RulesJSON = &s
	return nil
}
