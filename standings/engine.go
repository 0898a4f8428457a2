// Package standings turns a division's finalized matches and its scoring
// profile into a ranked table. Computation is pure and full: every call
// recomputes from the complete match set, so edited results and overrides are
// always reflected.
package standings

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/matchgrid/matchgrid/bracket"
	"github.com/matchgrid/matchgrid/models"
)

var ErrTiebreakDependency = errors.New("tiebreaker enabled without the tallies it ranks on")

// Input is the snapshot a caller assembled for one division.
type Input struct {
	Teams     []models.Team
	Matches   []*models.Match
	Rules     models.ProfileRules
	Overrides map[int]int
}

type tally struct {
	row      models.StandingsRow
	setsWon  int
	setsLost int
	streak   int // current consecutive-win run, in match order
}

// incident is a per-match annotation carried in the set-results list, either
// a bare kind ("overtime") or kind:side ("yellow_card:team1").
type incident struct {
	kind string
	side int // 1, 2, or 0 when the incident has no side
}

// Compute produces the ordered rows. Only tallies backed by an enabled rule
// feed points; wins/losses/draws and matches played are always counted since
// every table displays them.
func Compute(in Input) ([]models.StandingsRow, error) {
	if err := checkTiebreakDeps(in.Rules); err != nil {
		return nil, err
	}

	tallies := make(map[int]*tally, len(in.Teams))
	for _, t := range in.Teams {
		tallies[t.ID] = &tally{row: models.StandingsRow{TeamID: t.ID, TeamName: t.Name}}
	}

	goals := goalsEnabled(in.Rules)
	headToHead := make(map[[2]int]int)

	for _, m := range chronological(in.Matches) {
		if !m.Locked || !m.HasBothTeams() {
			continue
		}
		t1 := ensure(tallies, *m.Team1ID)
		t2 := ensure(tallies, *m.Team2ID)
		t1.row.MatchesPlayed++
		t2.row.MatchesPlayed++

		winner, _, forfeitBy := outcome(m, in.Rules)
		switch winner {
		case t1.row.TeamID:
			t1.row.Wins++
			t2.row.Losses++
			headToHead[[2]int{t1.row.TeamID, t2.row.TeamID}]++
		case t2.row.TeamID:
			t2.row.Wins++
			t1.row.Losses++
			headToHead[[2]int{t2.row.TeamID, t1.row.TeamID}]++
		default:
			t1.row.Draws++
			t2.row.Draws++
		}

		gf1, gf2 := sumPoints(m.Team1Points), sumPoints(m.Team2Points)
		if goals {
			t1.row.GoalsFor += gf1
			t1.row.GoalsAgainst += gf2
			t2.row.GoalsFor += gf2
			t2.row.GoalsAgainst += gf1
		}
		s1, s2 := bracket.SetsWon(m, in.Rules)
		t1.setsWon += s1
		t1.setsLost += s2
		t2.setsWon += s2
		t2.setsLost += s1

		t1.row.BasePoints += clamp(matchPoints(m, in.Rules, t1, true, winner, forfeitBy, s1, s2, gf1, gf2), in.Rules.Clamp)
		t2.row.BasePoints += clamp(matchPoints(m, in.Rules, t2, false, winner, forfeitBy, s2, s1, gf2, gf1), in.Rules.Clamp)
	}

	rows := make([]models.StandingsRow, 0, len(tallies))
	for id, t := range tallies {
		t.row.GoalDifference = t.row.GoalsFor - t.row.GoalsAgainst
		t.row.PointsDelta = in.Overrides[id]
		t.row.FinalPoints = t.row.BasePoints + t.row.PointsDelta
		rows = append(rows, t.row)
	}

	sort.Slice(rows, func(i, j int) bool { return less(rows[i], rows[j], in.Rules.Tiebreakers, headToHead) })
	for i := range rows {
		rows[i].Position = i + 1
	}
	return rows, nil
}

// less orders two rows: final points descending, then the fixed-priority
// tiebreak chain restricted to the enabled breakers, then team id.
func less(a, b models.StandingsRow, breakers map[models.TiebreakRule]bool, h2h map[[2]int]int) bool {
	if a.FinalPoints != b.FinalPoints {
		return a.FinalPoints > b.FinalPoints
	}
	if breakers[models.TiebreakGoalDifference] && a.GoalDifference != b.GoalDifference {
		return a.GoalDifference > b.GoalDifference
	}
	if breakers[models.TiebreakHeadToHead] {
		ab := h2h[[2]int{a.TeamID, b.TeamID}]
		ba := h2h[[2]int{b.TeamID, a.TeamID}]
		if ab != ba {
			return ab > ba
		}
	}
	if breakers[models.TiebreakTotalGoals] && a.GoalsFor != b.GoalsFor {
		return a.GoalsFor > b.GoalsFor
	}
	return a.TeamID < b.TeamID
}

// matchPoints computes one team's point yield for one match, before the
// per-match clamp. The winner id is 0 for a draw; forfeitBy names the side
// that forfeited, or 0.
func matchPoints(m *models.Match, rules models.ProfileRules, t *tally, left bool, winner, forfeitBy, setsWon, setsLost, goalsFor, goalsAgainst int) int {
	teamID := t.row.TeamID
	pts := 0

	won := winner == teamID
	switch {
	case forfeitBy != 0 && forfeitBy != teamID:
		pts += resultPoints(rules, models.RuleForfeitWin, models.RuleWin)
	case forfeitBy == teamID:
		pts += resultPoints(rules, models.RuleForfeitLoss, models.RuleLoss)
	case won:
		pts += resultPoints(rules, models.RuleWin, "")
	case winner == 0:
		pts += resultPoints(rules, models.RuleDraw, "")
	default:
		pts += resultPoints(rules, models.RuleLoss, "")
	}

	if r, ok := rules.PerUnit[models.RulePerSetWon]; ok {
		pts += r.Points * setsWon
	}
	if r, ok := rules.PerUnit[models.RulePerSetLost]; ok {
		pts += r.Points * setsLost
	}
	if r, ok := rules.PerUnit[models.RulePerGameWon]; ok {
		pts += r.Points * setsWon
	}
	if r, ok := rules.PerUnit[models.RulePerGoalFor]; ok {
		pts += r.Points * goalsFor
	}
	if r, ok := rules.PerUnit[models.RulePerGoalDiff]; ok {
		pts += r.Points * (goalsFor - goalsAgainst)
	}

	overtime := false
	for _, inc := range incidents(m) {
		mine := (inc.side == 1 && left) || (inc.side == 2 && !left)
		switch inc.kind {
		case "overtime":
			overtime = true
		case string(models.RuleYellowCard):
			if mine {
				pts -= penaltyPoints(rules, models.RuleYellowCard)
			}
		case string(models.RuleRedCard):
			if mine {
				pts -= penaltyPoints(rules, models.RuleRedCard)
			}
		case string(models.RuleUnsporting):
			if mine {
				pts -= penaltyPoints(rules, models.RuleUnsporting)
			}
		}
	}

	if won {
		t.streak++
	} else {
		t.streak = 0
	}

	if won {
		if r, ok := rules.Bonus[models.RuleShutout]; ok && goalsAgainst == 0 {
			pts += r.Points
		}
		if r, ok := rules.Bonus[models.RuleComebackWin]; ok && lostFirstSet(m, rules, left) {
			pts += r.Points
		}
		if r, ok := rules.Bonus[models.RuleOvertimeWin]; ok && overtime {
			pts += r.Points
		}
		// A streak pays from the third straight win onward.
		if r, ok := rules.Bonus[models.RuleWinStreak]; ok && t.streak >= 3 {
			pts += r.Points
		}
	} else if winner != 0 && overtime {
		pts -= penaltyPoints(rules, models.RuleOvertimeLoss)
	}

	return pts
}

func resultPoints(rules models.ProfileRules, key, fallback models.ResultRule) int {
	if r, ok := rules.Result[key]; ok {
		return r.Points
	}
	if fallback != "" {
		if r, ok := rules.Result[fallback]; ok {
			return r.Points
		}
	}
	return 0
}

func penaltyPoints(rules models.ProfileRules, key models.PenaltyRule) int {
	if r, ok := rules.Penalty[key]; ok {
		return r.Points
	}
	return 0
}

func clamp(pts int, c *models.ClampRule) int {
	if c == nil {
		return pts
	}
	if c.MinPerMatch != nil && pts < *c.MinPerMatch {
		return *c.MinPerMatch
	}
	if c.MaxPerMatch != nil && pts > *c.MaxPerMatch {
		return *c.MaxPerMatch
	}
	return pts
}

// outcome resolves the winner for standings purposes. A forfeit annotation
// decides the match regardless of the entered scores.
func outcome(m *models.Match, rules models.ProfileRules) (winner, loser, forfeitBy int) {
	for _, inc := range incidents(m) {
		if inc.kind == "forfeit" && inc.side != 0 {
			if inc.side == 1 {
				return *m.Team2ID, *m.Team1ID, *m.Team1ID
			}
			return *m.Team1ID, *m.Team2ID, *m.Team2ID
		}
	}
	w, l, err := bracket.Outcome(m, rules)
	if err != nil {
		return 0, 0, 0
	}
	return w, l, 0
}

// lostFirstSet reports whether the side dropped the first completed set.
func lostFirstSet(m *models.Match, rules models.ProfileRules, left bool) bool {
	n := len(m.Team1Points)
	if len(m.Team2Points) < n {
		n = len(m.Team2Points)
	}
	threshold := rules.PointsToVictory
	if threshold <= 0 {
		threshold = 1
	}
	for i := 0; i < n; i++ {
		p1, p2 := int(m.Team1Points[i]), int(m.Team2Points[i])
		if p1 < threshold && p2 < threshold {
			continue
		}
		if p1 == p2 {
			return false
		}
		if left {
			return p2 > p1
		}
		return p1 > p2
	}
	return false
}

// incidents parses the per-match annotation tokens stored alongside set
// results: "kind" or "kind:team1"/"kind:team2". Unrecognized entries (plain
// set labels) are skipped.
func incidents(m *models.Match) []incident {
	var out []incident
	for _, raw := range m.SetResults {
		kind, sideStr, _ := strings.Cut(raw, ":")
		switch kind {
		case "forfeit", "overtime",
			string(models.RuleYellowCard), string(models.RuleRedCard), string(models.RuleUnsporting):
		default:
			continue
		}
		side := 0
		switch sideStr {
		case "team1":
			side = 1
		case "team2":
			side = 2
		}
		out = append(out, incident{kind: kind, side: side})
	}
	return out
}

// checkTiebreakDeps fails fast when a breaker ranks on tallies no enabled
// rule produces, instead of silently comparing zeros.
func checkTiebreakDeps(rules models.ProfileRules) error {
	if rules.Tiebreakers[models.TiebreakGoalDifference] && !goalsEnabled(rules) {
		return fmt.Errorf("%w: %s needs a goal-producing rule or timed play", ErrTiebreakDependency, models.TiebreakGoalDifference)
	}
	if rules.Tiebreakers[models.TiebreakTotalGoals] && !goalsEnabled(rules) {
		return fmt.Errorf("%w: %s needs a goal-producing rule or timed play", ErrTiebreakDependency, models.TiebreakTotalGoals)
	}
	if rules.Tiebreakers[models.TiebreakHeadToHead] && len(rules.Result) == 0 {
		return fmt.Errorf("%w: %s needs win/loss result rules", ErrTiebreakDependency, models.TiebreakHeadToHead)
	}
	return nil
}

// goalsEnabled reports whether any enabled rule reads goal tallies. Timed
// play always does: the totals decide the winner.
func goalsEnabled(rules models.ProfileRules) bool {
	if rules.WinCondition == models.WinByTotal {
		return true
	}
	if _, ok := rules.PerUnit[models.RulePerGoalFor]; ok {
		return true
	}
	if _, ok := rules.PerUnit[models.RulePerGoalDiff]; ok {
		return true
	}
	_, ok := rules.Bonus[models.RuleShutout]
	return ok
}

// chronological orders matches by start time (unscheduled last), then seed
// index, so streak bonuses see results in played order.
func chronological(matches []*models.Match) []*models.Match {
	out := make([]*models.Match, len(matches))
	copy(out, matches)
	sort.SliceStable(out, func(i, j int) bool {
		si, sj := out[i].Start, out[j].Start
		switch {
		case si != nil && sj != nil && !si.Equal(*sj):
			return si.Before(*sj)
		case si != nil && sj == nil:
			return true
		case si == nil && sj != nil:
			return false
		}
		return out[i].MatchID < out[j].MatchID
	})
	return out
}

func ensure(tallies map[int]*tally, teamID int) *tally {
	t, ok := tallies[teamID]
	if !ok {
		t = &tally{row: models.StandingsRow{TeamID: teamID}}
		tallies[teamID] = t
	}
	return t
}

func sumPoints(xs []int64) int {
	total := 0
	for _, x := range xs {
		total += int(x)
	}
	return total
}
