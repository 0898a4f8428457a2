package bracket

import (
	"errors"
	"fmt"

	"github.com/matchgrid/matchgrid/models"
)

var (
	ErrAlreadyFinalized = errors.New("match result is already locked")
	ErrNotFinalized     = errors.New("match is not locked")
	ErrMissingTeams     = errors.New("both participant slots must be resolved before finalizing")
	ErrNoWinner         = errors.New("no deterministic winner derivable from the entered scores")
	ErrBracketAdvanced  = errors.New("downstream bracket has already advanced past this match")
)

// Outcome reports the winner and loser team ids for the entered scores under
// the profile's win condition. A drawn result returns (0, 0, nil); callers
// that need advancement treat that as ErrNoWinner.
func Outcome(m *models.Match, rules models.ProfileRules) (winner, loser int, err error) {
	if !m.HasBothTeams() {
		return 0, 0, ErrMissingTeams
	}
	t1, t2 := *m.Team1ID, *m.Team2ID

	switch rules.WinCondition {
	case models.WinByTotal:
		s1, s2 := sum(m.Team1Points), sum(m.Team2Points)
		switch {
		case s1 > s2:
			return t1, t2, nil
		case s2 > s1:
			return t2, t1, nil
		default:
			return 0, 0, nil
		}
	default: // sets
		w1, w2 := SetsWon(m, rules)
		target := rules.WinnerSetCount
		if m.LosersBracket && rules.LoserSetCount > 0 {
			target = rules.LoserSetCount
		}
		if target <= 0 {
			target = 1
		}
		switch {
		case w1 >= target && w1 > w2:
			return t1, t2, nil
		case w2 >= target && w2 > w1:
			return t2, t1, nil
		default:
			return 0, 0, nil
		}
	}
}

// SetsWon counts sets taken by each side. A set is won by the higher score
// once the points-to-victory threshold is reached; scores are taken as
// entered and never auto-corrected. A score past the per-set cap still
// counts as entered — the cap bounds the threshold check, not the data.
func SetsWon(m *models.Match, rules models.ProfileRules) (team1, team2 int) {
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
		hi := p1
		if p2 > hi {
			hi = p2
		}
		if hi < threshold {
			continue // unfinished set
		}
		switch {
		case p1 > p2:
			team1++
		case p2 > p1:
			team2++
		}
	}
	return team1, team2
}

// Finalize locks the match and propagates the winner (and, in double
// elimination, the loser) into the downstream previous-slot that points back
// at this match. A match with advancement edges must have a deterministic
// winner; an edgeless league match may finalize as a draw.
func Finalize(g *Graph, id string, rules models.ProfileRules) error {
	m, ok := g.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrMatchNotFound, id)
	}
	if m.Locked {
		return fmt.Errorf("%w: %s", ErrAlreadyFinalized, id)
	}
	if !m.HasBothTeams() {
		return fmt.Errorf("%w: match %s", ErrMissingTeams, id)
	}

	winner, loser, err := Outcome(m, rules)
	if err != nil {
		return err
	}
	hasEdges := m.WinnerNextMatchID != nil || m.LoserNextMatchID != nil
	if winner == 0 && hasEdges {
		return fmt.Errorf("%w: match %s", ErrNoWinner, id)
	}

	m.Locked = true
	if winner == 0 {
		return nil
	}
	if m.WinnerNextMatchID != nil {
		if err := writeSlot(g, *m.WinnerNextMatchID, m.ID, winner); err != nil {
			m.Locked = false
			return err
		}
	}
	if m.LoserNextMatchID != nil {
		if err := writeSlot(g, *m.LoserNextMatchID, m.ID, loser); err != nil {
			m.Locked = false
			return err
		}
	}
	return nil
}

// Unlock reopens a locked match for correction. If a downstream match that
// consumed this match's winner or loser has progressed further — it is
// finalized itself, or anything beyond it is — the unlock is rejected: an
// already-advanced branch cannot be silently rewritten.
func Unlock(g *Graph, id string) error {
	m, ok := g.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrMatchNotFound, id)
	}
	if !m.Locked {
		return fmt.Errorf("%w: %s", ErrNotFinalized, id)
	}

	for _, ref := range []*string{m.WinnerNextMatchID, m.LoserNextMatchID} {
		if ref == nil {
			continue
		}
		next, ok := g.Get(*ref)
		if !ok {
			return fmt.Errorf("%w: %s -> %s", ErrUnknownEdge, m.ID, *ref)
		}
		if next.Locked || hasLockedDownstream(g, next, map[string]bool{}) {
			return fmt.Errorf("%w: match %s feeds %s", ErrBracketAdvanced, m.ID, next.ID)
		}
	}

	// Safe: withdraw the propagated participants.
	for _, ref := range []*string{m.WinnerNextMatchID, m.LoserNextMatchID} {
		if ref == nil {
			continue
		}
		next, _ := g.Get(*ref)
		clearSlot(next, m.ID)
	}
	m.Locked = false
	return nil
}

// hasLockedDownstream walks the advancement edges looking for any locked
// match. The visited set guards against misconfigured cyclic input.
func hasLockedDownstream(g *Graph, m *models.Match, visited map[string]bool) bool {
	if visited[m.ID] {
		return false
	}
	visited[m.ID] = true
	for _, ref := range []*string{m.WinnerNextMatchID, m.LoserNextMatchID} {
		if ref == nil {
			continue
		}
		next, ok := g.Get(*ref)
		if !ok {
			continue
		}
		if next.Locked || hasLockedDownstream(g, next, visited) {
			return true
		}
	}
	return false
}

// writeSlot places teamID into whichever previous-slot of the target match
// refers back to srcID.
func writeSlot(g *Graph, targetID, srcID string, teamID int) error {
	target, ok := g.Get(targetID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEdge, targetID)
	}
	switch {
	case target.PreviousLeftID != nil && *target.PreviousLeftID == srcID:
		target.Team1ID = &teamID
	case target.PreviousRightID != nil && *target.PreviousRightID == srcID:
		target.Team2ID = &teamID
	default:
		return fmt.Errorf("%w: %s -> %s", ErrSlotMismatch, srcID, targetID)
	}
	return nil
}

func clearSlot(target *models.Match, srcID string) {
	if target.PreviousLeftID != nil && *target.PreviousLeftID == srcID {
		target.Team1ID = nil
	}
	if target.PreviousRightID != nil && *target.PreviousRightID == srcID {
		target.Team2ID = nil
	}
}

func sum(xs []int64) int {
	total := 0
	for _, x := range xs {
		total += int(x)
	}
	return total
}
