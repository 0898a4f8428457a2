package bracket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchgrid/matchgrid/models"
)

func teams(n int) []models.Team {
	out := make([]models.Team, n)
	for i := range out {
		seed := i + 1
		out[i] = models.Team{ID: 100 + seed, Name: "Team", Seed: &seed}
	}
	return out
}

func volleyRules() models.ProfileRules {
	return models.ProfileRules{WinCondition: models.WinBySets, WinnerSetCount: 2, PointsToVictory: 25}
}

func score(m *models.Match, t1, t2 []int64) {
	m.Team1Points = t1
	m.Team2Points = t2
}

func TestBuild_RejectsTooFewTeams(t *testing.T) {
	_, err := Build(BuildParams{EventID: 1, Teams: teams(1)})
	assert.ErrorIs(t, err, ErrNotEnoughTeams)
}

func TestBuild_SingleElimFourTeams(t *testing.T) {
	out, err := Build(BuildParams{EventID: 1, Teams: teams(4)})
	require.NoError(t, err)
	require.Len(t, out, 3)

	m1, m2, final := out[0], out[1], out[2]

	// Top seed meets bottom seed, the middle pair meets each other.
	assert.Equal(t, 101, *m1.Team1ID)
	assert.Equal(t, 104, *m1.Team2ID)
	assert.Equal(t, 102, *m2.Team1ID)
	assert.Equal(t, 103, *m2.Team2ID)

	assert.Equal(t, final.ID, *m1.WinnerNextMatchID)
	assert.Equal(t, final.ID, *m2.WinnerNextMatchID)
	assert.Equal(t, m1.ID, *final.PreviousLeftID)
	assert.Equal(t, m2.ID, *final.PreviousRightID)

	// Slots fed by propagation start empty.
	assert.Nil(t, final.Team1ID)
	assert.Nil(t, final.Team2ID)
	assert.Nil(t, final.WinnerNextMatchID)
}

func TestBuild_ByesCollapseWithoutMatchRecords(t *testing.T) {
	out, err := Build(BuildParams{EventID: 1, Teams: teams(5)})
	require.NoError(t, err)
	// Five entrants always produce exactly four matches, byes make none.
	require.Len(t, out, 4)

	// The only first-round match is 4 vs 5; seeds 1-3 sit out.
	r1 := out[0]
	assert.Equal(t, 104, *r1.Team1ID)
	assert.Equal(t, 105, *r1.Team2ID)

	// Seed 1's semifinal has the team placed directly on one side and the
	// 4v5 winner flowing into the other.
	semi, ok := NewGraph(out).Get(*r1.WinnerNextMatchID)
	require.True(t, ok)
	assert.Equal(t, 101, *semi.Team1ID)
	assert.Nil(t, semi.Team2ID)
	assert.Equal(t, r1.ID, *semi.PreviousRightID)
	assert.Nil(t, semi.PreviousLeftID)
}

func TestBuild_DoubleElimShape(t *testing.T) {
	_, err := Build(BuildParams{EventID: 1, Teams: teams(6), DoubleElimination: true})
	assert.ErrorIs(t, err, ErrDoubleElimSize)

	out, err := Build(BuildParams{EventID: 1, Teams: teams(4), DoubleElimination: true})
	require.NoError(t, err)
	// 3 winner matches, 2 loser matches, 1 grand final.
	require.Len(t, out, 6)

	var losers, winners int
	for _, m := range out {
		if m.LosersBracket {
			losers++
		} else {
			winners++
		}
	}
	assert.Equal(t, 2, losers)
	assert.Equal(t, 4, winners)

	// Every winner-side match except the grand final routes its loser
	// somewhere; eliminated-from-losers teams are out.
	g := NewGraph(out)
	grand := out[len(out)-1]
	for _, m := range out {
		if m.LosersBracket || m.ID == grand.ID {
			continue
		}
		require.NotNil(t, m.LoserNextMatchID, "winner-side match %d drops its loser", m.MatchID)
		_, ok := g.Get(*m.LoserNextMatchID)
		assert.True(t, ok)
	}
	assert.Nil(t, grand.WinnerNextMatchID)
	assert.Nil(t, grand.LoserNextMatchID)
}

func TestValidate_DetectsCycle(t *testing.T) {
	out, err := Build(BuildParams{EventID: 1, Teams: teams(4)})
	require.NoError(t, err)
	g := NewGraph(out)

	// Point the final back into a first-round match.
	final := out[2]
	final.WinnerNextMatchID = &out[0].ID
	out[0].PreviousLeftID = &final.ID
	assert.ErrorIs(t, g.Validate(), ErrCycle)
}

func TestValidate_DetectsSlotMismatch(t *testing.T) {
	out, err := Build(BuildParams{EventID: 1, Teams: teams(4)})
	require.NoError(t, err)
	g := NewGraph(out)

	// m2 claims to advance into the final, but the final's back-pointer for
	// that side names m1.
	out[2].PreviousRightID = &out[0].ID
	assert.ErrorIs(t, g.Validate(), ErrSlotMismatch)
}

func TestFinalize_PropagatesWinnerIntoCorrectSlot(t *testing.T) {
	out, err := Build(BuildParams{EventID: 1, Teams: teams(4)})
	require.NoError(t, err)
	g := NewGraph(out)
	m1, m2, final := out[0], out[1], out[2]
	rules := volleyRules()

	score(m1, []int64{25, 25}, []int64{20, 23})
	require.NoError(t, Finalize(g, m1.ID, rules))
	assert.True(t, m1.Locked)
	require.NotNil(t, final.Team1ID)
	assert.Equal(t, 101, *final.Team1ID)
	assert.Nil(t, final.Team2ID)

	score(m2, []int64{21, 25, 22}, []int64{25, 18, 25})
	require.NoError(t, Finalize(g, m2.ID, rules))
	require.NotNil(t, final.Team2ID)
	assert.Equal(t, 103, *final.Team2ID)
}

func TestFinalize_RequiresBothTeamsAndAWinner(t *testing.T) {
	out, err := Build(BuildParams{EventID: 1, Teams: teams(4)})
	require.NoError(t, err)
	g := NewGraph(out)
	m1, final := out[0], out[2]
	rules := volleyRules()

	// Final has no participants yet.
	assert.ErrorIs(t, Finalize(g, final.ID, rules), ErrMissingTeams)

	// 1-1 in sets is not a result on a match that must advance someone.
	score(m1, []int64{25, 20}, []int64{20, 25})
	assert.ErrorIs(t, Finalize(g, m1.ID, rules), ErrNoWinner)
	assert.False(t, m1.Locked)

	score(m1, []int64{25, 20, 25}, []int64{20, 25, 21})
	require.NoError(t, Finalize(g, m1.ID, rules))
	assert.ErrorIs(t, Finalize(g, m1.ID, rules), ErrAlreadyFinalized)
}

func TestUnlock_RejectedOnceDownstreamAdvances(t *testing.T) {
	out, err := Build(BuildParams{EventID: 1, Teams: teams(4)})
	require.NoError(t, err)
	g := NewGraph(out)
	m1, m2, final := out[0], out[1], out[2]
	rules := volleyRules()

	score(m1, []int64{25, 25}, []int64{20, 23})
	require.NoError(t, Finalize(g, m1.ID, rules))
	score(m2, []int64{25, 25}, []int64{11, 9})
	require.NoError(t, Finalize(g, m2.ID, rules))
	score(final, []int64{25, 25}, []int64{23, 19})
	require.NoError(t, Finalize(g, final.ID, rules))

	// The final consumed m1's winner and is itself locked.
	assert.ErrorIs(t, Unlock(g, m1.ID), ErrBracketAdvanced)
	assert.True(t, m1.Locked)

	// Unwinding in order works: final first, then a semifinal.
	require.NoError(t, Unlock(g, final.ID))
	assert.False(t, final.Locked)
	require.NoError(t, Unlock(g, m1.ID))
	assert.False(t, m1.Locked)
	assert.Nil(t, final.Team1ID, "withdrawn participant must leave the slot")
	assert.NotNil(t, final.Team2ID, "the other feeder's participant stays")
}

func TestUnlock_CascadeCoversTransitiveConsumers(t *testing.T) {
	out, err := Build(BuildParams{EventID: 1, Teams: teams(8)})
	require.NoError(t, err)
	g := NewGraph(out)
	rules := volleyRules()

	// Quarterfinals.
	for _, m := range out[:4] {
		score(m, []int64{25, 25}, []int64{10, 10})
		require.NoError(t, Finalize(g, m.ID, rules))
	}
	// One semifinal.
	semi := out[4]
	score(semi, []int64{25, 25}, []int64{10, 10})
	require.NoError(t, Finalize(g, semi.ID, rules))

	// A quarterfinal feeding the locked semifinal cannot be reopened, and
	// neither can one whose unlocked semifinal feeds a locked match later.
	qf := out[0]
	require.Equal(t, semi.ID, *qf.WinnerNextMatchID)
	assert.ErrorIs(t, Unlock(g, qf.ID), ErrBracketAdvanced)

	// A quarterfinal on the other half of the draw only has unlocked
	// downstream matches and unwinds freely.
	other := out[3]
	require.NotEqual(t, semi.ID, *other.WinnerNextMatchID)
	assert.NoError(t, Unlock(g, other.ID))
}

func TestOutcome_TimedPlayUsesPointTotals(t *testing.T) {
	one, two := 1, 2
	m := &models.Match{ID: "m", Team1ID: &one, Team2ID: &two}
	rules := models.ProfileRules{WinCondition: models.WinByTotal}

	score(m, []int64{13, 8}, []int64{10, 10})
	w, l, err := Outcome(m, rules)
	require.NoError(t, err)
	assert.Equal(t, 1, w)
	assert.Equal(t, 2, l)

	score(m, []int64{10}, []int64{10})
	w, _, err = Outcome(m, rules)
	require.NoError(t, err)
	assert.Zero(t, w, "equal totals are a draw")
}

func TestSetsWon_IgnoresUnfinishedSets(t *testing.T) {
	m := &models.Match{}
	score(m, []int64{25, 12, 25}, []int64{20, 14, 27})
	w1, w2 := SetsWon(m, volleyRules())
	// Middle set never reached 25 and counts for nobody.
	assert.Equal(t, 1, w1)
	assert.Equal(t, 1, w2)
}
