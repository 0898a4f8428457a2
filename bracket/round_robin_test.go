package bracket

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pairKey(a, b int) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d-%d", a, b)
}

func TestBuildRoundRobin_EachPairMeetsOnce(t *testing.T) {
	out, err := BuildRoundRobin(RoundRobinParams{EventID: 1, Teams: teams(4), Legs: 1})
	require.NoError(t, err)
	require.Len(t, out, 6)

	seen := map[string]int{}
	for _, m := range out {
		require.NotNil(t, m.Team1ID)
		require.NotNil(t, m.Team2ID)
		assert.Nil(t, m.WinnerNextMatchID)
		assert.Nil(t, m.LoserNextMatchID)
		seen[pairKey(*m.Team1ID, *m.Team2ID)]++
	}
	require.Len(t, seen, 6)
	for pair, count := range seen {
		assert.Equal(t, 1, count, pair)
	}
}

func TestBuildRoundRobin_OddRosterSitsOneTeamOutPerRound(t *testing.T) {
	out, err := BuildRoundRobin(RoundRobinParams{EventID: 1, Teams: teams(5), Legs: 1})
	require.NoError(t, err)
	// Every pair from five teams, with no fixture against the bye.
	require.Len(t, out, 10)
	for _, m := range out {
		assert.NotZero(t, *m.Team1ID)
		assert.NotZero(t, *m.Team2ID)
	}
}

func TestBuildRoundRobin_SecondLegSwapsSides(t *testing.T) {
	out, err := BuildRoundRobin(RoundRobinParams{EventID: 1, Teams: teams(4), Legs: 2})
	require.NoError(t, err)
	require.Len(t, out, 12)

	// The rotation cycle has period n-1, so the second leg replays the
	// first leg's rounds in order with home and away exchanged.
	first, second := out[:6], out[6:]
	for i := range first {
		assert.Equal(t, *first[i].Team1ID, *second[i].Team2ID)
		assert.Equal(t, *first[i].Team2ID, *second[i].Team1ID)
	}

	for i, m := range out {
		assert.Equal(t, i+1, m.MatchID)
	}
}

func TestBuildRoundRobin_RejectsTooFewTeams(t *testing.T) {
	_, err := BuildRoundRobin(RoundRobinParams{EventID: 1, Teams: teams(1), Legs: 1})
	assert.ErrorIs(t, err, ErrNotEnoughTeams)
}
