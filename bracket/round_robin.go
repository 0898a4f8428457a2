package bracket

import (
	"sort"

	"github.com/google/uuid"

	"github.com/matchgrid/matchgrid/models"
)

type RoundRobinParams struct {
	EventID    int
	DivisionID *int
	Teams      []models.Team
	Legs       int // 1 plays each pair once, 2 adds return fixtures with sides swapped
}

// BuildRoundRobin generates league fixtures with the circle method: the top
// seed anchors while the rest rotate one position per round, so each round is
// a set of simultaneous matches and every pair meets exactly once per leg.
// An odd roster gets a rotating bye instead of a phantom opponent. The
// fixtures carry no advancement edges; results feed the standings table only.
func BuildRoundRobin(p RoundRobinParams) ([]*models.Match, error) {
	if len(p.Teams) < 2 {
		return nil, ErrNotEnoughTeams
	}
	legs := 1
	if p.Legs == 2 {
		legs = 2
	}

	teams := make([]models.Team, len(p.Teams))
	copy(teams, p.Teams)
	sort.SliceStable(teams, func(i, j int) bool {
		return seedOf(teams[i], i) < seedOf(teams[j], j)
	})

	ids := make([]int, 0, len(teams)+1)
	for _, t := range teams {
		ids = append(ids, t.ID)
	}
	if len(ids)%2 == 1 {
		ids = append(ids, 0) // bye marker
	}

	n := len(ids)
	out := make([]*models.Match, 0, legs*(n-1)*n/2)
	idx := 0
	for leg := 1; leg <= legs; leg++ {
		for round := 0; round < n-1; round++ {
			for i := 0; i < n/2; i++ {
				home, away := ids[i], ids[n-1-i]
				if home == 0 || away == 0 {
					continue
				}
				if leg == 2 {
					home, away = away, home
				}
				idx++
				h, a := home, away
				out = append(out, &models.Match{
					ID:         uuid.NewString(),
					EventID:    p.EventID,
					DivisionID: p.DivisionID,
					MatchID:    idx,
					Team1ID:    &h,
					Team2ID:    &a,
				})
			}
			// Rotate everything but the anchor. The cycle has period n-1, so
			// a second leg replays the same rounds with sides swapped.
			last := ids[n-1]
			copy(ids[2:], ids[1:n-1])
			ids[1] = last
		}
	}
	return out, nil
}
