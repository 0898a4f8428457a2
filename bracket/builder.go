package bracket

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/matchgrid/matchgrid/models"
)

var (
	ErrNotEnoughTeams = errors.New("at least two teams are required to build a bracket")
	ErrDoubleElimSize = errors.New("double elimination requires a power-of-two team count of at least four")
)

type BuildParams struct {
	EventID           int
	DivisionID        *int
	Teams             []models.Team
	DoubleElimination bool
}

// node is one slot of the round currently being paired: either a team known
// up front, or the future winner of an already-created match.
type node struct {
	teamID *int
	seed   *int
	src    *models.Match
	bye    bool
}

type builder struct {
	params  BuildParams
	nextIdx int
	out     []*models.Match
}

// Build generates the full match set for a division bracket. Slots with no
// real upstream match carry their team id directly; slots fed by an upstream
// match start with both participant fields nil and are filled by propagation.
func Build(p BuildParams) ([]*models.Match, error) {
	if len(p.Teams) < 2 {
		return nil, ErrNotEnoughTeams
	}
	if p.DoubleElimination && (len(p.Teams) < 4 || !isPowerOfTwo(len(p.Teams))) {
		return nil, fmt.Errorf("%w: got %d", ErrDoubleElimSize, len(p.Teams))
	}

	b := &builder{params: p}
	winnerRounds := b.buildWinnerBracket()

	if !p.DoubleElimination {
		return b.finish()
	}

	loserFinal := b.buildLoserBracket(winnerRounds)
	winnerFinal := winnerRounds[len(winnerRounds)-1][0]

	grand := b.newMatch(models.SideWinners, false)
	feedWinner(winnerFinal, grand, true)
	feedWinner(loserFinal, grand, false)

	return b.finish()
}

func (b *builder) finish() ([]*models.Match, error) {
	sort.Slice(b.out, func(i, j int) bool { return b.out[i].MatchID < b.out[j].MatchID })
	if err := NewGraph(b.out).Validate(); err != nil {
		return nil, err
	}
	return b.out, nil
}

// buildWinnerBracket pairs seeds into rounds, collapsing byes so that a team
// without a first-round opponent is written straight into the next round's
// slot, with no match record for the bye itself.
func (b *builder) buildWinnerBracket() [][]*models.Match {
	teams := make([]models.Team, len(b.params.Teams))
	copy(teams, b.params.Teams)
	sort.SliceStable(teams, func(i, j int) bool {
		si, sj := seedOf(teams[i], i), seedOf(teams[j], j)
		return si < sj
	})

	size := nextPowerOfTwo(len(teams))
	order := seedOrder(size)

	current := make([]*node, size)
	for pos, seed := range order {
		if seed <= len(teams) {
			t := teams[seed-1]
			id := t.ID
			s := seed
			current[pos] = &node{teamID: &id, seed: &s}
		} else {
			current[pos] = &node{bye: true}
		}
	}

	rounds := int(math.Log2(float64(size)))
	var built [][]*models.Match
	for r := 1; r <= rounds; r++ {
		next := make([]*node, 0, len(current)/2)
		var roundMatches []*models.Match
		for i := 0; i < len(current); i += 2 {
			left, right := current[i], current[i+1]
			switch {
			case left.bye && right.bye:
				next = append(next, &node{bye: true})
			case right.bye:
				next = append(next, left)
			case left.bye:
				next = append(next, right)
			default:
				m := b.newMatch(models.SideWinners, false)
				b.attach(m, left, true)
				b.attach(m, right, false)
				roundMatches = append(roundMatches, m)
				next = append(next, &node{src: m})
			}
		}
		built = append(built, roundMatches)
		current = next
	}
	return built
}

// buildLoserBracket wires the standard alternating minor/major loser rounds
// for a padded winner bracket of R rounds and returns the loser final.
func (b *builder) buildLoserBracket(winnerRounds [][]*models.Match) *models.Match {
	// Round 1 of the loser bracket: losers of adjacent winner-round-1
	// matches meet.
	wb1 := winnerRounds[0]
	var current []*models.Match
	for i := 0; i < len(wb1); i += 2 {
		m := b.newMatch(models.SideLosers, true)
		feedLoser(wb1[i], m, true)
		feedLoser(wb1[i+1], m, false)
		current = append(current, m)
	}

	// Each subsequent winner round k feeds its losers into a minor round
	// against the survivors, then a major round halves the field.
	for k := 1; k < len(winnerRounds); k++ {
		wbRound := winnerRounds[k]
		minor := make([]*models.Match, 0, len(wbRound))
		for i, wbMatch := range wbRound {
			m := b.newMatch(models.SideLosers, true)
			feedWinner(current[i], m, true)
			feedLoser(wbMatch, m, false)
			minor = append(minor, m)
		}
		if len(minor) == 1 {
			return minor[0]
		}
		major := make([]*models.Match, 0, len(minor)/2)
		for i := 0; i < len(minor); i += 2 {
			m := b.newMatch(models.SideLosers, true)
			feedWinner(minor[i], m, true)
			feedWinner(minor[i+1], m, false)
			major = append(major, m)
		}
		current = major
	}
	return current[0]
}

func (b *builder) newMatch(side models.BracketSide, losers bool) *models.Match {
	b.nextIdx++
	s := side
	return b.track(&models.Match{
		ID:            uuid.NewString(),
		EventID:       b.params.EventID,
		DivisionID:    b.params.DivisionID,
		MatchID:       b.nextIdx,
		Side:          &s,
		LosersBracket: losers,
	})
}

func (b *builder) track(m *models.Match) *models.Match {
	b.out = append(b.out, m)
	return m
}

// attach fills one slot of a match either with a directly seeded team or
// with the advancement edge from the feeding match.
func (b *builder) attach(m *models.Match, n *node, left bool) {
	if n.teamID != nil {
		if left {
			m.Team1ID, m.Team1Seed = n.teamID, n.seed
		} else {
			m.Team2ID, m.Team2Seed = n.teamID, n.seed
		}
		return
	}
	feedWinner(n.src, m, left)
}

func feedWinner(src, dst *models.Match, left bool) {
	src.WinnerNextMatchID = &dst.ID
	if left {
		dst.PreviousLeftID = &src.ID
	} else {
		dst.PreviousRightID = &src.ID
	}
}

func feedLoser(src, dst *models.Match, left bool) {
	src.LoserNextMatchID = &dst.ID
	if left {
		dst.PreviousLeftID = &src.ID
	} else {
		dst.PreviousRightID = &src.ID
	}
}

func seedOf(t models.Team, fallback int) int {
	if t.Seed != nil {
		return *t.Seed
	}
	return fallback + 1000 // unseeded teams keep input order after seeded ones
}

// seedOrder lays seeds into bracket positions so the top seed meets the
// lowest surviving seed each round: [1 2] -> [1 4 3 2] -> [1 8 5 4 3 6 7 2].
func seedOrder(size int) []int {
	order := []int{1}
	for len(order) < size {
		doubled := make([]int, 0, len(order)*2)
		mirror := len(order)*2 + 1
		for _, s := range order {
			doubled = append(doubled, s, mirror-s)
		}
		order = doubled
	}
	return order
}

func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
