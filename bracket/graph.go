// Package bracket builds and maintains elimination bracket graphs. A bracket
// is a DAG of matches connected by winner/loser advancement edges with
// back-pointers from each match to the two matches feeding it. All functions
// operate on an explicitly passed snapshot and perform no I/O.
package bracket

import (
	"errors"
	"fmt"
	"sort"

	"github.com/matchgrid/matchgrid/models"
)

var (
	ErrMatchNotFound   = errors.New("match not found in bracket")
	ErrUnknownEdge     = errors.New("advancement edge points to an unknown match")
	ErrCycle           = errors.New("bracket contains an advancement cycle")
	ErrSlotMismatch    = errors.New("downstream match has no previous-slot for this match")
	ErrDanglingPointer = errors.New("previous-match pointer references an unknown match")
)

// Graph is an arena of matches indexed by id. Structural validity is checked
// explicitly after mutation instead of trusting pointer-chasing, which cannot
// detect a cycle safely.
type Graph struct {
	matches map[string]*models.Match
}

func NewGraph(matches []*models.Match) *Graph {
	g := &Graph{matches: make(map[string]*models.Match, len(matches))}
	for _, m := range matches {
		g.matches[m.ID] = m
	}
	return g
}

func (g *Graph) Get(id string) (*models.Match, bool) {
	m, ok := g.matches[id]
	return m, ok
}

func (g *Graph) Add(m *models.Match) {
	g.matches[m.ID] = m
}

func (g *Graph) Remove(id string) {
	delete(g.matches, id)
}

func (g *Graph) Len() int {
	return len(g.matches)
}

// All returns the matches ordered by seed index, then id for stability.
func (g *Graph) All() []*models.Match {
	out := make([]*models.Match, 0, len(g.matches))
	for _, m := range g.matches {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MatchID != out[j].MatchID {
			return out[i].MatchID < out[j].MatchID
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Validate checks referential integrity of every advancement edge and
// back-pointer, and that the winner/loser edges form a DAG. It must be run
// after every structural mutation.
func (g *Graph) Validate() error {
	for _, m := range g.matches {
		for _, ref := range []*string{m.WinnerNextMatchID, m.LoserNextMatchID} {
			if ref == nil {
				continue
			}
			if *ref == m.ID {
				return fmt.Errorf("%w: match %s advances into itself", ErrCycle, m.ID)
			}
			next, ok := g.matches[*ref]
			if !ok {
				return fmt.Errorf("%w: match %s -> %s", ErrUnknownEdge, m.ID, *ref)
			}
			if !feedsSlot(next, m.ID) {
				return fmt.Errorf("%w: match %s advances into %s", ErrSlotMismatch, m.ID, next.ID)
			}
		}
		for _, ref := range []*string{m.PreviousLeftID, m.PreviousRightID} {
			if ref == nil {
				continue
			}
			if _, ok := g.matches[*ref]; !ok {
				return fmt.Errorf("%w: match %s <- %s", ErrDanglingPointer, m.ID, *ref)
			}
		}
	}
	return g.checkAcyclic()
}

// checkAcyclic runs Kahn's algorithm over the winner/loser edges.
func (g *Graph) checkAcyclic() error {
	indegree := make(map[string]int, len(g.matches))
	for id := range g.matches {
		indegree[id] = 0
	}
	for _, m := range g.matches {
		for _, ref := range []*string{m.WinnerNextMatchID, m.LoserNextMatchID} {
			if ref != nil {
				indegree[*ref]++
			}
		}
	}

	queue := make([]string, 0, len(g.matches))
	for id, d := range indegree {
		if d == 0 {
			queue = append(queue, id)
		}
	}

	visited := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		visited++
		m := g.matches[id]
		for _, ref := range []*string{m.WinnerNextMatchID, m.LoserNextMatchID} {
			if ref == nil {
				continue
			}
			indegree[*ref]--
			if indegree[*ref] == 0 {
				queue = append(queue, *ref)
			}
		}
	}
	if visited != len(g.matches) {
		return ErrCycle
	}
	return nil
}

// feedsSlot reports whether next lists srcID as one of its feeding matches.
func feedsSlot(next *models.Match, srcID string) bool {
	if next.PreviousLeftID != nil && *next.PreviousLeftID == srcID {
		return true
	}
	if next.PreviousRightID != nil && *next.PreviousRightID == srcID {
		return true
	}
	return false
}
