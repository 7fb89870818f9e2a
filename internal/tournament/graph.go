package tournament

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/dominikbraun/graph"
	"github.com/homme-x/PES-Tournament-Manager/internal/model"
)

// A FeedGraph has the ties of a knockout stage as its nodes. A directed
// edge goes from a tie to the next-round slot its winner is sent to, so
// every slot has the ties feeding it as predecessors. Slots that have no
// legs yet are nodes as well.
type FeedGraph struct {
	graph   graph.Graph[string, string]
	ties    map[string]Tie
	targets []feedTarget
}

type feedTarget struct {
	key   string
	round model.Round
	pair  int
}

func NewFeedGraph(matches []model.KnockoutMatch) (*FeedGraph, error) {
	g := graph.New(graph.StringHash, graph.Directed(), graph.Acyclic())
	ties := Ties(matches)
	fg := &FeedGraph{
		graph: g,
		ties:  make(map[string]Tie, len(ties)),
	}

	for _, t := range ties {
		fg.ties[t.Key] = t
		if err := addVertex(g, t.Key); err != nil {
			return nil, err
		}
	}

	for _, t := range ties {
		next := t.First.NextMatchID
		if next == "" {
			continue
		}
		roundKey, pair, _, ok := splitMatchID(next)
		if !ok {
			return nil, fmt.Errorf("tie %s: malformed next match id %q", t.Key, next)
		}
		target := tieKey(roundKey, pair)
		if err := addVertex(g, target); err != nil {
			return nil, err
		}
		if !slices.ContainsFunc(fg.targets, func(ft feedTarget) bool { return ft.key == target }) {
			fg.targets = append(fg.targets, feedTarget{key: target, round: model.Round(roundKey), pair: pair})
		}
		err := g.AddEdge(t.Key, target)
		if err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
			return nil, fmt.Errorf("link tie %s to %s: %w", t.Key, target, err)
		}
	}

	return fg, nil
}

func addVertex(g graph.Graph[string, string], key string) error {
	err := g.AddVertex(key)
	if err != nil && !errors.Is(err, graph.ErrVertexAlreadyExists) {
		return fmt.Errorf("add bracket node %s: %w", key, err)
	}
	return nil
}

// Feeders returns the ties whose winners go to the given next match, by
// pair index. The winner of the first feeder hosts the first leg.
func (f *FeedGraph) Feeders(nextMatchID string) []Tie {
	target := nextMatchID
	if roundKey, pair, _, ok := splitMatchID(nextMatchID); ok {
		target = tieKey(roundKey, pair)
	}
	predecessors, err := f.graph.PredecessorMap()
	if err != nil {
		return nil
	}
	feeders := make([]Tie, 0, 2)
	for key := range predecessors[target] {
		feeders = append(feeders, f.ties[key])
	}
	slices.SortFunc(feeders, func(a, b Tie) int { return a.Pair - b.Pair })
	return feeders
}

// Order returns the tie keys and slots so that every node comes after the
// ties feeding it.
func (f *FeedGraph) Order() ([]string, error) {
	return graph.StableTopologicalSort(f.graph, func(a, b string) bool {
		return compareKeys(a, b) < 0
	})
}

// compareKeys orders KO-<round>-<pair> keys by round, then pair.
func compareKeys(a, b string) int {
	ra, pa := splitKey(a)
	rb, pb := splitKey(b)
	if ra != rb {
		return roundIndex(ra) - roundIndex(rb)
	}
	return pa - pb
}

func splitKey(key string) (string, int) {
	parts := strings.Split(key, "-")
	if len(parts) < 3 {
		return key, 0
	}
	pair, _ := strconv.Atoi(parts[2])
	return parts[1], pair
}

func roundIndex(roundKey string) int {
	if roundKey == firstRoundKey {
		return 0
	}
	return slices.Index(model.Rounds, model.Round(roundKey))
}

// AdvanceKnockout appends the legs of every next-round tie whose two
// feeding ties are decided and which has not been created yet. A tie in a
// round that only holds one tie is the final and points nowhere.
func AdvanceKnockout(matches []model.KnockoutMatch) ([]model.KnockoutMatch, error) {
	fg, err := NewFeedGraph(matches)
	if err != nil {
		return nil, err
	}
	ties := Ties(matches)

	advanced := slices.Clone(matches)
	for _, target := range fg.targets {
		if _, exists := fg.ties[target.key]; exists {
			continue
		}
		feeders := fg.Feeders(target.key)
		if len(feeders) != 2 {
			continue
		}
		home, err := feeders[0].Winner()
		if err != nil {
			continue
		}
		away, err := feeders[1].Winner()
		if err != nil {
			continue
		}

		next := ""
		if expectedTies(ties, target.round) > 1 {
			nextRound := target.round.Next()
			if nextRound == "" {
				return nil, ErrRoundOverflow
			}
			next = matchID(string(nextRound), target.pair/2, 1)
		}

		roundKey := string(target.round)
		advanced = append(advanced,
			model.KnockoutMatch{
				ID:           matchID(roundKey, target.pair, 1),
				Round:        target.round,
				Leg:          model.LegFirst,
				HomePlayerID: home,
				AwayPlayerID: away,
				NextMatchID:  next,
			},
			model.KnockoutMatch{
				ID:           matchID(roundKey, target.pair, 2),
				Round:        target.round,
				Leg:          model.LegSecond,
				HomePlayerID: away,
				AwayPlayerID: home,
				NextMatchID:  next,
			},
		)
	}
	return advanced, nil
}
