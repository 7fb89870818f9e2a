package tournament

import (
	"errors"
	"fmt"
	"math/bits"
	"slices"
	"strconv"
	"strings"

	"github.com/homme-x/PES-Tournament-Manager/internal/model"
)

var (
	ErrTieUndecided  = errors.New("tie has no winner yet")
	ErrNoChampion    = errors.New("knockout stage has no champion yet")
	ErrRoundOverflow = errors.New("bracket has more rounds than round labels")
)

const (
	knockoutPrefix = "KO"
	firstRoundKey  = "R1"
)

// GenerateKnockoutStage builds the first round of the knockout bracket.
//
// Qualifier i meets qualifier n-1-i over two legs; the first leg is hosted
// by qualifier i. Both legs are labelled R16 and point at the quarter
// final slot KO-QF-<i/2>-1 that the tie winner feeds. Later rounds are
// created by AdvanceKnockout once results are in. The qualifier count is
// not validated; an odd count leaves the middle qualifier unpaired.
func GenerateKnockoutStage(qualifiers []model.Player) []model.KnockoutMatch {
	n := len(qualifiers)
	matches := make([]model.KnockoutMatch, 0, n)
	for i := 0; i < n/2; i++ {
		home := qualifiers[i].ID
		away := qualifiers[n-1-i].ID
		next := matchID(string(model.QuarterFinal), i/2, 1)

		matches = append(matches,
			model.KnockoutMatch{
				ID:           matchID(firstRoundKey, i, 1),
				Round:        model.RoundOf16,
				Leg:          model.LegFirst,
				HomePlayerID: home,
				AwayPlayerID: away,
				NextMatchID:  next,
			},
			model.KnockoutMatch{
				ID:           matchID(firstRoundKey, i, 2),
				Round:        model.RoundOf16,
				Leg:          model.LegSecond,
				HomePlayerID: away,
				AwayPlayerID: home,
				NextMatchID:  next,
			},
		)
	}
	return matches
}

func matchID(roundKey string, pair, leg int) string {
	return fmt.Sprintf("%s-%s-%d-%d", knockoutPrefix, roundKey, pair, leg)
}

func tieKey(roundKey string, pair int) string {
	return fmt.Sprintf("%s-%s-%d", knockoutPrefix, roundKey, pair)
}

// splitMatchID decodes KO-<round>-<pair>-<leg>.
func splitMatchID(id string) (roundKey string, pair, leg int, ok bool) {
	parts := strings.Split(id, "-")
	if len(parts) != 4 || parts[0] != knockoutPrefix {
		return "", 0, 0, false
	}
	pair, err := strconv.Atoi(parts[2])
	if err != nil {
		return "", 0, 0, false
	}
	leg, err = strconv.Atoi(parts[3])
	if err != nil {
		return "", 0, 0, false
	}
	return parts[1], pair, leg, true
}

// Tie is the pair of legs played between the same two opponents.
type Tie struct {
	Key    string
	Round  model.Round
	Pair   int
	First  model.KnockoutMatch
	Second model.KnockoutMatch
}

// Ties groups knockout legs into ties, in the order their first legs appear.
// Legs whose id does not follow the bracket naming are ignored.
func Ties(matches []model.KnockoutMatch) []Tie {
	ties := make([]Tie, 0, len(matches)/2)
	position := make(map[string]int)
	for _, m := range matches {
		roundKey, pair, leg, ok := splitMatchID(m.ID)
		if !ok {
			continue
		}
		key := tieKey(roundKey, pair)
		i, seen := position[key]
		if !seen {
			ties = append(ties, Tie{Key: key, Round: m.Round, Pair: pair})
			i = len(ties) - 1
			position[key] = i
		}
		if leg == 1 {
			ties[i].First = m
		} else {
			ties[i].Second = m
		}
	}
	return ties
}

// Decided reports whether both legs have a result.
func (t Tie) Decided() bool {
	return t.First.Played && t.Second.Played &&
		t.First.HomeScore != nil && t.First.AwayScore != nil &&
		t.Second.HomeScore != nil && t.Second.AwayScore != nil
}

// Aggregate returns the goals over both legs of the first-leg home player
// and of the first-leg away player. Unplayed legs count as zero.
func (t Tie) Aggregate() (home, away int) {
	home = score(t.First.HomeScore) + score(t.Second.AwayScore)
	away = score(t.First.AwayScore) + score(t.Second.HomeScore)
	return home, away
}

// Winner returns the player id with the higher aggregate. A level
// aggregate goes to the player with more goals scored away from home, then
// to the winner of the shootout recorded on the second leg.
func (t Tie) Winner() (string, error) {
	if !t.Decided() {
		return "", ErrTieUndecided
	}
	if winner, ok := t.winnerInPlay(); ok {
		return winner, nil
	}
	home, away := t.Second.HomePenalties, t.Second.AwayPenalties
	if home == nil || away == nil || *home == *away {
		return "", ErrTieUndecided
	}
	// The second leg is hosted by the first-leg away player.
	if *home > *away {
		return t.First.AwayPlayerID, nil
	}
	return t.First.HomePlayerID, nil
}

// NeedsShootout reports whether both legs are played and neither the
// aggregate nor away goals separate the players.
func (t Tie) NeedsShootout() bool {
	if !t.Decided() {
		return false
	}
	_, ok := t.winnerInPlay()
	return !ok
}

func (t Tie) winnerInPlay() (string, bool) {
	home, away := t.Aggregate()
	switch {
	case home > away:
		return t.First.HomePlayerID, true
	case away > home:
		return t.First.AwayPlayerID, true
	}
	homeAway := score(t.Second.AwayScore)
	awayAway := score(t.First.AwayScore)
	switch {
	case homeAway > awayAway:
		return t.First.HomePlayerID, true
	case awayAway > homeAway:
		return t.First.AwayPlayerID, true
	}
	return "", false
}

// TieOf returns the tie a knockout leg belongs to.
func TieOf(matches []model.KnockoutMatch, matchID string) (Tie, bool) {
	roundKey, pair, _, ok := splitMatchID(matchID)
	if !ok {
		return Tie{}, false
	}
	key := tieKey(roundKey, pair)
	for _, t := range Ties(matches) {
		if t.Key == key {
			return t, true
		}
	}
	return Tie{}, false
}

// StageName labels a round by the number of ties a complete bracket has in
// it: one tie is the final, two are the semi-finals and so on. Round labels
// come from next-match ids and can lag behind the stage.
func StageName(ties []Tie, round model.Round) model.Round {
	n := expectedTies(ties, round)
	if n == 0 || n&(n-1) != 0 {
		return round
	}
	idx := len(model.Rounds) - 1 - bits.TrailingZeros(uint(n))
	if idx < 0 {
		return round
	}
	return model.Rounds[idx]
}

func score(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

// Champion returns the winner of the final tie.
func Champion(matches []model.KnockoutMatch) (string, error) {
	final, ok := finalTie(Ties(matches))
	if !ok {
		return "", ErrNoChampion
	}
	winner, err := final.Winner()
	if err != nil {
		return "", ErrNoChampion
	}
	return winner, nil
}

// finalTie returns the tie of the last round once it exists.
func finalTie(ties []Tie) (Tie, bool) {
	last, ok := lastRound(ties)
	if !ok {
		return Tie{}, false
	}
	for _, t := range ties {
		if t.Round == last {
			return t, true
		}
	}
	return Tie{}, false
}

// lastRound derives the label of the final from the size of the first
// round: every round halves the number of ties until one is left.
func lastRound(ties []Tie) (model.Round, bool) {
	first := roundCount(ties, model.RoundOf16)
	if first == 0 || first&(first-1) != 0 {
		return "", false
	}
	idx := bits.TrailingZeros(uint(first))
	if idx >= len(model.Rounds) {
		return "", false
	}
	return model.Rounds[idx], true
}

// expectedTies is the number of ties a complete bracket has in round.
func expectedTies(ties []Tie, round model.Round) int {
	idx := slices.Index(model.Rounds, round)
	if idx < 0 {
		return 0
	}
	return roundCount(ties, model.RoundOf16) >> idx
}

func roundCount(ties []Tie, round model.Round) int {
	n := 0
	for _, t := range ties {
		if t.Round == round {
			n++
		}
	}
	return n
}
