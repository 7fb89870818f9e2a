package model

import (
	"fmt"
	"strconv"
	"strings"
)

type Phase string
type Leg string
type Round string

const (
	PhaseGroup    Phase = "group"
	PhaseKnockout Phase = "knockout"

	LegFirst  Leg = "first"
	LegSecond Leg = "second"

	RoundOf16    Round = "R16"
	QuarterFinal Round = "QF"
	SemiFinal    Round = "SF"
	Final        Round = "F"
)

// Rounds lists the knockout round labels in playing order.
var Rounds = []Round{RoundOf16, QuarterFinal, SemiFinal, Final}

// Next returns the label following r, or "" for the final.
func (r Round) Next() Round {
	for i, round := range Rounds {
		if round == r && i+1 < len(Rounds) {
			return Rounds[i+1]
		}
	}
	return ""
}

type Player struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Team           string `json:"team"`
	Points         int    `json:"points"`
	Played         int    `json:"played"`
	Won            int    `json:"won"`
	Drawn          int    `json:"drawn"`
	Lost           int    `json:"lost"`
	GoalsFor       int    `json:"goalsFor"`
	GoalsAgainst   int    `json:"goalsAgainst"`
	GoalDifference int    `json:"goalDifference"`
}

// ResetRecord zeroes every derived field, keeping the identity.
func (p *Player) ResetRecord() {
	p.Points = 0
	p.Played = 0
	p.Won = 0
	p.Drawn = 0
	p.Lost = 0
	p.GoalsFor = 0
	p.GoalsAgainst = 0
	p.GoalDifference = 0
}

// PlayerID builds the identifier of the seq-th player (1-based) of a pool.
func PlayerID(poolIndex, seq int) string {
	return fmt.Sprintf("P%d-%d", poolIndex+1, seq)
}

// PoolNumberFromPlayerID returns the 1-based pool number of a player id.
func PoolNumberFromPlayerID(id string) (int, bool) {
	idx, ok := PoolIndexFromPlayerID(id)
	return idx + 1, ok
}

// PoolIndexFromPlayerID decodes the pool index encoded in a player id.
func PoolIndexFromPlayerID(id string) (int, bool) {
	prefix, _, ok := strings.Cut(id, "-")
	if !ok || !strings.HasPrefix(prefix, "P") {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(prefix, "P"))
	if err != nil || n < 1 {
		return 0, false
	}
	return n - 1, true
}

// Match is a round robin fixture. PoolID is the 1-based pool number
// carried in the player ids.
type Match struct {
	ID           string `json:"id"`
	PoolID       int    `json:"poolId"`
	HomePlayerID string `json:"homePlayerId"`
	AwayPlayerID string `json:"awayPlayerId"`
	HomeScore    *int   `json:"homeScore,omitempty"`
	AwayScore    *int   `json:"awayScore,omitempty"`
	Played       bool   `json:"played"`
}

// Pairs reports whether the match is between a and b, in either orientation.
func (m Match) Pairs(a, b string) bool {
	return (m.HomePlayerID == a && m.AwayPlayerID == b) ||
		(m.HomePlayerID == b && m.AwayPlayerID == a)
}

type Pool struct {
	ID               int      `json:"id"`
	Players          []Player `json:"players"`
	Matches          []Match  `json:"matches"`
	MatchesGenerated bool     `json:"matchesGenerated"`
	Completed        bool     `json:"completed"`
}

// Player looks up a roster entry by id.
func (p *Pool) Player(id string) (Player, bool) {
	for _, player := range p.Players {
		if player.ID == id {
			return player, true
		}
	}
	return Player{}, false
}

type KnockoutMatch struct {
	ID           string `json:"id"`
	Round        Round  `json:"round"`
	Leg          Leg    `json:"leg"`
	HomePlayerID string `json:"homePlayerId,omitempty"`
	AwayPlayerID string `json:"awayPlayerId,omitempty"`
	HomeScore    *int   `json:"homeScore,omitempty"`
	AwayScore    *int   `json:"awayScore,omitempty"`
	NextMatchID  string `json:"nextMatchId,omitempty"`
	Played       bool   `json:"played"`
	// Shootout result, only on a second leg that left the tie level.
	HomePenalties *int `json:"homePenalties,omitempty"`
	AwayPenalties *int `json:"awayPenalties,omitempty"`
}

// Populated reports whether both opponents are known.
func (m KnockoutMatch) Populated() bool {
	return m.HomePlayerID != "" && m.AwayPlayerID != ""
}

type Settings struct {
	NumPools          int   `json:"numPools"`
	PlayersPerPool    int   `json:"playersPerPool"`
	QualifiersPerPool int   `json:"qualifiersPerPool"`
	CurrentPhase      Phase `json:"currentPhase"`
}

func DefaultSettings() Settings {
	return Settings{
		NumPools:          2,
		PlayersPerPool:    4,
		QualifiersPerPool: 2,
		CurrentPhase:      PhaseGroup,
	}
}

// IntPtr is a helper for optional scores.
func IntPtr(v int) *int {
	return &v
}
