package tournament

import (
	"slices"
	"strings"

	"github.com/homme-x/PES-Tournament-Manager/internal/model"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

const (
	pointsWin  = 3
	pointsDraw = 1
)

// UpdatePoolStandings recomputes the record of every player of the pool
// from its match list and returns the roster in ranking order.
//
// The roster of the pool is not modified; the returned slice is a fresh
// copy that the caller stores back. Records are rebuilt from zero on
// every call, so the result does not depend on the order in which scores
// were reported. Matches without both scores are ignored, as are matches
// that reference a player missing from the roster.
func UpdatePoolStandings(pool model.Pool) []model.Player {
	players := make([]model.Player, len(pool.Players))
	copy(players, pool.Players)

	index := make(map[string]int, len(players))
	for i := range players {
		players[i].ResetRecord()
		index[players[i].ID] = i
	}

	for _, m := range pool.Matches {
		if !m.Played || m.HomeScore == nil || m.AwayScore == nil {
			continue
		}
		hi, okHome := index[m.HomePlayerID]
		ai, okAway := index[m.AwayPlayerID]
		if !okHome || !okAway {
			continue
		}
		applyResult(&players[hi], &players[ai], *m.HomeScore, *m.AwayScore)
	}

	RankPlayers(players)
	return players
}

func applyResult(home, away *model.Player, homeScore, awayScore int) {
	home.GoalsFor += homeScore
	home.GoalsAgainst += awayScore
	away.GoalsFor += awayScore
	away.GoalsAgainst += homeScore

	home.Played++
	away.Played++

	switch {
	case homeScore > awayScore:
		home.Points += pointsWin
		home.Won++
		away.Lost++
	case homeScore < awayScore:
		away.Points += pointsWin
		away.Won++
		home.Lost++
	default:
		home.Points += pointsDraw
		away.Points += pointsDraw
		home.Drawn++
		away.Drawn++
	}

	home.GoalDifference = home.GoalsFor - home.GoalsAgainst
	away.GoalDifference = away.GoalsFor - away.GoalsAgainst
}

// RankPlayers sorts in place by points, goal difference and goals scored,
// all descending, then by name.
func RankPlayers(players []model.Player) {
	// Collators keep internal buffers and must not be shared between goroutines.
	names := collate.New(language.Und)
	slices.SortStableFunc(players, func(a, b model.Player) int {
		if a.Points != b.Points {
			return b.Points - a.Points
		}
		if a.GoalDifference != b.GoalDifference {
			return b.GoalDifference - a.GoalDifference
		}
		if a.GoalsFor != b.GoalsFor {
			return b.GoalsFor - a.GoalsFor
		}
		if c := names.CompareString(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
}
