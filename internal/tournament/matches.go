package tournament

import (
	"fmt"

	"github.com/homme-x/PES-Tournament-Manager/internal/model"
)

// GeneratePoolMatches creates the single round robin of a pool.
//
// Every unordered pair is played once. The player that comes first in
// the input plays at home, so the schedule is reproducible from the
// roster order alone. Callers are expected to call this once, when the
// pool has just reached its capacity.
func GeneratePoolMatches(players []model.Player) []model.Match {
	n := len(players)
	if n < 2 {
		return []model.Match{}
	}
	matches := make([]model.Match, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			home := players[i]
			away := players[j]
			poolID, ok := model.PoolNumberFromPlayerID(home.ID)
			if !ok {
				poolID = 0
			}
			matches = append(matches, model.Match{
				ID:           fmt.Sprintf("M%s-%s", home.ID, away.ID),
				PoolID:       poolID,
				HomePlayerID: home.ID,
				AwayPlayerID: away.ID,
			})
		}
	}
	return matches
}

// IsPoolCompleted reports whether no match of the pool is left to play.
// An empty match list is complete.
func IsPoolCompleted(pool model.Pool) bool {
	for _, m := range pool.Matches {
		if !m.Played {
			return false
		}
	}
	return true
}
