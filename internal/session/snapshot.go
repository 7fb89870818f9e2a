package session

import (
	"slices"
	"time"

	"github.com/homme-x/PES-Tournament-Manager/internal/model"
	"github.com/homme-x/PES-Tournament-Manager/internal/tournament"
)

// Snapshot is a detached copy of a session, safe to render or encode
// while the session keeps changing.
type Snapshot struct {
	ID        string                `json:"id"`
	CreatedAt time.Time             `json:"createdAt"`
	Settings  model.Settings        `json:"settings"`
	Pools     []model.Pool          `json:"pools"`
	Knockout  []model.KnockoutMatch `json:"knockout"`
	Bracket   []BracketRound        `json:"bracket,omitempty"`
	Champion  *model.Player         `json:"champion,omitempty"`
}

// BracketRound holds the ties sharing a round label. Stage names the
// round by how many ties it has, which is what clients should display.
type BracketRound struct {
	Round model.Round `json:"round"`
	Stage model.Round `json:"stage"`
	Ties  []TieView   `json:"ties"`
}

type TieView struct {
	Key           string              `json:"key"`
	First         model.KnockoutMatch `json:"first"`
	Second        model.KnockoutMatch `json:"second"`
	HomeAggregate int                 `json:"homeAggregate"`
	AwayAggregate int                 `json:"awayAggregate"`
	WinnerID      string              `json:"winnerId,omitempty"`
}

func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		ID:        s.ID,
		CreatedAt: s.CreatedAt,
		Settings:  s.settings,
		Pools:     s.Pools(),
		Knockout:  s.Knockout(),
		Bracket:   s.Bracket(),
	}
	if champion, ok := s.Champion(); ok {
		snap.Champion = &champion
	}
	return snap
}

// Bracket groups the knockout legs into ties, round after round, with
// feeding ties ahead of the tie they feed.
func (s *Session) Bracket() []BracketRound {
	if len(s.knockout) == 0 {
		return nil
	}
	ties := tournament.Ties(s.knockout)
	byKey := make(map[string]tournament.Tie, len(ties))
	for _, t := range ties {
		byKey[t.Key] = t
	}

	keys := make([]string, 0, len(ties))
	if fg, err := tournament.NewFeedGraph(s.knockout); err == nil {
		if order, err := fg.Order(); err == nil {
			keys = order
		}
	}
	if len(keys) == 0 {
		for _, t := range ties {
			keys = append(keys, t.Key)
		}
	}

	var rounds []BracketRound
	for _, key := range keys {
		t, ok := byKey[key]
		if !ok {
			// slot without legs yet
			continue
		}
		home, away := t.Aggregate()
		view := TieView{
			Key:           t.Key,
			First:         cloneKnockoutMatch(t.First),
			Second:        cloneKnockoutMatch(t.Second),
			HomeAggregate: home,
			AwayAggregate: away,
		}
		if winner, err := t.Winner(); err == nil {
			view.WinnerID = winner
		}
		if n := len(rounds); n == 0 || rounds[n-1].Round != t.Round {
			rounds = append(rounds, BracketRound{Round: t.Round, Stage: tournament.StageName(ties, t.Round)})
		}
		rounds[len(rounds)-1].Ties = append(rounds[len(rounds)-1].Ties, view)
	}
	return rounds
}

func cloneScore(v *int) *int {
	if v == nil {
		return nil
	}
	return model.IntPtr(*v)
}

func cloneMatch(m model.Match) model.Match {
	m.HomeScore = cloneScore(m.HomeScore)
	m.AwayScore = cloneScore(m.AwayScore)
	return m
}

func cloneKnockoutMatch(m model.KnockoutMatch) model.KnockoutMatch {
	m.HomeScore = cloneScore(m.HomeScore)
	m.AwayScore = cloneScore(m.AwayScore)
	m.HomePenalties = cloneScore(m.HomePenalties)
	m.AwayPenalties = cloneScore(m.AwayPenalties)
	return m
}

func clonePool(p model.Pool) model.Pool {
	p.Players = slices.Clone(p.Players)
	matches := make([]model.Match, len(p.Matches))
	for i, m := range p.Matches {
		matches[i] = cloneMatch(m)
	}
	p.Matches = matches
	return p
}

func cloneKnockout(matches []model.KnockoutMatch) []model.KnockoutMatch {
	out := make([]model.KnockoutMatch, len(matches))
	for i, m := range matches {
		out[i] = cloneKnockoutMatch(m)
	}
	return out
}
