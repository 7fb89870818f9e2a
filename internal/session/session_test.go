package session

import (
	"errors"
	"fmt"
	"testing"

	"github.com/homme-x/PES-Tournament-Manager/internal/model"
)

func newSession(t *testing.T, pools, players, qualifiers int) *Session {
	t.Helper()
	s, err := New("test", model.Settings{NumPools: pools, PlayersPerPool: players, QualifiersPerPool: qualifiers})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func fill(t *testing.T, s *Session) {
	t.Helper()
	for pool := 0; pool < s.Settings().NumPools; pool++ {
		for i := 0; i < s.Settings().PlayersPerPool; i++ {
			name := fmt.Sprintf("Player %d.%d", pool+1, i+1)
			if _, err := s.AddPlayer(pool, name, "Team "+name); err != nil {
				t.Fatal(err)
			}
		}
	}
}

// playHomeWins gives every pool match a 1-0 home win, so each pool ranks
// its players in registration order.
func playHomeWins(t *testing.T, s *Session) {
	t.Helper()
	for i, pool := range s.Pools() {
		for _, m := range pool.Matches {
			if _, err := s.SubmitScore(i, m.HomePlayerID, m.AwayPlayerID, 1, 0); err != nil {
				t.Fatal(err)
			}
		}
	}
}

func TestNewValidatesSettings(t *testing.T) {
	invalid := []model.Settings{
		{NumPools: 0, PlayersPerPool: 4, QualifiersPerPool: 2},
		{NumPools: 2, PlayersPerPool: 1, QualifiersPerPool: 1},
		{NumPools: 2, PlayersPerPool: 4, QualifiersPerPool: 0},
		{NumPools: 2, PlayersPerPool: 4, QualifiersPerPool: 5},
	}
	for _, settings := range invalid {
		if _, err := New("x", settings); !errors.Is(err, ErrInvalidSettings) {
			t.Fatalf("%+v: expected ErrInvalidSettings, got %v", settings, err)
		}
	}

	s, err := New("x", model.Settings{NumPools: 3, PlayersPerPool: 4, QualifiersPerPool: 2, CurrentPhase: model.PhaseKnockout})
	if err != nil {
		t.Fatal(err)
	}
	if s.Settings().CurrentPhase != model.PhaseGroup {
		t.Fatalf("a new session starts in the group phase, got %s", s.Settings().CurrentPhase)
	}
	if len(s.Pools()) != 3 {
		t.Fatalf("expected 3 pools, got %d", len(s.Pools()))
	}
}

func TestAddPlayer(t *testing.T) {
	s := newSession(t, 2, 4, 2)

	if _, err := s.AddPlayer(0, "  ", "Milan"); !errors.Is(err, ErrInvalidPlayer) {
		t.Fatalf("expected ErrInvalidPlayer, got %v", err)
	}
	if _, err := s.AddPlayer(2, "Ana", "Milan"); !errors.Is(err, ErrPoolNotFound) {
		t.Fatalf("expected ErrPoolNotFound, got %v", err)
	}

	for i, name := range []string{"Ana", "Ben", "Cid"} {
		p, err := s.AddPlayer(1, " "+name+" ", "Inter")
		if err != nil {
			t.Fatal(err)
		}
		if p.ID != fmt.Sprintf("P2-%d", i+1) || p.Name != name {
			t.Fatalf("unexpected player %+v", p)
		}
		if s.Pools()[1].MatchesGenerated {
			t.Fatal("matches should wait for the pool to be full")
		}
	}

	if _, err := s.AddPlayer(1, "Dan", "Inter"); err != nil {
		t.Fatal(err)
	}
	pool := s.Pools()[1]
	if !pool.MatchesGenerated || len(pool.Matches) != 6 {
		t.Fatalf("expected 6 generated matches, got %d (generated=%v)", len(pool.Matches), pool.MatchesGenerated)
	}
	if _, err := s.AddPlayer(1, "Eva", "Inter"); !errors.Is(err, ErrPoolFull) {
		t.Fatalf("expected ErrPoolFull, got %v", err)
	}
}

func TestSubmitScore(t *testing.T) {
	s := newSession(t, 1, 3, 2)
	fill(t, s)

	// Scores follow the order of the given ids, the match keeps its own.
	m, err := s.SubmitScore(0, "P1-2", "P1-1", 1, 3)
	if err != nil {
		t.Fatal(err)
	}
	if m.HomePlayerID != "P1-1" || *m.HomeScore != 3 || *m.AwayScore != 1 || !m.Played {
		t.Fatalf("unexpected match %+v", m)
	}

	if _, err := s.SubmitScore(0, "P1-1", "P1-2", 0, 0); !errors.Is(err, ErrMatchAlreadyPlayed) {
		t.Fatalf("expected ErrMatchAlreadyPlayed, got %v", err)
	}
	if _, err := s.SubmitScore(0, "P1-1", "P1-9", 1, 0); !errors.Is(err, ErrMatchNotFound) {
		t.Fatalf("expected ErrMatchNotFound, got %v", err)
	}
	if _, err := s.SubmitScore(0, "P1-1", "P1-3", -1, 0); !errors.Is(err, ErrInvalidScore) {
		t.Fatalf("expected ErrInvalidScore, got %v", err)
	}

	standings, err := s.Standings(0)
	if err != nil {
		t.Fatal(err)
	}
	if standings[0].ID != "P1-1" || standings[0].Points != 3 || standings[0].GoalDifference != 2 {
		t.Fatalf("expected P1-1 on top with 3 points, got %+v", standings[0])
	}
	if s.Pools()[0].Completed {
		t.Fatal("pool with unplayed matches is not completed")
	}
	if got := len(s.PlayedMatches()); got != 1 {
		t.Fatalf("expected 1 played match, got %d", got)
	}

	if _, err := s.SubmitScore(0, "P1-1", "P1-3", 0, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SubmitScore(0, "P1-3", "P1-2", 2, 2); err != nil {
		t.Fatal(err)
	}
	if !s.Pools()[0].Completed {
		t.Fatal("pool should be completed after its last match")
	}

	var ids []string
	for _, m := range s.PlayedMatches() {
		ids = append(ids, m.ID)
	}
	if fmt.Sprint(ids) != "[MP1-2-P1-3 MP1-1-P1-3 MP1-1-P1-2]" {
		t.Fatalf("expected the history newest id first, got %v", ids)
	}
}

func TestStartKnockoutRequiresCompletedPools(t *testing.T) {
	s := newSession(t, 2, 2, 1)
	if s.AllPoolsCompleted() {
		t.Fatal("pools without generated matches must not count as completed")
	}
	if _, err := s.StartKnockout(); !errors.Is(err, ErrPoolsIncomplete) {
		t.Fatalf("expected ErrPoolsIncomplete, got %v", err)
	}

	fill(t, s)
	if _, err := s.StartKnockout(); !errors.Is(err, ErrPoolsIncomplete) {
		t.Fatalf("expected ErrPoolsIncomplete, got %v", err)
	}
}

func TestStartKnockoutBracketSize(t *testing.T) {
	s := newSession(t, 3, 2, 1)
	fill(t, s)
	playHomeWins(t, s)
	if _, err := s.StartKnockout(); !errors.Is(err, ErrBracketSize) {
		t.Fatalf("expected ErrBracketSize for 3 qualifiers, got %v", err)
	}
	if s.Settings().CurrentPhase != model.PhaseGroup {
		t.Fatal("a rejected start must not leave the group phase")
	}
}

func TestTwoQualifierTournament(t *testing.T) {
	s := newSession(t, 2, 2, 1)
	fill(t, s)
	if _, err := s.SubmitScore(0, "P1-1", "P1-2", 2, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SubmitScore(1, "P2-1", "P2-2", 0, 1); err != nil {
		t.Fatal(err)
	}

	legs, err := s.StartKnockout()
	if err != nil {
		t.Fatal(err)
	}
	if len(legs) != 2 || legs[0].HomePlayerID != "P1-1" || legs[0].AwayPlayerID != "P2-2" {
		t.Fatalf("unexpected bracket %+v", legs)
	}
	if s.Settings().CurrentPhase != model.PhaseKnockout {
		t.Fatal("expected the knockout phase")
	}

	if _, err := s.AddPlayer(0, "Late", "Roma"); !errors.Is(err, ErrWrongPhase) {
		t.Fatalf("expected ErrWrongPhase, got %v", err)
	}
	if err := s.UpdateSettings(model.DefaultSettings()); !errors.Is(err, ErrWrongPhase) {
		t.Fatalf("expected ErrWrongPhase, got %v", err)
	}
	if _, err := s.StartKnockout(); !errors.Is(err, ErrWrongPhase) {
		t.Fatalf("expected ErrWrongPhase, got %v", err)
	}
	if _, err := s.SubmitKnockoutScore("KO-R1-7-1", 1, 0, nil); !errors.Is(err, ErrKnockoutMatchNotFound) {
		t.Fatalf("expected ErrKnockoutMatchNotFound, got %v", err)
	}

	if _, err := s.SubmitKnockoutScore("KO-R1-0-1", 1, 0, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SubmitKnockoutScore("KO-R1-0-1", 1, 0, nil); !errors.Is(err, ErrMatchAlreadyPlayed) {
		t.Fatalf("expected ErrMatchAlreadyPlayed, got %v", err)
	}
	if _, ok := s.Champion(); ok {
		t.Fatal("no champion before the second leg")
	}
	if _, err := s.SubmitKnockoutScore("KO-R1-0-2", 0, 0, nil); err != nil {
		t.Fatal(err)
	}

	champion, ok := s.Champion()
	if !ok || champion.ID != "P1-1" {
		t.Fatalf("expected P1-1 to win, got %+v (%v)", champion, ok)
	}
}

func TestFourQualifierTournament(t *testing.T) {
	s := newSession(t, 2, 4, 2)
	fill(t, s)
	playHomeWins(t, s)

	qualified := s.Qualifiers()
	ids := []string{qualified[0].ID, qualified[1].ID, qualified[2].ID, qualified[3].ID}
	if fmt.Sprint(ids) != "[P1-1 P1-2 P2-1 P2-2]" {
		t.Fatalf("unexpected qualifiers %v", ids)
	}

	if _, err := s.StartKnockout(); err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"KO-R1-0-1", "KO-R1-1-1"} {
		if _, err := s.SubmitKnockoutScore(id, 2, 0, nil); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.SubmitKnockoutScore("KO-QF-0-1", 1, 0, nil); !errors.Is(err, ErrKnockoutMatchNotFound) {
		t.Fatalf("the final should not exist yet, got %v", err)
	}
	for _, id := range []string{"KO-R1-0-2", "KO-R1-1-2"} {
		if _, err := s.SubmitKnockoutScore(id, 1, 0, nil); err != nil {
			t.Fatal(err)
		}
	}

	ko := s.Knockout()
	if len(ko) != 6 {
		t.Fatalf("expected the final to be drawn, got %d legs", len(ko))
	}
	if ko[4].ID != "KO-QF-0-1" || ko[4].HomePlayerID != "P1-1" || ko[4].AwayPlayerID != "P1-2" {
		t.Fatalf("unexpected final %+v", ko[4])
	}

	bracket := s.Bracket()
	if len(bracket) != 2 || len(bracket[0].Ties) != 2 || len(bracket[1].Ties) != 1 {
		t.Fatalf("unexpected bracket layout %+v", bracket)
	}
	if bracket[0].Stage != model.SemiFinal || bracket[1].Stage != model.Final {
		t.Fatalf("expected semi-finals then the final, got %s and %s", bracket[0].Stage, bracket[1].Stage)
	}
	if bracket[0].Ties[0].WinnerID != "P1-1" || bracket[0].Ties[0].HomeAggregate != 2 || bracket[0].Ties[0].AwayAggregate != 1 {
		t.Fatalf("unexpected first tie %+v", bracket[0].Ties[0])
	}

	if _, err := s.SubmitKnockoutScore("KO-QF-0-1", 3, 0, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SubmitKnockoutScore("KO-QF-0-2", 0, 0, nil); err != nil {
		t.Fatal(err)
	}
	snap := s.Snapshot()
	if snap.Champion == nil || snap.Champion.ID != "P1-1" {
		t.Fatalf("expected P1-1 as champion, got %+v", snap.Champion)
	}
}

func TestLevelTiesGoToPenalties(t *testing.T) {
	s := newSession(t, 4, 2, 2)
	fill(t, s)
	playHomeWins(t, s)
	if _, err := s.StartKnockout(); err != nil {
		t.Fatal(err)
	}

	if _, err := s.SubmitKnockoutScore("KO-R1-3-2", 1, 0, nil); !errors.Is(err, ErrFirstLegPending) {
		t.Fatalf("expected ErrFirstLegPending, got %v", err)
	}
	if _, err := s.SubmitKnockoutScore("KO-R1-0-1", 1, 0, &Penalties{Home: 5, Away: 4}); !errors.Is(err, ErrPenaltiesNotAllowed) {
		t.Fatalf("expected ErrPenaltiesNotAllowed on a first leg, got %v", err)
	}

	// Every tie ends 1-0, 1-0: level on aggregate and on away goals.
	for pair := 0; pair < 4; pair++ {
		first := fmt.Sprintf("KO-R1-%d-1", pair)
		second := fmt.Sprintf("KO-R1-%d-2", pair)
		if _, err := s.SubmitKnockoutScore(first, 1, 0, nil); err != nil {
			t.Fatal(err)
		}
		if _, err := s.SubmitKnockoutScore(second, 1, 0, nil); !errors.Is(err, ErrPenaltiesRequired) {
			t.Fatalf("%s: expected ErrPenaltiesRequired, got %v", second, err)
		}
		if _, err := s.SubmitKnockoutScore(second, 1, 0, &Penalties{Home: 3, Away: 3}); !errors.Is(err, ErrInvalidScore) {
			t.Fatalf("%s: expected ErrInvalidScore for a drawn shootout, got %v", second, err)
		}
		m, err := s.SubmitKnockoutScore(second, 1, 0, &Penalties{Home: 4, Away: 3})
		if err != nil {
			t.Fatal(err)
		}
		if m.HomePenalties == nil || *m.HomePenalties != 4 || *m.AwayPenalties != 3 {
			t.Fatalf("%s: shootout not recorded: %+v", second, m)
		}
	}

	// The second-leg hosts won every shootout.
	ko := s.Knockout()
	if len(ko) != 12 {
		t.Fatalf("expected the next round to be drawn, got %d legs", len(ko))
	}
	if ko[8].ID != "KO-QF-0-1" || ko[8].HomePlayerID != "P4-2" || ko[8].AwayPlayerID != "P4-1" {
		t.Fatalf("unexpected tie %+v", ko[8])
	}
	if ko[10].ID != "KO-QF-1-1" || ko[10].HomePlayerID != "P3-2" || ko[10].AwayPlayerID != "P3-1" {
		t.Fatalf("unexpected tie %+v", ko[10])
	}

	for _, leg := range []struct {
		id         string
		home, away int
	}{
		{"KO-QF-0-1", 2, 0}, {"KO-QF-0-2", 0, 0},
		{"KO-QF-1-1", 0, 2}, {"KO-QF-1-2", 0, 0},
	} {
		if _, err := s.SubmitKnockoutScore(leg.id, leg.home, leg.away, nil); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.SubmitKnockoutScore("KO-QF-1-2", 0, 0, nil); !errors.Is(err, ErrMatchAlreadyPlayed) {
		t.Fatalf("expected ErrMatchAlreadyPlayed, got %v", err)
	}

	if _, err := s.SubmitKnockoutScore("KO-SF-0-1", 1, 1, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SubmitKnockoutScore("KO-SF-0-2", 1, 1, &Penalties{Home: 2, Away: 5}); err != nil {
		t.Fatal(err)
	}

	snap := s.Snapshot()
	if snap.Champion == nil || snap.Champion.ID != "P4-2" {
		t.Fatalf("expected P4-2 as champion, got %+v", snap.Champion)
	}
	if len(snap.Knockout) != 14 {
		t.Fatalf("expected 14 legs, got %d", len(snap.Knockout))
	}
	var stages []model.Round
	for _, r := range snap.Bracket {
		stages = append(stages, r.Stage)
	}
	if fmt.Sprint(stages) != "[QF SF F]" {
		t.Fatalf("unexpected stages %v", stages)
	}
}

func TestUpdateSettings(t *testing.T) {
	s := newSession(t, 2, 2, 1)
	fill(t, s)

	if err := s.UpdateSettings(model.Settings{NumPools: 2, PlayersPerPool: 2, QualifiersPerPool: 2}); err != nil {
		t.Fatal(err)
	}
	if len(s.Pools()[0].Players) != 2 {
		t.Fatal("changing only the qualifiers should keep the pools")
	}

	if err := s.UpdateSettings(model.Settings{NumPools: 4, PlayersPerPool: 2, QualifiersPerPool: 1}); err != nil {
		t.Fatal(err)
	}
	pools := s.Pools()
	if len(pools) != 4 || len(pools[0].Players) != 0 {
		t.Fatalf("expected 4 empty pools, got %d pools", len(pools))
	}

	if err := s.UpdateSettings(model.Settings{NumPools: 4, PlayersPerPool: 2, QualifiersPerPool: 3}); !errors.Is(err, ErrInvalidSettings) {
		t.Fatalf("expected ErrInvalidSettings, got %v", err)
	}
}

func TestSnapshotIsDetached(t *testing.T) {
	s := newSession(t, 1, 2, 1)
	fill(t, s)
	if _, err := s.SubmitScore(0, "P1-1", "P1-2", 1, 1); err != nil {
		t.Fatal(err)
	}

	snap := s.Snapshot()
	*snap.Pools[0].Matches[0].HomeScore = 9
	snap.Pools[0].Players[0].Points = 42

	pool := s.Pools()[0]
	if *pool.Matches[0].HomeScore != 1 || pool.Players[0].Points != 1 {
		t.Fatal("snapshot shares state with the session")
	}
}
