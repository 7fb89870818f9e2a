package session

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/homme-x/PES-Tournament-Manager/internal/model"
	"github.com/homme-x/PES-Tournament-Manager/internal/tournament"
)

const maxQualifiers = 16

var (
	ErrInvalidSettings        = errors.New("invalid tournament settings")
	ErrWrongPhase             = errors.New("operation not allowed in the current phase")
	ErrPoolNotFound           = errors.New("pool not found")
	ErrPoolFull               = errors.New("pool is full")
	ErrInvalidPlayer          = errors.New("player name and team are required")
	ErrMatchNotFound          = errors.New("match not found")
	ErrMatchAlreadyPlayed     = errors.New("match has already been played")
	ErrInvalidScore           = errors.New("scores must not be negative")
	ErrPoolsIncomplete        = errors.New("all pools must be completed before the knockout stage")
	ErrBracketSize            = errors.New("number of qualifiers must be a power of two between 2 and 16")
	ErrKnockoutMatchNotFound  = errors.New("knockout match not found")
	ErrKnockoutMatchNotLoaded = errors.New("knockout match is waiting for its opponents")
	ErrFirstLegPending        = errors.New("first leg of the tie has not been played")
	ErrPenaltiesRequired      = errors.New("tie is level, a shootout result is required")
	ErrPenaltiesNotAllowed    = errors.New("a shootout is only played when a tie ends level")
)

// Penalties is a shootout result, in the orientation of the leg it is
// entered with.
type Penalties struct {
	Home int
	Away int
}

// Session is one tournament being run: its settings, the pools of the
// group phase and, once started, the knockout legs.
//
// A Session is not safe for concurrent use; the store serializes access.
type Session struct {
	ID        string
	CreatedAt time.Time

	settings model.Settings
	pools    []model.Pool
	knockout []model.KnockoutMatch
}

func New(id string, settings model.Settings) (*Session, error) {
	settings.CurrentPhase = model.PhaseGroup
	if err := validateSettings(settings); err != nil {
		return nil, err
	}
	s := &Session{
		ID:        id,
		CreatedAt: time.Now(),
		settings:  settings,
	}
	s.resetPools()
	return s, nil
}

func validateSettings(settings model.Settings) error {
	switch {
	case settings.NumPools < 1:
		return fmt.Errorf("%w: at least one pool is required", ErrInvalidSettings)
	case settings.PlayersPerPool < 2:
		return fmt.Errorf("%w: a pool needs at least two players", ErrInvalidSettings)
	case settings.QualifiersPerPool < 1 || settings.QualifiersPerPool > settings.PlayersPerPool:
		return fmt.Errorf("%w: qualifiers per pool must be between 1 and %d", ErrInvalidSettings, settings.PlayersPerPool)
	}
	return nil
}

func (s *Session) resetPools() {
	s.pools = make([]model.Pool, s.settings.NumPools)
	for i := range s.pools {
		s.pools[i] = model.Pool{
			ID:      i,
			Players: []model.Player{},
			Matches: []model.Match{},
		}
	}
}

func (s *Session) Settings() model.Settings {
	return s.settings
}

// UpdateSettings replaces the configuration during the group phase. The
// pools are emptied when their number or size changes.
func (s *Session) UpdateSettings(settings model.Settings) error {
	if s.settings.CurrentPhase != model.PhaseGroup {
		return ErrWrongPhase
	}
	settings.CurrentPhase = model.PhaseGroup
	if err := validateSettings(settings); err != nil {
		return err
	}
	reset := settings.NumPools != s.settings.NumPools || settings.PlayersPerPool != s.settings.PlayersPerPool
	s.settings = settings
	if reset {
		s.resetPools()
	}
	return nil
}

func (s *Session) pool(index int) (*model.Pool, error) {
	if index < 0 || index >= len(s.pools) {
		return nil, fmt.Errorf("%w: %d", ErrPoolNotFound, index)
	}
	return &s.pools[index], nil
}

// AddPlayer registers a player in a pool. The pool's round robin is
// generated as soon as the last seat is taken.
func (s *Session) AddPlayer(poolIndex int, name, team string) (model.Player, error) {
	if s.settings.CurrentPhase != model.PhaseGroup {
		return model.Player{}, ErrWrongPhase
	}
	name = strings.TrimSpace(name)
	team = strings.TrimSpace(team)
	if name == "" || team == "" {
		return model.Player{}, ErrInvalidPlayer
	}
	pool, err := s.pool(poolIndex)
	if err != nil {
		return model.Player{}, err
	}
	if len(pool.Players) >= s.settings.PlayersPerPool {
		return model.Player{}, fmt.Errorf("%w: pool %d has %d players", ErrPoolFull, poolIndex+1, len(pool.Players))
	}

	player := model.Player{
		ID:   model.PlayerID(poolIndex, len(pool.Players)+1),
		Name: name,
		Team: team,
	}
	pool.Players = append(pool.Players, player)

	if len(pool.Players) == s.settings.PlayersPerPool && !pool.MatchesGenerated {
		pool.Matches = tournament.GeneratePoolMatches(pool.Players)
		pool.MatchesGenerated = true
	}
	return player, nil
}

// SubmitScore records the result between two players of a pool. The
// scores are given in the order of the player ids and stored in the
// orientation of the scheduled match. A result can only be entered once.
func (s *Session) SubmitScore(poolIndex int, player1ID, player2ID string, score1, score2 int) (model.Match, error) {
	if s.settings.CurrentPhase != model.PhaseGroup {
		return model.Match{}, ErrWrongPhase
	}
	if score1 < 0 || score2 < 0 {
		return model.Match{}, ErrInvalidScore
	}
	pool, err := s.pool(poolIndex)
	if err != nil {
		return model.Match{}, err
	}

	idx := -1
	for i, m := range pool.Matches {
		if m.Pairs(player1ID, player2ID) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return model.Match{}, fmt.Errorf("%w: %s vs %s", ErrMatchNotFound, player1ID, player2ID)
	}
	match := &pool.Matches[idx]
	if match.Played {
		return model.Match{}, fmt.Errorf("%w: %s", ErrMatchAlreadyPlayed, match.ID)
	}

	if match.HomePlayerID == player1ID {
		match.HomeScore = model.IntPtr(score1)
		match.AwayScore = model.IntPtr(score2)
	} else {
		match.HomeScore = model.IntPtr(score2)
		match.AwayScore = model.IntPtr(score1)
	}
	match.Played = true

	pool.Players = tournament.UpdatePoolStandings(*pool)
	pool.Completed = pool.MatchesGenerated && tournament.IsPoolCompleted(*pool)
	return *match, nil
}

// AllPoolsCompleted reports whether every pool has played its round robin.
func (s *Session) AllPoolsCompleted() bool {
	for _, p := range s.pools {
		if !p.Completed {
			return false
		}
	}
	return true
}

// Qualifiers returns the top players of each pool, pool after pool.
func (s *Session) Qualifiers() []model.Player {
	qualified := make([]model.Player, 0, len(s.pools)*s.settings.QualifiersPerPool)
	for _, p := range s.pools {
		n := min(s.settings.QualifiersPerPool, len(p.Players))
		qualified = append(qualified, p.Players[:n]...)
	}
	return qualified
}

// StartKnockout closes the group phase and draws the first knockout round.
func (s *Session) StartKnockout() ([]model.KnockoutMatch, error) {
	if s.settings.CurrentPhase != model.PhaseGroup {
		return nil, ErrWrongPhase
	}
	if !s.AllPoolsCompleted() {
		return nil, ErrPoolsIncomplete
	}
	qualified := s.Qualifiers()
	n := len(qualified)
	if n < 2 || n > maxQualifiers || n&(n-1) != 0 {
		return nil, fmt.Errorf("%w: got %d", ErrBracketSize, n)
	}

	s.knockout = tournament.GenerateKnockoutStage(qualified)
	s.settings.CurrentPhase = model.PhaseKnockout
	return cloneKnockout(s.knockout), nil
}

// SubmitKnockoutScore records the result of one knockout leg and draws
// every next-round tie that became complete. A second leg can only be
// entered after the first one; when it leaves the tie level on aggregate
// and away goals it must carry the shootout result, otherwise it must not.
func (s *Session) SubmitKnockoutScore(matchID string, homeScore, awayScore int, penalties *Penalties) (model.KnockoutMatch, error) {
	if s.settings.CurrentPhase != model.PhaseKnockout {
		return model.KnockoutMatch{}, ErrWrongPhase
	}
	if homeScore < 0 || awayScore < 0 {
		return model.KnockoutMatch{}, ErrInvalidScore
	}
	idx := -1
	for i, m := range s.knockout {
		if m.ID == matchID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return model.KnockoutMatch{}, fmt.Errorf("%w: %s", ErrKnockoutMatchNotFound, matchID)
	}
	match := &s.knockout[idx]
	if !match.Populated() {
		return model.KnockoutMatch{}, fmt.Errorf("%w: %s", ErrKnockoutMatchNotLoaded, matchID)
	}
	if match.Played {
		return model.KnockoutMatch{}, fmt.Errorf("%w: %s", ErrMatchAlreadyPlayed, matchID)
	}

	result := *match
	result.HomeScore = model.IntPtr(homeScore)
	result.AwayScore = model.IntPtr(awayScore)
	result.Played = true

	level := false
	if result.Leg == model.LegSecond {
		if tie, ok := tournament.TieOf(s.knockout, matchID); ok {
			if !tie.First.Played {
				return model.KnockoutMatch{}, fmt.Errorf("%w: %s", ErrFirstLegPending, tie.First.ID)
			}
			tie.Second = result
			level = tie.NeedsShootout()
		}
	}
	switch {
	case level && penalties == nil:
		return model.KnockoutMatch{}, fmt.Errorf("%w: %s", ErrPenaltiesRequired, matchID)
	case level:
		if penalties.Home < 0 || penalties.Away < 0 || penalties.Home == penalties.Away {
			return model.KnockoutMatch{}, fmt.Errorf("%w: a shootout needs a winner", ErrInvalidScore)
		}
		result.HomePenalties = model.IntPtr(penalties.Home)
		result.AwayPenalties = model.IntPtr(penalties.Away)
	case penalties != nil:
		return model.KnockoutMatch{}, fmt.Errorf("%w: %s", ErrPenaltiesNotAllowed, matchID)
	}
	*match = result

	advanced, err := tournament.AdvanceKnockout(s.knockout)
	if err != nil {
		return model.KnockoutMatch{}, fmt.Errorf("advance knockout: %w", err)
	}
	s.knockout = advanced
	return cloneKnockoutMatch(result), nil
}

// Champion returns the winner of the final once both legs are played.
func (s *Session) Champion() (model.Player, bool) {
	id, err := tournament.Champion(s.knockout)
	if err != nil {
		return model.Player{}, false
	}
	return s.Player(id)
}

// Player finds a player of any pool.
func (s *Session) Player(id string) (model.Player, bool) {
	for i := range s.pools {
		if p, ok := s.pools[i].Player(id); ok {
			return p, true
		}
	}
	return model.Player{}, false
}

// Standings returns a copy of a pool's ranked roster.
func (s *Session) Standings(poolIndex int) ([]model.Player, error) {
	pool, err := s.pool(poolIndex)
	if err != nil {
		return nil, err
	}
	return append([]model.Player{}, pool.Players...), nil
}

// PlayedMatches lists every pool match with a result, by match id in
// descending order.
func (s *Session) PlayedMatches() []model.Match {
	played := make([]model.Match, 0)
	for _, p := range s.pools {
		for _, m := range p.Matches {
			if m.Played {
				played = append(played, cloneMatch(m))
			}
		}
	}
	slices.SortFunc(played, func(a, b model.Match) int {
		return strings.Compare(b.ID, a.ID)
	})
	return played
}

func (s *Session) Pools() []model.Pool {
	pools := make([]model.Pool, len(s.pools))
	for i, p := range s.pools {
		pools[i] = clonePool(p)
	}
	return pools
}

func (s *Session) Knockout() []model.KnockoutMatch {
	return cloneKnockout(s.knockout)
}
