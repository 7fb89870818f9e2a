package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/homme-x/PES-Tournament-Manager/internal/live"
	"github.com/homme-x/PES-Tournament-Manager/internal/model"
	"github.com/homme-x/PES-Tournament-Manager/internal/session"
)

type settingsRequest struct {
	NumPools          *int `json:"numPools"`
	PlayersPerPool    *int `json:"playersPerPool"`
	QualifiersPerPool *int `json:"qualifiersPerPool"`
}

// apply overrides the fields present in the request.
func (req settingsRequest) apply(base model.Settings) model.Settings {
	if req.NumPools != nil {
		base.NumPools = *req.NumPools
	}
	if req.PlayersPerPool != nil {
		base.PlayersPerPool = *req.PlayersPerPool
	}
	if req.QualifiersPerPool != nil {
		base.QualifiersPerPool = *req.QualifiersPerPool
	}
	return base
}

type playerRequest struct {
	Name string `json:"name"`
	Team string `json:"team"`
}

type scoreRequest struct {
	Player1ID string `json:"player1Id"`
	Player2ID string `json:"player2Id"`
	Score1    *int   `json:"score1"`
	Score2    *int   `json:"score2"`
}

type knockoutScoreRequest struct {
	HomeScore     *int `json:"homeScore"`
	AwayScore     *int `json:"awayScore"`
	HomePenalties *int `json:"homePenalties"`
	AwayPenalties *int `json:"awayPenalties"`
}

func (req knockoutScoreRequest) penalties() (*session.Penalties, error) {
	switch {
	case req.HomePenalties == nil && req.AwayPenalties == nil:
		return nil, nil
	case req.HomePenalties == nil || req.AwayPenalties == nil:
		return nil, errPenaltiesIncomplete
	}
	return &session.Penalties{Home: *req.HomePenalties, Away: *req.AwayPenalties}, nil
}

var (
	errScoresRequired      = errors.New("both scores are required")
	errPenaltiesIncomplete = errors.New("both shootout scores are required")
)

func (s *Server) publish(sessionID string, eventType live.EventType, payload any) {
	if s.live == nil {
		return
	}
	s.live.Publish(sessionID, live.Event{Type: eventType, Payload: payload})
}

func (s *Server) handleSessionCreate(w http.ResponseWriter, r *http.Request) {
	// An empty body creates a session with the default settings.
	var req settingsRequest
	if err := readJSON(w, r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		s.badRequest(w, err)
		return
	}
	snap, err := s.store.CreateSession(req.apply(s.defaults))
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.log.Info("session created", "session", snap.ID, "pools", snap.Settings.NumPools, "players_per_pool", snap.Settings.PlayersPerPool)
	w.Header().Set("Location", "/sessions/"+snap.ID)
	s.writeJSON(w, http.StatusCreated, snap)
}

func (s *Server) handleSessionList(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, envelope{"sessions": s.store.ListSessions()})
}

func (s *Server) handleSessionShow(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.GetSession(chi.URLParam(r, "sessionID"))
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleSessionDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteSession(chi.URLParam(r, "sessionID")); err != nil {
		s.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSettingsUpdate(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	var req settingsRequest
	if err := readJSON(w, r, &req); err != nil {
		s.badRequest(w, err)
		return
	}
	snap, err := s.store.Update(sessionID, func(sess *session.Session) error {
		return sess.UpdateSettings(req.apply(sess.Settings()))
	})
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.publish(sessionID, live.SettingsUpdated, snap.Settings)
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handlePlayerAdd(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	poolIndex, err := poolIndexParam(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	var req playerRequest
	if err := readJSON(w, r, &req); err != nil {
		s.badRequest(w, err)
		return
	}

	var player model.Player
	snap, err := s.store.Update(sessionID, func(sess *session.Session) error {
		var err error
		player, err = sess.AddPlayer(poolIndex, req.Name, req.Team)
		return err
	})
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	pool := snap.Pools[poolIndex]
	s.publish(sessionID, live.PlayerAdded, envelope{"player": player, "pool": pool})
	s.writeJSON(w, http.StatusCreated, envelope{"player": player, "pool": pool})
}

func (s *Server) handleScoreSubmit(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	poolIndex, err := poolIndexParam(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	var req scoreRequest
	if err := readJSON(w, r, &req); err != nil {
		s.badRequest(w, err)
		return
	}
	if req.Score1 == nil || req.Score2 == nil {
		s.errorResponse(w, http.StatusUnprocessableEntity, errScoresRequired.Error())
		return
	}

	var match model.Match
	snap, err := s.store.Update(sessionID, func(sess *session.Session) error {
		var err error
		match, err = sess.SubmitScore(poolIndex, req.Player1ID, req.Player2ID, *req.Score1, *req.Score2)
		return err
	})
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	pool := snap.Pools[poolIndex]
	resp := envelope{"match": match, "standings": pool.Players, "poolCompleted": pool.Completed}
	s.publish(sessionID, live.ScoreSubmitted, resp)
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStandings(w http.ResponseWriter, r *http.Request) {
	poolIndex, err := poolIndexParam(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	var standings []model.Player
	var completed bool
	err = s.store.View(chi.URLParam(r, "sessionID"), func(sess *session.Session) error {
		var err error
		standings, err = sess.Standings(poolIndex)
		completed = err == nil && sess.Pools()[poolIndex].Completed
		return err
	})
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"pool": poolIndex, "standings": standings, "completed": completed})
}

func (s *Server) handlePlayedMatches(w http.ResponseWriter, r *http.Request) {
	var played []model.Match
	err := s.store.View(chi.URLParam(r, "sessionID"), func(sess *session.Session) error {
		played = sess.PlayedMatches()
		return nil
	})
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"matches": played})
}

func (s *Server) handleKnockoutStart(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	snap, err := s.store.Update(sessionID, func(sess *session.Session) error {
		_, err := sess.StartKnockout()
		return err
	})
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	s.record(r.Context(), sessionID, func(ctx context.Context) error {
		if err := s.archive.RecordStandings(ctx, sessionID, snap.Pools); err != nil {
			return err
		}
		return s.archive.RecordBracket(ctx, sessionID, snap.Knockout)
	})
	s.log.Info("knockout started", "session", sessionID, "legs", len(snap.Knockout))

	resp := envelope{"knockout": snap.Knockout, "bracket": snap.Bracket}
	s.publish(sessionID, live.KnockoutStarted, resp)
	s.writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleKnockoutShow(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.GetSession(chi.URLParam(r, "sessionID"))
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"knockout": snap.Knockout, "bracket": snap.Bracket, "champion": snap.Champion})
}

func (s *Server) handleKnockoutScore(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	matchID := chi.URLParam(r, "matchID")
	var req knockoutScoreRequest
	if err := readJSON(w, r, &req); err != nil {
		s.badRequest(w, err)
		return
	}
	if req.HomeScore == nil || req.AwayScore == nil {
		s.errorResponse(w, http.StatusUnprocessableEntity, errScoresRequired.Error())
		return
	}
	penalties, err := req.penalties()
	if err != nil {
		s.errorResponse(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	var match model.KnockoutMatch
	snap, err := s.store.Update(sessionID, func(sess *session.Session) error {
		var err error
		match, err = sess.SubmitKnockoutScore(matchID, *req.HomeScore, *req.AwayScore, penalties)
		return err
	})
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	s.record(r.Context(), sessionID, func(ctx context.Context) error {
		return s.archive.RecordBracket(ctx, sessionID, snap.Knockout)
	})
	if snap.Champion != nil {
		s.log.Info("champion decided", "session", sessionID, "player", snap.Champion.ID)
	}

	resp := envelope{"match": match, "bracket": snap.Bracket, "champion": snap.Champion}
	s.publish(sessionID, live.KnockoutScoreSubmitted, resp)
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if s.live == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "live feed is not available")
		return
	}
	if _, err := s.store.GetSession(sessionID); err != nil {
		s.handleError(w, r, err)
		return
	}
	s.live.ServeWS(w, r, sessionID)
}

// record writes to the archive. Failures are logged, the request still
// succeeds.
func (s *Server) record(ctx context.Context, sessionID string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.archiveTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		s.log.Error("archive results", "session", sessionID, "err", err)
	}
}
