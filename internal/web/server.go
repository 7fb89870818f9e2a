package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/homme-x/PES-Tournament-Manager/internal/archive"
	"github.com/homme-x/PES-Tournament-Manager/internal/live"
	"github.com/homme-x/PES-Tournament-Manager/internal/model"
	"github.com/homme-x/PES-Tournament-Manager/internal/store"
)

// Live is the part of the websocket hub the API talks to.
type Live interface {
	live.Publisher
	ServeWS(w http.ResponseWriter, r *http.Request, sessionID string)
}

type Options struct {
	Store          store.Store
	Archive        archive.Archive
	Live           Live
	Logger         *slog.Logger
	Defaults       model.Settings
	AllowedOrigins []string
	ArchiveTimeout time.Duration
}

type Server struct {
	store          store.Store
	archive        archive.Archive
	live           Live
	log            *slog.Logger
	defaults       model.Settings
	allowedOrigins []string
	archiveTimeout time.Duration
}

func NewServer(opts Options) *Server {
	s := &Server{
		store:          opts.Store,
		archive:        opts.Archive,
		live:           opts.Live,
		log:            opts.Logger,
		defaults:       opts.Defaults,
		allowedOrigins: opts.AllowedOrigins,
		archiveTimeout: opts.ArchiveTimeout,
	}
	if s.archive == nil {
		s.archive = archive.Nop{}
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.archiveTimeout == 0 {
		s.archiveTimeout = 10 * time.Second
	}
	if len(s.allowedOrigins) == 0 {
		s.allowedOrigins = []string{"*"}
	}
	return s
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(s.log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.handleSessionCreate)
		r.Get("/", s.handleSessionList)

		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", s.handleSessionShow)
			r.Delete("/", s.handleSessionDelete)
			r.Put("/settings", s.handleSettingsUpdate)
			r.Post("/pools/{poolIndex}/players", s.handlePlayerAdd)
			r.Post("/pools/{poolIndex}/scores", s.handleScoreSubmit)
			r.Get("/pools/{poolIndex}/standings", s.handleStandings)
			r.Get("/matches/played", s.handlePlayedMatches)
			r.Post("/knockout", s.handleKnockoutStart)
			r.Get("/knockout", s.handleKnockoutShow)
			r.Post("/knockout/{matchID}/score", s.handleKnockoutScore)
			r.Get("/ws", s.handleLive)
		})
	})

	return r
}
