package store

import (
	"errors"

	"github.com/homme-x/PES-Tournament-Manager/internal/model"
	"github.com/homme-x/PES-Tournament-Manager/internal/session"
)

var ErrSessionNotFound = errors.New("session not found")

type Store interface {
	CreateSession(settings model.Settings) (session.Snapshot, error)
	GetSession(id string) (session.Snapshot, error)
	ListSessions() []Summary
	DeleteSession(id string) error
	// Update runs fn on the live session while holding the write lock and
	// returns the resulting snapshot. The error of fn is passed through.
	Update(id string, fn func(*session.Session) error) (session.Snapshot, error)
	// View runs fn under the read lock; fn must not modify the session.
	View(id string, fn func(*session.Session) error) error
}

// Summary is the listing entry of a session.
type Summary struct {
	ID        string      `json:"id"`
	Phase     model.Phase `json:"phase"`
	Players   int         `json:"players"`
	CreatedAt string      `json:"createdAt"`
}
