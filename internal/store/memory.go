package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/homme-x/PES-Tournament-Manager/internal/model"
	"github.com/homme-x/PES-Tournament-Manager/internal/session"
)

type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*session.Session
}

type MemoryOptions struct {
	// Seed adds a demo session with full pools, for local development.
	Seed bool
}

func NewMemoryStore(opts MemoryOptions) *MemoryStore {
	s := &MemoryStore{
		sessions: make(map[string]*session.Session),
	}
	if opts.Seed {
		seedData(s)
	}
	return s
}

func (s *MemoryStore) CreateSession(settings model.Settings) (session.Snapshot, error) {
	sess, err := session.New(uuid.NewString(), settings)
	if err != nil {
		return session.Snapshot{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sess.ID] = sess
	return sess.Snapshot(), nil
}

func (s *MemoryStore) GetSession(id string) (session.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return session.Snapshot{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess.Snapshot(), nil
}

func (s *MemoryStore) ListSessions() []Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]*session.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].CreatedAt.After(sessions[j].CreatedAt) })

	summaries := make([]Summary, 0, len(sessions))
	for _, sess := range sessions {
		players := 0
		for _, p := range sess.Pools() {
			players += len(p.Players)
		}
		summaries = append(summaries, Summary{
			ID:        sess.ID,
			Phase:     sess.Settings().CurrentPhase,
			Players:   players,
			CreatedAt: sess.CreatedAt.Format(time.RFC3339),
		})
	}
	return summaries
}

func (s *MemoryStore) DeleteSession(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	delete(s.sessions, id)
	return nil
}

func (s *MemoryStore) Update(id string, fn func(*session.Session) error) (session.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return session.Snapshot{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err := fn(sess); err != nil {
		return session.Snapshot{}, err
	}
	return sess.Snapshot(), nil
}

func (s *MemoryStore) View(id string, fn func(*session.Session) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return fn(sess)
}

var seedPlayers = [][2]string{
	{"Marco", "AC Milan"},
	{"Yuki", "Juventus"},
	{"Ines", "Real Madrid"},
	{"Tomas", "Bayern"},
	{"Amara", "Barcelona"},
	{"Lars", "Arsenal"},
	{"Sofia", "PSG"},
	{"Kwame", "Liverpool"},
}

func seedData(s *MemoryStore) {
	sess, err := session.New(uuid.NewString(), model.DefaultSettings())
	if err != nil {
		return
	}
	perPool := sess.Settings().PlayersPerPool
	for i, p := range seedPlayers {
		if _, err := sess.AddPlayer(i/perPool, p[0], p[1]); err != nil {
			break
		}
	}
	s.sessions[sess.ID] = sess
}
