package memory

import (
	"context"
	"sort"
	"sync"

	"live-quiz-engine/internal/app"
	"live-quiz-engine/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*app.Host
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*app.Host),
	}
}

func (s *SessionStore) Create(_ context.Context, host *app.Host) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	code := host.Identity.SessionCode
	if _, ok := s.sessions[code]; ok {
		return domain.ErrSessionExists
	}
	s.sessions[code] = host
	return nil
}

func (s *SessionStore) Get(code string) (*app.Host, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	host, ok := s.sessions[code]
	return host, ok
}

func (s *SessionStore) Delete(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, code)
}

// List returns the live sessions, oldest first.
func (s *SessionStore) List() []*app.Host {
	s.mu.RLock()
	hosts := make([]*app.Host, 0, len(s.sessions))
	for _, host := range s.sessions {
		hosts = append(hosts, host)
	}
	s.mu.RUnlock()

	sort.Slice(hosts, func(i, j int) bool {
		return hosts[i].CreatedAt.Before(hosts[j].CreatedAt)
	})
	return hosts
}

var _ app.SessionRepository = (*SessionStore)(nil)
