package redis

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"live-quiz-engine/internal/app"
	"live-quiz-engine/internal/domain"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Engines are in-process, so hosts live in a local map; Redis holds a
// liveness key per join code so that codes stay unique across instances.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Host
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Host),
	}
}

func (s *SessionStore) Create(ctx context.Context, host *app.Host) error {
	code := host.Identity.SessionCode
	ok, err := s.client.SetNX(ctx, s.key(code), host.Identity.SessionID, s.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrSessionExists
	}

	s.mu.Lock()
	s.sessions[code] = host
	s.mu.Unlock()
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
	delete(s.sessions, code)
	s.mu.Unlock()
	// best-effort liveness cleanup
	_ = s.client.Del(context.Background(), s.key(code)).Err()
}

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

// Refresh extends the liveness keys of every local session.
func (s *SessionStore) Refresh(ctx context.Context) error {
	if s.ttl <= 0 {
		return nil
	}
	s.mu.RLock()
	codes := make([]string, 0, len(s.sessions))
	for code := range s.sessions {
		codes = append(codes, code)
	}
	s.mu.RUnlock()

	if len(codes) == 0 {
		return nil
	}
	pipe := s.client.Pipeline()
	for _, code := range codes {
		pipe.Expire(ctx, s.key(code), s.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// KeepAlive calls Refresh every half TTL until ctx is done.
func (s *SessionStore) KeepAlive(ctx context.Context) error {
	if s.ttl <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(s.ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			_ = s.Refresh(ctx)
		}
	}
}

func (s *SessionStore) key(code string) string {
	return "quiz:session:" + code
}

var _ app.SessionRepository = (*SessionStore)(nil)
