package memory

import (
	"context"
	"sync"

	"live-quiz-engine/internal/app"
	"live-quiz-engine/internal/domain"
)

// DefaultInboxSize is the number of undelivered messages a connection holds
// before new ones are dropped.
const DefaultInboxSize = 64

// Registry is an in-process app.Channel. Every Registry is its own namespace:
// sessions in two registries never see each other.
type Registry struct {
	inboxSize int

	mu   sync.Mutex
	hubs map[string]map[*conn]struct{}
}

func NewRegistry(inboxSize int) *Registry {
	if inboxSize <= 0 {
		inboxSize = DefaultInboxSize
	}
	return &Registry{
		inboxSize: inboxSize,
		hubs:      make(map[string]map[*conn]struct{}),
	}
}

func (r *Registry) Connect(_ context.Context, sessionID string, role domain.Role) (app.Conn, error) {
	c := &conn{
		registry:  r,
		sessionID: sessionID,
		role:      role,
		inbox:     make(chan any, r.inboxSize),
	}

	r.mu.Lock()
	hub, ok := r.hubs[sessionID]
	if !ok {
		hub = make(map[*conn]struct{})
		r.hubs[sessionID] = hub
	}
	hub[c] = struct{}{}
	r.mu.Unlock()

	go c.pump()
	return c, nil
}

// Connections returns the number of open connections for a session.
func (r *Registry) Connections(sessionID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.hubs[sessionID])
}

// deliver queues msg for every open connection of the given role. Full inboxes
// drop the message.
func (r *Registry) deliver(from *conn, to domain.Role, msg any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if from.closed {
		return domain.ErrTransportClosed
	}
	for c := range r.hubs[from.sessionID] {
		if c.role != to {
			continue
		}
		select {
		case c.inbox <- msg:
		default:
		}
	}
	return nil
}

func (r *Registry) remove(c *conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.closed {
		return false
	}
	c.closed = true
	hub := r.hubs[c.sessionID]
	delete(hub, c)
	if len(hub) == 0 {
		delete(r.hubs, c.sessionID)
	}
	close(c.inbox)
	return true
}

type conn struct {
	registry  *Registry
	sessionID string
	role      domain.Role
	inbox     chan any
	closed    bool // guarded by registry.mu

	mu       sync.Mutex
	onPlayer func(domain.PlayerEvent)
	onHost   func(domain.HostEvent)
}

func (c *conn) Broadcast(evt domain.HostEvent) error {
	if c.role != domain.RoleHost {
		return domain.ErrWrongRole
	}
	return c.registry.deliver(c, domain.RolePlayer, evt)
}

func (c *conn) Send(evt domain.PlayerEvent) error {
	if c.role != domain.RolePlayer {
		return domain.ErrWrongRole
	}
	return c.registry.deliver(c, domain.RoleHost, evt)
}

func (c *conn) OnPlayerEvent(handler func(domain.PlayerEvent)) {
	c.mu.Lock()
	c.onPlayer = handler
	c.mu.Unlock()
}

func (c *conn) OnHostEvent(handler func(domain.HostEvent)) {
	c.mu.Lock()
	c.onHost = handler
	c.mu.Unlock()
}

func (c *conn) Disconnect() error {
	c.registry.remove(c)
	return nil
}

func (c *conn) pump() {
	for msg := range c.inbox {
		c.mu.Lock()
		onPlayer, onHost := c.onPlayer, c.onHost
		c.mu.Unlock()

		switch m := msg.(type) {
		case domain.PlayerEvent:
			if onPlayer != nil {
				onPlayer(m)
			}
		case domain.HostEvent:
			if onHost != nil {
				onHost(m)
			}
		}
	}
}

var _ app.Channel = (*Registry)(nil)
