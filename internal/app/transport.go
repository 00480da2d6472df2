package app

import (
	"context"

	"live-quiz-engine/internal/domain"
)

// Channel opens session-scoped connections between one host and its players.
// Delivery is at-most-once and FIFO per sender; nothing is acknowledged and a
// message sent while a subscriber is absent is never seen by it.
type Channel interface {
	Connect(ctx context.Context, sessionID string, role domain.Role) (Conn, error)
}

// Conn is one side of a session channel. Host connections broadcast and
// receive player events; player connections send and receive host events.
// Methods of the other role return domain.ErrWrongRole.
type Conn interface {
	Broadcast(evt domain.HostEvent) error
	Send(evt domain.PlayerEvent) error
	OnPlayerEvent(handler func(domain.PlayerEvent))
	OnHostEvent(handler func(domain.HostEvent))
	// Disconnect releases the connection. It is safe to call more than once.
	Disconnect() error
}
