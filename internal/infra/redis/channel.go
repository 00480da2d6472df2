package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"live-quiz-engine/internal/app"
	"live-quiz-engine/internal/domain"
	"live-quiz-engine/internal/logging"
)

// Channel is an app.Channel over Redis pub/sub. Host broadcasts go to
// quiz:{sessionID}:host and player events to quiz:{sessionID}:players, so a
// host and its players may live on different instances.
type Channel struct {
	client *redis.Client
	logger *zap.SugaredLogger
}

func NewChannel(client *redis.Client, logger *zap.SugaredLogger) *Channel {
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	return &Channel{client: client, logger: logger.Named("redis-channel")}
}

func (c *Channel) Connect(ctx context.Context, sessionID string, role domain.Role) (app.Conn, error) {
	listenTopic := PlayersTopic(sessionID)
	if role == domain.RolePlayer {
		listenTopic = HostTopic(sessionID)
	}

	// The subscription outlives the caller's request context.
	subCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	ps := c.client.Subscribe(subCtx, listenTopic)
	if _, err := ps.Receive(subCtx); err != nil {
		cancel()
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", listenTopic, err)
	}

	conn := &conn{
		client:    c.client,
		logger:    c.logger.With("session", sessionID, "role", role),
		sessionID: sessionID,
		role:      role,
		ps:        ps,
		ctx:       subCtx,
		cancel:    cancel,
	}
	go conn.listen(ps.Channel())
	return conn, nil
}

func HostTopic(sessionID string) string {
	return "quiz:" + sessionID + ":host"
}

func PlayersTopic(sessionID string) string {
	return "quiz:" + sessionID + ":players"
}

type conn struct {
	client    *redis.Client
	logger    *zap.SugaredLogger
	sessionID string
	role      domain.Role
	ps        *redis.PubSub
	ctx       context.Context
	cancel    context.CancelFunc

	closed    atomic.Bool
	closeOnce sync.Once

	mu       sync.Mutex
	onPlayer func(domain.PlayerEvent)
	onHost   func(domain.HostEvent)
}

func (c *conn) Broadcast(evt domain.HostEvent) error {
	if c.role != domain.RoleHost {
		return domain.ErrWrongRole
	}
	return c.publish(HostTopic(c.sessionID), evt)
}

func (c *conn) Send(evt domain.PlayerEvent) error {
	if c.role != domain.RolePlayer {
		return domain.ErrWrongRole
	}
	return c.publish(PlayersTopic(c.sessionID), evt)
}

func (c *conn) publish(topic string, v any) error {
	if c.closed.Load() {
		return domain.ErrTransportClosed
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := c.client.Publish(c.ctx, topic, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
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
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		err = c.ps.Close()
		c.cancel()
	})
	return err
}

func (c *conn) listen(messages <-chan *redis.Message) {
	for msg := range messages {
		c.dispatch([]byte(msg.Payload))
	}
}

func (c *conn) dispatch(payload []byte) {
	c.mu.Lock()
	onPlayer, onHost := c.onPlayer, c.onHost
	c.mu.Unlock()

	switch c.role {
	case domain.RoleHost:
		var evt domain.PlayerEvent
		if err := json.Unmarshal(payload, &evt); err != nil {
			c.logger.Debugw("dropping malformed player event", "error", err)
			return
		}
		if onPlayer != nil {
			onPlayer(evt)
		}
	case domain.RolePlayer:
		var evt domain.HostEvent
		if err := json.Unmarshal(payload, &evt); err != nil {
			c.logger.Debugw("dropping malformed host event", "error", err)
			return
		}
		if onHost != nil {
			onHost(evt)
		}
	}
}

var _ app.Channel = (*Channel)(nil)
