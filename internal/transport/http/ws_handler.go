package http

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"

	"live-quiz-engine/internal/app"
	"live-quiz-engine/internal/domain"
	"live-quiz-engine/internal/logging"
)

const (
	sendBuffer   = 32
	maxFrameSize = 4096
	writeTimeout = 5 * time.Second
)

type WSHandler struct {
	service  *app.QuizService
	channel  app.Channel
	upgrader websocket.Upgrader
	logger   *zap.SugaredLogger

	mu      sync.Mutex
	sockets map[string]int // live player sockets by session and player id
}

func NewWSHandler(service *app.QuizService, channel app.Channel, logger *zap.SugaredLogger) *WSHandler {
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	return &WSHandler{
		service: service,
		channel: channel,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger:  logger.Named("ws"),
		sockets: make(map[string]int),
	}
}

func (h *WSHandler) attach(key string) {
	h.mu.Lock()
	h.sockets[key]++
	h.mu.Unlock()
}

// detach reports whether the last socket of a player has gone.
func (h *WSHandler) detach(key string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sockets[key]--
	if h.sockets[key] > 0 {
		return false
	}
	delete(h.sockets, key)
	return true
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	AnswerKey       domain.AnswerKey `json:"answerKey"`
	Nonce           string           `json:"nonce"`
	ClientTimestamp int64            `json:"clientTimestamp"`
}

type welcomePayload struct {
	PlayerID    string `json:"playerId"`
	SessionID   string `json:"sessionId"`
	SessionCode string `json:"sessionCode"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

// writer owns all writes to one websocket. Messages queued after stop are
// discarded, and a full queue drops the message.
type writer struct {
	conn *websocket.Conn
	send chan outboundMessage[any]
	stop chan struct{}
	done chan struct{}
}

func newWriter(conn *websocket.Conn) *writer {
	w := &writer{
		conn: conn,
		send: make(chan outboundMessage[any], sendBuffer),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *writer) run() {
	defer close(w.done)
	for {
		select {
		case msg := <-w.send:
			_ = w.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := w.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-w.stop:
			return
		}
	}
}

func (w *writer) push(typ string, payload any) {
	select {
	case <-w.stop:
		return
	default:
	}
	select {
	case w.send <- outboundMessage[any]{Type: typ, Payload: payload}:
	case <-w.stop:
	default:
	}
}

func (w *writer) close() {
	close(w.stop)
	<-w.done
}

// ServePlayer bridges one player device onto the session channel. The player
// id comes from the connection, never from frames, so a device can only answer
// for itself. A player may hold several sockets; LEAVE is sent when the last
// one closes.
func (h *WSHandler) ServePlayer(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	host, err := h.service.Session(ps.ByName("code"))
	if err != nil {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}
	playerID := r.URL.Query().Get("playerId")
	if playerID == "" {
		playerID = uuid.NewString()
	}
	name := r.URL.Query().Get("name")
	sessionID := host.Identity.SessionID
	logger := h.logger.With("session", sessionID, "player", playerID)

	chConn, err := h.channel.Connect(r.Context(), sessionID, domain.RolePlayer)
	if err != nil {
		logger.Errorw("channel connect failed", "error", err)
		http.Error(w, "transport unavailable", http.StatusServiceUnavailable)
		return
	}
	defer chConn.Disconnect()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Debugw("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxFrameSize)

	out := newWriter(conn)
	defer out.close()

	chConn.OnHostEvent(func(evt domain.HostEvent) {
		out.push(string(evt.Type), evt)
	})
	out.push("welcome", welcomePayload{PlayerID: playerID, SessionID: sessionID, SessionCode: host.Identity.SessionCode})

	socketKey := sessionID + "/" + playerID
	h.attach(socketKey)
	if err := chConn.Send(domain.PlayerEvent{Type: domain.EventJoin, PlayerID: playerID, PlayerName: name}); err != nil {
		logger.Warnw("send join failed", "error", err)
		h.detach(socketKey)
		return
	}
	logger.Debugw("player connected")

readLoop:
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch domain.PlayerEventType(inbound.Type) {
		case domain.EventAnswer:
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil || !payload.AnswerKey.Valid() {
				out.push("error", errorPayload{Message: "invalid answer payload"})
				continue
			}
			if err := chConn.Send(domain.PlayerEvent{
				Type:            domain.EventAnswer,
				PlayerID:        playerID,
				AnswerKey:       payload.AnswerKey,
				Nonce:           payload.Nonce,
				ClientTimestamp: payload.ClientTimestamp,
			}); err != nil {
				logger.Debugw("send answer failed", "error", err)
			}
		case domain.EventLeave:
			break readLoop
		default:
			out.push("error", errorPayload{Message: "unsupported message type"})
		}
	}

	if !h.detach(socketKey) {
		logger.Debugw("player socket closed, another still open")
		return
	}
	_ = chConn.Send(domain.PlayerEvent{Type: domain.EventLeave, PlayerID: playerID})
	logger.Debugw("player disconnected")
}

// ServeHost streams the engine feed of a session to a host screen and accepts
// the same commands as the REST API.
func (h *WSHandler) ServeHost(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	host, err := h.service.Session(ps.ByName("code"))
	if err != nil {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debugw("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxFrameSize)

	notices, cancel := host.Feed.Subscribe()
	defer cancel()

	out := newWriter(conn)
	defer out.close()
	out.push("snapshot", newSessionView(host))

	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		for n := range notices {
			out.push("notice", n)
		}
		// feed closed: the session is gone or the reader below has quit
		_ = conn.Close()
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		applied, ok := runCommand(host.Engine, inbound.Type)
		if !ok {
			out.push("error", errorPayload{Message: "unsupported message type"})
			continue
		}
		out.push("result", commandResult{Command: inbound.Type, Applied: applied, State: host.Engine.State()})
	}

	cancel()
	<-relayDone
}
