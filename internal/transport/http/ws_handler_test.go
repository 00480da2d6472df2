package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"live-quiz-engine/internal/domain"
)

func TestPlayerAnswerFlow(t *testing.T) {
	srv := newTestServer(t)
	id := srv.createSession(t, map[string]any{"quizId": "quiz-1"})

	conn := srv.dial(t, "/play/"+strings.ToLower(id.SessionCode)+"/ws?playerId=u1&name=Alice")

	var welcome welcomePayload
	readUntil(t, conn, "welcome", &welcome)
	if welcome.PlayerID != "u1" || welcome.SessionCode != id.SessionCode {
		t.Fatalf("unexpected welcome %+v", welcome)
	}
	srv.waitPlayers(t, id.SessionCode, 1)

	if resp := srv.do(t, http.MethodPost, "/sessions/"+id.SessionCode+"/start", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("start: %d", resp.StatusCode)
	}

	var start domain.HostEvent
	readUntil(t, conn, string(domain.EventQuestionStart), &start)
	if start.Question == nil || start.Question.Prompt != "Capital of France?" || start.Nonce == "" {
		t.Fatalf("unexpected question start %+v", start)
	}

	answer := map[string]any{
		"type": "ANSWER",
		"payload": map[string]any{
			"answerKey":       "B",
			"nonce":           start.Nonce,
			"clientTimestamp": time.Now().UnixMilli(),
		},
	}
	if err := conn.WriteJSON(answer); err != nil {
		t.Fatalf("write answer: %v", err)
	}

	// the only connected player answered, so the reveal comes early
	var reveal domain.HostEvent
	readUntil(t, conn, string(domain.EventAnswerReveal), &reveal)
	if reveal.CorrectKey != domain.KeyB || reveal.Stats == nil || reveal.Stats.B != 1 {
		t.Fatalf("unexpected reveal %+v", reveal)
	}

	view := srv.session(t, id.SessionCode)
	if len(view.Leaderboard) != 1 || view.Leaderboard[0].Score != 10 || view.Leaderboard[0].Name != "Alice" {
		t.Fatalf("unexpected leaderboard %+v", view.Leaderboard)
	}
}

func TestPlayerRejectsBadFrames(t *testing.T) {
	srv := newTestServer(t)
	id := srv.createSession(t, map[string]any{"quizId": "quiz-1"})
	conn := srv.dial(t, "/play/"+id.SessionCode+"/ws")

	var welcome welcomePayload
	readUntil(t, conn, "welcome", &welcome)
	if welcome.PlayerID == "" {
		t.Fatalf("expected a generated player id")
	}

	_ = conn.WriteJSON(map[string]any{"type": "ANSWER", "payload": map[string]any{"answerKey": "E"}})
	var problem errorPayload
	readUntil(t, conn, "error", &problem)

	_ = conn.WriteJSON(map[string]any{"type": "DANCE"})
	readUntil(t, conn, "error", &problem)
	if problem.Message != "unsupported message type" {
		t.Fatalf("unexpected error %+v", problem)
	}
}

func TestPlayerLeaveOnDisconnect(t *testing.T) {
	srv := newTestServer(t)
	id := srv.createSession(t, map[string]any{"quizId": "quiz-1"})
	conn := srv.dial(t, "/play/"+id.SessionCode+"/ws?playerId=u1")

	var welcome welcomePayload
	readUntil(t, conn, "welcome", &welcome)
	srv.waitPlayers(t, id.SessionCode, 1)

	_ = conn.Close()
	srv.waitPlayers(t, id.SessionCode, 0)
}

func TestPlayerWithTwoSocketsLeavesWithTheLast(t *testing.T) {
	srv := newTestServer(t)
	id := srv.createSession(t, map[string]any{"quizId": "quiz-1"})

	var welcome welcomePayload
	first := srv.dial(t, "/play/"+id.SessionCode+"/ws?playerId=u1&name=Alice")
	readUntil(t, first, "welcome", &welcome)
	second := srv.dial(t, "/play/"+id.SessionCode+"/ws?playerId=u1&name=Alice")
	readUntil(t, second, "welcome", &welcome)
	srv.waitPlayers(t, id.SessionCode, 1)

	_ = first.Close()
	deadline := time.Now().Add(300 * time.Millisecond)
	for time.Now().Before(deadline) {
		if got := srv.session(t, id.SessionCode).PlayerCount; got != 1 {
			t.Fatalf("player must stay connected while a socket is open, got %d", got)
		}
		time.Sleep(20 * time.Millisecond)
	}

	_ = second.Close()
	srv.waitPlayers(t, id.SessionCode, 0)
}

func TestSocketCounting(t *testing.T) {
	h := NewWSHandler(nil, nil, zap.NewNop().Sugar())

	h.attach("s1/u1")
	h.attach("s1/u1")
	h.attach("s1/u2")
	if h.detach("s1/u1") {
		t.Fatalf("first of two sockets must not count as the last")
	}
	if !h.detach("s1/u1") {
		t.Fatalf("expected the last socket of u1")
	}
	if !h.detach("s1/u2") {
		t.Fatalf("expected the last socket of u2")
	}
	if len(h.sockets) != 0 {
		t.Fatalf("expected no tracked sockets, got %v", h.sockets)
	}
}

func TestUnknownSessionSocket(t *testing.T) {
	srv := newTestServer(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/play/NOPE42/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatalf("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 response, got %+v", resp)
	}
}

func TestHostFeed(t *testing.T) {
	srv := newTestServer(t)
	id := srv.createSession(t, map[string]any{"quizId": "quiz-1"})
	host := srv.dial(t, "/sessions/"+id.SessionCode+"/host")

	var snap sessionView
	readUntil(t, host, "snapshot", &snap)
	if snap.State != domain.StateLobby || snap.SessionCode != id.SessionCode {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	player := srv.dial(t, "/play/"+id.SessionCode+"/ws?playerId=u1&name=Alice")
	var welcome welcomePayload
	readUntil(t, player, "welcome", &welcome)

	var notice struct {
		Type   string         `json:"type"`
		Player *domain.Player `json:"player"`
	}
	readUntil(t, host, "notice", &notice, func(raw json.RawMessage) bool {
		return strings.Contains(string(raw), `"player_join"`)
	})
	if notice.Player == nil || notice.Player.DisplayName != "Alice" {
		t.Fatalf("unexpected join notice %+v", notice)
	}

	if err := host.WriteJSON(map[string]any{"type": "start"}); err != nil {
		t.Fatalf("write command: %v", err)
	}
	var result commandResult
	readUntil(t, host, "result", &result)
	if !result.Applied || result.State != domain.StateRunning {
		t.Fatalf("unexpected result %+v", result)
	}

	if resp := srv.do(t, http.MethodDelete, "/sessions/"+id.SessionCode, nil); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("close: %d", resp.StatusCode)
	}
	_ = host.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		if _, _, err := host.ReadMessage(); err != nil {
			break
		}
	}
}

func (s *testServer) dial(t *testing.T, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(s.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", path, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func (s *testServer) waitPlayers(t *testing.T, code string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.session(t, code).PlayerCount == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected %d connected players", want)
}

// readUntil skips messages until one of type typ (and accepted by match, if
// given) arrives, then decodes its payload into v.
func readUntil(t *testing.T, conn *websocket.Conn, typ string, v any, match ...func(json.RawMessage) bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		_ = conn.SetReadDeadline(deadline)
		var msg struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("waiting for %s: %v", typ, err)
		}
		if msg.Type != typ {
			continue
		}
		if len(match) > 0 && !match[0](msg.Payload) {
			continue
		}
		if err := json.Unmarshal(msg.Payload, v); err != nil {
			t.Fatalf("decode %s: %v", typ, err)
		}
		return
	}
}
