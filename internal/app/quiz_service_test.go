package app_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"live-quiz-engine/internal/app"
	"live-quiz-engine/internal/domain"
	"live-quiz-engine/internal/infra/memory"
)

func TestCreateSessionAndPlayOverChannel(t *testing.T) {
	ctx := context.Background()
	service, registry := newTestService(t)

	host, err := service.CreateSession(ctx, "quiz-1", app.SessionOptions{})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	defer service.Shutdown(ctx)

	id := host.Identity
	if len(id.SessionCode) != 6 || id.SessionID == "" {
		t.Fatalf("unexpected identity %+v", id)
	}
	if id.JoinURL != "http://quiz.local/play/"+id.SessionCode {
		t.Fatalf("unexpected join url %q", id.JoinURL)
	}
	if got, err := service.Session(strings.ToLower(id.SessionCode)); err != nil || got != host {
		t.Fatalf("lookup by code failed: %v", err)
	}

	notices, cancel := host.Feed.Subscribe()
	defer cancel()

	player, err := registry.Connect(ctx, id.SessionID, domain.RolePlayer)
	if err != nil {
		t.Fatalf("connect player: %v", err)
	}
	defer player.Disconnect()
	events := make(chan domain.HostEvent, 16)
	player.OnHostEvent(func(evt domain.HostEvent) { events <- evt })

	if err := player.Send(domain.PlayerEvent{Type: domain.EventJoin, PlayerID: "u1", PlayerName: "Alice"}); err != nil {
		t.Fatalf("send join: %v", err)
	}
	waitNotice(t, notices, app.NoticePlayerJoin)

	if !host.Engine.StartQuiz() {
		t.Fatalf("start failed")
	}
	start := waitEvent(t, events, domain.EventQuestionStart)
	if start.Question == nil || start.Question.Prompt != "Select the right option" {
		t.Fatalf("unexpected question %+v", start.Question)
	}

	_ = player.Send(domain.PlayerEvent{Type: domain.EventAnswer, PlayerID: "u1", AnswerKey: domain.KeyB, Nonce: start.Nonce})
	reveal := waitEvent(t, events, domain.EventAnswerReveal)
	if reveal.CorrectKey != domain.KeyB || reveal.Stats.B != 1 {
		t.Fatalf("unexpected reveal %+v", reveal)
	}

	lb := host.Engine.Leaderboard()
	if len(lb) != 1 || lb[0].Score != 1 {
		t.Fatalf("expected Alice with 1 point, got %+v", lb)
	}
}

func TestCreateSessionAppliesOptions(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)
	defer service.Shutdown(ctx)

	on := true
	host, err := service.CreateSession(ctx, "quiz-1", app.SessionOptions{AntiCheat: &on, HideQuestionOnMobile: true, Scoring: app.ScoringSpeed})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	snap := host.Engine.Snapshot()
	if !snap.AntiCheat || !snap.HideQuestionOnMobile || snap.State != domain.StateLobby {
		t.Fatalf("options not applied: %+v", snap)
	}

	if _, err := service.CreateSession(ctx, "quiz-1", app.SessionOptions{Scoring: "random"}); err == nil {
		t.Fatalf("expected unknown scoring to fail")
	}
}

func TestSessionLookupErrors(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)

	if _, err := service.CreateSession(ctx, "quiz-unknown", app.SessionOptions{}); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected quiz error, got %v", err)
	}
	if _, err := service.Session("NOPE42"); err != domain.ErrSessionNotFound {
		t.Fatalf("expected session error, got %v", err)
	}
	if err := service.CloseSession(ctx, "NOPE42"); err != domain.ErrSessionNotFound {
		t.Fatalf("expected session error, got %v", err)
	}
}

func TestCloseSessionDestroysEngine(t *testing.T) {
	ctx := context.Background()
	service, registry := newTestService(t)

	host, err := service.CreateSession(ctx, "quiz-1", app.SessionOptions{})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	notices, _ := host.Feed.Subscribe()

	if err := service.CloseSession(ctx, host.Identity.SessionCode); err != nil {
		t.Fatalf("close session: %v", err)
	}
	select {
	case <-host.Engine.Done():
	case <-time.After(time.Second):
		t.Fatalf("engine not destroyed")
	}
	for range notices {
	}
	if _, err := service.Session(host.Identity.SessionCode); err == nil {
		t.Fatalf("expected session to be gone")
	}
	if registry.Connections(host.Identity.SessionID) != 0 {
		t.Fatalf("expected host transport disconnected")
	}
	if len(service.Sessions()) != 0 {
		t.Fatalf("expected no sessions")
	}
}

func TestNewSessionCodeAlphabet(t *testing.T) {
	for i := 0; i < 200; i++ {
		code := app.NewSessionCode()
		if len(code) != 6 || strings.ContainsAny(code, "01IO") {
			t.Fatalf("bad code %q", code)
		}
	}
}

func newTestService(t *testing.T) (*app.QuizService, *memory.Registry) {
	t.Helper()
	quizRepo, err := memory.NewQuizRepository(memory.NewStaticQuizLoader(map[string]domain.QuestionSet{
		"quiz-1": {
			ID:    "quiz-1",
			Title: "Smoke test",
			Questions: []domain.Question{
				{
					Prompt:  "Select the right option",
					Answers: domain.Answers{A: "Wrong", B: "Right", C: "Wrong", D: "Wrong"},
					Correct: domain.KeyB,
				},
			},
		},
	}), 5*time.Minute, 8)
	if err != nil {
		t.Fatalf("quiz repository: %v", err)
	}
	registry := memory.NewRegistry(16)
	service := app.NewQuizService(memory.NewSessionStore(), quizRepo, registry, app.ServiceConfig{
		BaseURL: "http://quiz.local/",
		Logger:  zap.NewNop().Sugar(),
	})
	return service, registry
}

func waitEvent(t *testing.T, ch <-chan domain.HostEvent, typ domain.HostEventType) domain.HostEvent {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case evt := <-ch:
			if evt.Type == typ {
				return evt
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", typ)
		}
	}
}

func waitNotice(t *testing.T, ch <-chan app.Notice, typ app.NoticeType) app.Notice {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case n := <-ch:
			if n.Type == typ {
				return n
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", typ)
		}
	}
}
