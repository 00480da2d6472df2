package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"live-quiz-engine/internal/domain"
)

func TestChannelDeliversAcrossRoles(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	ch := NewChannel(newClient(mr), nil)

	host, err := ch.Connect(ctx, "s1", domain.RoleHost)
	if err != nil {
		t.Fatalf("connect host: %v", err)
	}
	defer host.Disconnect()
	player, err := ch.Connect(ctx, "s1", domain.RolePlayer)
	if err != nil {
		t.Fatalf("connect player: %v", err)
	}
	defer player.Disconnect()

	hostEvents := make(chan domain.HostEvent, 4)
	playerEvents := make(chan domain.PlayerEvent, 4)
	player.OnHostEvent(func(evt domain.HostEvent) { hostEvents <- evt })
	host.OnPlayerEvent(func(evt domain.PlayerEvent) { playerEvents <- evt })

	if err := host.Broadcast(domain.HostEvent{Type: domain.EventQuestionStart, Nonce: "n1", DurationMs: 20000}); err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	select {
	case evt := <-hostEvents:
		if evt.Type != domain.EventQuestionStart || evt.Nonce != "n1" || evt.DurationMs != 20000 {
			t.Fatalf("unexpected host event %+v", evt)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("player did not receive broadcast")
	}

	if err := player.Send(domain.PlayerEvent{Type: domain.EventAnswer, PlayerID: "p1", AnswerKey: domain.KeyD, Nonce: "n1"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	select {
	case evt := <-playerEvents:
		if evt.PlayerID != "p1" || evt.AnswerKey != domain.KeyD {
			t.Fatalf("unexpected player event %+v", evt)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("host did not receive answer")
	}

	if err := player.Broadcast(domain.HostEvent{}); err != domain.ErrWrongRole {
		t.Fatalf("expected ErrWrongRole, got %v", err)
	}
}

func TestChannelDisconnect(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ch := NewChannel(newClient(mr), nil)
	player, err := ch.Connect(context.Background(), "s1", domain.RolePlayer)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	if err := player.Disconnect(); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	if err := player.Disconnect(); err != nil {
		t.Fatalf("second disconnect must be a no-op: %v", err)
	}
	if err := player.Send(domain.PlayerEvent{Type: domain.EventJoin, PlayerID: "p1"}); err != domain.ErrTransportClosed {
		t.Fatalf("expected ErrTransportClosed, got %v", err)
	}
}
