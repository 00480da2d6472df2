package memory

import (
	"context"
	"testing"
	"time"

	"live-quiz-engine/internal/app"
	"live-quiz-engine/internal/domain"
)

func TestSessionStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()

	first := &app.Host{Identity: domain.SessionIdentity{SessionCode: "ABC123"}, CreatedAt: time.Unix(10, 0)}
	second := &app.Host{Identity: domain.SessionIdentity{SessionCode: "XYZ789"}, CreatedAt: time.Unix(5, 0)}

	if err := store.Create(ctx, first); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Create(ctx, &app.Host{Identity: domain.SessionIdentity{SessionCode: "ABC123"}}); err != domain.ErrSessionExists {
		t.Fatalf("expected ErrSessionExists, got %v", err)
	}
	_ = store.Create(ctx, second)

	if got, ok := store.Get("ABC123"); !ok || got != first {
		t.Fatalf("expected session present")
	}
	if list := store.List(); len(list) != 2 || list[0] != second {
		t.Fatalf("expected oldest first, got %+v", list)
	}

	store.Delete("ABC123")
	if _, ok := store.Get("ABC123"); ok {
		t.Fatalf("expected session removed")
	}
}
