package boltdb

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"live-quiz-engine/internal/domain"
)

func TestQuizStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "quiz.db")

	store, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	set := domain.QuestionSet{
		ID:    "quiz-1",
		Title: "Science",
		Questions: []domain.Question{
			{Prompt: "H2O is?", Answers: domain.Answers{A: "Water", B: "Salt"}, Correct: domain.KeyA, Points: 2},
		},
	}
	if err := store.SaveQuiz(ctx, set); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.SaveQuiz(ctx, domain.QuestionSet{ID: "quiz-0", Questions: set.Questions}); err != nil {
		t.Fatalf("save second: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Reopen to make sure data hit the file.
	store, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer store.Close()

	got, err := store.LoadQuiz(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Title != "Science" || len(got.Questions) != 1 || got.Questions[0].Correct != domain.KeyA {
		t.Fatalf("unexpected set %+v", got)
	}

	ids, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ids) != 2 || ids[0] != "quiz-0" {
		t.Fatalf("unexpected ids %v", ids)
	}

	if _, err := store.LoadQuiz(ctx, "missing"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}
}
