package cli

import "live-quiz-engine/internal/domain"

// sampleQuestionSets is served when neither postgres nor bolt is configured.
func sampleQuestionSets() map[string]domain.QuestionSet {
	return map[string]domain.QuestionSet{
		"demo": {
			ID:    "demo",
			Title: "Warm-up",
			Questions: []domain.Question{
				{
					Prompt:     "What is 2 + 2?",
					Answers:    domain.Answers{A: "3", B: "4", C: "5", D: "22"},
					Correct:    domain.KeyB,
					DurationMs: 15000,
					Points:     10,
				},
				{
					Prompt:     "Which planet is known as the red planet?",
					Answers:    domain.Answers{A: "Venus", B: "Jupiter", C: "Mars", D: "Mercury"},
					Correct:    domain.KeyC,
					DurationMs: 20000,
					Points:     10,
				},
				{
					Prompt:     "How many minutes are in an hour?",
					Answers:    domain.Answers{A: "60", B: "100", C: "24", D: "30"},
					Correct:    domain.KeyA,
					DurationMs: 10000,
					Points:     20,
				},
			},
		},
	}
}
