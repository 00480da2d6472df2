package app

import (
	"fmt"
	"time"

	"live-quiz-engine/internal/domain"
)

const (
	ScoringFlat  = "flat"
	ScoringSpeed = "speed"
)

// ScoreInput describes one accepted answer.
type ScoreInput struct {
	Question domain.Question
	Key      domain.AnswerKey
	Elapsed  time.Duration
}

// Scorer turns an accepted answer into points. Implementations must never
// return a negative value.
type Scorer interface {
	Score(in ScoreInput) int
}

// FlatScorer awards the question points for a correct answer.
type FlatScorer struct{}

func (FlatScorer) Score(in ScoreInput) int {
	if in.Key != in.Question.Correct {
		return 0
	}
	return basePoints(in.Question)
}

// SpeedBonusScorer awards the question points plus up to MaxBonus, scaled by
// the share of the countdown that was still left.
type SpeedBonusScorer struct {
	MaxBonus int
}

func (s SpeedBonusScorer) Score(in ScoreInput) int {
	if in.Key != in.Question.Correct {
		return 0
	}
	points := basePoints(in.Question)
	if s.MaxBonus <= 0 {
		return points
	}

	duration := in.Question.Duration()
	remaining := duration - in.Elapsed
	if remaining < 0 {
		remaining = 0
	}
	if remaining > duration {
		remaining = duration
	}
	bonus := int(int64(s.MaxBonus) * int64(remaining) / int64(duration))
	return points + bonus
}

func basePoints(q domain.Question) int {
	if q.Points <= 0 {
		return domain.DefaultQuestionPoints
	}
	return q.Points
}

// NewScorer resolves a scoring strategy by name. An empty name means flat.
func NewScorer(name string, maxBonus int) (Scorer, error) {
	switch name {
	case "", ScoringFlat:
		return FlatScorer{}, nil
	case ScoringSpeed:
		return SpeedBonusScorer{MaxBonus: maxBonus}, nil
	default:
		return nil, fmt.Errorf("%w %q", domain.ErrUnknownScoring, name)
	}
}
