package domain

import (
	"fmt"
	"sort"
	"time"
)

const (
	// DefaultQuestionDuration applies when a question does not set its own.
	DefaultQuestionDuration = 20 * time.Second
	// DefaultQuestionPoints applies when a question does not set its own.
	DefaultQuestionPoints = 1
)

// AnswerKey identifies one of the four answer slots.
type AnswerKey string

const (
	KeyA AnswerKey = "A"
	KeyB AnswerKey = "B"
	KeyC AnswerKey = "C"
	KeyD AnswerKey = "D"
)

// Valid reports whether k is one of A-D.
func (k AnswerKey) Valid() bool {
	switch k {
	case KeyA, KeyB, KeyC, KeyD:
		return true
	}
	return false
}

// Answers holds the four answer texts.
type Answers struct {
	A string `json:"A" yaml:"A"`
	B string `json:"B" yaml:"B"`
	C string `json:"C" yaml:"C"`
	D string `json:"D" yaml:"D"`
}

// Question is an immutable multiple-choice question.
type Question struct {
	Index      int       `json:"index" yaml:"index"`
	Prompt     string    `json:"prompt" yaml:"prompt"`
	Answers    Answers   `json:"answers" yaml:"answers"`
	Correct    AnswerKey `json:"correct" yaml:"correct"`
	DurationMs int64     `json:"durationMs" yaml:"durationMs"`
	Points     int       `json:"points" yaml:"points"` // defaults to 1 if zero
	AudioURL   string    `json:"audioUrl,omitempty" yaml:"audioUrl,omitempty"`
}

// Duration returns the countdown length of the question.
func (q Question) Duration() time.Duration {
	if q.DurationMs <= 0 {
		return DefaultQuestionDuration
	}
	return time.Duration(q.DurationMs) * time.Millisecond
}

// Public strips the correct key. When hide is set the prompt and answer texts
// are blanked as well so that player devices only show the answer buttons.
func (q Question) Public(hide bool) PublicQuestion {
	pq := PublicQuestion{
		Index:      q.Index,
		Prompt:     q.Prompt,
		Answers:    q.Answers,
		DurationMs: q.Duration().Milliseconds(),
		Points:     q.Points,
		AudioURL:   q.AudioURL,
	}
	if hide {
		pq.Prompt = ""
		pq.Answers = Answers{}
		pq.AudioURL = ""
	}
	return pq
}

// PublicQuestion is the broadcast form of a Question.
type PublicQuestion struct {
	Index      int     `json:"index"`
	Prompt     string  `json:"prompt,omitempty"`
	Answers    Answers `json:"answers"`
	DurationMs int64   `json:"durationMs"`
	Points     int     `json:"points"`
	AudioURL   string  `json:"audioUrl,omitempty"`
}

// QuestionSet is an ordered list of questions.
type QuestionSet struct {
	ID        string     `json:"id" yaml:"id"`
	Title     string     `json:"title" yaml:"title"`
	Questions []Question `json:"questions" yaml:"questions"`
}

// Normalize assigns indexes and fills default durations and points.
func (s QuestionSet) Normalize() QuestionSet {
	out := QuestionSet{ID: s.ID, Title: s.Title, Questions: make([]Question, len(s.Questions))}
	for i, q := range s.Questions {
		q.Index = i
		if q.DurationMs <= 0 {
			q.DurationMs = DefaultQuestionDuration.Milliseconds()
		}
		if q.Points == 0 {
			q.Points = DefaultQuestionPoints
		}
		out.Questions[i] = q
	}
	return out
}

// Validate checks that the set can be played.
func (s QuestionSet) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidQuestionSet)
	}
	if len(s.Questions) == 0 {
		return fmt.Errorf("%w: %s has no questions", ErrInvalidQuestionSet, s.ID)
	}
	for i, q := range s.Questions {
		if q.Prompt == "" {
			return fmt.Errorf("%w: question %d has no prompt", ErrInvalidQuestionSet, i)
		}
		if !q.Correct.Valid() {
			return fmt.Errorf("%w: question %d has correct key %q", ErrInvalidQuestionSet, i, q.Correct)
		}
		if q.Points < 0 {
			return fmt.Errorf("%w: question %d has negative points", ErrInvalidQuestionSet, i)
		}
	}
	return nil
}

// SessionIdentity addresses one quiz run.
type SessionIdentity struct {
	SessionID   string `json:"sessionId"`
	SessionCode string `json:"sessionCode"`
	JoinURL     string `json:"joinUrl"`
}

// Player is a participant in a run. PlayerID is stable across reconnects.
type Player struct {
	PlayerID     string    `json:"playerId"`
	DisplayName  string    `json:"displayName"`
	Connected    bool      `json:"connected"`
	Score        int       `json:"score"`
	LastScoredAt time.Time `json:"-"`
}

// QuizState is the engine state.
type QuizState string

const (
	StateLobby        QuizState = "LOBBY"
	StateRunning      QuizState = "RUNNING"
	StateAnswerReveal QuizState = "ANSWER_REVEAL"
	StateLeaderboard  QuizState = "LEADERBOARD"
	StateFinished     QuizState = "FINISHED"
)

// Flag is an anti-cheat classification attached to an answer.
type Flag string

const (
	FlagTooFast      Flag = "too_fast"
	FlagLate         Flag = "late"
	FlagDuplicate    Flag = "duplicate"
	FlagBadNonce     Flag = "bad_nonce"
	FlagInvalidState Flag = "invalid_state"
)

// AnswerRecord is the outcome of one ANSWER event. Only accepted records are
// kept by the engine, at most one per (PlayerID, QuestionIndex).
type AnswerRecord struct {
	PlayerID      string        `json:"playerId"`
	QuestionIndex int           `json:"questionIndex"`
	Key           AnswerKey     `json:"key"`
	Accepted      bool          `json:"accepted"`
	Flags         []Flag        `json:"flags,omitempty"`
	Correct       bool          `json:"correct"`
	Awarded       int           `json:"awarded"`
	Elapsed       time.Duration `json:"-"`
}

// AnswerStats counts accepted answers per key for one question.
type AnswerStats struct {
	A     int `json:"A"`
	B     int `json:"B"`
	C     int `json:"C"`
	D     int `json:"D"`
	Total int `json:"total"`
}

// Add counts one answer for key.
func (s *AnswerStats) Add(key AnswerKey) {
	switch key {
	case KeyA:
		s.A++
	case KeyB:
		s.B++
	case KeyC:
		s.C++
	case KeyD:
		s.D++
	default:
		return
	}
	s.Total++
}

// TallyAnswers derives stats from accepted records.
func TallyAnswers(records []AnswerRecord) AnswerStats {
	var stats AnswerStats
	for _, r := range records {
		if r.Accepted {
			stats.Add(r.Key)
		}
	}
	return stats
}

// LeaderboardEntry is a ranked view of a player.
type LeaderboardEntry struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
	Rank     int    `json:"rank"`
}

// RankPlayers orders players by score descending. Ties go to whoever reached
// their score first, then display name, then player id. Ranks are 1-based and
// contiguous.
func RankPlayers(players []Player) []LeaderboardEntry {
	sorted := make([]Player, len(players))
	copy(sorted, players)
	sort.SliceStable(sorted, func(i, j int) bool {
		pi, pj := sorted[i], sorted[j]
		if pi.Score != pj.Score {
			return pi.Score > pj.Score
		}
		if !pi.LastScoredAt.Equal(pj.LastScoredAt) {
			if pi.LastScoredAt.IsZero() {
				return false
			}
			if pj.LastScoredAt.IsZero() {
				return true
			}
			return pi.LastScoredAt.Before(pj.LastScoredAt)
		}
		if pi.DisplayName != pj.DisplayName {
			return pi.DisplayName < pj.DisplayName
		}
		return pi.PlayerID < pj.PlayerID
	})

	entries := make([]LeaderboardEntry, len(sorted))
	for i, p := range sorted {
		entries[i] = LeaderboardEntry{
			PlayerID: p.PlayerID,
			Name:     p.DisplayName,
			Score:    p.Score,
			Rank:     i + 1,
		}
	}
	return entries
}

// SuspectEntry accumulates anti-cheat flags for one player during a run.
type SuspectEntry struct {
	PlayerID   string `json:"playerId"`
	Name       string `json:"name"`
	TotalFlags int    `json:"totalFlags"`
	Reasons    []Flag `json:"reasons"`
}
