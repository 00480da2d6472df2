package domain

// Role identifies the side of a transport connection.
type Role string

const (
	RoleHost   Role = "host"
	RolePlayer Role = "player"
)

// HostEventType names host-to-player messages.
type HostEventType string

const (
	EventQuestionStart HostEventType = "QUESTION_START"
	EventTimerSync     HostEventType = "TIMER_SYNC"
	EventAnswerReveal  HostEventType = "ANSWER_REVEAL"
	EventLeaderboard   HostEventType = "LEADERBOARD"
	EventSyncPing      HostEventType = "SYNC_PING"
	EventQuizFinished  HostEventType = "QUIZ_FINISHED"
)

// HostEvent is a host broadcast. Fields not used by a given type are left empty.
type HostEvent struct {
	Type          HostEventType      `json:"type"`
	SessionID     string             `json:"sessionId,omitempty"`
	State         QuizState          `json:"state,omitempty"`
	QuestionIndex int                `json:"questionIndex"`
	Question      *PublicQuestion    `json:"question,omitempty"`
	HideQuestion  bool               `json:"hideQuestion,omitempty"`
	DurationMs    int64              `json:"durationMs,omitempty"`
	Nonce         string             `json:"nonce,omitempty"`
	RemainingMs   int64              `json:"remainingMs"`
	Stats         *AnswerStats       `json:"stats,omitempty"`
	CorrectKey    AnswerKey          `json:"correctKey,omitempty"`
	Entries       []LeaderboardEntry `json:"entries,omitempty"`
}

// PlayerEventType names player-to-host messages.
type PlayerEventType string

const (
	EventJoin   PlayerEventType = "JOIN"
	EventLeave  PlayerEventType = "LEAVE"
	EventAnswer PlayerEventType = "ANSWER"
)

// PlayerEvent is a message from a player device.
type PlayerEvent struct {
	Type            PlayerEventType `json:"type"`
	PlayerID        string          `json:"playerId"`
	PlayerName      string          `json:"playerName,omitempty"`
	AnswerKey       AnswerKey       `json:"answerKey,omitempty"`
	Nonce           string          `json:"nonce,omitempty"`
	ClientTimestamp int64           `json:"clientTimestamp,omitempty"`
}
