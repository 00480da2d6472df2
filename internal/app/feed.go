package app

import (
	"sync"
	"time"

	"live-quiz-engine/internal/domain"
)

// NoticeType names a host dashboard notification.
type NoticeType string

const (
	NoticeBroadcast   NoticeType = "broadcast"
	NoticeState       NoticeType = "state"
	NoticeTick        NoticeType = "tick"
	NoticeQuestionEnd NoticeType = "question_end"
	NoticePlayerJoin  NoticeType = "player_join"
	NoticePlayerLeave NoticeType = "player_leave"
	NoticeAnswer      NoticeType = "answer"
	NoticeSuspect     NoticeType = "suspect"
)

// Notice is one engine callback rendered for the host dashboard.
type Notice struct {
	Type          NoticeType           `json:"type"`
	Event         *domain.HostEvent    `json:"event,omitempty"`
	From          domain.QuizState     `json:"from,omitempty"`
	To            domain.QuizState     `json:"to,omitempty"`
	RemainingMs   int64                `json:"remainingMs,omitempty"`
	QuestionIndex int                  `json:"questionIndex"`
	Stats         *domain.AnswerStats  `json:"stats,omitempty"`
	CorrectKey    domain.AnswerKey     `json:"correctKey,omitempty"`
	Player        *domain.Player       `json:"player,omitempty"`
	PlayerCount   int                  `json:"playerCount,omitempty"`
	Answer        *domain.AnswerRecord `json:"answer,omitempty"`
	Suspect       *domain.SuspectEntry `json:"suspect,omitempty"`
	Flags         []domain.Flag        `json:"flags,omitempty"`
}

const feedBuffer = 16

// Feed is a Listener that fans engine callbacks out to dashboard subscribers.
// Slow subscribers lose their oldest pending notice instead of blocking the
// engine.
type Feed struct {
	mu          sync.Mutex
	closed      bool
	subscribers map[chan Notice]struct{}
}

func NewFeed() *Feed {
	return &Feed{subscribers: make(map[chan Notice]struct{})}
}

// Subscribe registers a new dashboard. The returned cancel func is idempotent.
func (f *Feed) Subscribe() (<-chan Notice, func()) {
	ch := make(chan Notice, feedBuffer)

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	f.subscribers[ch] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		if _, ok := f.subscribers[ch]; ok {
			delete(f.subscribers, ch)
			close(ch)
		}
		f.mu.Unlock()
	}
	return ch, cancel
}

// Close ends every subscription. Later notices are discarded.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for ch := range f.subscribers {
		delete(f.subscribers, ch)
		close(ch)
	}
}

// Subscribers returns the number of active subscriptions.
func (f *Feed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribers)
}

func (f *Feed) publish(n Notice) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subscribers {
		select {
		case ch <- n:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- n
		}
	}
}

func (f *Feed) OnBroadcast(evt domain.HostEvent) {
	f.publish(Notice{Type: NoticeBroadcast, Event: &evt, QuestionIndex: evt.QuestionIndex})
}

func (f *Feed) OnStateChange(from, to domain.QuizState) {
	f.publish(Notice{Type: NoticeState, From: from, To: to})
}

func (f *Feed) OnTimerTick(remaining time.Duration) {
	f.publish(Notice{Type: NoticeTick, RemainingMs: remaining.Milliseconds()})
}

func (f *Feed) OnQuestionEnd(questionIndex int, stats domain.AnswerStats, correct domain.AnswerKey) {
	f.publish(Notice{Type: NoticeQuestionEnd, QuestionIndex: questionIndex, Stats: &stats, CorrectKey: correct})
}

func (f *Feed) OnPlayerJoin(player domain.Player, playerCount int) {
	f.publish(Notice{Type: NoticePlayerJoin, Player: &player, PlayerCount: playerCount})
}

func (f *Feed) OnPlayerLeave(player domain.Player, playerCount int) {
	f.publish(Notice{Type: NoticePlayerLeave, Player: &player, PlayerCount: playerCount})
}

func (f *Feed) OnAnswerReceived(record domain.AnswerRecord) {
	f.publish(Notice{Type: NoticeAnswer, QuestionIndex: record.QuestionIndex, Answer: &record})
}

func (f *Feed) OnSuspectDetected(entry domain.SuspectEntry, flags []domain.Flag) {
	f.publish(Notice{Type: NoticeSuspect, Suspect: &entry, Flags: flags})
}

var _ Listener = (*Feed)(nil)
