package app

import (
	"time"

	"live-quiz-engine/internal/domain"
)

// Listener observes an Engine. Methods run on the engine goroutine after the
// state they report has been committed, so accessors called from a listener
// see that state. Listeners must not call Engine mutators synchronously.
type Listener interface {
	OnBroadcast(evt domain.HostEvent)
	OnStateChange(from, to domain.QuizState)
	OnTimerTick(remaining time.Duration)
	OnQuestionEnd(questionIndex int, stats domain.AnswerStats, correct domain.AnswerKey)
	OnPlayerJoin(player domain.Player, playerCount int)
	OnPlayerLeave(player domain.Player, playerCount int)
	OnAnswerReceived(record domain.AnswerRecord)
	OnSuspectDetected(entry domain.SuspectEntry, flags []domain.Flag)
}

// NopListener ignores every callback. Embed it to implement only some methods.
type NopListener struct{}

func (NopListener) OnBroadcast(domain.HostEvent) {}
func (NopListener) OnStateChange(domain.QuizState, domain.QuizState) {}
func (NopListener) OnTimerTick(time.Duration) {}
func (NopListener) OnQuestionEnd(int, domain.AnswerStats, domain.AnswerKey) {}
func (NopListener) OnPlayerJoin(domain.Player, int) {}
func (NopListener) OnPlayerLeave(domain.Player, int) {}
func (NopListener) OnAnswerReceived(domain.AnswerRecord) {}
func (NopListener) OnSuspectDetected(domain.SuspectEntry, []domain.Flag) {}

var _ Listener = NopListener{}
