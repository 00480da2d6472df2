package app

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"live-quiz-engine/internal/anticheat"
	"live-quiz-engine/internal/domain"
	"live-quiz-engine/internal/logging"
)

const (
	// DefaultTickInterval is the cadence of the question countdown.
	DefaultTickInterval = time.Second
	// DefaultSyncInterval is the cadence of the full-state SYNC_PING.
	DefaultSyncInterval = 5 * time.Second

	commandQueueSize = 256
)

// EngineConfig configures an Engine. Zero values fall back to defaults.
type EngineConfig struct {
	SessionID    string
	TickInterval time.Duration
	// SyncInterval enables the built-in SYNC_PING ticker when positive.
	SyncInterval         time.Duration
	AntiCheat            bool
	HideQuestionOnMobile bool
	Policy               anticheat.Policy
	Scorer               Scorer
	Clock                Clock
	Logger               *zap.SugaredLogger
}

type commandKind uint8

const (
	cmdJoin commandKind = iota + 1
	cmdLeave
	cmdAnswer
	cmdStart
	cmdNext
	cmdShowLeaderboard
	cmdReset
	cmdSyncPing
	cmdSetAntiCheat
	cmdSetHideQuestion
	cmdApplySettings
	cmdDestroy
)

type command struct {
	kind       commandKind
	event      domain.PlayerEvent
	receivedAt time.Time
	enabled    bool
	settings   Settings
	reply      chan commandResult
}

type commandResult struct {
	applied bool
	err     error
}

// Snapshot is the committed engine state published after every command.
// Slices are shared between readers and must not be modified.
type Snapshot struct {
	State                domain.QuizState
	QuestionIndex        int
	QuestionCount        int
	Question             domain.Question
	Stats                domain.AnswerStats
	Players              []domain.Player
	Suspects             []domain.SuspectEntry
	Deadline             time.Time
	AntiCheat            bool
	HideQuestionOnMobile bool
}

// Engine runs one quiz. All state is owned by a single goroutine that drains a
// command queue in arrival order; the RUNNING to ANSWER_REVEAL transition is
// the serialization point for answers.
type Engine struct {
	sessionID    string
	questions    []domain.Question
	conn         Conn
	listener     Listener
	evaluator    *anticheat.Evaluator
	scorer       Scorer
	clock        Clock
	tickInterval time.Duration
	syncInterval time.Duration
	logger       *zap.SugaredLogger

	cmds chan command
	done chan struct{}
	snap atomic.Pointer[Snapshot]

	// Owned by the run goroutine.
	state          domain.QuizState
	index          int
	nonce          string
	nonces         map[string]int // every nonce minted since the last reset, by question index
	roundStartedAt time.Time
	deadline       time.Time
	timer          Ticker
	syncTicker     Ticker
	players        map[string]*domain.Player
	joinOrder      []string
	answers        map[int]map[string]domain.AnswerRecord
	suspects       map[string]*domain.SuspectEntry
	suspectOrder   []string
	antiCheat      bool
	hideQuestion   bool
}

// NewEngine builds an engine over questions and starts its goroutine. The
// engine subscribes to conn for player events; conn may be nil when only the
// listener needs the broadcasts.
func NewEngine(questions []domain.Question, conn Conn, listener Listener, cfg EngineConfig) (*Engine, error) {
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: no questions", domain.ErrInvalidQuestionSet)
	}
	if listener == nil {
		listener = NopListener{}
	}
	if cfg.Scorer == nil {
		cfg.Scorer = FlatScorer{}
	}
	if cfg.Clock == nil {
		cfg.Clock = realClock{}
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.DefaultLogger()
	}

	qs := make([]domain.Question, len(questions))
	copy(qs, questions)

	e := &Engine{
		sessionID:    cfg.SessionID,
		questions:    qs,
		conn:         conn,
		listener:     listener,
		evaluator:    anticheat.NewEvaluator(cfg.Policy),
		scorer:       cfg.Scorer,
		clock:        cfg.Clock,
		tickInterval: cfg.TickInterval,
		syncInterval: cfg.SyncInterval,
		logger:       cfg.Logger.Named("engine").With("session", cfg.SessionID),
		cmds:         make(chan command, commandQueueSize),
		done:         make(chan struct{}),
		state:        domain.StateLobby,
		players:      make(map[string]*domain.Player),
		nonces:       make(map[string]int),
		answers:      make(map[int]map[string]domain.AnswerRecord),
		suspects:     make(map[string]*domain.SuspectEntry),
		antiCheat:    cfg.AntiCheat,
		hideQuestion: cfg.HideQuestionOnMobile,
	}
	e.publish()

	if e.syncInterval > 0 {
		e.syncTicker = e.clock.NewTicker(e.syncInterval)
	}
	if conn != nil {
		conn.OnPlayerEvent(e.HandlePlayerEvent)
	}

	go e.run()
	return e, nil
}

// StartQuiz moves LOBBY to RUNNING on the first question. It is a no-op in any
// other state and reports whether the transition happened.
func (e *Engine) StartQuiz() bool {
	return e.do(command{kind: cmdStart}).applied
}

// NextQuestion advances from ANSWER_REVEAL or LEADERBOARD to the next
// question, or to FINISHED after the last one.
func (e *Engine) NextQuestion() bool {
	return e.do(command{kind: cmdNext}).applied
}

// ShowLeaderboard moves ANSWER_REVEAL to LEADERBOARD.
func (e *Engine) ShowLeaderboard() bool {
	return e.do(command{kind: cmdShowLeaderboard}).applied
}

// Reset returns to LOBBY, clearing scores, disconnected players and the
// suspect ledger.
func (e *Engine) Reset() {
	e.do(command{kind: cmdReset})
}

// BroadcastSyncPing emits a full-state SYNC_PING.
func (e *Engine) BroadcastSyncPing() {
	e.do(command{kind: cmdSyncPing})
}

// SetAntiCheatEnabled toggles the advisory heuristics. Only allowed in LOBBY.
func (e *Engine) SetAntiCheatEnabled(enabled bool) error {
	return e.do(command{kind: cmdSetAntiCheat, enabled: enabled}).err
}

// SetHideQuestionOnMobile hides question texts on player devices. Only
// allowed in LOBBY.
func (e *Engine) SetHideQuestionOnMobile(hide bool) error {
	return e.do(command{kind: cmdSetHideQuestion, enabled: hide}).err
}

// Settings carries the runtime toggles to change. Nil fields are left as they are.
type Settings struct {
	AntiCheat            *bool
	HideQuestionOnMobile *bool
}

// ApplySettings changes both toggles in one step. Nothing is applied outside
// LOBBY.
func (e *Engine) ApplySettings(settings Settings) error {
	return e.do(command{kind: cmdApplySettings, settings: settings}).err
}

// Destroy stops the timers, disconnects the transport and ends the engine
// goroutine. No listener method runs after Destroy returns. Safe to call more
// than once.
func (e *Engine) Destroy() {
	e.do(command{kind: cmdDestroy})
}

// Done is closed once the engine has been destroyed.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// HandlePlayerEvent queues an inbound player event. The receipt time is taken
// here, before queueing. Unknown or malformed events are dropped.
func (e *Engine) HandlePlayerEvent(evt domain.PlayerEvent) {
	var kind commandKind
	switch evt.Type {
	case domain.EventJoin:
		kind = cmdJoin
	case domain.EventLeave:
		kind = cmdLeave
	case domain.EventAnswer:
		kind = cmdAnswer
	default:
		e.logger.Debugw("dropping unknown player event", "type", evt.Type)
		return
	}
	if evt.PlayerID == "" {
		e.logger.Debugw("dropping player event without player id", "type", evt.Type)
		return
	}

	cmd := command{kind: kind, event: evt, receivedAt: e.clock.Now()}
	select {
	case e.cmds <- cmd:
	case <-e.done:
	}
}

func (e *Engine) do(cmd command) commandResult {
	cmd.reply = make(chan commandResult, 1)
	select {
	case e.cmds <- cmd:
	case <-e.done:
		return commandResult{err: domain.ErrEngineDestroyed}
	}
	select {
	case res := <-cmd.reply:
		return res
	case <-e.done:
		return commandResult{err: domain.ErrEngineDestroyed}
	}
}

func (e *Engine) run() {
	defer close(e.done)
	for {
		select {
		case cmd := <-e.cmds:
			res := e.apply(cmd)
			if cmd.reply != nil {
				cmd.reply <- res
			}
			if cmd.kind == cmdDestroy {
				return
			}
		case now := <-tickerC(e.timer):
			e.tick(now)
		case <-tickerC(e.syncTicker):
			e.syncPing()
		}
	}
}

func (e *Engine) apply(cmd command) commandResult {
	switch cmd.kind {
	case cmdJoin:
		e.join(cmd.event)
	case cmdLeave:
		e.leave(cmd.event)
	case cmdAnswer:
		e.answer(cmd.event, cmd.receivedAt)
	case cmdStart:
		return commandResult{applied: e.start()}
	case cmdNext:
		return commandResult{applied: e.next()}
	case cmdShowLeaderboard:
		return commandResult{applied: e.showLeaderboard()}
	case cmdReset:
		e.reset()
	case cmdSyncPing:
		e.syncPing()
	case cmdSetAntiCheat, cmdSetHideQuestion:
		if e.state != domain.StateLobby {
			return commandResult{err: domain.ErrNotInLobby}
		}
		if cmd.kind == cmdSetAntiCheat {
			e.antiCheat = cmd.enabled
		} else {
			e.hideQuestion = cmd.enabled
		}
		e.publish()
	case cmdApplySettings:
		if e.state != domain.StateLobby {
			return commandResult{err: domain.ErrNotInLobby}
		}
		if cmd.settings.AntiCheat != nil {
			e.antiCheat = *cmd.settings.AntiCheat
		}
		if cmd.settings.HideQuestionOnMobile != nil {
			e.hideQuestion = *cmd.settings.HideQuestionOnMobile
		}
		e.publish()
	case cmdDestroy:
		e.destroy()
	}
	return commandResult{applied: true}
}

func (e *Engine) start() bool {
	if e.state != domain.StateLobby {
		return false
	}
	e.index = 0
	e.beginRound()
	return true
}

func (e *Engine) next() bool {
	if e.state != domain.StateAnswerReveal && e.state != domain.StateLeaderboard {
		return false
	}
	if e.index+1 >= len(e.questions) {
		e.finish()
		return true
	}
	e.index++
	e.beginRound()
	return true
}

func (e *Engine) showLeaderboard() bool {
	if e.state != domain.StateAnswerReveal {
		return false
	}
	from := e.state
	e.state = domain.StateLeaderboard
	e.publish()

	e.broadcast(domain.HostEvent{
		Type:          domain.EventLeaderboard,
		State:         e.state,
		QuestionIndex: e.index,
		Entries:       e.leaderboard(),
	})
	e.listener.OnStateChange(from, e.state)
	return true
}

func (e *Engine) beginRound() {
	q := e.questions[e.index]
	now := e.clock.Now()

	from := e.state
	e.state = domain.StateRunning
	e.nonce = uuid.NewString()
	e.nonces[e.nonce] = e.index
	e.roundStartedAt = now
	e.deadline = now.Add(q.Duration())
	e.answers[e.index] = make(map[string]domain.AnswerRecord)
	e.startTimer()
	e.publish()

	e.logger.Infow("question started", "question", e.index, "duration", q.Duration())

	pub := q.Public(e.hideQuestion)
	e.broadcast(domain.HostEvent{
		Type:          domain.EventQuestionStart,
		State:         e.state,
		QuestionIndex: e.index,
		Question:      &pub,
		HideQuestion:  e.hideQuestion,
		DurationMs:    q.Duration().Milliseconds(),
		Nonce:         e.nonce,
		RemainingMs:   q.Duration().Milliseconds(),
	})
	e.listener.OnStateChange(from, e.state)
}

// endQuestion commits RUNNING to ANSWER_REVEAL. Answers processed afterwards
// for this question are rejected.
func (e *Engine) endQuestion() {
	if e.state != domain.StateRunning {
		return
	}
	e.stopTimer()
	e.state = domain.StateAnswerReveal
	e.publish()

	q := e.questions[e.index]
	stats := e.currentStats()
	e.logger.Infow("question ended", "question", e.index, "answers", stats.Total)

	e.broadcast(domain.HostEvent{
		Type:          domain.EventAnswerReveal,
		State:         e.state,
		QuestionIndex: e.index,
		Stats:         &stats,
		CorrectKey:    q.Correct,
	})
	e.listener.OnStateChange(domain.StateRunning, e.state)
	e.listener.OnQuestionEnd(e.index, stats, q.Correct)
}

func (e *Engine) finish() {
	from := e.state
	e.stopTimer()
	e.state = domain.StateFinished
	e.publish()

	e.logger.Infow("quiz finished", "players", len(e.players))

	e.broadcast(domain.HostEvent{
		Type:          domain.EventQuizFinished,
		State:         e.state,
		QuestionIndex: e.index,
		Entries:       e.leaderboard(),
	})
	e.listener.OnStateChange(from, e.state)
}

func (e *Engine) reset() {
	from := e.state
	e.stopTimer()
	e.state = domain.StateLobby
	e.index = 0
	e.nonce = ""
	e.nonces = make(map[string]int)
	e.roundStartedAt = time.Time{}
	e.deadline = time.Time{}
	e.answers = make(map[int]map[string]domain.AnswerRecord)
	e.suspects = make(map[string]*domain.SuspectEntry)
	e.suspectOrder = nil

	kept := e.joinOrder[:0]
	for _, id := range e.joinOrder {
		p := e.players[id]
		if !p.Connected {
			delete(e.players, id)
			continue
		}
		p.Score = 0
		p.LastScoredAt = time.Time{}
		kept = append(kept, id)
	}
	e.joinOrder = kept
	e.publish()

	e.logger.Infow("quiz reset", "players", len(e.players))

	e.broadcast(e.syncPingEvent())
	if from != e.state {
		e.listener.OnStateChange(from, e.state)
	}
}

func (e *Engine) destroy() {
	e.stopTimer()
	if e.syncTicker != nil {
		e.syncTicker.Stop()
		e.syncTicker = nil
	}
	if e.conn != nil {
		if err := e.conn.Disconnect(); err != nil {
			e.logger.Warnw("disconnect transport", "error", err)
		}
	}
	e.logger.Infow("engine destroyed")
}

func (e *Engine) tick(now time.Time) {
	if e.state != domain.StateRunning {
		e.stopTimer()
		return
	}
	remaining := e.remaining(now)
	e.listener.OnTimerTick(remaining)
	e.broadcast(domain.HostEvent{
		Type:          domain.EventTimerSync,
		State:         e.state,
		QuestionIndex: e.index,
		RemainingMs:   remaining.Milliseconds(),
	})
	if remaining == 0 {
		e.endQuestion()
	}
}

func (e *Engine) syncPing() {
	e.broadcast(e.syncPingEvent())
}

func (e *Engine) syncPingEvent() domain.HostEvent {
	stats := e.currentStats()
	evt := domain.HostEvent{
		Type:          domain.EventSyncPing,
		State:         e.state,
		QuestionIndex: e.index,
		Stats:         &stats,
		HideQuestion:  e.hideQuestion,
	}
	if e.state == domain.StateRunning {
		q := e.questions[e.index]
		pub := q.Public(e.hideQuestion)
		evt.Question = &pub
		evt.Nonce = e.nonce
		evt.DurationMs = q.Duration().Milliseconds()
		evt.RemainingMs = e.remaining(e.clock.Now()).Milliseconds()
	}
	return evt
}

func (e *Engine) join(evt domain.PlayerEvent) {
	p, ok := e.players[evt.PlayerID]
	if ok {
		p.Connected = true
		if evt.PlayerName != "" {
			p.DisplayName = evt.PlayerName
		}
	} else {
		name := evt.PlayerName
		if name == "" {
			name = evt.PlayerID
		}
		p = &domain.Player{PlayerID: evt.PlayerID, DisplayName: name, Connected: true}
		e.players[evt.PlayerID] = p
		e.joinOrder = append(e.joinOrder, evt.PlayerID)
		e.logger.Debugw("player joined", "player", evt.PlayerID)
	}
	e.publish()
	e.listener.OnPlayerJoin(*p, e.connectedCount())
}

func (e *Engine) leave(evt domain.PlayerEvent) {
	p, ok := e.players[evt.PlayerID]
	if !ok {
		return
	}
	p.Connected = false
	e.publish()
	e.listener.OnPlayerLeave(*p, e.connectedCount())

	if e.state == domain.StateRunning && e.allAnswered() {
		e.endQuestion()
	}
}

func (e *Engine) answer(evt domain.PlayerEvent, receivedAt time.Time) {
	if !evt.AnswerKey.Valid() {
		e.logger.Debugw("dropping answer with invalid key", "player", evt.PlayerID, "key", evt.AnswerKey)
		return
	}
	p, ok := e.players[evt.PlayerID]
	if !ok {
		// The JOIN may have been lost by the transport.
		e.join(domain.PlayerEvent{Type: domain.EventJoin, PlayerID: evt.PlayerID})
		p = e.players[evt.PlayerID]
	}

	// A nonce minted for an earlier question ties the answer to that question,
	// which has already left RUNNING.
	target, stale := e.index, false
	if idx, ok := e.nonces[evt.Nonce]; ok && evt.Nonce != e.nonce {
		target, stale = idx, true
	}

	records := e.answers[target]
	_, answered := records[evt.PlayerID]
	verdict := e.evaluator.Evaluate(anticheat.Input{
		State:           e.state,
		AlreadyAnswered: answered,
		Nonce:           evt.Nonce,
		ActiveNonce:     e.nonce,
		Stale:           stale,
		RoundStartedAt:  e.roundStartedAt,
		Deadline:        e.deadline,
		ReceivedAt:      receivedAt,
		Heuristics:      e.antiCheat,
	})

	rec := domain.AnswerRecord{
		PlayerID:      evt.PlayerID,
		QuestionIndex: target,
		Key:           evt.AnswerKey,
		Accepted:      verdict.Accepted,
		Flags:         verdict.Flags,
	}
	if verdict.Accepted {
		q := e.questions[e.index]
		elapsed := receivedAt.Sub(e.roundStartedAt)
		if elapsed < 0 {
			elapsed = 0
		}
		rec.Elapsed = elapsed
		rec.Correct = evt.AnswerKey == q.Correct
		if points := e.scorer.Score(ScoreInput{Question: q, Key: evt.AnswerKey, Elapsed: elapsed}); points > 0 {
			p.Score += points
			p.LastScoredAt = receivedAt
			rec.Awarded = points
		}
		records[evt.PlayerID] = rec
	} else {
		e.logger.Debugw("answer rejected", "player", evt.PlayerID, "question", target, "flags", verdict.Flags)
	}

	var suspect *domain.SuspectEntry
	if verdict.Flagged() && e.antiCheat {
		suspect = e.recordFlags(p, verdict.Flags)
	}
	e.publish()

	e.listener.OnAnswerReceived(rec)
	if suspect != nil {
		e.logger.Infow("suspect flagged", "player", p.PlayerID, "flags", verdict.Flags, "total", suspect.TotalFlags)
		e.listener.OnSuspectDetected(copySuspect(suspect), verdict.Flags)
	}

	if verdict.Accepted && e.allAnswered() {
		e.endQuestion()
	}
}

func (e *Engine) recordFlags(p *domain.Player, flags []domain.Flag) *domain.SuspectEntry {
	entry, ok := e.suspects[p.PlayerID]
	if !ok {
		entry = &domain.SuspectEntry{PlayerID: p.PlayerID}
		e.suspects[p.PlayerID] = entry
		e.suspectOrder = append(e.suspectOrder, p.PlayerID)
	}
	entry.Name = p.DisplayName
	entry.Reasons = append(entry.Reasons, flags...)
	entry.TotalFlags += len(flags)
	return entry
}

// allAnswered reports whether every connected player holds an accepted answer
// for the current question. An empty room never counts as answered.
func (e *Engine) allAnswered() bool {
	records := e.answers[e.index]
	connected := 0
	for _, p := range e.players {
		if !p.Connected {
			continue
		}
		connected++
		if _, ok := records[p.PlayerID]; !ok {
			return false
		}
	}
	return connected > 0
}

func (e *Engine) connectedCount() int {
	n := 0
	for _, p := range e.players {
		if p.Connected {
			n++
		}
	}
	return n
}

func (e *Engine) currentStats() domain.AnswerStats {
	records := make([]domain.AnswerRecord, 0, len(e.answers[e.index]))
	for _, rec := range e.answers[e.index] {
		records = append(records, rec)
	}
	return domain.TallyAnswers(records)
}

func (e *Engine) leaderboard() []domain.LeaderboardEntry {
	return domain.RankPlayers(e.playerList())
}

func (e *Engine) playerList() []domain.Player {
	players := make([]domain.Player, 0, len(e.joinOrder))
	for _, id := range e.joinOrder {
		players = append(players, *e.players[id])
	}
	return players
}

func (e *Engine) remaining(now time.Time) time.Duration {
	d := e.deadline.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

func (e *Engine) startTimer() {
	e.stopTimer()
	e.timer = e.clock.NewTicker(e.tickInterval)
}

func (e *Engine) stopTimer() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

func (e *Engine) broadcast(evt domain.HostEvent) {
	evt.SessionID = e.sessionID
	if e.conn != nil {
		if err := e.conn.Broadcast(evt); err != nil {
			e.logger.Debugw("broadcast failed", "type", evt.Type, "error", err)
		}
	}
	e.listener.OnBroadcast(evt)
}

func (e *Engine) publish() {
	suspects := make([]domain.SuspectEntry, 0, len(e.suspectOrder))
	for _, id := range e.suspectOrder {
		suspects = append(suspects, copySuspect(e.suspects[id]))
	}
	e.snap.Store(&Snapshot{
		State:                e.state,
		QuestionIndex:        e.index,
		QuestionCount:        len(e.questions),
		Question:             e.questions[e.index],
		Stats:                e.currentStats(),
		Players:              e.playerList(),
		Suspects:             suspects,
		Deadline:             e.deadline,
		AntiCheat:            e.antiCheat,
		HideQuestionOnMobile: e.hideQuestion,
	})
}

func copySuspect(s *domain.SuspectEntry) domain.SuspectEntry {
	out := *s
	out.Reasons = append([]domain.Flag(nil), s.Reasons...)
	return out
}

// Snapshot returns the last committed state.
func (e *Engine) Snapshot() Snapshot {
	return *e.snap.Load()
}

// State returns the committed quiz state.
func (e *Engine) State() domain.QuizState {
	return e.snap.Load().State
}

// CurrentStats returns the live answer counts of the current question.
func (e *Engine) CurrentStats() domain.AnswerStats {
	return e.snap.Load().Stats
}

// Leaderboard ranks the players by their committed scores.
func (e *Engine) Leaderboard() []domain.LeaderboardEntry {
	return domain.RankPlayers(e.snap.Load().Players)
}

// Suspects returns the anti-cheat ledger in first-flagged order.
func (e *Engine) Suspects() []domain.SuspectEntry {
	suspects := e.snap.Load().Suspects
	out := make([]domain.SuspectEntry, len(suspects))
	for i := range suspects {
		out[i] = copySuspect(&suspects[i])
	}
	return out
}

// SuspectCount returns the number of players with at least one flag.
func (e *Engine) SuspectCount() int {
	return len(e.snap.Load().Suspects)
}

// CurrentQuestion returns the question at the current index.
func (e *Engine) CurrentQuestion() domain.Question {
	return e.snap.Load().Question
}

// CurrentQuestionIndex returns the zero-based current question index.
func (e *Engine) CurrentQuestionIndex() int {
	return e.snap.Load().QuestionIndex
}

// PlayerCount returns the number of connected players.
func (e *Engine) PlayerCount() int {
	n := 0
	for _, p := range e.snap.Load().Players {
		if p.Connected {
			n++
		}
	}
	return n
}

// Players returns the roster in join order.
func (e *Engine) Players() []domain.Player {
	players := e.snap.Load().Players
	return append([]domain.Player(nil), players...)
}

// RemainingTime returns the countdown left on the running question, clamped
// at zero. It is zero outside RUNNING.
func (e *Engine) RemainingTime() time.Duration {
	s := e.snap.Load()
	if s.State != domain.StateRunning {
		return 0
	}
	d := s.Deadline.Sub(e.clock.Now())
	if d < 0 {
		return 0
	}
	return d
}
