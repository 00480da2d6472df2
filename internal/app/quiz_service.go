package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fastrand"
	"go.uber.org/zap"

	"live-quiz-engine/internal/anticheat"
	"live-quiz-engine/internal/domain"
	"live-quiz-engine/internal/logging"
)

const (
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength   = 6
	codeAttempts = 8
)

// SessionRepository abstracts where live sessions are registered (in-memory, Redis, etc).
type SessionRepository interface {
	// Create registers host under its code and fails with domain.ErrSessionExists
	// when the code is taken.
	Create(ctx context.Context, host *Host) error
	Get(code string) (*Host, bool)
	Delete(code string)
	List() []*Host
}

// QuizRepository loads question sets (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.QuestionSet, error)
}

// Host is one live session: its identity, its engine and the dashboard feed
// the engine reports to.
type Host struct {
	Identity  domain.SessionIdentity
	QuizID    string
	Title     string
	Engine    *Engine
	Feed      *Feed
	CreatedAt time.Time

	closeOnce sync.Once
}

// Close destroys the engine and ends every dashboard subscription.
func (h *Host) Close() {
	h.closeOnce.Do(func() {
		h.Engine.Destroy()
		h.Feed.Close()
	})
}

// SessionOptions are per-session overrides of the service defaults.
type SessionOptions struct {
	AntiCheat            *bool
	HideQuestionOnMobile bool
	Scoring              string
}

// ServiceConfig carries the service-wide defaults for new sessions.
type ServiceConfig struct {
	BaseURL      string
	TickInterval time.Duration
	SyncInterval time.Duration
	AntiCheat    bool
	Policy       anticheat.Policy
	Scoring      string
	MaxBonus     int
	Clock        Clock
	Logger       *zap.SugaredLogger
}

// QuizService contains the session use cases.
type QuizService struct {
	sessions SessionRepository
	quizzes  QuizRepository
	channel  Channel
	cfg      ServiceConfig
	logger   *zap.SugaredLogger
}

func NewQuizService(store SessionRepository, quizzes QuizRepository, channel Channel, cfg ServiceConfig) *QuizService {
	if cfg.Logger == nil {
		cfg.Logger = logging.DefaultLogger()
	}
	if cfg.Clock == nil {
		cfg.Clock = realClock{}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &QuizService{
		sessions: store,
		quizzes:  quizzes,
		channel:  channel,
		cfg:      cfg,
		logger:   cfg.Logger.Named("service"),
	}
}

// CreateSession loads a question set and starts a new engine in LOBBY under a
// fresh join code.
func (s *QuizService) CreateSession(ctx context.Context, quizID string, opts SessionOptions) (*Host, error) {
	set, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	set = set.Normalize()
	if err := set.Validate(); err != nil {
		return nil, err
	}

	scoring := opts.Scoring
	if scoring == "" {
		scoring = s.cfg.Scoring
	}
	scorer, err := NewScorer(scoring, s.cfg.MaxBonus)
	if err != nil {
		return nil, err
	}
	antiCheat := s.cfg.AntiCheat
	if opts.AntiCheat != nil {
		antiCheat = *opts.AntiCheat
	}

	sessionID := uuid.NewString()
	conn, err := s.channel.Connect(ctx, sessionID, domain.RoleHost)
	if err != nil {
		return nil, fmt.Errorf("connect host channel: %w", err)
	}

	feed := NewFeed()
	engine, err := NewEngine(set.Questions, conn, feed, EngineConfig{
		SessionID:            sessionID,
		TickInterval:         s.cfg.TickInterval,
		SyncInterval:         s.cfg.SyncInterval,
		AntiCheat:            antiCheat,
		HideQuestionOnMobile: opts.HideQuestionOnMobile,
		Policy:               s.cfg.Policy,
		Scorer:               scorer,
		Clock:                s.cfg.Clock,
		Logger:               s.cfg.Logger,
	})
	if err != nil {
		_ = conn.Disconnect()
		return nil, err
	}

	host := &Host{
		QuizID:    set.ID,
		Title:     set.Title,
		Engine:    engine,
		Feed:      feed,
		CreatedAt: s.cfg.Clock.Now(),
	}
	for attempt := 0; attempt < codeAttempts; attempt++ {
		code := NewSessionCode()
		host.Identity = domain.SessionIdentity{
			SessionID:   sessionID,
			SessionCode: code,
			JoinURL:     s.joinURL(code),
		}
		err = s.sessions.Create(ctx, host)
		if !errors.Is(err, domain.ErrSessionExists) {
			break
		}
	}
	if err != nil {
		host.Close()
		return nil, fmt.Errorf("register session: %w", err)
	}

	s.logger.Infow("session created", "quiz", set.ID, "code", host.Identity.SessionCode, "session", sessionID, "questions", len(set.Questions))
	return host, nil
}

// Session returns the live session registered under code.
func (s *QuizService) Session(code string) (*Host, error) {
	host, ok := s.sessions.Get(strings.ToUpper(code))
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return host, nil
}

// Sessions lists every live session.
func (s *QuizService) Sessions() []*Host {
	return s.sessions.List()
}

// CloseSession unregisters and destroys a session.
func (s *QuizService) CloseSession(_ context.Context, code string) error {
	host, err := s.Session(code)
	if err != nil {
		return err
	}
	s.sessions.Delete(host.Identity.SessionCode)
	host.Close()
	s.logger.Infow("session closed", "code", host.Identity.SessionCode)
	return nil
}

// Shutdown closes every live session. It stops early when ctx is done.
func (s *QuizService) Shutdown(ctx context.Context) error {
	for _, host := range s.sessions.List() {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.sessions.Delete(host.Identity.SessionCode)
		host.Close()
	}
	return nil
}

func (s *QuizService) joinURL(code string) string {
	return s.cfg.BaseURL + "/play/" + code
}

// NewSessionCode returns a short human-typable join code without ambiguous
// characters.
func NewSessionCode() string {
	var b strings.Builder
	b.Grow(codeLength)
	for i := 0; i < codeLength; i++ {
		b.WriteByte(codeAlphabet[fastrand.Uint32n(uint32(len(codeAlphabet)))])
	}
	return b.String()
}
