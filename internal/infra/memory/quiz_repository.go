package memory

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/valyala/fastrand"
	"golang.org/x/sync/singleflight"

	"live-quiz-engine/internal/domain"
)

// DefaultCacheSize bounds the number of question sets kept in memory.
const DefaultCacheSize = 256

// QuizLoader fetches question sets from a backing store (e.g., Postgres, bbolt).
type QuizLoader interface {
	LoadQuiz(ctx context.Context, quizID string) (domain.QuestionSet, error)
}

// QuizRepository caches question sets with TTL to avoid repeated DB hits.
type QuizRepository struct {
	loader QuizLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	cache  *lru.ARCCache
}

type cachedQuiz struct {
	set       domain.QuestionSet
	expiresAt time.Time
}

func NewQuizRepository(loader QuizLoader, ttl time.Duration, size int) (*QuizRepository, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.NewARC(size)
	if err != nil {
		return nil, fmt.Errorf("new arc cache: %w", err)
	}
	return &QuizRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		cache:  c,
	}, nil
}

func (r *QuizRepository) GetQuiz(ctx context.Context, quizID string) (domain.QuestionSet, error) {
	if set, ok := r.cached(quizID); ok {
		return set, nil
	}

	result, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		if set, ok := r.cached(quizID); ok {
			return set, nil
		}

		set, err := r.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.QuestionSet{}, err
		}
		set = set.Normalize()

		r.cache.Add(quizID, cachedQuiz{
			set:       set,
			expiresAt: r.clock().Add(r.ttlWithJitter()),
		})
		return set, nil
	})
	if err != nil {
		return domain.QuestionSet{}, err
	}
	return result.(domain.QuestionSet), nil
}

// Invalidate drops a cached question set so the next read reloads it.
func (r *QuizRepository) Invalidate(quizID string) {
	r.cache.Remove(quizID)
}

func (r *QuizRepository) cached(quizID string) (domain.QuestionSet, bool) {
	v, ok := r.cache.Get(quizID)
	if !ok {
		return domain.QuestionSet{}, false
	}
	entry := v.(cachedQuiz)
	if !entry.expiresAt.After(r.clock()) {
		return domain.QuestionSet{}, false
	}
	return entry.set, true
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := uint32(r.ttl / 10 / time.Millisecond)
	return r.ttl + time.Duration(fastrand.Uint32n(jitterMax+1))*time.Millisecond
}

// StaticQuizLoader is a simple loader backed by an in-memory map (useful for tests/demos).
type StaticQuizLoader struct {
	quizzes map[string]domain.QuestionSet
}

func NewStaticQuizLoader(quizzes map[string]domain.QuestionSet) *StaticQuizLoader {
	return &StaticQuizLoader{quizzes: quizzes}
}

func (l *StaticQuizLoader) LoadQuiz(_ context.Context, quizID string) (domain.QuestionSet, error) {
	if set, ok := l.quizzes[quizID]; ok {
		return set, nil
	}
	return domain.QuestionSet{}, domain.ErrQuizNotFound
}
