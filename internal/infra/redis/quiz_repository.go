package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/valyala/fastrand"
	"golang.org/x/sync/singleflight"

	"live-quiz-engine/internal/domain"
	"live-quiz-engine/internal/infra/memory"
)

// QuizRepository caches question sets in Redis (hash per quiz) and falls back to a loader on cache miss.
// Questions are stored as: HSET quiz:{quizID}:questions {index} {question json}
// The title is stored as:  SET  quiz:{quizID}:title {title}
type QuizRepository struct {
	client *redis.Client
	loader memory.QuizLoader
	ttl    time.Duration
	sf     singleflight.Group
}

func NewQuizRepository(client *redis.Client, loader memory.QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, quizID string) (domain.QuestionSet, error) {
	if set, ok := r.cached(ctx, quizID); ok {
		return set, nil
	}

	result, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if set, ok := r.cached(ctx, quizID); ok {
			return set, nil
		}

		set, err := r.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.QuestionSet{}, err
		}
		set = set.Normalize()

		if err := r.store(ctx, set); err != nil {
			// cache write is best-effort
			_ = r.client.Del(ctx, r.questionsKey(quizID), r.titleKey(quizID)).Err()
		}
		return set, nil
	})
	if err != nil {
		return domain.QuestionSet{}, err
	}
	return result.(domain.QuestionSet), nil
}

// Invalidate drops the cached copy of a question set.
func (r *QuizRepository) Invalidate(ctx context.Context, quizID string) error {
	return r.client.Del(ctx, r.questionsKey(quizID), r.titleKey(quizID)).Err()
}

func (r *QuizRepository) cached(ctx context.Context, quizID string) (domain.QuestionSet, bool) {
	raw, err := r.client.HGetAll(ctx, r.questionsKey(quizID)).Result()
	if err != nil || len(raw) == 0 {
		return domain.QuestionSet{}, false
	}
	set, err := buildSetFromCache(quizID, raw)
	if err != nil {
		return domain.QuestionSet{}, false
	}
	set.Title, _ = r.client.Get(ctx, r.titleKey(quizID)).Result()
	return set, true
}

func (r *QuizRepository) store(ctx context.Context, set domain.QuestionSet) error {
	fields := make(map[string]interface{}, len(set.Questions))
	for _, q := range set.Questions {
		payload, err := json.Marshal(q)
		if err != nil {
			return fmt.Errorf("marshal question %d: %w", q.Index, err)
		}
		fields[strconv.Itoa(q.Index)] = payload
	}

	ttl := r.ttlWithJitter()
	questionsKey, titleKey := r.questionsKey(set.ID), r.titleKey(set.ID)

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, questionsKey)
	pipe.HSet(ctx, questionsKey, fields)
	pipe.Set(ctx, titleKey, set.Title, ttl)
	if ttl > 0 {
		pipe.Expire(ctx, questionsKey, ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (r *QuizRepository) questionsKey(quizID string) string {
	return "quiz:" + quizID + ":questions"
}

func (r *QuizRepository) titleKey(quizID string) string {
	return "quiz:" + quizID + ":title"
}

func buildSetFromCache(quizID string, raw map[string]string) (domain.QuestionSet, error) {
	questions := make([]domain.Question, 0, len(raw))
	for field, payload := range raw {
		var q domain.Question
		if err := json.Unmarshal([]byte(payload), &q); err != nil {
			return domain.QuestionSet{}, fmt.Errorf("decode question %s: %w", field, err)
		}
		questions = append(questions, q)
	}
	sort.Slice(questions, func(i, j int) bool {
		return questions[i].Index < questions[j].Index
	})
	return domain.QuestionSet{ID: quizID, Questions: questions}, nil
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := uint32(r.ttl / 10 / time.Millisecond)
	return r.ttl + time.Duration(fastrand.Uint32n(jitterMax+1))*time.Millisecond
}
