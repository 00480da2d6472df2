// Package boltdb keeps question sets in a local bbolt file, for single-node
// deployments without Postgres.
package boltdb

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	bolt "go.etcd.io/bbolt"

	"live-quiz-engine/internal/domain"
)

const bucket = "question_sets"

type QuizStore struct {
	db *bolt.DB
}

func Open(path string) (*QuizStore, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("open bolt file %s: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucket))
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}
	return &QuizStore{db: db}, nil
}

func (s *QuizStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close bolt file: %w", err)
	}
	return nil
}

func (s *QuizStore) LoadQuiz(_ context.Context, quizID string) (domain.QuestionSet, error) {
	var set domain.QuestionSet
	if err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket([]byte(bucket)).Get([]byte(quizID))
		if raw == nil {
			return domain.ErrQuizNotFound
		}
		if err := json.Unmarshal(raw, &set); err != nil {
			return fmt.Errorf("json unmarshal error, %w", err)
		}
		return nil
	}); err != nil {
		return domain.QuestionSet{}, err
	}
	return set, nil
}

func (s *QuizStore) SaveQuiz(_ context.Context, set domain.QuestionSet) error {
	raw, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("json marshal error, %w", err)
	}
	if err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucket)).Put([]byte(set.ID), raw)
	}); err != nil {
		return fmt.Errorf("update transaction error: %w", err)
	}
	return nil
}

// List returns the stored question set ids in key order.
func (s *QuizStore) List(_ context.Context) ([]string, error) {
	var ids []string
	if err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucket)).ForEach(func(k, _ []byte) error {
			ids = append(ids, string(k))
			return nil
		})
	}); err != nil {
		return nil, fmt.Errorf("view transaction error: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}
