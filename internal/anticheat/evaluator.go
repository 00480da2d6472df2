// Package anticheat classifies incoming answers. It never drops an answer on
// its own: it reports flags and whether the answer may be scored.
package anticheat

import (
	"time"

	"live-quiz-engine/internal/domain"
)

const (
	// DefaultMinReaction is the fastest plausible human answer after a round starts.
	DefaultMinReaction = 300 * time.Millisecond
	// DefaultLateTolerance is the network delay allowed past the deadline.
	DefaultLateTolerance = 1500 * time.Millisecond
)

// Policy holds the heuristic thresholds.
type Policy struct {
	MinReaction   time.Duration
	LateTolerance time.Duration
	// StrictNonce rejects answers whose nonce does not match instead of only flagging them.
	StrictNonce bool
}

// DefaultPolicy returns the thresholds used when none are configured.
func DefaultPolicy() Policy {
	return Policy{
		MinReaction:   DefaultMinReaction,
		LateTolerance: DefaultLateTolerance,
	}
}

// Input is everything the evaluator looks at for one answer.
type Input struct {
	State           domain.QuizState
	AlreadyAnswered bool // player already holds an accepted answer for the targeted question
	Nonce           string
	ActiveNonce     string
	// Stale marks an answer carrying the nonce of a question that already left RUNNING.
	Stale          bool
	RoundStartedAt time.Time
	Deadline       time.Time
	ReceivedAt     time.Time
	// Heuristics disables the advisory checks; structural ones always run.
	Heuristics bool
}

// Verdict is the classification of one answer.
type Verdict struct {
	Accepted bool
	Flags    []domain.Flag
}

// Flagged reports whether any flag was raised.
func (v Verdict) Flagged() bool {
	return len(v.Flags) > 0
}

// Evaluator applies a Policy. The zero value uses DefaultPolicy.
type Evaluator struct {
	policy Policy
}

// NewEvaluator builds an evaluator. Zero thresholds fall back to the defaults.
func NewEvaluator(policy Policy) *Evaluator {
	if policy.MinReaction <= 0 {
		policy.MinReaction = DefaultMinReaction
	}
	if policy.LateTolerance <= 0 {
		policy.LateTolerance = DefaultLateTolerance
	}
	return &Evaluator{policy: policy}
}

// Policy returns the effective thresholds.
func (e *Evaluator) Policy() Policy {
	if e == nil || e.policy.MinReaction == 0 {
		return DefaultPolicy()
	}
	return e.policy
}

// Evaluate classifies one answer. A duplicate is reported before a state
// mismatch so that a delayed second answer after reveal still reads as a
// duplicate.
func (e *Evaluator) Evaluate(in Input) Verdict {
	if in.AlreadyAnswered {
		return Verdict{Accepted: false, Flags: []domain.Flag{domain.FlagDuplicate}}
	}
	if in.Stale || in.State != domain.StateRunning {
		return Verdict{Accepted: false, Flags: []domain.Flag{domain.FlagInvalidState}}
	}
	if !in.Heuristics {
		return Verdict{Accepted: true}
	}

	policy := e.Policy()
	verdict := Verdict{Accepted: true}

	if in.Nonce != in.ActiveNonce {
		verdict.Flags = append(verdict.Flags, domain.FlagBadNonce)
		if policy.StrictNonce {
			verdict.Accepted = false
		}
	}
	if !in.RoundStartedAt.IsZero() && in.ReceivedAt.Sub(in.RoundStartedAt) < policy.MinReaction {
		verdict.Flags = append(verdict.Flags, domain.FlagTooFast)
	}
	if !in.Deadline.IsZero() && in.ReceivedAt.After(in.Deadline.Add(policy.LateTolerance)) {
		verdict.Flags = append(verdict.Flags, domain.FlagLate)
	}
	return verdict
}
