package anticheat

import (
	"testing"
	"time"

	"live-quiz-engine/internal/domain"
)

func TestEvaluate(t *testing.T) {
	start := time.Unix(1700000000, 0)
	deadline := start.Add(20 * time.Second)

	running := func(received time.Duration) Input {
		return Input{
			State:          domain.StateRunning,
			Nonce:          "n1",
			ActiveNonce:    "n1",
			RoundStartedAt: start,
			Deadline:       deadline,
			ReceivedAt:     start.Add(received),
			Heuristics:     true,
		}
	}

	tests := []struct {
		name     string
		input    func() Input
		policy   Policy
		accepted bool
		flags    []domain.Flag
	}{
		{
			name:     "clean answer",
			input:    func() Input { return running(2 * time.Second) },
			accepted: true,
		},
		{
			name:     "too fast is advisory",
			input:    func() Input { return running(50 * time.Millisecond) },
			accepted: true,
			flags:    []domain.Flag{domain.FlagTooFast},
		},
		{
			name:     "late past tolerance is advisory",
			input:    func() Input { return running(22 * time.Second) },
			accepted: true,
			flags:    []domain.Flag{domain.FlagLate},
		},
		{
			name:     "within tolerance is not late",
			input:    func() Input { return running(21 * time.Second) },
			accepted: true,
		},
		{
			name: "bad nonce is advisory by default",
			input: func() Input {
				in := running(3 * time.Second)
				in.Nonce = "stale"
				return in
			},
			accepted: true,
			flags:    []domain.Flag{domain.FlagBadNonce},
		},
		{
			name: "bad nonce rejects under strict policy",
			input: func() Input {
				in := running(3 * time.Second)
				in.Nonce = ""
				return in
			},
			policy:   Policy{StrictNonce: true},
			accepted: false,
			flags:    []domain.Flag{domain.FlagBadNonce},
		},
		{
			name: "duplicate wins over state",
			input: func() Input {
				in := running(3 * time.Second)
				in.State = domain.StateAnswerReveal
				in.AlreadyAnswered = true
				return in
			},
			accepted: false,
			flags:    []domain.Flag{domain.FlagDuplicate},
		},
		{
			name: "invalid state",
			input: func() Input {
				in := running(3 * time.Second)
				in.State = domain.StateAnswerReveal
				return in
			},
			accepted: false,
			flags:    []domain.Flag{domain.FlagInvalidState},
		},
		{
			name: "nonce of an ended question is invalid state",
			input: func() Input {
				in := running(1 * time.Second)
				in.Nonce = "n0"
				in.Stale = true
				return in
			},
			accepted: false,
			flags:    []domain.Flag{domain.FlagInvalidState},
		},
		{
			name: "stale nonce is rejected without heuristics",
			input: func() Input {
				in := running(1 * time.Second)
				in.Nonce = "n0"
				in.Stale = true
				in.Heuristics = false
				return in
			},
			accepted: false,
			flags:    []domain.Flag{domain.FlagInvalidState},
		},
		{
			name: "heuristics disabled skips advisory checks",
			input: func() Input {
				in := running(10 * time.Millisecond)
				in.Nonce = "forged"
				in.Heuristics = false
				return in
			},
			accepted: true,
		},
		{
			name: "heuristics disabled keeps structural checks",
			input: func() Input {
				in := running(3 * time.Second)
				in.AlreadyAnswered = true
				in.Heuristics = false
				return in
			},
			accepted: false,
			flags:    []domain.Flag{domain.FlagDuplicate},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			verdict := NewEvaluator(tc.policy).Evaluate(tc.input())
			if verdict.Accepted != tc.accepted {
				t.Fatalf("expected accepted=%v, got %v (flags %v)", tc.accepted, verdict.Accepted, verdict.Flags)
			}
			if len(verdict.Flags) != len(tc.flags) {
				t.Fatalf("expected flags %v, got %v", tc.flags, verdict.Flags)
			}
			for i := range tc.flags {
				if verdict.Flags[i] != tc.flags[i] {
					t.Fatalf("expected flags %v, got %v", tc.flags, verdict.Flags)
				}
			}
		})
	}
}

func TestNewEvaluatorFillsDefaults(t *testing.T) {
	policy := NewEvaluator(Policy{StrictNonce: true}).Policy()
	if policy.MinReaction != DefaultMinReaction || policy.LateTolerance != DefaultLateTolerance {
		t.Fatalf("expected defaults, got %+v", policy)
	}
	if !policy.StrictNonce {
		t.Fatalf("strict nonce must be preserved")
	}

	var zero *Evaluator
	if zero.Policy() != DefaultPolicy() {
		t.Fatalf("nil evaluator must report default policy")
	}
}
