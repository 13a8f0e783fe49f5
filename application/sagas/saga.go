// Package sagas provides a small orchestration engine for multi-store
// operations that cannot share a transaction. Each step can register a
// compensation; when a later step fails, completed steps are undone in
// reverse order.
package sagas

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Step is a single unit of work in a saga.
type Step struct {
	Name       string
	Execute    func(ctx context.Context, data interface{}) (interface{}, error)
	Compensate func(ctx context.Context, data interface{}) error
	MaxRetries int
	RetryDelay time.Duration
}

// State tracks saga execution progress.
type State string

const (
	StatePending      State = "PENDING"
	StateRunning      State = "RUNNING"
	StateCompleted    State = "COMPLETED"
	StateFailed       State = "FAILED"
	StateCompensating State = "COMPENSATING"
	StateCompensated  State = "COMPENSATED"
)

// Saga runs a sequence of steps with compensation on failure.
type Saga struct {
	id          string
	name        string
	steps       []Step
	state       State
	currentStep int
	logger      *zap.Logger
}

// New creates a saga with the given steps.
func New(name string, logger *zap.Logger, steps ...Step) *Saga {
	return &Saga{
		id:     fmt.Sprintf("saga_%d", time.Now().UnixNano()),
		name:   name,
		steps:  steps,
		state:  StatePending,
		logger: logger,
	}
}

// AddStep appends a step.
func (s *Saga) AddStep(step Step) *Saga {
	s.steps = append(s.steps, step)
	return s
}

// Execute runs the steps in order, threading each step's output into
// the next step's input. On failure, compensations for completed steps
// run in reverse order before the error is returned.
func (s *Saga) Execute(ctx context.Context, initialData interface{}) (interface{}, error) {
	s.state = StateRunning
	s.logger.Info("Starting saga",
		zap.String("sagaID", s.id),
		zap.String("saga", s.name),
		zap.Int("steps", len(s.steps)),
	)

	type completed struct {
		step Step
		data interface{}
	}

	data := initialData
	var done []completed

	for i, step := range s.steps {
		s.currentStep = i

		result, err := s.runWithRetry(ctx, step, data)
		if err != nil {
			s.state = StateFailed
			s.logger.Error("Saga step failed",
				zap.String("sagaID", s.id),
				zap.String("step", step.Name),
				zap.Error(err),
			)

			s.state = StateCompensating
			for j := len(done) - 1; j >= 0; j-- {
				c := done[j]
				if c.step.Compensate == nil {
					continue
				}
				if cerr := c.step.Compensate(ctx, c.data); cerr != nil {
					// Keep unwinding; a stuck compensation must not block the rest.
					s.logger.Error("Saga compensation failed",
						zap.String("sagaID", s.id),
						zap.String("step", c.step.Name),
						zap.Error(cerr),
					)
				}
			}
			s.state = StateCompensated
			return nil, fmt.Errorf("saga %s failed at step %s: %w", s.name, step.Name, err)
		}

		done = append(done, completed{step: step, data: result})
		data = result
	}

	s.state = StateCompleted
	s.logger.Info("Saga completed",
		zap.String("sagaID", s.id),
		zap.String("saga", s.name),
	)
	return data, nil
}

func (s *Saga) runWithRetry(ctx context.Context, step Step, data interface{}) (interface{}, error) {
	attempts := step.MaxRetries
	if attempts < 1 {
		attempts = 1
	}
	delay := step.RetryDelay
	if delay == 0 {
		delay = time.Second
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		result, err := step.Execute(ctx, data)
		if err == nil {
			return result, nil
		}
		lastErr = err
		s.logger.Warn("Saga step attempt failed",
			zap.String("sagaID", s.id),
			zap.String("step", step.Name),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}
	return nil, fmt.Errorf("step %s failed after %d attempts: %w", step.Name, attempts, lastErr)
}

// State returns the current saga state.
func (s *Saga) State() State { return s.state }

// ID returns the saga id.
func (s *Saga) ID() string { return s.id }

// CurrentStep returns the index of the step being executed.
func (s *Saga) CurrentStep() int { return s.currentStep }
