package saga

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// SagaStep represents a single step in a saga with execute and compensate actions.
type SagaStep struct {
	Name       string
	Execute    func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// StepError reports the step a saga failed at. It unwraps to the step's error.
type StepError struct {
	Saga string
	Step string
	Err  error
	// CompensationErr joins every compensation that failed, if any.
	CompensationErr error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("saga '%s' failed at step '%s': %v", e.Saga, e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Saga orchestrates a sequence of steps with compensating transactions on failure.
type Saga struct {
	name   string
	steps  []SagaStep
	logger *zap.Logger
}

// NewSaga creates a new saga orchestrator.
func NewSaga(name string, logger *zap.Logger) *Saga {
	return &Saga{
		name:   name,
		steps:  make([]SagaStep, 0),
		logger: logger,
	}
}

// AddStep appends a step to the saga.
func (s *Saga) AddStep(step SagaStep) {
	s.steps = append(s.steps, step)
}

// Execute runs all saga steps in order. On failure, it compensates executed
// steps in reverse order and returns a *StepError.
func (s *Saga) Execute(ctx context.Context) error {
	s.logger.Debug("saga started", zap.String("saga", s.name))

	executedSteps := make([]SagaStep, 0, len(s.steps))

	for _, step := range s.steps {
		s.logger.Debug("executing saga step",
			zap.String("saga", s.name),
			zap.String("step", step.Name),
		)

		if err := step.Execute(ctx); err != nil {
			s.logger.Warn("saga step failed, starting compensation",
				zap.String("saga", s.name),
				zap.String("step", step.Name),
				zap.Error(err),
			)
			return &StepError{
				Saga:            s.name,
				Step:            step.Name,
				Err:             err,
				CompensationErr: s.compensate(ctx, executedSteps),
			}
		}

		executedSteps = append(executedSteps, step)
	}

	s.logger.Debug("saga completed successfully", zap.String("saga", s.name))
	return nil
}

// compensate undoes executed steps in reverse order. Compensations run even
// when the request context was cancelled.
func (s *Saga) compensate(ctx context.Context, executed []SagaStep) error {
	ctx = context.WithoutCancel(ctx)
	var errs []error
	for i := len(executed) - 1; i >= 0; i-- {
		step := executed[i]
		if step.Compensate == nil {
			continue
		}
		s.logger.Info("compensating saga step",
			zap.String("saga", s.name),
			zap.String("step", step.Name),
		)
		if err := step.Compensate(ctx); err != nil {
			s.logger.Error("compensation failed",
				zap.String("saga", s.name),
				zap.String("step", step.Name),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", step.Name, err))
		}
	}
	return errors.Join(errs...)
}
