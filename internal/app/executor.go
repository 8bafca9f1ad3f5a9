package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jsamuelsen/quote-keeper/internal/platform/logging"
)

// Operations that touch both the remote source and the store run as five
// ordered steps: validate, perform, verify, archive, respond. Nothing is
// archived until the performed result has been verified, so a bad fetch never
// reaches the persisted collection.

// ExecutionStep names a step of an Operation.
type ExecutionStep string

const (
	StepValidate ExecutionStep = "validate"
	StepPerform  ExecutionStep = "perform"
	StepVerify   ExecutionStep = "verify"
	StepArchive  ExecutionStep = "archive"
	StepRespond  ExecutionStep = "respond"
)

// ExecutionError records the step an operation failed at.
// It unwraps to the cause, so domain sentinels stay matchable with errors.Is.
type ExecutionError struct {
	Operation string
	Step      ExecutionStep
	Cause     error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s: %s step failed: %v", e.Operation, e.Step, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// Executor runs Operations with step-level logging.
type Executor struct {
	logger *slog.Logger
}

// NewExecutor creates an executor. A nil logger uses slog.Default.
func NewExecutor(logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}

	return &Executor{logger: logger}
}

// Operation defines the step functions. Any of them may be nil, in which case
// the step is a no-op that passes the zero value on.
type Operation[I, P, V, O any] struct {
	Name string

	Validate func(ctx context.Context, input I) error
	Perform  func(ctx context.Context, input I) (P, error)
	Verify   func(ctx context.Context, input I, performed P) (V, error)
	Archive  func(ctx context.Context, input I, verified V) error
	Respond  func(ctx context.Context, input I, verified V) (O, error)
}

type execution[I, P, V, O any] struct {
	logger *slog.Logger
	op     Operation[I, P, V, O]
	input  I
}

func (x *execution[I, P, V, O]) fail(ctx context.Context, step ExecutionStep, level slog.Level, err error) error {
	x.logger.Log(ctx, level, "operation step failed",
		slog.String("step", string(step)),
		slog.Any("error", err),
	)

	return &ExecutionError{Operation: x.op.Name, Step: step, Cause: err}
}

func (x *execution[I, P, V, O]) validate(ctx context.Context) error {
	if x.op.Validate == nil {
		return nil
	}

	err := x.op.Validate(ctx, x.input)
	if err != nil {
		return x.fail(ctx, StepValidate, slog.LevelWarn, err)
	}

	return nil
}

func (x *execution[I, P, V, O]) perform(ctx context.Context) (P, error) {
	var zero P

	if x.op.Perform == nil {
		return zero, nil
	}

	performed, err := x.op.Perform(ctx, x.input)
	if err != nil {
		return zero, x.fail(ctx, StepPerform, slog.LevelWarn, err)
	}

	x.logger.DebugContext(ctx, "operation performed")

	return performed, nil
}

func (x *execution[I, P, V, O]) verify(ctx context.Context, performed P) (V, error) {
	var zero V

	if x.op.Verify == nil {
		return zero, nil
	}

	verified, err := x.op.Verify(ctx, x.input, performed)
	if err != nil {
		return zero, x.fail(ctx, StepVerify, slog.LevelError, err)
	}

	x.logger.DebugContext(ctx, "result verified")

	return verified, nil
}

func (x *execution[I, P, V, O]) archive(ctx context.Context, verified V) error {
	if x.op.Archive == nil {
		return nil
	}

	err := x.op.Archive(ctx, x.input, verified)
	if err != nil {
		return x.fail(ctx, StepArchive, slog.LevelError, err)
	}

	x.logger.DebugContext(ctx, "state archived")

	return nil
}

func (x *execution[I, P, V, O]) respond(ctx context.Context, verified V) (O, error) {
	var zero O

	if x.op.Respond == nil {
		return zero, nil
	}

	result, err := x.op.Respond(ctx, x.input, verified)
	if err != nil {
		return zero, x.fail(ctx, StepRespond, slog.LevelWarn, err)
	}

	return result, nil
}

// Execute runs op against input, stopping at the first failing step.
func Execute[I, P, V, O any](ctx context.Context, exec *Executor, op Operation[I, P, V, O], input I) (O, error) {
	var zero O

	x := &execution[I, P, V, O]{
		logger: logging.FromContextOr(ctx, exec.logger).With(slog.String("operation", op.Name)),
		op:     op,
		input:  input,
	}

	start := time.Now()

	err := x.validate(ctx)
	if err != nil {
		return zero, err
	}

	performed, err := x.perform(ctx)
	if err != nil {
		return zero, err
	}

	verified, err := x.verify(ctx, performed)
	if err != nil {
		return zero, err
	}

	err = x.archive(ctx, verified)
	if err != nil {
		return zero, err
	}

	result, err := x.respond(ctx, verified)
	if err != nil {
		return zero, err
	}

	x.logger.DebugContext(ctx, "operation completed", slog.Duration("duration", time.Since(start)))

	return result, nil
}

// FailedStep reports the step at which err was produced by Execute.
func FailedStep(err error) (ExecutionStep, bool) {
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr.Step, true
	}

	return "", false
}
