// Package sandbox executes admitted query snippets in isolation. Every run
// gets a fresh namespace populated only with the bindings handed in by the
// caller: nothing from the host process leaks in, and nothing defined during
// a run survives it.
//
// The snippet is interpreted, never compiled into the host, so the time
// budget is enforced preemptively: the evaluator checks an interrupt flag on
// every step, the run context (carried into every SDK call) is cancelled on
// timeout, and the caller gets its answer without waiting for the worker
// goroutine to unwind.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/syntrobox/ociq/internal/querylang"
)

const (
	defaultTimeout  = 2 * time.Second
	defaultMaxSteps = 5_000_000
)

// Outcome classifies how a run ended.
type Outcome string

const (
	OutcomeSuccess        Outcome = "success"
	OutcomeTimeout        Outcome = "timeout"
	OutcomeRuntimeFailure Outcome = "runtime_failure"
)

// ExecutionResult captures the outcome of one sandboxed run.
type ExecutionResult struct {
	// Value is the snippet's final value. Nil unless Outcome is Success.
	Value any

	Outcome  Outcome
	Err      error // Underlying failure for Timeout and RuntimeFailure.
	Duration time.Duration
	Steps    int64 // Evaluation steps consumed.
}

// Object exposes named attributes to the interpreter. Session bindings
// (module catalogs, clients) implement this to control exactly which names
// resolve.
type Object interface {
	Attr(name string) (any, error)
}

// Callable is a value the interpreter may invoke. The context is the run
// context: it is cancelled when the time budget expires, so implementations
// must pass it into any network call they make.
type Callable interface {
	Call(ctx context.Context, args []any, kwargs map[string]any) (any, error)
}

// Config configures the runner.
type Config struct {
	Timeout  time.Duration // Wall-clock budget per run. Zero = 2s.
	MaxSteps int64         // Evaluation step budget per run. Zero = 5,000,000.
}

// Runner executes validated programs. Safe for concurrent use: each run gets
// its own environment and interrupt flag.
type Runner struct {
	timeout  time.Duration
	maxSteps int64
	logger   *slog.Logger
}

// NewRunner creates a Runner.
func NewRunner(cfg Config, logger *slog.Logger) *Runner {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxSteps := cfg.MaxSteps
	if maxSteps <= 0 {
		maxSteps = defaultMaxSteps
	}
	return &Runner{timeout: timeout, maxSteps: maxSteps, logger: logger}
}

// Timeout returns the configured wall-clock budget.
func (r *Runner) Timeout() time.Duration { return r.timeout }

// Run evaluates the program in a fresh namespace seeded with bindings.
// The program must already have been admitted by the validator; Run trusts
// its shape and enforces only runtime budgets.
//
// Run blocks until the result is known, but never longer than the budget:
// on timeout the worker goroutine is flagged to stop, its context is
// cancelled, and it is abandoned. The buffered result channel lets the
// abandoned worker exit without blocking, so nothing from the aborted run
// can touch a later one.
func (r *Runner) Run(ctx context.Context, prog *querylang.Program, bindings map[string]any) *ExecutionResult {
	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	in := &interp{
		ctx:      runCtx,
		env:      newEnv(bindings),
		maxSteps: r.maxSteps,
	}

	type workerResult struct {
		value any
		err   error
	}
	done := make(chan workerResult, 1)

	start := time.Now()
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- workerResult{err: fmt.Errorf("evaluator panic: %v", p)}
			}
		}()
		value, err := in.runProgram(prog)
		done <- workerResult{value: value, err: err}
	}()

	select {
	case res := <-done:
		duration := time.Since(start)
		steps := in.steps.Load()
		switch {
		case errors.Is(res.err, errBudgetExceeded), errors.Is(res.err, errInterrupted):
			return &ExecutionResult{Outcome: OutcomeTimeout, Err: res.err, Duration: duration, Steps: steps}
		case res.err != nil:
			r.logger.Debug("sandbox run failed",
				slog.String("error", res.err.Error()),
				slog.Duration("duration", duration),
			)
			return &ExecutionResult{Outcome: OutcomeRuntimeFailure, Err: res.err, Duration: duration, Steps: steps}
		default:
			return &ExecutionResult{Value: res.value, Outcome: OutcomeSuccess, Duration: duration, Steps: steps}
		}

	case <-runCtx.Done():
		// Preemptive teardown: flag the worker, which stops at its next step
		// check; any in-flight SDK call sees the cancelled context.
		in.interrupt.Store(true)
		duration := time.Since(start)
		r.logger.Warn("sandbox run timed out",
			slog.Duration("budget", r.timeout),
			slog.Duration("duration", duration),
		)
		return &ExecutionResult{
			Outcome:  OutcomeTimeout,
			Err:      fmt.Errorf("execution exceeded %s budget", r.timeout),
			Duration: duration,
			Steps:    in.steps.Load(),
		}
	}
}

var (
	errBudgetExceeded = errors.New("step budget exceeded")
	errInterrupted    = errors.New("execution interrupted")
)

// RuntimeError is a failure raised while evaluating an admitted snippet:
// unbound names, type mismatches, or errors returned by a called API.
type RuntimeError struct {
	Pos querylang.Pos
	Msg string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error at %d:%d: %s", e.Pos.Line, e.Pos.Col, e.Msg)
}

type interp struct {
	ctx       context.Context
	env       *env
	steps     atomic.Int64
	maxSteps  int64
	interrupt atomic.Bool

	lastValue    any
	hasLastValue bool
}

// step is consulted on every node evaluation. It is the preemption point:
// a timed-out run stops here even when the snippet itself never yields.
func (in *interp) step() error {
	if in.interrupt.Load() {
		return errInterrupted
	}
	n := in.steps.Add(1)
	if n > in.maxSteps {
		return errBudgetExceeded
	}
	if n%4096 == 0 {
		if err := in.ctx.Err(); err != nil {
			return errInterrupted
		}
	}
	return nil
}

// runProgram executes all statements and extracts the final value: the
// binding named "result" if the snippet assigned one, otherwise the value of
// the last bare expression statement.
func (in *interp) runProgram(prog *querylang.Program) (any, error) {
	for _, stmt := range prog.Stmts {
		if err := in.execStmt(stmt); err != nil {
			return nil, err
		}
	}
	if v, ok := in.env.lookup("result"); ok {
		return v, nil
	}
	if in.hasLastValue {
		return in.lastValue, nil
	}
	return nil, nil
}
