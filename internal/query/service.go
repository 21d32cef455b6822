// Package query orchestrates the validate → execute → serialize pipeline and
// folds every failure into a structured envelope. Nothing below this layer
// is allowed to escape as an unhandled fault, and nothing is retried: a
// caller that wants to re-run untrusted code does so knowingly.
package query

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/syntrobox/ociq/internal/capability"
	"github.com/syntrobox/ociq/internal/querylang"
	"github.com/syntrobox/ociq/internal/sandbox"
	"github.com/syntrobox/ociq/internal/serialize"
	"github.com/syntrobox/ociq/internal/validate"
)

// ErrorKind is the failure taxonomy surfaced to callers.
type ErrorKind string

const (
	KindSyntaxInvalid        ErrorKind = "syntax_invalid"
	KindCapabilityDenied     ErrorKind = "capability_denied"
	KindExecutionTimeout     ErrorKind = "execution_timeout"
	KindRuntimeFailure       ErrorKind = "runtime_failure"
	KindSerializationFailure ErrorKind = "serialization_failure"
)

// Request is one inbound query.
type Request struct {
	Snippet string `json:"snippet"`
}

// Envelope is the structured response returned to the transport layer for
// both success and failure.
type Envelope struct {
	OK         bool                 `json:"ok"`
	Result     any                  `json:"result,omitempty"`
	Kind       ErrorKind            `json:"kind,omitempty"`
	Message    string               `json:"message,omitempty"`
	Violations []validate.Violation `json:"violations,omitempty"`
	RequestID  string               `json:"request_id"`
	DurationMS int64                `json:"duration_ms"`
}

// Executor is the query surface consumed by transports and instrumentation
// wrappers.
type Executor interface {
	Execute(ctx context.Context, req Request) *Envelope
	Capabilities() capability.Schema
}

// BindingsFunc supplies the namespace for one run: the authenticated client
// catalog plus any session values. Called per request so each run gets a
// fresh binding set.
type BindingsFunc func() map[string]any

// Service wires the validator, runner, and serializer together.
type Service struct {
	wl         *capability.Whitelist
	validator  *validate.Validator
	runner     *sandbox.Runner
	serializer *serialize.Serializer
	bindings   BindingsFunc
	logger     *slog.Logger
}

// New creates a Service. The whitelist is fixed for the service's lifetime;
// a new whitelist means a new service.
func New(wl *capability.Whitelist, runner *sandbox.Runner, bindings BindingsFunc, logger *slog.Logger) *Service {
	return &Service{
		wl:         wl,
		validator:  validate.New(wl),
		runner:     runner,
		serializer: &serialize.Serializer{},
		bindings:   bindings,
		logger:     logger,
	}
}

// WithMaxDepth overrides the serializer's result tree depth limit.
func (s *Service) WithMaxDepth(depth int) *Service {
	if depth > 0 {
		s.serializer.MaxDepth = depth
	}
	return s
}

// Capabilities returns the configured allow-list so callers can construct
// admissible snippets. Read-only, no side effects.
func (s *Service) Capabilities() capability.Schema {
	return s.wl.Describe()
}

// Execute runs one snippet through validation, sandboxed execution, and
// serialization. Every outcome, including every failure, comes back as an
// Envelope; the returned pointer is never nil.
func (s *Service) Execute(ctx context.Context, req Request) *Envelope {
	requestID := uuid.New().String()
	start := time.Now()
	env := &Envelope{RequestID: requestID}
	defer func() {
		env.DurationMS = time.Since(start).Milliseconds()
	}()

	verdict, err := s.validator.Check(req.Snippet)
	if err != nil {
		var syn *querylang.SyntaxError
		if errors.As(err, &syn) {
			return s.failf(env, KindSyntaxInvalid, syn.Error())
		}
		// Parser errors are all SyntaxErrors today; anything else is still a
		// refusal to run the snippet.
		return s.failf(env, KindSyntaxInvalid, err.Error())
	}
	if !verdict.Admitted {
		env.Violations = verdict.Violations
		s.logger.Info("query denied",
			slog.String("request_id", requestID),
			slog.String("whitelist_version", verdict.WhitelistVersion),
			slog.Int("violations", len(verdict.Violations)),
		)
		return s.failf(env, KindCapabilityDenied, verdict.Summary())
	}

	bindings := sandbox.Builtins()
	for k, v := range s.bindings() {
		bindings[k] = v
	}

	res := s.runner.Run(ctx, verdict.Program, bindings)
	switch res.Outcome {
	case sandbox.OutcomeTimeout:
		return s.failf(env, KindExecutionTimeout, res.Err.Error())
	case sandbox.OutcomeRuntimeFailure:
		return s.failf(env, KindRuntimeFailure, res.Err.Error())
	}

	tree, err := s.serializer.Tree(res.Value)
	if err != nil {
		return s.failf(env, KindSerializationFailure, err.Error())
	}

	env.OK = true
	env.Result = tree
	s.logger.Info("query executed",
		slog.String("request_id", requestID),
		slog.Duration("duration", res.Duration),
		slog.Int64("steps", res.Steps),
	)
	return env
}

func (s *Service) failf(env *Envelope, kind ErrorKind, message string) *Envelope {
	env.OK = false
	env.Kind = kind
	env.Message = message
	return env
}
