package llm

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/kursio/weft/internal/logging"
	"github.com/kursio/weft/pkg/domain"
)

// DefaultTimeout bounds a single language-service call.
const DefaultTimeout = 30 * time.Second

// Resilient wraps a Client with the one timeout/fallback policy shared by
// every step handler. A failed call is absorbed exactly once at this layer:
// Complete wraps the error as a domain.ExternalServiceError, Text swallows it
// and returns the caller's fallback. There are no automatic retries; a step
// either gets the model's answer or its fixed fallback.
type Resilient struct {
	client  Client
	timeout time.Duration
	logger  *slog.Logger
}

// ResilientOption configures the adapter.
type ResilientOption func(*Resilient)

// WithTimeout overrides the per-call timeout.
func WithTimeout(d time.Duration) ResilientOption {
	return func(r *Resilient) {
		r.timeout = d
	}
}

// WithLogger sets a structured logger for absorbed failures.
func WithLogger(logger *slog.Logger) ResilientOption {
	return func(r *Resilient) {
		r.logger = logger
	}
}

// NewResilient wraps the given client.
func NewResilient(client Client, opts ...ResilientOption) *Resilient {
	r := &Resilient{
		client:  client,
		timeout: DefaultTimeout,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Complete performs one completion call with the timeout applied.
func (r *Resilient) Complete(ctx context.Context, op string, req Request) (*Response, error) {
	if r.client == nil {
		return nil, &domain.ExternalServiceError{Op: op, Err: context.Canceled}
	}

	callCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	resp, err := r.client.Complete(callCtx, req)
	if err != nil {
		return nil, &domain.ExternalServiceError{Op: op, Err: err}
	}
	return resp, nil
}

// Text performs a completion and returns its text, or fallback when the call
// fails or yields empty content. Failures are logged, never propagated.
func (r *Resilient) Text(ctx context.Context, op string, req Request, fallback string) string {
	resp, err := r.Complete(ctx, op, req)
	if err != nil {
		r.logger.Warn("language service call failed, using fallback", "op", op, "err", err)
		return fallback
	}
	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return fallback
	}
	return text
}

// Classify performs a narrowly-scoped binary classification. The model is
// instructed to answer with exactly one of the two labels; the first label is
// reported as true. Failures resolve to false.
func (r *Resilient) Classify(ctx context.Context, op, instruction, input, positive, negative string) bool {
	req := Request{
		System: instruction +
			"\nAnswer with exactly one word: \"" + positive + "\" or \"" + negative + "\".",
		Messages:    []Message{{Role: RoleUser, Content: input}},
		Temperature: 0,
		MaxTokens:   8,
	}

	resp, err := r.Complete(ctx, op, req)
	if err != nil {
		r.logger.Warn("classification call failed, treating as negative", "op", op, "err", err)
		return false
	}

	// The negative label may contain the positive one ("incorrect",
	// "not completed"), so it must be checked first.
	answer := strings.ToLower(strings.TrimSpace(resp.Content))
	if strings.Contains(answer, strings.ToLower(negative)) {
		return false
	}
	return strings.Contains(answer, strings.ToLower(positive))
}
