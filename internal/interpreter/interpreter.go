// Package interpreter turns natural-language payment proposals into
// structured candidates. It supports multiple AI extraction backends with
// a regex fallback, so the compliance pipeline never depends on which
// backend produced the candidate.
package interpreter

import (
	"context"
	"log/slog"

	"github.com/mshadianto/mnee-sentinel/internal/common"
	"github.com/mshadianto/mnee-sentinel/internal/model"
	"github.com/mshadianto/mnee-sentinel/internal/service"
)

// Interpreter extracts structured payment candidates from proposal text.
// When the configured backend fails after retries, it degrades to the
// regex fallback rather than returning an error, so a provider outage
// surfaces as low-confidence candidates the engine will reject.
type Interpreter struct {
	client Client
	logger *slog.Logger
	retry  service.RetryOptions
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithLogger sets the logger for interpretation events.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Interpreter) {
		i.logger = logger
	}
}

// WithRetryOptions overrides the backend retry policy.
func WithRetryOptions(opts service.RetryOptions) Option {
	return func(i *Interpreter) {
		i.retry = opts
	}
}

// New creates an Interpreter around an extraction client. A nil client
// means fallback-only operation.
func New(client Client, opts ...Option) *Interpreter {
	i := &Interpreter{
		client: client,
		logger: slog.Default(),
		retry: service.RetryOptions{
			MaxAttempts: 3,
		},
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Interpret parses a proposal into a candidate payment. The original text
// is preserved on the candidate for the audit trail.
func (i *Interpreter) Interpret(ctx context.Context, proposalText string) (model.CandidatePayment, error) {
	extraction, err := i.extract(ctx, proposalText)
	if err != nil {
		if ctx.Err() != nil {
			return model.CandidatePayment{}, ctx.Err()
		}
		i.logger.Warn("extraction backend failed, using regex fallback", "error", err)
		extraction, _ = Fallback{}.Extract(ctx, proposalText)
	}

	return model.CandidatePayment{
		VendorName:    extraction.VendorName,
		VendorAddress: extraction.VendorAddress,
		Category:      extraction.Category,
		Memo:          extraction.Memo,
		Amount:        extraction.Amount,
		Confidence:    extraction.Confidence,
		RawText:       proposalText,
	}, nil
}

func (i *Interpreter) extract(ctx context.Context, proposalText string) (Extraction, error) {
	if i.client == nil {
		return Fallback{}.Extract(ctx, proposalText)
	}

	var extraction Extraction
	err := common.WithRetry(ctx, func() error {
		var opErr error
		extraction, opErr = i.client.Extract(ctx, proposalText)
		return opErr
	}, i.retry)
	return extraction, err
}
