package provider

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// RetryConfig controls exponential backoff around model calls.
type RetryConfig struct {
	// Attempts is the total number of calls, including the first (default: 2).
	Attempts int

	// InitialDelay is the delay before the first retry (default: 1s).
	InitialDelay time.Duration

	// MaxDelay is the ceiling for backoff growth (default: 10s).
	MaxDelay time.Duration

	// Multiplier scales the delay after each retry (default: 2.0).
	Multiplier float64
}

// DefaultRetryConfig returns 2 attempts starting at 1s, doubling, capped at 10s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Attempts:     2,
		InitialDelay: time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
	}
}

func (c RetryConfig) withDefaults() RetryConfig {
	d := DefaultRetryConfig()
	if c.Attempts <= 0 {
		c.Attempts = d.Attempts
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = d.InitialDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = d.MaxDelay
	}
	if c.Multiplier <= 0 {
		c.Multiplier = d.Multiplier
	}
	return c
}

type retrying struct {
	next   Model
	cfg    RetryConfig
	logger *slog.Logger
	sleep  func(context.Context, time.Duration) bool
}

// WithRetry retries failed calls to m with exponential backoff. Empty
// replies and context cancellation are returned immediately.
func WithRetry(m Model, cfg RetryConfig, logger *slog.Logger) Model {
	if logger == nil {
		logger = slog.Default()
	}
	return &retrying{next: m, cfg: cfg.withDefaults(), logger: logger, sleep: sleepCtx}
}

func (r *retrying) CallModel(ctx context.Context, req Request) (*Response, error) {
	delay := r.cfg.InitialDelay
	var err error
	for attempt := 1; ; attempt++ {
		var resp *Response
		resp, err = r.next.CallModel(ctx, req)
		if err == nil {
			return resp, nil
		}
		if !retryable(ctx, err) || attempt >= r.cfg.Attempts {
			return nil, err
		}
		r.logger.Debug("model call failed, retrying",
			"model", req.Model,
			"attempt", attempt,
			"max_attempts", r.cfg.Attempts,
			"next_delay", delay.String(),
			"error", err,
		)
		if !r.sleep(ctx, delay) {
			return nil, err
		}
		delay = time.Duration(float64(delay) * r.cfg.Multiplier)
		if delay > r.cfg.MaxDelay {
			delay = r.cfg.MaxDelay
		}
	}
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	return !errors.Is(err, ErrEmptyResponse) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}

// sleepCtx waits for d or until ctx is done. It reports whether the full
// delay elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
