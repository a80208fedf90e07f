// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package httputils

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy is an exponential backoff without jitter: attempt n waits
// InitialDelay * Multiplier^(n-1) before running, capped at MaxDelay.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, the first one included.
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
}

// DefaultRetryPolicy returns 3 attempts waiting 1s and then 2s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		Multiplier:   2.0,
		MaxDelay:     30 * time.Second,
	}
}

func (p RetryPolicy) normalized() RetryPolicy {
	d := DefaultRetryPolicy()

	if p.MaxAttempts <= 0 {
		p.MaxAttempts = d.MaxAttempts
	}

	if p.InitialDelay <= 0 {
		p.InitialDelay = d.InitialDelay
	}

	if p.Multiplier < 1 {
		p.Multiplier = d.Multiplier
	}

	if p.MaxDelay < p.InitialDelay {
		p.MaxDelay = max(d.MaxDelay, p.InitialDelay)
	}

	return p
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialDelay
	b.Multiplier = p.Multiplier
	b.RandomizationFactor = 0
	b.MaxInterval = p.MaxDelay
	b.MaxElapsedTime = 0

	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.MaxAttempts-1)), ctx)
}

type retryConfig struct {
	timer  backoff.Timer
	notify func(err error, attempt int, wait time.Duration)
}

// RetryOption customizes a single Retry call.
type RetryOption func(*retryConfig)

// WithTimer replaces the wall clock timer used between attempts.
func WithTimer(t backoff.Timer) RetryOption {
	return func(c *retryConfig) {
		c.timer = t
	}
}

// WithNotify registers a callback invoked before waiting for the next attempt.
func WithNotify(fn func(err error, attempt int, wait time.Duration)) RetryOption {
	return func(c *retryConfig) {
		c.notify = fn
	}
}

// Retry runs op until it succeeds, returns a non transient error, or the
// policy runs out of attempts. Only errors classified as KindTransient are
// retried. Running out of attempts yields a KindExhausted *RequestError
// wrapping the last failure.
func Retry(ctx context.Context, policy RetryPolicy, op func(ctx context.Context, attempt int) error, opts ...RetryOption) error {
	var cfg retryConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	policy = policy.normalized()
	attempts := 0

	var lastErr error

	operation := func() error {
		attempts++

		err := op(ctx, attempts)
		if err == nil {
			return nil
		}

		lastErr = err
		if !IsTransient(err) {
			return backoff.Permanent(err)
		}

		return err
	}

	var notify backoff.Notify
	if cfg.notify != nil {
		notify = func(err error, wait time.Duration) {
			cfg.notify(err, attempts, wait)
		}
	}

	err := backoff.RetryNotifyWithTimer(operation, policy.backOff(ctx), notify, cfg.timer)
	if err == nil {
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return &RequestError{
			Kind:     KindPermanent,
			Message:  fmt.Sprintf("request canceled after %d attempts", attempts),
			Attempts: attempts,
			Err:      errors.Join(ctxErr, lastErr),
		}
	}

	if !IsTransient(err) {
		return err
	}

	var last *RequestError

	statusCode := 0
	if errors.As(err, &last) {
		statusCode = last.StatusCode
	}

	return &RequestError{
		Kind:       KindExhausted,
		StatusCode: statusCode,
		Message:    fmt.Sprintf("giving up after %d attempts", attempts),
		Attempts:   attempts,
		Err:        err,
	}
}
