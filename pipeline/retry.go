// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/poiesic/medscribe/core"
)

// RetryPolicy decides how often a failing adapter call is retried.
//
// Only transient failures are retried: errors wrapping
// core.ErrCapabilityUnavailable, and attempts that exceed AttemptTimeout
// while the caller's context is still live. Every other error is
// structural and returned at once.
type RetryPolicy struct {
	MaxAttempts    int           // Total attempts, including the first
	BaseDelay      time.Duration // Delay before the second attempt; doubles after each retry
	MaxDelay       time.Duration // Upper bound on the delay; zero means unbounded
	AttemptTimeout time.Duration // Per-attempt deadline; zero means none
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		BaseDelay:      200 * time.Millisecond,
		MaxDelay:       2 * time.Second,
		AttemptTimeout: 2 * time.Minute,
	}
}

// Validate checks the policy is usable.
func (p RetryPolicy) Validate() error {
	if p.MaxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}
	if p.BaseDelay < 0 || p.MaxDelay < 0 || p.AttemptTimeout < 0 {
		return fmt.Errorf("%w: retry durations cannot be negative", core.ErrInvalidParameter)
	}
	return nil
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, core.ErrCapabilityUnavailable)
}

// Do runs operation until it succeeds, fails structurally, or runs out of
// attempts. onRetry, if set, is called before each retry with the attempt
// number about to start and the error that caused it.
// Returns the number of attempts made and the last error.
func (p RetryPolicy) Do(ctx context.Context, operation func(context.Context) error, onRetry func(attempt int, err error)) (int, error) {
	if p.MaxAttempts <= 0 {
		return 0, ErrInvalidMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, err
		}

		lastErr = p.attempt(ctx, operation)
		if lastErr == nil {
			return attempt, nil
		}
		if ctx.Err() != nil || !IsTransient(lastErr) || attempt == p.MaxAttempts {
			return attempt, lastErr
		}

		if onRetry != nil {
			onRetry(attempt+1, lastErr)
		}

		timer := time.NewTimer(p.delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return attempt, ctx.Err()
		case <-timer.C:
		}
	}
	return p.MaxAttempts, lastErr
}

// attempt runs operation once under the per-attempt deadline. A deadline
// hit while ctx is still live is reported as a transient failure.
func (p RetryPolicy) attempt(ctx context.Context, operation func(context.Context) error) error {
	if p.AttemptTimeout <= 0 {
		return operation(ctx)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, p.AttemptTimeout)
	defer cancel()

	err := operation(attemptCtx)
	if err != nil && ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: attempt timed out after %s: %w", core.ErrCapabilityUnavailable, p.AttemptTimeout, err)
	}
	return err
}

// delay returns the backoff before the retry that follows attempt:
// BaseDelay * 2^(attempt-1), capped at MaxDelay.
func (p RetryPolicy) delay(attempt int) time.Duration {
	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if p.MaxDelay > 0 && delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}
