// Package retry implements C2: exponential-backoff retry with explicit
// retryable/terminal classification. Built on cenkalti/backoff/v4 rather
// than a hand-rolled sleep loop — the teacher hand-rolls this shape in
// coordination/leader.go and reconciler.go, but the pack (erauner12's
// dependency graph) already pulls in a real backoff library for exactly
// this concern, so this package wires the library instead of repeating
// the teacher's bespoke loop.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/mattertraffic/syncgw/syncerr"
)

const (
	DefaultMaxAttempts = 3
	DefaultInitialDelay = 1 * time.Second
)

// Do runs fn up to maxAttempts times. A failure is retried only when
// syncerr.Retryable(err) is true; the delay before attempt N+1 is exactly
// initialDelay * 2^(N-1), with no jitter, matching the deterministic
// 1s/2s/4s timing of SPEC_FULL.md scenario S6.
func Do[T any](ctx context.Context, log zerolog.Logger, maxAttempts int, initialDelay time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if initialDelay <= 0 {
		initialDelay = DefaultInitialDelay
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = initialDelay
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.MaxElapsedTime = 0 // attempt budget is enforced by maxAttempts, not elapsed time
	policy := backoff.WithMaxRetries(bo, uint64(maxAttempts-1))

	var result T
	attempt := 0
	op := func() error {
		attempt++
		var err error
		result, err = fn(ctx)
		if err == nil {
			return nil
		}
		if !syncerr.Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, delay time.Duration) {
		log.Warn().
			Err(err).
			Int("attempt", attempt).
			Dur("next_delay", delay).
			Msg("retrying after failure")
	}

	err := backoff.RetryNotify(op, backoff.WithContext(policy, ctx), notify)
	if err != nil {
		return result, unwrapPermanent(err)
	}
	return result, nil
}

func unwrapPermanent(err error) error {
	var perr *backoff.PermanentError
	if errors.As(err, &perr) {
		return perr.Err
	}
	return err
}
