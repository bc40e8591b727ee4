// Package retry holds the backoff policy shared by the batch executor and
// the API transport, and the cooldown gate that makes a rate limit seen by
// one caller pause every caller.
package retry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/tobiasrohr/FInal-merger/pkg/constants"
	"github.com/tobiasrohr/FInal-merger/pkg/errors"
)

// Policy configures exponential backoff on rate-limit errors.
type Policy struct {
	// MaxAttempts bounds the number of calls per operation. Zero means
	// retry until the context is done.
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts" mapstructure:"max_attempts"`
	// BaseDelay is the first backoff interval.
	BaseDelay time.Duration `json:"base_delay" yaml:"base_delay" mapstructure:"base_delay"`
	// Cap bounds every backoff interval, server hints excepted.
	Cap time.Duration `json:"cap" yaml:"cap" mapstructure:"cap"`
}

// DefaultPolicy returns the policy used when none is configured.
func DefaultPolicy() Policy {
	return Policy{
		BaseDelay: constants.RetryBaseDelay,
		Cap:       constants.RetryMaxDelay,
	}
}

// Validate checks the policy for nonsensical values.
func (p Policy) Validate() error {
	switch {
	case p.MaxAttempts < 0:
		return errors.NewValidationError("max_attempts", p.MaxAttempts, "must not be negative")
	case p.BaseDelay <= 0:
		return errors.NewValidationError("base_delay", p.BaseDelay, "must be positive")
	case p.Cap < p.BaseDelay:
		return errors.NewValidationError("cap", p.Cap, "must not be below base_delay")
	}
	return nil
}

// NewBackOff returns a fresh backoff for one operation. BackOff values are
// stateful and must not be shared between operations.
func (p Policy) NewBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.BaseDelay
	bo.MaxInterval = p.Cap
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.MaxElapsedTime = 0
	bo.Reset()
	if p.MaxAttempts > 0 {
		return backoff.WithMaxRetries(bo, uint64(p.MaxAttempts-1))
	}
	return bo
}

// Delay returns the wait before the next attempt: the backoff interval, or
// the server's Retry-After hint when that is longer.
func Delay(next time.Duration, err error) time.Duration {
	if hint := errors.RetryAfter(err); hint > next {
		return hint
	}
	return next
}

// Notify is called before every wait.
type Notify func(err error, wait time.Duration, attempt int)

// Do calls op until it succeeds, fails with an error that is not a rate
// limit, or the policy gives up. Every wait goes through gate so that other
// callers sharing it pause too. gate may be nil.
func Do(ctx context.Context, p Policy, gate *Gate, notify Notify, op func(context.Context) error) error {
	bo := backoff.WithContext(p.NewBackOff(), ctx)
	for attempt := 1; ; attempt++ {
		if err := gate.Wait(ctx); err != nil {
			return err
		}
		err := op(ctx)
		if err == nil || !errors.IsRateLimited(err) {
			return err
		}

		next := bo.NextBackOff()
		if next == backoff.Stop {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("%w after %d attempts: %w", errors.ErrRetriesExhausted, attempt, err)
		}
		wait := Delay(next, err)
		if notify != nil {
			notify(err, wait, attempt)
		}
		gate.Hold(wait)
	}
}

// Gate is a process-wide cooldown. Hold extends the cooldown, Wait blocks
// until it has passed. The zero value is open. A nil *Gate never blocks.
type Gate struct {
	mu    sync.Mutex
	until time.Time
}

// Hold closes the gate for at least d from now. A longer pending cooldown
// is kept.
func (g *Gate) Hold(d time.Duration) {
	if g == nil || d <= 0 {
		return
	}
	until := time.Now().Add(d)
	g.mu.Lock()
	if until.After(g.until) {
		g.until = until
	}
	g.mu.Unlock()
}

// Remaining reports how long the gate stays closed.
func (g *Gate) Remaining() time.Duration {
	if g == nil {
		return 0
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if d := time.Until(g.until); d > 0 {
		return d
	}
	return 0
}

// Wait blocks until the gate is open or ctx is done.
func (g *Gate) Wait(ctx context.Context) error {
	for {
		d := g.Remaining()
		if d == 0 {
			return ctx.Err()
		}
		timer := time.NewTimer(d)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
