// Package retry wraps fallible operations with bounded exponential backoff.
//
// Failures are classified by IsRetryable. Transient failures are retried up
// to Policy.MaxRetries times; anything else, or the last transient failure,
// is translated into one error from pkg/errors that keeps the original
// failure as its cause.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	pkgerrs "github.com/jamesprial/go-reddit-extractor/pkg/errors"
)

const (
	// DefaultMaxRetries is the number of retries after the first attempt.
	DefaultMaxRetries = 3
	// DefaultBaseDelay is the delay before the first retry.
	DefaultBaseDelay = 2 * time.Second
	// DefaultMaxDelay caps every delay between attempts.
	DefaultMaxDelay = 30 * time.Second

	// jitterDivisor bounds jitter to a tenth of the current delay.
	jitterDivisor = 10
)

// Kind names the operation being retried. It selects which retrieval error
// a final failure is translated into.
type Kind int

const (
	KindPost Kind = iota
	KindComments
)

func (k Kind) String() string {
	switch k {
	case KindPost:
		return "post"
	case KindComments:
		return "comments"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Policy bounds the retry loop. It is read once per call.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultPolicy returns 3 retries starting at 2s and capped at 30s.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultBaseDelay,
		MaxDelay:   DefaultMaxDelay,
	}
}

func (p Policy) normalized() Policy {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.BaseDelay < 0 {
		p.BaseDelay = 0
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = p.BaseDelay
	}
	return p
}

// Retrier applies a Policy. Classify, Sleep and Jitter may be replaced for
// deterministic tests; nil fields fall back to the defaults.
type Retrier struct {
	Policy Policy

	// Classify decides whether a failure is transient. Defaults to IsRetryable.
	Classify func(error) bool
	// Sleep blocks for d or until ctx is done.
	Sleep func(ctx context.Context, d time.Duration) error
	// Jitter returns a value in [0, max].
	Jitter func(max time.Duration) time.Duration

	Logger  *slog.Logger
	Metrics *Metrics
}

// New creates a Retrier with the given policy and the default clock.
func New(policy Policy, logger *slog.Logger) *Retrier {
	return &Retrier{Policy: policy, Logger: logger}
}

// Do runs op until it succeeds, fails fatally, runs out of retries or ctx is
// done. Between attempts it sleeps min(delay+jitter, MaxDelay) and then
// doubles delay up to MaxDelay.
func Do[T any](ctx context.Context, r *Retrier, kind Kind, op func(context.Context) (T, error)) (T, error) {
	var zero T
	if r == nil {
		r = New(DefaultPolicy(), nil)
	}
	policy := r.Policy.normalized()
	logger := r.logger()

	current := policy.BaseDelay
	var lastErr error
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			r.Metrics.failure(kind, "canceled")
			return zero, aborted(kind, err, lastErr)
		}

		r.Metrics.attempt(kind)
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt > policy.MaxRetries || !r.classify(err) {
			reason := "fatal"
			if attempt > policy.MaxRetries {
				reason = "exhausted"
			}
			r.Metrics.failure(kind, reason)
			logger.Error("operation failed",
				"kind", kind.String(),
				"attempts", attempt,
				"reason", reason,
				"error", err,
			)
			return zero, translate(kind, err, attempt)
		}

		delay := current + r.jitter(current/jitterDivisor)
		if delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}
		logger.Warn("retrying operation",
			"kind", kind.String(),
			"attempt", attempt,
			"max_retries", policy.MaxRetries,
			"delay", delay,
			"error", err,
		)
		r.Metrics.retry(kind)

		if err := r.sleep(ctx, delay); err != nil {
			r.Metrics.failure(kind, "canceled")
			return zero, aborted(kind, err, lastErr)
		}

		current *= 2
		if current > policy.MaxDelay {
			current = policy.MaxDelay
		}
	}
}

func (r *Retrier) classify(err error) bool {
	if r.Classify != nil {
		return r.Classify(err)
	}
	return IsRetryable(err)
}

func (r *Retrier) sleep(ctx context.Context, d time.Duration) error {
	if r.Sleep != nil {
		return r.Sleep(ctx, d)
	}
	return sleepContext(ctx, d)
}

func (r *Retrier) jitter(max time.Duration) time.Duration {
	if r.Jitter != nil {
		return r.Jitter(max)
	}
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(max) + 1))
}

func (r *Retrier) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.New(slog.DiscardHandler)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// translate maps a final failure onto the error taxonomy.
func translate(kind Kind, err error, attempts int) error {
	var authErr *pkgerrs.AuthError
	if errors.As(err, &authErr) {
		if authErr == err {
			return err
		}
		return &pkgerrs.AuthError{StatusCode: authErr.StatusCode, Message: "authentication failed", Err: err}
	}
	if status, ok := isAuthStatus(err); ok {
		return &pkgerrs.AuthError{StatusCode: status, Message: "authentication failed", Err: err}
	}

	var (
		configErr  *pkgerrs.ConfigError
		postErr    *pkgerrs.PostRetrievalError
		commentErr *pkgerrs.CommentRetrievalError
	)
	if errors.As(err, &configErr) || errors.As(err, &postErr) || errors.As(err, &commentErr) {
		return err
	}

	msg := fmt.Sprintf("%s fetch failed after %d attempt(s)", kind, attempts)
	return wrap(kind, msg, err)
}

// aborted reports a loop stopped by its context. cause is ctx.Err().
func aborted(kind Kind, cause, last error) error {
	msg := fmt.Sprintf("%s fetch aborted", kind)
	if last != nil {
		msg = fmt.Sprintf("%s fetch aborted after error %q", kind, last.Error())
	}
	return wrap(kind, msg, cause)
}

func wrap(kind Kind, msg string, err error) error {
	if kind == KindComments {
		return &pkgerrs.CommentRetrievalError{Message: msg, Err: err}
	}
	return &pkgerrs.PostRetrievalError{Message: msg, Err: err}
}
