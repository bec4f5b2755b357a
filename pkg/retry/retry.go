package retry

import (
	"context"
	"fmt"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/cuemby/groupctl/pkg/client"
	"github.com/cuemby/groupctl/pkg/log"
	"github.com/cuemby/groupctl/pkg/metrics"
	"github.com/rs/zerolog"
)

// Backoff selects how the per-attempt timeout evolves between attempts
type Backoff string

const (
	// BackoffFixed keeps the initial timeout for every attempt
	BackoffFixed Backoff = "fixed"

	// BackoffDoubling doubles the timeout after each failed attempt
	BackoffDoubling Backoff = "doubling"
)

// Policy controls a single retried call. Policies are values: the With*
// helpers return modified copies.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first
	MaxAttempts int

	// AcceptableStatuses ends the loop successfully when matched
	AcceptableStatuses []int

	// Timeout is the per-attempt timeout of the first attempt
	Timeout time.Duration

	Backoff Backoff

	// Delay is the pause between two attempts
	Delay time.Duration

	// RetryClientErrors retries 4xx statuses that StatusRetryable rejects
	RetryClientErrors bool
}

// DefaultPolicy returns the policy used for group lifecycle submissions
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:        3,
		AcceptableStatuses: []int{200, 201},
		Timeout:            10 * time.Second,
		Backoff:            BackoffDoubling,
		Delay:              5 * time.Second,
	}
}

// WithStatuses returns a copy accepting exactly codes
func (p Policy) WithStatuses(codes ...int) Policy {
	p.AcceptableStatuses = append([]int(nil), codes...)
	return p
}

// WithMaxAttempts returns a copy with n attempts
func (p Policy) WithMaxAttempts(n int) Policy {
	p.MaxAttempts = n
	return p
}

// WithTimeout returns a copy with a different initial timeout
func (p Policy) WithTimeout(d time.Duration) Policy {
	p.Timeout = d
	return p
}

// WithBackoff returns a copy with a different backoff mode
func (p Policy) WithBackoff(b Backoff) Policy {
	p.Backoff = b
	return p
}

// Accepts reports whether code ends the loop successfully
func (p Policy) Accepts(code int) bool {
	for _, c := range p.AcceptableStatuses {
		if c == code {
			return true
		}
	}
	return false
}

// Validate checks that the policy can drive a loop
func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1, got %d", p.MaxAttempts)
	}
	if len(p.AcceptableStatuses) == 0 {
		return fmt.Errorf("at least one acceptable status is required")
	}
	if p.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", p.Timeout)
	}
	if p.Delay < 0 {
		return fmt.Errorf("delay must not be negative, got %v", p.Delay)
	}
	switch p.Backoff {
	case BackoffFixed, BackoffDoubling:
	default:
		return fmt.Errorf("unknown backoff mode %q", p.Backoff)
	}
	return nil
}

// Call is a single attempt against the API with the given timeout
type Call func(ctx context.Context, timeout time.Duration) (*client.Response, error)

// Executor runs calls under a Policy
type Executor struct {
	logger zerolog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewExecutor creates an executor. A nil logger selects the "retry"
// component logger.
func NewExecutor(logger *zerolog.Logger) *Executor {
	return &Executor{
		logger: log.ComponentOr(logger, "retry"),
		sleep:  Sleep,
	}
}

// Do invokes call until it returns an acceptable status or the policy is
// exhausted. It never returns an error: failures are logged and reported as
// (false, nil).
func (e *Executor) Do(ctx context.Context, name string, p Policy, call Call) (bool, *client.Response) {
	if err := p.Validate(); err != nil {
		e.logger.Error().Err(err).Str("call", name).Msg("Invalid retry policy")
		return false, nil
	}

	timeout := p.Timeout
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		resp, class := e.attempt(ctx, name, attempt, timeout, call)
		if resp != nil && class == "" && p.Accepts(resp.StatusCode) {
			metrics.RetryAttemptsTotal.WithLabelValues(name, "success").Inc()
			return true, resp
		}

		if class == "" && resp != nil {
			metrics.RetryAttemptsTotal.WithLabelValues(name, "status_"+strconv.Itoa(resp.StatusCode)).Inc()
			if !p.RetryClientErrors && !StatusRetryable(resp.StatusCode) {
				e.logger.Debug().
					Str("call", name).
					Int("attempt", attempt).
					Int("status_code", resp.StatusCode).
					Msg("Status is not retryable; giving up")
				metrics.RetryExhaustedTotal.WithLabelValues(name).Inc()
				return false, nil
			}
		} else {
			metrics.RetryAttemptsTotal.WithLabelValues(name, string(class)).Inc()
			if class == ClassPermanent || class == ClassPanic {
				metrics.RetryExhaustedTotal.WithLabelValues(name).Inc()
				return false, nil
			}
		}

		if attempt == p.MaxAttempts {
			break
		}
		if p.Backoff == BackoffDoubling {
			timeout *= 2
		}
		if err := e.sleep(ctx, p.Delay); err != nil {
			e.logger.Debug().Err(err).Str("call", name).Msg("Retry cancelled")
			metrics.RetryExhaustedTotal.WithLabelValues(name).Inc()
			return false, nil
		}
	}

	e.logger.Debug().Str("call", name).Int("attempts", p.MaxAttempts).Msg("Too many tries, returning")
	metrics.RetryExhaustedTotal.WithLabelValues(name).Inc()
	return false, nil
}

// attempt runs one call, converting errors and panics into a Class. An
// empty class with a non-nil response means the call returned normally.
func (e *Executor) attempt(ctx context.Context, name string, n int, timeout time.Duration, call Call) (resp *client.Response, class Class) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().
				Str("call", name).
				Int("attempt", n).
				Str("panic", fmt.Sprint(r)).
				Bytes("stack", debug.Stack()).
				Msg("Panic executing call")
			resp, class = nil, ClassPanic
		}
	}()

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := call(attemptCtx, timeout)
	if err != nil {
		class = Classify(err)
		ev := e.logger.Debug()
		if class == ClassUnknown {
			ev = e.logger.Warn()
		}
		ev.Err(err).
			Str("call", name).
			Int("attempt", n).
			Dur("timeout", timeout).
			Str("class", string(class)).
			Msgf("Exception occurred executing %s", name)
		return nil, class
	}
	if resp == nil {
		e.logger.Warn().Str("call", name).Int("attempt", n).Msg("Call returned no response")
		return nil, ClassUnknown
	}

	e.logger.Debug().
		Str("call", name).
		Int("attempt", n).
		Int("status_code", resp.StatusCode).
		Msg("Call returned")
	return resp, ""
}

// Sleep waits for d or until ctx is done
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
