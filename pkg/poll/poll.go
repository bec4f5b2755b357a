package poll

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/cuemby/groupctl/pkg/client"
	"github.com/cuemby/groupctl/pkg/evaluate"
	"github.com/cuemby/groupctl/pkg/log"
	"github.com/cuemby/groupctl/pkg/metrics"
	"github.com/cuemby/groupctl/pkg/retry"
	"github.com/cuemby/groupctl/pkg/types"
	"github.com/rs/zerolog"
)

// Policy bounds a wait and the inspections it performs
type Policy struct {
	// MaxWait is the total time budget of the wait
	MaxWait time.Duration

	// Interval is the pause between two inspections
	Interval time.Duration

	InspectMaxAttempts        int
	InspectAcceptableStatuses []int
	InspectTimeout            time.Duration

	// InspectDelay is the pause between two attempts of one inspection
	InspectDelay time.Duration

	// MaxPanics is how many recovered panics a wait tolerates before failing
	MaxPanics int
}

// DefaultPolicy returns the policy used for deletes, resizes and route changes
func DefaultPolicy() Policy {
	return Policy{
		MaxWait:                   900 * time.Second,
		Interval:                  5 * time.Second,
		InspectMaxAttempts:        5,
		InspectAcceptableStatuses: []int{http.StatusOK, http.StatusCreated, http.StatusNotFound},
		InspectTimeout:            30 * time.Second,
		InspectDelay:              5 * time.Second,
		MaxPanics:                 3,
	}
}

// WithMaxWait returns a copy with a different time budget
func (p Policy) WithMaxWait(d time.Duration) Policy {
	p.MaxWait = d
	return p
}

func (p Policy) inspectPolicy() retry.Policy {
	rp := retry.DefaultPolicy().
		WithMaxAttempts(p.InspectMaxAttempts).
		WithStatuses(p.InspectAcceptableStatuses...).
		WithTimeout(p.InspectTimeout)
	rp.Delay = p.InspectDelay
	return rp
}

// Result is the outcome of a wait
type Result struct {
	OK bool

	// Group is the last snapshot seen, nil if none was ever fetched
	Group *types.Group

	// Reason explains a failure or timeout
	Reason string

	// TimedOut is true when the budget ran out or the context was cancelled.
	// The operation may still be progressing remotely.
	TimedOut bool

	// Inspections counts the loop iterations performed
	Inspections int
}

// Engine polls a group until an evaluator reaches a terminal verdict
type Engine struct {
	client client.ResourceClient
	retry  *retry.Executor
	logger zerolog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewEngine creates a poll engine. A nil logger selects the "poll"
// component logger.
func NewEngine(c client.ResourceClient, executor *retry.Executor, logger *zerolog.Logger) *Engine {
	if executor == nil {
		executor = retry.NewExecutor(logger)
	}
	return &Engine{
		client: c,
		retry:  executor,
		logger: log.ComponentOr(logger, "poll"),
		sleep:  retry.Sleep,
	}
}

// NoSuchGroupReason is the inspection reason for a group the API does not know
func NoSuchGroupReason(name string) string {
	return fmt.Sprintf("No such group as '%s'", name)
}

// Inspect fetches the current snapshot of name. On failure the group is nil
// and the reason explains why: the group does not exist, the API could not
// be reached, or the answer was not a group.
func (e *Engine) Inspect(ctx context.Context, name string, p Policy) (*types.Group, string) {
	ok, resp := e.retry.Do(ctx, "inspect", p.inspectPolicy(), func(ctx context.Context, timeout time.Duration) (*client.Response, error) {
		return e.client.Inspect(ctx, name, timeout)
	})
	if !ok {
		return nil, fmt.Sprintf("Unable to inspect group '%s'", name)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, NoSuchGroupReason(name)
	}

	var g types.Group
	if err := json.Unmarshal(resp.Body, &g); err != nil {
		return nil, fmt.Sprintf("Invalid JSON response: %s", resp.Text())
	}
	return &g, ""
}

// WaitFor inspects name every Interval and feeds the snapshot to ev until
// ev succeeds, fails, or MaxWait elapses. It never inspects more often than
// once per Interval and returns within MaxWait plus one Interval: a slow
// inspection is cut off at that deadline.
func (e *Engine) WaitFor(ctx context.Context, name, activity string, ev evaluate.Evaluator, p Policy) Result {
	logger := log.WithGroup(e.logger, name).With().Str("activity", activity).Logger()
	label := metricLabel(activity)
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.PollWaitDuration, label)

	logger.Debug().Msgf("Waiting for group '%s' %s", name, activity)

	var (
		last    *types.Group
		panics  int
		n       int
		start   = time.Now()
		elapsed time.Duration
	)

	budget, cancel := context.WithDeadline(ctx, start.Add(p.MaxWait+p.Interval))
	defer cancel()

	for elapsed < p.MaxWait {
		n++
		g, verdict, recovered, stack := e.iterate(budget, name, ev, p)
		if g != nil {
			last = g
		}

		if recovered != nil {
			panics++
			metrics.PollIterationsTotal.WithLabelValues(label, "panic").Inc()
			logger.Error().
				Int("iteration", n).
				Str("panic", fmt.Sprint(recovered)).
				Bytes("stack", stack).
				Msg("Panic while evaluating group")
			if p.MaxPanics > 0 && panics >= p.MaxPanics {
				return Result{
					Group:       last,
					Reason:      fmt.Sprintf("Group '%s' %s aborted after %d internal errors: %v", name, activity, panics, recovered),
					Inspections: n,
				}
			}
		} else {
			if !verdict.IsSuccess() && budget.Err() != nil {
				// the inspection was cut off; its verdict says nothing about the group
				break
			}

			metrics.PollIterationsTotal.WithLabelValues(label, string(verdict.Decision)).Inc()
			logger.Debug().Int("iteration", n).Str("verdict", verdict.String()).Msg("Evaluated group")

			switch verdict.Decision {
			case evaluate.DecisionSuccess:
				logger.Info().Dur("elapsed", elapsed).Msgf("Group '%s' %s completed successfully", name, activity)
				return Result{OK: true, Group: g, Inspections: n}
			case evaluate.DecisionFail:
				logger.Info().Dur("elapsed", elapsed).Str("reason", verdict.Reason).Msgf("Group '%s' %s failed", name, activity)
				return Result{Group: g, Reason: verdict.Reason, Inspections: n}
			}
		}

		if err := e.sleep(ctx, p.Interval); err != nil {
			break
		}
		elapsed = time.Since(start)
	}

	if err := ctx.Err(); err != nil {
		reason := fmt.Sprintf("Group '%s' %s wait cancelled: %v", name, activity, err)
		logger.Warn().Err(err).Msg("Wait cancelled")
		return Result{Group: last, Reason: reason, TimedOut: true, Inspections: n}
	}

	reason := fmt.Sprintf("Group '%s' %s took too long (> %s s)", name, activity, seconds(p.MaxWait))
	logger.Info().Dur("elapsed", time.Since(start)).Msg(reason)
	return Result{Group: last, Reason: reason, TimedOut: true, Inspections: n}
}

// iterate runs one inspect-and-evaluate step, recovering panics from the
// evaluator or the client
func (e *Engine) iterate(ctx context.Context, name string, ev evaluate.Evaluator, p Policy) (g *types.Group, v evaluate.Verdict, recovered interface{}, stack []byte) {
	defer func() {
		if r := recover(); r != nil {
			recovered, stack = r, debug.Stack()
		}
	}()

	g, reason := e.Inspect(ctx, name, p)
	return g, ev.Evaluate(g, reason), nil, nil
}

// metricLabel keeps the route out of metric labels: "map (a.b)" -> "map"
func metricLabel(activity string) string {
	if i := strings.IndexAny(activity, " ("); i > 0 {
		return activity[:i]
	}
	return activity
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}
