package orchestrator

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cuemby/groupctl/pkg/client"
	"github.com/cuemby/groupctl/pkg/evaluate"
	"github.com/cuemby/groupctl/pkg/events"
	"github.com/cuemby/groupctl/pkg/log"
	"github.com/cuemby/groupctl/pkg/metrics"
	"github.com/cuemby/groupctl/pkg/poll"
	"github.com/cuemby/groupctl/pkg/retry"
	"github.com/cuemby/groupctl/pkg/tracing"
	"github.com/cuemby/groupctl/pkg/types"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// State is where a workflow invocation ended
type State string

const (
	// StateRejected: a pre-check refused the request before anything was submitted
	StateRejected State = "rejected"

	// StateFailedSubmit: the API never accepted the request
	StateFailedSubmit State = "failed_submit"

	StateSucceeded State = "succeeded"

	// StateFailed: the group reached a terminal failure
	StateFailed State = "failed"

	// StateTimedOut: the wait budget ran out. The remote operation may still
	// complete later.
	StateTimedOut State = "timed_out"

	// StateCleanedUp: a failed create was rolled back
	StateCleanedUp State = "cleaned_up"

	// StateCleanupFailed: a failed create could not be rolled back; manual
	// intervention is required
	StateCleanupFailed State = "cleanup_failed"
)

// Outcome is the result of every public operation. Failures are reported
// here, never as errors.
type Outcome struct {
	Success bool

	// Group is the last snapshot seen, nil when there is none (or the group
	// is gone)
	Group *types.Group

	Reason      string
	State       State
	OperationID string
}

// Defaults for forced delete and deploy-update delete
const (
	DefaultForcedDeleteAttempts = 3
	DefaultForcedDeleteDelay    = 5 * time.Second
	DefaultCreateMaxWait        = 600 * time.Second
	DefaultUpdateTimeout        = 120 * time.Second
)

// Config configures an Orchestrator
type Config struct {
	Client client.ResourceClient

	// Updates is optional; DeleteUpdate is rejected without it
	Updates client.UpdateClient

	// Retry is the base policy for submissions; each workflow sets its own
	// acceptable statuses
	Retry retry.Policy

	// Poll bounds deletes, resizes and route changes
	Poll poll.Policy

	// CreateMaxWait is the default wait budget of CreateGroup
	CreateMaxWait time.Duration

	ForcedDeleteAttempts int
	ForcedDeleteDelay    time.Duration

	UpdateTimeout time.Duration

	Events events.Publisher
	Tracer trace.Tracer
	Logger *zerolog.Logger
}

// DefaultConfig returns the production defaults for c
func DefaultConfig(c client.ResourceClient) Config {
	return Config{
		Client:               c,
		Retry:                retry.DefaultPolicy(),
		Poll:                 poll.DefaultPolicy(),
		CreateMaxWait:        DefaultCreateMaxWait,
		ForcedDeleteAttempts: DefaultForcedDeleteAttempts,
		ForcedDeleteDelay:    DefaultForcedDeleteDelay,
		UpdateTimeout:        DefaultUpdateTimeout,
	}
}

// Orchestrator turns asynchronous group API requests into synchronous,
// bounded workflows. It holds no state between calls, so calls for
// different groups may run concurrently.
type Orchestrator struct {
	client   client.ResourceClient
	updates  client.UpdateClient
	retry    *retry.Executor
	engine   *poll.Engine
	validate *validator.Validate
	events   events.Publisher
	tracer   trace.Tracer
	logger   zerolog.Logger

	submitPolicy         retry.Policy
	pollPolicy           poll.Policy
	createMaxWait        time.Duration
	forcedDeleteAttempts int
	forcedDeleteDelay    time.Duration
	updateTimeout        time.Duration
	sleep                func(ctx context.Context, d time.Duration) error
}

// New creates an orchestrator
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("resource client is required")
	}
	if err := cfg.Retry.Validate(); err != nil {
		return nil, fmt.Errorf("invalid retry policy: %w", err)
	}
	if cfg.Poll.MaxWait <= 0 || cfg.Poll.Interval <= 0 {
		return nil, fmt.Errorf("invalid poll policy: max wait and interval must be positive")
	}
	if cfg.CreateMaxWait <= 0 {
		cfg.CreateMaxWait = DefaultCreateMaxWait
	}
	if cfg.ForcedDeleteAttempts < 1 {
		cfg.ForcedDeleteAttempts = DefaultForcedDeleteAttempts
	}
	if cfg.ForcedDeleteDelay < 0 {
		cfg.ForcedDeleteDelay = DefaultForcedDeleteDelay
	}
	if cfg.UpdateTimeout <= 0 {
		cfg.UpdateTimeout = DefaultUpdateTimeout
	}
	if cfg.Events == nil {
		cfg.Events = events.Discard
	}
	if cfg.Tracer == nil {
		cfg.Tracer = tracing.Tracer()
	}

	logger := log.ComponentOr(cfg.Logger, "orchestrator")
	executor := retry.NewExecutor(&logger)

	return &Orchestrator{
		client:               cfg.Client,
		updates:              cfg.Updates,
		retry:                executor,
		engine:               poll.NewEngine(cfg.Client, executor, &logger),
		validate:             validator.New(),
		events:               cfg.Events,
		tracer:               cfg.Tracer,
		logger:               logger,
		submitPolicy:         cfg.Retry,
		pollPolicy:           cfg.Poll,
		createMaxWait:        cfg.CreateMaxWait,
		forcedDeleteAttempts: cfg.ForcedDeleteAttempts,
		forcedDeleteDelay:    cfg.ForcedDeleteDelay,
		updateTimeout:        cfg.UpdateTimeout,
		sleep:                retry.Sleep,
	}, nil
}

// workflow carries the per-invocation context of one public operation
type workflow struct {
	o         *Orchestrator
	id        string
	operation string
	group     string
	logger    zerolog.Logger
}

func (w *workflow) publish(t events.EventType, message string, meta map[string]string) {
	if meta == nil {
		meta = make(map[string]string, 1)
	}
	meta[events.MetaOperationID] = w.id
	w.o.events.Publish(&events.Event{
		ID:        uuid.NewString(),
		Type:      t,
		Group:     w.group,
		Operation: w.operation,
		Message:   message,
		Metadata:  meta,
	})
}

// run wraps a workflow body with an operation id, a span, metrics and the
// operation.finished event
func (o *Orchestrator) run(ctx context.Context, operation, name string, body func(ctx context.Context, w *workflow) Outcome) Outcome {
	w := &workflow{
		o:         o,
		id:        uuid.NewString(),
		operation: operation,
		group:     name,
	}
	w.logger = log.WithGroup(o.logger, name).With().
		Str("operation", operation).
		Str("op_id", w.id).
		Logger()

	ctx, span := o.tracer.Start(ctx, "orchestrator."+operation, trace.WithAttributes(
		tracing.AttrGroupName.String(name),
		tracing.AttrOperation.String(operation),
		tracing.AttrOperationID.String(w.id),
	))
	defer span.End()

	timer := metrics.NewTimer()
	w.logger.Debug().Msgf("%s called", operation)

	out := body(ctx, w)
	out.OperationID = w.id

	elapsed := timer.Duration()
	timer.ObserveDurationVec(metrics.WorkflowDuration, operation)
	metrics.WorkflowsTotal.WithLabelValues(operation, string(out.State)).Inc()

	span.SetAttributes(tracing.AttrState.String(string(out.State)))
	if out.Success {
		tracing.RecordSuccess(span)
		w.logger.Info().Dur("elapsed", elapsed).Str("state", string(out.State)).Msgf("Group '%s' %s succeeded", name, operation)
	} else {
		tracing.RecordFailure(span, out.Reason)
		w.logger.Warn().Dur("elapsed", elapsed).Str("state", string(out.State)).Str("reason", out.Reason).Msgf("Group '%s' %s failed", name, operation)
	}

	w.publish(events.EventOperationFinished, out.Reason, map[string]string{
		events.MetaSuccess:  strconv.FormatBool(out.Success),
		events.MetaState:    string(out.State),
		events.MetaReason:   out.Reason,
		events.MetaDuration: elapsed.String(),
	})
	return out
}

// submit runs one retried API request and reports acceptance
func (o *Orchestrator) submit(ctx context.Context, w *workflow, call string, p retry.Policy, fn retry.Call) (bool, *client.Response) {
	ok, resp := o.retry.Do(ctx, call, p, fn)
	if !ok {
		w.publish(events.EventSubmitFailed, fmt.Sprintf("%s request was not accepted", call), nil)
		return false, nil
	}
	w.publish(events.EventSubmitAccepted, fmt.Sprintf("%s request accepted", call), map[string]string{
		"status_code": strconv.Itoa(resp.StatusCode),
	})
	return true, resp
}

// wait polls with ev and maps the result to a terminal state
func (o *Orchestrator) wait(ctx context.Context, w *workflow, activity string, ev evaluate.Evaluator, p poll.Policy) (poll.Result, State) {
	res := o.engine.WaitFor(ctx, w.group, activity, ev, p)

	state := StateSucceeded
	switch {
	case res.TimedOut:
		state = StateTimedOut
	case !res.OK:
		state = StateFailed
	}

	w.publish(events.EventWaitFinished, res.Reason, map[string]string{
		events.MetaSuccess:  strconv.FormatBool(res.OK),
		events.MetaTimedOut: strconv.FormatBool(res.TimedOut),
		"inspections":       strconv.Itoa(res.Inspections),
	})
	return res, state
}

// InspectGroup returns the current snapshot of name, or nil and the reason
// it could not be fetched
func (o *Orchestrator) InspectGroup(ctx context.Context, name string) (*types.Group, string) {
	return o.engine.Inspect(ctx, name, o.pollPolicy)
}
