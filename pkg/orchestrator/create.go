package orchestrator

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cuemby/groupctl/pkg/client"
	"github.com/cuemby/groupctl/pkg/evaluate"
	"github.com/cuemby/groupctl/pkg/events"
	"github.com/cuemby/groupctl/pkg/metrics"
	"github.com/cuemby/groupctl/pkg/types"
)

// CreateRequest describes a group to create
type CreateRequest struct {
	Name    string            `validate:"required"`
	Image   string            `validate:"required"`
	Desired int               `validate:"gte=0,gtefield=Min,ltefield=Max"`
	Max     int               `validate:"gte=1"`
	Min     int               `validate:"gte=0"`
	Memory  int               `validate:"gt=0"`
	Env     map[string]string `validate:"omitempty,dive,keys,required,endkeys"`

	// Port is the exposed port, 0 for none
	Port int `validate:"gte=0,lte=65535"`

	// MaxWait bounds the creation wait; 0 selects the orchestrator default
	MaxWait time.Duration `validate:"gte=0"`
}

// Instance defaults of a new group
const (
	DefaultDesired = 2
	DefaultMax     = 4
	DefaultMin     = 0
	DefaultMemory  = 64
)

// NewCreateRequest returns a request for name/image with default sizing
func NewCreateRequest(name, image string) CreateRequest {
	return CreateRequest{
		Name:    name,
		Image:   image,
		Desired: DefaultDesired,
		Max:     DefaultMax,
		Min:     DefaultMin,
		Memory:  DefaultMemory,
	}
}

// withDefaults fills unset fields. Counts count as unset only when all
// three are zero.
func (r CreateRequest) withDefaults(maxWait time.Duration) CreateRequest {
	if r.Desired == 0 && r.Max == 0 && r.Min == 0 {
		r.Desired, r.Max, r.Min = DefaultDesired, DefaultMax, DefaultMin
	}
	if r.Memory == 0 {
		r.Memory = DefaultMemory
	}
	if r.MaxWait == 0 {
		r.MaxWait = maxWait
	}
	return r
}

func (r CreateRequest) spec() client.CreateSpec {
	return client.CreateSpec{
		Name:    r.Name,
		Image:   r.Image,
		Desired: r.Desired,
		Max:     r.Max,
		Min:     r.Min,
		Memory:  r.Memory,
		Env:     r.Env,
		Port:    r.Port,
	}
}

// CreateGroup creates a group and waits for it to finish building.
//
// An existing group with the same name is never touched. If the group
// fails to build or does not finish within MaxWait, it is force-deleted
// before returning; the reason then says whether the rollback worked.
func (o *Orchestrator) CreateGroup(ctx context.Context, req CreateRequest) Outcome {
	req = req.withDefaults(o.createMaxWait)

	return o.run(ctx, "create", req.Name, func(ctx context.Context, w *workflow) Outcome {
		if err := o.validate.Struct(req); err != nil {
			return Outcome{State: StateRejected, Reason: fmt.Sprintf("Invalid create request: %v", err)}
		}

		w.logger.Debug().Msgf("Checking if group '%s' already exists", req.Name)
		if g, _ := o.engine.Inspect(ctx, req.Name, o.pollPolicy); g != nil {
			return Outcome{
				State:  StateRejected,
				Reason: fmt.Sprintf("Cannot create group, one with name '%s' already exists.", req.Name),
			}
		}

		spec := req.spec()
		p := o.submitPolicy.WithStatuses(http.StatusOK, http.StatusCreated)
		ok, _ := o.submit(ctx, w, "create", p, func(ctx context.Context, timeout time.Duration) (*client.Response, error) {
			return o.client.SubmitCreate(ctx, spec, timeout)
		})
		if !ok {
			return Outcome{State: StateFailedSubmit, Reason: fmt.Sprintf("Unable to create group '%s'", req.Name)}
		}

		res, state := o.wait(ctx, w, "creation", evaluate.Creation{}, o.pollPolicy.WithMaxWait(req.MaxWait))
		if res.OK {
			return Outcome{Success: true, Group: res.Group, State: state}
		}

		return o.compensate(ctx, w, res.Reason, res.Group)
	})
}

// compensate force-deletes a group whose creation did not succeed. The
// caller's context may already be cancelled, so cleanup runs detached from
// its cancellation.
func (o *Orchestrator) compensate(ctx context.Context, w *workflow, reason string, last *types.Group) Outcome {
	ctx = context.WithoutCancel(ctx)

	w.logger.Info().Str("reason", reason).Msgf("Creation of group '%s' did not succeed; deleting it", w.group)
	w.publish(events.EventCompensationStarted, reason, nil)

	del := o.forcedDelete(ctx, w)
	if del.Success {
		metrics.CompensationsTotal.WithLabelValues("cleaned_up").Inc()
		w.publish(events.EventCompensationFinished, "group deleted", map[string]string{events.MetaSuccess: "true"})
		return Outcome{
			State:  StateCleanedUp,
			Reason: fmt.Sprintf("%s; group '%s' was deleted", reason, w.group),
		}
	}

	metrics.CompensationsTotal.WithLabelValues("cleanup_failed").Inc()
	w.publish(events.EventCompensationFinished, del.Reason, map[string]string{events.MetaSuccess: "false"})
	w.logger.Error().Str("reason", reason).Str("cleanup_reason", del.Reason).Msgf("Deletion of group '%s' failed; manual intervention required", w.group)

	return Outcome{
		Group:  last,
		State:  StateCleanupFailed,
		Reason: fmt.Sprintf("%s; cleanup failed: %s; manual intervention required", reason, del.Reason),
	}
}
