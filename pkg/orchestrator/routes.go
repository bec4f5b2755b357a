package orchestrator

import (
	"context"
	"net/http"
	"time"

	"github.com/cuemby/groupctl/pkg/client"
	"github.com/cuemby/groupctl/pkg/evaluate"
	"github.com/cuemby/groupctl/pkg/types"
)

// MapRoute maps hostname.domain to name and waits until the group reports it
func (o *Orchestrator) MapRoute(ctx context.Context, hostname, domain, name string) Outcome {
	route := types.Route(hostname, domain)
	return o.run(ctx, "map-route", name, func(ctx context.Context, w *workflow) Outcome {
		return o.changeRoute(ctx, w, "map", evaluate.MapRoute{Route: route}, func(ctx context.Context, timeout time.Duration) (*client.Response, error) {
			return o.client.SubmitMapRoute(ctx, hostname, domain, name, timeout)
		})
	})
}

// UnmapRoute removes hostname.domain from name and waits until the group no
// longer reports it
func (o *Orchestrator) UnmapRoute(ctx context.Context, hostname, domain, name string) Outcome {
	route := types.Route(hostname, domain)
	return o.run(ctx, "unmap-route", name, func(ctx context.Context, w *workflow) Outcome {
		return o.changeRoute(ctx, w, "unmap", evaluate.UnmapRoute{Route: route}, func(ctx context.Context, timeout time.Duration) (*client.Response, error) {
			return o.client.SubmitUnmapRoute(ctx, hostname, domain, name, timeout)
		})
	})
}

func (o *Orchestrator) changeRoute(ctx context.Context, w *workflow, verb string, ev evaluate.Evaluator, call func(ctx context.Context, timeout time.Duration) (*client.Response, error)) Outcome {
	p := o.submitPolicy.WithStatuses(http.StatusOK, http.StatusCreated)
	ok, _ := o.submit(ctx, w, verb, p, call)
	if !ok {
		return Outcome{State: StateFailedSubmit, Reason: "Unable to request routing change"}
	}

	res, state := o.wait(ctx, w, ev.Name(), ev, o.pollPolicy)
	if res.OK {
		return Outcome{Success: true, Group: res.Group, State: state}
	}
	return Outcome{Group: res.Group, Reason: res.Reason, State: state}
}
