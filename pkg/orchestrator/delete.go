package orchestrator

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cuemby/groupctl/pkg/client"
	"github.com/cuemby/groupctl/pkg/evaluate"
	"github.com/cuemby/groupctl/pkg/retry"
)

// DeleteGroup deletes name and waits until it is gone. Deleting a group
// that does not exist succeeds without waiting.
func (o *Orchestrator) DeleteGroup(ctx context.Context, name string) Outcome {
	return o.run(ctx, "delete", name, func(ctx context.Context, w *workflow) Outcome {
		return o.delete(ctx, w)
	})
}

// ForcedDeleteGroup repeats DeleteGroup until it succeeds, up to the
// configured number of attempts. Use it to make sure a group is absent.
func (o *Orchestrator) ForcedDeleteGroup(ctx context.Context, name string) Outcome {
	return o.run(ctx, "forced-delete", name, func(ctx context.Context, w *workflow) Outcome {
		return o.forcedDelete(ctx, w)
	})
}

func (o *Orchestrator) delete(ctx context.Context, w *workflow) Outcome {
	name := w.group
	p := o.submitPolicy.WithStatuses(http.StatusOK, http.StatusCreated, http.StatusNoContent, http.StatusNotFound)
	ok, resp := o.submit(ctx, w, "delete", p, func(ctx context.Context, timeout time.Duration) (*client.Response, error) {
		return o.client.SubmitDelete(ctx, name, true, timeout)
	})
	if !ok {
		return Outcome{State: StateFailedSubmit, Reason: "Unable to initiate delete request"}
	}

	if resp.StatusCode == http.StatusNotFound {
		w.logger.Debug().Msgf("Group '%s' does not exist; exiting", name)
		return Outcome{Success: true, State: StateSucceeded}
	}

	res, state := o.wait(ctx, w, "deletion", evaluate.Deletion{}, o.pollPolicy)
	if res.OK {
		// The deletion evaluator succeeds on a 404, leaving no snapshot
		return Outcome{Success: true, Group: res.Group, State: state}
	}
	return Outcome{Group: res.Group, Reason: res.Reason, State: state}
}

func (o *Orchestrator) forcedDelete(ctx context.Context, w *workflow) Outcome {
	var last Outcome
	for attempt := 1; attempt <= o.forcedDeleteAttempts; attempt++ {
		last = o.delete(ctx, w)
		if last.Success {
			return Outcome{Success: true, State: StateSucceeded}
		}

		w.logger.Debug().
			Int("attempt", attempt).
			Str("reason", last.Reason).
			Msg("Delete attempt failed")

		if attempt == o.forcedDeleteAttempts {
			break
		}
		if err := o.sleep(ctx, o.forcedDeleteDelay); err != nil {
			break
		}
	}

	state := last.State
	if state == "" || state == StateSucceeded {
		state = StateFailed
	}
	return Outcome{
		Group:  last.Group,
		State:  state,
		Reason: fmt.Sprintf("Unable to delete group '%s' after %d attempts", w.group, o.forcedDeleteAttempts),
	}
}

// DeleteUpdate deletes the deploy update called name. The update API has no
// inspect call, so acceptance is the end of the operation. A missing update
// counts as deleted.
func (o *Orchestrator) DeleteUpdate(ctx context.Context, name string) Outcome {
	return o.run(ctx, "delete-update", name, func(ctx context.Context, w *workflow) Outcome {
		if o.updates == nil {
			return Outcome{State: StateRejected, Reason: "No deploy update client configured"}
		}

		p := o.submitPolicy.
			WithStatuses(http.StatusOK, http.StatusCreated, http.StatusNotFound).
			WithTimeout(o.updateTimeout).
			WithBackoff(retry.BackoffFixed)

		ok, resp := o.submit(ctx, w, "delete-update", p, func(ctx context.Context, timeout time.Duration) (*client.Response, error) {
			return o.updates.DeleteUpdate(ctx, name, timeout)
		})
		if !ok {
			return Outcome{State: StateFailedSubmit, Reason: "Unable to initiate delete update request"}
		}
		if resp.StatusCode == http.StatusNotFound {
			w.logger.Debug().Msgf("Update '%s' does not exist", name)
		}
		return Outcome{Success: true, State: StateSucceeded}
	})
}
