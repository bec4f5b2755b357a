package orchestrator

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cuemby/groupctl/pkg/client"
	"github.com/cuemby/groupctl/pkg/evaluate"
)

// ResizeGroup changes the desired instance count of an existing group and
// waits for the resize to settle. On failure the reason reports how many
// instances the group actually has.
func (o *Orchestrator) ResizeGroup(ctx context.Context, name string, desired int) Outcome {
	return o.run(ctx, "resize", name, func(ctx context.Context, w *workflow) Outcome {
		if desired < 0 {
			return Outcome{State: StateRejected, Reason: fmt.Sprintf("Invalid desired size %d", desired)}
		}

		w.logger.Debug().Int("desired", desired).Msgf("Checking if group '%s' exists", name)
		g, reason := o.engine.Inspect(ctx, name, o.pollPolicy)
		if g == nil {
			return Outcome{
				State:  StateRejected,
				Reason: fmt.Sprintf("Cannot resize group, no group named %s exists. (%s)", name, reason),
			}
		}

		p := o.submitPolicy.WithStatuses(http.StatusOK, http.StatusCreated, http.StatusNoContent, http.StatusNotFound)
		ok, _ := o.submit(ctx, w, "resize", p, func(ctx context.Context, timeout time.Duration) (*client.Response, error) {
			return o.client.SubmitResize(ctx, name, desired, timeout)
		})
		if !ok {
			return Outcome{Group: g, State: StateFailedSubmit, Reason: fmt.Sprintf("Unable to resize group '%s'", name)}
		}

		res, state := o.wait(ctx, w, "resize", evaluate.Resize{}, o.pollPolicy)
		if res.Group != nil {
			w.logger.Info().
				Int("current", res.Group.NumberInstances.CurrentSize).
				Int("desired", desired).
				Msgf("After resize, %s has %d instances", name, res.Group.NumberInstances.CurrentSize)
		}
		if res.OK {
			return Outcome{Success: true, Group: res.Group, State: state}
		}

		current := "an unknown number of"
		if res.Group != nil {
			current = fmt.Sprintf("%d", res.Group.NumberInstances.CurrentSize)
		}
		return Outcome{
			Group:  res.Group,
			State:  state,
			Reason: fmt.Sprintf("%s: %s has %s instances; wanted %d", res.Reason, name, current, desired),
		}
	})
}
