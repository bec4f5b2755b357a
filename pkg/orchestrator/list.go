package orchestrator

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cuemby/groupctl/pkg/client"
	"github.com/cuemby/groupctl/pkg/types"
)

// ListGroups returns every group in the space. Any failure, including an
// unparseable answer, yields an empty list.
func (o *Orchestrator) ListGroups(ctx context.Context) []types.Group {
	ok, resp := o.retry.Do(ctx, "list", o.submitPolicy, func(ctx context.Context, timeout time.Duration) (*client.Response, error) {
		return o.client.List(ctx, timeout)
	})
	if !ok {
		o.logger.Warn().Msg("Unable to list groups")
		return []types.Group{}
	}

	var groups []types.Group
	if err := json.Unmarshal(resp.Body, &groups); err != nil {
		o.logger.Debug().Err(err).Msgf("Invalid JSON response returned: %s", resp.Text())
		return []types.Group{}
	}
	if groups == nil {
		groups = []types.Group{}
	}
	return groups
}
