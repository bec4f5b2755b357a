package evaluate

import (
	"github.com/cuemby/groupctl/pkg/types"
)

// Deletion waits for a group to disappear or report a completed delete
type Deletion struct{}

func (Deletion) Name() string { return "deletion" }

func (Deletion) Evaluate(g *types.Group, reason string) Verdict {
	if g == nil {
		if IsNoSuchGroup(reason) {
			return Success()
		}
		return Continue()
	}
	return byStatus(g, "delete")
}

// Creation waits for a submitted group to finish building. Right after
// submission the group may not be listed yet, so a 404 keeps waiting.
type Creation struct{}

func (Creation) Name() string { return "creation" }

func (Creation) Evaluate(g *types.Group, reason string) Verdict {
	if g == nil {
		if IsNoSuchGroup(reason) {
			return Continue()
		}
		return Fail(reason)
	}
	return byStatus(g, "creation")
}

// Resize waits for a resize to settle. The group must exist throughout.
type Resize struct{}

func (Resize) Name() string { return "resize" }

func (Resize) Evaluate(g *types.Group, reason string) Verdict {
	if g == nil {
		if IsNoSuchGroup(reason) {
			return Fail("no such group; can't resize")
		}
		return Fail(reason)
	}
	return byStatus(g, "resize")
}

// MapRoute waits until Route shows up in the group's routes
type MapRoute struct {
	Route string
}

func (m MapRoute) Name() string { return "map route " + m.Route }

func (m MapRoute) Evaluate(g *types.Group, reason string) Verdict {
	if g == nil {
		if IsNoSuchGroup(reason) {
			return Fail("no such group; can't map route")
		}
		return Continue()
	}
	if len(g.Routes) == 0 || !g.HasRoute(m.Route) {
		return Continue()
	}
	return Success()
}

// UnmapRoute waits until Route is gone from the group's routes
type UnmapRoute struct {
	Route string
}

func (u UnmapRoute) Name() string { return "unmap route " + u.Route }

func (u UnmapRoute) Evaluate(g *types.Group, reason string) Verdict {
	if g == nil {
		if IsNoSuchGroup(reason) {
			return Fail("no such group; can't unmap route")
		}
		return Continue()
	}
	if g.HasRoute(u.Route) {
		return Continue()
	}
	return Success()
}

var (
	_ Evaluator = Deletion{}
	_ Evaluator = Creation{}
	_ Evaluator = Resize{}
	_ Evaluator = MapRoute{}
	_ Evaluator = UnmapRoute{}
)
