package orchestrator

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/cuemby/groupctl/pkg/client/clienttest"
	"github.com/cuemby/groupctl/pkg/events"
	"github.com/cuemby/groupctl/pkg/poll"
	"github.com/cuemby/groupctl/pkg/retry"
	"github.com/cuemby/groupctl/pkg/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []*events.Event
}

func (r *recorder) Publish(e *events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) ofType(t events.EventType) []*events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*events.Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func testConfig(fake *clienttest.Fake) Config {
	cfg := DefaultConfig(fake)
	cfg.Updates = fake
	cfg.Retry.Delay = time.Millisecond
	cfg.Poll = poll.Policy{
		MaxWait:                   2 * time.Second,
		Interval:                  2 * time.Millisecond,
		InspectMaxAttempts:        5,
		InspectAcceptableStatuses: []int{200, 201, 404},
		InspectTimeout:            time.Second,
		InspectDelay:              time.Millisecond,
		MaxPanics:                 3,
	}
	cfg.CreateMaxWait = 2 * time.Second
	cfg.ForcedDeleteDelay = time.Millisecond
	return cfg
}

func newTestOrchestrator(t *testing.T, fake *clienttest.Fake) (*Orchestrator, *recorder) {
	t.Helper()
	rec := &recorder{}
	logger := zerolog.New(io.Discard)
	cfg := testConfig(fake)
	cfg.Events = rec
	cfg.Logger = &logger

	o, err := New(cfg)
	require.NoError(t, err)
	return o, rec
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err, "client is required")

	cfg := testConfig(clienttest.New())
	cfg.Retry = retry.DefaultPolicy().WithMaxAttempts(0)
	_, err = New(cfg)
	assert.Error(t, err)

	cfg = testConfig(clienttest.New())
	cfg.Poll.Interval = 0
	_, err = New(cfg)
	assert.Error(t, err)
}

func TestCreateGroup_Succeeds(t *testing.T) {
	fake := clienttest.New().
		On(clienttest.MethodInspect,
			clienttest.Status(404),
			clienttest.GroupStatus("web-1", "CREATE_IN_PROGRESS", 0),
			clienttest.GroupStatus("web-1", "CREATE_IN_PROGRESS", 1),
			clienttest.GroupStatus("web-1", "CREATE_COMPLETE", 2),
		).
		On(clienttest.MethodCreate, clienttest.Status(201))
	o, rec := newTestOrchestrator(t, fake)

	out := o.CreateGroup(context.Background(), NewCreateRequest("web-1", "registry/app:1"))

	require.True(t, out.Success, out.Reason)
	assert.Equal(t, StateSucceeded, out.State)
	require.NotNil(t, out.Group)
	assert.Equal(t, 2, out.Group.NumberInstances.CurrentSize)
	assert.NotEmpty(t, out.OperationID)

	assert.Equal(t, 1, fake.Count(clienttest.MethodCreate))
	assert.Equal(t, 4, fake.Count(clienttest.MethodInspect))
	assert.Equal(t, 0, fake.Count(clienttest.MethodDelete))

	spec := fake.Calls(clienttest.MethodCreate)[0].Spec
	assert.Equal(t, 2, spec.Desired)
	assert.Equal(t, 4, spec.Max)
	assert.Equal(t, 0, spec.Min)
	assert.Equal(t, 64, spec.Memory)

	finished := rec.ofType(events.EventOperationFinished)
	require.Len(t, finished, 1)
	assert.Equal(t, "create", finished[0].Operation)
	assert.Equal(t, "web-1", finished[0].Group)
	assert.Equal(t, "true", finished[0].Metadata[events.MetaSuccess])
	assert.Equal(t, out.OperationID, finished[0].Metadata[events.MetaOperationID])
	assert.Len(t, rec.ofType(events.EventSubmitAccepted), 1)
}

func TestCreateGroup_ExistingGroupIsNotTouched(t *testing.T) {
	fake := clienttest.New().
		On(clienttest.MethodInspect, clienttest.GroupStatus("web-1", "CREATE_COMPLETE", 2))
	o, _ := newTestOrchestrator(t, fake)

	out := o.CreateGroup(context.Background(), NewCreateRequest("web-1", "registry/app:1"))

	assert.False(t, out.Success)
	assert.Equal(t, StateRejected, out.State)
	assert.Equal(t, "Cannot create group, one with name 'web-1' already exists.", out.Reason)
	assert.Equal(t, 0, fake.Count(clienttest.MethodCreate))
	assert.Equal(t, 0, fake.Count(clienttest.MethodDelete))
}

func TestCreateGroup_InvalidRequest(t *testing.T) {
	fake := clienttest.New()
	o, _ := newTestOrchestrator(t, fake)

	req := NewCreateRequest("web-1", "registry/app:1")
	req.Desired = 10

	out := o.CreateGroup(context.Background(), req)

	assert.Equal(t, StateRejected, out.State)
	assert.Contains(t, out.Reason, "Invalid create request")
	assert.Empty(t, fake.Calls(""), "no API call for an invalid request")
}

func TestCreateGroup_DefaultsForBareRequest(t *testing.T) {
	fake := clienttest.New().
		On(clienttest.MethodInspect, clienttest.Status(404), clienttest.GroupStatus("web-1", "CREATE_COMPLETE", 2)).
		On(clienttest.MethodCreate, clienttest.Status(200))
	o, _ := newTestOrchestrator(t, fake)

	out := o.CreateGroup(context.Background(), CreateRequest{Name: "web-1", Image: "registry/app:1", Port: 8080})

	require.True(t, out.Success, out.Reason)
	spec := fake.Calls(clienttest.MethodCreate)[0].Spec
	assert.Equal(t, 2, spec.Desired)
	assert.Equal(t, 4, spec.Max)
	assert.Equal(t, 8080, spec.Port)
}

func TestCreateGroup_SubmitFailureDoesNotPoll(t *testing.T) {
	fake := clienttest.New().
		On(clienttest.MethodInspect, clienttest.Status(404)).
		On(clienttest.MethodCreate, clienttest.Status(500))
	o, rec := newTestOrchestrator(t, fake)

	out := o.CreateGroup(context.Background(), NewCreateRequest("web-1", "registry/app:1"))

	assert.False(t, out.Success)
	assert.Equal(t, StateFailedSubmit, out.State)
	assert.Equal(t, "Unable to create group 'web-1'", out.Reason)
	assert.Equal(t, 3, fake.Count(clienttest.MethodCreate))
	assert.Equal(t, 1, fake.Count(clienttest.MethodInspect), "only the pre-check")
	assert.Equal(t, 0, fake.Count(clienttest.MethodDelete))
	assert.Len(t, rec.ofType(events.EventSubmitFailed), 1)
}

func TestCreateGroup_FailureIsCompensated(t *testing.T) {
	fake := clienttest.New().
		On(clienttest.MethodInspect,
			clienttest.Status(404),
			clienttest.GroupStatus("web-1", "CREATE_IN_PROGRESS", 0),
			clienttest.GroupStatus("web-1", "CREATE_FAILED", 0),
			clienttest.Status(404),
		).
		On(clienttest.MethodCreate, clienttest.Status(201)).
		On(clienttest.MethodDelete, clienttest.Status(200))
	o, rec := newTestOrchestrator(t, fake)

	out := o.CreateGroup(context.Background(), NewCreateRequest("web-1", "registry/app:1"))

	assert.False(t, out.Success)
	assert.Equal(t, StateCleanedUp, out.State)
	assert.Equal(t, "creation failed (CREATE_FAILED); group 'web-1' was deleted", out.Reason)
	assert.Nil(t, out.Group)

	deletes := fake.Calls(clienttest.MethodDelete)
	require.Len(t, deletes, 1)
	assert.True(t, deletes[0].Force)

	assert.Len(t, rec.ofType(events.EventCompensationStarted), 1)
	finished := rec.ofType(events.EventCompensationFinished)
	require.Len(t, finished, 1)
	assert.Equal(t, "true", finished[0].Metadata[events.MetaSuccess])
}

func TestCreateGroup_TimeoutIsCompensated(t *testing.T) {
	fake := clienttest.New().
		On(clienttest.MethodInspect,
			clienttest.Status(404),
			clienttest.GroupStatus("web-1", "CREATE_IN_PROGRESS", 0),
		).
		On(clienttest.MethodCreate, clienttest.Status(201)).
		On(clienttest.MethodDelete, clienttest.Status(404))
	o, _ := newTestOrchestrator(t, fake)

	req := NewCreateRequest("web-1", "registry/app:1")
	req.MaxWait = 20 * time.Millisecond

	out := o.CreateGroup(context.Background(), req)

	assert.False(t, out.Success)
	assert.Equal(t, StateCleanedUp, out.State)
	assert.Contains(t, out.Reason, "Group 'web-1' creation took too long")
	assert.Contains(t, out.Reason, "group 'web-1' was deleted")
	assert.Equal(t, 1, fake.Count(clienttest.MethodDelete))
}

func TestCreateGroup_CleanupFailure(t *testing.T) {
	fake := clienttest.New().
		On(clienttest.MethodInspect,
			clienttest.Status(404),
			clienttest.GroupStatus("web-1", "CREATE_FAILED", 0),
		).
		On(clienttest.MethodCreate, clienttest.Status(201)).
		On(clienttest.MethodDelete, clienttest.Status(500))
	o, _ := newTestOrchestrator(t, fake)

	out := o.CreateGroup(context.Background(), NewCreateRequest("web-1", "registry/app:1"))

	assert.False(t, out.Success)
	assert.Equal(t, StateCleanupFailed, out.State)
	assert.Equal(t,
		"creation failed (CREATE_FAILED); cleanup failed: Unable to delete group 'web-1' after 3 attempts; manual intervention required",
		out.Reason)
	require.NotNil(t, out.Group, "last snapshot is kept for manual intervention")
	assert.Equal(t, "CREATE_FAILED", out.Group.Status)

	// 3 forced-delete rounds of 3 submission attempts each
	assert.Equal(t, 9, fake.Count(clienttest.MethodDelete))
}

func TestCreateGroup_CancelledWaitStillCompensates(t *testing.T) {
	fake := clienttest.New().
		On(clienttest.MethodInspect,
			clienttest.Status(404),
			clienttest.GroupStatus("web-1", "CREATE_IN_PROGRESS", 0),
		).
		On(clienttest.MethodCreate, clienttest.Status(201)).
		On(clienttest.MethodDelete, clienttest.Status(404))
	o, _ := newTestOrchestrator(t, fake)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	out := o.CreateGroup(ctx, NewCreateRequest("web-1", "registry/app:1"))

	assert.Equal(t, StateCleanedUp, out.State)
	assert.Contains(t, out.Reason, "wait cancelled")
	assert.Equal(t, 1, fake.Count(clienttest.MethodDelete))
}

func TestDeleteGroup_AbsentGroupSucceedsWithoutPolling(t *testing.T) {
	fake := clienttest.New().On(clienttest.MethodDelete, clienttest.Status(404))
	o, _ := newTestOrchestrator(t, fake)

	out := o.DeleteGroup(context.Background(), "web-1")

	assert.True(t, out.Success)
	assert.Equal(t, StateSucceeded, out.State)
	assert.Nil(t, out.Group)
	assert.Equal(t, 0, fake.Count(clienttest.MethodInspect))
}

func TestDeleteGroup_WaitsUntilGone(t *testing.T) {
	fake := clienttest.New().
		On(clienttest.MethodDelete, clienttest.Status(204)).
		On(clienttest.MethodInspect,
			clienttest.GroupStatus("web-1", "DELETE_IN_PROGRESS", 2),
			clienttest.GroupStatus("web-1", "DELETE_IN_PROGRESS", 1),
			clienttest.Status(404),
		)
	o, _ := newTestOrchestrator(t, fake)

	out := o.DeleteGroup(context.Background(), "web-1")

	assert.True(t, out.Success, out.Reason)
	assert.Equal(t, 3, fake.Count(clienttest.MethodInspect))
}

func TestDeleteGroup_Failures(t *testing.T) {
	t.Run("terminal failure", func(t *testing.T) {
		fake := clienttest.New().
			On(clienttest.MethodDelete, clienttest.Status(200)).
			On(clienttest.MethodInspect, clienttest.GroupStatus("web-1", "DELETE_FAILED", 2))
		o, _ := newTestOrchestrator(t, fake)

		out := o.DeleteGroup(context.Background(), "web-1")

		assert.False(t, out.Success)
		assert.Equal(t, StateFailed, out.State)
		assert.Equal(t, "delete failed (DELETE_FAILED)", out.Reason)
	})

	t.Run("submit rejected", func(t *testing.T) {
		fake := clienttest.New().On(clienttest.MethodDelete, clienttest.Status(403))
		o, _ := newTestOrchestrator(t, fake)

		out := o.DeleteGroup(context.Background(), "web-1")

		assert.Equal(t, StateFailedSubmit, out.State)
		assert.Equal(t, "Unable to initiate delete request", out.Reason)
		assert.Equal(t, 1, fake.Count(clienttest.MethodDelete), "403 is not retried")
	})
}

func TestForcedDeleteGroup_RetriesWholeDelete(t *testing.T) {
	fake := clienttest.New().
		On(clienttest.MethodDelete, clienttest.Status(200), clienttest.Status(404)).
		On(clienttest.MethodInspect, clienttest.GroupStatus("web-1", "DELETE_FAILED", 2))
	o, _ := newTestOrchestrator(t, fake)

	out := o.ForcedDeleteGroup(context.Background(), "web-1")

	assert.True(t, out.Success, out.Reason)
	assert.Equal(t, 2, fake.Count(clienttest.MethodDelete))
}

func TestForcedDeleteGroup_GivesUp(t *testing.T) {
	fake := clienttest.New().
		On(clienttest.MethodDelete, clienttest.Status(200)).
		On(clienttest.MethodInspect, clienttest.GroupStatus("web-1", "DELETE_FAILED", 2))
	o, _ := newTestOrchestrator(t, fake)

	out := o.ForcedDeleteGroup(context.Background(), "web-1")

	assert.False(t, out.Success)
	assert.Equal(t, "Unable to delete group 'web-1' after 3 attempts", out.Reason)
	assert.Equal(t, StateFailed, out.State)
	assert.Equal(t, 3, fake.Count(clienttest.MethodDelete))
}

func TestResizeGroup_MissingGroup(t *testing.T) {
	fake := clienttest.New().On(clienttest.MethodInspect, clienttest.Status(404))
	o, _ := newTestOrchestrator(t, fake)

	out := o.ResizeGroup(context.Background(), "web-1", 5)

	assert.False(t, out.Success)
	assert.Nil(t, out.Group)
	assert.Equal(t, "Cannot resize group, no group named web-1 exists. (No such group as 'web-1')", out.Reason)
	assert.Equal(t, 0, fake.Count(clienttest.MethodResize))
}

func TestResizeGroup_Succeeds(t *testing.T) {
	fake := clienttest.New().
		On(clienttest.MethodInspect,
			clienttest.GroupStatus("web-1", "CREATE_COMPLETE", 2),
			clienttest.GroupStatus("web-1", "UPDATE_IN_PROGRESS", 3),
			clienttest.GroupStatus("web-1", "UPDATE_COMPLETE", 5),
		).
		On(clienttest.MethodResize, clienttest.Status(204))
	o, _ := newTestOrchestrator(t, fake)

	out := o.ResizeGroup(context.Background(), "web-1", 5)

	require.True(t, out.Success, out.Reason)
	assert.Equal(t, 5, out.Group.NumberInstances.CurrentSize)
	resizes := fake.Calls(clienttest.MethodResize)
	require.Len(t, resizes, 1)
	assert.Equal(t, 5, resizes[0].Desired)
}

func TestResizeGroup_FailureReportsInstanceCount(t *testing.T) {
	fake := clienttest.New().
		On(clienttest.MethodInspect,
			clienttest.GroupStatus("web-1", "CREATE_COMPLETE", 2),
			clienttest.GroupStatus("web-1", "UPDATE_FAILED", 3),
		).
		On(clienttest.MethodResize, clienttest.Status(200))
	o, _ := newTestOrchestrator(t, fake)

	out := o.ResizeGroup(context.Background(), "web-1", 5)

	assert.False(t, out.Success)
	assert.Equal(t, StateFailed, out.State)
	assert.Equal(t, "resize failed (UPDATE_FAILED): web-1 has 3 instances; wanted 5", out.Reason)
}

func TestMapRoute(t *testing.T) {
	routed := func(routes ...string) clienttest.Reply {
		return clienttest.Group(types.Group{Name: "web-1", Status: "CREATE_COMPLETE", Routes: routes})
	}

	t.Run("waits for the route", func(t *testing.T) {
		fake := clienttest.New().
			On(clienttest.MethodMapRoute, clienttest.Status(200)).
			On(clienttest.MethodInspect, routed(), routed(), routed(), routed("app.example.net"))
		o, _ := newTestOrchestrator(t, fake)

		out := o.MapRoute(context.Background(), "app", "example.net", "web-1")

		require.True(t, out.Success, out.Reason)
		assert.Equal(t, 4, fake.Count(clienttest.MethodInspect))
		call := fake.Calls(clienttest.MethodMapRoute)[0]
		assert.Equal(t, "app", call.Host)
		assert.Equal(t, "example.net", call.Domain)
	})

	t.Run("submit failure", func(t *testing.T) {
		fake := clienttest.New().On(clienttest.MethodMapRoute, clienttest.Status(502))
		o, _ := newTestOrchestrator(t, fake)

		out := o.MapRoute(context.Background(), "app", "example.net", "web-1")

		assert.Equal(t, StateFailedSubmit, out.State)
		assert.Equal(t, "Unable to request routing change", out.Reason)
		assert.Equal(t, 3, fake.Count(clienttest.MethodMapRoute))
		assert.Equal(t, 0, fake.Count(clienttest.MethodInspect))
	})

	t.Run("group vanished", func(t *testing.T) {
		fake := clienttest.New().
			On(clienttest.MethodMapRoute, clienttest.Status(200)).
			On(clienttest.MethodInspect, clienttest.Status(404))
		o, _ := newTestOrchestrator(t, fake)

		out := o.MapRoute(context.Background(), "app", "example.net", "web-1")

		assert.Equal(t, StateFailed, out.State)
		assert.Equal(t, "no such group; can't map route", out.Reason)
	})
}

func TestUnmapRoute(t *testing.T) {
	fake := clienttest.New().
		On(clienttest.MethodUnmapRoute, clienttest.Status(201)).
		On(clienttest.MethodInspect,
			clienttest.Group(types.Group{Name: "web-1", Routes: []string{"app.example.net", "b.example.net"}}),
			clienttest.Group(types.Group{Name: "web-1", Routes: []string{"b.example.net"}}),
		)
	o, _ := newTestOrchestrator(t, fake)

	out := o.UnmapRoute(context.Background(), "app", "example.net", "web-1")

	require.True(t, out.Success, out.Reason)
	assert.Equal(t, []string{"b.example.net"}, out.Group.Routes)
}

func TestListGroups(t *testing.T) {
	t.Run("parsed", func(t *testing.T) {
		fake := clienttest.New().On(clienttest.MethodList,
			clienttest.Body(`[{"Name":"web-1","Status":"CREATE_COMPLETE"},{"Name":"web-2","Image":"x"}]`))
		o, _ := newTestOrchestrator(t, fake)

		groups := o.ListGroups(context.Background())

		require.Len(t, groups, 2)
		assert.Equal(t, "web-1", groups[0].Name)
		assert.Contains(t, groups[1].Extra, "Image")
	})

	t.Run("invalid json", func(t *testing.T) {
		fake := clienttest.New().On(clienttest.MethodList, clienttest.Body("oops"))
		o, _ := newTestOrchestrator(t, fake)

		groups := o.ListGroups(context.Background())

		assert.NotNil(t, groups)
		assert.Empty(t, groups)
	})

	t.Run("unreachable", func(t *testing.T) {
		fake := clienttest.New().On(clienttest.MethodList, clienttest.Error(context.DeadlineExceeded))
		o, _ := newTestOrchestrator(t, fake)

		groups := o.ListGroups(context.Background())

		assert.NotNil(t, groups)
		assert.Empty(t, groups)
		assert.Equal(t, 3, fake.Count(clienttest.MethodList))
	})
}

func TestInspectGroup(t *testing.T) {
	fake := clienttest.New().On(clienttest.MethodInspect, clienttest.Status(404))
	o, _ := newTestOrchestrator(t, fake)

	g, reason := o.InspectGroup(context.Background(), "web-1")

	assert.Nil(t, g)
	assert.Equal(t, "No such group as 'web-1'", reason)
}

func TestDeleteUpdate(t *testing.T) {
	t.Run("missing update is deleted", func(t *testing.T) {
		fake := clienttest.New().On(clienttest.MethodDeleteUpdate, clienttest.Status(404))
		o, _ := newTestOrchestrator(t, fake)

		out := o.DeleteUpdate(context.Background(), "web-1")

		assert.True(t, out.Success)
		assert.Equal(t, 0, fake.Count(clienttest.MethodInspect))
	})

	t.Run("fixed timeout", func(t *testing.T) {
		fake := clienttest.New().On(clienttest.MethodDeleteUpdate, clienttest.Status(503))
		o, _ := newTestOrchestrator(t, fake)

		out := o.DeleteUpdate(context.Background(), "web-1")

		assert.Equal(t, StateFailedSubmit, out.State)
		assert.Equal(t, "Unable to initiate delete update request", out.Reason)
		calls := fake.Calls(clienttest.MethodDeleteUpdate)
		require.Len(t, calls, 3)
		for _, c := range calls {
			assert.Equal(t, 120*time.Second, c.Timeout)
		}
	})

	t.Run("no update client", func(t *testing.T) {
		fake := clienttest.New()
		cfg := testConfig(fake)
		cfg.Updates = nil
		o, err := New(cfg)
		require.NoError(t, err)

		out := o.DeleteUpdate(context.Background(), "web-1")

		assert.Equal(t, StateRejected, out.State)
	})
}

func TestConcurrentWorkflowsOnDifferentGroups(t *testing.T) {
	fake := clienttest.New().On(clienttest.MethodDelete, clienttest.Status(404))
	o, _ := newTestOrchestrator(t, fake)

	var wg sync.WaitGroup
	for _, name := range []string{"a", "b", "c", "d"} {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			assert.True(t, o.DeleteGroup(context.Background(), name).Success)
		}(name)
	}
	wg.Wait()

	assert.Equal(t, 4, fake.Count(clienttest.MethodDelete))
}
