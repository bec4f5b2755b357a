/*
Package orchestrator implements the group lifecycle workflows.

Every workflow has the same shape: optionally check the current state,
submit the request through the retry executor, then wait on the poll engine
with the evaluator for that activity. The result is always an Outcome;
workflows never return errors or panic into the caller.

# Workflows

	CreateGroup        pre-check, submit {200,201}, wait for creation;
	                   roll back with a forced delete on failure or timeout
	DeleteGroup        submit a forced delete {200,201,204,404}; 404 ends
	                   at once, anything else waits for deletion
	ForcedDeleteGroup  DeleteGroup up to three times, five seconds apart
	ResizeGroup        pre-check, submit, wait; a failure reports how many
	                   instances the group really has
	MapRoute           submit, wait until the route is listed
	UnmapRoute         submit, wait until the route is gone
	DeleteUpdate       one deploy API delete {200,201,404}, no wait
	ListGroups         all groups, empty on any failure
	InspectGroup       one snapshot plus a reason when there is none

# States

Each Outcome carries the state the workflow ended in:

	rejected        a pre-check or validation refused the request
	failed_submit   the API never accepted the request
	succeeded
	failed          the group reached a failed status
	timed_out       the wait budget ran out; the remote side may still finish
	cleaned_up      a failed create was rolled back
	cleanup_failed  the rollback failed too; manual intervention is required

Compensation runs detached from the caller's cancellation. An interrupted
create still deletes what it started.

# Observability

Each workflow gets an operation id (UUID), a span named after the operation,
and a child logger carrying op_id and group. Progress is published as
events; the operation.finished event carries the outcome and is what the
journal records.

	o, err := orchestrator.New(orchestrator.DefaultConfig(c))
	if err != nil {
		return err
	}
	out := o.CreateGroup(ctx, orchestrator.NewCreateRequest("web", "registry.example.net/web:1"))
	if !out.Success {
		fmt.Println(out.State, out.Reason)
	}

Workflows share no mutable state, so one Orchestrator may run any number of
them concurrently.
*/
package orchestrator
