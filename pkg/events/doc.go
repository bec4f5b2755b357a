/*
Package events provides an in-memory event broker for workflow notifications.

The orchestrator publishes one event per notable step of a workflow: a
submission accepted or rejected by the API, the end of a wait, the start and
end of a compensating delete, and the final outcome of the operation.
Subscribers such as the audit journal consume them asynchronously, so a slow
consumer never delays a workflow.

	Orchestrator ──Publish──▶ eventCh (100) ──▶ broadcast ──▶ Subscriber (50)
	                                                     └──▶ Subscriber (50)

# Event Types

	submit.accepted         API accepted a create/delete/resize/route request
	submit.failed           submission gave up after retries
	wait.finished           a poll loop ended (success, failure or timeout)
	compensation.started    create failed, forced delete begins
	compensation.finished   forced delete ended
	operation.finished      a public operation returned; carries the outcome

Metadata keys are listed as Meta* constants. operation.finished always
carries op_id, success, state, reason and duration.

# Delivery

Delivery is best effort. A subscriber whose buffer is full misses the event.
Stop delivers what is already buffered and then closes every subscriber
channel, so a consumer ranging over its channel terminates cleanly.

Components that do not need events take a Publisher and default to Discard.

# Usage

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	go func() {
		for ev := range sub {
			fmt.Println(ev.Type, ev.Group)
		}
	}()
*/
package events
