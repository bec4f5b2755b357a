/*
Package retry submits API calls with bounded retries.

An Executor runs a Call until the response status is in the policy's
acceptable set, at most MaxAttempts times, sleeping Delay between attempts.
With doubling backoff the per-attempt timeout doubles after each failure;
with fixed backoff it stays put.

Not everything is retried. Client errors (4xx other than 408, 409 and 429)
and permanent errors end the loop at once, as does a panic inside the call.
Transport failures and server errors are retried.

	p := retry.DefaultPolicy().WithStatuses(200, 201)
	ok, resp := retry.NewExecutor(nil).Do(ctx, "create", p, call)
*/
package retry
