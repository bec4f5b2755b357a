/*
Package evaluate holds the decision rules that end a poll loop.

Each Evaluator looks at the latest group snapshot (or the reason it could
not be fetched) and returns a Verdict: keep waiting, done, or failed with a
reason. Status strings follow the groups API suffix convention:

	*_COMPLETE      success
	*IN_PROGRESS    keep waiting
	""              not reported yet, keep waiting
	anything else   failure, reason is the status itself

Route evaluators ignore status and look only at the Routes list.

Evaluators hold no state and never panic on a nil group, so one value can be
shared across concurrent waits.
*/
package evaluate
