// Package poll waits for a group to reach a terminal state by inspecting it
// at a fixed interval and asking an evaluator for a verdict. Waits are
// bounded by Policy.MaxWait and by the caller's context.
package poll
