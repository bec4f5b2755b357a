/*
Package journal keeps an append-only audit trail of workflow outcomes in a
local BoltDB file.

A Recorder subscribes to the event broker and stores one Entry per
operation.finished event: the operation, group name, final state, reason
and duration. Snapshots of groups are never stored and nothing in the
orchestrator reads the journal back; the remote API stays the only source of
truth. `groupctl history` is the only reader.

Entries live in a single "outcomes" bucket keyed by UUIDv7, so a reverse
cursor walk yields newest first without an index.
*/
package journal
