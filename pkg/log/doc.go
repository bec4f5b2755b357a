/*
Package log provides structured logging for groupctl using zerolog.

The package owns the process logger (configured once by the CLI through Init)
and hands out component loggers. Core packages (retry, poll, orchestrator)
never write to the process logger directly: they receive a zerolog.Logger in
their constructor, and only fall back to WithComponent when the caller passed
the zero value. Tests inject zerolog.New(&buf) to capture what a workflow
logged.

# Usage

	log.Init(log.Config{
		Level:      log.DebugLevel,
		JSONOutput: false,
		Output:     os.Stderr,
	})

	orch := orchestrator.New(c, orchestrator.Options{
		Logger: log.WithComponent("orchestrator"),
	})

# Fields

	component    package emitting the line (retry, poll, orchestrator, client)
	group        group name the line is about
	operation    workflow name (create, delete, resize, map, unmap, ...)
	op_id        per-invocation UUID, shared with events and the journal
	attempt      retry attempt number (1-based)
	status_code  HTTP status observed by an attempt
	elapsed      time spent waiting so far

Console output is the default; --json-logs switches to one JSON object per
line for log shipping.
*/
package log
