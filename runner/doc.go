// Package runner implements the agent turn loop. A Runner owns one starting
// agent plus its run configuration (turn ceiling, tool parallelism, session,
// tracing, toolsets) and drives runs to completion: each turn reads session
// history, calls the model, then either dispatches tool calls in parallel,
// hands control to another agent, or finishes with a guarded final output.
// Every run records a trace that is exported even when the run fails.
package runner
