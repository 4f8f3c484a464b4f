// Package tracing implements the span/trace model for agent runs: a nested
// tree of timed operations (model calls, tool executions, handoffs,
// guardrail evaluations) under a single root agent span. Spans close exactly
// once; traces export even when the run fails so partial executions remain
// diagnosable. The Provider is caller-owned and passed explicitly — there is
// no process-wide trace state.
package tracing
