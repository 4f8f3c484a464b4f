// Package agentloop provides a high-level façade over the runner, agent and
// service abstractions (sessions, tracing & logging) enabling rapid
// construction of LLM agent applications. Most applications interact with
// this package by:
//  1. Building one or more agents (model, instructions, tools, guardrails, handoffs)
//  2. Calling Run for a one-shot conversation, or constructing a
//     runner.Runner directly to reuse a session across runs
//
// All defaults are safe for local development and testing; production
// deployments typically supply a durable session, a trace exporter and a
// structured logger through runner options.
package agentloop

import (
	"context"

	"github.com/hupe1980/agentloop/agent"
	"github.com/hupe1980/agentloop/runner"
)

// Run executes a single run of the turn loop for the given agent and user
// message, using an ephemeral in-memory session unless one is supplied via
// options. For multi-run conversations construct a runner.Runner and reuse
// it.
func Run(
	ctx context.Context,
	a *agent.Agent,
	input string,
	optFns ...func(o *runner.Options),
) (*runner.RunResult, error) {
	return runner.New(a, optFns...).Run(ctx, input)
}
