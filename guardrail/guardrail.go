// Package guardrail implements sequential, short-circuiting evaluation of
// input, output and tool-output policies. The first tripped guardrail in a
// phase halts the phase and surfaces a typed tripwire failure carrying the
// guardrail's name and metadata; later guardrails of that phase never run.
package guardrail

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentloop/core"
)

// Phase names the evaluation point of a guardrail.
type Phase string

const (
	// PhaseInput runs before any model call of a run.
	PhaseInput Phase = "input"
	// PhaseOutput runs on the final message of a run.
	PhaseOutput Phase = "output"
	// PhaseToolOutput runs on each settled tool call result.
	PhaseToolOutput Phase = "tool_output"
)

// Result is the verdict of a single guardrail evaluation. A tripped result
// is terminal for its phase.
type Result struct {
	Tripped  bool
	Reason   string
	Metadata map[string]any
}

// Trip is a convenience constructor for a tripped Result.
func Trip(reason string, metadata map[string]any) Result {
	return Result{Tripped: true, Reason: reason, Metadata: metadata}
}

// Pass is a convenience constructor for a passing Result.
func Pass() Result { return Result{} }

// InputGuardrail checks the pending user input before the model runs.
type InputGuardrail struct {
	Name  string
	Check func(ctx context.Context, input []core.RunItem) (Result, error)
}

// OutputGuardrail checks the final message before it is persisted.
type OutputGuardrail struct {
	Name  string
	Check func(ctx context.Context, output string) (Result, error)
}

// ToolOutputGuardrail checks one settled tool call result.
type ToolOutputGuardrail struct {
	Name  string
	Check func(ctx context.Context, output core.ToolOutput) (Result, error)
}

// TripwireError is the typed, non-retried failure raised when a guardrail
// trips. It is fatal to the run.
type TripwireError struct {
	Phase     Phase
	Guardrail string
	Reason    string
	Metadata  map[string]any
}

func (e *TripwireError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s guardrail %q tripped: %s", e.Phase, e.Guardrail, e.Reason)
	}
	return fmt.Sprintf("%s guardrail %q tripped", e.Phase, e.Guardrail)
}
