// Package agent defines the immutable agent configuration consumed by the
// turn loop: a name, a model, instructions (static or dynamic), tools,
// guardrails per phase, allowed handoff targets and the expected output
// shape. Agents carry no run state; the same agent can serve many runs
// concurrently.
package agent

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/guardrail"
	"github.com/hupe1980/agentloop/internal/util"
	"github.com/hupe1980/agentloop/model"
	"github.com/hupe1980/agentloop/tool"
)

// Options configures an Agent instance.
//
// Use functional options with New to override defaults.
type Options struct {
	Instructions         Instruction
	Tools                []tool.Tool
	OutputType           core.OutputType
	InputGuardrails      []guardrail.InputGuardrail
	OutputGuardrails     []guardrail.OutputGuardrail
	ToolOutputGuardrails []guardrail.ToolOutputGuardrail
	Handoffs             []*Agent
}

// Agent is an immutable bundle of model, instructions, tools, guardrails and
// handoff targets. Construct with New; configuration cannot change after
// construction.
type Agent struct {
	name                 string
	model                model.Model
	instructions         Instruction
	tools                []tool.Tool
	toolIndex            map[string]tool.Tool
	outputType           core.OutputType
	inputGuardrails      []guardrail.InputGuardrail
	outputGuardrails     []guardrail.OutputGuardrail
	toolOutputGuardrails []guardrail.ToolOutputGuardrail
	handoffs             []*Agent
	handoffIndex         map[string]*Agent
}

// New creates an agent with sensible defaults: a generic assistant
// instruction, free-form text output, no tools, no guardrails, no handoffs.
func New(name string, m model.Model, optFns ...func(o *Options)) *Agent {
	opts := Options{
		Instructions: NewInstructionFromText(fmt.Sprintf("You are %s, a helpful AI assistant.", name)),
		OutputType:   core.TextOutput{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	toolIndex := make(map[string]tool.Tool, len(opts.Tools))
	for _, t := range opts.Tools {
		toolIndex[t.Name()] = t
	}

	handoffIndex := make(map[string]*Agent, len(opts.Handoffs))
	for _, h := range opts.Handoffs {
		if h != nil {
			handoffIndex[h.name] = h
		}
	}

	return &Agent{
		name:                 name,
		model:                m,
		instructions:         opts.Instructions,
		tools:                opts.Tools,
		toolIndex:            toolIndex,
		outputType:           opts.OutputType,
		inputGuardrails:      opts.InputGuardrails,
		outputGuardrails:     opts.OutputGuardrails,
		toolOutputGuardrails: opts.ToolOutputGuardrails,
		handoffs:             opts.Handoffs,
		handoffIndex:         handoffIndex,
	}
}

// Validate checks the configuration and returns a *core.ConfigurationError
// describing the first problem found. The turn loop calls it before the
// first model call.
func (a *Agent) Validate() error {
	if a.name == "" {
		return &core.ConfigurationError{Field: "name", Reason: "must not be empty"}
	}
	if a.model == nil {
		return &core.ConfigurationError{Field: "model", Reason: "must not be nil"}
	}

	seen := make(map[string]bool, len(a.tools))
	for _, t := range a.tools {
		name := t.Name()
		if name == "" {
			return &core.ConfigurationError{Field: "tools", Reason: "tool with empty name"}
		}
		if name == model.TransferToolName {
			return &core.ConfigurationError{
				Field:  "tools",
				Reason: fmt.Sprintf("%q is reserved for handoffs", model.TransferToolName),
			}
		}
		if seen[name] {
			return &core.ConfigurationError{
				Field:  "tools",
				Reason: fmt.Sprintf("duplicate tool name %q", name),
			}
		}
		seen[name] = true
	}

	targets := make(map[string]bool, len(a.handoffs))
	for _, h := range a.handoffs {
		if h == nil {
			return &core.ConfigurationError{Field: "handoffs", Reason: "nil handoff target"}
		}
		if h.name == a.name {
			return &core.ConfigurationError{Field: "handoffs", Reason: "agent cannot hand off to itself"}
		}
		if targets[h.name] {
			return &core.ConfigurationError{
				Field:  "handoffs",
				Reason: fmt.Sprintf("duplicate handoff target %q", h.name),
			}
		}
		targets[h.name] = true
	}

	return nil
}

// Name returns the agent's display name.
func (a *Agent) Name() string { return a.name }

// Model returns the language model instance.
func (a *Agent) Model() model.Model { return a.model }

// OutputType returns the expected shape of the agent's final output.
func (a *Agent) OutputType() core.OutputType { return a.outputType }

// Tools returns the agent's tools in registration order.
func (a *Agent) Tools() []tool.Tool {
	tools := make([]tool.Tool, len(a.tools))
	copy(tools, a.tools)
	return tools
}

// Tool retrieves a tool by name.
func (a *Agent) Tool(name string) (tool.Tool, bool) {
	t, ok := a.toolIndex[name]
	return t, ok
}

// InputGuardrails returns the input-phase guardrails in declared order.
func (a *Agent) InputGuardrails() []guardrail.InputGuardrail {
	out := make([]guardrail.InputGuardrail, len(a.inputGuardrails))
	copy(out, a.inputGuardrails)
	return out
}

// OutputGuardrails returns the output-phase guardrails in declared order.
func (a *Agent) OutputGuardrails() []guardrail.OutputGuardrail {
	out := make([]guardrail.OutputGuardrail, len(a.outputGuardrails))
	copy(out, a.outputGuardrails)
	return out
}

// ToolOutputGuardrails returns the tool-output-phase guardrails in declared order.
func (a *Agent) ToolOutputGuardrails() []guardrail.ToolOutputGuardrail {
	out := make([]guardrail.ToolOutputGuardrail, len(a.toolOutputGuardrails))
	copy(out, a.toolOutputGuardrails)
	return out
}

// Handoffs returns the allowed handoff targets.
func (a *Agent) Handoffs() []*Agent {
	out := make([]*Agent, len(a.handoffs))
	copy(out, a.handoffs)
	return out
}

// Handoff resolves a handoff target by name.
func (a *Agent) Handoff(name string) (*Agent, bool) {
	h, ok := a.handoffIndex[name]
	return h, ok
}

// HandoffNames returns the names of all allowed handoff targets.
func (a *Agent) HandoffNames() []string {
	names := make([]string, 0, len(a.handoffs))
	for _, h := range a.handoffs {
		names = append(names, h.name)
	}
	return names
}

// ResolveInstructions produces the final system prompt by resolving static
// or dynamic instruction sources and rendering template markers with the
// agent's name.
func (a *Agent) ResolveInstructions(ctx context.Context) (string, error) {
	text, err := a.instructions.Resolve(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to resolve instructions for %s: %w", a.name, err)
	}

	return util.RenderTemplate(text, map[string]any{"agent": a.name})
}

// ToolDefinitions exposes the agent's tools, plus the reserved transfer
// function when handoff targets exist, in the declarative form sent to
// models.
func (a *Agent) ToolDefinitions() []model.ToolDefinition {
	defs := make([]model.ToolDefinition, 0, len(a.tools)+1)
	for _, t := range a.tools {
		defs = append(defs, model.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}

	if len(a.handoffs) > 0 {
		defs = append(defs, model.TransferToolDefinition(a.HandoffNames()))
	}

	return defs
}
