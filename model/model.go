package model

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hupe1980/agentloop/core"
)

// ToolDefinition declaratively exposes a callable function to the model.
// Parameters is a JSON Schema object (draft agnostic, minimal subset
// expected).
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request captures the normalized model input produced by the turn loop.
// History carries the full conversation items in insertion order; adapters
// convert them to provider messages.
type Request struct {
	Instructions string           `json:"instructions"`
	History      []core.RunItem   `json:"history"`
	Tools        []ToolDefinition `json:"tools,omitempty"`

	// OutputSchema, when non-nil, asks the model to produce a final message
	// conforming to the given JSON schema instead of free-form text.
	OutputSchema *core.JSONOutput `json:"output_schema,omitempty"`
}

// HandoffRequest is the model's decision to transfer control to another
// agent. Adapters surface it when the model invokes the reserved transfer
// function.
type HandoffRequest struct {
	Target string `json:"target"`
	Reason string `json:"reason,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the settled result of one model turn. Exactly one of the
// following shapes is expected: Handoff set (transfer control), ToolCalls
// non-empty (invoke tools), or Message set (final output). Handoff takes
// precedence when multiple are present.
type Response struct {
	Message   string          `json:"message,omitempty"`
	ToolCalls []core.ToolCall `json:"tool_calls,omitempty"`
	Handoff   *HandoffRequest `json:"handoff,omitempty"`
	Usage     *TokenUsage     `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "mock", etc.
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required by the turn loop to drive
// generation. Implementations must be safe for concurrent use.
type Model interface {
	// Generate performs one synchronous model call.
	Generate(ctx context.Context, req Request) (*Response, error)

	// Info returns information about the model implementation.
	Info() Info
}

// TransferToolName is the reserved function name through which models
// request a handoff. Adapters intercept calls to it and surface them as
// Response.Handoff instead of core.ToolCall items.
const TransferToolName = "transfer_to_agent"

// TransferToolDefinition builds the reserved transfer function definition
// restricted to the given target agent names.
func TransferToolDefinition(targets []string) ToolDefinition {
	enum := make([]any, len(targets))
	for i, t := range targets {
		enum[i] = t
	}

	return ToolDefinition{
		Name:        TransferToolName,
		Description: "Transfer the conversation to another agent better suited to handle the request.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"target": map[string]any{
					"type":        "string",
					"description": "Name of the agent to transfer to.",
					"enum":        enum,
				},
				"reason": map[string]any{
					"type":        "string",
					"description": "Short reason for the transfer.",
				},
			},
			"required": []any{"target"},
		},
	}
}

// ParseTransferArguments decodes the reserved transfer function's arguments
// into a HandoffRequest.
func ParseTransferArguments(arguments string) (*HandoffRequest, error) {
	var req HandoffRequest
	if arguments != "" {
		if err := json.Unmarshal([]byte(arguments), &req); err != nil {
			return nil, fmt.Errorf("failed to parse transfer arguments: %w", err)
		}
	}
	if req.Target == "" {
		return nil, fmt.Errorf("transfer arguments missing target")
	}
	return &req, nil
}
