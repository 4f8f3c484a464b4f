package core

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// ItemKind is the stable wire discriminator naming a concrete RunItem
// variant. Persistence and interop layers must preserve it for round-trip
// correctness.
type ItemKind string

const (
	// KindMessageInput marks a user-authored message.
	KindMessageInput ItemKind = "message_input"
	// KindMessageOutput marks an agent-authored message.
	KindMessageOutput ItemKind = "message_output"
	// KindToolCall marks a model-requested tool invocation.
	KindToolCall ItemKind = "tool_call"
	// KindToolOutput marks the settled result of a tool invocation.
	KindToolOutput ItemKind = "tool_output"
)

// RunItem is one unit of conversation/execution history. Concrete item types
// implement the unexported isRunItem marker enabling a closed set; every
// variant is valid as input to a subsequent turn.
type RunItem interface {
	isRunItem()

	// Kind returns the wire discriminator for the concrete variant.
	Kind() ItemKind
}

// MessageInput is a user-authored message entering the run.
type MessageInput struct {
	Content string `json:"content"`
}

func (MessageInput) isRunItem() {}

// Kind implements RunItem.
func (MessageInput) Kind() ItemKind { return KindMessageInput }

// MessageOutput is an agent-authored message. Agent records which agent
// definition produced it (relevant after handoffs).
type MessageOutput struct {
	Agent   string `json:"agent,omitempty"`
	Content string `json:"content"`
}

func (MessageOutput) isRunItem() {}

// Kind implements RunItem.
func (MessageOutput) Kind() ItemKind { return KindMessageOutput }

// ToolCall is a model-requested invocation of a named tool with serialized
// JSON arguments.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments,omitempty"`
}

func (ToolCall) isRunItem() {}

// Kind implements RunItem.
func (ToolCall) Kind() ItemKind { return KindToolCall }

// ToolOutput is the settled result (or error) of a previously issued
// ToolCall. CallID matches the originating call's ID.
type ToolOutput struct {
	CallID string `json:"call_id"`
	Name   string `json:"name"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

func (ToolOutput) isRunItem() {}

// Kind implements RunItem.
func (ToolOutput) Kind() ItemKind { return KindToolOutput }

// Failed reports whether the tool call settled with an error.
func (t ToolOutput) Failed() bool { return t.Error != "" }

// NewID generates a new unique identifier used for items, calls, spans and
// traces throughout the framework.
func NewID() string { return uuid.NewString() }

// MarshalItem encodes a RunItem as a flat JSON object carrying the variant
// discriminator under "type".
func MarshalItem(item RunItem) ([]byte, error) {
	if item == nil {
		return nil, fmt.Errorf("cannot marshal nil run item")
	}

	raw, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s item: %w", item.Kind(), err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}

	kind, err := json.Marshal(item.Kind())
	if err != nil {
		return nil, err
	}
	fields["type"] = kind

	return json.Marshal(fields)
}

// UnmarshalItem decodes a single RunItem from its envelope form, dispatching
// on the "type" discriminator. Unknown discriminators are an error, never a
// silent skip.
func UnmarshalItem(data []byte) (RunItem, error) {
	var probe struct {
		Type ItemKind `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("failed to probe run item type: %w", err)
	}

	switch probe.Type {
	case KindMessageInput:
		var item MessageInput
		if err := json.Unmarshal(data, &item); err != nil {
			return nil, err
		}
		return item, nil
	case KindMessageOutput:
		var item MessageOutput
		if err := json.Unmarshal(data, &item); err != nil {
			return nil, err
		}
		return item, nil
	case KindToolCall:
		var item ToolCall
		if err := json.Unmarshal(data, &item); err != nil {
			return nil, err
		}
		return item, nil
	case KindToolOutput:
		var item ToolOutput
		if err := json.Unmarshal(data, &item); err != nil {
			return nil, err
		}
		return item, nil
	default:
		return nil, fmt.Errorf("unknown run item type %q", probe.Type)
	}
}

// MarshalItems encodes an ordered item slice as a JSON array of envelopes.
func MarshalItems(items []RunItem) ([]byte, error) {
	raws := make([]json.RawMessage, len(items))
	for i, item := range items {
		raw, err := MarshalItem(item)
		if err != nil {
			return nil, err
		}
		raws[i] = raw
	}
	return json.Marshal(raws)
}

// UnmarshalItems decodes a JSON array of envelopes preserving order.
func UnmarshalItems(data []byte) ([]RunItem, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run item list: %w", err)
	}

	items := make([]RunItem, len(raws))
	for i, raw := range raws {
		item, err := UnmarshalItem(raw)
		if err != nil {
			return nil, err
		}
		items[i] = item
	}
	return items, nil
}
