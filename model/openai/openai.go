// Package openai provides an implementation of model.Model using the OpenAI
// Chat Completions API (including function/tool calling). It adapts the
// normalized Request/Response structures into the SDK's message format and
// back, surfacing calls to the reserved transfer function as handoffs.
package openai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/model"
)

// Options configure the OpenAI model adapter.
// Fields mirror a subset of Chat Completion parameters intentionally kept
// minimal; extend via functional options without breaking callers.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
}

// Model wraps the OpenAI Chat Completions API behind the generic model.Model interface.
type Model struct {
	client *openai.Client
	opts   Options
}

// NewModel creates a new OpenAI model using the official client
func NewModel(optFns ...func(o *Options)) *Model {
	client := openai.NewClient()
	return NewModelFromClient(&client, optFns...)
}

// NewModelFromClient creates a new OpenAI model from an existing client
func NewModelFromClient(client *openai.Client, optFns ...func(o *Options)) *Model {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Model{client: client, opts: opts}
}

// Generate implements model.Model via a non-streaming Chat Completions call.
func (m *Model) Generate(ctx context.Context, req model.Request) (*model.Response, error) {
	params := openai.ChatCompletionNewParams{
		Messages:            buildMessages(req),
		Model:               m.opts.Model,
		Temperature:         openai.Float(m.opts.Temperature),
		MaxCompletionTokens: openai.Int(m.opts.MaxCompletionTokens),
	}

	if len(req.Tools) > 0 {
		tools := make([]openai.ChatCompletionToolParam, len(req.Tools))
		for i, tdef := range req.Tools {
			tools[i] = openai.ChatCompletionToolParam{
				Type: "function",
				Function: openai.FunctionDefinitionParam{
					Name:        tdef.Name,
					Description: openai.String(tdef.Description),
					Parameters:  tdef.Parameters,
				},
			}
		}
		params.Tools = tools
	}

	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices returned")
	}

	out, err := convertChoice(resp.Choices[0])
	if err != nil {
		return nil, err
	}

	out.Usage = &model.TokenUsage{
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:      int(resp.Usage.TotalTokens),
	}

	return out, nil
}

// buildMessages converts normalized history items into OpenAI chat messages.
// Consecutive tool call items collapse into a single assistant message with
// tool_calls; tool outputs follow as tool role messages keyed by call id.
func buildMessages(req model.Request) []openai.ChatCompletionMessageParamUnion {
	var messages []openai.ChatCompletionMessageParamUnion

	if system := systemPrompt(req); system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}

	var pendingCalls []openai.ChatCompletionMessageToolCallParam
	flushCalls := func() {
		if len(pendingCalls) == 0 {
			return
		}
		messages = append(messages, openai.ChatCompletionMessageParamUnion{
			OfAssistant: &openai.ChatCompletionAssistantMessageParam{
				Role:      "assistant",
				ToolCalls: pendingCalls,
			},
		})
		pendingCalls = nil
	}

	for _, item := range req.History {
		switch it := item.(type) {
		case core.MessageInput:
			flushCalls()
			messages = append(messages, openai.UserMessage(it.Content))
		case core.MessageOutput:
			flushCalls()
			messages = append(messages, openai.AssistantMessage(it.Content))
		case core.ToolCall:
			pendingCalls = append(pendingCalls, openai.ChatCompletionMessageToolCallParam{
				ID:   it.ID,
				Type: "function",
				Function: openai.ChatCompletionMessageToolCallFunctionParam{
					Name:      it.Name,
					Arguments: it.Arguments,
				},
			})
		case core.ToolOutput:
			flushCalls()
			messages = append(messages, openai.ToolMessage(toolOutputText(it), it.CallID))
		}
	}
	flushCalls()

	return messages
}

// systemPrompt combines the agent instructions with an output schema
// directive when structured output was requested.
func systemPrompt(req model.Request) string {
	system := req.Instructions
	if req.OutputSchema == nil {
		return system
	}

	schema, err := json.Marshal(req.OutputSchema.Schema)
	if err != nil {
		return system
	}

	directive := fmt.Sprintf(
		"Respond with a single JSON object named %q conforming to this JSON schema:\n%s",
		req.OutputSchema.Name, schema,
	)
	if system == "" {
		return directive
	}
	return system + "\n\n" + directive
}

// toolOutputText renders a settled tool result as the text payload of a tool
// role message.
func toolOutputText(out core.ToolOutput) string {
	if out.Failed() {
		return fmt.Sprintf("error: %s", out.Error)
	}
	if s, ok := out.Result.(string); ok {
		return s
	}
	raw, err := json.Marshal(out.Result)
	if err != nil {
		return fmt.Sprintf("%v", out.Result)
	}
	return string(raw)
}

// convertChoice classifies a completion choice into message, tool calls or
// handoff. A call to the reserved transfer function becomes a handoff and is
// never surfaced as a tool call.
func convertChoice(choice openai.ChatCompletionChoice) (*model.Response, error) {
	out := &model.Response{Message: choice.Message.Content}

	for _, tc := range choice.Message.ToolCalls {
		if tc.Function.Name == model.TransferToolName {
			handoff, err := model.ParseTransferArguments(tc.Function.Arguments)
			if err != nil {
				return nil, err
			}
			out.Handoff = handoff
			continue
		}
		out.ToolCalls = append(out.ToolCalls, core.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	return out, nil
}

// Info returns metadata describing this OpenAI model implementation.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:          m.opts.Model,
		Provider:      "openai",
		SupportsTools: true,
	}
}
