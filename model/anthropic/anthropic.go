// Package anthropic provides a model wrapper for the Anthropic Claude API.
// It adapts normalized history items into the Messages API format and
// classifies responses into message, tool calls or handoff.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"

	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/model"
)

// Options configures the Anthropic model adapter (temperature, model id,
// max tokens, API key). Extend via functional options to preserve stability.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Model wraps the Anthropic Messages API behind the generic model.Model interface.
type Model struct {
	client *anthropic.Client
	opts   Options
}

// NewModel creates a new Anthropic model using the official client
func NewModel(optFns ...func(o *Options)) *Model {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	client := anthropic.NewClient(clientOpts...)

	return &Model{
		client: &client,
		opts:   opts,
	}
}

// NewModelFromClient creates a new Anthropic model from an existing client
func NewModelFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Model {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Model{
		client: client,
		opts:   opts,
	}
}

// Generate implements model.Model via a non-streaming Messages API call.
func (m *Model) Generate(ctx context.Context, req model.Request) (*model.Response, error) {
	params := anthropic.MessageNewParams{
		Model:       m.opts.Model,
		Messages:    buildMessages(req.History),
		MaxTokens:   m.opts.MaxTokens,
		Temperature: anthropic.Float(m.opts.Temperature),
	}

	if system := systemPrompt(req); system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	if len(req.Tools) > 0 {
		params.Tools = buildTools(req.Tools)
	}

	resp, err := m.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic api error: %w", err)
	}

	return convertMessage(resp)
}

// buildMessages converts normalized history items to Anthropic message
// params. Consecutive tool calls collapse into one assistant message of
// tool_use blocks; tool outputs become tool_result blocks in a user message.
func buildMessages(history []core.RunItem) []anthropic.MessageParam {
	var messages []anthropic.MessageParam

	var pendingCalls []anthropic.ContentBlockParamUnion
	flushCalls := func() {
		if len(pendingCalls) == 0 {
			return
		}
		messages = append(messages, anthropic.NewAssistantMessage(pendingCalls...))
		pendingCalls = nil
	}

	var pendingResults []anthropic.ContentBlockParamUnion
	flushResults := func() {
		if len(pendingResults) == 0 {
			return
		}
		messages = append(messages, anthropic.NewUserMessage(pendingResults...))
		pendingResults = nil
	}

	for _, item := range history {
		switch it := item.(type) {
		case core.MessageInput:
			flushCalls()
			flushResults()
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(it.Content)))
		case core.MessageOutput:
			flushCalls()
			flushResults()
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(it.Content)))
		case core.ToolCall:
			flushResults()
			var input any
			if it.Arguments != "" {
				if err := json.Unmarshal([]byte(it.Arguments), &input); err != nil {
					input = it.Arguments
				}
			}
			pendingCalls = append(pendingCalls, anthropic.NewToolUseBlock(it.ID, input, it.Name))
		case core.ToolOutput:
			flushCalls()
			pendingResults = append(pendingResults, anthropic.NewToolResultBlock(it.CallID, toolOutputText(it), it.Failed()))
		}
	}
	flushCalls()
	flushResults()

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

func toolOutputText(out core.ToolOutput) string {
	if out.Failed() {
		return out.Error
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

// buildTools converts normalized tool definitions to Anthropic tool format
func buildTools(tools []model.ToolDefinition) []anthropic.ToolUnionParam {
	anthropicTools := make([]anthropic.ToolUnionParam, len(tools))

	for i, tool := range tools {
		inputSchema := anthropic.ToolInputSchemaParam{
			Type: constant.Object("object"),
		}

		if tool.Parameters != nil {
			if properties, exists := tool.Parameters["properties"]; exists {
				inputSchema.Properties = properties
			}
			if required, exists := tool.Parameters["required"]; exists {
				switch req := required.(type) {
				case []string:
					inputSchema.Required = req
				case []any:
					var reqStrings []string
					for _, r := range req {
						if s, ok := r.(string); ok {
							reqStrings = append(reqStrings, s)
						}
					}
					inputSchema.Required = reqStrings
				}
			}
		}

		anthropicTools[i] = anthropic.ToolUnionParamOfTool(inputSchema, tool.Name)
	}

	return anthropicTools
}

// convertMessage classifies a Messages API response into message, tool calls
// or handoff. A tool_use of the reserved transfer function becomes a handoff.
func convertMessage(resp *anthropic.Message) (*model.Response, error) {
	out := &model.Response{}

	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			textBlock := block.AsText()
			out.Message += textBlock.Text
		case "tool_use":
			toolBlock := block.AsToolUse()
			args := ""
			if toolBlock.Input != nil {
				if argsBytes, err := json.Marshal(toolBlock.Input); err == nil {
					args = string(argsBytes)
				}
			}
			if toolBlock.Name == model.TransferToolName {
				handoff, err := model.ParseTransferArguments(args)
				if err != nil {
					return nil, err
				}
				out.Handoff = handoff
				continue
			}
			out.ToolCalls = append(out.ToolCalls, core.ToolCall{
				ID:        toolBlock.ID,
				Name:      toolBlock.Name,
				Arguments: args,
			})
		}
	}

	out.Usage = &model.TokenUsage{
		PromptTokens:     int(resp.Usage.InputTokens),
		CompletionTokens: int(resp.Usage.OutputTokens),
		TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
	}

	return out, nil
}

// Info returns metadata describing this Anthropic model implementation.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:          string(m.opts.Model),
		Provider:      "anthropic",
		SupportsTools: true,
	}
}
