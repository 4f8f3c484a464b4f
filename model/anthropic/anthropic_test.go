package anthropic

import (
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/model"
)

var _ model.Model = (*Model)(nil)

func TestBuildMessages_ToolUseAndResults(t *testing.T) {
	history := []core.RunItem{
		core.MessageInput{Content: "weather in Berlin and Paris?"},
		core.ToolCall{ID: "c1", Name: "weather", Arguments: `{"city":"Berlin"}`},
		core.ToolCall{ID: "c2", Name: "weather", Arguments: `{"city":"Paris"}`},
		core.ToolOutput{CallID: "c1", Name: "weather", Result: "sunny"},
		core.ToolOutput{CallID: "c2", Name: "weather", Result: "rainy"},
		core.MessageOutput{Agent: "a", Content: "Sunny in Berlin, rainy in Paris."},
	}

	messages := buildMessages(history)
	// user, assistant(2 tool_use), user(2 tool_result), assistant
	require.Len(t, messages, 4)

	assert.Equal(t, anthropic.MessageParamRoleUser, messages[0].Role)
	assert.Equal(t, anthropic.MessageParamRoleAssistant, messages[1].Role)
	assert.Len(t, messages[1].Content, 2)
	assert.Equal(t, anthropic.MessageParamRoleUser, messages[2].Role)
	assert.Len(t, messages[2].Content, 2)
	assert.Equal(t, anthropic.MessageParamRoleAssistant, messages[3].Role)
}

func TestSystemPrompt_SchemaDirective(t *testing.T) {
	system := systemPrompt(model.Request{
		Instructions: "be terse",
		OutputSchema: &core.JSONOutput{Name: "report", Schema: map[string]any{"type": "object"}},
	})

	assert.Contains(t, system, "be terse")
	assert.Contains(t, system, `"report"`)
}

func TestBuildTools_RequiredVariants(t *testing.T) {
	tools := buildTools([]model.ToolDefinition{
		{
			Name: "search",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{"q": map[string]any{"type": "string"}},
				"required":   []any{"q"},
			},
		},
	})

	require.Len(t, tools, 1)
	require.NotNil(t, tools[0].OfTool)
	assert.Equal(t, []string{"q"}, tools[0].OfTool.InputSchema.Required)
}
