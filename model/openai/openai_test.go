package openai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/model"
)

var _ model.Model = (*Model)(nil)

func TestBuildMessages_GroupsToolCalls(t *testing.T) {
	req := model.Request{
		Instructions: "be helpful",
		History: []core.RunItem{
			core.MessageInput{Content: "weather in Berlin and Paris?"},
			core.ToolCall{ID: "c1", Name: "weather", Arguments: `{"city":"Berlin"}`},
			core.ToolCall{ID: "c2", Name: "weather", Arguments: `{"city":"Paris"}`},
			core.ToolOutput{CallID: "c1", Name: "weather", Result: "sunny"},
			core.ToolOutput{CallID: "c2", Name: "weather", Result: "rainy"},
			core.MessageOutput{Agent: "a", Content: "Sunny in Berlin, rainy in Paris."},
		},
	}

	messages := buildMessages(req)
	require.Len(t, messages, 6) // system, user, assistant(tool_calls), tool, tool, assistant

	require.NotNil(t, messages[0].OfSystem)
	require.NotNil(t, messages[1].OfUser)

	assistant := messages[2].OfAssistant
	require.NotNil(t, assistant)
	require.Len(t, assistant.ToolCalls, 2)
	assert.Equal(t, "c1", assistant.ToolCalls[0].ID)
	assert.Equal(t, "c2", assistant.ToolCalls[1].ID)

	require.NotNil(t, messages[3].OfTool)
	require.NotNil(t, messages[4].OfTool)
	require.NotNil(t, messages[5].OfAssistant)
}

func TestSystemPrompt_AppendsSchemaDirective(t *testing.T) {
	req := model.Request{
		Instructions: "be helpful",
		OutputSchema: &core.JSONOutput{
			Name:   "verdict",
			Schema: map[string]any{"type": "object"},
		},
	}

	system := systemPrompt(req)
	assert.Contains(t, system, "be helpful")
	assert.Contains(t, system, `"verdict"`)
	assert.Contains(t, system, `"type":"object"`)
}

func TestToolOutputText(t *testing.T) {
	assert.Equal(t, "sunny", toolOutputText(core.ToolOutput{Result: "sunny"}))
	assert.Equal(t, `{"temp":21}`, toolOutputText(core.ToolOutput{Result: map[string]any{"temp": 21}}))
	assert.Equal(t, "error: boom", toolOutputText(core.ToolOutput{Error: "boom"}))
}
