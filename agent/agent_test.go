package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/model"
	"github.com/hupe1980/agentloop/tool"
)

func echoTool(name string) tool.Tool {
	return tool.NewFunctionTool(name, "Echo the input", nil,
		func(_ *tool.Context, args map[string]any) (any, error) {
			return args, nil
		})
}

func TestNew_Defaults(t *testing.T) {
	a := New("assistant", model.NewMockModel())

	require.NoError(t, a.Validate())
	assert.Equal(t, "assistant", a.Name())
	assert.IsType(t, core.TextOutput{}, a.OutputType())
	assert.Empty(t, a.Tools())
	assert.Empty(t, a.Handoffs())

	instructions, err := a.ResolveInstructions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "You are assistant, a helpful AI assistant.", instructions)
}

func TestValidate(t *testing.T) {
	m := model.NewMockModel()

	t.Run("empty name", func(t *testing.T) {
		err := New("", m).Validate()
		var cfgErr *core.ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "name", cfgErr.Field)
	})

	t.Run("nil model", func(t *testing.T) {
		err := New("a", nil).Validate()
		var cfgErr *core.ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "model", cfgErr.Field)
	})

	t.Run("duplicate tool names", func(t *testing.T) {
		a := New("a", m, func(o *Options) {
			o.Tools = []tool.Tool{echoTool("echo"), echoTool("echo")}
		})
		var cfgErr *core.ConfigurationError
		require.ErrorAs(t, a.Validate(), &cfgErr)
		assert.Equal(t, "tools", cfgErr.Field)
	})

	t.Run("reserved tool name", func(t *testing.T) {
		a := New("a", m, func(o *Options) {
			o.Tools = []tool.Tool{echoTool(model.TransferToolName)}
		})
		require.Error(t, a.Validate())
	})

	t.Run("self handoff", func(t *testing.T) {
		a := New("a", m)
		b := New("a", m, func(o *Options) { o.Handoffs = []*Agent{a} })
		require.Error(t, b.Validate())
	})
}

func TestHandoffLookup(t *testing.T) {
	m := model.NewMockModel()
	billing := New("billing", m)
	support := New("support", m, func(o *Options) {
		o.Handoffs = []*Agent{billing}
	})

	require.NoError(t, support.Validate())

	target, ok := support.Handoff("billing")
	require.True(t, ok)
	assert.Same(t, billing, target)

	_, ok = support.Handoff("unknown")
	assert.False(t, ok)

	assert.Equal(t, []string{"billing"}, support.HandoffNames())
}

func TestToolDefinitions_IncludesTransferWhenHandoffsExist(t *testing.T) {
	m := model.NewMockModel()
	billing := New("billing", m)
	a := New("support", m, func(o *Options) {
		o.Tools = []tool.Tool{echoTool("echo")}
		o.Handoffs = []*Agent{billing}
	})

	defs := a.ToolDefinitions()
	require.Len(t, defs, 2)
	assert.Equal(t, "echo", defs[0].Name)
	assert.Equal(t, model.TransferToolName, defs[1].Name)

	plain := New("plain", m)
	assert.Empty(t, plain.ToolDefinitions())
}

func TestResolveInstructions_DynamicAndTemplated(t *testing.T) {
	m := model.NewMockModel()

	t.Run("dynamic provider", func(t *testing.T) {
		a := New("ops", m, func(o *Options) {
			o.Instructions = NewInstructionFromFunc(func(context.Context) (string, error) {
				return "Answer as {{.agent}}.", nil
			})
		})

		instructions, err := a.ResolveInstructions(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "Answer as ops.", instructions)
	})

	t.Run("static template", func(t *testing.T) {
		a := New("ops", m, func(o *Options) {
			o.Instructions = NewInstructionFromText("You are {{.agent | upper}}.")
		})

		instructions, err := a.ResolveInstructions(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "You are OPS.", instructions)
	})
}
