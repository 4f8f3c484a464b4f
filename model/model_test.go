package model

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentloop/core"
)

var _ Model = (*MockModel)(nil)

func TestTransferToolDefinition(t *testing.T) {
	def := TransferToolDefinition([]string{"billing", "support"})

	assert.Equal(t, TransferToolName, def.Name)

	props, ok := def.Parameters["properties"].(map[string]any)
	require.True(t, ok)
	target, ok := props["target"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{"billing", "support"}, target["enum"])
	assert.Equal(t, []any{"target"}, def.Parameters["required"])
}

func TestParseTransferArguments(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		req, err := ParseTransferArguments(`{"target":"billing","reason":"invoice question"}`)
		require.NoError(t, err)
		assert.Equal(t, "billing", req.Target)
		assert.Equal(t, "invoice question", req.Reason)
	})

	t.Run("missing target", func(t *testing.T) {
		_, err := ParseTransferArguments(`{"reason":"nope"}`)
		require.Error(t, err)
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := ParseTransferArguments(`{`)
		require.Error(t, err)
	})
}

func TestMockModel_Queue(t *testing.T) {
	ctx := context.Background()
	m := NewMockModel().
		EnqueueToolCalls(core.ToolCall{ID: "c1", Name: "search"}).
		EnqueueMessage("done")

	resp, err := m.Generate(ctx, Request{Instructions: "be helpful"})
	require.NoError(t, err)
	require.Len(t, resp.ToolCalls, 1)
	assert.Empty(t, resp.Message)

	resp, err = m.Generate(ctx, Request{})
	require.NoError(t, err)
	assert.Equal(t, "done", resp.Message)

	_, err = m.Generate(ctx, Request{})
	require.Error(t, err, "exhausted queue must fail loudly")

	reqs := m.Requests()
	require.Len(t, reqs, 3)
	assert.Equal(t, "be helpful", reqs[0].Instructions)
}

func TestMockModel_Handoff(t *testing.T) {
	m := NewMockModel().EnqueueHandoff("billing", "invoice question")

	resp, err := m.Generate(context.Background(), Request{})
	require.NoError(t, err)
	require.NotNil(t, resp.Handoff)
	assert.Equal(t, "billing", resp.Handoff.Target)
}
