package tool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentloop/core"
)

func TestStaticToolset(t *testing.T) {
	ctx := context.Background()
	ts := NewStaticToolset("local", sumTool())

	require.NoError(t, ts.Connect(ctx))
	tools, err := ts.ListTools(ctx)
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "calculate_sum", tools[0].Name())
	require.NoError(t, ts.Close())
}

func TestUnimplementedToolset(t *testing.T) {
	ctx := context.Background()
	ts := UnimplementedToolset{Protocol: "mcp"}

	err := ts.Connect(ctx)
	assert.ErrorIs(t, err, core.ErrNotSupported)

	_, err = ts.ListTools(ctx)
	assert.ErrorIs(t, err, core.ErrNotSupported)

	assert.NoError(t, ts.Close())
}

func TestInterrupt(t *testing.T) {
	tc := NewContext(ContextParams{CallID: "c7"})
	err := Interrupt(tc, "needs approval")

	assert.Equal(t, "c7", err.CallID)
	assert.Contains(t, err.Error(), "needs approval")
}
