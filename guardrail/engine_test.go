package guardrail

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/tracing"
)

func passInput(name string, executed *[]string) InputGuardrail {
	return InputGuardrail{
		Name: name,
		Check: func(context.Context, []core.RunItem) (Result, error) {
			*executed = append(*executed, name)
			return Pass(), nil
		},
	}
}

func TestEngine_InputShortCircuit(t *testing.T) {
	var executed []string
	guardrails := []InputGuardrail{
		passInput("g1", &executed),
		{
			Name: "g2",
			Check: func(context.Context, []core.RunItem) (Result, error) {
				executed = append(executed, "g2")
				return Trip("blocked topic", map[string]any{"topic": "secrets"}), nil
			},
		},
		passInput("g3", &executed),
	}

	engine := NewEngine()
	err := engine.RunInput(context.Background(), nil, nil, guardrails, []core.RunItem{core.MessageInput{Content: "hi"}})

	var tripwire *TripwireError
	require.ErrorAs(t, err, &tripwire)
	assert.Equal(t, PhaseInput, tripwire.Phase)
	assert.Equal(t, "g2", tripwire.Guardrail)
	assert.Equal(t, "blocked topic", tripwire.Reason)
	assert.Equal(t, "secrets", tripwire.Metadata["topic"])
	assert.Equal(t, []string{"g1", "g2"}, executed, "g3 must never execute")
}

func TestEngine_OutputPassesInOrder(t *testing.T) {
	var order []string
	guardrails := []OutputGuardrail{
		{Name: "first", Check: func(context.Context, string) (Result, error) {
			order = append(order, "first")
			return Pass(), nil
		}},
		{Name: "second", Check: func(context.Context, string) (Result, error) {
			order = append(order, "second")
			return Pass(), nil
		}},
	}

	engine := NewEngine()
	err := engine.RunOutput(context.Background(), nil, nil, guardrails, "final answer")
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestEngine_ToolOutputTrip(t *testing.T) {
	guardrails := []ToolOutputGuardrail{
		{Name: "no_pii", Check: func(_ context.Context, out core.ToolOutput) (Result, error) {
			if out.Name == "lookup_user" {
				return Trip("pii leak", nil), nil
			}
			return Pass(), nil
		}},
	}

	engine := NewEngine()
	err := engine.RunToolOutput(context.Background(), nil, nil, guardrails, core.ToolOutput{CallID: "c1", Name: "lookup_user"})

	var tripwire *TripwireError
	require.ErrorAs(t, err, &tripwire)
	assert.Equal(t, PhaseToolOutput, tripwire.Phase)
	assert.Equal(t, "no_pii", tripwire.Guardrail)
}

func TestEngine_CheckErrorIsFatal(t *testing.T) {
	boom := errors.New("backend down")
	guardrails := []InputGuardrail{
		{Name: "flaky", Check: func(context.Context, []core.RunItem) (Result, error) {
			return Result{}, boom
		}},
	}

	engine := NewEngine()
	err := engine.RunInput(context.Background(), nil, nil, guardrails, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var tripwire *TripwireError
	assert.False(t, errors.As(err, &tripwire))
}

func TestEngine_RecordsGuardrailSpans(t *testing.T) {
	exporter := tracing.NewInMemoryExporter()
	provider := tracing.NewProvider(func(o *tracing.Options) { o.Exporter = exporter })
	tr := provider.StartTrace("run")
	root := tr.StartSpan(nil, tracing.SpanKindAgent, "a", &tracing.AgentSpanData{Agent: "a"})

	guardrails := []InputGuardrail{
		{Name: "g1", Check: func(context.Context, []core.RunItem) (Result, error) { return Pass(), nil }},
		{Name: "g2", Check: func(context.Context, []core.RunItem) (Result, error) { return Trip("no", nil), nil }},
	}

	engine := NewEngine()
	err := engine.RunInput(context.Background(), tr, root, guardrails, nil)
	require.Error(t, err)
	tr.End()

	spans := tr.Spans()
	require.Len(t, spans, 3) // root + two guardrail spans

	for _, span := range spans[1:] {
		assert.Equal(t, tracing.SpanKindGuardrail, span.Kind())
		assert.True(t, span.Ended())
	}

	data, ok := spans[2].Data().(*tracing.GuardrailSpanData)
	require.True(t, ok)
	assert.True(t, data.Tripped)
	require.NotNil(t, spans[2].Err())
	assert.Equal(t, "guardrail_tripwire", spans[2].Err().Kind)
}
