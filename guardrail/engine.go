package guardrail

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/logging"
	"github.com/hupe1980/agentloop/tracing"
)

// EngineOptions configures an Engine.
type EngineOptions struct {
	Logger logging.Logger
}

// Engine evaluates guardrails of one phase strictly sequentially in declared
// order. Evaluation within a phase is never parallelized: later guardrails
// may assume earlier ones already executed. Each evaluation is recorded as a
// guardrail span on the active trace.
type Engine struct {
	logger logging.Logger
}

// NewEngine constructs an Engine with optional overrides.
func NewEngine(optFns ...func(o *EngineOptions)) *Engine {
	opts := EngineOptions{
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Engine{logger: opts.Logger}
}

// RunInput evaluates input guardrails against the pending user input. The
// first trip short-circuits and returns a *TripwireError.
func (e *Engine) RunInput(
	ctx context.Context,
	tr *tracing.Trace,
	parent *tracing.Span,
	guardrails []InputGuardrail,
	input []core.RunItem,
) error {
	for _, g := range guardrails {
		check := func(ctx context.Context) (Result, error) { return g.Check(ctx, input) }
		if err := e.evaluate(ctx, tr, parent, PhaseInput, g.Name, check); err != nil {
			return err
		}
	}
	return nil
}

// RunOutput evaluates output guardrails against the final message.
func (e *Engine) RunOutput(
	ctx context.Context,
	tr *tracing.Trace,
	parent *tracing.Span,
	guardrails []OutputGuardrail,
	output string,
) error {
	for _, g := range guardrails {
		check := func(ctx context.Context) (Result, error) { return g.Check(ctx, output) }
		if err := e.evaluate(ctx, tr, parent, PhaseOutput, g.Name, check); err != nil {
			return err
		}
	}
	return nil
}

// RunToolOutput evaluates tool-output guardrails against one settled call.
func (e *Engine) RunToolOutput(
	ctx context.Context,
	tr *tracing.Trace,
	parent *tracing.Span,
	guardrails []ToolOutputGuardrail,
	output core.ToolOutput,
) error {
	for _, g := range guardrails {
		check := func(ctx context.Context) (Result, error) { return g.Check(ctx, output) }
		if err := e.evaluate(ctx, tr, parent, PhaseToolOutput, g.Name, check); err != nil {
			return err
		}
	}
	return nil
}

// evaluate runs a single guardrail inside a guardrail span. A tripped result
// becomes a *TripwireError; an evaluation error is wrapped and equally fatal.
func (e *Engine) evaluate(
	ctx context.Context,
	tr *tracing.Trace,
	parent *tracing.Span,
	phase Phase,
	name string,
	check func(ctx context.Context) (Result, error),
) error {
	span := tr.StartSpan(parent, tracing.SpanKindGuardrail, name, &tracing.GuardrailSpanData{
		Guardrail: name,
		Phase:     string(phase),
	})
	defer span.End()

	result, err := check(ctx)
	if err != nil {
		span.SetError("guardrail_error", err.Error(), nil)
		return fmt.Errorf("%s guardrail %q failed: %w", phase, name, err)
	}

	span.SetData(&tracing.GuardrailSpanData{
		Guardrail: name,
		Phase:     string(phase),
		Tripped:   result.Tripped,
	})

	if result.Tripped {
		e.logger.Warn(
			"guardrail.tripped",
			"phase", string(phase),
			"guardrail", name,
			"reason", result.Reason,
		)
		span.SetError("guardrail_tripwire", result.Reason, result.Metadata)

		return &TripwireError{
			Phase:     phase,
			Guardrail: name,
			Reason:    result.Reason,
			Metadata:  result.Metadata,
		}
	}

	e.logger.Debug("guardrail.passed", "phase", string(phase), "guardrail", name)

	return nil
}
