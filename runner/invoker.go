package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/hupe1980/agentloop/agent"
	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/logging"
	"github.com/hupe1980/agentloop/tool"
	"github.com/hupe1980/agentloop/tracing"
)

// invokerConfig configures the parallel tool invoker.
type invokerConfig struct {
	maxParallel int           // 0 or <1 => no explicit limit (len(calls))
	toolTimeout time.Duration // 0 => no per-call timeout
	failFast    bool          // abort the batch on the first failed call
}

// toolInvoker executes one turn's batch of tool calls, possibly in parallel,
// and reassembles the outputs in original call order. It must:
//   - Respect context cancellation
//   - Never panic (recover internally and settle the call as failed)
//   - Produce exactly one ToolOutput per incoming ToolCall
type toolInvoker struct {
	cfg    invokerConfig
	logger logging.Logger
}

// callResult is the settled state of one call, buffered for ordered assembly.
type callResult struct {
	output       core.ToolOutput
	interruption *tool.Interruption
	failed       bool
}

// invocationParams carries the per-run scope shared by all calls of a batch.
type invocationParams struct {
	runID    string
	session  core.Session
	registry map[string]tool.Tool
}

// invoke runs the batch. The returned outputs are index-aligned with calls
// regardless of completion order. A non-nil interruption pauses the run. The
// error return aborts the turn: first failure in fail-fast mode, or all
// calls failing in collect-all mode.
func (e *toolInvoker) invoke(
	ctx context.Context,
	tr *tracing.Trace,
	parent *tracing.Span,
	ag *agent.Agent,
	params invocationParams,
	calls []core.ToolCall,
) ([]core.ToolOutput, *tool.Interruption, error) {
	n := len(calls)
	if n == 0 {
		return nil, nil, nil
	}

	maxPar := e.cfg.maxParallel
	if maxPar <= 0 || maxPar > n {
		maxPar = n
	}

	batchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]callResult, n)
	var wg sync.WaitGroup
	sem := make(chan struct{}, maxPar)

	batchStart := time.Now()
	for i := range calls {
		if ctx.Err() != nil { // pre-check cancellation
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, call core.ToolCall) {
			defer wg.Done()
			defer func() { <-sem }()

			if batchCtx.Err() != nil {
				results[idx] = callResult{
					output: core.ToolOutput{CallID: call.ID, Name: call.Name, Error: batchCtx.Err().Error()},
					failed: true,
				}
				return
			}

			results[idx] = e.executeCall(batchCtx, tr, parent, ag, params, call)

			if e.cfg.failFast && results[idx].failed {
				cancel()
			}
		}(i, calls[i])
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	outputs := make([]core.ToolOutput, n)
	failures := 0
	var interruption *tool.Interruption
	var firstFailure error

	for i := range results {
		outputs[i] = results[i].output
		if results[i].interruption != nil && interruption == nil {
			interruption = results[i].interruption
		}
		if results[i].failed {
			failures++
			if firstFailure == nil {
				firstFailure = fmt.Errorf("tool %s failed: %s", outputs[i].Name, outputs[i].Error)
			}
		}
	}

	e.logger.Debug(
		"runner.tools.batch.complete",
		"agent", ag.Name(),
		"count", n,
		"parallelism", maxPar,
		"failures", failures,
		"duration_ms", time.Since(batchStart).Milliseconds(),
	)

	if interruption != nil {
		return outputs, interruption, nil
	}

	if e.cfg.failFast && firstFailure != nil {
		return nil, nil, firstFailure
	}
	if failures == n {
		return nil, nil, fmt.Errorf("all %d tool calls failed: %w", n, firstFailure)
	}

	return outputs, nil, nil
}

// executeCall settles a single call inside a function span with timeout and
// panic protection. Tool errors become failed outputs, never Go errors, so
// the model can observe them on the next turn.
func (e *toolInvoker) executeCall(
	ctx context.Context,
	tr *tracing.Trace,
	parent *tracing.Span,
	ag *agent.Agent,
	params invocationParams,
	call core.ToolCall,
) callResult {
	span := tr.StartSpan(parent, tracing.SpanKindFunction, call.Name, &tracing.FunctionSpanData{
		Tool:   call.Name,
		CallID: call.ID,
	})
	defer span.End()

	callCtx := ctx
	if e.cfg.toolTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.cfg.toolTimeout)
		defer cancel()
	}

	e.logger.Debug("runner.tool.start", "agent", ag.Name(), "tool", call.Name, "call_id", call.ID)

	start := time.Now()
	var (
		result any
		err    error
	)
	func() { // panic safety
		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("tool %s panicked: %v", call.Name, rec)
				e.logger.Error("runner.tool.panic",
					"agent", ag.Name(),
					"tool", call.Name,
					"recover", rec,
					"stack", string(debug.Stack()),
				)
			}
		}()
		result, err = e.executeTool(callCtx, ag, params, call)
	}()

	e.logger.Info(
		"runner.tool.executed",
		"agent", ag.Name(),
		"tool", call.Name,
		"duration_ms", time.Since(start).Milliseconds(),
		"error", err != nil,
	)

	output := core.ToolOutput{CallID: call.ID, Name: call.Name, Result: result}

	var interruption *tool.Interruption
	if errors.As(err, &interruption) {
		if interruption.Tool == "" {
			interruption.Tool = call.Name
		}
		if interruption.CallID == "" {
			interruption.CallID = call.ID
		}
		span.SetError("tool_interruption", interruption.Reason, nil)
		return callResult{output: output, interruption: interruption}
	}

	if err != nil {
		output.Error = err.Error()
		span.SetError("tool_error", err.Error(), nil)
		return callResult{output: output, failed: true}
	}

	return callResult{output: output}
}

// executeTool centralizes tool lookup, argument decoding and execution. The
// agent's own tools shadow toolset-provided ones of the same name.
func (e *toolInvoker) executeTool(
	ctx context.Context,
	ag *agent.Agent,
	params invocationParams,
	call core.ToolCall,
) (any, error) {
	impl, ok := ag.Tool(call.Name)
	if !ok {
		impl, ok = params.registry[call.Name]
	}
	if !ok {
		return nil, fmt.Errorf("tool %s not found", call.Name)
	}

	var argMap map[string]any
	if call.Arguments == "" {
		argMap = map[string]any{}
	} else if err := json.Unmarshal([]byte(call.Arguments), &argMap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal args: %w", err)
	}

	toolCtx := tool.NewContext(tool.ContextParams{
		Context: ctx,
		RunID:   params.runID,
		Agent:   ag.Name(),
		CallID:  call.ID,
		Session: params.session,
		Logger:  e.logger,
	})

	return impl.Call(toolCtx, argMap)
}
