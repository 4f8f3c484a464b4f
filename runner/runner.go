package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/hupe1980/agentloop/agent"
	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/guardrail"
	"github.com/hupe1980/agentloop/logging"
	"github.com/hupe1980/agentloop/model"
	"github.com/hupe1980/agentloop/session"
	"github.com/hupe1980/agentloop/tool"
	"github.com/hupe1980/agentloop/tracing"
)

// Options holds dependency + configuration overrides passed to New().
type Options struct {
	// MaxTurns caps model calls per run; exceeding it fails the run.
	MaxTurns int
	// ToolTimeout bounds each individual tool call. Zero disables it.
	ToolTimeout time.Duration
	// MaxParallelTools limits concurrent tool calls within one turn.
	MaxParallelTools int
	// FailFastToolErrors aborts the turn on the first failed tool call
	// instead of collecting failures as observable outputs.
	FailFastToolErrors bool
	// SessionReadLimit bounds how much history each turn sends to the model
	// (core.ReadAll for everything).
	SessionReadLimit int
	// Session stores conversation history across turns and runs.
	Session core.Session
	// TraceProvider records runs; pass a disabled provider to opt out.
	TraceProvider *tracing.Provider
	// Logger receives structured run diagnostics.
	Logger logging.Logger
	// Toolsets supply additional tools resolved at run start.
	Toolsets []tool.Toolset
}

// RunResult is the settled outcome of a run.
type RunResult struct {
	// RunID identifies the run across logs and traces.
	RunID string
	// FinalOutput is the final message when NextStep is complete.
	FinalOutput string
	// LastAgent names the agent that produced the outcome (differs from the
	// starting agent after handoffs).
	LastAgent string
	// NewItems are the history items persisted during this run, in order.
	NewItems []core.RunItem
	// NextStep is complete for a finished run or interrupt for a paused one.
	NextStep NextStep
	// Interruption is set when a tool paused the run for external input.
	Interruption *tool.Interruption
	// Trace is the recorded trace of the run.
	Trace *tracing.Trace
}

// Runner drives the agent turn loop: it calls the model, dispatches tool
// calls and handoffs, enforces guardrails and the turn ceiling, persists
// history and records a trace per run. Public methods are safe for
// concurrent use; each run gets independent state.
type Runner struct {
	agent *agent.Agent

	maxTurns         int
	sessionReadLimit int

	sess     core.Session
	provider *tracing.Provider
	logger   logging.Logger
	engine   *guardrail.Engine
	invoker  *toolInvoker
	toolsets []tool.Toolset

	activeRuns map[string]context.CancelFunc
	mu         sync.Mutex
}

// New constructs a Runner for the given starting agent with optional overrides.
func New(a *agent.Agent, optFns ...func(o *Options)) *Runner {
	opts := Options{
		MaxTurns:         10,
		MaxParallelTools: 4,
		SessionReadLimit: core.ReadAll,
		Logger:           logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Session == nil {
		opts.Session = session.NewInMemory(core.NewID())
	}
	if opts.TraceProvider == nil {
		opts.TraceProvider = tracing.NewProvider()
	}

	return &Runner{
		agent:            a,
		maxTurns:         opts.MaxTurns,
		sessionReadLimit: opts.SessionReadLimit,
		sess:             opts.Session,
		provider:         opts.TraceProvider,
		logger:           opts.Logger,
		engine:           guardrail.NewEngine(func(o *guardrail.EngineOptions) { o.Logger = opts.Logger }),
		invoker: &toolInvoker{
			cfg: invokerConfig{
				maxParallel: opts.MaxParallelTools,
				toolTimeout: opts.ToolTimeout,
				failFast:    opts.FailFastToolErrors,
			},
			logger: opts.Logger,
		},
		toolsets:   opts.Toolsets,
		activeRuns: make(map[string]context.CancelFunc),
	}
}

// Session returns the session backing this runner.
func (r *Runner) Session() core.Session { return r.sess }

// Run executes the turn loop for a single user message.
func (r *Runner) Run(ctx context.Context, input string) (*RunResult, error) {
	return r.RunItems(ctx, []core.RunItem{core.MessageInput{Content: input}})
}

// Cancel cancels an in-flight run by ID. In-flight tool calls finish but
// their results are discarded.
func (r *Runner) Cancel(runID string) error {
	r.mu.Lock()
	cancel, exists := r.activeRuns[runID]
	r.mu.Unlock()

	if !exists {
		return fmt.Errorf("run %s not found", runID)
	}

	cancel()

	return nil
}

// RunItems executes the turn loop for arbitrary pending input items. The
// items pass input guardrails before being persisted; the loop then runs
// until a final output, an interruption, the turn ceiling or an error. The
// trace is exported even when the run fails partway.
func (r *Runner) RunItems(ctx context.Context, input []core.RunItem) (*RunResult, error) {
	ag := r.agent
	if ag == nil {
		return nil, &core.ConfigurationError{Field: "agent", Reason: "must not be nil"}
	}
	if err := ag.Validate(); err != nil {
		return nil, err
	}

	runID := core.NewID()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.mu.Lock()
	r.activeRuns[runID] = cancel
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		delete(r.activeRuns, runID)
		r.mu.Unlock()
	}()

	tr := r.provider.StartTrace(fmt.Sprintf("run %s", ag.Name()))
	defer tr.End() // export the trace even on failure

	rootSpan := tr.StartSpan(nil, tracing.SpanKindAgent, ag.Name(), agentSpanData(ag))
	agentSpan := rootSpan

	r.logger.Info("runner.run.start", "run", runID, "agent", ag.Name(), "session", r.sess.ID())

	registry, closeToolsets, err := r.connectToolsets(ctx)
	if err != nil {
		rootSpan.SetError("toolset_error", err.Error(), nil)
		return nil, err
	}
	defer closeToolsets()

	if err := r.engine.RunInput(ctx, tr, agentSpan, ag.InputGuardrails(), input); err != nil {
		return nil, err
	}

	if err := r.sess.Append(ctx, input...); err != nil {
		return nil, err
	}

	newItems := make([]core.RunItem, 0, len(input))
	newItems = append(newItems, input...)

	for turn := 1; turn <= r.maxTurns; turn++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := r.generate(ctx, tr, agentSpan, ag, registry, turn)
		if err != nil {
			return nil, err
		}

		// Handoff takes precedence over tool calls and message content.
		if resp.Handoff != nil {
			next, err := r.resolveHandoff(tr, agentSpan, ag, resp.Handoff)
			if err != nil {
				return nil, err
			}

			if agentSpan != rootSpan {
				agentSpan.End()
			}
			ag = next
			agentSpan = tr.StartSpan(rootSpan, tracing.SpanKindAgent, ag.Name(), agentSpanData(ag))

			continue
		}

		if len(resp.ToolCalls) > 0 {
			params := invocationParams{runID: runID, session: r.sess, registry: registry}

			outputs, interruption, err := r.invoker.invoke(ctx, tr, agentSpan, ag, params, resp.ToolCalls)
			if err != nil {
				return nil, err
			}

			if interruption != nil {
				// The interrupted turn's items are not persisted; resuming
				// re-runs the turn from the last committed state.
				r.logger.Info("runner.run.interrupted",
					"run", runID,
					"tool", interruption.Tool,
					"reason", interruption.Reason,
				)

				return &RunResult{
					RunID:        runID,
					LastAgent:    ag.Name(),
					NewItems:     newItems,
					NextStep:     NextStepInterrupt,
					Interruption: interruption,
					Trace:        tr,
				}, nil
			}

			for _, out := range outputs {
				if err := r.engine.RunToolOutput(ctx, tr, agentSpan, ag.ToolOutputGuardrails(), out); err != nil {
					return nil, err
				}
			}

			// Calls and their outputs commit as one batch, in call order.
			batch := make([]core.RunItem, 0, len(resp.ToolCalls)+len(outputs))
			for _, call := range resp.ToolCalls {
				batch = append(batch, call)
			}
			for _, out := range outputs {
				batch = append(batch, out)
			}
			if err := r.sess.Append(ctx, batch...); err != nil {
				return nil, err
			}
			newItems = append(newItems, batch...)

			continue
		}

		// Final output: guarded and shape-checked before it is persisted.
		if err := r.engine.RunOutput(ctx, tr, agentSpan, ag.OutputGuardrails(), resp.Message); err != nil {
			return nil, err
		}

		if err := validateOutput(ag.OutputType(), resp.Message); err != nil {
			agentSpan.SetError("output_invalid", err.Error(), nil)
			return nil, err
		}

		final := core.MessageOutput{Agent: ag.Name(), Content: resp.Message}
		if err := r.sess.Append(ctx, final); err != nil {
			return nil, err
		}
		newItems = append(newItems, final)

		r.logger.Info("runner.run.complete", "run", runID, "agent", ag.Name(), "turns", turn)

		return &RunResult{
			RunID:       runID,
			FinalOutput: resp.Message,
			LastAgent:   ag.Name(),
			NewItems:    newItems,
			NextStep:    NextStepComplete,
			Trace:       tr,
		}, nil
	}

	err = &core.MaxTurnsExceededError{MaxTurns: r.maxTurns}
	rootSpan.SetError("max_turns_exceeded", err.Error(), nil)

	return nil, err
}

// generate performs one model call inside a generation span.
func (r *Runner) generate(
	ctx context.Context,
	tr *tracing.Trace,
	parent *tracing.Span,
	ag *agent.Agent,
	registry map[string]tool.Tool,
	turn int,
) (*model.Response, error) {
	instructions, err := ag.ResolveInstructions(ctx)
	if err != nil {
		return nil, err
	}

	history, err := r.sess.Read(ctx, r.sessionReadLimit)
	if err != nil {
		return nil, err
	}

	req := model.Request{
		Instructions: instructions,
		History:      history,
		Tools:        toolDefinitions(ag, registry),
	}
	if jsonOut, ok := ag.OutputType().(core.JSONOutput); ok {
		req.OutputSchema = &jsonOut
	}

	info := ag.Model().Info()
	span := tr.StartSpan(parent, tracing.SpanKindGeneration, info.Name, &tracing.GenerationSpanData{
		Model: info.Name,
		Turn:  turn,
	})
	defer span.End()

	r.logger.Debug("runner.turn.start",
		"agent", ag.Name(),
		"turn", turn,
		"model", info.Name,
		"history_items", len(history),
	)

	resp, err := ag.Model().Generate(ctx, req)
	if err != nil {
		span.SetError("generation_error", err.Error(), nil)
		return nil, fmt.Errorf("model call failed on turn %d: %w", turn, err)
	}

	return resp, nil
}

// connectToolsets resolves run-level tools from the configured toolsets.
// Toolsets reporting core.ErrNotSupported are skipped with a warning rather
// than failing the run. The returned closer releases all connected sets.
func (r *Runner) connectToolsets(ctx context.Context) (map[string]tool.Tool, func(), error) {
	registry := make(map[string]tool.Tool)
	var connected []tool.Toolset

	closeAll := func() {
		for _, ts := range connected {
			if err := ts.Close(); err != nil {
				r.logger.Warn("runner.toolset.close_error", "toolset", ts.Name(), "error", err.Error())
			}
		}
	}

	for _, ts := range r.toolsets {
		if err := ts.Connect(ctx); err != nil {
			if errors.Is(err, core.ErrNotSupported) {
				r.logger.Warn("runner.toolset.skipped", "toolset", ts.Name(), "error", err.Error())
				continue
			}
			closeAll()
			return nil, nil, fmt.Errorf("toolset %s connect failed: %w", ts.Name(), err)
		}
		connected = append(connected, ts)

		tools, err := ts.ListTools(ctx)
		if err != nil {
			if errors.Is(err, core.ErrNotSupported) {
				r.logger.Warn("runner.toolset.skipped", "toolset", ts.Name(), "error", err.Error())
				continue
			}
			closeAll()
			return nil, nil, fmt.Errorf("toolset %s listing failed: %w", ts.Name(), err)
		}

		for _, t := range tools {
			registry[t.Name()] = t
		}
	}

	return registry, closeAll, nil
}

// toolDefinitions merges the agent's own definitions with toolset-provided
// ones. Agent tools shadow toolset tools of the same name.
func toolDefinitions(ag *agent.Agent, registry map[string]tool.Tool) []model.ToolDefinition {
	defs := ag.ToolDefinitions()

	seen := make(map[string]bool, len(defs))
	for _, d := range defs {
		seen[d.Name] = true
	}

	for _, t := range registry {
		if seen[t.Name()] {
			continue
		}
		defs = append(defs, model.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}

	return defs
}

// validateOutput checks a final message against the agent's declared output
// shape. Free-form text always passes; JSON output must satisfy its schema.
func validateOutput(outputType core.OutputType, message string) error {
	jsonOut, ok := outputType.(core.JSONOutput)
	if !ok || jsonOut.Schema == nil {
		return nil
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(jsonOut.Schema))
	if err != nil {
		return &core.ConfigurationError{Field: "output_type", Reason: err.Error()}
	}

	result, err := schema.Validate(gojsonschema.NewStringLoader(message))
	if err != nil {
		return fmt.Errorf("final output is not valid JSON: %w", err)
	}
	if !result.Valid() {
		errs := result.Errors()
		if len(errs) > 0 {
			return fmt.Errorf("final output does not match %s schema: %s", jsonOut.Name, errs[0].String())
		}
		return fmt.Errorf("final output does not match %s schema", jsonOut.Name)
	}

	return nil
}

func agentSpanData(ag *agent.Agent) *tracing.AgentSpanData {
	toolNames := make([]string, 0, len(ag.Tools()))
	for _, t := range ag.Tools() {
		toolNames = append(toolNames, t.Name())
	}

	return &tracing.AgentSpanData{
		Agent:    ag.Name(),
		Tools:    toolNames,
		Handoffs: ag.HandoffNames(),
	}
}
