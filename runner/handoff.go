package runner

import (
	"fmt"

	"github.com/hupe1980/agentloop/agent"
	"github.com/hupe1980/agentloop/model"
	"github.com/hupe1980/agentloop/tracing"
)

// HandoffResolutionError reports a model-requested transfer to an agent that
// is not among the current agent's declared handoff targets. It is fatal to
// the run.
type HandoffResolutionError struct {
	From   string
	Target string
}

func (e *HandoffResolutionError) Error() string {
	return fmt.Sprintf("agent %s requested handoff to unknown agent %s", e.From, e.Target)
}

// resolveHandoff validates a transfer request against the current agent's
// declared targets, records a handoff span and returns the target agent.
func (r *Runner) resolveHandoff(
	tr *tracing.Trace,
	parent *tracing.Span,
	from *agent.Agent,
	req *model.HandoffRequest,
) (*agent.Agent, error) {
	span := tr.StartSpan(parent, tracing.SpanKindHandoff, "handoff", &tracing.HandoffSpanData{
		FromAgent: from.Name(),
		ToAgent:   req.Target,
		Reason:    req.Reason,
	})
	defer span.End()

	target, ok := from.Handoff(req.Target)
	if !ok {
		err := &HandoffResolutionError{From: from.Name(), Target: req.Target}
		span.SetError("handoff_resolution", err.Error(), nil)
		r.logger.Error("runner.handoff.unresolved", "from", from.Name(), "target", req.Target)
		return nil, err
	}

	if err := target.Validate(); err != nil {
		span.SetError("handoff_target_invalid", err.Error(), nil)
		return nil, fmt.Errorf("handoff target %s: %w", req.Target, err)
	}

	r.logger.Info("runner.handoff", "from", from.Name(), "to", req.Target, "reason", req.Reason)

	return target, nil
}
