package tracing

import (
	"sync"
	"time"

	"github.com/hupe1980/agentloop/core"
)

// SpanKind classifies the operation a span represents.
type SpanKind string

const (
	// SpanKindAgent is the top-level agent run (the root span of a trace).
	SpanKindAgent SpanKind = "agent"
	// SpanKindGeneration is a single model call.
	SpanKindGeneration SpanKind = "generation"
	// SpanKindFunction is a single tool execution.
	SpanKindFunction SpanKind = "function"
	// SpanKindHandoff is a transfer of control between agent definitions.
	SpanKindHandoff SpanKind = "handoff"
	// SpanKindGuardrail is a single guardrail evaluation.
	SpanKindGuardrail SpanKind = "guardrail"
	// SpanKindCustom is user-defined instrumentation.
	SpanKindCustom SpanKind = "custom"
)

// SpanError records a failure on a span instead of failing silently.
type SpanError struct {
	Kind    string         `json:"kind"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// SpanData is the typed payload attached to a span. Concrete payloads
// implement the unexported isSpanData marker enabling a closed set.
type SpanData interface{ isSpanData() }

// AgentSpanData describes the agent driving the root span.
type AgentSpanData struct {
	Agent    string   `json:"agent"`
	Tools    []string `json:"tools,omitempty"`
	Handoffs []string `json:"handoffs,omitempty"`
}

func (*AgentSpanData) isSpanData() {}

// GenerationSpanData describes one model call.
type GenerationSpanData struct {
	Model string `json:"model"`
	Turn  int    `json:"turn"`
}

func (*GenerationSpanData) isSpanData() {}

// FunctionSpanData describes one tool execution.
type FunctionSpanData struct {
	Tool   string `json:"tool"`
	CallID string `json:"call_id"`
}

func (*FunctionSpanData) isSpanData() {}

// HandoffSpanData describes a transfer between two distinct agents.
type HandoffSpanData struct {
	FromAgent string `json:"from_agent"`
	ToAgent   string `json:"to_agent"`
	Reason    string `json:"reason,omitempty"`
}

func (*HandoffSpanData) isSpanData() {}

// GuardrailSpanData describes one guardrail evaluation.
type GuardrailSpanData struct {
	Guardrail string `json:"guardrail"`
	Phase     string `json:"phase"`
	Tripped   bool   `json:"tripped"`
}

func (*GuardrailSpanData) isSpanData() {}

// CustomSpanData carries arbitrary user instrumentation.
type CustomSpanData struct {
	Name string         `json:"name"`
	Data map[string]any `json:"data,omitempty"`
}

func (*CustomSpanData) isSpanData() {}

// Span is a timed record of one sub-operation, nested under its parent to
// form a trace. A span is closed exactly once; End is idempotent under
// concurrent calls. All methods are safe for concurrent use.
type Span struct {
	mu       sync.Mutex
	id       string
	parentID string
	kind     SpanKind
	name     string
	start    time.Time
	end      time.Time
	data     SpanData
	err      *SpanError
	ended    bool
	noop     bool
}

func newSpan(parentID string, kind SpanKind, name string, data SpanData) *Span {
	return &Span{
		id:       core.NewID(),
		parentID: parentID,
		kind:     kind,
		name:     name,
		start:    time.Now().UTC(),
		data:     data,
	}
}

// ID returns the span identifier.
func (s *Span) ID() string { return s.id }

// ParentID returns the parent span identifier, empty for the root span.
func (s *Span) ParentID() string { return s.parentID }

// Kind returns the span classification.
func (s *Span) Kind() SpanKind { return s.kind }

// Name returns the span name.
func (s *Span) Name() string { return s.name }

// StartedAt returns the UTC start timestamp.
func (s *Span) StartedAt() time.Time { return s.start }

// EndedAt returns the UTC end timestamp, zero while the span is open.
func (s *Span) EndedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.end
}

// Data returns the typed payload attached at start (or via SetData).
func (s *Span) Data() SpanData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data
}

// SetData replaces the typed payload, e.g. to record a guardrail verdict
// known only after evaluation.
func (s *Span) SetData(data SpanData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = data
}

// SetError attaches an error record to the span.
func (s *Span) SetError(kind, message string, data map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = &SpanError{Kind: kind, Message: message, Data: data}
}

// Err returns the attached error record, nil if none.
func (s *Span) Err() *SpanError {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// End closes the span. Only the first call records the end timestamp;
// subsequent calls are no-ops, guaranteeing end >= start and exactly-once
// close semantics.
func (s *Span) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.ended = true
	s.end = time.Now().UTC()
}

// Ended reports whether the span has been closed.
func (s *Span) Ended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}

// Duration returns end-start for a closed span, elapsed-so-far otherwise.
func (s *Span) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return s.end.Sub(s.start)
	}
	return time.Since(s.start)
}
