package tracing

import (
	"sync"
	"time"

	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/logging"
)

// Exporter receives a completed (possibly partial) trace. Export is called
// exactly once per trace, on success and on failure paths alike.
type Exporter interface {
	Export(t *Trace)
}

// Trace groups all spans of a single top-level run. It has exactly one root
// span (the agent span); child spans reference their parent by id. A trace
// created by a disabled Provider records nothing.
type Trace struct {
	mu       sync.Mutex
	id       string
	name     string
	start    time.Time
	end      time.Time
	root     *Span
	spans    []*Span
	ended    bool
	noop     bool
	exporter Exporter
}

// ID returns the trace identifier.
func (t *Trace) ID() string { return t.id }

// Name returns the trace name.
func (t *Trace) Name() string { return t.name }

// StartSpan opens a child span under parent. A nil parent attaches to the
// root span; the first span ever started becomes the root. The returned span
// must be closed by the caller (use defer for scoped acquire/release).
func (t *Trace) StartSpan(parent *Span, kind SpanKind, name string, data SpanData) *Span {
	if t == nil || t.noop {
		return &Span{noop: true, ended: false, start: time.Now().UTC()}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	parentID := ""
	switch {
	case parent != nil:
		parentID = parent.id
	case t.root != nil:
		parentID = t.root.id
	}

	span := newSpan(parentID, kind, name, data)
	if t.root == nil {
		t.root = span
	}
	t.spans = append(t.spans, span)

	return span
}

// RootSpan returns the root span, nil if no span was started.
func (t *Trace) RootSpan() *Span {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.root
}

// Spans returns a copy of all spans in start order.
func (t *Trace) Spans() []*Span {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	spans := make([]*Span, len(t.spans))
	copy(spans, t.spans)
	return spans
}

// StartedAt returns the UTC start timestamp of the trace.
func (t *Trace) StartedAt() time.Time { return t.start }

// EndedAt returns the UTC end timestamp, zero while the trace is open.
func (t *Trace) EndedAt() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.end
}

// End closes the trace: any span still open is closed defensively, the end
// timestamp is recorded and the trace is handed to the exporter. Only the
// first call has effect. Partial traces (failed runs) are exported too.
func (t *Trace) End() {
	if t == nil || t.noop {
		return
	}

	t.mu.Lock()
	if t.ended {
		t.mu.Unlock()
		return
	}
	t.ended = true
	t.end = time.Now().UTC()
	spans := make([]*Span, len(t.spans))
	copy(spans, t.spans)
	exporter := t.exporter
	t.mu.Unlock()

	for _, span := range spans {
		span.End()
	}

	if exporter != nil {
		exporter.Export(t)
	}
}

// Options configures a Provider.
type Options struct {
	// Disabled turns span recording off; StartTrace returns no-op traces.
	Disabled bool
	// Exporter receives completed traces. Defaults to an InMemoryExporter.
	Exporter Exporter
}

// Provider creates traces and owns the enable/disable flag plus exporter
// target. It is passed explicitly into Runner.Run instead of living in
// process-wide state; lifecycle is owned by the caller.
type Provider struct {
	disabled bool
	exporter Exporter
}

// NewProvider constructs a Provider with optional overrides.
func NewProvider(optFns ...func(o *Options)) *Provider {
	opts := Options{
		Exporter: NewInMemoryExporter(),
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Provider{disabled: opts.Disabled, exporter: opts.Exporter}
}

// StartTrace opens a new trace. When the provider is disabled the returned
// trace records nothing and is never exported.
func (p *Provider) StartTrace(name string) *Trace {
	if p == nil || p.disabled {
		return &Trace{noop: true, start: time.Now().UTC()}
	}

	return &Trace{
		id:       core.NewID(),
		name:     name,
		start:    time.Now().UTC(),
		exporter: p.exporter,
	}
}

// InMemoryExporter retains exported traces for inspection. Safe for
// concurrent use; intended for tests and local debugging.
type InMemoryExporter struct {
	mu     sync.Mutex
	traces []*Trace
}

// NewInMemoryExporter constructs an empty in-memory exporter.
func NewInMemoryExporter() *InMemoryExporter {
	return &InMemoryExporter{}
}

// Export implements Exporter.
func (e *InMemoryExporter) Export(t *Trace) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.traces = append(e.traces, t)
}

// Traces returns a copy of all exported traces in export order.
func (e *InMemoryExporter) Traces() []*Trace {
	e.mu.Lock()
	defer e.mu.Unlock()
	traces := make([]*Trace, len(e.traces))
	copy(traces, e.traces)
	return traces
}

// LogExporter writes one structured line per span through a logging.Logger,
// so failed runs stay diagnosable without a trace collector.
type LogExporter struct {
	logger logging.Logger
}

// NewLogExporter constructs a LogExporter over the given logger.
func NewLogExporter(logger logging.Logger) *LogExporter {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &LogExporter{logger: logger}
}

// Export implements Exporter.
func (e *LogExporter) Export(t *Trace) {
	for _, span := range t.Spans() {
		args := []any{
			"trace_id", t.ID(),
			"span_id", span.ID(),
			"parent_id", span.ParentID(),
			"kind", string(span.Kind()),
			"name", span.Name(),
			"duration_ms", span.Duration().Milliseconds(),
		}
		if spanErr := span.Err(); spanErr != nil {
			args = append(args, "error_kind", spanErr.Kind, "error", spanErr.Message)
			e.logger.Error("trace.span", args...)
			continue
		}
		e.logger.Info("trace.span", args...)
	}
}
