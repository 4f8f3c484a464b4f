package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/agentloop/core"
)

// MockModel is a deterministic in-memory Model useful for tests and
// examples. Responses are served from a FIFO queue; every received request
// is recorded for assertions.
type MockModel struct {
	mu       sync.Mutex
	info     Info
	queue    []Response
	requests []Request

	// GenerateFn, when set, overrides the queue entirely.
	GenerateFn func(ctx context.Context, req Request) (*Response, error)
}

// NewMockModel constructs a MockModel with tool support enabled.
func NewMockModel() *MockModel {
	return &MockModel{
		info: Info{
			Name:          "mock",
			Provider:      "mock",
			SupportsTools: true,
		},
	}
}

// Enqueue appends a canned response to the queue.
func (m *MockModel) Enqueue(resp Response) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, resp)
	return m
}

// EnqueueMessage appends a final-message response.
func (m *MockModel) EnqueueMessage(message string) *MockModel {
	return m.Enqueue(Response{Message: message})
}

// EnqueueToolCalls appends a response requesting the given tool calls.
func (m *MockModel) EnqueueToolCalls(calls ...core.ToolCall) *MockModel {
	return m.Enqueue(Response{ToolCalls: calls})
}

// EnqueueHandoff appends a response transferring control to target.
func (m *MockModel) EnqueueHandoff(target, reason string) *MockModel {
	return m.Enqueue(Response{Handoff: &HandoffRequest{Target: target, Reason: reason}})
}

// Requests returns a copy of all requests received so far.
func (m *MockModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()

	reqs := make([]Request, len(m.requests))
	copy(reqs, m.requests)
	return reqs
}

// Generate implements Model.
func (m *MockModel) Generate(ctx context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	fn := m.GenerateFn
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if fn != nil {
		return fn(ctx, req)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.queue) == 0 {
		return nil, fmt.Errorf("mock model queue exhausted after %d requests", len(m.requests))
	}

	resp := m.queue[0]
	m.queue = m.queue[1:]
	return &resp, nil
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }
