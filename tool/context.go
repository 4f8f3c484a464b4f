package tool

import (
	"context"

	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/logging"
)

// ContextParams carries everything needed to build a tool Context. The turn
// loop fills it per call.
type ContextParams struct {
	Context context.Context
	RunID   string
	Agent   string
	CallID  string
	Session core.Session
	Logger  logging.Logger
}

// Context gives a tool implementation scoped access to its invocation:
// identifiers for correlation, the session for mid-run history reads, and a
// logger. It is created per call and must not be retained beyond it.
type Context struct {
	ctx     context.Context
	runID   string
	agent   string
	callID  string
	session core.Session
	logger  logging.Logger
}

// NewContext constructs a tool Context. Missing logger defaults to no-op.
func NewContext(params ContextParams) *Context {
	ctx := params.Context
	if ctx == nil {
		ctx = context.Background()
	}

	logger := params.Logger
	if logger == nil {
		logger = logging.NoOpLogger{}
	}

	return &Context{
		ctx:     ctx,
		runID:   params.RunID,
		agent:   params.Agent,
		callID:  params.CallID,
		session: params.Session,
		logger:  logger,
	}
}

// Context returns the invocation's context for cancellation and deadlines.
// Long-running tools should honor it.
func (c *Context) Context() context.Context { return c.ctx }

// RunID returns the identifier of the run this call belongs to.
func (c *Context) RunID() string { return c.runID }

// Agent returns the name of the agent that issued the call.
func (c *Context) Agent() string { return c.agent }

// CallID returns the function call identifier correlating the model request
// with this execution.
func (c *Context) CallID() string { return c.callID }

// SessionID returns the id of the backing session, or "" when the call runs
// without one.
func (c *Context) SessionID() string {
	if c.session == nil {
		return ""
	}
	return c.session.ID()
}

// History reads the most recent limit items of the session (core.ReadAll for
// everything). Tools without a session get an empty history.
func (c *Context) History(limit int) ([]core.RunItem, error) {
	if c.session == nil {
		return []core.RunItem{}, nil
	}
	return c.session.Read(c.ctx, limit)
}

// Logger returns the invocation-scoped logger.
func (c *Context) Logger() logging.Logger { return c.logger }
