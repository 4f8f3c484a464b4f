package tool

import (
	"context"

	"github.com/hupe1980/agentloop/core"
)

// Toolset supplies a group of tools resolved at run start, typically from a
// remote server. Implementations that cannot (yet) serve a capability return
// an error matching core.ErrNotSupported; the turn loop treats that as a
// distinct outcome and skips the toolset instead of failing the run.
type Toolset interface {
	// Name identifies the toolset for logging.
	Name() string

	// Connect establishes the underlying connection. Called once per run
	// before ListTools.
	Connect(ctx context.Context) error

	// ListTools returns the tools currently exposed by the set.
	ListTools(ctx context.Context) ([]Tool, error)

	// Close releases the connection. Called once per run after the run ends.
	Close() error
}

// StaticToolset is a Toolset over a fixed local tool list. Connect and Close
// are no-ops.
type StaticToolset struct {
	name  string
	tools []Tool
}

// NewStaticToolset groups the given tools under a name.
func NewStaticToolset(name string, tools ...Tool) *StaticToolset {
	return &StaticToolset{name: name, tools: tools}
}

// Name implements Toolset.
func (s *StaticToolset) Name() string { return s.name }

// Connect implements Toolset.
func (s *StaticToolset) Connect(context.Context) error { return nil }

// ListTools implements Toolset.
func (s *StaticToolset) ListTools(context.Context) ([]Tool, error) {
	tools := make([]Tool, len(s.tools))
	copy(tools, s.tools)
	return tools, nil
}

// Close implements Toolset.
func (s *StaticToolset) Close() error { return nil }

// UnimplementedToolset is a placeholder for remote toolset protocols that are
// declared but not wired up. Every operation reports the capability as not
// supported; embed it to stub future integrations.
type UnimplementedToolset struct {
	// Protocol names the unavailable integration, e.g. "mcp".
	Protocol string
}

// Name implements Toolset.
func (u UnimplementedToolset) Name() string { return u.Protocol }

// Connect implements Toolset.
func (u UnimplementedToolset) Connect(context.Context) error {
	return &core.NotSupportedError{Capability: u.Protocol + " toolset connect"}
}

// ListTools implements Toolset.
func (u UnimplementedToolset) ListTools(context.Context) ([]Tool, error) {
	return nil, &core.NotSupportedError{Capability: u.Protocol + " toolset listing"}
}

// Close implements Toolset.
func (u UnimplementedToolset) Close() error { return nil }
