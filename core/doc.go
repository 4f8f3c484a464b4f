// Package core provides the foundational domain types used across agentloop.
// It defines:
//
//   - RunItem (the closed set of conversation history variants plus their
//     wire-stable JSON interchange envelope)
//   - Session (the ordered, appendable conversation memory contract)
//   - OutputType (the agent output descriptor sum type)
//   - The shared error taxonomy surfaced to callers of a run
//
// The package intentionally keeps implementation concerns (persistence,
// turn-loop orchestration, concrete model adapters) out of scope, exposing
// small interfaces to enable custom backends and extensions.
package core
