// Package model defines the provider-neutral boundary between the turn loop
// and LLM backends: a normalized Request/Response pair, the Model interface,
// and the reserved transfer function through which models request agent
// handoffs. Provider adapters live in subpackages (openai, anthropic); a
// deterministic MockModel supports tests and examples.
package model
