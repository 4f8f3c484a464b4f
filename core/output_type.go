package core

// OutputType describes the shape of an agent's final output. Concrete types
// implement the unexported isOutputType marker enabling a closed set.
type OutputType interface{ isOutputType() }

// TextOutput is the default free-form text output descriptor.
type TextOutput struct{}

func (TextOutput) isOutputType() {}

// JSONOutput requests structured output conforming to a JSON schema.
type JSONOutput struct {
	Name   string         // Logical name of the output shape
	Schema map[string]any // JSON Schema the final output must satisfy
}

func (JSONOutput) isOutputType() {}
