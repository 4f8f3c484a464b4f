package tool

import "fmt"

// Interruption is returned by a tool (as an error) to pause the run and hand
// control back to the caller, typically for human approval of a sensitive
// action. The turn loop stops without persisting the interrupted turn's tool
// items; the caller may resume by starting a new run on the same session.
type Interruption struct {
	// Tool names the interrupting tool.
	Tool string
	// CallID identifies the interrupted call.
	CallID string
	// Reason explains what approval or input is needed.
	Reason string
}

func (e *Interruption) Error() string {
	return fmt.Sprintf("tool %s interrupted the run: %s", e.Tool, e.Reason)
}

// Interrupt constructs an Interruption for the current call.
//
//	return nil, tool.Interrupt(tc, "transfer exceeds approval threshold")
func Interrupt(toolCtx *Context, reason string) *Interruption {
	return &Interruption{CallID: toolCtx.CallID(), Reason: reason}
}
