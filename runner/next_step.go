package runner

// NextStep classifies what the turn loop should do after a turn settles.
type NextStep int

const (
	// NextStepRunAgain continues with another turn (tool results or a
	// handoff were produced).
	NextStepRunAgain NextStep = iota
	// NextStepComplete ends the run with a final output.
	NextStepComplete
	// NextStepInterrupt pauses the run awaiting external input, typically
	// human approval requested by a tool.
	NextStepInterrupt
)

func (s NextStep) String() string {
	switch s {
	case NextStepRunAgain:
		return "run_again"
	case NextStepComplete:
		return "complete"
	case NextStepInterrupt:
		return "interrupt"
	default:
		return "unknown"
	}
}
