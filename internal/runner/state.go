package runner

// State is where a loop run is, or where it stopped.
type State int

const (
	AwaitingModel State = iota
	RespondedFinal
	RespondedWithTools
	BudgetExhausted
	ModelCallFailed
)

func (s State) String() string {
	switch s {
	case AwaitingModel:
		return "awaiting_model"
	case RespondedFinal:
		return "responded_final"
	case RespondedWithTools:
		return "responded_with_tools"
	case BudgetExhausted:
		return "budget_exhausted"
	case ModelCallFailed:
		return "model_call_failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether a run stops in s.
func (s State) Terminal() bool {
	return s == RespondedFinal || s == BudgetExhausted || s == ModelCallFailed
}

// Outcome summarises one run. Cost is the amount added during the run.
type Outcome struct {
	State State
	Calls int
	Cost  float64
}
