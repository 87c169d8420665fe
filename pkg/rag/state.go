package rag

// State is a phase of one exchange.
type State int

const (
	StateIdle State = iota
	StateRetrieving
	StateAssembling
	StateGenerating
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRetrieving:
		return "retrieving"
	case StateAssembling:
		return "assembling"
	case StateGenerating:
		return "generating"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
