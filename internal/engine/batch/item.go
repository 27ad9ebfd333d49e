package batch

// State describes where a work item is in its lifecycle.
type State string

// Work item lifecycle states. Completed and Failed are terminal; an item
// never transitions out of a terminal state.
const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Terminal returns true for states that end an item's lifecycle.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Payload is the opaque input for a single unit of work.
type Payload map[string]any

// WorkItem records the outcome of processing one input payload.
// Each item is mutated only by the worker that owns its index and is
// immutable once it reaches a terminal state.
type WorkItem struct {
	// Index is the item's stable position in the input sequence.
	Index int `json:"index"`

	// Payload is the input handed to the unit of work.
	Payload Payload `json:"payload"`

	// State is the item's current lifecycle state.
	State State `json:"state"`

	// Result holds the unit of work's output for completed items.
	Result map[string]any `json:"result,omitempty"`

	// Err is a human-readable failure description for failed items.
	Err string `json:"error,omitempty"`

	// RetryCount is the number of retries consumed by transient failures.
	RetryCount int `json:"retry_count"`
}
