package webhook

import (
	"context"
	"encoding/json"
	"time"
)

// Event types delivered by FlowMaestro webhooks.
const (
	EventExecutionStarted   = "execution.started"
	EventExecutionCompleted = "execution.completed"
	EventExecutionFailed    = "execution.failed"
	EventMessageCreated     = "thread.message.created"
	EventMessageCompleted   = "thread.message.completed"
	EventTest               = "test"
)

// Delivery is the envelope of one webhook notification.
type Delivery struct {
	// Event is the notification type, e.g. "execution.completed".
	Event string `json:"event"`

	// CreatedAt is when the event occurred on the server.
	CreatedAt time.Time `json:"created_at"`

	// Data is the event-specific payload.
	Data json.RawMessage `json:"data"`

	// DeliveryID is taken from the X-FlowMaestro-Delivery-ID header.
	DeliveryID string `json:"-"`
}

// ExecutionEventData is the payload of execution.* events.
type ExecutionEventData struct {
	ExecutionID string         `json:"execution_id"`
	WorkflowID  string         `json:"workflow_id"`
	Status      string         `json:"status,omitempty"`
	Outputs     map[string]any `json:"outputs,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// MessageEventData is the payload of thread.message.* events.
type MessageEventData struct {
	ThreadID  string `json:"thread_id"`
	MessageID string `json:"message_id"`
	Role      string `json:"role,omitempty"`
	Content   string `json:"content,omitempty"`
}

// Handler processes one verified delivery. Returned errors are logged; the
// delivery is acknowledged regardless so the server does not redeliver
// events the receiver cannot handle.
type Handler func(ctx context.Context, delivery Delivery) error

// Registry routes deliveries to handlers by event type.
type Registry struct {
	handlers map[string]Handler
	fallback Handler
}

// NewRegistry creates an empty handler registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// On registers a handler for one event type, replacing any previous one.
func (r *Registry) On(event string, handler Handler) *Registry {
	r.handlers[event] = handler
	return r
}

// OnUnknown registers a fallback handler for event types with no
// registered handler.
func (r *Registry) OnUnknown(handler Handler) *Registry {
	r.fallback = handler
	return r
}

// Dispatch routes a delivery to its handler. Returns false when no handler
// (including the fallback) was registered for the event type.
func (r *Registry) Dispatch(ctx context.Context, delivery Delivery) (bool, error) {
	if handler, ok := r.handlers[delivery.Event]; ok {
		return true, handler(ctx, delivery)
	}
	if r.fallback != nil {
		return true, r.fallback(ctx, delivery)
	}
	return false, nil
}
