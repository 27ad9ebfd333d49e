package api

import "time"

// Execution status values reported by the API.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Pagination describes the paging metadata returned by list endpoints.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalCount int `json:"total_count"`
	TotalPages int `json:"total_pages"`
}

// Workflow is a workflow definition.
type Workflow struct {
	ID          string                   `json:"id"`
	Name        string                   `json:"name"`
	Description string                   `json:"description,omitempty"`
	Version     int                      `json:"version"`
	Inputs      map[string]WorkflowInput `json:"inputs,omitempty"`
	CreatedAt   time.Time                `json:"created_at"`
	UpdatedAt   time.Time                `json:"updated_at"`
}

// WorkflowInput describes one declared workflow input.
type WorkflowInput struct {
	Type        string `json:"type"`
	Required    bool   `json:"required"`
	Description string `json:"description,omitempty"`
}

// ExecutionRef is the acknowledgment returned when an execution is started.
type ExecutionRef struct {
	ExecutionID string `json:"execution_id"`
	Status      string `json:"status"`
}

// Execution is the full state of a workflow execution.
type Execution struct {
	ID          string         `json:"id"`
	WorkflowID  string         `json:"workflow_id"`
	Status      string         `json:"status"`
	Inputs      map[string]any `json:"inputs,omitempty"`
	Outputs     map[string]any `json:"outputs,omitempty"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// Terminal reports whether the execution has finished.
func (e *Execution) Terminal() bool {
	switch e.Status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Agent is an AI agent definition.
type Agent struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Model       string `json:"model"`
	Description string `json:"description,omitempty"`
}

// Thread is a conversation thread with an agent.
type Thread struct {
	ID        string            `json:"id"`
	AgentID   string            `json:"agent_id"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// Message is a single message within a thread.
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// MessageAck is returned after sending a message to a thread.
type MessageAck struct {
	MessageID string `json:"message_id"`
	Status    string `json:"status"`
}

// KnowledgeBase is a semantic search corpus.
type KnowledgeBase struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	EmbeddingModel string `json:"embedding_model"`
	ChunkSize      int    `json:"chunk_size"`
	DocumentCount  int    `json:"document_count"`
	ChunkCount     int    `json:"chunk_count"`
}

// SearchResult is one ranked hit from a knowledge base query.
type SearchResult struct {
	DocumentID   string            `json:"document_id"`
	DocumentName string            `json:"document_name,omitempty"`
	Content      string            `json:"content"`
	Score        float64           `json:"score"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Health is the API health and compatibility report.
type Health struct {
	Status           string `json:"status"`
	APIVersion       string `json:"api_version"`
	MinClientVersion string `json:"min_client_version,omitempty"`
}
