package api

import (
	"context"
	"net/http"
)

// AgentsService accesses AI agents and creates conversation threads.
type AgentsService struct {
	client *Client
}

// Get fetches one agent definition.
func (s *AgentsService) Get(ctx context.Context, agentID string) (*Agent, error) {
	var agent Agent
	if _, err := s.client.do(ctx, http.MethodGet, "/agents/"+agentID, nil, nil, &agent, nil); err != nil {
		return nil, err
	}
	return &agent, nil
}

// CreateThread opens a new conversation thread with an agent.
func (s *AgentsService) CreateThread(ctx context.Context, agentID string, metadata map[string]string) (*Thread, error) {
	body := map[string]any{"metadata": metadata}

	var thread Thread
	if _, err := s.client.do(ctx, http.MethodPost, "/agents/"+agentID+"/threads", nil, body, &thread, nil); err != nil {
		return nil, err
	}
	return &thread, nil
}

// ThreadsService exchanges messages on conversation threads.
type ThreadsService struct {
	client *Client
}

// SendMessage posts a user message to a thread. The agent's reply is
// retrieved with ListMessages once the ack reports completion.
func (s *ThreadsService) SendMessage(ctx context.Context, threadID, content string) (*MessageAck, error) {
	body := map[string]any{"content": content}

	var ack MessageAck
	if _, err := s.client.do(ctx, http.MethodPost, "/threads/"+threadID+"/messages", nil, body, &ack, nil); err != nil {
		return nil, err
	}
	return &ack, nil
}

// ListMessages returns a thread's messages in chronological order.
func (s *ThreadsService) ListMessages(ctx context.Context, threadID string) ([]Message, error) {
	var wrapper struct {
		Messages []Message `json:"messages"`
	}
	if _, err := s.client.do(ctx, http.MethodGet, "/threads/"+threadID+"/messages", nil, nil, &wrapper, nil); err != nil {
		return nil, err
	}
	return wrapper.Messages, nil
}

// Delete removes a thread and its messages.
func (s *ThreadsService) Delete(ctx context.Context, threadID string) error {
	_, err := s.client.do(ctx, http.MethodDelete, "/threads/"+threadID, nil, nil, nil, nil)
	return err
}
