package api

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Execution stream event types delivered over SSE.
const (
	EventConnected          = "connected"
	EventExecutionStarted   = "execution:started"
	EventExecutionProgress  = "execution:progress"
	EventExecutionCompleted = "execution:completed"
	EventExecutionFailed    = "execution:failed"
	EventExecutionCancelled = "execution:cancelled"
	EventNodeStarted        = "node:started"
	EventNodeCompleted      = "node:completed"
	EventNodeFailed         = "node:failed"
)

// Event is one entry from an execution's event stream.
type Event struct {
	Type     string `json:"type"`
	Progress int    `json:"progress,omitempty"`
	NodeID   string `json:"node_id,omitempty"`
	NodeType string `json:"node_type,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Terminal reports whether the event ends the stream.
func (e Event) Terminal() bool {
	switch e.Type {
	case EventExecutionCompleted, EventExecutionFailed, EventExecutionCancelled:
		return true
	}
	return false
}

// Stream subscribes to an execution's server-sent events. The returned
// channel is closed after a terminal event, when the server closes the
// connection, or when ctx is cancelled. Events the client cannot parse are
// logged and skipped.
func (s *ExecutionsService) Stream(ctx context.Context, executionID string) (<-chan Event, error) {
	req, err := s.client.newRequest(ctx, http.MethodGet, "/executions/"+executionID+"/stream", nil, nil, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := s.client.streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api: open event stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer func() { _ = resp.Body.Close() }()
		return nil, newAPIError(resp, nil)
	}

	events := make(chan Event)
	go func() {
		defer close(events)
		defer func() { _ = resp.Body.Close() }()

		scanner := bufio.NewScanner(resp.Body)
		var dataLines []string
		for scanner.Scan() {
			line := scanner.Text()

			// A blank line terminates one SSE message.
			if line != "" {
				if value, ok := strings.CutPrefix(line, "data:"); ok {
					dataLines = append(dataLines, strings.TrimSpace(value))
				}
				continue
			}
			if len(dataLines) == 0 {
				continue
			}

			payload := strings.Join(dataLines, "\n")
			dataLines = dataLines[:0]

			var event Event
			if err := json.Unmarshal([]byte(payload), &event); err != nil {
				s.client.logger.Warn().Err(err).Str("payload", payload).Msg("skipping malformed stream event")
				continue
			}

			select {
			case events <- event:
			case <-ctx.Done():
				return
			}
			if event.Terminal() {
				return
			}
		}
	}()

	return events, nil
}
