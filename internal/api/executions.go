package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrWaitTimeout indicates WaitForCompletion gave up before the execution
// reached a terminal state.
var ErrWaitTimeout = errors.New("timed out waiting for execution to complete")

// ExecutionsService tracks and controls workflow executions.
type ExecutionsService struct {
	client *Client
}

// Get fetches the current state of an execution.
func (s *ExecutionsService) Get(ctx context.Context, executionID string) (*Execution, error) {
	var execution Execution
	if _, err := s.client.do(ctx, http.MethodGet, "/executions/"+executionID, nil, nil, &execution, nil); err != nil {
		return nil, err
	}
	return &execution, nil
}

// Cancel requests cancellation of a running execution and returns its
// resulting state.
func (s *ExecutionsService) Cancel(ctx context.Context, executionID string) (*Execution, error) {
	var execution Execution
	if _, err := s.client.do(ctx, http.MethodPost, "/executions/"+executionID+"/cancel", nil, nil, &execution, nil); err != nil {
		return nil, err
	}
	return &execution, nil
}

// WaitForCompletion polls an execution every pollInterval until it reaches
// a terminal state or timeout elapses. Rate-limit errors from individual
// polls do not abort the wait; other errors do.
func (s *ExecutionsService) WaitForCompletion(
	ctx context.Context,
	executionID string,
	pollInterval, timeout time.Duration,
) (*Execution, error) {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		execution, err := s.Get(ctx, executionID)
		switch {
		case err == nil:
			if execution.Terminal() {
				return execution, nil
			}
		case errors.Is(err, ErrRateLimited):
			// Polling is best-effort; let the next tick try again.
		default:
			return nil, err
		}

		if timeout > 0 && time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: execution %s after %s", ErrWaitTimeout, executionID, timeout)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
