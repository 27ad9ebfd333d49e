package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// WorkflowsService accesses workflow definitions and starts executions.
type WorkflowsService struct {
	client *Client
}

// ListOptions selects a page of a list endpoint.
type ListOptions struct {
	Page    int
	PerPage int
}

func (o ListOptions) values() url.Values {
	query := url.Values{}
	if o.Page > 0 {
		query.Set("page", strconv.Itoa(o.Page))
	}
	if o.PerPage > 0 {
		query.Set("per_page", strconv.Itoa(o.PerPage))
	}
	return query
}

// List returns a page of workflows.
func (s *WorkflowsService) List(ctx context.Context, opts ListOptions) ([]Workflow, *Pagination, error) {
	var workflows []Workflow
	pagination, err := s.client.do(ctx, http.MethodGet, "/workflows", opts.values(), nil, &workflows, nil)
	if err != nil {
		return nil, nil, err
	}
	return workflows, pagination, nil
}

// Get fetches one workflow definition.
func (s *WorkflowsService) Get(ctx context.Context, workflowID string) (*Workflow, error) {
	var workflow Workflow
	if _, err := s.client.do(ctx, http.MethodGet, "/workflows/"+workflowID, nil, nil, &workflow, nil); err != nil {
		return nil, err
	}
	return &workflow, nil
}

// Execute starts a workflow with the given inputs. An Idempotency-Key
// header is attached so network-level retries cannot double-start the
// execution.
func (s *WorkflowsService) Execute(ctx context.Context, workflowID string, inputs map[string]any) (*ExecutionRef, error) {
	body := map[string]any{"inputs": inputs}
	headers := http.Header{"Idempotency-Key": []string{newIdempotencyKey()}}

	var ref ExecutionRef
	if _, err := s.client.do(ctx, http.MethodPost, "/workflows/"+workflowID+"/execute", nil, body, &ref, headers); err != nil {
		return nil, err
	}
	return &ref, nil
}
