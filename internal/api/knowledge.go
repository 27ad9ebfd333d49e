package api

import (
	"context"
	"net/http"
)

// KnowledgeBasesService queries semantic search corpora.
type KnowledgeBasesService struct {
	client *Client
}

// List returns all knowledge bases visible to the API key.
func (s *KnowledgeBasesService) List(ctx context.Context) ([]KnowledgeBase, error) {
	var bases []KnowledgeBase
	if _, err := s.client.do(ctx, http.MethodGet, "/knowledge-bases", nil, nil, &bases, nil); err != nil {
		return nil, err
	}
	return bases, nil
}

// Get fetches one knowledge base.
func (s *KnowledgeBasesService) Get(ctx context.Context, kbID string) (*KnowledgeBase, error) {
	var kb KnowledgeBase
	if _, err := s.client.do(ctx, http.MethodGet, "/knowledge-bases/"+kbID, nil, nil, &kb, nil); err != nil {
		return nil, err
	}
	return &kb, nil
}

// Query runs a semantic search and returns up to topK ranked results.
func (s *KnowledgeBasesService) Query(ctx context.Context, kbID, query string, topK int) ([]SearchResult, error) {
	body := map[string]any{"query": query}
	if topK > 0 {
		body["top_k"] = topK
	}

	var wrapper struct {
		Results []SearchResult `json:"results"`
	}
	if _, err := s.client.do(ctx, http.MethodPost, "/knowledge-bases/"+kbID+"/query", nil, body, &wrapper, nil); err != nil {
		return nil, err
	}
	return wrapper.Results, nil
}
