package api

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sseHandler(t *testing.T, events []string) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "text/event-stream")

		flusher, ok := w.(http.Flusher)
		require.True(t, ok)
		for _, event := range events {
			_, err := fmt.Fprintf(w, "data: %s\n\n", event)
			require.NoError(t, err)
			flusher.Flush()
		}
	})
}

func collect(events <-chan Event) []Event {
	var got []Event
	for event := range events {
		got = append(got, event)
	}
	return got
}

func TestStream_EventSequence(t *testing.T) {
	client, _ := newTestClient(t, sseHandler(t, []string{
		`{"type":"connected"}`,
		`{"type":"execution:started"}`,
		`{"type":"node:started","node_id":"n1","node_type":"http"}`,
		`{"type":"execution:progress","progress":50}`,
		`{"type":"node:completed","node_id":"n1"}`,
		`{"type":"execution:completed"}`,
	}))

	events, err := client.Executions.Stream(context.Background(), "exec_1")
	require.NoError(t, err)

	got := collect(events)
	require.Len(t, got, 6)
	assert.Equal(t, EventConnected, got[0].Type)
	assert.Equal(t, "n1", got[2].NodeID)
	assert.Equal(t, "http", got[2].NodeType)
	assert.Equal(t, 50, got[3].Progress)
	assert.True(t, got[5].Terminal())
}

func TestStream_StopsAtTerminalEvent(t *testing.T) {
	client, _ := newTestClient(t, sseHandler(t, []string{
		`{"type":"execution:failed","error":"node n2 crashed"}`,
		`{"type":"connected"}`, // never delivered
	}))

	events, err := client.Executions.Stream(context.Background(), "exec_1")
	require.NoError(t, err)

	got := collect(events)
	require.Len(t, got, 1)
	assert.Equal(t, EventExecutionFailed, got[0].Type)
	assert.Equal(t, "node n2 crashed", got[0].Error)
}

func TestStream_SkipsMalformedEvents(t *testing.T) {
	client, _ := newTestClient(t, sseHandler(t, []string{
		`{not json`,
		`{"type":"execution:completed"}`,
	}))

	events, err := client.Executions.Stream(context.Background(), "exec_1")
	require.NoError(t, err)

	got := collect(events)
	require.Len(t, got, 1)
	assert.Equal(t, EventExecutionCompleted, got[0].Type)
}

func TestStream_ErrorStatus(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := client.Executions.Stream(context.Background(), "exec_missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEvent_Terminal(t *testing.T) {
	terminal := []string{EventExecutionCompleted, EventExecutionFailed, EventExecutionCancelled}
	for _, typ := range terminal {
		assert.True(t, Event{Type: typ}.Terminal(), typ)
	}

	ongoing := []string{EventConnected, EventExecutionStarted, EventExecutionProgress, EventNodeStarted, EventNodeCompleted, EventNodeFailed}
	for _, typ := range ongoing {
		assert.False(t, Event{Type: typ}.Terminal(), typ)
	}
}
