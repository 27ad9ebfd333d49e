package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "whsec_test_secret"

func postDelivery(t *testing.T, handler http.Handler, body []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderDeliveryID, "dlv_123")
	if signature != "" {
		req.Header.Set(HeaderSignature, signature)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func executionPayload(t *testing.T, event string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"event": event,
		"data": map[string]any{
			"execution_id": "exec_1",
			"workflow_id":  "wf_1",
			"status":       "completed",
		},
	})
	require.NoError(t, err)
	return body
}

func TestVerifySignature(t *testing.T) {
	payload := []byte(`{"event":"test"}`)
	signature := Sign(testSecret, payload)

	assert.True(t, VerifySignature(testSecret, payload, signature))
	assert.False(t, VerifySignature(testSecret, payload, "v1=deadbeef"))
	assert.False(t, VerifySignature(testSecret, payload, "sha256=abc"), "wrong scheme prefix")
	assert.False(t, VerifySignature(testSecret, payload, "v1=not-hex"))
	assert.False(t, VerifySignature(testSecret, []byte(`tampered`), signature))
	assert.False(t, VerifySignature("other_secret", payload, signature))
}

func TestServer_DispatchesToHandler(t *testing.T) {
	var got Delivery
	registry := NewRegistry().On(EventExecutionCompleted, func(_ context.Context, d Delivery) error {
		got = d
		return nil
	})
	server := NewServer(Config{Secret: testSecret, Strict: true}, registry, zerolog.Nop())

	body := executionPayload(t, EventExecutionCompleted)
	rec := postDelivery(t, server.Handler(), body, Sign(testSecret, body))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received":true}`, rec.Body.String())

	assert.Equal(t, EventExecutionCompleted, got.Event)
	assert.Equal(t, "dlv_123", got.DeliveryID)

	var data ExecutionEventData
	require.NoError(t, json.Unmarshal(got.Data, &data))
	assert.Equal(t, "exec_1", data.ExecutionID)
	assert.Equal(t, "wf_1", data.WorkflowID)
}

func TestServer_StrictRejectsBadSignature(t *testing.T) {
	server := NewServer(Config{Secret: testSecret, Strict: true}, NewRegistry(), zerolog.Nop())

	body := executionPayload(t, EventExecutionFailed)
	rec := postDelivery(t, server.Handler(), body, "v1=0000")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postDelivery(t, server.Handler(), body, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "missing signature rejected in strict mode")
}

func TestServer_LenientAcceptsBadSignature(t *testing.T) {
	var handled bool
	registry := NewRegistry().On(EventTest, func(context.Context, Delivery) error {
		handled = true
		return nil
	})
	server := NewServer(Config{Secret: testSecret, Strict: false}, registry, zerolog.Nop())

	rec := postDelivery(t, server.Handler(), []byte(`{"event":"test","data":{}}`), "v1=0000")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, handled)
}

func TestServer_NoSecretSkipsVerification(t *testing.T) {
	server := NewServer(Config{}, NewRegistry(), zerolog.Nop())

	rec := postDelivery(t, server.Handler(), []byte(`{"event":"test","data":{}}`), "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_InvalidJSON(t *testing.T) {
	server := NewServer(Config{}, NewRegistry(), zerolog.Nop())

	rec := postDelivery(t, server.Handler(), []byte(`{broken`), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_UnknownEventStillAcked(t *testing.T) {
	server := NewServer(Config{}, NewRegistry(), zerolog.Nop())

	rec := postDelivery(t, server.Handler(), []byte(`{"event":"execution.paused","data":{}}`), "")
	assert.Equal(t, http.StatusOK, rec.Code, "unknown events are acked so the server stops redelivering")
}

func TestServer_HandlerErrorStillAcked(t *testing.T) {
	registry := NewRegistry().On(EventTest, func(context.Context, Delivery) error {
		return errors.New("downstream unavailable")
	})
	server := NewServer(Config{}, registry, zerolog.Nop())

	rec := postDelivery(t, server.Handler(), []byte(`{"event":"test","data":{}}`), "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_Health(t *testing.T) {
	server := NewServer(Config{}, NewRegistry(), zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestRegistry_Fallback(t *testing.T) {
	var fallbackEvent string
	registry := NewRegistry().OnUnknown(func(_ context.Context, d Delivery) error {
		fallbackEvent = d.Event
		return nil
	})

	handled, err := registry.Dispatch(context.Background(), Delivery{Event: "execution.paused"})
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, "execution.paused", fallbackEvent)

	bare := NewRegistry()
	handled, err = bare.Dispatch(context.Background(), Delivery{Event: "test"})
	require.NoError(t, err)
	assert.False(t, handled)
}
