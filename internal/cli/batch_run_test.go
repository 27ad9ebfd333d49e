package cli

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbaghiro/flowmaestro/internal/api"
)

// writeItemsFile writes a JSON items file into a temp dir.
func writeItemsFile(t *testing.T, items []map[string]any) string {
	t.Helper()
	data, err := json.Marshal(items)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "items.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

// batchServer simulates workflow execution where item payloads carrying
// "fail": true produce failed executions.
func batchServer(t *testing.T) http.Handler {
	t.Helper()
	var seq atomic.Int64
	var failed sync.Map

	mux := http.NewServeMux()
	mux.HandleFunc("POST /workflows/wf_1/execute", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Inputs map[string]any `json:"inputs"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		id := "exec_" + strconv.FormatInt(seq.Add(1), 10)
		if fail, _ := body.Inputs["fail"].(bool); fail {
			failed.Store(id, true)
		}
		writeData(w, api.ExecutionRef{ExecutionID: id, Status: api.StatusPending})
	})
	mux.HandleFunc("GET /executions/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if _, bad := failed.Load(id); bad {
			writeData(w, api.Execution{ID: id, Status: api.StatusFailed, Error: "boom"})
			return
		}
		writeData(w, api.Execution{ID: id, Status: api.StatusCompleted, Outputs: map[string]any{"ok": true}})
	})
	return mux
}

func TestBatchRunCmd_AllComplete(t *testing.T) {
	app := newTestApp(t, batchServer(t))
	path := writeItemsFile(t, []map[string]any{
		{"email": "a@example.com"},
		{"email": "b@example.com"},
		{"email": "c@example.com"},
	})

	out, err := executeCommand(t, app, "batch", "run", "wf_1",
		"--input", path, "--concurrency", "2", "--plain")
	require.NoError(t, err)

	assert.Contains(t, out, "Processing 3 items with concurrency 2")
	assert.Contains(t, out, "Completed:    3")
	assert.Contains(t, out, "Failed:       0")
	assert.Contains(t, out, "Success rate: 100.0%")
}

func TestBatchRunCmd_PartialFailureExitsNonzero(t *testing.T) {
	app := newTestApp(t, batchServer(t))
	path := writeItemsFile(t, []map[string]any{
		{"email": "a@example.com"},
		{"email": "b@example.com", "fail": true},
		{"email": "c@example.com"},
		{"email": "d@example.com", "fail": true},
	})

	out, err := executeCommand(t, app, "batch", "run", "wf_1",
		"--input", path, "--concurrency", "4", "--plain")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 of 4 items failed")

	assert.Contains(t, out, "Completed:    2")
	assert.Contains(t, out, "Failed:       2")
	assert.Contains(t, out, "Success rate: 50.0%")
	assert.Contains(t, out, "Failed items:")
	assert.Contains(t, out, "boom")
}

func TestBatchRunCmd_MissingInputFile(t *testing.T) {
	app := newTestApp(t, batchServer(t))

	_, err := executeCommand(t, app, "batch", "run", "wf_1",
		"--input", filepath.Join(t.TempDir(), "absent.json"), "--plain")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read input file")
}

func TestBatchRunCmd_RejectsNonArrayInput(t *testing.T) {
	app := newTestApp(t, batchServer(t))
	path := filepath.Join(t.TempDir(), "items.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"not": "an array"}`), 0o600))

	_, err := executeCommand(t, app, "batch", "run", "wf_1", "--input", path, "--plain")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected a JSON array")
}

func TestBatchRunCmd_EmptyInputFile(t *testing.T) {
	app := newTestApp(t, batchServer(t))
	path := writeItemsFile(t, []map[string]any{})

	_, err := executeCommand(t, app, "batch", "run", "wf_1", "--input", path, "--plain")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no items")
}
