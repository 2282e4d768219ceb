package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commlogs-systems/commlogs-collector/internal/auth"
	"github.com/commlogs-systems/commlogs-collector/internal/logging"
	"github.com/commlogs-systems/commlogs-collector/internal/models"
	"github.com/commlogs-systems/commlogs-collector/internal/writer"
)

type stubQueue struct {
	batches [][]models.Record
	err     error
}

func (s *stubQueue) Enqueue(records []models.Record) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.batches = append(s.batches, records)
	return "batch-1", nil
}

func newIngestHandler(secret string, queue *stubQueue) *IngestHandler {
	return NewIngestHandler(auth.NewGate(secret), queue, nil, logging.Default())
}

func postIngest(t *testing.T, h *IngestHandler, apiKey string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/ingest", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-KEY", apiKey)
	}
	rr := httptest.NewRecorder()
	h.HandleIngest(rr, req)
	return rr
}

func eventsJSON(t *testing.T, n int) []byte {
	t.Helper()
	events := make([]map[string]any, n)
	for i := range events {
		events[i] = map[string]any{"ts": "2025-11-18T03:30:00Z", "status": "ok"}
	}
	data, err := json.Marshal(events)
	require.NoError(t, err)
	return data
}

func TestHandleIngestAcceptsBatch(t *testing.T) {
	queue := &stubQueue{}
	h := newIngestHandler("secret123", queue)

	rr := postIngest(t, h, "secret123", eventsJSON(t, 3))

	require.Equal(t, http.StatusOK, rr.Code)

	var resp IngestResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.True(t, resp.OK)
	assert.Equal(t, 3, resp.Ingested)

	require.Len(t, queue.batches, 1)
	assert.Len(t, queue.batches[0], 3)
}

func TestHandleIngestEmptyBatch(t *testing.T) {
	queue := &stubQueue{}
	h := newIngestHandler("secret123", queue)

	rr := postIngest(t, h, "secret123", []byte("[]"))

	require.Equal(t, http.StatusOK, rr.Code)

	var resp IngestResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.True(t, resp.OK)
	assert.Equal(t, 0, resp.Ingested)

	// An empty batch never reaches the persistence engine.
	assert.Empty(t, queue.batches)
}

func TestHandleIngestOversizedBatch(t *testing.T) {
	queue := &stubQueue{}
	h := newIngestHandler("secret123", queue)

	rr := postIngest(t, h, "secret123", eventsJSON(t, models.MaxBatchSize+1))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	assert.Contains(t, rr.Body.String(), "payload_too_large")
	assert.Empty(t, queue.batches)
}

func TestHandleIngestMaxBatchAccepted(t *testing.T) {
	queue := &stubQueue{}
	h := newIngestHandler("secret123", queue)

	rr := postIngest(t, h, "secret123", eventsJSON(t, models.MaxBatchSize))

	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, queue.batches, 1)
	assert.Len(t, queue.batches[0], models.MaxBatchSize)
}

func TestHandleIngestAuth(t *testing.T) {
	tests := []struct {
		name     string
		secret   string
		key      string
		wantCode int
	}{
		{name: "missing key", secret: "secret123", key: "", wantCode: http.StatusUnauthorized},
		{name: "wrong key", secret: "secret123", key: "wrong", wantCode: http.StatusUnauthorized},
		{name: "correct key", secret: "secret123", key: "secret123", wantCode: http.StatusOK},
		{name: "disabled auth accepts any key", secret: "", key: "anything", wantCode: http.StatusOK},
		{name: "disabled auth still rejects missing key", secret: "", key: "", wantCode: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			queue := &stubQueue{}
			h := newIngestHandler(tt.secret, queue)

			rr := postIngest(t, h, tt.key, []byte("[]"))
			assert.Equal(t, tt.wantCode, rr.Code)
			if tt.wantCode == http.StatusUnauthorized {
				assert.Contains(t, rr.Body.String(), "unauthorized")
			}
		})
	}
}

func TestHandleIngestMalformedBody(t *testing.T) {
	queue := &stubQueue{}
	h := newIngestHandler("secret123", queue)

	for _, body := range []string{
		`{"ts":"2025-11-18T03:30:00Z"}`, // object, not array
		`not json`,
		`[{"ts":"2025-11-18T03:30:00Z","src_port":"abc"}]`, // wrong field type
	} {
		rr := postIngest(t, h, "secret123", []byte(body))
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code, "body %q", body)
		assert.Contains(t, rr.Body.String(), "validation")
	}
	assert.Empty(t, queue.batches)
}

func TestHandleIngestMissingTimestamp(t *testing.T) {
	queue := &stubQueue{}
	h := newIngestHandler("secret123", queue)

	rr := postIngest(t, h, "secret123", []byte(`[{"ts":"2025-11-18T03:30:00Z"},{"source_host":"web-1"}]`))

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "event 1")
	// The whole batch is rejected; nothing is enqueued.
	assert.Empty(t, queue.batches)
}

func TestHandleIngestValidationPrecedesSizeCheck(t *testing.T) {
	queue := &stubQueue{}
	h := newIngestHandler("secret123", queue)

	// Oversized batch whose first event is also missing its timestamp: the
	// schema failure wins over the size check.
	events := make([]map[string]any, models.MaxBatchSize+1)
	events[0] = map[string]any{"status": "ok"}
	for i := 1; i < len(events); i++ {
		events[i] = map[string]any{"ts": "2025-11-18T03:30:00Z"}
	}
	body, err := json.Marshal(events)
	require.NoError(t, err)

	rr := postIngest(t, h, "secret123", body)

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "validation")
	assert.Contains(t, rr.Body.String(), "event 0")
	assert.Empty(t, queue.batches)
}

func TestHandleIngestQueueFull(t *testing.T) {
	queue := &stubQueue{err: writer.ErrBusy}
	h := newIngestHandler("secret123", queue)

	rr := postIngest(t, h, "secret123", eventsJSON(t, 5))

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "server_busy")
}

func TestHandleIngestMethodNotAllowed(t *testing.T) {
	h := newIngestHandler("secret123", &stubQueue{})

	req := httptest.NewRequest(http.MethodGet, "/ingest", strings.NewReader(""))
	rr := httptest.NewRecorder()
	h.HandleIngest(rr, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestHandleIngestTagsDefault(t *testing.T) {
	queue := &stubQueue{}
	h := newIngestHandler("secret123", queue)

	rr := postIngest(t, h, "secret123", []byte(fmt.Sprintf(`[{"ts":%q}]`, "2025-11-18T03:30:00Z")))

	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, queue.batches, 1)
	require.NotNil(t, queue.batches[0][0].Tags)
	assert.Empty(t, queue.batches[0][0].Tags)
}
