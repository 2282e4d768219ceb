package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/commlogs-systems/commlogs-collector/internal/auth"
	"github.com/commlogs-systems/commlogs-collector/internal/httputil"
	"github.com/commlogs-systems/commlogs-collector/internal/logging"
	"github.com/commlogs-systems/commlogs-collector/internal/metrics"
	"github.com/commlogs-systems/commlogs-collector/internal/models"
	"github.com/commlogs-systems/commlogs-collector/internal/ratelimit"
	"github.com/commlogs-systems/commlogs-collector/internal/writer"
)

// BatchQueue is the slice of the async persistence engine the handler needs.
type BatchQueue interface {
	Enqueue(records []models.Record) (string, error)
}

// IngestResponse acknowledges an admitted batch. The ack precedes durability:
// the batch is persisted by the writer after this response is sent.
type IngestResponse struct {
	OK       bool `json:"ok"`
	Ingested int  `json:"ingested"`
}

type IngestHandler struct {
	gate    *auth.Gate
	queue   BatchQueue
	limiter ratelimit.RateLimiter
	logger  *logging.Logger
}

func NewIngestHandler(gate *auth.Gate, queue BatchQueue, limiter ratelimit.RateLimiter, logger *logging.Logger) *IngestHandler {
	if limiter == nil {
		limiter = ratelimit.NoOpRateLimiter{}
	}
	return &IngestHandler{
		gate:    gate,
		queue:   queue,
		limiter: limiter,
		logger:  logger,
	}
}

// HandleIngest runs the admission pipeline: auth gate, rate limit, schema
// validation, size check, transform, enqueue. Every failure here happens
// before any persistence attempt.
func (h *IngestHandler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.WriteError(w, http.StatusMethodNotAllowed, httputil.KindMethodNotAllowed, "only POST is supported")
		return
	}

	key := r.Header.Get("X-API-KEY")
	if err := h.gate.Authorize(key); err != nil {
		httputil.WriteError(w, http.StatusUnauthorized, httputil.KindUnauthorized, "missing or invalid API key")
		return
	}

	limitKey := key
	if limitKey == "" {
		limitKey = httputil.GetClientIP(r)
	}
	allowed, err := h.limiter.Allow(r.Context(), limitKey)
	if err != nil {
		// Fail open: a broken limiter should not take ingestion down.
		h.logger.WithContext(r.Context()).Warn("rate limiter unavailable", logging.FieldError, err.Error())
	} else if !allowed {
		httputil.WriteError(w, http.StatusTooManyRequests, httputil.KindRateLimited, "ingestion rate limit exceeded")
		return
	}

	var events []models.LogEvent
	if err := json.NewDecoder(r.Body).Decode(&events); err != nil {
		metrics.BatchesTotal.WithLabelValues("rejected").Inc()
		httputil.WriteError(w, http.StatusUnprocessableEntity, httputil.KindValidation, "request body must be a JSON array of events")
		return
	}

	if len(events) == 0 {
		httputil.WriteJSON(w, http.StatusOK, IngestResponse{OK: true, Ingested: 0})
		return
	}

	// Schema validation runs before any admission rule, so a malformed event
	// is reported as a validation failure even in an oversized batch.
	for i := range events {
		if err := events[i].Validate(); err != nil {
			metrics.BatchesTotal.WithLabelValues("rejected").Inc()
			httputil.WriteError(w, http.StatusUnprocessableEntity, httputil.KindValidation,
				fmt.Sprintf("event %d: %v", i, err))
			return
		}
	}

	if len(events) > models.MaxBatchSize {
		metrics.BatchesTotal.WithLabelValues("rejected").Inc()
		httputil.WriteError(w, http.StatusRequestEntityTooLarge, httputil.KindPayloadTooLarge,
			fmt.Sprintf("batch size %d exceeds limit of %d", len(events), models.MaxBatchSize))
		return
	}

	records := make([]models.Record, 0, len(events))
	for i := range events {
		records = append(records, events[i].Normalize())
	}

	batchID, err := h.queue.Enqueue(records)
	if err != nil {
		metrics.BatchesTotal.WithLabelValues("rejected").Inc()
		if errors.Is(err, writer.ErrBusy) || errors.Is(err, writer.ErrClosed) {
			httputil.WriteError(w, http.StatusServiceUnavailable, httputil.KindServerBusy, "ingestion queue is full, retry later")
			return
		}
		h.logger.WithContext(r.Context()).Error("failed to enqueue batch", logging.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, httputil.KindInternal, "failed to accept batch")
		return
	}

	metrics.EventsTotal.WithLabelValues("accepted").Add(float64(len(records)))
	metrics.BatchesTotal.WithLabelValues("accepted").Inc()
	h.logger.WithContext(r.Context()).Debug("batch admitted",
		logging.BatchID(batchID), logging.Count(len(records)))

	httputil.WriteJSON(w, http.StatusOK, IngestResponse{OK: true, Ingested: len(records)})
}
