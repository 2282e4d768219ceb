package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/commlogs-systems/commlogs-collector/internal/httputil"
	"github.com/commlogs-systems/commlogs-collector/internal/logging"
	"github.com/commlogs-systems/commlogs-collector/internal/models"
)

// Lookback and limit bounds per query type.
const (
	volumeMaxMinutes    = 1440  // 24h
	errorMaxMinutes     = 10080 // 7d
	topSrcMaxMinutes    = 1440
	topSrcMaxLimit      = 100
	defaultVolumeMin    = 60
	defaultErrorMin     = 1440
	defaultTopSrcMin    = 60
	defaultTopSrcLimit  = 10
	metricsQueryTimeout = 15 * time.Second
)

// MetricsStore is the read-only slice of the store the query engine uses.
type MetricsStore interface {
	VolumeByBucket(ctx context.Context, bucket models.Bucket, w models.Window) ([]models.BucketCount, error)
	ErrorSummary(ctx context.Context, w models.Window) (models.ErrorSummary, error)
	TopSources(ctx context.Context, w models.Window, limit int) ([]models.SourceCount, error)
}

type MetricsHandler struct {
	store  MetricsStore
	logger *logging.Logger
	now    func() time.Time
}

func NewMetricsHandler(store MetricsStore, logger *logging.Logger) *MetricsHandler {
	return &MetricsHandler{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// HandleVolume serves time-bucketed counts over a lookback window.
func (h *MetricsHandler) HandleVolume(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.WriteError(w, http.StatusMethodNotAllowed, httputil.KindMethodNotAllowed, "only GET is supported")
		return
	}

	bucketParam := r.URL.Query().Get("bucket")
	if bucketParam == "" {
		bucketParam = string(models.BucketMinute)
	}
	bucket, err := models.ParseBucket(bucketParam)
	if err != nil {
		httputil.WriteError(w, http.StatusUnprocessableEntity, httputil.KindValidation, err.Error())
		return
	}

	minutes, err := httputil.IntParamInRange(r, "minutes", defaultVolumeMin, 1, volumeMaxMinutes)
	if err != nil {
		httputil.WriteError(w, http.StatusUnprocessableEntity, httputil.KindValidation, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), metricsQueryTimeout)
	defer cancel()

	data, err := h.store.VolumeByBucket(ctx, bucket, models.NewWindow(h.now(), minutes))
	if err != nil {
		h.queryFailed(w, r, "volume", err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{"data": data})
}

// HandleErrorRate serves the (total, errors, error_pct) summary.
func (h *MetricsHandler) HandleErrorRate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.WriteError(w, http.StatusMethodNotAllowed, httputil.KindMethodNotAllowed, "only GET is supported")
		return
	}

	minutes, err := httputil.IntParamInRange(r, "minutes", defaultErrorMin, 1, errorMaxMinutes)
	if err != nil {
		httputil.WriteError(w, http.StatusUnprocessableEntity, httputil.KindValidation, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), metricsQueryTimeout)
	defer cancel()

	summary, err := h.store.ErrorSummary(ctx, models.NewWindow(h.now(), minutes))
	if err != nil {
		h.queryFailed(w, r, "error rate", err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, summary)
}

// HandleTopSources serves the ranked source identifiers.
func (h *MetricsHandler) HandleTopSources(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.WriteError(w, http.StatusMethodNotAllowed, httputil.KindMethodNotAllowed, "only GET is supported")
		return
	}

	minutes, err := httputil.IntParamInRange(r, "minutes", defaultTopSrcMin, 1, topSrcMaxMinutes)
	if err != nil {
		httputil.WriteError(w, http.StatusUnprocessableEntity, httputil.KindValidation, err.Error())
		return
	}
	limit, err := httputil.IntParamInRange(r, "limit", defaultTopSrcLimit, 1, topSrcMaxLimit)
	if err != nil {
		httputil.WriteError(w, http.StatusUnprocessableEntity, httputil.KindValidation, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), metricsQueryTimeout)
	defer cancel()

	rows, err := h.store.TopSources(ctx, models.NewWindow(h.now(), minutes), limit)
	if err != nil {
		h.queryFailed(w, r, "top sources", err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{"rows": rows})
}

func (h *MetricsHandler) queryFailed(w http.ResponseWriter, r *http.Request, name string, err error) {
	h.logger.WithContext(r.Context()).Error("metrics query failed", "query", name, logging.FieldError, err.Error())
	httputil.WriteError(w, http.StatusInternalServerError, httputil.KindConnectivity, "storage query failed")
}
