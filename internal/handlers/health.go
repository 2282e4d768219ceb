package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/commlogs-systems/commlogs-collector/internal/httputil"
	"github.com/commlogs-systems/commlogs-collector/internal/logging"
)

// Pinger is the liveness slice of the store.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	store  Pinger
	logger *logging.Logger
}

func NewHealthHandler(store Pinger, logger *logging.Logger) *HealthHandler {
	return &HealthHandler{store: store, logger: logger}
}

// HandleHealth succeeds iff the storage pool can service a trivial query.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.logger.WithContext(r.Context()).Error("health probe failed", logging.Error(err))
		httputil.WriteError(w, http.StatusServiceUnavailable, httputil.KindConnectivity, "store unreachable")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
