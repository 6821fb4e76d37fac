package handler

import "net/http"

// Stats serves the pipeline outcome counters.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.metrics.Stats())
}
