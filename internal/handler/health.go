package handler

import (
	"net/http"
	"time"

	"bitmapadapter/internal/storage"
)

type HealthResponse struct {
	Status    string    `json:"status"`
	Stage     string    `json:"stage"`
	Timestamp time.Time `json:"timestamp"`
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "healthy",
		Stage:     h.adapter.Stage().NativeSize().String(),
		Timestamp: time.Now().UTC(),
	}

	// The artifact store must be writable.
	if h.storage != nil {
		if err := storage.EnsureDir(h.storage.Fs, h.storage.BaseDir); err != nil {
			resp.Status = "unhealthy"
			writeJSON(w, http.StatusInternalServerError, resp)
			return
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
