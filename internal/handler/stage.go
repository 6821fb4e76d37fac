package handler

import (
	"encoding/json"
	"net/http"

	"bitmapadapter/internal/stage"
)

type stageResponse struct {
	NativeSize [2]int `json:"nativeSize"`
	Applied    *bool  `json:"applied,omitempty"`
}

func newStageResponse(size stage.FrameSize) stageResponse {
	return stageResponse{NativeSize: [2]int{size.Width, size.Height}}
}

// GetStage reports the current stage native size as [width, height].
func (h *Handler) GetStage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newStageResponse(h.adapter.Stage().NativeSize()))
}

// PutStage sets the stage native size from a JSON array. Any JSON value
// that is not two positive integers up to the configured max dimension is
// ignored, not rejected: the response is 200 with applied=false and the
// unchanged size. Only a body that is not
// JSON at all is a 400.
func (h *Handler) PutStage(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := decodeJSON(r, &raw); err != nil {
		writeError(w, err)
		return
	}
	applied := false
	var size []int
	if err := json.Unmarshal(raw, &size); err == nil && withinMax(size, h.config.MaxDimension) {
		applied = h.adapter.Stage().SetNativeSize(size)
	}
	resp := newStageResponse(h.adapter.Stage().NativeSize())
	resp.Applied = &applied
	writeJSON(w, http.StatusOK, resp)
}

func withinMax(size []int, max int) bool {
	for _, n := range size {
		if n > max {
			return false
		}
	}
	return true
}
