package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"

	"bitmapadapter/internal/pipeline"
	"bitmapadapter/internal/stage"
)

type adaptRequest struct {
	DataURI    string            `json:"dataUri"`
	DataFormat string            `json:"dataFormat"`
	Frames     []stage.FrameSize `json:"frames"`
}

// AdaptStageSizes queues a multi-size adaptation of a backdrop and answers
// 202 with the pending job. Poll GET /jobs/{id} for the outcome.
func (h *Handler) AdaptStageSizes(w http.ResponseWriter, r *http.Request) {
	var req adaptRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	in, err := pipeline.ParseDataURI(req.DataURI)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.checkFrames(req.Frames); err != nil {
		writeError(w, err)
		return
	}
	format := strings.TrimPrefix(strings.ToLower(req.DataFormat), ".")
	if format == "" {
		format = extensionFor(in.ContentType)
	}

	job := h.worker.Enqueue(pipeline.Asset{
		Data:        in.Data,
		ContentType: in.ContentType,
		DataFormat:  format,
	}, req.Frames)

	w.Header().Set("Location", "/jobs/"+job.ID)
	writeJSON(w, http.StatusAccepted, job)
}

// checkFrames rejects frames that are not positive once zero dimensions
// take the stage size, or that are larger than the configured maximum.
func (h *Handler) checkFrames(frames []stage.FrameSize) error {
	current := h.adapter.Stage().NativeSize()
	for _, frame := range frames {
		resolved := frame.Resolve(current)
		if !resolved.Valid() || !resolved.Within(h.config.MaxDimension) {
			return errors.Wrapf(pipeline.ErrInvalidDimensions, "frame %s", frame)
		}
	}
	return nil
}

// GetJob reports the state of an adaptation job.
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.worker.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// extensionFor maps an image MIME type to the file extension used in
// artifact names.
func extensionFor(contentType string) string {
	switch strings.ToLower(contentType) {
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	case "image/bmp":
		return "bmp"
	case "image/avif":
		return "avif"
	case "image/svg+xml":
		return "svg"
	}
	return "png"
}
