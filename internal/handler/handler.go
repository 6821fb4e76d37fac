package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"bitmapadapter/internal/config"
	"bitmapadapter/internal/log"
	"bitmapadapter/internal/metrics"
	"bitmapadapter/internal/pipeline"
	"bitmapadapter/internal/storage"
	"bitmapadapter/internal/worker"
)

type Handler struct {
	adapter *pipeline.Adapter
	storage *storage.Storage
	worker  *worker.Worker
	metrics *metrics.Logger
	config  *config.Config
}

// New wires the HTTP surface. cfg may be nil in tests; defaults apply.
func New(adapter *pipeline.Adapter, store *storage.Storage, w *worker.Worker, m *metrics.Logger, cfg *config.Config) *Handler {
	if cfg == nil {
		cfg = config.Default()
	}
	if m == nil {
		m = metrics.New()
	}
	return &Handler{
		adapter: adapter,
		storage: store,
		worker:  w,
		metrics: m,
		config:  cfg,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("handler: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status, msg := friendlyError(err)
	if status >= http.StatusInternalServerError {
		log.Error("handler: %v", err)
	} else {
		log.Debug("handler: %d %v", status, err)
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

// friendlyError maps pipeline and storage failures to a status code and a
// message safe to show to clients.
func friendlyError(err error) (int, string) {
	var mbe *http.MaxBytesError
	var br errBadRequest
	switch {
	case errors.As(err, &br):
		return http.StatusBadRequest, "invalid request body"
	case errors.As(err, &mbe), errors.Is(err, pipeline.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, "image is too large"
	case errors.Is(err, pipeline.ErrMalformedDataURI):
		return http.StatusBadRequest, "malformed data URI"
	case errors.Is(err, storage.ErrInvalidName):
		return http.StatusBadRequest, "invalid asset name"
	case errors.Is(err, pipeline.ErrNotAnImage):
		return http.StatusUnprocessableEntity, "unsupported file type"
	case errors.Is(err, pipeline.ErrInvalidDimensions):
		return http.StatusUnprocessableEntity, "image dimensions out of range"
	case errors.Is(err, worker.ErrJobNotFound),
		errors.Is(err, storage.ErrArtifactNotFound),
		errors.Is(err, storage.ErrManifestNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "processing timed out"
	}

	var de *pipeline.DecodeError
	if errors.As(err, &de) {
		return http.StatusUnprocessableEntity, "image could not be read"
	}
	return http.StatusInternalServerError, "internal error"
}

// readImage reads the raw request body as an encoded image. A missing or
// non-image Content-Type is replaced by the sniffed format.
func readImage(r *http.Request) (pipeline.EncodedImage, error) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return pipeline.EncodedImage{}, errors.Wrap(err, "read body")
	}
	if len(data) == 0 {
		return pipeline.EncodedImage{}, errors.Wrap(pipeline.ErrNotAnImage, "empty body")
	}
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(strings.ToLower(contentType), "image/") {
		contentType = pipeline.DetectFormat(data)
	}
	return pipeline.EncodedImage{Data: data, ContentType: contentType}, nil
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return err
		}
		return errBadRequest{err}
	}
	return nil
}

type errBadRequest struct{ err error }

func (e errBadRequest) Error() string { return "bad request: " + e.err.Error() }
func (e errBadRequest) Unwrap() error { return e.err }
