package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"

	"bitmapadapter/internal/metrics"
	"bitmapadapter/internal/pipeline"
	"bitmapadapter/internal/storage"
)

type artifactRequest struct {
	DataURI   string `json:"dataUri"`
	Extension string `json:"extension"`
}

type artifactResponse struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Saved       bool   `json:"saved"`
}

// CreateArtifact stores a data URI under its content-addressed name. Posting
// the same bytes twice returns the same name with saved=false.
func (h *Handler) CreateArtifact(w http.ResponseWriter, r *http.Request) {
	done := h.metrics.Track(metrics.EventDataURIToFile)

	var req artifactRequest
	if err := decodeJSON(r, &req); err != nil {
		done(err)
		writeError(w, err)
		return
	}
	ext := strings.TrimPrefix(strings.ToLower(req.Extension), ".")
	if !validExtension(ext) {
		err := errors.Wrapf(storage.ErrInvalidName, "extension %q", req.Extension)
		done(err)
		writeError(w, err)
		return
	}

	artifact, err := pipeline.DataURIToFile(req.DataURI, ext)
	if err != nil {
		done(err)
		writeError(w, err)
		return
	}
	saved, _, err := h.storage.SaveArtifact(artifact.Name, artifact.Data)
	done(err)
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusCreated
	if !saved {
		status = http.StatusOK
	}
	w.Header().Set("Location", "/assets/"+artifact.Name)
	writeJSON(w, status, artifactResponse{Name: artifact.Name, ContentType: artifact.ContentType, Saved: saved})
}

// ServeAsset serves a stored artifact. Names are content hashes, so the
// response never changes and is cached indefinitely.
func (h *Handler) ServeAsset(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	data, err := h.storage.OpenArtifact(name)
	if err != nil {
		writeError(w, err)
		return
	}

	etag := `"` + name + `"`
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", pipeline.DetectFormat(data))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// GetManifest returns the adaptation manifest recorded for an origin.
func (h *Handler) GetManifest(w http.ResponseWriter, r *http.Request) {
	m, err := h.storage.ReadManifest(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func validExtension(ext string) bool {
	if ext == "" || len(ext) > 8 {
		return false
	}
	for _, r := range ext {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
