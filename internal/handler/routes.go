package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts the API on r. guards wrap only the routes that run
// a pipeline.
func (h *Handler) RegisterRoutes(r chi.Router, guards ...func(http.Handler) http.Handler) {
	r.Get("/health", h.HealthCheck)
	r.Get("/stats", h.Stats)

	r.Get("/stage", h.GetStage)
	r.Put("/stage", h.PutStage)

	r.Get("/jobs/{id}", h.GetJob)
	r.Get("/assets/{name}", h.ServeAsset)
	r.Get("/assets/{name}/manifest", h.GetManifest)

	r.Group(func(r chi.Router) {
		r.Use(guards...)
		r.Post("/bitmaps/import", h.ImportBitmap)
		r.Post("/bitmaps/convert-resolution1", h.ConvertResolution1Bitmap)
		r.Post("/backdrops/import", h.ImportBackdropBitmap)
		r.Post("/backdrops/change", h.ChangeBackdropBitmap)
		r.Post("/backdrops/adapt", h.AdaptStageSizes)
		r.Post("/artifacts", h.CreateArtifact)
	})
}
