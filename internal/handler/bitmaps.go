package handler

import (
	"context"
	"net/http"
	"strconv"

	"bitmapadapter/internal/metrics"
	"bitmapadapter/internal/pipeline"
)

type importFunc func(context.Context, pipeline.EncodedImage) (pipeline.EncodedImage, error)

// ConvertResolution1Bitmap doubles a resolution 1 bitmap. The body is the
// encoded image; the response is the re-encoded result.
func (h *Handler) ConvertResolution1Bitmap(w http.ResponseWriter, r *http.Request) {
	h.serveImport(w, r, metrics.EventConvertResolution1, h.adapter.ConvertResolution1Bitmap)
}

// ImportBitmap sizes a costume bitmap to the stage.
func (h *Handler) ImportBitmap(w http.ResponseWriter, r *http.Request) {
	h.serveImport(w, r, metrics.EventImportBitmap, h.adapter.ImportBitmap)
}

// ImportBackdropBitmap fits a backdrop to the stage.
func (h *Handler) ImportBackdropBitmap(w http.ResponseWriter, r *http.Request) {
	h.serveImport(w, r, metrics.EventImportBackdrop, h.adapter.ImportBackdropBitmap)
}

func (h *Handler) serveImport(w http.ResponseWriter, r *http.Request, event metrics.EventType, run importFunc) {
	done := h.metrics.Track(event)

	in, err := readImage(r)
	if err != nil {
		done(err)
		writeError(w, err)
		return
	}
	out, err := run(r.Context(), in)
	done(err)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", out.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(out.Data)))
	w.WriteHeader(http.StatusOK)
	w.Write(out.Data)
}

// ChangeBackdropBitmap refits a backdrop to the current stage and returns
// the raw NRGBA pixels. X-Image-Width and X-Image-Height carry the size;
// each row is 4*width bytes.
func (h *Handler) ChangeBackdropBitmap(w http.ResponseWriter, r *http.Request) {
	done := h.metrics.Track(metrics.EventChangeBackdrop)

	in, err := readImage(r)
	if err != nil {
		done(err)
		writeError(w, err)
		return
	}
	img, err := h.adapter.ChangeBackdropBitmap(r.Context(), in.Data, in.ContentType)
	done(err)
	if err != nil {
		writeError(w, err)
		return
	}

	b := img.Bounds()
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("X-Image-Width", strconv.Itoa(b.Dx()))
	w.Header().Set("X-Image-Height", strconv.Itoa(b.Dy()))
	w.Header().Set("Content-Length", strconv.Itoa(len(img.Pix)))
	w.WriteHeader(http.StatusOK)
	w.Write(img.Pix)
}
