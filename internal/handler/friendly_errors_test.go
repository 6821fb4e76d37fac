package handler

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/pkg/errors"

	"bitmapadapter/internal/pipeline"
	"bitmapadapter/internal/storage"
	"bitmapadapter/internal/worker"
)

func TestFriendlyErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		want   string
	}{
		{"not image", &pipeline.DecodeError{Err: pipeline.ErrNotAnImage}, http.StatusUnprocessableEntity, "unsupported"},
		{"decode failed", errors.Wrap(&pipeline.DecodeError{Err: errors.New("bad huffman")}, "import bitmap"), http.StatusUnprocessableEntity, "could not be read"},
		{"invalid dimensions", &pipeline.DecodeError{Err: pipeline.ErrInvalidDimensions}, http.StatusUnprocessableEntity, "dimensions"},
		{"too large", &pipeline.DecodeError{Err: pipeline.ErrTooLarge}, http.StatusRequestEntityTooLarge, "too large"},
		{"body too large", errors.Wrap(&http.MaxBytesError{Limit: 10}, "read body"), http.StatusRequestEntityTooLarge, "too large"},
		{"malformed data uri", errors.Wrap(pipeline.ErrMalformedDataURI, "missing base64 marker"), http.StatusBadRequest, "data URI"},
		{"invalid name", storage.ErrInvalidName, http.StatusBadRequest, "name"},
		{"bad json", errBadRequest{errors.New("unexpected EOF")}, http.StatusBadRequest, "request body"},
		{"job not found", errors.Wrap(worker.ErrJobNotFound, "abc"), http.StatusNotFound, "not found"},
		{"artifact not found", storage.ErrArtifactNotFound, http.StatusNotFound, "not found"},
		{"timeout", errors.Wrap(context.DeadlineExceeded, "import bitmap"), http.StatusGatewayTimeout, "timed out"},
		{"default", errors.New("disk on fire"), http.StatusInternalServerError, "internal error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, msg := friendlyError(tc.err)
			if status != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, status)
			}
			if !strings.Contains(msg, tc.want) {
				t.Fatalf("expected message containing %q, got %q", tc.want, msg)
			}
			if strings.Contains(msg, "disk on fire") {
				t.Fatalf("internal error text leaked: %q", msg)
			}
		})
	}
}

func TestExtensionFor(t *testing.T) {
	cases := map[string]string{
		"image/jpeg": "jpg",
		"IMAGE/PNG":  "png",
		"image/webp": "webp",
		"":           "png",
	}
	for ct, want := range cases {
		if got := extensionFor(ct); got != want {
			t.Fatalf("extensionFor(%q) = %q, want %q", ct, got, want)
		}
	}
}

func TestValidExtension(t *testing.T) {
	for _, ext := range []string{"png", "jpg", "svg", "mp3"} {
		if !validExtension(ext) {
			t.Fatalf("expected %q to be valid", ext)
		}
	}
	for _, ext := range []string{"", "../png", "p.g", "PNG", "averyverylongext"} {
		if validExtension(ext) {
			t.Fatalf("expected %q to be invalid", ext)
		}
	}
}
