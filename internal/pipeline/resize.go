package pipeline

import (
	"image"

	"github.com/pkg/errors"
	"golang.org/x/image/draw"
)

// Resampler resizes images with nearest-neighbor interpolation.
//
// A scaled blit is allowed to smooth when it shrinks an axis, so the
// resize always runs as two single-axis passes: width first onto a
// newWidth x srcHeight surface, then height onto the final surface.
// Folding the passes into one is not equivalent.
type Resampler struct {
	// Scaler performs each blit. Defaults to draw.NearestNeighbor.
	Scaler draw.Scaler
}

// NewResampler returns a Resampler using nearest-neighbor blits.
func NewResampler() *Resampler {
	return &Resampler{Scaler: draw.NearestNeighbor}
}

// Resize returns a new newWidth x newHeight surface holding src.
func (r *Resampler) Resize(src image.Image, newWidth, newHeight int) (*image.RGBA, error) {
	if src == nil {
		return nil, errors.New("nil image")
	}
	if newWidth <= 0 || newHeight <= 0 {
		return nil, errors.Wrapf(ErrInvalidDimensions, "resize to %dx%d", newWidth, newHeight)
	}
	scaler := r.Scaler
	if scaler == nil {
		scaler = draw.NearestNeighbor
	}

	sb := src.Bounds()
	if sb.Empty() {
		return nil, errors.Wrap(ErrInvalidDimensions, "resize empty image")
	}

	stretchWidth := image.NewRGBA(image.Rect(0, 0, newWidth, sb.Dy()))
	scaler.Scale(stretchWidth, stretchWidth.Bounds(), src, sb, draw.Src, nil)

	stretchHeight := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	scaler.Scale(stretchHeight, stretchHeight.Bounds(), stretchWidth, stretchWidth.Bounds(), draw.Src, nil)

	return stretchHeight, nil
}

// Resize is Resampler.Resize with the default nearest-neighbor scaler.
func Resize(src image.Image, newWidth, newHeight int) (*image.RGBA, error) {
	return NewResampler().Resize(src, newWidth, newHeight)
}
