package pipeline

import (
	"math"

	"bitmapadapter/internal/stage"
)

// Plan is the width/height an image will be resized to. Fit branches can
// produce fractional values; Dimensions turns them into pixel sizes.
type Plan struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Dimensions truncates the plan to whole pixels, never below 1.
func (p Plan) Dimensions() (int, int) {
	w := int(math.Trunc(p.Width))
	h := int(math.Trunc(p.Height))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}

// Equals reports whether the plan is exactly w x h.
func (p Plan) Equals(w, h int) bool {
	return p.Width == float64(w) && p.Height == float64(h)
}

// DoubleResolution converts a resolution 1 bitmap from the older authoring
// environment, whose canonical scale was half of today's.
func DoubleResolution(oldWidth, oldHeight int) Plan {
	return Plan{Width: float64(oldWidth) * 2, Height: float64(oldHeight) * 2}
}

// ResizedWidthHeight returns the size an imported costume is stored at,
// measured against the reference stage frame:
//   - fits inside the stage: doubled
//   - fits inside twice the stage: unchanged
//   - otherwise: aspect-fit into twice the stage
func ResizedWidthHeight(oldWidth, oldHeight int, ref stage.FrameSize) Plan {
	stageW := float64(ref.Width)
	stageH := float64(ref.Height)
	w := float64(oldWidth)
	h := float64(oldHeight)

	if w <= stageW && h <= stageH {
		return Plan{Width: w * 2, Height: h * 2}
	}

	if w <= stageW*2 && h <= stageH*2 {
		return Plan{Width: w, Height: h}
	}

	imageRatio := w / h
	if imageRatio >= stageW/stageH {
		return Plan{Width: stageW * 2, Height: stageW * 2 / imageRatio}
	}
	// Taller than the stage proportionally, or a square larger than twice
	// the shorter stage side: fit the height.
	return Plan{Width: stageH * 2 * imageRatio, Height: stageH * 2}
}

// BackdropResizedWidthHeight fits a backdrop to twice the frame regardless
// of its source size. The image covers the frame: a proportionally wider
// image keeps the frame height, a taller one keeps the frame width.
func BackdropResizedWidthHeight(oldWidth, oldHeight int, frame stage.FrameSize) Plan {
	frameW := float64(frame.Width)
	frameH := float64(frame.Height)
	imageRatio := float64(oldWidth) / float64(oldHeight)

	if imageRatio >= frameW/frameH {
		return Plan{Width: frameH * 2 * imageRatio, Height: frameH * 2}
	}
	return Plan{Width: frameW * 2, Height: frameW * 2 / imageRatio}
}
