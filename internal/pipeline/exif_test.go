package pipeline

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"bitmapadapter/internal/testutil"
)

// coloredImage is transparent except for a red pixel at (1,0).
func coloredImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	if w > 1 && h > 0 {
		img.Set(1, 0, color.RGBA{255, 0, 0, 255})
	}
	return img
}

func isRed(c color.Color) bool {
	r, g, b, a := c.RGBA()
	return r == 0xffff && g == 0 && b == 0 && a == 0xffff
}

func TestOrientationTransform_Bounds(t *testing.T) {
	src := coloredImage(3, 2)

	for _, o := range []int{1, 2, 3, 4, 9} {
		out := orientationTransform(src, o)
		if out.Bounds().Dx() != 3 || out.Bounds().Dy() != 2 {
			t.Fatalf("orientation %d should preserve bounds, got %v", o, out.Bounds())
		}
	}
	for _, o := range []int{5, 6, 7, 8} {
		out := orientationTransform(src, o)
		if out.Bounds().Dx() != 2 || out.Bounds().Dy() != 3 {
			t.Fatalf("orientation %d should swap width/height, got %v", o, out.Bounds())
		}
	}
}

func TestOrientationTransform_RotatesClockwiseFor6(t *testing.T) {
	out := orientationTransform(coloredImage(3, 2), 6)
	if !isRed(out.At(1, 1)) {
		t.Fatalf("expected red pixel at (1,1) after a clockwise turn")
	}
}

func TestOrientationTransform_RotatesCounterClockwiseFor8(t *testing.T) {
	out := orientationTransform(coloredImage(3, 2), 8)
	if !isRed(out.At(0, 1)) {
		t.Fatalf("expected red pixel at (0,1) after a counter-clockwise turn")
	}
}

func TestApplyEXIFOrientation_NoEXIF(t *testing.T) {
	buf := &bytes.Buffer{}
	img := coloredImage(4, 3)
	if err := png.Encode(buf, img); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	out, err := ApplyEXIFOrientation(img, bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("ApplyEXIFOrientation returned error for PNG: %v", err)
	}
	if out.Bounds() != img.Bounds() {
		t.Fatalf("expected bounds unchanged for PNG/no-exif")
	}
}

func TestApplyEXIFOrientation_Tagged(t *testing.T) {
	img := testutil.GradientImage(5, 4)
	jpg := testutil.WithEXIFOrientation(testutil.EncodeJPEG(t, img), 8)
	out, err := ApplyEXIFOrientation(img, bytes.NewReader(jpg))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Bounds().Dx() != 4 || out.Bounds().Dy() != 5 {
		t.Fatalf("expected 4x5 after orientation 8, got %v", out.Bounds())
	}
}

func TestApplyEXIFOrientation_CorruptReader(t *testing.T) {
	img := coloredImage(2, 2)
	out, err := ApplyEXIFOrientation(img, bytes.NewReader([]byte("not a valid image")))
	if err != nil {
		t.Fatalf("expected no error for corrupt exif decode: %v", err)
	}
	if out.Bounds() != img.Bounds() {
		t.Fatalf("expected original image returned on error")
	}
}
