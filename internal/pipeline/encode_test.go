package pipeline

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"testing"

	webp "github.com/chai2010/webp"
	"github.com/gen2brain/avif"
)

func smallTestImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	// put a red dot to avoid fully blank image optimizations
	img.Set(1, 1, color.RGBA{255, 0, 0, 255})
	return img
}

func TestEncode_DefaultsToPNG(t *testing.T) {
	for _, ct := range []string{"", "image/png", "image/gif", "image/bmp", "image/svg+xml"} {
		out, err := Encode(smallTestImage(), ct)
		if err != nil {
			t.Fatalf("%q: %v", ct, err)
		}
		if out.ContentType != "image/png" {
			t.Fatalf("%q: expected image/png, got %s", ct, out.ContentType)
		}
		if _, err := png.Decode(bytes.NewReader(out.Data)); err != nil {
			t.Fatalf("%q: output is not png: %v", ct, err)
		}
	}
}

func TestEncode_KnownTypes(t *testing.T) {
	cases := map[string]string{
		"image/jpeg":               "image/jpeg",
		"image/jpg":                "image/jpeg",
		"IMAGE/WEBP":               "image/webp",
		"image/png; charset=utf-8": "image/png",
	}
	for in, want := range cases {
		out, err := Encode(smallTestImage(), in)
		if err != nil {
			t.Fatalf("%q: %v", in, err)
		}
		if out.ContentType != want {
			t.Fatalf("%q: expected %s, got %s", in, want, out.ContentType)
		}
		if got := DetectFormat(out.Data); got != want {
			t.Fatalf("%q: bytes sniff as %s", in, got)
		}
	}
}

func TestEncodeWebP_ValidImage(t *testing.T) {
	img := smallTestImage()
	var buf bytes.Buffer
	if err := EncodeWebP(img, &buf, DefaultWebPQuality); err != nil {
		t.Fatalf("EncodeWebP failed: %v", err)
	}
	if _, err := webp.Decode(bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatalf("decoded webp failed: %v", err)
	}
}

type badWriter struct{}

func (badWriter) Write(p []byte) (int, error) { return 0, fmt.Errorf("closed writer") }

func TestEncodeWebP_ClosedWriter(t *testing.T) {
	var bw badWriter
	if err := EncodeWebP(smallTestImage(), bw, DefaultWebPQuality); err == nil {
		t.Fatalf("expected error when writing to closed writer")
	}
}

func TestEncodePNG_ClosedWriter(t *testing.T) {
	var bw badWriter
	if err := EncodePNG(smallTestImage(), bw); err == nil {
		t.Fatalf("expected error when writing to closed writer")
	}
}

func TestEncode_NilImage(t *testing.T) {
	if _, err := Encode(nil, "image/png"); err == nil {
		t.Fatalf("expected error for nil image")
	}
}

func TestEncode_ResizeEncodeDecode(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 300, 200))
	img.Set(2, 2, color.RGBA{1, 2, 3, 255})
	resized, err := Resize(img, 150, 100)
	if err != nil {
		t.Fatalf("resize: %v", err)
	}
	out, err := Encode(resized, "image/webp")
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	decoded, err := webp.Decode(bytes.NewReader(out.Data))
	if err != nil {
		t.Fatalf("webp decode failed: %v", err)
	}
	if decoded.Bounds().Dx() != 150 || decoded.Bounds().Dy() != 100 {
		t.Fatalf("decoded dims %vx%v don't match 150x100", decoded.Bounds().Dx(), decoded.Bounds().Dy())
	}
}

func TestEncodeAVIF_ValidImage(t *testing.T) {
	out, err := Encode(smallTestImage(), "image/avif")
	if err != nil {
		t.Fatalf("encode avif failed: %v", err)
	}
	if len(out.Data) == 0 {
		t.Fatalf("encoded output empty")
	}
	if _, err := avif.Decode(bytes.NewReader(out.Data)); err != nil {
		t.Fatalf("decoded avif failed: %v", err)
	}
}
