package pipeline

import (
	"bytes"
	"context"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"net/http"
	"strings"

	webp "github.com/chai2010/webp"
	"github.com/gen2brain/avif"
	"github.com/pkg/errors"
	"golang.org/x/image/bmp"
)

// Decoder turns an encoded image into a pixel surface. Implementations
// report malformed input as a *DecodeError.
type Decoder interface {
	Decode(ctx context.Context, in EncodedImage) (image.Image, error)
}

// ImageDecoder sniffs the encoded bytes and decodes JPEG, PNG, GIF, WebP,
// BMP and AVIF. The declared content type is informational only.
type ImageDecoder struct {
	MaxBytes     int64
	MaxDimension int
}

// NewImageDecoder returns a decoder with the default limits.
func NewImageDecoder() *ImageDecoder {
	return &ImageDecoder{MaxBytes: DefaultMaxBytes, MaxDimension: MaxDimension}
}

// DetectFormat returns the MIME type of data, recognising AVIF, which the
// standard sniffer does not.
func DetectFormat(data []byte) string {
	if isAVIF(data) {
		return "image/avif"
	}
	n := len(data)
	if n > 512 {
		n = 512
	}
	return http.DetectContentType(data[:n])
}

// isAVIF looks for an ISO-BMFF ftyp box with an avif/avis brand.
func isAVIF(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	brand := string(data[8:12])
	return brand == "avif" || brand == "avis"
}

// Decode runs the decode on its own goroutine and waits for it or for ctx.
// No timeout is applied here.
func (d *ImageDecoder) Decode(ctx context.Context, in EncodedImage) (image.Image, error) {
	type result struct {
		img image.Image
		err error
	}
	done := make(chan result, 1)
	go func() {
		img, err := d.decode(in)
		done <- result{img: img, err: err}
	}()

	select {
	case r := <-done:
		return r.img, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (d *ImageDecoder) decode(in EncodedImage) (image.Image, error) {
	maxBytes := d.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	maxDim := d.MaxDimension
	if maxDim <= 0 {
		maxDim = MaxDimension
	}

	data := in.Data
	if int64(len(data)) > maxBytes {
		return nil, &DecodeError{ContentType: in.ContentType, Err: ErrTooLarge}
	}

	ct := DetectFormat(data)

	var img image.Image
	var decodeErr error

	switch {
	case strings.HasPrefix(ct, "image/jpeg"):
		img, decodeErr = jpeg.Decode(bytes.NewReader(data))
		if decodeErr == nil {
			img, _ = ApplyEXIFOrientation(img, bytes.NewReader(data))
		}
	case strings.HasPrefix(ct, "image/png"):
		img, decodeErr = png.Decode(bytes.NewReader(data))
	case strings.HasPrefix(ct, "image/gif"):
		img, decodeErr = gif.Decode(bytes.NewReader(data))
	case strings.HasPrefix(ct, "image/webp"):
		img, decodeErr = webp.Decode(bytes.NewReader(data))
	case strings.HasPrefix(ct, "image/bmp"):
		img, decodeErr = bmp.Decode(bytes.NewReader(data))
	case ct == "image/avif":
		img, decodeErr = avif.Decode(bytes.NewReader(data))
	default:
		return nil, &DecodeError{ContentType: ct, Err: ErrNotAnImage}
	}
	if decodeErr != nil {
		return nil, &DecodeError{ContentType: ct, Err: errors.Wrapf(decodeErr, "decode %s", ct)}
	}

	// validate dimensions
	b := img.Bounds()
	w := b.Dx()
	h := b.Dy()
	if w <= 0 || h <= 0 || w > maxDim || h > maxDim {
		return nil, &DecodeError{ContentType: ct, Err: ErrInvalidDimensions}
	}

	return img, nil
}
