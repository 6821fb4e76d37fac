package pipeline

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"strings"

	webp "github.com/chai2010/webp"
	"github.com/gen2brain/avif"
	"github.com/pkg/errors"

	"bitmapadapter/internal/log"
)

// DefaultContentType is what Encode produces when no type is asked for or
// the asked type has no encoder.
const DefaultContentType = "image/png"

// DefaultJPEGQuality matches the default quality of a canvas JPEG export.
const DefaultJPEGQuality = 92

// DefaultWebPQuality is the standard quality used for lossy WebP encoding.
const DefaultWebPQuality = 80

// DefaultAVIFQuality is the standard quality used for AVIF encoding.
const DefaultAVIFQuality = 60

// DefaultAVIFSpeed is the standard speed used for AVIF encoding.
const DefaultAVIFSpeed = 6

// Encode serializes img as contentType. Unsupported or empty types fall
// back to PNG; the returned ContentType is the one actually written.
func Encode(img image.Image, contentType string) (EncodedImage, error) {
	if img == nil {
		return EncodedImage{}, errors.New("nil image")
	}

	var buf bytes.Buffer
	ct := normalizeContentType(contentType)

	var err error
	switch ct {
	case "image/jpeg":
		err = EncodeJPEG(img, &buf, DefaultJPEGQuality)
	case "image/webp":
		err = EncodeWebP(img, &buf, DefaultWebPQuality)
	case "image/avif":
		err = EncodeAVIF(img, &buf, DefaultAVIFQuality, DefaultAVIFSpeed)
	default:
		ct = DefaultContentType
		err = EncodePNG(img, &buf)
	}
	if err != nil {
		return EncodedImage{}, errors.Wrapf(err, "encode %s", ct)
	}
	return EncodedImage{Data: buf.Bytes(), ContentType: ct}, nil
}

func normalizeContentType(ct string) string {
	ct = strings.ToLower(strings.TrimSpace(ct))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if ct == "image/jpg" {
		return "image/jpeg"
	}
	return ct
}

// EncodePNG encodes img to PNG written to w.
func EncodePNG(img image.Image, w io.Writer) error {
	if img == nil {
		return errors.New("nil image")
	}
	if w == nil {
		return errors.New("nil writer")
	}
	c := &countingWriter{w: w}
	if err := png.Encode(c, img); err != nil {
		return err
	}
	log.Debug("png encoded size=%d", c.n)
	return nil
}

// EncodeJPEG encodes img to JPEG written to w with given quality (1-100).
func EncodeJPEG(img image.Image, w io.Writer, quality int) error {
	if img == nil {
		return errors.New("nil image")
	}
	if w == nil {
		return errors.New("nil writer")
	}
	if quality <= 0 {
		quality = DefaultJPEGQuality
	}
	if quality > 100 {
		quality = 100
	}
	c := &countingWriter{w: w}
	if err := jpeg.Encode(c, img, &jpeg.Options{Quality: quality}); err != nil {
		return err
	}
	log.Debug("jpeg encoded size=%d quality=%d", c.n, quality)
	return nil
}

// EncodeWebP encodes img to WebP written to w with given quality (0-100).
// It logs the final encoded size. Returns an error from the encoder or writer.
func EncodeWebP(img image.Image, w io.Writer, quality int) error {
	if img == nil {
		return errors.New("nil image")
	}
	if w == nil {
		return errors.New("nil writer")
	}
	if quality < 0 {
		quality = 0
	}
	if quality > 100 {
		quality = 100
	}

	c := &countingWriter{w: w}
	opts := &webp.Options{Quality: float32(quality)}
	if err := webp.Encode(c, img, opts); err != nil {
		return err
	}

	log.Debug("webp encoded size=%d quality=%d", c.n, quality)
	return nil
}

// EncodeAVIF encodes img to AVIF written to w with given quality (0-100) and speed (0-10).
// It logs the final encoded size. Returns an error from the encoder or writer.
func EncodeAVIF(img image.Image, w io.Writer, quality, speed int) error {
	if img == nil {
		return errors.New("nil image")
	}
	if w == nil {
		return errors.New("nil writer")
	}
	if quality <= 0 {
		quality = DefaultAVIFQuality
	}
	if quality > 100 {
		quality = 100
	}
	if speed <= 0 {
		speed = DefaultAVIFSpeed
	}
	if speed > 10 {
		speed = 10
	}

	c := &countingWriter{w: w}
	if err := avif.Encode(c, img, avif.Options{Quality: quality, QualityAlpha: quality, Speed: speed}); err != nil {
		return err
	}

	log.Debug("avif encoded size=%d quality=%d speed=%d", c.n, quality, speed)
	return nil
}

// countingWriter wraps an io.Writer and counts bytes written.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	m, err := c.w.Write(p)
	c.n += int64(m)
	return m, err
}
