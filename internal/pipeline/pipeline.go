package pipeline

import (
	"context"
	"image"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"

	"bitmapadapter/internal/log"
	"bitmapadapter/internal/stage"
)

// Adapter runs the import pipelines. Every call decodes its input, sizes it
// with one of the policies, resamples with nearest-neighbor and re-encodes.
// A call either returns all of its outputs or an error; nothing is cached
// between calls.
type Adapter struct {
	stage        *stage.Stage
	decoder      Decoder
	resampler    *Resampler
	outputFormat string
	maxOutput    int
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithDecoder replaces the default ImageDecoder.
func WithDecoder(d Decoder) Option {
	return func(a *Adapter) { a.decoder = d }
}

// WithResampler replaces the default nearest-neighbor Resampler.
func WithResampler(r *Resampler) Option {
	return func(a *Adapter) { a.resampler = r }
}

// WithOutputFormat sets the content type single-size pipelines re-encode
// to. Types without an encoder fall back to PNG.
func WithOutputFormat(contentType string) Option {
	return func(a *Adapter) { a.outputFormat = contentType }
}

// WithMaxOutputDimension bounds the width and height of any resampled
// output. Plans beyond it fail with ErrInvalidDimensions.
func WithMaxOutputDimension(n int) Option {
	return func(a *Adapter) { a.maxOutput = n }
}

// NewAdapter returns an Adapter reading the default frame from st. A nil
// st uses a private stage at the default native size.
func NewAdapter(st *stage.Stage, opts ...Option) *Adapter {
	if st == nil {
		st = stage.New(stage.DefaultNativeSize)
	}
	a := &Adapter{
		stage:        st,
		decoder:      NewImageDecoder(),
		resampler:    NewResampler(),
		outputFormat: DefaultContentType,
		maxOutput:    MaxOutputDimension,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.maxOutput <= 0 {
		a.maxOutput = MaxOutputDimension
	}
	return a
}

// Stage returns the stage whose native size the adapter defaults to.
func (a *Adapter) Stage() *stage.Stage {
	return a.stage
}

// ResizedWidthHeight is the stage-fit plan against the current stage size.
func (a *Adapter) ResizedWidthHeight(oldWidth, oldHeight int) Plan {
	return ResizedWidthHeight(oldWidth, oldHeight, a.stage.NativeSize())
}

// BackdropResizedWidthHeight is the backdrop-fit plan against frame. A zero
// width or height in frame is taken from the current stage size.
func (a *Adapter) BackdropResizedWidthHeight(oldWidth, oldHeight int, frame stage.FrameSize) Plan {
	return BackdropResizedWidthHeight(oldWidth, oldHeight, frame.Resolve(a.stage.NativeSize()))
}

// ConvertResolution1Bitmap doubles a resolution 1 bitmap and re-encodes it
// in the adapter's output format (PNG unless configured).
func (a *Adapter) ConvertResolution1Bitmap(ctx context.Context, in EncodedImage) (EncodedImage, error) {
	img, err := a.decoder.Decode(ctx, in)
	if err != nil {
		return EncodedImage{}, errors.Wrap(err, "convert resolution 1 bitmap")
	}
	b := img.Bounds()
	out, err := a.resizeAndEncode(img, DoubleResolution(b.Dx(), b.Dy()), a.outputFormat)
	if err != nil {
		return EncodedImage{}, errors.Wrap(err, "convert resolution 1 bitmap")
	}
	return out, nil
}

// ImportBitmap sizes a costume with the stage-fit policy. When no resize is
// needed the original bytes come back untouched.
func (a *Adapter) ImportBitmap(ctx context.Context, in EncodedImage) (EncodedImage, error) {
	out, err := a.importWith(ctx, in, func(w, h int) Plan {
		return a.ResizedWidthHeight(w, h)
	})
	if err != nil {
		return EncodedImage{}, errors.Wrap(err, "import bitmap")
	}
	return out, nil
}

// ImportBackdropBitmap sizes a backdrop with the backdrop-fit policy against
// the current stage size.
func (a *Adapter) ImportBackdropBitmap(ctx context.Context, in EncodedImage) (EncodedImage, error) {
	out, err := a.importWith(ctx, in, func(w, h int) Plan {
		return a.BackdropResizedWidthHeight(w, h, stage.FrameSize{})
	})
	if err != nil {
		return EncodedImage{}, errors.Wrap(err, "import backdrop bitmap")
	}
	return out, nil
}

// ChangeBackdropBitmap refits an original backdrop to the current stage size
// and returns its pixels for immediate drawing. It always resamples.
func (a *Adapter) ChangeBackdropBitmap(ctx context.Context, data []byte, contentType string) (*image.NRGBA, error) {
	img, err := a.decoder.Decode(ctx, EncodedImage{Data: data, ContentType: contentType})
	if err != nil {
		return nil, errors.Wrap(err, "change backdrop bitmap")
	}
	b := img.Bounds()
	w, h, err := a.dimensions(a.BackdropResizedWidthHeight(b.Dx(), b.Dy(), stage.FrameSize{}))
	if err != nil {
		return nil, errors.Wrap(err, "change backdrop bitmap")
	}
	resized, err := a.resampler.Resize(img, w, h)
	if err != nil {
		return nil, errors.Wrap(err, "change backdrop bitmap")
	}
	return imaging.Clone(resized), nil
}

// AdaptMultipleStageSizes fits one backdrop to each frame in order and
// appends the untouched original as the last artifact, so N frames give
// N+1 artifacts. The origin is decoded once. A zero frame dimension is
// taken from the current stage size; any other non-positive dimension
// fails the whole call with ErrInvalidDimensions.
func (a *Adapter) AdaptMultipleStageSizes(ctx context.Context, origin Asset, frames []stage.FrameSize) ([]Artifact, error) {
	current := a.stage.NativeSize()
	resolved := make([]stage.FrameSize, len(frames))
	for i, frame := range frames {
		resolved[i] = frame.Resolve(current)
		if !resolved[i].Valid() {
			return nil, errors.Wrapf(ErrInvalidDimensions, "adapt stage size %s", frame)
		}
	}

	img, err := a.decoder.Decode(ctx, EncodedImage{Data: origin.Data, ContentType: origin.ContentType})
	if err != nil {
		return nil, errors.Wrap(err, "adapt stage sizes")
	}
	b := img.Bounds()

	result := make([]Artifact, 0, len(frames)+1)
	for _, frame := range resolved {
		plan := BackdropResizedWidthHeight(b.Dx(), b.Dy(), frame)
		out, err := a.resizeAndEncode(img, plan, origin.ContentType)
		if err != nil {
			return nil, errors.Wrapf(err, "adapt stage size %s", frame)
		}
		artifact := NewArtifact(out.Data, out.ContentType, origin.DataFormat)
		log.Debug("adapted %dx%d backdrop to frame %s as %s", b.Dx(), b.Dy(), frame, artifact.Name)
		result = append(result, artifact)
	}
	result = append(result, NewArtifact(origin.Data, origin.ContentType, origin.DataFormat))

	return result, nil
}

func (a *Adapter) importWith(ctx context.Context, in EncodedImage, policy func(w, h int) Plan) (EncodedImage, error) {
	img, err := a.decoder.Decode(ctx, in)
	if err != nil {
		return EncodedImage{}, err
	}
	b := img.Bounds()
	plan := policy(b.Dx(), b.Dy())
	if plan.Equals(b.Dx(), b.Dy()) {
		return in, nil
	}
	return a.resizeAndEncode(img, plan, a.outputFormat)
}

// dimensions turns plan into pixel sizes, refusing plans that are not
// positive or exceed the adapter's output bound.
func (a *Adapter) dimensions(plan Plan) (int, int, error) {
	limit := float64(a.maxOutput)
	if !(plan.Width > 0 && plan.Width <= limit && plan.Height > 0 && plan.Height <= limit) {
		return 0, 0, errors.Wrapf(ErrInvalidDimensions, "resize plan %.0fx%.0f outside 1..%d",
			plan.Width, plan.Height, a.maxOutput)
	}
	w, h := plan.Dimensions()
	return w, h, nil
}

func (a *Adapter) resizeAndEncode(img image.Image, plan Plan, contentType string) (EncodedImage, error) {
	w, h, err := a.dimensions(plan)
	if err != nil {
		return EncodedImage{}, err
	}
	resized, err := a.resampler.Resize(img, w, h)
	if err != nil {
		return EncodedImage{}, err
	}
	return Encode(resized, contentType)
}
