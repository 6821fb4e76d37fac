package pipeline

import "github.com/pkg/errors"

var (
	ErrNotAnImage        = errors.New("input is not an image")
	ErrTooLarge          = errors.New("image exceeds size limit")
	ErrInvalidDimensions = errors.New("image dimensions out of range")
	ErrMalformedDataURI  = errors.New("malformed data URI")
)

// Default maximum dimension (width or height) allowed by the decoder.
const MaxDimension = 8000

// MaxOutputDimension is the default bound on a resampled width or height:
// a doubled image at the decoder's maximum dimension.
const MaxOutputDimension = 2 * MaxDimension

// DefaultMaxBytes bounds how much encoded input the decoder reads.
const DefaultMaxBytes = int64(32 << 20)

// DecodeError reports that an encoded image could not be loaded. It is the
// terminal failure of any pipeline call whose input does not decode.
type DecodeError struct {
	ContentType string
	Err         error
}

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return "image load failed"
	}
	return "image load failed: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error { return e.Err }

// EncodedImage is an encoded byte stream paired with its MIME type.
type EncodedImage struct {
	Data        []byte
	ContentType string
}

// Asset is an origin image as held by the asset store: its bytes, MIME
// type and the file extension used when naming derived artifacts.
type Asset struct {
	Data        []byte
	ContentType string
	DataFormat  string
}

// Artifact is a content-addressed output named "{hash}.{extension}".
type Artifact struct {
	Name        string `msgpack:"name" json:"name"`
	ContentType string `msgpack:"content_type" json:"contentType"`
	Data        []byte `msgpack:"-" json:"-"`
}

// NewArtifact names data by its content hash.
func NewArtifact(data []byte, contentType, extension string) Artifact {
	return Artifact{
		Name:        ContentHash(data) + "." + extension,
		ContentType: contentType,
		Data:        data,
	}
}
