package pipeline

import (
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"strings"

	"github.com/pkg/errors"
)

const base64Marker = ";base64,"

// BinaryToDataURI wraps data as data:{contentType};base64,{payload}.
func BinaryToDataURI(data []byte, contentType string) string {
	return "data:" + contentType + base64Marker + base64.StdEncoding.EncodeToString(data)
}

// DataURIToBinary decodes the base64 payload following the ";base64,"
// marker. A URI without the marker is ErrMalformedDataURI.
func DataURIToBinary(dataURI string) ([]byte, error) {
	i := strings.Index(dataURI, base64Marker)
	if i < 0 {
		return nil, errors.Wrap(ErrMalformedDataURI, "missing base64 marker")
	}
	return decodeBase64(dataURI[i+len(base64Marker):])
}

// ParseDataURI returns the payload and the MIME type of a base64 data URI.
func ParseDataURI(dataURI string) (EncodedImage, error) {
	data, err := DataURIToBinary(dataURI)
	if err != nil {
		return EncodedImage{}, err
	}
	mime, err := dataURIMime(dataURI)
	if err != nil {
		return EncodedImage{}, err
	}
	return EncodedImage{Data: data, ContentType: mime}, nil
}

// DataURIToFile decodes a data URI into an artifact named by the content
// hash of its bytes: identical bytes always get the identical name.
func DataURIToFile(dataURI, extension string) (Artifact, error) {
	header, payload, ok := strings.Cut(dataURI, ",")
	if !ok {
		return Artifact{}, errors.Wrap(ErrMalformedDataURI, "missing payload separator")
	}
	mime, err := dataURIMime(header)
	if err != nil {
		return Artifact{}, err
	}
	data, err := decodeBase64(payload)
	if err != nil {
		return Artifact{}, err
	}
	return NewArtifact(data, mime, extension), nil
}

// ContentHash is the hex MD5 digest of data, the id scheme of the asset
// store.
func ContentHash(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// dataURIMime extracts the text between the first ':' and the following
// ';' of the header.
func dataURIMime(header string) (string, error) {
	if i := strings.IndexByte(header, ','); i >= 0 {
		header = header[:i]
	}
	_, rest, ok := strings.Cut(header, ":")
	if !ok {
		return "", errors.Wrap(ErrMalformedDataURI, "missing media type")
	}
	mime, _, ok := strings.Cut(rest, ";")
	if !ok {
		return "", errors.Wrap(ErrMalformedDataURI, "missing media type terminator")
	}
	return mime, nil
}

// decodeBase64 accepts padded or unpadded standard base64 and ignores
// embedded whitespace.
func decodeBase64(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', '\f':
			return -1
		}
		return r
	}, s)
	data, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return nil, errors.Wrap(ErrMalformedDataURI, err.Error())
	}
	return data, nil
}
