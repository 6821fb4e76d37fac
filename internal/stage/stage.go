// Package stage holds the frame size types and the process-wide Stage
// Native Size used as the default fitting frame.
package stage

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/pkg/errors"
)

// DefaultNativeSize is the render size of the stage when nothing else
// has been configured.
var DefaultNativeSize = FrameSize{Width: 480, Height: 360}

// FrameSize is a width/height pair used as a fitting reference.
type FrameSize struct {
	Width  int `json:"width" yaml:"width" msgpack:"width"`
	Height int `json:"height" yaml:"height" msgpack:"height"`
}

// Valid reports whether both dimensions are positive.
func (f FrameSize) Valid() bool {
	return f.Width > 0 && f.Height > 0
}

// Within reports whether both dimensions are at most max.
func (f FrameSize) Within(max int) bool {
	return f.Width <= max && f.Height <= max
}

// Resolve fills a zero width or height from def, one dimension at a time.
// Negative dimensions are kept so callers can reject them with Valid.
func (f FrameSize) Resolve(def FrameSize) FrameSize {
	if f.Width == 0 {
		f.Width = def.Width
	}
	if f.Height == 0 {
		f.Height = def.Height
	}
	return f
}

func (f FrameSize) String() string {
	return fmt.Sprintf("%dx%d", f.Width, f.Height)
}

// ParseFrameSize parses a "WIDTHxHEIGHT" string such as "480x360".
func ParseFrameSize(s string) (FrameSize, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "x")
	if len(parts) != 2 {
		return FrameSize{}, errors.Errorf("invalid frame size %q: want WIDTHxHEIGHT", s)
	}
	w, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return FrameSize{}, errors.Wrapf(err, "invalid frame width in %q", s)
	}
	h, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return FrameSize{}, errors.Wrapf(err, "invalid frame height in %q", s)
	}
	f := FrameSize{Width: w, Height: h}
	if !f.Valid() {
		return FrameSize{}, errors.Errorf("invalid frame size %q: dimensions must be positive", s)
	}
	return f, nil
}

// Stage holds the current Stage Native Size. The zero value is not usable;
// create one with New.
type Stage struct {
	size atomic.Pointer[FrameSize]
}

// New returns a Stage starting at initial, or at DefaultNativeSize when
// initial is not a valid frame.
func New(initial FrameSize) *Stage {
	s := &Stage{}
	if !initial.Valid() {
		initial = DefaultNativeSize
	}
	s.size.Store(&initial)
	return s
}

// NativeSize returns the most recently applied size.
func (s *Stage) NativeSize() FrameSize {
	return *s.size.Load()
}

// SetNativeSize applies size when it is a pair of two positive numbers.
// Anything else is ignored, the previous value is kept and false is
// returned.
func (s *Stage) SetNativeSize(size []int) bool {
	if len(size) != 2 {
		return false
	}
	return s.SetFrame(FrameSize{Width: size[0], Height: size[1]})
}

// SetFrame is SetNativeSize for an already typed frame.
func (s *Stage) SetFrame(f FrameSize) bool {
	if !f.Valid() {
		return false
	}
	s.size.Store(&f)
	return true
}
