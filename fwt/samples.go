package fwt

import (
	"fmt"

	"github.com/cocosip/go-j2k-wavelet/wavelet"
)

// Samples is the dense row-major sample buffer of one tile-component.
// Exactly one of Ints and Floats holds the data, as selected by Type.
type Samples struct {
	Type   wavelet.DataType
	Width  int
	Height int
	// X0 and Y0 are the tile-component origin on the canvas.
	X0, Y0 int

	Ints   []int32
	Floats []float32
}

// NewIntSamples wraps fixed-point data. A nil data slice is allocated.
func NewIntSamples(width, height, x0, y0 int, data []int32) *Samples {
	if data == nil {
		data = make([]int32, width*height)
	}
	return &Samples{Type: wavelet.TypeInt, Width: width, Height: height, X0: x0, Y0: y0, Ints: data}
}

// NewFloatSamples wraps floating-point data. A nil data slice is allocated.
func NewFloatSamples(width, height, x0, y0 int, data []float32) *Samples {
	if data == nil {
		data = make([]float32, width*height)
	}
	return &Samples{Type: wavelet.TypeFloat, Width: width, Height: height, X0: x0, Y0: y0, Floats: data}
}

// Len returns the number of samples, Width*Height.
func (s *Samples) Len() int {
	return s.Width * s.Height
}

// ToFloat returns a floating-point copy of fixed-point samples, as needed
// to feed integer image data to the 9/7 filter. fraction is the number of
// fractional bits of the fixed-point representation.
func (s *Samples) ToFloat(fraction int) *Samples {
	if s.Type == wavelet.TypeFloat {
		return s
	}
	out := NewFloatSamples(s.Width, s.Height, s.X0, s.Y0, nil)
	scale := 1 / float32(int64(1)<<fraction)
	for i, v := range s.Ints {
		out.Floats[i] = float32(v) * scale
	}
	return out
}

func (s *Samples) validate() error {
	if s.Width < 0 || s.Height < 0 {
		return fmt.Errorf("%w: negative sample buffer size %dx%d", ErrInvalidConfiguration, s.Width, s.Height)
	}
	var n int
	switch s.Type {
	case wavelet.TypeInt:
		n = len(s.Ints)
	case wavelet.TypeFloat:
		n = len(s.Floats)
	default:
		return fmt.Errorf("%w: unknown sample type %s", ErrTypeMismatch, s.Type)
	}
	if n < s.Len() {
		return fmt.Errorf("%w: %d samples for a %dx%d buffer", ErrInvalidConfiguration, n, s.Width, s.Height)
	}
	return nil
}
