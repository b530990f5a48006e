package fwt

import (
	"fmt"

	"github.com/cocosip/go-j2k-wavelet/subband"
	"github.com/cocosip/go-j2k-wavelet/wavelet"
)

// CodeBlock describes one code-block and gives access to its coefficients.
// Sample (x, y) of the block is at Offset + y*Scanw + x in Ints or Floats.
type CodeBlock struct {
	// N is the column and M the row of the block in the subband's grid.
	N, M int

	Subband subband.NodeID
	Band    *subband.Node

	// X0, Y0, W and H locate the block in the tile-component buffer.
	X0, Y0 int
	W, H   int

	Type   wavelet.DataType
	Ints   []int32
	Floats []float32
	Offset int
	Scanw  int

	// StepSize is the quantization step, set by the quantizer.
	StepSize float32
	// WMSEScaling weights the block's distortion, 1 unless a rate
	// allocator changes it.
	WMSEScaling float32
	// MagBits is the number of magnitude bit-planes, set by the quantizer.
	MagBits int

	// Region of interest counters, set by the ROI scaler.
	NROICoeff     int
	NROIBitPlanes int
}

// IntRow returns row y of a fixed-point block.
func (cb *CodeBlock) IntRow(y int) []int32 {
	off := cb.Offset + y*cb.Scanw
	return cb.Ints[off : off+cb.W]
}

// FloatRow returns row y of a floating-point block.
func (cb *CodeBlock) FloatRow(y int) []float32 {
	off := cb.Offset + y*cb.Scanw
	return cb.Floats[off : off+cb.W]
}

func (cb *CodeBlock) String() string {
	orient := "?"
	res := -1
	if cb.Band != nil {
		orient = cb.Band.Orient.String()
		res = cb.Band.ResLevel
	}
	return fmt.Sprintf("code-block (%d,%d) of %s r%d: %dx%d at (%d,%d)",
		cb.N, cb.M, orient, res, cb.W, cb.H, cb.X0, cb.Y0)
}

func copyRect[T wavelet.Sample](dst, src []T, off, scanw, w, h int) {
	for y := 0; y < h; y++ {
		s := off + y*scanw
		copy(dst[y*w:(y+1)*w], src[s:s+w])
	}
}

// sharesBacking reports whether a and b start at the same element.
func sharesBacking[T any](a, b []T) bool {
	return cap(a) > 0 && cap(b) > 0 && &a[:1][0] == &b[:1][0]
}
