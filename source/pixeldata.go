package source

import (
	"encoding/binary"
	"fmt"

	"github.com/cocosip/go-dicom/pkg/imaging/imagetypes"

	"github.com/cocosip/go-j2k-wavelet/fwt"
)

// PixelFormat describes the layout of native (uncompressed) DICOM pixel
// data.
type PixelFormat struct {
	Width, Height   int
	SamplesPerPixel int
	BitsAllocated   int
	BitsStored      int
	// Signed is PixelRepresentation 1.
	Signed bool
	// Planar is PlanarConfiguration 1: one plane per sample instead of
	// interleaved samples.
	Planar bool
}

// FormatOf returns the pixel format described by DICOM frame metadata.
func FormatOf(fi *imagetypes.FrameInfo) PixelFormat {
	return PixelFormat{
		Width:           int(fi.Width),
		Height:          int(fi.Height),
		SamplesPerPixel: int(fi.SamplesPerPixel),
		BitsAllocated:   int(fi.BitsAllocated),
		BitsStored:      int(fi.BitsStored),
		Signed:          fi.PixelRepresentation != 0,
		Planar:          fi.PlanarConfiguration != 0,
	}
}

// FrameSource is the part of imagetypes.PixelData needed to read frames.
type FrameSource interface {
	GetFrameInfo() *imagetypes.FrameInfo
	FrameCount() int
	GetFrame(frameIndex int) ([]byte, error)
}

// FromPixelData builds an Image from one frame of native DICOM pixel data.
func FromPixelData(pd FrameSource, frame int, layout Layout) (*Image, error) {
	if pd == nil {
		return nil, fmt.Errorf("pixel data cannot be nil")
	}
	fi := pd.GetFrameInfo()
	if fi == nil {
		return nil, fmt.Errorf("failed to get frame info from pixel data")
	}
	if frame < 0 || frame >= pd.FrameCount() {
		return nil, fmt.Errorf("frame %d out of range (pixel data has %d)", frame, pd.FrameCount())
	}
	data, err := pd.GetFrame(frame)
	if err != nil {
		return nil, fmt.Errorf("failed to get frame %d: %w", frame, err)
	}
	return FromFrame(data, FormatOf(fi), layout)
}

// FromFrame builds an Image from the bytes of one native frame. Samples of
// 1 to 8 bits allocated take one byte, 9 to 16 bits two little-endian
// bytes.
func FromFrame(data []byte, f PixelFormat, layout Layout) (*Image, error) {
	if f.BitsStored < 1 || f.BitsStored > f.BitsAllocated {
		return nil, fmt.Errorf("%w: %d bits stored in %d allocated", fwt.ErrInvalidConfiguration, f.BitsStored, f.BitsAllocated)
	}
	var bytesPerSample int
	switch {
	case f.BitsAllocated <= 8:
		bytesPerSample = 1
	case f.BitsAllocated <= 16:
		bytesPerSample = 2
	default:
		return nil, fmt.Errorf("%w: %d bits allocated not supported", fwt.ErrInvalidConfiguration, f.BitsAllocated)
	}
	if f.Width <= 0 || f.Height <= 0 || f.SamplesPerPixel <= 0 {
		return nil, fmt.Errorf("%w: frame %dx%d with %d samples per pixel",
			fwt.ErrInvalidConfiguration, f.Width, f.Height, f.SamplesPerPixel)
	}

	numPixels := f.Width * f.Height
	expected := numPixels * f.SamplesPerPixel * bytesPerSample
	if len(data) < expected {
		return nil, fmt.Errorf("insufficient pixel data: got %d bytes, need %d", len(data), expected)
	}

	mask := uint32(1)<<f.BitsStored - 1
	sign := uint32(1) << (f.BitsStored - 1)
	planes := make([][]int32, f.SamplesPerPixel)
	for c := range planes {
		planes[c] = make([]int32, numPixels)
		for i := range numPixels {
			idx := i*f.SamplesPerPixel + c
			if f.Planar {
				idx = c*numPixels + i
			}
			var raw uint32
			if bytesPerSample == 1 {
				raw = uint32(data[idx])
			} else {
				raw = uint32(binary.LittleEndian.Uint16(data[idx*2:]))
			}
			raw &= mask
			val := int32(raw)
			if f.Signed && raw&sign != 0 {
				val -= int32(mask) + 1
			}
			planes[c][i] = val
		}
	}

	return New(Config{
		Width:      f.Width,
		Height:     f.Height,
		Components: f.SamplesPerPixel,
		BitDepth:   f.BitsStored,
		Signed:     f.Signed,
		Layout:     layout,
	}, planes)
}
