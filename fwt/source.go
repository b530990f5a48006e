package fwt

import "github.com/cocosip/go-j2k-wavelet/wavelet"

// TileComponentInfo describes the geometry of one tile-component.
type TileComponentInfo struct {
	Width, Height int
	// X0 and Y0 are the tile-component origin on the canvas.
	X0, Y0 int
	// FixedPoint is the number of fractional bits of fixed-point samples.
	FixedPoint int
}

// TileSource supplies the samples of an image split into tiles and
// components. Samples may be called concurrently for different components
// of the same tile.
type TileSource interface {
	NumTiles() int
	NumComponents() int
	TileComponent(tile, comp int) TileComponentInfo
	// Samples returns a buffer of the given type that the caller may
	// transform in place.
	Samples(tile, comp int, dt wavelet.DataType) (*Samples, error)
}
