// Package source adapts image data to the fwt.TileSource contract.
//
// Image holds the sample planes of an image in memory and splits them into
// JPEG 2000 tiles on the canvas. Images can be built from raw planes, from
// DICOM pixel data frames or from any image.Image.
package source

import (
	"fmt"

	"github.com/cocosip/go-j2k-wavelet/fwt"
	"github.com/cocosip/go-j2k-wavelet/wavelet"
)

// Ensure Image implements fwt.TileSource
var _ fwt.TileSource = (*Image)(nil)

// Layout places an image on the canvas and splits it into tiles.
type Layout struct {
	// X0 and Y0 are the offset of the image area on the canvas.
	X0, Y0 int
	// TileWidth and TileHeight give the tile size. 0 means a single tile
	// covering the whole image.
	TileWidth, TileHeight int
	// TileX0 and TileY0 are the origin of the tile grid. They must not
	// exceed X0 and Y0, and the first tile must overlap the image.
	TileX0, TileY0 int
	// FixedPoint is the number of fractional bits added to every sample.
	FixedPoint int
}

// Config describes the samples of an Image.
type Config struct {
	Width, Height int
	Components    int
	// BitDepth is the number of significant bits per sample (1-31).
	BitDepth int
	// Signed samples are used as is; unsigned samples are DC level
	// shifted by 2^(BitDepth-1).
	Signed bool

	Layout
}

// Image is an in-memory image. It is safe for concurrent use.
type Image struct {
	cfg    Config
	planes [][]int32
	tilesX int
	tilesY int
}

// New returns an image over planes, one row-major plane of Width*Height
// samples per component. The planes are not copied.
func New(cfg Config, planes [][]int32) (*Image, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if len(planes) != cfg.Components {
		return nil, fmt.Errorf("%w: %d planes for %d components", fwt.ErrInvalidConfiguration, len(planes), cfg.Components)
	}
	for c, p := range planes {
		if len(p) < cfg.Width*cfg.Height {
			return nil, fmt.Errorf("%w: component %d has %d samples, need %d",
				fwt.ErrInvalidConfiguration, c, len(p), cfg.Width*cfg.Height)
		}
	}

	img := &Image{cfg: cfg, planes: planes}
	if img.cfg.TileWidth == 0 {
		img.cfg.TileWidth = cfg.X0 + cfg.Width - cfg.TileX0
	}
	if img.cfg.TileHeight == 0 {
		img.cfg.TileHeight = cfg.Y0 + cfg.Height - cfg.TileY0
	}
	img.tilesX = ceilDiv(cfg.X0+cfg.Width-cfg.TileX0, img.cfg.TileWidth)
	img.tilesY = ceilDiv(cfg.Y0+cfg.Height-cfg.TileY0, img.cfg.TileHeight)
	return img, nil
}

func (c *Config) validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: image size %dx%d", fwt.ErrInvalidConfiguration, c.Width, c.Height)
	}
	if c.Components <= 0 {
		return fmt.Errorf("%w: %d components", fwt.ErrInvalidConfiguration, c.Components)
	}
	if c.BitDepth < 1 || c.BitDepth > 31 {
		return fmt.Errorf("%w: bit depth %d not in [1,31]", fwt.ErrInvalidConfiguration, c.BitDepth)
	}
	if c.X0 < 0 || c.Y0 < 0 {
		return fmt.Errorf("%w: negative image offset (%d,%d)", fwt.ErrInvalidConfiguration, c.X0, c.Y0)
	}
	if c.TileWidth < 0 || c.TileHeight < 0 {
		return fmt.Errorf("%w: negative tile size %dx%d", fwt.ErrInvalidConfiguration, c.TileWidth, c.TileHeight)
	}
	if c.TileX0 < 0 || c.TileY0 < 0 || c.TileX0 > c.X0 || c.TileY0 > c.Y0 {
		return fmt.Errorf("%w: tile grid origin (%d,%d) must lie in [0,%d]x[0,%d]",
			fwt.ErrInvalidConfiguration, c.TileX0, c.TileY0, c.X0, c.Y0)
	}
	if (c.TileWidth > 0 && c.TileX0+c.TileWidth <= c.X0) || (c.TileHeight > 0 && c.TileY0+c.TileHeight <= c.Y0) {
		return fmt.Errorf("%w: first tile does not overlap the image", fwt.ErrInvalidConfiguration)
	}
	if c.FixedPoint < 0 || c.FixedPoint+c.BitDepth > 31 {
		return fmt.Errorf("%w: %d fixed-point bits for %d-bit samples", fwt.ErrInvalidConfiguration, c.FixedPoint, c.BitDepth)
	}
	return nil
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// Config returns the configuration of the image with the tile size
// resolved.
func (img *Image) Config() Config {
	return img.cfg
}

// NumTiles returns the number of tiles.
func (img *Image) NumTiles() int {
	return img.tilesX * img.tilesY
}

// TileGrid returns the number of tiles across and down.
func (img *Image) TileGrid() (x, y int) {
	return img.tilesX, img.tilesY
}

// NumComponents returns the number of components.
func (img *Image) NumComponents() int {
	return img.cfg.Components
}

// tileRect returns the canvas area of tile t clipped to the image.
func (img *Image) tileRect(t int) (x0, y0, x1, y1 int) {
	c := &img.cfg
	p, q := t%img.tilesX, t/img.tilesX
	x0 = max(c.TileX0+p*c.TileWidth, c.X0)
	y0 = max(c.TileY0+q*c.TileHeight, c.Y0)
	x1 = min(c.TileX0+(p+1)*c.TileWidth, c.X0+c.Width)
	y1 = min(c.TileY0+(q+1)*c.TileHeight, c.Y0+c.Height)
	return x0, y0, x1, y1
}

// TileComponent returns the geometry of a tile-component. Components are
// not subsampled, so every component of a tile has the same geometry.
func (img *Image) TileComponent(tile, comp int) fwt.TileComponentInfo {
	x0, y0, x1, y1 := img.tileRect(tile)
	return fwt.TileComponentInfo{
		Width:      x1 - x0,
		Height:     y1 - y0,
		X0:         x0,
		Y0:         y0,
		FixedPoint: img.cfg.FixedPoint,
	}
}

// Samples extracts a tile-component, DC level shifted and scaled to the
// fixed-point representation. Floating-point requests get the same values
// divided by 2^FixedPoint.
func (img *Image) Samples(tile, comp int, dt wavelet.DataType) (*fwt.Samples, error) {
	if tile < 0 || tile >= img.NumTiles() {
		return nil, fmt.Errorf("%w: %d (image has %d)", fwt.ErrNoSuchTile, tile, img.NumTiles())
	}
	if comp < 0 || comp >= img.cfg.Components {
		return nil, fmt.Errorf("%w: %d (image has %d)", fwt.ErrNoSuchComponent, comp, img.cfg.Components)
	}

	x0, y0, x1, y1 := img.tileRect(tile)
	w, h := x1-x0, y1-y0
	out := fwt.NewIntSamples(w, h, x0, y0, nil)

	var shift int32
	if !img.cfg.Signed {
		shift = 1 << (img.cfg.BitDepth - 1)
	}
	plane := img.planes[comp]
	for y := 0; y < h; y++ {
		src := plane[(y0-img.cfg.Y0+y)*img.cfg.Width+x0-img.cfg.X0:]
		dst := out.Ints[y*w : (y+1)*w]
		for x := range dst {
			dst[x] = (src[x] - shift) << img.cfg.FixedPoint
		}
	}

	if dt == wavelet.TypeFloat {
		return out.ToFloat(img.cfg.FixedPoint), nil
	}
	return out, nil
}
