package source

import (
	"fmt"
	"image"
	"image/color"
	"io"

	// Register image decoders
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// Decode reads a PNG, JPEG, TIFF or BMP image and returns it as an Image
// together with the format name.
func Decode(r io.Reader, layout Layout) (*Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	out, err := FromImage(img, layout)
	if err != nil {
		return nil, format, err
	}
	return out, format, nil
}

// FromImage converts img to an Image. Gray images give one component,
// other color models three (R, G and B); alpha is dropped. 16-bit models
// keep 16 bits per sample, everything else is read with 8 bits.
func FromImage(img image.Image, layout Layout) (*Image, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	n := w * h

	var planes [][]int32
	depth := 8
	switch src := img.(type) {
	case *image.Gray:
		planes = [][]int32{make([]int32, n)}
		for y := 0; y < h; y++ {
			off := src.PixOffset(b.Min.X, b.Min.Y+y)
			row := src.Pix[off : off+w]
			for x, v := range row {
				planes[0][y*w+x] = int32(v)
			}
		}
	case *image.Gray16:
		depth = 16
		planes = [][]int32{make([]int32, n)}
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				planes[0][y*w+x] = int32(src.Gray16At(b.Min.X+x, b.Min.Y+y).Y)
			}
		}
	default:
		shift := uint32(8)
		switch img.ColorModel() {
		case color.Gray16Model, color.RGBA64Model, color.NRGBA64Model:
			depth, shift = 16, 0
		}
		planes = [][]int32{make([]int32, n), make([]int32, n), make([]int32, n)}
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
				i := y*w + x
				planes[0][i] = int32(r >> shift)
				planes[1][i] = int32(g >> shift)
				planes[2][i] = int32(bl >> shift)
			}
		}
	}

	return New(Config{
		Width:      w,
		Height:     h,
		Components: len(planes),
		BitDepth:   depth,
		Layout:     layout,
	}, planes)
}
