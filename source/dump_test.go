package source

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cocosip/go-j2k-wavelet/fwt"
	"github.com/cocosip/go-j2k-wavelet/wavelet"
)

func TestDumpRoundTrip(t *testing.T) {
	const w, h = 20, 12
	img, err := New(Config{Width: w, Height: h, Components: 1, BitDepth: 8}, [][]int32{rampPlane(w * h)})
	require.NoError(t, err)

	for _, kind := range []wavelet.Kind{wavelet.W5X3, wavelet.W9X7} {
		t.Run(kind.String(), func(t *testing.T) {
			e, err := fwt.NewEngine(img, fwt.DefaultParams().WithFilter(kind).WithLevels(2).WithCodeBlockSize(8, 4))
			require.NoError(t, err)
			defer e.Close()

			var buf bytes.Buffer
			dw, err := NewDumpWriter(&buf, zstd.WithEncoderLevel(zstd.SpeedFastest))
			require.NoError(t, err)
			var written []*fwt.CodeBlock
			for {
				cb, err := e.NextCodeBlock(0, nil)
				if errors.Is(err, fwt.ErrNoMoreCodeBlocks) {
					break
				}
				require.NoError(t, err)
				require.NoError(t, dw.WriteCodeBlock(0, 0, cb))
				written = append(written, cb)
			}
			require.NoError(t, dw.Close())
			assert.Equal(t, len(written), dw.Count())

			dr, err := NewDumpReader(&buf)
			require.NoError(t, err)
			defer dr.Close()
			for i, cb := range written {
				rec, err := dr.Next()
				require.NoError(t, err, "record %d", i)
				assert.Equal(t, cb.Band.Orient, rec.Orient)
				assert.Equal(t, cb.Band.ResLevel, rec.ResLevel)
				assert.Equal(t, [6]int{cb.N, cb.M, cb.X0, cb.Y0, cb.W, cb.H},
					[6]int{rec.N, rec.M, rec.X0, rec.Y0, rec.W, rec.H})
				assert.Equal(t, cb.Type, rec.Type)
				assert.Equal(t, cb.Ints, rec.Ints)
				assert.Equal(t, cb.Floats, rec.Floats)
			}
			_, err = dr.Next()
			assert.ErrorIs(t, err, io.EOF)
		})
	}
}

func TestDumpReaderRejectsForeignStreams(t *testing.T) {
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	_, err = enc.Write([]byte("NOTADUMP and more"))
	require.NoError(t, err)
	require.NoError(t, enc.Close())

	_, err = NewDumpReader(&buf)
	assert.ErrorContains(t, err, "bad dump magic")
}
