package source

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/klauspost/compress/zstd"

	"github.com/cocosip/go-j2k-wavelet/fwt"
	"github.com/cocosip/go-j2k-wavelet/subband"
	"github.com/cocosip/go-j2k-wavelet/wavelet"
)

// dumpMagic starts every coefficient dump.
const dumpMagic = "J2KFWT01"

// dumpHeaderLen is the size of a record header: 11 little-endian int32.
const dumpHeaderLen = 11 * 4

// DumpRecord is one code-block read back from a dump.
type DumpRecord struct {
	Tile, Component int
	Orient          subband.Orientation
	ResLevel        int
	N, M            int
	X0, Y0, W, H    int
	Type            wavelet.DataType
	Ints            []int32
	Floats          []float32
}

// DumpWriter writes code-block coefficients to a zstd compressed stream.
// Each record is a header of 11 little-endian int32 (tile, component,
// orientation, resolution level, n, m, x0, y0, w, h, data type) followed by
// the W*H coefficients as int32 or float32 bits.
type DumpWriter struct {
	enc *zstd.Encoder
	buf []byte
	n   int
}

// NewDumpWriter starts a dump on w.
func NewDumpWriter(w io.Writer, opts ...zstd.EOption) (*DumpWriter, error) {
	enc, err := zstd.NewWriter(w, opts...)
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	if _, err := io.WriteString(enc, dumpMagic); err != nil {
		_ = enc.Close()
		return nil, err
	}
	return &DumpWriter{enc: enc}, nil
}

// Count returns the number of code-blocks written.
func (d *DumpWriter) Count() int {
	return d.n
}

// WriteCodeBlock appends the coefficients of cb.
func (d *DumpWriter) WriteCodeBlock(tile, comp int, cb *fwt.CodeBlock) error {
	orient, res := subband.LL, 0
	if cb.Band != nil {
		orient, res = cb.Band.Orient, cb.Band.ResLevel
	}
	d.buf = d.buf[:0]
	for _, v := range [...]int{tile, comp, int(orient), res, cb.N, cb.M, cb.X0, cb.Y0, cb.W, cb.H, int(cb.Type)} {
		d.buf = binary.LittleEndian.AppendUint32(d.buf, uint32(int32(v)))
	}
	for y := 0; y < cb.H; y++ {
		if cb.Type == wavelet.TypeFloat {
			for _, v := range cb.FloatRow(y) {
				d.buf = binary.LittleEndian.AppendUint32(d.buf, math.Float32bits(v))
			}
			continue
		}
		for _, v := range cb.IntRow(y) {
			d.buf = binary.LittleEndian.AppendUint32(d.buf, uint32(v))
		}
	}
	if _, err := d.enc.Write(d.buf); err != nil {
		return fmt.Errorf("failed to write code-block %s: %w", cb, err)
	}
	d.n++
	return nil
}

// Close flushes the stream. It does not close the underlying writer.
func (d *DumpWriter) Close() error {
	return d.enc.Close()
}

// DumpReader reads back a dump written by DumpWriter.
type DumpReader struct {
	dec *zstd.Decoder
	r   *bufio.Reader
	hdr [dumpHeaderLen]byte
}

// NewDumpReader opens a dump.
func NewDumpReader(r io.Reader) (*DumpReader, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	br := bufio.NewReader(dec)
	magic := make([]byte, len(dumpMagic))
	if _, err := io.ReadFull(br, magic); err != nil {
		dec.Close()
		return nil, fmt.Errorf("read dump header: %w", err)
	}
	if string(magic) != dumpMagic {
		dec.Close()
		return nil, fmt.Errorf("bad dump magic: %q", magic)
	}
	return &DumpReader{dec: dec, r: br}, nil
}

// Next returns the next record, or io.EOF after the last one.
func (d *DumpReader) Next() (*DumpRecord, error) {
	if _, err := io.ReadFull(d.r, d.hdr[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("truncated dump record: %w", err)
		}
		return nil, err
	}
	var f [11]int
	for i := range f {
		f[i] = int(int32(binary.LittleEndian.Uint32(d.hdr[i*4:])))
	}
	rec := &DumpRecord{
		Tile: f[0], Component: f[1], Orient: subband.Orientation(f[2]), ResLevel: f[3],
		N: f[4], M: f[5], X0: f[6], Y0: f[7], W: f[8], H: f[9], Type: wavelet.DataType(f[10]),
	}
	if rec.W < 0 || rec.H < 0 {
		return nil, fmt.Errorf("bad dump record size %dx%d", rec.W, rec.H)
	}

	data := make([]byte, 4*rec.W*rec.H)
	if _, err := io.ReadFull(d.r, data); err != nil {
		return nil, fmt.Errorf("truncated dump record: %w", err)
	}
	switch rec.Type {
	case wavelet.TypeInt:
		rec.Ints = make([]int32, rec.W*rec.H)
		for i := range rec.Ints {
			rec.Ints[i] = int32(binary.LittleEndian.Uint32(data[i*4:]))
		}
	case wavelet.TypeFloat:
		rec.Floats = make([]float32, rec.W*rec.H)
		for i := range rec.Floats {
			rec.Floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
		}
	default:
		return nil, fmt.Errorf("bad dump data type %d", int(rec.Type))
	}
	return rec, nil
}

// Close releases the decoder.
func (d *DumpReader) Close() {
	d.dec.Close()
}
