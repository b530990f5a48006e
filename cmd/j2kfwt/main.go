// Command j2kfwt runs the JPEG 2000 forward wavelet transform over an image
// and prints how its tiles decompose into subbands and code-blocks.
//
// The input is a DICOM file with native (uncompressed) pixel data, or a PNG,
// JPEG, TIFF or BMP image.
package main

import (
	"bufio"
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cocosip/go-dicom/pkg/dicom/parser"
	"github.com/cocosip/go-dicom/pkg/imaging"
	"github.com/cocosip/go-dicom/pkg/imaging/imagetypes"

	"github.com/cocosip/go-j2k-wavelet/fwt"
	"github.com/cocosip/go-j2k-wavelet/internal/logging"
	"github.com/cocosip/go-j2k-wavelet/source"
	"github.com/cocosip/go-j2k-wavelet/wavelet"
)

const (
	appName    = "j2kfwt"
	appVersion = "v0.1.0"
)

// options holds the parsed command line.
type options struct {
	input      string
	levels     int
	filter     string
	style      string
	cblk       string
	tile       string
	origin     string
	frame      int
	fixedPoint int
	workers    int
	blocks     bool
	dump       string
	logLevel   string
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatalf("%s: %v", appName, err)
	}
}

func parseFlags(args []string, out io.Writer) (*options, error) {
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	fs.SetOutput(out)
	o := &options{}
	fs.IntVar(&o.levels, "levels", 5, "number of decomposition levels (0-32)")
	fs.StringVar(&o.filter, "filter", "5x3", "wavelet filter (5x3, 9x7)")
	fs.StringVar(&o.style, "style", "dyadic", "decomposition style (dyadic, packet)")
	fs.StringVar(&o.cblk, "cblk", "64x64", "maximum code-block size WxH")
	fs.StringVar(&o.tile, "tile", "", "tile size WxH, empty for a single tile")
	fs.StringVar(&o.origin, "origin", "0,0", "image offset X,Y on the canvas")
	fs.IntVar(&o.frame, "frame", 0, "DICOM frame to transform")
	fs.IntVar(&o.fixedPoint, "fixed", 0, "fractional bits of the fixed-point samples")
	fs.IntVar(&o.workers, "workers", 0, "goroutines per tile, 0 for GOMAXPROCS")
	fs.BoolVar(&o.blocks, "blocks", false, "list every code-block")
	fs.StringVar(&o.dump, "dump", "", "write zstd compressed coefficients to this file")
	fs.StringVar(&o.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	version := fs.Bool("version", false, "show version")
	fs.Usage = func() {
		_, _ = fmt.Fprintf(out, "Usage: %s [flags] <image>\n\n", appName)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if *version {
		_, _ = fmt.Fprintf(out, "%s %s\n", appName, appVersion)
		return nil, flag.ErrHelp
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return nil, fmt.Errorf("expected one input file, got %d", fs.NArg())
	}
	o.input = fs.Arg(0)
	return o, nil
}

// pair parses "AxB" or "A,B".
func pair(s, sep string) (int, int, error) {
	a, b, ok := strings.Cut(strings.TrimSpace(s), sep)
	if !ok {
		return 0, 0, fmt.Errorf("invalid value %q, want A%sB", s, sep)
	}
	x, err := strconv.Atoi(a)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid value %q: %w", s, err)
	}
	y, err := strconv.Atoi(b)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid value %q: %w", s, err)
	}
	return x, y, nil
}

func (o *options) params() (*fwt.Params, error) {
	kind, err := wavelet.ParseKind(o.filter)
	if err != nil {
		return nil, fmt.Errorf("-filter: %w", err)
	}
	style, err := fwt.ParseStyle(o.style)
	if err != nil {
		return nil, fmt.Errorf("-style: %w", err)
	}
	p := fwt.DefaultParams().WithLevels(o.levels).WithFilter(kind).WithStyle(style)
	w, h, err := pair(o.cblk, "x")
	if err != nil {
		return nil, fmt.Errorf("-cblk: %w", err)
	}
	p.WithCodeBlockSize(w, h)
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (o *options) layout() (source.Layout, error) {
	var l source.Layout
	var err error
	if l.X0, l.Y0, err = pair(o.origin, ","); err != nil {
		return l, fmt.Errorf("-origin: %w", err)
	}
	if o.tile != "" {
		if l.TileWidth, l.TileHeight, err = pair(o.tile, "x"); err != nil {
			return l, fmt.Errorf("-tile: %w", err)
		}
	}
	l.FixedPoint = o.fixedPoint
	return l, nil
}

func run(args []string, stdout io.Writer) error {
	o, err := parseFlags(args, stdout)
	if err != nil {
		return err
	}
	logger := logging.New(os.Stderr, logging.ParseLevel(o.logLevel)).Named(appName)

	p, err := o.params()
	if err != nil {
		return err
	}
	layout, err := o.layout()
	if err != nil {
		return err
	}
	img, err := loadImage(o.input, o.frame, layout, logger)
	if err != nil {
		return err
	}

	e, err := fwt.NewEngine(img, p, fwt.WithLogger(logger.Named("engine")), fwt.WithWorkers(o.workers))
	if err != nil {
		return err
	}
	defer e.Close()

	var dumpOut io.Writer
	if o.dump != "" {
		f, err := os.Create(o.dump)
		if err != nil {
			return err
		}
		defer func() {
			_ = f.Close()
		}()
		dumpOut = f
	}

	w := bufio.NewWriter(stdout)
	n, err := writeListing(w, e, o.blocks, dumpOut)
	if err != nil {
		return err
	}
	if dumpOut != nil {
		logger.Info("wrote %d code-blocks to %s", n, o.dump)
	}
	return w.Flush()
}

// writeListing runs transform and, when dumpOut is not nil, dumps every
// code-block to it. The dump stream is finished even when transform fails.
// It returns the number of code-blocks dumped.
func writeListing(w io.Writer, e *fwt.Engine, blocks bool, dumpOut io.Writer) (int, error) {
	if dumpOut == nil {
		return 0, transform(w, e, blocks, nil)
	}
	dump, err := source.NewDumpWriter(dumpOut)
	if err != nil {
		return 0, err
	}
	if err := transform(w, e, blocks, dump); err != nil {
		_ = dump.Close()
		return dump.Count(), err
	}
	if err := dump.Close(); err != nil {
		return dump.Count(), fmt.Errorf("failed to finish dump: %w", err)
	}
	return dump.Count(), nil
}

// isDICOM reports whether data starts with a DICOM preamble.
func isDICOM(head []byte) bool {
	return len(head) >= 132 && bytes.Equal(head[128:132], []byte("DICM"))
}

func loadImage(path string, frame int, layout source.Layout, logger *logging.Logger) (*source.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()
	br := bufio.NewReader(f)
	head, _ := br.Peek(132)

	if !isDICOM(head) && !strings.EqualFold(filepath.Ext(path), ".dcm") {
		img, format, err := source.Decode(br, layout)
		if err != nil {
			return nil, err
		}
		logger.Info("%s: %s image, %d components", path, format, img.NumComponents())
		return img, nil
	}
	return loadDICOM(path, frame, layout, logger)
}

func loadDICOM(path string, frame int, layout source.Layout, logger *logging.Logger) (*source.Image, error) {
	res, err := parser.ParseFile(path, parser.WithReadOption(parser.ReadAll))
	if err != nil {
		return nil, fmt.Errorf("failed to parse DICOM file: %w", err)
	}
	if res.TransferSyntax != nil && res.TransferSyntax.IsEncapsulated() {
		return nil, fmt.Errorf("%s: encapsulated transfer syntax %v is not supported, decompress the file first", path, res.TransferSyntax)
	}

	pd, err := imaging.CreatePixelData(res.Dataset)
	if err != nil {
		return nil, fmt.Errorf("failed to read pixel data: %w", err)
	}
	info := pd.Info
	frames := &dicomFrames{
		info: &imagetypes.FrameInfo{
			Width:                     info.Width,
			Height:                    info.Height,
			BitsAllocated:             info.BitsAllocated,
			BitsStored:                info.BitsStored,
			HighBit:                   info.HighBit,
			SamplesPerPixel:           info.SamplesPerPixel,
			PixelRepresentation:       info.PixelRepresentation,
			PlanarConfiguration:       info.PlanarConfiguration,
			PhotometricInterpretation: info.PhotometricInterpretation,
		},
		count: pd.FrameCount(),
		frame: pd.GetFrame,
	}
	img, err := source.FromPixelData(frames, frame, layout)
	if err != nil {
		return nil, err
	}
	logger.Info("%s: DICOM frame %d of %d, %dx%d, %d samples of %d bits",
		path, frame, frames.count, info.Width, info.Height, info.SamplesPerPixel, info.BitsStored)
	return img, nil
}

// dicomFrames exposes parsed DICOM pixel data as a source.FrameSource.
type dicomFrames struct {
	info  *imagetypes.FrameInfo
	count int
	frame func(int) ([]byte, error)
}

func (d *dicomFrames) GetFrameInfo() *imagetypes.FrameInfo { return d.info }
func (d *dicomFrames) FrameCount() int                     { return d.count }

func (d *dicomFrames) GetFrame(frameIndex int) ([]byte, error) {
	return d.frame(frameIndex)
}

// transform decomposes every tile and writes the subband listing to w.
func transform(w io.Writer, e *fwt.Engine, blocks bool, dump *source.DumpWriter) error {
	for {
		tile := e.Tile()
		if err := e.DecomposeTile(); err != nil {
			return err
		}
		for c := range e.NumComponents() {
			if err := listComponent(w, e, tile, c, blocks, dump); err != nil {
				return err
			}
		}
		if !e.NextTile() {
			return nil
		}
	}
}

func listComponent(w io.Writer, e *fwt.Engine, tile, comp int, blocks bool, dump *source.DumpWriter) error {
	tree := e.SubbandTree(tile, comp)
	root := tree.Node(tree.Root())
	kind := "irreversible"
	if e.IsReversible(tile, comp) {
		kind = "reversible"
	}
	_, _ = fmt.Fprintf(w, "tile %d component %d: %dx%d at (%d,%d), %d levels, %s %s\n",
		tile, comp, root.W, root.H, root.CX0, root.CY0, tree.Levels(), tree.Style(), kind)

	norms, err := e.L2Norms(comp)
	if err != nil {
		return err
	}
	for _, n := range norms {
		b := tree.Node(n.Subband)
		_, _ = fmt.Fprintf(w, "  %s r%d %dx%d at (%d,%d): %dx%d blocks of %dx%d, gain 2^%d, L2 norm %.6f\n",
			n.Orient, n.ResLevel, b.W, b.H, b.X0, b.Y0, b.NumCBlkX, b.NumCBlkY, b.NomCBlkW, b.NomCBlkH, b.GainExp, n.Norm)
	}

	var cb *fwt.CodeBlock
	for {
		cb, err = e.NextCodeBlock(comp, cb)
		if errors.Is(err, fwt.ErrNoMoreCodeBlocks) {
			return nil
		}
		if err != nil {
			return err
		}
		if blocks {
			_, _ = fmt.Fprintf(w, "    %s, max |c| %s\n", cb, maxMagnitude(cb))
		}
		if dump != nil {
			if err := dump.WriteCodeBlock(tile, comp, cb); err != nil {
				return err
			}
		}
	}
}

// maxMagnitude formats the largest coefficient magnitude of cb.
func maxMagnitude(cb *fwt.CodeBlock) string {
	var mi int32
	var mf float32
	for y := 0; y < cb.H; y++ {
		if cb.Ints != nil {
			for _, v := range cb.IntRow(y) {
				mi = max(mi, v, -v)
			}
		} else {
			for _, v := range cb.FloatRow(y) {
				mf = max(mf, v, -v)
			}
		}
	}
	if cb.Ints != nil {
		return strconv.Itoa(int(mi))
	}
	return strconv.FormatFloat(float64(mf), 'f', 3, 32)
}
