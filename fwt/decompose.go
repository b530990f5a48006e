// Package fwt implements the forward discrete wavelet transform of JPEG 2000
// tile-components and the delivery of the transformed data to an entropy
// coder one code-block at a time.
//
// A tile-component is decomposed in place according to its subband.Tree.
// Code-blocks are then read with a Cursor, either as live views into the
// decomposition buffer or as private copies. Engine drives the whole
// process for an image made of several tiles and components.
//
// Reference: ISO/IEC 15444-1:2019 Annex F (F.4)
package fwt

import (
	"fmt"

	"github.com/cocosip/go-j2k-wavelet/subband"
	"github.com/cocosip/go-j2k-wavelet/wavelet"
)

// Decomposition is a tile-component after the forward transform. Every
// subband of Tree lives at its own location in the coefficient buffer,
// which is row-major with a scan width of Scanw.
type Decomposition struct {
	Tree  *subband.Tree
	Type  wavelet.DataType
	Scanw int

	Ints   []int32
	Floats []float32
}

// Decompose applies the forward transform described by tree to s. The
// samples are transformed in place and the returned Decomposition takes
// ownership of their buffer.
func Decompose(s *Samples, tree *subband.Tree) (*Decomposition, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	root := tree.Node(tree.Root())
	if root.W != s.Width || root.H != s.Height || root.CX0 != s.X0 || root.CY0 != s.Y0 {
		return nil, fmt.Errorf("%w: samples %dx%d at (%d,%d) do not match subband tree %dx%d at (%d,%d)",
			ErrInvalidConfiguration, s.Width, s.Height, s.X0, s.Y0, root.W, root.H, root.CX0, root.CY0)
	}
	if tree.Levels() > 0 && tree.DataType() != s.Type {
		return nil, fmt.Errorf("%w: %s samples for %s filters", ErrTypeMismatch, s.Type, tree.DataType())
	}

	d := &Decomposition{Tree: tree, Type: s.Type, Scanw: s.Width}
	switch s.Type {
	case wavelet.TypeInt:
		d.Ints = s.Ints
		newDecomposer(tree, d.Ints, d.Scanw).node(tree.Root())
	case wavelet.TypeFloat:
		d.Floats = s.Floats
		newDecomposer(tree, d.Floats, d.Scanw).node(tree.Root())
	}
	return d, nil
}

// Release drops the coefficient buffer. Cursors over a released
// decomposition deliver no more code-blocks.
func (d *Decomposition) Release() {
	d.Ints = nil
	d.Floats = nil
}

// Released reports whether Release has been called.
func (d *Decomposition) Released() bool {
	return d.Ints == nil && d.Floats == nil
}

// decomposer splits the subbands of one buffer. line is the scratch row or
// column every 1D pass reads from.
type decomposer[T wavelet.Sample] struct {
	tree  *subband.Tree
	data  []T
	scanw int
	line  []T
}

func newDecomposer[T wavelet.Sample](tree *subband.Tree, data []T, scanw int) *decomposer[T] {
	root := tree.Node(tree.Root())
	return &decomposer[T]{
		tree:  tree,
		data:  data,
		scanw: scanw,
		line:  make([]T, max(root.W, root.H)),
	}
}

// node splits subband id, then its children HH, LH, HL and LL.
func (d *decomposer[T]) node(id subband.NodeID) {
	n := d.tree.Node(id)
	if n.IsLeaf() {
		return
	}
	ll := d.tree.Node(n.Children[subband.LL])
	if n.W > 0 && n.H > 0 {
		d.vertical(n, ll.H, analyzer[T](n.VFilter))
		d.horizontal(n, ll.W, analyzer[T](n.HFilter))
	}
	for _, o := range [...]subband.Orientation{subband.HH, subband.LH, subband.HL, subband.LL} {
		d.node(n.Children[o])
	}
}

// vertical filters every column of n. Low-pass rows go to the top, the
// high-pass rows start lowH rows down.
func (d *decomposer[T]) vertical(n *subband.Node, lowH int, f wavelet.Analyzer[T]) {
	even := wavelet.IsEven(n.CY0)
	line := d.line[:n.H]
	for x := n.X0; x < n.X0+n.W; x++ {
		off := n.Y0*d.scanw + x
		for i := range line {
			line[i] = d.data[off+i*d.scanw]
		}
		highOff := off + lowH*d.scanw
		if even {
			f.AnalyzeLPF(line, 0, n.H, 1, d.data, off, d.scanw, d.data, highOff, d.scanw)
		} else {
			f.AnalyzeHPF(line, 0, n.H, 1, d.data, off, d.scanw, d.data, highOff, d.scanw)
		}
	}
}

// horizontal filters every row of n. Low-pass columns go to the left, the
// high-pass columns start lowW columns right.
func (d *decomposer[T]) horizontal(n *subband.Node, lowW int, f wavelet.Analyzer[T]) {
	even := wavelet.IsEven(n.CX0)
	line := d.line[:n.W]
	for y := n.Y0; y < n.Y0+n.H; y++ {
		off := y*d.scanw + n.X0
		copy(line, d.data[off:off+n.W])
		if even {
			f.AnalyzeLPF(line, 0, n.W, 1, d.data, off, 1, d.data, off+lowW, 1)
		} else {
			f.AnalyzeHPF(line, 0, n.W, 1, d.data, off, 1, d.data, off+lowW, 1)
		}
	}
}

func analyzer[T wavelet.Sample](f wavelet.Filter) wavelet.Analyzer[T] {
	a, ok := f.(wavelet.Analyzer[T])
	if !ok {
		var zero T
		panic(fmt.Errorf("%w: filter %v cannot analyze %T samples", subband.ErrInternalInvariant, f, zero))
	}
	return a
}
