package subband

import (
	"fmt"
	"math/bits"
)

// Rect is a rectangle in the tile-component buffer.
type Rect struct {
	X0, Y0 int
	W, H   int
}

// precinctAt returns the precinct exponents of resolution level res.
func (t *Tree) precinctAt(res int) PrecinctSize {
	if len(t.cfg.Precincts) == 0 {
		return PrecinctSize{PPX: DefaultPrecinctExp, PPY: DefaultPrecinctExp}
	}
	i := t.cfg.Levels - res
	if i >= len(t.cfg.Precincts) {
		i = len(t.cfg.Precincts) - 1
	}
	return t.cfg.Precincts[i]
}

// NominalCodeBlockSize returns the nominal code-block size of subbands at
// resolution level res: the configured maximum bounded by the precinct
// size. Above level 0 a subband covers half a precinct on each axis.
func (t *Tree) NominalCodeBlockSize(res int) (w, h int) {
	pp := t.precinctAt(res)
	ppx, ppy := pp.PPX, pp.PPY
	if res != 0 {
		ppx--
		ppy--
	}
	cbw := bits.Len(uint(t.cfg.CBlkWidth)) - 1
	cbh := bits.Len(uint(t.cfg.CBlkHeight)) - 1
	return 1 << max(min(cbw, ppx), 0), 1 << max(min(cbh, ppy), 0)
}

// SubbandPartitionOrigin projects the code-block partition origin onto the
// grid of subband id: high-pass axes project to 0, low-pass axes keep the
// configured origin.
func (t *Tree) SubbandPartitionOrigin(id NodeID) (x, y int) {
	switch o := t.GlobalOrientation(id); o {
	case LL:
		return t.cfg.CB0X, t.cfg.CB0Y
	case HL:
		return 0, t.cfg.CB0Y
	case LH:
		return t.cfg.CB0X, 0
	case HH:
		return 0, 0
	default:
		panic(fmt.Errorf("%w: subband %d has global orientation %d", ErrInternalInvariant, id, int(o)))
	}
}

// blockCount counts the code-blocks of size nom intersecting n samples
// starting at canvas coordinate c0, for a partition anchored at origin.
// c0-origin must not be negative; nom is added before dividing so every
// dividend stays non-negative.
func blockCount(c0, n, origin, nom int) int {
	if n <= 0 {
		return 0
	}
	tmp := c0 - origin + nom
	return (tmp+n-1)/nom - (tmp/nom - 1)
}

// initCodeBlocks computes the code-block partition of every leaf.
func (t *Tree) initCodeBlocks() error {
	for id := range t.nodes {
		n := &t.nodes[id]
		if !n.IsLeaf() {
			continue
		}
		ax, ay := t.SubbandPartitionOrigin(NodeID(id))
		if n.CX0-ax < 0 || n.CY0-ay < 0 {
			return fmt.Errorf("%w: code-block partition origin (%d,%d) lies after subband %s origin (%d,%d)",
				ErrInvalidConfiguration, ax, ay, n.Orient, n.CX0, n.CY0)
		}
		n.NomCBlkW, n.NomCBlkH = t.NominalCodeBlockSize(n.ResLevel)
		n.NumCBlkX = blockCount(n.CX0, n.W, ax, n.NomCBlkW)
		n.NumCBlkY = blockCount(n.CY0, n.H, ay, n.NomCBlkH)
		if n.NumCBlkX == 0 || n.NumCBlkY == 0 {
			n.NumCBlkX, n.NumCBlkY = 0, 0
		}
	}
	return nil
}

// CodeBlockRect returns the location of code-block (cx, cy) of leaf id in
// the tile-component buffer. Blocks on the subband edges are clipped to it.
func (t *Tree) CodeBlockRect(id NodeID, cx, cy int) Rect {
	n := &t.nodes[id]
	ax, ay := t.SubbandPartitionOrigin(id)
	x0, w := blockSpan(n.X0, n.W, n.CX0-ax, n.NomCBlkW, cx, n.NumCBlkX)
	y0, h := blockSpan(n.Y0, n.H, n.CY0-ay, n.NomCBlkH, cy, n.NumCBlkY)
	return Rect{X0: x0, Y0: y0, W: w, H: h}
}

// blockSpan locates block i of count along one axis. start and size are
// the subband extent in the buffer; rel is the subband canvas origin
// relative to the partition origin.
func blockSpan(start, size, rel, nom, i, count int) (pos, length int) {
	first := (rel+nom)/nom - 1
	if i == 0 {
		pos = start
	} else {
		pos = (first+i)*nom - rel + start
	}
	if i < count-1 {
		length = (first+i+1)*nom - rel + start - pos
	} else {
		length = start + size - pos
	}
	return pos, length
}
