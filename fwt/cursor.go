package fwt

import (
	"iter"

	"github.com/cocosip/go-j2k-wavelet/subband"
	"github.com/cocosip/go-j2k-wavelet/wavelet"
)

// Cursor walks the code-blocks of a Decomposition in delivery order: the
// subbands in subband.Tree leaf order, and the blocks of a subband row by
// row. A Cursor owns its position, so several cursors can walk the same
// decomposition independently. A Cursor is not safe for concurrent use.
type Cursor struct {
	d       *Decomposition
	leaf    subband.NodeID
	n, m    int
	started bool
	done    bool
}

// Cursor returns a cursor positioned before the first code-block.
func (d *Decomposition) Cursor() *Cursor {
	return &Cursor{d: d, leaf: subband.NoNode}
}

// CodeBlocks returns an iterator over live views of every code-block.
func (d *Decomposition) CodeBlocks() iter.Seq[*CodeBlock] {
	return func(yield func(*CodeBlock) bool) {
		c := d.Cursor()
		for {
			cb, ok := c.Next(nil)
			if !ok || !yield(cb) {
				return
			}
		}
	}
}

// Reset moves the cursor back before the first code-block.
func (c *Cursor) Reset() {
	c.leaf = subband.NoNode
	c.n, c.m = 0, 0
	c.started, c.done = false, false
}

// Done reports whether the cursor is exhausted.
func (c *Cursor) Done() bool {
	return c.done
}

// advance moves to the next code-block, skipping subbands without any.
func (c *Cursor) advance() bool {
	if c.done {
		return false
	}
	if c.d.Released() {
		c.done = true
		return false
	}
	t := c.d.Tree
	if !c.started {
		c.started = true
		c.leaf = t.FirstLeaf()
		c.n, c.m = 0, 0
	} else {
		c.n++
		if c.n >= t.Node(c.leaf).NumCBlkX {
			c.n = 0
			c.m++
		}
	}
	for c.leaf != subband.NoNode {
		n := t.Node(c.leaf)
		if c.m < n.NumCBlkY && c.n < n.NumCBlkX {
			return true
		}
		c.leaf = t.NextLeaf(c.leaf)
		c.n, c.m = 0, 0
	}
	c.done = true
	return false
}

// describe fills the geometry of the current code-block into cb, or into
// a new CodeBlock if cb is nil.
func (c *Cursor) describe(cb *CodeBlock) *CodeBlock {
	if cb == nil {
		cb = new(CodeBlock)
	}
	t := c.d.Tree
	r := t.CodeBlockRect(c.leaf, c.n, c.m)
	*cb = CodeBlock{
		N:           c.n,
		M:           c.m,
		Subband:     c.leaf,
		Band:        t.Node(c.leaf),
		X0:          r.X0,
		Y0:          r.Y0,
		W:           r.W,
		H:           r.H,
		Type:        c.d.Type,
		WMSEScaling: 1,
	}
	return cb
}

// Next returns the next code-block as a view into the decomposition
// buffer. cb is reused when not nil. The data must not be modified and is
// only valid until the decomposition is released. Next returns false once
// every code-block has been delivered.
func (c *Cursor) Next(cb *CodeBlock) (*CodeBlock, bool) {
	if !c.advance() {
		return nil, false
	}
	cb = c.describe(cb)
	cb.Ints = c.d.Ints
	cb.Floats = c.d.Floats
	cb.Offset = cb.Y0*c.d.Scanw + cb.X0
	cb.Scanw = c.d.Scanw
	return cb, true
}

// NextCopy returns the next code-block with a private copy of its data,
// which the caller may keep and modify. When cb is not nil its data slice
// is reused if large enough.
func (c *Cursor) NextCopy(cb *CodeBlock) (*CodeBlock, bool) {
	if !c.advance() {
		return nil, false
	}
	var ints []int32
	var floats []float32
	if cb != nil {
		ints, floats = cb.Ints, cb.Floats
	}
	cb = c.describe(cb)

	size := cb.W * cb.H
	src := cb.Y0*c.d.Scanw + cb.X0
	switch c.d.Type {
	case wavelet.TypeInt:
		if cap(ints) < size || sharesBacking(ints, c.d.Ints) {
			ints = make([]int32, size)
		}
		cb.Ints = ints[:size]
		copyRect(cb.Ints, c.d.Ints, src, c.d.Scanw, cb.W, cb.H)
	case wavelet.TypeFloat:
		if cap(floats) < size || sharesBacking(floats, c.d.Floats) {
			floats = make([]float32, size)
		}
		cb.Floats = floats[:size]
		copyRect(cb.Floats, c.d.Floats, src, c.d.Scanw, cb.W, cb.H)
	}
	cb.Offset = 0
	cb.Scanw = cb.W
	return cb, true
}
