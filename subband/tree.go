// Package subband models the subband decomposition tree of one JPEG 2000
// tile-component: subband geometry in both the tile-component buffer and the
// subband's own canvas grid, code-block partitioning, and the L2 norms of the
// synthesis basis functions used for distortion weighting.
//
// The tree is an arena of nodes addressed by NodeID. Parents are stored as
// indices, so upward navigation needs no back-pointers.
package subband

import (
	"fmt"

	"github.com/cocosip/go-j2k-wavelet/wavelet"
)

// MaxLevels is the largest decomposition depth JPEG 2000 allows.
const MaxLevels = 32

// MaxPacketLevels bounds the depth of a packet decomposition, whose node
// count grows as 4^depth.
const MaxPacketLevels = 8

// DefaultPrecinctExp is the precinct size exponent used when no precinct
// partition is configured (2^15, i.e. one precinct per resolution level).
const DefaultPrecinctExp = 15

// NodeID addresses a node in a Tree.
type NodeID int32

// NoNode is the NodeID of a missing parent or child.
const NoNode NodeID = -1

// Style selects which subbands are split further.
type Style int

const (
	// Dyadic splits only the LL subband at every level (Mallat
	// decomposition, JPEG 2000 Part 1). Depth D gives 3D+1 leaves.
	Dyadic Style = iota
	// Packet splits every subband at every level. Depth D gives 4^D leaves.
	Packet
)

func (s Style) String() string {
	switch s {
	case Dyadic:
		return "dyadic"
	case Packet:
		return "packet"
	default:
		return fmt.Sprintf("Style(%d)", int(s))
	}
}

// PrecinctSize holds the log2 precinct width and height of one resolution
// level.
type PrecinctSize struct {
	PPX, PPY int
}

// Config describes the tile-component a tree is built for.
type Config struct {
	// Width and Height of the tile-component.
	Width, Height int
	// X0 and Y0 are the tile-component origin on the canvas.
	X0, Y0 int

	// Levels is the decomposition depth.
	Levels int
	Style  Style

	// HFilters and VFilters hold the filters of each decomposition level,
	// index 0 being the first (finest) split. The last entry is reused for
	// deeper levels.
	HFilters []wavelet.Filter
	VFilters []wavelet.Filter

	// CBlkWidth and CBlkHeight are the maximum nominal code-block size.
	CBlkWidth, CBlkHeight int
	// CB0X and CB0Y are the code-block partition origin (0 or 1).
	CB0X, CB0Y int

	// Precincts lists the precinct sizes from the highest resolution level
	// down. The last entry is reused for lower levels. Empty means
	// DefaultPrecinctExp on both axes.
	Precincts []PrecinctSize
}

// Node is one subband of the tree.
type Node struct {
	Orient   Orientation
	Parent   NodeID
	Children [4]NodeID // indexed by Orientation, all NoNode for a leaf

	// Level is the number of splits between the root and this node.
	Level int
	// ResLevel is the resolution level the subband contributes to.
	ResLevel int

	// X0, Y0 locate the subband in the tile-component buffer.
	X0, Y0 int
	W, H   int
	// CX0, CY0 locate the subband on its own canvas grid. Their parity
	// decides the filtering convention when the subband is split.
	CX0, CY0 int

	// HFilter and VFilter split an internal node.
	HFilter wavelet.Filter
	VFilter wavelet.Filter

	// GainExp is the log2 of the nominal analysis gain of the subband.
	GainExp int
	// Index is the subband index, (parent.Index << 2) + orientation.
	Index int

	// Code-block partition of a leaf.
	NomCBlkW, NomCBlkH int
	NumCBlkX, NumCBlkY int

	norm     float64
	normDone bool
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool {
	return n.Children[LL] == NoNode
}

// Tree is the subband decomposition tree of one tile-component.
type Tree struct {
	cfg   Config
	nodes []Node
}

// Build validates cfg and builds the tree top-down.
func Build(cfg Config) (*Tree, error) {
	if err := validate(&cfg); err != nil {
		return nil, err
	}

	t := &Tree{cfg: cfg}
	capacity := 3*cfg.Levels + 1
	if cfg.Style == Packet {
		capacity = (1<<(2*cfg.Levels+2) - 1) / 3
	}
	t.nodes = make([]Node, 0, capacity)

	t.nodes = append(t.nodes, Node{
		Orient:   LL,
		Parent:   NoNode,
		Children: [4]NodeID{NoNode, NoNode, NoNode, NoNode},
		ResLevel: cfg.Levels,
		W:        cfg.Width,
		H:        cfg.Height,
		CX0:      cfg.X0,
		CY0:      cfg.Y0,
	})
	t.split(0)

	if err := t.initCodeBlocks(); err != nil {
		return nil, err
	}
	return t, nil
}

func validate(cfg *Config) error {
	if cfg.Width < 0 || cfg.Height < 0 {
		return fmt.Errorf("%w: negative size %dx%d", ErrInvalidConfiguration, cfg.Width, cfg.Height)
	}
	if cfg.X0 < 0 || cfg.Y0 < 0 {
		return fmt.Errorf("%w: negative canvas origin (%d,%d)", ErrInvalidConfiguration, cfg.X0, cfg.Y0)
	}
	if cfg.Levels < 0 || cfg.Levels > MaxLevels {
		return fmt.Errorf("%w: decomposition levels %d not in [0,%d]", ErrInvalidConfiguration, cfg.Levels, MaxLevels)
	}
	switch cfg.Style {
	case Dyadic:
	case Packet:
		if cfg.Levels > MaxPacketLevels {
			return fmt.Errorf("%w: packet decomposition limited to %d levels, got %d",
				ErrInvalidConfiguration, MaxPacketLevels, cfg.Levels)
		}
	default:
		return fmt.Errorf("%w: unknown decomposition style %d", ErrInvalidConfiguration, int(cfg.Style))
	}
	if !isBit(cfg.CB0X) || !isBit(cfg.CB0Y) {
		return fmt.Errorf("%w: code-block partition origin (%d,%d) must be 0 or 1", ErrInvalidConfiguration, cfg.CB0X, cfg.CB0Y)
	}
	if err := ValidateCodeBlockSize(cfg.CBlkWidth, cfg.CBlkHeight); err != nil {
		return err
	}
	for i, p := range cfg.Precincts {
		if p.PPX < 0 || p.PPX > DefaultPrecinctExp || p.PPY < 0 || p.PPY > DefaultPrecinctExp {
			return fmt.Errorf("%w: precinct %d exponents (%d,%d) not in [0,%d]",
				ErrInvalidConfiguration, i, p.PPX, p.PPY, DefaultPrecinctExp)
		}
	}

	if cfg.Levels == 0 {
		return nil
	}
	if len(cfg.HFilters) == 0 || len(cfg.VFilters) == 0 {
		return fmt.Errorf("%w: no wavelet filters for %d levels", ErrInvalidConfiguration, cfg.Levels)
	}
	var dt wavelet.DataType
	for i, f := range append(append([]wavelet.Filter{}, cfg.HFilters...), cfg.VFilters...) {
		if f == nil {
			return fmt.Errorf("%w: nil wavelet filter", ErrInvalidConfiguration)
		}
		if i == 0 {
			dt = f.DataType()
		} else if f.DataType() != dt {
			return fmt.Errorf("%w: filters %s and %s operate on different data types",
				ErrInvalidConfiguration, cfg.HFilters[0], f)
		}
	}
	return nil
}

func isBit(v int) bool { return v == 0 || v == 1 }

// ValidateCodeBlockSize checks a nominal code-block size: powers of two
// between 4 and 1024 with an area of at most 4096 samples.
func ValidateCodeBlockSize(w, h int) error {
	for _, v := range []int{w, h} {
		if v < 4 || v > 1024 || v&(v-1) != 0 {
			return fmt.Errorf("%w: code-block size %dx%d must be powers of two in [4,1024]",
				ErrInvalidConfiguration, w, h)
		}
	}
	if w*h > 4096 {
		return fmt.Errorf("%w: code-block area %dx%d exceeds 4096", ErrInvalidConfiguration, w, h)
	}
	return nil
}

func filterAt(list []wavelet.Filter, level int) wavelet.Filter {
	if level < len(list) {
		return list[level]
	}
	return list[len(list)-1]
}

// split recursively divides node id until the configured depth is reached.
func (t *Tree) split(id NodeID) {
	p := t.nodes[id]
	if p.Level >= t.cfg.Levels {
		return
	}
	if t.cfg.Style == Dyadic && !t.onLowChain(id) {
		return
	}

	hf := filterAt(t.cfg.HFilters, p.Level)
	vf := filterAt(t.cfg.VFilters, p.Level)

	// LL keeps the low half of each axis: ceil on the canvas grid.
	llCX0 := (p.CX0 + 1) >> 1
	llCY0 := (p.CY0 + 1) >> 1
	llW := ((p.CX0 + p.W + 1) >> 1) - llCX0
	llH := ((p.CY0 + p.H + 1) >> 1) - llCY0
	hiCX0 := p.CX0 >> 1
	hiCY0 := p.CY0 >> 1
	hiW := ((p.CX0 + p.W) >> 1) - hiCX0
	hiH := ((p.CY0 + p.H) >> 1) - hiCY0

	resLL := p.ResLevel
	if t.onLowChain(id) {
		resLL--
	}

	geom := [4]struct{ x0, y0, w, h, cx0, cy0, res int }{
		LL: {p.X0, p.Y0, llW, llH, llCX0, llCY0, resLL},
		HL: {p.X0 + llW, p.Y0, hiW, llH, hiCX0, llCY0, p.ResLevel},
		LH: {p.X0, p.Y0 + llH, llW, hiH, llCX0, hiCY0, p.ResLevel},
		HH: {p.X0 + llW, p.Y0 + llH, hiW, hiH, hiCX0, hiCY0, p.ResLevel},
	}

	var children [4]NodeID
	for o := LL; o <= HH; o++ {
		g := geom[o]
		children[o] = NodeID(len(t.nodes))
		t.nodes = append(t.nodes, Node{
			Orient:   o,
			Parent:   id,
			Children: [4]NodeID{NoNode, NoNode, NoNode, NoNode},
			Level:    p.Level + 1,
			ResLevel: g.res,
			X0:       g.x0,
			Y0:       g.y0,
			W:        g.w,
			H:        g.h,
			CX0:      g.cx0,
			CY0:      g.cy0,
			GainExp:  p.GainExp + o.gainExp(),
			Index:    p.Index<<2 + int(o),
		})
	}

	n := &t.nodes[id]
	n.Children = children
	n.HFilter = hf
	n.VFilter = vf

	for _, c := range children {
		t.split(c)
	}
}

// onLowChain reports whether every split on the path to id kept the LL
// subband. The root is on the chain.
func (t *Tree) onLowChain(id NodeID) bool {
	for ; id != NoNode; id = t.nodes[id].Parent {
		if t.nodes[id].Orient != LL {
			return false
		}
	}
	return true
}

// Root returns the NodeID of the root, which covers the whole tile-component.
func (t *Tree) Root() NodeID { return 0 }

// Node returns the node with the given id.
func (t *Tree) Node(id NodeID) *Node { return &t.nodes[id] }

// Len returns the number of nodes in the tree.
func (t *Tree) Len() int { return len(t.nodes) }

// Levels returns the decomposition depth.
func (t *Tree) Levels() int { return t.cfg.Levels }

// Style returns the decomposition style.
func (t *Tree) Style() Style { return t.cfg.Style }

// PartitionOrigin returns the configured code-block partition origin.
func (t *Tree) PartitionOrigin() (x, y int) { return t.cfg.CB0X, t.cfg.CB0Y }

// DataType returns the sample type the tree's filters operate on. A tree
// without decomposition levels reports TypeInt unless a filter says otherwise.
func (t *Tree) DataType() wavelet.DataType {
	if len(t.cfg.HFilters) > 0 && t.cfg.HFilters[0] != nil {
		return t.cfg.HFilters[0].DataType()
	}
	return wavelet.TypeInt
}

// Reversible reports whether every filter of the tree is reversible.
func (t *Tree) Reversible() bool {
	for _, list := range [][]wavelet.Filter{t.cfg.HFilters, t.cfg.VFilters} {
		for _, f := range list {
			if f != nil && !f.Reversible() {
				return false
			}
		}
	}
	return true
}

// FirstLeaf returns the first leaf in code-block delivery order: the HH
// subband of the finest decomposition level.
func (t *Tree) FirstLeaf() NodeID {
	return t.descend(t.Root())
}

// descend follows HH children down to a leaf.
func (t *Tree) descend(id NodeID) NodeID {
	for !t.nodes[id].IsLeaf() {
		id = t.nodes[id].Children[HH]
	}
	return id
}

// NextLeaf returns the leaf delivered after id, or NoNode once the last
// leaf has been reached. Siblings are visited HH, LH, HL, LL, so every level
// delivers its high-pass subbands before the next coarser level and the
// coarsest LL comes last.
func (t *Tree) NextLeaf(id NodeID) NodeID {
	for {
		n := &t.nodes[id]
		if n.Parent == NoNode {
			return NoNode
		}
		siblings := &t.nodes[n.Parent].Children
		switch n.Orient {
		case HH:
			return t.descend(siblings[LH])
		case LH:
			return t.descend(siblings[HL])
		case HL:
			return t.descend(siblings[LL])
		case LL:
			id = n.Parent
		default:
			panic(fmt.Errorf("%w: node %d has orientation %d", ErrInternalInvariant, id, int(n.Orient)))
		}
	}
}

// Leaves returns every leaf in code-block delivery order.
func (t *Tree) Leaves() []NodeID {
	var leaves []NodeID
	for id := t.FirstLeaf(); id != NoNode; id = t.NextLeaf(id) {
		leaves = append(leaves, id)
	}
	return leaves
}

// Band returns the subband of the given resolution level and orientation
// along the LL chain: for LL the image at that resolution, otherwise the
// high-pass subband that resolution level adds.
func (t *Tree) Band(res int, o Orientation) (NodeID, bool) {
	id := t.Root()
	for t.nodes[id].ResLevel > res && !t.nodes[id].IsLeaf() {
		id = t.nodes[id].Children[LL]
	}
	n := &t.nodes[id]
	if n.ResLevel != res {
		return NoNode, false
	}
	if o == LL {
		return id, true
	}
	if n.IsLeaf() || o < LL || o > HH {
		return NoNode, false
	}
	return n.Children[o], true
}

// ResolutionSize returns the width and height of the image at resolution
// level res.
func (t *Tree) ResolutionSize(res int) (w, h int, ok bool) {
	id, ok := t.Band(res, LL)
	if !ok {
		return 0, 0, false
	}
	return t.nodes[id].W, t.nodes[id].H, true
}

// GlobalOrientation returns the orientation of a subband relative to the
// full tile-component: high-pass on an axis if any split on its path took
// the high-pass side of that axis.
func (t *Tree) GlobalOrientation(id NodeID) Orientation {
	var hHigh, vHigh bool
	for ; id != NoNode; id = t.nodes[id].Parent {
		o := t.nodes[id].Orient
		if o < LL || o > HH {
			panic(fmt.Errorf("%w: node %d has orientation %d", ErrInternalInvariant, id, int(o)))
		}
		hHigh = hHigh || o.HorizontalHigh()
		vHigh = vHigh || o.VerticalHigh()
	}
	return orientationOf(hHigh, vHigh)
}
