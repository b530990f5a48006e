package fwt

import (
	"errors"
	"fmt"

	"github.com/ajroetker/go-highway/hwy/contrib/workerpool"

	"github.com/cocosip/go-j2k-wavelet/internal/logging"
	"github.com/cocosip/go-j2k-wavelet/subband"
	"github.com/cocosip/go-j2k-wavelet/wavelet"
)

// Engine runs the forward wavelet transform over every tile-component of a
// TileSource and hands out their code-blocks. One tile is active at a time;
// each component of the active tile is decomposed on its first code-block
// request and its buffer is released once its last code-block is
// delivered.
//
// Calls for different components of the active tile may run concurrently.
// Calls for the same component, and SetTile, must not.
type Engine struct {
	src     TileSource
	params  *Params
	log     *logging.Logger
	workers int
	pool    *workerpool.Pool

	trees [][]*subband.Tree // [tile][component]
	tile  int
	comps []componentState
}

type componentState struct {
	dec    *Decomposition
	cursor *Cursor
	done   bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger of the engine.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithWorkers sets the number of goroutines DecomposeTile uses. Zero or
// less means GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(e *Engine) { e.workers = n }
}

// NewEngine validates p, builds the subband tree of every tile-component of
// src and activates tile 0.
func NewEngine(src TileSource, p *Params, opts ...Option) (*Engine, error) {
	if p == nil {
		p = DefaultParams()
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid wavelet parameters: %w", err)
	}
	numTiles, numComps := src.NumTiles(), src.NumComponents()
	if numTiles <= 0 || numComps <= 0 {
		return nil, fmt.Errorf("%w: %d tiles and %d components", ErrInvalidConfiguration, numTiles, numComps)
	}

	e := &Engine{src: src, params: p}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = logging.Default().Named("fwt")
	}

	e.trees = make([][]*subband.Tree, numTiles)
	for t := range e.trees {
		e.trees[t] = make([]*subband.Tree, numComps)
		for c := range e.trees[t] {
			tree, err := subband.Build(p.TreeConfig(t, c, src.TileComponent(t, c)))
			if err != nil {
				return nil, fmt.Errorf("tile %d component %d: %w", t, c, err)
			}
			e.trees[t][c] = tree
		}
	}
	e.comps = make([]componentState, numComps)
	return e, nil
}

// Close releases the worker pool and every decomposition buffer.
func (e *Engine) Close() {
	if e.pool != nil {
		e.pool.Close()
		e.pool = nil
	}
	for c := range e.comps {
		e.comps[c] = componentState{}
	}
}

// NumTiles returns the number of tiles of the image.
func (e *Engine) NumTiles() int { return len(e.trees) }

// NumComponents returns the number of components of the image.
func (e *Engine) NumComponents() int { return len(e.comps) }

// Tile returns the index of the active tile.
func (e *Engine) Tile() int { return e.tile }

// SetTile activates tile t, discarding every buffer and cursor of the
// previous tile.
func (e *Engine) SetTile(t int) error {
	if t < 0 || t >= len(e.trees) {
		return fmt.Errorf("%w: %d (image has %d)", ErrNoSuchTile, t, len(e.trees))
	}
	e.tile = t
	for c := range e.comps {
		e.comps[c] = componentState{}
	}
	e.log.Debug("tile %d active", t)
	return nil
}

// NextTile activates the tile following the active one. It returns false
// when the active tile is the last one.
func (e *Engine) NextTile() bool {
	if e.tile+1 >= len(e.trees) {
		return false
	}
	return e.SetTile(e.tile+1) == nil
}

// SubbandTree returns the subband tree of a tile-component. It panics if
// tile or comp is out of range.
func (e *Engine) SubbandTree(tile, comp int) *subband.Tree {
	return e.trees[tile][comp]
}

// IsReversible reports whether the transform of a tile-component is
// reversible.
func (e *Engine) IsReversible(tile, comp int) bool {
	return e.trees[tile][comp].Reversible()
}

// DecompositionLevels returns the decomposition depth of a tile-component.
func (e *Engine) DecompositionLevels(tile, comp int) int {
	return e.trees[tile][comp].Levels()
}

// DataType returns the sample type a tile-component is transformed in.
func (e *Engine) DataType(tile, comp int) wavelet.DataType {
	return e.trees[tile][comp].DataType()
}

// ImplementationType returns how the filters of a tile-component are
// implemented.
func (e *Engine) ImplementationType(tile, comp int) wavelet.ImplType {
	if e.trees[tile][comp].DataType() == wavelet.TypeFloat {
		return wavelet.ImplFloatLift
	}
	return wavelet.ImplIntLift
}

// CodeBlockPartitionOrigin returns the code-block partition origin.
func (e *Engine) CodeBlockPartitionOrigin() (x, y int) {
	return e.params.CodeBlockOriginX, e.params.CodeBlockOriginY
}

// FixedPoint returns the number of fractional bits of the samples of
// component comp in the active tile.
func (e *Engine) FixedPoint(comp int) int {
	return e.src.TileComponent(e.tile, comp).FixedPoint
}

// BandNorm is the L2 norm of one subband.
type BandNorm struct {
	Subband  subband.NodeID
	Orient   subband.Orientation
	ResLevel int
	Level    int
	Norm     float64
}

// L2Norms returns the L2 norm of every subband of component comp in the
// active tile, in code-block delivery order.
func (e *Engine) L2Norms(comp int) ([]BandNorm, error) {
	if comp < 0 || comp >= len(e.comps) {
		return nil, fmt.Errorf("%w: %d", ErrNoSuchComponent, comp)
	}
	tree := e.trees[e.tile][comp]
	tree.ComputeL2Norms()
	leaves := tree.Leaves()
	norms := make([]BandNorm, 0, len(leaves))
	for _, id := range leaves {
		n := tree.Node(id)
		norms = append(norms, BandNorm{
			Subband:  id,
			Orient:   n.Orient,
			ResLevel: n.ResLevel,
			Level:    n.Level,
			Norm:     tree.L2Norm(id),
		})
	}
	return norms, nil
}

// component returns the state of comp, decomposing it on first use.
func (e *Engine) component(comp int) (*componentState, error) {
	if comp < 0 || comp >= len(e.comps) {
		return nil, fmt.Errorf("%w: %d", ErrNoSuchComponent, comp)
	}
	st := &e.comps[comp]
	if st.dec != nil || st.done {
		return st, nil
	}

	tree := e.trees[e.tile][comp]
	s, err := e.src.Samples(e.tile, comp, tree.DataType())
	if err != nil {
		return nil, fmt.Errorf("tile %d component %d: failed to read samples: %w", e.tile, comp, err)
	}
	dec, err := Decompose(s, tree)
	if err != nil {
		return nil, fmt.Errorf("tile %d component %d: %w", e.tile, comp, err)
	}
	st.dec = dec
	st.cursor = dec.Cursor()
	e.log.Debug("tile %d component %d decomposed: %dx%d, %d levels, %s",
		e.tile, comp, s.Width, s.Height, tree.Levels(), s.Type)
	return st, nil
}

func (e *Engine) release(comp int, st *componentState) {
	st.dec.Release()
	st.dec = nil
	st.cursor = nil
	st.done = true
	e.log.Debug("tile %d component %d released", e.tile, comp)
}

// NextCodeBlock returns the next code-block of component comp in the
// active tile with a private copy of its coefficients. cb is reused when
// not nil. ErrNoMoreCodeBlocks is returned after the last code-block.
func (e *Engine) NextCodeBlock(comp int, cb *CodeBlock) (*CodeBlock, error) {
	st, err := e.component(comp)
	if err != nil {
		return nil, err
	}
	if st.done {
		return nil, ErrNoMoreCodeBlocks
	}
	next, ok := st.cursor.NextCopy(cb)
	if !ok {
		e.release(comp, st)
		return nil, ErrNoMoreCodeBlocks
	}
	return next, nil
}

// NextInternCodeBlock is like NextCodeBlock but returns a view into the
// decomposition buffer. The view must not be modified and is invalid once
// ErrNoMoreCodeBlocks has been returned for comp or the tile changes.
func (e *Engine) NextInternCodeBlock(comp int, cb *CodeBlock) (*CodeBlock, error) {
	st, err := e.component(comp)
	if err != nil {
		return nil, err
	}
	if st.done {
		return nil, ErrNoMoreCodeBlocks
	}
	next, ok := st.cursor.Next(cb)
	if !ok {
		e.release(comp, st)
		return nil, ErrNoMoreCodeBlocks
	}
	return next, nil
}

// DecomposeTile decomposes every component of the active tile that has
// not been decomposed yet, in parallel.
func (e *Engine) DecomposeTile() error {
	if e.pool == nil {
		e.pool = workerpool.New(e.workers)
	}
	errs := make([]error, len(e.comps))
	e.pool.ParallelForAtomic(len(e.comps), func(c int) {
		_, errs[c] = e.component(c)
	})
	return errors.Join(errs...)
}
