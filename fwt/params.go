package fwt

import (
	"fmt"
	"sort"

	"github.com/cocosip/go-dicom/pkg/imaging/codec"

	"github.com/cocosip/go-j2k-wavelet/subband"
	"github.com/cocosip/go-j2k-wavelet/wavelet"
)

// Ensure Params implements codec.Parameters
var _ codec.Parameters = (*Params)(nil)

// Inherit marks a tile-component override field that keeps the value of
// the less specific configuration.
const Inherit = -1

// Params configures the forward wavelet transform of an image.
type Params struct {
	// Levels is the number of decomposition levels (0-32).
	Levels int

	// Style selects dyadic (JPEG 2000 Part 1) or full packet decomposition.
	Style subband.Style

	// Reversible requests a lossless transform. It requires the 5/3 filter
	// on every level of every tile-component.
	Reversible bool

	// Filter is the wavelet used on every level unless HFilters or
	// VFilters say otherwise.
	Filter wavelet.Kind

	// HFilters and VFilters optionally give the horizontal and vertical
	// filter of each level, finest first. The last entry is reused.
	HFilters []wavelet.Kind
	VFilters []wavelet.Kind

	// CodeBlockWidth and CodeBlockHeight are the maximum nominal
	// code-block size: powers of two in [4,1024], area at most 4096.
	CodeBlockWidth  int
	CodeBlockHeight int

	// CodeBlockOriginX and CodeBlockOriginY are the code-block partition
	// origin, 0 or 1.
	CodeBlockOriginX int
	CodeBlockOriginY int

	// Precincts lists log2 precinct sizes from the highest resolution level
	// down. Empty means a single precinct per resolution level.
	Precincts []subband.PrecinctSize

	overrides []override

	// internal storage for compatibility with generic parameter interface
	params map[string]interface{}
}

// TileComponentParams overrides Params for some tiles and components.
// Fields set to Inherit keep the less specific value.
type TileComponentParams struct {
	Levels int
	Filter wavelet.Kind
}

type override struct {
	tile, comp int
	p          TileComponentParams
}

// rank orders overrides from least to most specific: image, component,
// tile, tile-component.
func (o override) rank() int {
	r := 0
	if o.tile >= 0 {
		r += 2
	}
	if o.comp >= 0 {
		r++
	}
	return r
}

// DefaultParams returns the parameters of a lossless 5-level 5/3
// transform with 64x64 code-blocks.
func DefaultParams() *Params {
	return &Params{
		Levels:          5,
		Style:           subband.Dyadic,
		Reversible:      true,
		Filter:          wavelet.W5X3,
		CodeBlockWidth:  64,
		CodeBlockHeight: 64,
		params:          make(map[string]interface{}),
	}
}

// GetParameter retrieves a parameter by name (implements codec.Parameters)
func (p *Params) GetParameter(name string) interface{} {
	switch name {
	case "numLevels":
		return p.Levels
	case "decompositionStyle":
		return p.Style.String()
	case "reversible":
		return p.Reversible
	case "wavelet":
		return p.Filter.String()
	case "codeBlockWidth":
		return p.CodeBlockWidth
	case "codeBlockHeight":
		return p.CodeBlockHeight
	case "codeBlockOriginX":
		return p.CodeBlockOriginX
	case "codeBlockOriginY":
		return p.CodeBlockOriginY
	case "precincts":
		return p.Precincts
	default:
		return p.params[name]
	}
}

// SetParameter sets a parameter value (implements codec.Parameters).
// Values of the wrong type are ignored.
func (p *Params) SetParameter(name string, value interface{}) {
	switch name {
	case "numLevels":
		if v, ok := value.(int); ok {
			p.Levels = v
		}
	case "decompositionStyle":
		switch v := value.(type) {
		case string:
			if s, err := ParseStyle(v); err == nil {
				p.Style = s
			}
		case subband.Style:
			p.Style = v
		}
	case "reversible":
		if v, ok := value.(bool); ok {
			p.Reversible = v
		}
	case "wavelet":
		switch v := value.(type) {
		case string:
			if k, err := wavelet.ParseKind(v); err == nil {
				p.Filter = k
			}
		case wavelet.Kind:
			p.Filter = v
		}
	case "codeBlockWidth":
		if v, ok := value.(int); ok {
			p.CodeBlockWidth = v
		}
	case "codeBlockHeight":
		if v, ok := value.(int); ok {
			p.CodeBlockHeight = v
		}
	case "codeBlockOriginX":
		if v, ok := value.(int); ok {
			p.CodeBlockOriginX = v
		}
	case "codeBlockOriginY":
		if v, ok := value.(int); ok {
			p.CodeBlockOriginY = v
		}
	case "precincts":
		if v, ok := value.([]subband.PrecinctSize); ok {
			p.Precincts = v
		}
	default:
		if p.params == nil {
			p.params = make(map[string]interface{})
		}
		p.params[name] = value
	}
}

// ParseStyle maps a decomposition style name ("dyadic", "mallat" or "packet")
// to a subband.Style.
func ParseStyle(s string) (subband.Style, error) {
	switch s {
	case "dyadic", "mallat":
		return subband.Dyadic, nil
	case "packet":
		return subband.Packet, nil
	}
	return 0, fmt.Errorf("%w: unknown decomposition style %q", ErrInvalidConfiguration, s)
}

// Validate checks the parameters and every tile-component override.
func (p *Params) Validate() error {
	if p.Levels < 0 || p.Levels > subband.MaxLevels {
		return fmt.Errorf("%w: decomposition levels %d not in [0,%d]", ErrInvalidConfiguration, p.Levels, subband.MaxLevels)
	}
	if p.Style != subband.Dyadic && p.Style != subband.Packet {
		return fmt.Errorf("%w: unknown decomposition style %d", ErrInvalidConfiguration, int(p.Style))
	}
	if err := subband.ValidateCodeBlockSize(p.CodeBlockWidth, p.CodeBlockHeight); err != nil {
		return err
	}
	if !isBit(p.CodeBlockOriginX) || !isBit(p.CodeBlockOriginY) {
		return fmt.Errorf("%w: code-block partition origin (%d,%d) must be 0 or 1",
			ErrInvalidConfiguration, p.CodeBlockOriginX, p.CodeBlockOriginY)
	}
	for i, pp := range p.Precincts {
		if pp.PPX < 0 || pp.PPX > subband.DefaultPrecinctExp || pp.PPY < 0 || pp.PPY > subband.DefaultPrecinctExp {
			return fmt.Errorf("%w: precinct %d exponents (%d,%d) not in [0,%d]",
				ErrInvalidConfiguration, i, pp.PPX, pp.PPY, subband.DefaultPrecinctExp)
		}
	}
	if err := p.checkFilters(p.Filter, p.HFilters, p.VFilters); err != nil {
		return err
	}
	for _, o := range p.overrides {
		if o.p.Levels != Inherit && (o.p.Levels < 0 || o.p.Levels > subband.MaxLevels) {
			return fmt.Errorf("%w: tile %d component %d: decomposition levels %d not in [0,%d]",
				ErrInvalidConfiguration, o.tile, o.comp, o.p.Levels, subband.MaxLevels)
		}
		if o.p.Filter != Inherit {
			if err := p.checkFilters(o.p.Filter, nil, nil); err != nil {
				return fmt.Errorf("tile %d component %d: %w", o.tile, o.comp, err)
			}
		}
	}
	return nil
}

func isBit(v int) bool { return v == 0 || v == 1 }

// checkFilters checks the filters a tile-component would use: def on every
// level unless h or v list per-level kinds.
func (p *Params) checkFilters(def wavelet.Kind, h, v []wavelet.Kind) error {
	if len(h) == 0 {
		h = []wavelet.Kind{def}
	}
	if len(v) == 0 {
		v = []wavelet.Kind{def}
	}
	var first wavelet.Filter
	for _, k := range append(append([]wavelet.Kind{}, h...), v...) {
		f, err := wavelet.New(k)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
		}
		if p.Reversible && !f.Reversible() {
			return fmt.Errorf("%w: reversible transform requires the 5x3 filter, got %s", ErrInvalidConfiguration, f)
		}
		if first == nil {
			first = f
		} else if f.DataType() != first.DataType() {
			return fmt.Errorf("%w: filters %s and %s operate on different data types", ErrInvalidConfiguration, first, f)
		}
	}
	return nil
}

// Override applies o to the given tile and component. Inherit (-1) for
// tile or comp matches every tile or every component. More specific
// overrides win: tile-component over tile over component over image.
func (p *Params) Override(tile, comp int, o TileComponentParams) *Params {
	p.overrides = append(p.overrides, override{tile: tile, comp: comp, p: o})
	return p
}

// resolved holds the configuration of one tile-component.
type resolved struct {
	levels   int
	hFilters []wavelet.Filter
	vFilters []wavelet.Filter
}

func kindsToFilters(kinds []wavelet.Kind) []wavelet.Filter {
	out := make([]wavelet.Filter, len(kinds))
	for i, k := range kinds {
		out[i], _ = wavelet.New(k)
	}
	return out
}

func (p *Params) forTileComponent(tile, comp int) resolved {
	r := resolved{levels: p.Levels}
	hk, vk := p.HFilters, p.VFilters
	if len(hk) == 0 {
		hk = []wavelet.Kind{p.Filter}
	}
	if len(vk) == 0 {
		vk = []wavelet.Kind{p.Filter}
	}

	matching := make([]override, 0, len(p.overrides))
	for _, o := range p.overrides {
		if (o.tile < 0 || o.tile == tile) && (o.comp < 0 || o.comp == comp) {
			matching = append(matching, o)
		}
	}
	sort.SliceStable(matching, func(i, j int) bool { return matching[i].rank() < matching[j].rank() })
	for _, o := range matching {
		if o.p.Levels != Inherit {
			r.levels = o.p.Levels
		}
		if o.p.Filter != Inherit {
			hk = []wavelet.Kind{o.p.Filter}
			vk = []wavelet.Kind{o.p.Filter}
		}
	}

	r.hFilters = kindsToFilters(hk)
	r.vFilters = kindsToFilters(vk)
	return r
}

// TreeConfig returns the subband tree configuration of a tile-component.
func (p *Params) TreeConfig(tile, comp int, info TileComponentInfo) subband.Config {
	r := p.forTileComponent(tile, comp)
	return subband.Config{
		Width:      info.Width,
		Height:     info.Height,
		X0:         info.X0,
		Y0:         info.Y0,
		Levels:     r.levels,
		Style:      p.Style,
		HFilters:   r.hFilters,
		VFilters:   r.vFilters,
		CBlkWidth:  p.CodeBlockWidth,
		CBlkHeight: p.CodeBlockHeight,
		CB0X:       p.CodeBlockOriginX,
		CB0Y:       p.CodeBlockOriginY,
		Precincts:  p.Precincts,
	}
}

// WithLevels sets the number of decomposition levels and returns the parameters for chaining
func (p *Params) WithLevels(levels int) *Params {
	p.Levels = levels
	return p
}

// WithStyle sets the decomposition style and returns the parameters for chaining
func (p *Params) WithStyle(style subband.Style) *Params {
	p.Style = style
	return p
}

// WithFilter selects the wavelet filter. Choosing the 9/7 filter also
// clears Reversible, choosing 5/3 sets it.
func (p *Params) WithFilter(kind wavelet.Kind) *Params {
	p.Filter = kind
	p.Reversible = kind == wavelet.W5X3
	return p
}

// WithReversible sets the reversibility requirement and returns the parameters for chaining
func (p *Params) WithReversible(reversible bool) *Params {
	p.Reversible = reversible
	return p
}

// WithLevelFilters sets per-level horizontal and vertical filters
func (p *Params) WithLevelFilters(h, v []wavelet.Kind) *Params {
	p.HFilters = h
	p.VFilters = v
	return p
}

// WithCodeBlockSize sets the maximum nominal code-block size and returns the parameters for chaining
func (p *Params) WithCodeBlockSize(w, h int) *Params {
	p.CodeBlockWidth = w
	p.CodeBlockHeight = h
	return p
}

// WithCodeBlockOrigin sets the code-block partition origin and returns the parameters for chaining
func (p *Params) WithCodeBlockOrigin(x, y int) *Params {
	p.CodeBlockOriginX = x
	p.CodeBlockOriginY = y
	return p
}

// WithPrecincts sets the precinct sizes and returns the parameters for chaining
func (p *Params) WithPrecincts(precincts ...subband.PrecinctSize) *Params {
	p.Precincts = precincts
	return p
}
