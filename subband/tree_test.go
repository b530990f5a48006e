package subband

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cocosip/go-j2k-wavelet/wavelet"
)

func config53(w, h, levels int) Config {
	return Config{
		Width:      w,
		Height:     h,
		Levels:     levels,
		HFilters:   []wavelet.Filter{wavelet.Lift53},
		VFilters:   []wavelet.Filter{wavelet.Lift53},
		CBlkWidth:  64,
		CBlkHeight: 64,
	}
}

func depth(t *Tree, id NodeID) int {
	d := 0
	for t.Node(id).Parent != NoNode {
		id = t.Node(id).Parent
		d++
	}
	return d
}

func TestBuildDyadicShape(t *testing.T) {
	for levels := 0; levels <= 6; levels++ {
		t.Run(fmt.Sprintf("levels=%d", levels), func(t *testing.T) {
			tree, err := Build(config53(64, 48, levels))
			require.NoError(t, err)

			leaves := tree.Leaves()
			assert.Len(t, leaves, 3*levels+1)
			assert.Equal(t, 4*levels+1, tree.Len())

			for id := 0; id < tree.Len(); id++ {
				n := tree.Node(NodeID(id))
				if n.IsLeaf() {
					continue
				}
				for _, c := range n.Children {
					require.NotEqual(t, NoNode, c, "internal node %d must have four children", id)
				}
			}

			last := leaves[len(leaves)-1]
			assert.Equal(t, LL, tree.Node(last).Orient)
			assert.Equal(t, levels, depth(tree, last))
			assert.Equal(t, 0, tree.Node(last).ResLevel)
		})
	}
}

func TestBuildPacketShape(t *testing.T) {
	for levels := 0; levels <= 4; levels++ {
		t.Run(fmt.Sprintf("levels=%d", levels), func(t *testing.T) {
			cfg := config53(64, 64, levels)
			cfg.Style = Packet
			tree, err := Build(cfg)
			require.NoError(t, err)

			leaves := tree.Leaves()
			want := 1 << (2 * levels)
			assert.Len(t, leaves, want)
			for _, id := range leaves {
				assert.Equal(t, levels, depth(tree, id))
				assert.Equal(t, levels, tree.Node(id).Level)
			}
		})
	}
}

func TestLeavesCoverTileComponent(t *testing.T) {
	tests := []struct {
		name   string
		w, h   int
		x0, y0 int
		levels int
		style  Style
	}{
		{"even origin", 64, 48, 0, 0, 3, Dyadic},
		{"odd origin", 37, 21, 3, 5, 3, Dyadic},
		{"single column", 1, 17, 1, 0, 4, Dyadic},
		{"single row", 23, 1, 0, 7, 5, Dyadic},
		{"packet odd", 29, 30, 1, 1, 2, Packet},
		{"deeper than size", 5, 3, 2, 1, 6, Dyadic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config53(tt.w, tt.h, tt.levels)
			cfg.X0, cfg.Y0 = tt.x0, tt.y0
			cfg.Style = tt.style
			tree, err := Build(cfg)
			require.NoError(t, err)

			hits := make([]int, tt.w*tt.h)
			for _, id := range tree.Leaves() {
				n := tree.Node(id)
				for y := n.Y0; y < n.Y0+n.H; y++ {
					for x := n.X0; x < n.X0+n.W; x++ {
						hits[y*tt.w+x]++
					}
				}
			}
			for i, c := range hits {
				require.Equal(t, 1, c, "sample (%d,%d) covered %d times", i%tt.w, i/tt.w, c)
			}
		})
	}
}

func TestSplitGeometry(t *testing.T) {
	cfg := config53(5, 3, 1)
	cfg.X0 = 1
	tree, err := Build(cfg)
	require.NoError(t, err)

	root := tree.Node(tree.Root())
	ll := tree.Node(root.Children[LL])
	hl := tree.Node(root.Children[HL])
	lh := tree.Node(root.Children[LH])
	hh := tree.Node(root.Children[HH])

	// Odd horizontal origin: the first column is high-pass.
	assert.Equal(t, Rect{0, 0, 2, 2}, Rect{ll.X0, ll.Y0, ll.W, ll.H})
	assert.Equal(t, Rect{2, 0, 3, 2}, Rect{hl.X0, hl.Y0, hl.W, hl.H})
	assert.Equal(t, Rect{0, 2, 2, 1}, Rect{lh.X0, lh.Y0, lh.W, lh.H})
	assert.Equal(t, Rect{2, 2, 3, 1}, Rect{hh.X0, hh.Y0, hh.W, hh.H})

	assert.Equal(t, 1, ll.CX0)
	assert.Equal(t, 0, hl.CX0)
	assert.Equal(t, 0, ll.CY0)
	assert.Equal(t, 0, lh.CY0)

	assert.Same(t, wavelet.Lift53, root.HFilter)
	assert.Nil(t, ll.HFilter)
}

func TestTraversalOrder(t *testing.T) {
	type step struct {
		orient Orientation
		level  int
	}

	tree, err := Build(config53(32, 32, 3))
	require.NoError(t, err)

	var got []step
	for _, id := range tree.Leaves() {
		n := tree.Node(id)
		got = append(got, step{n.Orient, n.Level})
	}
	want := []step{
		{HH, 1}, {LH, 1}, {HL, 1},
		{HH, 2}, {LH, 2}, {HL, 2},
		{HH, 3}, {LH, 3}, {HL, 3},
		{LL, 3},
	}
	assert.Equal(t, want, got)
	assert.Equal(t, NoNode, tree.NextLeaf(tree.Leaves()[9]))
}

func TestTraversalOrderNoDecomposition(t *testing.T) {
	tree, err := Build(config53(8, 8, 0))
	require.NoError(t, err)

	assert.Equal(t, tree.Root(), tree.FirstLeaf())
	assert.Equal(t, NoNode, tree.NextLeaf(tree.Root()))
	assert.Equal(t, []NodeID{tree.Root()}, tree.Leaves())
}

func TestResolutionLevelsAndGains(t *testing.T) {
	tree, err := Build(config53(64, 64, 2))
	require.NoError(t, err)

	tests := []struct {
		res    int
		orient Orientation
		level  int
		gain   int
		w, h   int
	}{
		{2, LL, 0, 0, 64, 64},
		{2, HL, 1, 1, 32, 32},
		{2, LH, 1, 1, 32, 32},
		{2, HH, 1, 2, 32, 32},
		{1, LL, 1, 0, 32, 32},
		{1, HH, 2, 2, 16, 16},
		{0, LL, 2, 0, 16, 16},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("res=%d %s", tt.res, tt.orient), func(t *testing.T) {
			id, ok := tree.Band(tt.res, tt.orient)
			require.True(t, ok)
			n := tree.Node(id)
			assert.Equal(t, tt.orient, n.Orient)
			assert.Equal(t, tt.level, n.Level)
			assert.Equal(t, tt.gain, n.GainExp)
			assert.Equal(t, tt.w, n.W)
			assert.Equal(t, tt.h, n.H)
			if tt.orient != LL {
				assert.Equal(t, tt.res, n.ResLevel)
			}
		})
	}

	_, ok := tree.Band(0, HL)
	assert.False(t, ok)
	_, ok = tree.Band(3, LL)
	assert.False(t, ok)

	w, h, ok := tree.ResolutionSize(1)
	require.True(t, ok)
	assert.Equal(t, 32, w)
	assert.Equal(t, 32, h)
}

func TestPacketGainsAndOrientation(t *testing.T) {
	cfg := config53(16, 16, 2)
	cfg.Style = Packet
	cfg.CB0X, cfg.CB0Y = 1, 1
	cfg.X0, cfg.Y0 = 4, 4
	tree, err := Build(cfg)
	require.NoError(t, err)

	root := tree.Node(tree.Root())
	hh := root.Children[HH]
	hhhh := tree.Node(hh).Children[HH]
	assert.Equal(t, 4, tree.Node(hhhh).GainExp)
	assert.Equal(t, 2, tree.Node(hhhh).ResLevel)

	llOfHL := tree.Node(root.Children[HL]).Children[LL]
	assert.Equal(t, HL, tree.GlobalOrientation(llOfHL))
	x, y := tree.SubbandPartitionOrigin(llOfHL)
	assert.Equal(t, 0, x)
	assert.Equal(t, 1, y)

	x, y = tree.SubbandPartitionOrigin(tree.Node(root.Children[LL]).Children[LL])
	assert.Equal(t, 1, x)
	assert.Equal(t, 1, y)
}

func TestBuildValidation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"negative width", func(c *Config) { c.Width = -1 }},
		{"negative origin", func(c *Config) { c.Y0 = -2 }},
		{"too many levels", func(c *Config) { c.Levels = 33 }},
		{"deep packet", func(c *Config) { c.Style, c.Levels = Packet, 9 }},
		{"unknown style", func(c *Config) { c.Style = Style(5) }},
		{"partition origin 2", func(c *Config) { c.CB0X = 2 }},
		{"partition origin past canvas origin", func(c *Config) { c.CB0X = 1 }},
		{"partition origin past canvas origin y", func(c *Config) { c.X0, c.CB0Y = 3, 1 }},
		{"code-block not power of two", func(c *Config) { c.CBlkWidth = 48 }},
		{"code-block too small", func(c *Config) { c.CBlkHeight = 2 }},
		{"code-block area", func(c *Config) { c.CBlkWidth, c.CBlkHeight = 128, 64 }},
		{"precinct exponent", func(c *Config) { c.Precincts = []PrecinctSize{{16, 4}} }},
		{"no filters", func(c *Config) { c.HFilters = nil }},
		{"nil filter", func(c *Config) { c.VFilters = []wavelet.Filter{nil} }},
		{"mixed data types", func(c *Config) { c.VFilters = []wavelet.Filter{wavelet.Lift97} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config53(32, 32, 2)
			tt.modify(&cfg)
			_, err := Build(cfg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfiguration), "got %v", err)
		})
	}
}

func TestOddOriginWithPartitionOriginOne(t *testing.T) {
	cfg := config53(32, 32, 3)
	cfg.X0, cfg.Y0 = 1, 1
	cfg.CB0X, cfg.CB0Y = 1, 1
	_, err := Build(cfg)
	require.NoError(t, err)
}

func TestL2Norms53(t *testing.T) {
	tree, err := Build(config53(16, 16, 2))
	require.NoError(t, err)

	root := tree.Node(tree.Root())
	ll1 := root.Children[LL]
	for _, id := range tree.Leaves() {
		assert.False(t, tree.HasL2Norm(id))
	}

	assert.InDelta(t, 0.71875, tree.L2Norm(root.Children[HH]), 1e-12)
	assert.InDelta(t, math.Sqrt(1.078125), tree.L2Norm(root.Children[HL]), 1e-12)
	assert.InDelta(t, math.Sqrt(1.078125), tree.L2Norm(root.Children[LH]), 1e-12)
	assert.InDelta(t, 1.5, tree.L2Norm(ll1), 1e-12)

	// [.25 .5 .75 1 .75 .5 .25] has a squared norm of 2.75 on each axis.
	ll2 := tree.Node(ll1).Children[LL]
	assert.InDelta(t, 2.75, tree.L2Norm(ll2), 1e-12)

	tree.ComputeL2Norms()
	for _, id := range tree.Leaves() {
		assert.True(t, tree.HasL2Norm(id))
		assert.Greater(t, tree.L2Norm(id), 0.0)
	}
}

func TestL2Norms97(t *testing.T) {
	cfg := config53(64, 64, 3)
	cfg.HFilters = []wavelet.Filter{wavelet.Lift97}
	cfg.VFilters = []wavelet.Filter{wavelet.Lift97}
	tree, err := Build(cfg)
	require.NoError(t, err)
	tree.ComputeL2Norms()

	for res := 1; res <= 3; res++ {
		hl, _ := tree.Band(res, HL)
		lh, _ := tree.Band(res, LH)
		assert.InDelta(t, tree.L2Norm(hl), tree.L2Norm(lh), 1e-12)
	}

	// Coarser subbands carry more energy per coefficient.
	hh3, _ := tree.Band(3, HH)
	hh1, _ := tree.Band(1, HH)
	assert.Greater(t, tree.L2Norm(hh1), tree.L2Norm(hh3))
	assert.True(t, tree.Node(tree.Root()).HFilter == wavelet.Filter(wavelet.Lift97))
	assert.False(t, tree.Reversible())
	assert.Equal(t, wavelet.TypeFloat, tree.DataType())
}

func TestRootNormWithoutDecomposition(t *testing.T) {
	tree, err := Build(config53(8, 8, 0))
	require.NoError(t, err)
	assert.Equal(t, 1.0, tree.L2Norm(tree.Root()))
	assert.True(t, tree.Reversible())
}

// invariantPanic runs fn and returns the error it panicked with.
func invariantPanic(t *testing.T, fn func()) (err error) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected a panic")
		e, ok := r.(error)
		require.True(t, ok, "panic value %v is not an error", r)
		err = e
	}()
	fn()
	return nil
}

func TestUnknownOrientationPanics(t *testing.T) {
	tests := []struct {
		name string
		call func(tree *Tree, id NodeID)
	}{
		{"NextLeaf", func(tree *Tree, id NodeID) { tree.NextLeaf(id) }},
		{"GlobalOrientation", func(tree *Tree, id NodeID) { tree.GlobalOrientation(id) }},
		{"SubbandPartitionOrigin", func(tree *Tree, id NodeID) { tree.SubbandPartitionOrigin(id) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := Build(config53(8, 8, 1))
			require.NoError(t, err)
			id := tree.FirstLeaf()
			tree.Node(id).Orient = Orientation(7)

			err = invariantPanic(t, func() { tt.call(tree, id) })
			assert.True(t, errors.Is(err, ErrInternalInvariant), "got %v", err)
		})
	}
}
