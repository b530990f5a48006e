package fwt

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cocosip/go-j2k-wavelet/subband"
)

func decomposeInts(t *testing.T, p *Params, w, h, x0, y0 int) *Decomposition {
	t.Helper()
	tree := buildTree(t, p, w, h, x0, y0)
	rng := rand.New(rand.NewPCG(uint64(w), uint64(h)))
	d, err := Decompose(NewIntSamples(w, h, x0, y0, randomInts(rng, w*h)), tree)
	require.NoError(t, err)
	return d
}

func totalBlocks(tree *subband.Tree) int {
	n := 0
	for _, id := range tree.Leaves() {
		b := tree.Node(id)
		n += b.NumCBlkX * b.NumCBlkY
	}
	return n
}

func TestCursorSubbandOrder(t *testing.T) {
	d := decomposeInts(t, DefaultParams().WithLevels(1), 8, 8, 0, 0)
	c := d.Cursor()

	want := []struct {
		orient subband.Orientation
		x0, y0 int
	}{
		{subband.HH, 4, 4},
		{subband.LH, 0, 4},
		{subband.HL, 4, 0},
		{subband.LL, 0, 0},
	}
	for _, w := range want {
		cb, ok := c.Next(nil)
		require.True(t, ok)
		assert.Equal(t, w.orient, cb.Band.Orient)
		assert.Equal(t, 0, cb.N)
		assert.Equal(t, 0, cb.M)
		assert.Equal(t, w.x0, cb.X0)
		assert.Equal(t, w.y0, cb.Y0)
		assert.Equal(t, 4, cb.W)
		assert.Equal(t, 4, cb.H)
		assert.Equal(t, 8, cb.Scanw)
		assert.Equal(t, w.y0*8+w.x0, cb.Offset)
		assert.Equal(t, float32(1), cb.WMSEScaling)
	}
	cb, ok := c.Next(nil)
	assert.False(t, ok)
	assert.Nil(t, cb)
	assert.True(t, c.Done())

	_, ok = c.Next(nil)
	assert.False(t, ok)
}

func TestCursorRasterOrderWithinSubband(t *testing.T) {
	p := DefaultParams().WithLevels(0).WithCodeBlockSize(4, 4)
	d := decomposeInts(t, p, 16, 8, 0, 0)

	var got [][2]int
	for cb := range d.CodeBlocks() {
		assert.Equal(t, 4*cb.N, cb.X0)
		assert.Equal(t, 4*cb.M, cb.Y0)
		got = append(got, [2]int{cb.N, cb.M})
	}
	assert.Equal(t, [][2]int{
		{0, 0}, {1, 0}, {2, 0}, {3, 0},
		{0, 1}, {1, 1}, {2, 1}, {3, 1},
	}, got)
}

func TestCursorClipsToPartition(t *testing.T) {
	p := DefaultParams().WithLevels(0).WithCodeBlockSize(4, 4)
	d := decomposeInts(t, p, 10, 6, 3, 0)

	type span struct{ x0, w int }
	var got []span
	for cb := range d.CodeBlocks() {
		if cb.M == 0 {
			got = append(got, span{cb.X0, cb.W})
		}
	}
	assert.Equal(t, []span{{0, 1}, {1, 4}, {5, 4}, {9, 1}}, got)
}

func TestCursorCoversEverySample(t *testing.T) {
	tests := []struct {
		name         string
		p            *Params
		w, h, x0, y0 int
	}{
		{"dyadic", DefaultParams().WithLevels(3).WithCodeBlockSize(8, 4), 45, 30, 0, 0},
		{"odd origin", DefaultParams().WithLevels(4).WithCodeBlockSize(4, 8), 37, 29, 5, 3},
		{"packet", DefaultParams().WithLevels(2).WithStyle(subband.Packet).WithCodeBlockSize(4, 4), 24, 20, 1, 1},
		{"precincts", DefaultParams().WithLevels(2).WithPrecincts(subband.PrecinctSize{PPX: 3, PPY: 3}), 40, 40, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := decomposeInts(t, tt.p, tt.w, tt.h, tt.x0, tt.y0)
			seen := make([]int, tt.w*tt.h)
			count := 0
			for cb := range d.CodeBlocks() {
				count++
				require.Positive(t, cb.W)
				require.Positive(t, cb.H)
				for y := 0; y < cb.H; y++ {
					for x := 0; x < cb.W; x++ {
						seen[(cb.Y0+y)*tt.w+cb.X0+x]++
					}
				}
			}
			assert.Equal(t, totalBlocks(d.Tree), count)
			for i, n := range seen {
				require.Equal(t, 1, n, "sample %d", i)
			}
		})
	}
}

func TestCursorNextCopy(t *testing.T) {
	d := decomposeInts(t, DefaultParams().WithLevels(2).WithCodeBlockSize(4, 4), 12, 10, 1, 0)
	live := d.Cursor()
	copies := d.Cursor()

	n := 0
	for {
		view, ok := live.Next(nil)
		cp, okCopy := copies.NextCopy(nil)
		require.Equal(t, ok, okCopy)
		if !ok {
			break
		}
		assert.Equal(t, view.X0, cp.X0)
		assert.Equal(t, view.Y0, cp.Y0)
		assert.Equal(t, 0, cp.Offset)
		assert.Equal(t, cp.W, cp.Scanw)
		require.Len(t, cp.Ints, cp.W*cp.H)
		for y := 0; y < view.H; y++ {
			assert.Equal(t, view.IntRow(y), cp.IntRow(y))
		}
		n++
	}
	assert.Equal(t, totalBlocks(d.Tree), n)
}

func TestCursorNextCopyReusesBuffer(t *testing.T) {
	p := DefaultParams().WithLevels(0).WithCodeBlockSize(4, 4)
	d := decomposeInts(t, p, 8, 8, 0, 0)
	c := d.Cursor()

	cb, ok := c.NextCopy(nil)
	require.True(t, ok)
	first := &cb.Ints[0]
	cb.Ints[0] = 12345

	cb, ok = c.NextCopy(cb)
	require.True(t, ok)
	assert.Same(t, first, &cb.Ints[0])
	assert.NotEqual(t, int32(12345), d.Ints[0])

	// A live view is never written through.
	c2 := d.Cursor()
	view, ok := c2.Next(nil)
	require.True(t, ok)
	cp, ok := c2.NextCopy(view)
	require.True(t, ok)
	assert.NotSame(t, &d.Ints[0], &cp.Ints[0])
}

func TestIndependentCursors(t *testing.T) {
	d := decomposeInts(t, DefaultParams().WithLevels(2).WithCodeBlockSize(4, 4), 16, 16, 0, 0)
	a, b := d.Cursor(), d.Cursor()

	var seqA, seqB []string
	for {
		cbA, okA := a.Next(nil)
		if okA {
			seqA = append(seqA, cbA.String())
		}
		// b advances at half the speed of a.
		if len(seqA)%2 == 0 || !okA {
			if cbB, okB := b.Next(nil); okB {
				seqB = append(seqB, cbB.String())
			} else if !okA {
				break
			}
		}
	}
	assert.Equal(t, seqA, seqB)
	assert.Len(t, seqA, totalBlocks(d.Tree))
}

func TestCursorReset(t *testing.T) {
	d := decomposeInts(t, DefaultParams().WithLevels(1), 8, 8, 0, 0)
	c := d.Cursor()
	first, ok := c.Next(nil)
	require.True(t, ok)
	for ok {
		_, ok = c.Next(nil)
	}
	c.Reset()
	assert.False(t, c.Done())
	again, ok := c.Next(nil)
	require.True(t, ok)
	assert.Equal(t, first.String(), again.String())
}

func TestCursorStopsOnRelease(t *testing.T) {
	d := decomposeInts(t, DefaultParams().WithLevels(1), 8, 8, 0, 0)
	c := d.Cursor()
	_, ok := c.Next(nil)
	require.True(t, ok)
	d.Release()
	_, ok = c.Next(nil)
	assert.False(t, ok)
	assert.True(t, c.Done())
}

func TestCodeBlockString(t *testing.T) {
	d := decomposeInts(t, DefaultParams().WithLevels(1), 8, 8, 0, 0)
	cb, ok := d.Cursor().Next(nil)
	require.True(t, ok)
	assert.Equal(t, "code-block (0,0) of HH r1: 4x4 at (4,4)", cb.String())
}
