package subband

import "math"

// L2Norm returns the L2 norm of the synthesis basis function of subband id,
// the weight of its coefficients in the reconstructed image's squared error.
// The value is computed on first use and then memoized on the node. L2Norm
// mutates the tree and is not safe for concurrent use.
func (t *Tree) L2Norm(id NodeID) float64 {
	n := &t.nodes[id]
	if !n.normDone {
		n.norm = t.basisNorm(id)
		n.normDone = true
	}
	return n.norm
}

// HasL2Norm reports whether the norm of subband id has been computed.
func (t *Tree) HasL2Norm(id NodeID) bool {
	return t.nodes[id].normDone
}

// ComputeL2Norms computes the norm of every leaf not computed yet.
func (t *Tree) ComputeL2Norms() {
	for id := t.FirstLeaf(); id != NoNode; id = t.NextLeaf(id) {
		t.L2Norm(id)
	}
}

// basisNorm synthesizes a unit impulse placed in subband id up to the
// root, one axis at a time, and returns the product of the norms of the
// horizontal and vertical waveforms.
func (t *Tree) basisNorm(id NodeID) float64 {
	hWave := []float64{1}
	vWave := []float64{1}
	for cur := id; t.nodes[cur].Parent != NoNode; cur = t.nodes[cur].Parent {
		n := &t.nodes[cur]
		p := &t.nodes[n.Parent]
		if n.Orient.HorizontalHigh() {
			hWave = upsampleAndConvolve(hWave, p.HFilter.HighPassSynthesis())
		} else {
			hWave = upsampleAndConvolve(hWave, p.HFilter.LowPassSynthesis())
		}
		if n.Orient.VerticalHigh() {
			vWave = upsampleAndConvolve(vWave, p.VFilter.HighPassSynthesis())
		} else {
			vWave = upsampleAndConvolve(vWave, p.VFilter.LowPassSynthesis())
		}
	}
	return euclidean(hWave) * euclidean(vWave)
}

// upsampleAndConvolve upsamples in by two and convolves it with wf.
func upsampleAndConvolve(in, wf []float64) []float64 {
	out := make([]float64, 2*len(in)+len(wf)-2)
	for i, v := range in {
		for j, w := range wf {
			out[2*i+j] += v * w
		}
	}
	return out
}

func euclidean(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}
