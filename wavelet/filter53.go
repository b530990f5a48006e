package wavelet

// Filter53 implements the reversible 5/3 (Le Gall) wavelet analysis filter
// with integer lifting. It is the filter used for lossless JPEG 2000.
//
//	h[i] = x[2i+1] - floor((x[2i] + x[2i+2]) / 2)
//	l[i] = x[2i]   + floor((h[i-1] + h[i] + 2) / 4)
//
// Signal edges use whole-sample symmetric extension. No normalization is
// applied: the lifting steps already give unit DC gain on the low-pass band
// and gain 2 at Nyquist on the high-pass band.
type Filter53 struct{}

// Lift53 is the shared 5/3 filter instance.
var Lift53 = &Filter53{}

var _ Analyzer[int32] = (*Filter53)(nil)

// Time-reversed synthesis impulse responses.
var (
	lpSynthesis53 = []float64{0.5, 1, 0.5}
	hpSynthesis53 = []float64{-0.125, -0.25, 0.75, -0.25, -0.125}
)

// AnalyzeLPF performs analysis of a signal whose first sample is low-pass.
func (f *Filter53) AnalyzeLPF(in []int32, inOff, inLen, inStep int,
	low []int32, lowOff, lowStep int, high []int32, highOff, highStep int) {
	switch inLen {
	case 0:
		return
	case 1:
		low[lowOff] = in[inOff]
		return
	}

	nL, nH := splitLengths(inLen, true)
	x := func(p int) int32 {
		return in[inOff+mirror(p, inLen)*inStep]
	}

	// Predict: odd samples from their even neighbours.
	for i := 0; i < nH; i++ {
		p := 2*i + 1
		high[highOff+i*highStep] = x(p) - ((x(p-1) + x(p+1)) >> 1)
	}

	// High-pass samples sit at odd positions.
	h := func(p int) int32 {
		return high[highOff+((mirror(p, inLen)-1)>>1)*highStep]
	}

	// Update: even samples from the neighbouring details.
	for i := 0; i < nL; i++ {
		p := 2 * i
		low[lowOff+i*lowStep] = x(p) + ((h(p-1) + h(p+1) + 2) >> 2)
	}
}

// AnalyzeHPF performs analysis of a signal whose first sample is high-pass.
func (f *Filter53) AnalyzeHPF(in []int32, inOff, inLen, inStep int,
	low []int32, lowOff, lowStep int, high []int32, highOff, highStep int) {
	switch inLen {
	case 0:
		return
	case 1:
		// Nyquist gain of the high-pass band.
		high[highOff] = in[inOff] << 1
		return
	}

	nL, nH := splitLengths(inLen, false)
	x := func(p int) int32 {
		return in[inOff+mirror(p, inLen)*inStep]
	}

	for i := 0; i < nH; i++ {
		p := 2 * i
		high[highOff+i*highStep] = x(p) - ((x(p-1) + x(p+1)) >> 1)
	}

	// High-pass samples sit at even positions.
	h := func(p int) int32 {
		return high[highOff+(mirror(p, inLen)>>1)*highStep]
	}

	for i := 0; i < nL; i++ {
		p := 2*i + 1
		low[lowOff+i*lowStep] = x(p) + ((h(p-1) + h(p+1) + 2) >> 2)
	}
}

func (f *Filter53) Kind() Kind { return W5X3 }
func (f *Filter53) DataType() DataType { return TypeInt }
func (f *Filter53) ImplType() ImplType { return ImplIntLift }
func (f *Filter53) Reversible() bool { return true }
func (f *Filter53) AnLowNegSupport() int { return 2 }
func (f *Filter53) AnLowPosSupport() int { return 2 }
func (f *Filter53) AnHighNegSupport() int { return 1 }
func (f *Filter53) AnHighPosSupport() int { return 1 }
func (f *Filter53) String() string { return "w5x3" }
func (f *Filter53) LowPassSynthesis() []float64 { return lpSynthesis53 }
func (f *Filter53) HighPassSynthesis() []float64 { return hpSynthesis53 }
