package wavelet

// 9/7 filter coefficients (Cohen-Daubechies-Feauveau), ISO/IEC 15444-1 table F.4.
const (
	alpha97 = -1.586134342059924
	beta97  = -0.052980118572961
	gamma97 = 0.882911075530934
	delta97 = 0.443506852043971

	// K97 is the lifting gain of the low-pass band.
	K97 = 1.230174104914001
	// KL and KH normalize the bands to unit DC gain (low) and gain 2 at
	// Nyquist (high).
	KL = 1 / K97
	KH = K97
)

// Time-reversed synthesis impulse responses.
var (
	lpSynthesis97 = []float64{
		-0.091271763114, -0.057543526228, 0.591271763114, 1.115087052457,
		0.591271763114, -0.057543526228, -0.091271763114,
	}
	hpSynthesis97 = []float64{
		0.026748757411, 0.016864118443, -0.078223266529, -0.266864118443,
		0.602949018236, -0.266864118443, -0.078223266529, 0.016864118443,
		0.026748757411,
	}
)

// Filter97 implements the irreversible 9/7 wavelet analysis filter with
// floating-point lifting, used for lossy JPEG 2000.
type Filter97 struct{}

// Lift97 is the shared 9/7 filter instance.
var Lift97 = &Filter97{}

var _ Analyzer[float32] = (*Filter97)(nil)

// AnalyzeLPF performs analysis of a signal whose first sample is low-pass.
func (f *Filter97) AnalyzeLPF(in []float32, inOff, inLen, inStep int,
	low []float32, lowOff, lowStep int, high []float32, highOff, highStep int) {
	switch inLen {
	case 0:
		return
	case 1:
		low[lowOff] = in[inOff]
		return
	}

	nL, nH := splitLengths(inLen, true)
	x := func(p int) float32 {
		return in[inOff+mirror(p, inLen)*inStep]
	}
	h := func(p int) float32 {
		return high[highOff+((mirror(p, inLen)-1)>>1)*highStep]
	}
	l := func(p int) float32 {
		return low[lowOff+(mirror(p, inLen)>>1)*lowStep]
	}

	for i := 0; i < nH; i++ {
		p := 2*i + 1
		high[highOff+i*highStep] = x(p) + alpha97*(x(p-1)+x(p+1))
	}
	for i := 0; i < nL; i++ {
		p := 2 * i
		low[lowOff+i*lowStep] = x(p) + beta97*(h(p-1)+h(p+1))
	}
	for i := 0; i < nH; i++ {
		p := 2*i + 1
		high[highOff+i*highStep] += gamma97 * (l(p-1) + l(p+1))
	}
	for i := 0; i < nL; i++ {
		p := 2 * i
		low[lowOff+i*lowStep] += delta97 * (h(p-1) + h(p+1))
	}

	scale97(low, lowOff, nL, lowStep, KL)
	scale97(high, highOff, nH, highStep, KH)
}

// AnalyzeHPF performs analysis of a signal whose first sample is high-pass.
func (f *Filter97) AnalyzeHPF(in []float32, inOff, inLen, inStep int,
	low []float32, lowOff, lowStep int, high []float32, highOff, highStep int) {
	switch inLen {
	case 0:
		return
	case 1:
		// Nyquist gain of the high-pass band.
		high[highOff] = 2 * in[inOff]
		return
	}

	nL, nH := splitLengths(inLen, false)
	x := func(p int) float32 {
		return in[inOff+mirror(p, inLen)*inStep]
	}
	h := func(p int) float32 {
		return high[highOff+(mirror(p, inLen)>>1)*highStep]
	}
	l := func(p int) float32 {
		return low[lowOff+((mirror(p, inLen)-1)>>1)*lowStep]
	}

	for i := 0; i < nH; i++ {
		p := 2 * i
		high[highOff+i*highStep] = x(p) + alpha97*(x(p-1)+x(p+1))
	}
	for i := 0; i < nL; i++ {
		p := 2*i + 1
		low[lowOff+i*lowStep] = x(p) + beta97*(h(p-1)+h(p+1))
	}
	for i := 0; i < nH; i++ {
		p := 2 * i
		high[highOff+i*highStep] += gamma97 * (l(p-1) + l(p+1))
	}
	for i := 0; i < nL; i++ {
		p := 2*i + 1
		low[lowOff+i*lowStep] += delta97 * (h(p-1) + h(p+1))
	}

	scale97(low, lowOff, nL, lowStep, KL)
	scale97(high, highOff, nH, highStep, KH)
}

func scale97(data []float32, off, n, step int, k float32) {
	for i := 0; i < n; i++ {
		data[off+i*step] *= k
	}
}

func (f *Filter97) Kind() Kind { return W9X7 }
func (f *Filter97) DataType() DataType { return TypeFloat }
func (f *Filter97) ImplType() ImplType { return ImplFloatLift }
func (f *Filter97) Reversible() bool { return false }
func (f *Filter97) AnLowNegSupport() int { return 4 }
func (f *Filter97) AnLowPosSupport() int { return 4 }
func (f *Filter97) AnHighNegSupport() int { return 3 }
func (f *Filter97) AnHighPosSupport() int { return 3 }
func (f *Filter97) String() string { return "w9x7" }
func (f *Filter97) LowPassSynthesis() []float64 { return lpSynthesis97 }
func (f *Filter97) HighPassSynthesis() []float64 { return hpSynthesis97 }
