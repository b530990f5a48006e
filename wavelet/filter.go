// Package wavelet implements the lifting-based analysis filters used by the
// JPEG 2000 forward discrete wavelet transform.
//
// Two filters are provided: the reversible integer 5/3 filter (Filter53) and
// the irreversible floating-point 9/7 filter (Filter97). Both operate on
// strided signals so that a single routine filters rows and columns of a 2D
// buffer in place.
// Reference: ISO/IEC 15444-1:2019 Annex F
package wavelet

import "fmt"

// DataType is the sample representation a filter operates on.
type DataType int

const (
	// TypeInt is fixed-point integer data held in int32.
	TypeInt DataType = iota
	// TypeFloat is floating-point data held in float32.
	TypeFloat
)

func (t DataType) String() string {
	switch t {
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	default:
		return fmt.Sprintf("DataType(%d)", int(t))
	}
}

// Kind identifies a filter. Two filters of the same kind are interchangeable.
type Kind int

const (
	// W5X3 is the reversible Le Gall 5/3 filter.
	W5X3 Kind = iota
	// W9X7 is the irreversible CDF 9/7 filter.
	W9X7
)

func (k Kind) String() string {
	switch k {
	case W5X3:
		return "w5x3"
	case W9X7:
		return "w9x7"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind maps a filter name ("w5x3", "5x3", "w9x7", "9x7") to its Kind.
func ParseKind(name string) (Kind, error) {
	switch name {
	case "w5x3", "5x3", "5/3":
		return W5X3, nil
	case "w9x7", "9x7", "9/7":
		return W9X7, nil
	}
	return 0, fmt.Errorf("unknown wavelet filter %q", name)
}

// ImplType is the implementation strategy of a filter.
type ImplType int

const (
	// ImplIntLift is an integer lifting implementation.
	ImplIntLift ImplType = iota
	// ImplFloatLift is a floating-point lifting implementation.
	ImplFloatLift
)

// Filter describes an analysis filter independently of its sample type.
type Filter interface {
	Kind() Kind
	DataType() DataType
	ImplType() ImplType
	Reversible() bool

	// Analysis filter supports, in samples, relative to the output sample.
	AnLowNegSupport() int
	AnLowPosSupport() int
	AnHighNegSupport() int
	AnHighPosSupport() int

	// LowPassSynthesis and HighPassSynthesis return the time-reversed
	// synthesis impulse responses. Callers must not modify them.
	LowPassSynthesis() []float64
	HighPassSynthesis() []float64

	String() string
}

// Sample is a sample type the decomposition buffers can hold.
type Sample interface {
	~int32 | ~float32
}

// Analyzer performs one level of 1D analysis on a strided signal.
//
// The input is the inLen samples in[inOff], in[inOff+inStep], ... The low-pass
// output is written to low[lowOff], low[lowOff+lowStep], ... and the high-pass
// output to high[highOff], high[highOff+highStep], ...
//
// AnalyzeLPF treats the first input sample as a low-pass sample (even global
// index): ceil(inLen/2) low-pass and floor(inLen/2) high-pass outputs.
// AnalyzeHPF treats it as a high-pass sample (odd global index):
// floor(inLen/2) low-pass and ceil(inLen/2) high-pass outputs.
//
// The input and outputs must not overlap.
type Analyzer[T Sample] interface {
	Filter
	AnalyzeLPF(in []T, inOff, inLen, inStep int, low []T, lowOff, lowStep int, high []T, highOff, highStep int)
	AnalyzeHPF(in []T, inOff, inLen, inStep int, low []T, lowOff, lowStep int, high []T, highOff, highStep int)
}

// New returns the shared instance of the filter of the given kind.
func New(kind Kind) (Filter, error) {
	switch kind {
	case W5X3:
		return Lift53, nil
	case W9X7:
		return Lift97, nil
	}
	return nil, fmt.Errorf("unknown wavelet filter kind %d", int(kind))
}

// SameKind reports whether a and b are the same filter, which is what decides
// whether two tile-components can share a filter instance.
func SameKind(a, b Filter) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Kind() == b.Kind()
}

// LowCount returns the number of low-pass samples produced from n samples
// whose first sample has the given parity.
func LowCount(n int, even bool) int {
	low, _ := splitLengths(n, even)
	return low
}

// HighCount returns the number of high-pass samples produced from n samples
// whose first sample has the given parity.
func HighCount(n int, even bool) int {
	_, high := splitLengths(n, even)
	return high
}

// Analyze runs analysis with the low-pass-first convention on the inLen
// samples of sig starting at off with the given stride and returns freshly
// allocated low-pass and high-pass outputs.
func Analyze[T Sample](f Analyzer[T], sig []T, off, inLen, step int) (low, high []T) {
	low = make([]T, LowCount(inLen, true))
	high = make([]T, HighCount(inLen, true))
	if inLen > 0 {
		f.AnalyzeLPF(sig, off, inLen, step, low, 0, 1, high, 0, 1)
	}
	return low, high
}

// mirror maps a sample position outside [0, n) onto the signal by whole-sample
// symmetric extension (x[-1] = x[1], x[n] = x[n-2]). n must be at least 2 and
// p within one period of the signal.
func mirror(p, n int) int {
	if p < 0 {
		return -p
	}
	if p >= n {
		return 2*(n-1) - p
	}
	return p
}
