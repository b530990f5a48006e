package wavelet

// splitLengths returns the low-pass and high-pass lengths of an n-sample
// signal whose first sample sits at an even (low-pass) or odd (high-pass)
// canvas coordinate.
func splitLengths(n int, even bool) (low, high int) {
	if n <= 0 {
		return 0, 0
	}
	if even {
		low = (n + 1) / 2
	} else {
		low = n / 2
	}
	high = n - low
	return
}

// IsEven reports whether a canvas coordinate is even. Even coordinates start
// with a low-pass sample.
func IsEven(value int) bool {
	return value&1 == 0
}

// LowCoord maps a canvas coordinate to the low-pass subband grid, ceil(v/2).
func LowCoord(value int) int {
	return (value + 1) >> 1
}

// HighCoord maps a canvas coordinate to the high-pass subband grid, floor(v/2).
func HighCoord(value int) int {
	return value >> 1
}
