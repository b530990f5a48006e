package subband

import "fmt"

// Orientation of a subband relative to the node it was split from.
// HL is high-pass horizontally and low-pass vertically, LH the reverse.
type Orientation int

const (
	LL Orientation = iota
	HL
	LH
	HH
)

func (o Orientation) String() string {
	switch o {
	case LL:
		return "LL"
	case HL:
		return "HL"
	case LH:
		return "LH"
	case HH:
		return "HH"
	default:
		return fmt.Sprintf("Orientation(%d)", int(o))
	}
}

// HorizontalHigh reports whether the subband lies on the horizontal
// high-pass side of its parent.
func (o Orientation) HorizontalHigh() bool {
	return o == HL || o == HH
}

// VerticalHigh reports whether the subband lies on the vertical high-pass
// side of its parent.
func (o Orientation) VerticalHigh() bool {
	return o == LH || o == HH
}

// orientationOf combines the two pass directions into an orientation.
func orientationOf(hHigh, vHigh bool) Orientation {
	switch {
	case hHigh && vHigh:
		return HH
	case hHigh:
		return HL
	case vHigh:
		return LH
	default:
		return LL
	}
}

// gainExp is the analysis gain exponent a subband adds to its parent's.
func (o Orientation) gainExp() int {
	switch o {
	case HL, LH:
		return 1
	case HH:
		return 2
	default:
		return 0
	}
}
