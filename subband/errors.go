package subband

import "errors"

var (
	// ErrInvalidConfiguration is returned when a tree cannot be built from
	// the given geometry, filters or code-block/precinct parameters.
	ErrInvalidConfiguration = errors.New("subband: invalid configuration")

	// ErrInternalInvariant indicates a malformed tree. It is raised with
	// panic, never returned.
	ErrInternalInvariant = errors.New("subband: internal invariant violated")
)
