package fwt

import (
	"errors"

	"github.com/cocosip/go-j2k-wavelet/subband"
)

var (
	// ErrTypeMismatch indicates a sample buffer whose data type differs
	// from the one its wavelet filters operate on.
	ErrTypeMismatch = errors.New("fwt: sample type does not match wavelet filter")

	// ErrInvalidConfiguration is returned for invalid parameters or
	// geometry. It is the same error the subband package returns.
	ErrInvalidConfiguration = subband.ErrInvalidConfiguration

	// ErrNoSuchTile is returned for a tile index outside the image.
	ErrNoSuchTile = errors.New("fwt: no such tile")

	// ErrNoSuchComponent is returned for a component index outside the image.
	ErrNoSuchComponent = errors.New("fwt: no such component")

	// ErrNoMoreCodeBlocks is returned once every code-block of a
	// tile-component has been delivered.
	ErrNoMoreCodeBlocks = errors.New("fwt: no more code-blocks")
)
