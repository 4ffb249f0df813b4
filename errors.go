package arraysim

import (
	"errors"

	"github.com/wiless/arraysim/antenna"
	"github.com/wiless/arraysim/beamformer"
	"github.com/wiless/arraysim/nulling"
)

// ErrConfiguration marks out of range or structurally invalid parameters.
// It is always returned before any numeric work starts.
var ErrConfiguration = errors.New("arraysim: invalid configuration")

// ErrNumerical wraps failures of the numeric core, see IsNumerical.
var ErrNumerical = errors.New("arraysim: numerical failure")

// IsConfiguration reports a configuration error.
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration) || errors.Is(err, nulling.ErrPartition) ||
		errors.Is(err, nulling.ErrNoInterference) || errors.Is(err, antenna.ErrGeometry)
}

// IsNumerical reports a singular second moment matrix or a diagram that
// cannot be normalized.
func IsNumerical(err error) bool {
	return errors.Is(err, ErrNumerical) || errors.Is(err, beamformer.ErrSingular) || errors.Is(err, antenna.ErrZeroPeak) ||
		errors.Is(err, nulling.ErrWeights)
}

// IsIndexRange reports a grid position, possibly shifted by boresight
// error, outside the angle grid.
func IsIndexRange(err error) bool {
	return errors.Is(err, antenna.ErrIndexRange)
}
