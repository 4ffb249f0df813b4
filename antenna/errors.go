package antenna

import "errors"

var (
	// ErrGeometry is returned for arrays that cannot be built.
	ErrGeometry = errors.New("antenna: invalid geometry")

	// ErrEmptyGrid is returned when quantizing against an empty sequence.
	ErrEmptyGrid = errors.New("antenna: empty reference grid")

	// ErrIndexRange is returned when a grid position, possibly shifted by a
	// boresight error, falls outside the sweep.
	ErrIndexRange = errors.New("antenna: index outside angle grid")

	// ErrZeroPeak is returned when a diagram cannot be normalized because its
	// peak magnitude is zero or not finite.
	ErrZeroPeak = errors.New("antenna: zero or non-finite diagram peak")

	// ErrLength is returned when a per-element vector does not match N.
	ErrLength = errors.New("antenna: per-element vector length mismatch")
)
