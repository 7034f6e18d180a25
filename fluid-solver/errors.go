package fluid

import "errors"

var (
	// ErrInvalidDimensions is returned when a lattice is smaller than 3x3.
	ErrInvalidDimensions = errors.New("fluid: lattice must be at least 3x3 cells")

	// ErrInvalidViscosity is returned for a viscosity that is not positive.
	ErrInvalidViscosity = errors.New("fluid: viscosity must be positive")

	// ErrOutOfRange is returned for coordinates outside the lattice.
	ErrOutOfRange = errors.New("fluid: coordinates outside the lattice")
)
