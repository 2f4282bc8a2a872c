package portals

import "errors"

var (
	// ErrPortalNotFound is returned when a portal id has no stored state.
	ErrPortalNotFound = errors.New("portal not found")
	// ErrGunNotFound is returned when a gun id has no stored state.
	ErrGunNotFound = errors.New("portal gun not found")
	// ErrUnsupportedValue is returned when a property value is not a
	// string, number or bool.
	ErrUnsupportedValue = errors.New("unsupported property value")
	// ErrInvalidTarget is returned when a shot hits nothing a portal can
	// be placed on.
	ErrInvalidTarget = errors.New("invalid target")
	// ErrNoSafeLocation is returned when the safe placement search finds
	// no usable cell.
	ErrNoSafeLocation = errors.New("no safe location")
	// ErrChunkTimeout is returned when a target chunk does not load in time.
	ErrChunkTimeout = errors.New("chunk not loaded")
	// ErrOutOfBounds is returned for coordinates outside the world limits.
	ErrOutOfBounds = errors.New("coordinates out of bounds")
	// ErrNoLocation is returned when custom mode has no selected location.
	ErrNoLocation = errors.New("no custom location selected")
)
