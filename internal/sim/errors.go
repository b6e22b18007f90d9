package sim

import "errors"

// Errors returned at the engine boundary. No state changes when one is
// returned.
var (
	ErrUnknownBody    = errors.New("unknown body")
	ErrUnknownBelt    = errors.New("unknown belt")
	ErrInvalidDensity = errors.New("invalid belt density")
	ErrInvalidEdit    = errors.New("invalid edit")
	ErrInvalidSpeed   = errors.New("invalid speed")
)
