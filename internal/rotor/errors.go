package rotor

import "errors"

var (
	// ErrUnknownBlade indicates a blade name outside the fixed blade set.
	ErrUnknownBlade = errors.New("rotor: unknown blade")

	// ErrUnknownRegime indicates a regime name outside the canonical enumeration.
	ErrUnknownRegime = errors.New("rotor: unknown regime")
)
