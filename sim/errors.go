package sim

import "errors"

var (
	// ErrNoEligibleStaff is returned when a facility has nobody rostered in a
	// role the care team requires. The admission cannot proceed.
	ErrNoEligibleStaff = errors.New("no eligible staff")

	// ErrMissingReference is returned when a catalog lookup the engine depends
	// on (condition, medication, procedure, insurance plan) comes back empty.
	ErrMissingReference = errors.New("missing reference data")

	// ErrAlreadySettled is returned when billing is attempted twice for a case.
	ErrAlreadySettled = errors.New("case already settled")
)
