package domain

import "errors"

// Error kinds reported by the geometric pipeline. Callers match them with
// errors.Is; every returned error wraps exactly one of these.
var (
	// Malformed polygon or generator parameters.
	ErrInvalidArgument = errors.New("invalid argument")

	// Diagram construction failed or produced unusable output.
	ErrNumericalDegeneracy = errors.New("numerical degeneracy")

	// A well-formed input produced nothing to report.
	ErrEmptyResult = errors.New("empty result")
)
