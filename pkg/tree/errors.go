package tree

import "errors"

var (
	// ErrInvalidInput is returned when a caller supplies data the core
	// cannot operate on, such as an empty item slice at build time.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidParameter is returned for parameters outside their domain,
	// such as a negative search radius.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrDistanceNaN is returned when the user-supplied metric produces a
	// non-comparable value. This indicates a bug in the metric and is
	// surfaced rather than coerced.
	ErrDistanceNaN = errors.New("metric produced a NaN distance")
)
