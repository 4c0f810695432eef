package ocp

import (
	"errors"
	"fmt"
)

// Problem definition errors. All are detected by [Problem.Validate] before
// any numeric work starts.
var (
	// ErrMissingDynamics indicates no dynamics function was set.
	ErrMissingDynamics = errors.New("ocp: dynamics not set")

	// ErrDimensionMismatch indicates inconsistent dimensions between the
	// declared variables and the dynamics or cost terms.
	ErrDimensionMismatch = errors.New("ocp: dimension mismatch")

	// ErrInfeasibleBound indicates a bound with lower > upper.
	ErrInfeasibleBound = errors.New("ocp: infeasible bound (lower > upper)")

	// ErrUnknownVariable indicates an expression or bound referencing a
	// variable that was never declared.
	ErrUnknownVariable = errors.New("ocp: reference to undeclared variable")

	// ErrMissingHorizon indicates neither a fixed nor a free horizon was set.
	ErrMissingHorizon = errors.New("ocp: horizon not set")
)

// DefinitionError wraps a definition sentinel with the offending detail.
type DefinitionError struct {
	Detail  string
	Wrapped error
}

func (e *DefinitionError) Error() string {
	return fmt.Sprintf("%v: %s", e.Wrapped, e.Detail)
}

func (e *DefinitionError) Unwrap() error { return e.Wrapped }

func defErr(sentinel error, format string, args ...any) error {
	return &DefinitionError{Detail: fmt.Sprintf(format, args...), Wrapped: sentinel}
}
