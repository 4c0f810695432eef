package integrate

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFinite indicates the dynamics produced NaN or Inf, i.e. the
	// current iterate left the dynamics' valid domain.
	ErrNotFinite = errors.New("integrate: non-finite value from dynamics")

	// ErrDiverged indicates step adaptation could not meet the local
	// tolerance within the configured number of sub-steps.
	ErrDiverged = errors.New("integrate: step adaptation exhausted")
)

// StepError carries the failure location inside the interval.
type StepError struct {
	Interval int
	Tau      float64
	Step     int
	Wrapped  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("interval %d, sub-step %d (tau=%.4g): %v", e.Interval, e.Step, e.Tau, e.Wrapped)
}

func (e *StepError) Unwrap() error { return e.Wrapped }
