package sqp

import (
	"fmt"
	"sync"

	"github.com/RobotXiaoFeng/acado/internal/integrate"
	"github.com/RobotXiaoFeng/acado/internal/ocp"
)

// shoot integrates every shooting interval with sensitivities, one
// goroutine per interval. The integrator is stateless, so the workers
// share it.
func (e *Engine) shoot(it *integrate.Integrator, z ocp.Vector) ([]*integrate.Sensitivity, error) {
	l := e.l
	out := make([]*integrate.Sensitivity, l.N)
	errs := make([]error, l.N)

	var wg sync.WaitGroup
	for i := 0; i < l.N; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			out[idx], errs[idx] = it.Interval(idx, l.State(z, idx), l.Control(z, idx), l.Params(z))
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("interval %d: %w", i, err)
		}
	}
	return out, nil
}

// endpoints integrates every interval without sensitivities. The merit
// function uses it to measure continuity at trial points.
func (e *Engine) endpoints(it *integrate.Integrator, z ocp.Vector) ([]ocp.Vector, error) {
	l := e.l
	out := make([]ocp.Vector, l.N)
	errs := make([]error, l.N)

	var wg sync.WaitGroup
	for i := 0; i < l.N; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			out[idx], errs[idx] = it.Propagate(idx, l.State(z, idx), l.Control(z, idx), l.Params(z))
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("interval %d: %w", i, err)
		}
	}
	return out, nil
}
