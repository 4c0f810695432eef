package transcribe

import (
	"math"

	"github.com/RobotXiaoFeng/acado/internal/ocp"
)

// InitialIterate builds the starting decision vector for a validated
// problem. It is a pure function of the model: supplied guesses win, pinned
// boundary values are interpolated linearly, bounded quantities default to
// their bound midpoint, everything else to zero. The result always has
// exactly Layout.Dim() entries.
func InitialIterate(p *ocp.Problem, l Layout) ocp.Vector {
	z := make(ocp.Vector, l.Dim())

	params := l.Params(z)
	fillGroup(p.Parameters(), params, midpointDefault)

	// Horizon parameter defaults to its bound midpoint through the group
	// fill; nothing extra needed.

	if l.NU > 0 {
		u0 := make(ocp.Vector, l.NU)
		fillGroup(p.Controls(), u0, midpointDefault)
		for i := 0; i < l.N; i++ {
			copy(l.Control(z, i), u0)
		}
	}

	x0, xT := boundaryPins(p, l.NX)
	base := make(ocp.Vector, l.NX)
	fillGroup(p.States(), base, zeroDefault)

	for i := 0; i <= l.N; i++ {
		alpha := float64(i) / float64(l.N)
		si := l.State(z, i)
		for k := 0; k < l.NX; k++ {
			switch {
			case hasGuess(p.States(), k):
				si[k] = base[k]
			case !math.IsNaN(x0[k]) && !math.IsNaN(xT[k]):
				si[k] = (1-alpha)*x0[k] + alpha*xT[k]
			case !math.IsNaN(x0[k]):
				si[k] = x0[k]
			case !math.IsNaN(xT[k]):
				si[k] = xT[k]
			default:
				si[k] = base[k]
			}
		}
	}
	return z
}

// NodeTimes returns the N+1 shooting node times for the parameters p.
func NodeTimes(prob *ocp.Problem, l Layout, params ocp.Vector) []float64 {
	T := prob.Horizon().Fixed
	if prob.Horizon().Free {
		T = params[prob.Horizon().Param.Offset]
	}
	h := T / float64(l.N)
	times := make([]float64, l.N+1)
	for i := range times {
		times[i] = float64(i) * h
	}
	return times
}

type defaultRule int

const (
	zeroDefault defaultRule = iota
	midpointDefault
)

// fillGroup writes one value per component: the guess when supplied, else
// the rule's default (bound midpoint when both bounds are finite).
func fillGroup(vars []ocp.Variable, dst ocp.Vector, rule defaultRule) {
	for _, v := range vars {
		for i := 0; i < v.Dim; i++ {
			switch {
			case v.Guess != nil:
				dst[v.Offset+i] = v.Guess[i]
			case rule == midpointDefault && !math.IsInf(v.Lower[i], 0) && !math.IsInf(v.Upper[i], 0):
				dst[v.Offset+i] = 0.5 * (v.Lower[i] + v.Upper[i])
			default:
				dst[v.Offset+i] = 0
			}
		}
	}
}

func hasGuess(vars []ocp.Variable, comp int) bool {
	for _, v := range vars {
		if comp >= v.Offset && comp < v.Offset+v.Dim {
			return v.Guess != nil
		}
	}
	return false
}

// boundaryPins extracts state components pinned by INITIAL/TERMINAL
// equality constraints. Unpinned components are NaN.
func boundaryPins(p *ocp.Problem, nx int) (x0, xT ocp.Vector) {
	x0 = make(ocp.Vector, nx)
	xT = make(ocp.Vector, nx)
	for k := range x0 {
		x0[k] = math.NaN()
		xT[k] = math.NaN()
	}
	for _, c := range p.Constraints() {
		idx, val, ok := c.PinnedState()
		if !ok {
			continue
		}
		if c.Role == ocp.RoleInitial {
			x0[idx] = val
		} else {
			xT[idx] = val
		}
	}
	return x0, xT
}
