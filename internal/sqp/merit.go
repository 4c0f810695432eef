package sqp

import (
	"errors"
	"math"

	"github.com/RobotXiaoFeng/acado/internal/integrate"
	"github.com/RobotXiaoFeng/acado/internal/nlp"
	"github.com/RobotXiaoFeng/acado/internal/ocp"
	"github.com/RobotXiaoFeng/acado/internal/transcribe"
)

// violation sums the nonlinear infeasibility at z given freshly
// integrated interval endpoints: continuity defects, point constraints
// and variable bounds.
func (e *Engine) violation(z ocp.Vector, ends []ocp.Vector) (eq, ineq float64) {
	l := e.l
	for i := 0; i < l.N; i++ {
		next := l.State(z, i+1)
		for k := range next {
			eq += math.Abs(ends[i][k] - next[k])
		}
	}

	p := l.Params(z)
	times := transcribe.NodeTimes(e.prob, l, p)
	point := func(c ocp.Constraint, node int) {
		env := &ocp.Env{X: l.State(z, node), U: l.NodeControl(z, node), P: p, T: times[node]}
		v := c.Expr.Eval(env)
		if c.IsEquality() {
			eq += math.Abs(v - c.Lower)
			return
		}
		if v < c.Lower {
			ineq += c.Lower - v
		}
		if v > c.Upper {
			ineq += v - c.Upper
		}
	}
	for _, c := range e.prob.Constraints() {
		switch c.Role {
		case ocp.RoleInitial:
			point(c, 0)
		case ocp.RoleTerminal:
			point(c, l.N)
		case ocp.RolePath:
			for i := 0; i <= l.N; i++ {
				point(c, i)
			}
		}
	}

	box := func(off int, lo, hi ocp.Vector) {
		for k := range lo {
			if z[off+k] < lo[k] {
				ineq += lo[k] - z[off+k]
			}
			if z[off+k] > hi[k] {
				ineq += z[off+k] - hi[k]
			}
		}
	}
	xlo, xhi := e.prob.GroupBounds(ocp.KindState)
	ulo, uhi := e.prob.GroupBounds(ocp.KindControl)
	plo, phi := e.prob.GroupBounds(ocp.KindParameter)
	for i := 0; i <= l.N; i++ {
		box(l.SOff(i), xlo, xhi)
	}
	for i := 0; i < l.N; i++ {
		box(l.UOff(i), ulo, uhi)
	}
	box(l.POff(), plo, phi)
	return eq, ineq
}

// merit evaluates the L1 penalty function φ(z) = f(z) + ρ·‖c(z)‖₁ at a
// trial point, re-integrating the shooting intervals.
func (e *Engine) merit(it *integrate.Integrator, z ocp.Vector, rho float64) (float64, error) {
	ends, err := e.endpoints(it, z)
	if err != nil {
		return 0, err
	}
	eq, ineq := e.violation(z, ends)
	return nlp.Objective(e.prob, e.l, z) + rho*(eq+ineq), nil
}

// errLineSearch reports an exhausted backtracking budget with no trial
// meeting the Armijo condition.
var errLineSearch = errors.New("sqp: no sufficient merit decrease within the trial budget")

// lineSearch backtracks along δz until the Armijo condition on the L1
// merit holds. It returns the accepted iterate and step length. Trial
// points that fail to integrate shrink the step like a rejected trial.
// When the trial budget runs out the last accepted iterate is kept and
// errLineSearch returned; the caller escalates.
func (e *Engine) lineSearch(it *integrate.Integrator, z, step ocp.Vector, phi0, dirDeriv, rho float64) (ocp.Vector, float64, error) {
	alpha := 1.0
	trial := make(ocp.Vector, len(z))
	for t := 0; t < e.opts.MaxLineTrials; t++ {
		for k := range trial {
			trial[k] = z[k] + alpha*step[k]
		}
		phi, err := e.merit(it, trial, rho)
		if err == nil && phi <= phi0+e.opts.Armijo*alpha*dirDeriv {
			return trial, alpha, nil
		}
		alpha *= e.opts.Backtrack
	}
	return z, 0, errLineSearch
}
