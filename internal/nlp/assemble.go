// Package nlp linearizes the transcribed problem around the current iterate
// and builds the structured quadratic subproblem for the SQP step.
package nlp

import (
	"math"

	"github.com/RobotXiaoFeng/acado/internal/integrate"
	"github.com/RobotXiaoFeng/acado/internal/ocp"
	"github.com/RobotXiaoFeng/acado/internal/transcribe"
	"gonum.org/v1/gonum/mat"
)

// ConRow is one linearized point constraint, sparse over the decision
// vector: only the s_Node, u_Node and p blocks carry nonzeros.
//
//	Lower ≤ Value + Jx·δs + Ju·δu + Jp·δp ≤ Upper
type ConRow struct {
	Node       int
	Role       ocp.Role
	Jx, Ju, Jp ocp.Vector
	Value      float64
	Lower      float64
	Upper      float64
}

func (r ConRow) IsEquality() bool { return r.Lower == r.Upper }

// QPData is the structured quadratic subproblem in the step variable δz.
// The continuity equalities stay in block form (A_i, B_i, C_i, R_i) so the
// QP solver can condense them; the Hessian stays block-diagonal per node.
type QPData struct {
	Layout transcribe.Layout

	// Continuity linearization: A_i δs_i + B_i δu_i + C_i δp − δs_{i+1} + R_i = 0.
	A, B, C []*mat.Dense
	Res     []ocp.Vector

	Rows []ConRow // initial/terminal/path constraints

	// Bounds on δz derived from the box constraints at the current iterate.
	DLower, DUpper ocp.Vector

	// Quadratic cost model ½ δzᵀH δz + Gᵀδz with block-diagonal H.
	G         ocp.Vector
	HS        []*mat.SymDense // one per node, N+1
	HU        []*mat.SymDense // one per interval, N (nil entries when nu = 0)
	HP        *mat.SymDense   // nil when np = 0
	Objective float64
}

// Assembler builds QPData each SQP iteration. The Levenberg parameter is a
// diagonal shift keeping the Gauss-Newton Hessian positive definite when
// cost terms leave directions unweighted (e.g. pure minimum-time problems).
type Assembler struct {
	prob      *ocp.Problem
	l         transcribe.Layout
	levenberg float64
}

func NewAssembler(prob *ocp.Problem, l transcribe.Layout, levenberg float64) *Assembler {
	if levenberg <= 0 {
		levenberg = 1e-8
	}
	return &Assembler{prob: prob, l: l, levenberg: levenberg}
}

// Build assembles the QP around z using the freshly computed interval
// sensitivities (one per interval, at the current iterate).
func (a *Assembler) Build(z ocp.Vector, sens []*integrate.Sensitivity) *QPData {
	l := a.l
	qp := &QPData{
		Layout: l,
		A:      make([]*mat.Dense, l.N),
		B:      make([]*mat.Dense, l.N),
		C:      make([]*mat.Dense, l.N),
		Res:    make([]ocp.Vector, l.N),
		HS:     make([]*mat.SymDense, l.N+1),
		HU:     make([]*mat.SymDense, l.N),
		G:      make(ocp.Vector, l.Dim()),
	}

	for i := 0; i < l.N; i++ {
		s := sens[i]
		qp.A[i] = s.Sx
		qp.B[i] = s.Su
		qp.C[i] = s.Sp
		r := s.XEnd.Clone()
		next := l.State(z, i+1)
		for k := range r {
			r[k] -= next[k]
		}
		qp.Res[i] = r
	}

	a.buildRows(z, qp)
	a.buildBounds(z, qp)
	a.buildCost(z, qp)
	return qp
}

func (a *Assembler) buildRows(z ocp.Vector, qp *QPData) {
	l := a.l
	p := l.Params(z)
	times := transcribe.NodeTimes(a.prob, l, p)

	addRow := func(c ocp.Constraint, node int) {
		env := &ocp.Env{X: l.State(z, node), U: l.NodeControl(z, node), P: p, T: times[node]}
		row := ConRow{
			Node:  node,
			Role:  c.Role,
			Value: c.Expr.Eval(env),
			Lower: c.Lower,
			Upper: c.Upper,
		}
		row.Jx = make(ocp.Vector, l.NX)
		for k := 0; k < l.NX; k++ {
			row.Jx[k] = c.Expr.Partial(env, ocp.KindState, k)
		}
		if l.NU > 0 {
			row.Ju = make(ocp.Vector, l.NU)
			for k := 0; k < l.NU; k++ {
				row.Ju[k] = c.Expr.Partial(env, ocp.KindControl, k)
			}
		}
		if l.NP > 0 {
			row.Jp = make(ocp.Vector, l.NP)
			for k := 0; k < l.NP; k++ {
				row.Jp[k] = c.Expr.Partial(env, ocp.KindParameter, k)
			}
		}
		qp.Rows = append(qp.Rows, row)
	}

	for _, c := range a.prob.Constraints() {
		switch c.Role {
		case ocp.RoleInitial:
			addRow(c, 0)
		case ocp.RoleTerminal:
			addRow(c, l.N)
		case ocp.RolePath:
			for i := 0; i <= l.N; i++ {
				addRow(c, i)
			}
		}
	}
}

func (a *Assembler) buildBounds(z ocp.Vector, qp *QPData) {
	l := a.l
	n := l.Dim()
	qp.DLower = make(ocp.Vector, n)
	qp.DUpper = make(ocp.Vector, n)

	xlo, xhi := a.prob.GroupBounds(ocp.KindState)
	ulo, uhi := a.prob.GroupBounds(ocp.KindControl)
	plo, phi := a.prob.GroupBounds(ocp.KindParameter)

	set := func(off int, lo, hi ocp.Vector) {
		for k := range lo {
			qp.DLower[off+k] = lo[k] - z[off+k]
			qp.DUpper[off+k] = hi[k] - z[off+k]
		}
	}
	for i := 0; i <= l.N; i++ {
		set(l.SOff(i), xlo, xhi)
	}
	for i := 0; i < l.N; i++ {
		set(l.UOff(i), ulo, uhi)
	}
	set(l.POff(), plo, phi)
}

func (a *Assembler) buildCost(z ocp.Vector, qp *QPData) {
	l := a.l
	cost := a.prob.Cost()
	p := l.Params(z)
	times := transcribe.NodeTimes(a.prob, l, p)
	h := intervalLength(a.prob, l, p)
	hIdx := horizonIndex(a.prob)

	qp.Objective = Objective(a.prob, l, z)

	// Running terms, left-rectangle quadrature over each interval.
	for i := 0; i < l.N; i++ {
		si := l.State(z, i)
		ui := l.Control(z, i)
		env := &ocp.Env{X: si, U: ui, P: p, T: times[i]}

		gs := qp.G[l.SOff(i) : l.SOff(i)+l.NX]
		if cost.Q != nil {
			addWeighted(gs, cost.Q, si, cost.XRef, h)
		}
		if l.NU > 0 {
			gu := qp.G[l.UOff(i) : l.UOff(i)+l.NU]
			if cost.R != nil {
				addWeighted(gu, cost.R, ui, cost.URef, h)
			}
			if cost.Lagrange != nil {
				for k := 0; k < l.NU; k++ {
					gu[k] += h * cost.Lagrange.Partial(env, ocp.KindControl, k)
				}
			}
		}
		if cost.Lagrange != nil {
			for k := 0; k < l.NX; k++ {
				gs[k] += h * cost.Lagrange.Partial(env, ocp.KindState, k)
			}
		}

		if l.NP > 0 {
			gp := qp.G[l.POff() : l.POff()+l.NP]
			lag := runningCostAt(cost, env, si, ui)
			if cost.Lagrange != nil {
				for k := 0; k < l.NP; k++ {
					gp[k] += h * cost.Lagrange.Partial(env, ocp.KindParameter, k)
				}
			}
			// sensitivity of the quadrature weight h = T/N itself
			if hIdx >= 0 {
				gp[hIdx] += lag / float64(l.N)
			}
		}

		qp.HS[i] = a.hessBlock(cost.Q, cost.Lagrange, env, ocp.KindState, l.NX, h)
		if l.NU > 0 {
			qp.HU[i] = a.hessBlock(cost.R, cost.Lagrange, env, ocp.KindControl, l.NU, h)
		}
	}

	// Terminal terms.
	sN := l.State(z, l.N)
	envT := &ocp.Env{X: sN, U: l.NodeControl(z, l.N), P: p, T: times[l.N]}
	gsN := qp.G[l.SOff(l.N) : l.SOff(l.N)+l.NX]
	if cost.P != nil {
		addWeighted(gsN, cost.P, sN, cost.XRefT, 1)
	}
	if cost.Mayer != nil {
		for k := 0; k < l.NX; k++ {
			gsN[k] += cost.Mayer.Partial(envT, ocp.KindState, k)
		}
	}
	qp.HS[l.N] = a.hessBlock(cost.P, cost.Mayer, envT, ocp.KindState, l.NX, 1)

	// Parameter terms.
	if l.NP > 0 {
		gp := qp.G[l.POff() : l.POff()+l.NP]
		if cost.ParamLin != nil {
			for k := 0; k < l.NP; k++ {
				gp[k] += cost.ParamLin[k]
			}
		}
		if cost.Mayer != nil {
			for k := 0; k < l.NP; k++ {
				gp[k] += cost.Mayer.Partial(envT, ocp.KindParameter, k)
			}
		}
		qp.HP = mat.NewSymDense(l.NP, nil)
		for k := 0; k < l.NP; k++ {
			qp.HP.SetSym(k, k, a.levenberg)
		}
	}
}

// hessBlock builds one Gauss-Newton Hessian block: the scaled quadratic
// weight plus a finite-difference curvature of the generic expression, with
// the Levenberg shift on the diagonal.
func (a *Assembler) hessBlock(w *mat.SymDense, e ocp.Expr, env *ocp.Env, kind ocp.VarKind, dim int, scale float64) *mat.SymDense {
	blk := mat.NewSymDense(dim, nil)
	if w != nil {
		for i := 0; i < dim; i++ {
			for j := i; j < dim; j++ {
				blk.SetSym(i, j, scale*w.At(i, j))
			}
		}
	}
	if e != nil {
		const d = 1e-6
		slot := func(k int) *float64 {
			switch kind {
			case ocp.KindState:
				return &env.X[k]
			case ocp.KindControl:
				return &env.U[k]
			default:
				return &env.P[k]
			}
		}
		for i := 0; i < dim; i++ {
			for j := i; j < dim; j++ {
				s := slot(j)
				orig := *s
				*s = orig + d
				gp := e.Partial(env, kind, i)
				*s = orig - d
				gm := e.Partial(env, kind, i)
				*s = orig
				blk.SetSym(i, j, blk.At(i, j)+scale*(gp-gm)/(2*d))
			}
		}
	}
	for i := 0; i < dim; i++ {
		blk.SetSym(i, i, blk.At(i, i)+a.levenberg)
	}
	return blk
}

// Objective evaluates the transcribed cost at z: left-rectangle quadrature
// of the running terms plus Mayer and linear parameter terms.
func Objective(prob *ocp.Problem, l transcribe.Layout, z ocp.Vector) float64 {
	cost := prob.Cost()
	p := l.Params(z)
	times := transcribe.NodeTimes(prob, l, p)
	h := intervalLength(prob, l, p)

	total := 0.0
	for i := 0; i < l.N; i++ {
		env := &ocp.Env{X: l.State(z, i), U: l.Control(z, i), P: p, T: times[i]}
		total += h * runningCostAt(cost, env, env.X, env.U)
	}

	sN := l.State(z, l.N)
	if cost.P != nil {
		total += quadForm(cost.P, sN, cost.XRefT)
	}
	if cost.Mayer != nil {
		env := &ocp.Env{X: sN, U: l.NodeControl(z, l.N), P: p, T: times[l.N]}
		total += cost.Mayer.Eval(env)
	}
	if cost.ParamLin != nil {
		for k, w := range cost.ParamLin {
			total += w * p[k]
		}
	}
	return total
}

func runningCostAt(cost *ocp.Cost, env *ocp.Env, x, u ocp.Vector) float64 {
	v := 0.0
	if cost.Q != nil {
		v += quadForm(cost.Q, x, cost.XRef)
	}
	if cost.R != nil {
		v += quadForm(cost.R, u, cost.URef)
	}
	if cost.Lagrange != nil {
		v += cost.Lagrange.Eval(env)
	}
	return v
}

// quadForm computes ½(v-ref)ᵀW(v-ref). A nil or empty ref is zero.
func quadForm(w *mat.SymDense, v, ref ocp.Vector) float64 {
	n := w.SymmetricDim()
	sum := 0.0
	for i := 0; i < n; i++ {
		di := v[i] - refAt(ref, i)
		for j := 0; j < n; j++ {
			sum += di * w.At(i, j) * (v[j] - refAt(ref, j))
		}
	}
	return 0.5 * sum
}

// addWeighted accumulates scale·W·(v-ref) into dst.
func addWeighted(dst ocp.Vector, w *mat.SymDense, v, ref ocp.Vector, scale float64) {
	n := w.SymmetricDim()
	for i := 0; i < n; i++ {
		sum := 0.0
		for j := 0; j < n; j++ {
			sum += w.At(i, j) * (v[j] - refAt(ref, j))
		}
		dst[i] += scale * sum
	}
}

func refAt(ref ocp.Vector, i int) float64 {
	if i < len(ref) {
		return ref[i]
	}
	return 0
}

func intervalLength(prob *ocp.Problem, l transcribe.Layout, p ocp.Vector) float64 {
	T := prob.Horizon().Fixed
	if prob.Horizon().Free {
		T = p[prob.Horizon().Param.Offset]
	}
	return T / float64(l.N)
}

func horizonIndex(prob *ocp.Problem) int {
	if prob.Horizon().Free {
		return prob.Horizon().Param.Offset
	}
	return -1
}

// TotalViolation sums the constraint violation of the nonlinear residuals
// at the iterate embedded in qp (continuity, point constraints, bounds).
// The SQP merit function and the KKT feasibility part both use it.
func (qp *QPData) TotalViolation() (eq, ineq float64) {
	for _, r := range qp.Res {
		for _, v := range r {
			eq += math.Abs(v)
		}
	}
	for _, row := range qp.Rows {
		if row.IsEquality() {
			eq += math.Abs(row.Value - row.Lower)
			continue
		}
		if row.Value < row.Lower {
			ineq += row.Lower - row.Value
		}
		if row.Value > row.Upper {
			ineq += row.Value - row.Upper
		}
	}
	for k := range qp.DLower {
		if qp.DLower[k] > 0 {
			ineq += qp.DLower[k]
		}
		if qp.DUpper[k] < 0 {
			ineq += -qp.DUpper[k]
		}
	}
	return eq, ineq
}
