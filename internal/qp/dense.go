package qp

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrInfeasible indicates the linearized constraints are mutually
// contradictory: the interior-point iteration could not reduce primal
// infeasibility.
var ErrInfeasible = errors.New("qp: linearized constraints infeasible")

// ErrSingularKKT indicates a Newton system that stayed unfactorizable
// after diagonal regularization. The subproblem itself may be feasible,
// so callers must not treat this like ErrInfeasible.
var ErrSingularKKT = errors.New("qp: singular kkt system")

// denseQP is the canonical dense form handed to the interior-point core:
//
//	min ½ wᵀH w + gᵀw
//	s.t. Aeq w = beq
//	     Ain w ≥ bin
type denseQP struct {
	h   *mat.Dense
	g   []float64
	aeq *mat.Dense // nil when no equalities
	beq []float64
	ain *mat.Dense // nil when no inequalities
	bin []float64
}

// denseSol carries the primal step and the raw multipliers: y for the
// equality rows, lam ≥ 0 for the inequality rows.
type denseSol struct {
	w   []float64
	y   []float64
	lam []float64
}

const (
	ipMaxIter  = 80
	ipTol      = 1e-10
	ipSigma    = 0.1
	ipBoundary = 0.995
)

// solveDense runs a primal-dual path-following interior-point iteration.
func solveDense(q *denseQP) (*denseSol, error) {
	n := len(q.g)
	me, mi := 0, 0
	if q.aeq != nil {
		me = len(q.beq)
	}
	if q.ain != nil {
		mi = len(q.bin)
	}

	w := make([]float64, n)
	y := make([]float64, me)
	s := make([]float64, mi)
	lam := make([]float64, mi)
	for i := 0; i < mi; i++ {
		s[i] = 1 + math.Abs(q.bin[i])
		lam[i] = 1
	}

	if mi == 0 {
		// Pure (equality-constrained) QP: one KKT solve.
		if err := eqSolve(q, w, y); err != nil {
			return nil, err
		}
		return &denseSol{w: w, y: y, lam: lam}, nil
	}

	scale := 1.0
	for _, v := range q.g {
		scale = math.Max(scale, math.Abs(v))
	}

	rd := make([]float64, n)
	rp := make([]float64, me)
	rg := make([]float64, mi)

	for iter := 0; iter < ipMaxIter; iter++ {
		residuals(q, w, y, s, lam, rd, rp, rg)
		gap := dot(s, lam) / float64(mi)

		if infNorm(rd) < ipTol*scale && infNorm(rp) < ipTol*scale &&
			infNorm(rg) < ipTol*scale && gap < ipTol*scale {
			return &denseSol{w: w, y: y, lam: lam}, nil
		}

		dw, dy, ds, dlam, err := ipStep(q, s, lam, rd, rp, rg, ipSigma*gap)
		if err != nil {
			return nil, err
		}

		ap := boundaryStep(s, ds)
		ad := boundaryStep(lam, dlam)

		axpy(ap, dw, w)
		axpy(ap, ds, s)
		axpy(ad, dy, y)
		axpy(ad, dlam, lam)

		if ap < 1e-12 && ad < 1e-12 {
			break
		}
	}

	// No convergence: feasible-but-slow solves are accepted, contradictory
	// constraints are reported as infeasible.
	residuals(q, w, y, s, lam, rd, rp, rg)
	if infNorm(rp) > 1e-6*scale || infNorm(rg) > 1e-6*scale {
		return nil, ErrInfeasible
	}
	return &denseSol{w: w, y: y, lam: lam}, nil
}

// residuals fills the dual, primal-equality and primal-inequality residuals.
func residuals(q *denseQP, w, y, s, lam, rd, rp, rg []float64) {
	n := len(w)
	for i := 0; i < n; i++ {
		sum := q.g[i]
		for j := 0; j < n; j++ {
			sum += q.h.At(i, j) * w[j]
		}
		rd[i] = sum
	}
	if q.aeq != nil {
		for r := range rp {
			sum := -q.beq[r]
			for j := 0; j < n; j++ {
				v := q.aeq.At(r, j)
				sum += v * w[j]
				rd[j] += v * y[r]
			}
			rp[r] = sum
		}
	}
	if q.ain != nil {
		for r := range rg {
			sum := -q.bin[r] - s[r]
			for j := 0; j < n; j++ {
				v := q.ain.At(r, j)
				sum += v * w[j]
				rd[j] -= v * lam[r]
			}
			rg[r] = sum
		}
	}
}

// ipStep solves the reduced Newton system for one centering step with
// target complementarity mu.
func ipStep(q *denseQP, s, lam, rd, rp, rg []float64, mu float64) (dw, dy, ds, dlam []float64, err error) {
	n := len(rd)
	me := len(rp)
	mi := len(rg)

	// M = H + Ainᵀ diag(lam/s) Ain
	m := mat.NewDense(n, n, nil)
	m.Copy(q.h)
	rhs1 := make([]float64, n)
	copy(rhs1, rd)
	for i := range rhs1 {
		rhs1[i] = -rhs1[i]
	}
	for r := 0; r < mi; r++ {
		d := lam[r] / s[r]
		// r4_r = s_r·lam_r − mu
		c := (s[r]*lam[r] - mu + lam[r]*rg[r]) / s[r]
		for i := 0; i < n; i++ {
			ai := q.ain.At(r, i)
			if ai == 0 {
				continue
			}
			rhs1[i] -= ai * c
			for j := 0; j < n; j++ {
				m.Set(i, j, m.At(i, j)+ai*d*q.ain.At(r, j))
			}
		}
	}

	// KKT system [[M, Aeqᵀ], [Aeq, 0]]
	dim := n + me
	kkt := mat.NewDense(dim, dim, nil)
	rhs := mat.NewVecDense(dim, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			kkt.Set(i, j, m.At(i, j))
		}
		rhs.SetVec(i, rhs1[i])
	}
	for r := 0; r < me; r++ {
		for j := 0; j < n; j++ {
			v := q.aeq.At(r, j)
			kkt.Set(n+r, j, v)
			kkt.Set(j, n+r, v)
		}
		rhs.SetVec(n+r, -rp[r])
	}

	var sol mat.VecDense
	if err := solveKKT(kkt, rhs, n, &sol); err != nil {
		return nil, nil, nil, nil, err
	}

	dw = make([]float64, n)
	dy = make([]float64, me)
	for i := 0; i < n; i++ {
		dw[i] = sol.AtVec(i)
	}
	for r := 0; r < me; r++ {
		dy[r] = sol.AtVec(n + r)
	}

	ds = make([]float64, mi)
	dlam = make([]float64, mi)
	for r := 0; r < mi; r++ {
		sum := rg[r]
		for j := 0; j < n; j++ {
			sum += q.ain.At(r, j) * dw[j]
		}
		ds[r] = sum
		dlam[r] = -(s[r]*lam[r] - mu + lam[r]*ds[r]) / s[r]
	}
	return dw, dy, ds, dlam, nil
}

// eqSolve handles the inequality-free case with a single KKT factorization.
func eqSolve(q *denseQP, w, y []float64) error {
	n := len(w)
	me := len(y)
	dim := n + me
	kkt := mat.NewDense(dim, dim, nil)
	rhs := mat.NewVecDense(dim, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			kkt.Set(i, j, q.h.At(i, j))
		}
		rhs.SetVec(i, -q.g[i])
	}
	for r := 0; r < me; r++ {
		for j := 0; j < n; j++ {
			v := q.aeq.At(r, j)
			kkt.Set(n+r, j, v)
			kkt.Set(j, n+r, v)
		}
		rhs.SetVec(n+r, q.beq[r])
	}
	var sol mat.VecDense
	if err := solveKKT(kkt, rhs, n, &sol); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		w[i] = sol.AtVec(i)
	}
	for r := 0; r < me; r++ {
		y[r] = sol.AtVec(n + r)
	}
	return nil
}

// solveKKT factorizes the saddle-point system [[M, Aᵀ], [A, 0]] with n
// primal rows. Minimum-time problems leave the Hessian at the bare
// Levenberg shift, which drives the plain factorization singular, so
// failed solves are retried with +reg on the primal diagonal and -reg
// on the dual diagonal (quasi-definite), reg scaled to the matrix. A
// finite reported condition number still comes with a computed
// solution; it is kept as a fallback when no regularized solve is clean.
func solveKKT(kkt *mat.Dense, rhs *mat.VecDense, n int, sol *mat.VecDense) error {
	err := sol.SolveVec(kkt, rhs)
	if err == nil {
		return nil
	}
	if _, ok := err.(mat.Condition); !ok {
		return ErrSingularKKT
	}

	dim, _ := kkt.Dims()
	var fallback *mat.VecDense
	if !hasInfCondition(err) {
		fallback = mat.NewVecDense(dim, nil)
		fallback.CopyVec(sol)
	}

	scale := 1.0
	for i := 0; i < dim; i++ {
		for j := 0; j < dim; j++ {
			if a := math.Abs(kkt.At(i, j)); a > scale {
				scale = a
			}
		}
	}
	reg := 1e-10 * scale
	for k := 0; k < 6; k++ {
		for i := 0; i < n; i++ {
			kkt.Set(i, i, kkt.At(i, i)+reg)
		}
		for i := n; i < dim; i++ {
			kkt.Set(i, i, kkt.At(i, i)-reg)
		}
		err = sol.SolveVec(kkt, rhs)
		if err == nil {
			return nil
		}
		if _, ok := err.(mat.Condition); !ok {
			break
		}
		if !hasInfCondition(err) {
			return nil
		}
		reg *= 100
	}
	if fallback != nil {
		sol.CopyVec(fallback)
		return nil
	}
	return ErrSingularKKT
}

func hasInfCondition(err error) bool {
	cond, ok := err.(mat.Condition)
	return ok && math.IsInf(float64(cond), 1)
}

// boundaryStep returns the fraction-to-boundary step keeping v + α·dv > 0.
func boundaryStep(v, dv []float64) float64 {
	a := 1.0
	for i := range v {
		if dv[i] < 0 {
			a = math.Min(a, -ipBoundary*v[i]/dv[i])
		}
	}
	return a
}

func dot(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func infNorm(v []float64) float64 {
	m := 0.0
	for _, x := range v {
		if a := math.Abs(x); a > m {
			m = a
		}
	}
	return m
}

func axpy(a float64, x, y []float64) {
	for i := range y {
		y[i] += a * x[i]
	}
}
