package qp

import (
	"errors"
	"math"
	"testing"

	"github.com/RobotXiaoFeng/acado/internal/nlp"
	"github.com/RobotXiaoFeng/acado/internal/ocp"
	"github.com/RobotXiaoFeng/acado/internal/transcribe"
	"gonum.org/v1/gonum/mat"
)

func TestDenseUnconstrained(t *testing.T) {
	q := &denseQP{
		h: mat.NewDense(2, 2, []float64{2, 0, 0, 4}),
		g: []float64{-2, -8},
	}
	sol, err := solveDense(q)
	if err != nil {
		t.Fatalf("solveDense: %v", err)
	}
	// minimizer of w² - 2w₀ + 2w₁² - 8w₁ : w = (1, 2)
	if math.Abs(sol.w[0]-1) > 1e-8 || math.Abs(sol.w[1]-2) > 1e-8 {
		t.Errorf("w = %v, want (1, 2)", sol.w)
	}
}

func TestDenseEqualityConstrained(t *testing.T) {
	// min ½(w₀² + w₁²) s.t. w₀ + w₁ = 2 ⇒ w = (1, 1), y = -1
	q := &denseQP{
		h:   mat.NewDense(2, 2, []float64{1, 0, 0, 1}),
		g:   []float64{0, 0},
		aeq: mat.NewDense(1, 2, []float64{1, 1}),
		beq: []float64{2},
	}
	sol, err := solveDense(q)
	if err != nil {
		t.Fatalf("solveDense: %v", err)
	}
	if math.Abs(sol.w[0]-1) > 1e-8 || math.Abs(sol.w[1]-1) > 1e-8 {
		t.Errorf("w = %v, want (1, 1)", sol.w)
	}
	if math.Abs(sol.y[0]+1) > 1e-8 {
		t.Errorf("y = %v, want -1", sol.y[0])
	}
}

func TestDenseActiveInequality(t *testing.T) {
	// min ½(w-3)² s.t. w ≤ 1, i.e. -w ≥ -1 ⇒ w = 1, λ = 2
	q := &denseQP{
		h:   mat.NewDense(1, 1, []float64{1}),
		g:   []float64{-3},
		ain: mat.NewDense(1, 1, []float64{-1}),
		bin: []float64{-1},
	}
	sol, err := solveDense(q)
	if err != nil {
		t.Fatalf("solveDense: %v", err)
	}
	if math.Abs(sol.w[0]-1) > 1e-6 {
		t.Errorf("w = %v, want 1", sol.w[0])
	}
	if math.Abs(sol.lam[0]-2) > 1e-5 {
		t.Errorf("lambda = %v, want 2", sol.lam[0])
	}
}

func TestDenseInactiveInequality(t *testing.T) {
	// min ½(w-3)² s.t. w ≥ 0 ⇒ unconstrained optimum w = 3, λ ≈ 0
	q := &denseQP{
		h:   mat.NewDense(1, 1, []float64{1}),
		g:   []float64{-3},
		ain: mat.NewDense(1, 1, []float64{1}),
		bin: []float64{0},
	}
	sol, err := solveDense(q)
	if err != nil {
		t.Fatalf("solveDense: %v", err)
	}
	if math.Abs(sol.w[0]-3) > 1e-6 {
		t.Errorf("w = %v, want 3", sol.w[0])
	}
	if sol.lam[0] > 1e-5 {
		t.Errorf("lambda = %v, want ~0", sol.lam[0])
	}
}

func TestDenseInfeasible(t *testing.T) {
	// w ≥ 1 and -w ≥ 0 cannot hold together.
	q := &denseQP{
		h:   mat.NewDense(1, 1, []float64{1}),
		g:   []float64{0},
		ain: mat.NewDense(2, 1, []float64{1, -1}),
		bin: []float64{1, 0},
	}
	_, err := solveDense(q)
	if !errors.Is(err, ErrInfeasible) {
		t.Errorf("got %v, want ErrInfeasible", err)
	}
}

// structured builds a small double-integrator-like subproblem by hand.
func structured() *nlp.QPData {
	l := transcribe.Layout{NX: 1, NU: 1, NP: 0, N: 2}
	inf := math.Inf(1)
	data := &nlp.QPData{
		Layout: l,
		A:      []*mat.Dense{mat.NewDense(1, 1, []float64{1}), mat.NewDense(1, 1, []float64{1})},
		B:      []*mat.Dense{mat.NewDense(1, 1, []float64{0.5}), mat.NewDense(1, 1, []float64{0.5})},
		C:      []*mat.Dense{nil, nil},
		Res:    []ocp.Vector{{0.3}, {-0.1}},
		HS: []*mat.SymDense{
			newSym(1, 1e-6), newSym(1, 1e-6), newSym(1, 1e-6),
		},
		HU:     []*mat.SymDense{newSym(1, 1), newSym(1, 1)},
		G:      make(ocp.Vector, l.Dim()),
		DLower: ocp.Vector{-inf, -inf, -inf, -1, -1},
		DUpper: ocp.Vector{inf, inf, inf, 1, 1},
		Rows: []nlp.ConRow{
			{Node: 0, Role: ocp.RoleInitial, Jx: ocp.Vector{1}, Value: 0.2, Lower: 0, Upper: 0},
			{Node: 2, Role: ocp.RoleTerminal, Jx: ocp.Vector{1}, Value: -0.4, Lower: 0, Upper: 0},
		},
	}
	return data
}

func newSym(n int, diag float64) *mat.SymDense {
	s := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		s.SetSym(i, i, diag)
	}
	return s
}

func TestCondensedSatisfiesContinuityExactly(t *testing.T) {
	data := structured()
	sol, err := Solve(data, KindCondensing)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	l := data.Layout
	for i := 0; i < l.N; i++ {
		res := data.Res[i][0] +
			data.A[i].At(0, 0)*sol.Step[l.SOff(i)] +
			data.B[i].At(0, 0)*sol.Step[l.UOff(i)] -
			sol.Step[l.SOff(i+1)]
		if math.Abs(res) > 1e-9 {
			t.Errorf("continuity %d violated by %v", i, res)
		}
	}
}

func TestCondensedMatchesFull(t *testing.T) {
	data := structured()
	a, err := Solve(data, KindCondensing)
	if err != nil {
		t.Fatalf("condensing: %v", err)
	}
	b, err := Solve(structured(), KindFull)
	if err != nil {
		t.Fatalf("full: %v", err)
	}
	for k := range a.Step {
		if math.Abs(a.Step[k]-b.Step[k]) > 1e-6 {
			t.Errorf("step[%d]: condensed %v vs full %v", k, a.Step[k], b.Step[k])
		}
	}
	for i := range a.Cont {
		if math.Abs(a.Cont[i][0]-b.Cont[i][0]) > 1e-5 {
			t.Errorf("continuity multiplier %d: condensed %v vs full %v", i, a.Cont[i][0], b.Cont[i][0])
		}
	}
}

func TestSolveInfeasibleLinearization(t *testing.T) {
	data := structured()
	// pin the first control step into an empty interval
	data.DLower[3] = 0.5
	data.DUpper[3] = 0.6
	data.Rows = append(data.Rows, nlp.ConRow{
		Node: 0, Role: ocp.RolePath, Jx: ocp.Vector{0}, Ju: ocp.Vector{1},
		Value: 0, Lower: -2, Upper: -1.5,
	})
	_, err := Solve(data, KindCondensing)
	if !errors.Is(err, ErrInfeasible) {
		t.Errorf("got %v, want ErrInfeasible", err)
	}
}

func TestSolveKKTRegularizesSingularSystem(t *testing.T) {
	// H = 0 with a rank-one equality block: the plain factorization is
	// exactly singular, the regularized one picks the centered solution.
	kkt := mat.NewDense(3, 3, []float64{
		0, 0, 1,
		0, 0, 1,
		1, 1, 0,
	})
	rhs := mat.NewVecDense(3, []float64{0, 0, 1})
	var sol mat.VecDense
	if err := solveKKT(kkt, rhs, 2, &sol); err != nil {
		t.Fatalf("solveKKT: %v", err)
	}
	if sum := sol.AtVec(0) + sol.AtVec(1); math.Abs(sum-1) > 1e-6 {
		t.Errorf("w0 + w1 = %v, want 1", sum)
	}
}

func TestSolveMinimumTimeStyleSubproblem(t *testing.T) {
	// Pure minimum-time subproblems carry only the Levenberg shift as
	// curvature; the solve must still succeed for both methods.
	build := func() *nlp.QPData {
		data := structured()
		for i := range data.HS {
			data.HS[i] = newSym(1, 1e-8)
		}
		for i := range data.HU {
			data.HU[i] = newSym(1, 1e-8)
		}
		l := data.Layout
		for i := 0; i < l.N; i++ {
			data.G[l.UOff(i)] = 1
		}
		return data
	}
	for _, kind := range []Kind{KindCondensing, KindFull} {
		data := build()
		sol, err := Solve(data, kind)
		if err != nil {
			t.Fatalf("%s: %v", kind, err)
		}
		l := data.Layout
		// the equality rows fix δu0 + δu1 = 0.8 regardless of the split
		if sum := sol.Step[l.UOff(0)] + sol.Step[l.UOff(1)]; math.Abs(sum-0.8) > 1e-5 {
			t.Errorf("%s: control steps sum to %v, want 0.8", kind, sum)
		}
		for k := range sol.Step {
			if sol.Step[k] < data.DLower[k]-1e-8 || sol.Step[k] > data.DUpper[k]+1e-8 {
				t.Errorf("%s: step[%d] = %v outside [%v, %v]", kind, k, sol.Step[k], data.DLower[k], data.DUpper[k])
			}
		}
	}
}
