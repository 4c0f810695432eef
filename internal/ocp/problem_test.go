package ocp

import (
	"errors"
	"math"
	"testing"
)

func buildValidProblem() (*Problem, Ref, Ref) {
	p := NewProblem()
	x := p.AddState("x", 2)
	u := p.AddControl("u", 1)
	p.SetDynamics(&ExprDynamics{
		RHS: []Expr{x.At(1), u.At(0)},
		NX:  2, NU: 1,
	})
	p.SetQuadraticCost(nil, Weights(DiagWeights(1)), nil)
	p.SetHorizon(1.0)
	return p, x, u
}

func TestValidateAcceptsWellFormedProblem(t *testing.T) {
	p, _, _ := buildValidProblem()
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !p.Validated() {
		t.Error("problem not marked validated")
	}
}

func TestValidateMissingDynamics(t *testing.T) {
	p := NewProblem()
	p.AddState("x", 1)
	p.SetHorizon(1.0)

	err := p.Validate()
	if !errors.Is(err, ErrMissingDynamics) {
		t.Errorf("got %v, want ErrMissingDynamics", err)
	}
}

func TestValidateDimensionMismatch(t *testing.T) {
	p := NewProblem()
	x := p.AddState("x", 2)
	p.SetDynamics(&ExprDynamics{RHS: []Expr{x.At(0)}, NX: 1})
	p.SetHorizon(1.0)
	p.SetMayerTerm(Square(x.At(0)))

	err := p.Validate()
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("got %v, want ErrDimensionMismatch", err)
	}
}

func TestValidateInfeasibleBoxBound(t *testing.T) {
	p, x, _ := buildValidProblem()
	p.BoundAt(x, 0, 2.0, -2.0) // lower > upper

	err := p.Validate()
	if !errors.Is(err, ErrInfeasibleBound) {
		t.Errorf("got %v, want ErrInfeasibleBound", err)
	}
	var de *DefinitionError
	if !errors.As(err, &de) {
		t.Error("error is not a *DefinitionError")
	}
}

func TestValidateUnknownVariableInConstraint(t *testing.T) {
	p, _, _ := buildValidProblem()
	p.Constrain(RolePath, varNode{KindState, 7}, 0, 1)

	err := p.Validate()
	if !errors.Is(err, ErrUnknownVariable) {
		t.Errorf("got %v, want ErrUnknownVariable", err)
	}
}

func TestValidateFreeHorizonNeedsBounds(t *testing.T) {
	p, _, _ := buildValidProblem()
	// rebuild with a free horizon lacking bounds
	q := NewProblem()
	x := q.AddState("x", 1)
	T := q.AddParameter("T", 1)
	q.SetDynamics(&ExprDynamics{RHS: []Expr{x.At(0)}, NX: 1, NP: 1})
	q.SetFreeHorizon(T)
	q.SetParamCost(Vector{1})
	_ = p

	err := q.Validate()
	if !errors.Is(err, ErrInfeasibleBound) {
		t.Errorf("got %v, want ErrInfeasibleBound", err)
	}
}

func TestFrozenProblemPanicsOnMutation(t *testing.T) {
	p, _, _ := buildValidProblem()
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	defer func() {
		if recover() == nil {
			t.Error("expected panic when mutating a validated problem")
		}
	}()
	p.AddState("late", 1)
}

func TestGroupBounds(t *testing.T) {
	p, x, u := buildValidProblem()
	p.BoundAt(x, 1, -0.5, 0.5)
	p.Bound(u, -1, 1)
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	lo, hi := p.GroupBounds(KindState)
	if !math.IsInf(lo[0], -1) || !math.IsInf(hi[0], 1) {
		t.Error("unbounded state component should have infinite bounds")
	}
	if lo[1] != -0.5 || hi[1] != 0.5 {
		t.Errorf("state bounds = [%g, %g], want [-0.5, 0.5]", lo[1], hi[1])
	}

	lo, hi = p.GroupBounds(KindControl)
	if lo[0] != -1 || hi[0] != 1 {
		t.Errorf("control bounds = [%g, %g], want [-1, 1]", lo[0], hi[0])
	}
}

func TestFuncDynamicsFiniteDifferenceJacobians(t *testing.T) {
	d := &FuncDynamics{
		NX: 2, NU: 1,
		F: func(x, u, p Vector, tm float64, dx Vector) {
			dx[0] = x[1] * x[1]
			dx[1] = math.Sin(x[0]) + u[0]
		},
	}
	ed := &ExprDynamics{
		RHS: []Expr{
			Square(varNode{KindState, 1}),
			Add(Sin(varNode{KindState, 0}), varNode{KindControl, 0}),
		},
		NX: 2, NU: 1,
	}

	x := Vector{0.3, -0.8}
	u := Vector{0.5}

	jxN, juN := NewJacobian(2, 2), NewJacobian(2, 1)
	jxA, juA := NewJacobian(2, 2), NewJacobian(2, 1)

	if err := d.Jacobians(x, u, nil, 0, jxN, juN, nil); err != nil {
		t.Fatalf("finite-difference Jacobians: %v", err)
	}
	if err := ed.Jacobians(x, u, nil, 0, jxA, juA, nil); err != nil {
		t.Fatalf("expression Jacobians: %v", err)
	}

	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if diff := math.Abs(jxN.At(i, j) - jxA.At(i, j)); diff > 1e-6 {
				t.Errorf("Jx[%d,%d] differs by %v", i, j, diff)
			}
		}
		if diff := math.Abs(juN.At(i, 0) - juA.At(i, 0)); diff > 1e-6 {
			t.Errorf("Ju[%d,0] differs by %v", i, diff)
		}
	}
}
