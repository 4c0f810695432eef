package ocp

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Dynamics evaluates the state derivative dx/dt = f(x, u, p, t) and its
// Jacobians with respect to state, control and parameters.
//
// Jacobian destinations are preallocated dense matrices of shape
// nx×nx, nx×nu and nx×np. Implementations must not retain the inputs.
type Dynamics interface {
	StateDim() int
	ControlDim() int
	ParamDim() int
	Eval(x, u, p Vector, t float64, dx Vector) error
	Jacobians(x, u, p Vector, t float64, jx, ju, jp *mat.Dense) error
}

// ExprDynamics backs the dynamics with one expression per state component.
// Jacobians come from the chain-rule partials of the trees.
type ExprDynamics struct {
	RHS        []Expr
	NX, NU, NP int
}

func (d *ExprDynamics) StateDim() int   { return d.NX }
func (d *ExprDynamics) ControlDim() int { return d.NU }
func (d *ExprDynamics) ParamDim() int   { return d.NP }

func (d *ExprDynamics) Eval(x, u, p Vector, t float64, dx Vector) error {
	if len(dx) != len(d.RHS) {
		return fmt.Errorf("ocp: dx has length %d, want %d", len(dx), len(d.RHS))
	}
	env := Env{X: x, U: u, P: p, T: t}
	for i, e := range d.RHS {
		dx[i] = e.Eval(&env)
	}
	return nil
}

func (d *ExprDynamics) Jacobians(x, u, p Vector, t float64, jx, ju, jp *mat.Dense) error {
	env := Env{X: x, U: u, P: p, T: t}
	for i, e := range d.RHS {
		for j := 0; j < d.NX; j++ {
			jx.Set(i, j, e.Partial(&env, KindState, j))
		}
		for j := 0; j < d.NU; j++ {
			ju.Set(i, j, e.Partial(&env, KindControl, j))
		}
		for j := 0; j < d.NP; j++ {
			jp.Set(i, j, e.Partial(&env, KindParameter, j))
		}
	}
	return nil
}

// FuncDynamics backs the dynamics with a plain Go closure. When Jac is nil
// the Jacobians are approximated by central differences.
type FuncDynamics struct {
	NX, NU, NP int
	F          func(x, u, p Vector, t float64, dx Vector)
	Jac        func(x, u, p Vector, t float64, jx, ju, jp *mat.Dense)

	// FDStep is the central-difference step; zero selects a default.
	FDStep float64
}

const defaultFDStep = 1e-7

// NewJacobian allocates an r×c dense matrix, or returns nil when either
// dimension is zero. Dynamics implementations skip nil destinations.
func NewJacobian(r, c int) *mat.Dense {
	if r == 0 || c == 0 {
		return nil
	}
	return mat.NewDense(r, c, nil)
}

func (d *FuncDynamics) StateDim() int   { return d.NX }
func (d *FuncDynamics) ControlDim() int { return d.NU }
func (d *FuncDynamics) ParamDim() int   { return d.NP }

func (d *FuncDynamics) Eval(x, u, p Vector, t float64, dx Vector) error {
	if len(dx) != d.NX {
		return fmt.Errorf("ocp: dx has length %d, want %d", len(dx), d.NX)
	}
	d.F(x, u, p, t, dx)
	return nil
}

func (d *FuncDynamics) Jacobians(x, u, p Vector, t float64, jx, ju, jp *mat.Dense) error {
	if d.Jac != nil {
		d.Jac(x, u, p, t, jx, ju, jp)
		return nil
	}
	h := d.FDStep
	if h == 0 {
		h = defaultFDStep
	}
	fp := make(Vector, d.NX)
	fm := make(Vector, d.NX)

	diff := func(v Vector, j int, dst *mat.Dense) {
		orig := v[j]
		v[j] = orig + h
		d.F(x, u, p, t, fp)
		v[j] = orig - h
		d.F(x, u, p, t, fm)
		v[j] = orig
		for i := 0; i < d.NX; i++ {
			dst.Set(i, j, (fp[i]-fm[i])/(2*h))
		}
	}

	for j := 0; j < d.NX; j++ {
		diff(x, j, jx)
	}
	for j := 0; j < d.NU; j++ {
		diff(u, j, ju)
	}
	for j := 0; j < d.NP; j++ {
		diff(p, j, jp)
	}
	return nil
}
