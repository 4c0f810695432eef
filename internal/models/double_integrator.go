package models

import "github.com/RobotXiaoFeng/acado/internal/ocp"

// DoubleIntegrator is the minimum-energy rest-to-rest transfer: move a
// unit mass one meter and stop, spending as little ∫u² as possible.
type DoubleIntegrator struct {
	Horizon  float64
	Distance float64
	Accel    float64 // control bound, 0 leaves it unbounded
}

func NewDoubleIntegrator() *DoubleIntegrator {
	return &DoubleIntegrator{Horizon: 1.0, Distance: 1.0}
}

func (d *DoubleIntegrator) Problem() *ocp.Problem {
	p := ocp.NewProblem()
	x := p.AddState("x", 2) // position, velocity
	u := p.AddControl("u", 1)

	p.SetDynamics(&ocp.ExprDynamics{
		NX: 2, NU: 1,
		RHS: []ocp.Expr{x.At(1), u.At(0)},
	})
	p.SetHorizon(d.Horizon)
	p.SetLagrangeTerm(ocp.Square(u.At(0)))
	if d.Accel > 0 {
		p.Bound(u, -d.Accel, d.Accel)
	}

	p.Constrain(ocp.RoleInitial, x.At(0), 0, 0)
	p.Constrain(ocp.RoleInitial, x.At(1), 0, 0)
	p.Constrain(ocp.RoleTerminal, x.At(0), d.Distance, d.Distance)
	p.Constrain(ocp.RoleTerminal, x.At(1), 0, 0)
	return p
}
