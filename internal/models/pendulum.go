package models

import (
	"math"

	"github.com/RobotXiaoFeng/acado/internal/ocp"
)

// Pendulum is the torque-limited swing-up: drive the pendulum from the
// hanging equilibrium to upright and hold it there.
type Pendulum struct {
	Mass    float64
	Length  float64
	Damping float64
	Gravity float64

	Horizon   float64
	MaxTorque float64
}

func NewPendulum() *Pendulum {
	return &Pendulum{
		Mass:      1.0,
		Length:    1.0,
		Damping:   0.1,
		Gravity:   9.81,
		Horizon:   3.0,
		MaxTorque: 5.0,
	}
}

func (pm *Pendulum) Problem() *ocp.Problem {
	p := ocp.NewProblem()
	x := p.AddState("x", 2) // angle, rate
	u := p.AddControl("u", 1)

	theta, omega := x.At(0), x.At(1)
	inertia := pm.Mass * pm.Length * pm.Length
	alpha := ocp.Scale(1/inertia,
		ocp.Sub(ocp.Sub(u.At(0), ocp.Scale(pm.Damping, omega)),
			ocp.Scale(pm.Mass*pm.Gravity*pm.Length, ocp.Sin(theta))))

	p.SetDynamics(&ocp.ExprDynamics{
		NX: 2, NU: 1,
		RHS: []ocp.Expr{omega, alpha},
	})
	p.SetHorizon(pm.Horizon)
	p.SetQuadraticCost(
		ocp.Weights(ocp.DiagWeights(10, 1), math.Pi, 0),
		ocp.Weights(ocp.DiagWeights(0.1)),
		ocp.Weights(ocp.DiagWeights(50, 10), math.Pi, 0),
	)
	p.Bound(u, -pm.MaxTorque, pm.MaxTorque)

	p.Constrain(ocp.RoleInitial, theta, 0, 0)
	p.Constrain(ocp.RoleInitial, omega, 0, 0)
	return p
}
