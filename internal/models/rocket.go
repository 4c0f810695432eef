package models

import "github.com/RobotXiaoFeng/acado/internal/ocp"

// Rocket is the minimum-time ascent benchmark: a point mass accelerating
// against quadratic drag while burning propellant, free final time.
type Rocket struct {
	Drag      float64
	FuelRate  float64
	Target    float64
	MinSpeed  float64
	MaxSpeed  float64
	MaxThrust float64
	MinTime   float64
	MaxTime   float64
}

func NewRocket() *Rocket {
	return &Rocket{
		Drag:      0.2,
		FuelRate:  0.01,
		Target:    10.0,
		MinSpeed:  -0.1,
		MaxSpeed:  1.7,
		MaxThrust: 1.1,
		MinTime:   5.0,
		MaxTime:   15.0,
	}
}

func (r *Rocket) Problem() *ocp.Problem {
	p := ocp.NewProblem()
	x := p.AddState("x", 3) // position, speed, mass
	u := p.AddControl("u", 1)
	T := p.AddParameter("T", 1)

	v, m := x.At(1), x.At(2)
	thrust := u.At(0)
	p.SetDynamics(&ocp.ExprDynamics{
		NX: 3, NU: 1, NP: 1,
		RHS: []ocp.Expr{
			v,
			ocp.Div(ocp.Sub(thrust, ocp.Scale(r.Drag, ocp.Square(v))), m),
			ocp.Scale(-r.FuelRate, ocp.Square(thrust)),
		},
	})

	p.SetFreeHorizon(T)
	p.SetParamCost(ocp.Vector{1}) // minimize flight time

	p.Bound(T, r.MinTime, r.MaxTime)
	p.Bound(u, -r.MaxThrust, r.MaxThrust)
	p.BoundAt(x, 1, r.MinSpeed, r.MaxSpeed)

	p.Constrain(ocp.RoleInitial, x.At(0), 0, 0)
	p.Constrain(ocp.RoleInitial, v, 0, 0)
	p.Constrain(ocp.RoleInitial, m, 1, 1)
	p.Constrain(ocp.RoleTerminal, x.At(0), r.Target, r.Target)
	p.Constrain(ocp.RoleTerminal, v, 0, 0)
	return p
}
