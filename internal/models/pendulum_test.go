package models

import (
	"errors"
	"math"
	"testing"

	"github.com/RobotXiaoFeng/acado/internal/ocp"
)

func TestAllModelsValidate(t *testing.T) {
	for _, name := range Names() {
		p, err := ByName(name)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if err := p.Validate(); err != nil {
			t.Errorf("%s: Validate: %v", name, err)
		}
	}
}

func TestByNameUnknown(t *testing.T) {
	if _, err := ByName("orbital_tether"); !errors.Is(err, ErrUnknownModel) {
		t.Errorf("got %v, want ErrUnknownModel", err)
	}
}

func TestPendulumHangingEquilibrium(t *testing.T) {
	p := NewPendulum().Problem()
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	dx := make(ocp.Vector, 2)
	if err := p.Dynamics().Eval(ocp.Vector{0, 0}, ocp.Vector{0}, nil, 0, dx); err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if dx[0] != 0 || dx[1] != 0 {
		t.Errorf("derivative at rest = %v, want zero", dx)
	}
}

func TestPendulumGravityTorque(t *testing.T) {
	pm := NewPendulum()
	p := pm.Problem()
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	// horizontal arm, no input: angular acceleration is -g/l
	dx := make(ocp.Vector, 2)
	if err := p.Dynamics().Eval(ocp.Vector{math.Pi / 2, 0}, ocp.Vector{0}, nil, 0, dx); err != nil {
		t.Fatalf("Eval: %v", err)
	}
	want := -pm.Gravity / pm.Length
	if math.Abs(dx[1]-want) > 1e-12 {
		t.Errorf("alpha = %v, want %v", dx[1], want)
	}
}

func TestRocketDynamicsAtLaunch(t *testing.T) {
	r := NewRocket()
	p := r.Problem()
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	dx := make(ocp.Vector, 3)
	x := ocp.Vector{0, 0, 1}
	u := ocp.Vector{1.0}
	if err := p.Dynamics().Eval(x, u, ocp.Vector{10}, 0, dx); err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if dx[0] != 0 {
		t.Errorf("ds = %v, want 0 at rest", dx[0])
	}
	if math.Abs(dx[1]-1.0) > 1e-12 {
		t.Errorf("dv = %v, want thrust/mass = 1", dx[1])
	}
	if math.Abs(dx[2]+r.FuelRate) > 1e-12 {
		t.Errorf("dm = %v, want %v", dx[2], -r.FuelRate)
	}
}

func TestRocketVelocityBound(t *testing.T) {
	p := NewRocket().Problem()
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	lo, hi := p.GroupBounds(ocp.KindState)
	if lo[1] != -0.1 || hi[1] != 1.7 {
		t.Errorf("speed bounds (%v, %v), want (-0.1, 1.7)", lo[1], hi[1])
	}
	if !math.IsInf(lo[0], -1) || !math.IsInf(hi[0], 1) {
		t.Errorf("position should be unbounded")
	}
}
