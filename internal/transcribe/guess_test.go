package transcribe

import (
	"math"
	"testing"

	"github.com/RobotXiaoFeng/acado/internal/ocp"
)

func rocketLike(t *testing.T) (*ocp.Problem, ocp.Ref, ocp.Ref, ocp.Ref) {
	t.Helper()
	p := ocp.NewProblem()
	x := p.AddState("x", 2) // position, velocity
	u := p.AddControl("u", 1)
	T := p.AddParameter("T", 1)

	p.SetDynamics(&ocp.FuncDynamics{
		NX: 2, NU: 1, NP: 1,
		F: func(x, u, pp ocp.Vector, tm float64, dx ocp.Vector) {
			dx[0] = x[1]
			dx[1] = u[0]
		},
	})
	p.SetFreeHorizon(T)
	p.Bound(T, 5, 15)
	p.Bound(u, -1, 1)
	p.SetParamCost(ocp.Vector{1})

	p.Constrain(ocp.RoleInitial, x.At(0), 0, 0)
	p.Constrain(ocp.RoleInitial, x.At(1), 0, 0)
	p.Constrain(ocp.RoleTerminal, x.At(0), 10, 10)

	if err := p.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return p, x, u, T
}

func TestLayoutDimensions(t *testing.T) {
	p, _, _, _ := rocketLike(t)
	l := NewLayout(p, 20)

	want := 21*2 + 20*1 + 1
	if l.Dim() != want {
		t.Errorf("Dim = %d, want %d", l.Dim(), want)
	}
	if l.SOff(0) != 0 || l.SOff(20) != 40 {
		t.Error("state offsets wrong")
	}
	if l.UOff(0) != 42 || l.POff() != 62 {
		t.Error("control/parameter offsets wrong")
	}
}

func TestInitialIterateExactDimension(t *testing.T) {
	p, _, _, _ := rocketLike(t)
	l := NewLayout(p, 20)
	z := InitialIterate(p, l)
	if len(z) != l.Dim() {
		t.Fatalf("iterate has %d entries, want %d", len(z), l.Dim())
	}
	if !z.IsFinite() {
		t.Fatal("iterate contains non-finite entries")
	}
}

func TestInitialIterateInterpolatesPinnedStates(t *testing.T) {
	p, _, _, _ := rocketLike(t)
	l := NewLayout(p, 10)
	z := InitialIterate(p, l)

	// position pinned 0 → 10: expect linear ramp
	for i := 0; i <= 10; i++ {
		want := float64(i)
		if math.Abs(l.State(z, i)[0]-want) > 1e-12 {
			t.Errorf("s_%d[0] = %v, want %v", i, l.State(z, i)[0], want)
		}
	}
	// velocity pinned only at t=0: held constant
	for i := 0; i <= 10; i++ {
		if l.State(z, i)[1] != 0 {
			t.Errorf("s_%d[1] = %v, want 0", i, l.State(z, i)[1])
		}
	}
}

func TestInitialIterateDefaults(t *testing.T) {
	p, _, _, _ := rocketLike(t)
	l := NewLayout(p, 5)
	z := InitialIterate(p, l)

	// bounded control defaults to midpoint of [-1, 1]
	for i := 0; i < 5; i++ {
		if l.Control(z, i)[0] != 0 {
			t.Errorf("u_%d = %v, want 0", i, l.Control(z, i)[0])
		}
	}
	// horizon defaults to midpoint of [5, 15]
	if l.Params(z)[0] != 10 {
		t.Errorf("T guess = %v, want 10", l.Params(z)[0])
	}
}

func TestInitialIterateUsesSuppliedGuess(t *testing.T) {
	p := ocp.NewProblem()
	x := p.AddState("x", 1)
	p.SetDynamics(&ocp.FuncDynamics{
		NX: 1,
		F:  func(x, u, pp ocp.Vector, tm float64, dx ocp.Vector) { dx[0] = -x[0] },
	})
	p.SetHorizon(1)
	p.SetGuess(x, 3.5)
	p.SetMayerTerm(ocp.Square(x.At(0)))
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	l := NewLayout(p, 4)
	z := InitialIterate(p, l)
	for i := 0; i <= 4; i++ {
		if l.State(z, i)[0] != 3.5 {
			t.Errorf("s_%d = %v, want 3.5", i, l.State(z, i)[0])
		}
	}
}

func TestNodeTimes(t *testing.T) {
	p, _, _, _ := rocketLike(t)
	l := NewLayout(p, 4)
	times := NodeTimes(p, l, ocp.Vector{8})
	want := []float64{0, 2, 4, 6, 8}
	for i := range want {
		if math.Abs(times[i]-want[i]) > 1e-12 {
			t.Errorf("times[%d] = %v, want %v", i, times[i], want[i])
		}
	}
}
