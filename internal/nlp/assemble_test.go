package nlp

import (
	"math"
	"testing"

	"github.com/RobotXiaoFeng/acado/internal/integrate"
	"github.com/RobotXiaoFeng/acado/internal/ocp"
	"github.com/RobotXiaoFeng/acado/internal/transcribe"
)

// doubleIntegrator is the assembly fixture: two states, one control, a
// fixed two-second horizon and a full quadratic cost.
func doubleIntegrator(t *testing.T) (*ocp.Problem, ocp.Ref, ocp.Ref) {
	t.Helper()
	p := ocp.NewProblem()
	x := p.AddState("x", 2)
	u := p.AddControl("u", 1)

	p.SetDynamics(&ocp.FuncDynamics{
		NX: 2, NU: 1,
		F: func(x, u, pp ocp.Vector, tm float64, dx ocp.Vector) {
			dx[0] = x[1]
			dx[1] = u[0]
		},
	})
	p.SetHorizon(2)
	p.Bound(u, -1, 1)
	p.SetQuadraticCost(
		ocp.Weights(ocp.DiagWeights(1, 1)),
		ocp.Weights(ocp.DiagWeights(0.5)),
		nil,
	)
	p.Constrain(ocp.RoleInitial, x.At(0), 1, 1)
	p.Constrain(ocp.RoleInitial, x.At(1), 0, 0)
	p.Constrain(ocp.RolePath, x.At(1), -2, 2)

	if err := p.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return p, x, u
}

func sensitivities(t *testing.T, p *ocp.Problem, l transcribe.Layout, z ocp.Vector) []*integrate.Sensitivity {
	t.Helper()
	it := integrate.New(p.Dynamics(), p.Horizon(), l.N, integrate.DefaultConfig())
	out := make([]*integrate.Sensitivity, l.N)
	for i := 0; i < l.N; i++ {
		s, err := it.Interval(i, l.State(z, i), l.Control(z, i), l.Params(z))
		if err != nil {
			t.Fatalf("interval %d: %v", i, err)
		}
		out[i] = s
	}
	return out
}

func TestContinuityResidualZeroWhenConsistent(t *testing.T) {
	p, _, _ := doubleIntegrator(t)
	l := transcribe.NewLayout(p, 4)
	z := transcribe.InitialIterate(p, l)
	for i := 0; i < l.N; i++ {
		l.Control(z, i)[0] = 0.3
	}

	// shoot forward so every node matches its interval's endpoint
	it := integrate.New(p.Dynamics(), p.Horizon(), l.N, integrate.DefaultConfig())
	for i := 0; i < l.N; i++ {
		xe, err := it.Propagate(i, l.State(z, i), l.Control(z, i), l.Params(z))
		if err != nil {
			t.Fatalf("propagate %d: %v", i, err)
		}
		copy(l.State(z, i+1), xe)
	}

	qp := NewAssembler(p, l, 0).Build(z, sensitivities(t, p, l, z))
	for i, r := range qp.Res {
		for k, v := range r {
			if math.Abs(v) > 1e-10 {
				t.Errorf("residual[%d][%d] = %v, want 0", i, k, v)
			}
		}
	}
	eq, _ := qp.TotalViolation()
	// only the initial rows can contribute now
	if eq > 1.1 {
		t.Errorf("equality violation %v unexpectedly large", eq)
	}
}

func TestAssembledRowsAndBounds(t *testing.T) {
	p, _, _ := doubleIntegrator(t)
	l := transcribe.NewLayout(p, 4)
	z := transcribe.InitialIterate(p, l)
	for i := 0; i < l.N; i++ {
		l.Control(z, i)[0] = 0.25
	}

	qp := NewAssembler(p, l, 0).Build(z, sensitivities(t, p, l, z))

	// 2 initial rows + path row at every node
	if want := 2 + (l.N + 1); len(qp.Rows) != want {
		t.Fatalf("%d rows, want %d", len(qp.Rows), want)
	}
	var path int
	for _, row := range qp.Rows {
		if row.Role == ocp.RolePath {
			path++
			if row.Jx[1] != 1 || row.Jx[0] != 0 {
				t.Errorf("path row Jx = %v, want (0, 1)", row.Jx)
			}
		}
	}
	if path != l.N+1 {
		t.Errorf("%d path rows, want %d", path, l.N+1)
	}

	// control bounds shift by the iterate value
	off := l.UOff(0)
	if math.Abs(qp.DLower[off]+1.25) > 1e-12 || math.Abs(qp.DUpper[off]-0.75) > 1e-12 {
		t.Errorf("delta bounds (%v, %v), want (-1.25, 0.75)", qp.DLower[off], qp.DUpper[off])
	}
	// unbounded states stay infinite
	if !math.IsInf(qp.DLower[l.SOff(1)], -1) || !math.IsInf(qp.DUpper[l.SOff(1)], 1) {
		t.Error("state bounds should be infinite")
	}
}

func TestObjectiveQuadrature(t *testing.T) {
	p, _, _ := doubleIntegrator(t)
	l := transcribe.NewLayout(p, 4)
	z := make(ocp.Vector, l.Dim())
	for i := 0; i <= l.N; i++ {
		copy(l.State(z, i), ocp.Vector{2, 0})
	}
	for i := 0; i < l.N; i++ {
		l.Control(z, i)[0] = 1
	}

	// h = 0.5; per interval h·(½·4 + ½·0.5·1) = 0.5·2.25
	want := 4 * 0.5 * 2.25
	got := Objective(p, l, z)
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("Objective = %v, want %v", got, want)
	}
}

func TestGradientMatchesFiniteDifference(t *testing.T) {
	p := ocp.NewProblem()
	x := p.AddState("x", 1)
	u := p.AddControl("u", 1)
	T := p.AddParameter("T", 1)

	p.SetDynamics(&ocp.FuncDynamics{
		NX: 1, NU: 1, NP: 1,
		F: func(x, u, pp ocp.Vector, tm float64, dx ocp.Vector) {
			dx[0] = u[0]
		},
	})
	p.SetFreeHorizon(T)
	p.Bound(T, 1, 4)
	p.SetLagrangeTerm(ocp.Add(ocp.Square(u.At(0)), ocp.Square(x.At(0))))
	p.SetMayerTerm(ocp.Scale(3, x.At(0)))
	p.SetParamCost(ocp.Vector{1})
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	l := transcribe.NewLayout(p, 3)
	z := transcribe.InitialIterate(p, l)
	for i := 0; i <= l.N; i++ {
		l.State(z, i)[0] = 0.4 + 0.1*float64(i)
	}
	for i := 0; i < l.N; i++ {
		l.Control(z, i)[0] = 0.2 - 0.05*float64(i)
	}
	l.Params(z)[0] = 2.5

	qp := NewAssembler(p, l, 1e-10).Build(z, sensitivities(t, p, l, z))

	const d = 1e-6
	for k := 0; k < l.Dim(); k++ {
		orig := z[k]
		z[k] = orig + d
		fp := Objective(p, l, z)
		z[k] = orig - d
		fm := Objective(p, l, z)
		z[k] = orig
		fd := (fp - fm) / (2 * d)
		if math.Abs(qp.G[k]-fd) > 1e-5 {
			t.Errorf("G[%d] = %v, finite difference %v", k, qp.G[k], fd)
		}
	}
}

func TestHessianBlocksScaleWithQuadratureWeight(t *testing.T) {
	p, _, _ := doubleIntegrator(t)
	l := transcribe.NewLayout(p, 4)
	z := transcribe.InitialIterate(p, l)

	lev := 1e-8
	qp := NewAssembler(p, l, lev).Build(z, sensitivities(t, p, l, z))

	h := 0.5 // T/N = 2/4
	for i := 0; i < l.N; i++ {
		if got := qp.HS[i].At(0, 0); math.Abs(got-(h+lev)) > 1e-12 {
			t.Errorf("HS[%d](0,0) = %v, want %v", i, got, h+lev)
		}
		if got := qp.HU[i].At(0, 0); math.Abs(got-(h*0.5+lev)) > 1e-12 {
			t.Errorf("HU[%d](0,0) = %v, want %v", i, got, h*0.5+lev)
		}
	}
	// no terminal weight: Levenberg shift only
	if got := qp.HS[l.N].At(0, 0); math.Abs(got-lev) > 1e-15 {
		t.Errorf("terminal HS(0,0) = %v, want %v", got, lev)
	}
}

func TestTotalViolationCountsBoundsAndRows(t *testing.T) {
	qp := &QPData{
		Rows: []ConRow{
			{Value: 0.5, Lower: 0, Upper: 0}, // equality off by 0.5
			{Value: 3, Lower: -2, Upper: 2},  // upper exceeded by 1
			{Value: 1, Lower: -2, Upper: 2},  // satisfied
		},
		DLower: ocp.Vector{0.25, -1}, // first entry: bound not reachable without +0.25
		DUpper: ocp.Vector{1, -0.75}, // second entry: iterate above bound by 0.75
	}
	eq, ineq := qp.TotalViolation()
	if math.Abs(eq-0.5) > 1e-12 {
		t.Errorf("eq = %v, want 0.5", eq)
	}
	if math.Abs(ineq-2.0) > 1e-12 {
		t.Errorf("ineq = %v, want 2.0", ineq)
	}
}
