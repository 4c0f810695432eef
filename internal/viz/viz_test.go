package viz

import (
	"strings"
	"testing"

	"github.com/RobotXiaoFeng/acado/internal/ocp"
	"github.com/RobotXiaoFeng/acado/internal/sqp"
	"github.com/RobotXiaoFeng/acado/internal/transcribe"
)

func sampleResult() *sqp.Result {
	return &sqp.Result{
		Status:    sqp.StatusConverged,
		Objective: 12.01,
		KKT:       4e-9,
		Layout:    transcribe.Layout{NX: 2, NU: 1, N: 4},
		Times:     []float64{0, 0.25, 0.5, 0.75, 1},
		States: []ocp.Vector{
			{0, 0}, {0.16, 1.1}, {0.5, 1.5}, {0.84, 1.1}, {1, 0},
		},
		Controls: []ocp.Vector{
			{4.5}, {1.5}, {-1.5}, {-4.5},
		},
		Iterations: []sqp.IterationRecord{
			{Iter: 0, KKT: 2.5},
			{Iter: 1, KKT: 1e-4},
			{Iter: 2, KKT: 4e-9},
		},
		Stats: sqp.Stats{Iterations: 3, QPSolves: 3},
	}
}

func TestCanvasDimensions(t *testing.T) {
	c := NewCanvas(10, 4)
	c.Set(0, 0)
	c.Set(19, 15)
	c.Set(-1, 2)  // ignored
	c.Set(99, 99) // ignored
	out := c.String()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("%d lines, want 4", len(lines))
	}
	for i, line := range lines {
		if n := len([]rune(line)); n != 10 {
			t.Errorf("line %d has %d cells, want 10", i, n)
		}
	}
	if lines[0][:3] == "⠀" {
		t.Error("top-left dot not set")
	}
}

func TestCanvasLineEndpoints(t *testing.T) {
	c := NewCanvas(20, 10)
	c.Line(0, 0, 39, 39)
	if c.cells[0][0] == 0x2800 || c.cells[9][19] == 0x2800 {
		t.Error("line endpoints not drawn")
	}
}

func TestConvergenceChart(t *testing.T) {
	out := Convergence(sampleResult().Iterations, 30, 6)
	if !strings.Contains(out, "KKT") {
		t.Error("caption missing")
	}
	if Convergence(nil, 30, 6) != "" {
		t.Error("empty history should produce no chart")
	}
}

func TestTrajectoryAndControlCharts(t *testing.T) {
	res := sampleResult()
	if out := Trajectory(res, 0, 30, 6); out == "" {
		t.Error("trajectory chart empty")
	}
	if out := Trajectory(res, 5, 30, 6); out != "" {
		t.Error("out-of-range component should produce nothing")
	}
	if out := ControlProfile(res, 0, 30, 6); out == "" {
		t.Error("control chart empty")
	}
}

func TestPhasePlot(t *testing.T) {
	out := PhasePlot(sampleResult(), 0, 1, 20, 8)
	if out == "" {
		t.Fatal("phase plot empty")
	}
	if !strings.ContainsFunc(out, func(r rune) bool { return r > 0x2800 && r <= 0x28FF }) {
		t.Error("no braille dots drawn")
	}
}

func TestSummary(t *testing.T) {
	out := Summary("double_integrator", sampleResult())
	for _, want := range []string{"double_integrator", "CONVERGED", "12.01", "qp solves"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q", want)
		}
	}
}
