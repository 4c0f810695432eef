package viz

import (
	"fmt"
	"math"
	"strings"

	"github.com/guptarohit/asciigraph"

	"github.com/RobotXiaoFeng/acado/internal/ocp"
	"github.com/RobotXiaoFeng/acado/internal/sqp"
)

// Convergence charts log10 of the KKT residual over the iterations.
func Convergence(recs []sqp.IterationRecord, width, height int) string {
	if len(recs) == 0 {
		return ""
	}
	series := make([]float64, 0, len(recs))
	for _, r := range recs {
		v := r.KKT
		if v <= 0 {
			v = 1e-16
		}
		series = append(series, math.Log10(v))
	}
	if len(series) == 1 {
		series = append(series, series[0])
	}
	chart := asciigraph.Plot(series,
		asciigraph.Width(width), asciigraph.Height(height),
		asciigraph.Caption("log10 KKT residual"))
	return graphStyle.Render(chart)
}

// Trajectory charts one state component against the node times.
func Trajectory(res *sqp.Result, component int, width, height int) string {
	if component < 0 || component >= res.Layout.NX || len(res.States) == 0 {
		return ""
	}
	series := make([]float64, len(res.States))
	for i, x := range res.States {
		series[i] = x[component]
	}
	chart := asciigraph.Plot(series,
		asciigraph.Width(width), asciigraph.Height(height),
		asciigraph.Caption(fmt.Sprintf("x%d over the horizon", component)))
	return graphStyle.Render(chart)
}

// ControlProfile charts one control component over the intervals.
func ControlProfile(res *sqp.Result, component int, width, height int) string {
	if component < 0 || component >= res.Layout.NU || len(res.Controls) == 0 {
		return ""
	}
	series := make([]float64, len(res.Controls))
	for i, u := range res.Controls {
		series[i] = u[component]
	}
	chart := asciigraph.Plot(series,
		asciigraph.Width(width), asciigraph.Height(height),
		asciigraph.Caption(fmt.Sprintf("u%d over the horizon", component)))
	return graphStyle.Render(chart)
}

// PhasePlot draws state component a against component b on the braille
// canvas.
func PhasePlot(res *sqp.Result, a, b, width, height int) string {
	if a < 0 || b < 0 || a >= res.Layout.NX || b >= res.Layout.NX || len(res.States) < 2 {
		return ""
	}
	minA, maxA := bounds(res.States, a)
	minB, maxB := bounds(res.States, b)
	if maxA == minA {
		maxA = minA + 1
	}
	if maxB == minB {
		maxB = minB + 1
	}

	c := NewCanvas(width, height)
	dotsX, dotsY := 2*width-1, 4*height-1
	toX := func(v float64) int { return int((v - minA) / (maxA - minA) * float64(dotsX)) }
	toY := func(v float64) int { return dotsY - int((v-minB)/(maxB-minB)*float64(dotsY)) }

	px, py := toX(res.States[0][a]), toY(res.States[0][b])
	for _, x := range res.States[1:] {
		nx, ny := toX(x[a]), toY(x[b])
		c.Line(px, py, nx, ny)
		px, py = nx, ny
	}
	return c.String()
}

// Summary renders the run header shown after a solve.
func Summary(model string, res *sqp.Result) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%s (%d intervals)", model, res.Layout.N)))
	b.WriteByte('\n')

	row := func(label, value string) {
		b.WriteString(labelStyle.Render(label))
		b.WriteString(valueStyle.Render(value))
		b.WriteByte('\n')
	}
	b.WriteString(labelStyle.Render("status"))
	b.WriteString(StatusStyle(string(res.Status)).Render(string(res.Status)))
	b.WriteByte('\n')
	row("objective", fmt.Sprintf("%.6g", res.Objective))
	row("kkt", fmt.Sprintf("%.3g", res.KKT))
	row("iterations", fmt.Sprintf("%d", res.Stats.Iterations))
	row("qp solves", fmt.Sprintf("%d", res.Stats.QPSolves))
	row("rhs evals", fmt.Sprintf("%d", res.Stats.RHSEvals))
	if len(res.Parameters) > 0 {
		row("parameters", fmt.Sprintf("%.6g", []float64(res.Parameters)))
	}
	row("wall", res.Stats.Wall.String())
	return b.String()
}

func bounds(states []ocp.Vector, k int) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, x := range states {
		if x[k] < lo {
			lo = x[k]
		}
		if x[k] > hi {
			hi = x[k]
		}
	}
	return lo, hi
}
