package store

import (
	"fmt"
	"math"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/RobotXiaoFeng/acado/internal/sqp"
)

// SavePlots renders trajectory.png and convergence.png into the run
// directory.
func (s *Store) SavePlots(runID string, res *sqp.Result) error {
	dir := s.Dir(runID)
	if err := trajectoryPlot(filepath.Join(dir, "trajectory.png"), res); err != nil {
		return err
	}
	return convergencePlot(filepath.Join(dir, "convergence.png"), res)
}

func trajectoryPlot(path string, res *sqp.Result) error {
	p := plot.New()
	p.Title.Text = "State trajectory"
	p.X.Label.Text = "t"
	p.Legend.Top = true

	for k := 0; k < res.Layout.NX; k++ {
		pts := make(plotter.XYs, len(res.States))
		for i, x := range res.States {
			pts[i].X = res.Times[i]
			pts[i].Y = x[k]
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		line.Color = plotutil.Color(k)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("x%d", k), line)
	}
	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}

func convergencePlot(path string, res *sqp.Result) error {
	p := plot.New()
	p.Title.Text = "Convergence"
	p.X.Label.Text = "iteration"
	p.Y.Label.Text = "log10 KKT"

	pts := make(plotter.XYs, 0, len(res.Iterations))
	for _, rec := range res.Iterations {
		if rec.KKT <= 0 {
			continue
		}
		pts = append(pts, plotter.XY{X: float64(rec.Iter), Y: math.Log10(rec.KKT)})
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	p.Add(line)
	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}
