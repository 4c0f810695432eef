package sqp

import (
	"math"

	"github.com/RobotXiaoFeng/acado/internal/nlp"
	"github.com/RobotXiaoFeng/acado/internal/ocp"
	"github.com/RobotXiaoFeng/acado/internal/qp"
)

// kktResidual measures optimality of the current iterate using the
// subproblem's multipliers: the inf-norm of the Lagrangian gradient and
// the worst complementarity product. Feasibility comes separately from
// QPData.TotalViolation.
//
// The Lagrangian convention is
//
//	L = f + Σᵢ λᵢᵀ(x⁺(sᵢ,uᵢ,p) − sᵢ₊₁) + Σᵣ mᵣ·rowᵣ + Σₖ mₖ·zₖ
//
// with inequality multipliers positive when the upper bound is active.
func kktResidual(data *nlp.QPData, sol *qp.Solution) (stat, compl float64) {
	l := data.Layout
	grad := make(ocp.Vector, l.Dim())
	copy(grad, data.G)

	for i := 0; i < l.N; i++ {
		lam := sol.Cont[i]
		for r := 0; r < l.NX; r++ {
			grad[l.SOff(i+1)+r] -= lam[r]
		}
		for c := 0; c < l.NX; c++ {
			sum := 0.0
			for r := 0; r < l.NX; r++ {
				sum += data.A[i].At(r, c) * lam[r]
			}
			grad[l.SOff(i)+c] += sum
		}
		for c := 0; c < l.NU; c++ {
			sum := 0.0
			for r := 0; r < l.NX; r++ {
				sum += data.B[i].At(r, c) * lam[r]
			}
			grad[l.UOff(i)+c] += sum
		}
		if data.C[i] != nil {
			for c := 0; c < l.NP; c++ {
				sum := 0.0
				for r := 0; r < l.NX; r++ {
					sum += data.C[i].At(r, c) * lam[r]
				}
				grad[l.POff()+c] += sum
			}
		}
	}

	const active = 1e-12
	for rIdx, row := range data.Rows {
		m := sol.Rows[rIdx]
		if math.Abs(m) < active {
			continue
		}
		for k, v := range row.Jx {
			grad[l.SOff(row.Node)+k] += m * v
		}
		if row.Ju != nil {
			un := row.Node
			if un >= l.N {
				un = l.N - 1
			}
			for k, v := range row.Ju {
				grad[l.UOff(un)+k] += m * v
			}
		}
		for k, v := range row.Jp {
			grad[l.POff()+k] += m * v
		}
		if !row.IsEquality() {
			slack := row.Upper - row.Value
			if m < 0 {
				slack = row.Value - row.Lower
			}
			compl = math.Max(compl, math.Abs(m*slack))
		}
	}

	for k, m := range sol.Bounds {
		if math.Abs(m) < active {
			continue
		}
		grad[k] += m
		slack := data.DUpper[k]
		if m < 0 {
			slack = -data.DLower[k]
		}
		compl = math.Max(compl, math.Abs(m*slack))
	}

	return grad.NormInf(), compl
}
