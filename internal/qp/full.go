package qp

import (
	"math"

	"github.com/RobotXiaoFeng/acado/internal/nlp"
	"github.com/RobotXiaoFeng/acado/internal/ocp"
)

// solveFull hands the whole-space problem to the interior-point core
// without condensing. One dense row per continuity equation.
func solveFull(data *nlp.QPData) (*Solution, error) {
	l := data.Layout
	nx, nu, np, N := l.NX, l.NU, l.NP, l.N
	n := l.Dim()

	b := newBuilder(n)

	// Block-diagonal Hessian and gradient.
	copy(b.g, data.G)
	for i := 0; i <= N; i++ {
		off := l.SOff(i)
		for r := 0; r < nx; r++ {
			for c := 0; c < nx; c++ {
				b.h.Set(off+r, off+c, data.HS[i].At(r, c))
			}
		}
	}
	for i := 0; i < N && nu > 0; i++ {
		off := l.UOff(i)
		for r := 0; r < nu; r++ {
			for c := 0; c < nu; c++ {
				b.h.Set(off+r, off+c, data.HU[i].At(r, c))
			}
		}
	}
	if np > 0 {
		off := l.POff()
		for r := 0; r < np; r++ {
			for c := 0; c < np; c++ {
				b.h.Set(off+r, off+c, data.HP.At(r, c))
			}
		}
	}

	// Continuity equalities: A_i δs_i + B_i δu_i + C_i δp − δs_{i+1} = −R_i.
	for i := 0; i < N; i++ {
		for r := 0; r < nx; r++ {
			a := make([]float64, n)
			for c := 0; c < nx; c++ {
				a[l.SOff(i)+c] = data.A[i].At(r, c)
			}
			for c := 0; c < nu; c++ {
				a[l.UOff(i)+c] = data.B[i].At(r, c)
			}
			for c := 0; c < np; c++ {
				a[l.POff()+c] = data.C[i].At(r, c)
			}
			a[l.SOff(i+1)+r] = -1
			b.addEq(a, -data.Res[i][r], -1)
		}
	}

	// Point constraints.
	for rIdx, row := range data.Rows {
		a := make([]float64, n)
		for k := 0; k < nx; k++ {
			a[l.SOff(row.Node)+k] = row.Jx[k]
		}
		if nu > 0 && row.Ju != nil {
			un := row.Node
			if un >= N {
				un = N - 1
			}
			for k := 0; k < nu; k++ {
				a[l.UOff(un)+k] += row.Ju[k]
			}
		}
		if np > 0 && row.Jp != nil {
			for k := 0; k < np; k++ {
				a[l.POff()+k] += row.Jp[k]
			}
		}
		b.addTwoSided(a, row.Value, row.Lower, row.Upper, rIdx, -1)
	}

	// Decision bounds as identity rows.
	for k := 0; k < n; k++ {
		lo, hi := data.DLower[k], data.DUpper[k]
		if math.IsInf(lo, -1) && math.IsInf(hi, 1) {
			continue
		}
		a := make([]float64, n)
		a[k] = 1
		b.addTwoSided(a, 0, lo, hi, -1, k)
	}

	sol, err := solveDense(b.finish())
	if err != nil {
		return nil, err
	}

	out := &Solution{
		Step:   ocp.Vector(sol.w).Clone(),
		Cont:   make([]ocp.Vector, N),
		Rows:   make(ocp.Vector, len(data.Rows)),
		Bounds: make(ocp.Vector, n),
	}
	for i := 0; i < N; i++ {
		out.Cont[i] = ocp.Vector(sol.y[i*nx : (i+1)*nx]).Clone()
	}
	b.mapMultipliers(sol, out)
	return out, nil
}
