package qp

import (
	"math"

	"github.com/RobotXiaoFeng/acado/internal/nlp"
	"github.com/RobotXiaoFeng/acado/internal/ocp"
	"gonum.org/v1/gonum/mat"
)

// solveCondensed eliminates δs_1..δs_N with the continuity equations,
// solves the dense reduced problem, then expands the state steps and
// recovers the continuity multipliers by a backward sweep.
func solveCondensed(data *nlp.QPData) (*Solution, error) {
	l := data.Layout
	nx, nu, np, N := l.NX, l.NU, l.NP, l.N
	nw := nx + N*nu + np

	wOffU := func(i int) int { return nx + i*nu }
	wOffP := nx + N*nu

	// Forward sweep: δs_i = F_i w + d_i.
	F := make([]*mat.Dense, N+1)
	d := make([]ocp.Vector, N+1)
	F[0] = mat.NewDense(nx, nw, nil)
	for k := 0; k < nx; k++ {
		F[0].Set(k, k, 1)
	}
	d[0] = make(ocp.Vector, nx)

	for i := 0; i < N; i++ {
		next := mat.NewDense(nx, nw, nil)
		next.Mul(data.A[i], F[i])
		if nu > 0 {
			for r := 0; r < nx; r++ {
				for c := 0; c < nu; c++ {
					col := wOffU(i) + c
					next.Set(r, col, next.At(r, col)+data.B[i].At(r, c))
				}
			}
		}
		if np > 0 {
			for r := 0; r < nx; r++ {
				for c := 0; c < np; c++ {
					col := wOffP + c
					next.Set(r, col, next.At(r, col)+data.C[i].At(r, c))
				}
			}
		}
		F[i+1] = next

		dn := make(ocp.Vector, nx)
		for r := 0; r < nx; r++ {
			sum := data.Res[i][r]
			for k := 0; k < nx; k++ {
				sum += data.A[i].At(r, k) * d[i][k]
			}
			dn[r] = sum
		}
		d[i+1] = dn
	}

	b := newBuilder(nw)
	condenseCost(data, F, d, b, wOffU, wOffP)
	condenseRows(data, F, d, b, wOffU, wOffP)
	condenseBounds(data, F, d, b, wOffU, wOffP)

	sol, err := solveDense(b.finish())
	if err != nil {
		return nil, err
	}

	out := &Solution{
		Step:   make(ocp.Vector, l.Dim()),
		Cont:   make([]ocp.Vector, N),
		Rows:   make(ocp.Vector, len(data.Rows)),
		Bounds: make(ocp.Vector, l.Dim()),
	}

	// Backward expansion of the eliminated state steps.
	for i := 0; i <= N; i++ {
		ds := out.Step[l.SOff(i) : l.SOff(i)+nx]
		for r := 0; r < nx; r++ {
			sum := d[i][r]
			for c := 0; c < nw; c++ {
				sum += F[i].At(r, c) * sol.w[c]
			}
			ds[r] = sum
		}
	}
	for i := 0; i < N; i++ {
		copy(out.Step[l.UOff(i):l.UOff(i)+nu], sol.w[wOffU(i):wOffU(i)+nu])
	}
	copy(out.Step[l.POff():l.POff()+np], sol.w[wOffP:wOffP+np])

	b.mapMultipliers(sol, out)
	recoverContinuity(data, out)
	return out, nil
}

// condenseCost maps the block cost onto the reduced variable.
func condenseCost(data *nlp.QPData, F []*mat.Dense, d []ocp.Vector, b *builder, wOffU func(int) int, wOffP int) {
	l := data.Layout
	nx, nu, np, N := l.NX, l.NU, l.NP, l.N
	nw := b.n

	var tmp, contrib mat.Dense
	for i := 0; i <= N; i++ {
		// H += F_iᵀ HS_i F_i ; g += F_iᵀ (HS_i d_i + g_si)
		tmp.Reset()
		tmp.Mul(data.HS[i], F[i])
		contrib.Reset()
		contrib.Mul(F[i].T(), &tmp)
		b.h.Add(b.h, &contrib)

		gs := data.G[l.SOff(i) : l.SOff(i)+nx]
		hd := make([]float64, nx)
		for r := 0; r < nx; r++ {
			sum := gs[r]
			for k := 0; k < nx; k++ {
				sum += data.HS[i].At(r, k) * d[i][k]
			}
			hd[r] = sum
		}
		for c := 0; c < nw; c++ {
			sum := 0.0
			for r := 0; r < nx; r++ {
				sum += F[i].At(r, c) * hd[r]
			}
			b.g[c] += sum
		}
	}

	for i := 0; i < N && nu > 0; i++ {
		gu := data.G[l.UOff(i) : l.UOff(i)+nu]
		off := wOffU(i)
		for r := 0; r < nu; r++ {
			b.g[off+r] += gu[r]
			for c := 0; c < nu; c++ {
				b.h.Set(off+r, off+c, b.h.At(off+r, off+c)+data.HU[i].At(r, c))
			}
		}
	}
	if np > 0 {
		gp := data.G[l.POff() : l.POff()+np]
		for r := 0; r < np; r++ {
			b.g[wOffP+r] += gp[r]
			for c := 0; c < np; c++ {
				b.h.Set(wOffP+r, wOffP+c, b.h.At(wOffP+r, wOffP+c)+data.HP.At(r, c))
			}
		}
	}
}

// condenseRows maps point constraints onto the reduced variable.
func condenseRows(data *nlp.QPData, F []*mat.Dense, d []ocp.Vector, b *builder, wOffU func(int) int, wOffP int) {
	l := data.Layout
	nx, nu, np, N := l.NX, l.NU, l.NP, l.N

	for rIdx, row := range data.Rows {
		a := make([]float64, b.n)
		node := row.Node
		for c := 0; c < b.n; c++ {
			sum := 0.0
			for k := 0; k < nx; k++ {
				sum += row.Jx[k] * F[node].At(k, c)
			}
			a[c] = sum
		}
		if nu > 0 && row.Ju != nil {
			un := node
			if un >= N {
				un = N - 1
			}
			for k := 0; k < nu; k++ {
				a[wOffU(un)+k] += row.Ju[k]
			}
		}
		if np > 0 && row.Jp != nil {
			for k := 0; k < np; k++ {
				a[wOffP+k] += row.Jp[k]
			}
		}
		val := row.Value
		for k := 0; k < nx; k++ {
			val += row.Jx[k] * d[node][k]
		}
		b.addTwoSided(a, val, row.Lower, row.Upper, rIdx, -1)
	}
}

// condenseBounds keeps δs_0, δu, δp bounds as simple rows and turns the
// eliminated states' bounds into general rows over F_i.
func condenseBounds(data *nlp.QPData, F []*mat.Dense, d []ocp.Vector, b *builder, wOffU func(int) int, wOffP int) {
	l := data.Layout
	nx, nu, np, N := l.NX, l.NU, l.NP, l.N

	unit := func(k int) []float64 {
		a := make([]float64, b.n)
		a[k] = 1
		return a
	}

	for k := 0; k < nx; k++ {
		zIdx := l.SOff(0) + k
		lo, hi := data.DLower[zIdx], data.DUpper[zIdx]
		if !math.IsInf(lo, -1) || !math.IsInf(hi, 1) {
			b.addTwoSided(unit(k), 0, lo, hi, -1, zIdx)
		}
	}
	for i := 1; i <= N; i++ {
		for k := 0; k < nx; k++ {
			zIdx := l.SOff(i) + k
			lo, hi := data.DLower[zIdx], data.DUpper[zIdx]
			if math.IsInf(lo, -1) && math.IsInf(hi, 1) {
				continue
			}
			a := make([]float64, b.n)
			for c := 0; c < b.n; c++ {
				a[c] = F[i].At(k, c)
			}
			b.addTwoSided(a, d[i][k], lo, hi, -1, zIdx)
		}
	}
	for i := 0; i < N; i++ {
		for k := 0; k < nu; k++ {
			zIdx := l.UOff(i) + k
			lo, hi := data.DLower[zIdx], data.DUpper[zIdx]
			if !math.IsInf(lo, -1) || !math.IsInf(hi, 1) {
				b.addTwoSided(unit(wOffU(i)+k), 0, lo, hi, -1, zIdx)
			}
		}
	}
	for k := 0; k < np; k++ {
		zIdx := l.POff() + k
		lo, hi := data.DLower[zIdx], data.DUpper[zIdx]
		if !math.IsInf(lo, -1) || !math.IsInf(hi, 1) {
			b.addTwoSided(unit(wOffP+k), 0, lo, hi, -1, zIdx)
		}
	}
}

// recoverContinuity runs the backward sweep for the continuity multipliers:
// stationarity of the full QP Lagrangian with respect to each eliminated
// state step.
//
//	λ_{j-1} = HS_j δs_j + g_{s_j} + A_jᵀλ_j + Σ_{rows at node j} m·Jx + m_bounds
func recoverContinuity(data *nlp.QPData, out *Solution) {
	l := data.Layout
	nx, N := l.NX, l.N

	rowsAt := make(map[int][]int)
	for r, row := range data.Rows {
		rowsAt[row.Node] = append(rowsAt[row.Node], r)
	}

	var next ocp.Vector
	for j := N; j >= 1; j-- {
		lam := make(ocp.Vector, nx)
		ds := out.Step[l.SOff(j) : l.SOff(j)+nx]
		for r := 0; r < nx; r++ {
			sum := data.G[l.SOff(j)+r]
			for k := 0; k < nx; k++ {
				sum += data.HS[j].At(r, k) * ds[k]
			}
			lam[r] = sum
		}
		if j < N {
			for r := 0; r < nx; r++ {
				sum := 0.0
				for k := 0; k < nx; k++ {
					sum += data.A[j].At(k, r) * next[k]
				}
				lam[r] += sum
			}
		}
		for _, rIdx := range rowsAt[j] {
			m := out.Rows[rIdx]
			if m == 0 {
				continue
			}
			for r := 0; r < nx; r++ {
				lam[r] += m * data.Rows[rIdx].Jx[r]
			}
		}
		for r := 0; r < nx; r++ {
			lam[r] += out.Bounds[l.SOff(j)+r]
		}
		out.Cont[j-1] = lam
		next = lam
	}
}
