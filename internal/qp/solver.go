package qp

import (
	"math"

	"github.com/RobotXiaoFeng/acado/internal/nlp"
	"github.com/RobotXiaoFeng/acado/internal/ocp"
	"gonum.org/v1/gonum/mat"
)

// Kind selects the solution scheme.
type Kind string

const (
	// KindCondensing eliminates the state steps through the continuity
	// equations before the dense solve. Default.
	KindCondensing Kind = "condensing"
	// KindFull solves the whole-space KKT system directly.
	KindFull Kind = "full"
)

// Solution is the QP step with its multipliers in full decision space.
//
// Multiplier sign convention: the Lagrangian is
//
//	L = f + Σ λ_iᵀ c_i + Σ m_r·row_r + Σ m_k·z_k
//
// so inequality multipliers are ≥ 0 when the upper side is active and ≤ 0
// when the lower side is active; equality multipliers are free.
type Solution struct {
	Step   ocp.Vector   // δz
	Cont   []ocp.Vector // continuity multipliers, one per interval
	Rows   ocp.Vector   // one signed multiplier per QPData row
	Bounds ocp.Vector   // one signed multiplier per decision entry
}

// Solve computes the SQP step for the assembled subproblem.
func Solve(data *nlp.QPData, kind Kind) (*Solution, error) {
	switch kind {
	case KindFull:
		return solveFull(data)
	default:
		return solveCondensed(data)
	}
}

// ineqSource records where an interior-point inequality row came from so
// its multiplier can be mapped back.
type ineqSource struct {
	row   int  // index into data.Rows, -1 for bounds
	zIdx  int  // flat decision index for bound rows, -1 otherwise
	upper bool // true when the row encodes the upper side
}

// builder accumulates the dense QP together with the source bookkeeping.
type builder struct {
	n   int
	h   *mat.Dense
	g   []float64
	aeq [][]float64
	beq []float64
	ain [][]float64
	bin []float64

	eqSrc []int // data.Rows index per equality row, -1 for continuity
	inSrc []ineqSource
}

func newBuilder(n int) *builder {
	return &builder{n: n, h: mat.NewDense(n, n, nil), g: make([]float64, n)}
}

func (b *builder) addEq(a []float64, rhs float64, src int) {
	b.aeq = append(b.aeq, a)
	b.beq = append(b.beq, rhs)
	b.eqSrc = append(b.eqSrc, src)
}

func (b *builder) addIneq(a []float64, rhs float64, src ineqSource) {
	b.ain = append(b.ain, a)
	b.bin = append(b.bin, rhs)
	b.inSrc = append(b.inSrc, src)
}

// addTwoSided turns lo ≤ val + a·w ≤ hi into equality or one-sided rows.
func (b *builder) addTwoSided(a []float64, val, lo, hi float64, rowIdx, zIdx int) {
	if lo == hi {
		if rowIdx >= 0 {
			b.addEq(a, lo-val, rowIdx)
			return
		}
		// pinned bound: keep as a pair of inequalities so the bound
		// multiplier bookkeeping stays uniform
	}
	if !math.IsInf(lo, -1) {
		b.addIneq(a, lo-val, ineqSource{row: rowIdx, zIdx: zIdx, upper: false})
	}
	if !math.IsInf(hi, 1) {
		neg := make([]float64, len(a))
		for i, v := range a {
			neg[i] = -v
		}
		b.addIneq(neg, val-hi, ineqSource{row: rowIdx, zIdx: zIdx, upper: true})
	}
}

func (b *builder) finish() *denseQP {
	q := &denseQP{h: b.h, g: b.g}
	if len(b.beq) > 0 {
		q.aeq = rowsToDense(b.aeq, b.n)
		q.beq = b.beq
	}
	if len(b.bin) > 0 {
		q.ain = rowsToDense(b.ain, b.n)
		q.bin = b.bin
	}
	return q
}

func rowsToDense(rows [][]float64, n int) *mat.Dense {
	d := mat.NewDense(len(rows), n, nil)
	for r, row := range rows {
		d.SetRow(r, row)
	}
	return d
}

// mapMultipliers folds the raw interior-point multipliers back onto the
// signed per-row and per-bound multipliers of the full problem.
func (b *builder) mapMultipliers(sol *denseSol, out *Solution) {
	for r, src := range b.eqSrc {
		if src >= 0 {
			out.Rows[src] = sol.y[r]
		}
	}
	for r, src := range b.inSrc {
		v := sol.lam[r]
		if !src.upper {
			v = -v
		}
		if src.row >= 0 {
			out.Rows[src.row] += v
		} else if src.zIdx >= 0 {
			out.Bounds[src.zIdx] += v
		}
	}
}
