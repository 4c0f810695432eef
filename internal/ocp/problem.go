package ocp

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Horizon describes the time span of the problem: either a fixed final time
// or a free final time represented by a declared scalar parameter.
type Horizon struct {
	Fixed float64
	Free  bool
	Param Ref
}

// Problem is the static description of an optimal control problem. It is
// mutable while being built and frozen by [Problem.Validate]; builder methods
// panic when called on a validated problem.
type Problem struct {
	states   []Variable
	controls []Variable
	params   []Variable

	nx, nu, np int

	dyn     Dynamics
	cost    Cost
	cons    []Constraint
	horizon Horizon

	validated bool
}

func NewProblem() *Problem { return &Problem{} }

func (p *Problem) mutable() {
	if p.validated {
		panic("ocp: problem is frozen after Validate")
	}
}

func (p *Problem) addVar(group *[]Variable, total *int, name string, kind VarKind, dim int) Ref {
	p.mutable()
	if dim < 1 {
		panic("ocp: variable dimension must be at least 1")
	}
	v := Variable{
		Name:   name,
		Kind:   kind,
		Offset: *total,
		Dim:    dim,
		Lower:  make(Vector, dim),
		Upper:  make(Vector, dim),
	}
	for i := 0; i < dim; i++ {
		v.Lower[i] = math.Inf(-1)
		v.Upper[i] = math.Inf(1)
	}
	*group = append(*group, v)
	*total += dim
	return Ref{Kind: kind, Offset: v.Offset, Dim: dim}
}

// AddState declares a differential state block of the given dimension.
func (p *Problem) AddState(name string, dim int) Ref {
	return p.addVar(&p.states, &p.nx, name, KindState, dim)
}

// AddControl declares a control block, piecewise constant per interval.
func (p *Problem) AddControl(name string, dim int) Ref {
	return p.addVar(&p.controls, &p.nu, name, KindControl, dim)
}

// AddParameter declares a free parameter block, constant over the horizon.
func (p *Problem) AddParameter(name string, dim int) Ref {
	return p.addVar(&p.params, &p.np, name, KindParameter, dim)
}

// SetDynamics attaches the right-hand side of dx/dt = f(x,u,p,t).
func (p *Problem) SetDynamics(d Dynamics) {
	p.mutable()
	p.dyn = d
}

// SetQuadraticCost sets the weight matrices of the objective. Any of the
// three may be nil. References default to zero.
func (p *Problem) SetQuadraticCost(Q, R, P *SymWeights) {
	p.mutable()
	if Q != nil {
		p.cost.Q, p.cost.XRef = Q.W, Q.Ref
	}
	if R != nil {
		p.cost.R, p.cost.URef = R.W, R.Ref
	}
	if P != nil {
		p.cost.P, p.cost.XRefT = P.W, P.Ref
	}
}

// SetLagrangeTerm sets a generic running-cost integrand.
func (p *Problem) SetLagrangeTerm(e Expr) {
	p.mutable()
	p.cost.Lagrange = e
}

// SetMayerTerm sets a generic terminal cost.
func (p *Problem) SetMayerTerm(e Expr) {
	p.mutable()
	p.cost.Mayer = e
}

// SetParamCost adds a linear cost wᵀp on the parameters, e.g. minimum time.
func (p *Problem) SetParamCost(w Vector) {
	p.mutable()
	p.cost.ParamLin = w.Clone()
}

// SetHorizon fixes the final time.
func (p *Problem) SetHorizon(T float64) {
	p.mutable()
	p.horizon = Horizon{Fixed: T}
}

// SetFreeHorizon marks a declared scalar parameter as the free final time.
func (p *Problem) SetFreeHorizon(param Ref) {
	p.mutable()
	p.horizon = Horizon{Free: true, Param: param}
}

// Constrain adds a tagged constraint lo ≤ expr ≤ hi.
func (p *Problem) Constrain(role Role, e Expr, lo, hi float64) {
	p.mutable()
	p.cons = append(p.cons, Constraint{Role: role, Expr: e, Lower: lo, Upper: hi})
}

// Bound applies the same static bound to every component of a variable.
func (p *Problem) Bound(ref Ref, lo, hi float64) {
	for i := 0; i < ref.Dim; i++ {
		p.BoundAt(ref, i, lo, hi)
	}
}

// BoundAt applies a static bound to one component of a variable.
func (p *Problem) BoundAt(ref Ref, comp int, lo, hi float64) {
	p.mutable()
	p.cons = append(p.cons, Constraint{Role: RoleBox, Ref: ref, Comp: comp, Lower: lo, Upper: hi})
	if v := p.variable(ref); v != nil && comp >= 0 && comp < v.Dim {
		v.Lower[comp] = lo
		v.Upper[comp] = hi
	}
}

// SetGuess supplies an initial guess for a variable, one value per component.
func (p *Problem) SetGuess(ref Ref, values ...float64) {
	p.mutable()
	if v := p.variable(ref); v != nil {
		v.Guess = Vector(values).Clone()
	}
}

func (p *Problem) variable(ref Ref) *Variable {
	group := p.group(ref.Kind)
	for i := range *group {
		if (*group)[i].Offset == ref.Offset {
			return &(*group)[i]
		}
	}
	return nil
}

func (p *Problem) group(kind VarKind) *[]Variable {
	switch kind {
	case KindState:
		return &p.states
	case KindControl:
		return &p.controls
	default:
		return &p.params
	}
}

// SymWeights pairs a weight matrix with its reference trajectory value.
type SymWeights struct {
	W   *mat.SymDense
	Ref Vector
}

// Weights builds a SymWeights from a matrix and an optional reference.
func Weights(w *mat.SymDense, ref ...float64) *SymWeights {
	return &SymWeights{W: w, Ref: Vector(ref).Clone()}
}

// Accessors used by transcription and the solver. All return the frozen
// model's data; callers must not mutate it.

func (p *Problem) NX() int { return p.nx }
func (p *Problem) NU() int { return p.nu }
func (p *Problem) NP() int { return p.np }

func (p *Problem) Dynamics() Dynamics        { return p.dyn }
func (p *Problem) Cost() *Cost               { return &p.cost }
func (p *Problem) Constraints() []Constraint { return p.cons }
func (p *Problem) Horizon() Horizon          { return p.horizon }
func (p *Problem) Validated() bool           { return p.validated }

func (p *Problem) States() []Variable     { return p.states }
func (p *Problem) Controls() []Variable   { return p.controls }
func (p *Problem) Parameters() []Variable { return p.params }

// GroupBounds concatenates the per-component bounds of a variable group.
func (p *Problem) GroupBounds(kind VarKind) (lo, hi Vector) {
	group := *p.group(kind)
	var n int
	switch kind {
	case KindState:
		n = p.nx
	case KindControl:
		n = p.nu
	default:
		n = p.np
	}
	lo = make(Vector, n)
	hi = make(Vector, n)
	for i := range lo {
		lo[i] = math.Inf(-1)
		hi[i] = math.Inf(1)
	}
	for _, v := range group {
		copy(lo[v.Offset:], v.Lower)
		copy(hi[v.Offset:], v.Upper)
	}
	return lo, hi
}
