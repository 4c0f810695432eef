package ocp

import "math"

// Vector is a dense numeric vector used for states, controls and parameters.
type Vector []float64

func (v Vector) Clone() Vector {
	c := make(Vector, len(v))
	copy(c, v)
	return c
}

func (v Vector) IsFinite() bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

func (v Vector) Norm() float64 {
	sum := 0.0
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

func (v Vector) NormInf() float64 {
	m := 0.0
	for _, x := range v {
		if a := math.Abs(x); a > m {
			m = a
		}
	}
	return m
}

// VarKind discriminates the three variable groups of a problem.
type VarKind int

const (
	KindState VarKind = iota
	KindControl
	KindParameter
)

func (k VarKind) String() string {
	switch k {
	case KindState:
		return "state"
	case KindControl:
		return "control"
	case KindParameter:
		return "parameter"
	}
	return "unknown"
}

// Variable is a declared state, control or parameter block.
type Variable struct {
	Name   string
	Kind   VarKind
	Offset int // start index within the variable's group
	Dim    int

	// Per-component box bounds. Entries default to ±Inf.
	Lower, Upper Vector

	// Optional initial guess, one value per component. Nil means the
	// discretizer infers a guess.
	Guess Vector
}

// Ref is a handle to a declared variable, returned by the Add* methods.
type Ref struct {
	Kind   VarKind
	Offset int
	Dim    int
}

// At returns the expression referencing component i of the variable.
func (r Ref) At(i int) Expr {
	if i < 0 || i >= r.Dim {
		panic("ocp: variable component out of range")
	}
	return varNode{kind: r.Kind, index: r.Offset + i}
}

// Env carries the point at which expressions are evaluated.
type Env struct {
	X, U, P Vector
	T       float64
}

func (e *Env) value(k VarKind, index int) float64 {
	switch k {
	case KindState:
		return e.X[index]
	case KindControl:
		return e.U[index]
	default:
		return e.P[index]
	}
}
