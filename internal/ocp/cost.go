package ocp

import "gonum.org/v1/gonum/mat"

// Cost collects the objective terms. Quadratic weights and generic
// expressions may be combined; unset parts simply contribute nothing.
//
//	∫ ½(x-xref)ᵀQ(x-xref) + ½(u-uref)ᵀR(u-uref) + lagrange dt
//	+ ½(x(T)-xrefT)ᵀP(x(T)-xrefT) + mayer + paramLinᵀp
type Cost struct {
	Q, R, P           *mat.SymDense
	XRef, URef, XRefT Vector
	ParamLin          Vector
	Lagrange, Mayer   Expr
}

// DiagWeights builds a diagonal weight matrix from the given entries.
func DiagWeights(d ...float64) *mat.SymDense {
	w := mat.NewSymDense(len(d), nil)
	for i, v := range d {
		w.SetSym(i, i, v)
	}
	return w
}

// hasRunning reports whether any Lagrange-type term is present.
func (c *Cost) hasRunning() bool {
	return c.Q != nil || c.R != nil || c.Lagrange != nil
}
