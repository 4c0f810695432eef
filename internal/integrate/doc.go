// Package integrate propagates single shooting intervals.
//
// Each interval is integrated in normalized time τ ∈ [0,1] with the
// right-hand side scaled by the interval length h = T/N, so a free horizon
// enters as an ordinary parameter. The variational (tangent) equations for
// the sensitivities of the interval end state with respect to the interval's
// start state, control and parameters are propagated together with the
// trajectory, seeded with (I, 0, 0) at the interval start.
//
// The stepping scheme is the Dormand-Prince 5(4) embedded pair with local
// error estimation and adaptive sub-step subdivision.
package integrate
