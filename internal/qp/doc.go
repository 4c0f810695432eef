// Package qp solves the structured quadratic subproblems produced by the
// NLP assembler.
//
// The default scheme is condensing: the shooting continuity equalities are
// used to eliminate the state steps δs_1..δs_N in a forward sweep, leaving a
// dense problem in (δs_0, δu_0..δu_{N-1}, δp). A primal-dual interior-point
// core solves the dense problem; a backward sweep recovers the eliminated
// state steps and the continuity multipliers, so the continuity equalities
// hold exactly by construction.
//
// KindFull bypasses condensing and hands the whole-space KKT system to the
// same interior-point core. It is slower but structurally simpler and serves
// as a cross-check of the condensing path.
package qp
