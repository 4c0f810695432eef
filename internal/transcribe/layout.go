// Package transcribe maps a validated problem onto the multiple-shooting
// grid: decision-vector layout, node times and the initial iterate.
package transcribe

import "github.com/RobotXiaoFeng/acado/internal/ocp"

// Layout describes the flat decision vector
//
//	z = (s_0, ..., s_N, u_0, ..., u_{N-1}, p)
//
// for N shooting intervals.
type Layout struct {
	NX, NU, NP int
	N          int
}

func NewLayout(p *ocp.Problem, n int) Layout {
	return Layout{NX: p.NX(), NU: p.NU(), NP: p.NP(), N: n}
}

// Dim is the total decision-vector length.
func (l Layout) Dim() int { return (l.N+1)*l.NX + l.N*l.NU + l.NP }

// SOff is the offset of shooting-node state s_i.
func (l Layout) SOff(i int) int { return i * l.NX }

// UOff is the offset of interval control u_i.
func (l Layout) UOff(i int) int { return (l.N+1)*l.NX + i*l.NU }

// POff is the offset of the parameter block.
func (l Layout) POff() int { return (l.N+1)*l.NX + l.N*l.NU }

// State returns the s_i slice of z (a view, not a copy).
func (l Layout) State(z ocp.Vector, i int) ocp.Vector {
	off := l.SOff(i)
	return z[off : off+l.NX]
}

// Control returns the u_i slice of z (a view, not a copy).
func (l Layout) Control(z ocp.Vector, i int) ocp.Vector {
	off := l.UOff(i)
	return z[off : off+l.NU]
}

// Params returns the parameter slice of z (a view, not a copy).
func (l Layout) Params(z ocp.Vector) ocp.Vector {
	return z[l.POff() : l.POff()+l.NP]
}

// NodeControl returns the control associated with node i for path
// constraint evaluation: u_i for interior nodes, u_{N-1} at the last node.
func (l Layout) NodeControl(z ocp.Vector, i int) ocp.Vector {
	if l.NU == 0 {
		return nil
	}
	if i >= l.N {
		i = l.N - 1
	}
	return l.Control(z, i)
}
