package ocp

// Role tags where a constraint applies.
type Role int

const (
	// RoleInitial constraints are evaluated at t = 0 (node 0).
	RoleInitial Role = iota
	// RoleTerminal constraints are evaluated at t = T (node N).
	RoleTerminal
	// RolePath constraints are evaluated at every shooting node.
	RolePath
	// RoleBox is a static bound on a single variable component.
	RoleBox
)

func (r Role) String() string {
	switch r {
	case RoleInitial:
		return "initial"
	case RoleTerminal:
		return "terminal"
	case RolePath:
		return "path"
	case RoleBox:
		return "box"
	}
	return "unknown"
}

// Constraint is a tagged residual with bounds. Equal bounds encode an
// equality. Box constraints carry the variable reference instead of an
// expression tree.
type Constraint struct {
	Role         Role
	Expr         Expr
	Ref          Ref
	Comp         int
	Lower, Upper float64
}

// IsEquality reports whether the bounds pin the residual to a single value.
func (c Constraint) IsEquality() bool { return c.Lower == c.Upper }

// PinnedState reports whether the constraint is an equality pinning a single
// state component, and if so which component and to which value. The
// discretizer uses these pins to interpolate the initial state guess.
func (c Constraint) PinnedState() (index int, value float64, ok bool) {
	if c.Role != RoleInitial && c.Role != RoleTerminal {
		return 0, 0, false
	}
	if !c.IsEquality() || c.Expr == nil {
		return 0, 0, false
	}
	v, isVar := c.Expr.(varNode)
	if !isVar || v.kind != KindState {
		return 0, 0, false
	}
	return v.index, c.Lower, true
}
