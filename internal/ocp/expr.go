package ocp

import (
	"fmt"
	"math"
)

// Expr is a node in an algebraic expression tree. Expressions are built with
// the explicit constructor functions below rather than operator overloading.
//
// Partial returns the derivative of the expression with respect to component
// index of the given variable group, evaluated at env by the chain rule.
type Expr interface {
	Eval(env *Env) float64
	Partial(env *Env, kind VarKind, index int) float64
	String() string
}

type constNode float64

func (c constNode) Eval(*Env) float64                  { return float64(c) }
func (c constNode) Partial(*Env, VarKind, int) float64 { return 0 }
func (c constNode) String() string                     { return fmt.Sprintf("%g", float64(c)) }

type varNode struct {
	kind  VarKind
	index int
}

func (v varNode) Eval(env *Env) float64 { return env.value(v.kind, v.index) }

func (v varNode) Partial(_ *Env, kind VarKind, index int) float64 {
	if v.kind == kind && v.index == index {
		return 1
	}
	return 0
}

func (v varNode) String() string { return fmt.Sprintf("%s[%d]", v.kind, v.index) }

type timeNode struct{}

func (timeNode) Eval(env *Env) float64              { return env.T }
func (timeNode) Partial(*Env, VarKind, int) float64 { return 0 }
func (timeNode) String() string                     { return "t" }

type binNode struct {
	op   byte
	a, b Expr
}

func (n binNode) Eval(env *Env) float64 {
	a, b := n.a.Eval(env), n.b.Eval(env)
	switch n.op {
	case '+':
		return a + b
	case '-':
		return a - b
	case '*':
		return a * b
	default:
		return a / b
	}
}

func (n binNode) Partial(env *Env, kind VarKind, index int) float64 {
	da, db := n.a.Partial(env, kind, index), n.b.Partial(env, kind, index)
	switch n.op {
	case '+':
		return da + db
	case '-':
		return da - db
	case '*':
		return da*n.b.Eval(env) + n.a.Eval(env)*db
	default:
		b := n.b.Eval(env)
		return (da*b - n.a.Eval(env)*db) / (b * b)
	}
}

func (n binNode) String() string {
	return fmt.Sprintf("(%s %c %s)", n.a, n.op, n.b)
}

type unaryNode struct {
	name  string
	arg   Expr
	f, df func(float64) float64
}

func (n unaryNode) Eval(env *Env) float64 { return n.f(n.arg.Eval(env)) }

func (n unaryNode) Partial(env *Env, kind VarKind, index int) float64 {
	return n.df(n.arg.Eval(env)) * n.arg.Partial(env, kind, index)
}

func (n unaryNode) String() string { return fmt.Sprintf("%s(%s)", n.name, n.arg) }

type powNode struct {
	base Expr
	exp  float64
}

func (n powNode) Eval(env *Env) float64 { return math.Pow(n.base.Eval(env), n.exp) }

func (n powNode) Partial(env *Env, kind VarKind, index int) float64 {
	b := n.base.Eval(env)
	return n.exp * math.Pow(b, n.exp-1) * n.base.Partial(env, kind, index)
}

func (n powNode) String() string { return fmt.Sprintf("%s^%g", n.base, n.exp) }

// Const wraps a numeric literal.
func Const(c float64) Expr { return constNode(c) }

// Time references the independent variable t.
func Time() Expr { return timeNode{} }

// Add sums its operands. At least one operand is required.
func Add(terms ...Expr) Expr {
	if len(terms) == 0 {
		panic("ocp: Add needs at least one operand")
	}
	e := terms[0]
	for _, t := range terms[1:] {
		e = binNode{op: '+', a: e, b: t}
	}
	return e
}

// Sub returns a - b.
func Sub(a, b Expr) Expr { return binNode{op: '-', a: a, b: b} }

// Mul multiplies its operands. At least one operand is required.
func Mul(factors ...Expr) Expr {
	if len(factors) == 0 {
		panic("ocp: Mul needs at least one operand")
	}
	e := factors[0]
	for _, f := range factors[1:] {
		e = binNode{op: '*', a: e, b: f}
	}
	return e
}

// Div returns a / b.
func Div(a, b Expr) Expr { return binNode{op: '/', a: a, b: b} }

// Neg returns -a.
func Neg(a Expr) Expr { return binNode{op: '-', a: constNode(0), b: a} }

// Scale returns c * a.
func Scale(c float64, a Expr) Expr { return binNode{op: '*', a: constNode(c), b: a} }

// Pow returns a raised to the constant exponent p.
func Pow(a Expr, p float64) Expr { return powNode{base: a, exp: p} }

// Square returns a².
func Square(a Expr) Expr { return powNode{base: a, exp: 2} }

func Sin(a Expr) Expr {
	return unaryNode{name: "sin", arg: a, f: math.Sin, df: math.Cos}
}

func Cos(a Expr) Expr {
	return unaryNode{name: "cos", arg: a, f: math.Cos, df: func(x float64) float64 { return -math.Sin(x) }}
}

func Exp(a Expr) Expr {
	return unaryNode{name: "exp", arg: a, f: math.Exp, df: math.Exp}
}

func Log(a Expr) Expr {
	return unaryNode{name: "log", arg: a, f: math.Log, df: func(x float64) float64 { return 1 / x }}
}

func Sqrt(a Expr) Expr {
	return unaryNode{name: "sqrt", arg: a, f: math.Sqrt, df: func(x float64) float64 { return 0.5 / math.Sqrt(x) }}
}

// maxVarIndex walks the tree and reports the largest referenced index per
// variable group, or -1 when a group is never referenced.
func maxVarIndex(e Expr) (state, control, param int) {
	state, control, param = -1, -1, -1
	var walk func(Expr)
	walk = func(e Expr) {
		switch n := e.(type) {
		case varNode:
			switch n.kind {
			case KindState:
				if n.index > state {
					state = n.index
				}
			case KindControl:
				if n.index > control {
					control = n.index
				}
			default:
				if n.index > param {
					param = n.index
				}
			}
		case binNode:
			walk(n.a)
			walk(n.b)
		case unaryNode:
			walk(n.arg)
		case powNode:
			walk(n.base)
		}
	}
	walk(e)
	return state, control, param
}
