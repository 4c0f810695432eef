package ocp

import "math"

// Validate checks the model for consistency and freezes it. It returns a
// *DefinitionError wrapping one of the package sentinels on the first
// problem found. No numeric work happens before validation passes.
func (p *Problem) Validate() error {
	if p.validated {
		return nil
	}

	if p.nx == 0 {
		return defErr(ErrDimensionMismatch, "no states declared")
	}
	if p.dyn == nil {
		return defErr(ErrMissingDynamics, "call SetDynamics before Validate")
	}
	if p.dyn.StateDim() != p.nx || p.dyn.ControlDim() != p.nu || p.dyn.ParamDim() != p.np {
		return defErr(ErrDimensionMismatch,
			"dynamics is (%d,%d,%d), declared variables are (%d,%d,%d)",
			p.dyn.StateDim(), p.dyn.ControlDim(), p.dyn.ParamDim(), p.nx, p.nu, p.np)
	}

	if err := p.checkHorizon(); err != nil {
		return err
	}

	for _, group := range [][]Variable{p.states, p.controls, p.params} {
		for _, v := range group {
			for i := 0; i < v.Dim; i++ {
				if v.Lower[i] > v.Upper[i] {
					return defErr(ErrInfeasibleBound, "%s %s[%d]: %g > %g",
						v.Kind, v.Name, i, v.Lower[i], v.Upper[i])
				}
			}
			if v.Guess != nil && len(v.Guess) != v.Dim {
				return defErr(ErrDimensionMismatch, "guess for %s has %d entries, want %d",
					v.Name, len(v.Guess), v.Dim)
			}
		}
	}

	for k, c := range p.cons {
		if c.Lower > c.Upper {
			return defErr(ErrInfeasibleBound, "%s constraint %d: %g > %g", c.Role, k, c.Lower, c.Upper)
		}
		if c.Role == RoleBox {
			if v := p.variable(c.Ref); v == nil || c.Comp < 0 || c.Comp >= v.Dim {
				return defErr(ErrUnknownVariable, "box constraint %d", k)
			}
			continue
		}
		if c.Expr == nil {
			return defErr(ErrUnknownVariable, "%s constraint %d has no expression", c.Role, k)
		}
		if err := p.checkExpr(c.Expr); err != nil {
			return err
		}
	}

	if err := p.checkCost(); err != nil {
		return err
	}

	p.validated = true
	return nil
}

func (p *Problem) checkHorizon() error {
	h := p.horizon
	if !h.Free {
		if h.Fixed <= 0 {
			return defErr(ErrMissingHorizon, "fixed horizon must be positive, got %g", h.Fixed)
		}
		return nil
	}
	if h.Param.Kind != KindParameter || h.Param.Dim != 1 {
		return defErr(ErrUnknownVariable, "free horizon must be a scalar parameter")
	}
	v := p.variable(h.Param)
	if v == nil {
		return defErr(ErrUnknownVariable, "free horizon parameter not declared")
	}
	if math.IsInf(v.Lower[0], 0) || math.IsInf(v.Upper[0], 0) || v.Lower[0] <= 0 {
		return defErr(ErrInfeasibleBound,
			"free horizon parameter %s needs finite positive bounds", v.Name)
	}
	return nil
}

func (p *Problem) checkExpr(e Expr) error {
	sx, su, sp := maxVarIndex(e)
	if sx >= p.nx {
		return defErr(ErrUnknownVariable, "expression references state %d, have %d", sx, p.nx)
	}
	if su >= p.nu {
		return defErr(ErrUnknownVariable, "expression references control %d, have %d", su, p.nu)
	}
	if sp >= p.np {
		return defErr(ErrUnknownVariable, "expression references parameter %d, have %d", sp, p.np)
	}
	return nil
}

func (p *Problem) checkCost() error {
	c := &p.cost
	if c.Q == nil && c.R == nil && c.P == nil && c.Lagrange == nil && c.Mayer == nil && c.ParamLin == nil {
		return defErr(ErrDimensionMismatch, "no cost term set")
	}
	if c.Q != nil && c.Q.SymmetricDim() != p.nx {
		return defErr(ErrDimensionMismatch, "Q is %d×%d, want %d", c.Q.SymmetricDim(), c.Q.SymmetricDim(), p.nx)
	}
	if c.R != nil && c.R.SymmetricDim() != p.nu {
		return defErr(ErrDimensionMismatch, "R is %d×%d, want %d", c.R.SymmetricDim(), c.R.SymmetricDim(), p.nu)
	}
	if c.P != nil && c.P.SymmetricDim() != p.nx {
		return defErr(ErrDimensionMismatch, "P is %d×%d, want %d", c.P.SymmetricDim(), c.P.SymmetricDim(), p.nx)
	}
	if c.ParamLin != nil && len(c.ParamLin) != p.np {
		return defErr(ErrDimensionMismatch, "parameter cost has %d entries, want %d", len(c.ParamLin), p.np)
	}
	if c.XRef != nil && len(c.XRef) != 0 && len(c.XRef) != p.nx {
		return defErr(ErrDimensionMismatch, "state reference has %d entries, want %d", len(c.XRef), p.nx)
	}
	if c.URef != nil && len(c.URef) != 0 && len(c.URef) != p.nu {
		return defErr(ErrDimensionMismatch, "control reference has %d entries, want %d", len(c.URef), p.nu)
	}
	if c.XRefT != nil && len(c.XRefT) != 0 && len(c.XRefT) != p.nx {
		return defErr(ErrDimensionMismatch, "terminal reference has %d entries, want %d", len(c.XRefT), p.nx)
	}
	if c.Lagrange != nil {
		if err := p.checkExpr(c.Lagrange); err != nil {
			return err
		}
	}
	if c.Mayer != nil {
		if err := p.checkExpr(c.Mayer); err != nil {
			return err
		}
	}
	return nil
}
