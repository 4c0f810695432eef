// Package ocp describes continuous-time optimal control problems.
//
// A problem is assembled through the builder methods on [Problem]:
//
//   - [Problem.AddState], [Problem.AddControl], [Problem.AddParameter]
//     declare variables and assign stable indices
//   - [Problem.SetDynamics] attaches the right-hand side dx/dt = f(x,u,p,t)
//   - [Problem.SetQuadraticCost], [Problem.SetLagrangeTerm],
//     [Problem.SetMayerTerm] define the objective
//   - [Problem.Constrain] and [Problem.Bound] add tagged constraints
//
// Dynamics, cost integrands and constraint residuals are expressed either
// through [Expr] trees (see [Add], [Mul], [Sin], ...) or through plain Go
// closures wrapped in [FuncDynamics].
//
// [Problem.Validate] freezes the model. Everything downstream (transcription,
// integration, the SQP iteration) treats a validated problem as immutable.
package ocp
