// Package sqp iterates the multiple-shooting SQP loop: integrate the
// intervals with sensitivities, assemble the structured quadratic
// subproblem, solve it, and globalize the step with an L1 merit line
// search until the KKT residual drops below tolerance.
package sqp

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/RobotXiaoFeng/acado/internal/integrate"
	"github.com/RobotXiaoFeng/acado/internal/nlp"
	"github.com/RobotXiaoFeng/acado/internal/ocp"
	"github.com/RobotXiaoFeng/acado/internal/qp"
	"github.com/RobotXiaoFeng/acado/internal/transcribe"
)

// Options tune one solve. Zero values fall back to the defaults.
type Options struct {
	Intervals       int
	MaxIterations   int
	KKTTolerance    float64
	QPKind          qp.Kind
	Integrator      integrate.Config
	Levenberg       float64
	DivergenceBound float64

	// RealTime runs exactly one iteration, for receding-horizon use
	// with warm starts between calls.
	RealTime bool

	// L1 merit line search.
	Armijo        float64
	Backtrack     float64
	MaxLineTrials int
	PenaltyMargin float64

	// OnIteration, when set, receives each record as it is produced.
	OnIteration func(IterationRecord)
}

func DefaultOptions() Options {
	return Options{
		Intervals:       20,
		MaxIterations:   50,
		KKTTolerance:    1e-6,
		QPKind:          qp.KindCondensing,
		Integrator:      integrate.DefaultConfig(),
		Levenberg:       1e-8,
		DivergenceBound: 1e7,
		Armijo:          1e-4,
		Backtrack:       0.5,
		MaxLineTrials:   10,
		PenaltyMargin:   1,
	}
}

func (o *Options) fillDefaults() {
	d := DefaultOptions()
	if o.Intervals <= 0 {
		o.Intervals = d.Intervals
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = d.MaxIterations
	}
	if o.KKTTolerance <= 0 {
		o.KKTTolerance = d.KKTTolerance
	}
	if o.QPKind == "" {
		o.QPKind = d.QPKind
	}
	if o.Integrator.Tolerance <= 0 {
		o.Integrator = d.Integrator
	}
	if o.Levenberg <= 0 {
		o.Levenberg = d.Levenberg
	}
	if o.DivergenceBound <= 0 {
		o.DivergenceBound = d.DivergenceBound
	}
	if o.Armijo <= 0 {
		o.Armijo = d.Armijo
	}
	if o.Backtrack <= 0 || o.Backtrack >= 1 {
		o.Backtrack = d.Backtrack
	}
	if o.MaxLineTrials <= 0 {
		o.MaxLineTrials = d.MaxLineTrials
	}
	if o.PenaltyMargin <= 0 {
		o.PenaltyMargin = d.PenaltyMargin
	}
}

// Engine solves one problem repeatedly; it keeps no state between
// solves, so warm starting is a matter of passing the previous iterate.
type Engine struct {
	prob *ocp.Problem
	opts Options
	l    transcribe.Layout
	asm  *nlp.Assembler
}

func New(prob *ocp.Problem, opts Options) (*Engine, error) {
	if err := prob.Validate(); err != nil {
		return nil, err
	}
	opts.fillDefaults()
	l := transcribe.NewLayout(prob, opts.Intervals)
	return &Engine{
		prob: prob,
		opts: opts,
		l:    l,
		asm:  nlp.NewAssembler(prob, l, opts.Levenberg),
	}, nil
}

func (e *Engine) Layout() transcribe.Layout { return e.l }

// InitialIterate builds the cold-start guess for this engine's grid.
func (e *Engine) InitialIterate() ocp.Vector {
	return transcribe.InitialIterate(e.prob, e.l)
}

// Solve runs the SQP loop from guess (nil for a cold start) until
// convergence, divergence, iteration exhaustion or context cancellation.
func (e *Engine) Solve(ctx context.Context, guess ocp.Vector) (*Result, error) {
	l := e.l
	var z ocp.Vector
	if guess == nil {
		z = e.InitialIterate()
	} else {
		if len(guess) != l.Dim() {
			return nil, fmt.Errorf("sqp: guess has %d entries, layout needs %d", len(guess), l.Dim())
		}
		z = guess.Clone()
	}

	it := integrate.New(e.prob.Dynamics(), e.prob.Horizon(), l.N, e.opts.Integrator)
	res := &Result{Layout: l}
	start := time.Now()

	maxIter := e.opts.MaxIterations
	if e.opts.RealTime {
		maxIter = 1
	}
	rho := e.opts.PenaltyMargin
	status := StatusMaxIter

loop:
	for iter := 0; iter < maxIter; iter++ {
		select {
		case <-ctx.Done():
			status = StatusTimedOut
			break loop
		default:
		}

		sens, err := e.shoot(it, z)
		if err != nil {
			// one retry with an adjusted stepping policy before giving
			// up: a non-finite right-hand side means the iterate grazes
			// the dynamics' domain edge, so force smaller steps through
			// it; an exhausted sub-step budget keeps the accuracy and
			// buys more steps.
			retry := e.opts.Integrator
			if errors.Is(err, integrate.ErrNotFinite) {
				retry.Tolerance /= 100
			} else {
				retry.MaxSteps *= 4
			}
			res.Stats.Restorations++
			retryIt := integrate.New(e.prob.Dynamics(), e.prob.Horizon(), l.N, retry)
			sens, err = e.shoot(retryIt, z)
			if err != nil {
				status = StatusDiverged
				break loop
			}
			it = retryIt
		}
		for _, s := range sens {
			res.Stats.absorb(&s.Stats)
		}

		data := e.asm.Build(z, sens)
		sol, err := qp.Solve(data, e.opts.QPKind)
		res.Stats.QPSolves++
		for errors.Is(err, qp.ErrInfeasible) && relaxWorstBound(data) {
			res.Stats.Restorations++
			sol, err = qp.Solve(data, e.opts.QPKind)
			res.Stats.QPSolves++
		}
		if err != nil {
			status = StatusDiverged
			break loop
		}

		stat, compl := kktResidual(data, sol)
		eq, ineq := data.TotalViolation()
		kkt := math.Max(math.Max(stat, compl), eq+ineq)
		res.KKT = kkt

		rec := IterationRecord{
			Iter:      iter,
			Objective: data.Objective,
			KKT:       kkt,
			EqViol:    eq,
			IneqViol:  ineq,
			Penalty:   rho,
			Elapsed:   time.Since(start),
		}

		if kkt <= e.opts.KKTTolerance {
			status = StatusConverged
			e.record(res, rec)
			break loop
		}

		if needed := multInf(sol) + e.opts.PenaltyMargin; needed > rho {
			rho = needed
		}
		rec.Penalty = rho

		phi0 := data.Objective + rho*(eq+ineq)
		dir := dot(data.G, sol.Step) - rho*(eq+ineq)
		var lsErr error
		z, rec.StepSize, lsErr = e.lineSearch(it, z, sol.Step, phi0, dir, rho)
		rec.StepNorm = rec.StepSize * sol.Step.NormInf()
		e.record(res, rec)
		if lsErr != nil {
			status = StatusDiverged
			break loop
		}

		if !z.IsFinite() || z.NormInf() > e.opts.DivergenceBound {
			status = StatusDiverged
			break loop
		}
	}

	res.Status = status
	res.Iterate = z
	res.Objective = nlp.Objective(e.prob, l, z)
	res.Stats.Iterations = len(res.Iterations)
	res.Stats.Wall = time.Since(start)
	res.finalize(e.prob)
	return res, nil
}

func (e *Engine) record(res *Result, rec IterationRecord) {
	res.Iterations = append(res.Iterations, rec)
	if e.opts.OnIteration != nil {
		e.opts.OnIteration(rec)
	}
}

// relaxWorstBound widens the single step bound farthest from admitting
// δ = 0, so repeated restoration touches only the bounds it must. It
// reports false once every bound already contains the zero step; the
// remaining infeasibility then sits in the constraint rows and cannot
// be restored away.
func relaxWorstBound(data *nlp.QPData) bool {
	worst, excess := -1, 0.0
	for k := range data.DLower {
		if data.DLower[k] > excess {
			worst, excess = k, data.DLower[k]
		}
		if -data.DUpper[k] > excess {
			worst, excess = k, -data.DUpper[k]
		}
	}
	if worst < 0 {
		return false
	}
	if data.DLower[worst] > 0 {
		data.DLower[worst] = 0
	}
	if data.DUpper[worst] < 0 {
		data.DUpper[worst] = 0
	}
	return true
}

func multInf(sol *qp.Solution) float64 {
	m := 0.0
	for _, lam := range sol.Cont {
		m = math.Max(m, lam.NormInf())
	}
	m = math.Max(m, sol.Rows.NormInf())
	m = math.Max(m, sol.Bounds.NormInf())
	return m
}

func dot(a, b ocp.Vector) float64 {
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
