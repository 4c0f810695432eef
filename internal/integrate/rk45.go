package integrate

import (
	"math"

	"github.com/RobotXiaoFeng/acado/internal/ocp"
	"gonum.org/v1/gonum/mat"
)

// Dormand-Prince 5(4) coefficients.
var (
	a2 = 1.0 / 5.0
	a3 = 3.0 / 10.0
	a4 = 4.0 / 5.0
	a5 = 8.0 / 9.0

	b21 = 1.0 / 5.0
	b31 = 3.0 / 40.0
	b32 = 9.0 / 40.0
	b41 = 44.0 / 45.0
	b42 = -56.0 / 15.0
	b43 = 32.0 / 9.0
	b51 = 19372.0 / 6561.0
	b52 = -25360.0 / 2187.0
	b53 = 64448.0 / 6561.0
	b54 = -212.0 / 729.0
	b61 = 9017.0 / 3168.0
	b62 = -355.0 / 33.0
	b63 = 46732.0 / 5247.0
	b64 = 49.0 / 176.0
	b65 = -5103.0 / 18656.0

	c1 = 35.0 / 384.0
	c3 = 500.0 / 1113.0
	c4 = 125.0 / 192.0
	c5 = -2187.0 / 6784.0
	c6 = 11.0 / 84.0

	dc1 = c1 - 5179.0/57600.0
	dc3 = c3 - 7571.0/16695.0
	dc4 = c4 - 393.0/640.0
	dc5 = c5 - -92097.0/339200.0
	dc6 = c6 - 187.0/2100.0
	dc7 = -1.0 / 40.0
)

// Config controls the adaptive stepping inside one interval.
type Config struct {
	Tolerance   float64 // local error tolerance, relative scaling built in
	InitialStep float64 // first sub-step in normalized time
	MinStep     float64 // abort threshold in normalized time
	MaxSteps    int     // sub-step budget per interval
}

func DefaultConfig() Config {
	return Config{
		Tolerance:   1e-8,
		InitialStep: 0.1,
		MinStep:     1e-10,
		MaxSteps:    2000,
	}
}

// Stats reports the stepping effort of one interval propagation.
type Stats struct {
	Steps    int
	Rejected int
	Evals    int
}

// Sensitivity is the interval result: the propagated end state and the
// Jacobians of the end state with respect to the interval inputs. Su and Sp
// are nil when the problem has no controls or no parameters.
type Sensitivity struct {
	XEnd       ocp.Vector
	Sx, Su, Sp *mat.Dense
	Stats      Stats
}

// Integrator propagates shooting intervals of a fixed problem. It is
// stateless apart from the configuration; concurrent Interval calls on the
// same Integrator are safe.
type Integrator struct {
	dyn     ocp.Dynamics
	horizon ocp.Horizon
	n       int
	cfg     Config

	nx, nu, np int
	hIdx       int // parameter index of the free horizon, -1 when fixed
}

func New(dyn ocp.Dynamics, horizon ocp.Horizon, intervals int, cfg Config) *Integrator {
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = DefaultConfig().Tolerance
	}
	if cfg.InitialStep <= 0 {
		cfg.InitialStep = DefaultConfig().InitialStep
	}
	if cfg.MinStep <= 0 {
		cfg.MinStep = DefaultConfig().MinStep
	}
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = DefaultConfig().MaxSteps
	}
	hIdx := -1
	if horizon.Free {
		hIdx = horizon.Param.Offset
	}
	return &Integrator{
		dyn:     dyn,
		horizon: horizon,
		n:       intervals,
		cfg:     cfg,
		nx:      dyn.StateDim(),
		nu:      dyn.ControlDim(),
		np:      dyn.ParamDim(),
		hIdx:    hIdx,
	}
}

// Length returns the physical interval length h for the given parameters.
func (it *Integrator) Length(p ocp.Vector) float64 {
	if it.hIdx >= 0 {
		return p[it.hIdx] / float64(it.n)
	}
	return it.horizon.Fixed / float64(it.n)
}

// dim of the augmented vector: state + Sx + Su + Sp, row-major blocks.
func (it *Integrator) augDim(withSens bool) int {
	if !withSens {
		return it.nx
	}
	return it.nx * (1 + it.nx + it.nu + it.np)
}

// Interval propagates interval i from x0 with control u, returning the end
// state and its sensitivities.
func (it *Integrator) Interval(i int, x0, u, p ocp.Vector) (*Sensitivity, error) {
	w := newWork(it)
	y := make([]float64, it.augDim(true))
	copy(y, x0)
	// seed ∂x/∂x = I
	for k := 0; k < it.nx; k++ {
		y[it.nx+k*it.nx+k] = 1
	}

	stats, err := it.propagate(i, y, u, p, true, w)
	if err != nil {
		return nil, err
	}

	s := &Sensitivity{XEnd: ocp.Vector(y[:it.nx]).Clone(), Stats: *stats}
	off := it.nx
	s.Sx = mat.NewDense(it.nx, it.nx, append([]float64(nil), y[off:off+it.nx*it.nx]...))
	off += it.nx * it.nx
	if it.nu > 0 {
		s.Su = mat.NewDense(it.nx, it.nu, append([]float64(nil), y[off:off+it.nx*it.nu]...))
		off += it.nx * it.nu
	}
	if it.np > 0 {
		s.Sp = mat.NewDense(it.nx, it.np, append([]float64(nil), y[off:off+it.nx*it.np]...))
	}
	return s, nil
}

// Propagate integrates interval i without sensitivities. Used by the merit
// function during line search where only residuals are needed.
func (it *Integrator) Propagate(i int, x0, u, p ocp.Vector) (ocp.Vector, error) {
	w := newWork(it)
	y := make([]float64, it.nx)
	copy(y, x0)
	if _, err := it.propagate(i, y, u, p, false, w); err != nil {
		return nil, err
	}
	return ocp.Vector(y).Clone(), nil
}

const (
	safety   = 0.9
	minScale = 0.2
	maxScale = 5.0
)

func (it *Integrator) propagate(i int, y []float64, u, p ocp.Vector, sens bool, w *work) (*Stats, error) {
	var stats Stats
	tau := 0.0
	dt := it.cfg.InitialStep

	for tau < 1.0 {
		if stats.Steps+stats.Rejected >= it.cfg.MaxSteps {
			return nil, &StepError{Interval: i, Tau: tau, Step: stats.Steps, Wrapped: ErrDiverged}
		}
		if tau+dt > 1.0 {
			dt = 1.0 - tau
		}

		errRatio, err := it.step(i, tau, dt, y, u, p, sens, w, &stats)
		if err != nil {
			return nil, &StepError{Interval: i, Tau: tau, Step: stats.Steps, Wrapped: err}
		}

		if errRatio > 1 {
			stats.Rejected++
			dt *= math.Max(minScale, safety*math.Pow(errRatio, -0.25))
			if dt < it.cfg.MinStep {
				return nil, &StepError{Interval: i, Tau: tau, Step: stats.Steps, Wrapped: ErrDiverged}
			}
			continue
		}

		copy(y, w.yNew)
		tau += dt
		stats.Steps++

		if errRatio > 0 {
			dt *= math.Min(maxScale, safety*math.Pow(errRatio, -0.2))
		} else {
			dt *= maxScale
		}
	}
	return &stats, nil
}

// step performs one trial Dormand-Prince step of size dt from tau and
// returns the local error ratio (err/tol). w.yNew holds the candidate.
func (it *Integrator) step(i int, tau, dt float64, y []float64, u, p ocp.Vector, sens bool, w *work, stats *Stats) (float64, error) {
	n := it.augDim(sens)

	deriv := func(tau float64, y, dy []float64) error {
		stats.Evals++
		return it.deriv(i, tau, y, u, p, sens, w, dy)
	}

	if err := deriv(tau, y, w.k1); err != nil {
		return 0, err
	}
	for j := 0; j < n; j++ {
		w.yTmp[j] = y[j] + dt*b21*w.k1[j]
	}
	if err := deriv(tau+a2*dt, w.yTmp, w.k2); err != nil {
		return 0, err
	}
	for j := 0; j < n; j++ {
		w.yTmp[j] = y[j] + dt*(b31*w.k1[j]+b32*w.k2[j])
	}
	if err := deriv(tau+a3*dt, w.yTmp, w.k3); err != nil {
		return 0, err
	}
	for j := 0; j < n; j++ {
		w.yTmp[j] = y[j] + dt*(b41*w.k1[j]+b42*w.k2[j]+b43*w.k3[j])
	}
	if err := deriv(tau+a4*dt, w.yTmp, w.k4); err != nil {
		return 0, err
	}
	for j := 0; j < n; j++ {
		w.yTmp[j] = y[j] + dt*(b51*w.k1[j]+b52*w.k2[j]+b53*w.k3[j]+b54*w.k4[j])
	}
	if err := deriv(tau+a5*dt, w.yTmp, w.k5); err != nil {
		return 0, err
	}
	for j := 0; j < n; j++ {
		w.yTmp[j] = y[j] + dt*(b61*w.k1[j]+b62*w.k2[j]+b63*w.k3[j]+b64*w.k4[j]+b65*w.k5[j])
	}
	if err := deriv(tau+dt, w.yTmp, w.k6); err != nil {
		return 0, err
	}
	for j := 0; j < n; j++ {
		w.yNew[j] = y[j] + dt*(c1*w.k1[j]+c3*w.k3[j]+c4*w.k4[j]+c5*w.k5[j]+c6*w.k6[j])
	}
	if err := deriv(tau+dt, w.yNew, w.k7); err != nil {
		return 0, err
	}

	// Error control on the trajectory components only; the variational
	// blocks follow the same sub-steps.
	errMax := 0.0
	for j := 0; j < it.nx; j++ {
		errEst := dt * (dc1*w.k1[j] + dc3*w.k3[j] + dc4*w.k4[j] + dc5*w.k5[j] + dc6*w.k6[j] + dc7*w.k7[j])
		scale := math.Abs(y[j]) + math.Abs(dt*w.k1[j]) + 1e-10
		errMax = math.Max(errMax, math.Abs(errEst)/scale)
	}
	return errMax / it.cfg.Tolerance, nil
}

// work holds per-call scratch so Interval calls are independent.
type work struct {
	k1, k2, k3, k4, k5, k6, k7 []float64
	yTmp, yNew                 []float64

	f          ocp.Vector
	jx, ju, jp *mat.Dense
}

func newWork(it *Integrator) *work {
	n := it.augDim(true)
	return &work{
		k1: make([]float64, n), k2: make([]float64, n), k3: make([]float64, n),
		k4: make([]float64, n), k5: make([]float64, n), k6: make([]float64, n),
		k7:   make([]float64, n),
		yTmp: make([]float64, n), yNew: make([]float64, n),
		f:  make(ocp.Vector, it.nx),
		jx: ocp.NewJacobian(it.nx, it.nx),
		ju: ocp.NewJacobian(it.nx, it.nu),
		jp: ocp.NewJacobian(it.nx, it.np),
	}
}

// deriv evaluates the scaled right-hand side of the augmented system at
// normalized interval time tau.
func (it *Integrator) deriv(i int, tau float64, y []float64, u, p ocp.Vector, sens bool, w *work, dy []float64) error {
	nx, nu, np := it.nx, it.nu, it.np
	h := it.Length(p)
	t := (float64(i) + tau) * h

	x := ocp.Vector(y[:nx])
	if err := it.dyn.Eval(x, u, p, t, w.f); err != nil {
		return err
	}
	if !w.f.IsFinite() {
		return ErrNotFinite
	}
	for j := 0; j < nx; j++ {
		dy[j] = h * w.f[j]
	}
	if !sens {
		return nil
	}

	if err := it.dyn.Jacobians(x, u, p, t, w.jx, w.ju, w.jp); err != nil {
		return err
	}

	// d/dτ Sx = h·fx·Sx
	off := nx
	for r := 0; r < nx; r++ {
		for c := 0; c < nx; c++ {
			sum := 0.0
			for k := 0; k < nx; k++ {
				sum += w.jx.At(r, k) * y[off+k*nx+c]
			}
			dy[off+r*nx+c] = h * sum
		}
	}

	// d/dτ Su = h·(fx·Su + fu)
	off += nx * nx
	for r := 0; r < nx; r++ {
		for c := 0; c < nu; c++ {
			sum := w.ju.At(r, c)
			for k := 0; k < nx; k++ {
				sum += w.jx.At(r, k) * y[off+k*nu+c]
			}
			dy[off+r*nu+c] = h * sum
		}
	}

	// d/dτ Sp = h·(fx·Sp + fp) + (∂h/∂p)·f. The horizon parameter enters
	// through the interval length; the dynamics are treated as autonomous
	// for this extra term.
	off += nx * nu
	for r := 0; r < nx; r++ {
		for c := 0; c < np; c++ {
			sum := w.jp.At(r, c)
			for k := 0; k < nx; k++ {
				sum += w.jx.At(r, k) * y[off+k*np+c]
			}
			d := h * sum
			if c == it.hIdx {
				d += w.f[r] / float64(it.n)
			}
			dy[off+r*np+c] = d
		}
	}
	return nil
}
