package sqp

import (
	"time"

	"github.com/RobotXiaoFeng/acado/internal/integrate"
	"github.com/RobotXiaoFeng/acado/internal/ocp"
	"github.com/RobotXiaoFeng/acado/internal/transcribe"
)

// Status is the terminal state of a solve.
type Status string

const (
	StatusConverged Status = "CONVERGED"
	StatusMaxIter   Status = "MAX_ITER_REACHED"
	StatusDiverged  Status = "DIVERGED"
	StatusTimedOut  Status = "TIMED_OUT"
)

// Terminal reports whether further iterations could still improve the
// iterate. MAX_ITER_REACHED is the only status worth warm-starting from.
func (s Status) Terminal() bool { return s != StatusMaxIter }

// IterationRecord captures one major iteration for logging, storage and
// the live view.
type IterationRecord struct {
	Iter      int           `json:"iter"`
	Objective float64       `json:"objective"`
	KKT       float64       `json:"kkt"`
	EqViol    float64       `json:"eq_violation"`
	IneqViol  float64       `json:"ineq_violation"`
	StepNorm  float64       `json:"step_norm"`
	StepSize  float64       `json:"step_size"`
	Penalty   float64       `json:"penalty"`
	Elapsed   time.Duration `json:"elapsed"`
}

// Stats aggregates work counters over the whole solve.
type Stats struct {
	Iterations   int           `json:"iterations"`
	QPSolves     int           `json:"qp_solves"`
	Integrations int           `json:"integrations"`
	RHSEvals     int           `json:"rhs_evals"`
	Restorations int           `json:"restorations"`
	Wall         time.Duration `json:"wall"`
}

func (st *Stats) absorb(is *integrate.Stats) {
	st.Integrations++
	st.RHSEvals += is.Evals
}

// Result is the outcome of a solve: the final iterate split back into
// per-node trajectories, the convergence history and the work counters.
type Result struct {
	Status    Status
	Objective float64
	KKT       float64

	Layout     transcribe.Layout
	Iterate    ocp.Vector
	Times      []float64
	States     []ocp.Vector // N+1 rows
	Controls   []ocp.Vector // N rows
	Parameters ocp.Vector

	Iterations []IterationRecord
	Stats      Stats
}

func (r *Result) finalize(prob *ocp.Problem) {
	l := r.Layout
	r.Parameters = l.Params(r.Iterate).Clone()
	r.Times = transcribe.NodeTimes(prob, l, r.Parameters)
	r.States = make([]ocp.Vector, l.N+1)
	for i := 0; i <= l.N; i++ {
		r.States[i] = l.State(r.Iterate, i).Clone()
	}
	r.Controls = make([]ocp.Vector, l.N)
	for i := 0; i < l.N; i++ {
		r.Controls[i] = l.Control(r.Iterate, i).Clone()
	}
}
