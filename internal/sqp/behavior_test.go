package sqp_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/RobotXiaoFeng/acado/internal/models"
	"github.com/RobotXiaoFeng/acado/internal/sqp"
)

var _ = Describe("Engine", func() {
	newEngine := func(mutate func(*sqp.Options)) *sqp.Engine {
		opts := sqp.DefaultOptions()
		opts.Intervals = 10
		if mutate != nil {
			mutate(&opts)
		}
		e, err := sqp.New(models.NewDoubleIntegrator().Problem(), opts)
		Expect(err).NotTo(HaveOccurred())
		return e
	}

	It("converges on the rest-to-rest transfer", func() {
		res, err := newEngine(nil).Solve(context.Background(), nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Status).To(Equal(sqp.StatusConverged))
		Expect(res.KKT).To(BeNumerically("<=", 1e-6))
		Expect(res.Objective).To(BeNumerically("~", 12, 0.5))
	})

	It("reports every iteration in order", func() {
		res, err := newEngine(nil).Solve(context.Background(), nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Iterations).NotTo(BeEmpty())
		for i, rec := range res.Iterations {
			Expect(rec.Iter).To(Equal(i))
		}
		Expect(res.Stats.QPSolves).To(BeNumerically(">=", len(res.Iterations)))
	})

	It("stops at the iteration budget without losing the iterate", func() {
		e := newEngine(func(o *sqp.Options) { o.MaxIterations = 1 })
		res, err := e.Solve(context.Background(), nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Status).To(Equal(sqp.StatusMaxIter))
		Expect(res.Iterate).To(HaveLen(e.Layout().Dim()))
	})

	It("honors context deadlines", func() {
		ctx, cancel := context.WithDeadline(context.Background(), time.Now())
		defer cancel()
		res, err := newEngine(nil).Solve(ctx, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Status).To(Equal(sqp.StatusTimedOut))
	})

	It("accepts its own iterate as a warm start", func() {
		e := newEngine(func(o *sqp.Options) { o.MaxIterations = 2 })
		first, err := e.Solve(context.Background(), nil)
		Expect(err).NotTo(HaveOccurred())

		second, err := e.Solve(context.Background(), first.Iterate)
		Expect(err).NotTo(HaveOccurred())
		Expect(second.Status).To(BeElementOf(sqp.StatusConverged, sqp.StatusMaxIter))
	})
})
