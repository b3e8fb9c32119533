package sim_test

import (
	"context"
	"errors"
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/tanksim/internal/control"
	"github.com/san-kum/tanksim/internal/dynamo"
	"github.com/san-kum/tanksim/internal/integrators"
	"github.com/san-kum/tanksim/internal/physics"
	"github.com/san-kum/tanksim/internal/sim"
)

// countingController returns 0.1 times the number of times it was sampled.
type countingController struct {
	period float64
	calls  int
	seen   []int
}

func (c *countingController) SamplingPeriod() float64 { return c.period }

func (c *countingController) CalculateAction(states, times []float64, _ float64) (float64, error) {
	c.calls++
	c.seen = append(c.seen, len(states))
	Expect(times).To(HaveLen(len(states)))
	return 0.1 * float64(c.calls), nil
}

type failingController struct {
	after int
	calls int
	err   error
}

func (c *failingController) SamplingPeriod() float64 { return 0.1 }

func (c *failingController) CalculateAction(_, _ []float64, _ float64) (float64, error) {
	c.calls++
	if c.calls > c.after {
		return 0, c.err
	}
	return 0.5, nil
}

// blockingController parks inside its first sample until released.
type blockingController struct {
	entered chan struct{}
	release chan struct{}
}

func (c *blockingController) SamplingPeriod() float64 { return 0.1 }

func (c *blockingController) CalculateAction(_, _ []float64, _ float64) (float64, error) {
	if c.entered != nil {
		close(c.entered)
		c.entered = nil
		<-c.release
	}
	return 0, nil
}

// flooredStepper never proposes a step above the minimum.
type flooredStepper struct{ integrators.RK45 }

func (f *flooredStepper) StepAdaptive(d dynamo.Derivative, x, dt, tol float64, step dynamo.Bounds) (float64, float64) {
	return x, sim.MinStep
}

type sampleCounter struct{ n int }

func (m *sampleCounter) Name() string           { return "samples" }
func (m *sampleCounter) Observe(dynamo.Sample)  { m.n++ }
func (m *sampleCounter) Value() float64         { return float64(m.n) }
func (m *sampleCounter) Reset()                 { m.n = 0 }
func (m *sampleCounter) OnSample(dynamo.Sample) { m.n++ }

func drainExact(k1, h0, t float64) float64 {
	r := math.Sqrt(h0) - k1*t/2
	return r * r
}

var _ = Describe("Simulator", func() {
	var (
		tank *physics.WaterTank
		ctx  context.Context
	)

	BeforeEach(func() {
		var err error
		tank, err = physics.NewWaterTank(nil)
		Expect(err).NotTo(HaveOccurred())
		ctx = context.Background()
	})

	Describe("without a controller", func() {
		It("drains the tank with zero actions", func() {
			s := sim.New(tank, integrators.NewRK4())

			res, err := s.Run(ctx, sim.Config{TotalTime: 6, Dt: 0.01, X0: 1}, nil)

			Expect(err).NotTo(HaveOccurred())
			for _, u := range res.Actions() {
				Expect(u).To(BeZero())
			}
			final := res.Final()
			Expect(final.State).To(BeNumerically("~", drainExact(tank.K1(), 1, final.Time), 1e-8))
			Expect(s.Status()).To(Equal(sim.StatusFinished))
		})

		It("records aligned columns seeded with the initial condition", func() {
			res, err := sim.New(tank, integrators.NewRK4()).
				Run(ctx, sim.Config{TotalTime: 1, Dt: 0.25, X0: 0.4, Setpoint: 0.7}, nil)

			Expect(err).NotTo(HaveOccurred())
			Expect(res.Len()).To(Equal(5))
			Expect(res.Times()).To(Equal([]float64{0, 0.25, 0.5, 0.75, 1}))
			first := res.At(0)
			Expect(first.Time).To(BeZero())
			Expect(first.State).To(Equal(0.4))
			Expect(first.Error).To(BeNumerically("~", 0.3, 1e-12))
			Expect(first.Action).To(BeZero())

			states, errs := res.States(), res.TrackingErrors()
			for i := range states {
				Expect(errs[i]).To(BeNumerically("~", 0.7-states[i], 1e-15))
			}
		})

		It("keeps the state inside the tank", func() {
			res, err := sim.New(tank, integrators.NewRK4()).
				Run(ctx, sim.Config{TotalTime: 20, Dt: 0.05, X0: 0.05}, nil)

			Expect(err).NotTo(HaveOccurred())
			for _, h := range res.States() {
				Expect(h).To(BeNumerically(">=", 0))
				Expect(h).To(BeNumerically("<=", 1))
			}
			Expect(res.Final().State).To(BeNumerically("<", 1e-9))
		})
	})

	Describe("controller sampling", func() {
		It("holds each action until the next sample", func() {
			ctrl := &countingController{period: 0.25}

			res, err := sim.New(tank, integrators.NewRK4()).
				Run(ctx, sim.Config{TotalTime: 1, Dt: 0.125, Setpoint: 0.5}, ctrl)

			Expect(err).NotTo(HaveOccurred())
			Expect(ctrl.calls).To(Equal(4))
			Expect(ctrl.seen).To(Equal([]int{3, 5, 7, 9}))
			want := []float64{0, 0, 0, 0.1, 0.1, 0.2, 0.2, 0.3, 0.3}
			actions := res.Actions()
			Expect(actions).To(HaveLen(len(want)))
			for i, u := range actions {
				Expect(u).To(BeNumerically("~", want[i], 1e-12), "sample %d", i)
			}
		})

		It("saturates the action against the action limit", func() {
			tank.SetLimit(dynamo.QuantityAction, dynamo.Between(0, 0.5))

			res, err := sim.New(tank, integrators.NewRK4()).
				Run(ctx, sim.Config{TotalTime: 1, Dt: 0.01}, control.NewConstant(0.1, 1))

			Expect(err).NotTo(HaveOccurred())
			Expect(res.Actions()).To(ContainElement(0.5))
			Expect(res.Actions()).NotTo(ContainElement(1.0))
		})
	})

	Describe("PID control of the water tank", func() {
		var progress []int
		var completed *dynamo.Results

		newSim := func(integ dynamo.Integrator) *sim.Simulator {
			progress = nil
			completed = nil
			return sim.New(tank, integ,
				sim.WithProgress(func(pct int) { progress = append(progress, pct) }),
				sim.WithCompletion(func(r *dynamo.Results) { completed = r }))
		}

		It("settles at the setpoint with fixed steps", func() {
			s := newSim(integrators.NewRK4())

			res, err := s.Run(ctx, sim.Config{TotalTime: 30, Dt: 0.001, Setpoint: 0.7}, control.NewPID(0.1, 8, 1, 0.1))

			Expect(err).NotTo(HaveOccurred())
			Expect(res.Final().State).To(BeNumerically("~", 0.7, 0.02))
			Expect(completed).To(BeIdenticalTo(res))

			for _, h := range res.States() {
				Expect(h).To(BeNumerically(">=", 0))
				Expect(h).To(BeNumerically("<=", 1))
			}

			Expect(progress).NotTo(BeEmpty())
			Expect(progress[len(progress)-1]).To(Equal(100))
			for i := 1; i < len(progress); i++ {
				Expect(progress[i]).To(BeNumerically(">", progress[i-1]))
			}
		})

		It("settles at the setpoint with adaptive steps bounded by the period", func() {
			s := newSim(integrators.NewRK45())

			res, err := s.Run(ctx, sim.Config{TotalTime: 30, Dt: 0.001, Setpoint: 0.7, Tolerance: 1e-6, Adaptive: true},
				control.NewPID(0.1, 8, 1, 0.1))

			Expect(err).NotTo(HaveOccurred())
			Expect(res.Final().State).To(BeNumerically("~", 0.7, 0.02))
			Expect(progress[len(progress)-1]).To(Equal(100))

			times := res.Times()
			for i := 1; i < len(times); i++ {
				step := times[i] - times[i-1]
				Expect(step).To(BeNumerically(">=", sim.MinStep*(1-1e-6)))
				Expect(step).To(BeNumerically("<=", 0.1+1e-9))
			}
		})
	})

	Describe("failures", func() {
		It("wraps controller errors and skips completion", func() {
			cause := errors.New("level sensor offline")
			completions := 0
			s := sim.New(tank, integrators.NewRK4(), sim.WithCompletion(func(*dynamo.Results) { completions++ }))

			res, err := s.Run(ctx, sim.Config{TotalTime: 5, Dt: 0.01}, &failingController{after: 2, err: cause})

			Expect(res).To(BeNil())
			Expect(errors.Is(err, cause)).To(BeTrue())
			Expect(errors.Is(err, dynamo.ErrControllerFailed)).To(BeTrue())
			var simErr *dynamo.SimulationError
			Expect(errors.As(err, &simErr)).To(BeTrue())
			Expect(simErr.Time).To(BeNumerically("~", 0.3, 0.02))
			Expect(completions).To(BeZero())
			Expect(s.Status()).To(Equal(sim.StatusFailed))
		})

		It("stops with ErrCanceled when the context is done", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			s := sim.New(tank, integrators.NewRK4())

			res, err := s.Run(cctx, sim.Config{TotalTime: 5, Dt: 0.01}, nil)

			Expect(res).To(BeNil())
			Expect(err).To(MatchError(dynamo.ErrCanceled))
			Expect(errors.Is(err, context.Canceled)).To(BeTrue())
			Expect(s.Status()).To(Equal(sim.StatusCanceled))
		})

		It("stalls at the step floor until the deadline", func() {
			cctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
			defer cancel()

			_, err := sim.New(tank, &flooredStepper{}).
				Run(cctx, sim.Config{TotalTime: 1, Dt: 0.01, Tolerance: 1e-6, Adaptive: true}, control.NewPID(0.1, 8, 1, 0.1))

			Expect(err).To(MatchError(dynamo.ErrCanceled))
			Expect(errors.Is(err, context.DeadlineExceeded)).To(BeTrue())
		})

		It("rejects a second concurrent run", func() {
			ctrl := &blockingController{entered: make(chan struct{}), release: make(chan struct{})}
			entered := ctrl.entered
			s := sim.New(tank, integrators.NewRK4())

			done := make(chan error, 1)
			go func() {
				defer GinkgoRecover()
				_, err := s.Run(ctx, sim.Config{TotalTime: 1, Dt: 0.01}, ctrl)
				done <- err
			}()

			Eventually(entered).Should(BeClosed())
			Expect(s.Status()).To(Equal(sim.StatusRunning))

			_, err := s.Run(ctx, sim.Config{TotalTime: 1, Dt: 0.01}, nil)
			Expect(err).To(MatchError(dynamo.ErrBusy))

			close(ctrl.release)
			Eventually(done).Should(Receive(BeNil()))
			Expect(s.Status()).To(Equal(sim.StatusFinished))
		})

		DescribeTable("invalid configurations",
			func(integ dynamo.Integrator, cfg sim.Config, ctrl dynamo.Controller) {
				_, err := sim.New(tank, integ).Run(ctx, cfg, ctrl)
				Expect(err).To(MatchError(dynamo.ErrInvalidConfig))
			},
			Entry("zero dt", integrators.NewRK4(), sim.Config{TotalTime: 1, Dt: 0}, nil),
			Entry("negative total time", integrators.NewRK4(), sim.Config{TotalTime: -1, Dt: 0.1}, nil),
			Entry("NaN initial state", integrators.NewRK4(), sim.Config{TotalTime: 1, Dt: 0.1, X0: math.NaN()}, nil),
			Entry("adaptive without tolerance", integrators.NewRK45(), sim.Config{TotalTime: 1, Dt: 0.1, Adaptive: true}, nil),
			Entry("adaptive with a fixed stepper", integrators.NewRK4(), sim.Config{TotalTime: 1, Dt: 0.1, Tolerance: 1e-6, Adaptive: true}, nil),
			Entry("zero sampling period", integrators.NewRK4(), sim.Config{TotalTime: 1, Dt: 0.1}, control.NewOnOff(0)),
		)
	})

	Describe("metrics and observers", func() {
		It("freezes metric values into the results", func() {
			metric := &sampleCounter{}
			observer := &sampleCounter{}
			s := sim.New(tank, integrators.NewRK4(), sim.WithMetrics(metric), sim.WithObserver(observer))

			res, err := s.Run(ctx, sim.Config{TotalTime: 1, Dt: 0.25}, nil)

			Expect(err).NotTo(HaveOccurred())
			v, ok := res.Metric("samples")
			Expect(ok).To(BeTrue())
			Expect(v).To(Equal(5.0))
			Expect(observer.n).To(Equal(5))

			_, err = s.Run(ctx, sim.Config{TotalTime: 1, Dt: 0.25}, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(metric.Value()).To(Equal(5.0), "metric is reset between runs")
			v, _ = res.Metric("samples")
			Expect(v).To(Equal(5.0), "earlier results keep their values")
		})
	})
})

var _ = Describe("Ensemble", func() {
	It("runs independent jobs and keeps their order", func() {
		tank, err := physics.NewWaterTank(nil)
		Expect(err).NotTo(HaveOccurred())

		setpoints := []float64{0.3, 0.5, 0.7}
		jobs := make([]sim.Job, len(setpoints))
		for i, sp := range setpoints {
			jobs[i] = sim.Job{
				Config:     sim.Config{TotalTime: 30, Dt: 0.01, Setpoint: sp},
				Controller: control.NewPID(0.1, 8, 1, 0.1),
			}
		}

		e := sim.NewEnsemble(tank, integrators.NewRK4(), 2, func() []dynamo.Metric {
			return []dynamo.Metric{&sampleCounter{}}
		})
		results, err := e.Run(context.Background(), jobs)

		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(len(setpoints)))
		for i, res := range results {
			Expect(res.Final().State).To(BeNumerically("~", setpoints[i], 0.02))
			n, _ := res.Metric("samples")
			Expect(n).To(Equal(float64(res.Len())))
		}
	})

	It("returns the first failure", func() {
		tank, _ := physics.NewWaterTank(nil)
		cause := errors.New("boom")
		jobs := []sim.Job{
			{Config: sim.Config{TotalTime: 1, Dt: 0.01}, Controller: control.NewOnOff(0.1)},
			{Config: sim.Config{TotalTime: 1, Dt: 0.01}, Controller: &failingController{err: cause}},
		}

		_, err := sim.NewEnsemble(tank, integrators.NewRK4(), 0, nil).Run(context.Background(), jobs)

		Expect(errors.Is(err, cause)).To(BeTrue())
	})
})
