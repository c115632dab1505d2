package stepper

import (
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/notargets/aderdg/basis"
	"github.com/notargets/aderdg/limiter"
	"github.com/notargets/aderdg/mesh"
	"github.com/notargets/aderdg/physics"
	"github.com/notargets/aderdg/solver"
)

// Stage runs the solution to EndTime at polynomial order Order. The step
// is (EndTime - t)/NTimeStep unless CFL is positive.
type Stage struct {
	Order     int
	NTimeStep int
	EndTime   float64
	CFL       float64
}

type Config struct {
	Mesh    *mesh.Mesh
	Phys    physics.Physics
	Basis   string
	Scheme  string
	Limiter string
	Stages  []Stage

	InitialTime float64
	IC          physics.Function
	// Exact is optional; when set the final report carries the L2 error
	Exact physics.Function

	InterpolateIC     bool
	InterpolateFlux   bool
	ImplicitSource    bool
	StrictConvergence bool
	LinearGeomMapping bool
	UniformMesh       bool
	TrackOutput       bool

	Workers  int
	LogEvery int
}

// Record is one row of the tracked output
type Record struct {
	Step   int
	Time   float64
	Dt     float64
	L2Norm float64
}

type Option func(*Driver)

func WithLogger(l *zap.Logger) Option {
	return func(d *Driver) {
		if l != nil {
			d.logger = l
		}
	}
}

func WithTracer(t trace.Tracer) Option { return func(d *Driver) { d.tracer = t } }

// WithOutput writes the human readable progress table to w
func WithOutput(w io.Writer) Option { return func(d *Driver) { d.out = w } }

type Driver struct {
	Cfg     Config
	U       *solver.Field
	Time    float64
	Steps   int
	History []Record

	Basis   basis.Basis
	Ops     *solver.Operators
	Asm     *solver.Assembler
	Stepper Stepper
	Lim     limiter.Limiter

	order   int
	zero    physics.Function
	elapsed time.Duration
	logger  *zap.Logger
	tracer  trace.Tracer
	out     io.Writer
}

func NewDriver(ctx context.Context, cfg Config, opts ...Option) (d *Driver, err error) {
	d = &Driver{
		Cfg:    cfg,
		Time:   cfg.InitialTime,
		logger: zap.NewNop(),
		tracer: otel.Tracer("github.com/notargets/aderdg/stepper"),
		out:    io.Discard,
	}
	for _, opt := range opts {
		opt(d)
	}
	if len(cfg.Stages) == 0 {
		return nil, &solver.ConfigIncompatibleError{Setting: "TimeStepping", Reason: "no stages"}
	}
	if cfg.IC == nil {
		return nil, &solver.ConfigIncompatibleError{Setting: "InitialCondition", Reason: "not set"}
	}
	if _, err = NewSchemeType(cfg.Scheme); err != nil {
		return nil, err
	}
	order := cfg.Stages[0].Order
	if d.Basis, err = basis.New(cfg.Basis, order); err != nil {
		return nil, &solver.UnsupportedSchemeError{Kind: "basis", Name: cfg.Basis}
	}
	if err = solver.CheckCompatibility(solver.Setup{
		Mesh:              cfg.Mesh,
		Basis:             d.Basis,
		Phys:              cfg.Phys,
		Scheme:            cfg.Scheme,
		Limiter:           cfg.Limiter,
		LinearGeomMapping: cfg.LinearGeomMapping,
		UniformMesh:       cfg.UniformMesh,
		InterpolateFlux:   cfg.InterpolateFlux,
		InterpolateIC:     cfg.InterpolateIC,
		ImplicitSource:    cfg.ImplicitSource,
	}); err != nil {
		return nil, err
	}
	d.zero = physics.Uniform{State: make([]float64, cfg.Phys.NumStateVars())}
	if err = d.rebuild(ctx, order); err != nil {
		return nil, err
	}
	d.U = solver.NewField(cfg.Mesh.NElem(), d.Ops.Elem.NB, cfg.Phys.NumStateVars())
	if err = d.Asm.InitState(d.U, cfg.IC, d.Time, cfg.InterpolateIC); err != nil {
		return nil, err
	}
	return
}

// rebuild recomputes every table that depends on the order: operators,
// assembler, limiter and stepper, including the ADER tables.
func (d *Driver) rebuild(ctx context.Context, order int) (err error) {
	cfg := d.Cfg
	if d.Ops, err = solver.ComputeOperators(ctx, cfg.Mesh, cfg.Phys, d.Basis, order, cfg.Workers); err != nil {
		return fmt.Errorf("order %d operators: %w", order, err)
	}
	opts := []solver.Option{
		solver.WithLogger(d.logger),
		solver.WithTracer(d.tracer),
		solver.WithWorkers(cfg.Workers),
		solver.WithStrictConvergence(cfg.StrictConvergence),
		solver.WithInterpolatedFlux(cfg.InterpolateFlux),
		solver.WithImplicitSource(cfg.ImplicitSource),
	}
	d.Asm = solver.NewAssembler(cfg.Mesh, cfg.Phys, d.Ops, opts...)
	if d.Lim, err = limiter.New(cfg.Limiter, cfg.Phys, d.Ops,
		limiter.WithLogger(d.logger), limiter.WithWorkers(cfg.Workers)); err != nil {
		return
	}
	if d.Stepper, err = New(cfg.Scheme, d.Asm, d.Lim, opts...); err != nil {
		return
	}
	d.order = order
	d.logger.Info("operator rebuild",
		zap.Int("order", order),
		zap.Int("nq", d.Ops.Elem.NQ),
		zap.Int("nb", d.Ops.Elem.NB),
		zap.String("scheme", d.Stepper.Name()))
	return
}

// transition moves the solution onto the basis of the given order
func (d *Driver) transition(ctx context.Context, order int) (err error) {
	var (
		bNew basis.Basis
		Unew *solver.Field
	)
	// a fresh basis keeps the old one valid for the projection
	if bNew, err = basis.New(d.Cfg.Basis, order); err != nil {
		return
	}
	d.Stepper = nil
	if Unew, err = solver.ProjectField(d.Cfg.Mesh, d.U, d.Basis, bNew); err != nil {
		return
	}
	d.logger.Info("stage transition",
		zap.Int("from", d.order),
		zap.Int("to", order),
		zap.Float64("time", d.Time))
	d.Basis, d.U = bNew, Unew
	return d.rebuild(ctx, order)
}

// minSize is the smallest element length scale, vol^(1/dim)
func (d *Driver) minSize() (h float64, err error) {
	var vol []float64
	if vol, err = d.Cfg.Mesh.Volumes(); err != nil {
		return
	}
	h = math.Inf(1)
	for _, v := range vol {
		h = math.Min(h, math.Pow(v, 1./float64(d.Cfg.Mesh.Dim)))
	}
	return
}

// cflStep is CFL h / ((2p+1) c), clamped to what is left of the stage
func (d *Driver) cflStep(s Stage) (dt float64, err error) {
	var (
		h      float64
		remain = s.EndTime - d.Time
	)
	if h, err = d.minSize(); err != nil {
		return
	}
	c := d.Asm.MaxWaveSpeed(d.U)
	if c <= 0 {
		return remain, nil
	}
	dt = s.CFL * h / (float64(2*d.order+1) * c)
	return math.Min(dt, remain), nil
}

// Run steps through every stage
func (d *Driver) Run(ctx context.Context) (err error) {
	d.printInitialization()
	for i, s := range d.Cfg.Stages {
		if i > 0 && s.Order != d.order {
			if err = d.transition(ctx, s.Order); err != nil {
				return
			}
		}
		if err = d.runStage(ctx, i, s); err != nil {
			return
		}
	}
	d.printFinal()
	return
}

func (d *Driver) runStage(ctx context.Context, i int, s Stage) (err error) {
	ctx, span := d.tracer.Start(ctx, "aderdg.stage", trace.WithAttributes(
		attribute.Int("stage", i),
		attribute.Int("order", s.Order),
		attribute.Float64("endTime", s.EndTime)))
	defer span.End()
	if s.CFL <= 0 {
		if s.NTimeStep <= 0 {
			return &solver.ConfigIncompatibleError{Setting: "TimeStepping",
				Reason: fmt.Sprintf("stage %d needs NTimeStep or CFL", i)}
		}
		dt := (s.EndTime - d.Time) / float64(s.NTimeStep)
		for n := 0; n < s.NTimeStep; n++ {
			if err = d.step(ctx, dt); err != nil {
				span.RecordError(err)
				return
			}
		}
		d.Time = s.EndTime
		return
	}
	var (
		dt  float64
		eps = 1.e-12 * math.Max(1, math.Abs(s.EndTime))
	)
	for d.Time < s.EndTime-eps {
		if dt, err = d.cflStep(s); err != nil {
			return
		}
		if err = d.step(ctx, dt); err != nil {
			span.RecordError(err)
			return
		}
	}
	return
}

func (d *Driver) step(ctx context.Context, dt float64) (err error) {
	ctx, span := d.tracer.Start(ctx, "aderdg.step", trace.WithAttributes(
		attribute.Int("step", d.Steps+1),
		attribute.Float64("time", d.Time),
		attribute.Float64("dt", dt)))
	defer span.End()
	if err = ctx.Err(); err != nil {
		return
	}
	start := time.Now()
	if err = d.Stepper.TakeStep(ctx, d.U, d.Time, dt); err != nil {
		return fmt.Errorf("step %d at t=%g: %w", d.Steps+1, d.Time, err)
	}
	d.elapsed += time.Since(start)
	d.Steps++
	d.Time += dt
	if d.Cfg.TrackOutput {
		var l2 float64
		if l2, err = d.Asm.L2Error(d.U, d.zero, d.Time); err != nil {
			return
		}
		d.History = append(d.History, Record{Step: d.Steps, Time: d.Time, Dt: dt, L2Norm: l2})
	}
	if d.Steps == 1 || (d.Cfg.LogEvery > 0 && d.Steps%d.Cfg.LogEvery == 0) {
		res := d.residualMax()
		d.logger.Info("step",
			zap.Int("step", d.Steps),
			zap.Float64("time", d.Time),
			zap.Float64("dt", dt),
			zap.Float64s("residual", res))
		d.printUpdate(dt, res)
	}
	return
}

// residualMax is the max abs of the last residual per state variable
func (d *Driver) residualMax() (res []float64) {
	R := d.Stepper.Residual()
	res = make([]float64, R.NS)
	for i, v := range R.Data {
		s := i % R.NS
		res[s] = math.Max(res[s], math.Abs(v))
	}
	return
}

// L2Error is the error against the exact solution at the current time
func (d *Driver) L2Error() (float64, error) {
	if d.Cfg.Exact == nil {
		return 0, &solver.ConfigIncompatibleError{Setting: "ExactSolution", Reason: "not set"}
	}
	return d.Asm.L2Error(d.U, d.Cfg.Exact, d.Time)
}

func (d *Driver) printInitialization() {
	var final float64
	if n := len(d.Cfg.Stages); n > 0 {
		final = d.Cfg.Stages[n-1].EndTime
	}
	fmt.Fprintf(d.out, "Mesh: %s\n", d.Cfg.Mesh)
	fmt.Fprintf(d.out, "Solving until finaltime = %8.5f with %s\n", final, d.Cfg.Scheme)
	fmt.Fprintf(d.out, "    iter    time  min_dt")
	for s := 0; s < d.Cfg.Phys.NumStateVars(); s++ {
		fmt.Fprintf(d.out, "       Res%d", s)
	}
	fmt.Fprintf(d.out, "\n")
}

func (d *Driver) printUpdate(dt float64, res []float64) {
	fmt.Fprintf(d.out, "%8d%8.5f%8.5f", d.Steps, d.Time, dt)
	for _, r := range res {
		fmt.Fprintf(d.out, "%11.4e", r)
	}
	fmt.Fprintf(d.out, "\n")
}

func (d *Driver) printFinal() {
	if d.Steps == 0 {
		return
	}
	rate := float64(d.elapsed.Microseconds()) / float64(d.Cfg.Mesh.NElem()*d.Steps)
	fmt.Fprintf(d.out, "\nRate of execution = %8.5f us/(element*iteration) over %d iterations\n", rate, d.Steps)
	if d.Cfg.Exact != nil {
		if e, err := d.L2Error(); err == nil {
			fmt.Fprintf(d.out, "L2 error at t = %8.5f: %11.4e\n", d.Time, e)
		}
	}
	if d.Cfg.TrackOutput {
		fmt.Fprintf(d.out, "%8s%12s%12s%12s\n", "step", "time", "dt", "L2")
		for _, r := range d.History {
			fmt.Fprintf(d.out, "%8d%12.5e%12.5e%12.5e\n", r.Step, r.Time, r.Dt, r.L2Norm)
		}
	}
}
