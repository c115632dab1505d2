package stepper

import (
	"bytes"
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/notargets/aderdg/mesh"
	"github.com/notargets/aderdg/physics"
	"github.com/notargets/aderdg/solver"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var ctx = context.Background()

func advection(t *testing.T, nElem int) (*mesh.Mesh, *physics.ConstAdvScalar) {
	m, err := mesh.NewLine(0, 1, nElem, true)
	require.NoError(t, err)
	return m, physics.NewConstAdvScalar([]float64{1})
}

func sineConfig(t *testing.T, scheme string, stages ...Stage) Config {
	m, phys := advection(t, 16)
	sine := physics.Sine{Omega: 2 * math.Pi, C: []float64{1}}
	return Config{
		Mesh:    m,
		Phys:    phys,
		Basis:   "LagrangeSeg",
		Scheme:  scheme,
		Stages:  stages,
		IC:      sine,
		Exact:   sine,
		Workers: 2,
	}
}

func TestSchemeType(t *testing.T) {
	for label, want := range map[string]SchemeType{
		"RK4": RK4, " lsrk4": LSRK4, "SSPRK3": SSPRK3, "ADER": ADER, "FE": FE,
	} {
		st, err := NewSchemeType(label)
		require.NoError(t, err)
		assert.Equal(t, want, st)
	}
	assert.Equal(t, "SSPRK3", SSPRK3.Print())
	_, err := NewSchemeType("BDF2")
	assert.True(t, errors.Is(err, solver.ErrUnsupportedScheme))
}

func TestAdvectionOnePeriod(t *testing.T) {
	for _, scheme := range []string{"RK4", "LSRK4", "SSPRK3", "ADER"} {
		d, err := NewDriver(ctx, sineConfig(t, scheme, Stage{Order: 2, EndTime: 1, CFL: 0.5}))
		require.NoError(t, err)
		e0, err := d.L2Error()
		require.NoError(t, err)
		require.NoError(t, d.Run(ctx))
		assert.InDelta(t, 1, d.Time, 1.e-12, scheme)
		e, err := d.L2Error()
		require.NoError(t, err)
		assert.Less(t, e, 5.e-3, scheme)
		assert.Less(t, e0, e, scheme)
		assert.Equal(t, scheme, d.Stepper.Name())
	}
	{ // Forward Euler is only used for short, very small steps
		d, err := NewDriver(ctx, sineConfig(t, "FE", Stage{Order: 1, EndTime: 0.01, NTimeStep: 100}))
		require.NoError(t, err)
		require.NoError(t, d.Run(ctx))
		assert.Equal(t, 100, d.Steps)
		e, err := d.L2Error()
		require.NoError(t, err)
		assert.Less(t, e, 1.e-2)
	}
}

func TestADERDampingSine(t *testing.T) {
	m, phys := advection(t, 16)
	phys.AddSource(physics.SimpleSource{Nu: -1})
	exact := physics.DampingSine{Omega: 2 * math.Pi, Nu: -1, C: []float64{1}}
	for _, implicit := range []bool{false, true} {
		d, err := NewDriver(ctx, Config{
			Mesh:           m,
			Phys:           phys,
			Basis:          "LagrangeSeg",
			Scheme:         "ADER",
			Stages:         []Stage{{Order: 2, NTimeStep: 100, EndTime: 0.5}},
			IC:             exact,
			Exact:          exact,
			ImplicitSource: implicit,
			TrackOutput:    true,
		})
		require.NoError(t, err)
		require.NoError(t, d.Run(ctx))
		assert.Equal(t, 100, d.Steps)
		assert.Equal(t, 0.5, d.Time)
		e, err := d.L2Error()
		require.NoError(t, err)
		assert.Less(t, e, 2.e-3)
		// the norm decays with the source
		require.Len(t, d.History, 100)
		assert.Less(t, d.History[99].L2Norm, d.History[0].L2Norm)
		assert.InDelta(t, math.Exp(-0.5)*math.Sqrt(0.5), d.History[99].L2Norm, 2.e-3)
	}
}

func TestOrderSequencing(t *testing.T) {
	var (
		core, logs = observer.New(zap.InfoLevel)
		out        bytes.Buffer
	)
	cfg := sineConfig(t, "ADER",
		Stage{Order: 1, NTimeStep: 20, EndTime: 0.1},
		Stage{Order: 2, NTimeStep: 20, EndTime: 0.2},
		Stage{Order: 2, NTimeStep: 10, EndTime: 0.25},
	)
	d, err := NewDriver(ctx, cfg, WithLogger(zap.New(core)), WithOutput(&out))
	require.NoError(t, err)
	assert.Equal(t, 2, d.Ops.Elem.NB)
	stale := d.Asm
	require.NoError(t, d.Run(ctx))
	assert.Equal(t, 50, d.Steps)
	assert.Equal(t, 3, d.Ops.Elem.NB)
	assert.Equal(t, 3, d.U.NB)
	assert.Equal(t, 1, logs.FilterMessage("stage transition").Len())
	assert.Equal(t, 2, logs.FilterMessage("operator rebuild").Len())
	e, err := d.L2Error()
	require.NoError(t, err)
	assert.Less(t, e, 1.e-2)

	// tables from before the transition no longer fit the field
	err = stale.TimeDerivative(ctx, d.U, solver.NewField(d.U.NElem, d.U.NB, d.U.NS), d.Time)
	assert.True(t, errors.Is(err, solver.ErrDimensionMismatch))
	assert.Contains(t, out.String(), "Rate of execution")
}

func TestSpansAndLogs(t *testing.T) {
	var (
		sr         = tracetest.NewSpanRecorder()
		tp         = sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
		core, logs = observer.New(zap.InfoLevel)
	)
	defer func() { require.NoError(t, tp.Shutdown(ctx)) }()
	cfg := sineConfig(t, "ADER", Stage{Order: 2, NTimeStep: 4, EndTime: 0.02})
	cfg.LogEvery = 2
	d, err := NewDriver(ctx, cfg, WithTracer(tp.Tracer("test")), WithLogger(zap.New(core)))
	require.NoError(t, err)
	require.NoError(t, d.Run(ctx))
	count := map[string]int{}
	for _, s := range sr.Ended() {
		count[s.Name()]++
	}
	assert.Equal(t, 1, count["aderdg.stage"])
	assert.Equal(t, 4, count["aderdg.step"])
	assert.Equal(t, 4, count["aderdg.predict"])
	// steps 1, 2 and 4
	assert.Equal(t, 3, logs.FilterMessage("step").Len())
	for _, s := range sr.Ended() {
		if s.Name() != "aderdg.step" {
			continue
		}
		keys := map[string]bool{}
		for _, kv := range s.Attributes() {
			keys[string(kv.Key)] = true
		}
		assert.True(t, keys["step"] && keys["time"] && keys["dt"])
	}
}

func TestScalarLimiterInStepper(t *testing.T) {
	cfg := sineConfig(t, "SSPRK3", Stage{Order: 2, EndTime: 0.25, CFL: 0.1})
	pulse := physics.Gaussian{X0: []float64{0.5}, Sigma: 0.03, C: []float64{1}}
	cfg.IC, cfg.Exact = pulse, pulse
	cfg.Limiter = "ScalarPositivityPreserving"
	d, err := NewDriver(ctx, cfg)
	require.NoError(t, err)
	require.NotNil(t, d.Lim)
	require.NoError(t, d.Run(ctx))
	for k := 0; k < d.U.NElem; k++ {
		assert.GreaterOrEqual(t, d.Ops.Elem.Phi.Mul(d.U.Elem(k)).Min(), -1.e-12)
	}
}

func TestDriverSetupErrors(t *testing.T) {
	{
		_, err := NewDriver(ctx, sineConfig(t, "BDF2", Stage{Order: 1, NTimeStep: 1, EndTime: 1}))
		assert.True(t, errors.Is(err, solver.ErrUnsupportedScheme))
	}
	{
		_, err := NewDriver(ctx, sineConfig(t, "RK4"))
		assert.True(t, errors.Is(err, solver.ErrConfigIncompatible))
	}
	{ // ADER needs a line mesh
		m, err := mesh.NewQuad(0, 1, 0, 1, 2, 2, true, true)
		require.NoError(t, err)
		_, err = NewDriver(ctx, Config{
			Mesh:   m,
			Phys:   physics.NewConstAdvScalar([]float64{1, 0}),
			Basis:  "LagrangeQuad",
			Scheme: "ADER",
			Stages: []Stage{{Order: 1, NTimeStep: 1, EndTime: 1}},
			IC:     physics.Uniform{State: []float64{1}},
		})
		var ce *solver.ConfigIncompatibleError
		require.True(t, errors.As(err, &ce))
		assert.Equal(t, "TimeStepper", ce.Setting)
	}
	{
		cfg := sineConfig(t, "RK4", Stage{Order: 1, EndTime: 1})
		d, err := NewDriver(ctx, cfg)
		require.NoError(t, err)
		assert.True(t, errors.Is(d.Run(ctx), solver.ErrConfigIncompatible))
	}
	{
		cfg := sineConfig(t, "RK4", Stage{Order: 1, NTimeStep: 10, EndTime: 1})
		d, err := NewDriver(ctx, cfg)
		require.NoError(t, err)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		assert.True(t, errors.Is(d.Run(cctx), context.Canceled))
	}
}
