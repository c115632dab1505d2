package solver

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/notargets/aderdg/basis"
	"github.com/notargets/aderdg/mesh"
	"github.com/notargets/aderdg/physics"
	"github.com/notargets/aderdg/utils"
)

func aderTables(t *testing.T, a *Assembler) *ADERTables {
	bst, err := basis.SpaceTime(a.Ops.Basis)
	require.NoError(t, err)
	qorder := QuadratureOrder(a.Ops.Basis.Order(), a.Phys.FluxDegree(), a.Mesh.GOrder, 1)
	at, err := ComputeADEROperators(a.Mesh, a.Ops.Basis, bst, qorder)
	require.NoError(t, err)
	return at
}

func identity(n int) (I utils.Matrix) {
	I = utils.NewMatrix(n, n)
	for i := 0; i < n; i++ {
		I.Set(i, i, 1)
	}
	return
}

// aderStep advances W by one predictor-corrector step
func aderStep(t *testing.T, p *Predictor, W *Field, dt, time float64) {
	Up, err := p.Predict(ctx, W, dt, time)
	require.NoError(t, err)
	R := NewField(W.NElem, W.NB, W.NS)
	require.NoError(t, p.AssembleSpaceTimeResidual(ctx, Up, R, time, dt))
	require.NoError(t, p.Asm.ApplyInverseMass(ctx, R))
	W.AddScaled(dt, R)
}

func TestADEROperators(t *testing.T) {
	{ // Affine line, one shared set
		a := lineAssembler(t, 4, 2, physics.NewConstAdvScalar([]float64{1}))
		at := aderTables(t, a)
		assert.True(t, at.Affine)
		assert.Equal(t, 9, at.NBST())
		ops := at.Ops(0)
		assert.Same(t, ops, at.Ops(3))
		assert.Less(t, ops.K.Mul(ops.IK).MaxAbsDiff(identity(9)), 1.e-11)
		// Lagrange functions sum to one
		assert.InDelta(t, 4, floats.Sum(ops.MM.DataP), 1.e-13)
		assert.InDelta(t, 2, floats.Sum(ops.FTL.DataP), 1.e-13)
		assert.InDelta(t, 2, floats.Sum(ops.FTR.DataP), 1.e-13)
		assert.InDelta(t, 0, floats.Sum(ops.SMT.DataP), 1.e-13)
		assert.InDelta(t, 0, floats.Sum(ops.SMS[0].DataP), 1.e-13)
		// 1/2 * dxi/dx on elements of width 1/4
		assert.InDelta(t, 4, at.FluxScale[2], 1.e-13)

		W := utils.NewMatrix(3, 1, []float64{0.3, -1, 2})
		assert.Less(t, at.Theta.Mul(at.Broadcast.Mul(W)).MaxAbsDiff(at.PhiST.Mul(W)), 1.e-13)
		assert.Equal(t, at.NQS*at.NT, at.Quad.NQ())
		assert.Equal(t, []float64{1, -1}, []float64{at.TauF[0][0] / math.Abs(at.TauF[0][0]),
			at.TauF[1][0] / math.Abs(at.TauF[1][0])})
	}
	{ // Curved line, a set per element weighted by the Jacobian
		m, err := mesh.NewLine(0, 1, 4, true)
		require.NoError(t, err)
		me, err := mesh.Elevate(m, 2, func(x []float64) []float64 {
			return []float64{x[0] + 0.02*math.Sin(2*math.Pi*x[0])}
		})
		require.NoError(t, err)
		a := newAssembler(t, me, physics.NewConstAdvScalar([]float64{1}), "LagrangeSeg", 2)
		at := aderTables(t, a)
		assert.False(t, at.Affine)
		assert.NotSame(t, at.Ops(0), at.Ops(1))
		vol, err := me.Volumes()
		require.NoError(t, err)
		for k := range vol {
			ops := at.Ops(k)
			assert.InDelta(t, 2*vol[k], floats.Sum(ops.MM.DataP), 1.e-12)
			assert.Less(t, ops.K.Mul(ops.IK).MaxAbsDiff(identity(9)), 1.e-10)
			assert.Equal(t, 0.5, at.FluxScale[k])
		}
	}
	{
		m, err := mesh.NewQuad(0, 1, 0, 1, 2, 2, true, true)
		require.NoError(t, err)
		b, _ := basis.New("LagrangeSeg", 1)
		bst, _ := basis.New("LagrangeQuad", 1)
		_, err = ComputeADEROperators(m, b, bst, 2)
		assert.True(t, errors.Is(err, ErrUnsupportedScheme))
	}
	{
		a := lineAssembler(t, 4, 2, physics.NewConstAdvScalar([]float64{1}))
		bst, _ := basis.New("LagrangeQuad", 3)
		_, err := ComputeADEROperators(a.Mesh, a.Ops.Basis, bst, 4)
		assert.True(t, errors.Is(err, ErrConfigIncompatible))
	}
}

func TestPredictorFixedPoint(t *testing.T) {
	a := lineAssembler(t, 6, 2, physics.NewConstAdvScalar([]float64{1}))
	at := aderTables(t, a)
	p, err := NewPredictor(a, at)
	require.NoError(t, err)
	W := fieldFor(a)
	require.NoError(t, a.InitState(W, physics.Uniform{State: []float64{1.5}}, 0, false))
	Up, err := p.Predict(ctx, W, 0.05, 0)
	require.NoError(t, err)
	assert.Empty(t, p.LastReport.Failures)
	// a steady state is a fixed point of the first update
	require.Len(t, p.LastReport.Iterations, 6)
	for _, it := range p.LastReport.Iterations {
		assert.Equal(t, 1, it)
	}
	for k := 0; k < Up.NElem; k++ {
		uq := at.Theta.Mul(Up.Elem(k))
		for _, v := range uq.DataP {
			assert.InDelta(t, 1.5, v, 1.e-12)
		}
	}
	R := fieldFor(a)
	require.NoError(t, p.AssembleSpaceTimeResidual(ctx, Up, R, 0, 0.05))
	assert.Less(t, R.MaxAbs(), 1.e-12)
	{ // Bounded line with an inflow state and outflow extrapolation
		m, err := mesh.NewLine(0, 1, 4, false)
		require.NoError(t, err)
		phys := physics.NewConstAdvScalar([]float64{1})
		phys.SetBC(mesh.Left, physics.StateAll{Fn: physics.Uniform{State: []float64{1.5}}})
		phys.SetBC(mesh.Right, physics.Extrapolate{})
		a := newAssembler(t, m, phys, "LagrangeSeg", 2)
		p, err := NewPredictor(a, aderTables(t, a))
		require.NoError(t, err)
		W := fieldFor(a)
		require.NoError(t, a.InitState(W, physics.Uniform{State: []float64{1.5}}, 0, false))
		Up, err := p.Predict(ctx, W, 0.05, 0)
		require.NoError(t, err)
		R := fieldFor(a)
		require.NoError(t, p.AssembleSpaceTimeResidual(ctx, Up, R, 0, 0.05))
		assert.Less(t, R.MaxAbs(), 1.e-12)
	}
}

func TestPredictorAdvection(t *testing.T) {
	for _, interpolate := range []bool{false, true} {
		a := lineAssembler(t, 16, 3, physics.NewConstAdvScalar([]float64{1}))
		at := aderTables(t, a)
		p, err := NewPredictor(a, at, WithInterpolatedFlux(interpolate))
		require.NoError(t, err)
		W := fieldFor(a)
		require.NoError(t, a.InitState(W, sine(), 0, false))
		dt := 0.02
		Up, err := p.Predict(ctx, W, dt, 0)
		require.NoError(t, err)
		assert.Empty(t, p.LastReport.Failures)
		// the slab solution follows the exact one inside the slab
		u := make([]float64, 1)
		for k := 0; k < Up.NElem; k++ {
			uq := at.Theta.Mul(Up.Elem(k))
			for i, pt := range at.Quad.Pts {
				sine().Evaluate(at.X[k][i], 0.5*(pt[1]+1)*dt, u)
				assert.InDelta(t, u[0], uq.At(i, 0), 1.e-3)
			}
		}
	}
}

func TestPredictorIterationCap(t *testing.T) {
	a := lineAssembler(t, 4, 2, physics.NewConstAdvScalar([]float64{1}))
	at := aderTables(t, a)
	W := fieldFor(a)
	require.NoError(t, a.InitState(W, sine(), 0, false))
	{ // Reported, not fatal
		p, err := NewPredictor(a, at)
		require.NoError(t, err)
		p.MaxIter = 1
		_, err = p.Predict(ctx, W, 0.05, 0)
		require.NoError(t, err)
		require.Equal(t, 4, len(p.LastReport.Failures))
		assert.Equal(t, 1, p.LastReport.Failures[0].Iterations)
		assert.True(t, errors.Is(p.LastReport.Err(), ErrConvergence))
	}
	{ // Strict
		p, err := NewPredictor(a, at, WithStrictConvergence(true))
		require.NoError(t, err)
		p.MaxIter = 1
		_, err = p.Predict(ctx, W, 0.05, 0)
		var cf *ConvergenceFailure
		require.True(t, errors.As(err, &cf))
		assert.GreaterOrEqual(t, cf.Elem, 0)
		assert.Greater(t, cf.MaxDelta, p.Tol)
	}
}

func TestADERDampingSource(t *testing.T) {
	uniform := physics.Uniform{State: []float64{1}}
	newDamped := func(nu float64, opts ...Option) (*Assembler, *Predictor, *Field) {
		phys := physics.NewConstAdvScalar([]float64{1})
		phys.AddSource(physics.SimpleSource{Nu: nu})
		a := lineAssembler(t, 4, 2, phys)
		p, err := NewPredictor(a, aderTables(t, a), opts...)
		require.NoError(t, err)
		W := fieldFor(a)
		require.NoError(t, a.InitState(W, uniform, 0, false))
		return a, p, W
	}
	{ // Mild decay is integrated to high order in one step
		a, p, W := newDamped(-1)
		aderStep(t, p, W, 0.1, 0)
		for k := 0; k < W.NElem; k++ {
			for _, v := range a.Ops.Elem.Phi.Mul(W.Elem(k)).DataP {
				assert.InDelta(t, math.Exp(-0.1), v, 1.e-5)
			}
		}
	}
	{ // Stiff decay defeats the explicit fixed point
		_, p, W := newDamped(-1000)
		_, err := p.Predict(ctx, W, 0.01, 0)
		require.NoError(t, err)
		assert.Equal(t, 4, len(p.LastReport.Failures))
	}
	{ // and converges with the source Jacobian in the local solve
		a, p, W := newDamped(-1000, WithImplicitSource(true))
		aderStep(t, p, W, 0.01, 0)
		assert.Empty(t, p.LastReport.Failures)
		for k := 0; k < W.NElem; k++ {
			for _, v := range a.Ops.Elem.Phi.Mul(W.Elem(k)).DataP {
				assert.False(t, math.IsNaN(v))
				assert.Less(t, math.Abs(v), 0.1)
			}
		}
	}
}

func TestPredictorSetup(t *testing.T) {
	phys := physics.NewConstAdvScalar([]float64{1})
	m, err := mesh.NewLine(0, 1, 4, true)
	require.NoError(t, err)
	a := newAssembler(t, m, phys, "LegendreSeg", 2)
	at := aderTables(t, a)
	_, err = NewPredictor(a, at, WithInterpolatedFlux(true))
	var ce *ConfigIncompatibleError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "InterpolateFlux", ce.Setting)

	phys.AddSource(noJacobian{})
	_, err = NewPredictor(a, at, WithImplicitSource(true))
	assert.True(t, errors.Is(err, ErrConfigIncompatible))

	// tables from another order
	a3 := newAssembler(t, m, phys, "LegendreSeg", 3)
	_, err = NewPredictor(a3, at)
	assert.True(t, errors.Is(err, ErrDimensionMismatch))
	p, err := NewPredictor(a, at)
	require.NoError(t, err)
	err = p.AssembleSpaceTimeResidual(ctx, fieldFor(a), fieldFor(a), 0, 0.1)
	assert.True(t, errors.Is(err, ErrDimensionMismatch))
}
