package physics

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/aderdg/utils"
)

func TestNumericalFluxConsistency(t *testing.T) {
	// F*(u, u, n) = F(u).n for every equation set and flux
	{
		phys, err := New(Params{Type: "ConstAdvScalar", ConstVelocity: []float64{1, -2}}, 2)
		require.NoError(t, err)
		checkConsistency(t, phys, []float64{0.7}, []float64{0.6, 0.8})
	}
	{
		phys, err := New(Params{Type: "Burgers1D"}, 1)
		require.NoError(t, err)
		checkConsistency(t, phys, []float64{-1.3}, []float64{1})
	}
	for _, flux := range []string{"LaxFriedrichs", "Roe"} {
		phys, err := New(Params{Type: "Euler", ConvFluxNumerical: flux}, 2)
		require.NoError(t, err)
		eq := phys.Eq().(*Euler)
		u := make([]float64, 4)
		eq.Conservative(1.2, []float64{0.3, -0.4}, 0.9, u)
		checkConsistency(t, phys, u, []float64{math.Sqrt(0.5), -math.Sqrt(0.5)})

		phys1, err := New(Params{Type: "Euler1D", ConvFluxNumerical: flux, SpecificHeatRatio: 3}, 1)
		require.NoError(t, err)
		checkConsistency(t, phys1, []float64{1, 0.5, 2}, []float64{-1})
	}
	{
		_, err := New(Params{Type: "ConstAdvScalar", ConvFluxNumerical: "Roe"}, 1)
		assert.Error(t, err)
		_, err = New(Params{Type: "Maxwell"}, 1)
		assert.True(t, errors.Is(err, ErrUnknown))
	}
}

func checkConsistency(t *testing.T, phys Configurable, u, n []float64) {
	var (
		ns  = phys.NumStateVars()
		dim = phys.Dim()
		U   = utils.NewMatrix(1, ns, u)
		F   = make([]utils.Matrix, dim)
		FN  = utils.NewMatrix(1, ns)
	)
	for d := range F {
		F[d] = utils.NewMatrix(1, ns)
	}
	phys.ConvFluxInterior(U, F)
	phys.ConvFluxNumerical(U, U, [][]float64{n}, FN)
	for s := 0; s < ns; s++ {
		var fn float64
		for d := 0; d < dim; d++ {
			fn += F[d].At(0, s) * n[d]
		}
		assert.InDeltaf(t, fn, FN.At(0, s), 1.e-12, "%s state %d", phys.Name(), s)
	}
}

func TestFluxConservation(t *testing.T) {
	// Reversing the normal and the sides negates the numerical flux
	phys, err := New(Params{Type: "Euler", ConvFluxNumerical: "Roe"}, 2)
	require.NoError(t, err)
	eq := phys.Eq().(*Euler)
	uL, uR := make([]float64, 4), make([]float64, 4)
	eq.Conservative(1, []float64{0.5, 0.1}, 1, uL)
	eq.Conservative(0.8, []float64{0.2, -0.3}, 0.7, uR)
	n := []float64{0.6, 0.8}
	f1, f2 := make([]float64, 4), make([]float64, 4)
	phys.(*Euler).NumFlux.Compute(eq, uL, uR, n, f1)
	phys.(*Euler).NumFlux.Compute(eq, uR, uL, []float64{-0.6, -0.8}, f2)
	for i := range f1 {
		assert.InDelta(t, f1[i], -f2[i], 1.e-12)
	}
}

func TestSources(t *testing.T) {
	phys, err := New(Params{Type: "ConstAdvScalar"}, 1)
	require.NoError(t, err)
	src, err := NewSource("SimpleSource", map[string]float64{"nu": -1000}, phys)
	require.NoError(t, err)
	phys.AddSource(src)
	phys.AddSource(src)
	assert.True(t, phys.HasSourceJacobian())
	U := utils.NewMatrix(2, 1, []float64{1, 2})
	S := utils.NewMatrix(2, 1)
	phys.SourceState([][]float64{{0}, {1}}, 0, U, S)
	assert.Equal(t, []float64{-2000, -4000}, S.DataP)
	J := utils.NewMatrix(1, 1)
	require.NoError(t, phys.SourceJacobian([]float64{0}, 0, []float64{1}, J))
	assert.Equal(t, -2000., J.At(0, 0))

	_, err = NewSource("GravitySource", nil, phys)
	assert.Error(t, err)
	euler, err := New(Params{Type: "Euler"}, 2)
	require.NoError(t, err)
	g, err := NewSource("GravitySource", map[string]float64{"g": -1}, euler)
	require.NoError(t, err)
	s := make([]float64, 4)
	g.Add([]float64{0, 0}, 0, []float64{2, 1, 3, 10}, s)
	assert.Equal(t, []float64{0, 0, -2, -3}, s)
}

func TestFunctions(t *testing.T) {
	phys, err := New(Params{Type: "ConstAdvScalar", ConstVelocity: []float64{2}}, 1)
	require.NoError(t, err)
	fn, err := NewFunction("DampingSine", map[string]float64{"omega": math.Pi, "nu": -1}, phys)
	require.NoError(t, err)
	u := make([]float64, 1)
	fn.Evaluate([]float64{0.5}, 0.25, u)
	// sin(pi*(0.5 - 0.5)) = 0
	assert.InDelta(t, 0., u[0], 1.e-15)
	fn.Evaluate([]float64{1}, 0.25, u)
	assert.InDelta(t, math.Exp(-0.25), u[0], 1.e-15)

	_, err = NewFunction("IsentropicVortex", nil, phys)
	assert.Error(t, err)
	euler, err := New(Params{Type: "Euler"}, 2)
	require.NoError(t, err)
	iv, err := NewFunction("IsentropicVortex", map[string]float64{"x0": 0, "y0": 0}, euler)
	require.NoError(t, err)
	q := make([]float64, 4)
	iv.Evaluate([]float64{20, 20}, 0, q)
	// far field is the free stream
	assert.InDelta(t, 1., q[0], 1.e-12)
	assert.InDelta(t, 1., q[1], 1.e-12)
	assert.InDelta(t, 0., q[2], 1.e-12)
	assert.InDelta(t, 1./0.4+0.5, q[3], 1.e-12)
	dw, err := NewFunction("DensityWave", nil, euler)
	require.NoError(t, err)
	dw.Evaluate([]float64{0.5, 0}, 0, q)
	assert.InDelta(t, 1.1, q[0], 1.e-14)
	assert.InDelta(t, 1., euler.(*Euler).Pressure(q), 1.e-14)

	{ // Smooth isentropic flow keeps its Riemann invariants along characteristics
		_, err = NewFunction("SmoothIsentropicFlow", nil, euler)
		assert.Error(t, err)
		e14, err := New(Params{Type: "Euler"}, 1)
		require.NoError(t, err)
		_, err = NewFunction("SmoothIsentropicFlow", nil, e14)
		assert.Error(t, err)
		e3, err := New(Params{Type: "Euler", SpecificHeatRatio: 3}, 1)
		require.NoError(t, err)
		fn, err := NewFunction("SmoothIsentropicFlow", map[string]float64{"a": 0.9}, e3)
		require.NoError(t, err)
		assert.Equal(t, "SmoothIsentropicFlow", fn.Name())
		q := make([]float64, 3)
		fn.Evaluate([]float64{0.5}, 0, q)
		assert.InDelta(t, 1.9, q[0], 1.e-14)
		assert.InDelta(t, 0., q[1], 1.e-14)
		rho0 := func(x float64) float64 { return 1 + 0.9*math.Sin(math.Pi*x) }
		sr3 := math.Sqrt(3)
		for _, x := range []float64{-0.7, 0, 0.3, 0.9} {
			fn.Evaluate([]float64{x}, 0.1, q)
			rho, u := q[0], q[1]/q[0]
			assert.InDelta(t, math.Pow(rho, 3), e3.(*Euler).Pressure(q), 1.e-12)
			rL, rR := rho-u/sr3, rho+u/sr3
			assert.InDelta(t, rL, rho0(x+sr3*rL*0.1), 1.e-12)
			assert.InDelta(t, rR, rho0(x-sr3*rR*0.1), 1.e-12)
		}
	}
}

func TestBoundaryStates(t *testing.T) {
	euler, err := New(Params{Type: "Euler"}, 2)
	require.NoError(t, err)
	eq := euler.(*Euler)
	n := [][]float64{{1, 0}}
	UI := utils.NewMatrix(1, 4)
	eq.Conservative(1, []float64{0.3, 0.2}, 1, UI.RowView(0))
	UB := utils.NewMatrix(1, 4)
	{ // Slip wall reverses the normal momentum only
		bc, err := NewBC(utils.BCSlipWall, nil, nil, euler)
		require.NoError(t, err)
		bc.BoundaryState(euler, [][]float64{{1, 0}}, 0, n, UI, UB)
		assert.InDelta(t, -0.3, UB.At(0, 1), 1.e-15)
		assert.InDelta(t, 0.2, UB.At(0, 2), 1.e-15)
		assert.InDelta(t, UI.At(0, 3), UB.At(0, 3), 1.e-15)
	}
	{ // Subsonic outlet takes the back pressure
		bc, err := NewBC(utils.BCPressureOutlet, nil, map[string]float64{"p": 0.8}, euler)
		require.NoError(t, err)
		bc.BoundaryState(euler, [][]float64{{1, 0}}, 0, n, UI, UB)
		assert.InDelta(t, 0.8, eq.Pressure(UB.RowView(0)), 1.e-12)
		// tangential velocity is kept
		assert.InDelta(t, 0.2, UB.At(0, 2)/UB.At(0, 0), 1.e-12)
	}
	{
		_, err := NewBC(utils.BCStateAll, nil, nil, euler)
		assert.Error(t, err)
		scalar, _ := New(Params{Type: "ConstAdvScalar"}, 1)
		_, err = NewBC(utils.BCSlipWall, nil, nil, scalar)
		assert.Error(t, err)
	}
}
