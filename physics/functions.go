package physics

import (
	"fmt"
	"math"
	"strings"

	"github.com/notargets/aderdg/utils"
)

// Function is a state field of space and time, used for initial
// conditions, exact solutions and prescribed boundary states.
type Function interface {
	Name() string
	Evaluate(x []float64, t float64, u []float64)
}

// EvaluateAll fills U (np x ns) at the points x
func EvaluateAll(fn Function, x [][]float64, t float64, U utils.Matrix) {
	for i := range x {
		fn.Evaluate(x[i], t, U.RowView(i))
	}
}

type Uniform struct {
	State []float64
}

func (Uniform) Name() string { return "Uniform" }

func (f Uniform) Evaluate(x []float64, t float64, u []float64) { copy(u, f.State) }

// Sine is sin(Omega * (x - c t)) summed over directions, advected with
// velocity C.
type Sine struct {
	Omega float64
	C     []float64
}

func (Sine) Name() string { return "Sine" }

func (f Sine) Evaluate(x []float64, t float64, u []float64) {
	var arg float64
	for d := range x {
		arg += x[d] - f.C[d]*t
	}
	u[0] = math.Sin(f.Omega * arg)
}

// DampingSine is an advected sine decaying as exp(Nu t), the exact solution
// of advection with SimpleSource{Nu}.
type DampingSine struct {
	Omega, Nu float64
	C         []float64
}

func (DampingSine) Name() string { return "DampingSine" }

func (f DampingSine) Evaluate(x []float64, t float64, u []float64) {
	Sine{Omega: f.Omega, C: f.C}.Evaluate(x, t, u)
	u[0] *= math.Exp(f.Nu * t)
}

// Gaussian is an advected Gaussian pulse centred at X0 at t = 0
type Gaussian struct {
	X0    []float64
	Sigma float64
	C     []float64
}

func (Gaussian) Name() string { return "Gaussian" }

func (f Gaussian) Evaluate(x []float64, t float64, u []float64) {
	var r2 float64
	for d := range x {
		dx := x[d] - f.C[d]*t - f.X0[d]
		r2 += dx * dx
	}
	u[0] = math.Exp(-r2 / (2 * f.Sigma * f.Sigma))
}

// DensityWave is a density perturbation advected by a uniform flow in x at
// constant pressure, an exact Euler solution.
type DensityWave struct {
	Amp, P, U float64
	eq        *Euler
}

func (DensityWave) Name() string { return "DensityWave" }

func (f DensityWave) Evaluate(x []float64, t float64, u []float64) {
	rho := 1 + f.Amp*math.Sin(math.Pi*(x[0]-f.U*t))
	vel := make([]float64, f.eq.dim)
	vel[0] = f.U
	f.eq.Conservative(rho, vel, f.P, u)
}

// SmoothIsentropicFlow is the 1-D Euler flow from rho = 1 + A sin(pi x) at
// rest with p = rho^3 and gamma 3. Both u-sqrt(3)rho and u+sqrt(3)rho are
// then constant along their characteristics, which are straight lines until
// they cross.
type SmoothIsentropicFlow struct {
	A  float64
	eq *Euler
}

func (SmoothIsentropicFlow) Name() string { return "SmoothIsentropicFlow" }

func (f SmoothIsentropicFlow) rho0(x float64) float64 { return 1 + f.A*math.Sin(math.Pi*x) }

// foot returns the origin of the characteristic x0 + s*sqrt(3)*rho0(x0)*t
// that reaches x at t.
func (f SmoothIsentropicFlow) foot(x, t, s float64) (x0 float64) {
	x0 = x
	for it := 0; it < 50; it++ {
		var (
			g  = x0 + s*math.Sqrt(3)*f.rho0(x0)*t - x
			dg = 1 + s*math.Sqrt(3)*f.A*math.Pi*math.Cos(math.Pi*x0)*t
		)
		dx := g / dg
		x0 -= dx
		if math.Abs(dx) < 1.e-15 {
			break
		}
	}
	return
}

func (f SmoothIsentropicFlow) Evaluate(x []float64, t float64, u []float64) {
	var (
		rhoL = f.rho0(f.foot(x[0], t, -1))
		rhoR = f.rho0(f.foot(x[0], t, 1))
		rho  = 0.5 * (rhoL + rhoR)
		vel  = []float64{math.Sqrt(3) * (rho - rhoL)}
	)
	f.eq.Conservative(rho, vel, math.Pow(rho, f.eq.Gamma), u)
}

// IsentropicVortex is the isentropic vortex convected by a uniform flow Ufs
// in x, an exact solution of the 2-D Euler equations.
type IsentropicVortex struct {
	Beta, X0, Y0, Gamma float64
	Ufs                 float64
}

func NewIVortex(Beta, X0, Y0, Gamma float64, UfsO ...float64) (iv *IsentropicVortex) {
	var (
		Ufs = 1.0
	)
	if len(UfsO) > 0 {
		Ufs = UfsO[0]
	}
	iv = &IsentropicVortex{
		Beta:  Beta,
		X0:    X0,
		Y0:    Y0,
		Gamma: Gamma,
		Ufs:   Ufs,
	}
	return
}

func (IsentropicVortex) Name() string { return "IsentropicVortex" }

// GetState returns primitive variables at (x, y, t)
func (iv *IsentropicVortex) GetState(t, x, y float64) (u, v, rho, p float64) {
	var (
		oo2pi = 0.5 * (1. / math.Pi)
		Gamma = iv.Gamma
		GM1   = Gamma - 1
		OOGM1 = 1. / GM1
		pi2   = math.Pi * math.Pi
		beta  = iv.Beta
		beta2 = beta * beta
		fac   = 16 * Gamma * pi2
	)
	u, v = iv.Ufs, 0.
	// vortex center at time t
	xmut, ymvt := x-u*t, y-v*t
	r2 := utils.POW(xmut-iv.X0, 2) + utils.POW(ymvt-iv.Y0, 2)
	ex1r := math.Exp(1 - r2)
	tv1 := 1.0 - (GM1 * beta2 * math.Exp(2.0*(1.0-r2)) / fac)
	u -= beta * ex1r * (ymvt - iv.Y0) * oo2pi
	v += beta * ex1r * (xmut - iv.X0) * oo2pi
	rho = math.Pow(tv1, OOGM1)
	p = math.Pow(rho, Gamma)
	return
}

func (iv *IsentropicVortex) Evaluate(x []float64, t float64, q []float64) {
	u, v, rho, p := iv.GetState(t, x[0], x[1])
	q[0], q[1], q[2] = rho, rho*u, rho*v
	q[3] = p/(iv.Gamma-1) + 0.5*rho*(u*u+v*v)
}

// NewFunction builds a named function for phys from numeric parameters.
// Advection speeds default to the physics' constant velocity.
func NewFunction(name string, params map[string]float64, phys Physics) (fn Function, err error) {
	var (
		dim = phys.Dim()
		ns  = phys.NumStateVars()
		vel = make([]float64, dim)
	)
	if ca, ok := phys.(*ConstAdvScalar); ok {
		copy(vel, ca.Velocity)
	}
	for d, key := range []string{"cx", "cy"}[:dim] {
		vel[d] = param(params, key, vel[d])
	}
	scalar := func() error {
		if ns != 1 {
			return fmt.Errorf("function %s needs a scalar equation, %s has %d states",
				name, phys.Name(), ns)
		}
		return nil
	}
	euler := func(wantDim int) (eq *Euler, err error) {
		var ok bool
		if eq, ok = phys.(*Euler); !ok || (wantDim > 0 && eq.dim != wantDim) {
			err = fmt.Errorf("function %s needs Euler physics, have %s", name, phys.Name())
		}
		return
	}
	switch strings.TrimSpace(name) {
	case "Uniform":
		state := make([]float64, ns)
		for i, sn := range phys.StateNames() {
			state[i] = param(params, sn, param(params, "state", 0))
		}
		fn = Uniform{State: state}
	case "Sine":
		err = scalar()
		fn = Sine{Omega: param(params, "omega", 2*math.Pi), C: vel}
	case "DampingSine":
		err = scalar()
		fn = DampingSine{Omega: param(params, "omega", 2*math.Pi), Nu: param(params, "nu", -1), C: vel}
	case "Gaussian":
		err = scalar()
		x0 := make([]float64, dim)
		for d, key := range []string{"x0", "y0"}[:dim] {
			x0[d] = param(params, key, 0)
		}
		fn = Gaussian{X0: x0, Sigma: param(params, "sigma", 0.1), C: vel}
	case "DensityWave":
		var eq *Euler
		if eq, err = euler(0); err == nil {
			fn = DensityWave{Amp: param(params, "amp", 0.1), P: param(params, "p", 1),
				U: param(params, "u", 1), eq: eq}
		}
	case "SmoothIsentropicFlow":
		var eq *Euler
		if eq, err = euler(1); err == nil && eq.Gamma != 3 {
			err = fmt.Errorf("function %s needs a specific heat ratio of 3, have %g", name, eq.Gamma)
		}
		if err == nil {
			fn = SmoothIsentropicFlow{A: param(params, "a", 0.9), eq: eq}
		}
	case "IsentropicVortex":
		var eq *Euler
		if eq, err = euler(2); err == nil {
			fn = NewIVortex(param(params, "beta", 5), param(params, "x0", 0), param(params, "y0", 0),
				eq.Gamma, param(params, "ufs", 1))
		}
	default:
		err = fmt.Errorf("%w: function %q", ErrUnknown, name)
	}
	if err != nil {
		fn = nil
	}
	return
}
