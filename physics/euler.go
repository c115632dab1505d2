package physics

import (
	"fmt"
	"math"
)

type FlowFunction uint8

const (
	Density FlowFunction = iota
	XMomentum
	YMomentum
	Energy
	Mach
	StaticPressure
	DynamicPressure
	SoundSpeed
	Velocity
	XVelocity
	YVelocity
	Enthalpy
)

func (pm FlowFunction) String() string {
	strings := []string{
		"Density",
		"XMomentum",
		"YMomentum",
		"Energy",
		"Mach",
		"Static Pressure",
		"Dynamic Pressure",
		"Sound Speed",
		"Velocity",
		"XVelocity",
		"YVelocity",
		"Enthalpy",
	}
	return strings[int(pm)]
}

// Euler is the compressible Euler system in 1 or 2 dimensions with state
// (rho, rho*u[, rho*v], E).
type Euler struct {
	*Base
	dim         int
	Gamma       float64
	GasConstant float64
}

func NewEuler(dim int, gamma, gasConstant float64) (c *Euler) {
	if gasConstant == 0 {
		gasConstant = 287.
	}
	c = &Euler{dim: dim, Gamma: gamma, GasConstant: gasConstant}
	c.Base = newBase(fmt.Sprintf("Euler%dD", dim), c)
	return
}

func (c *Euler) NumStateVars() int { return c.dim + 2 }
func (c *Euler) Dim() int          { return c.dim }
func (c *Euler) FluxDegree() int   { return 2 }

func (c *Euler) StateNames() []string {
	if c.dim == 1 {
		return []string{"Density", "XMomentum", "Energy"}
	}
	return []string{"Density", "XMomentum", "YMomentum", "Energy"}
}

// kinetic returns the squared speed and the kinetic energy per volume
func (c *Euler) kinetic(u []float64) (v2, q float64) {
	rho := u[0]
	for d := 0; d < c.dim; d++ {
		vd := u[1+d] / rho
		v2 += vd * vd
	}
	q = 0.5 * rho * v2
	return
}

func (c *Euler) Pressure(u []float64) float64 {
	_, q := c.kinetic(u)
	return (c.Gamma - 1) * (u[c.dim+1] - q)
}

func (c *Euler) FlowFunction(u []float64, pf FlowFunction) (f float64) {
	var (
		rho   = u[0]
		E     = u[c.dim+1]
		oorho = 1. / rho
		v2, q = c.kinetic(u)
		p     = (c.Gamma - 1) * (E - q)
		mom   = func(d int) float64 {
			if d < c.dim {
				return u[1+d]
			}
			return 0
		}
	)
	switch pf {
	case Density:
		f = rho
	case XMomentum:
		f = mom(0)
	case YMomentum:
		f = mom(1)
	case Energy:
		f = E
	case StaticPressure:
		f = p
	case DynamicPressure:
		f = q
	case SoundSpeed:
		f = math.Sqrt(math.Abs(c.Gamma * p * oorho))
	case Velocity:
		f = math.Sqrt(v2)
	case XVelocity:
		f = mom(0) * oorho
	case YVelocity:
		f = mom(1) * oorho
	case Mach:
		f = math.Sqrt(v2) / math.Sqrt(math.Abs(c.Gamma*p*oorho))
	case Enthalpy:
		f = (E + p) * oorho
	}
	return
}

func (c *Euler) Flux(u []float64, f [][]float64) {
	var (
		dim   = c.dim
		rho   = u[0]
		E     = u[dim+1]
		oorho = 1. / rho
		p     = c.Pressure(u)
	)
	for d := 0; d < dim; d++ {
		vd := u[1+d] * oorho
		f[d][0] = u[1+d]
		for e := 0; e < dim; e++ {
			f[d][1+e] = u[1+e] * vd
		}
		f[d][1+d] += p
		f[d][dim+1] = vd * (E + p)
	}
}

func (c *Euler) WaveSpeed(u, n []float64) float64 {
	var (
		rho = u[0]
		a   = c.FlowFunction(u, SoundSpeed)
		vn  float64
	)
	if n == nil {
		return c.FlowFunction(u, Velocity) + a
	}
	for d := 0; d < c.dim; d++ {
		vn += u[1+d] / rho * n[d]
	}
	return math.Abs(vn) + a
}

// Primitive converts (rho, rho*v, E) to density, velocity and pressure
func (c *Euler) Primitive(u []float64) (rho float64, vel []float64, p float64) {
	rho = u[0]
	vel = make([]float64, c.dim)
	for d := range vel {
		vel[d] = u[1+d] / rho
	}
	p = c.Pressure(u)
	return
}

// Conservative is the inverse of Primitive; u must have NumStateVars entries
func (c *Euler) Conservative(rho float64, vel []float64, p float64, u []float64) {
	var q float64
	u[0] = rho
	for d := 0; d < c.dim; d++ {
		u[1+d] = rho * vel[d]
		q += 0.5 * rho * vel[d] * vel[d]
	}
	u[c.dim+1] = p/(c.Gamma-1) + q
}

// RoeFlux is the Roe approximate Riemann flux along the unit normal n,
// computed in face normal coordinates and rotated back.
func (c *Euler) RoeFlux(uL, uR, n, flux []float64) {
	var (
		Gamma = c.Gamma
		GM1   = Gamma - 1
		dim   = c.dim
		nx    = n[0]
		ny    float64
	)
	if dim == 2 {
		ny = n[1]
	}
	// rotate momentum into (normal, tangential) components
	rotate := func(u []float64) (rho, un, ut, p, h float64) {
		rho = u[0]
		mu := u[1]
		var mv float64
		if dim == 2 {
			mv = u[2]
		}
		un = (mu*nx + mv*ny) / rho
		ut = (-mu*ny + mv*nx) / rho
		p = c.Pressure(u)
		h = (u[dim+1] + p) / rho
		return
	}
	rhoL, unL, utL, pL, hL := rotate(uL)
	rhoR, unR, utR, pR, hR := rotate(uR)

	// Roe average variables
	rhoLs, rhoRs := math.Sqrt(rhoL), math.Sqrt(rhoR)
	rhoLsRs := rhoLs + rhoRs

	rho := rhoLs * rhoRs
	u := (rhoLs*unL + rhoRs*unR) / rhoLsRs
	v := (rhoLs*utL + rhoRs*utR) / rhoLsRs
	h := (rhoLs*hL + rhoRs*hR) / rhoLsRs
	c2 := GM1 * (h - 0.5*(u*u+v*v))
	cs := math.Sqrt(c2)

	// Riemann fluxes
	dW1 := -0.5*(rho*(unR-unL))/cs + 0.5*(pR-pL)/c2
	dW2 := (rhoR - rhoL) - (pR-pL)/c2
	dW3 := rho * (utR - utL)
	dW4 := 0.5*(rho*(unR-unL))/cs + 0.5*(pR-pL)/c2
	dW1 = math.Abs(u-cs) * dW1
	dW2 = math.Abs(u) * dW2
	dW3 = math.Abs(u) * dW3
	dW4 = math.Abs(u+cs) * dW4

	// normal fluxes in rotated coordinates: (mass, normal mom, tangential mom, energy)
	fn := func(rho, un, ut, p, h float64) [4]float64 {
		return [4]float64{rho * un, rho*un*un + p, rho * un * ut, rho * un * h}
	}
	fL, fR := fn(rhoL, unL, utL, pL, hL), fn(rhoR, unR, utR, pR, hR)
	var f [4]float64
	for i := range f {
		f[i] = 0.5 * (fL[i] + fR[i])
	}
	f[0] -= 0.5 * (dW1 + dW2 + dW4)
	f[1] -= 0.5 * (dW1*(u-cs) + dW2*u + dW4*(u+cs))
	f[2] -= 0.5 * (dW1*v + dW2*v + dW3 + dW4*v)
	f[3] -= 0.5 * (dW1*(h-u*cs) + 0.5*dW2*(u*u+v*v) + dW3*v + dW4*(h+u*cs))

	// rotate back to Cartesian
	flux[0] = f[0]
	if dim == 1 {
		flux[1] = nx * f[1]
		flux[2] = f[3]
		return
	}
	flux[1], flux[2] = nx*f[1]-ny*f[2], ny*f[1]+nx*f[2]
	flux[3] = f[3]
}
