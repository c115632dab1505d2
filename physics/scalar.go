package physics

import (
	"math"
)

// ConstAdvScalar is linear advection of one scalar, dU/dt + c.grad(U) = S
type ConstAdvScalar struct {
	*Base
	Velocity []float64
}

func NewConstAdvScalar(vel []float64) (c *ConstAdvScalar) {
	c = &ConstAdvScalar{Velocity: append([]float64{}, vel...)}
	c.Base = newBase("ConstAdvScalar", c)
	return
}

func (c *ConstAdvScalar) NumStateVars() int    { return 1 }
func (c *ConstAdvScalar) Dim() int             { return len(c.Velocity) }
func (c *ConstAdvScalar) FluxDegree() int      { return 1 }
func (c *ConstAdvScalar) StateNames() []string { return []string{"Scalar"} }

func (c *ConstAdvScalar) Flux(u []float64, f [][]float64) {
	for d, v := range c.Velocity {
		f[d][0] = v * u[0]
	}
}

func (c *ConstAdvScalar) WaveSpeed(u, n []float64) (a float64) {
	if n == nil {
		for _, v := range c.Velocity {
			a += v * v
		}
		return math.Sqrt(a)
	}
	for d, v := range c.Velocity {
		a += v * n[d]
	}
	return math.Abs(a)
}

// Burgers1D is the inviscid Burgers equation, dU/dt + d(U^2/2)/dx = S
type Burgers1D struct {
	*Base
}

func NewBurgers1D() (b *Burgers1D) {
	b = &Burgers1D{}
	b.Base = newBase("Burgers1D", b)
	return
}

func (b *Burgers1D) NumStateVars() int    { return 1 }
func (b *Burgers1D) Dim() int             { return 1 }
func (b *Burgers1D) FluxDegree() int      { return 2 }
func (b *Burgers1D) StateNames() []string { return []string{"Scalar"} }

func (b *Burgers1D) Flux(u []float64, f [][]float64) {
	f[0][0] = 0.5 * u[0] * u[0]
}

func (b *Burgers1D) WaveSpeed(u, n []float64) float64 {
	return math.Abs(u[0])
}
