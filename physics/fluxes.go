package physics

import (
	"fmt"
	"math"
	"strings"
)

// NumericalFlux computes the flux through a face along the unit normal n,
// from state uL on the side n points away from to state uR.
type NumericalFlux interface {
	Name() string
	Supports(eq PointEquations) error
	Compute(eq PointEquations, uL, uR, n, f []float64)
}

var fluxNames = map[string]func() NumericalFlux{
	"laxfriedrichs":  func() NumericalFlux { return LaxFriedrichs{} },
	"lax":            func() NumericalFlux { return LaxFriedrichs{} },
	"lax friedrichs": func() NumericalFlux { return LaxFriedrichs{} },
	"roe":            func() NumericalFlux { return Roe{} },
}

func NewNumericalFlux(label string) (nf NumericalFlux, err error) {
	mk, ok := fluxNames[strings.ToLower(strings.TrimSpace(label))]
	if !ok {
		err = fmt.Errorf("%w: numerical flux %q", ErrUnknown, label)
		return
	}
	return mk(), nil
}

// LaxFriedrichs is the local Lax-Friedrichs (Rusanov) flux
type LaxFriedrichs struct{}

func (LaxFriedrichs) Name() string                  { return "LaxFriedrichs" }
func (LaxFriedrichs) Supports(PointEquations) error { return nil }

func (LaxFriedrichs) Compute(eq PointEquations, uL, uR, n, f []float64) {
	var (
		dim, ns = eq.Dim(), eq.NumStateVars()
		fL      = newFluxScratch(dim, ns)
		fR      = newFluxScratch(dim, ns)
		maxV    = math.Max(eq.WaveSpeed(uL, n), eq.WaveSpeed(uR, n))
	)
	eq.Flux(uL, fL)
	eq.Flux(uR, fR)
	for s := 0; s < ns; s++ {
		f[s] = 0
		for d := 0; d < dim; d++ {
			f[s] += 0.5 * n[d] * (fL[d][s] + fR[d][s])
		}
		f[s] += 0.5 * maxV * (uL[s] - uR[s])
	}
}

type roeCapable interface {
	RoeFlux(uL, uR, n, f []float64)
}

// Roe delegates to equation sets with a Roe linearization
type Roe struct{}

func (Roe) Name() string { return "Roe" }

func (Roe) Supports(eq PointEquations) error {
	if _, ok := eq.(roeCapable); !ok {
		return fmt.Errorf("Roe flux is not available for %T", eq)
	}
	return nil
}

func (Roe) Compute(eq PointEquations, uL, uR, n, f []float64) {
	eq.(roeCapable).RoeFlux(uL, uR, n, f)
}
