package physics

import (
	"fmt"
	"math"

	"github.com/notargets/aderdg/utils"
)

// BoundaryCondition produces the exterior state at boundary points from the
// interior trace UI; the numerical flux is then evaluated between them.
type BoundaryCondition interface {
	Type() utils.BCType
	BoundaryState(phys Physics, x [][]float64, t float64, normals [][]float64, UI, UB utils.Matrix)
}

// StateAll prescribes the full exterior state from a function
type StateAll struct {
	Fn Function
}

func (StateAll) Type() utils.BCType { return utils.BCStateAll }

func (bc StateAll) BoundaryState(phys Physics, x [][]float64, t float64, normals [][]float64, UI, UB utils.Matrix) {
	EvaluateAll(bc.Fn, x, t, UB)
}

// Extrapolate copies the interior state
type Extrapolate struct{}

func (Extrapolate) Type() utils.BCType { return utils.BCExtrapolate }

func (Extrapolate) BoundaryState(phys Physics, x [][]float64, t float64, normals [][]float64, UI, UB utils.Matrix) {
	UB.Assign(UI)
}

// SlipWall mirrors the normal velocity of the interior state
type SlipWall struct{}

func (SlipWall) Type() utils.BCType { return utils.BCSlipWall }

func (SlipWall) BoundaryState(phys Physics, x [][]float64, t float64, normals [][]float64, UI, UB utils.Matrix) {
	var (
		dim   = phys.Dim()
		nq, _ = UI.Dims()
	)
	UB.Assign(UI)
	for i := 0; i < nq; i++ {
		var (
			ub  = UB.RowView(i)
			n   = normals[i]
			mvn float64
		)
		for d := 0; d < dim; d++ {
			mvn += ub[1+d] * n[d]
		}
		for d := 0; d < dim; d++ {
			ub[1+d] -= 2 * mvn * n[d]
		}
	}
}

// PressureOutlet fixes the back pressure for subsonic outflow using the
// outgoing Riemann invariant and interior entropy. Supersonic outflow is
// extrapolated.
type PressureOutlet struct {
	P  float64
	eq *Euler
}

func (PressureOutlet) Type() utils.BCType { return utils.BCPressureOutlet }

func (bc PressureOutlet) BoundaryState(phys Physics, x [][]float64, t float64, normals [][]float64, UI, UB utils.Matrix) {
	var (
		eq    = bc.eq
		gm1   = eq.Gamma - 1
		nq, _ = UI.Dims()
	)
	UB.Assign(UI)
	for i := 0; i < nq; i++ {
		var (
			ui          = UI.RowView(i)
			n           = normals[i]
			rho, vel, p = eq.Primitive(ui)
			c           = math.Sqrt(eq.Gamma * p / rho)
			vn          float64
		)
		for d := range vel {
			vn += vel[d] * n[d]
		}
		if vn >= c {
			continue
		}
		rhoB := rho * math.Pow(bc.P/p, 1/eq.Gamma)
		cB := math.Sqrt(eq.Gamma * bc.P / rhoB)
		jPlus := vn + 2*c/gm1
		vnB := jPlus - 2*cB/gm1
		for d := range vel {
			vel[d] += (vnB - vn) * n[d]
		}
		eq.Conservative(rhoB, vel, bc.P, UB.RowView(i))
	}
}

// NewBC builds a boundary condition of the given kind. fn is required for
// StateAll; params carries "p" for PressureOutlet.
func NewBC(kind utils.BCType, fn Function, params map[string]float64, phys Physics) (bc BoundaryCondition, err error) {
	switch kind {
	case utils.BCStateAll:
		if fn == nil {
			return nil, fmt.Errorf("StateAll boundary needs a function")
		}
		bc = StateAll{Fn: fn}
	case utils.BCExtrapolate:
		bc = Extrapolate{}
	case utils.BCSlipWall, utils.BCPressureOutlet:
		eq, ok := phys.(*Euler)
		if !ok {
			return nil, fmt.Errorf("%s boundary requires Euler physics, have %s", kind, phys.Name())
		}
		if kind == utils.BCSlipWall {
			bc = SlipWall{}
		} else {
			bc = PressureOutlet{P: param(params, "p", 1), eq: eq}
		}
	default:
		err = fmt.Errorf("%w: boundary condition %s", ErrUnknown, kind)
	}
	return
}
