package physics

import (
	"fmt"
	"strings"

	"github.com/notargets/aderdg/utils"
)

// Source adds a pointwise source term into s
type Source interface {
	Name() string
	Add(x []float64, t float64, u, s []float64)
}

// JacobianSource can also add dS/dU (ns x ns) into J
type JacobianSource interface {
	Source
	Jacobian(x []float64, t float64, u []float64, J utils.Matrix)
}

// SimpleSource is S = Nu*U
type SimpleSource struct {
	Nu float64
}

func (SimpleSource) Name() string { return "SimpleSource" }

func (ss SimpleSource) Add(x []float64, t float64, u, s []float64) {
	for i := range u {
		s[i] += ss.Nu * u[i]
	}
}

func (ss SimpleSource) Jacobian(x []float64, t float64, u []float64, J utils.Matrix) {
	for i := range u {
		J.Set(i, i, J.At(i, i)+ss.Nu)
	}
}

// GravitySource is a constant body force G along direction Dir acting on
// the Euler momentum and energy equations.
type GravitySource struct {
	G   float64
	Dir int
	dim int
}

func (GravitySource) Name() string { return "GravitySource" }

func (gs GravitySource) Add(x []float64, t float64, u, s []float64) {
	s[1+gs.Dir] += u[0] * gs.G
	s[gs.dim+1] += u[1+gs.Dir] * gs.G
}

func (gs GravitySource) Jacobian(x []float64, t float64, u []float64, J utils.Matrix) {
	J.Set(1+gs.Dir, 0, J.At(1+gs.Dir, 0)+gs.G)
	J.Set(gs.dim+1, 1+gs.Dir, J.At(gs.dim+1, 1+gs.Dir)+gs.G)
}

// NewSource builds a named source for phys from numeric parameters.
func NewSource(name string, params map[string]float64, phys Physics) (src Source, err error) {
	switch strings.TrimSpace(name) {
	case "SimpleSource":
		src = SimpleSource{Nu: param(params, "nu", -1)}
	case "GravitySource":
		if _, ok := phys.(*Euler); !ok {
			return nil, fmt.Errorf("GravitySource requires Euler physics, have %s", phys.Name())
		}
		dir := int(param(params, "direction", float64(phys.Dim()-1)))
		if dir < 0 || dir >= phys.Dim() {
			return nil, fmt.Errorf("GravitySource direction %d out of range", dir)
		}
		src = GravitySource{G: param(params, "g", -9.81), Dir: dir, dim: phys.Dim()}
	default:
		err = fmt.Errorf("%w: source %q", ErrUnknown, name)
	}
	return
}

func param(params map[string]float64, key string, def float64) float64 {
	for k, v := range params {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return def
}
