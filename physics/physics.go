package physics

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/notargets/aderdg/utils"
)

// ErrUnknown is wrapped by constructors given a name with no implementation.
var ErrUnknown = errors.New("unknown physics component")

// Physics is the capability set the solver needs from an equation set.
// State arrays are nq x ns matrices, one row per point.
type Physics interface {
	Name() string
	NumStateVars() int
	Dim() int
	// FluxDegree is the polynomial degree of the flux in the state, used to
	// size quadrature rules
	FluxDegree() int
	StateNames() []string
	// ConvFluxInterior fills F[d] (nq x ns) with the physical flux
	ConvFluxInterior(U utils.Matrix, F []utils.Matrix)
	// ConvFluxNumerical fills F (nq x ns) with the numerical flux along the
	// unit normals, pointing from UL to UR
	ConvFluxNumerical(UL, UR utils.Matrix, normals [][]float64, F utils.Matrix)
	// SourceState adds every source term into S
	SourceState(x [][]float64, t float64, U, S utils.Matrix)
	// SourceJacobian adds dS/dU at one point into J (ns x ns). It fails if a
	// source has no Jacobian.
	SourceJacobian(x []float64, t float64, u []float64, J utils.Matrix) error
	HasSourceJacobian() bool
	NumSources() int
	MaxWaveSpeed(U utils.Matrix) float64
	BC(group string) (BoundaryCondition, bool)
}

// PointEquations is the pointwise flux of an equation set
type PointEquations interface {
	NumStateVars() int
	Dim() int
	Flux(u []float64, f [][]float64)
	// WaveSpeed is the largest signal speed along n, or in any direction
	// when n is nil
	WaveSpeed(u, n []float64) float64
}

// Base carries the parts shared by all equation sets: numerical flux,
// sources and boundary conditions.
type Base struct {
	name    string
	eq      PointEquations
	NumFlux NumericalFlux
	sources []Source
	bcs     map[string]BoundaryCondition
}

func newBase(name string, eq PointEquations) *Base {
	return &Base{
		name:    name,
		eq:      eq,
		NumFlux: LaxFriedrichs{},
		bcs:     make(map[string]BoundaryCondition),
	}
}

func (b *Base) Name() string      { return b.name }
func (b *Base) NumStateVars() int { return b.eq.NumStateVars() }
func (b *Base) Dim() int          { return b.eq.Dim() }
func (b *Base) NumSources() int   { return len(b.sources) }

func (b *Base) AddSource(s Source) { b.sources = append(b.sources, s) }

func (b *Base) SetBC(group string, bc BoundaryCondition) { b.bcs[group] = bc }

func (b *Base) BC(group string) (bc BoundaryCondition, ok bool) {
	bc, ok = b.bcs[group]
	return
}

// BCGroups lists the groups with a boundary condition, sorted
func (b *Base) BCGroups() (names []string) {
	for name := range b.bcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return
}

func (b *Base) SetNumericalFlux(nf NumericalFlux) (err error) {
	if err = nf.Supports(b.eq); err != nil {
		return
	}
	b.NumFlux = nf
	return
}

func newFluxScratch(dim, ns int) (f [][]float64) {
	f = make([][]float64, dim)
	for d := range f {
		f[d] = make([]float64, ns)
	}
	return
}

func (b *Base) ConvFluxInterior(U utils.Matrix, F []utils.Matrix) {
	var (
		nq, ns = U.Dims()
		f      = newFluxScratch(b.Dim(), ns)
	)
	for i := 0; i < nq; i++ {
		b.eq.Flux(U.RowView(i), f)
		for d := range F {
			copy(F[d].RowView(i), f[d])
		}
	}
}

func (b *Base) ConvFluxNumerical(UL, UR utils.Matrix, normals [][]float64, F utils.Matrix) {
	nq, _ := UL.Dims()
	for i := 0; i < nq; i++ {
		b.NumFlux.Compute(b.eq, UL.RowView(i), UR.RowView(i), normals[i], F.RowView(i))
	}
}

func (b *Base) SourceState(x [][]float64, t float64, U, S utils.Matrix) {
	nq, _ := U.Dims()
	for _, src := range b.sources {
		for i := 0; i < nq; i++ {
			src.Add(x[i], t, U.RowView(i), S.RowView(i))
		}
	}
}

func (b *Base) HasSourceJacobian() bool {
	for _, src := range b.sources {
		if _, ok := src.(JacobianSource); !ok {
			return false
		}
	}
	return true
}

func (b *Base) SourceJacobian(x []float64, t float64, u []float64, J utils.Matrix) error {
	for _, src := range b.sources {
		js, ok := src.(JacobianSource)
		if !ok {
			return fmt.Errorf("source %s has no Jacobian", src.Name())
		}
		js.Jacobian(x, t, u, J)
	}
	return nil
}

func (b *Base) MaxWaveSpeed(U utils.Matrix) (a float64) {
	nq, _ := U.Dims()
	for i := 0; i < nq; i++ {
		a = math.Max(a, b.eq.WaveSpeed(U.RowView(i), nil))
	}
	return
}

// Eq exposes the pointwise equations, used by limiters and BCs
func (b *Base) Eq() PointEquations { return b.eq }

// Params selects and configures an equation set
type Params struct {
	Type              string
	ConvFluxNumerical string
	ConstVelocity     []float64
	SpecificHeatRatio float64
	GasConstant       float64
}

// Configurable is the construction-time surface of every equation set
type Configurable interface {
	Physics
	AddSource(s Source)
	SetBC(group string, bc BoundaryCondition)
	SetNumericalFlux(nf NumericalFlux) error
	Eq() PointEquations
}

// New builds the equation set named by p.Type for a mesh of dimension dim.
func New(p Params, dim int) (phys Configurable, err error) {
	switch strings.TrimSpace(p.Type) {
	case "ConstAdvScalar":
		vel := p.ConstVelocity
		if len(vel) == 0 {
			vel = utils.ConstArray(dim, 1)
		}
		if len(vel) != dim {
			return nil, fmt.Errorf("ConstVelocity has %d components for a %d-D mesh", len(vel), dim)
		}
		phys = NewConstAdvScalar(vel)
	case "Burgers", "Burgers1D":
		if dim != 1 {
			return nil, fmt.Errorf("Burgers1D on a %d-D mesh", dim)
		}
		phys = NewBurgers1D()
	case "Euler", "Euler1D", "Euler2D":
		gamma := p.SpecificHeatRatio
		if gamma == 0 {
			gamma = 1.4
		}
		phys = NewEuler(dim, gamma, p.GasConstant)
	default:
		return nil, fmt.Errorf("%w: physics %q", ErrUnknown, p.Type)
	}
	if p.ConvFluxNumerical != "" {
		var nf NumericalFlux
		if nf, err = NewNumericalFlux(p.ConvFluxNumerical); err != nil {
			return
		}
		if err = phys.SetNumericalFlux(nf); err != nil {
			return nil, err
		}
	}
	return
}
