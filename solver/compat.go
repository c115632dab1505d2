package solver

import (
	"errors"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/notargets/aderdg/basis"
	"github.com/notargets/aderdg/mesh"
	"github.com/notargets/aderdg/physics"
)

// Setup is the combination of choices checked before a run starts
type Setup struct {
	Mesh    *mesh.Mesh
	Basis   basis.Basis
	Phys    physics.Physics
	Scheme  string
	Limiter string

	LinearGeomMapping bool
	UniformMesh       bool
	InterpolateFlux   bool
	InterpolateIC     bool
	ImplicitSource    bool
}

// CheckCompatibility returns every conflict of s, joined, or nil.
// UniformMeshTol bounds the volume spread of a mesh declared uniform
const UniformMeshTol = 1e-8

func CheckCompatibility(s Setup) error {
	var errs []error
	bad := func(setting, format string, args ...interface{}) {
		errs = append(errs, &ConfigIncompatibleError{Setting: setting, Reason: fmt.Sprintf(format, args...)})
	}
	m, b := s.Mesh, s.Basis
	if b.Shape().Dim() != m.Dim {
		bad("SolutionBasis", "basis %s is %d-D, mesh is %d-D", b.Name(), b.Shape().Dim(), m.Dim)
	} else if b.Shape() != m.Shape {
		bad("SolutionBasis", "basis %s is on %s, mesh elements are %s", b.Name(), b.Shape(), m.Shape)
	}
	if s.Phys.Dim() != m.Dim {
		bad("Physics", "%s is %d-D, mesh is %d-D", s.Phys.Name(), s.Phys.Dim(), m.Dim)
	}
	if s.LinearGeomMapping && m.GOrder != 1 {
		bad("LinearGeomMapping", "mesh geometric order is %d", m.GOrder)
	}
	if s.UniformMesh {
		vol, err := m.Volumes()
		if err != nil {
			errs = append(errs, geometryErr(err))
		} else {
			// spread of the volumes relative to the domain volume
			vmin, vmax, total := floats.Min(vol), floats.Max(vol), floats.Sum(vol)
			if (vmax-vmin)/total > UniformMeshTol {
				bad("UniformMesh", "element volumes range over [%g, %g]", vmin, vmax)
			}
		}
	}
	ns := s.Phys.NumStateVars()
	switch strings.ToLower(s.Limiter) {
	case "", "none":
	case "scalarpositivitypreserving":
		if ns != 1 {
			bad("ApplyLimiter", "ScalarPositivityPreserving needs a scalar equation, %s has %d state variables",
				s.Phys.Name(), ns)
		}
	case "positivitypreserving":
		if ns == 1 {
			bad("ApplyLimiter", "PositivityPreserving needs a system, %s is scalar", s.Phys.Name())
		}
	default:
		errs = append(errs, &UnsupportedSchemeError{Kind: "limiter", Name: s.Limiter})
	}
	if (s.InterpolateFlux || s.InterpolateIC) && !b.IsNodal() {
		bad("InterpolateFlux", "basis %s is not nodal", b.Name())
	}
	if strings.EqualFold(s.Scheme, "ADER") {
		if m.Shape != basis.Segment {
			bad("TimeStepper", "ADER needs a mesh of segments, have %s", m.Shape)
		}
		if s.ImplicitSource && !s.Phys.HasSourceJacobian() {
			bad("SourceTreatment", "a source of %s has no Jacobian", s.Phys.Name())
		}
	}
	return errors.Join(errs...)
}
