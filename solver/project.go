package solver

import (
	"fmt"
	"math"

	"github.com/notargets/aderdg/basis"
	"github.com/notargets/aderdg/mesh"
	"github.com/notargets/aderdg/physics"
	"github.com/notargets/aderdg/utils"
)

// InitState sets U to fn at time t: the L2 projection onto the basis, or
// the nodal values when interpolate is set and the basis is nodal.
func (a *Assembler) InitState(U *Field, fn physics.Function, t float64, interpolate bool) (err error) {
	if err = a.checkField("initial state", U); err != nil {
		return
	}
	b := a.Ops.Basis
	if interpolate {
		if !b.IsNodal() {
			return &ConfigIncompatibleError{Setting: "InterpolateIC",
				Reason: fmt.Sprintf("basis %s is not nodal", b.Name())}
		}
		for k := 0; k < U.NElem; k++ {
			physics.EvaluateAll(fn, a.Mesh.PhysPoints(k, b.Nodes()), t, U.Elem(k))
		}
		return
	}
	eo := a.Ops.Elem
	Fq := utils.NewMatrix(eo.NQ, U.NS)
	for k := 0; k < U.NElem; k++ {
		physics.EvaluateAll(fn, eo.X[k], t, Fq)
		Fq.ScaleRows(eo.WDJac[k])
		Uk := U.Elem(k)
		Uk.Assign(eo.IMM[k].Mul(eo.Phi.Transpose().Mul(Fq)))
	}
	return
}

// errorRule is a quadrature richer than the operator rule, so that the
// error of an L2 projection does not vanish at the integration points.
type errorRule struct {
	phi   utils.Matrix
	x     [][][]float64
	wdjac [][]float64
}

func (a *Assembler) errorQuadrature() (er *errorRule, err error) {
	if a.errRule != nil {
		return a.errRule, nil
	}
	var (
		m  = a.Mesh
		b  = a.Ops.Basis
		q  = m.Shape.Quadrature(2*a.Ops.Elem.Order + 4 + (m.GOrder-1)*m.Dim)
		gG = m.GBasis().Gradients(q.Pts)
	)
	er = &errorRule{
		phi:   b.Values(q.Pts),
		x:     make([][][]float64, m.NElem()),
		wdjac: make([][]float64, m.NElem()),
	}
	for k := range er.x {
		var g mesh.Geometry
		if g, err = m.ElementGeometry(k, gG); err != nil {
			return nil, geometryErr(err)
		}
		er.x[k] = m.PhysPoints(k, q.Pts)
		er.wdjac[k] = make([]float64, q.NQ())
		for i, w := range q.Wts {
			er.wdjac[k][i] = w * g.DJac[i]
		}
	}
	a.errRule = er
	return
}

// L2Error is the L2 norm over the mesh of U minus exact at time t, summed
// over the state variables.
func (a *Assembler) L2Error(U *Field, exact physics.Function, t float64) (e float64, err error) {
	if err = a.checkField("solution", U); err != nil {
		return
	}
	var er *errorRule
	if er, err = a.errorQuadrature(); err != nil {
		return
	}
	nq, _ := er.phi.Dims()
	Ue := utils.NewMatrix(nq, U.NS)
	for k := 0; k < U.NElem; k++ {
		physics.EvaluateAll(exact, er.x[k], t, Ue)
		Ue.Subtract(er.phi.Mul(U.Elem(k)))
		for q, w := range er.wdjac[k] {
			for _, v := range Ue.RowView(q) {
				e += w * v * v
			}
		}
	}
	return math.Sqrt(e), nil
}

// ProjectField returns the L2 projection of Uold, expressed on bOld, onto
// bNew. Used when the solution order changes.
func ProjectField(m *mesh.Mesh, Uold *Field, bOld, bNew basis.Basis) (Unew *Field, err error) {
	if Uold.NB != bOld.NB() {
		return nil, &DimensionMismatchError{What: "projected field basis size", Have: Uold.NB, Expected: bOld.NB()}
	}
	var (
		p      = max(bOld.Order(), bNew.Order(), 1)
		q      = m.Shape.Quadrature(2*p + (m.GOrder-1)*m.Dim)
		phiOld = bOld.Values(q.Pts)
		phiNew = bNew.Values(q.Pts)
		gG     = m.GBasis().Gradients(q.Pts)
	)
	Unew = NewField(Uold.NElem, bNew.NB(), Uold.NS)
	for k := 0; k < Uold.NElem; k++ {
		var g mesh.Geometry
		if g, err = m.ElementGeometry(k, gG); err != nil {
			return nil, geometryErr(err)
		}
		var (
			MM  = basis.MassMatrix(phiNew, q.Wts, g.DJac)
			B   = basis.StiffnessMatrix(phiNew, phiOld, q.Wts, g.DJac)
			Uk  utils.Matrix
			dst = Unew.Elem(k)
		)
		if Uk, err = MM.LUSolve(B.Mul(Uold.Elem(k))); err != nil {
			return nil, fmt.Errorf("element %d: %w", k, err)
		}
		dst.Assign(Uk)
	}
	return
}
