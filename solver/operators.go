package solver

import (
	"context"
	"fmt"

	"github.com/notargets/aderdg/basis"
	"github.com/notargets/aderdg/mesh"
	"github.com/notargets/aderdg/physics"
	"github.com/notargets/aderdg/utils"
)

// Stamp records the basis size and quadrature a table was built for
type Stamp struct {
	NB, Order, NQ int
}

func (s Stamp) check(what string, nb int) error {
	if nb != s.NB {
		return &DimensionMismatchError{What: what, Have: nb, Expected: s.NB}
	}
	return nil
}

// ElemOperators holds volume quadrature tables, per element where geometry
// enters.
type ElemOperators struct {
	Stamp
	Quad basis.QuadRule
	// Phi is nq x nb, GPhiRef[d] nq x nb on the reference element
	Phi     utils.Matrix
	GPhiRef []utils.Matrix
	// Per element
	X     [][][]float64
	DJac  [][]float64
	IJac  [][][]float64
	WDJac [][]float64
	GPhi  [][]utils.Matrix
	IMM   []utils.Matrix
	Vol   []float64
}

// IFaceOperators holds face basis tables by local face id and the geometry
// of every interior face.
type IFaceOperators struct {
	Stamp
	Quad basis.QuadRule
	// BasisL[f] evaluates along local face f in the face quadrature
	// ordering, BasisR[f] in the reversed ordering
	BasisL, BasisR []utils.Matrix
	// Per interior face, from the left element
	Normals [][][]float64
	FJac    [][]float64
	WFJac   [][]float64
}

type BFaceGroupOperators struct {
	Name string
	BC   physics.BoundaryCondition
	// Per boundary face of the group
	XRef    [][][]float64
	X       [][][]float64
	Normals [][][]float64
	FJac    [][]float64
	WFJac   [][]float64
}

type BFaceOperators struct {
	Stamp
	Quad   basis.QuadRule
	Basis  []utils.Matrix
	Groups []*BFaceGroupOperators
}

// Operators is the cache of every table the residual needs at one order
type Operators struct {
	Basis basis.Basis
	Elem  *ElemOperators
	IFace *IFaceOperators
	BFace *BFaceOperators
}

// QuadratureOrder is the degree integrated exactly for a solution of the
// given order.
func QuadratureOrder(order, fluxDegree, gorder, dim int) (qorder int) {
	qorder = 2 * order
	if q := order * (fluxDegree + 1); q > qorder {
		qorder = q
	}
	qorder += (gorder - 1) * dim
	return
}

// ComputeOperators builds all tables for b at the given order. The basis
// order is changed to match when needed.
func ComputeOperators(ctx context.Context, m *mesh.Mesh, phys physics.Physics, b basis.Basis,
	order, nWorkers int) (ops *Operators, err error) {
	if b.Order() != order {
		if err = b.SetOrder(order); err != nil {
			return
		}
	}
	qorder := QuadratureOrder(order, phys.FluxDegree(), m.GOrder, m.Dim)
	ops = &Operators{
		Basis: b,
		Elem:  &ElemOperators{},
		IFace: &IFaceOperators{},
		BFace: &BFaceOperators{},
	}
	if err = ops.Elem.Compute(ctx, m, b, qorder, nWorkers); err != nil {
		return nil, geometryErr(err)
	}
	if err = ops.IFace.Compute(m, b, qorder); err != nil {
		return nil, geometryErr(err)
	}
	if err = ops.BFace.Compute(m, phys, b, qorder); err != nil {
		return nil, geometryErr(err)
	}
	return
}

func (eo *ElemOperators) Compute(ctx context.Context, m *mesh.Mesh, b basis.Basis, qorder, nWorkers int) (err error) {
	var (
		K   = m.NElem()
		dim = m.Dim
		nb  = b.NB()
		gb  = m.GBasis()
	)
	eo.Quad = m.Shape.Quadrature(qorder)
	eo.Stamp = Stamp{NB: nb, Order: b.Order(), NQ: eo.Quad.NQ()}
	eo.Phi = b.Values(eo.Quad.Pts)
	eo.Phi.SetReadOnly("Phi")
	eo.GPhiRef = b.Gradients(eo.Quad.Pts)
	var (
		gPhi = gb.Values(eo.Quad.Pts)
		gG   = gb.Gradients(eo.Quad.Pts)
		nq   = eo.Quad.NQ()
	)
	eo.X = make([][][]float64, K)
	eo.DJac = make([][]float64, K)
	eo.IJac = make([][][]float64, K)
	eo.WDJac = make([][]float64, K)
	eo.GPhi = make([][]utils.Matrix, K)
	eo.IMM = make([]utils.Matrix, K)
	eo.Vol = make([]float64, K)

	pm := utils.NewPartitionMap(utils.ParallelDegree(nWorkers, K), K)
	return utils.ParallelFor(ctx, pm, func(ctx context.Context, _, kMin, kMax int) (err error) {
		for k := kMin; k < kMax; k++ {
			var g mesh.Geometry
			if g, err = m.ElementGeometry(k, gG); err != nil {
				return
			}
			X := m.RefToPhys(k, gPhi)
			eo.X[k] = make([][]float64, nq)
			eo.WDJac[k] = make([]float64, nq)
			for i := 0; i < nq; i++ {
				eo.X[k][i] = X.Row(i).DataP
				eo.WDJac[k][i] = eo.Quad.Wts[i] * g.DJac[i]
				eo.Vol[k] += eo.WDJac[k][i]
			}
			eo.DJac[k], eo.IJac[k] = g.DJac, g.IJac
			// physical gradients: dphi/dx_d = sum_e dphi/dr_e dr_e/dx_d
			eo.GPhi[k] = make([]utils.Matrix, dim)
			for d := 0; d < dim; d++ {
				G := utils.NewMatrix(nq, nb)
				for i := 0; i < nq; i++ {
					row := G.RowView(i)
					for e := 0; e < dim; e++ {
						s := g.IJac[i][e*dim+d]
						for j, v := range eo.GPhiRef[e].RowView(i) {
							row[j] += s * v
						}
					}
				}
				eo.GPhi[k][d] = G
			}
			MM := basis.MassMatrix(eo.Phi, eo.Quad.Wts, g.DJac)
			if eo.IMM[k], err = MM.Inverse(); err != nil {
				return fmt.Errorf("element %d mass matrix: %w", k, err)
			}
		}
		return
	})
}

// faceQuad is the face rule; segments have a single point face
func faceQuad(m *mesh.Mesh, qorder int) basis.QuadRule {
	return m.Shape.FaceShape().Quadrature(qorder)
}

func faceBases(m *mesh.Mesh, b basis.Basis, q basis.QuadRule) (fwd, rev []utils.Matrix) {
	nf := m.Shape.NumFaces()
	fwd, rev = make([]utils.Matrix, nf), make([]utils.Matrix, nf)
	qr := q.Reversed()
	for f := 0; f < nf; f++ {
		fwd[f] = b.Values(m.Shape.FaceToElemRef(f, q.Pts))
		rev[f] = b.Values(m.Shape.FaceToElemRef(f, qr.Pts))
	}
	return
}

func (fo *IFaceOperators) Compute(m *mesh.Mesh, b basis.Basis, qorder int) (err error) {
	fo.Quad = faceQuad(m, qorder)
	fo.Stamp = Stamp{NB: b.NB(), Order: b.Order(), NQ: fo.Quad.NQ()}
	fo.BasisL, fo.BasisR = faceBases(m, b, fo.Quad)
	nf := len(m.IFaces)
	fo.Normals = make([][][]float64, nf)
	fo.FJac = make([][]float64, nf)
	fo.WFJac = make([][]float64, nf)
	for i, f := range m.IFaces {
		if fo.Normals[i], fo.FJac[i], err = m.FaceNormals(f.ElemL, f.FaceL, fo.Quad.Pts); err != nil {
			return
		}
		fo.WFJac[i] = make([]float64, fo.Quad.NQ())
		for q, w := range fo.Quad.Wts {
			fo.WFJac[i][q] = w * fo.FJac[i][q]
		}
	}
	return
}

func (bo *BFaceOperators) Compute(m *mesh.Mesh, phys physics.Physics, b basis.Basis, qorder int) (err error) {
	bo.Quad = faceQuad(m, qorder)
	bo.Stamp = Stamp{NB: b.NB(), Order: b.Order(), NQ: bo.Quad.NQ()}
	bo.Basis, _ = faceBases(m, b, bo.Quad)
	bo.Groups = make([]*BFaceGroupOperators, len(m.BFaceGroups))
	for ig, grp := range m.BFaceGroups {
		bc, ok := phys.BC(grp.Name)
		if !ok {
			return &ConfigIncompatibleError{Setting: "BoundaryConditions",
				Reason: fmt.Sprintf("no boundary condition for group %s", grp.Name)}
		}
		n := len(grp.BFaces)
		g := &BFaceGroupOperators{
			Name:    grp.Name,
			BC:      bc,
			XRef:    make([][][]float64, n),
			X:       make([][][]float64, n),
			Normals: make([][][]float64, n),
			FJac:    make([][]float64, n),
			WFJac:   make([][]float64, n),
		}
		for i, bf := range grp.BFaces {
			g.XRef[i] = m.Shape.FaceToElemRef(bf.Face, bo.Quad.Pts)
			g.X[i] = m.PhysPoints(bf.Elem, g.XRef[i])
			if g.Normals[i], g.FJac[i], err = m.FaceNormals(bf.Elem, bf.Face, bo.Quad.Pts); err != nil {
				return
			}
			g.WFJac[i] = make([]float64, bo.Quad.NQ())
			for q, w := range bo.Quad.Wts {
				g.WFJac[i][q] = w * g.FJac[i][q]
			}
		}
		bo.Groups[ig] = g
	}
	return
}
