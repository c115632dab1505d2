package solver

import (
	"fmt"

	"github.com/notargets/aderdg/basis"
	"github.com/notargets/aderdg/mesh"
	"github.com/notargets/aderdg/utils"
)

// ADEROperators is the space-time matrix set of one slab. Rows and columns
// index the space-time basis theta, except FTR whose columns index the
// spatial basis phi.
type ADEROperators struct {
	Stamp
	// MM_ml = int theta_m theta_l, IMM its inverse
	MM, IMM utils.Matrix
	// SMS[d]_ml = int theta_m dtheta_l/dxi_d
	SMS []utils.Matrix
	// SMT_ml = int dtheta_m/dtau theta_l
	SMT utils.Matrix
	// FTL over the final-time face, FTR over the initial-time face
	FTL, FTR utils.Matrix
	// K = FTL - SMT, IK its inverse
	K, IK utils.Matrix
}

// ADERTables holds the operator sets and the quadrature data used by the
// predictor and the space-time residual. On an affine mesh every element
// shares one operator set; otherwise each element has its own, weighted by
// the Jacobian determinant.
type ADERTables struct {
	Spatial, ST basis.Basis
	FaceMap     basis.SpaceTimeFaceMap
	Affine      bool

	// Space-time volume rule, spatial index fastest
	Quad      basis.QuadRule
	NQS, NT   int
	TimeQuad  basis.QuadRule
	Theta     utils.Matrix // nqst x nbst
	PhiST     utils.Matrix // nqst x nb, spatial basis at the spatial coordinates
	IMMRef    utils.Matrix // reference space-time inverse mass
	Proj      utils.Matrix // IMMRef * Theta^T diag(w), nbst x nqst
	Broadcast utils.Matrix // nbst x nb, constant-in-time extension of phi

	shared  *ADEROperators
	perElem []*ADEROperators

	// FluxScale[k]*dt multiplies flux coefficients: 1/(2J) on affine
	// elements, 1/2 otherwise
	FluxScale []float64

	// Per element space-time residual data
	GPhi  []utils.Matrix // nqst x nb physical gradients
	WDJac [][]float64    // w * djac / 2
	X     [][][]float64  // physical points of the space-time rule
	NodeX [][][]float64  // physical points of the space-time nodes

	// Space-time faces, indexed by spatial local face
	FaceQuad basis.QuadRule
	ThetaF   []utils.Matrix // forward face ordering
	ThetaFR  []utils.Matrix // reversed face ordering
	PhiFace  []utils.Matrix // 1 x nb spatial trace
	TauF     [][]float64    // reference time of each forward face point
}

// Ops returns the operator set of element k
func (at *ADERTables) Ops(k int) *ADEROperators {
	if at.Affine {
		return at.shared
	}
	return at.perElem[k]
}

func (at *ADERTables) NBST() int { return at.ST.NB() }

// spatialCoords strips the time coordinate from space-time points
func spatialCoords(pts [][]float64) (sp [][]float64) {
	sp = make([][]float64, len(pts))
	for i, pt := range pts {
		sp[i] = pt[:len(pt)-1]
	}
	return
}

// ComputeADEROperators builds the ADER tables for spatial basis b and
// space-time basis bst on a mesh of segments.
func ComputeADEROperators(m *mesh.Mesh, b, bst basis.Basis, qorder int) (at *ADERTables, err error) {
	var fm basis.SpaceTimeFaceMap
	if fm, err = basis.NewSpaceTimeFaceMap(m.Shape); err != nil {
		return nil, &UnsupportedSchemeError{Kind: "ADER spatial element", Name: m.Shape.String()}
	}
	if bst.Shape() != fm.Shape || bst.Order() != b.Order() {
		return nil, &ConfigIncompatibleError{Setting: "SpaceTimeBasis",
			Reason: fmt.Sprintf("%s order %d does not extend %s order %d", bst.Name(), bst.Order(), b.Name(), b.Order())}
	}
	var (
		K    = m.NElem()
		tq   = basis.Segment.Quadrature(qorder)
		sq   = m.Shape.Quadrature(qorder)
		quad = basis.TensorTime(sq, tq)
		nbst = bst.NB()
	)
	at = &ADERTables{
		Spatial:  b,
		ST:       bst,
		FaceMap:  fm,
		Affine:   m.IsAffine(),
		Quad:     quad,
		NQS:      sq.NQ(),
		NT:       tq.NQ(),
		TimeQuad: tq,
		FaceQuad: basis.Segment.Quadrature(qorder),
	}
	spQuad := spatialCoords(quad.Pts)
	at.Theta = bst.Values(quad.Pts)
	at.PhiST = b.Values(spQuad)
	dTheta := bst.Gradients(quad.Pts)
	MMRef := basis.MassMatrix(at.Theta, quad.Wts, nil)
	if at.IMMRef, err = MMRef.Inverse(); err != nil {
		return nil, fmt.Errorf("space-time mass matrix: %w", err)
	}
	at.Proj = at.IMMRef.Mul(at.Theta.Transpose().ScaleCols(quad.Wts))
	at.Broadcast = at.IMMRef.Mul(basis.StiffnessMatrix(at.Theta, at.PhiST, quad.Wts, nil))

	// faces of the slab
	var (
		fq     = at.FaceQuad
		fqR    = fq.Reversed()
		pFinal = fm.Shape.FaceToElemRef(fm.FinalTime, fq.Pts)
		pInit  = fm.Shape.FaceToElemRef(fm.InitialTime, fq.Pts)
		thF    = bst.Values(pFinal)
		thI    = bst.Values(pInit)
		phiI   = b.Values(spatialCoords(pInit))
	)
	nsf := m.Shape.NumFaces()
	at.ThetaF, at.ThetaFR = make([]utils.Matrix, nsf), make([]utils.Matrix, nsf)
	at.PhiFace, at.TauF = make([]utils.Matrix, nsf), make([][]float64, nsf)
	for f := 0; f < nsf; f++ {
		stf := fm.Spatial[f]
		at.ThetaF[f] = bst.Values(fm.Shape.FaceToElemRef(stf, fq.Pts))
		at.ThetaFR[f] = bst.Values(fm.Shape.FaceToElemRef(stf, fqR.Pts))
		at.PhiFace[f] = b.Values(m.Shape.FaceToElemRef(f, [][]float64{{}}))
		at.TauF[f] = fm.TimeOnFace(stf, fq.Pts)
	}

	build := func(djacQ, djacF, djacI []float64) (ops *ADEROperators, err error) {
		ops = &ADEROperators{
			Stamp: Stamp{NB: nbst, Order: bst.Order(), NQ: quad.NQ()},
			MM:    basis.MassMatrix(at.Theta, quad.Wts, djacQ),
			SMT:   basis.StiffnessMatrix(dTheta[1], at.Theta, quad.Wts, djacQ),
			SMS:   []utils.Matrix{basis.StiffnessMatrix(at.Theta, dTheta[0], quad.Wts, nil)},
			FTL:   basis.MassMatrix(thF, fq.Wts, djacF),
			FTR:   basis.StiffnessMatrix(thI, phiI, fq.Wts, djacI),
		}
		if ops.IMM, err = ops.MM.Inverse(); err != nil {
			return nil, fmt.Errorf("ADER mass matrix: %w", err)
		}
		ops.K = ops.FTL.Copy().Subtract(ops.SMT)
		if ops.IK, err = ops.K.Inverse(); err != nil {
			return nil, fmt.Errorf("ADER time stiffness matrix: %w", err)
		}
		return
	}
	if at.Affine {
		if at.shared, err = build(nil, nil, nil); err != nil {
			return nil, err
		}
	} else {
		at.perElem = make([]*ADEROperators, K)
	}

	var (
		gG     = m.GBasis().Gradients(spQuad)
		gPhi   = m.GBasis().Values(spQuad)
		gradRf = b.Gradients(spQuad)[0]
		nodes  = bst.Nodes()
	)
	at.FluxScale = make([]float64, K)
	at.GPhi = make([]utils.Matrix, K)
	at.WDJac = make([][]float64, K)
	at.X = make([][][]float64, K)
	at.NodeX = make([][][]float64, K)
	for k := 0; k < K; k++ {
		var g mesh.Geometry
		if g, err = m.ElementGeometry(k, gG); err != nil {
			return nil, geometryErr(err)
		}
		if at.Affine {
			at.FluxScale[k] = 0.5 * g.IJac[0][0]
		} else {
			at.FluxScale[k] = 0.5
			var gF, gI mesh.Geometry
			if gF, err = m.GeometryAt(k, spatialCoords(pFinal)); err != nil {
				return nil, geometryErr(err)
			}
			if gI, err = m.GeometryAt(k, spatialCoords(pInit)); err != nil {
				return nil, geometryErr(err)
			}
			if at.perElem[k], err = build(g.DJac, gF.DJac, gI.DJac); err != nil {
				return nil, fmt.Errorf("element %d: %w", k, err)
			}
		}
		G := gradRf.Copy()
		ij := make([]float64, quad.NQ())
		at.WDJac[k] = make([]float64, quad.NQ())
		for i := range ij {
			ij[i] = g.IJac[i][0]
			at.WDJac[k][i] = 0.5 * quad.Wts[i] * g.DJac[i]
		}
		at.GPhi[k] = G.ScaleRows(ij)
		X := m.RefToPhys(k, gPhi)
		at.X[k] = make([][]float64, quad.NQ())
		for i := range at.X[k] {
			at.X[k][i] = X.Row(i).DataP
		}
		if nodes != nil {
			at.NodeX[k] = m.PhysPoints(k, spatialCoords(nodes))
		}
	}
	return
}
