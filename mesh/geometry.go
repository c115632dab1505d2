package mesh

import (
	"math"

	"github.com/notargets/aderdg/utils"
)

// Geometry is the reference to physical mapping evaluated at a point set.
// Jac[i] and IJac[i] are dim x dim row major with Jac[d*dim+e] = dx_d/dr_e.
type Geometry struct {
	Jac, IJac [][]float64
	DJac      []float64
}

// NodeCoords is the nn x dim matrix of the element's geometric nodes
func (m *Mesh) NodeCoords(k int) (X utils.Matrix) {
	nodes := m.Elem2Nodes[k]
	X = utils.NewMatrix(len(nodes), m.Dim)
	for i, n := range nodes {
		X.SetRow(i, m.Coords[n])
	}
	return
}

// RefToPhys maps reference points through the geometric basis values gPhi
// (np x nn) and returns np x dim physical coordinates.
func (m *Mesh) RefToPhys(k int, gPhi utils.Matrix) (X utils.Matrix) {
	return gPhi.Mul(m.NodeCoords(k))
}

func (m *Mesh) PhysPoints(k int, pts [][]float64) (x [][]float64) {
	X := m.RefToPhys(k, m.gbasis.Values(pts))
	x = make([][]float64, len(pts))
	for i := range x {
		x[i] = X.Row(i).DataP
	}
	return
}

// ElementGeometry evaluates the Jacobian from the geometric basis gradients
// gG (one np x nn matrix per reference direction).
func (m *Mesh) ElementGeometry(k int, gG []utils.Matrix) (g Geometry, err error) {
	var (
		dim   = m.Dim
		X     = m.NodeCoords(k)
		np, _ = gG[0].Dims()
	)
	// dX[e] is np x dim: column d holds dx_d/dr_e
	dX := make([]utils.Matrix, dim)
	for e := 0; e < dim; e++ {
		dX[e] = gG[e].Mul(X)
	}
	g = Geometry{
		Jac:  make([][]float64, np),
		IJac: make([][]float64, np),
		DJac: make([]float64, np),
	}
	for i := 0; i < np; i++ {
		jac := make([]float64, dim*dim)
		for d := 0; d < dim; d++ {
			for e := 0; e < dim; e++ {
				jac[d*dim+e] = dX[e].At(i, d)
			}
		}
		ijac := make([]float64, dim*dim)
		var det float64
		switch dim {
		case 1:
			det = jac[0]
			if det != 0 {
				ijac[0] = 1 / det
			}
		case 2:
			det = utils.Inv2(jac, ijac)
		}
		if det <= 0 || math.IsNaN(det) {
			err = &GeometryError{Elem: k, Point: i, DJac: det}
			return
		}
		g.Jac[i], g.IJac[i], g.DJac[i] = jac, ijac, det
	}
	return
}

// GeometryAt is ElementGeometry at reference points
func (m *Mesh) GeometryAt(k int, pts [][]float64) (Geometry, error) {
	return m.ElementGeometry(k, m.gbasis.Gradients(pts))
}

// FaceNormals returns outward unit normals and face Jacobians (physical face
// measure per unit reference face measure) at points on a reference face.
func (m *Mesh) FaceNormals(k, face int, facePts [][]float64) (normals [][]float64, fjac []float64, err error) {
	normals = make([][]float64, len(facePts))
	fjac = make([]float64, len(facePts))
	if m.Dim == 1 {
		for i := range normals {
			n := -1.
			if face == 1 {
				n = 1.
			}
			normals[i], fjac[i] = []float64{n}, 1
		}
		return
	}
	var (
		g     Geometry
		tref  = m.Shape.FaceTangentRef(face)
		elemP = m.Shape.FaceToElemRef(face, facePts)
	)
	if g, err = m.GeometryAt(k, elemP); err != nil {
		return
	}
	for i := range facePts {
		J := g.Jac[i]
		tx := J[0]*tref[0] + J[1]*tref[1]
		ty := J[2]*tref[0] + J[3]*tref[1]
		l := math.Hypot(tx, ty)
		normals[i], fjac[i] = []float64{ty / l, -tx / l}, l
	}
	return
}

// FaceCentroid is the physical location of the middle of a face
func (m *Mesh) FaceCentroid(k, face int) []float64 {
	var fp [][]float64
	if m.Dim == 1 {
		fp = [][]float64{{}}
	} else {
		fp = [][]float64{{0}}
	}
	return m.PhysPoints(k, m.Shape.FaceToElemRef(face, fp))[0]
}

// Volumes returns the physical measure of each element
func (m *Mesh) Volumes() (vol []float64, err error) {
	var (
		q  = m.Shape.Quadrature(2 * m.GOrder * m.Dim)
		gG = m.gbasis.Gradients(q.Pts)
		g  Geometry
	)
	vol = make([]float64, m.NElem())
	for k := range vol {
		if g, err = m.ElementGeometry(k, gG); err != nil {
			return
		}
		for i, w := range q.Wts {
			vol[k] += w * g.DJac[i]
		}
	}
	return
}

// IsAffine reports whether every element has a constant Jacobian.
func (m *Mesh) IsAffine() bool {
	var (
		q  = m.Shape.Quadrature(2*m.GOrder + 1)
		gG = m.gbasis.Gradients(q.Pts)
	)
	for k := 0; k < m.NElem(); k++ {
		g, err := m.ElementGeometry(k, gG)
		if err != nil {
			return false
		}
		ref := g.Jac[0]
		scale := math.Abs(g.DJac[0])
		for i := 1; i < len(g.Jac); i++ {
			for j, v := range g.Jac[i] {
				if math.Abs(v-ref[j]) > 1.e-12*math.Max(1, scale) {
					return false
				}
			}
		}
	}
	return true
}
