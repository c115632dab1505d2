package mesh

import (
	"fmt"

	"github.com/notargets/aderdg/basis"
)

// IFace is a face shared by two elements. Normals on an interior face point
// out of the left element.
type IFace struct {
	ElemL, FaceL int
	ElemR, FaceR int
}

// BFace is a boundary face owned by one element
type BFace struct {
	Elem, Face int
}

type BFaceGroup struct {
	Name   string
	Number int
	BFaces []BFace
}

// Mesh holds element geometry and face connectivity. It is not modified by
// the solver.
type Mesh struct {
	Dim    int
	Shape  basis.Shape
	GOrder int
	// Coords are the geometric node coordinates
	Coords [][]float64
	// Elem2Nodes lists the geometric nodes of each element in the order of
	// the equidistant Lagrange basis of GOrder
	Elem2Nodes [][]int
	// Node2Vertex maps each node to a topological vertex id; periodic
	// boundaries identify nodes on opposite sides
	Node2Vertex []int
	IFaces      []IFace
	BFaceGroups []*BFaceGroup

	gbasis basis.Basis
}

func newMesh(shape basis.Shape, gorder int) (m *Mesh, err error) {
	m = &Mesh{
		Dim:    shape.Dim(),
		Shape:  shape,
		GOrder: gorder,
	}
	if m.gbasis, err = basis.NewPolyBasis(shape, basis.LagrangeEq, gorder); err != nil {
		return nil, err
	}
	return
}

func (m *Mesh) NElem() int { return len(m.Elem2Nodes) }

// GBasis is the geometric basis mapping reference to physical coordinates
func (m *Mesh) GBasis() basis.Basis { return m.gbasis }

func (m *Mesh) NBFaces() (n int) {
	for _, g := range m.BFaceGroups {
		n += len(g.BFaces)
	}
	return
}

func (m *Mesh) BFaceGroup(name string) (g *BFaceGroup, ok bool) {
	for _, g = range m.BFaceGroups {
		if g.Name == name {
			return g, true
		}
	}
	return nil, false
}

// ElemFaces lists, per element, the interior faces that touch it. Used to
// reduce face contributions into element residuals without races.
func (m *Mesh) ElemFaces() (e2f [][]int) {
	e2f = make([][]int, m.NElem())
	for i, f := range m.IFaces {
		e2f[f.ElemL] = append(e2f[f.ElemL], i)
		if f.ElemR != f.ElemL {
			e2f[f.ElemR] = append(e2f[f.ElemR], i)
		}
	}
	return
}

func (m *Mesh) String() string {
	return fmt.Sprintf("%s mesh: %d elements, %d interior faces, %d boundary faces in %d groups, geometric order %d",
		m.Shape, m.NElem(), len(m.IFaces), m.NBFaces(), len(m.BFaceGroups), m.GOrder)
}
