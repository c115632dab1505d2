package basis

import (
	"fmt"
)

// Shape is a reference element shape.
//
// Reference elements:
//
//	Segment        [-1,1], face 0 at r=-1, face 1 at r=1
//	Quadrilateral  [-1,1]^2, vertices (-1,-1) (1,-1) (1,1) (-1,1)
//	Triangle       vertices (-1,-1) (1,-1) (-1,1)
//
// Faces of 2-D shapes run counterclockwise from vertex f to vertex f+1, so a
// face shared by two counterclockwise elements is traversed in opposite
// directions by its two owners.
type Shape uint8

const (
	Point Shape = iota
	Segment
	Quadrilateral
	Triangle
)

func (s Shape) String() string {
	switch s {
	case Point:
		return "Point"
	case Segment:
		return "Segment"
	case Quadrilateral:
		return "Quadrilateral"
	case Triangle:
		return "Triangle"
	}
	return "Unknown"
}

func ParseShape(name string) (s Shape, err error) {
	switch name {
	case "Segment", "Line":
		s = Segment
	case "Quadrilateral", "Quad":
		s = Quadrilateral
	case "Triangle", "Tri":
		s = Triangle
	default:
		err = fmt.Errorf("unknown element shape %q", name)
	}
	return
}

func (s Shape) Dim() int {
	switch s {
	case Segment:
		return 1
	case Quadrilateral, Triangle:
		return 2
	}
	return 0
}

func (s Shape) NumFaces() int {
	switch s {
	case Segment:
		return 2
	case Quadrilateral:
		return 4
	case Triangle:
		return 3
	}
	return 0
}

func (s Shape) FaceShape() Shape {
	switch s {
	case Quadrilateral, Triangle:
		return Segment
	}
	return Point
}

// NumBasis is the dimension of the polynomial space of the given order.
func (s Shape) NumBasis(order int) int {
	switch s {
	case Segment:
		return order + 1
	case Quadrilateral:
		return (order + 1) * (order + 1)
	case Triangle:
		return (order + 1) * (order + 2) / 2
	}
	return 1
}

// RefVolume is the measure of the reference element.
func (s Shape) RefVolume() float64 {
	switch s {
	case Segment:
		return 2
	case Quadrilateral:
		return 4
	case Triangle:
		return 2
	}
	return 1
}

func (s Shape) Vertices() [][]float64 {
	switch s {
	case Segment:
		return [][]float64{{-1}, {1}}
	case Quadrilateral:
		return [][]float64{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
	case Triangle:
		return [][]float64{{-1, -1}, {1, -1}, {-1, 1}}
	}
	return [][]float64{{}}
}

// EquidistantNodes returns the nodes of an equidistant Lagrange basis of the
// given order. Quadrilateral nodes are ordered with r fastest; triangle nodes
// row by row in s.
func (s Shape) EquidistantNodes(order int) (nodes [][]float64) {
	line := func(p int) (x []float64) {
		x = make([]float64, p+1)
		if p == 0 {
			return
		}
		for i := range x {
			x[i] = -1 + 2*float64(i)/float64(p)
		}
		return
	}
	x := line(order)
	switch s {
	case Segment:
		for _, r := range x {
			nodes = append(nodes, []float64{r})
		}
	case Quadrilateral:
		for _, sv := range x {
			for _, r := range x {
				nodes = append(nodes, []float64{r, sv})
			}
		}
	case Triangle:
		if order == 0 {
			return [][]float64{{-1. / 3., -1. / 3.}}
		}
		for j := 0; j <= order; j++ {
			for i := 0; i <= order-j; i++ {
				nodes = append(nodes, []float64{x[i], x[j]})
			}
		}
	default:
		nodes = [][]float64{{}}
	}
	return
}

// FaceNodes returns the indices into EquidistantNodes(order) that lie on the
// given face, in the face traversal direction. The first and last entries are
// the face's corner vertices.
func (s Shape) FaceNodes(order, face int) (ids []int) {
	p := order
	switch s {
	case Segment:
		if face == 0 {
			return []int{0}
		}
		return []int{p}
	case Quadrilateral:
		n := func(i, j int) int { return j*(p+1) + i }
		for k := 0; k <= p; k++ {
			switch face {
			case 0:
				ids = append(ids, n(k, 0))
			case 1:
				ids = append(ids, n(p, k))
			case 2:
				ids = append(ids, n(p-k, p))
			case 3:
				ids = append(ids, n(0, p-k))
			}
		}
	case Triangle:
		// offset of row j in the row by row ordering
		row := func(j int) int { return j*(p+1) - j*(j-1)/2 }
		n := func(i, j int) int { return row(j) + i }
		for k := 0; k <= p; k++ {
			switch face {
			case 0:
				ids = append(ids, n(k, 0))
			case 1:
				ids = append(ids, n(p-k, k))
			case 2:
				ids = append(ids, n(0, p-k))
			}
		}
	}
	return
}

// FaceToElemRef maps points on the reference face (coordinates in the face
// shape's reference) onto the element reference along local face f.
func (s Shape) FaceToElemRef(face int, facePts [][]float64) (elemPts [][]float64) {
	elemPts = make([][]float64, len(facePts))
	switch s {
	case Segment:
		r := -1.
		if face == 1 {
			r = 1.
		}
		for i := range facePts {
			elemPts[i] = []float64{r}
		}
	case Quadrilateral, Triangle:
		var (
			verts = s.Vertices()
			nv    = len(verts)
			v0    = verts[face%nv]
			v1    = verts[(face+1)%nv]
		)
		for i, fp := range facePts {
			xi := fp[0]
			elemPts[i] = []float64{
				0.5*(1-xi)*v0[0] + 0.5*(1+xi)*v1[0],
				0.5*(1-xi)*v0[1] + 0.5*(1+xi)*v1[1],
			}
		}
	}
	return
}

// FaceTangentRef is d(elem ref)/d(face ref) along face f of a 2-D shape.
func (s Shape) FaceTangentRef(face int) (t []float64) {
	verts := s.Vertices()
	nv := len(verts)
	v0, v1 := verts[face%nv], verts[(face+1)%nv]
	return []float64{0.5 * (v1[0] - v0[0]), 0.5 * (v1[1] - v0[1])}
}

// Centroid of the reference element
func (s Shape) Centroid() []float64 {
	switch s {
	case Segment:
		return []float64{0}
	case Quadrilateral:
		return []float64{0, 0}
	case Triangle:
		return []float64{-1. / 3., -1. / 3.}
	}
	return []float64{}
}
