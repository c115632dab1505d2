package mesh

import (
	"fmt"
	"math"

	"github.com/notargets/aderdg/basis"
)

const (
	Left   = "Left"
	Right  = "Right"
	Bottom = "Bottom"
	Top    = "Top"
)

// GroupAliases maps alternate boundary group names onto the builders' names
var GroupAliases = map[string]string{
	"x1": Left, "x2": Right, "y1": Bottom, "y2": Top,
	"left": Left, "right": Right, "bottom": Bottom, "top": Top,
}

// CanonicalGroup resolves an alias to a builder group name
func CanonicalGroup(name string) string {
	if n, ok := GroupAliases[name]; ok {
		return n
	}
	return name
}

// GeometryError reports a non-positive or undefined Jacobian determinant.
type GeometryError struct {
	Elem, Point int
	DJac        float64
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("element %d, point %d: non-positive Jacobian determinant %g", e.Elem, e.Point, e.DJac)
}

// NewLine builds a uniform 1-D mesh of nElem segments on [xmin, xmax].
func NewLine(xmin, xmax float64, nElem int, periodic bool) (m *Mesh, err error) {
	if nElem < 1 || !(xmax > xmin) {
		return nil, fmt.Errorf("invalid line mesh: %d elements on [%g, %g]", nElem, xmin, xmax)
	}
	if m, err = newMesh(basis.Segment, 1); err != nil {
		return
	}
	dx := (xmax - xmin) / float64(nElem)
	for i := 0; i <= nElem; i++ {
		m.Coords = append(m.Coords, []float64{xmin + float64(i)*dx})
		v := i
		if periodic && i == nElem {
			v = 0
		}
		m.Node2Vertex = append(m.Node2Vertex, v)
	}
	for k := 0; k < nElem; k++ {
		m.Elem2Nodes = append(m.Elem2Nodes, []int{k, k + 1})
	}
	var groups []string
	if !periodic {
		groups = []string{Left, Right}
	}
	mid := 0.5 * (xmin + xmax)
	err = m.Connect(groups, func(x []float64) string {
		if x[0] < mid {
			return Left
		}
		return Right
	})
	return
}

type grid struct {
	xmin, xmax, ymin, ymax float64
	nx, ny                 int
	periodicX, periodicY   bool
}

func (g grid) node(i, j int) int { return j*(g.nx+1) + i }

func (g grid) build(m *Mesh) {
	dx := (g.xmax - g.xmin) / float64(g.nx)
	dy := (g.ymax - g.ymin) / float64(g.ny)
	for j := 0; j <= g.ny; j++ {
		for i := 0; i <= g.nx; i++ {
			m.Coords = append(m.Coords, []float64{g.xmin + float64(i)*dx, g.ymin + float64(j)*dy})
			iv, jv := i, j
			if g.periodicX && i == g.nx {
				iv = 0
			}
			if g.periodicY && j == g.ny {
				jv = 0
			}
			m.Node2Vertex = append(m.Node2Vertex, g.node(iv, jv))
		}
	}
}

func (g grid) groups() (names []string) {
	if !g.periodicY {
		names = append(names, Bottom)
	}
	if !g.periodicX {
		names = append(names, Right)
	}
	if !g.periodicY {
		names = append(names, Top)
	}
	if !g.periodicX {
		names = append(names, Left)
	}
	return
}

// classify picks the box side nearest to a face centroid
func (g grid) classify(x []float64) string {
	d := []float64{
		math.Abs(x[1] - g.ymin), math.Abs(x[0] - g.xmax),
		math.Abs(x[1] - g.ymax), math.Abs(x[0] - g.xmin),
	}
	names := []string{Bottom, Right, Top, Left}
	best := 0
	for i := range d {
		if d[i] < d[best] {
			best = i
		}
	}
	return names[best]
}

func newGrid(xmin, xmax, ymin, ymax float64, nx, ny int, periodicX, periodicY bool) (g grid, err error) {
	if nx < 1 || ny < 1 || !(xmax > xmin) || !(ymax > ymin) {
		err = fmt.Errorf("invalid grid: %dx%d on [%g,%g]x[%g,%g]", nx, ny, xmin, xmax, ymin, ymax)
		return
	}
	if (periodicX && nx < 2) || (periodicY && ny < 2) {
		err = fmt.Errorf("invalid grid: a periodic direction needs at least 2 cells, have %dx%d", nx, ny)
		return
	}
	g = grid{xmin, xmax, ymin, ymax, nx, ny, periodicX, periodicY}
	return
}

// NewQuad builds an nx by ny structured mesh of quadrilaterals.
func NewQuad(xmin, xmax, ymin, ymax float64, nx, ny int, periodicX, periodicY bool) (m *Mesh, err error) {
	var g grid
	if g, err = newGrid(xmin, xmax, ymin, ymax, nx, ny, periodicX, periodicY); err != nil {
		return
	}
	if m, err = newMesh(basis.Quadrilateral, 1); err != nil {
		return
	}
	g.build(m)
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			// equidistant order 1 ordering: r fastest
			m.Elem2Nodes = append(m.Elem2Nodes, []int{
				g.node(i, j), g.node(i+1, j), g.node(i, j+1), g.node(i+1, j+1)})
		}
	}
	err = m.Connect(g.groups(), g.classify)
	return
}

// NewTri builds a structured triangle mesh by splitting each cell of an nx
// by ny grid along its diagonal.
func NewTri(xmin, xmax, ymin, ymax float64, nx, ny int, periodicX, periodicY bool) (m *Mesh, err error) {
	var g grid
	if g, err = newGrid(xmin, xmax, ymin, ymax, nx, ny, periodicX, periodicY); err != nil {
		return
	}
	if m, err = newMesh(basis.Triangle, 1); err != nil {
		return
	}
	g.build(m)
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			m.Elem2Nodes = append(m.Elem2Nodes,
				[]int{g.node(i, j), g.node(i+1, j), g.node(i, j+1)},
				[]int{g.node(i+1, j+1), g.node(i, j+1), g.node(i+1, j)})
		}
	}
	err = m.Connect(g.groups(), g.classify)
	return
}

// Elevate returns a copy of the mesh with geometric order gorder. New nodes
// are placed by the existing geometric mapping, then moved by warp if it is
// not nil. Corner nodes and connectivity are preserved.
func Elevate(m *Mesh, gorder int, warp func(x []float64) []float64) (me *Mesh, err error) {
	if gorder < 1 {
		return nil, fmt.Errorf("invalid geometric order %d", gorder)
	}
	if me, err = newMesh(m.Shape, gorder); err != nil {
		return
	}
	me.Coords = make([][]float64, len(m.Coords))
	for i, x := range m.Coords {
		me.Coords[i] = append([]float64{}, x...)
	}
	me.Node2Vertex = append([]int{}, m.Node2Vertex...)
	var (
		newNodes = m.Shape.EquidistantNodes(gorder)
		oldNodes = m.Shape.EquidistantNodes(m.GOrder)
		verts    = m.Shape.Vertices()
		vertexOf = func(nodes [][]float64) (idx []int) {
			idx = make([]int, len(nodes))
			for i, p := range nodes {
				idx[i] = -1
				for v, vp := range verts {
					if samePoint(p, vp) {
						idx[i] = v
					}
				}
			}
			return
		}
		newVert = vertexOf(newNodes)
		oldVert = vertexOf(oldNodes)
		gPhi    = m.gbasis.Values(newNodes)
		nextV   = len(m.Node2Vertex)
	)
	for _, v := range m.Node2Vertex {
		if v >= nextV {
			nextV = v + 1
		}
	}
	cornerNode := func(k, v int) int {
		for i, ov := range oldVert {
			if ov == v {
				return m.Elem2Nodes[k][i]
			}
		}
		return -1
	}
	for k := 0; k < m.NElem(); k++ {
		X := m.RefToPhys(k, gPhi)
		nodes := make([]int, len(newNodes))
		for i := range newNodes {
			if newVert[i] >= 0 {
				nodes[i] = cornerNode(k, newVert[i])
				continue
			}
			x := X.Row(i).DataP
			if warp != nil {
				x = warp(x)
			}
			nodes[i] = len(me.Coords)
			me.Coords = append(me.Coords, x)
			me.Node2Vertex = append(me.Node2Vertex, nextV)
			nextV++
		}
		me.Elem2Nodes = append(me.Elem2Nodes, nodes)
	}
	me.IFaces = append([]IFace{}, m.IFaces...)
	for _, g := range m.BFaceGroups {
		me.BFaceGroups = append(me.BFaceGroups, &BFaceGroup{
			Name: g.Name, Number: g.Number, BFaces: append([]BFace{}, g.BFaces...)})
	}
	return
}

func samePoint(a, b []float64) bool {
	for i := range a {
		if math.Abs(a[i]-b[i]) > 1.e-12 {
			return false
		}
	}
	return true
}
