package mesh

import (
	"fmt"
	"math"

	"github.com/james-bowman/sparse"
)

// Classifier names the boundary group of an unmatched face from its
// physical centroid.
type Classifier func(centroid []float64) string

// Connect matches element faces through shared vertices and groups the
// unmatched faces into boundary groups. Groups are created in the order of
// groupNames; faces classified into an unknown group are an error.
func (m *Mesh) Connect(groupNames []string, classify Classifier) (err error) {
	var (
		shape      = m.Shape
		NFaces     = shape.NumFaces()
		K          = m.NElem()
		TotalFaces = NFaces * K
		nCorners   = 1
		Nv         int
	)
	if m.Dim == 2 {
		nCorners = 2
	}
	for _, v := range m.Node2Vertex {
		if v+1 > Nv {
			Nv = v + 1
		}
	}
	SpFToV_Tmp := sparse.NewDOK(TotalFaces, Nv)
	faceX := make([][][]float64, TotalFaces)
	var sk int
	for k := 0; k < K; k++ {
		for face := 0; face < NFaces; face++ {
			ids := shape.FaceNodes(m.GOrder, face)
			corners := []int{ids[0], ids[len(ids)-1]}
			if nCorners == 1 {
				corners = corners[:1]
			}
			for _, c := range corners {
				SpFToV_Tmp.Set(sk, m.Node2Vertex[m.Elem2Nodes[k][c]], 1)
				faceX[sk] = append(faceX[sk], m.Coords[m.Elem2Nodes[k][c]])
			}
			sk++
		}
	}
	SpFToF := sparse.NewCSR(TotalFaces, TotalFaces, nil, nil, nil)
	SpFToV := SpFToV_Tmp.ToCSR()
	SpFToF.Mul(SpFToV, SpFToV.T())

	match := make([]int, TotalFaces)
	for i := range match {
		match[i] = -1
	}
	SpFToF.DoNonZero(func(i, j int, v float64) {
		if i == j || int(v+0.5) != nCorners || err != nil || !facesAlign(faceX[i], faceX[j]) {
			return
		}
		if match[i] != -1 && match[i] != j {
			err = fmt.Errorf("face %d of element %d is shared by more than two elements",
				i%NFaces, i/NFaces)
			return
		}
		match[i] = j
	})
	if err != nil {
		return
	}

	m.IFaces = m.IFaces[:0]
	m.BFaceGroups = make([]*BFaceGroup, len(groupNames))
	for i, name := range groupNames {
		m.BFaceGroups[i] = &BFaceGroup{Name: name, Number: i}
	}
	for i := 0; i < TotalFaces; i++ {
		j := match[i]
		switch {
		case j > i:
			m.IFaces = append(m.IFaces, IFace{
				ElemL: i / NFaces, FaceL: i % NFaces,
				ElemR: j / NFaces, FaceR: j % NFaces,
			})
		case j == -1:
			elem, face := i/NFaces, i%NFaces
			name := classify(m.FaceCentroid(elem, face))
			g, ok := m.BFaceGroup(name)
			if !ok {
				return fmt.Errorf("boundary face %d of element %d classified into unknown group %q",
					face, elem, name)
			}
			g.BFaces = append(g.BFaces, BFace{Elem: elem, Face: face})
		}
	}
	return
}

// facesAlign rejects faces that share vertices only through a periodic
// identification along the face itself. A matched pair either coincides or
// is offset by a translation normal to the face.
func facesAlign(a, b [][]float64) bool {
	if len(a) < 2 {
		return true
	}
	var dot, dd, tt float64
	for d := range a[0] {
		diff := 0.5*(a[0][d]+a[1][d]) - 0.5*(b[0][d]+b[1][d])
		tan := a[1][d] - a[0][d]
		dot += diff * tan
		dd += diff * diff
		tt += tan * tan
	}
	return math.Abs(dot) <= 1.e-10*math.Sqrt(dd*tt)
}
