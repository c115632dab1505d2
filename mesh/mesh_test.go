package mesh

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLine(t *testing.T) {
	{ // Bounded
		m, err := NewLine(0, 2, 4, false)
		require.NoError(t, err)
		assert.Equal(t, 4, m.NElem())
		assert.Equal(t, 3, len(m.IFaces))
		for i, f := range m.IFaces {
			assert.Equal(t, IFace{ElemL: i, FaceL: 1, ElemR: i + 1, FaceR: 0}, f)
		}
		g, ok := m.BFaceGroup(Left)
		require.True(t, ok)
		assert.Equal(t, []BFace{{Elem: 0, Face: 0}}, g.BFaces)
		g, ok = m.BFaceGroup(CanonicalGroup("x2"))
		require.True(t, ok)
		assert.Equal(t, []BFace{{Elem: 3, Face: 1}}, g.BFaces)
		vol, err := m.Volumes()
		require.NoError(t, err)
		assert.InDeltaSlice(t, []float64{.5, .5, .5, .5}, vol, 1.e-14)
		assert.True(t, m.IsAffine())
	}
	{ // Periodic wraps the last element onto the first
		m, err := NewLine(0, 1, 3, true)
		require.NoError(t, err)
		assert.Equal(t, 3, len(m.IFaces))
		assert.Equal(t, 0, m.NBFaces())
		assert.Contains(t, m.IFaces, IFace{ElemL: 0, FaceL: 0, ElemR: 2, FaceR: 1})
		e2f := m.ElemFaces()
		for k := range e2f {
			assert.Equal(t, 2, len(e2f[k]))
		}
	}
	{
		_, err := NewLine(1, 0, 3, false)
		assert.Error(t, err)
	}
}

func TestQuadTri(t *testing.T) {
	{
		m, err := NewQuad(0, 2, 0, 1, 4, 2, false, false)
		require.NoError(t, err)
		assert.Equal(t, 8, m.NElem())
		// 3 vertical interior lines x 2 rows + 1 horizontal line x 4 columns
		assert.Equal(t, 10, len(m.IFaces))
		for _, name := range []string{Bottom, Right, Top, Left} {
			g, ok := m.BFaceGroup(name)
			require.True(t, ok)
			switch name {
			case Bottom, Top:
				assert.Equal(t, 4, len(g.BFaces))
			default:
				assert.Equal(t, 2, len(g.BFaces))
			}
		}
		vol, err := m.Volumes()
		require.NoError(t, err)
		var total float64
		for _, v := range vol {
			total += v
		}
		assert.InDelta(t, 2., total, 1.e-13)
		assert.True(t, m.IsAffine())
	}
	{
		m, err := NewTri(0, 1, 0, 1, 3, 3, true, true)
		require.NoError(t, err)
		assert.Equal(t, 18, m.NElem())
		assert.Equal(t, 0, m.NBFaces())
		// every face of every triangle is interior
		assert.Equal(t, 18*3/2, len(m.IFaces))
		vol, err := m.Volumes()
		require.NoError(t, err)
		for _, v := range vol {
			assert.InDelta(t, 1./18., v, 1.e-14)
		}
	}
}

// wrapsOnto checks that the two sides of every interior face coincide up to
// a whole period along one axis.
func wrapsOnto(t *testing.T, m *Mesh, period []float64) {
	for _, f := range m.IFaces {
		cL, cR := m.FaceCentroid(f.ElemL, f.FaceL), m.FaceCentroid(f.ElemR, f.FaceR)
		for d := range cL {
			diff := math.Abs(cL[d] - cR[d])
			ok := diff < 1.e-12 || math.Abs(diff-period[d]) < 1.e-12
			assert.Truef(t, ok, "face %+v offset %g along %d", f, diff, d)
		}
	}
}

func TestPeriodicTwoCells(t *testing.T) {
	{
		m, err := NewQuad(0, 1, 0, 1, 2, 2, true, true)
		require.NoError(t, err)
		assert.Equal(t, 0, m.NBFaces())
		assert.Equal(t, 4*4/2, len(m.IFaces))
		wrapsOnto(t, m, []float64{1, 1})
		for _, faces := range m.ElemFaces() {
			assert.Equal(t, 4, len(faces))
		}
	}
	{
		m, err := NewTri(0, 2, 0, 1, 2, 4, true, false)
		require.NoError(t, err)
		assert.Equal(t, 16, m.NElem())
		assert.Equal(t, 4, m.NBFaces())
		assert.Equal(t, (16*3-4)/2, len(m.IFaces))
		wrapsOnto(t, m, []float64{2, 0})
	}
	{
		_, err := NewQuad(0, 1, 0, 1, 1, 3, true, false)
		assert.Error(t, err)
	}
}

func TestNormals(t *testing.T) {
	m, err := NewQuad(0, 2, 0, 1, 1, 1, false, false)
	require.NoError(t, err)
	expected := [][]float64{{0, -1}, {1, 0}, {0, 1}, {-1, 0}}
	// reference faces have length 2, physical faces 2 and 1
	lengths := []float64{2, 1, 2, 1}
	for f := 0; f < 4; f++ {
		n, fjac, err := m.FaceNormals(0, f, [][]float64{{-0.5}, {0.5}})
		require.NoError(t, err)
		for i := range n {
			assert.InDeltaSlice(t, expected[f], n[i], 1.e-14)
			assert.InDelta(t, lengths[f]/2, fjac[i], 1.e-14)
		}
	}
	mt, err := NewTri(0, 1, 0, 1, 1, 1, false, false)
	require.NoError(t, err)
	for k := 0; k < mt.NElem(); k++ {
		// outward normals integrate to zero over a closed element
		var sum [2]float64
		for f := 0; f < 3; f++ {
			n, fjac, err := mt.FaceNormals(k, f, [][]float64{{0}})
			require.NoError(t, err)
			sum[0] += 2 * fjac[0] * n[0][0]
			sum[1] += 2 * fjac[0] * n[0][1]
		}
		assert.InDelta(t, 0., sum[0], 1.e-14)
		assert.InDelta(t, 0., sum[1], 1.e-14)
	}
	// Interior faces see opposite normals from both sides
	for _, f := range mt.IFaces {
		nL, _, _ := mt.FaceNormals(f.ElemL, f.FaceL, [][]float64{{0}})
		nR, _, _ := mt.FaceNormals(f.ElemR, f.FaceR, [][]float64{{0}})
		assert.InDelta(t, -nL[0][0], nR[0][0], 1.e-14)
		assert.InDelta(t, -nL[0][1], nR[0][1], 1.e-14)
	}
}

func TestElevate(t *testing.T) {
	m, err := NewLine(0, 1, 2, false)
	require.NoError(t, err)
	{ // Midpoint elevation keeps the mapping affine
		me, err := Elevate(m, 2, nil)
		require.NoError(t, err)
		assert.Equal(t, 2, me.GOrder)
		assert.Equal(t, 5, len(me.Coords))
		assert.Equal(t, 3, len(me.Elem2Nodes[0]))
		assert.InDelta(t, 0.25, me.Coords[me.Elem2Nodes[0][1]][0], 1.e-15)
		assert.True(t, me.IsAffine())
		assert.Equal(t, m.IFaces, me.IFaces)
	}
	{ // Moving the midpoints makes the mesh curved
		warp := func(x []float64) []float64 { return []float64{x[0] + 0.05*math.Sin(2*math.Pi*x[0])} }
		me, err := Elevate(m, 2, warp)
		require.NoError(t, err)
		assert.False(t, me.IsAffine())
		vol, err := me.Volumes()
		require.NoError(t, err)
		assert.InDelta(t, 1., vol[0]+vol[1], 1.e-14)
	}
	{ // Folding an element is reported
		fold := func(x []float64) []float64 { return []float64{x[0] + 1} }
		me, err := Elevate(m, 2, fold)
		require.NoError(t, err)
		_, err = me.Volumes()
		var ge *GeometryError
		assert.True(t, errors.As(err, &ge))
	}
}
