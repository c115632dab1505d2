package basis

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLagrangeNodal(t *testing.T) {
	for _, name := range []string{"LagrangeSeg", "LagrangeEqSeg", "LagrangeQuad", "LagrangeEqQuad",
		"LagrangeTri", "LagrangeEqTri"} {
		for order := 0; order <= 3; order++ {
			b, err := New(name, order)
			require.NoError(t, err)
			require.True(t, b.IsNodal())
			nodes := b.Nodes()
			require.Equal(t, b.NB(), len(nodes), name)
			V := b.Values(nodes)
			for i := 0; i < b.NB(); i++ {
				for j := 0; j < b.NB(); j++ {
					exact := 0.
					if i == j {
						exact = 1.
					}
					assert.InDeltaf(t, exact, V.At(i, j), 1.e-12, "%s order %d", name, order)
				}
			}
			// Partition of unity away from the nodes
			q := b.Shape().Quadrature(2*order + 1)
			V = b.Values(q.Pts)
			G := b.Gradients(q.Pts)
			for i := range q.Pts {
				var sum, gsum float64
				for j := 0; j < b.NB(); j++ {
					sum += V.At(i, j)
					for d := range G {
						gsum += math.Abs(G[d].At(i, j))
					}
				}
				assert.InDelta(t, 1., sum, 1.e-12)
				if order == 0 {
					assert.InDelta(t, 0., gsum, 1.e-12)
				}
			}
		}
	}
}

func TestLegendreOrthonormal(t *testing.T) {
	for _, name := range []string{"LegendreSeg", "LegendreQuad", "LegendreTri"} {
		b, err := New(name, 3)
		require.NoError(t, err)
		assert.False(t, b.IsNodal())
		q := b.Shape().Quadrature(2 * b.Order())
		MM := MassMatrix(b.Values(q.Pts), q.Wts, nil)
		for i := 0; i < b.NB(); i++ {
			for j := 0; j < b.NB(); j++ {
				exact := 0.
				if i == j {
					exact = 1.
				}
				assert.InDeltaf(t, exact, MM.At(i, j), 1.e-12, "%s (%d,%d)", name, i, j)
			}
		}
	}
}

func TestSetOrder(t *testing.T) {
	b, err := New("LagrangeSeg", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, b.NB())
	require.NoError(t, b.SetOrder(3))
	assert.Equal(t, 4, b.NB())
	assert.Equal(t, 4, len(b.Nodes()))
	assert.Error(t, b.SetOrder(-1))

	_, err = New("HermiteSeg", 2)
	assert.True(t, errors.Is(err, ErrUnknownBasis))
}

func TestQuadrature(t *testing.T) {
	{ // Weights sum to the reference measure
		for _, s := range []Shape{Segment, Quadrilateral, Triangle} {
			for qo := 0; qo < 8; qo++ {
				var sum float64
				for _, w := range s.Quadrature(qo).Wts {
					sum += w
				}
				assert.InDelta(t, s.RefVolume(), sum, 1.e-13)
			}
		}
	}
	{ // Triangle monomials: int r = -2/3, int r*s = 0, int r^2 = 2/3
		q := Triangle.Quadrature(4)
		var ir, irs, ir2 float64
		for i, pt := range q.Pts {
			ir += q.Wts[i] * pt[0]
			irs += q.Wts[i] * pt[0] * pt[1]
			ir2 += q.Wts[i] * pt[0] * pt[0]
		}
		assert.InDelta(t, -2./3., ir, 1.e-13)
		assert.InDelta(t, 0., irs, 1.e-13)
		assert.InDelta(t, 2./3., ir2, 1.e-13)
	}
	{ // Point rule and reversal
		q := Point.Quadrature(3)
		assert.Equal(t, 1, q.NQ())
		s := Segment.Quadrature(3)
		r := s.Reversed()
		assert.Equal(t, s.Pts[0], r.Pts[1])
		assert.Equal(t, s.Wts[0], r.Wts[1])
	}
}

func TestFaces(t *testing.T) {
	for _, s := range []Shape{Segment, Quadrilateral, Triangle} {
		nodes := s.EquidistantNodes(2)
		for f := 0; f < s.NumFaces(); f++ {
			ids := s.FaceNodes(2, f)
			if s == Segment {
				assert.Equal(t, s.FaceToElemRef(f, [][]float64{{}})[0], nodes[ids[0]])
				continue
			}
			ends := s.FaceToElemRef(f, [][]float64{{-1}, {0}, {1}})
			assert.InDeltaSlice(t, ends[0], nodes[ids[0]], 1.e-14)
			assert.InDeltaSlice(t, ends[1], nodes[ids[1]], 1.e-14)
			assert.InDeltaSlice(t, ends[2], nodes[ids[2]], 1.e-14)
		}
	}
}

func TestSpaceTime(t *testing.T) {
	fm, err := NewSpaceTimeFaceMap(Segment)
	require.NoError(t, err)
	assert.Equal(t, []float64{-1, -1}, fm.TimeOnFace(fm.InitialTime, [][]float64{{-0.5}, {0.5}}))
	assert.Equal(t, []float64{1, 1}, fm.TimeOnFace(fm.FinalTime, [][]float64{{-0.5}, {0.5}}))
	// Spatial face 1 (r=1) runs forward in time, spatial face 0 backward
	assert.Equal(t, []float64{-0.5, 0.5}, fm.TimeOnFace(fm.Spatial[1], [][]float64{{-0.5}, {0.5}}))
	assert.Equal(t, []float64{0.5, -0.5}, fm.TimeOnFace(fm.Spatial[0], [][]float64{{-0.5}, {0.5}}))
	_, err = NewSpaceTimeFaceMap(Triangle)
	assert.Error(t, err)

	b, err := New("LagrangeEqSeg", 2)
	require.NoError(t, err)
	bst, err := SpaceTime(b)
	require.NoError(t, err)
	assert.Equal(t, Quadrilateral, bst.Shape())
	assert.Equal(t, 9, bst.NB())
	assert.Equal(t, "LagrangeEqQuad", bst.Name())
}
