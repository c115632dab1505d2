package DG2D

import (
	"testing"

	"github.com/notargets/aderdg/DG1D"
	"github.com/notargets/aderdg/utils"
	"github.com/stretchr/testify/assert"
)

// collapsedRule is a Stroud conical product rule on the reference triangle
func collapsedRule(n int) (R, S utils.Vector, W []float64) {
	xa, wa := DG1D.JacobiGQ(0, 0, n-1)
	xb, wb := DG1D.JacobiGQ(1, 0, n-1)
	R, S = utils.NewVector(n*n), utils.NewVector(n*n)
	W = make([]float64, n*n)
	var sk int
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			a, b := xa.DataP[i], xb.DataP[j]
			R.DataP[sk] = 0.5*(1+a)*(1-b) - 1
			S.DataP[sk] = b
			W[sk] = 0.5 * wa.DataP[i] * wb.DataP[j]
			sk++
		}
	}
	return
}

func TestVandermonde2D(t *testing.T) {
	var (
		N       = 3
		Np      = (N + 1) * (N + 2) / 2
		R, S, W = collapsedRule(N + 2)
	)
	{ // The rule integrates the area of the reference triangle
		var area float64
		for _, w := range W {
			area += w
		}
		assert.InDelta(t, 2., area, 1.e-14)
	}
	{ // PKD polynomials are orthonormal
		V := Vandermonde2D(N, R, S)
		M := V.Transpose().Mul(V.Copy().ScaleRows(W))
		for i := 0; i < Np; i++ {
			for j := 0; j < Np; j++ {
				exact := 0.
				if i == j {
					exact = 1.
				}
				assert.InDelta(t, exact, M.At(i, j), 1.e-12)
			}
		}
	}
	{ // Gradients match a centered difference
		h := 1.e-6
		r, s := utils.NewVector(1, []float64{-0.2}), utils.NewVector(1, []float64{-0.3})
		Vr, Vs := GradVandermonde2D(N, r, s)
		Vrp := Vandermonde2D(N, utils.NewVector(1, []float64{-0.2 + h}), s)
		Vrm := Vandermonde2D(N, utils.NewVector(1, []float64{-0.2 - h}), s)
		Vsp := Vandermonde2D(N, r, utils.NewVector(1, []float64{-0.3 + h}))
		Vsm := Vandermonde2D(N, r, utils.NewVector(1, []float64{-0.3 - h}))
		for j := 0; j < Np; j++ {
			assert.InDelta(t, (Vrp.At(0, j)-Vrm.At(0, j))/(2*h), Vr.At(0, j), 1.e-6)
			assert.InDelta(t, (Vsp.At(0, j)-Vsm.At(0, j))/(2*h), Vs.At(0, j), 1.e-6)
		}
	}
}

func TestNodes2D(t *testing.T) {
	{ // Order 2 nodes include the three vertices
		x, y := Nodes2D(2)
		r, s := XYtoRS(x, y)
		assert.Equal(t, 6, r.Len())
		found := 0
		for i := range r.DataP {
			for _, v := range [][2]float64{{-1, -1}, {1, -1}, {-1, 1}} {
				if utils.Near(r.DataP[i], v[0], 1.e-12) && utils.Near(s.DataP[i], v[1], 1.e-12) {
					found++
				}
			}
		}
		assert.Equal(t, 3, found)
	}
	{ // Order 0 is the centroid
		r, s := XYtoRS(Nodes2D(0))
		assert.InDelta(t, -1./3., r.DataP[0], 1.e-14)
		assert.InDelta(t, -1./3., s.DataP[0], 1.e-14)
	}
}
