package DG1D

import (
	"math"
	"testing"

	"github.com/notargets/aderdg/utils"
	"github.com/stretchr/testify/assert"
)

func TestGaussLegendre(t *testing.T) {
	{ // An n point rule integrates x^k exactly up to k = 2n-1
		for nq := 1; nq < 8; nq++ {
			X, W := GaussLegendre(nq)
			for k := 0; k <= 2*nq-1; k++ {
				var sum float64
				for i, x := range X.DataP {
					sum += W.DataP[i] * math.Pow(x, float64(k))
				}
				exact := 0.
				if k%2 == 0 {
					exact = 2. / float64(k+1)
				}
				assert.InDeltaf(t, exact, sum, 1.e-13, "nq = %d, k = %d", nq, k)
			}
		}
	}
	{ // Points are ascending and symmetric
		X, W := GaussLegendre(4)
		for i := 0; i < 4; i++ {
			assert.InDelta(t, -X.DataP[i], X.DataP[3-i], 1.e-14)
			assert.InDelta(t, W.DataP[i], W.DataP[3-i], 1.e-14)
		}
		assert.True(t, X.DataP[0] < X.DataP[1])
	}
}

func TestJacobiGQ(t *testing.T) {
	// moments of x^k against the weight (1-x) on [-1,1]
	moment := func(k int) float64 {
		m := func(k int) float64 {
			if k%2 == 1 {
				return 0
			}
			return 2. / float64(k+1)
		}
		return m(k) - m(k+1)
	}
	for N := 0; N < 6; N++ {
		X, W := JacobiGQ(1, 0, N)
		assert.Equal(t, N+1, X.Len())
		for k := 0; k <= 2*N+1; k++ {
			var sum float64
			for i, x := range X.DataP {
				sum += W.DataP[i] * math.Pow(x, float64(k))
			}
			assert.InDeltaf(t, moment(k), sum, 1.e-12, "N = %d, k = %d", N, k)
		}
	}
}

func TestJacobiGL(t *testing.T) {
	X := JacobiGL(0, 0, 3)
	assert.InDeltaSlice(t, []float64{-1, -0.4472135954999579, 0.4472135954999579, 1}, X.DataP, 1.e-12)
	assert.Equal(t, []float64{-1, 1}, JacobiGL(0, 0, 1).DataP)
	assert.Equal(t, []float64{0}, JacobiGL(0, 0, 0).DataP)
	assert.InDeltaSlice(t, []float64{-1, -0.5, 0, 0.5, 1}, Equidistant(4).DataP, 1.e-15)
}

func TestVandermonde1D(t *testing.T) {
	var (
		N = 4
	)
	X, W := GaussLegendre(N + 1)
	V := Vandermonde1D(N, X)
	Vr := GradVandermonde1D(X, N)
	{ // Orthonormal columns: V^T diag(W) V = I
		M := V.Transpose().Mul(V.Copy().ScaleRows(W.DataP))
		for i := 0; i <= N; i++ {
			for j := 0; j <= N; j++ {
				exact := 0.
				if i == j {
					exact = 1
				}
				assert.InDelta(t, exact, M.At(i, j), 1.e-13)
			}
		}
	}
	{ // Derivative of P1 = sqrt(3/2) x is constant
		for i := 0; i < X.Len(); i++ {
			assert.InDelta(t, math.Sqrt(1.5), Vr.At(i, 1), 1.e-13)
			assert.InDelta(t, 0., Vr.At(i, 0), 1.e-15)
		}
	}
	{ // Derivative check against a centered difference
		r := utils.NewVector(1, []float64{0.3})
		h := 1.e-6
		rp := utils.NewVector(1, []float64{0.3 + h})
		rm := utils.NewVector(1, []float64{0.3 - h})
		fd := (JacobiP(rp, 0, 0, 3)[0] - JacobiP(rm, 0, 0, 3)[0]) / (2 * h)
		assert.InDelta(t, fd, GradJacobiP(r, 0, 0, 3)[0], 1.e-7)
	}
}
