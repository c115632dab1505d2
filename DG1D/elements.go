package DG1D

import (
	"math"

	"github.com/notargets/aderdg/utils"
	"gonum.org/v1/gonum/mat"
)

// JacobiGL returns the N+1 Gauss-Lobatto points for the Jacobi polynomial
// P^(alpha,beta)_N, endpoints included.
func JacobiGL(alpha, beta float64, N int) (X utils.Vector) {
	var (
		x = make([]float64, N+1)
	)
	if N == 0 {
		X = utils.NewVector(1, []float64{0})
		return
	}
	x[0], x[N] = -1, 1
	if N > 1 {
		xint, _ := JacobiGQ(alpha+1, beta+1, N-2)
		copy(x[1:N], xint.DataP)
	}
	X = utils.NewVector(N+1, x)
	return
}

// JacobiGQ returns the N+1 point Gauss quadrature for weight (1-x)^alpha (1+x)^beta
// using the Golub-Welsch eigenvalue method.
func JacobiGQ(alpha, beta float64, N int) (X, W utils.Vector) {
	var (
		fac    float64
		h1, d0 []float64
		d1     []float64
	)
	if N == 0 {
		x := []float64{-(alpha - beta) / (alpha + beta + 2.)}
		w := []float64{gamma0(alpha, beta)}
		return utils.NewVector(1, x), utils.NewVector(1, w)
	}

	h1 = make([]float64, N+1)
	for i := 0; i < N+1; i++ {
		h1[i] = 2*float64(i) + alpha + beta
	}

	// main diagonal: -(alpha^2-beta^2)./(h1+2)./h1, the symmetric sum J+J'
	// of the half diagonal
	d0 = make([]float64, N+1)
	fac = -(alpha*alpha - beta*beta)
	for i := 0; i < N+1; i++ {
		val := h1[i]
		d0[i] = fac / (val * (val + 2.))
	}
	// Handle division by zero
	eps := 1.e-16
	if alpha+beta < 10*eps {
		d0[0] = 0.
	}

	// 1st upper diagonal: diag(2./(h1(1:N)+2).*sqrt((1:N).*((1:N)+alpha+beta) .* ((1:N)+alpha).*((1:N)+beta)./(h1(1:N)+1)./(h1(1:N)+3)),1);
	var ip1 float64
	d1 = make([]float64, N)
	for i := 0; i < N; i++ {
		ip1 = float64(i + 1)
		val := h1[i]
		d1[i] = 2. / (val + 2.)
		d1[i] *= math.Sqrt(ip1 * (ip1 + alpha + beta) * (ip1 + alpha) * (ip1 + beta) / ((val + 1.) * (val + 3.)))
	}

	JJ := mat.NewSymDense(N+1, nil)
	for i := 0; i < N+1; i++ {
		JJ.SetSym(i, i, d0[i])
		if i < N {
			JJ.SetSym(i, i+1, d1[i])
		}
	}

	var eig mat.EigenSym
	ok := eig.Factorize(JJ, true)
	if !ok {
		panic("eigenvalue decomposition failed")
	}
	x := eig.Values(nil)
	X = utils.NewVector(N+1, x)

	VVr := mat.NewDense(N+1, N+1, nil)
	eig.VectorsTo(VVr)
	W = utils.NewVector(N+1, mat.Row(nil, 0, VVr)).POW(2).Scale(gamma0(alpha, beta))
	return X, W
}

// GaussLegendre returns an nq point Gauss-Legendre rule on [-1,1].
func GaussLegendre(nq int) (X, W utils.Vector) {
	return JacobiGQ(0, 0, nq-1)
}

// Equidistant returns N+1 equally spaced points on [-1,1].
func Equidistant(N int) (X utils.Vector) {
	if N == 0 {
		return utils.NewVector(1, []float64{0})
	}
	return utils.NewVector(N + 1).Linspace(-1, 1)
}

func Vandermonde1D(N int, R utils.Vector) (V utils.Matrix) {
	V = utils.NewMatrix(R.Len(), N+1)
	for j := 0; j < N+1; j++ {
		V.SetCol(j, JacobiP(R, 0, 0, j))
	}
	return
}

func GradVandermonde1D(r utils.Vector, N int) (Vr utils.Matrix) {
	Vr = utils.NewMatrix(r.Len(), N+1)
	for i := 0; i < N+1; i++ {
		Vr.SetCol(i, GradJacobiP(r, 0, 0, i))
	}
	return
}

// JacobiP evaluates the orthonormal Jacobi polynomial of order N at r.
func JacobiP(r utils.Vector, alpha, beta float64, N int) (p []float64) {
	var (
		Nc = r.Len()
		rd = r.DataP
	)
	rg := 1. / math.Sqrt(gamma0(alpha, beta))
	if N == 0 {
		p = utils.ConstArray(Nc, rg)
		return
	}
	ab := alpha + beta
	rg1 := 1. / math.Sqrt(gamma1(alpha, beta))
	pOld := utils.ConstArray(Nc, rg)
	pCur := make([]float64, Nc)
	for i := 0; i < Nc; i++ {
		pCur[i] = rg1 * ((ab+2.0)*rd[i]/2.0 + (alpha-beta)/2.0)
	}
	if N == 1 {
		return pCur
	}

	a1 := alpha + 1.
	b1 := beta + 1.
	ab1 := ab + 1.
	aold := 2.0 * math.Sqrt(a1*b1/(ab+3.0)) / (ab + 2.0)
	for i := 0; i < N-1; i++ {
		ip1 := float64(i + 1)
		ip2 := ip1 + 1
		h1 := 2.0*ip1 + ab
		anew := 2.0 / (h1 + 2.0) * math.Sqrt(ip2*(ip1+ab1)*(ip1+a1)*(ip1+b1)/(h1+1.0)/(h1+3.0))
		bnew := -(alpha*alpha - beta*beta) / h1 / (h1 + 2.0)
		pNew := make([]float64, Nc)
		for j := range pNew {
			pNew[j] = (-aold*pOld[j] + (rd[j]-bnew)*pCur[j]) / anew
		}
		pOld, pCur = pCur, pNew
		aold = anew
	}
	p = pCur
	return
}

func GradJacobiP(r utils.Vector, alpha, beta float64, N int) (p []float64) {
	if N == 0 {
		p = make([]float64, r.Len())
		return
	}
	p = JacobiP(r, alpha+1, beta+1, N-1)
	fN := float64(N)
	fac := math.Sqrt(fN * (fN + alpha + beta + 1))
	for i, val := range p {
		p[i] = val * fac
	}
	return
}
