package DG2D

import (
	"math"

	"github.com/notargets/aderdg/DG1D"
	"github.com/notargets/aderdg/utils"
)

// The reference triangle has vertices (-1,-1), (1,-1), (-1,1). Modes are
// ordered by i (the a-direction degree) then j, i+j <= N.

func Vandermonde2D(N int, R, S utils.Vector) (V2D utils.Matrix) {
	V2D, _, _ = simplexModes(N, R, S, false)
	return
}

func GradVandermonde2D(N int, R, S utils.Vector) (V2Dr, V2Ds utils.Matrix) {
	_, V2Dr, V2Ds = simplexModes(N, R, S, true)
	return
}

// simplexModes evaluates the orthonormal PKD polynomials, and optionally
// their r and s derivatives, with one collapse of (r,s) to (a,b).
func simplexModes(N int, R, S utils.Vector, withGrad bool) (V, Vr, Vs utils.Matrix) {
	var (
		Np     = (N + 1) * (N + 2) / 2
		Nr     = R.Len()
		A, B   = collapse(R, S)
		ad, bd = A.DataP, B.DataP
		sk     int
	)
	V = utils.NewMatrix(Nr, Np)
	if withGrad {
		Vr, Vs = utils.NewMatrix(Nr, Np), utils.NewMatrix(Nr, Np)
	}
	col := make([]float64, Nr)
	colR, colS := make([]float64, Nr), make([]float64, Nr)
	for i := 0; i <= N; i++ {
		var (
			fa     = DG1D.JacobiP(A, 0, 0, i)
			dfa    []float64
			alphaB = float64(2*i + 1)
			norm   = math.Pow(2, float64(i)+0.5)
		)
		if withGrad {
			dfa = DG1D.GradJacobiP(A, 0, 0, i)
		}
		for j := 0; j <= N-i; j++ {
			gb := DG1D.JacobiP(B, alphaB, 0, j)
			for n := range col {
				col[n] = math.Sqrt2 * fa[n] * gb[n] * utils.POW(1-bd[n], i)
			}
			V.SetCol(sk, col)
			if withGrad {
				dgb := DG1D.GradJacobiP(B, alphaB, 0, j)
				for n := range colR {
					var (
						h   = 0.5 * (1 - bd[n])
						hm1 = 1.
					)
					if i > 0 {
						hm1 = utils.POW(h, i-1)
					}
					// d/dr = (2/(1-b)) d/da, d/ds = ((1+a)/(1-b)) d/da + d/db
					colR[n] = norm * dfa[n] * gb[n] * hm1
					ds := 0.5 * (1 + ad[n]) * dfa[n] * gb[n] * hm1
					ds += fa[n] * (dgb[n]*utils.POW(h, i) - 0.5*float64(i)*gb[n]*hm1)
					colS[n] = norm * ds
				}
				Vr.SetCol(sk, colR)
				Vs.SetCol(sk, colS)
			}
			sk++
		}
	}
	return
}

// Nodes2D returns the warp-blend nodes of order N on the equilateral
// triangle with vertices (-1,-1/sqrt3), (1,-1/sqrt3), (0,2/sqrt3).
func Nodes2D(N int) (x, y utils.Vector) {
	var (
		alpha = 5. / 3.
		Np    = (N + 1) * (N + 2) / 2
	)
	if N == 0 {
		return utils.NewVector(1), utils.NewVector(1)
	}
	alpopt := []float64{
		0.0000, 0.0000, 1.4152, 0.1001, 0.2751,
		0.9800, 1.0999, 1.2832, 1.3648, 1.4773,
		1.4959, 1.5743, 1.5770, 1.6223, 1.6258,
	}
	if N < 16 {
		alpha = alpopt[N-1]
	}
	// Barycentric coordinates of the equidistant nodes
	var L [3]utils.Vector
	for e := range L {
		L[e] = utils.NewVector(Np)
	}
	fn := 1. / float64(N)
	var sk int
	for n := 0; n < N+1; n++ {
		for m := 0; m < (N + 1 - n); m++ {
			L[0].DataP[sk] = float64(n) * fn
			L[2].DataP[sk] = float64(m) * fn
			L[1].DataP[sk] = 1 - L[0].DataP[sk] - L[2].DataP[sk]
			sk++
		}
	}
	x, y = utils.NewVector(Np), utils.NewVector(Np)
	xd, yd := x.DataP, y.DataP
	for i := range xd {
		xd[i] = L[2].DataP[i] - L[1].DataP[i]
		yd[i] = (2*L[0].DataP[i] - L[2].DataP[i] - L[1].DataP[i]) / math.Sqrt(3)
	}
	// Edge e is where L[e] vanishes; its warp is blended by the other two
	// barycentrics and rotated by 2*pi*e/3.
	edges := [3][3]int{{0, 1, 2}, {1, 2, 0}, {2, 0, 1}}
	for e, ed := range edges {
		la, lb, lc := L[ed[0]].DataP, L[ed[1]].DataP, L[ed[2]].DataP
		warpf := warpFactor(N, L[ed[2]].Copy().Subtract(L[ed[1]]))
		cs, sn := math.Cos(2*math.Pi*float64(e)/3), math.Sin(2*math.Pi*float64(e)/3)
		for i := range xd {
			w := 4 * lb[i] * lc[i] * warpf[i] * (1 + utils.POW(alpha*la[i], 2))
			xd[i] += cs * w
			yd[i] += sn * w
		}
	}
	return
}

// warpFactor is the displacement from equidistant to Gauss-Lobatto nodes
// along an edge, divided by the edge bubble (1-r^2).
func warpFactor(N int, rout utils.Vector) (warpF []float64) {
	var (
		Nr   = rout.Len()
		Pmat = utils.NewMatrix(N+1, Nr)
	)
	LGLr := DG1D.JacobiGL(0, 0, N)
	req := DG1D.Equidistant(N)
	Veq := DG1D.Vandermonde1D(N, req)
	for i := 0; i < (N + 1); i++ {
		Pmat.SetRow(i, DG1D.JacobiP(rout, 0, 0, i))
	}
	// Equidistant Lagrange polynomials at rout
	Lmat, err := Veq.Transpose().LUSolve(Pmat)
	if err != nil {
		panic(err)
	}
	warp := Lmat.Transpose().Mul(LGLr.Subtract(req).ToMatrix())
	warpF = make([]float64, Nr)
	for i, r := range rout.DataP {
		if math.Abs(r) < (1.0 - (1e-10)) {
			warpF[i] = warp.DataP[i] / (1 - r*r)
		}
	}
	return
}

// collapse maps the triangle onto the square, a = 2(1+r)/(1-s) - 1, b = s.
func collapse(R, S utils.Vector) (a, b utils.Vector) {
	var (
		Np     = R.Len()
		rd, sd = R.DataP, S.DataP
	)
	a, b = utils.NewVector(Np), utils.NewVector(Np, append([]float64(nil), sd...))
	for n, s := range sd {
		a.DataP[n] = -1
		if s != 1 {
			a.DataP[n] = 2*(1+rd[n])/(1-s) - 1
		}
	}
	return
}

// XYtoRS transfers from (x,y) in the equilateral triangle to (r,s) in the
// reference triangle
func XYtoRS(x, y utils.Vector) (r, s utils.Vector) {
	r, s = utils.NewVector(x.Len()), utils.NewVector(x.Len())
	sr3 := math.Sqrt(3)
	for i := range x.DataP {
		xv, yv := x.DataP[i], y.DataP[i]
		l1 := (sr3*yv + 1) / 3
		l2 := (-3*xv - sr3*yv + 2) / 6
		l3 := (3*xv - sr3*yv + 2) / 6
		r.DataP[i], s.DataP[i] = -l2+l3-l1, -l2-l3+l1
	}
	return
}
