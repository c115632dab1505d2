package utils

import (
	"math"
)

func ConstArray(N int, val float64) (v []float64) {
	v = make([]float64, N)
	for i := range v {
		v[i] = val
	}
	return
}

func POW(x float64, pp int) (y float64) {
	var (
		p       = pp
		flipped bool
	)
	if pp > 8 || pp < -8 {
		return math.Pow(x, float64(pp))
	}
	if p < 0 {
		p = -pp
		flipped = true
	}
	switch p {
	case 0:
		y = 1
	case 1:
		y = x
	case 2:
		y = x * x
	case 3:
		y = x * x * x
	case 4:
		y = x * x
		y = y * y
	case 5:
		y = x * x
		y = y * y * x
	case 6:
		y = x * x
		y = y * y * y
	case 7:
		y = x * x
		y = y * y * y * x
	case 8:
		y = x * x
		y = y * y
		y = y * y
	}
	if flipped {
		y = 1. / y
	}
	return
}

// Det2 and Inv2 are the closed forms for 2x2 Jacobians stored row-major.
func Det2(a []float64) float64 {
	return a[0]*a[3] - a[1]*a[2]
}

func Inv2(a, ai []float64) (det float64) {
	det = Det2(a)
	oodet := 1. / det
	ai[0], ai[1] = a[3]*oodet, -a[1]*oodet
	ai[2], ai[3] = -a[2]*oodet, a[0]*oodet
	return
}

func Near(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol*math.Max(1, math.Abs(a))
}
