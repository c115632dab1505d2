package basis

import (
	"github.com/notargets/aderdg/DG1D"
)

// QuadRule is a quadrature rule on a reference shape. Pts[i] has Dim()
// coordinates; a Point rule has a single empty point of weight 1.
type QuadRule struct {
	Order int
	Pts   [][]float64
	Wts   []float64
}

func (q QuadRule) NQ() int { return len(q.Wts) }

// Reversed returns the rule with its points in reverse order.
func (q QuadRule) Reversed() (r QuadRule) {
	n := q.NQ()
	r = QuadRule{Order: q.Order, Pts: make([][]float64, n), Wts: make([]float64, n)}
	for i := 0; i < n; i++ {
		r.Pts[i] = q.Pts[n-1-i]
		r.Wts[i] = q.Wts[n-1-i]
	}
	return
}

// NumPoints1D is the Gauss point count per direction exact to qorder.
func NumPoints1D(qorder int) int {
	if qorder < 0 {
		qorder = 0
	}
	return qorder/2 + 1
}

// Quadrature returns a rule integrating polynomials of total degree qorder
// exactly on the shape.
func (s Shape) Quadrature(qorder int) (q QuadRule) {
	var (
		n = NumPoints1D(qorder)
	)
	q.Order = qorder
	switch s {
	case Point:
		q.Pts = [][]float64{{}}
		q.Wts = []float64{1}
	case Segment:
		X, W := DG1D.GaussLegendre(n)
		for i := range X.DataP {
			q.Pts = append(q.Pts, []float64{X.DataP[i]})
			q.Wts = append(q.Wts, W.DataP[i])
		}
	case Quadrilateral:
		X, W := DG1D.GaussLegendre(n)
		for j := range X.DataP {
			for i := range X.DataP {
				q.Pts = append(q.Pts, []float64{X.DataP[i], X.DataP[j]})
				q.Wts = append(q.Wts, W.DataP[i]*W.DataP[j])
			}
		}
	case Triangle:
		// Collapsed coordinates: r = (1+a)(1-b)/2 - 1, s = b, with the
		// (1-b) Jacobian absorbed into a Gauss-Jacobi(1,0) rule in b
		xa, wa := DG1D.JacobiGQ(0, 0, n-1)
		xb, wb := DG1D.JacobiGQ(1, 0, n-1)
		for j := range xb.DataP {
			for i := range xa.DataP {
				a, b := xa.DataP[i], xb.DataP[j]
				q.Pts = append(q.Pts, []float64{0.5*(1+a)*(1-b) - 1, b})
				q.Wts = append(q.Wts, 0.5*wa.DataP[i]*wb.DataP[j])
			}
		}
	}
	return
}

// TensorTime forms the space-time rule of a spatial rule and a 1-D time rule,
// with the spatial index running fastest. The time coordinate is appended.
func TensorTime(space, time QuadRule) (q QuadRule) {
	q.Order = space.Order
	for it, tp := range time.Pts {
		for is, sp := range space.Pts {
			pt := make([]float64, 0, len(sp)+1)
			pt = append(pt, sp...)
			pt = append(pt, tp[0])
			q.Pts = append(q.Pts, pt)
			q.Wts = append(q.Wts, space.Wts[is]*time.Wts[it])
		}
	}
	return
}
