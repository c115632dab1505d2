package basis

import (
	"fmt"
	"sort"

	"github.com/notargets/aderdg/DG1D"
	"github.com/notargets/aderdg/DG2D"
	"github.com/notargets/aderdg/utils"
)

// Basis evaluates a polynomial basis on a reference shape.
type Basis interface {
	Name() string
	Shape() Shape
	Order() int
	// NB is the number of basis functions at the current order
	NB() int
	// SetOrder changes the polynomial order; every table built from the
	// previous order is invalid afterwards
	SetOrder(order int) error
	// Values is np x nb
	Values(pts [][]float64) utils.Matrix
	// Gradients returns one np x nb matrix per reference direction
	Gradients(pts [][]float64) []utils.Matrix
	// IsNodal reports whether coefficients are values at Nodes()
	IsNodal() bool
	Nodes() [][]float64
}

type Kind uint8

const (
	LagrangeGL Kind = iota // Gauss-Lobatto (warp-blend on triangles) nodes
	LagrangeEq             // Equidistant nodes
	Legendre               // Orthonormal modal basis
)

type entry struct {
	shape Shape
	kind  Kind
}

var registry = map[string]entry{
	"LagrangeSeg":    {Segment, LagrangeGL},
	"LagrangeEqSeg":  {Segment, LagrangeEq},
	"LegendreSeg":    {Segment, Legendre},
	"LagrangeQuad":   {Quadrilateral, LagrangeGL},
	"LagrangeEqQuad": {Quadrilateral, LagrangeEq},
	"LegendreQuad":   {Quadrilateral, Legendre},
	"LagrangeTri":    {Triangle, LagrangeGL},
	"LagrangeEqTri":  {Triangle, LagrangeEq},
	"LegendreTri":    {Triangle, Legendre},
}

// ErrUnknownBasis is returned by New for names without an implementation.
var ErrUnknownBasis = fmt.Errorf("unknown basis")

// Names lists the registered basis names.
func Names() (names []string) {
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return
}

func New(name string, order int) (b Basis, err error) {
	e, ok := registry[name]
	if !ok {
		err = fmt.Errorf("%w: %q", ErrUnknownBasis, name)
		return
	}
	return NewPolyBasis(e.shape, e.kind, order)
}

// PolyBasis is a modal basis on a shape, optionally made nodal through the
// inverse Vandermonde matrix of its node set.
type PolyBasis struct {
	name  string
	shape Shape
	kind  Kind
	order int
	nodes [][]float64
	Vinv  utils.Matrix
}

func NewPolyBasis(shape Shape, kind Kind, order int) (pb *PolyBasis, err error) {
	pb = &PolyBasis{shape: shape, kind: kind}
	for name, e := range registry {
		if e.shape == shape && e.kind == kind {
			pb.name = name
		}
	}
	if err = pb.SetOrder(order); err != nil {
		return nil, err
	}
	return
}

func (pb *PolyBasis) Name() string   { return pb.name }
func (pb *PolyBasis) Shape() Shape   { return pb.shape }
func (pb *PolyBasis) Order() int     { return pb.order }
func (pb *PolyBasis) NB() int        { return pb.shape.NumBasis(pb.order) }
func (pb *PolyBasis) IsNodal() bool  { return pb.kind != Legendre }
func (pb *PolyBasis) Kind() Kind     { return pb.kind }
func (pb *PolyBasis) Nodes() [][]float64 {
	return pb.nodes
}

func (pb *PolyBasis) SetOrder(order int) (err error) {
	if order < 0 {
		return fmt.Errorf("basis %s: negative order %d", pb.name, order)
	}
	pb.order = order
	pb.nodes, pb.Vinv = nil, utils.Matrix{}
	if pb.kind == Legendre {
		return
	}
	pb.nodes = pb.makeNodes()
	V, _ := pb.modal(pb.nodes, false)
	if pb.Vinv, err = V.Inverse(); err != nil {
		return fmt.Errorf("basis %s order %d: %w", pb.name, order, err)
	}
	pb.Vinv.SetReadOnly("Vinv")
	return
}

func (pb *PolyBasis) makeNodes() (nodes [][]float64) {
	p := pb.order
	if pb.kind == LagrangeEq {
		return pb.shape.EquidistantNodes(p)
	}
	switch pb.shape {
	case Segment:
		for _, r := range DG1D.JacobiGL(0, 0, p).DataP {
			nodes = append(nodes, []float64{r})
		}
	case Quadrilateral:
		x := DG1D.JacobiGL(0, 0, p).DataP
		for _, s := range x {
			for _, r := range x {
				nodes = append(nodes, []float64{r, s})
			}
		}
	case Triangle:
		R, S := DG2D.XYtoRS(DG2D.Nodes2D(p))
		for i := range R.DataP {
			nodes = append(nodes, []float64{R.DataP[i], S.DataP[i]})
		}
	}
	return
}

func (pb *PolyBasis) Values(pts [][]float64) utils.Matrix {
	V, _ := pb.modal(pts, false)
	if pb.kind == Legendre {
		return V
	}
	return V.Mul(pb.Vinv)
}

func (pb *PolyBasis) Gradients(pts [][]float64) (G []utils.Matrix) {
	_, G = pb.modal(pts, true)
	if pb.kind == Legendre {
		return
	}
	for d := range G {
		G[d] = G[d].Mul(pb.Vinv)
	}
	return
}

// modal evaluates the orthonormal modal basis and optionally its gradients.
func (pb *PolyBasis) modal(pts [][]float64, withGrad bool) (V utils.Matrix, G []utils.Matrix) {
	var (
		p   = pb.order
		np  = len(pts)
		dim = pb.shape.Dim()
		nb  = pb.NB()
	)
	coord := func(d int) utils.Vector {
		v := utils.NewVector(np)
		for i, pt := range pts {
			v.DataP[i] = pt[d]
		}
		return v
	}
	V = utils.NewMatrix(np, nb)
	if withGrad {
		G = make([]utils.Matrix, dim)
		for d := range G {
			G[d] = utils.NewMatrix(np, nb)
		}
	}
	switch pb.shape {
	case Segment:
		r := coord(0)
		for j := 0; j <= p; j++ {
			V.SetCol(j, DG1D.JacobiP(r, 0, 0, j))
			if withGrad {
				G[0].SetCol(j, DG1D.GradJacobiP(r, 0, 0, j))
			}
		}
	case Quadrilateral:
		r, s := coord(0), coord(1)
		for j := 0; j <= p; j++ {
			Ps := DG1D.JacobiP(s, 0, 0, j)
			dPs := DG1D.GradJacobiP(s, 0, 0, j)
			for i := 0; i <= p; i++ {
				var (
					k   = j*(p+1) + i
					Pr  = DG1D.JacobiP(r, 0, 0, i)
					dPr = DG1D.GradJacobiP(r, 0, 0, i)
				)
				for n := 0; n < np; n++ {
					V.Set(n, k, Pr[n]*Ps[n])
					if withGrad {
						G[0].Set(n, k, dPr[n]*Ps[n])
						G[1].Set(n, k, Pr[n]*dPs[n])
					}
				}
			}
		}
	case Triangle:
		r, s := coord(0), coord(1)
		V = DG2D.Vandermonde2D(p, r, s)
		if withGrad {
			G[0], G[1] = DG2D.GradVandermonde2D(p, r, s)
		}
	}
	return
}

// SpaceTime returns the basis on the space-time element of a segment basis:
// the quadrilateral basis of the same kind and order, with s as time.
func SpaceTime(b Basis) (bst Basis, err error) {
	pb, ok := b.(*PolyBasis)
	if !ok || pb.shape != Segment {
		err = fmt.Errorf("no space-time basis for %s", b.Name())
		return
	}
	return NewPolyBasis(Quadrilateral, pb.kind, pb.order)
}
