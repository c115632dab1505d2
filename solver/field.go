package solver

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/notargets/aderdg/utils"
)

// Field holds basis coefficients for every element, stored contiguously as
// NElem blocks of NB x NS.
type Field struct {
	NElem, NB, NS int
	Data          []float64
	elems         []utils.Matrix
}

func NewField(nElem, nb, ns int) (f *Field) {
	f = &Field{
		NElem: nElem, NB: nb, NS: ns,
		Data:  make([]float64, nElem*nb*ns),
		elems: make([]utils.Matrix, nElem),
	}
	for k := range f.elems {
		f.elems[k] = utils.NewMatrixView(nb, ns, f.Data[k*nb*ns:])
	}
	return
}

// Elem is an NB x NS view of element k's coefficients
func (f *Field) Elem(k int) utils.Matrix { return f.elems[k] }

func (f *Field) Zero() {
	for i := range f.Data {
		f.Data[i] = 0
	}
}

func (f *Field) Copy() (c *Field) {
	c = NewField(f.NElem, f.NB, f.NS)
	copy(c.Data, f.Data)
	return
}

func (f *Field) CopyFrom(o *Field) { copy(f.Data, o.Data) }

func (f *Field) SameShape(o *Field) bool {
	return f.NElem == o.NElem && f.NB == o.NB && f.NS == o.NS
}

// AddScaled is f += a*o
func (f *Field) AddScaled(a float64, o *Field) { floats.AddScaled(f.Data, a, o.Data) }

func (f *Field) Scale(a float64) { floats.Scale(a, f.Data) }

func (f *Field) MaxAbs() (m float64) {
	for _, v := range f.Data {
		m = math.Max(m, math.Abs(v))
	}
	return
}

// Norm is the Euclidean norm of the coefficients
func (f *Field) Norm() float64 { return floats.Norm(f.Data, 2) }
