package utils

import (
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

type Vector struct {
	V     *mat.VecDense
	DataP []float64
}

func NewVector(n int, dataO ...[]float64) (R Vector) {
	var v *mat.VecDense
	if len(dataO) != 0 {
		v = mat.NewVecDense(n, dataO[0])
	} else {
		v = mat.NewVecDense(n, make([]float64, n))
	}
	R = Vector{
		V:     v,
		DataP: v.RawVector().Data,
	}
	return
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (v Vector) Dims() (r, c int)         { return v.V.Dims() }
func (v Vector) At(i, j int) float64      { return v.V.At(i, j) }
func (v Vector) T() mat.Matrix            { return v.V.T() }
func (v Vector) AtVec(i int) float64      { return v.DataP[i] }
func (v Vector) RawVector() blas64.Vector { return v.V.RawVector() }
func (v Vector) Len() int                 { return len(v.DataP) }

// Chainable (extended) methods
func (v Vector) Set(val float64) Vector {
	for i := range v.DataP {
		v.DataP[i] = val
	}
	return v
}

func (v Vector) Copy() Vector {
	data := make([]float64, len(v.DataP))
	copy(data, v.DataP)
	return NewVector(len(data), data)
}

func (v Vector) Linspace(begin, end float64) Vector {
	floats.Span(v.DataP, begin, end)
	return v
}

func (v Vector) Subtract(a Vector) Vector { floats.Sub(v.DataP, a.DataP); return v }

func (v Vector) Scale(a float64) Vector { floats.Scale(a, v.DataP); return v }

func (v Vector) AddScalar(a float64) Vector { floats.AddConst(a, v.DataP); return v }

func (v Vector) POW(p int) Vector {
	for i, val := range v.DataP {
		v.DataP[i] = POW(val, p)
	}
	return v
}

func (v Vector) Min() float64 { return floats.Min(v.DataP) }
func (v Vector) Max() float64 { return floats.Max(v.DataP) }

// ToMatrix returns a column matrix sharing the vector storage.
func (v Vector) ToMatrix() Matrix {
	return NewMatrix(v.Len(), 1, v.DataP)
}
