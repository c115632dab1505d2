//go:build netlib

package utils

// Build with -tags netlib to route gonum's BLAS level 3 calls (the residual
// contractions) through a native CBLAS. Requires OpenBLAS at link time.

/*
#cgo LDFLAGS: -lopenblas -lgfortran -lm -lpthread
*/
import "C"

import (
	"gonum.org/v1/gonum/blas/blas64"
	netblas "gonum.org/v1/netlib/blas/netlib"
)

func init() {
	blas64.Use(netblas.Implementation{})
}
