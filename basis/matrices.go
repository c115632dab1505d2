package basis

import (
	"github.com/notargets/aderdg/utils"
)

// MassMatrix is Phi^T diag(w*djac) Phi for basis values Phi (nq x nb).
// A nil djac means the reference element.
func MassMatrix(Phi utils.Matrix, wts, djac []float64) (MM utils.Matrix) {
	var (
		nq, nb = Phi.Dims()
		wd     = make([]float64, nq)
	)
	for q := range wd {
		wd[q] = wts[q]
		if djac != nil {
			wd[q] *= djac[q]
		}
	}
	MM = utils.NewMatrix(nb, nb)
	utils.Gemm(true, false, 1, Phi, Phi.Copy().ScaleRows(wd), 0, MM)
	return
}

// StiffnessMatrix is Phi^T diag(w*djac) dPhi: entry (m,l) integrates
// phi_m * d(phi_l)/dxi_d for the given gradient table. The two tables may
// come from different bases, giving an nbPhi x nbdPhi result.
func StiffnessMatrix(Phi, dPhi utils.Matrix, wts, djac []float64) (SM utils.Matrix) {
	var (
		nq, nb = Phi.Dims()
		_, nbd = dPhi.Dims()
		wd     = make([]float64, nq)
	)
	for q := range wd {
		wd[q] = wts[q]
		if djac != nil {
			wd[q] *= djac[q]
		}
	}
	SM = utils.NewMatrix(nb, nbd)
	utils.Gemm(true, false, 1, Phi, dPhi.Copy().ScaleRows(wd), 0, SM)
	return
}
