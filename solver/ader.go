package solver

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/aderdg/mesh"
	"github.com/notargets/aderdg/utils"
)

const (
	DefaultPredictorTol     = 1e-9
	DefaultPredictorMaxIter = 10
)

// Predictor computes the element-local space-time solution of one slab from
// the coefficients at the start of the step, and assembles the slab
// residual used by the corrector.
type Predictor struct {
	Asm  *Assembler
	Tabs *ADERTables

	Tol     float64
	MaxIter int

	strict, interpolate, implicit bool

	logger *zap.Logger
	tracer trace.Tracer

	// LastReport holds the non-fatal failures of the latest Predict
	LastReport *ConvergenceReport
}

func NewPredictor(asm *Assembler, tabs *ADERTables, opts ...Option) (p *Predictor, err error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if asm.Mesh.Dim != 1 {
		return nil, &UnsupportedSchemeError{Kind: "ADER spatial element", Name: asm.Mesh.Shape.String()}
	}
	if err = asm.Ops.Elem.check("ADER spatial basis size", tabs.Spatial.NB()); err != nil {
		return
	}
	if o.interpolateFlux && !tabs.ST.IsNodal() {
		return nil, &ConfigIncompatibleError{Setting: "InterpolateFlux",
			Reason: fmt.Sprintf("basis %s is not nodal", tabs.ST.Name())}
	}
	if o.implicitSource && !asm.Phys.HasSourceJacobian() {
		return nil, &ConfigIncompatibleError{Setting: "SourceTreatment",
			Reason: "implicit treatment needs a source Jacobian for every source"}
	}
	p = &Predictor{
		Asm:         asm,
		Tabs:        tabs,
		Tol:         DefaultPredictorTol,
		MaxIter:     DefaultPredictorMaxIter,
		strict:      o.strictConvergence,
		interpolate: o.interpolateFlux,
		implicit:    o.implicitSource,
		logger:      o.logger,
		tracer:      o.tracer,
	}
	return
}

func (p *Predictor) checkSpaceTime(what string, Up *Field) error {
	if nbst := p.Tabs.NBST(); Up.NB != nbst {
		return &DimensionMismatchError{What: what + " basis size", Have: Up.NB, Expected: nbst}
	}
	if Up.NElem != p.Asm.Mesh.NElem() {
		return &DimensionMismatchError{What: what + " elements", Have: Up.NElem, Expected: p.Asm.Mesh.NElem()}
	}
	if ns := p.Asm.Phys.NumStateVars(); Up.NS != ns {
		return &DimensionMismatchError{What: what + " state variables", Have: Up.NS, Expected: ns}
	}
	return nil
}

// Predict returns the space-time coefficients of every element for the
// slab [t, t+dt]. Elements are independent and run in parallel.
func (p *Predictor) Predict(ctx context.Context, W *Field, dt, t float64) (Up *Field, err error) {
	ctx, span := p.tracer.Start(ctx, "aderdg.predict",
		trace.WithAttributes(attribute.Float64("time", t), attribute.Float64("dt", dt)))
	defer span.End()
	if err = p.Asm.checkField("solution", W); err != nil {
		return
	}
	var (
		K     = W.NElem
		fails = make([]*ConvergenceFailure, K)
		iters = make([]int, K)
		pm    = utils.NewPartitionMap(utils.ParallelDegree(p.Asm.nWorkers, K), K)
	)
	Up = NewField(K, p.Tabs.NBST(), W.NS)
	err = utils.ParallelFor(ctx, pm, func(ctx context.Context, _, kMin, kMax int) (err error) {
		for k := kMin; k < kMax; k++ {
			if iters[k], fails[k], err = p.predictElement(k, W.Elem(k), Up.Elem(k), dt, t); err != nil {
				return
			}
		}
		return ctx.Err()
	})
	if err != nil {
		return nil, err
	}
	p.LastReport = &ConvergenceReport{Iterations: iters}
	p.logger.Debug("predictor iterations", zap.Ints("iterations", iters))
	for _, f := range fails {
		if f == nil {
			continue
		}
		p.LastReport.Failures = append(p.LastReport.Failures, f)
		p.logger.Warn("predictor not converged",
			zap.Int("element", f.Elem), zap.Int("iterations", f.Iterations), zap.Float64("maxDelta", f.MaxDelta))
	}
	if n := len(p.LastReport.Failures); n > 0 {
		span.SetAttributes(attribute.Int("convergenceFailures", n))
		if p.strict {
			return nil, p.LastReport.Err()
		}
	}
	return
}

// predictElement runs the fixed point iteration of element k, writing the
// result into Up, and returns the number of iterations taken.
func (p *Predictor) predictElement(k int, W, Up utils.Matrix, dt, t float64) (iters int, fail *ConvergenceFailure, err error) {
	var (
		ops   = p.Tabs.Ops(k)
		rhs0  = ops.FTR.Mul(W)
		delta float64
		lu    *mat.LU
		J     utils.Matrix
	)
	Up.Assign(p.Tabs.Broadcast.Mul(W))
	implicit := p.implicit && p.Asm.SourceSwitch && p.Asm.Phys.NumSources() > 0
	if implicit {
		if J, lu, err = p.implicitSystem(k, ops, W, dt, t); err != nil {
			return
		}
	}
	for iters = 1; iters <= p.MaxIter; iters++ {
		Fh, Sh := p.coefficients(k, Up, dt, t)
		rhs := rhs0.Copy()
		if !Fh.IsEmpty() {
			utils.Gemm(false, false, -1, ops.SMS[0], Fh, 1, rhs)
		}
		if !Sh.IsEmpty() {
			utils.Gemm(false, false, 1, ops.MM, Sh, 1, rhs)
		}
		var UpNew utils.Matrix
		if implicit {
			// the linearized source moves to the left hand side
			nr, nc := Up.Dims()
			UJ := utils.NewMatrix(nr, nc)
			utils.Gemm(false, true, 1, Up, J, 0, UJ)
			utils.Gemm(false, false, -0.5*dt, ops.MM, UJ, 1, rhs)
			if UpNew, err = solveImplicit(lu, rhs); err != nil {
				return iters, nil, fmt.Errorf("element %d: %w", k, err)
			}
		} else {
			UpNew = ops.IK.Mul(rhs)
		}
		delta = UpNew.MaxAbsDiff(Up)
		Up.Assign(UpNew)
		if delta < p.Tol {
			return
		}
	}
	return p.MaxIter, &ConvergenceFailure{Elem: k, Iterations: p.MaxIter, MaxDelta: delta}, nil
}

// coefficients returns the flux and source coefficients of Up on the
// space-time basis, already scaled for the predictor update. Either is
// empty when switched off.
func (p *Predictor) coefficients(k int, Up utils.Matrix, dt, t float64) (Fh, Sh utils.Matrix) {
	var (
		at    = p.Tabs
		phys  = p.Asm.Phys
		_, ns = Up.Dims()
		Uq    utils.Matrix
	)
	if p.interpolate {
		Uq = Up
	} else {
		Uq = at.Theta.Mul(Up)
	}
	nq, _ := Uq.Dims()
	if p.Asm.ConvFluxSwitch {
		F := []utils.Matrix{utils.NewMatrix(nq, ns)}
		phys.ConvFluxInterior(Uq, F)
		if p.interpolate {
			Fh = F[0]
		} else {
			Fh = at.Proj.Mul(F[0])
		}
		Fh.Scale(dt * at.FluxScale[k])
	}
	if p.Asm.SourceSwitch && phys.NumSources() > 0 {
		S := utils.NewMatrix(nq, ns)
		if p.interpolate {
			nodes := at.ST.Nodes()
			for i := range nodes {
				tau := nodes[i][len(nodes[i])-1]
				phys.SourceState(at.NodeX[k][i:i+1], t+0.5*(tau+1)*dt,
					utils.NewMatrixView(1, ns, Uq.RowView(i)), utils.NewMatrixView(1, ns, S.RowView(i)))
			}
			Sh = S
		} else {
			p.sourceAtLevels(k, Uq, S, dt, t)
			Sh = at.Proj.Mul(S)
		}
		Sh.Scale(0.5 * dt)
	}
	return
}

// sourceAtLevels evaluates the sources at the space-time quadrature points
// one time level at a time.
func (p *Predictor) sourceAtLevels(k int, Uq, S utils.Matrix, dt, t float64) {
	var (
		at    = p.Tabs
		_, ns = Uq.Dims()
		n     = at.NQS * ns
	)
	for it := 0; it < at.NT; it++ {
		var (
			tau = at.TimeQuad.Pts[it][0]
			Ul  = utils.NewMatrixView(at.NQS, ns, Uq.DataP[it*n:])
			Sl  = utils.NewMatrixView(at.NQS, ns, S.DataP[it*n:])
		)
		p.Asm.Phys.SourceState(at.X[k][it*at.NQS:(it+1)*at.NQS], t+0.5*(tau+1)*dt, Ul, Sl)
	}
}

// implicitSystem factors K x I - dt/2 MM x J, with the source Jacobian J
// taken at the element mean of W and the slab midpoint.
func (p *Predictor) implicitSystem(k int, ops *ADEROperators, W utils.Matrix, dt, t float64) (J utils.Matrix, lu *mat.LU, err error) {
	var (
		eo    = p.Asm.Ops.Elem
		_, ns = W.Dims()
		nbst  = ops.NB
		Uq    = eo.Phi.Mul(W)
		mean  = make([]float64, ns)
		xc    = p.Asm.Mesh.PhysPoints(k, [][]float64{p.Asm.Mesh.Shape.Centroid()})[0]
	)
	for q, w := range eo.WDJac[k] {
		for s, u := range Uq.RowView(q) {
			mean[s] += w * u / eo.Vol[k]
		}
	}
	J = utils.NewMatrix(ns, ns)
	if err = p.Asm.Phys.SourceJacobian(xc, t+0.5*dt, mean, J); err != nil {
		return
	}
	n := nbst * ns
	M := mat.NewDense(n, n, nil)
	for i := 0; i < nbst; i++ {
		for j := 0; j < nbst; j++ {
			kij, mij := ops.K.At(i, j), ops.MM.At(i, j)
			for s := 0; s < ns; s++ {
				M.Set(i*ns+s, j*ns+s, kij)
				for r := 0; r < ns; r++ {
					M.Set(i*ns+s, j*ns+r, M.At(i*ns+s, j*ns+r)-0.5*dt*mij*J.At(s, r))
				}
			}
		}
	}
	lu = &mat.LU{}
	lu.Factorize(M)
	if c := lu.Cond(); c > 1e14 {
		err = fmt.Errorf("element %d: implicit predictor system is singular (condition %g)", k, c)
	}
	return
}

func solveImplicit(lu *mat.LU, rhs utils.Matrix) (X utils.Matrix, err error) {
	nr, nc := rhs.Dims()
	x := mat.NewVecDense(nr*nc, nil)
	if err = lu.SolveVecTo(x, false, mat.NewVecDense(nr*nc, rhs.Copy().DataP)); err != nil {
		return
	}
	X = utils.NewMatrix(nr, nc, x.RawVector().Data)
	return
}

// AssembleSpaceTimeResidual zeroes R and accumulates the time averaged slab
// integrals of the predicted solution Up: volume flux and source, interior
// faces and boundary faces. The corrector is W += dt * iMM * R.
func (p *Predictor) AssembleSpaceTimeResidual(ctx context.Context, Up, R *Field, t, dt float64) (err error) {
	if err = p.checkSpaceTime("predicted solution", Up); err != nil {
		return
	}
	if err = p.Asm.checkField("residual", R); err != nil {
		return
	}
	var (
		a   = p.Asm
		K   = a.Mesh.NElem()
		pmE = utils.NewPartitionMap(utils.ParallelDegree(a.nWorkers, K), K)
	)
	R.Zero()
	err = utils.ParallelFor(ctx, pmE, func(ctx context.Context, _, kMin, kMax int) error {
		for k := kMin; k < kMax; k++ {
			for _, ref := range a.e2b[k] {
				p.accumulateBoundaryFaceST(ref.group, ref.index, Up.Elem(k), R.Elem(k), t, dt)
			}
			p.accumulateVolumeST(k, Up.Elem(k), R.Elem(k), t, dt)
		}
		return ctx.Err()
	})
	if err != nil {
		return
	}
	if a.ConvFluxSwitch {
		if err = a.faceFluxes(ctx, func(f int, face mesh.IFace) {
			p.accumulateInteriorFaceST(f, face, Up.Elem(face.ElemL), Up.Elem(face.ElemR), a.bufL[f], a.bufR[f])
		}); err != nil {
			return
		}
		return a.reduceFaces(ctx, R)
	}
	return
}

func (p *Predictor) accumulateVolumeST(k int, Up, R utils.Matrix, t, dt float64) {
	var (
		at    = p.Tabs
		a     = p.Asm
		_, ns = Up.Dims()
		Uq    = at.Theta.Mul(Up)
		nq    = at.Quad.NQ()
	)
	if a.ConvFluxSwitch {
		F := []utils.Matrix{utils.NewMatrix(nq, ns)}
		a.Phys.ConvFluxInterior(Uq, F)
		F[0].ScaleRows(at.WDJac[k])
		utils.Gemm(true, false, 1, at.GPhi[k], F[0], 1, R)
	}
	if a.SourceSwitch && a.Phys.NumSources() > 0 {
		S := utils.NewMatrix(nq, ns)
		p.sourceAtLevels(k, Uq, S, dt, t)
		S.ScaleRows(at.WDJac[k])
		utils.Gemm(true, false, 1, at.PhiST, S, 1, R)
	}
}

// faceSum integrates the numerical flux over the time extent of a face,
// averaged over the slab.
func (at *ADERTables) faceSum(F utils.Matrix, fjac float64) (Fsum utils.Matrix) {
	_, ns := F.Dims()
	Fsum = utils.NewMatrix(1, ns)
	for i, w := range at.FaceQuad.Wts {
		for s, v := range F.RowView(i) {
			Fsum.DataP[s] += 0.5 * w * fjac * v
		}
	}
	return
}

func replicate(n []float64, count int) (normals [][]float64) {
	normals = make([][]float64, count)
	for i := range normals {
		normals[i] = n
	}
	return
}

func (p *Predictor) accumulateInteriorFaceST(f int, face mesh.IFace, UpL, UpR, RL, RR utils.Matrix) {
	var (
		at    = p.Tabs
		fo    = p.Asm.Ops.IFace
		_, ns = UpL.Dims()
		nqf   = at.FaceQuad.NQ()
		F     = utils.NewMatrix(nqf, ns)
	)
	p.Asm.Phys.ConvFluxNumerical(at.ThetaF[face.FaceL].Mul(UpL), at.ThetaFR[face.FaceR].Mul(UpR),
		replicate(fo.Normals[f][0], nqf), F)
	Fsum := at.faceSum(F, fo.FJac[f][0])
	utils.Gemm(true, false, -1, at.PhiFace[face.FaceL], Fsum, 1, RL)
	utils.Gemm(true, false, 1, at.PhiFace[face.FaceR], Fsum, 1, RR)
}

func (p *Predictor) accumulateBoundaryFaceST(g, i int, Up, R utils.Matrix, t, dt float64) {
	if !p.Asm.ConvFluxSwitch {
		return
	}
	var (
		at    = p.Tabs
		phys  = p.Asm.Phys
		bg    = p.Asm.Ops.BFace.Groups[g]
		bf    = p.Asm.Mesh.BFaceGroups[g].BFaces[i]
		_, ns = Up.Dims()
		nqf   = at.FaceQuad.NQ()
		UqI   = at.ThetaF[bf.Face].Mul(Up)
		UB    = utils.NewMatrix(nqf, ns)
		F     = utils.NewMatrix(nqf, ns)
	)
	for q, tau := range at.TauF[bf.Face] {
		bg.BC.BoundaryState(phys, bg.X[i], t+0.5*(tau+1)*dt, bg.Normals[i],
			utils.NewMatrixView(1, ns, UqI.RowView(q)), utils.NewMatrixView(1, ns, UB.RowView(q)))
	}
	phys.ConvFluxNumerical(UqI, UB, replicate(bg.Normals[i][0], nqf), F)
	utils.Gemm(true, false, -1, at.PhiFace[bf.Face], at.faceSum(F, bg.FJac[i][0]), 1, R)
}
