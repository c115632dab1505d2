package solver

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/notargets/aderdg/mesh"
	"github.com/notargets/aderdg/physics"
	"github.com/notargets/aderdg/utils"
)

type bfaceRef struct {
	group, index int
}

// Assembler accumulates the DG residual R = sum of volume, interior face and
// boundary face integrals for a coefficient field. R is the right hand side
// before the inverse mass matrix is applied.
type Assembler struct {
	Mesh *mesh.Mesh
	Phys physics.Physics
	Ops  *Operators

	ConvFluxSwitch bool
	SourceSwitch   bool

	nWorkers int
	logger   *zap.Logger
	e2f      [][]int
	e2b      [][]bfaceRef
	// per interior face contributions to the left and right elements
	bufL, bufR []utils.Matrix
	errRule    *errorRule
}

type Option func(*options)

type options struct {
	logger            *zap.Logger
	tracer            trace.Tracer
	nWorkers          int
	strictConvergence bool
	interpolateFlux   bool
	implicitSource    bool
	convFlux, source  bool
}

func defaultOptions() options {
	return options{
		logger:   zap.NewNop(),
		tracer:   otel.Tracer("github.com/notargets/aderdg/solver"),
		convFlux: true,
		source:   true,
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(o *options) {
		if t != nil {
			o.tracer = t
		}
	}
}

// WithWorkers sets the data-parallel degree; 0 uses every CPU
func WithWorkers(n int) Option { return func(o *options) { o.nWorkers = n } }

// WithSwitches toggles the flux and source contributions
func WithSwitches(convFlux, source bool) Option {
	return func(o *options) { o.convFlux, o.source = convFlux, source }
}

// WithStrictConvergence makes predictor convergence failures fatal
func WithStrictConvergence(strict bool) Option {
	return func(o *options) { o.strictConvergence = strict }
}

// WithInterpolatedFlux evaluates predictor flux coefficients nodally
func WithInterpolatedFlux(on bool) Option { return func(o *options) { o.interpolateFlux = on } }

// WithImplicitSource uses the source Jacobian inside the predictor solve
func WithImplicitSource(on bool) Option { return func(o *options) { o.implicitSource = on } }

func NewAssembler(m *mesh.Mesh, phys physics.Physics, ops *Operators, opts ...Option) (a *Assembler) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	a = &Assembler{
		Mesh:           m,
		Phys:           phys,
		Ops:            ops,
		ConvFluxSwitch: o.convFlux,
		SourceSwitch:   o.source,
		nWorkers:       o.nWorkers,
		logger:         o.logger,
		e2f:            m.ElemFaces(),
		e2b:            make([][]bfaceRef, m.NElem()),
	}
	for ig, g := range m.BFaceGroups {
		for i, bf := range g.BFaces {
			a.e2b[bf.Elem] = append(a.e2b[bf.Elem], bfaceRef{ig, i})
		}
	}
	nb, ns := ops.Elem.NB, phys.NumStateVars()
	a.bufL = make([]utils.Matrix, len(m.IFaces))
	a.bufR = make([]utils.Matrix, len(m.IFaces))
	for i := range a.bufL {
		a.bufL[i] = utils.NewMatrix(nb, ns)
		a.bufR[i] = utils.NewMatrix(nb, ns)
	}
	a.logger.Debug("residual assembler ready",
		zap.Int("order", ops.Elem.Order), zap.Int("nb", nb), zap.Int("nq", ops.Elem.NQ),
		zap.Int("elements", m.NElem()), zap.Int("interiorFaces", len(m.IFaces)))
	return
}

func (a *Assembler) checkField(what string, U *Field) error {
	if err := a.Ops.Elem.check(what+" basis size", U.NB); err != nil {
		return err
	}
	if U.NElem != a.Mesh.NElem() {
		return &DimensionMismatchError{What: what + " elements", Have: U.NElem, Expected: a.Mesh.NElem()}
	}
	if ns := a.Phys.NumStateVars(); U.NS != ns {
		return &DimensionMismatchError{What: what + " state variables", Have: U.NS, Expected: ns}
	}
	return nil
}

// AccumulateVolume adds element k's volume integrals into R.
func (a *Assembler) AccumulateVolume(k int, U, R utils.Matrix, t float64) {
	var (
		eo    = a.Ops.Elem
		nq    = eo.NQ
		_, ns = U.Dims()
		Uq    = eo.Phi.Mul(U)
	)
	if a.ConvFluxSwitch {
		F := make([]utils.Matrix, a.Mesh.Dim)
		for d := range F {
			F[d] = utils.NewMatrix(nq, ns)
		}
		a.Phys.ConvFluxInterior(Uq, F)
		for d := range F {
			F[d].ScaleRows(eo.WDJac[k])
			utils.Gemm(true, false, 1, eo.GPhi[k][d], F[d], 1, R)
		}
	}
	if a.SourceSwitch && a.Phys.NumSources() > 0 {
		S := utils.NewMatrix(nq, ns)
		a.Phys.SourceState(eo.X[k], t, Uq, S)
		S.ScaleRows(eo.WDJac[k])
		utils.Gemm(true, false, 1, eo.Phi, S, 1, R)
	}
}

// AccumulateInteriorFace adds face f's flux into the residuals of its left
// and right elements. The numerical flux is evaluated once per point.
func (a *Assembler) AccumulateInteriorFace(f int, UL, UR, RL, RR utils.Matrix, t float64) {
	if !a.ConvFluxSwitch {
		return
	}
	var (
		fo    = a.Ops.IFace
		face  = a.Mesh.IFaces[f]
		phiL  = fo.BasisL[face.FaceL]
		phiR  = fo.BasisR[face.FaceR]
		_, ns = UL.Dims()
		F     = utils.NewMatrix(fo.NQ, ns)
	)
	a.Phys.ConvFluxNumerical(phiL.Mul(UL), phiR.Mul(UR), fo.Normals[f], F)
	F.ScaleRows(fo.WFJac[f])
	utils.Gemm(true, false, -1, phiL, F, 1, RL)
	utils.Gemm(true, false, 1, phiR, F, 1, RR)
}

// AccumulateBoundaryFace adds boundary face i of group g into R.
func (a *Assembler) AccumulateBoundaryFace(g, i int, U, R utils.Matrix, t float64) {
	if !a.ConvFluxSwitch {
		return
	}
	var (
		bo    = a.Ops.BFace
		bg    = bo.Groups[g]
		bf    = a.Mesh.BFaceGroups[g].BFaces[i]
		phi   = bo.Basis[bf.Face]
		_, ns = U.Dims()
		UqI   = phi.Mul(U)
		UB    = utils.NewMatrix(bo.NQ, ns)
		F     = utils.NewMatrix(bo.NQ, ns)
	)
	bg.BC.BoundaryState(a.Phys, bg.X[i], t, bg.Normals[i], UqI, UB)
	a.Phys.ConvFluxNumerical(UqI, UB, bg.Normals[i], F)
	F.ScaleRows(bg.WFJac[i])
	utils.Gemm(true, false, -1, phi, F, 1, R)
}

// AssembleResidual zeroes R and accumulates every boundary face, element
// and interior face exactly once. Elements and faces are processed in
// parallel; interior faces write private buffers that are then reduced per
// element in a fixed order, so the result does not depend on the worker
// count.
func (a *Assembler) AssembleResidual(ctx context.Context, U, R *Field, t float64) (err error) {
	if err = a.checkField("solution", U); err != nil {
		return
	}
	if err = a.checkField("residual", R); err != nil {
		return
	}
	R.Zero()
	K := a.Mesh.NElem()
	pmE := utils.NewPartitionMap(utils.ParallelDegree(a.nWorkers, K), K)
	err = utils.ParallelFor(ctx, pmE, func(ctx context.Context, _, kMin, kMax int) error {
		for k := kMin; k < kMax; k++ {
			for _, ref := range a.e2b[k] {
				a.AccumulateBoundaryFace(ref.group, ref.index, U.Elem(k), R.Elem(k), t)
			}
			a.AccumulateVolume(k, U.Elem(k), R.Elem(k), t)
		}
		return ctx.Err()
	})
	if err != nil {
		return
	}
	if err = a.faceFluxes(ctx, func(f int, face mesh.IFace) {
		a.AccumulateInteriorFace(f, U.Elem(face.ElemL), U.Elem(face.ElemR), a.bufL[f], a.bufR[f], t)
	}); err != nil {
		return
	}
	return a.reduceFaces(ctx, R)
}

// faceFluxes runs fn over all interior faces in parallel after zeroing the
// face buffers.
func (a *Assembler) faceFluxes(ctx context.Context, fn func(f int, face mesh.IFace)) error {
	NF := len(a.Mesh.IFaces)
	if NF == 0 {
		return nil
	}
	pmF := utils.NewPartitionMap(utils.ParallelDegree(a.nWorkers, NF), NF)
	return utils.ParallelFor(ctx, pmF, func(ctx context.Context, _, fMin, fMax int) error {
		for f := fMin; f < fMax; f++ {
			a.bufL[f].AssignScalar(0)
			a.bufR[f].AssignScalar(0)
			fn(f, a.Mesh.IFaces[f])
		}
		return ctx.Err()
	})
}

// reduceFaces adds the face buffers into R, element by element
func (a *Assembler) reduceFaces(ctx context.Context, R *Field) error {
	K := a.Mesh.NElem()
	pmE := utils.NewPartitionMap(utils.ParallelDegree(a.nWorkers, K), K)
	return utils.ParallelFor(ctx, pmE, func(ctx context.Context, _, kMin, kMax int) error {
		for k := kMin; k < kMax; k++ {
			Rk := R.Elem(k)
			for _, f := range a.e2f[k] {
				face := a.Mesh.IFaces[f]
				if face.ElemL == k {
					Rk.Add(a.bufL[f])
				}
				if face.ElemR == k {
					Rk.Add(a.bufR[f])
				}
			}
		}
		return ctx.Err()
	})
}

// ApplyInverseMass replaces each element block of R with iMM[k]*R[k].
func (a *Assembler) ApplyInverseMass(ctx context.Context, R *Field) error {
	var (
		K  = a.Mesh.NElem()
		pm = utils.NewPartitionMap(utils.ParallelDegree(a.nWorkers, K), K)
	)
	return utils.ParallelFor(ctx, pm, func(ctx context.Context, _, kMin, kMax int) error {
		for k := kMin; k < kMax; k++ {
			Rk := R.Elem(k)
			Rk.Assign(a.Ops.Elem.IMM[k].Mul(Rk))
		}
		return ctx.Err()
	})
}

// TimeDerivative is dU/dt = iMM * R(U, t), written into dU.
func (a *Assembler) TimeDerivative(ctx context.Context, U, dU *Field, t float64) (err error) {
	if err = a.AssembleResidual(ctx, U, dU, t); err != nil {
		return
	}
	return a.ApplyInverseMass(ctx, dU)
}

// MaxWaveSpeed is the largest signal speed over the element quadrature
// points of U.
func (a *Assembler) MaxWaveSpeed(U *Field) (c float64) {
	for k := 0; k < U.NElem; k++ {
		if ck := a.Phys.MaxWaveSpeed(a.Ops.Elem.Phi.Mul(U.Elem(k))); ck > c {
			c = ck
		}
	}
	return
}
