package stepper

import (
	"context"
	"strings"

	"github.com/notargets/aderdg/basis"
	"github.com/notargets/aderdg/limiter"
	"github.com/notargets/aderdg/solver"
	"github.com/notargets/aderdg/utils"
)

type SchemeType uint8

const (
	FE SchemeType = iota
	RK4
	LSRK4
	SSPRK3
	ADER
)

var (
	SchemeNames = map[string]SchemeType{
		"fe":            FE,
		"forwardeuler":  FE,
		"rk4":           RK4,
		"lsrk4":         LSRK4,
		"ssprk3":        SSPRK3,
		"ader":          ADER,
		"ader-dg":       ADER,
		"aderdg":        ADER,
		"lowstoragerk4": LSRK4,
	}
	SchemeNamesRev = map[SchemeType]string{
		FE:     "FE",
		RK4:    "RK4",
		LSRK4:  "LSRK4",
		SSPRK3: "SSPRK3",
		ADER:   "ADER",
	}
)

func (st SchemeType) Print() string { return SchemeNamesRev[st] }

func NewSchemeType(label string) (st SchemeType, err error) {
	var ok bool
	if st, ok = SchemeNames[strings.ToLower(strings.TrimSpace(label))]; !ok {
		err = &solver.UnsupportedSchemeError{Kind: "time scheme", Name: label}
	}
	return
}

// Stepper advances a coefficient field by one time step in place
type Stepper interface {
	Name() string
	TakeStep(ctx context.Context, U *solver.Field, t, dt float64) error
	// Residual is the time derivative of the last stage, for reporting
	Residual() *solver.Field
}

// explicit carries what every method-of-lines scheme needs
type explicit struct {
	asm *solver.Assembler
	lim limiter.Limiter
	dU  *solver.Field
}

func newExplicit(asm *solver.Assembler, lim limiter.Limiter) explicit {
	return explicit{
		asm: asm,
		lim: lim,
		dU:  solver.NewField(asm.Mesh.NElem(), asm.Ops.Elem.NB, asm.Phys.NumStateVars()),
	}
}

func (e *explicit) Residual() *solver.Field { return e.dU }

func (e *explicit) limit(ctx context.Context, U *solver.Field) error {
	if e.lim == nil {
		return nil
	}
	return e.lim.Limit(ctx, U)
}

// stage computes dU = f(U, t) into the given field
func (e *explicit) stage(ctx context.Context, U, dU *solver.Field, t float64) error {
	return e.asm.TimeDerivative(ctx, U, dU, t)
}

type ForwardEuler struct {
	explicit
}

func (*ForwardEuler) Name() string { return FE.Print() }

func (s *ForwardEuler) TakeStep(ctx context.Context, U *solver.Field, t, dt float64) (err error) {
	if err = s.stage(ctx, U, s.dU, t); err != nil {
		return
	}
	U.AddScaled(dt, s.dU)
	return s.limit(ctx, U)
}

// RungeKutta4 is the classic four stage scheme
type RungeKutta4 struct {
	explicit
	k      [4]*solver.Field
	Ustage *solver.Field
}

func (*RungeKutta4) Name() string { return RK4.Print() }

func (s *RungeKutta4) TakeStep(ctx context.Context, U *solver.Field, t, dt float64) (err error) {
	var (
		cs = [4]float64{0, 0.5, 0.5, 1}
		ws = [4]float64{1. / 6., 1. / 3., 1. / 3., 1. / 6.}
	)
	for i := range s.k {
		s.Ustage.CopyFrom(U)
		if i > 0 {
			s.Ustage.AddScaled(cs[i]*dt, s.k[i-1])
			if err = s.limit(ctx, s.Ustage); err != nil {
				return
			}
		}
		if err = s.stage(ctx, s.Ustage, s.k[i], t+cs[i]*dt); err != nil {
			return
		}
	}
	for i := range s.k {
		U.AddScaled(ws[i]*dt, s.k[i])
	}
	s.dU.CopyFrom(s.k[3])
	return s.limit(ctx, U)
}

// LowStorageRK4 is the five stage, two register scheme of Carpenter and
// Kennedy
type LowStorageRK4 struct {
	explicit
	resid *solver.Field
}

func (*LowStorageRK4) Name() string { return LSRK4.Print() }

func (s *LowStorageRK4) TakeStep(ctx context.Context, U *solver.Field, t, dt float64) (err error) {
	s.resid.Zero()
	for INTRK := 0; INTRK < 5; INTRK++ {
		if err = s.stage(ctx, U, s.dU, t+dt*utils.RK4c[INTRK]); err != nil {
			return
		}
		// resid = rk4a * resid + dt * rhs
		s.resid.Scale(utils.RK4a[INTRK])
		s.resid.AddScaled(dt, s.dU)
		// U += rk4b * resid
		U.AddScaled(utils.RK4b[INTRK], s.resid)
		if err = s.limit(ctx, U); err != nil {
			return
		}
	}
	return
}

// SSPRungeKutta3 is the three stage strong stability preserving scheme of
// Shu and Osher
type SSPRungeKutta3 struct {
	explicit
	U1, U2 *solver.Field
}

func (*SSPRungeKutta3) Name() string { return SSPRK3.Print() }

func (s *SSPRungeKutta3) TakeStep(ctx context.Context, U *solver.Field, t, dt float64) (err error) {
	// U1 = U + dt L(U)
	if err = s.stage(ctx, U, s.dU, t); err != nil {
		return
	}
	s.U1.CopyFrom(U)
	s.U1.AddScaled(dt, s.dU)
	if err = s.limit(ctx, s.U1); err != nil {
		return
	}
	// U2 = 3/4 U + 1/4 (U1 + dt L(U1))
	if err = s.stage(ctx, s.U1, s.dU, t+dt); err != nil {
		return
	}
	s.U1.AddScaled(dt, s.dU)
	s.U2.CopyFrom(U)
	s.U2.Scale(0.75)
	s.U2.AddScaled(0.25, s.U1)
	if err = s.limit(ctx, s.U2); err != nil {
		return
	}
	// U = 1/3 U + 2/3 (U2 + dt L(U2))
	if err = s.stage(ctx, s.U2, s.dU, t+0.5*dt); err != nil {
		return
	}
	s.U2.AddScaled(dt, s.dU)
	U.Scale(1. / 3.)
	U.AddScaled(2./3., s.U2)
	return s.limit(ctx, U)
}

// ADERStep is the space-time predictor followed by the corrector
// W += dt iMM R(Up).
type ADERStep struct {
	Pred *solver.Predictor
	lim  limiter.Limiter
	R    *solver.Field
}

func (*ADERStep) Name() string { return ADER.Print() }

func (s *ADERStep) Residual() *solver.Field { return s.R }

func (s *ADERStep) TakeStep(ctx context.Context, U *solver.Field, t, dt float64) (err error) {
	var Up *solver.Field
	if Up, err = s.Pred.Predict(ctx, U, dt, t); err != nil {
		return
	}
	// Predict returns after every element is done
	if err = s.Pred.AssembleSpaceTimeResidual(ctx, Up, s.R, t, dt); err != nil {
		return
	}
	if err = s.Pred.Asm.ApplyInverseMass(ctx, s.R); err != nil {
		return
	}
	U.AddScaled(dt, s.R)
	if s.lim != nil {
		err = s.lim.Limit(ctx, U)
	}
	return
}

// New builds the named scheme over asm. Predictor options apply to ADER
// only.
func New(label string, asm *solver.Assembler, lim limiter.Limiter, popts ...solver.Option) (s Stepper, err error) {
	var st SchemeType
	if st, err = NewSchemeType(label); err != nil {
		return
	}
	var (
		K, nb, ns = asm.Mesh.NElem(), asm.Ops.Elem.NB, asm.Phys.NumStateVars()
		field     = func() *solver.Field { return solver.NewField(K, nb, ns) }
	)
	switch st {
	case FE:
		s = &ForwardEuler{explicit: newExplicit(asm, lim)}
	case RK4:
		s = &RungeKutta4{explicit: newExplicit(asm, lim),
			k: [4]*solver.Field{field(), field(), field(), field()}, Ustage: field()}
	case LSRK4:
		s = &LowStorageRK4{explicit: newExplicit(asm, lim), resid: field()}
	case SSPRK3:
		s = &SSPRungeKutta3{explicit: newExplicit(asm, lim), U1: field(), U2: field()}
	case ADER:
		var (
			bst  basis.Basis
			tabs *solver.ADERTables
			pred *solver.Predictor
			b    = asm.Ops.Basis
		)
		if asm.Mesh.Shape != basis.Segment {
			return nil, &solver.UnsupportedSchemeError{Kind: "ADER spatial element", Name: asm.Mesh.Shape.String()}
		}
		if bst, err = basis.SpaceTime(b); err != nil {
			return nil, &solver.UnsupportedSchemeError{Kind: "space-time basis", Name: b.Name()}
		}
		qorder := solver.QuadratureOrder(b.Order(), asm.Phys.FluxDegree(), asm.Mesh.GOrder, 1)
		if tabs, err = solver.ComputeADEROperators(asm.Mesh, b, bst, qorder); err != nil {
			return
		}
		if pred, err = solver.NewPredictor(asm, tabs, popts...); err != nil {
			return
		}
		s = &ADERStep{Pred: pred, lim: lim, R: field()}
	}
	return
}
